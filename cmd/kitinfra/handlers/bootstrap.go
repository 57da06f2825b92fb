package handlers

import (
	"context"
	"fmt"
	"io"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kitinfra/internal/addons/catalog"
	"github.com/imamik/kitinfra/internal/config"
	awsplatform "github.com/imamik/kitinfra/internal/platform/aws"
	"github.com/imamik/kitinfra/internal/provisioning"
)

// BootstrapOptions configures Bootstrap.
type BootstrapOptions struct {
	ConfigPath string
	Profile    string
	Out        io.Writer
}

// Bootstrap creates the cluster without installing add-ons.
func Bootstrap(ctx context.Context, opts BootstrapOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	cloud, err := newCloudClient(ctx, cfg, opts.Profile, loadTimeouts())
	if err != nil {
		return err
	}
	info, err := clusterInfo(ctx, cloud, cfg)
	if err != nil {
		return err
	}

	handle, err := bootstrapCluster(ctx, cloud, cfg, info, opts.Profile)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(opts.Out, renderCluster(handle, cfg.KubeconfigPath))
	return err
}

// clusterInfo describes the cluster for the add-on catalog before it exists.
func clusterInfo(ctx context.Context, cloud cloudClient, cfg *config.Config) (catalog.ClusterInfo, error) {
	account, err := cloud.AccountID(ctx)
	if err != nil {
		return catalog.ClusterInfo{}, err
	}
	return catalog.ClusterInfo{
		Name:      cfg.ClusterName,
		Region:    cfg.Region,
		AccountID: account,
		Partition: awsplatform.Partition(cfg.Region),
	}, nil
}

// bootstrapCluster runs the bootstrap phases and writes the kubeconfig.
// The returned handle carries a kubeconfig that refreshes its token through
// this binary, so long add-on runs outlive the token lifetime.
func bootstrapCluster(ctx context.Context, cloud cloudClient, cfg *config.Config, info catalog.ClusterInfo, profile string) (*provisioning.ClusterHandle, error) {
	logger := log.FromContext(ctx)

	cluster := provisioning.ClusterConfigFrom(cfg)
	if arn := catalog.New(cfg, info, 0).TestIdentityRoleARN(); arn != "" {
		cluster.ExtraNodeRoleARNs = append(cluster.ExtraNodeRoleARNs, arn)
	}

	provisioner := provisioning.NewAWSProvisioner(cloud, cfg.Network, cluster)
	if exec, err := selfExec(cfg, profile); err == nil {
		provisioner = provisioner.WithExecCredentials(exec)
	} else {
		logger.Info("using a short-lived token for cluster access", "reason", err.Error())
	}

	handle, err := provisioning.NewBootstrapper(provisioner, registrars).Bootstrap(ctx, cfg.Network, cluster)
	if err != nil {
		return nil, err
	}

	if cfg.KubeconfigPath != "" {
		data, err := cloud.ExecKubeconfig(handle.Cluster, awsplatform.AWSCLI(cfg.ClusterName, cfg.Region))
		if err != nil {
			return nil, err
		}
		if err := writeFile(cfg.KubeconfigPath, data, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write kubeconfig: %w", err)
		}
		logger.Info("kubeconfig written", "path", cfg.KubeconfigPath)
	}
	return handle, nil
}

// selfExec is the credential plugin invoking the token command of this binary.
func selfExec(cfg *config.Config, profile string) (awsplatform.ExecCommand, error) {
	path, err := executable()
	if err != nil {
		return awsplatform.ExecCommand{}, err
	}
	args := []string{"token", "--cluster", cfg.ClusterName, "--region", cfg.Region}
	if profile != "" {
		args = append(args, "--profile", profile)
	}
	return awsplatform.ExecCommand{Command: path, Args: args}, nil
}
