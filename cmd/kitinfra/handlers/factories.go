// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/imamik/kitinfra/internal/addons"
	"github.com/imamik/kitinfra/internal/addons/helm"
	"github.com/imamik/kitinfra/internal/addons/identity"
	"github.com/imamik/kitinfra/internal/addons/k8sclient"
	"github.com/imamik/kitinfra/internal/config"
	awsplatform "github.com/imamik/kitinfra/internal/platform/aws"
	"github.com/imamik/kitinfra/internal/platform/s3"
	"github.com/imamik/kitinfra/internal/provisioning"
)

const defaultConfigFile = "kitinfra.yaml"

// cloudClient is the AWS API used by the handlers.
type cloudClient interface {
	provisioning.AWSClient
	AccountID(ctx context.Context) (string, error)
	ExecCredential(ctx context.Context, cluster string) ([]byte, error)
	ServiceAccountRoles(cluster *awsplatform.Cluster) (*awsplatform.ServiceAccountRoles, error)
}

// roleBackend creates service account roles and attaches their policies.
type roleBackend interface {
	identity.RoleProvisioner
	addons.PermissionProvider
}

// kubeClient is the cluster API used by the handlers.
type kubeClient interface {
	addons.ControlPlane
	identity.ServiceAccountWriter
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfigFile loads config from file.
	loadConfigFile = config.LoadFile

	// loadTimeouts reads the timeout overrides from the environment.
	loadTimeouts = config.LoadTimeouts

	// newCloudClient creates the AWS client of a cluster.
	newCloudClient = func(ctx context.Context, cfg *config.Config, profile string, t *config.Timeouts) (cloudClient, error) {
		return awsplatform.NewClient(ctx, cfg.ClusterName, awsplatform.Options{
			Region:   cfg.Region,
			Profile:  profile,
			Tags:     cfg.ResourceTags(),
			Timeouts: platformTimeouts(t),
		})
	}

	// newTokenClient creates the AWS client signing tokens.
	newTokenClient = func(ctx context.Context, cluster, region, profile string) (tokenClient, error) {
		return awsplatform.NewClient(ctx, cluster, awsplatform.Options{Region: region, Profile: profile})
	}

	// newRoleBackend connects IRSA role management to a cluster.
	newRoleBackend = func(cloud cloudClient, cluster *awsplatform.Cluster) (roleBackend, error) {
		roles, err := cloud.ServiceAccountRoles(cluster)
		if err != nil {
			return nil, err
		}
		return roles, nil
	}

	// newKubeClient connects to the cluster API.
	newKubeClient = func(kubeconfig []byte) (kubeClient, error) {
		return k8sclient.NewFromKubeconfig(kubeconfig)
	}

	// newChartInstaller creates the Helm installer.
	newChartInstaller = func(kubeconfig []byte, timeout time.Duration) addons.ChartInstaller {
		return helm.NewClient(kubeconfig, helm.WithDefaultTimeout(timeout))
	}

	// newObjectStore creates the S3 client of the run archive.
	newObjectStore = func(ctx context.Context, region string) (s3.ObjectStore, error) {
		return s3.NewClient(ctx, region, "")
	}

	// executable returns the path of this binary for exec credentials.
	executable = os.Executable

	// writeFile writes data to a file.
	writeFile = os.WriteFile
)

// loadConfig loads and validates cluster configuration. If configPath is
// empty, it looks for kitinfra.yaml in the current directory.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		if _, err := os.Stat(defaultConfigFile); err != nil {
			return nil, fmt.Errorf("no config file found: %s does not exist, pass one with --config", defaultConfigFile)
		}
		configPath = defaultConfigFile
	}

	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func platformTimeouts(t *config.Timeouts) awsplatform.Timeouts {
	return awsplatform.Timeouts{
		NetworkCreate:     t.NetworkCreate,
		ClusterActive:     t.ClusterActive,
		NodegroupActive:   t.NodegroupActive,
		RetryMaxAttempts:  t.RetryMaxAttempts,
		RetryInitialDelay: t.RetryInitialDelay,
	}
}

// registrars adapts newKubeClient to the bootstrap node registration.
func registrars(kubeconfig []byte) (provisioning.NodeIdentityRegistrar, error) {
	return newKubeClient(kubeconfig)
}
