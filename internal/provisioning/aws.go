package provisioning

import (
	"context"

	"github.com/imamik/kitinfra/internal/config"
	awsplatform "github.com/imamik/kitinfra/internal/platform/aws"
)

// AWSClient is the subset of the AWS platform client used for bootstrap.
type AWSClient interface {
	EnsureNetwork(ctx context.Context, spec awsplatform.NetworkSpec) (*awsplatform.Network, error)
	EnsureControlPlane(ctx context.Context, spec awsplatform.ClusterSpec) (*awsplatform.Cluster, error)
	EnsureNodePool(ctx context.Context, spec awsplatform.NodePoolSpec) (*awsplatform.NodePool, error)
	Kubeconfig(ctx context.Context, cluster *awsplatform.Cluster) ([]byte, error)
	ExecKubeconfig(cluster *awsplatform.Cluster, exec awsplatform.ExecCommand) ([]byte, error)
}

// AWSProvisioner implements Provisioner on EKS.
type AWSProvisioner struct {
	client  AWSClient
	cluster ClusterConfig
	nat     bool
	exec    *awsplatform.ExecCommand
}

// NewAWSProvisioner creates a provisioner for the cluster described by
// cluster and network.
func NewAWSProvisioner(client AWSClient, network config.NetworkConfig, cluster ClusterConfig) *AWSProvisioner {
	return &AWSProvisioner{
		client:  client,
		cluster: cluster,
		nat:     network.NATGatewayEnabled(),
	}
}

// WithExecCredentials makes Kubeconfig return a kubeconfig refreshing its
// token through exec instead of embedding a short-lived one.
func (p *AWSProvisioner) WithExecCredentials(exec awsplatform.ExecCommand) *AWSProvisioner {
	p.exec = &exec
	return p
}

// CreateNetwork implements Provisioner.
func (p *AWSProvisioner) CreateNetwork(ctx context.Context, cidr string, plan config.SubnetPlan) (*awsplatform.Network, error) {
	spec := awsplatform.NetworkSpec{
		Cluster:    p.cluster.Name,
		CIDR:       cidr,
		NATGateway: p.nat,
	}
	for _, s := range plan.All() {
		spec.Subnets = append(spec.Subnets, awsplatform.SubnetSpec{
			CIDR:             s.CIDR,
			AvailabilityZone: s.AvailabilityZone,
			Public:           s.Public,
		})
	}
	return p.client.EnsureNetwork(ctx, spec)
}

// CreateControlPlane implements Provisioner.
func (p *AWSProvisioner) CreateControlPlane(ctx context.Context, network *awsplatform.Network, version string) (*awsplatform.Cluster, error) {
	return p.client.EnsureControlPlane(ctx, awsplatform.ClusterSpec{
		Name:         p.cluster.Name,
		Version:      version,
		Logging:      p.cluster.Kubernetes.Logging,
		PublicAccess: p.cluster.Kubernetes.PublicAccessEnabled(),
		SubnetIDs:    network.SubnetIDs(),
	})
}

// CreateNodePool implements Provisioner.
func (p *AWSProvisioner) CreateNodePool(ctx context.Context, cluster *awsplatform.Cluster, subnets []string, pool config.NodePoolConfig) (*awsplatform.NodePool, error) {
	taints := make([]awsplatform.Taint, 0, len(pool.Taints))
	for _, t := range pool.Taints {
		taints = append(taints, awsplatform.Taint{Key: t.Key, Value: t.Value, Effect: t.Effect})
	}
	return p.client.EnsureNodePool(ctx, awsplatform.NodePoolSpec{
		Cluster:       cluster.Name,
		Name:          pool.Name,
		SubnetIDs:     subnets,
		InstanceTypes: pool.InstanceTypes,
		MinSize:       pool.MinSize,
		MaxSize:       pool.MaxSize,
		DesiredSize:   pool.DesiredSize,
		DiskSize:      pool.DiskSize,
		Labels:        pool.Labels,
		Taints:        taints,
	})
}

// Kubeconfig implements Provisioner.
func (p *AWSProvisioner) Kubeconfig(ctx context.Context, cluster *awsplatform.Cluster) ([]byte, error) {
	if p.exec != nil {
		return p.client.ExecKubeconfig(cluster, *p.exec)
	}
	return p.client.Kubeconfig(ctx, cluster)
}

var _ Provisioner = (*AWSProvisioner)(nil)
var _ AWSClient = (*awsplatform.Client)(nil)
