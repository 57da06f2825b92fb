package provisioning

import (
	"context"

	"github.com/imamik/kitinfra/internal/config"
	awsplatform "github.com/imamik/kitinfra/internal/platform/aws"
)

// Phase defines the interface for a provisioning phase.
type Phase interface {
	// Name returns the step name reported in BootstrapError.
	Name() string

	// Provision executes the provisioning logic for this phase.
	Provision(ctx *Context) error
}

// Provisioner creates the cloud resources of a cluster. Every method is an
// idempotent upsert.
type Provisioner interface {
	CreateNetwork(ctx context.Context, cidr string, plan config.SubnetPlan) (*awsplatform.Network, error)
	CreateControlPlane(ctx context.Context, network *awsplatform.Network, version string) (*awsplatform.Cluster, error)
	CreateNodePool(ctx context.Context, cluster *awsplatform.Cluster, subnets []string, pool config.NodePoolConfig) (*awsplatform.NodePool, error)

	// Kubeconfig returns credentials for clients of this process.
	Kubeconfig(ctx context.Context, cluster *awsplatform.Cluster) ([]byte, error)
}

// NodeIdentityRegistrar maps IAM roles into the cluster's access-control
// list. Implemented by k8sclient.Client.
type NodeIdentityRegistrar interface {
	RegisterNodeIdentity(ctx context.Context, roleARN, usernamePattern string, groups []string) error
}

// RegistrarFactory connects a registrar to a freshly created cluster.
type RegistrarFactory func(kubeconfig []byte) (NodeIdentityRegistrar, error)
