package provisioning

import (
	"context"

	"github.com/imamik/kitinfra/internal/config"
	awsplatform "github.com/imamik/kitinfra/internal/platform/aws"
)

// State holds the shared results of provisioning phases.
// It is progressively populated as each phase completes and is passed
// to subsequent phases that need earlier results.
type State struct {
	Network    *awsplatform.Network
	Cluster    *awsplatform.Cluster
	NodePool   *awsplatform.NodePool
	Kubeconfig []byte

	// NodeRoles are the role ARNs registered with the cluster.
	NodeRoles []string
}

// Context wraps all dependencies and state needed for a provisioning phase.
type Context struct {
	context.Context
	Network     config.NetworkConfig
	Cluster     ClusterConfig
	State       *State
	Provisioner Provisioner
	Registrars  RegistrarFactory
	Observer    Observer
}

// NewContext creates a new provisioning context.
func NewContext(ctx context.Context, network config.NetworkConfig, cluster ClusterConfig, provisioner Provisioner, registrars RegistrarFactory) *Context {
	return &Context{
		Context:     ctx,
		Network:     network,
		Cluster:     cluster,
		State:       &State{},
		Provisioner: provisioner,
		Registrars:  registrars,
		Observer:    NewLogObserver(ctx),
	}
}
