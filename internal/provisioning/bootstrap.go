package provisioning

import (
	"context"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kitinfra/internal/config"
)

// Bootstrapper brings up a cluster ready to receive add-ons.
type Bootstrapper struct {
	provisioner Provisioner
	registrars  RegistrarFactory
	observer    Observer
}

// NewBootstrapper creates a bootstrapper creating resources through
// provisioner and registering node identities through registrars.
func NewBootstrapper(provisioner Provisioner, registrars RegistrarFactory) *Bootstrapper {
	return &Bootstrapper{provisioner: provisioner, registrars: registrars}
}

// WithObserver replaces the log observer.
func (b *Bootstrapper) WithObserver(o Observer) *Bootstrapper {
	b.observer = o
	return b
}

// Phases returns the bootstrap steps in execution order.
func (b *Bootstrapper) Phases() []Phase {
	return []Phase{
		NewValidationPhase(),
		NetworkPhase{},
		ControlPlanePhase{},
		NodePoolPhase{},
		NodeIdentityPhase{},
	}
}

// Bootstrap creates the network, control plane and node pool of a cluster
// and lets its nodes join. Every step is idempotent so a failed bootstrap
// can be rerun. Errors are *BootstrapError naming the failing step.
func (b *Bootstrapper) Bootstrap(ctx context.Context, network config.NetworkConfig, cluster ClusterConfig) (*ClusterHandle, error) {
	ctx = log.IntoContext(ctx, log.FromContext(ctx).WithValues("cluster", cluster.Name))

	pctx := NewContext(ctx, network, cluster, b.provisioner, b.registrars)
	if b.observer != nil {
		pctx.Observer = b.observer
	}

	if err := RunPhases(pctx, b.Phases()); err != nil {
		return nil, err
	}
	return newClusterHandle(cluster, pctx.State), nil
}
