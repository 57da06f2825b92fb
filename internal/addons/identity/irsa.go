package identity

import (
	"context"
	"fmt"

	"github.com/imamik/kitinfra/internal/addons"
)

// RoleProvisioner creates the cloud role a service account assumes.
type RoleProvisioner interface {
	EnsureServiceAccountRole(ctx context.Context, namespace, serviceAccount string) (addons.IdentityRef, error)
}

// ServiceAccountWriter writes the annotated service account.
type ServiceAccountWriter interface {
	UpsertServiceAccount(ctx context.Context, ref addons.IdentityRef) error
}

// IRSAProvider realizes workload identities as IAM roles for service
// accounts: a role trusted by the cluster's OIDC provider plus a service
// account annotated with the role ARN.
type IRSAProvider struct {
	roles    RoleProvisioner
	accounts ServiceAccountWriter
}

// NewIRSAProvider creates an IRSAProvider.
func NewIRSAProvider(roles RoleProvisioner, accounts ServiceAccountWriter) *IRSAProvider {
	return &IRSAProvider{roles: roles, accounts: accounts}
}

// BindWorkloadIdentity implements addons.IdentityProvider.
func (p *IRSAProvider) BindWorkloadIdentity(ctx context.Context, namespace, serviceAccount string) (addons.IdentityRef, error) {
	ref, err := p.roles.EnsureServiceAccountRole(ctx, namespace, serviceAccount)
	if err != nil {
		return addons.IdentityRef{}, fmt.Errorf("failed to ensure role for %s/%s: %w", namespace, serviceAccount, err)
	}
	if err := p.accounts.UpsertServiceAccount(ctx, ref); err != nil {
		return addons.IdentityRef{}, fmt.Errorf("failed to annotate service account %s/%s: %w", namespace, serviceAccount, err)
	}
	return ref, nil
}

var _ addons.IdentityProvider = (*IRSAProvider)(nil)
