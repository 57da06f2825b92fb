// Package identity binds add-on service accounts to cloud identities and
// attaches their permission sets.
package identity

import (
	"context"
	"sync"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kitinfra/internal/addons"
)

const (
	providerIdentity   = "identity"
	providerPermission = "permission"
)

// Binder performs the two halves of an identity binding. It never retries;
// a failed call surfaces as *addons.ExternalCallError.
type Binder struct {
	identities  addons.IdentityProvider
	permissions addons.PermissionProvider
}

// NewBinder creates a Binder over the given providers.
func NewBinder(identities addons.IdentityProvider, permissions addons.PermissionProvider) *Binder {
	return &Binder{identities: identities, permissions: permissions}
}

// Bind creates the identity for workload in namespace and attaches policy.
// The two steps are not transactional: if the attach fails, the identity
// stays bound.
func (b *Binder) Bind(ctx context.Context, namespace, workload string, policy addons.Policy) (addons.IdentityRef, error) {
	ref, err := b.BindIdentity(ctx, namespace, workload)
	if err != nil {
		return addons.IdentityRef{}, err
	}
	if err := b.AttachPermissions(ctx, ref, policy); err != nil {
		return ref, err
	}
	return ref, nil
}

// BindIdentity performs the identity half of Bind.
func (b *Binder) BindIdentity(ctx context.Context, namespace, serviceAccount string) (addons.IdentityRef, error) {
	logger := log.FromContext(ctx).WithValues("namespace", namespace, "serviceAccount", serviceAccount)
	logger.V(1).Info("binding workload identity")

	ref, err := b.identities.BindWorkloadIdentity(ctx, namespace, serviceAccount)
	if err != nil {
		return addons.IdentityRef{}, addons.NewExternalCallError(providerIdentity, "bind-workload-identity", err)
	}
	logger.Info("bound workload identity", "role", ref.RoleARN)
	return ref, nil
}

// AttachPermissions performs the permission half of Bind.
func (b *Binder) AttachPermissions(ctx context.Context, ref addons.IdentityRef, policy addons.Policy) error {
	logger := log.FromContext(ctx).WithValues("role", ref.RoleName, "policy", policy.Name)
	if err := b.permissions.AttachPolicy(ctx, ref, policy); err != nil {
		return addons.NewExternalCallError(providerPermission, "attach-policy", err)
	}
	logger.Info("attached permissions",
		"statements", len(policy.Statements),
		"managed", len(policy.ManagedPolicyARNs),
		"document", policy.Document != "")
	return nil
}

// Registry records bound identities by node so Permission nodes can find
// the identity they target. It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	refs map[addons.NodeID]addons.IdentityRef
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{refs: make(map[addons.NodeID]addons.IdentityRef)}
}

// Put stores the identity bound by node id.
func (r *Registry) Put(id addons.NodeID, ref addons.IdentityRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs[id] = ref
}

// Get returns the identity bound by node id.
func (r *Registry) Get(id addons.NodeID) (addons.IdentityRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.refs[id]
	return ref, ok
}

// Len returns the number of recorded identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.refs)
}
