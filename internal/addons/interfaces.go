package addons

import (
	"context"
	"time"
)

// IdentityRef is a workload identity bound to a service account.
type IdentityRef struct {
	Namespace      string `json:"namespace"`
	ServiceAccount string `json:"serviceAccount"`
	RoleName       string `json:"roleName"`
	RoleARN        string `json:"roleArn"`
}

// ControlPlane is the cluster API used to create namespaces, apply manifests
// and register identities.
type ControlPlane interface {
	// CreateNamespace creates the namespace if it does not exist.
	CreateNamespace(ctx context.Context, name string, labels map[string]string) error

	// WaitReady blocks until the referenced object is ready or the timeout elapses.
	WaitReady(ctx context.Context, ref ObjectRef, timeout time.Duration) error

	// ApplyManifest applies the objects with server-side apply.
	ApplyManifest(ctx context.Context, namespace string, objects []map[string]any) error

	// UpsertServiceAccount creates or updates the service account of ref,
	// annotated with its role.
	UpsertServiceAccount(ctx context.Context, ref IdentityRef) error

	// RegisterNodeIdentity maps a node role into the cluster's authentication
	// config so nodes using it can join.
	RegisterNodeIdentity(ctx context.Context, roleARN, usernamePattern string, groups []string) error
}

// ChartInstaller installs or upgrades chart releases.
type ChartInstaller interface {
	Install(ctx context.Context, namespace string, release ChartRelease) error
}

// IdentityProvider binds a service account to a cloud identity.
type IdentityProvider interface {
	BindWorkloadIdentity(ctx context.Context, namespace, serviceAccount string) (IdentityRef, error)
}

// PermissionProvider attaches permission sets to identities.
type PermissionProvider interface {
	AttachPolicy(ctx context.Context, identity IdentityRef, policy Policy) error
}
