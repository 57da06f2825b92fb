package testing

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/imamik/kitinfra/internal/addons"
)

// MockControlPlane is a mock implementation of addons.ControlPlane.
type MockControlPlane struct {
	mock.Mock
}

// CreateNamespace records the call.
func (m *MockControlPlane) CreateNamespace(ctx context.Context, name string, labels map[string]string) error {
	args := m.Called(ctx, name, labels)
	return args.Error(0)
}

// WaitReady records the call.
func (m *MockControlPlane) WaitReady(ctx context.Context, ref addons.ObjectRef, timeout time.Duration) error {
	args := m.Called(ctx, ref, timeout)
	return args.Error(0)
}

// ApplyManifest records the call.
func (m *MockControlPlane) ApplyManifest(ctx context.Context, namespace string, objects []map[string]any) error {
	args := m.Called(ctx, namespace, objects)
	return args.Error(0)
}

// UpsertServiceAccount records the call.
func (m *MockControlPlane) UpsertServiceAccount(ctx context.Context, ref addons.IdentityRef) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

// RegisterNodeIdentity records the call.
func (m *MockControlPlane) RegisterNodeIdentity(ctx context.Context, roleARN, usernamePattern string, groups []string) error {
	args := m.Called(ctx, roleARN, usernamePattern, groups)
	return args.Error(0)
}

// NewMockControlPlane creates a MockControlPlane where every call succeeds.
func NewMockControlPlane() *MockControlPlane {
	m := &MockControlPlane{}
	m.On("CreateNamespace", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("WaitReady", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("ApplyManifest", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("UpsertServiceAccount", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("RegisterNodeIdentity", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}

// MockChartInstaller is a mock implementation of addons.ChartInstaller.
type MockChartInstaller struct {
	mock.Mock
}

// Install records the call.
func (m *MockChartInstaller) Install(ctx context.Context, namespace string, release addons.ChartRelease) error {
	args := m.Called(ctx, namespace, release)
	if fn, ok := args.Get(0).(func(context.Context, string, addons.ChartRelease) error); ok {
		return fn(ctx, namespace, release)
	}
	return args.Error(0)
}

// NewMockChartInstaller creates a MockChartInstaller where every install succeeds.
func NewMockChartInstaller() *MockChartInstaller {
	return (&MockChartInstaller{}).Succeeding()
}

// WithFailingRelease makes installs of release fail with err. Expectations
// match in registration order, so call it before Succeeding.
func (m *MockChartInstaller) WithFailingRelease(release string, err error) *MockChartInstaller {
	m.On("Install", mock.Anything, mock.Anything, mock.MatchedBy(func(r addons.ChartRelease) bool {
		return r.Release == release
	})).Return(err)
	return m
}

// Succeeding makes every install without a more specific expectation succeed.
func (m *MockChartInstaller) Succeeding() *MockChartInstaller {
	m.On("Install", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}

// MockIdentityProvider is a mock implementation of addons.IdentityProvider.
type MockIdentityProvider struct {
	mock.Mock
}

// BindWorkloadIdentity records the call.
func (m *MockIdentityProvider) BindWorkloadIdentity(ctx context.Context, namespace, serviceAccount string) (addons.IdentityRef, error) {
	args := m.Called(ctx, namespace, serviceAccount)
	if fn, ok := args.Get(0).(func(context.Context, string, string) addons.IdentityRef); ok {
		return fn(ctx, namespace, serviceAccount), args.Error(1)
	}
	return args.Get(0).(addons.IdentityRef), args.Error(1)
}

// NewMockIdentityProvider creates a MockIdentityProvider that derives a role
// from the namespace and service account.
func NewMockIdentityProvider() *MockIdentityProvider {
	m := &MockIdentityProvider{}
	m.On("BindWorkloadIdentity", mock.Anything, mock.Anything, mock.Anything).
		Return(func(_ context.Context, ns, sa string) addons.IdentityRef {
			return FakeIdentity(ns, sa)
		}, nil).Maybe()
	return m
}

// MockPermissionProvider is a mock implementation of addons.PermissionProvider.
type MockPermissionProvider struct {
	mock.Mock
}

// AttachPolicy records the call.
func (m *MockPermissionProvider) AttachPolicy(ctx context.Context, identity addons.IdentityRef, policy addons.Policy) error {
	args := m.Called(ctx, identity, policy)
	return args.Error(0)
}

// NewMockPermissionProvider creates a MockPermissionProvider where every attach succeeds.
func NewMockPermissionProvider() *MockPermissionProvider {
	m := &MockPermissionProvider{}
	m.On("AttachPolicy", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}

// FakeIdentity returns the identity the default MockIdentityProvider binds.
func FakeIdentity(namespace, serviceAccount string) addons.IdentityRef {
	name := namespace + "-" + serviceAccount
	return addons.IdentityRef{
		Namespace:      namespace,
		ServiceAccount: serviceAccount,
		RoleName:       name,
		RoleARN:        "arn:aws:iam::123456789012:role/" + name,
	}
}
