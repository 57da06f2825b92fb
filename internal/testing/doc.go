// Package testing provides test utilities and shared mocks for unit tests.
//
// The mocks implement the collaborator interfaces of the addons package
// with testify/mock:
//   - MockControlPlane
//   - MockChartInstaller
//   - MockIdentityProvider and MockPermissionProvider
//
// The New* constructors return mocks where every call succeeds; register
// more specific expectations on a bare struct value instead.
//
// Usage:
//
//	cp := testing.NewMockControlPlane()
//	charts := (&testing.MockChartInstaller{}).WithFailingRelease("gitops", errBoom).Succeeding()
package testing
