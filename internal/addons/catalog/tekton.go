package catalog

import (
	"github.com/imamik/kitinfra/internal/addons"
	"github.com/imamik/kitinfra/internal/config"
)

// tektonTestsFallbackNamespace only names the disabled add-on when no test
// namespace is configured.
const tektonTestsFallbackNamespace = "tekton-tests"

// tektonTests gives CI test runs an identity with broad AWS access. Its role
// is also mapped as a node identity so tests can join nodes they launch.
func (c *Catalog) tektonTests(addon config.AddonConfig) (*addons.Builder, error) {
	namespace := addon.Namespace
	if namespace == "" {
		namespace = tektonTestsFallbackNamespace
	}
	sa := c.cfg.Tests.ServiceAccount
	return addons.NewBuilder(config.AddonTektonTests, namespace).
		Identity(sa).
		Permission(sa, policy(addon, tektonTestsPolicy())), nil
}

// TestIdentityRoleARN returns the role of the test service account, or ""
// when the tekton-tests add-on is disabled.
func (c *Catalog) TestIdentityRoleARN() string {
	addon := c.cfg.Addon(config.AddonTektonTests)
	if !addon.IsEnabled() || addon.Namespace == "" {
		return ""
	}
	return c.cluster.RoleARN(addon.Namespace, c.cfg.Tests.ServiceAccount)
}
