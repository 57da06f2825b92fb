package catalog

import (
	"github.com/imamik/kitinfra/internal/addons"
	"github.com/imamik/kitinfra/internal/addons/helm"
	"github.com/imamik/kitinfra/internal/config"
)

const (
	crossplaneServiceAccount = "crossplane-aws-irsa"
	crossplaneControllerName = "aws-config"

	// CrossplaneAWSProviderPackage is the provider installed next to Crossplane.
	CrossplaneAWSProviderPackage = "crossplane/provider-aws:v0.15.0"
)

// crossplane installs the chart and then the AWS provider. The provider
// pods run under the ControllerConfig, which carries the role annotation.
func (c *Catalog) crossplane(addon config.AddonConfig) (*addons.Builder, error) {
	values := helm.Values{
		"tolerations": helm.SystemTolerations(),
		"rbacManager": helm.WithTolerations(),
	}
	release := c.waiting(c.chart(addon, "crossplane", "crossplane", values))

	return addons.NewBuilder(config.AddonCrossplane, addon.Namespace).
		Identity(crossplaneServiceAccount).
		Permission(crossplaneServiceAccount, policy(addon, crossplanePolicy())).
		Chart("chart", release,
			deployment(addon.Namespace, "crossplane"),
			crd("controllerconfigs.pkg.crossplane.io"),
			crd("providers.pkg.crossplane.io")).
		Manifest("controller-config", []map[string]any{c.crossplaneControllerConfig(addon)}, "chart").
		Manifest("provider", []map[string]any{crossplaneProvider()}, "chart", "controller-config"), nil
}

func (c *Catalog) crossplaneControllerConfig(addon config.AddonConfig) map[string]any {
	return map[string]any{
		"apiVersion": "pkg.crossplane.io/v1alpha1",
		"kind":       "ControllerConfig",
		"metadata": map[string]any{
			"name": crossplaneControllerName,
			"annotations": map[string]any{
				helm.RoleARNAnnotation: c.cluster.RoleARN(addon.Namespace, crossplaneServiceAccount),
			},
		},
		"spec": map[string]any{
			"podSecurityContext": map[string]any{"fsGroup": int64(2000)},
			"tolerations":        manifestTolerations(),
		},
	}
}

func crossplaneProvider() map[string]any {
	return map[string]any{
		"apiVersion": "pkg.crossplane.io/v1",
		"kind":       "Provider",
		"metadata":   map[string]any{"name": "provider-aws"},
		"spec": map[string]any{
			"package":             CrossplaneAWSProviderPackage,
			"controllerConfigRef": map[string]any{"name": crossplaneControllerName},
		},
	}
}
