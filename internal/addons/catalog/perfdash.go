package catalog

import (
	"fmt"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/imamik/kitinfra/internal/addons"
	"github.com/imamik/kitinfra/internal/config"
)

const (
	perfdashServiceAccount = "perfdash-log-fetcher"
	perfdashDeployment     = "perfdash"
	perfdashInterval       = "5m0s"
)

// perfdash is delivered by Flux from the GitOps repository. The
// Kustomization patches the role of the log fetcher into the deployment.
func (c *Catalog) perfdash(addon config.AddonConfig) (*addons.Builder, error) {
	sync, err := c.perfdashKustomization(addon.Namespace)
	if err != nil {
		return nil, err
	}
	return addons.NewBuilder(config.AddonPerfdash, addon.Namespace).
		DependsOn(config.AddonFlux).
		Identity(perfdashServiceAccount).
		Permission(perfdashServiceAccount, policy(addon, perfdashPolicy())).
		Manifest("sync", []map[string]any{sync}), nil
}

func (c *Catalog) perfdashKustomization(namespace string) (map[string]any, error) {
	patch, err := yaml.Marshal(map[string]any{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata":   map[string]any{"name": perfdashDeployment, "namespace": namespace},
		"spec": map[string]any{"template": map[string]any{"spec": map[string]any{
			"containers": []any{map[string]any{
				"name": perfdashDeployment,
				"env": []any{map[string]any{
					"name":  "AWS_ROLE_ARN",
					"value": c.cluster.RoleARN(namespace, perfdashServiceAccount),
				}},
			}},
		}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode perfdash patch: %w", err)
	}

	fluxNamespace := c.cfg.Addon(config.AddonFlux).Namespace
	obj := kustomization("flux-addon-perfdash", namespace,
		strings.TrimSuffix(c.cfg.GitOps.Path, "/")+"/perfdash",
		perfdashInterval,
		sourceRef(FluxSystemName, fluxNamespace))

	spec := obj["spec"].(map[string]any)
	spec["patches"] = []any{map[string]any{
		"target": map[string]any{"kind": "Deployment", "name": perfdashDeployment, "namespace": namespace},
		"patch":  string(patch),
	}}
	return obj, nil
}
