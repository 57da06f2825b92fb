package catalog

import (
	"github.com/imamik/kitinfra/internal/addons"
	"github.com/imamik/kitinfra/internal/addons/helm"
	"github.com/imamik/kitinfra/internal/config"
)

const (
	fluxSourceAPIVersion    = "source.toolkit.fluxcd.io/v1beta1"
	fluxKustomizeAPIVersion = "kustomize.toolkit.fluxcd.io/v1beta1"

	// FluxSystemName names the GitRepository and Kustomization that sync the
	// cluster's own configuration.
	FluxSystemName = "flux-system"
)

// fluxComponents are the chart's component keys, each taking its own tolerations.
var fluxComponents = []string{
	"cli",
	"helmcontroller",
	"imageautomationcontroller",
	"imagereflectorcontroller",
	"kustomizecontroller",
	"notificationcontroller",
	"sourcecontroller",
}

// flux installs the controllers and points them at the GitOps repository.
// With a test repository configured, a second source is synced into the
// test namespace, which the tekton-tests add-on creates.
func (c *Catalog) flux(addon config.AddonConfig) (*addons.Builder, error) {
	release := c.waiting(c.chart(addon, "flux2", "flux2", buildFluxValues()))

	b := addons.NewBuilder(config.AddonFlux, addon.Namespace).
		Chart("chart", release,
			crd("gitrepositories.source.toolkit.fluxcd.io"),
			crd("kustomizations.kustomize.toolkit.fluxcd.io")).
		Manifest("sync", c.fluxSyncObjects(addon.Namespace), "chart")

	if test := c.fluxTestObjects(); len(test) > 0 {
		b.DependsOn(config.AddonTektonTests).
			Manifest("test-sync", test, "chart")
	}
	return b, nil
}

func buildFluxValues() helm.Values {
	values := make(helm.Values, len(fluxComponents))
	for _, component := range fluxComponents {
		values[component] = helm.WithTolerations()
	}
	return values
}

func (c *Catalog) fluxSyncObjects(namespace string) []map[string]any {
	gitops := c.cfg.GitOps
	return []map[string]any{
		gitRepository(FluxSystemName, namespace, gitops.Repository, gitops.Branch, gitops.Interval),
		kustomization(FluxSystemName, namespace, gitops.Path, gitops.Interval, sourceRef(FluxSystemName, "")),
	}
}

// fluxTestObjects returns the test source and its Kustomization, named after
// the test namespace they live in. Either may be absent.
func (c *Catalog) fluxTestObjects() []map[string]any {
	gitops, ns := c.cfg.GitOps, c.cfg.Tests.Namespace
	var objects []map[string]any
	if gitops.TestRepository != "" {
		objects = append(objects, gitRepository(ns, ns, gitops.TestRepository, gitops.TestBranch, gitops.Interval))
	}
	if gitops.TestPath != "" {
		objects = append(objects, kustomization(ns, ns, gitops.TestPath, gitops.Interval, sourceRef(ns, "")))
	}
	return objects
}

func gitRepository(name, namespace, url, branch, interval string) map[string]any {
	return map[string]any{
		"apiVersion": fluxSourceAPIVersion,
		"kind":       "GitRepository",
		"metadata":   map[string]any{"name": name, "namespace": namespace},
		"spec": map[string]any{
			"interval": interval,
			"ref":      map[string]any{"branch": branch},
			"url":      url,
		},
	}
}

func kustomization(name, namespace, path, interval string, source map[string]any) map[string]any {
	return map[string]any{
		"apiVersion": fluxKustomizeAPIVersion,
		"kind":       "Kustomization",
		"metadata":   map[string]any{"name": name, "namespace": namespace},
		"spec": map[string]any{
			"interval":   interval,
			"path":       path,
			"prune":      true,
			"sourceRef":  source,
			"validation": "client",
		},
	}
}

func sourceRef(name, namespace string) map[string]any {
	ref := map[string]any{"kind": "GitRepository", "name": name}
	if namespace != "" {
		ref["namespace"] = namespace
	}
	return ref
}
