package catalog

import (
	"github.com/imamik/kitinfra/internal/addons"
	"github.com/imamik/kitinfra/internal/addons/helm"
	"github.com/imamik/kitinfra/internal/config"
	"github.com/imamik/kitinfra/internal/util/naming"
)

const karpenterServiceAccount = "karpenter"

// karpenter launches nodes with the instance profile of the worker role,
// which the bootstrap creates next to the node group.
func (c *Catalog) karpenter(addon config.AddonConfig) (*addons.Builder, error) {
	values := c.buildKarpenterValues()
	release := c.waiting(c.chart(addon, "karpenter", "karpenter", values))
	return addons.NewBuilder(config.AddonKarpenter, addon.Namespace).
		Identity(karpenterServiceAccount).
		Permission(karpenterServiceAccount, policy(addon, karpenterPolicy())).
		Chart("chart", release, deployment(addon.Namespace, "karpenter")), nil
}

func (c *Catalog) buildKarpenterValues() helm.Values {
	return helm.Values{
		"clusterName":     c.cluster.Name,
		"clusterEndpoint": c.cluster.Endpoint,
		"aws": helm.Values{
			"defaultInstanceProfile": naming.KarpenterInstanceProfile(c.cluster.Name),
		},
		"serviceAccount": helm.ExistingServiceAccount(karpenterServiceAccount, ""),
		"tolerations":    helm.SystemTolerations(),
	}
}
