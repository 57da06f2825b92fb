package catalog

import (
	"github.com/imamik/kitinfra/internal/addons"
	"github.com/imamik/kitinfra/internal/addons/helm"
	"github.com/imamik/kitinfra/internal/config"
)

const loadBalancerServiceAccount = "aws-load-balancer-controller"

func (c *Catalog) loadBalancerController(addon config.AddonConfig) (*addons.Builder, error) {
	values := c.buildLoadBalancerValues(addon)
	return addons.NewBuilder(config.AddonLoadBalancer, addon.Namespace).
		Identity(loadBalancerServiceAccount).
		Permission(loadBalancerServiceAccount, policy(addon, loadBalancerControllerPolicy())).
		Chart("chart", c.chart(addon, "aws-load-balancer-controller", "aws-load-balancer-controller", values),
			deployment(addon.Namespace, "aws-load-balancer-controller")), nil
}

func (c *Catalog) buildLoadBalancerValues(addon config.AddonConfig) helm.Values {
	values := helm.Values{
		"clusterName":    c.cluster.Name,
		"serviceAccount": helm.ExistingServiceAccount(loadBalancerServiceAccount, c.cluster.RoleARN(addon.Namespace, loadBalancerServiceAccount)),
		"clusterSecretsPermissions": helm.Values{
			"allowAllSecrets": true,
		},
		"tolerations": helm.SystemTolerations(),
	}
	if addon.Version != "" {
		values["image"] = helm.Values{"tag": addon.Version}
	}
	return values
}
