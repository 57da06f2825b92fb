package catalog

import (
	"github.com/imamik/kitinfra/internal/addons"
	"github.com/imamik/kitinfra/internal/addons/helm"
	"github.com/imamik/kitinfra/internal/config"
)

const ebsCSIServiceAccount = "aws-ebs-csi-driver"

func (c *Catalog) ebsCSIDriver(addon config.AddonConfig) (*addons.Builder, error) {
	values := c.buildEBSCSIDriverValues(addon)
	return addons.NewBuilder(config.AddonEBSCSIDriver, addon.Namespace).
		Identity(ebsCSIServiceAccount).
		Permission(ebsCSIServiceAccount, policy(addon, addons.Policy{ManagedPolicyARNs: []string{ebsCSIDriverPolicyARN}})).
		Chart("chart", c.chart(addon, "aws-ebs-csi-driver", "aws-ebs-csi-driver", values),
			deployment(addon.Namespace, "ebs-csi-controller")), nil
}

// buildEBSCSIDriverValues runs a single controller replica on the system
// pool under the pre-created service account.
func (c *Catalog) buildEBSCSIDriverValues(addon config.AddonConfig) helm.Values {
	values := helm.Values{
		"controller": helm.Values{
			"replicaCount":   1,
			"serviceAccount": helm.ExistingServiceAccount(ebsCSIServiceAccount, c.cluster.RoleARN(addon.Namespace, ebsCSIServiceAccount)),
			"tolerations":    helm.SystemTolerations(),
		},
		"tolerations": helm.SystemTolerations(),
	}
	if addon.Version != "" {
		values["image"] = helm.Values{"tag": addon.Version}
	}
	return values
}
