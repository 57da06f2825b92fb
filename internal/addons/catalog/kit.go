package catalog

import (
	"github.com/imamik/kitinfra/internal/addons"
	"github.com/imamik/kitinfra/internal/addons/helm"
	"github.com/imamik/kitinfra/internal/config"
)

func (c *Catalog) kit(addon config.AddonConfig) (*addons.Builder, error) {
	values := helm.Values{"tolerations": helm.SystemTolerations()}
	if addon.Version != "" {
		values["image"] = helm.Values{"tag": addon.Version}
	}
	return addons.NewBuilder(config.AddonKit, addon.Namespace).
		DependsOn(config.AddonFlux).
		Chart("chart", c.chart(addon, "kit-operator", "kit-operator", values)), nil
}
