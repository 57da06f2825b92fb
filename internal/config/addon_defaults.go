package config

// Add-on names accepted under the addons key.
const (
	AddonEBSCSIDriver = "aws-ebs-csi-driver"
	AddonFlux         = "flux"
	AddonLoadBalancer = "aws-load-balancer-controller"
	AddonKarpenter    = "karpenter"
	AddonKit          = "kit"
	AddonFluentBit    = "aws-for-fluent-bit"
	AddonCrossplane   = "crossplane"
	AddonPerfdash     = "perfdash"
	AddonTektonTests  = "tekton-tests"
)

// AddonNames lists every known add-on in declaration order.
var AddonNames = []string{
	AddonEBSCSIDriver,
	AddonFlux,
	AddonLoadBalancer,
	AddonKarpenter,
	AddonKit,
	AddonFluentBit,
	AddonCrossplane,
	AddonPerfdash,
	AddonTektonTests,
}

// DefaultAddons returns the built-in settings of every add-on. tekton-tests
// has no entry: it follows tests.namespace.
func DefaultAddons() map[string]AddonConfig {
	return map[string]AddonConfig{
		AddonEBSCSIDriver: {
			Enabled:      boolPtr(true),
			Version:      "v1.9.0",
			ChartVersion: "2.8.1",
			Repository:   "https://kubernetes-sigs.github.io/aws-ebs-csi-driver",
			Namespace:    "aws-ebs-csi-driver",
		},
		AddonFlux: {
			Enabled:      boolPtr(true),
			ChartVersion: "1.0.0",
			Repository:   "https://fluxcd-community.github.io/helm-charts",
			Namespace:    "flux-system",
		},
		AddonLoadBalancer: {
			Enabled:      boolPtr(true),
			Version:      "v2.4.2",
			ChartVersion: "1.4.3",
			Repository:   "https://aws.github.io/eks-charts",
			Namespace:    "aws-load-balancer-controller",
		},
		AddonKarpenter: {
			Enabled:      boolPtr(true),
			ChartVersion: "0.16.1",
			Repository:   "https://charts.karpenter.sh",
			Namespace:    "karpenter",
		},
		AddonKit: {
			Enabled:      boolPtr(true),
			Version:      "v0.0.18",
			ChartVersion: "0.0.18",
			Repository:   "https://awslabs.github.io/kubernetes-iteration-toolkit",
			Namespace:    "kit",
		},
		AddonFluentBit: {
			Enabled:      boolPtr(false),
			ChartVersion: "0.1.18",
			Repository:   "https://aws.github.io/eks-charts",
			Namespace:    "aws-for-fluent-bit",
		},
		AddonCrossplane: {
			Enabled:      boolPtr(false),
			ChartVersion: "1.9.0",
			Repository:   "https://charts.crossplane.io/stable",
			Namespace:    "crossplane-system",
		},
		AddonPerfdash: {
			Enabled:   boolPtr(false),
			Namespace: "perfdash",
		},
	}
}

// applyAddonDefaults fills every known add-on from the built-in table. Fields
// set in the file win. Enabled is resolved here exactly once.
func (c *Config) applyAddonDefaults() {
	if c.Addons == nil {
		c.Addons = make(map[string]AddonConfig, len(AddonNames))
	}
	defaults := DefaultAddons()
	for _, name := range AddonNames {
		cfg := c.Addons[name]
		def := defaults[name]

		if cfg.Enabled == nil {
			switch {
			case name == AddonTektonTests:
				cfg.Enabled = boolPtr(c.Tests.Namespace != "")
			case def.Enabled != nil:
				cfg.Enabled = boolPtr(*def.Enabled)
			default:
				cfg.Enabled = boolPtr(false)
			}
		}
		if cfg.Version == "" {
			cfg.Version = def.Version
		}
		if cfg.ChartVersion == "" {
			cfg.ChartVersion = def.ChartVersion
		}
		if cfg.Repository == "" {
			cfg.Repository = def.Repository
		}
		if cfg.Namespace == "" {
			cfg.Namespace = def.Namespace
		}
		if name == AddonTektonTests && cfg.Namespace == "" {
			cfg.Namespace = c.Tests.Namespace
		}
		c.Addons[name] = cfg
	}
}

func boolPtr(b bool) *bool {
	return &b
}
