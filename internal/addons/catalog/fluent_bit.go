package catalog

import (
	"github.com/imamik/kitinfra/internal/addons"
	"github.com/imamik/kitinfra/internal/addons/helm"
	"github.com/imamik/kitinfra/internal/config"
)

const (
	fluentBitServiceAccount = "aws-fluent-bit"
	fluentBitRelease        = "aws-fluent-bit"

	// fluentBitLogRetentionDays is how long CloudWatch keeps shipped logs.
	fluentBitLogRetentionDays = "90"
)

func (c *Catalog) fluentBit(addon config.AddonConfig) (*addons.Builder, error) {
	values := c.buildFluentBitValues()
	return addons.NewBuilder(config.AddonFluentBit, addon.Namespace).
		Identity(fluentBitServiceAccount).
		Permission(fluentBitServiceAccount, policy(addon, addons.Policy{ManagedPolicyARNs: []string{cloudWatchAgentPolicyARN}})).
		Chart("chart", c.chart(addon, fluentBitRelease, "aws-for-fluent-bit", values),
			daemonSet(addon.Namespace, fluentBitRelease+"-aws-for-fluent-bit")), nil
}

// buildFluentBitValues ships to CloudWatch only.
func (c *Catalog) buildFluentBitValues() helm.Values {
	return helm.Values{
		"serviceAccount": helm.ExistingServiceAccount(fluentBitServiceAccount, ""),
		"cloudWatch": helm.Values{
			"region":           c.cluster.Region,
			"logRetentionDays": fluentBitLogRetentionDays,
		},
		"firehose":      helm.Values{"enabled": false},
		"kinesis":       helm.Values{"enabled": false},
		"elasticsearch": helm.Values{"enabled": false},
		"tolerations":   helm.SystemTolerations(),
	}
}
