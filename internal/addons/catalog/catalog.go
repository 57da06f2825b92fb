package catalog

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/imamik/kitinfra/internal/addons"
	"github.com/imamik/kitinfra/internal/addons/helm"
	"github.com/imamik/kitinfra/internal/config"
	"github.com/imamik/kitinfra/internal/util/labels"
	"github.com/imamik/kitinfra/internal/util/naming"
)

// ClusterInfo describes the cluster add-ons are installed into.
type ClusterInfo struct {
	Name      string
	Region    string
	Endpoint  string
	AccountID string

	// Partition defaults to "aws".
	Partition string
}

// RoleARN returns the ARN of the IAM role the service account assumes. It
// matches the role the identity provider creates.
func (c ClusterInfo) RoleARN(namespace, serviceAccount string) string {
	partition := c.Partition
	if partition == "" {
		partition = "aws"
	}
	return fmt.Sprintf("arn:%s:iam::%s:role/%s", partition, c.AccountID, naming.ServiceAccountRole(c.Name, namespace, serviceAccount))
}

// Catalog builds add-on specs from configuration.
type Catalog struct {
	cfg          *config.Config
	cluster      ClusterInfo
	chartTimeout time.Duration
}

// New creates a Catalog. chartTimeout bounds chart installs that wait for
// their resources; zero uses the installer default.
func New(cfg *config.Config, cluster ClusterInfo, chartTimeout time.Duration) *Catalog {
	return &Catalog{cfg: cfg, cluster: cluster, chartTimeout: chartTimeout}
}

type builderFunc func(c *Catalog, addon config.AddonConfig) (*addons.Builder, error)

var builders = map[string]builderFunc{
	config.AddonEBSCSIDriver: (*Catalog).ebsCSIDriver,
	config.AddonFlux:         (*Catalog).flux,
	config.AddonLoadBalancer: (*Catalog).loadBalancerController,
	config.AddonKarpenter:    (*Catalog).karpenter,
	config.AddonKit:          (*Catalog).kit,
	config.AddonFluentBit:    (*Catalog).fluentBit,
	config.AddonCrossplane:   (*Catalog).crossplane,
	config.AddonPerfdash:     (*Catalog).perfdash,
	config.AddonTektonTests:  (*Catalog).tektonTests,
}

// Specs returns a spec for every known add-on in declaration order,
// disabled ones included so dependencies on them resolve.
func (c *Catalog) Specs() ([]*addons.AddonSpec, error) {
	var errs *multierror.Error
	specs := make([]*addons.AddonSpec, 0, len(config.AddonNames))
	for _, name := range config.AddonNames {
		spec, err := c.Spec(name)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		specs = append(specs, spec)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return specs, nil
}

// Spec builds the spec of one add-on.
func (c *Catalog) Spec(name string) (*addons.AddonSpec, error) {
	build, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown add-on %q", name)
	}
	addon := c.cfg.Addon(name)
	b, err := build(c, addon)
	if err != nil {
		return nil, fmt.Errorf("failed to build add-on %s: %w", name, err)
	}
	b.Enabled(addon.IsEnabled()).
		Labels(labels.NewLabelBuilder(c.cluster.Name).WithAddon(name).Build())
	return b.Build()
}

// chart returns a release of the add-on's configured chart with values
// merged under the configured overrides.
func (c *Catalog) chart(addon config.AddonConfig, release, chart string, values helm.Values) addons.ChartRelease {
	merged := helm.DeepMerge(values, helm.Values(addon.Values))
	return addons.ChartRelease{
		Release:    release,
		Chart:      chart,
		Repository: addon.Repository,
		Version:    addon.ChartVersion,
		Values:     merged.Plain(),
	}
}

// waiting makes the installer block on the release's resources.
func (c *Catalog) waiting(rel addons.ChartRelease) addons.ChartRelease {
	rel.Wait = true
	rel.Timeout = c.chartTimeout
	return rel
}

// policy returns the configured policy when one is set, otherwise def.
func policy(addon config.AddonConfig, def addons.Policy) addons.Policy {
	if !addon.Policy.IsSet() {
		return def
	}
	p := addons.Policy{
		Document:          addon.Policy.Document,
		ManagedPolicyARNs: append([]string(nil), addon.Policy.ManagedPolicyARNs...),
	}
	for _, s := range addon.Policy.Statements {
		st := addons.Statement{
			Effect:    s.Effect,
			Actions:   append([]string(nil), s.Actions...),
			Resources: append([]string(nil), s.Resources...),
		}
		if st.Effect == "" {
			st.Effect = "Allow"
		}
		if len(st.Resources) == 0 {
			st.Resources = []string{"*"}
		}
		p.Statements = append(p.Statements, st)
	}
	return p
}

func deployment(namespace, name string) addons.ObjectRef {
	return addons.ObjectRef{APIVersion: "apps/v1", Kind: "Deployment", Namespace: namespace, Name: name}
}

func daemonSet(namespace, name string) addons.ObjectRef {
	return addons.ObjectRef{APIVersion: "apps/v1", Kind: "DaemonSet", Namespace: namespace, Name: name}
}

func crd(name string) addons.ObjectRef {
	return addons.ObjectRef{APIVersion: "apiextensions.k8s.io/v1", Kind: "CustomResourceDefinition", Name: name}
}

// manifestTolerations returns the system tolerations in the JSON-compatible
// form manifest objects use.
func manifestTolerations() []any {
	tolerations := helm.SystemTolerations()
	out := make([]any, 0, len(tolerations))
	for _, t := range tolerations {
		out = append(out, t.Plain())
	}
	return out
}
