package config

import (
	"fmt"
	"net"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/hashicorp/go-multierror"
)

var (
	clusterNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]{0,99}$`)
	regionPattern      = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d$`)
	k8sNamePattern     = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)
)

// ValidTaintEffects contains the taint effects EKS node groups accept.
var ValidTaintEffects = map[string]bool{
	"NoSchedule":       true,
	"PreferNoSchedule": true,
	"NoExecute":        true,
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.ClusterName == "" {
		result = multierror.Append(result, fmt.Errorf("cluster_name is required"))
	} else if !clusterNamePattern.MatchString(c.ClusterName) {
		result = multierror.Append(result, fmt.Errorf("cluster_name %q must start with a letter and contain only letters, digits and hyphens", c.ClusterName))
	}
	if c.Region == "" {
		result = multierror.Append(result, fmt.Errorf("region is required"))
	} else if !regionPattern.MatchString(c.Region) {
		result = multierror.Append(result, fmt.Errorf("region %q is not a valid AWS region", c.Region))
	}

	result = multierror.Append(result, c.validateKubernetes()...)
	result = multierror.Append(result, c.validateNetwork()...)
	result = multierror.Append(result, c.validateNodePool()...)
	result = multierror.Append(result, c.validateGitOps()...)
	result = multierror.Append(result, c.validateAddons()...)

	if c.Archive != "" {
		if bucket, _, _ := strings.Cut(strings.TrimPrefix(c.Archive, "s3://"), "/"); !strings.HasPrefix(c.Archive, "s3://") || bucket == "" {
			result = multierror.Append(result, fmt.Errorf("archive %q must look like s3://bucket/prefix", c.Archive))
		}
	}

	if c.Orchestrator.Concurrency < 1 {
		result = multierror.Append(result, fmt.Errorf("orchestrator.concurrency must be at least 1, got %d", c.Orchestrator.Concurrency))
	}

	return result.ErrorOrNil()
}

func (c *Config) validateKubernetes() []error {
	var errs []error
	v, err := semver.NewVersion(c.Kubernetes.Version)
	if err != nil {
		return append(errs, fmt.Errorf("kubernetes.version %q is not a valid version: %w", c.Kubernetes.Version, err))
	}
	if v.Major() != 1 || v.Minor() < 23 {
		errs = append(errs, fmt.Errorf("kubernetes.version %s is not supported, need 1.23 or newer", v.Original()))
	}
	valid := []string{"api", "audit", "authenticator", "controllerManager", "scheduler"}
	for _, t := range c.Kubernetes.Logging {
		if !slices.Contains(valid, t) {
			errs = append(errs, fmt.Errorf("kubernetes.logging: unknown log type %q", t))
		}
	}
	return errs
}

func (c *Config) validateNetwork() []error {
	var errs []error
	ip, network, err := net.ParseCIDR(c.Network.CIDR)
	if err != nil {
		return append(errs, fmt.Errorf("network.cidr %q is invalid: %w", c.Network.CIDR, err))
	}
	if ip.To4() == nil {
		errs = append(errs, fmt.Errorf("network.cidr %q must be IPv4", c.Network.CIDR))
	}
	if ones, _ := network.Mask.Size(); ones < 16 || ones > 24 {
		errs = append(errs, fmt.Errorf("network.cidr %q must have a prefix between /16 and /24", c.Network.CIDR))
	}
	if len(c.Network.AvailabilityZones) < 2 {
		errs = append(errs, fmt.Errorf("network.availability_zones needs at least 2 zones, got %d", len(c.Network.AvailabilityZones)))
	}
	for _, az := range c.Network.AvailabilityZones {
		if c.Region != "" && !strings.HasPrefix(az, c.Region) {
			errs = append(errs, fmt.Errorf("network.availability_zones: %q is not in region %s", az, c.Region))
		}
	}
	if len(errs) == 0 {
		if _, err := c.Network.SubnetPlan(); err != nil {
			errs = append(errs, fmt.Errorf("network subnet plan: %w", err))
		}
	}
	return errs
}

func (c *Config) validateNodePool() []error {
	var errs []error
	p := c.NodePool
	if !k8sNamePattern.MatchString(p.Name) {
		errs = append(errs, fmt.Errorf("node_pool.name %q is invalid", p.Name))
	}
	if len(p.InstanceTypes) == 0 {
		errs = append(errs, fmt.Errorf("node_pool.instance_types must not be empty"))
	}
	if p.MinSize < 1 {
		errs = append(errs, fmt.Errorf("node_pool.min_size must be at least 1, got %d", p.MinSize))
	}
	if p.MaxSize < p.MinSize {
		errs = append(errs, fmt.Errorf("node_pool.max_size (%d) must not be less than min_size (%d)", p.MaxSize, p.MinSize))
	}
	if p.DesiredSize < p.MinSize || p.DesiredSize > p.MaxSize {
		errs = append(errs, fmt.Errorf("node_pool.desired_size (%d) must be between min_size and max_size", p.DesiredSize))
	}
	for i, t := range p.Taints {
		if t.Key == "" {
			errs = append(errs, fmt.Errorf("node_pool.taints[%d]: key is required", i))
		}
		if !ValidTaintEffects[t.Effect] {
			errs = append(errs, fmt.Errorf("node_pool.taints[%d]: invalid effect %q", i, t.Effect))
		}
	}
	return errs
}

func (c *Config) validateGitOps() []error {
	var errs []error
	if !strings.HasPrefix(c.GitOps.Repository, "https://") && !strings.HasPrefix(c.GitOps.Repository, "ssh://") {
		errs = append(errs, fmt.Errorf("gitops.repository %q must be an https:// or ssh:// URL", c.GitOps.Repository))
	}
	if _, err := time.ParseDuration(c.GitOps.Interval); err != nil {
		errs = append(errs, fmt.Errorf("gitops.interval %q: %w", c.GitOps.Interval, err))
	}
	if c.GitOps.TestRepository != "" && c.Tests.Namespace == "" {
		errs = append(errs, fmt.Errorf("gitops.test_repository requires tests.namespace"))
	}
	if c.GitOps.TestPath != "" && c.GitOps.TestRepository == "" {
		errs = append(errs, fmt.Errorf("gitops.test_path requires gitops.test_repository"))
	}
	if c.Tests.Namespace != "" && !k8sNamePattern.MatchString(c.Tests.Namespace) {
		errs = append(errs, fmt.Errorf("tests.namespace %q is not a valid namespace name", c.Tests.Namespace))
	}
	return errs
}

func (c *Config) validateAddons() []error {
	var errs []error
	for _, name := range sortedKeys(c.Addons) {
		addon := c.Addons[name]
		if !slices.Contains(AddonNames, name) {
			errs = append(errs, fmt.Errorf("addons.%s: unknown add-on", name))
			continue
		}
		if !addon.IsEnabled() {
			continue
		}
		if addon.Namespace == "" {
			errs = append(errs, fmt.Errorf("addons.%s.namespace is required", name))
		} else if !k8sNamePattern.MatchString(addon.Namespace) {
			errs = append(errs, fmt.Errorf("addons.%s.namespace %q is not a valid namespace name", name, addon.Namespace))
		}
		if addon.ChartVersion != "" {
			if _, err := semver.NewVersion(addon.ChartVersion); err != nil {
				errs = append(errs, fmt.Errorf("addons.%s.chart_version %q: %w", name, addon.ChartVersion, err))
			}
		}
		if addon.Version != "" {
			if _, err := semver.NewVersion(addon.Version); err != nil {
				errs = append(errs, fmt.Errorf("addons.%s.version %q: %w", name, addon.Version, err))
			}
		}
		errs = append(errs, validatePolicy(name, addon.Policy)...)
	}

	if c.Addon(AddonKit).IsEnabled() && !c.Addon(AddonFlux).IsEnabled() {
		errs = append(errs, fmt.Errorf("addons.%s requires %s", AddonKit, AddonFlux))
	}
	if c.Addon(AddonPerfdash).IsEnabled() && !c.Addon(AddonFlux).IsEnabled() {
		errs = append(errs, fmt.Errorf("addons.%s requires %s", AddonPerfdash, AddonFlux))
	}
	if c.Addon(AddonTektonTests).IsEnabled() && c.Tests.Namespace == "" {
		errs = append(errs, fmt.Errorf("addons.%s requires tests.namespace", AddonTektonTests))
	}
	return errs
}

func validatePolicy(addon string, p PolicyConfig) []error {
	var errs []error
	if len(p.Statements) > 0 && p.DocumentFile != "" {
		errs = append(errs, fmt.Errorf("addons.%s.policy: statements and document_file are mutually exclusive", addon))
	}
	for i, s := range p.Statements {
		if s.Effect != "" && s.Effect != "Allow" && s.Effect != "Deny" {
			errs = append(errs, fmt.Errorf("addons.%s.policy.statements[%d]: effect must be Allow or Deny", addon, i))
		}
		if len(s.Actions) == 0 {
			errs = append(errs, fmt.Errorf("addons.%s.policy.statements[%d]: actions must not be empty", addon, i))
		}
	}
	for _, arn := range p.ManagedPolicyARNs {
		if !strings.HasPrefix(arn, "arn:") {
			errs = append(errs, fmt.Errorf("addons.%s.policy: %q is not an ARN", addon, arn))
		}
	}
	return errs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
