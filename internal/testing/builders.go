package testing

import (
	"maps"

	"github.com/imamik/kitinfra/internal/config"
)

// ConfigBuilder provides a fluent interface for constructing test configs.
// Each method returns a new builder (immutable) for chaining.
type ConfigBuilder struct {
	cfg config.Config
}

// NewConfigBuilder creates a new ConfigBuilder with sensible defaults.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		cfg: config.Config{
			ClusterName: "test-cluster",
			Region:      "us-west-2",
			Kubernetes: config.KubernetesConfig{
				Version: "1.30",
			},
		},
	}
}

// WithClusterName sets the cluster name.
func (b *ConfigBuilder) WithClusterName(name string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.ClusterName = name
	return newBuilder
}

// WithRegion sets the AWS region.
func (b *ConfigBuilder) WithRegion(region string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Region = region
	return newBuilder
}

// WithAddon enables or disables an add-on.
func (b *ConfigBuilder) WithAddon(name string, enabled bool) *ConfigBuilder {
	newBuilder := b.clone()
	addon := newBuilder.cfg.Addons[name]
	addon.Enabled = &enabled
	newBuilder.cfg.Addons[name] = addon
	return newBuilder
}

// WithAddonNamespace overrides the namespace of an add-on.
func (b *ConfigBuilder) WithAddonNamespace(name, namespace string) *ConfigBuilder {
	newBuilder := b.clone()
	addon := newBuilder.cfg.Addons[name]
	addon.Namespace = namespace
	newBuilder.cfg.Addons[name] = addon
	return newBuilder
}

// WithGitOps points Flux at a repository.
func (b *ConfigBuilder) WithGitOps(repository string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.GitOps.Repository = repository
	return newBuilder
}

// WithTestsNamespace sets the namespace CI test runs use.
func (b *ConfigBuilder) WithTestsNamespace(namespace string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Tests.Namespace = namespace
	return newBuilder
}

// Build returns the constructed config with defaults applied.
func (b *ConfigBuilder) Build() *config.Config {
	cfg := b.clone().cfg
	cfg.ApplyDefaults()
	return &cfg
}

// clone creates a deep copy of the builder for immutability.
func (b *ConfigBuilder) clone() *ConfigBuilder {
	newCfg := b.cfg
	newCfg.Tags = cloneStringMap(b.cfg.Tags)
	newCfg.Network.AvailabilityZones = cloneStringSlice(b.cfg.Network.AvailabilityZones)
	newCfg.Kubernetes.Logging = cloneStringSlice(b.cfg.Kubernetes.Logging)
	newCfg.NodePool.InstanceTypes = cloneStringSlice(b.cfg.NodePool.InstanceTypes)
	newCfg.NodePool.Labels = cloneStringMap(b.cfg.NodePool.Labels)
	newCfg.Addons = make(map[string]config.AddonConfig, len(b.cfg.Addons))
	for name, addon := range b.cfg.Addons {
		newCfg.Addons[name] = cloneAddon(addon)
	}
	return &ConfigBuilder{cfg: newCfg}
}

// cloneAddon copies the pointer and slice fields of an add-on override.
// Values is shared; builders never write into it.
func cloneAddon(a config.AddonConfig) config.AddonConfig {
	cloned := a
	if a.Enabled != nil {
		enabled := *a.Enabled
		cloned.Enabled = &enabled
	}
	cloned.Policy.ManagedPolicyARNs = cloneStringSlice(a.Policy.ManagedPolicyARNs)
	return cloned
}

// cloneStringMap creates a deep copy of a string map.
func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cloned := make(map[string]string, len(m))
	maps.Copy(cloned, m)
	return cloned
}

// cloneStringSlice creates a copy of a string slice.
func cloneStringSlice(s []string) []string {
	if s == nil {
		return nil
	}
	cloned := make([]string, len(s))
	copy(cloned, s)
	return cloned
}

// MinimalConfig returns a config with only the default add-ons enabled.
func MinimalConfig() *config.Config {
	return NewConfigBuilder().Build()
}

// FullConfig returns a config with every add-on enabled.
func FullConfig() *config.Config {
	b := NewConfigBuilder().
		WithGitOps("https://github.com/example/fleet").
		WithTestsNamespace("tekton-tests")
	for _, name := range config.AddonNames {
		b = b.WithAddon(name, true)
	}
	return b.Build()
}
