package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// LoadFile reads and parses the configuration from a YAML file. Policy
// document paths are resolved relative to the file.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes, defaults and validates configuration bytes.
func Parse(data []byte, baseDir string) (*Config, error) {
	var rawConfig map[string]interface{}
	if err := yaml.Unmarshal(data, &rawConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	cfg, err := decode(rawConfig)
	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()

	if err := cfg.loadPolicyDocuments(baseDir); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// decode maps the raw YAML onto Config. Weak typing turns the string toggles
// "true" and "false" into booleans; unknown keys are rejected.
func decode(raw map[string]interface{}) (*Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields. It is idempotent.
func (c *Config) ApplyDefaults() {
	if c.KubeconfigPath == "" {
		c.KubeconfigPath = "./kubeconfig"
	}

	if c.Kubernetes.Version == "" {
		c.Kubernetes.Version = DefaultKubernetesVersion
	}
	if len(c.Kubernetes.Logging) == 0 {
		c.Kubernetes.Logging = []string{"api", "audit", "authenticator"}
	}
	if c.Kubernetes.PublicAccess == nil {
		c.Kubernetes.PublicAccess = boolPtr(true)
	}

	if c.Network.CIDR == "" {
		c.Network.CIDR = "10.0.0.0/16"
	}
	if c.Network.SubnetBits == 0 {
		c.Network.SubnetBits = 4
	}
	if len(c.Network.AvailabilityZones) == 0 && c.Region != "" {
		c.Network.AvailabilityZones = []string{c.Region + "a", c.Region + "b", c.Region + "c"}
	}
	if c.Network.NATGateway == nil {
		c.Network.NATGateway = boolPtr(true)
	}

	c.applyNodePoolDefaults()

	if c.GitOps.Repository == "" {
		c.GitOps.Repository = DefaultGitOpsRepository
	}
	if c.GitOps.Branch == "" {
		c.GitOps.Branch = "main"
	}
	if c.GitOps.Path == "" {
		c.GitOps.Path = DefaultGitOpsPath
	}
	if c.GitOps.Interval == "" {
		c.GitOps.Interval = "2m0s"
	}
	if c.GitOps.TestRepository != "" && c.GitOps.TestBranch == "" {
		c.GitOps.TestBranch = "main"
	}

	if c.Tests.Namespace != "" && c.Tests.ServiceAccount == "" {
		c.Tests.ServiceAccount = "tekton"
	}

	if c.Orchestrator.Concurrency == 0 {
		c.Orchestrator.Concurrency = 1
	}

	c.applyAddonDefaults()
}

func (c *Config) applyNodePoolDefaults() {
	p := &c.NodePool
	if p.Name == "" {
		p.Name = "system"
	}
	if len(p.InstanceTypes) == 0 {
		p.InstanceTypes = []string{
			"m5.large", "m5a.large", "m6i.large", "m6a.large",
			"t3.large", "t3a.large", "c5.large", "c5a.large", "c6i.large",
		}
	}
	if p.MinSize == 0 && p.MaxSize == 0 {
		p.MinSize, p.MaxSize = 3, 3
	}
	if p.DesiredSize == 0 {
		p.DesiredSize = p.MinSize
	}
	if p.DiskSize == 0 {
		p.DiskSize = 20
	}
	if p.Taints == nil {
		p.Taints = []TaintConfig{{Key: CriticalAddonsOnlyTaint, Value: "true", Effect: "NoSchedule"}}
	}
}

// loadPolicyDocuments reads every add-on policy document_file. The content is
// kept verbatim and never fetched from the network.
func (c *Config) loadPolicyDocuments(baseDir string) error {
	for name, addon := range c.Addons {
		file := addon.Policy.DocumentFile
		if file == "" || addon.Policy.Document != "" {
			continue
		}
		if !filepath.IsAbs(file) {
			file = filepath.Join(baseDir, file)
		}
		// #nosec G304
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read policy document of add-on %s: %w", name, err)
		}
		addon.Policy.Document = string(data)
		c.Addons[name] = addon
	}
	return nil
}
