// Package config defines the configuration structure and methods for the application.
package config

// Config holds the application configuration.
type Config struct {
	ClusterName string `mapstructure:"cluster_name" yaml:"cluster_name"`
	Region      string `mapstructure:"region" yaml:"region"` // e.g. us-west-2

	// Tags are applied to every AWS resource. The stack tag is always added.
	Tags map[string]string `mapstructure:"tags" yaml:"tags"`

	// KubeconfigPath specifies where to write the kubeconfig file.
	KubeconfigPath string `mapstructure:"kubeconfig_path" yaml:"kubeconfig_path"`

	Kubernetes KubernetesConfig `mapstructure:"kubernetes" yaml:"kubernetes"`
	Network    NetworkConfig    `mapstructure:"network" yaml:"network"`
	NodePool   NodePoolConfig   `mapstructure:"node_pool" yaml:"node_pool"`

	// GitOps configures the Flux bootstrap repository.
	GitOps GitOpsConfig `mapstructure:"gitops" yaml:"gitops"`

	// Tests configures the namespace CI test runs use.
	Tests TestsConfig `mapstructure:"tests" yaml:"tests"`

	// Addons holds per add-on overrides keyed by add-on name.
	Addons map[string]AddonConfig `mapstructure:"addons" yaml:"addons"`

	Orchestrator OrchestratorConfig `mapstructure:"orchestrator" yaml:"orchestrator"`

	// Archive is an optional s3://bucket/prefix where plans are stored.
	Archive string `mapstructure:"archive" yaml:"archive"`
}

// KubernetesConfig defines the control plane version.
type KubernetesConfig struct {
	Version string `mapstructure:"version" yaml:"version"` // e.g. 1.30

	// Logging enables control plane log types.
	// Default: api, audit, authenticator
	Logging []string `mapstructure:"logging" yaml:"logging"`

	// PublicAccess exposes the API server endpoint publicly.
	// Default: true
	PublicAccess *bool `mapstructure:"public_access" yaml:"public_access"`
}

// NetworkConfig defines the VPC layout.
type NetworkConfig struct {
	CIDR string `mapstructure:"cidr" yaml:"cidr"` // Default: 10.0.0.0/16

	// AvailabilityZones to spread subnets across. Default: first three of the region.
	AvailabilityZones []string `mapstructure:"availability_zones" yaml:"availability_zones"`

	// SubnetBits is the prefix extension for each subnet. Default: 4 (/20 in a /16).
	SubnetBits int `mapstructure:"subnet_bits" yaml:"subnet_bits"`

	// NATGateway creates one NAT gateway for private subnets.
	// Default: true
	NATGateway *bool `mapstructure:"nat_gateway" yaml:"nat_gateway"`
}

// NodePoolConfig defines the managed node group running system add-ons.
type NodePoolConfig struct {
	Name          string            `mapstructure:"name" yaml:"name"` // Default: system
	InstanceTypes []string          `mapstructure:"instance_types" yaml:"instance_types"`
	MinSize       int32             `mapstructure:"min_size" yaml:"min_size"`
	MaxSize       int32             `mapstructure:"max_size" yaml:"max_size"`
	DesiredSize   int32             `mapstructure:"desired_size" yaml:"desired_size"`
	DiskSize      int32             `mapstructure:"disk_size" yaml:"disk_size"` // GiB
	Labels        map[string]string `mapstructure:"labels" yaml:"labels"`
	Taints        []TaintConfig     `mapstructure:"taints" yaml:"taints"`
}

// TaintConfig is a node taint.
type TaintConfig struct {
	Key    string `mapstructure:"key" yaml:"key"`
	Value  string `mapstructure:"value" yaml:"value"`
	Effect string `mapstructure:"effect" yaml:"effect"` // NoSchedule, PreferNoSchedule or NoExecute
}

// GitOpsConfig points Flux at the repository it syncs.
type GitOpsConfig struct {
	Repository string `mapstructure:"repository" yaml:"repository"`
	Branch     string `mapstructure:"branch" yaml:"branch"` // Default: main
	Path       string `mapstructure:"path" yaml:"path"`     // Default: ./

	// Interval between reconciliations. Default: 2m0s
	Interval string `mapstructure:"interval" yaml:"interval"`

	// TestRepository is an optional second repository synced for tests.
	TestRepository string `mapstructure:"test_repository" yaml:"test_repository"`
	TestBranch     string `mapstructure:"test_branch" yaml:"test_branch"`
	TestPath       string `mapstructure:"test_path" yaml:"test_path"`
}

// TestsConfig configures the namespace and identity used by CI test runs.
type TestsConfig struct {
	Namespace      string `mapstructure:"namespace" yaml:"namespace"`
	ServiceAccount string `mapstructure:"service_account" yaml:"service_account"` // Default: tekton
}

// AddonConfig overrides the defaults of one add-on.
type AddonConfig struct {
	// Enabled accepts booleans and the strings "true"/"false". It is always
	// set after LoadFile.
	Enabled *bool `mapstructure:"enabled" yaml:"enabled"`

	// Version is the application version, used where charts take an image tag.
	Version string `mapstructure:"version" yaml:"version"`

	ChartVersion string `mapstructure:"chart_version" yaml:"chart_version"`
	Repository   string `mapstructure:"repository" yaml:"repository"`
	Namespace    string `mapstructure:"namespace" yaml:"namespace"`

	// Values are merged over the built-in chart values.
	Values map[string]any `mapstructure:"values" yaml:"values"`

	// Policy replaces the built-in permission policy when set.
	Policy PolicyConfig `mapstructure:"policy" yaml:"policy"`
}

// IsEnabled reports whether the add-on is enabled.
func (a AddonConfig) IsEnabled() bool {
	return a.Enabled != nil && *a.Enabled
}

// PolicyConfig is a permission policy supplied by configuration. The
// document, when given, is used as-is; it is never fetched remotely.
type PolicyConfig struct {
	Statements        []StatementConfig `mapstructure:"statements" yaml:"statements"`
	DocumentFile      string            `mapstructure:"document_file" yaml:"document_file"`
	ManagedPolicyARNs []string          `mapstructure:"managed_policy_arns" yaml:"managed_policy_arns"`

	// Document is the content of DocumentFile, read by LoadFile.
	Document string `mapstructure:"-" yaml:"-"`
}

// IsSet reports whether any policy source is configured.
func (p PolicyConfig) IsSet() bool {
	return len(p.Statements) > 0 || p.DocumentFile != "" || p.Document != "" || len(p.ManagedPolicyARNs) > 0
}

// StatementConfig is one IAM statement.
type StatementConfig struct {
	Effect    string   `mapstructure:"effect" yaml:"effect"` // Default: Allow
	Actions   []string `mapstructure:"actions" yaml:"actions"`
	Resources []string `mapstructure:"resources" yaml:"resources"` // Default: ["*"]
}

// OrchestratorConfig tunes the add-on run.
type OrchestratorConfig struct {
	// Concurrency is the number of nodes applied at once. Default: 1
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// Addon returns the configuration of the named add-on. Unknown names return
// the zero value, which is disabled.
func (c *Config) Addon(name string) AddonConfig {
	return c.Addons[name]
}

// PublicAccessEnabled reports whether the API endpoint is public. Unset
// means true.
func (k KubernetesConfig) PublicAccessEnabled() bool {
	return k.PublicAccess == nil || *k.PublicAccess
}

// NATGatewayEnabled reports whether private subnets get a NAT gateway.
// Unset means true.
func (n NetworkConfig) NATGatewayEnabled() bool {
	return n.NATGateway == nil || *n.NATGateway
}
