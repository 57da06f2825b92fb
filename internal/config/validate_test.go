package config

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{ClusterName: "kit-infra", Region: "us-west-2"}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad cluster name", mutate: func(c *Config) { c.ClusterName = "1-kit" }, wantErr: "must start with a letter"},
		{name: "bad region", mutate: func(c *Config) { c.Region = "moon" }, wantErr: "not a valid AWS region"},
		{name: "bad kubernetes version", mutate: func(c *Config) { c.Kubernetes.Version = "latest" }, wantErr: "kubernetes.version"},
		{name: "old kubernetes version", mutate: func(c *Config) { c.Kubernetes.Version = "1.21" }, wantErr: "not supported"},
		{name: "unknown log type", mutate: func(c *Config) { c.Kubernetes.Logging = []string{"kubelet"} }, wantErr: "unknown log type"},
		{name: "invalid cidr", mutate: func(c *Config) { c.Network.CIDR = "10.0.0.0" }, wantErr: "network.cidr"},
		{name: "cidr too large", mutate: func(c *Config) { c.Network.CIDR = "10.0.0.0/8" }, wantErr: "between /16 and /24"},
		{name: "single zone", mutate: func(c *Config) { c.Network.AvailabilityZones = []string{"us-west-2a"} }, wantErr: "at least 2 zones"},
		{name: "zone outside region", mutate: func(c *Config) { c.Network.AvailabilityZones = []string{"us-west-2a", "us-east-1a"} }, wantErr: "not in region"},
		{name: "subnet bits too small", mutate: func(c *Config) { c.Network.SubnetBits = 2 }, wantErr: "subnet plan"},
		{name: "no instance types", mutate: func(c *Config) { c.NodePool.InstanceTypes = []string{} }, wantErr: "instance_types"},
		{name: "max below min", mutate: func(c *Config) { c.NodePool.MaxSize = 1 }, wantErr: "max_size"},
		{name: "bad taint effect", mutate: func(c *Config) { c.NodePool.Taints = []TaintConfig{{Key: "a", Effect: "Never"}} }, wantErr: "invalid effect"},
		{name: "bad gitops url", mutate: func(c *Config) { c.GitOps.Repository = "github.com/x" }, wantErr: "gitops.repository"},
		{name: "bad interval", mutate: func(c *Config) { c.GitOps.Interval = "soon" }, wantErr: "gitops.interval"},
		{name: "test repo without namespace", mutate: func(c *Config) { c.GitOps.TestRepository = "https://github.com/x/y" }, wantErr: "requires tests.namespace"},
		{name: "bad archive scheme", mutate: func(c *Config) { c.Archive = "gs://runs" }, wantErr: "s3://bucket/prefix"},
		{name: "archive without bucket", mutate: func(c *Config) { c.Archive = "s3:///runs" }, wantErr: "s3://bucket/prefix"},
		{name: "valid archive", mutate: func(c *Config) { c.Archive = "s3://runs/kit" }},
		{name: "unknown add-on", mutate: func(c *Config) { c.Addons["istio"] = AddonConfig{Enabled: boolPtr(true)} }, wantErr: "unknown add-on"},
		{name: "bad chart version", mutate: func(c *Config) {
			a := c.Addons[AddonFlux]
			a.ChartVersion = "one"
			c.Addons[AddonFlux] = a
		}, wantErr: "addons.flux.chart_version"},
		{name: "kit without flux", mutate: func(c *Config) { c.Addons[AddonFlux] = AddonConfig{Enabled: boolPtr(false)} }, wantErr: "addons.kit requires flux"},
		{name: "conflicting policy sources", mutate: func(c *Config) {
			a := c.Addons[AddonKarpenter]
			a.Policy = PolicyConfig{DocumentFile: "p.json", Statements: []StatementConfig{{Actions: []string{"ec2:*"}}}}
			c.Addons[AddonKarpenter] = a
		}, wantErr: "mutually exclusive"},
		{name: "statement without actions", mutate: func(c *Config) {
			a := c.Addons[AddonKarpenter]
			a.Policy = PolicyConfig{Statements: []StatementConfig{{Effect: "Allow"}}}
			c.Addons[AddonKarpenter] = a
		}, wantErr: "actions must not be empty"},
		{name: "bad managed arn", mutate: func(c *Config) {
			a := c.Addons[AddonFluentBit]
			a.Enabled = boolPtr(true)
			a.Policy = PolicyConfig{ManagedPolicyARNs: []string{"CloudWatchAgentServerPolicy"}}
			c.Addons[AddonFluentBit] = a
		}, wantErr: "is not an ARN"},
		{name: "disabled add-on is not checked", mutate: func(c *Config) {
			a := c.Addons[AddonCrossplane]
			a.ChartVersion = "one"
			c.Addons[AddonCrossplane] = a
		}},
		{name: "zero concurrency", mutate: func(c *Config) { c.Orchestrator.Concurrency = 0 }, wantErr: "orchestrator.concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.ClusterName = ""
	cfg.Region = ""
	cfg.NodePool.MinSize = 0

	err := cfg.Validate()
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.GreaterOrEqual(t, len(merr.Errors), 3)
	assert.Contains(t, err.Error(), "cluster_name is required")
	assert.Contains(t, err.Error(), "region is required")
	assert.Contains(t, err.Error(), "min_size")
}
