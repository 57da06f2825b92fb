package config

const (
	// DefaultKubernetesVersion is the EKS version used when none is configured.
	DefaultKubernetesVersion = "1.30"

	DefaultGitOpsRepository = "https://github.com/awslabs/kubernetes-iteration-toolkit"
	DefaultGitOpsPath       = "./infrastructure/k8s-config/clusters/kit-infrastructure"

	// CriticalAddonsOnlyTaint keeps application pods off the system node pool.
	CriticalAddonsOnlyTaint = "CriticalAddonsOnly"

	// StackTagKey tags every AWS resource with the owning cluster.
	StackTagKey = "kit.sh/stack"
)

// ResourceTags returns the configured tags plus the stack tag.
func (c *Config) ResourceTags() map[string]string {
	tags := make(map[string]string, len(c.Tags)+1)
	for k, v := range c.Tags {
		tags[k] = v
	}
	tags[StackTagKey] = c.ClusterName
	return tags
}
