package provisioning

import (
	"github.com/imamik/kitinfra/internal/config"
)

// Node identity mapping used by EKS managed nodes.
const (
	NodeUsernamePattern = "system:node:{{EC2PrivateDNSName}}"
)

// NodeGroups are the groups node roles are mapped to.
var NodeGroups = []string{"system:bootstrappers", "system:nodes"}

// ClusterConfig holds the cluster-level parameters of a bootstrap.
type ClusterConfig struct {
	Name       string
	Region     string
	Kubernetes config.KubernetesConfig
	NodePool   config.NodePoolConfig

	// ExtraNodeRoleARNs are mapped like the node role. CI test runners use
	// this to launch nodes of their own.
	ExtraNodeRoleARNs []string
}

// ClusterConfigFrom extracts the cluster parameters from cfg.
func ClusterConfigFrom(cfg *config.Config) ClusterConfig {
	return ClusterConfig{
		Name:       cfg.ClusterName,
		Region:     cfg.Region,
		Kubernetes: cfg.Kubernetes,
		NodePool:   cfg.NodePool,
	}
}
