package provisioning

import (
	awsplatform "github.com/imamik/kitinfra/internal/platform/aws"
)

// ClusterHandle identifies a bootstrapped cluster.
type ClusterHandle struct {
	Name                 string `json:"name"`
	Region               string `json:"region"`
	Version              string `json:"version"`
	Endpoint             string `json:"endpoint"`
	CertificateAuthority string `json:"certificateAuthority"`
	OIDCIssuer           string `json:"oidcIssuer"`
	OIDCProviderARN      string `json:"oidcProviderArn"`
	NodeRoleARN          string `json:"nodeRoleArn"`

	Network *awsplatform.Network `json:"network"`

	// Cluster is the control plane as the provisioner returned it.
	Cluster *awsplatform.Cluster `json:"-"`

	// Kubeconfig holds credentials for clients of this process.
	Kubeconfig []byte `json:"-"`
}

func newClusterHandle(cfg ClusterConfig, s *State) *ClusterHandle {
	h := &ClusterHandle{
		Name:       cfg.Name,
		Region:     cfg.Region,
		Network:    s.Network,
		Cluster:    s.Cluster,
		Kubeconfig: s.Kubeconfig,
	}
	if c := s.Cluster; c != nil {
		h.Version = c.Version
		h.Endpoint = c.Endpoint
		h.CertificateAuthority = c.CertificateAuthority
		h.OIDCIssuer = c.OIDCIssuer
		h.OIDCProviderARN = c.OIDCProviderARN
	}
	if s.NodePool != nil {
		h.NodeRoleARN = s.NodePool.Role.ARN
	}
	return h
}
