package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kitinfra/internal/util/labels"
	"github.com/imamik/kitinfra/internal/util/naming"
	"github.com/imamik/kitinfra/internal/util/retry"
)

// ClusterSpec describes the EKS control plane.
type ClusterSpec struct {
	Name         string
	Version      string
	Logging      []string
	PublicAccess bool
	SubnetIDs    []string
}

// Cluster is a provisioned EKS control plane.
type Cluster struct {
	Name    string `json:"name"`
	ARN     string `json:"arn"`
	Version string `json:"version"`

	Endpoint string `json:"endpoint"`
	// CertificateAuthority is the base64 encoded CA bundle.
	CertificateAuthority string `json:"certificateAuthority"`

	OIDCIssuer      string `json:"oidcIssuer"`
	OIDCProviderARN string `json:"oidcProviderArn"`
	RoleARN         string `json:"roleArn"`

	VPCID string `json:"vpcId,omitempty"`
	// SecurityGroupID is the security group EKS created for the cluster.
	SecurityGroupID     string `json:"securityGroupId,omitempty"`
	NodeSecurityGroupID string `json:"nodeSecurityGroupId,omitempty"`
}

// Taint is a node group taint. Effect uses the Kubernetes spelling.
type Taint struct {
	Key    string
	Value  string
	Effect string
}

// NodePoolSpec describes the managed node group.
type NodePoolSpec struct {
	Cluster       string
	Name          string
	SubnetIDs     []string
	InstanceTypes []string
	MinSize       int32
	MaxSize       int32
	DesiredSize   int32
	DiskSize      int32
	Labels        map[string]string
	Taints        []Taint
}

// NodePool is a provisioned managed node group.
type NodePool struct {
	Name string `json:"name"`
	ARN  string `json:"arn"`
	Role Role   `json:"role"`
}

// EnsureControlPlane creates the EKS cluster with its role, waits for it to
// become active and registers its OIDC provider and the node security group.
func (c *Client) EnsureControlPlane(ctx context.Context, spec ClusterSpec) (*Cluster, error) {
	logger := log.FromContext(ctx).WithValues("cluster", spec.Name)

	role, err := c.EnsureClusterRole(ctx, spec.Name)
	if err != nil {
		return nil, err
	}

	existing, err := c.eks.DescribeCluster(ctx, &eks.DescribeClusterInput{Name: aws.String(spec.Name)})
	switch {
	case err == nil:
		switch existing.Cluster.Status {
		case ekstypes.ClusterStatusFailed, ekstypes.ClusterStatusDeleting:
			return nil, fmt.Errorf("cluster %s is %s", spec.Name, existing.Cluster.Status)
		}
		logger.Info("cluster exists", "status", existing.Cluster.Status)
	case IsNotFound(err):
		if err := c.createCluster(ctx, spec, role.ARN); err != nil {
			return nil, err
		}
		logger.Info("cluster creation started")
	default:
		return nil, fmt.Errorf("failed to describe cluster %s: %w", spec.Name, err)
	}

	logger.Info("waiting for control plane", "timeout", c.timeout.ClusterActive)
	out, err := eks.NewClusterActiveWaiter(c.eks).WaitForOutput(ctx,
		&eks.DescribeClusterInput{Name: aws.String(spec.Name)}, c.timeout.ClusterActive)
	if err != nil {
		return nil, fmt.Errorf("cluster %s did not become active: %w", spec.Name, err)
	}

	cluster := clusterFrom(out.Cluster)
	cluster.RoleARN = role.ARN
	if cluster.OIDCProviderARN, err = c.EnsureOIDCProvider(ctx, cluster.OIDCIssuer); err != nil {
		return nil, err
	}
	if cluster.VPCID != "" && cluster.SecurityGroupID != "" {
		if cluster.NodeSecurityGroupID, err = c.EnsureNodeSecurityGroup(ctx, spec.Name, cluster.VPCID, cluster.SecurityGroupID); err != nil {
			return nil, err
		}
	}
	logger.Info("control plane active", "endpoint", cluster.Endpoint, "version", cluster.Version)
	return cluster, nil
}

func (c *Client) createCluster(ctx context.Context, spec ClusterSpec, roleARN string) error {
	input := &eks.CreateClusterInput{
		Name:    aws.String(spec.Name),
		RoleArn: aws.String(roleARN),
		ResourcesVpcConfig: &ekstypes.VpcConfigRequest{
			SubnetIds:             spec.SubnetIDs,
			EndpointPublicAccess:  aws.Bool(spec.PublicAccess),
			EndpointPrivateAccess: aws.Bool(true),
		},
		Tags: c.resourceTags(spec.Name, labels.RoleCluster).Build(),
	}
	if spec.Version != "" {
		input.Version = aws.String(spec.Version)
	}
	if len(spec.Logging) > 0 {
		types := make([]ekstypes.LogType, 0, len(spec.Logging))
		for _, t := range spec.Logging {
			types = append(types, ekstypes.LogType(t))
		}
		input.Logging = &ekstypes.Logging{ClusterLogging: []ekstypes.LogSetup{{
			Enabled: aws.Bool(true),
			Types:   types,
		}}}
	}

	// A just-created cluster role is not assumable by EKS for a few seconds.
	err := retry.WithExponentialBackoff(ctx, func() error {
		_, err := c.eks.CreateCluster(ctx, input)
		return err
	}, c.retryOptions()...)
	if err != nil && !IsAlreadyExists(err) {
		return fmt.Errorf("failed to create cluster %s: %w", spec.Name, err)
	}
	return nil
}

func clusterFrom(cl *ekstypes.Cluster) *Cluster {
	out := &Cluster{
		Name:     aws.ToString(cl.Name),
		ARN:      aws.ToString(cl.Arn),
		Version:  aws.ToString(cl.Version),
		Endpoint: aws.ToString(cl.Endpoint),
	}
	if cl.CertificateAuthority != nil {
		out.CertificateAuthority = aws.ToString(cl.CertificateAuthority.Data)
	}
	if cl.Identity != nil && cl.Identity.Oidc != nil {
		out.OIDCIssuer = aws.ToString(cl.Identity.Oidc.Issuer)
	}
	if vpc := cl.ResourcesVpcConfig; vpc != nil {
		out.VPCID = aws.ToString(vpc.VpcId)
		out.SecurityGroupID = aws.ToString(vpc.ClusterSecurityGroupId)
	}
	return out
}

// EnsureNodePool creates the node role and the managed node group and waits
// for the group to become active.
func (c *Client) EnsureNodePool(ctx context.Context, spec NodePoolSpec) (*NodePool, error) {
	name := naming.NodeGroup(spec.Cluster, spec.Name)
	logger := log.FromContext(ctx).WithValues("nodegroup", name)

	role, err := c.EnsureNodeRole(ctx, spec.Cluster)
	if err != nil {
		return nil, err
	}

	describe := &eks.DescribeNodegroupInput{ClusterName: aws.String(spec.Cluster), NodegroupName: aws.String(name)}
	existing, err := c.eks.DescribeNodegroup(ctx, describe)
	switch {
	case err == nil:
		switch existing.Nodegroup.Status {
		case ekstypes.NodegroupStatusCreateFailed, ekstypes.NodegroupStatusDeleting, ekstypes.NodegroupStatusDegraded:
			return nil, fmt.Errorf("node group %s is %s", name, existing.Nodegroup.Status)
		}
		logger.Info("node group exists", "status", existing.Nodegroup.Status)
	case IsNotFound(err):
		if err := c.createNodegroup(ctx, name, role.ARN, spec); err != nil {
			return nil, err
		}
		logger.Info("node group creation started")
	default:
		return nil, fmt.Errorf("failed to describe node group %s: %w", name, err)
	}

	logger.Info("waiting for node group", "timeout", c.timeout.NodegroupActive)
	out, err := eks.NewNodegroupActiveWaiter(c.eks).WaitForOutput(ctx, describe, c.timeout.NodegroupActive)
	if err != nil {
		return nil, fmt.Errorf("node group %s did not become active: %w", name, err)
	}
	return &NodePool{Name: name, ARN: aws.ToString(out.Nodegroup.NodegroupArn), Role: *role}, nil
}

func (c *Client) createNodegroup(ctx context.Context, name, roleARN string, spec NodePoolSpec) error {
	taints := make([]ekstypes.Taint, 0, len(spec.Taints))
	for _, t := range spec.Taints {
		effect, err := taintEffect(t.Effect)
		if err != nil {
			return err
		}
		taints = append(taints, ekstypes.Taint{Key: aws.String(t.Key), Value: aws.String(t.Value), Effect: effect})
	}

	input := &eks.CreateNodegroupInput{
		ClusterName:   aws.String(spec.Cluster),
		NodegroupName: aws.String(name),
		NodeRole:      aws.String(roleARN),
		Subnets:       spec.SubnetIDs,
		InstanceTypes: spec.InstanceTypes,
		ScalingConfig: &ekstypes.NodegroupScalingConfig{
			MinSize:     aws.Int32(spec.MinSize),
			MaxSize:     aws.Int32(spec.MaxSize),
			DesiredSize: aws.Int32(spec.DesiredSize),
		},
		Labels: spec.Labels,
		Taints: taints,
		Tags:   c.resourceTags(name, labels.RoleNode).Build(),
	}
	if spec.DiskSize > 0 {
		input.DiskSize = aws.Int32(spec.DiskSize)
	}

	err := retry.WithExponentialBackoff(ctx, func() error {
		_, err := c.eks.CreateNodegroup(ctx, input)
		return err
	}, c.retryOptions()...)
	if err != nil && !IsAlreadyExists(err) {
		return fmt.Errorf("failed to create node group %s: %w", name, err)
	}
	return nil
}

func taintEffect(effect string) (ekstypes.TaintEffect, error) {
	switch effect {
	case "NoSchedule":
		return ekstypes.TaintEffectNoSchedule, nil
	case "PreferNoSchedule":
		return ekstypes.TaintEffectPreferNoSchedule, nil
	case "NoExecute":
		return ekstypes.TaintEffectNoExecute, nil
	}
	return "", fmt.Errorf("unsupported taint effect %q", effect)
}
