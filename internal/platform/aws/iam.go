package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kitinfra/internal/util/labels"
	"github.com/imamik/kitinfra/internal/util/naming"
	"github.com/imamik/kitinfra/internal/util/retry"
)

const stsAudience = "sts.amazonaws.com"

// Managed policies of the cluster and node roles, relative to the partition.
var (
	clusterPolicies = []string{
		"policy/AmazonEKSClusterPolicy",
		"policy/AmazonEKSVPCResourceController",
	}
	nodePolicies = []string{
		"policy/AmazonEKSWorkerNodePolicy",
		"policy/AmazonEKS_CNI_Policy",
		"policy/AmazonEC2ContainerRegistryReadOnly",
		"policy/AmazonSSMManagedInstanceCore",
	}
)

// Role is an IAM role.
type Role struct {
	Name string `json:"name"`
	ARN  string `json:"arn"`
}

// EnsureClusterRole creates the role the EKS control plane runs as.
func (c *Client) EnsureClusterRole(ctx context.Context, cluster string) (*Role, error) {
	return c.ensureServiceRole(ctx, naming.ClusterRole(cluster), labels.RoleCluster,
		serviceTrustPolicy("eks.amazonaws.com"), clusterPolicies)
}

// EnsureNodeRole creates the role worker nodes run as, together with the
// instance profile Karpenter launches nodes with.
func (c *Client) EnsureNodeRole(ctx context.Context, cluster string) (*Role, error) {
	role, err := c.ensureServiceRole(ctx, naming.NodeRole(cluster), labels.RoleNode,
		serviceTrustPolicy("ec2.amazonaws.com"), nodePolicies)
	if err != nil {
		return nil, err
	}
	if err := c.ensureInstanceProfile(ctx, naming.KarpenterInstanceProfile(cluster), role.Name); err != nil {
		return nil, err
	}
	return role, nil
}

func (c *Client) ensureServiceRole(ctx context.Context, name, role string, trust policyDocument, managed []string) (*Role, error) {
	doc, err := trust.render()
	if err != nil {
		return nil, err
	}
	r, err := c.ensureRole(ctx, name, role, doc)
	if err != nil {
		return nil, err
	}
	for _, p := range managed {
		if err := c.attachManagedPolicy(ctx, name, c.managedPolicyARN(p)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ensureRole creates the role or brings the trust policy of an existing one
// up to date.
func (c *Client) ensureRole(ctx context.Context, name, role, trust string) (*Role, error) {
	logger := log.FromContext(ctx).WithValues("role", name)

	existing, err := c.iam.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(name)})
	switch {
	case err == nil:
		if err := retry.WithExponentialBackoff(ctx, func() error {
			_, err := c.iam.UpdateAssumeRolePolicy(ctx, &iam.UpdateAssumeRolePolicyInput{
				RoleName:       aws.String(name),
				PolicyDocument: aws.String(trust),
			})
			return err
		}, c.retryOptions()...); err != nil {
			return nil, fmt.Errorf("failed to update trust policy of role %s: %w", name, err)
		}
		logger.V(1).Info("role exists")
		return &Role{Name: name, ARN: aws.ToString(existing.Role.Arn)}, nil
	case !IsNotFound(err):
		return nil, fmt.Errorf("failed to get role %s: %w", name, err)
	}

	var created *iam.CreateRoleOutput
	err = retry.WithExponentialBackoff(ctx, func() error {
		var err error
		created, err = c.iam.CreateRole(ctx, &iam.CreateRoleInput{
			RoleName:                 aws.String(name),
			AssumeRolePolicyDocument: aws.String(trust),
			Tags:                     iamTags(c.resourceTags("", role)),
		})
		return err
	}, c.retryOptions()...)
	if IsAlreadyExists(err) {
		return c.getRole(ctx, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create role %s: %w", name, err)
	}
	logger.Info("role created")
	return &Role{Name: name, ARN: aws.ToString(created.Role.Arn)}, nil
}

func (c *Client) getRole(ctx context.Context, name string) (*Role, error) {
	out, err := c.iam.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(name)})
	if err != nil {
		return nil, fmt.Errorf("failed to get role %s: %w", name, err)
	}
	return &Role{Name: name, ARN: aws.ToString(out.Role.Arn)}, nil
}

func (c *Client) attachManagedPolicy(ctx context.Context, role, policyARN string) error {
	if _, err := c.iam.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(role),
		PolicyArn: aws.String(policyARN),
	}); err != nil {
		return fmt.Errorf("failed to attach %s to role %s: %w", policyARN, role, err)
	}
	return nil
}

func (c *Client) ensureInstanceProfile(ctx context.Context, name, role string) error {
	out, err := c.iam.GetInstanceProfile(ctx, &iam.GetInstanceProfileInput{InstanceProfileName: aws.String(name)})
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("failed to get instance profile %s: %w", name, err)
	}
	if err == nil {
		for _, r := range out.InstanceProfile.Roles {
			if aws.ToString(r.RoleName) == role {
				return nil
			}
		}
	} else {
		if _, err := c.iam.CreateInstanceProfile(ctx, &iam.CreateInstanceProfileInput{
			InstanceProfileName: aws.String(name),
			Tags:                iamTags(c.resourceTags("", labels.RoleNode)),
		}); err != nil && !IsAlreadyExists(err) {
			return fmt.Errorf("failed to create instance profile %s: %w", name, err)
		}
	}

	if _, err := c.iam.AddRoleToInstanceProfile(ctx, &iam.AddRoleToInstanceProfileInput{
		InstanceProfileName: aws.String(name),
		RoleName:            aws.String(role),
	}); err != nil {
		return fmt.Errorf("failed to add role %s to instance profile %s: %w", role, name, err)
	}
	return nil
}

// EnsureOIDCProvider registers the cluster's OIDC issuer with IAM and
// returns the provider ARN.
func (c *Client) EnsureOIDCProvider(ctx context.Context, issuer string) (string, error) {
	if issuer == "" {
		return "", fmt.Errorf("cluster has no OIDC issuer")
	}
	out, err := c.iam.CreateOpenIDConnectProvider(ctx, &iam.CreateOpenIDConnectProviderInput{
		Url:          aws.String(issuer),
		ClientIDList: []string{stsAudience},
		Tags:         iamTags(c.resourceTags("", labels.RoleCluster)),
	})
	if err == nil {
		return aws.ToString(out.OpenIDConnectProviderArn), nil
	}
	if !IsAlreadyExists(err) {
		return "", fmt.Errorf("failed to create OIDC provider for %s: %w", issuer, err)
	}

	account, err := c.AccountID(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("arn:%s:iam::%s:oidc-provider/%s", Partition(c.region), account, issuerHost(issuer)), nil
}

func (c *Client) managedPolicyARN(policy string) string {
	return fmt.Sprintf("arn:%s:iam::aws:%s", Partition(c.region), policy)
}

func (c *Client) retryOptions() []retry.Option {
	return []retry.Option{
		retry.WithMaxRetries(c.timeout.RetryMaxAttempts),
		retry.WithInitialDelay(c.timeout.RetryInitialDelay),
		retry.If(isRetryable),
	}
}

func iamTags(lb *labels.LabelBuilder) []iamtypes.Tag {
	pairs := lb.Pairs()
	tags := make([]iamtypes.Tag, 0, len(pairs))
	for _, p := range pairs {
		tags = append(tags, iamtypes.Tag{Key: aws.String(p[0]), Value: aws.String(p[1])})
	}
	return tags
}
