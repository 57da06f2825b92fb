package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kitinfra/internal/addons"
	"github.com/imamik/kitinfra/internal/addons/identity"
	"github.com/imamik/kitinfra/internal/util/labels"
	"github.com/imamik/kitinfra/internal/util/naming"
)

// ServiceAccountRoles creates the IAM roles service accounts of one cluster
// assume through its OIDC provider, and attaches their permissions.
type ServiceAccountRoles struct {
	client      *Client
	cluster     string
	issuer      string
	providerARN string
}

// ServiceAccountRoles returns the role provisioner for cluster. The cluster
// must have its OIDC provider registered.
func (c *Client) ServiceAccountRoles(cluster *Cluster) (*ServiceAccountRoles, error) {
	if cluster.OIDCIssuer == "" || cluster.OIDCProviderARN == "" {
		return nil, fmt.Errorf("cluster %s has no OIDC provider", cluster.Name)
	}
	return &ServiceAccountRoles{
		client:      c,
		cluster:     cluster.Name,
		issuer:      cluster.OIDCIssuer,
		providerARN: cluster.OIDCProviderARN,
	}, nil
}

// EnsureServiceAccountRole creates the role of namespace/serviceAccount
// trusted by the cluster's OIDC provider.
func (r *ServiceAccountRoles) EnsureServiceAccountRole(ctx context.Context, namespace, serviceAccount string) (addons.IdentityRef, error) {
	name := naming.ServiceAccountRole(r.cluster, namespace, serviceAccount)
	doc, err := webIdentityTrustPolicy(r.providerARN, r.issuer, namespace, serviceAccount).render()
	if err != nil {
		return addons.IdentityRef{}, err
	}
	role, err := r.client.ensureRole(ctx, name, labels.RoleWorkload, doc)
	if err != nil {
		return addons.IdentityRef{}, err
	}
	return addons.IdentityRef{
		Namespace:      namespace,
		ServiceAccount: serviceAccount,
		RoleName:       role.Name,
		RoleARN:        role.ARN,
	}, nil
}

// AttachPolicy attaches the managed policies of policy to the role of ref
// and puts its statements or document as an inline policy.
func (r *ServiceAccountRoles) AttachPolicy(ctx context.Context, ref addons.IdentityRef, policy addons.Policy) error {
	if ref.RoleName == "" {
		return fmt.Errorf("identity %s/%s has no role", ref.Namespace, ref.ServiceAccount)
	}
	for _, arn := range policy.ManagedPolicyARNs {
		if err := r.client.attachManagedPolicy(ctx, ref.RoleName, arn); err != nil {
			return err
		}
	}

	doc := policy.Document
	if doc == "" && len(policy.Statements) > 0 {
		var err error
		if doc, err = inlinePolicy(policy.Statements).render(); err != nil {
			return err
		}
	}
	if doc == "" {
		return nil
	}

	name := policy.Name
	if name == "" {
		name = ref.RoleName
	}
	if _, err := r.client.iam.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
		RoleName:       aws.String(ref.RoleName),
		PolicyName:     aws.String(name),
		PolicyDocument: aws.String(doc),
	}); err != nil {
		return fmt.Errorf("failed to put policy %s on role %s: %w", name, ref.RoleName, err)
	}
	log.FromContext(ctx).V(1).Info("inline policy attached", "role", ref.RoleName, "policy", name)
	return nil
}

var (
	_ identity.RoleProvisioner  = (*ServiceAccountRoles)(nil)
	_ addons.PermissionProvider = (*ServiceAccountRoles)(nil)
)
