package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kitinfra/internal/util/labels"
	"github.com/imamik/kitinfra/internal/util/naming"
)

// EnsureNodeSecurityGroup creates the worker node security group of a
// cluster. Nodes in it accept all traffic from each other and from the
// cluster security group, and the cluster security group accepts all
// traffic from them. Existing groups and rules are reused.
func (c *Client) EnsureNodeSecurityGroup(ctx context.Context, cluster, vpcID, clusterGroupID string) (string, error) {
	name := naming.NodeSecurityGroup(cluster)
	out, err := c.ec2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: append(nameFilter(name), vpcFilter(vpcID)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe security group %s: %w", name, err)
	}

	var groupID string
	if len(out.SecurityGroups) > 0 {
		groupID = aws.ToString(out.SecurityGroups[0].GroupId)
	} else {
		created, err := c.ec2.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
			GroupName:         aws.String(name),
			Description:       aws.String(fmt.Sprintf("Worker nodes of cluster %s", cluster)),
			VpcId:             aws.String(vpcID),
			TagSpecifications: c.tagSpec(ec2types.ResourceTypeSecurityGroup, name, labels.RoleNode),
		})
		if err != nil {
			return "", fmt.Errorf("failed to create security group %s: %w", name, err)
		}
		groupID = aws.ToString(created.GroupId)
		log.FromContext(ctx).Info("created node security group", "id", groupID)
	}

	rules := []struct{ group, source string }{
		{groupID, groupID},
		{groupID, clusterGroupID},
		{clusterGroupID, groupID},
	}
	for _, r := range rules {
		if err := c.allowAllFrom(ctx, r.group, r.source); err != nil {
			return "", err
		}
	}
	return groupID, nil
}

func (c *Client) allowAllFrom(ctx context.Context, groupID, sourceID string) error {
	_, err := c.ec2.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId: aws.String(groupID),
		IpPermissions: []ec2types.IpPermission{{
			IpProtocol:       aws.String("-1"),
			UserIdGroupPairs: []ec2types.UserIdGroupPair{{GroupId: aws.String(sourceID)}},
		}},
	})
	if err != nil && !IsAlreadyExists(err) {
		return fmt.Errorf("failed to allow traffic from %s to %s: %w", sourceID, groupID, err)
	}
	return nil
}
