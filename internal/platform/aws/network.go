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

// Subnet role tags the load balancer controller uses to place load balancers.
const (
	tagELB         = "kubernetes.io/role/elb"
	tagInternalELB = "kubernetes.io/role/internal-elb"
	anyIPv4        = "0.0.0.0/0"
)

// SubnetSpec is one subnet to create.
type SubnetSpec struct {
	CIDR             string
	AvailabilityZone string
	Public           bool
}

// NetworkSpec describes the VPC of a cluster.
type NetworkSpec struct {
	Cluster    string
	CIDR       string
	Subnets    []SubnetSpec
	NATGateway bool
}

// Network is the provisioned VPC.
type Network struct {
	VPCID             string   `json:"vpcId"`
	CIDR              string   `json:"cidr"`
	InternetGatewayID string   `json:"internetGatewayId"`
	NATGatewayID      string   `json:"natGatewayId,omitempty"`
	PublicSubnetIDs   []string `json:"publicSubnetIds"`
	PrivateSubnetIDs  []string `json:"privateSubnetIds"`
}

// SubnetIDs returns the public subnets followed by the private ones.
func (n *Network) SubnetIDs() []string {
	out := make([]string, 0, len(n.PublicSubnetIDs)+len(n.PrivateSubnetIDs))
	out = append(out, n.PublicSubnetIDs...)
	return append(out, n.PrivateSubnetIDs...)
}

// NodeSubnetIDs returns the subnets nodes are placed in: the private ones
// when the network routes them through a NAT gateway, the public ones
// otherwise.
func (n *Network) NodeSubnetIDs() []string {
	if n.NATGatewayID != "" && len(n.PrivateSubnetIDs) > 0 {
		return n.PrivateSubnetIDs
	}
	return n.PublicSubnetIDs
}

// EnsureNetwork creates the VPC, its internet gateway, subnets, NAT gateway
// and route tables. Existing resources with the expected name are reused.
func (c *Client) EnsureNetwork(ctx context.Context, spec NetworkSpec) (*Network, error) {
	logger := log.FromContext(ctx).WithValues("vpc", naming.VPC(spec.Cluster))

	vpcID, err := c.ensureVPC(ctx, spec)
	if err != nil {
		return nil, err
	}
	net := &Network{VPCID: vpcID, CIDR: spec.CIDR}
	logger.Info("VPC ready", "id", vpcID)

	if net.InternetGatewayID, err = c.ensureInternetGateway(ctx, spec.Cluster, vpcID); err != nil {
		return nil, err
	}

	for _, s := range spec.Subnets {
		id, err := c.ensureSubnet(ctx, spec.Cluster, vpcID, s)
		if err != nil {
			return nil, err
		}
		if s.Public {
			net.PublicSubnetIDs = append(net.PublicSubnetIDs, id)
		} else {
			net.PrivateSubnetIDs = append(net.PrivateSubnetIDs, id)
		}
	}
	if len(net.PublicSubnetIDs) == 0 {
		return nil, fmt.Errorf("network %s has no public subnet", spec.Cluster)
	}

	if err := c.ensureRouteTable(ctx, spec.Cluster, vpcID, true, net.PublicSubnetIDs,
		&ec2.CreateRouteInput{GatewayId: aws.String(net.InternetGatewayID)}); err != nil {
		return nil, err
	}

	if spec.NATGateway && len(net.PrivateSubnetIDs) > 0 {
		if net.NATGatewayID, err = c.ensureNATGateway(ctx, spec.Cluster, net.PublicSubnetIDs[0]); err != nil {
			return nil, err
		}
		if err := c.ensureRouteTable(ctx, spec.Cluster, vpcID, false, net.PrivateSubnetIDs,
			&ec2.CreateRouteInput{NatGatewayId: aws.String(net.NATGatewayID)}); err != nil {
			return nil, err
		}
	}

	logger.Info("network ready",
		"publicSubnets", len(net.PublicSubnetIDs),
		"privateSubnets", len(net.PrivateSubnetIDs),
		"natGateway", net.NATGatewayID != "")
	return net, nil
}

func (c *Client) ensureVPC(ctx context.Context, spec NetworkSpec) (string, error) {
	name := naming.VPC(spec.Cluster)
	out, err := c.ec2.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{Filters: nameFilter(name)})
	if err != nil {
		return "", fmt.Errorf("failed to describe VPC %s: %w", name, err)
	}
	if len(out.Vpcs) > 0 {
		return aws.ToString(out.Vpcs[0].VpcId), nil
	}

	created, err := c.ec2.CreateVpc(ctx, &ec2.CreateVpcInput{
		CidrBlock:         aws.String(spec.CIDR),
		TagSpecifications: c.tagSpec(ec2types.ResourceTypeVpc, name, labels.RoleNetwork),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create VPC %s: %w", name, err)
	}
	vpcID := aws.ToString(created.Vpc.VpcId)

	waiter := ec2.NewVpcAvailableWaiter(c.ec2)
	if err := waiter.Wait(ctx, &ec2.DescribeVpcsInput{VpcIds: []string{vpcID}}, c.timeout.NetworkCreate); err != nil {
		return "", fmt.Errorf("VPC %s did not become available: %w", vpcID, err)
	}

	// EKS nodes need both attributes; the API takes one per call.
	for _, attr := range []*ec2.ModifyVpcAttributeInput{
		{VpcId: aws.String(vpcID), EnableDnsSupport: &ec2types.AttributeBooleanValue{Value: aws.Bool(true)}},
		{VpcId: aws.String(vpcID), EnableDnsHostnames: &ec2types.AttributeBooleanValue{Value: aws.Bool(true)}},
	} {
		if _, err := c.ec2.ModifyVpcAttribute(ctx, attr); err != nil {
			return "", fmt.Errorf("failed to enable DNS on VPC %s: %w", vpcID, err)
		}
	}
	return vpcID, nil
}

func (c *Client) ensureInternetGateway(ctx context.Context, cluster, vpcID string) (string, error) {
	name := naming.InternetGateway(cluster)
	out, err := c.ec2.DescribeInternetGateways(ctx, &ec2.DescribeInternetGatewaysInput{Filters: nameFilter(name)})
	if err != nil {
		return "", fmt.Errorf("failed to describe internet gateway %s: %w", name, err)
	}

	var igwID string
	attached := false
	if len(out.InternetGateways) > 0 {
		igw := out.InternetGateways[0]
		igwID = aws.ToString(igw.InternetGatewayId)
		for _, a := range igw.Attachments {
			if aws.ToString(a.VpcId) == vpcID {
				attached = true
			}
		}
	} else {
		created, err := c.ec2.CreateInternetGateway(ctx, &ec2.CreateInternetGatewayInput{
			TagSpecifications: c.tagSpec(ec2types.ResourceTypeInternetGateway, name, labels.RoleNetwork),
		})
		if err != nil {
			return "", fmt.Errorf("failed to create internet gateway %s: %w", name, err)
		}
		igwID = aws.ToString(created.InternetGateway.InternetGatewayId)
	}

	if !attached {
		if _, err := c.ec2.AttachInternetGateway(ctx, &ec2.AttachInternetGatewayInput{
			InternetGatewayId: aws.String(igwID),
			VpcId:             aws.String(vpcID),
		}); err != nil {
			return "", fmt.Errorf("failed to attach internet gateway %s: %w", igwID, err)
		}
	}
	return igwID, nil
}

func (c *Client) ensureSubnet(ctx context.Context, cluster, vpcID string, s SubnetSpec) (string, error) {
	name := naming.Subnet(cluster, s.AvailabilityZone, s.Public)
	out, err := c.ec2.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		Filters: append(nameFilter(name), vpcFilter(vpcID)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe subnet %s: %w", name, err)
	}
	if len(out.Subnets) > 0 {
		return aws.ToString(out.Subnets[0].SubnetId), nil
	}

	tags := c.resourceTags(name, labels.RoleNetwork).Merge(map[string]string{
		"kubernetes.io/cluster/" + cluster: "shared",
	})
	if s.Public {
		tags.Merge(map[string]string{tagELB: "1"})
	} else {
		tags.Merge(map[string]string{tagInternalELB: "1"})
	}

	created, err := c.ec2.CreateSubnet(ctx, &ec2.CreateSubnetInput{
		VpcId:            aws.String(vpcID),
		CidrBlock:        aws.String(s.CIDR),
		AvailabilityZone: aws.String(s.AvailabilityZone),
		TagSpecifications: []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeSubnet,
			Tags:         ec2Tags(tags),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create subnet %s (%s): %w", name, s.CIDR, err)
	}
	subnetID := aws.ToString(created.Subnet.SubnetId)

	if s.Public {
		if _, err := c.ec2.ModifySubnetAttribute(ctx, &ec2.ModifySubnetAttributeInput{
			SubnetId:            aws.String(subnetID),
			MapPublicIpOnLaunch: &ec2types.AttributeBooleanValue{Value: aws.Bool(true)},
		}); err != nil {
			return "", fmt.Errorf("failed to enable public IPs on subnet %s: %w", subnetID, err)
		}
	}
	return subnetID, nil
}

func (c *Client) ensureNATGateway(ctx context.Context, cluster, subnetID string) (string, error) {
	name := naming.NATGateway(cluster)
	out, err := c.ec2.DescribeNatGateways(ctx, &ec2.DescribeNatGatewaysInput{
		Filter: append(nameFilter(name), ec2types.Filter{
			Name:   aws.String("state"),
			Values: []string{string(ec2types.NatGatewayStatePending), string(ec2types.NatGatewayStateAvailable)},
		}),
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe NAT gateway %s: %w", name, err)
	}

	var natID string
	if len(out.NatGateways) > 0 {
		natID = aws.ToString(out.NatGateways[0].NatGatewayId)
	} else {
		eip, err := c.ec2.AllocateAddress(ctx, &ec2.AllocateAddressInput{
			Domain:            ec2types.DomainTypeVpc,
			TagSpecifications: c.tagSpec(ec2types.ResourceTypeElasticIp, name, labels.RoleNetwork),
		})
		if err != nil {
			return "", fmt.Errorf("failed to allocate address for NAT gateway %s: %w", name, err)
		}
		created, err := c.ec2.CreateNatGateway(ctx, &ec2.CreateNatGatewayInput{
			SubnetId:          aws.String(subnetID),
			AllocationId:      eip.AllocationId,
			TagSpecifications: c.tagSpec(ec2types.ResourceTypeNatgateway, name, labels.RoleNetwork),
		})
		if err != nil {
			return "", fmt.Errorf("failed to create NAT gateway %s: %w", name, err)
		}
		natID = aws.ToString(created.NatGateway.NatGatewayId)
	}

	log.FromContext(ctx).Info("waiting for NAT gateway", "id", natID)
	waiter := ec2.NewNatGatewayAvailableWaiter(c.ec2)
	if err := waiter.Wait(ctx, &ec2.DescribeNatGatewaysInput{NatGatewayIds: []string{natID}}, c.timeout.NetworkCreate); err != nil {
		return "", fmt.Errorf("NAT gateway %s did not become available: %w", natID, err)
	}
	return natID, nil
}

// ensureRouteTable creates the public or private route table, its default
// route through route's gateway and the subnet associations.
func (c *Client) ensureRouteTable(ctx context.Context, cluster, vpcID string, public bool, subnetIDs []string, route *ec2.CreateRouteInput) error {
	name := naming.RouteTable(cluster, public)
	out, err := c.ec2.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
		Filters: append(nameFilter(name), vpcFilter(vpcID)),
	})
	if err != nil {
		return fmt.Errorf("failed to describe route table %s: %w", name, err)
	}

	var tableID string
	associated := map[string]bool{}
	if len(out.RouteTables) > 0 {
		rt := out.RouteTables[0]
		tableID = aws.ToString(rt.RouteTableId)
		for _, a := range rt.Associations {
			associated[aws.ToString(a.SubnetId)] = true
		}
	} else {
		created, err := c.ec2.CreateRouteTable(ctx, &ec2.CreateRouteTableInput{
			VpcId:             aws.String(vpcID),
			TagSpecifications: c.tagSpec(ec2types.ResourceTypeRouteTable, name, labels.RoleNetwork),
		})
		if err != nil {
			return fmt.Errorf("failed to create route table %s: %w", name, err)
		}
		tableID = aws.ToString(created.RouteTable.RouteTableId)
	}

	route.RouteTableId = aws.String(tableID)
	route.DestinationCidrBlock = aws.String(anyIPv4)
	if _, err := c.ec2.CreateRoute(ctx, route); err != nil && !IsAlreadyExists(err) {
		return fmt.Errorf("failed to create default route in %s: %w", name, err)
	}

	for _, subnetID := range subnetIDs {
		if associated[subnetID] {
			continue
		}
		if _, err := c.ec2.AssociateRouteTable(ctx, &ec2.AssociateRouteTableInput{
			RouteTableId: aws.String(tableID),
			SubnetId:     aws.String(subnetID),
		}); err != nil && !IsAlreadyExists(err) {
			return fmt.Errorf("failed to associate subnet %s with %s: %w", subnetID, name, err)
		}
	}
	return nil
}

func (c *Client) tagSpec(resourceType ec2types.ResourceType, name, role string) []ec2types.TagSpecification {
	return []ec2types.TagSpecification{{
		ResourceType: resourceType,
		Tags:         ec2Tags(c.resourceTags(name, role)),
	}}
}

func ec2Tags(lb *labels.LabelBuilder) []ec2types.Tag {
	pairs := lb.Pairs()
	tags := make([]ec2types.Tag, 0, len(pairs))
	for _, p := range pairs {
		tags = append(tags, ec2types.Tag{Key: aws.String(p[0]), Value: aws.String(p[1])})
	}
	return tags
}

func nameFilter(name string) []ec2types.Filter {
	return []ec2types.Filter{{Name: aws.String("tag:" + labels.KeyName), Values: []string{name}}}
}

func vpcFilter(vpcID string) ec2types.Filter {
	return ec2types.Filter{Name: aws.String("vpc-id"), Values: []string{vpcID}}
}
