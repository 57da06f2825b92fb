package aws

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

const testAccount = "123456789012"

// recorder keeps the names of the mutating calls made on a fake.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

func (r *recorder) count(call string) int {
	n := 0
	for _, c := range r.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

// fakeEC2 is an in-memory EC2API that matches resources by Name tag.
type fakeEC2 struct {
	recorder
	nextID      int
	vpcs        []ec2types.Vpc
	igws        []ec2types.InternetGateway
	subnets     []ec2types.Subnet
	routeTables []ec2types.RouteTable
	nats        []ec2types.NatGateway
	groups      []ec2types.SecurityGroup
	routes      map[string]string   // route table ID -> gateway
	ingress     map[string][]string // group ID -> source group IDs
}

func newFakeEC2() *fakeEC2 {
	return &fakeEC2{routes: map[string]string{}, ingress: map[string][]string{}}
}

func (f *fakeEC2) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%04d", prefix, f.nextID)
}

func tagsOf(specs []ec2types.TagSpecification) []ec2types.Tag {
	if len(specs) == 0 {
		return nil
	}
	return specs[0].Tags
}

func tagValue(tags []ec2types.Tag, key string) string {
	for _, t := range tags {
		if aws.ToString(t.Key) == key {
			return aws.ToString(t.Value)
		}
	}
	return ""
}

// matches applies tag:Name and vpc-id filters.
func matches(filters []ec2types.Filter, tags []ec2types.Tag, vpcID *string) bool {
	for _, f := range filters {
		switch name := aws.ToString(f.Name); name {
		case "tag:Name":
			if !slices.Contains(f.Values, tagValue(tags, "Name")) {
				return false
			}
		case "vpc-id":
			if !slices.Contains(f.Values, aws.ToString(vpcID)) {
				return false
			}
		}
	}
	return true
}

func (f *fakeEC2) DescribeVpcs(_ context.Context, in *ec2.DescribeVpcsInput, _ ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error) {
	out := &ec2.DescribeVpcsOutput{}
	for _, v := range f.vpcs {
		if len(in.VpcIds) > 0 && !slices.Contains(in.VpcIds, aws.ToString(v.VpcId)) {
			continue
		}
		if matches(in.Filters, v.Tags, nil) {
			out.Vpcs = append(out.Vpcs, v)
		}
	}
	return out, nil
}

func (f *fakeEC2) CreateVpc(_ context.Context, in *ec2.CreateVpcInput, _ ...func(*ec2.Options)) (*ec2.CreateVpcOutput, error) {
	f.record("CreateVpc")
	v := ec2types.Vpc{VpcId: aws.String(f.id("vpc")), CidrBlock: in.CidrBlock, State: ec2types.VpcStateAvailable, Tags: tagsOf(in.TagSpecifications)}
	f.vpcs = append(f.vpcs, v)
	return &ec2.CreateVpcOutput{Vpc: &v}, nil
}

func (f *fakeEC2) ModifyVpcAttribute(context.Context, *ec2.ModifyVpcAttributeInput, ...func(*ec2.Options)) (*ec2.ModifyVpcAttributeOutput, error) {
	f.record("ModifyVpcAttribute")
	return &ec2.ModifyVpcAttributeOutput{}, nil
}

func (f *fakeEC2) DescribeInternetGateways(_ context.Context, in *ec2.DescribeInternetGatewaysInput, _ ...func(*ec2.Options)) (*ec2.DescribeInternetGatewaysOutput, error) {
	out := &ec2.DescribeInternetGatewaysOutput{}
	for _, g := range f.igws {
		if matches(in.Filters, g.Tags, nil) {
			out.InternetGateways = append(out.InternetGateways, g)
		}
	}
	return out, nil
}

func (f *fakeEC2) CreateInternetGateway(_ context.Context, in *ec2.CreateInternetGatewayInput, _ ...func(*ec2.Options)) (*ec2.CreateInternetGatewayOutput, error) {
	f.record("CreateInternetGateway")
	g := ec2types.InternetGateway{InternetGatewayId: aws.String(f.id("igw")), Tags: tagsOf(in.TagSpecifications)}
	f.igws = append(f.igws, g)
	return &ec2.CreateInternetGatewayOutput{InternetGateway: &g}, nil
}

func (f *fakeEC2) AttachInternetGateway(_ context.Context, in *ec2.AttachInternetGatewayInput, _ ...func(*ec2.Options)) (*ec2.AttachInternetGatewayOutput, error) {
	f.record("AttachInternetGateway")
	for i, g := range f.igws {
		if aws.ToString(g.InternetGatewayId) == aws.ToString(in.InternetGatewayId) {
			f.igws[i].Attachments = append(f.igws[i].Attachments, ec2types.InternetGatewayAttachment{VpcId: in.VpcId})
		}
	}
	return &ec2.AttachInternetGatewayOutput{}, nil
}

func (f *fakeEC2) DescribeSubnets(_ context.Context, in *ec2.DescribeSubnetsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error) {
	out := &ec2.DescribeSubnetsOutput{}
	for _, s := range f.subnets {
		if matches(in.Filters, s.Tags, s.VpcId) {
			out.Subnets = append(out.Subnets, s)
		}
	}
	return out, nil
}

func (f *fakeEC2) CreateSubnet(_ context.Context, in *ec2.CreateSubnetInput, _ ...func(*ec2.Options)) (*ec2.CreateSubnetOutput, error) {
	f.record("CreateSubnet")
	s := ec2types.Subnet{
		SubnetId:         aws.String(f.id("subnet")),
		VpcId:            in.VpcId,
		CidrBlock:        in.CidrBlock,
		AvailabilityZone: in.AvailabilityZone,
		Tags:             tagsOf(in.TagSpecifications),
	}
	f.subnets = append(f.subnets, s)
	return &ec2.CreateSubnetOutput{Subnet: &s}, nil
}

func (f *fakeEC2) ModifySubnetAttribute(context.Context, *ec2.ModifySubnetAttributeInput, ...func(*ec2.Options)) (*ec2.ModifySubnetAttributeOutput, error) {
	f.record("ModifySubnetAttribute")
	return &ec2.ModifySubnetAttributeOutput{}, nil
}

func (f *fakeEC2) DescribeRouteTables(_ context.Context, in *ec2.DescribeRouteTablesInput, _ ...func(*ec2.Options)) (*ec2.DescribeRouteTablesOutput, error) {
	out := &ec2.DescribeRouteTablesOutput{}
	for _, rt := range f.routeTables {
		if matches(in.Filters, rt.Tags, rt.VpcId) {
			out.RouteTables = append(out.RouteTables, rt)
		}
	}
	return out, nil
}

func (f *fakeEC2) CreateRouteTable(_ context.Context, in *ec2.CreateRouteTableInput, _ ...func(*ec2.Options)) (*ec2.CreateRouteTableOutput, error) {
	f.record("CreateRouteTable")
	rt := ec2types.RouteTable{RouteTableId: aws.String(f.id("rtb")), VpcId: in.VpcId, Tags: tagsOf(in.TagSpecifications)}
	f.routeTables = append(f.routeTables, rt)
	return &ec2.CreateRouteTableOutput{RouteTable: &rt}, nil
}

func (f *fakeEC2) CreateRoute(_ context.Context, in *ec2.CreateRouteInput, _ ...func(*ec2.Options)) (*ec2.CreateRouteOutput, error) {
	table := aws.ToString(in.RouteTableId)
	if _, ok := f.routes[table]; ok {
		return nil, apiError("RouteAlreadyExists", "route exists")
	}
	f.record("CreateRoute")
	f.routes[table] = aws.ToString(in.GatewayId) + aws.ToString(in.NatGatewayId)
	return &ec2.CreateRouteOutput{Return: aws.Bool(true)}, nil
}

func (f *fakeEC2) AssociateRouteTable(_ context.Context, in *ec2.AssociateRouteTableInput, _ ...func(*ec2.Options)) (*ec2.AssociateRouteTableOutput, error) {
	f.record("AssociateRouteTable")
	for i, rt := range f.routeTables {
		if aws.ToString(rt.RouteTableId) == aws.ToString(in.RouteTableId) {
			f.routeTables[i].Associations = append(f.routeTables[i].Associations, ec2types.RouteTableAssociation{SubnetId: in.SubnetId})
		}
	}
	return &ec2.AssociateRouteTableOutput{}, nil
}

func (f *fakeEC2) AllocateAddress(context.Context, *ec2.AllocateAddressInput, ...func(*ec2.Options)) (*ec2.AllocateAddressOutput, error) {
	f.record("AllocateAddress")
	return &ec2.AllocateAddressOutput{AllocationId: aws.String(f.id("eipalloc"))}, nil
}

func (f *fakeEC2) DescribeNatGateways(_ context.Context, in *ec2.DescribeNatGatewaysInput, _ ...func(*ec2.Options)) (*ec2.DescribeNatGatewaysOutput, error) {
	out := &ec2.DescribeNatGatewaysOutput{}
	for _, n := range f.nats {
		if len(in.NatGatewayIds) > 0 && !slices.Contains(in.NatGatewayIds, aws.ToString(n.NatGatewayId)) {
			continue
		}
		if matches(in.Filter, n.Tags, nil) {
			out.NatGateways = append(out.NatGateways, n)
		}
	}
	return out, nil
}

func (f *fakeEC2) CreateNatGateway(_ context.Context, in *ec2.CreateNatGatewayInput, _ ...func(*ec2.Options)) (*ec2.CreateNatGatewayOutput, error) {
	f.record("CreateNatGateway")
	n := ec2types.NatGateway{
		NatGatewayId: aws.String(f.id("nat")),
		SubnetId:     in.SubnetId,
		State:        ec2types.NatGatewayStateAvailable,
		Tags:         tagsOf(in.TagSpecifications),
	}
	f.nats = append(f.nats, n)
	return &ec2.CreateNatGatewayOutput{NatGateway: &n}, nil
}

func (f *fakeEC2) DescribeSecurityGroups(_ context.Context, in *ec2.DescribeSecurityGroupsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error) {
	out := &ec2.DescribeSecurityGroupsOutput{}
	for _, g := range f.groups {
		if matches(in.Filters, g.Tags, g.VpcId) {
			out.SecurityGroups = append(out.SecurityGroups, g)
		}
	}
	return out, nil
}

func (f *fakeEC2) CreateSecurityGroup(_ context.Context, in *ec2.CreateSecurityGroupInput, _ ...func(*ec2.Options)) (*ec2.CreateSecurityGroupOutput, error) {
	f.record("CreateSecurityGroup")
	g := ec2types.SecurityGroup{
		GroupId:   aws.String(f.id("sg")),
		GroupName: in.GroupName,
		VpcId:     in.VpcId,
		Tags:      tagsOf(in.TagSpecifications),
	}
	f.groups = append(f.groups, g)
	return &ec2.CreateSecurityGroupOutput{GroupId: g.GroupId}, nil
}

func (f *fakeEC2) AuthorizeSecurityGroupIngress(_ context.Context, in *ec2.AuthorizeSecurityGroupIngressInput, _ ...func(*ec2.Options)) (*ec2.AuthorizeSecurityGroupIngressOutput, error) {
	group := aws.ToString(in.GroupId)
	for _, perm := range in.IpPermissions {
		for _, pair := range perm.UserIdGroupPairs {
			source := aws.ToString(pair.GroupId)
			if slices.Contains(f.ingress[group], source) {
				return nil, apiError("InvalidPermission.Duplicate", "rule already exists")
			}
			f.record("AuthorizeSecurityGroupIngress")
			f.ingress[group] = append(f.ingress[group], source)
		}
	}
	return &ec2.AuthorizeSecurityGroupIngressOutput{}, nil
}

// fakeIAM is an in-memory IAMAPI.
type fakeIAM struct {
	recorder
	roles    map[string]*iamtypes.Role
	trust    map[string]string
	attached map[string][]string
	inline   map[string]map[string]string
	profiles map[string][]string
	oidc     map[string]bool

	// createRoleErrs are returned by successive CreateRole calls.
	createRoleErrs []error
}

func newFakeIAM() *fakeIAM {
	return &fakeIAM{
		roles:    map[string]*iamtypes.Role{},
		trust:    map[string]string{},
		attached: map[string][]string{},
		inline:   map[string]map[string]string{},
		profiles: map[string][]string{},
		oidc:     map[string]bool{},
	}
}

func (f *fakeIAM) GetRole(_ context.Context, in *iam.GetRoleInput, _ ...func(*iam.Options)) (*iam.GetRoleOutput, error) {
	r, ok := f.roles[aws.ToString(in.RoleName)]
	if !ok {
		return nil, apiError("NoSuchEntity", "role not found")
	}
	return &iam.GetRoleOutput{Role: r}, nil
}

func (f *fakeIAM) CreateRole(_ context.Context, in *iam.CreateRoleInput, _ ...func(*iam.Options)) (*iam.CreateRoleOutput, error) {
	f.record("CreateRole")
	if len(f.createRoleErrs) > 0 {
		err := f.createRoleErrs[0]
		f.createRoleErrs = f.createRoleErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	name := aws.ToString(in.RoleName)
	r := &iamtypes.Role{RoleName: in.RoleName, Arn: aws.String("arn:aws:iam::" + testAccount + ":role/" + name), Tags: in.Tags}
	f.roles[name] = r
	f.trust[name] = aws.ToString(in.AssumeRolePolicyDocument)
	return &iam.CreateRoleOutput{Role: r}, nil
}

func (f *fakeIAM) UpdateAssumeRolePolicy(_ context.Context, in *iam.UpdateAssumeRolePolicyInput, _ ...func(*iam.Options)) (*iam.UpdateAssumeRolePolicyOutput, error) {
	f.record("UpdateAssumeRolePolicy")
	f.trust[aws.ToString(in.RoleName)] = aws.ToString(in.PolicyDocument)
	return &iam.UpdateAssumeRolePolicyOutput{}, nil
}

func (f *fakeIAM) AttachRolePolicy(_ context.Context, in *iam.AttachRolePolicyInput, _ ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error) {
	f.record("AttachRolePolicy")
	role := aws.ToString(in.RoleName)
	if !slices.Contains(f.attached[role], aws.ToString(in.PolicyArn)) {
		f.attached[role] = append(f.attached[role], aws.ToString(in.PolicyArn))
	}
	return &iam.AttachRolePolicyOutput{}, nil
}

func (f *fakeIAM) PutRolePolicy(_ context.Context, in *iam.PutRolePolicyInput, _ ...func(*iam.Options)) (*iam.PutRolePolicyOutput, error) {
	f.record("PutRolePolicy")
	role := aws.ToString(in.RoleName)
	if f.inline[role] == nil {
		f.inline[role] = map[string]string{}
	}
	f.inline[role][aws.ToString(in.PolicyName)] = aws.ToString(in.PolicyDocument)
	return &iam.PutRolePolicyOutput{}, nil
}

func (f *fakeIAM) GetInstanceProfile(_ context.Context, in *iam.GetInstanceProfileInput, _ ...func(*iam.Options)) (*iam.GetInstanceProfileOutput, error) {
	name := aws.ToString(in.InstanceProfileName)
	roles, ok := f.profiles[name]
	if !ok {
		return nil, apiError("NoSuchEntity", "instance profile not found")
	}
	out := &iamtypes.InstanceProfile{InstanceProfileName: in.InstanceProfileName}
	for _, r := range roles {
		out.Roles = append(out.Roles, iamtypes.Role{RoleName: aws.String(r)})
	}
	return &iam.GetInstanceProfileOutput{InstanceProfile: out}, nil
}

func (f *fakeIAM) CreateInstanceProfile(_ context.Context, in *iam.CreateInstanceProfileInput, _ ...func(*iam.Options)) (*iam.CreateInstanceProfileOutput, error) {
	f.record("CreateInstanceProfile")
	f.profiles[aws.ToString(in.InstanceProfileName)] = nil
	return &iam.CreateInstanceProfileOutput{InstanceProfile: &iamtypes.InstanceProfile{InstanceProfileName: in.InstanceProfileName}}, nil
}

func (f *fakeIAM) AddRoleToInstanceProfile(_ context.Context, in *iam.AddRoleToInstanceProfileInput, _ ...func(*iam.Options)) (*iam.AddRoleToInstanceProfileOutput, error) {
	f.record("AddRoleToInstanceProfile")
	name := aws.ToString(in.InstanceProfileName)
	f.profiles[name] = append(f.profiles[name], aws.ToString(in.RoleName))
	return &iam.AddRoleToInstanceProfileOutput{}, nil
}

func (f *fakeIAM) CreateOpenIDConnectProvider(_ context.Context, in *iam.CreateOpenIDConnectProviderInput, _ ...func(*iam.Options)) (*iam.CreateOpenIDConnectProviderOutput, error) {
	f.record("CreateOpenIDConnectProvider")
	host := issuerHost(aws.ToString(in.Url))
	if f.oidc[host] {
		return nil, apiError("EntityAlreadyExists", "provider exists")
	}
	f.oidc[host] = true
	return &iam.CreateOpenIDConnectProviderOutput{
		OpenIDConnectProviderArn: aws.String("arn:aws:iam::" + testAccount + ":oidc-provider/" + host),
	}, nil
}

// fakeEKS is an in-memory EKSAPI whose resources are ACTIVE once created.
type fakeEKS struct {
	recorder
	clusters   map[string]*ekstypes.Cluster
	nodegroups map[string]*ekstypes.Nodegroup

	lastCluster   *eks.CreateClusterInput
	lastNodegroup *eks.CreateNodegroupInput

	// createClusterErrs are returned by successive CreateCluster calls.
	createClusterErrs []error
}

func newFakeEKS() *fakeEKS {
	return &fakeEKS{clusters: map[string]*ekstypes.Cluster{}, nodegroups: map[string]*ekstypes.Nodegroup{}}
}

func (f *fakeEKS) DescribeCluster(_ context.Context, in *eks.DescribeClusterInput, _ ...func(*eks.Options)) (*eks.DescribeClusterOutput, error) {
	c, ok := f.clusters[aws.ToString(in.Name)]
	if !ok {
		return nil, &ekstypes.ResourceNotFoundException{Message: aws.String("no cluster")}
	}
	return &eks.DescribeClusterOutput{Cluster: c}, nil
}

func (f *fakeEKS) CreateCluster(_ context.Context, in *eks.CreateClusterInput, _ ...func(*eks.Options)) (*eks.CreateClusterOutput, error) {
	f.record("CreateCluster")
	if len(f.createClusterErrs) > 0 {
		err := f.createClusterErrs[0]
		f.createClusterErrs = f.createClusterErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	f.lastCluster = in
	name := aws.ToString(in.Name)
	c := &ekstypes.Cluster{
		Name:                 in.Name,
		Arn:                  aws.String("arn:aws:eks:us-west-2:" + testAccount + ":cluster/" + name),
		Version:              aws.String("1.30"),
		Endpoint:             aws.String("https://ABCDEF.gr7.us-west-2.eks.amazonaws.com"),
		Status:               ekstypes.ClusterStatusActive,
		CertificateAuthority: &ekstypes.Certificate{Data: aws.String("Y2EtZGF0YQ==")},
		Identity: &ekstypes.Identity{Oidc: &ekstypes.OIDC{
			Issuer: aws.String("https://oidc.eks.us-west-2.amazonaws.com/id/ABCDEF"),
		}},
		ResourcesVpcConfig: &ekstypes.VpcConfigResponse{
			VpcId:                  aws.String("vpc-0001"),
			ClusterSecurityGroupId: aws.String("sg-cluster"),
		},
	}
	f.clusters[name] = c
	return &eks.CreateClusterOutput{Cluster: c}, nil
}

func (f *fakeEKS) DescribeNodegroup(_ context.Context, in *eks.DescribeNodegroupInput, _ ...func(*eks.Options)) (*eks.DescribeNodegroupOutput, error) {
	ng, ok := f.nodegroups[aws.ToString(in.NodegroupName)]
	if !ok {
		return nil, &ekstypes.ResourceNotFoundException{Message: aws.String("no node group")}
	}
	return &eks.DescribeNodegroupOutput{Nodegroup: ng}, nil
}

func (f *fakeEKS) CreateNodegroup(_ context.Context, in *eks.CreateNodegroupInput, _ ...func(*eks.Options)) (*eks.CreateNodegroupOutput, error) {
	f.record("CreateNodegroup")
	f.lastNodegroup = in
	name := aws.ToString(in.NodegroupName)
	ng := &ekstypes.Nodegroup{
		NodegroupName: in.NodegroupName,
		NodegroupArn:  aws.String("arn:aws:eks:us-west-2:" + testAccount + ":nodegroup/" + name),
		Status:        ekstypes.NodegroupStatusActive,
	}
	f.nodegroups[name] = ng
	return &eks.CreateNodegroupOutput{Nodegroup: ng}, nil
}

type fakeSTS struct {
	recorder
	err error
}

func (f *fakeSTS) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	f.record("GetCallerIdentity")
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{Account: aws.String(testAccount)}, nil
}

// fakeSigner returns a URL carrying the cluster header it was asked to sign.
type fakeSigner struct{}

func (fakeSigner) PresignGetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, optFns ...func(*sts.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	po := &sts.PresignOptions{}
	for _, fn := range optFns {
		fn(po)
	}
	o := &sts.Options{}
	for _, fn := range po.ClientOptions {
		fn(o)
	}
	q := url.Values{"Action": {"GetCallerIdentity"}, "Version": {"2011-06-15"}, "apiOptions": {fmt.Sprint(len(o.APIOptions))}}
	return &v4.PresignedHTTPRequest{URL: "https://sts.us-west-2.amazonaws.com/?" + q.Encode(), Method: "GET"}, nil
}

type fakes struct {
	ec2 *fakeEC2
	eks *fakeEKS
	iam *fakeIAM
	sts *fakeSTS
}

func newTestClient() (*Client, *fakes) {
	f := &fakes{ec2: newFakeEC2(), eks: newFakeEKS(), iam: newFakeIAM(), sts: &fakeSTS{}}
	c := NewFromClients("kit", "us-west-2", f.ec2, f.eks, f.iam, f.sts, fakeSigner{}).WithTimeouts(Timeouts{
		NetworkCreate:     time.Second,
		ClusterActive:     time.Second,
		NodegroupActive:   time.Second,
		RetryMaxAttempts:  3,
		RetryInitialDelay: time.Millisecond,
	})
	return c, f
}
