package naming

import (
	"strings"
	"testing"
)

func TestNamingFunctions(t *testing.T) {
	cluster := "kit"

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{name: "VPC", got: VPC(cluster), expected: "kit-vpc"},
		{name: "InternetGateway", got: InternetGateway(cluster), expected: "kit-igw"},
		{name: "NATGateway", got: NATGateway(cluster), expected: "kit-nat"},
		{name: "NodeSecurityGroup", got: NodeSecurityGroup(cluster), expected: "kit-node-sg"},
		{name: "PublicSubnet", got: Subnet(cluster, "us-west-2a", true), expected: "kit-public-us-west-2a"},
		{name: "PrivateSubnet", got: Subnet(cluster, "us-west-2b", false), expected: "kit-private-us-west-2b"},
		{name: "PublicRouteTable", got: RouteTable(cluster, true), expected: "kit-public"},
		{name: "PrivateRouteTable", got: RouteTable(cluster, false), expected: "kit-private"},
		{name: "ClusterRole", got: ClusterRole(cluster), expected: "kit-cluster"},
		{name: "NodeRole", got: NodeRole(cluster), expected: "kit-node"},
		{name: "NodeGroup", got: NodeGroup(cluster, "system"), expected: "kit-system"},
		{name: "KarpenterInstanceProfile", got: KarpenterInstanceProfile(cluster), expected: "KarpenterNodeInstanceProfile-kit"},
		{name: "ServiceAccountRole", got: ServiceAccountRole(cluster, "karpenter", "karpenter"), expected: "kit-karpenter-karpenter"},
		{name: "PolicyName", got: PolicyName("karpenter", "karpenter"), expected: "karpenter-karpenter"},
		{name: "PlanKey", got: PlanKey("plans", cluster, "run-1"), expected: "plans/kit/run-1.json"},
		{name: "PlanKeyNoPrefix", got: PlanKey("", cluster, "run-1"), expected: "kit/run-1.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestServiceAccountRole_Truncation(t *testing.T) {
	cluster := "a-very-long-cluster-name-used-for-integration"
	a := ServiceAccountRole(cluster, "aws-load-balancer-controller", "aws-load-balancer-controller")
	b := ServiceAccountRole(cluster, "aws-load-balancer-controller", "aws-load-balancer-controllers")

	if len(a) != MaxRoleNameLength {
		t.Errorf("len = %d, want %d", len(a), MaxRoleNameLength)
	}
	if a == b {
		t.Errorf("truncated names collide: %q", a)
	}
	if !strings.HasPrefix(a, cluster+"-aws-load-balancer") {
		t.Errorf("truncated name lost its prefix: %q", a)
	}
	if a != ServiceAccountRole(cluster, "aws-load-balancer-controller", "aws-load-balancer-controller") {
		t.Error("ServiceAccountRole is not deterministic")
	}
}
