package naming

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// MaxRoleNameLength is the IAM limit for role names.
const MaxRoleNameLength = 64

func VPC(cluster string) string {
	return fmt.Sprintf("%s-vpc", cluster)
}

func InternetGateway(cluster string) string {
	return fmt.Sprintf("%s-igw", cluster)
}

func NATGateway(cluster string) string {
	return fmt.Sprintf("%s-nat", cluster)
}

func Subnet(cluster, zone string, public bool) string {
	return fmt.Sprintf("%s-%s-%s", cluster, tier(public), zone)
}

func RouteTable(cluster string, public bool) string {
	return fmt.Sprintf("%s-%s", cluster, tier(public))
}

func NodeSecurityGroup(cluster string) string {
	return fmt.Sprintf("%s-node-sg", cluster)
}

func ClusterRole(cluster string) string {
	return fmt.Sprintf("%s-cluster", cluster)
}

func NodeRole(cluster string) string {
	return fmt.Sprintf("%s-node", cluster)
}

func NodeGroup(cluster, pool string) string {
	return fmt.Sprintf("%s-%s", cluster, pool)
}

// KarpenterInstanceProfile is the instance profile Karpenter launches nodes with.
func KarpenterInstanceProfile(cluster string) string {
	return fmt.Sprintf("KarpenterNodeInstanceProfile-%s", cluster)
}

// ServiceAccountRole returns the IAM role name assumed by a service account.
func ServiceAccountRole(cluster, namespace, serviceAccount string) string {
	name := fmt.Sprintf("%s-%s-%s", cluster, namespace, serviceAccount)
	if len(name) <= MaxRoleNameLength {
		return name
	}
	sum := sha256.Sum256([]byte(name))
	suffix := hex.EncodeToString(sum[:])[:8]
	return name[:MaxRoleNameLength-len(suffix)-1] + "-" + suffix
}

// PolicyName returns the inline policy name for an add-on identity.
func PolicyName(addon, identity string) string {
	return fmt.Sprintf("%s-%s", addon, identity)
}

// PlanKey returns the object key a plan is archived under.
func PlanKey(prefix, cluster, runID string) string {
	if prefix == "" {
		return fmt.Sprintf("%s/%s.json", cluster, runID)
	}
	return fmt.Sprintf("%s/%s/%s.json", prefix, cluster, runID)
}

func tier(public bool) string {
	if public {
		return "public"
	}
	return "private"
}
