package config

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Subnet is one subnet of the VPC plan.
type Subnet struct {
	CIDR             string
	AvailabilityZone string
	Public           bool
}

// SubnetPlan lays out one public and one private subnet per availability
// zone. Public subnets take the first indexes, private subnets follow.
type SubnetPlan struct {
	VPC     string
	Public  []Subnet
	Private []Subnet
}

// All returns the public subnets followed by the private ones.
func (p SubnetPlan) All() []Subnet {
	out := make([]Subnet, 0, len(p.Public)+len(p.Private))
	out = append(out, p.Public...)
	return append(out, p.Private...)
}

// SubnetPlan computes the subnet layout of the network.
func (n NetworkConfig) SubnetPlan() (SubnetPlan, error) {
	zones := len(n.AvailabilityZones)
	if zones == 0 {
		return SubnetPlan{}, fmt.Errorf("no availability zones configured")
	}
	if 2*zones > 1<<n.SubnetBits {
		return SubnetPlan{}, fmt.Errorf("%d subnet bits cannot hold %d subnets", n.SubnetBits, 2*zones)
	}

	plan := SubnetPlan{VPC: n.CIDR}
	for i, az := range n.AvailabilityZones {
		public, err := CIDRSubnet(n.CIDR, n.SubnetBits, i)
		if err != nil {
			return SubnetPlan{}, err
		}
		private, err := CIDRSubnet(n.CIDR, n.SubnetBits, zones+i)
		if err != nil {
			return SubnetPlan{}, err
		}
		plan.Public = append(plan.Public, Subnet{CIDR: public, AvailabilityZone: az, Public: true})
		plan.Private = append(plan.Private, Subnet{CIDR: private, AvailabilityZone: az})
	}
	return plan, nil
}

// CIDRSubnet calculates a subnet address given a network address, a netmask size increase, and a subnet number.
// This mimics the behavior of Terraform's cidrsubnet function. Only IPv4 is supported.
func CIDRSubnet(prefix string, newbits int, netnum int) (string, error) {
	_, network, err := net.ParseCIDR(prefix)
	if err != nil {
		return "", fmt.Errorf("invalid CIDR prefix: %w", err)
	}
	ip := network.IP.To4()
	if ip == nil {
		return "", fmt.Errorf("only IPv4 addresses are supported, got IPv6: %s", prefix)
	}
	if newbits < 0 || netnum < 0 {
		return "", fmt.Errorf("negative subnet arguments for %s", prefix)
	}

	maskSize, totalBits := network.Mask.Size()
	newMaskSize := maskSize + newbits
	if newMaskSize > totalBits {
		return "", fmt.Errorf("prefix extension of %d bits is too large for %s", newbits, prefix)
	}
	if maxSubnets := 1 << newbits; netnum >= maxSubnets {
		return "", fmt.Errorf("subnet number %d exceeds max subnets %d", netnum, maxSubnets)
	}

	// #nosec G115
	offset := uint32(netnum) << uint(totalBits-newMaskSize)
	base := binary.BigEndian.Uint32(ip)

	out := make(net.IP, net.IPv4len)
	binary.BigEndian.PutUint32(out, base+offset)
	return fmt.Sprintf("%s/%d", out.String(), newMaskSize), nil
}
