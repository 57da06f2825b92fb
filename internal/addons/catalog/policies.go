package catalog

import "github.com/imamik/kitinfra/internal/addons"

const (
	ebsCSIDriverPolicyARN    = "arn:aws:iam::aws:policy/service-role/AmazonEBSCSIDriverPolicy"
	cloudWatchAgentPolicyARN = "arn:aws:iam::aws:policy/CloudWatchAgentServerPolicy"
)

func loadBalancerControllerPolicy() addons.Policy {
	return addons.Policy{Statements: []addons.Statement{
		{
			Effect:    "Allow",
			Actions:   []string{"iam:CreateServiceLinkedRole"},
			Resources: []string{"*"},
			Condition: map[string]any{
				"StringEquals": map[string]any{"iam:AWSServiceName": "elasticloadbalancing.amazonaws.com"},
			},
		},
		addons.Allow(
			"ec2:DescribeAccountAttributes",
			"ec2:DescribeAddresses",
			"ec2:DescribeAvailabilityZones",
			"ec2:DescribeInternetGateways",
			"ec2:DescribeVpcs",
			"ec2:DescribeVpcPeeringConnections",
			"ec2:DescribeSubnets",
			"ec2:DescribeSecurityGroups",
			"ec2:DescribeInstances",
			"ec2:DescribeNetworkInterfaces",
			"ec2:DescribeTags",
			"ec2:GetCoipPoolUsage",
			"ec2:DescribeCoipPools",
			"elasticloadbalancing:Describe*",
		),
		addons.Allow(
			"cognito-idp:DescribeUserPoolClient",
			"acm:ListCertificates",
			"acm:DescribeCertificate",
			"iam:ListServerCertificates",
			"iam:GetServerCertificate",
			"waf-regional:GetWebACL",
			"waf-regional:GetWebACLForResource",
			"waf-regional:AssociateWebACL",
			"waf-regional:DisassociateWebACL",
			"wafv2:GetWebACL",
			"wafv2:GetWebACLForResource",
			"wafv2:AssociateWebACL",
			"wafv2:DisassociateWebACL",
			"shield:GetSubscriptionState",
			"shield:DescribeProtection",
			"shield:CreateProtection",
			"shield:DeleteProtection",
		),
		addons.Allow(
			"ec2:AuthorizeSecurityGroupIngress",
			"ec2:RevokeSecurityGroupIngress",
			"ec2:CreateSecurityGroup",
			"ec2:DeleteSecurityGroup",
			"ec2:CreateTags",
			"ec2:DeleteTags",
		),
		addons.Allow(
			"elasticloadbalancing:CreateLoadBalancer",
			"elasticloadbalancing:CreateTargetGroup",
			"elasticloadbalancing:CreateListener",
			"elasticloadbalancing:DeleteListener",
			"elasticloadbalancing:CreateRule",
			"elasticloadbalancing:DeleteRule",
			"elasticloadbalancing:ModifyLoadBalancerAttributes",
			"elasticloadbalancing:SetIpAddressType",
			"elasticloadbalancing:SetSecurityGroups",
			"elasticloadbalancing:SetSubnets",
			"elasticloadbalancing:DeleteLoadBalancer",
			"elasticloadbalancing:ModifyTargetGroup",
			"elasticloadbalancing:ModifyTargetGroupAttributes",
			"elasticloadbalancing:DeleteTargetGroup",
			"elasticloadbalancing:RegisterTargets",
			"elasticloadbalancing:DeregisterTargets",
			"elasticloadbalancing:SetWebAcl",
			"elasticloadbalancing:ModifyListener",
			"elasticloadbalancing:AddListenerCertificates",
			"elasticloadbalancing:RemoveListenerCertificates",
			"elasticloadbalancing:ModifyRule",
			"elasticloadbalancing:AddTags",
			"elasticloadbalancing:RemoveTags",
		),
	}}
}

func karpenterPolicy() addons.Policy {
	return addons.Policy{Statements: []addons.Statement{addons.Allow(
		"ec2:CreateLaunchTemplate",
		"ec2:CreateFleet",
		"ec2:RunInstances",
		"ec2:CreateTags",
		"iam:PassRole",
		"ec2:TerminateInstances",
		"ec2:DeleteLaunchTemplate",
		"ec2:DescribeLaunchTemplates",
		"ec2:DescribeInstances",
		"ec2:DescribeSecurityGroups",
		"ec2:DescribeSubnets",
		"ec2:DescribeInstanceTypes",
		"ec2:DescribeInstanceTypeOfferings",
		"ec2:DescribeAvailabilityZones",
		"ec2:DescribeSpotPriceHistory",
		"ec2:DescribeImages",
		"ssm:GetParameter",
		"pricing:GetProducts",
	)}}
}

func crossplanePolicy() addons.Policy {
	return addons.Policy{Statements: []addons.Statement{addons.Allow("iam:*", "sts:*")}}
}

func perfdashPolicy() addons.Policy {
	return addons.Policy{Statements: []addons.Statement{addons.Allow(
		"s3:Get*",
		"s3:List*",
		"s3-object-lambda:Get*",
		"s3-object-lambda:List*",
	)}}
}

func tektonTestsPolicy() addons.Policy {
	return addons.Policy{Statements: []addons.Statement{addons.Allow(
		"ec2:*",
		"cloudformation:*",
		"iam:*",
		"ssm:GetParameter",
		"eks:*",
		"pricing:GetProducts",
		"sts:AssumeRole",
		"s3:*",
	)}}
}
