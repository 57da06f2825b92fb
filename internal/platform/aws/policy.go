package aws

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/imamik/kitinfra/internal/addons"
)

const policyVersion = "2012-10-17"

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Effect    string         `json:"Effect"`
	Principal map[string]any `json:"Principal,omitempty"`
	Action    any            `json:"Action"`
	Resource  any            `json:"Resource,omitempty"`
	Condition map[string]any `json:"Condition,omitempty"`
}

func (d policyDocument) render() (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to render policy document: %w", err)
	}
	return string(data), nil
}

// serviceTrustPolicy lets an AWS service assume the role.
func serviceTrustPolicy(services ...string) policyDocument {
	return policyDocument{
		Version: policyVersion,
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: map[string]any{"Service": services},
			Action:    "sts:AssumeRole",
		}},
	}
}

// webIdentityTrustPolicy lets one service account assume the role through
// the cluster's OIDC provider.
func webIdentityTrustPolicy(providerARN, issuer, namespace, serviceAccount string) policyDocument {
	host := issuerHost(issuer)
	return policyDocument{
		Version: policyVersion,
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: map[string]any{"Federated": providerARN},
			Action:    "sts:AssumeRoleWithWebIdentity",
			Condition: map[string]any{
				"StringEquals": map[string]string{
					host + ":sub": "system:serviceaccount:" + namespace + ":" + serviceAccount,
					host + ":aud": stsAudience,
				},
			},
		}},
	}
}

// inlinePolicy renders the statements of p into a permission document.
func inlinePolicy(statements []addons.Statement) policyDocument {
	doc := policyDocument{Version: policyVersion}
	for _, s := range statements {
		doc.Statement = append(doc.Statement, policyStatement{
			Effect:    s.Effect,
			Action:    s.Actions,
			Resource:  s.Resources,
			Condition: s.Condition,
		})
	}
	return doc
}

// issuerHost strips the scheme from an OIDC issuer URL.
func issuerHost(issuer string) string {
	return strings.TrimPrefix(issuer, "https://")
}

// Partition returns the ARN partition of region.
func Partition(region string) string {
	switch {
	case strings.HasPrefix(region, "cn-"):
		return "aws-cn"
	case strings.HasPrefix(region, "us-gov-"):
		return "aws-us-gov"
	default:
		return "aws"
	}
}
