// Package aws provisions the AWS side of a cluster: the VPC and its subnets,
// the EKS control plane and managed node group, the IAM roles they run as
// and the roles service accounts assume through the cluster's OIDC provider.
//
// Every operation is an idempotent ensure: resources are looked up by name
// tag or name first, "already exists" responses are treated as success and
// the existing resource is described instead.
package aws
