// Package naming provides consistent names for the AWS resources of a cluster.
//
// Infrastructure names follow the pattern {cluster}-{type}. IAM role names
// are limited to 64 characters; longer service account role names are
// shortened and suffixed with a hash of the full name so they stay unique.
package naming
