// Package labels provides consistent labels for cluster objects and tags for
// AWS resources.
//
// Label keys use the kit.sh domain prefix. The same set is rendered as
// Kubernetes labels on add-on namespaces and as AWS tags on infrastructure,
// so resources of one stack can be found on both sides.
package labels
