// Package provisioning bootstraps the cluster the add-ons are installed into.
//
// Bootstrap runs a fixed sequence of phases: pre-flight validation, network,
// control plane, node pool and node identity registration. Each phase is a
// blocking call to a collaborator; phases never retry. A failure stops the
// run and is reported as *BootstrapError naming the failed step. Because
// every collaborator call is an idempotent upsert, the caller recovers by
// running Bootstrap again from the top.
//
// # Core Types
//
// Context carries the configuration, the collaborators and the State the
// phases fill in. Phase defines a step with Name() and Provision() methods.
// ClusterHandle is the result handed to the add-on orchestrator.
package provisioning
