// Package addons defines the declarative model for cluster add-ons.
//
// An add-on is described by an [AddonSpec]: a namespace, an ordered list of
// [ResourceNode] values and the names of other add-ons it depends on. Every
// add-on installs in the same shape:
//
//	Namespace -> Identity -> Permission -> Workload
//
// Specs are validated when they are constructed, before anything talks to a
// cluster, so an invalid configuration never causes a partial install.
//
// Ordering across add-ons is computed by the graph subpackage and executed by
// the orchestrator subpackage. The collaborators that actually touch the
// cluster and the cloud are described by the interfaces in this package and
// implemented in k8sclient, helm and platform/aws.
package addons
