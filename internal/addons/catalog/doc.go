// Package catalog declares the add-ons kitinfra installs.
//
// Each add-on is built from the loaded configuration into an
// addons.AddonSpec: its namespace, the service accounts that get an IAM
// role, the policies attached to those roles and the charts or manifests
// that make up the workload. Configuration can disable an add-on, move it to
// another namespace, pin versions, merge chart values and replace policies.
//
// All charts tolerate the CriticalAddonsOnly taint of the system node pool.
package catalog
