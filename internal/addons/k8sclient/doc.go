// Package k8sclient is the cluster side of add-on installation. It creates
// namespaces, applies manifests with Server-Side Apply, annotates service
// accounts for workload identity, maps node roles into aws-auth and waits for
// objects to become ready. Clients are built directly from kubeconfig bytes.
package k8sclient
