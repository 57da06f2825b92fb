// Package helm installs add-on charts with the Helm v3 SDK.
//
// Charts are located in their repository index, loaded into memory and
// installed, or upgraded when the release already has history. Action
// configurations are built from in-memory kubeconfig bytes, one per target
// namespace. Shared value builders cover tolerations and service accounts.
package helm
