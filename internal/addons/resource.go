package addons

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the kind of a declarative resource node.
type Kind string

const (
	// KindNamespace creates the namespace an add-on lives in.
	KindNamespace Kind = "Namespace"
	// KindIdentity binds a service account to a cloud identity.
	KindIdentity Kind = "Identity"
	// KindPermission attaches a permission policy to an identity.
	KindPermission Kind = "Permission"
	// KindWorkload installs a chart or applies manifests.
	KindWorkload Kind = "Workload"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindNamespace, KindIdentity, KindPermission, KindWorkload:
		return true
	}
	return false
}

// NodeID is the qualified identity of a node: "<addon>/<node>".
type NodeID string

const nodeIDSeparator = "/"

// NewNodeID qualifies a node name with its owning add-on.
func NewNodeID(addon, node string) NodeID {
	return NodeID(addon + nodeIDSeparator + node)
}

// Addon returns the add-on part of the ID.
func (id NodeID) Addon() string {
	addon, _, _ := strings.Cut(string(id), nodeIDSeparator)
	return addon
}

// Node returns the node part of the ID.
func (id NodeID) Node() string {
	_, node, _ := strings.Cut(string(id), nodeIDSeparator)
	return node
}

// ResourceNode is one declarative unit of an add-on.
type ResourceNode struct {
	// Kind selects the collaborator the node is dispatched to.
	Kind Kind `json:"kind"`

	// Name is unique within the owning add-on.
	Name string `json:"name"`

	// Namespace is the Kubernetes namespace the node targets.
	Namespace string `json:"namespace"`

	// DependsOn lists names of nodes in the same add-on that must be
	// ready before this one starts.
	DependsOn []string `json:"dependsOn,omitempty"`

	// Labels are applied to Namespace nodes.
	Labels map[string]string `json:"labels,omitempty"`

	// ServiceAccount is the service account bound by an Identity node.
	ServiceAccount string `json:"serviceAccount,omitempty"`

	// Identity names the Identity node a Permission node attaches to.
	Identity string `json:"identity,omitempty"`

	// Policy is the permission set of a Permission node.
	Policy *Policy `json:"policy,omitempty"`

	// Chart is the release installed by a chart Workload node.
	Chart *ChartRelease `json:"chart,omitempty"`

	// Manifest holds the objects applied by a manifest Workload node.
	Manifest *Manifest `json:"manifest,omitempty"`

	// ReadyChecks are waited on after a Workload node is submitted.
	ReadyChecks []ObjectRef `json:"readyChecks,omitempty"`
}

// Describe returns a short human readable description of the node payload.
func (n *ResourceNode) Describe() string {
	switch n.Kind {
	case KindNamespace:
		return fmt.Sprintf("namespace %s", n.Namespace)
	case KindIdentity:
		return fmt.Sprintf("service account %s/%s", n.Namespace, n.ServiceAccount)
	case KindPermission:
		return fmt.Sprintf("policy for %s", n.Identity)
	case KindWorkload:
		if n.Chart != nil {
			return fmt.Sprintf("chart %s@%s as %s", n.Chart.Chart, n.Chart.Version, n.Chart.Release)
		}
		if n.Manifest != nil {
			return fmt.Sprintf("manifest (%d objects)", len(n.Manifest.Objects))
		}
	}
	return string(n.Kind)
}

// ChartRelease describes a Helm release.
type ChartRelease struct {
	Release    string         `json:"release"`
	Chart      string         `json:"chart"`
	Repository string         `json:"repository"`
	Version    string         `json:"version,omitempty"`
	Values     map[string]any `json:"values,omitempty"`
	Wait       bool           `json:"wait,omitempty"`

	// Timeout bounds the install when Wait is set. Zero uses the installer default.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Manifest is a list of Kubernetes objects applied together.
type Manifest struct {
	Objects []map[string]any `json:"objects"`
}

// ObjectRef identifies a Kubernetes object to wait on.
type ObjectRef struct {
	APIVersion string `json:"apiVersion"`
	Kind       string `json:"kind"`
	Namespace  string `json:"namespace,omitempty"`
	Name       string `json:"name"`
}

func (r ObjectRef) String() string {
	if r.Namespace == "" {
		return fmt.Sprintf("%s %s", r.Kind, r.Name)
	}
	return fmt.Sprintf("%s %s/%s", r.Kind, r.Namespace, r.Name)
}

// Policy is a permission set attached to an identity.
// Any combination of the three sources may be set.
type Policy struct {
	// Name is the inline policy name. Defaults to the identity name.
	Name string `json:"name,omitempty"`

	// Statements are rendered into an inline policy document.
	Statements []Statement `json:"statements,omitempty"`

	// Document is a complete policy document, attached verbatim.
	Document string `json:"document,omitempty"`

	// ManagedPolicyARNs are attached by reference.
	ManagedPolicyARNs []string `json:"managedPolicyArns,omitempty"`
}

// Empty reports whether the policy grants nothing.
func (p *Policy) Empty() bool {
	return p == nil || (len(p.Statements) == 0 && p.Document == "" && len(p.ManagedPolicyARNs) == 0)
}

// Statement is a single IAM policy statement.
type Statement struct {
	Effect    string         `json:"Effect"`
	Actions   []string       `json:"Action"`
	Resources []string       `json:"Resource"`
	Condition map[string]any `json:"Condition,omitempty"`
}

// Allow builds an Allow statement over the given actions on all resources.
func Allow(actions ...string) Statement {
	return Statement{Effect: "Allow", Actions: actions, Resources: []string{"*"}}
}
