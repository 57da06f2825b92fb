package labels

import (
	"maps"
	"slices"
)

const (
	// KeyStack identifies the stack (cluster) a resource belongs to.
	KeyStack = "kit.sh/stack"

	// KeyAddon identifies the add-on that owns a namespace.
	KeyAddon = "kit.sh/addon"

	// KeyRole identifies the role of an AWS resource (cluster, node, workload).
	KeyRole = "kit.sh/role"

	// KeyManagedBy identifies the management system.
	KeyManagedBy = "app.kubernetes.io/managed-by"

	// KeyName is the tag the AWS console shows as the resource name.
	KeyName = "Name"
)

// Role values
const (
	RoleCluster  = "cluster"
	RoleNode     = "node"
	RoleWorkload = "workload"
	RoleNetwork  = "network"
)

// ManagedByKitinfra is the KeyManagedBy value for everything kitinfra creates.
const ManagedByKitinfra = "kitinfra"

// LabelBuilder provides a fluent interface for building label sets.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a builder with the stack and manager pre-set.
func NewLabelBuilder(stack string) *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyStack:     stack,
			KeyManagedBy: ManagedByKitinfra,
		},
	}
}

// WithAddon adds the owning add-on.
func (lb *LabelBuilder) WithAddon(addon string) *LabelBuilder {
	lb.labels[KeyAddon] = addon
	return lb
}

// WithRole adds a role label.
func (lb *LabelBuilder) WithRole(role string) *LabelBuilder {
	lb.labels[KeyRole] = role
	return lb
}

// WithName sets the Name tag.
func (lb *LabelBuilder) WithName(name string) *LabelBuilder {
	lb.labels[KeyName] = name
	return lb
}

// Merge adds all labels from extra. Keys set by the builder are overwritten.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	maps.Copy(lb.labels, extra)
	return lb
}

// Build returns a copy of the labels.
func (lb *LabelBuilder) Build() map[string]string {
	return maps.Clone(lb.labels)
}

// Pairs returns the labels as sorted key/value pairs, the shape AWS tag
// lists take.
func (lb *LabelBuilder) Pairs() [][2]string {
	keys := slices.Sorted(maps.Keys(lb.labels))
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, lb.labels[k]})
	}
	return out
}

// SelectorForStack returns a label selector for all objects of a stack.
func SelectorForStack(stack string) string {
	return KeyStack + "=" + stack
}
