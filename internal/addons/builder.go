package addons

// Builder assembles an AddonSpec in the conventional shape: the namespace
// node first, then identities, permissions and workloads, each wired to
// the nodes it has to wait for.
type Builder struct {
	name      string
	namespace string
	enabled   bool
	dependsOn []string
	labels    map[string]string
	nodes     []ResourceNode

	// permissions holds the names of Permission nodes added so far; workloads
	// depend on all of them.
	permissions []string
}

// NamespaceNodeName is the name of the namespace node a Builder creates.
const NamespaceNodeName = "namespace"

// NewBuilder starts an enabled spec for the add-on name in namespace.
func NewBuilder(name, namespace string) *Builder {
	return &Builder{name: name, namespace: namespace, enabled: true}
}

// DependsOn adds add-on level dependencies.
func (b *Builder) DependsOn(addons ...string) *Builder {
	b.dependsOn = append(b.dependsOn, addons...)
	return b
}

// Enabled sets whether the add-on is part of the plan.
func (b *Builder) Enabled(enabled bool) *Builder {
	b.enabled = enabled
	return b
}

// Labels sets labels applied to the namespace.
func (b *Builder) Labels(labels map[string]string) *Builder {
	b.labels = labels
	return b
}

// Identity adds an Identity node for serviceAccount. The node is named after
// the service account.
func (b *Builder) Identity(serviceAccount string) *Builder {
	b.nodes = append(b.nodes, ResourceNode{
		Kind:           KindIdentity,
		Name:           serviceAccount,
		Namespace:      b.namespace,
		DependsOn:      []string{NamespaceNodeName},
		ServiceAccount: serviceAccount,
	})
	return b
}

// Permission attaches policy to the identity node named identity.
func (b *Builder) Permission(identity string, policy Policy) *Builder {
	name := identity + "-policy"
	if policy.Name == "" {
		policy.Name = b.name + "-" + identity
	}
	b.nodes = append(b.nodes, ResourceNode{
		Kind:      KindPermission,
		Name:      name,
		Namespace: b.namespace,
		DependsOn: []string{identity},
		Identity:  identity,
		Policy:    &policy,
	})
	b.permissions = append(b.permissions, name)
	return b
}

// Chart adds a chart Workload node. It depends on the namespace and on every
// permission added before it.
func (b *Builder) Chart(name string, release ChartRelease, readyChecks ...ObjectRef) *Builder {
	b.nodes = append(b.nodes, ResourceNode{
		Kind:        KindWorkload,
		Name:        name,
		Namespace:   b.namespace,
		DependsOn:   b.workloadDeps(nil),
		Chart:       &release,
		ReadyChecks: readyChecks,
	})
	return b
}

// Manifest adds a manifest Workload node. after names additional nodes of
// this add-on the manifest waits for, typically the chart that installs the
// CRDs it uses.
func (b *Builder) Manifest(name string, objects []map[string]any, after ...string) *Builder {
	b.nodes = append(b.nodes, ResourceNode{
		Kind:      KindWorkload,
		Name:      name,
		Namespace: b.namespace,
		DependsOn: b.workloadDeps(after),
		Manifest:  &Manifest{Objects: objects},
	})
	return b
}

// WaitFor adds ready checks to the most recently added node.
func (b *Builder) WaitFor(refs ...ObjectRef) *Builder {
	if len(b.nodes) > 0 {
		last := &b.nodes[len(b.nodes)-1]
		last.ReadyChecks = append(last.ReadyChecks, refs...)
	}
	return b
}

func (b *Builder) workloadDeps(after []string) []string {
	deps := []string{NamespaceNodeName}
	deps = append(deps, b.permissions...)
	return append(deps, after...)
}

// Build validates and returns the spec.
func (b *Builder) Build() (*AddonSpec, error) {
	nodes := make([]ResourceNode, 0, len(b.nodes)+1)
	nodes = append(nodes, ResourceNode{
		Kind:      KindNamespace,
		Name:      NamespaceNodeName,
		Namespace: b.namespace,
		Labels:    b.labels,
	})
	nodes = append(nodes, b.nodes...)
	return NewAddonSpec(b.name, b.namespace, b.enabled, b.dependsOn, nodes)
}
