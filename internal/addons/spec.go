package addons

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// AddonSpec bundles the resources one add-on needs and the add-ons it
// depends on. Specs are immutable once built by NewAddonSpec.
type AddonSpec struct {
	Name      string         `json:"name"`
	Namespace string         `json:"namespace"`
	Enabled   bool           `json:"enabled"`
	DependsOn []string       `json:"dependsOn,omitempty"`
	Nodes     []ResourceNode `json:"nodes"`
}

// NewAddonSpec validates and returns a spec. All problems are reported in
// a single *ConfigurationError.
func NewAddonSpec(name, namespace string, enabled bool, dependsOn []string, nodes []ResourceNode) (*AddonSpec, error) {
	spec := &AddonSpec{
		Name:      name,
		Namespace: namespace,
		Enabled:   enabled,
		DependsOn: append([]string(nil), dependsOn...),
		Nodes:     append([]ResourceNode(nil), nodes...),
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Validate checks the structural invariants of the spec.
func (s *AddonSpec) Validate() error {
	var issues *multierror.Error
	add := func(format string, args ...any) {
		issues = multierror.Append(issues, fmt.Errorf(format, args...))
	}

	if s.Name == "" {
		add("add-on name is required")
	}
	if strings.Contains(s.Name, nodeIDSeparator) {
		add("add-on name %q must not contain %q", s.Name, nodeIDSeparator)
	}
	if s.Namespace == "" {
		add("namespace is required")
	}

	seenDeps := make(map[string]bool, len(s.DependsOn))
	for _, dep := range s.DependsOn {
		if dep == "" {
			add("empty add-on dependency")
		}
		if seenDeps[dep] {
			add("duplicate add-on dependency %q", dep)
		}
		seenDeps[dep] = true
	}

	byName := make(map[string]*ResourceNode, len(s.Nodes))
	var nsNode string
	nsCount := 0
	for i := range s.Nodes {
		n := &s.Nodes[i]
		if n.Name == "" {
			add("node %d has no name", i)
			continue
		}
		if strings.Contains(n.Name, nodeIDSeparator) {
			add("node name %q must not contain %q", n.Name, nodeIDSeparator)
		}
		if _, dup := byName[n.Name]; dup {
			add("duplicate node name %q", n.Name)
			continue
		}
		byName[n.Name] = n
		if !n.Kind.Valid() {
			add("node %q has unknown kind %q", n.Name, n.Kind)
		}
		if n.Namespace != s.Namespace {
			add("node %q targets namespace %q, want %q", n.Name, n.Namespace, s.Namespace)
		}
		if n.Kind == KindNamespace {
			nsCount++
			nsNode = n.Name
		}
	}

	switch {
	case nsCount == 0:
		add("exactly one Namespace node is required, found none")
	case nsCount > 1:
		add("exactly one Namespace node is required, found %d", nsCount)
	}

	for i := range s.Nodes {
		n := &s.Nodes[i]
		// A node listing itself is a cycle and is reported by the graph builder.
		for _, dep := range n.DependsOn {
			if _, ok := byName[dep]; !ok {
				add("node %q depends on unknown node %q", n.Name, dep)
			}
		}
		issues = multierror.Append(issues, validatePayload(n, byName)...)
	}

	if nsCount == 1 {
		for i := range s.Nodes {
			n := &s.Nodes[i]
			if n.Kind == KindNamespace {
				if slices.ContainsFunc(n.DependsOn, func(dep string) bool { return dep != n.Name }) {
					add("namespace node %q must not depend on other nodes", n.Name)
				}
				continue
			}
			if !reaches(n.Name, nsNode, byName) {
				add("node %q does not depend on namespace node %q", n.Name, nsNode)
			}
		}
	}

	if err := issues.ErrorOrNil(); err != nil {
		return &ConfigurationError{Scope: s.scope(), Issues: issues}
	}
	return nil
}

func (s *AddonSpec) scope() string {
	if s.Name == "" {
		return "add-on"
	}
	return fmt.Sprintf("add-on %q", s.Name)
}

func validatePayload(n *ResourceNode, byName map[string]*ResourceNode) []error {
	var errs []error
	switch n.Kind {
	case KindIdentity:
		if n.ServiceAccount == "" {
			errs = append(errs, fmt.Errorf("identity node %q has no service account", n.Name))
		}
	case KindPermission:
		target, ok := byName[n.Identity]
		switch {
		case n.Identity == "":
			errs = append(errs, fmt.Errorf("permission node %q names no identity", n.Name))
		case !ok || target.Kind != KindIdentity:
			errs = append(errs, fmt.Errorf("permission node %q targets %q which is not an identity node", n.Name, n.Identity))
		case !reaches(n.Name, n.Identity, byName):
			errs = append(errs, fmt.Errorf("permission node %q does not depend on identity %q", n.Name, n.Identity))
		}
		if n.Policy.Empty() {
			errs = append(errs, fmt.Errorf("permission node %q has an empty policy", n.Name))
		}
	case KindWorkload:
		if (n.Chart == nil) == (n.Manifest == nil) {
			errs = append(errs, fmt.Errorf("workload node %q needs exactly one of chart or manifest", n.Name))
		}
		if n.Chart != nil && (n.Chart.Release == "" || n.Chart.Chart == "" || n.Chart.Repository == "") {
			errs = append(errs, fmt.Errorf("workload node %q chart needs release, chart and repository", n.Name))
		}
		if n.Manifest != nil && len(n.Manifest.Objects) == 0 {
			errs = append(errs, fmt.Errorf("workload node %q manifest has no objects", n.Name))
		}
	}
	return errs
}

// reaches reports whether from transitively depends on to. Cycles are
// tolerated here; they are reported by the graph builder.
func reaches(from, to string, byName map[string]*ResourceNode) bool {
	seen := map[string]bool{}
	stack := []string{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		node, ok := byName[cur]
		if !ok {
			continue
		}
		for _, dep := range node.DependsOn {
			if dep == to {
				return true
			}
			stack = append(stack, dep)
		}
	}
	return false
}

// NamespaceNode returns the spec's Namespace node.
func (s *AddonSpec) NamespaceNode() *ResourceNode {
	for i := range s.Nodes {
		if s.Nodes[i].Kind == KindNamespace {
			return &s.Nodes[i]
		}
	}
	return nil
}

// Node looks a node up by name.
func (s *AddonSpec) Node(name string) (*ResourceNode, bool) {
	for i := range s.Nodes {
		if s.Nodes[i].Name == name {
			return &s.Nodes[i], true
		}
	}
	return nil, false
}

// NodeID returns the qualified ID of a node of this spec.
func (s *AddonSpec) NodeID(node string) NodeID {
	return NewNodeID(s.Name, node)
}
