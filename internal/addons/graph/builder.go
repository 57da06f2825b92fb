// Package graph turns a set of add-on specs into an installation plan.
//
// Every enabled add-on contributes its nodes as vertices. Edges come from
// the nodes' own DependsOn lists and from add-on level dependencies: when
// add-on A depends on add-on B, A's entry nodes wait for B's namespace node
// and for every sink of B, the nodes no other node of B depends on. All of
// B is therefore installed before any of A, and a failure anywhere in B
// blocks A.
// The plan is a deterministic topological order: among nodes that are ready
// at the same time, the one declared first goes first.
package graph

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/imamik/kitinfra/internal/addons"
)

const planScope = "plan"

// Build validates specs and computes their installation plan. Disabled
// specs are left out together with every dependency edge pointing at them.
func Build(specs []*addons.AddonSpec) (*Plan, error) {
	declared, err := validateSet(specs)
	if err != nil {
		return nil, err
	}

	dag := NewDAG[addons.NodeID]()
	order := 0
	var enabled []*addons.AddonSpec
	for _, spec := range specs {
		if !spec.Enabled {
			continue
		}
		enabled = append(enabled, spec)
		for _, node := range spec.Nodes {
			if err := dag.AddVertex(spec.NodeID(node.Name), order); err != nil {
				return nil, fmt.Errorf("failed to add node: %w", err)
			}
			order++
		}
	}

	for _, spec := range enabled {
		var crossDeps []addons.NodeID
		for _, dep := range spec.DependsOn {
			target := declared[dep]
			if !target.Enabled {
				continue
			}
			crossDeps = append(crossDeps, target.NodeID(target.NamespaceNode().Name))
			crossDeps = append(crossDeps, sinks(target)...)
		}

		for _, node := range spec.Nodes {
			id := spec.NodeID(node.Name)
			deps := make([]addons.NodeID, 0, len(node.DependsOn))
			for _, dep := range node.DependsOn {
				deps = append(deps, spec.NodeID(dep))
			}
			if len(node.DependsOn) == 0 {
				deps = append(deps, crossDeps...)
			}
			if err := dag.AddDependencies(id, deps); err != nil {
				return nil, fmt.Errorf("failed to add dependencies of %s: %w", id, err)
			}
		}
	}

	sorted, err := dag.TopologicalSort()
	if err != nil {
		if cycle := AsCycleError[addons.NodeID](err); cycle != nil {
			return nil, &addons.CycleError{Chain: cycle.Cycle}
		}
		return nil, err
	}
	levels, err := dag.TopologicalSortLevels()
	if err != nil {
		return nil, err
	}

	return newPlan(dag, sorted, levels, enabled), nil
}

// sinks returns the nodes of spec that no other node of spec depends on, in
// declaration order.
func sinks(spec *addons.AddonSpec) []addons.NodeID {
	depended := make(map[string]bool, len(spec.Nodes))
	for _, node := range spec.Nodes {
		for _, dep := range node.DependsOn {
			if dep != node.Name {
				depended[dep] = true
			}
		}
	}
	var out []addons.NodeID
	for _, node := range spec.Nodes {
		if !depended[node.Name] && node.Kind != addons.KindNamespace {
			out = append(out, spec.NodeID(node.Name))
		}
	}
	return out
}

// validateSet checks each spec and the references between them. It returns
// the declared specs by name.
func validateSet(specs []*addons.AddonSpec) (map[string]*addons.AddonSpec, error) {
	var issues *multierror.Error
	declared := make(map[string]*addons.AddonSpec, len(specs))

	for i, spec := range specs {
		if spec == nil {
			issues = multierror.Append(issues, fmt.Errorf("add-on %d is nil", i))
			continue
		}
		if err := spec.Validate(); err != nil {
			issues = multierror.Append(issues, err)
			continue
		}
		if _, dup := declared[spec.Name]; dup {
			issues = multierror.Append(issues, fmt.Errorf("add-on %q is declared more than once", spec.Name))
			continue
		}
		declared[spec.Name] = spec
	}

	for _, spec := range specs {
		if spec == nil || !spec.Enabled {
			continue
		}
		for _, dep := range spec.DependsOn {
			if _, ok := declared[dep]; !ok {
				issues = multierror.Append(issues, fmt.Errorf("add-on %q depends on unknown add-on %q", spec.Name, dep))
			}
		}
	}

	if issues.ErrorOrNil() != nil {
		return nil, &addons.ConfigurationError{Scope: planScope, Issues: issues}
	}
	return declared, nil
}
