package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/imamik/kitinfra/internal/addons"
)

// Step is one node of the plan.
type Step struct {
	// ID is the qualified node identity.
	ID addons.NodeID
	// Node is the node as declared.
	Node addons.ResourceNode
	// Predecessors are the nodes that must be ready before this one, both
	// within the add-on and across add-ons, in declaration order.
	Predecessors []addons.NodeID
}

// Addon returns the name of the add-on owning the step.
func (s Step) Addon() string {
	return s.ID.Addon()
}

// Plan is a total installation order over the nodes of enabled add-ons.
type Plan struct {
	Steps []Step

	// Levels groups steps that can run concurrently once the previous
	// levels are done.
	Levels [][]addons.NodeID

	// Addons lists the enabled add-ons in declaration order.
	Addons []string

	index      map[addons.NodeID]int
	dependents map[addons.NodeID][]addons.NodeID
}

func newPlan(dag *DAG[addons.NodeID], sorted []addons.NodeID, levels [][]addons.NodeID, specs []*addons.AddonSpec) *Plan {
	nodes := make(map[addons.NodeID]addons.ResourceNode)
	p := &Plan{
		Levels:     levels,
		index:      make(map[addons.NodeID]int, len(sorted)),
		dependents: make(map[addons.NodeID][]addons.NodeID),
	}
	for _, spec := range specs {
		p.Addons = append(p.Addons, spec.Name)
		for _, node := range spec.Nodes {
			nodes[spec.NodeID(node.Name)] = node
		}
	}

	p.Steps = make([]Step, 0, len(sorted))
	for i, id := range sorted {
		preds := dag.Dependencies(id)
		p.Steps = append(p.Steps, Step{ID: id, Node: nodes[id], Predecessors: preds})
		p.index[id] = i
		for _, pred := range preds {
			p.dependents[pred] = append(p.dependents[pred], id)
		}
	}
	return p
}

// Len returns the number of steps.
func (p *Plan) Len() int {
	return len(p.Steps)
}

// Order returns the node IDs in installation order.
func (p *Plan) Order() []addons.NodeID {
	ids := make([]addons.NodeID, len(p.Steps))
	for i, s := range p.Steps {
		ids[i] = s.ID
	}
	return ids
}

// Step returns the step for id.
func (p *Plan) Step(id addons.NodeID) (Step, bool) {
	i, ok := p.index[id]
	if !ok {
		return Step{}, false
	}
	return p.Steps[i], true
}

// Position returns the index of id in the order, or -1.
func (p *Plan) Position(id addons.NodeID) int {
	if i, ok := p.index[id]; ok {
		return i
	}
	return -1
}

// Dependents returns the direct dependents of id in plan order.
func (p *Plan) Dependents(id addons.NodeID) []addons.NodeID {
	return p.dependents[id]
}

// TransitiveDependents returns every node that directly or indirectly
// depends on id, in plan order.
func (p *Plan) TransitiveDependents(id addons.NodeID) []addons.NodeID {
	seen := map[addons.NodeID]bool{}
	queue := append([]addons.NodeID(nil), p.dependents[id]...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		queue = append(queue, p.dependents[cur]...)
	}
	out := make([]addons.NodeID, 0, len(seen))
	for _, s := range p.Steps {
		if seen[s.ID] {
			out = append(out, s.ID)
		}
	}
	return out
}

// Fingerprint is a SHA-256 over the order and predecessor sets. Two plans
// with the same fingerprint install the same nodes in the same order.
func (p *Plan) Fingerprint() string {
	h := sha256.New()
	for _, s := range p.Steps {
		h.Write([]byte(s.ID))
		h.Write([]byte{'<'})
		for i, pred := range s.Predecessors {
			if i > 0 {
				h.Write([]byte{','})
			}
			h.Write([]byte(pred))
		}
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// String renders the plan one step per line.
func (p *Plan) String() string {
	var b strings.Builder
	for _, s := range p.Steps {
		b.WriteString(string(s.ID))
		if len(s.Predecessors) > 0 {
			b.WriteString(" <- ")
			for i, pred := range s.Predecessors {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(string(pred))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
