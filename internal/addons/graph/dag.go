package graph

import (
	"cmp"
	"container/heap"
	"errors"
	"fmt"
	"slices"
)

// Vertex is a node of a DAG.
type Vertex[T cmp.Ordered] struct {
	ID T
	// Order is the declaration position. It breaks ties between vertices
	// that become ready at the same time.
	Order int
	// DependsOn holds the vertices that must come before this one.
	DependsOn map[T]struct{}
}

// DAG is a directed graph whose topological sort is deterministic.
// Cycles are allowed while building and reported by TopologicalSort.
type DAG[T cmp.Ordered] struct {
	Vertices map[T]*Vertex[T]
}

// NewDAG returns an empty graph.
func NewDAG[T cmp.Ordered]() *DAG[T] {
	return &DAG[T]{Vertices: make(map[T]*Vertex[T])}
}

// AddVertex adds id with its declaration order.
func (d *DAG[T]) AddVertex(id T, order int) error {
	if _, exists := d.Vertices[id]; exists {
		return fmt.Errorf("vertex %v already exists", id)
	}
	d.Vertices[id] = &Vertex[T]{ID: id, Order: order, DependsOn: make(map[T]struct{})}
	return nil
}

// AddDependencies records that id depends on every vertex in deps.
func (d *DAG[T]) AddDependencies(id T, deps []T) error {
	v, ok := d.Vertices[id]
	if !ok {
		return fmt.Errorf("vertex %v does not exist", id)
	}
	for _, dep := range deps {
		if _, ok := d.Vertices[dep]; !ok {
			return fmt.Errorf("vertex %v depends on unknown vertex %v", id, dep)
		}
		v.DependsOn[dep] = struct{}{}
	}
	return nil
}

// Dependencies returns the direct dependencies of id in declaration order.
func (d *DAG[T]) Dependencies(id T) []T {
	v, ok := d.Vertices[id]
	if !ok {
		return nil
	}
	deps := make([]T, 0, len(v.DependsOn))
	for dep := range v.DependsOn {
		deps = append(deps, dep)
	}
	d.sortByOrder(deps)
	return deps
}

// CycleError is returned by TopologicalSort when the graph has a cycle.
// Cycle starts and ends with the same vertex.
type CycleError[T cmp.Ordered] struct {
	Cycle []T
}

func (e *CycleError[T]) Error() string {
	return fmt.Sprintf("graph contains a cycle: %v", e.Cycle)
}

// AsCycleError returns the CycleError wrapped in err, or nil.
func AsCycleError[T cmp.Ordered](err error) *CycleError[T] {
	var cycleErr *CycleError[T]
	if errors.As(err, &cycleErr) {
		return cycleErr
	}
	return nil
}

// TopologicalSort returns the vertices so that each comes after all of its
// dependencies. Among ready vertices the lowest Order goes first.
func (d *DAG[T]) TopologicalSort() ([]T, error) {
	levels, err := d.sort()
	if err != nil {
		return nil, err
	}
	order := make([]T, 0, len(d.Vertices))
	for _, item := range levels {
		order = append(order, item.id)
	}
	return order, nil
}

// TopologicalSortLevels groups vertices by depth: level 0 has no
// dependencies and level n depends only on levels below n. Vertices within a
// level are in declaration order.
func (d *DAG[T]) TopologicalSortLevels() ([][]T, error) {
	sorted, err := d.sort()
	if err != nil {
		return nil, err
	}
	var levels [][]T
	for _, item := range sorted {
		for len(levels) <= item.level {
			levels = append(levels, nil)
		}
		levels[item.level] = append(levels[item.level], item.id)
	}
	for _, level := range levels {
		d.sortByOrder(level)
	}
	return levels, nil
}

type sortedVertex[T cmp.Ordered] struct {
	id    T
	level int
}

// sort runs Kahn's algorithm with a priority queue keyed on Order.
func (d *DAG[T]) sort() ([]sortedVertex[T], error) {
	inDegree := make(map[T]int, len(d.Vertices))
	dependents := make(map[T][]T, len(d.Vertices))
	for id, v := range d.Vertices {
		inDegree[id] = len(v.DependsOn)
		for dep := range v.DependsOn {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	ready := &orderQueue[T]{dag: d}
	for id, n := range inDegree {
		if n == 0 {
			ready.ids = append(ready.ids, id)
		}
	}
	heap.Init(ready)

	level := make(map[T]int, len(d.Vertices))
	result := make([]sortedVertex[T], 0, len(d.Vertices))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(T)
		result = append(result, sortedVertex[T]{id: id, level: level[id]})
		for _, dependent := range dependents[id] {
			if level[id]+1 > level[dependent] {
				level[dependent] = level[id] + 1
			}
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				heap.Push(ready, dependent)
			}
		}
	}

	if len(result) != len(d.Vertices) {
		return nil, &CycleError[T]{Cycle: d.findCycle(inDegree)}
	}
	return result, nil
}

// findCycle walks the vertices left over by Kahn's algorithm and returns one
// cycle among them.
func (d *DAG[T]) findCycle(inDegree map[T]int) []T {
	remaining := make([]T, 0)
	for id, n := range inDegree {
		if n > 0 {
			remaining = append(remaining, id)
		}
	}
	d.sortByOrder(remaining)

	const (
		unvisited = iota
		inStack
		done
	)
	state := make(map[T]int, len(remaining))
	var stack []T

	var visit func(id T) []T
	visit = func(id T) []T {
		state[id] = inStack
		stack = append(stack, id)
		for _, dep := range d.Dependencies(id) {
			if inDegree[dep] == 0 {
				continue
			}
			switch state[dep] {
			case inStack:
				start := slices.Index(stack, dep)
				cycle := append([]T(nil), stack[start:]...)
				// stack runs dependent -> dependency; report it in install order.
				slices.Reverse(cycle)
				return append(cycle, cycle[0])
			case unvisited:
				if c := visit(dep); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}

	for _, id := range remaining {
		if state[id] == unvisited {
			if c := visit(id); c != nil {
				return c
			}
		}
	}
	return remaining
}

func (d *DAG[T]) sortByOrder(ids []T) {
	slices.SortFunc(ids, func(a, b T) int {
		return cmp.Compare(d.Vertices[a].Order, d.Vertices[b].Order)
	})
}

type orderQueue[T cmp.Ordered] struct {
	dag *DAG[T]
	ids []T
}

func (q *orderQueue[T]) Len() int { return len(q.ids) }
func (q *orderQueue[T]) Less(i, j int) bool {
	return q.dag.Vertices[q.ids[i]].Order < q.dag.Vertices[q.ids[j]].Order
}
func (q *orderQueue[T]) Swap(i, j int) { q.ids[i], q.ids[j] = q.ids[j], q.ids[i] }
func (q *orderQueue[T]) Push(x any)    { q.ids = append(q.ids, x.(T)) }
func (q *orderQueue[T]) Pop() any {
	old := q.ids
	n := len(old)
	item := old[n-1]
	q.ids = old[:n-1]
	return item
}
