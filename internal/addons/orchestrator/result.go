package orchestrator

import (
	"sync"
	"time"

	"github.com/imamik/kitinfra/internal/addons"
)

// Status is the state of a plan node within one run.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusSubmitted Status = "Submitted"
	StatusReady     Status = "Ready"
	StatusFailed    Status = "Failed"
)

// Result is the outcome of one plan node.
type Result struct {
	ID     addons.NodeID
	Kind   addons.Kind
	Status Status

	// Skipped is set on failed nodes that were never attempted because a
	// dependency failed.
	Skipped bool
	// BlockedBy is the failed dependency that caused the skip.
	BlockedBy addons.NodeID

	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the node ran. Zero for nodes never started.
func (r Result) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ResultSet holds the results of one run in plan order. It is safe for
// concurrent use; every mutation takes the lock.
type ResultSet struct {
	RunID string

	mu      sync.Mutex
	order   []addons.NodeID
	results map[addons.NodeID]*Result
}

func newResultSet(runID string, steps []addons.NodeID, kinds map[addons.NodeID]addons.Kind) *ResultSet {
	rs := &ResultSet{
		RunID:   runID,
		order:   steps,
		results: make(map[addons.NodeID]*Result, len(steps)),
	}
	for _, id := range steps {
		rs.results[id] = &Result{ID: id, Kind: kinds[id], Status: StatusPending}
	}
	return rs
}

func (rs *ResultSet) update(id addons.NodeID, fn func(r *Result)) Result {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	r := rs.results[id]
	fn(r)
	return *r
}

// Get returns the result for id.
func (rs *ResultSet) Get(id addons.NodeID) (Result, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	r, ok := rs.results[id]
	if !ok {
		return Result{}, false
	}
	return *r, true
}

// Status returns the status of id, or Pending for unknown nodes.
func (rs *ResultSet) Status(id addons.NodeID) Status {
	r, ok := rs.Get(id)
	if !ok {
		return StatusPending
	}
	return r.Status
}

// Results returns a copy of all results in plan order.
func (rs *ResultSet) Results() []Result {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]Result, 0, len(rs.order))
	for _, id := range rs.order {
		out = append(out, *rs.results[id])
	}
	return out
}

// Failed returns the failed results, skipped ones included, in plan order.
func (rs *ResultSet) Failed() []Result {
	var out []Result
	for _, r := range rs.Results() {
		if r.Status == StatusFailed {
			out = append(out, r)
		}
	}
	return out
}

// Succeeded reports whether every node is Ready.
func (rs *ResultSet) Succeeded() bool {
	for _, r := range rs.Results() {
		if r.Status != StatusReady {
			return false
		}
	}
	return true
}

// Counts tallies results by status. Skipped nodes are counted as Failed.
func (rs *ResultSet) Counts() map[Status]int {
	counts := make(map[Status]int, 4)
	for _, r := range rs.Results() {
		counts[r.Status]++
	}
	return counts
}
