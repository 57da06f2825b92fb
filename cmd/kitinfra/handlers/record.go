package handlers

import (
	"time"

	"github.com/imamik/kitinfra/internal/addons/graph"
	"github.com/imamik/kitinfra/internal/addons/orchestrator"
)

// runRecord is the archived form of a plan and, after apply, its results.
type runRecord struct {
	Cluster     string         `json:"cluster"`
	RunID       string         `json:"runId,omitempty"`
	Fingerprint string         `json:"fingerprint"`
	Addons      []string       `json:"addons"`
	Steps       []stepRecord   `json:"steps"`
	Counts      map[string]int `json:"counts,omitempty"`
}

type stepRecord struct {
	ID           string   `json:"id"`
	Kind         string   `json:"kind"`
	Predecessors []string `json:"predecessors,omitempty"`

	Status     string `json:"status,omitempty"`
	Skipped    bool   `json:"skipped,omitempty"`
	BlockedBy  string `json:"blockedBy,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"durationMs,omitempty"`
}

func newRunRecord(cluster string, plan *graph.Plan, results *orchestrator.ResultSet) runRecord {
	rec := runRecord{
		Cluster:     cluster,
		Fingerprint: plan.Fingerprint(),
		Addons:      plan.Addons,
		Steps:       make([]stepRecord, 0, plan.Len()),
	}
	if results != nil {
		rec.RunID = results.RunID
		rec.Counts = make(map[string]int)
		for status, n := range results.Counts() {
			rec.Counts[string(status)] = n
		}
	}

	for _, s := range plan.Steps {
		step := stepRecord{ID: string(s.ID), Kind: string(s.Node.Kind)}
		for _, p := range s.Predecessors {
			step.Predecessors = append(step.Predecessors, string(p))
		}
		if results != nil {
			if r, ok := results.Get(s.ID); ok {
				step.Status = string(r.Status)
				step.Skipped = r.Skipped
				step.BlockedBy = string(r.BlockedBy)
				step.DurationMS = r.Duration().Round(time.Millisecond).Milliseconds()
				if r.Err != nil {
					step.Error = r.Err.Error()
				}
			}
		}
		rec.Steps = append(rec.Steps, step)
	}
	return rec
}
