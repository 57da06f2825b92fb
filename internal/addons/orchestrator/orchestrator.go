// Package orchestrator applies an installation plan against the cluster.
//
// Nodes are dispatched in plan order to the collaborator matching their
// kind. A node starts only once all of its predecessors are Ready. When a
// node fails, every node depending on it is marked Failed and Skipped
// without being attempted while unrelated nodes keep going. Apply never
// returns an error: callers inspect the ResultSet.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kitinfra/internal/addons"
	"github.com/imamik/kitinfra/internal/addons/graph"
	"github.com/imamik/kitinfra/internal/addons/identity"
)

const (
	providerControlPlane   = "control-plane"
	providerChartInstaller = "chart-installer"

	// DefaultReadyTimeout bounds each ready check when Options.ReadyTimeout is unset.
	DefaultReadyTimeout = 5 * time.Minute
)

// Options tune a run.
type Options struct {
	// Concurrency is the number of nodes applied at once. Values below 1
	// mean 1, which applies the plan strictly sequentially.
	Concurrency int

	// NodeTimeout is the deadline for a single node, zero for none. A node
	// exceeding it fails with *addons.TimeoutError.
	NodeTimeout time.Duration

	// ReadyTimeout bounds each ready check.
	ReadyTimeout time.Duration

	// DryRun records every node as Ready without calling collaborators.
	DryRun bool

	// Registerer receives the orchestrator metrics. Nil disables registration.
	Registerer prometheus.Registerer
}

// Orchestrator applies plans.
type Orchestrator struct {
	controlPlane addons.ControlPlane
	charts       addons.ChartInstaller
	binder       *identity.Binder
	opts         Options
	metrics      *Metrics

	now      func() time.Time
	newRunID func() string
}

// New creates an Orchestrator.
func New(controlPlane addons.ControlPlane, charts addons.ChartInstaller, binder *identity.Binder, opts Options) (*Orchestrator, error) {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}
	metrics, err := NewMetrics(opts.Registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return &Orchestrator{
		controlPlane: controlPlane,
		charts:       charts,
		binder:       binder,
		opts:         opts,
		metrics:      metrics,
		now:          time.Now,
		newRunID:     uuid.NewString,
	}, nil
}

// Apply runs plan and returns the result of every node.
func (o *Orchestrator) Apply(ctx context.Context, plan *graph.Plan) *ResultSet {
	runID := o.newRunID()
	logger := log.FromContext(ctx).WithValues("run", runID)
	ctx = log.IntoContext(ctx, logger)

	kinds := make(map[addons.NodeID]addons.Kind, plan.Len())
	done := make(map[addons.NodeID]chan struct{}, plan.Len())
	for _, step := range plan.Steps {
		kinds[step.ID] = step.Node.Kind
		done[step.ID] = make(chan struct{})
	}
	rs := newResultSet(runID, plan.Order(), kinds)
	identities := identity.NewRegistry()

	logger.Info("applying plan",
		"nodes", plan.Len(),
		"addons", len(plan.Addons),
		"concurrency", o.opts.Concurrency,
		"dryRun", o.opts.DryRun)

	sem := semaphore.NewWeighted(int64(o.opts.Concurrency))
	var g errgroup.Group

	for _, step := range plan.Steps {
		// Predecessors come earlier in the plan, so they have been dispatched.
		for _, pred := range step.Predecessors {
			<-done[pred]
		}

		if blocker, ok := blockedBy(rs, step); ok {
			o.skip(ctx, rs, step, blocker)
			close(done[step.ID])
			continue
		}

		if err := ctx.Err(); err != nil {
			o.abandon(ctx, rs, step, err)
			close(done[step.ID])
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			o.abandon(ctx, rs, step, err)
			close(done[step.ID])
			continue
		}

		g.Go(func() error {
			defer sem.Release(1)
			defer close(done[step.ID])
			o.applyNode(ctx, rs, identities, step)
			return nil
		})
	}
	_ = g.Wait()

	counts := rs.Counts()
	result := "succeeded"
	if counts[StatusFailed] > 0 {
		result = "failed"
	}
	o.metrics.recordRun(result)
	logger.Info("plan applied",
		"result", result,
		"ready", counts[StatusReady],
		"failed", counts[StatusFailed])
	return rs
}

// blockedBy returns the failure that prevents step from running. For a
// predecessor that was itself skipped, the original failure is reported.
func blockedBy(rs *ResultSet, step graph.Step) (addons.NodeID, bool) {
	for _, pred := range step.Predecessors {
		r, _ := rs.Get(pred)
		if r.Status == StatusReady {
			continue
		}
		if r.Skipped && r.BlockedBy != "" {
			return r.BlockedBy, true
		}
		return pred, true
	}
	return "", false
}

func (o *Orchestrator) skip(ctx context.Context, rs *ResultSet, step graph.Step, blocker addons.NodeID) {
	rs.update(step.ID, func(r *Result) {
		r.Status = StatusFailed
		r.Skipped = true
		r.BlockedBy = blocker
		r.Err = fmt.Errorf("skipped: dependency %s failed", blocker)
	})
	o.metrics.recordNode(string(step.Node.Kind), "skipped", 0, false)
	log.FromContext(ctx).Info("skipping node", "node", step.ID, "blockedBy", blocker)
}

func (o *Orchestrator) abandon(ctx context.Context, rs *ResultSet, step graph.Step, cause error) {
	rs.update(step.ID, func(r *Result) {
		r.Status = StatusFailed
		r.Skipped = true
		r.Err = fmt.Errorf("not started: %w", cause)
	})
	o.metrics.recordNode(string(step.Node.Kind), "skipped", 0, false)
	log.FromContext(ctx).Info("run cancelled before node started", "node", step.ID)
}

func (o *Orchestrator) applyNode(ctx context.Context, rs *ResultSet, identities *identity.Registry, step graph.Step) {
	logger := log.FromContext(ctx).WithValues("node", step.ID, "kind", step.Node.Kind)
	start := o.now()
	rs.update(step.ID, func(r *Result) {
		r.Status = StatusSubmitted
		r.StartedAt = start
	})

	nodeCtx := log.IntoContext(ctx, logger)
	if o.opts.NodeTimeout > 0 {
		var cancel context.CancelFunc
		nodeCtx, cancel = context.WithTimeout(nodeCtx, o.opts.NodeTimeout)
		defer cancel()
	}

	var err error
	if o.opts.DryRun {
		logger.Info("dry run", "action", step.Node.Describe())
	} else {
		logger.V(1).Info("applying node", "action", step.Node.Describe())
		err = o.dispatch(nodeCtx, identities, step)
	}

	finish := o.now()
	final := rs.update(step.ID, func(r *Result) {
		r.FinishedAt = finish
		if err != nil {
			r.Status = StatusFailed
			r.Err = err
			return
		}
		r.Status = StatusReady
	})

	seconds := final.Duration().Seconds()
	if err != nil {
		o.metrics.recordNode(string(step.Node.Kind), "failed", seconds, true)
		logger.Error(err, "node failed")
		return
	}
	o.metrics.recordNode(string(step.Node.Kind), "ready", seconds, true)
	logger.Info("node ready", "duration", final.Duration().Round(time.Millisecond).String())
}

func (o *Orchestrator) dispatch(ctx context.Context, identities *identity.Registry, step graph.Step) error {
	node := step.Node
	switch node.Kind {
	case addons.KindNamespace:
		if err := o.controlPlane.CreateNamespace(ctx, node.Namespace, node.Labels); err != nil {
			return addons.NewExternalCallError(providerControlPlane, "create-namespace", err)
		}
		return o.waitReady(ctx, addons.ObjectRef{APIVersion: "v1", Kind: "Namespace", Name: node.Namespace})

	case addons.KindIdentity:
		ref, err := o.binder.BindIdentity(ctx, node.Namespace, node.ServiceAccount)
		if err != nil {
			return err
		}
		identities.Put(step.ID, ref)
		return nil

	case addons.KindPermission:
		target := addons.NewNodeID(step.Addon(), node.Identity)
		ref, ok := identities.Get(target)
		if !ok {
			return fmt.Errorf("identity %s is not bound", target)
		}
		return o.binder.AttachPermissions(ctx, ref, *node.Policy)

	case addons.KindWorkload:
		switch {
		case node.Chart != nil:
			if err := o.charts.Install(ctx, node.Namespace, *node.Chart); err != nil {
				return addons.NewExternalCallError(providerChartInstaller, "install "+node.Chart.Release, err)
			}
		case node.Manifest != nil:
			if err := o.controlPlane.ApplyManifest(ctx, node.Namespace, node.Manifest.Objects); err != nil {
				return addons.NewExternalCallError(providerControlPlane, "apply-manifest", err)
			}
		}
		for _, ref := range node.ReadyChecks {
			if err := o.waitReady(ctx, ref); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unsupported node kind %q", node.Kind)
}

func (o *Orchestrator) waitReady(ctx context.Context, ref addons.ObjectRef) error {
	if err := o.controlPlane.WaitReady(ctx, ref, o.opts.ReadyTimeout); err != nil {
		return addons.NewExternalCallError(providerControlPlane, "wait-ready "+ref.String(), err)
	}
	return nil
}
