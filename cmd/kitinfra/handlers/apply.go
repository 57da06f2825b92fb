package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kitinfra/internal/addons/graph"
	"github.com/imamik/kitinfra/internal/addons/identity"
	"github.com/imamik/kitinfra/internal/addons/orchestrator"
	"github.com/imamik/kitinfra/internal/config"
	"github.com/imamik/kitinfra/internal/platform/s3"
	"github.com/imamik/kitinfra/internal/provisioning"
)

// ApplyOptions configures Apply.
type ApplyOptions struct {
	ConfigPath  string
	Profile     string
	Yes         bool
	DryRun      bool
	Concurrency int
	MetricsFile string
	Out         io.Writer
}

// Apply bootstraps the cluster and installs its add-ons.
//
// The workflow:
//  1. Loads and validates configuration
//  2. Builds the add-on plan and asks for confirmation unless --yes
//  3. Bootstraps the cluster and writes the kubeconfig
//  4. Applies the plan, a failed step only blocking its dependents
//  5. Prints the results, writes metrics and archives the run record
//
// The plan is built before anything is created, so invalid add-on
// configuration or dependency cycles stop the run without changes.
// Apply returns an error when any step failed.
func Apply(ctx context.Context, opts ApplyOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	ctx = log.IntoContext(ctx, log.FromContext(ctx).WithValues("cluster", cfg.ClusterName))
	logger := log.FromContext(ctx)
	timeouts := loadTimeouts()

	cloud, err := newCloudClient(ctx, cfg, opts.Profile, timeouts)
	if err != nil {
		return err
	}
	info, err := clusterInfo(ctx, cloud, cfg)
	if err != nil {
		return err
	}

	preview, err := buildPlan(cfg, info)
	if err != nil {
		return err
	}
	fmt.Fprint(opts.Out, renderPlan(cfg.ClusterName, preview))

	registry := prometheus.NewRegistry()
	orchOpts := orchestrator.Options{
		Concurrency:  concurrency(opts, cfg),
		NodeTimeout:  timeouts.AddonNode,
		ReadyTimeout: timeouts.ReadyCheck,
		DryRun:       opts.DryRun,
		Registerer:   registry,
	}

	var results *orchestrator.ResultSet
	plan := preview
	if opts.DryRun {
		orch, err := orchestrator.New(nil, nil, nil, orchOpts)
		if err != nil {
			return err
		}
		results = orch.Apply(ctx, plan)
	} else {
		if !opts.Yes {
			if err := confirmApply(ctx, cfg.ClusterName, plan.Len()); err != nil {
				return err
			}
		}

		handle, err := bootstrapCluster(ctx, cloud, cfg, info, opts.Profile)
		if err != nil {
			return err
		}
		fmt.Fprint(opts.Out, renderCluster(handle, cfg.KubeconfigPath))

		info.Endpoint = handle.Endpoint
		if plan, err = buildPlan(cfg, info); err != nil {
			return err
		}

		orch, err := newOrchestrator(cloud, handle, timeouts, orchOpts)
		if err != nil {
			return err
		}
		logger.Info("applying add-ons", "steps", plan.Len(), "concurrency", orchOpts.Concurrency)
		results = orch.Apply(ctx, plan)
	}

	fmt.Fprint(opts.Out, renderResults(results))

	if opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, registry); err != nil {
			logger.Error(err, "failed to write metrics", "path", opts.MetricsFile)
		}
	}
	if cfg.Archive != "" && !opts.DryRun {
		if err := archiveRun(ctx, cfg, plan, results); err != nil {
			logger.Error(err, "failed to archive run", "archive", cfg.Archive)
		}
	}

	if !results.Succeeded() {
		failed := results.Failed()
		if len(failed) == 0 {
			return fmt.Errorf("run %s did not complete", results.RunID)
		}
		return fmt.Errorf("%d of %d steps failed, first: %s", len(failed), plan.Len(), failed[0].ID)
	}
	return nil
}

func concurrency(opts ApplyOptions, cfg *config.Config) int {
	if opts.Concurrency > 0 {
		return opts.Concurrency
	}
	return cfg.Orchestrator.Concurrency
}

// newOrchestrator connects the orchestrator collaborators to a bootstrapped
// cluster.
func newOrchestrator(cloud cloudClient, handle *provisioning.ClusterHandle, timeouts *config.Timeouts, opts orchestrator.Options) (*orchestrator.Orchestrator, error) {
	kube, err := newKubeClient(handle.Kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cluster: %w", err)
	}
	roles, err := newRoleBackend(cloud, handle.Cluster)
	if err != nil {
		return nil, err
	}
	binder := identity.NewBinder(identity.NewIRSAProvider(roles, kube), roles)
	charts := newChartInstaller(handle.Kubeconfig, timeouts.ChartInstall)
	return orchestrator.New(kube, charts, binder, opts)
}

// archiveRun stores the run record at the configured S3 location.
func archiveRun(ctx context.Context, cfg *config.Config, plan *graph.Plan, results *orchestrator.ResultSet) error {
	loc, err := s3.ParseLocation(cfg.Archive)
	if err != nil {
		return err
	}
	store, err := newObjectStore(ctx, cfg.Region)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(newRunRecord(cfg.ClusterName, plan, results), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run record: %w", err)
	}
	_, err = s3.NewArchive(store, loc).Store(ctx, cfg.ClusterName, results.RunID, data)
	return err
}
