package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/imamik/kitinfra/internal/addons/catalog"
	"github.com/imamik/kitinfra/internal/addons/graph"
	"github.com/imamik/kitinfra/internal/config"
	awsplatform "github.com/imamik/kitinfra/internal/platform/aws"
)

// Output formats of Plan.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// placeholderAccount stands in for the AWS account in offline plans.
const placeholderAccount = "000000000000"

// PlanOptions configures Plan.
type PlanOptions struct {
	ConfigPath string
	Output     string
	Out        io.Writer
}

// Plan prints the installation order of the configured add-ons.
func Plan(_ context.Context, opts PlanOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	plan, err := buildPlan(cfg, catalog.ClusterInfo{
		Name:      cfg.ClusterName,
		Region:    cfg.Region,
		AccountID: placeholderAccount,
		Partition: awsplatform.Partition(cfg.Region),
	})
	if err != nil {
		return err
	}

	switch opts.Output {
	case OutputJSON:
		data, err := json.MarshalIndent(newRunRecord(cfg.ClusterName, plan, nil), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode plan: %w", err)
		}
		_, err = fmt.Fprintln(opts.Out, string(data))
		return err
	case OutputText, "":
		_, err := fmt.Fprint(opts.Out, renderPlan(cfg.ClusterName, plan))
		return err
	default:
		return fmt.Errorf("unknown output format %q", opts.Output)
	}
}

// buildPlan turns the add-on catalog for cluster into an installation plan.
func buildPlan(cfg *config.Config, cluster catalog.ClusterInfo) (*graph.Plan, error) {
	specs, err := catalog.New(cfg, cluster, loadTimeouts().ChartInstall).Specs()
	if err != nil {
		return nil, err
	}
	plan, err := graph.Build(specs)
	if err != nil {
		return nil, fmt.Errorf("failed to build plan: %w", err)
	}
	return plan, nil
}
