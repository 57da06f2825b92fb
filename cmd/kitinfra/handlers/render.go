package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/imamik/kitinfra/internal/addons/graph"
	"github.com/imamik/kitinfra/internal/addons/orchestrator"
	"github.com/imamik/kitinfra/internal/provisioning"
)

var (
	colorGreen = lipgloss.Color("#22c55e")
	colorRed   = lipgloss.Color("#ef4444")
	colorBlue  = lipgloss.Color("#3b82f6")
	colorDim   = lipgloss.Color("#6b7280")
	colorWhite = lipgloss.Color("#f9fafb")
	colorAmber = lipgloss.Color("#f59e0b")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	dimStyle     = lipgloss.NewStyle().Foreground(colorDim)
	greenStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	redStyle     = lipgloss.NewStyle().Foreground(colorRed)
	amberStyle   = lipgloss.NewStyle().Foreground(colorAmber)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorBlue).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

// renderPlan produces the plan table shown before apply.
func renderPlan(cluster string, plan *graph.Plan) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(titleStyle.Render(fmt.Sprintf("  kitinfra plan: %s", cluster)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d steps across %d add-ons, fingerprint %.12s", plan.Len(), len(plan.Addons), plan.Fingerprint())))
	b.WriteString("\n\n")

	t := newTable("#", "Step", "Kind", "After")
	for i, s := range plan.Steps {
		after := make([]string, 0, len(s.Predecessors))
		for _, p := range s.Predecessors {
			after = append(after, string(p))
		}
		t.Row(fmt.Sprint(i+1), string(s.ID), string(s.Node.Kind), strings.Join(after, ", "))
	}
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

// renderResults produces the per-step outcome of a run.
func renderResults(results *orchestrator.ResultSet) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render(fmt.Sprintf("  Run %s", results.RunID)))
	b.WriteString("\n\n")

	t := newTable("Step", "Status", "Duration", "Detail")
	for _, r := range results.Results() {
		t.Row(string(r.ID), statusText(r), formatDuration(r.Duration()), resultDetail(r))
	}
	b.WriteString(t.Render())
	b.WriteString("\n")

	counts := results.Counts()
	summary := fmt.Sprintf("  %d ready, %d failed", counts[orchestrator.StatusReady], counts[orchestrator.StatusFailed])
	if results.Succeeded() {
		b.WriteString(greenStyle.Render(summary))
	} else {
		b.WriteString(redStyle.Render(summary))
	}
	b.WriteString("\n")
	return b.String()
}

func statusText(r orchestrator.Result) string {
	switch {
	case r.Status == orchestrator.StatusReady:
		return greenStyle.Render(string(r.Status))
	case r.Skipped:
		return amberStyle.Render("Skipped")
	case r.Status == orchestrator.StatusFailed:
		return redStyle.Render(string(r.Status))
	default:
		return dimStyle.Render(string(r.Status))
	}
}

func resultDetail(r orchestrator.Result) string {
	switch {
	case r.Skipped:
		return "blocked by " + string(r.BlockedBy)
	case r.Err != nil:
		return r.Err.Error()
	default:
		return ""
	}
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return d.Round(100 * time.Millisecond).String()
}

// renderCluster summarizes a bootstrapped cluster.
func renderCluster(h *provisioning.ClusterHandle, kubeconfigPath string) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(titleStyle.Render(fmt.Sprintf("  Cluster %s is ready", h.Name)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  " + strings.Repeat("─", 40)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %-12s %s\n", "Region", h.Region)
	fmt.Fprintf(&b, "  %-12s %s\n", "Version", h.Version)
	fmt.Fprintf(&b, "  %-12s %s\n", "Endpoint", h.Endpoint)
	if h.Network != nil {
		fmt.Fprintf(&b, "  %-12s %s\n", "VPC", h.Network.VPCID)
	}
	if kubeconfigPath != "" {
		fmt.Fprintf(&b, "  %-12s %s\n", "Kubeconfig", kubeconfigPath)
	}
	return b.String()
}
