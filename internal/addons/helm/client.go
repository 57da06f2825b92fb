package helm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/release"
	"helm.sh/helm/v3/pkg/repo"
	"helm.sh/helm/v3/pkg/storage/driver"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kitinfra/internal/addons"
)

// DefaultTimeout bounds a waiting install when the release sets no timeout.
const DefaultTimeout = 10 * time.Minute

// ChartLoader resolves a chart in a repository and loads it into memory.
type ChartLoader func(ctx context.Context, repoURL, name, version string) (*chart.Chart, error)

// ConfigFactory builds the Helm action configuration for a namespace.
type ConfigFactory func(namespace string) (*action.Configuration, error)

// Client installs chart releases. It implements addons.ChartInstaller.
type Client struct {
	newConfig ConfigFactory
	loadChart ChartLoader
	timeout   time.Duration

	mu      sync.Mutex
	configs map[string]*action.Configuration
}

// Option configures a Client.
type Option func(*Client)

// WithChartLoader replaces the repository chart loader.
func WithChartLoader(l ChartLoader) Option {
	return func(c *Client) { c.loadChart = l }
}

// WithConfigFactory replaces how action configurations are built.
func WithConfigFactory(f ConfigFactory) Option {
	return func(c *Client) { c.newConfig = f }
}

// WithDefaultTimeout sets the timeout used by releases without one.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a Helm client from kubeconfig bytes.
func NewClient(kubeconfig []byte, opts ...Option) *Client {
	c := &Client{
		timeout: DefaultTimeout,
		configs: make(map[string]*action.Configuration),
		newConfig: func(namespace string) (*action.Configuration, error) {
			actionConfig := new(action.Configuration)
			restGetter := NewInMemoryRESTClientGetter(kubeconfig, namespace)
			// Helm debug output is dropped; progress is logged per release.
			if err := actionConfig.Init(restGetter, namespace, "secret", func(string, ...interface{}) {}); err != nil {
				return nil, fmt.Errorf("failed to initialize helm action config: %w", err)
			}
			return actionConfig, nil
		},
		loadChart: RepositoryChartLoader(cli.New()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ addons.ChartInstaller = (*Client)(nil)

// Install installs the release, or upgrades it when it already has history.
// A release left pending by an interrupted run is settled first.
func (c *Client) Install(ctx context.Context, namespace string, rel addons.ChartRelease) error {
	logger := log.FromContext(ctx).WithValues("release", rel.Release, "chart", rel.Chart, "version", rel.Version)

	cfg, err := c.configFor(namespace)
	if err != nil {
		return err
	}

	ch, err := c.loadChart(ctx, rel.Repository, rel.Chart, rel.Version)
	if err != nil {
		return fmt.Errorf("failed to load chart: %w", err)
	}

	if err := clearPending(ctx, cfg, rel.Release); err != nil {
		return err
	}

	timeout := rel.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	values := Values(rel.Values).Plain()

	exists, err := releaseExists(cfg, rel.Release)
	if err != nil {
		return fmt.Errorf("failed to read history of release %s: %w", rel.Release, err)
	}

	if !exists {
		installClient := action.NewInstall(cfg)
		installClient.ReleaseName = rel.Release
		installClient.Namespace = namespace
		installClient.Version = rel.Version
		installClient.Wait = rel.Wait
		installClient.Timeout = timeout

		if _, err := installClient.RunWithContext(ctx, ch, values); err != nil {
			return fmt.Errorf("failed to install release %s: %w", rel.Release, err)
		}
		logger.Info("installed chart")
		return nil
	}

	upgradeClient := action.NewUpgrade(cfg)
	upgradeClient.Namespace = namespace
	upgradeClient.Version = rel.Version
	upgradeClient.Wait = rel.Wait
	upgradeClient.Timeout = timeout
	upgradeClient.ReuseValues = false

	if _, err := upgradeClient.RunWithContext(ctx, rel.Release, ch, values); err != nil {
		return fmt.Errorf("failed to upgrade release %s: %w", rel.Release, err)
	}
	logger.Info("upgraded chart")
	return nil
}

func (c *Client) configFor(namespace string) (*action.Configuration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cfg, ok := c.configs[namespace]; ok {
		return cfg, nil
	}
	cfg, err := c.newConfig(namespace)
	if err != nil {
		return nil, err
	}
	c.configs[namespace] = cfg
	return cfg, nil
}

func releaseExists(cfg *action.Configuration, name string) (bool, error) {
	histClient := action.NewHistory(cfg)
	histClient.Max = 1
	_, err := histClient.Run(name)
	switch {
	case errors.Is(err, driver.ErrReleaseNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// clearPending settles a release whose last revision never finished, as
// Helm refuses to upgrade while another operation is in progress. An
// interrupted first install is uninstalled. An interrupted upgrade or
// rollback is rolled back to the last revision that was deployed, so the
// running add-on is never removed.
func clearPending(ctx context.Context, cfg *action.Configuration, name string) error {
	last, err := cfg.Releases.Last(name)
	if errors.Is(err, driver.ErrReleaseNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get last revision of release %s: %w", name, err)
	}
	if last.Info == nil || !last.Info.Status.IsPending() {
		return nil
	}
	logger := log.FromContext(ctx).WithValues("release", name, "status", last.Info.Status.String())

	if last.Info.Status != release.StatusPendingInstall {
		target, err := lastDeployedRevision(cfg, name, last.Version)
		if err != nil {
			return err
		}
		if target > 0 {
			logger.Info("release is pending, rolling back", "revision", target)
			rollbackClient := action.NewRollback(cfg)
			rollbackClient.Version = target
			if err := rollbackClient.Run(name); err != nil {
				return fmt.Errorf("failed to roll back pending release %s to revision %d: %w", name, target, err)
			}
			return nil
		}
	}

	logger.Info("release is pending, uninstalling")
	if _, err := action.NewUninstall(cfg).Run(name); err != nil {
		return fmt.Errorf("failed to uninstall pending release %s: %w", name, err)
	}
	return nil
}

// lastDeployedRevision returns the newest revision before pending that was
// deployed at some point, or 0 when there is none.
func lastDeployedRevision(cfg *action.Configuration, name string, pending int) (int, error) {
	history, err := cfg.Releases.History(name)
	if err != nil {
		return 0, fmt.Errorf("failed to read history of release %s: %w", name, err)
	}
	target := 0
	for _, rel := range history {
		if rel.Version >= pending || rel.Version <= target || rel.Info == nil {
			continue
		}
		switch rel.Info.Status {
		case release.StatusDeployed, release.StatusSuperseded:
			target = rel.Version
		}
	}
	return target, nil
}

// RepositoryChartLoader finds charts through the repository index and
// downloads the archive into memory.
func RepositoryChartLoader(settings *cli.EnvSettings) ChartLoader {
	providers := getter.All(settings)
	return func(ctx context.Context, repoURL, name, version string) (*chart.Chart, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chartURL, err := repo.FindChartInRepoURL(repoURL, name, version, "", "", "", providers)
		if err != nil {
			return nil, fmt.Errorf("failed to find chart %s in repo %s: %w", name, repoURL, err)
		}

		u, err := url.Parse(chartURL)
		if err != nil {
			return nil, fmt.Errorf("invalid chart URL %s: %w", chartURL, err)
		}
		g, err := providers.ByScheme(u.Scheme)
		if err != nil {
			return nil, fmt.Errorf("no getter for chart URL %s: %w", chartURL, err)
		}

		archive, err := g.Get(chartURL)
		if err != nil {
			return nil, fmt.Errorf("failed to download chart %s: %w", chartURL, err)
		}

		return loader.LoadArchive(archive)
	}
}
