// Package scheduler implements the scheduled jobs of the BloomWatch service.
//
// The site poller re-analyzes every active monitoring site on a cron cadence
// and persists the resulting snapshots, building up the per-site score series
// that the trend diagnostics consume.
package scheduler

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bloomwatch/internal/pipeline"
	"bloomwatch/internal/types"
)

// riskHistoryWindow is how many stored scores are fed to the trend engines.
const riskHistoryWindow = 30

// SiteLister abstracts the site registry read the poller needs.
type SiteLister interface {
	ListActive(ctx context.Context) ([]*types.Site, error)
}

// SnapshotStore abstracts snapshot persistence and score-series reads.
type SnapshotStore interface {
	Insert(ctx context.Context, snap *types.Snapshot) error
	RecentScores(ctx context.Context, siteID string, limit int) ([]float64, error)
}

// InputSource assembles the full input bundle for one location.
type InputSource interface {
	Fetch(ctx context.Context, loc types.Location) (types.AnalysisInputs, error)
}

// SitePoller runs one full analysis per active site and stores the outcome.
type SitePoller struct {
	fetcher   InputSource
	sites     SiteLister
	snapshots SnapshotStore

	siteTimeout    time.Duration
	maxConcurrency int
	logger         *slog.Logger
	nowFn          func() time.Time
}

// SitePollerConfig holds the configuration for creating a SitePoller.
type SitePollerConfig struct {
	Fetcher        InputSource
	Sites          SiteLister
	Snapshots      SnapshotStore
	SiteTimeout    time.Duration
	MaxConcurrency int
	Logger         *slog.Logger
}

// NewSitePoller creates a poller with the given configuration. Zero or
// negative tuning values fall back to safe defaults.
func NewSitePoller(cfg SitePollerConfig) *SitePoller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.SiteTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	concurrency := cfg.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &SitePoller{
		fetcher:        cfg.Fetcher,
		sites:          cfg.Sites,
		snapshots:      cfg.Snapshots,
		siteTimeout:    timeout,
		maxConcurrency: concurrency,
		logger:         logger,
		nowFn:          time.Now,
	}
}

// PollStats summarizes one polling pass.
type PollStats struct {
	Sites    int
	Analyzed int
	Failed   int
}

// Poll analyzes every active site once. A failure on one site is logged and
// counted but does not stop the others; the error return is reserved for
// failures that prevent the pass entirely, such as the site listing itself.
func (p *SitePoller) Poll(ctx context.Context) (PollStats, error) {
	sites, err := p.sites.ListActive(ctx)
	if err != nil {
		return PollStats{}, err
	}

	stats := PollStats{Sites: len(sites)}
	if len(sites) == 0 {
		p.logger.InfoContext(ctx, "no active sites to poll")
		return stats, nil
	}

	var analyzed, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrency)

	for _, site := range sites {
		site := site
		g.Go(func() error {
			if err := p.pollSite(gctx, site); err != nil {
				failed.Add(1)
				p.logger.ErrorContext(gctx, "site analysis failed",
					slog.String("site_id", site.ID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			analyzed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	stats.Analyzed = int(analyzed.Load())
	stats.Failed = int(failed.Load())

	p.logger.InfoContext(ctx, "polling pass complete",
		slog.Int("sites", stats.Sites),
		slog.Int("analyzed", stats.Analyzed),
		slog.Int("failed", stats.Failed),
	)
	return stats, nil
}

// pollSite runs the fetch-analyze-persist cycle for one site under its own
// deadline.
func (p *SitePoller) pollSite(ctx context.Context, site *types.Site) error {
	ctx, cancel := context.WithTimeout(ctx, p.siteTimeout)
	defer cancel()

	inputs, err := p.fetcher.Fetch(ctx, site.Location)
	if err != nil {
		return err
	}

	scores, err := p.snapshots.RecentScores(ctx, site.ID, riskHistoryWindow)
	if err != nil {
		// A missing series only disables the trend diagnostics.
		p.logger.WarnContext(ctx, "score history unavailable",
			slog.String("site_id", site.ID),
			slog.String("error", err.Error()),
		)
	} else {
		inputs.RiskHistory = scores
	}

	result := pipeline.Analyze(inputs, p.nowFn())
	result.SiteID = site.ID

	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}

	snap := &types.Snapshot{
		ID:          "snap_" + uuid.NewString(),
		SiteID:      site.ID,
		Location:    result.Location,
		RiskScore:   result.Risk.RiskScore,
		RiskLevel:   result.Risk.RiskLevel,
		WHOSeverity: result.Risk.WHOSeverity,
		MuPerDay:    result.GrowthRate.MuPerDay,
		Confidence:  result.Confidence,
		Payload:     payload,
		CreatedAt:   result.AnalyzedAt,
	}
	return p.snapshots.Insert(ctx, snap)
}
