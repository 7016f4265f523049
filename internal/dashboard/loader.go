package dashboard

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goubera/top10/internal/config"
	"github.com/goubera/top10/internal/infra"
	"github.com/goubera/top10/pkg/models"
	"github.com/goubera/top10/pkg/utils"
)

// Source is the backend as seen by the loader. Reads return nil on
// failure; the source has already told the user why.
type Source interface {
	Stats(ctx context.Context) *models.StatsSnapshot
	TopGainers(ctx context.Context) *models.TopGainersResponse
	NewTokens(ctx context.Context) *models.NewTokensResponse
	Trends(ctx context.Context, days int) *models.TrendsResponse
	Collect(ctx context.Context) (*models.CollectionResult, error)
	ExportURL(date string) string
}

// Loader fetches everything the page shows and hands it to the updaters.
type Loader struct {
	src     Source
	view    *View
	toast   *Toaster
	loading *Loading
	cfg     config.DashboardConfig
	loc     *time.Location
	log     *zap.Logger
	now     func() time.Time

	// schedule runs fn after d. A Scheduler replaces it so the delayed
	// reload is tracked and cancelled with its other work.
	schedule func(ctx context.Context, d time.Duration, fn func(context.Context))
}

// NewLoader wires a loader. A nil logger discards output.
func NewLoader(src Source, view *View, toast *Toaster, loading *Loading, cfg config.DashboardConfig, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TrendDays <= 0 {
		cfg.TrendDays = 7
	}
	return &Loader{
		src:      src,
		view:     view,
		toast:    toast,
		loading:  loading,
		cfg:      cfg,
		loc:      utils.LoadLocation(cfg.Timezone),
		log:      log,
		now:      time.Now,
		schedule: afterFunc,
	}
}

func afterFunc(ctx context.Context, d time.Duration, fn func(context.Context)) {
	ctx = context.WithoutCancel(ctx)
	time.AfterFunc(d, func() { fn(ctx) })
}

// LoadAll runs one full load cycle: four concurrent fetches joined before
// any region is touched. A failed fetch leaves its region as it was. The
// overlay is released on every path, including a panic in an updater.
func (l *Loader) LoadAll(ctx context.Context) {
	release := l.loading.Acquire()
	defer release()

	var (
		stats     *models.StatsSnapshot
		gainers   *models.TopGainersResponse
		newTokens *models.NewTokensResponse
		trends    *models.TrendsResponse
	)

	// Every goroutine returns nil: one failure must not cancel the others.
	var g errgroup.Group
	g.Go(func() error { stats = l.src.Stats(ctx); return nil })
	g.Go(func() error { gainers = l.src.TopGainers(ctx); return nil })
	g.Go(func() error { newTokens = l.src.NewTokens(ctx); return nil })
	g.Go(func() error { trends = l.src.Trends(ctx, l.cfg.TrendDays); return nil })
	_ = g.Wait()

	now := l.now()

	if stats != nil {
		l.view.Update(func(b *Bindings) { UpdateStats(b, stats) }, statIDs...)
	}
	if gainers != nil {
		l.view.Update(func(b *Bindings) { UpdateTopGainers(b, gainers.TopGainers) }, IDTopGainers)
	}
	if newTokens != nil {
		l.view.Update(func(b *Bindings) { UpdateNewTokens(b, newTokens.NewTokens, now) }, IDNewTokensTable)
	}
	if trends != nil {
		l.view.Update(func(b *Bindings) { UpdateTrending(b, trends.TrendingTokens) }, IDTrending)
	}
	if stats != nil {
		l.view.UpdateCharts(stats)
	}

	l.view.Update(func(b *Bindings) { UpdateLastUpdate(b, now, l.loc) }, IDLastUpdate)

	infra.DashboardLoads.Inc()
	l.log.Debug("dashboard loaded",
		zap.Bool("stats", stats != nil),
		zap.Bool("top_gainers", gainers != nil),
		zap.Bool("new_tokens", newTokens != nil),
		zap.Bool("trends", trends != nil))
}

// Refresh is the manual refresh action. The confirmation toast goes up
// first, so an error toast from a failing fetch replaces it.
func (l *Loader) Refresh(ctx context.Context) {
	l.toast.Show("Data refreshed", ToastSuccess)
	l.LoadAll(ctx)
}

// TriggerCollection asks the backend to collect now and, on success,
// reloads the page data after the configured delay.
func (l *Loader) TriggerCollection(ctx context.Context) {
	release := l.loading.Acquire()
	defer release()

	res, err := l.src.Collect(ctx)
	switch {
	case err != nil:
		l.toast.Show("Error: "+err.Error(), ToastError)
	case res != nil && res.Success:
		l.toast.Show("Collection completed successfully!", ToastSuccess)
		l.schedule(ctx, l.cfg.CollectReloadDelay, l.LoadAll)
	default:
		l.toast.Show("Collection failed", ToastError)
	}
}

// ExportURL returns the CSV download link for the viewer's current
// calendar date.
func (l *Loader) ExportURL() string {
	u := l.src.ExportURL(utils.LocalDate(l.now(), l.loc))
	l.toast.Show("Downloading CSV...", ToastSuccess)
	return u
}
