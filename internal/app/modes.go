package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/marketdash/internal/domain"
	"github.com/alanyoungcy/marketdash/internal/pipeline"
	"github.com/alanyoungcy/marketdash/internal/server"
	"github.com/alanyoungcy/marketdash/internal/server/handler"
	"github.com/alanyoungcy/marketdash/internal/server/ws"
	"github.com/alanyoungcy/marketdash/internal/ui"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// ServerMode serves the HTTP API and WebSocket push while the refresher keeps
// the listings warm.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startRefresher(ctx, g, deps)

	status := a.status(deps)
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Status:         status,
		AllowedOrigins: a.cfg.Server.CORSOrigins,
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
		},
		server.Handlers{
			Health: handler.NewHealthHandler(),
			Status: handler.NewStatusHandler(status),
			Markets: handler.NewMarketHandler(deps.Markets, handler.Limits{
				Markets:  a.cfg.Dashboard.MarketsLimit,
				Trending: a.cfg.Dashboard.TrendingLimit,
				Max:      a.cfg.Dashboard.MaxLimit,
			}, a.logger),
		},
		hub,
		a.logger,
	)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)),
		)
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return ignoreCanceled(g.Wait())
}

// TUIMode runs the terminal dashboard. The refresher runs alongside so the
// cache stays warm and source health is still tracked.
func (a *App) TUIMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting tui mode")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	a.startRefresher(gctx, g, deps)

	dash := ui.NewApp(deps.Markets, ui.Config{
		MarketsLimit:    a.cfg.Dashboard.MarketsLimit,
		TrendingLimit:   a.cfg.Dashboard.TrendingLimit,
		RefreshInterval: a.cfg.Dashboard.RefreshInterval.Duration,
	}, a.logger)

	// Quitting the dashboard stops the background refresher.
	g.Go(func() error {
		defer cancel()
		return dash.Run(gctx)
	})

	return ignoreCanceled(g.Wait())
}

// snapshotOutput is the document written by SnapshotMode.
type snapshotOutput struct {
	GeneratedAt time.Time              `json:"generatedAt"`
	Status      domain.DashboardStatus `json:"status"`
	Markets     []domain.Market        `json:"markets"`
	Trending    []domain.Market        `json:"trending"`
	Counts      map[domain.Source]int  `json:"counts"`
}

// SnapshotMode fetches the markets and trending listings once, writes them
// as JSON and returns.
func (a *App) SnapshotMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting snapshot mode")

	var markets, trending []domain.Market
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		markets = deps.Aggregator.FetchAll(gctx, a.cfg.Dashboard.MarketsLimit)
		return nil
	})
	g.Go(func() error {
		trending = deps.Aggregator.FetchTrending(gctx, a.cfg.Dashboard.TrendingLimit)
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("snapshot mode: %w", err)
	}

	deps.Health.Observe(ctx, domain.CountBySource(markets))

	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshotOutput{
		GeneratedAt: time.Now().UTC(),
		Status:      a.status(deps),
		Markets:     markets,
		Trending:    trending,
		Counts:      domain.CountBySource(markets),
	}); err != nil {
		return fmt.Errorf("snapshot mode: write: %w", err)
	}
	return nil
}

// startRefresher runs the periodic listing refresh on g.
func (a *App) startRefresher(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	refresher := pipeline.NewRefresher(deps.Markets, deps.SignalBus, deps.Health, pipeline.RefresherConfig{
		MarketsLimit:  a.cfg.Dashboard.MarketsLimit,
		TrendingLimit: a.cfg.Dashboard.TrendingLimit,
	}, a.logger)

	g.Go(func() error {
		return refresher.RunLoop(ctx, a.cfg.Dashboard.RefreshInterval.Duration)
	})
}

func (a *App) status(deps *Dependencies) domain.DashboardStatus {
	return domain.DashboardStatus{
		Mode:            a.cfg.Mode,
		Sources:         deps.Aggregator.Sources(),
		MarketsLimit:    a.cfg.Dashboard.MarketsLimit,
		TrendingLimit:   a.cfg.Dashboard.TrendingLimit,
		RefreshInterval: a.cfg.Dashboard.RefreshInterval.Duration.String(),
		CacheBackend:    deps.CacheBackend,
	}
}

// ignoreCanceled maps the cancellation that ends every long-running mode to a
// clean exit.
func ignoreCanceled(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
