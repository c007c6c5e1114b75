package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/dochost/internal/metrics"
	"git.home.luguber.info/inful/dochost/internal/watch"
)

// WatchCmd implements the 'watch' command: the long-running ingestion
// daemon with Prometheus metrics.
type WatchCmd struct {
	Spool string `help:"Spool directory to watch (overrides config)"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	registry := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(registry)

	app, err := openApp(root, rec)
	if err != nil {
		return err
	}
	defer app.Close()

	spool := app.cfg.Watch.Spool
	if w.Spool != "" {
		spool = w.Spool
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if addr := app.cfg.Watch.MetricsAddr; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, registry); err != nil {
				slog.Error("metrics endpoint failed", "error", err)
			}
		}()
	}

	daemon := watch.New(app.importer, app.lifecycle, spool,
		time.Duration(app.cfg.Watch.ReconcileInterval))
	return daemon.Run(ctx)
}
