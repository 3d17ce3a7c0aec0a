// Package metrics exposes Prometheus counters for the card economy. Scrape them at /metrics.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DrawsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waifu_draws_total",
			Help: "Cards issued by draws, by requested minimum and rolled tier",
		},
		[]string{"minimum", "tier"},
	)

	DrawDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "waifu_draw_duration_seconds",
			Help:    "Time from draw request to committed card",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	SalesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waifu_sales_total",
			Help: "Cards sold back, by tier",
		},
		[]string{"tier"},
	)

	UpgradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waifu_upgrades_total",
			Help: "Applied upgrade steps, by resulting tier and whether the step promoted",
		},
		[]string{"tier", "promoted"},
	)

	TradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waifu_trades_total",
			Help: "Trades leaving pending, by terminal status",
		},
		[]string{"status"},
	)

	GiftsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waifu_gifts_total",
			Help: "Gifts sent, by kind",
		},
		[]string{"kind"},
	)

	RejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waifu_rejections_total",
			Help: "Requests refused for an expected reason, by operation and reason",
		},
		[]string{"operation", "reason"},
	)

	StorageErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waifu_storage_errors_total",
			Help: "Operations that failed on a storage error",
		},
		[]string{"operation"},
	)

	InteractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waifu_interaction_duration_seconds",
			Help:    "Slash command and component handling time, by name and outcome",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"name", "status"},
	)

	RendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waifu_renders_total",
			Help: "Card renders, by engine and cache outcome",
		},
		[]string{"engine", "cache"},
	)
)

// Serve exposes the default registry on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Metrics server listening", slog.String("type", "sys"), slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
