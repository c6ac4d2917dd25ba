// Package metrics exposes the Prometheus metrics of the catalog client.
// All metrics are defined in their respective packages (client, ratelimit,
// pagination) via promauto and registered on the default registry.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the default Prometheus registry used by the catalog client.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry read by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler serves all registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Metrics server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - catalog_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - catalog_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - catalog_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, decode)
//
// Retry Metrics (pkg/client):
//   - catalog_retries_total{error_class} (Counter): Retry attempts by error class
//   - catalog_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - catalog_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Rate Limit Metrics (pkg/ratelimit):
//   - catalog_rate_limit_remaining (Gauge): Requests remaining in the shared window
//   - catalog_rate_limit_blocks_total (Counter): Requests blocked at the critical threshold
//   - catalog_rate_limit_throttles_total (Counter): Requests delayed at the warning threshold
//
// Loading Metrics (pkg/pagination):
//   - catalog_pages_loaded_total{mode} (Counter): Pages appended, by sequential/search mode
//   - catalog_partitions_exhausted_total (Counter): Partitions traversed to the end
//   - catalog_stale_completions_total (Counter): Fetch results discarded after a mode switch
//   - catalog_load_errors_total{mode} (Counter): Failed page loads
//   - catalog_accumulated_items (Gauge): Cards currently held in the list
//
// Example Prometheus Queries:
//
//   # Pages per minute by mode
//   sum by (mode) (rate(catalog_pages_loaded_total[1m])) * 60
//
//   # Load failure ratio
//   sum(rate(catalog_load_errors_total[5m])) / sum(rate(catalog_pages_loaded_total[5m]))
//
//   # Shared budget running low
//   catalog_rate_limit_remaining < 20
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(catalog_request_duration_seconds_bucket[5m]))
