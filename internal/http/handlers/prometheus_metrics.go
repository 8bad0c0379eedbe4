package handlers

import (
	"bytes"
	"strconv"
	"sync"
	"time"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/valyala/fasthttp"

	"drivepulse/internal/logging"
)

var (
	// Registry holds every collector exposed on /metrics.
	Registry = prometheus.NewRegistry()

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	ingestedRows    *prometheus.CounterVec
	batchUploads    *prometheus.CounterVec

	metricsOnce sync.Once
)

// InitPrometheusMetrics registers the collectors. Calling it more than
// once is a no-op.
func InitPrometheusMetrics() {
	metricsOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "drivepulse",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests served.",
			},
			[]string{"route", "method", "status"},
		)
		requestDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "drivepulse",
				Name:      "http_request_duration_seconds",
				Help:      "Histogram of HTTP request durations in seconds.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"route", "method"},
		)
		ingestedRows = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "drivepulse",
				Name:      "ingested_rows_total",
				Help:      "Rows committed by batch uploads, by kind.",
			},
			[]string{"kind"},
		)
		batchUploads = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "drivepulse",
				Name:      "batch_uploads_total",
				Help:      "Batch upload attempts by outcome.",
			},
			[]string{"outcome"},
		)
		Registry.MustRegister(
			requestsTotal, requestDuration, ingestedRows, batchUploads,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// routeLabel prefers the matched route pattern so ids do not blow up
// label cardinality.
func routeLabel(ctx *fasthttp.RequestCtx) string {
	if p, ok := ctx.UserValue(router.MatchedRoutePathParam).(string); ok && p != "" {
		return p
	}
	if ctx.Response.StatusCode() == fasthttp.StatusNotFound {
		return "unmatched"
	}
	return string(ctx.Path())
}

// RequestLogger returns fasthttp middleware that logs method, path, status,
// duration and records the request metrics.
func RequestLogger(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		elapsed := time.Since(start)

		status := ctx.Response.StatusCode()
		route := routeLabel(ctx)
		method := string(ctx.Method())
		if requestsTotal != nil {
			requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
			requestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
		}

		ev := logging.Info()
		if status >= fasthttp.StatusInternalServerError {
			ev = logging.Error()
		}
		ev.Str("method", method).
			Bytes("path", ctx.Path()).
			Int("status", status).
			Dur("duration", elapsed).
			Str("remote_ip", ctx.RemoteIP().String()).
			Msg("request")
	}
}

func recordBatch(outcome string, counts map[string]int) {
	if batchUploads == nil {
		return
	}
	batchUploads.WithLabelValues(outcome).Inc()
	for kind, n := range counts {
		if n > 0 {
			ingestedRows.WithLabelValues(kind).Add(float64(n))
		}
	}
}

// MetricsHandler serves the registry in the Prometheus text format.
func MetricsHandler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		metricFamilies, err := Registry.Gather()
		if err != nil {
			logging.Error().Err(err).Msg("gather metrics")
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to gather metrics")
			return
		}

		var buf bytes.Buffer
		encoder := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
		for _, mf := range nonEmptyFamilies(metricFamilies) {
			if err := encoder.Encode(mf); err != nil {
				errResponse(ctx, fasthttp.StatusInternalServerError, "failed to encode metrics")
				return
			}
		}

		ctx.SetContentType(string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		ctx.Response.Header.Set("Cache-Control", "no-store")
		ctx.SetBody(buf.Bytes())
	}
}

// nonEmptyFamilies drops families without samples.
func nonEmptyFamilies(in []*dto.MetricFamily) []*dto.MetricFamily {
	out := make([]*dto.MetricFamily, 0, len(in))
	for _, mf := range in {
		if len(mf.GetMetric()) > 0 {
			out = append(out, mf)
		}
	}
	return out
}
