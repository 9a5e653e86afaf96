package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"friday/internal/nlu"
)

const (
	Namespace         = "friday"
	SubsystemDialogue = "dialogue"
	SubsystemHTTP     = "http"
	SubsystemSystem   = "system"
)

type Metrics struct {
	registry *prometheus.Registry

	startTime prometheus.Gauge

	turnsTotal      *prometheus.CounterVec
	clausesTotal    *prometheus.CounterVec
	dispatchesTotal *prometheus.CounterVec
	sessionsActive  prometheus.Gauge

	httpTime *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: Namespace}))
	m.registry.MustRegister(collectors.NewGoCollector())

	m.startTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: SubsystemSystem,
		Name:      "start_timestamp_seconds",
		Help:      "The time the server started.",
	})
	m.startTime.SetToCurrentTime()
	m.registry.MustRegister(m.startTime)

	m.turnsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemDialogue,
		Name:      "turns_total",
		Help:      "Utterances processed, by path (fast or final) and interface.",
	}, []string{"mode", "interface"})
	m.registry.MustRegister(m.turnsTotal)

	m.clausesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemDialogue,
		Name:      "clauses_total",
		Help:      "Clauses handed to a dispatcher, by whether an intent matched.",
	}, []string{"matched"})
	m.registry.MustRegister(m.clausesTotal)

	m.dispatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemDialogue,
		Name:      "dispatches_total",
		Help:      "Handler invocations, by intent and outcome.",
	}, []string{"intent", "status"})
	m.registry.MustRegister(m.dispatchesTotal)

	m.sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: SubsystemDialogue,
		Name:      "sessions_active",
		Help:      "Dialogue sessions currently held in memory.",
	})
	m.registry.MustRegister(m.sessionsActive)

	m.httpTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: SubsystemHTTP,
		Name:      "request_duration_seconds",
		Help:      "Time to serve an HTTP request.",
	}, []string{"route", "method", "status_code"})
	m.registry.MustRegister(m.httpTime)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveTurn(final bool, iface string) {
	if m == nil {
		return
	}
	mode := "fast"
	if final {
		mode = "final"
	}
	m.turnsTotal.With(prometheus.Labels{"mode": mode, "interface": iface}).Inc()
}

func (m *Metrics) SetSessions(n int) {
	if m != nil {
		m.sessionsActive.Set(float64(n))
	}
}

// Instrument counts every structure passed through d.
func (m *Metrics) Instrument(d nlu.Dispatcher) nlu.Dispatcher {
	if m == nil {
		return d
	}
	return nlu.DispatchFunc(func(ctx context.Context, ts *nlu.TextStructure) error {
		if ts.Intent == "" {
			m.clausesTotal.With(prometheus.Labels{"matched": "false"}).Inc()
			return d.Dispatch(ctx, ts)
		}
		m.clausesTotal.With(prometheus.Labels{"matched": "true"}).Inc()
		err := d.Dispatch(ctx, ts)
		status := "ok"
		if err != nil {
			status = "error"
		}
		m.dispatchesTotal.With(prometheus.Labels{"intent": ts.IntentName(), "status": status}).Inc()
		return err
	})
}

// Middleware records request durations labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpTime.With(prometheus.Labels{
			"route":       route,
			"method":      r.Method,
			"status_code": strconv.Itoa(status),
		}).Observe(time.Since(start).Seconds())
	})
}
