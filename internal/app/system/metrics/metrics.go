// internal/app/system/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes.
const (
	OutcomeAccepted  = "accepted"
	OutcomeReplayed  = "replayed"
	OutcomeRejected  = "rejected"
	OutcomeDuplicate = "duplicate"
	OutcomeError     = "error"
)

// Metrics holds the workflow counters. A nil *Metrics is valid and records
// nothing, so tests can pass nil.
type Metrics struct {
	reg *prometheus.Registry

	TokensIssued    prometheus.Counter
	Submissions     *prometheus.CounterVec
	EmailsSent      *prometheus.CounterVec
	Uploads         *prometheus.CounterVec
	RosterRows      prometheus.Counter
	FincenRefreshes *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

// New registers all metrics on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		TokensIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "membersverify_form_tokens_issued_total",
			Help: "Total number of form tokens issued",
		}),
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "membersverify_submissions_total",
			Help: "Form submissions by outcome",
		}, []string{"outcome"}),
		EmailsSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "membersverify_outreach_emails_total",
			Help: "Outreach emails by result (sent|failed)",
		}, []string{"result"}),
		Uploads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "membersverify_id_uploads_total",
			Help: "ID document uploads by result (stored|rejected|failed)",
		}, []string{"result"}),
		RosterRows: f.NewCounter(prometheus.CounterOpts{
			Name: "membersverify_roster_rows_imported_total",
			Help: "Roster rows inserted by imports",
		}),
		FincenRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "membersverify_fincen_token_refreshes_total",
			Help: "FinCEN token refreshes by result (ok|error)",
		}, []string{"result"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "membersverify_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) TokenIssued() {
	if m != nil {
		m.TokensIssued.Inc()
	}
}

func (m *Metrics) Submission(outcome string) {
	if m != nil {
		m.Submissions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Email(sent bool) {
	if m != nil {
		m.EmailsSent.WithLabelValues(result(sent, "sent", "failed")).Inc()
	}
}

func (m *Metrics) Upload(result string) {
	if m != nil {
		m.Uploads.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) RowsImported(n int) {
	if m != nil && n > 0 {
		m.RosterRows.Add(float64(n))
	}
}

// TokenRefreshed satisfies fincen.Observer.
func (m *Metrics) TokenRefreshed(ok bool) {
	if m != nil {
		m.FincenRefreshes.WithLabelValues(result(ok, "ok", "error")).Inc()
	}
}

func result(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

// Middleware records request latency labeled by the matched chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
