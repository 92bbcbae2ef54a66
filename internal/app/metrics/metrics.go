package metrics

import (
	"epg/internal/app/epg"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ epg.Metrics = (*Metrics)(nil)

// Metrics EPG更新与查询的Prometheus指标
type Metrics struct {
	registry *prometheus.Registry

	updatesTotal      prometheus.Counter
	updateFailures    *prometheus.CounterVec
	lastUpdate        prometheus.Gauge
	updateDuration    prometheus.Histogram
	channels          prometheus.Gauge
	programs          prometheus.Gauge
	skippedTotal      prometheus.Counter
	missingChannel    prometheus.Counter
	lookupsTotal      *prometheus.CounterVec
	httpRequestsTotal *prometheus.CounterVec
}

// New 创建并注册指标
func New() *Metrics {
	m := Metrics{
		registry: prometheus.NewRegistry(),
		updatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "epg_updates_total",
			Help: "Total number of successful EPG updates",
		}),
		updateFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "epg_update_failures_total",
			Help: "Total number of failed EPG updates by pipeline stage",
		}, []string{"stage"}),
		lastUpdate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "epg_last_update_timestamp_seconds",
			Help: "Unix time of the last successful EPG update",
		}),
		updateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "epg_ingest_duration_seconds",
			Help:    "Time spent ingesting programmes in one update",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		channels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "epg_channels",
			Help: "Number of channels in the published EPG index",
		}),
		programs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "epg_programs",
			Help: "Number of programs in the published EPG index",
		}),
		skippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "epg_programmes_skipped_total",
			Help: "Total number of programmes skipped because of unparseable times",
		}),
		missingChannel: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "epg_programmes_missing_channel_total",
			Help: "Total number of programmes without a channel attribute",
		}),
		lookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "epg_lookups_total",
			Help: "Total number of program lookups by kind and result",
		}, []string{"kind", "result"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "epg_http_requests_total",
			Help: "Total number of HTTP requests by status code",
		}, []string{"code"}),
	}

	m.registry.MustRegister(
		m.updatesTotal,
		m.updateFailures,
		m.lastUpdate,
		m.updateDuration,
		m.channels,
		m.programs,
		m.skippedTotal,
		m.missingChannel,
		m.lookupsTotal,
		m.httpRequestsTotal,
	)
	return &m
}

// UpdateSucceeded 记录一次成功的更新
func (m *Metrics) UpdateSucceeded(report *epg.Report, channels, programs int) {
	m.updatesTotal.Inc()
	m.lastUpdate.SetToCurrentTime()
	m.channels.Set(float64(channels))
	m.programs.Set(float64(programs))
	if report != nil {
		m.updateDuration.Observe(report.Duration.Seconds())
		m.skippedTotal.Add(float64(report.Skipped))
		m.missingChannel.Add(float64(report.MissingChannel))
	}
}

// UpdateFailed 记录一次失败的更新
func (m *Metrics) UpdateFailed(stage string) {
	m.updateFailures.WithLabelValues(stage).Inc()
}

// LookupServed 记录一次查询
func (m *Metrics) LookupServed(kind string, found bool) {
	result := "miss"
	if found {
		result = "hit"
	}
	m.lookupsTotal.WithLabelValues(kind, result).Inc()
}

// ObserveHTTP 记录HTTP响应码
func (m *Metrics) ObserveHTTP(code string) {
	m.httpRequestsTotal.WithLabelValues(code).Inc()
}

// Handler 输出Prometheus指标
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
