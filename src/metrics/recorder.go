package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// 状态标签
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Recorder 记录加载、渲染和推送
type Recorder interface {
	RecordLoad(status string, hourRows, dayRows int, d time.Duration)
	RecordRender(dataset, status string, d time.Duration)
	RecordPush(status string)
}

// NopRecorder 什么都不做
type NopRecorder struct{}

func (NopRecorder) RecordLoad(string, int, int, time.Duration) {}
func (NopRecorder) RecordRender(string, string, time.Duration) {}
func (NopRecorder) RecordPush(string)                          {}

// PrometheusRecorder 使用独立 registry，便于测试和 /metrics 暴露
type PrometheusRecorder struct {
	registry *prometheus.Registry

	loadDuration   *prometheus.HistogramVec
	loadTotal      *prometheus.CounterVec
	rowsLoaded     *prometheus.GaugeVec
	renderDuration *prometheus.HistogramVec
	renderTotal    *prometheus.CounterVec
	pushTotal      *prometheus.CounterVec
}

func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		loadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rental_load_duration_seconds",
			Help:    "Duration of dataset loads.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		loadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rental_load_total",
			Help: "Total dataset loads by status.",
		}, []string{"status"}),
		rowsLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rental_rows_loaded",
			Help: "Rows in the currently loaded tables.",
		}, []string{"dataset"}),
		renderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rental_render_duration_seconds",
			Help:    "Duration of dashboard render passes.",
			Buckets: prometheus.DefBuckets,
		}, []string{"dataset", "status"}),
		renderTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rental_render_total",
			Help: "Total dashboard render passes.",
		}, []string{"dataset", "status"}),
		pushTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rental_push_total",
			Help: "Total webhook pushes by status.",
		}, []string{"status"}),
	}

	registry.MustRegister(r.loadDuration)
	registry.MustRegister(r.loadTotal)
	registry.MustRegister(r.rowsLoaded)
	registry.MustRegister(r.renderDuration)
	registry.MustRegister(r.renderTotal)
	registry.MustRegister(r.pushTotal)
	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

func (r *PrometheusRecorder) RecordLoad(status string, hourRows, dayRows int, d time.Duration) {
	r.loadTotal.WithLabelValues(status).Inc()
	r.loadDuration.WithLabelValues(status).Observe(d.Seconds())
	if status == StatusOK {
		r.rowsLoaded.WithLabelValues("hour").Set(float64(hourRows))
		r.rowsLoaded.WithLabelValues("day").Set(float64(dayRows))
	}
}

func (r *PrometheusRecorder) RecordRender(dataset, status string, d time.Duration) {
	r.renderTotal.WithLabelValues(dataset, status).Inc()
	r.renderDuration.WithLabelValues(dataset, status).Observe(d.Seconds())
}

func (r *PrometheusRecorder) RecordPush(status string) {
	r.pushTotal.WithLabelValues(status).Inc()
}
