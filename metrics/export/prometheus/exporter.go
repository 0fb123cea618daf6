package prometheus

import (
	"net/http"
	"strings"

	"github.com/MrEthical07/credauth"
	"github.com/MrEthical07/credauth/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

type metricsSource interface {
	MetricsSnapshot() credauth.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter renders credauth metrics in Prometheus text exposition format and
// doubles as a [prometheus.Collector].
type Exporter struct {
	source metricsSource

	counterDescs   []*prometheus.Desc
	histogramDescs []*prometheus.Desc
	droppedDesc    *prometheus.Desc
}

var _ prometheus.Collector = (*Exporter)(nil)

// NewExporter creates an exporter that reads from engine.
func NewExporter(engine *credauth.Engine) *Exporter {
	return NewExporterFromSource(engine)
}

// NewExporterFromSource creates an exporter over any snapshot source.
func NewExporterFromSource(source metricsSource) *Exporter {
	e := &Exporter{
		source:         source,
		counterDescs:   make([]*prometheus.Desc, len(internaldefs.CounterDefs)),
		histogramDescs: make([]*prometheus.Desc, len(internaldefs.HistogramDefs)),
		droppedDesc:    prometheus.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil),
	}
	for i, def := range internaldefs.CounterDefs {
		e.counterDescs[i] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	for i, def := range internaldefs.HistogramDefs {
		e.histogramDescs[i] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	return e
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range e.counterDescs {
		ch <- d
	}
	for _, d := range e.histogramDescs {
		ch <- d
	}
	ch <- e.droppedDesc
}

// Collect implements prometheus.Collector. Every collection reads one fresh
// snapshot.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	if e.source == nil {
		return
	}
	snapshot := e.source.MetricsSnapshot()

	for i, def := range internaldefs.CounterDefs {
		ch <- prometheus.MustNewConstMetric(e.counterDescs[i], prometheus.CounterValue, float64(snapshot.Counters[def.ID]))
	}

	for i, def := range internaldefs.HistogramDefs {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for j, le := range internaldefs.HistogramUpperBounds {
			buckets[le] = cumulative[j]
		}
		ch <- prometheus.MustNewConstHistogram(e.histogramDescs[i], cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(e.droppedDesc, prometheus.CounterValue, float64(e.source.AuditDropped()))
}

// Handler serves the metrics through a private registry so nothing is added
// to the global default registerer.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry(), promhttp.HandlerOpts{})
}

func (e *Exporter) registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(e)
	return reg
}

// Render writes the current metrics in Prometheus text exposition format,
// encoded by expfmt from the same collection Handler serves. It returns ""
// while metrics are disabled and nothing was dropped.
//
// Snapshots carry bucket counts only, so histogram _sum is always 0.
func (e *Exporter) Render() string {
	if e == nil || e.source == nil {
		return ""
	}

	snapshot := e.source.MetricsSnapshot()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && e.source.AuditDropped() == 0 {
		return ""
	}

	families, err := e.registry().Gather()
	if err != nil {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&b, mf); err != nil {
			return ""
		}
	}
	return b.String()
}
