// Package prometheus exposes credauth engine metrics to Prometheus.
//
// [Exporter] implements [github.com/prometheus/client_golang/prometheus.Collector]
// so it can be registered in any registry, and also renders the text
// exposition format directly through [Exporter.Render]. Counter names are
// credauth_*_total and the latency histogram is
// credauth_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register into the global default registry.
//   - Mutate engine state.
package prometheus
