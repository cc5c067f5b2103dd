package monitoring

import (
	"fmt"
	"io"
	"runtime"
	"sort"
	"strings"
	"sync"
)

// PrometheusExporter renders a worker's MetricsCollector snapshot as
// Prometheus text exposition format for GET /metrics/prometheus.
type PrometheusExporter struct {
	metrics *MetricsCollector
	mu      sync.RWMutex
}

// NewPrometheusExporter wraps metrics for scraping.
func NewPrometheusExporter(metrics *MetricsCollector) *PrometheusExporter {
	return &PrometheusExporter{
		metrics: metrics,
	}
}

// Export writes every counter, gauge, and histogram percentile the
// collector currently holds, grouped under one HELP/TYPE block per base
// name, followed by this process's Go runtime stats.
func (p *PrometheusExporter) Export(w io.Writer) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	metricsData := p.metrics.GetMetrics()

	metricGroups := make(map[string][]Metric)
	for _, metric := range metricsData {
		baseName := getBaseMetricName(metric.Name)
		metricGroups[baseName] = append(metricGroups[baseName], metric)
	}

	var metricNames []string
	for name := range metricGroups {
		metricNames = append(metricNames, name)
	}
	sort.Strings(metricNames)

	for _, baseName := range metricNames {
		metrics := metricGroups[baseName]
		if len(metrics) == 0 {
			continue
		}

		metric := metrics[0]
		prometheusName := toPrometheusName(baseName)

		help := getMetricHelp(baseName)
		fmt.Fprintf(w, "# HELP %s %s\n", prometheusName, help)

		metricType := getPrometheusType(metric.Type)
		fmt.Fprintf(w, "# TYPE %s %s\n", prometheusName, metricType)

		for _, m := range metrics {
			writeMetricValue(w, prometheusName, m)
		}
		fmt.Fprintln(w)
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	writeGoMetrics(w, &m)

	return nil
}

// getBaseMetricName strips one _total/_seconds/_bytes/_count/_sum/_bucket
// suffix, so e.g. "query_eval_ms_count" and "query_eval_ms_sum" group
// under one HELP/TYPE block. Other suffixes such as "_p99" and "_avg" are
// kept, so those names form their own blocks.
func getBaseMetricName(name string) string {
	suffixes := []string{"_total", "_seconds", "_bytes", "_count", "_sum", "_bucket"}
	for _, suffix := range suffixes {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}

// toPrometheusName namespaces and sanitizes name for exposition.
func toPrometheusName(name string) string {
	name = "tickdb_" + name
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ToLower(name)
	return name
}

// getPrometheusType maps internal metric type to Prometheus type
func getPrometheusType(metricType string) string {
	switch metricType {
	case "counter":
		return "counter"
	case "gauge":
		return "gauge"
	case "histogram":
		return "histogram"
	case "summary":
		return "summary"
	default:
		return "untyped"
	}
}

// getMetricHelp returns help text for metrics
func getMetricHelp(name string) string {
	helpTexts := map[string]string{
		"total_queries_executed": "Total number of queries dispatched",
		"total_rows_scanned":     "Total number of rows scanned across all queries",
		"total_bytes_read":       "Total bytes read from mmap'd column files",
		"query_rate_per_second":  "Current rate of query dispatch per second",
		"storage_size_mb":        "Current storage size in megabytes",
		"query_eval_ms":          "Adapter compile/setup duration in milliseconds",
		"table_count":            "Number of tables loaded by this worker",
		"failed_queries":         "Total number of failed query dispatches",
	}

	if help, ok := helpTexts[name]; ok {
		return help
	}
	return fmt.Sprintf("Metric %s", name)
}

// writeMetricValue writes one sample line. For metrics of type
// "histogram" it folds a _p50/_p90/_p99 suffix into a quantile label and
// writes an _avg suffix as its own sample; counters get a _total suffix;
// every other metric is written under name unchanged.
func writeMetricValue(w io.Writer, name string, metric Metric) {
	labels := buildLabels(metric.Labels)

	switch metric.Type {
	case "histogram":
		switch {
		case strings.HasSuffix(metric.Name, "_avg"):
			fmt.Fprintf(w, "%s_avg%s %g\n", name, formatLabels(labels), metric.Value)
		case getPercentileFromName(metric.Name) != "":
			fmt.Fprintf(w, "%s{%squantile=\"%s\"} %g\n", name, labels, getPercentileFromName(metric.Name), metric.Value)
		default:
			fmt.Fprintf(w, "%s%s %g\n", name, formatLabels(labels), metric.Value)
		}
	case "counter":
		if !strings.HasSuffix(name, "_total") {
			name += "_total"
		}
		fmt.Fprintf(w, "%s%s %g\n", name, formatLabels(labels), metric.Value)
	default:
		fmt.Fprintf(w, "%s%s %g\n", name, formatLabels(labels), metric.Value)
	}
}

// getPercentileFromName returns the Prometheus quantile value ("0.99") a
// "_p99"-suffixed metric name corresponds to, or "" if name isn't one.
func getPercentileFromName(name string) string {
	switch {
	case strings.HasSuffix(name, "_p50"):
		return "0.5"
	case strings.HasSuffix(name, "_p90"):
		return "0.9"
	case strings.HasSuffix(name, "_p99"):
		return "0.99"
	}
	return ""
}

// buildLabels renders labels as sorted, escaped "k=\"v\"" pairs joined
// by commas, with no surrounding braces.
func buildLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	var parts []string
	for k, v := range labels {
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, `"`, `\"`)
		v = strings.ReplaceAll(v, "\n", `\n`)
		parts = append(parts, fmt.Sprintf(`%s="%s"`, k, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// formatLabels wraps a buildLabels result in braces, or returns "" when
// there are no labels to wrap.
func formatLabels(labels string) string {
	if labels == "" {
		return ""
	}
	return "{" + labels + "}"
}

// writeGoMetrics writes this process's actual runtime stats, not
// placeholders — goroutine count, heap bytes in use, and cumulative GC
// pause time straight out of runtime.MemStats.
func writeGoMetrics(w io.Writer, m *runtime.MemStats) {
	fmt.Fprintln(w, "# HELP go_goroutines Number of goroutines that currently exist.")
	fmt.Fprintln(w, "# TYPE go_goroutines gauge")
	fmt.Fprintf(w, "go_goroutines %d\n", runtime.NumGoroutine())
	fmt.Fprintln(w)

	fmt.Fprintln(w, "# HELP go_memstats_alloc_bytes Number of bytes allocated and still in use.")
	fmt.Fprintln(w, "# TYPE go_memstats_alloc_bytes gauge")
	fmt.Fprintf(w, "go_memstats_alloc_bytes %d\n", m.Alloc)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "# HELP go_memstats_sys_bytes Number of bytes obtained from the OS.")
	fmt.Fprintln(w, "# TYPE go_memstats_sys_bytes gauge")
	fmt.Fprintf(w, "go_memstats_sys_bytes %d\n", m.Sys)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "# HELP go_gc_duration_seconds A summary of the pause duration of garbage collection cycles.")
	fmt.Fprintln(w, "# TYPE go_gc_duration_seconds summary")
	pauseSum := float64(m.PauseTotalNs) / 1e9
	fmt.Fprintf(w, "go_gc_duration_seconds_sum %g\n", pauseSum)
	fmt.Fprintf(w, "go_gc_duration_seconds_count %d\n", m.NumGC)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "# HELP go_info Information about the Go environment.")
	fmt.Fprintln(w, "# TYPE go_info gauge")
	fmt.Fprintf(w, "go_info{version=\"%s\"} 1\n", runtime.Version())
}