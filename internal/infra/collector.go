package infra

import (
	"fix_analyzer/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "fix_analyzer"

// StatsSource is the read side of the analyzer that the collector scrapes.
type StatsSource interface {
	Stats() domain.Counters
	SymbolCount() int
	SymbolCapacity() int
	ArenaUsage() (used, total int)
}

// Collector exports analyzer and pipeline counters to Prometheus. Values are
// loaded at scrape time, so ingestion never touches Prometheus types.
type Collector struct {
	src     StatsSource
	metrics *Metrics

	totalMessages     *prometheus.Desc
	malformedMessages *prometheus.Desc
	sideMessages      *prometheus.Desc
	symbolsInUse      *prometheus.Desc
	symbolCapacity    *prometheus.Desc
	arenaBytesUsed    *prometheus.Desc
	arenaBytesTotal   *prometheus.Desc

	batchesProcessed *prometheus.Desc
	linesRead        *prometheus.Desc
	bytesRead        *prometheus.Desc
	malformedLines   *prometheus.Desc
	readErrors       *prometheus.Desc
	avgBatchSeconds  *prometheus.Desc
	activeWorkers    *prometheus.Desc
}

// NewCollector builds a collector over src and m. m may be nil.
func NewCollector(src StatsSource, m *Metrics) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, "", name), help, labels, nil)
	}
	return &Collector{
		src:     src,
		metrics: m,

		totalMessages:     desc("messages_total", "Well-formed FIX messages ingested."),
		malformedMessages: desc("malformed_messages_total", "Messages rejected by the lossy ingestion path."),
		sideMessages:      desc("side_messages_total", "Messages by order side.", "side"),
		symbolsInUse:      desc("symbols", "Distinct symbols published in the symbol table."),
		symbolCapacity:    desc("symbol_capacity", "Slots in the symbol table."),
		arenaBytesUsed:    desc("arena_bytes_used", "Bytes of symbol names stored in the arena."),
		arenaBytesTotal:   desc("arena_bytes", "Arena byte budget."),

		batchesProcessed: desc("ingest_batches_total", "Line batches processed by workers."),
		linesRead:        desc("ingest_lines_total", "Lines handed to the analyzer."),
		bytesRead:        desc("ingest_bytes_total", "Payload bytes handed to the analyzer."),
		malformedLines:   desc("ingest_malformed_lines_total", "Lines the workers handed to the malformed handler."),
		readErrors:       desc("ingest_read_errors_total", "Input sources that failed while reading."),
		avgBatchSeconds:  desc("ingest_batch_avg_seconds", "Average batch processing time."),
		activeWorkers:    desc("ingest_workers", "Running ingestion workers."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalMessages
	ch <- c.malformedMessages
	ch <- c.sideMessages
	ch <- c.symbolsInUse
	ch <- c.symbolCapacity
	ch <- c.arenaBytesUsed
	ch <- c.arenaBytesTotal
	if c.metrics != nil {
		ch <- c.batchesProcessed
		ch <- c.linesRead
		ch <- c.bytesRead
		ch <- c.malformedLines
		ch <- c.readErrors
		ch <- c.avgBatchSeconds
		ch <- c.activeWorkers
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()
	used, total := c.src.ArenaUsage()

	ch <- prometheus.MustNewConstMetric(c.totalMessages, prometheus.CounterValue, float64(st.TotalMessages))
	ch <- prometheus.MustNewConstMetric(c.malformedMessages, prometheus.CounterValue, float64(st.MalformedMessages))
	ch <- prometheus.MustNewConstMetric(c.sideMessages, prometheus.CounterValue, float64(st.SideBuy), "buy")
	ch <- prometheus.MustNewConstMetric(c.sideMessages, prometheus.CounterValue, float64(st.SideSell), "sell")
	ch <- prometheus.MustNewConstMetric(c.symbolsInUse, prometheus.GaugeValue, float64(c.src.SymbolCount()))
	ch <- prometheus.MustNewConstMetric(c.symbolCapacity, prometheus.GaugeValue, float64(c.src.SymbolCapacity()))
	ch <- prometheus.MustNewConstMetric(c.arenaBytesUsed, prometheus.GaugeValue, float64(used))
	ch <- prometheus.MustNewConstMetric(c.arenaBytesTotal, prometheus.GaugeValue, float64(total))

	if c.metrics == nil {
		return
	}
	snap := c.metrics.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.batchesProcessed, prometheus.CounterValue, float64(snap.BatchesProcessed))
	ch <- prometheus.MustNewConstMetric(c.linesRead, prometheus.CounterValue, float64(snap.LinesRead))
	ch <- prometheus.MustNewConstMetric(c.bytesRead, prometheus.CounterValue, float64(snap.BytesRead))
	ch <- prometheus.MustNewConstMetric(c.malformedLines, prometheus.CounterValue, float64(snap.MalformedLines))
	ch <- prometheus.MustNewConstMetric(c.readErrors, prometheus.CounterValue, float64(snap.ReadErrors))
	ch <- prometheus.MustNewConstMetric(c.avgBatchSeconds, prometheus.GaugeValue, float64(snap.AvgBatchNs)/1e9)
	ch <- prometheus.MustNewConstMetric(c.activeWorkers, prometheus.GaugeValue, float64(snap.ActiveWorkers))
}
