// Package metrics counts what a run did and can leave the numbers behind as a
// Prometheus textfile for node_exporter.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/theimaginaryfoundation/note-sheets/migration"
)

// Run holds the counters for one invocation on a private registry.
type Run struct {
	Registry *prometheus.Registry

	ArchivesLoaded  prometheus.Counter
	ArchivesFailed  prometheus.Counter
	ItemsDecoded    prometheus.Counter
	ItemsSkipped    prometheus.Counter
	ArchiveBytes    prometheus.Counter
	Classifications *prometheus.CounterVec
	Threads         prometheus.Gauge
	ThreadMessages  prometheus.Gauge
	RowsProjected   prometheus.Gauge
	Summaries       *prometheus.CounterVec
	LastSuccess     prometheus.Gauge
}

func New() *Run {
	r := &Run{
		Registry: prometheus.NewRegistry(),
		ArchivesLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notesheets_archives_loaded_total",
			Help: "Archives decoded successfully",
		}),
		ArchivesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notesheets_archives_failed_total",
			Help: "Archives dropped because they could not be fetched or decoded",
		}),
		ItemsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notesheets_notes_decoded_total",
			Help: "Note objects decoded from archives",
		}),
		ItemsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notesheets_items_skipped_total",
			Help: "Archive items skipped because they carried no Note",
		}),
		ArchiveBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notesheets_archive_bytes_total",
			Help: "Bytes read from archives",
		}),
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notesheets_messages_classified_total",
			Help: "Messages classified for output, by verdict",
		}, []string{"verdict"}),
		Threads: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notesheets_threads",
			Help: "Threads reconstructed in the last run",
		}),
		ThreadMessages: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notesheets_thread_messages",
			Help: "Messages placed in a thread in the last run",
		}),
		RowsProjected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notesheets_rows",
			Help: "Rows written in the last run",
		}),
		Summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notesheets_thread_summaries_total",
			Help: "Thread summaries requested, by status",
		}, []string{"status"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notesheets_last_success_timestamp_seconds",
			Help: "Unix time of the last run that wrote its table",
		}),
	}
	r.Registry.MustRegister(
		r.ArchivesLoaded, r.ArchivesFailed, r.ItemsDecoded, r.ItemsSkipped, r.ArchiveBytes,
		r.Classifications, r.Threads, r.ThreadMessages, r.RowsProjected, r.Summaries, r.LastSuccess,
	)
	return r
}

func (r *Run) ObserveVerdict(v migration.Verdict) {
	r.Classifications.WithLabelValues(v.String()).Inc()
}

func (r *Run) ObserveThreads(threads, threadedMessages int) {
	r.Threads.Set(float64(threads))
	r.ThreadMessages.Set(float64(threadedMessages))
}

func (r *Run) ObserveRows(n int) {
	r.RowsProjected.Set(float64(n))
}

func (r *Run) ObserveArchive(res migration.ArchiveResult) {
	r.ArchiveBytes.Add(float64(res.Bytes))
	if res.Err != nil {
		r.ArchivesFailed.Inc()
		return
	}
	r.ArchivesLoaded.Inc()
	r.ItemsDecoded.Add(float64(res.Stats.Notes))
	r.ItemsSkipped.Add(float64(res.Stats.Skipped))
}

func (r *Run) ObserveSummary(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.Summaries.WithLabelValues(status).Inc()
}

// MarkSuccess stamps the last-success gauge with the current time.
func (r *Run) MarkSuccess() {
	r.LastSuccess.SetToCurrentTime()
}

// WriteTextfile writes the registry in the text exposition format, atomically.
func (r *Run) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Registry)
}
