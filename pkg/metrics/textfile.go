package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"gitlab.com/tozd/go/errors"
)

const namespace = "pgl_ingest"

// Registry returns a Prometheus registry whose collectors read m's counters.
func Registry(m *IngestMetrics, labels prometheus.Labels) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	counter := func(name, help string, read func() float64) {
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, read))
	}
	counter("entries_processed_total", "Walked entries, including ones that were skipped or failed.",
		func() float64 { return float64(m.EntriesProcessed()) })
	counter("files_copied_total", "Primary files copied to a destination.",
		func() float64 { return float64(m.FilesCopied.Load()) })
	counter("files_paired_total", "Companion JPEGs copied alongside their primary file.",
		func() float64 { return float64(m.FilesPaired.Load()) })
	counter("sidecars_copied_total", "XMP sidecars copied alongside their primary file.",
		func() float64 { return float64(m.SidecarsCopied.Load()) })
	counter("files_failed_total", "Files whose copy failed and was skipped.",
		func() float64 { return float64(m.FilesFailed.Load()) })
	counter("dirs_created_total", "Directories created in a destination.",
		func() float64 { return float64(m.DirsCreated.Load()) })
	counter("bytes_written_total", "Bytes written to destinations.",
		func() float64 { return float64(m.BytesWritten.Load()) })
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "duration_seconds",
		Help:        "Wall time of the ingest run.",
		ConstLabels: labels,
	}, func() float64 { return m.Elapsed().Seconds() }))
	return reg
}

// WriteTextfile writes m in the Prometheus text format to path, atomically.
func WriteTextfile(m *IngestMetrics, path string, labels prometheus.Labels) error {
	if err := prometheus.WriteToTextfile(path, Registry(m, labels)); err != nil {
		return errors.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
