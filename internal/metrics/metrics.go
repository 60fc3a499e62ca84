// Package metrics expone métricas Prometheus de una ejecución.
//
// Una ejecución de CLI no tiene endpoint de scrape: el registro se escribe una
// vez al final en formato textfile de node_exporter.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector agrupa los contadores de una ejecución. Un *Collector nil es
// válido y no registra nada.
type Collector struct {
	registry *prometheus.Registry

	filesScanned prometheus.Counter
	candidates   prometheus.Counter
	filesHashed  prometheus.Counter
	bytesHashed  prometheus.Counter
	groups       prometheus.Gauge
	wastedBytes  prometheus.Gauge
	removals     *prometheus.CounterVec
	bytesFreed   prometheus.Counter
	errors       *prometheus.CounterVec
	stageSeconds *prometheus.GaugeVec
}

// New crea un colector con registro propio.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		filesScanned: factory.NewCounter(prometheus.CounterOpts{
			Name: "dupesweep_files_scanned_total",
			Help: "Files that passed enumeration and size indexing",
		}),
		candidates: factory.NewCounter(prometheus.CounterOpts{
			Name: "dupesweep_size_candidates_total",
			Help: "Files sharing their size with at least one other file",
		}),
		filesHashed: factory.NewCounter(prometheus.CounterOpts{
			Name: "dupesweep_files_hashed_total",
			Help: "Files fully hashed",
		}),
		bytesHashed: factory.NewCounter(prometheus.CounterOpts{
			Name: "dupesweep_bytes_hashed_total",
			Help: "Bytes read by full-content hashing",
		}),
		groups: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dupesweep_duplicate_groups",
			Help: "Duplicate groups found in the last scan",
		}),
		wastedBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dupesweep_wasted_bytes",
			Help: "Bytes occupied by redundant copies",
		}),
		removals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dupesweep_removals_total",
			Help: "Duplicates removed, by disposition mode",
		}, []string{"mode"}),
		bytesFreed: factory.NewCounter(prometheus.CounterOpts{
			Name: "dupesweep_bytes_freed_total",
			Help: "Bytes moved out of the scanned trees or deleted",
		}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dupesweep_errors_total",
			Help: "Non-fatal errors, by kind",
		}, []string{"kind"}),
		stageSeconds: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dupesweep_stage_duration_seconds",
			Help: "Wall time spent per pipeline stage",
		}, []string{"stage"}),
	}
}

// Registry expone el registro subyacente.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) AddScanned(n int) {
	if c == nil {
		return
	}
	c.filesScanned.Add(float64(n))
}

func (c *Collector) AddCandidates(n int) {
	if c == nil {
		return
	}
	c.candidates.Add(float64(n))
}

func (c *Collector) ObserveHashed(bytes uint64) {
	if c == nil {
		return
	}
	c.filesHashed.Inc()
	c.bytesHashed.Add(float64(bytes))
}

func (c *Collector) SetGroups(groups int, wasted uint64) {
	if c == nil {
		return
	}
	c.groups.Set(float64(groups))
	c.wastedBytes.Set(float64(wasted))
}

func (c *Collector) ObserveRemoval(mode string, bytes uint64) {
	if c == nil {
		return
	}
	c.removals.WithLabelValues(mode).Inc()
	c.bytesFreed.Add(float64(bytes))
}

func (c *Collector) IncError(kind string) {
	if c == nil {
		return
	}
	c.errors.WithLabelValues(kind).Inc()
}

func (c *Collector) ObserveStage(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.stageSeconds.WithLabelValues(stage).Set(d.Seconds())
}

// WriteTextfile escribe el registro de forma atómica en path.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.registry)
}
