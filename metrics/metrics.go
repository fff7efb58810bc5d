// Package metrics exports run results in the node_exporter textfile format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ftahirops/disktriage/model"
)

// Exporter holds the gauges for one run.
type Exporter struct {
	reg *prometheus.Registry

	errorEvents    *prometheus.GaugeVec
	smartAttribute *prometheus.GaugeVec
	diskFailing    *prometheus.GaugeVec
	ioErrors       *prometheus.GaugeVec
	violations     prometheus.Gauge
	filesScanned   prometheus.Gauge
}

// NewExporter creates an exporter with its own registry.
func NewExporter() *Exporter {
	e := &Exporter{
		reg: prometheus.NewRegistry(),
		errorEvents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "disktriage_error_events_total",
			Help: "Error events recorded per device and event kind in the last run",
		}, []string{"device", "kind"}),
		smartAttribute: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "disktriage_smart_attribute",
			Help: "Latest observed value of a tracked SMART attribute",
		}, []string{"device", "key"}),
		diskFailing: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "disktriage_smart_failing",
			Help: "1 when smartctl exit bits report a failing or degraded disk",
		}, []string{"device"}),
		ioErrors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "disktriage_sysfs_io_errors",
			Help: "SCSI ioerr_cnt of the disk as read from sysfs",
		}, []string{"device"}),
		violations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "disktriage_identity_violations",
			Help: "Log files aborted on a device identity violation",
		}),
		filesScanned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "disktriage_log_files_scanned",
			Help: "Kernel log files parsed in the last run",
		}),
	}
	e.reg.MustRegister(e.errorEvents, e.smartAttribute, e.diskFailing, e.ioErrors, e.violations, e.filesScanned)
	return e
}

// Observe sets every gauge from the run's records and counters.
func (e *Exporter) Observe(recs []*model.DiskErrorRecord, files, violations int) {
	for _, r := range recs {
		for _, k := range []model.EventKind{model.KindBlock, model.KindSector, model.KindSmart} {
			e.errorEvents.WithLabelValues(r.Device, string(k)).Set(float64(r.CountKind(k)))
		}
		for _, key := range model.SortedKeys(r.SmartAttributes) {
			e.smartAttribute.WithLabelValues(r.Device, key).Set(float64(r.SmartAttributes[key]))
		}
		if r.Health != nil {
			v := 0.0
			if r.Health.Failing() {
				v = 1
			}
			e.diskFailing.WithLabelValues(r.Device).Set(v)
		}
		if r.IOErrors > 0 {
			e.ioErrors.WithLabelValues(r.Device).Set(float64(r.IOErrors))
		}
	}
	e.violations.Set(float64(violations))
	e.filesScanned.Set(float64(files))
}

// Gather exposes the registry for tests and custom writers.
func (e *Exporter) Gather() prometheus.Gatherer { return e.reg }

// WriteTextfile atomically writes the metrics to path.
func (e *Exporter) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, e.reg)
}
