// Package metrics records statistics of a database creation run as
// prometheus gauges, written to a node exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fleure/fleure-db/updateinfo"
)

const namespace = "fleure_db"

type Metrics struct {
	registry *prometheus.Registry

	updates     *prometheus.GaugeVec
	packages    prometheus.Gauge
	lastSuccess prometheus.Gauge
	duration    prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		updates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "updates",
			Help:      "Number of updates per repo and type.",
		}, []string{"repo", "type"}),
		packages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "update_packages",
			Help:      "Number of distinct packages of all updates.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duration_seconds",
			Help:      "Duration of the last run.",
		}),
	}
	m.registry.MustRegister(m.updates, m.packages, m.lastSuccess, m.duration)
	return m
}

// Observe records the updates of a run that ended at end after elapsed.
func (m *Metrics) Observe(updates []updateinfo.Update, end time.Time, elapsed time.Duration) {
	m.updates.Reset()
	pkgs := make(map[string]struct{})
	for _, u := range updates {
		for _, r := range u.Repos {
			m.updates.WithLabelValues(r.ID, u.Type).Inc()
		}
		for _, p := range u.Packages {
			pkgs[p.NEVRA().String()] = struct{}{}
		}
	}
	m.packages.Set(float64(len(pkgs)))
	m.lastSuccess.Set(float64(end.Unix()))
	m.duration.Set(elapsed.Seconds())
}

// WriteTextfile writes the metrics to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
