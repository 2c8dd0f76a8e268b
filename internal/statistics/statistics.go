// Package statistics exposes thermostat state and counters to prometheus.
package statistics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Agrid-Dev/dualstat/internal/thermostat"
)

const namespace = "dualstat"

// Register adds collector to the default registry.
func Register(collector prometheus.Collector) {
	prometheus.MustRegister(collector)
}

// Source is what a ThermostatCollector reads.
type Source interface {
	Get() thermostat.Snapshot
	Statistics() thermostat.Statistics
}
