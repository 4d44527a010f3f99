package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeRejected = "rejected"
	outcomeDropped  = "dropped"
	outcomePanic    = "panic"
)

var (
	pluginInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gobridge_plugin_info",
		Help: "Information about plugins instantiated through the bridge",
	}, []string{"plugin_name", "plugin_version"})

	activeInstances = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gobridge_instances",
		Help: "Number of live plugin instances",
	}, []string{"plugin_name"})

	invocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gobridge_invocations_total",
		Help: "Total number of invoke calls by outcome",
	}, []string{"plugin_name", "outcome"})

	recoveredPanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gobridge_recovered_panics_total",
		Help: "Total number of plugin panics contained at the boundary",
	}, []string{"plugin_name", "entry_point"})
)
