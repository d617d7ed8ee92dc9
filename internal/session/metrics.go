package session

import "github.com/prometheus/client_golang/prometheus"

var (
	counterValue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "overlay_counter_value",
			Help: "Current value of the exit counter",
		},
	)

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_commands_total",
			Help: "Total number of dispatched commands by result",
		},
		[]string{"command", "result"},
	)
)

func init() {
	prometheus.MustRegister(counterValue)
	prometheus.MustRegister(commandsTotal)
}
