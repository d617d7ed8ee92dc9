package gameinfo

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var fetchErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "overlay_gameinfo_errors_total",
		Help: "Total number of failed game info refreshes by kind",
	},
	[]string{"kind"},
)

func init() {
	prometheus.MustRegister(fetchErrorsTotal)
}

// errorKind classifies a refresh failure for metrics.
func errorKind(err error) string {
	switch {
	case IsDataError(err):
		return "data"
	case errors.Is(err, ErrUnauthenticated):
		return "auth"
	default:
		return "upstream"
	}
}
