// Package metrics holds the Prometheus collectors for run input traffic.
package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Registry is the registry all parley collectors are registered on.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		InputsSent, InputsReceived,
		PollQueries, PollTimeouts,
	)
}

// InputsSent counts envelopes written by Send, per input type.
var InputsSent = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "parley_inputs_sent_total",
		Help: "Run inputs delivered to another run's inbox.",
	},
	[]string{"input"},
)

// InputsReceived counts envelopes returned by pollers, per input type.
var InputsReceived = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "parley_inputs_received_total",
		Help: "Run inputs consumed by pollers.",
	},
	[]string{"input"},
)

// PollQueries counts store filter queries issued by pollers.
var PollQueries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "parley_poll_queries_total",
		Help: "Store queries issued while polling for run inputs.",
	},
	[]string{"input"},
)

// PollTimeouts counts Next calls that gave up waiting.
var PollTimeouts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "parley_poll_timeouts_total",
		Help: "Polls that timed out without receiving an input.",
	},
	[]string{"input"},
)

// WritePrometheus writes all collectors in the Prometheus text format.
func WritePrometheus(w io.Writer) error {
	families, err := Registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
