// Package metrics exposes bot counters in the Prometheus text format.
package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "epicbot"

// Recorder counts reconciliation outcomes, deliveries and slash commands.
type Recorder struct {
	reg        *prom.Registry
	outcomes   *prom.CounterVec
	deliveries *prom.CounterVec
	commands   *prom.CounterVec
}

// NewRecorder registers the bot metrics on reg, or on a fresh registry when reg is nil.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		reg: reg,
		outcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_outcomes_total",
			Help:      "Reconciliation runs by final status",
		}, []string{"status"}),
		deliveries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Announcement deliveries by result",
		}, []string{"result"}),
		commands: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Slash command invocations by name",
		}, []string{"command"}),
	}
	reg.MustRegister(r.outcomes, r.deliveries, r.commands)
	return r
}

func (r *Recorder) ObserveOutcome(status string) {
	r.outcomes.WithLabelValues(status).Inc()
}

func (r *Recorder) ObserveDelivery(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.deliveries.WithLabelValues(result).Inc()
}

func (r *Recorder) ObserveCommand(name string) {
	r.commands.WithLabelValues(name).Inc()
}

// Handler serves the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
