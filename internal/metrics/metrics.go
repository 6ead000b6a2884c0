// Package metrics exposes Prometheus collectors for the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FlowsStarted counts conversational flows started, by kind.
	FlowsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overbot_flows_started_total",
		Help: "Number of conversational flows started.",
	}, []string{"kind"})

	// FlowsActive tracks currently running flows.
	FlowsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "overbot_flows_active",
		Help: "Number of currently running conversational flows.",
	})

	// ContextsEvicted counts user contexts removed by the staleness sweep.
	ContextsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "overbot_contexts_evicted_total",
		Help: "Number of user contexts evicted after inactivity.",
	})

	// BackendErrors counts errors returned by the Overseerr API.
	BackendErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "overbot_backend_errors_total",
		Help: "Number of errors returned by the Overseerr API.",
	})

	// MessagesDropped counts messages discarded because no flow was
	// awaiting them.
	MessagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "overbot_messages_dropped_total",
		Help: "Number of messages dropped outside any active flow.",
	})
)
