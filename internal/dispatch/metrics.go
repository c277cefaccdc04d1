package dispatch

import "github.com/prometheus/client_golang/prometheus"

// Label cardinality is bounded by the closed command set.
var (
	// commandsTotal counts handled commands by variant.
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restaurant_dispatch_commands_total",
			Help: "Total number of commands handled by the dispatcher.",
		},
		[]string{"command"},
	)

	// repliesDropped counts replies that could not be delivered because the
	// reply channel was nil, full, or unbuffered with nobody reading.
	repliesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restaurant_dispatch_replies_dropped_total",
			Help: "Total number of replies the dispatcher could not deliver.",
		},
		[]string{"command"},
	)

	// ordersOpen tracks the size of the order collection.
	ordersOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "restaurant_orders_open",
			Help: "Current number of orders held by the store.",
		},
	)

	// queueDepth samples the pending commands each time one is dequeued.
	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "restaurant_dispatch_queue_depth",
			Help: "Commands waiting in the dispatcher queue, sampled per dequeue.",
		},
	)
)

func init() {
	prometheus.MustRegister(commandsTotal, repliesDropped, ordersOpen, queueDepth)
}
