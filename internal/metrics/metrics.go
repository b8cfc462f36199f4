package metrics

import "github.com/prometheus/client_golang/prometheus"

// NewDispatchMessagesTotal returns a counter of consumed dispatch messages by outcome
// (assigned, duplicate, discarded, no_driver, deferred).
func NewDispatchMessagesTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_messages_total",
		Help: "Total number of dispatch messages consumed, by outcome",
	}, []string{"outcome"})
}

// NewGatewayRetriesTotal returns a Prometheus counter for the number of retry attempts performed by gateways
func NewGatewayRetriesTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_retries_total",
		Help: "Total number of retry attempts performed by gateways",
	})
}

// NewRelayBroadcastsTotal returns a Prometheus counter for location updates fanned out to rooms
func NewRelayBroadcastsTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_broadcasts_total",
		Help: "Total number of location updates published to delivery rooms",
	})
}
