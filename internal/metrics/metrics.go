// Package metrics collects and exposes Prometheus metrics for the server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector gathers the counters the hub, dispatcher, and auth service feed.
type Collector struct {
	wsConnections   prometheus.Gauge
	eventsDelivered *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
	tokenRotations  prometheus.Counter
	messagesSent    prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatlink_ws_connections",
			Help: "Number of active websocket connections",
		}),
		eventsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatlink_events_delivered_total",
			Help: "Push events delivered to online clients, by event type",
		}, []string{"type"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatlink_events_dropped_total",
			Help: "Push events dropped because the target was offline or slow, by event type",
		}, []string{"type"}),
		tokenRotations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatlink_token_rotations_total",
			Help: "Successful refresh-token rotations",
		}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatlink_messages_sent_total",
			Help: "Messages accepted by the server",
		}),
	}

	reg.MustRegister(
		c.wsConnections,
		c.eventsDelivered,
		c.eventsDropped,
		c.tokenRotations,
		c.messagesSent,
	)

	return c
}

func (c *Collector) ConnOpened() { c.wsConnections.Inc() }
func (c *Collector) ConnClosed() { c.wsConnections.Dec() }

func (c *Collector) RecordEventDelivered(eventType string) {
	c.eventsDelivered.WithLabelValues(eventType).Inc()
}

func (c *Collector) RecordEventDropped(eventType string) {
	c.eventsDropped.WithLabelValues(eventType).Inc()
}

func (c *Collector) RecordTokenRotation() { c.tokenRotations.Inc() }
func (c *Collector) RecordMessageSent()   { c.messagesSent.Inc() }

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
