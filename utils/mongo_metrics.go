package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.mongodb.org/mongo-driver/event"
)

var MongoConnections = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "mongo_pool_connections",
		Help: "MongoDB driver connections by state",
	},
	[]string{"state"}, // open, checked_out
)

var MongoPoolEvents = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mongo_pool_events_total",
		Help: "MongoDB connection pool events",
	},
	[]string{"type"},
)

// NewPoolMonitor returns a driver pool monitor that feeds the connection
// gauges.
func NewPoolMonitor() *event.PoolMonitor {
	return &event.PoolMonitor{
		Event: func(e *event.PoolEvent) {
			MongoPoolEvents.WithLabelValues(e.Type).Inc()
			switch e.Type {
			case event.ConnectionCreated:
				MongoConnections.WithLabelValues("open").Inc()
			case event.ConnectionClosed:
				MongoConnections.WithLabelValues("open").Dec()
			case event.GetSucceeded:
				MongoConnections.WithLabelValues("checked_out").Inc()
			case event.ConnectionReturned:
				MongoConnections.WithLabelValues("checked_out").Dec()
			}
		},
	}
}
