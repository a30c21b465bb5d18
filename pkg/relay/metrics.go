package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sketchwire",
		Subsystem: "relay",
		Name:      "active_sessions",
		Help:      "Number of joined sessions",
	})
	joinsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sketchwire",
		Subsystem: "relay",
		Name:      "joins_total",
		Help:      "Total successful joins",
	})
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sketchwire",
		Subsystem: "relay",
		Name:      "events_total",
		Help:      "Total client events processed by the hub",
	}, []string{"event"})
	eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sketchwire",
		Subsystem: "relay",
		Name:      "events_dropped_total",
		Help:      "Total client events dropped before reaching the store",
	}, []string{"reason"})
	broadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sketchwire",
		Subsystem: "relay",
		Name:      "broadcasts_total",
		Help:      "Total events fanned out, counted per delivery",
	}, []string{"event"})
	logEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sketchwire",
		Subsystem: "relay",
		Name:      "canvas_log_entries",
		Help:      "Entries in the canvas log",
	})
)
