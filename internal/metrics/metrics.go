package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gamelobby",
		Name:      "ws_connections",
		Help:      "Live websocket connections.",
	})
	SlowConsumers = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gamelobby",
		Name:      "ws_slow_consumers_total",
		Help:      "Connections closed because their send queue overflowed.",
	})
	BusDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gamelobby",
		Name:      "bus_dropped_total",
		Help:      "Group events dropped because the Redis publish queue was full.",
	})
	InboundMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamelobby",
		Name:      "inbound_messages_total",
		Help:      "Decoded client messages by type.",
	}, []string{"type"})
	PresentUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gamelobby",
		Name:      "present_users",
		Help:      "Users registered in the lobby.",
	})
	GameRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gamelobby",
		Name:      "game_rooms",
		Help:      "Open game rooms.",
	})
	PendingChallenges = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gamelobby",
		Name:      "pending_challenges",
		Help:      "Challenges awaiting a response.",
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
