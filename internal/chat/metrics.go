package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dormlink_ws_connections",
			Help: "Current number of active websocket connections.",
		},
	)
	wsRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dormlink_ws_rooms",
			Help: "Current number of live chat rooms.",
		},
	)
	wsMessagesDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dormlink_ws_messages_delivered_total",
			Help: "Total websocket events delivered to clients.",
		},
	)
	wsMessagesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dormlink_ws_messages_rejected_total",
			Help: "Inbound messages rejected before broadcast, by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(wsConnections, wsRooms, wsMessagesDelivered, wsMessagesRejected)
}

func incConnections() {
	wsConnections.Inc()
}

func decConnections() {
	wsConnections.Dec()
}

func setRooms(count int) {
	wsRooms.Set(float64(count))
}

func addDelivered(count int) {
	wsMessagesDelivered.Add(float64(count))
}

func incRejected(code ErrorCode) {
	wsMessagesRejected.WithLabelValues(string(code)).Inc()
}
