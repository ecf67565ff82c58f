package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(moderatorCommandTotal) }

var moderatorCommandTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "moderator_command_total",
		Help: "Tracks attempts to use moderator-only commands and buttons.",
	},
	[]string{"command", "status"}, // status: 'authorized', 'unauthorized'
)

func IncModeratorCommand(command, status string) {
	moderatorCommandTotal.WithLabelValues(norm(command), norm(status)).Inc()
}
