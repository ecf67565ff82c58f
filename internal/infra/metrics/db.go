package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(storeConnections) }

// storeConnections mirrors pgxpool.Stat for the submission store.
var storeConnections = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "submission_store_connections",
		Help: "Postgres connections held by the submission store pool, by state.",
	},
	[]string{"state"},
)

// SetDBPoolStats records a pool snapshot; idle and in_use add up to total.
func SetDBPoolStats(total, idle, inUse int32) {
	for state, n := range map[string]int32{"total": total, "idle": idle, "in_use": inUse} {
		storeConnections.WithLabelValues(state).Set(float64(n))
	}
}
