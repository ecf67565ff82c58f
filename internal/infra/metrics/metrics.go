// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strings"

	"telegram-ad-moderation/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		submissionsCreatedTotal,
		submissionsTotal,
		decisionsTotal,
		queueDepth,
		screeningRejectionsTotal,
		claimsReapedTotal,
	)
}

var (
	submissionsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_created_total",
			Help: "Accepted submissions by category.",
		},
		[]string{"category"},
	)

	submissionsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "submissions_total",
			Help: "Current number of submissions by status.",
		},
		[]string{"status"}, // 'pending', 'approved', 'rejected', 'edit_requested'
	)

	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decisions_total",
			Help: "Moderator actions by action and result (ok/conflict/not_found/forbidden/error).",
		},
		[]string{"action", "result"},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Moderation tasks by claim state.",
		},
		[]string{"state"},
	)

	claimsReapedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "claims_reaped_total",
			Help: "Stale moderator claims returned to the queue.",
		},
	)

	screeningRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_rejections_total",
			Help: "Submissions refused before storage, by reason.",
		},
		[]string{"reason"},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncSubmissionCreated(category model.Category) {
	submissionsCreatedTotal.WithLabelValues(norm(string(category))).Inc()
}

func SetSubmissionsTotal(counts map[model.SubmissionStatus]int) {
	statuses := []model.SubmissionStatus{
		model.StatusPending,
		model.StatusApproved,
		model.StatusRejected,
		model.StatusEditRequested,
	}
	for _, status := range statuses {
		submissionsTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}

func IncDecision(action model.Action, result string) {
	decisionsTotal.WithLabelValues(norm(string(action)), norm(result)).Inc()
}

func SetQueueDepth(pending, claimed int) {
	queueDepth.WithLabelValues("unclaimed").Set(float64(pending))
	queueDepth.WithLabelValues("claimed").Set(float64(claimed))
}

func IncScreeningRejection(reason string) {
	screeningRejectionsTotal.WithLabelValues(norm(reason)).Inc()
}

func AddClaimsReaped(n int) {
	claimsReapedTotal.Add(float64(n))
}
