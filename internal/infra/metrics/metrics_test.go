//go:build !integration

package metrics

import (
	"testing"

	"telegram-ad-moderation/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDecisionCounter(t *testing.T) {
	before := testutil.ToFloat64(decisionsTotal.WithLabelValues("approve", "ok"))
	IncDecision(model.ActionApprove, " OK ")
	after := testutil.ToFloat64(decisionsTotal.WithLabelValues("approve", "ok"))
	if after-before != 1 {
		t.Fatalf("expected counter to grow by 1, got %v", after-before)
	}
}

func TestSetSubmissionsTotal_ZeroFillsMissingStatuses(t *testing.T) {
	SetSubmissionsTotal(map[model.SubmissionStatus]int{model.StatusPending: 3})
	if got := testutil.ToFloat64(submissionsTotal.WithLabelValues("pending")); got != 3 {
		t.Errorf("expected 3 pending, got %v", got)
	}
	if got := testutil.ToFloat64(submissionsTotal.WithLabelValues("approved")); got != 0 {
		t.Errorf("expected 0 approved, got %v", got)
	}
}

func TestMustRegisterIsIdempotent(t *testing.T) {
	MustRegister()
	MustRegister()
}

func TestSetDBPoolStats(t *testing.T) {
	SetDBPoolStats(10, 7, 3)
	for state, want := range map[string]float64{"total": 10, "idle": 7, "in_use": 3} {
		if got := testutil.ToFloat64(storeConnections.WithLabelValues(state)); got != want {
			t.Errorf("%s: expected %v, got %v", state, want, got)
		}
	}
}
