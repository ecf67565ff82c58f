package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"telegram-ad-moderation/internal/domain"
	"telegram-ad-moderation/internal/domain/model"
	"telegram-ad-moderation/internal/infra/logging"
)

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type decisionRequest struct {
	ModeratorID int64  `json:"moderator_id"`
	Action      string `json:"action"`
	Reason      string `json:"reason"`
}

type submissionView struct {
	ID            string                 `json:"id"`
	SubmitterID   int64                  `json:"submitter_id"`
	SubmitterName string                 `json:"submitter_name,omitempty"`
	Content       string                 `json:"content"`
	Media         []model.Media          `json:"media,omitempty"`
	Category      model.Category         `json:"category"`
	Price         string                 `json:"price,omitempty"`
	Status        model.SubmissionStatus `json:"status"`
	Revision      int                    `json:"revision"`
	DecidedBy     *int64                 `json:"decided_by,omitempty"`
	DecisionNote  string                 `json:"decision_note,omitempty"`
	DecidedAt     *time.Time             `json:"decided_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

func toView(s *model.Submission) submissionView {
	v := submissionView{
		ID:            s.ID,
		SubmitterID:   s.SubmitterID,
		SubmitterName: s.SubmitterName,
		Content:       s.Content,
		Media:         s.Media,
		Category:      s.Category,
		Status:        s.Status,
		Revision:      s.Revision,
		DecidedBy:     s.DecidedBy,
		DecisionNote:  s.DecisionNote,
		DecidedAt:     s.DecidedAt,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if s.Price != nil {
		v.Price = s.Price.String()
	}
	return v
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if !s.auth.CheckKey(r.Header.Get("X-Admin-Key")) {
		writeError(w, http.StatusUnauthorized, "invalid admin key")
		return
	}
	tok, exp, err := s.auth.Mint()
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("failed to mint admin token")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: tok, ExpiresAt: exp.UTC()})
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	stats, err := s.moderation.QueueStats(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.moderation.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toView(sub))
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	action, err := model.ParseAction(req.Action)
	if err != nil || !action.IsModeratorAction() {
		writeError(w, http.StatusBadRequest, "action must be approve, reject or edit")
		return
	}
	sub, err := s.moderation.Decide(r.Context(), model.ModeratorAction{
		ModeratorID:  req.ModeratorID,
		SubmissionID: chi.URLParam(r, "id"),
		Action:       action,
		Reason:       req.Reason,
		At:           time.Now().UTC(),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toView(sub))
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "submission not found")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "not a moderator")
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logging.With(r.Context(), s.log).Error().Err(err).Msg("admin request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
