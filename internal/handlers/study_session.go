package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"english-hub-backend/internal/middleware"
	"english-hub-backend/internal/models"
	"english-hub-backend/internal/repository"
)

type StudySessionStore interface {
	Start(ctx context.Context, s *models.StudySession) error
	Heartbeat(ctx context.Context, sessionID, userID uuid.UUID) error
	Stop(ctx context.Context, sessionID, userID uuid.UUID) error
}

// StudySessionHandler exposes the time log to clients that track time
// outside a practice or review session (e.g. listening to audio).
type StudySessionHandler struct {
	repo StudySessionStore
}

func NewStudySessionHandler(repo StudySessionStore) *StudySessionHandler {
	return &StudySessionHandler{repo: repo}
}

func (h *StudySessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		ActivityType string          `json:"activity_type"`
		ResourceID   string          `json:"resource_id"`
		ClientMeta   json.RawMessage `json:"client_meta"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	switch req.ActivityType {
	case models.ActivityExercise, models.ActivityExam, models.ActivityFlashcard:
	default:
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "activity_type must be exercise, exam, or flashcard", r))
		return
	}

	resourceID := strings.TrimSpace(req.ResourceID)
	if resourceID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid resource_id", r))
		return
	}

	session := &models.StudySession{
		UserID:         userID,
		ActivityType:   req.ActivityType,
		ResourceID:     resourceID,
		ClientMetaJSON: req.ClientMeta,
	}
	if err := h.repo.Start(r.Context(), session); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to start study session", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session": session,
	})
}

func (h *StudySessionHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := idParam(w, r, "session")
	if !ok {
		return
	}

	if err := h.repo.Heartbeat(r.Context(), sessionID, middleware.GetUserID(r.Context())); err != nil {
		h.writeRepoError(w, r, err, "Failed to update study session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Heartbeat recorded"})
}

func (h *StudySessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := idParam(w, r, "session")
	if !ok {
		return
	}

	if err := h.repo.Stop(r.Context(), sessionID, middleware.GetUserID(r.Context())); err != nil {
		h.writeRepoError(w, r, err, "Failed to stop study session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Study session stopped"})
}

func (h *StudySessionHandler) writeRepoError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if errors.Is(err, repository.ErrStudySessionNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Study session not found", r))
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", msg, r))
}
