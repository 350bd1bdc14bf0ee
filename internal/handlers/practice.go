package handlers

import (
	"net/http"

	"english-hub-backend/internal/middleware"
	"english-hub-backend/internal/models"
	"english-hub-backend/internal/services"
)

type PracticeHandler struct {
	practice *services.PracticeService
}

func NewPracticeHandler(practice *services.PracticeService) *PracticeHandler {
	return &PracticeHandler{practice: practice}
}

func (h *PracticeHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.StartPracticeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	view, err := h.practice.Start(r.Context(), middleware.GetUserID(r.Context()), middleware.GetToken(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *PracticeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "session")
	if !ok {
		return
	}
	view, err := h.practice.View(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *PracticeHandler) Answer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "session")
	if !ok {
		return
	}
	var req models.AnswerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	view, err := h.practice.Answer(r.Context(), middleware.GetUserID(r.Context()), id, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *PracticeHandler) Next(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "session")
	if !ok {
		return
	}
	nav, err := h.practice.Next(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nav)
}

func (h *PracticeHandler) Previous(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "session")
	if !ok {
		return
	}
	nav, err := h.practice.Previous(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nav)
}

func (h *PracticeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "session")
	if !ok {
		return
	}
	res, err := h.practice.Submit(r.Context(), middleware.GetUserID(r.Context()), middleware.GetToken(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *PracticeHandler) End(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "session")
	if !ok {
		return
	}
	if err := h.practice.End(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session ended"})
}
