package handlers

import (
	"net/http"

	"english-hub-backend/internal/middleware"
	"english-hub-backend/internal/models"
	"english-hub-backend/internal/services"
)

type ReviewHandler struct {
	reviews *services.ReviewService
}

func NewReviewHandler(reviews *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

func (h *ReviewHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.StartReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := h.reviews.Start(r.Context(), middleware.GetUserID(r.Context()), middleware.GetToken(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "review")
	if !ok {
		return
	}
	view, err := h.reviews.View(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ReviewHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "review")
	if !ok {
		return
	}
	view, err := h.reviews.Reveal(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ReviewHandler) Rate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "review")
	if !ok {
		return
	}
	var req models.CardRatingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := h.reviews.Rate(r.Context(), middleware.GetUserID(r.Context()), middleware.GetToken(r.Context()), id, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ReviewHandler) Next(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "review")
	if !ok {
		return
	}
	nav, err := h.reviews.Next(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nav)
}

func (h *ReviewHandler) Previous(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "review")
	if !ok {
		return
	}
	nav, err := h.reviews.Previous(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nav)
}

func (h *ReviewHandler) End(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "review")
	if !ok {
		return
	}
	if err := h.reviews.End(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Review ended"})
}
