package handlers

import (
	"context"
	"net/http"

	"english-hub-backend/internal/models"
	"english-hub-backend/internal/repository"
)

type BankLister interface {
	List(ctx context.Context, kind models.SessionKind) ([]repository.BankSummary, error)
}

// BankHandler lists imported question banks when running offline.
type BankHandler struct {
	banks BankLister
}

func NewBankHandler(banks BankLister) *BankHandler {
	return &BankHandler{banks: banks}
}

func (h *BankHandler) List(w http.ResponseWriter, r *http.Request) {
	kind := models.SessionKind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"kind": "Must be exercise or exam"}, r))
		return
	}

	banks, err := h.banks.List(r.Context(), kind)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"banks": banks})
}
