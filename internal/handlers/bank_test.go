package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"english-hub-backend/internal/models"
	"english-hub-backend/internal/repository"
)

type stubBanks struct{ kind models.SessionKind }

func (s *stubBanks) List(_ context.Context, kind models.SessionKind) ([]repository.BankSummary, error) {
	s.kind = kind
	return []repository.BankSummary{{ID: "b1", Kind: models.KindExam, Title: "Mock test 1", GroupCount: 7}}, nil
}

func TestBankHandler_List(t *testing.T) {
	banks := &stubBanks{}
	h := NewBankHandler(banks)

	rr := httptest.NewRecorder()
	h.List(rr, practiceRequest(http.MethodGet, "/api/v1/banks?kind=exam", "", uuid.New(), nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if banks.kind != models.KindExam {
		t.Fatalf("kind filter not passed: %q", banks.kind)
	}
	var body struct {
		Banks []repository.BankSummary `json:"banks"`
	}
	decode(t, rr, &body)
	if len(body.Banks) != 1 || body.Banks[0].GroupCount != 7 {
		t.Fatalf("unexpected body %+v", body)
	}

	rr = httptest.NewRecorder()
	h.List(rr, practiceRequest(http.MethodGet, "/api/v1/banks?kind=lesson", "", uuid.New(), nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad kind, got %d", rr.Code)
	}
}
