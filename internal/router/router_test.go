package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"english-hub-backend/internal/handlers"
	"english-hub-backend/internal/middleware"
	"english-hub-backend/internal/models"
	"english-hub-backend/internal/practice"
	"english-hub-backend/internal/repository"
	"english-hub-backend/internal/services"
	"english-hub-backend/internal/websocket"
)

type fixedSource struct{}

func (fixedSource) QuestionGroups(context.Context, string, models.SessionKind, string) ([]models.QuestionGroup, error) {
	return []models.QuestionGroup{
		{ID: "g1", Questions: []models.Question{{
			ID:            "q1",
			Choices:       []models.Choice{{Letter: models.LetterA, Text: "a"}, {Letter: models.LetterB, Text: "b"}},
			CorrectAnswer: models.LetterA,
		}}},
		{ID: "g2"},
	}, nil
}

type noCards struct{}

func (noCards) DueFlashcards(context.Context, string, string) ([]models.Flashcard, error) {
	return nil, nil
}

type noQueue struct{}

func (noQueue) Enqueue(context.Context, models.RatingJob) error { return nil }

func newTestRouter(t *testing.T) (http.Handler, *middleware.JWTAuth) {
	t.Helper()
	jwtAuth := middleware.NewJWTAuth("test-secret")
	limiter := middleware.NewRateLimiter(100, time.Minute)
	t.Cleanup(limiter.Stop)

	practiceStore := repository.NewMemoryStore(time.Hour)
	reviewStore := repository.NewMemoryStore(time.Hour)
	t.Cleanup(practiceStore.Close)
	t.Cleanup(reviewStore.Close)

	hub := websocket.NewHub(nil, jwtAuth)
	h := Handlers{
		Practice: handlers.NewPracticeHandler(services.NewPracticeService(fixedSource{}, practiceStore, nil, nil, hub)),
		Review:   handlers.NewReviewHandler(services.NewReviewService(noCards{}, reviewStore, noQueue{}, nil, hub)),
	}
	return New(jwtAuth, limiter, h, hub, []string{"http://localhost:5173"}), jwtAuth
}

func TestRouter_Health(t *testing.T) {
	r, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != `{"status":"ok"}` {
		t.Fatalf("unexpected health response %d %s", rr.Code, rr.Body.String())
	}
}

func TestRouter_RequiresAuth(t *testing.T) {
	r, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/practice/sessions/"+uuid.NewString(), nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	var body models.ErrorResponse
	json.NewDecoder(rr.Body).Decode(&body)
	if body.Error.RequestID == "" {
		t.Fatalf("expected request id in error envelope")
	}
}

func TestRouter_PracticeRoundTrip(t *testing.T) {
	r, jwtAuth := newTestRouter(t)
	token, _ := jwtAuth.GenerateAccessToken(uuid.New(), time.Minute)

	do := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			json.NewEncoder(&buf).Encode(body)
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	rr := do(http.MethodPost, "/api/v1/practice/sessions", models.StartPracticeRequest{Kind: models.KindExercise, SourceID: "7"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("start: %d %s", rr.Code, rr.Body.String())
	}
	var view practice.View
	json.NewDecoder(rr.Body).Decode(&view)
	base := "/api/v1/practice/sessions/" + view.SessionID.String()

	if rr := do(http.MethodPost, base+"/answers", models.AnswerRequest{QuestionID: "q1", Choice: "a"}); rr.Code != http.StatusOK {
		t.Fatalf("answer: %d %s", rr.Code, rr.Body.String())
	}
	rr = do(http.MethodPost, base+"/next", nil)
	var nav services.Navigation
	json.NewDecoder(rr.Body).Decode(&nav)
	if !nav.Moved || !nav.View.Group.Empty {
		t.Fatalf("expected to land on the empty group: %+v", nav)
	}
	if rr := do(http.MethodDelete, base, nil); rr.Code != http.StatusOK {
		t.Fatalf("end: %d", rr.Code)
	}
	if rr := do(http.MethodGet, base, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after end, got %d", rr.Code)
	}
}

func TestRouter_ReviewNothingDue(t *testing.T) {
	r, jwtAuth := newTestRouter(t)
	token, _ := jwtAuth.GenerateAccessToken(uuid.New(), time.Minute)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", bytes.NewBufferString(`{"deck_id":"d1"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
}

func TestRouter_OptionalRoutesAbsent(t *testing.T) {
	r, jwtAuth := newTestRouter(t)
	token, _ := jwtAuth.GenerateAccessToken(uuid.New(), time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/banks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a local bank, got %d", rr.Code)
	}
}
