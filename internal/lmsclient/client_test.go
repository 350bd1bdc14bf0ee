package lmsclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"english-hub-backend/internal/models"
)

func TestClient_QuestionGroups_ConvertsNullableChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exercises/42/question-groups" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("expected bearer token to be forwarded, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": 7, "audioUrl": "https://cdn/a.mp3", "imageUrl": null, "passage": null,
			 "questions": [
				{"id": 101, "title": "Capital of France?", "choiceA": "Paris", "choiceB": "London",
				 "choiceC": "Berlin", "choiceD": null, "correctAnswer": "a"},
				{"id": "q-102", "choiceA": "x", "choiceB": "", "choiceC": null, "choiceD": "y", "correctAnswer": "D"}
			 ]}
		]`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", 5*time.Second)
	groups, err := c.QuestionGroups(context.Background(), "tok", models.KindExercise, "42")
	if err != nil {
		t.Fatalf("QuestionGroups: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[0]
	if g.ID != "7" || g.AudioURL != "https://cdn/a.mp3" || g.ImageURL != "" {
		t.Fatalf("unexpected group: %+v", g)
	}

	q1 := g.Questions[0]
	if q1.ID != "101" || len(q1.Choices) != 3 || q1.CorrectAnswer != models.LetterA {
		t.Fatalf("unexpected q1: %+v", q1)
	}
	if _, ok := q1.Choice(models.LetterD); ok {
		t.Fatalf("null choiceD must be dropped")
	}

	q2 := g.Questions[1]
	if q2.ID != "q-102" || len(q2.Choices) != 2 {
		t.Fatalf("unexpected q2: %+v", q2)
	}
	if q2.Choices[0].Letter != models.LetterA || q2.Choices[1].Letter != models.LetterD {
		t.Fatalf("choice letters must keep their original slot: %+v", q2.Choices)
	}
}

func TestClient_QuestionGroups_ExamPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exams/e1/question-groups" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	groups, err := New(srv.URL, time.Second).QuestionGroups(context.Background(), "", models.KindExam, "e1")
	if err != nil {
		t.Fatalf("QuestionGroups: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("expected no groups, got %d", len(groups))
	}
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "exercise not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).QuestionGroups(context.Background(), "", models.KindExercise, "missing")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusNotFound || se.Body != "exercise not found" {
		t.Fatalf("unexpected status error: %+v", se)
	}
}

func TestClient_UnsupportedKind(t *testing.T) {
	if _, err := New("http://unused", time.Second).QuestionGroups(context.Background(), "", "lesson", "1"); err == nil {
		t.Fatalf("expected error for unsupported kind")
	}
}

func TestClient_DueFlashcardsAndRating(t *testing.T) {
	var rated map[string]int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/decks/d9/flashcards/due":
			w.Write([]byte(`[{"id": 1, "front": "eloquent", "back": "fluent", "example": "", "mnemonic": "elo-quent"}]`))
		case r.Method == http.MethodPost && r.URL.Path == "/flashcards/1/review":
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("unexpected content type %q", ct)
			}
			json.NewDecoder(r.Body).Decode(&rated)
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	cards, err := c.DueFlashcards(context.Background(), "tok", "d9")
	if err != nil {
		t.Fatalf("DueFlashcards: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	card := cards[0]
	if card.ID != "1" || card.DeckID != "d9" || card.Example != nil || card.Mnemonic == nil {
		t.Fatalf("unexpected card: %+v", card)
	}

	if err := c.RateFlashcard(context.Background(), "tok", "1", models.RatingGood); err != nil {
		t.Fatalf("RateFlashcard: %v", err)
	}
	if rated["rating"] != models.RatingGood {
		t.Fatalf("expected rating %d to be posted, got %v", models.RatingGood, rated)
	}
}

func TestClient_SubmitExamPassesResultThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Answers map[string]string `json:"answers"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Answers["q1"] != "B" {
			t.Errorf("answers not forwarded: %+v", body)
		}
		w.Write([]byte(`{"score": 495, "band": "B1"}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL, time.Second).SubmitExam(context.Background(), "tok", "e1", map[string]models.Letter{"q1": models.LetterB})
	if err != nil {
		t.Fatalf("SubmitExam: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(res, &out); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if out["band"] != "B1" {
		t.Fatalf("unexpected result %s", res)
	}
}
