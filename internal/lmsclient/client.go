package lmsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"english-hub-backend/internal/models"
)

// Client talks to the LMS backend REST API. It never retries; callers decide
// what a failure means for the user.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// StatusError is returned for any non-2xx backend response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("lms %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// flexID accepts both numeric and string identifiers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	switch {
	case string(b) == "null":
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
	default:
		*f = flexID(b)
	}
	return nil
}

type wireQuestion struct {
	ID            flexID  `json:"id"`
	Title         string  `json:"title"`
	ChoiceA       *string `json:"choiceA"`
	ChoiceB       *string `json:"choiceB"`
	ChoiceC       *string `json:"choiceC"`
	ChoiceD       *string `json:"choiceD"`
	CorrectAnswer string  `json:"correctAnswer"`
}

type wireGroup struct {
	ID        flexID         `json:"id"`
	AudioURL  *string        `json:"audioUrl"`
	ImageURL  *string        `json:"imageUrl"`
	Passage   *string        `json:"passage"`
	Questions []wireQuestion `json:"questions"`
}

type wireFlashcard struct {
	ID           flexID     `json:"id"`
	DeckID       flexID     `json:"deckId"`
	Front        string     `json:"front"`
	Back         string     `json:"back"`
	Example      *string    `json:"example"`
	Mnemonic     *string    `json:"mnemonic"`
	NextReviewAt *time.Time `json:"nextReviewAt"`
}

// QuestionGroups fetches the ordered question groups of an exercise or exam.
func (c *Client) QuestionGroups(ctx context.Context, token string, kind models.SessionKind, sourceID string) ([]models.QuestionGroup, error) {
	var path string
	switch kind {
	case models.KindExercise:
		path = "/exercises/" + url.PathEscape(sourceID) + "/question-groups"
	case models.KindExam:
		path = "/exams/" + url.PathEscape(sourceID) + "/question-groups"
	default:
		return nil, fmt.Errorf("unsupported session kind %q", kind)
	}

	var wire []wireGroup
	if err := c.do(ctx, http.MethodGet, path, token, nil, &wire); err != nil {
		return nil, err
	}

	groups := make([]models.QuestionGroup, 0, len(wire))
	for _, g := range wire {
		groups = append(groups, g.toModel())
	}
	return groups, nil
}

// DueFlashcards runs the backend's "due today" query for a deck.
func (c *Client) DueFlashcards(ctx context.Context, token, deckID string) ([]models.Flashcard, error) {
	var wire []wireFlashcard
	path := "/decks/" + url.PathEscape(deckID) + "/flashcards/due"
	if err := c.do(ctx, http.MethodGet, path, token, nil, &wire); err != nil {
		return nil, err
	}

	cards := make([]models.Flashcard, 0, len(wire))
	for _, w := range wire {
		deck := string(w.DeckID)
		if deck == "" {
			deck = deckID
		}
		cards = append(cards, models.Flashcard{
			ID:           string(w.ID),
			DeckID:       deck,
			Front:        w.Front,
			Back:         w.Back,
			Example:      nonEmpty(w.Example),
			Mnemonic:     nonEmpty(w.Mnemonic),
			NextReviewAt: w.NextReviewAt,
		})
	}
	return cards, nil
}

// RateFlashcard hands a review rating to the backend scheduler.
func (c *Client) RateFlashcard(ctx context.Context, token, cardID string, rating int) error {
	body := map[string]int{"rating": rating}
	return c.do(ctx, http.MethodPost, "/flashcards/"+url.PathEscape(cardID)+"/review", token, body, nil)
}

// SubmitExam posts the recorded answers and returns the backend's result untouched.
func (c *Client) SubmitExam(ctx context.Context, token, examID string, answers map[string]models.Letter) (json.RawMessage, error) {
	body := map[string]interface{}{"answers": answers}
	var result json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/exams/"+url.PathEscape(examID)+"/submissions", token, body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("lms %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (g wireGroup) toModel() models.QuestionGroup {
	out := models.QuestionGroup{
		ID:        string(g.ID),
		AudioURL:  deref(g.AudioURL),
		ImageURL:  deref(g.ImageURL),
		Passage:   deref(g.Passage),
		Questions: make([]models.Question, 0, len(g.Questions)),
	}
	for _, q := range g.Questions {
		out.Questions = append(out.Questions, q.toModel())
	}
	return out
}

func (q wireQuestion) toModel() models.Question {
	raw := []*string{q.ChoiceA, q.ChoiceB, q.ChoiceC, q.ChoiceD}
	choices := make([]models.Choice, 0, len(raw))
	for i, text := range raw {
		if text == nil || strings.TrimSpace(*text) == "" {
			continue
		}
		choices = append(choices, models.Choice{Letter: models.Letters[i], Text: *text})
	}

	// An unparseable key is kept verbatim so it can never match a present choice.
	correct, ok := models.ParseLetter(q.CorrectAnswer)
	if !ok {
		correct = models.Letter(q.CorrectAnswer)
	}

	return models.Question{
		ID:            string(q.ID),
		Title:         q.Title,
		Choices:       choices,
		CorrectAnswer: correct,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
