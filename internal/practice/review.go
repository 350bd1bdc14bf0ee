package practice

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"english-hub-backend/internal/models"
)

var (
	ErrNothingDue    = errors.New("no cards due for review")
	ErrNotRevealed   = errors.New("card must be revealed before rating")
	ErrAlreadyRated  = errors.New("card already rated in this review")
	ErrInvalidRating = errors.New("rating must be between 0 and 3")
)

// Review walks a deck's due cards: show the front, reveal the back, rate.
type Review struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	DeckID    string
	StartedAt time.Time

	cards    []models.Flashcard
	cursor   *Cursor
	revealed map[string]bool
	ratings  map[string]int
}

func NewReview(userID uuid.UUID, deckID string, due []models.Flashcard) (*Review, error) {
	cursor, err := NewCursor(len(due))
	if err != nil {
		return nil, ErrNothingDue
	}
	return &Review{
		ID:        uuid.New(),
		UserID:    userID,
		DeckID:    deckID,
		StartedAt: time.Now().UTC(),
		cards:     due,
		cursor:    cursor,
		revealed:  make(map[string]bool),
		ratings:   make(map[string]int),
	}, nil
}

func (r *Review) Cursor() *Cursor { return r.cursor }

func (r *Review) Current() models.Flashcard { return r.cards[r.cursor.Position()] }

// Reveal flips the current card. Revealing twice is harmless.
func (r *Review) Reveal() {
	r.revealed[r.Current().ID] = true
}

// Rate records the rating of the current card and returns the card id.
func (r *Review) Rate(rating int) (string, error) {
	if rating < models.RatingAgain || rating > models.RatingEasy {
		return "", ErrInvalidRating
	}
	card := r.Current()
	if !r.revealed[card.ID] {
		return "", ErrNotRevealed
	}
	if _, done := r.ratings[card.ID]; done {
		return "", ErrAlreadyRated
	}
	r.ratings[card.ID] = rating
	return card.ID, nil
}

func (r *Review) Next() bool { return r.cursor.Next() }

func (r *Review) Previous() bool { return r.cursor.Previous() }

type CardView struct {
	ID       string  `json:"id"`
	Front    string  `json:"front"`
	Back     string  `json:"back,omitempty"`
	Example  *string `json:"example,omitempty"`
	Mnemonic *string `json:"mnemonic,omitempty"`
	Revealed bool    `json:"revealed"`
	Rating   *int    `json:"rating,omitempty"`
}

type ReviewView struct {
	ReviewID    uuid.UUID `json:"review_id"`
	DeckID      string    `json:"deck_id"`
	Cursor      int       `json:"cursor"`
	Total       int       `json:"total"`
	Progress    string    `json:"progress"`
	CanPrevious bool      `json:"can_previous"`
	CanNext     bool      `json:"can_next"`
	Rated       int       `json:"rated"`
	Card        CardView  `json:"card"`
}

func (r *Review) View() ReviewView {
	c := r.Current()
	cv := CardView{ID: c.ID, Front: c.Front, Revealed: r.revealed[c.ID]}
	if cv.Revealed {
		cv.Back = c.Back
		cv.Example = c.Example
		cv.Mnemonic = c.Mnemonic
	}
	if rating, ok := r.ratings[c.ID]; ok {
		cv.Rating = &rating
	}
	return ReviewView{
		ReviewID:    r.ID,
		DeckID:      r.DeckID,
		Cursor:      r.cursor.Position(),
		Total:       r.cursor.Len(),
		Progress:    r.cursor.Progress(),
		CanPrevious: r.cursor.HasPrevious(),
		CanNext:     r.cursor.HasNext(),
		Rated:       len(r.ratings),
		Card:        cv,
	}
}

type ReviewSnapshot struct {
	ID        uuid.UUID          `json:"id"`
	UserID    uuid.UUID          `json:"user_id"`
	DeckID    string             `json:"deck_id"`
	StartedAt time.Time          `json:"started_at"`
	Cursor    int                `json:"cursor"`
	Cards     []models.Flashcard `json:"cards"`
	Revealed  []string           `json:"revealed"`
	Ratings   map[string]int     `json:"ratings"`
}

func (r *Review) Snapshot() ReviewSnapshot {
	revealed := make([]string, 0, len(r.revealed))
	for id := range r.revealed {
		revealed = append(revealed, id)
	}
	ratings := make(map[string]int, len(r.ratings))
	for id, v := range r.ratings {
		ratings[id] = v
	}
	return ReviewSnapshot{
		ID:        r.ID,
		UserID:    r.UserID,
		DeckID:    r.DeckID,
		StartedAt: r.StartedAt,
		Cursor:    r.cursor.Position(),
		Cards:     r.cards,
		Revealed:  revealed,
		Ratings:   ratings,
	}
}

func RestoreReview(snap ReviewSnapshot) (*Review, error) {
	cursor, err := restoreCursor(snap.Cursor, len(snap.Cards))
	if err != nil {
		return nil, fmt.Errorf("restore review %s: %w", snap.ID, err)
	}
	r := &Review{
		ID:        snap.ID,
		UserID:    snap.UserID,
		DeckID:    snap.DeckID,
		StartedAt: snap.StartedAt,
		cards:     snap.Cards,
		cursor:    cursor,
		revealed:  make(map[string]bool, len(snap.Revealed)),
		ratings:   make(map[string]int, len(snap.Ratings)),
	}
	for _, id := range snap.Revealed {
		r.revealed[id] = true
	}
	for id, v := range snap.Ratings {
		r.ratings[id] = v
	}
	return r, nil
}
