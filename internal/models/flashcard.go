package models

import (
	"time"
)

// Flashcard is a card as returned by the backend's due-today query.
type Flashcard struct {
	ID           string     `json:"id"`
	DeckID       string     `json:"deck_id"`
	Front        string     `json:"front"`
	Back         string     `json:"back"`
	Example      *string    `json:"example,omitempty"`
	Mnemonic     *string    `json:"mnemonic,omitempty"`
	NextReviewAt *time.Time `json:"next_review_at,omitempty"`
}

// Card ratings, relayed to the backend scheduler as-is.
const (
	RatingAgain = 0
	RatingHard  = 1
	RatingGood  = 2
	RatingEasy  = 3
)

type StartReviewRequest struct {
	DeckID string `json:"deck_id"`
}

// CardRatingRequest carries the rating as a pointer so an absent field is
// told apart from RatingAgain.
type CardRatingRequest struct {
	Rating *int `json:"rating"` // 0=Again, 1=Hard, 2=Good, 3=Easy
}

// RatingOf is a convenience for building a CardRatingRequest.
func RatingOf(r int) *int {
	return &r
}
