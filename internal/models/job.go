package models

import (
	"time"

	"github.com/google/uuid"
)

// RatingJob carries one flashcard rating from a review session to the backend scheduler.
type RatingJob struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	ReviewID   uuid.UUID `json:"review_id"`
	CardID     string    `json:"card_id"`
	Rating     int       `json:"rating"`
	AuthToken  string    `json:"auth_token"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	WSPracticeUpdated = "practice.updated"
	WSPracticeEnded   = "practice.ended"
	WSReviewUpdated   = "review.updated"
	WSReviewEnded     = "review.ended"
)

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

// SessionUpdatesChannel is the Redis pub/sub channel carrying a user's live
// session views.
func SessionUpdatesChannel(userID uuid.UUID) string {
	return "session_updates:" + userID.String()
}
