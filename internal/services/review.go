package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"english-hub-backend/internal/models"
	"english-hub-backend/internal/practice"
	"english-hub-backend/internal/repository"
)

type FlashcardSource interface {
	DueFlashcards(ctx context.Context, token, deckID string) ([]models.Flashcard, error)
}

// RatingQueue hands a rating to the relay that forwards it to the scheduler.
type RatingQueue interface {
	Enqueue(ctx context.Context, job models.RatingJob) error
}

type reviewRecord struct {
	Snapshot   practice.ReviewSnapshot `json:"snapshot"`
	StudyLogID *uuid.UUID              `json:"study_log_id,omitempty"`
}

type ReviewNavigation struct {
	Moved bool                `json:"moved"`
	View  practice.ReviewView `json:"view"`
}

type ReviewService struct {
	cards     FlashcardSource
	store     repository.SnapshotStore
	queue     RatingQueue
	studyLog  StudyLog
	publisher Publisher
}

func NewReviewService(cards FlashcardSource, store repository.SnapshotStore, queue RatingQueue, studyLog StudyLog, publisher Publisher) *ReviewService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &ReviewService{
		cards:     cards,
		store:     store,
		queue:     queue,
		studyLog:  studyLog,
		publisher: publisher,
	}
}

func (s *ReviewService) Start(ctx context.Context, userID uuid.UUID, token string, req models.StartReviewRequest) (*practice.ReviewView, error) {
	deckID := strings.TrimSpace(req.DeckID)
	if deckID == "" {
		return nil, &ValidationError{Fields: map[string]string{"deck_id": "Deck ID is required"}}
	}

	due, err := s.cards.DueFlashcards(ctx, token, deckID)
	if err != nil {
		log.Printf("Due flashcards unavailable for deck %s: %v", deckID, err)
		return nil, &DataUnavailableError{Message: "Flashcards for this deck are not available", Err: err}
	}

	rev, err := practice.NewReview(userID, deckID, due)
	if errors.Is(err, practice.ErrNothingDue) {
		return nil, &DataUnavailableError{Message: "No cards are due in this deck", Err: err}
	}
	if err != nil {
		return nil, err
	}

	rec := reviewRecord{Snapshot: rev.Snapshot()}
	rec.StudyLogID = startStudyLog(ctx, s.studyLog, userID, models.ActivityFlashcard, deckID)

	data, err := json.Marshal(rec)
	if err != nil {
		stopStudyLog(ctx, s.studyLog, userID, rec.StudyLogID)
		return nil, fmt.Errorf("encode review: %w", err)
	}
	if err := s.store.Create(ctx, rev.ID.String(), data); err != nil {
		stopStudyLog(ctx, s.studyLog, userID, rec.StudyLogID)
		return nil, fmt.Errorf("store review: %w", err)
	}

	view := rev.View()
	s.publisher.Publish(ctx, userID, models.WSMessage{Type: models.WSReviewUpdated, Payload: view})
	return &view, nil
}

func (s *ReviewService) View(ctx context.Context, userID, reviewID uuid.UUID) (*practice.ReviewView, error) {
	data, err := s.store.Load(ctx, reviewID.String())
	if err != nil {
		return nil, storeError(err)
	}
	_, rev, err := decodeReview(data, userID)
	if err != nil {
		return nil, err
	}
	view := rev.View()
	return &view, nil
}

func (s *ReviewService) Reveal(ctx context.Context, userID, reviewID uuid.UUID) (*practice.ReviewView, error) {
	rev, err := s.mutate(ctx, userID, reviewID, func(rev *practice.Review) error {
		rev.Reveal()
		return nil
	})
	if err != nil {
		return nil, err
	}
	view := rev.View()
	s.publisher.Publish(ctx, userID, models.WSMessage{Type: models.WSReviewUpdated, Payload: view})
	return &view, nil
}

// Rate records the rating of the current card and queues it for the
// backend scheduler. A queueing failure is logged; the rating stays recorded.
func (s *ReviewService) Rate(ctx context.Context, userID uuid.UUID, token string, reviewID uuid.UUID, req models.CardRatingRequest) (*practice.ReviewView, error) {
	if req.Rating == nil {
		return nil, &ValidationError{Fields: map[string]string{"rating": "Rating is required"}}
	}
	rating := *req.Rating
	if rating < models.RatingAgain || rating > models.RatingEasy {
		return nil, &ValidationError{Fields: map[string]string{"rating": "Rating must be between 0 and 3"}}
	}

	var cardID string
	rev, err := s.mutate(ctx, userID, reviewID, func(rev *practice.Review) error {
		id, err := rev.Rate(rating)
		switch {
		case err == nil:
			cardID = id
			return nil
		case errors.Is(err, practice.ErrNotRevealed):
			return &ConflictError{Message: "Reveal the card before rating it"}
		case errors.Is(err, practice.ErrAlreadyRated):
			return &ConflictError{Message: "This card has already been rated"}
		case errors.Is(err, practice.ErrInvalidRating):
			return &ValidationError{Fields: map[string]string{"rating": "Rating must be between 0 and 3"}}
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	job := models.RatingJob{
		ID:         uuid.New(),
		UserID:     userID,
		ReviewID:   reviewID,
		CardID:     cardID,
		Rating:     rating,
		AuthToken:  token,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		log.Printf("Failed to queue rating for card %s: %v", cardID, err)
	}

	view := rev.View()
	s.publisher.Publish(ctx, userID, models.WSMessage{Type: models.WSReviewUpdated, Payload: view})
	return &view, nil
}

func (s *ReviewService) Next(ctx context.Context, userID, reviewID uuid.UUID) (*ReviewNavigation, error) {
	return s.navigate(ctx, userID, reviewID, (*practice.Review).Next)
}

func (s *ReviewService) Previous(ctx context.Context, userID, reviewID uuid.UUID) (*ReviewNavigation, error) {
	return s.navigate(ctx, userID, reviewID, (*practice.Review).Previous)
}

func (s *ReviewService) navigate(ctx context.Context, userID, reviewID uuid.UUID, move func(*practice.Review) bool) (*ReviewNavigation, error) {
	var moved bool
	rev, err := s.mutate(ctx, userID, reviewID, func(rev *practice.Review) error {
		moved = move(rev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	nav := &ReviewNavigation{Moved: moved, View: rev.View()}
	if moved {
		s.publisher.Publish(ctx, userID, models.WSMessage{Type: models.WSReviewUpdated, Payload: nav.View})
	}
	return nav, nil
}

func (s *ReviewService) End(ctx context.Context, userID, reviewID uuid.UUID) error {
	data, err := s.store.Load(ctx, reviewID.String())
	if err != nil {
		return storeError(err)
	}
	rec, _, err := decodeReview(data, userID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, reviewID.String()); err != nil {
		return storeError(err)
	}

	stopStudyLog(ctx, s.studyLog, userID, rec.StudyLogID)
	s.publisher.Publish(ctx, userID, models.WSMessage{
		Type:    models.WSReviewEnded,
		Payload: map[string]uuid.UUID{"review_id": reviewID},
	})
	return nil
}

func (s *ReviewService) mutate(ctx context.Context, userID, reviewID uuid.UUID, fn func(*practice.Review) error) (*practice.Review, error) {
	var rev *practice.Review
	err := s.store.Update(ctx, reviewID.String(), func(cur []byte) ([]byte, error) {
		rec, loaded, err := decodeReview(cur, userID)
		if err != nil {
			return nil, err
		}
		if err := fn(loaded); err != nil {
			return nil, err
		}
		rec.Snapshot = loaded.Snapshot()
		rev = loaded
		return json.Marshal(rec)
	})
	if err != nil {
		return nil, storeError(err)
	}
	return rev, nil
}

func decodeReview(data []byte, userID uuid.UUID) (*reviewRecord, *practice.Review, error) {
	var rec reviewRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, nil, fmt.Errorf("decode review: %w", err)
	}
	if rec.Snapshot.UserID != userID {
		return nil, nil, &ForbiddenError{Message: "This review belongs to another user"}
	}
	rev, err := practice.RestoreReview(rec.Snapshot)
	if err != nil {
		return nil, nil, err
	}
	return &rec, rev, nil
}
