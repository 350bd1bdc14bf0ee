package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"english-hub-backend/internal/models"
	"english-hub-backend/internal/practice"
	"english-hub-backend/internal/repository"
)

// QuestionSource yields the ordered question groups of an exercise or exam.
type QuestionSource interface {
	QuestionGroups(ctx context.Context, token string, kind models.SessionKind, sourceID string) ([]models.QuestionGroup, error)
}

// BankReader is the local question-bank lookup.
type BankReader interface {
	QuestionGroups(ctx context.Context, kind models.SessionKind, sourceID string) ([]models.QuestionGroup, error)
}

type localSource struct {
	banks BankReader
}

// NewLocalSource serves imported banks as a QuestionSource. The token is unused.
func NewLocalSource(banks BankReader) QuestionSource {
	return localSource{banks: banks}
}

func (s localSource) QuestionGroups(ctx context.Context, _ string, kind models.SessionKind, sourceID string) ([]models.QuestionGroup, error) {
	return s.banks.QuestionGroups(ctx, kind, sourceID)
}

type ExamSubmitter interface {
	SubmitExam(ctx context.Context, token, examID string, answers map[string]models.Letter) (json.RawMessage, error)
}

// StudyLog records time spent per activity. Optional.
type StudyLog interface {
	Start(ctx context.Context, s *models.StudySession) error
	Stop(ctx context.Context, sessionID, userID uuid.UUID) error
}

// practiceRecord is what the store holds for one practice session.
type practiceRecord struct {
	Snapshot   practice.Snapshot `json:"snapshot"`
	StudyLogID *uuid.UUID        `json:"study_log_id,omitempty"`
	Submitted  bool              `json:"submitted"`
}

// Navigation is the outcome of a next/previous request. Moved is false when
// the cursor was already at the boundary.
type Navigation struct {
	Moved bool          `json:"moved"`
	View  practice.View `json:"view"`
}

type SubmitResult struct {
	SessionID uuid.UUID       `json:"session_id"`
	Answered  int             `json:"answered"`
	Total     int             `json:"total"`
	Result    json.RawMessage `json:"result"`
}

type PracticeService struct {
	source    QuestionSource
	store     repository.SnapshotStore
	exams     ExamSubmitter
	studyLog  StudyLog
	publisher Publisher
}

func NewPracticeService(source QuestionSource, store repository.SnapshotStore, exams ExamSubmitter, studyLog StudyLog, publisher Publisher) *PracticeService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &PracticeService{
		source:    source,
		store:     store,
		exams:     exams,
		studyLog:  studyLog,
		publisher: publisher,
	}
}

func (s *PracticeService) Start(ctx context.Context, userID uuid.UUID, token string, req models.StartPracticeRequest) (*practice.View, error) {
	fields := map[string]string{}
	if !req.Kind.Valid() {
		fields["kind"] = "Must be exercise or exam"
	}
	req.SourceID = strings.TrimSpace(req.SourceID)
	if req.SourceID == "" {
		fields["source_id"] = "Source ID is required"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	groups, err := s.source.QuestionGroups(ctx, token, req.Kind, req.SourceID)
	if err != nil {
		log.Printf("Question groups unavailable for %s %s: %v", req.Kind, req.SourceID, err)
		return nil, &DataUnavailableError{Message: "Questions for this " + string(req.Kind) + " are not available", Err: err}
	}

	sess, err := practice.NewSession(userID, req.Kind, req.SourceID, groups)
	if errors.Is(err, practice.ErrNoGroups) {
		return nil, &DataUnavailableError{Message: "This " + string(req.Kind) + " has no questions yet", Err: err}
	}
	if err != nil {
		return nil, err
	}

	rec := practiceRecord{Snapshot: sess.Snapshot()}
	rec.StudyLogID = startStudyLog(ctx, s.studyLog, userID, string(req.Kind), req.SourceID)

	data, err := json.Marshal(rec)
	if err != nil {
		stopStudyLog(ctx, s.studyLog, userID, rec.StudyLogID)
		return nil, fmt.Errorf("encode session: %w", err)
	}
	if err := s.store.Create(ctx, sess.ID.String(), data); err != nil {
		stopStudyLog(ctx, s.studyLog, userID, rec.StudyLogID)
		return nil, fmt.Errorf("store session: %w", err)
	}

	view := sess.View()
	s.publisher.Publish(ctx, userID, models.WSMessage{Type: models.WSPracticeUpdated, Payload: view})
	return &view, nil
}

func (s *PracticeService) View(ctx context.Context, userID, sessionID uuid.UUID) (*practice.View, error) {
	data, err := s.store.Load(ctx, sessionID.String())
	if err != nil {
		return nil, storeError(err)
	}
	_, sess, err := decodePractice(data, userID)
	if err != nil {
		return nil, err
	}
	view := sess.View()
	return &view, nil
}

// Answer records a choice for a question of the current group. A question
// can be answered once.
func (s *PracticeService) Answer(ctx context.Context, userID, sessionID uuid.UUID, req models.AnswerRequest) (*practice.View, error) {
	fields := map[string]string{}
	req.QuestionID = strings.TrimSpace(req.QuestionID)
	if req.QuestionID == "" {
		fields["question_id"] = "Question ID is required"
	}
	choice, ok := models.ParseLetter(req.Choice)
	if !ok {
		fields["choice"] = "Choice must be one of A, B, C, D"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	sess, err := s.mutate(ctx, userID, sessionID, func(sess *practice.Session, rec *practiceRecord) error {
		if rec.Submitted {
			return &ConflictError{Message: "This exam has already been submitted"}
		}
		switch err := sess.Answer(req.QuestionID, choice); {
		case err == nil:
			return nil
		case errors.Is(err, practice.ErrAlreadyAnswered):
			return &ConflictError{Message: "This question has already been answered"}
		case errors.Is(err, practice.ErrUnknownQuestion):
			return &NotFoundError{Message: "Question not found in this session"}
		case errors.Is(err, practice.ErrQuestionNotInGroup):
			return &ValidationError{Fields: map[string]string{"question_id": "Question is not in the current group"}}
		case errors.Is(err, practice.ErrInvalidChoice):
			return &ValidationError{Fields: map[string]string{"choice": "Choice is not offered for this question"}}
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	view := sess.View()
	s.publisher.Publish(ctx, userID, models.WSMessage{Type: models.WSPracticeUpdated, Payload: view})
	return &view, nil
}

func (s *PracticeService) Next(ctx context.Context, userID, sessionID uuid.UUID) (*Navigation, error) {
	return s.navigate(ctx, userID, sessionID, (*practice.Session).Next)
}

func (s *PracticeService) Previous(ctx context.Context, userID, sessionID uuid.UUID) (*Navigation, error) {
	return s.navigate(ctx, userID, sessionID, (*practice.Session).Previous)
}

func (s *PracticeService) navigate(ctx context.Context, userID, sessionID uuid.UUID, move func(*practice.Session) bool) (*Navigation, error) {
	var moved bool
	sess, err := s.mutate(ctx, userID, sessionID, func(sess *practice.Session, _ *practiceRecord) error {
		moved = move(sess)
		return nil
	})
	if err != nil {
		return nil, err
	}

	nav := &Navigation{Moved: moved, View: sess.View()}
	if moved {
		s.publisher.Publish(ctx, userID, models.WSMessage{Type: models.WSPracticeUpdated, Payload: nav.View})
	}
	return nav, nil
}

// Submit forwards an exam's recorded answers to the backend and returns its
// result untouched. An exam is submitted once; the flag is set before the
// backend call and cleared again if the call fails. Without a submitter
// (local banks) submission is refused.
func (s *PracticeService) Submit(ctx context.Context, userID uuid.UUID, token string, sessionID uuid.UUID) (*SubmitResult, error) {
	if s.exams == nil {
		return nil, &ConflictError{Message: "Exams from imported question banks cannot be submitted"}
	}
	var answers map[string]models.Letter
	sess, err := s.mutate(ctx, userID, sessionID, func(sess *practice.Session, rec *practiceRecord) error {
		if sess.Kind != models.KindExam {
			return &ValidationError{Fields: map[string]string{"kind": "Only exams can be submitted"}}
		}
		if rec.Submitted {
			return &ConflictError{Message: "This exam has already been submitted"}
		}
		rec.Submitted = true
		answers = sess.Ledger().Entries()
		return nil
	})
	if err != nil {
		return nil, err
	}

	result, err := s.exams.SubmitExam(ctx, token, sess.SourceID, answers)
	if err != nil {
		log.Printf("Exam submission failed for session %s: %v", sess.ID, err)
		if _, rerr := s.mutate(ctx, userID, sessionID, func(_ *practice.Session, rec *practiceRecord) error {
			rec.Submitted = false
			return nil
		}); rerr != nil {
			log.Printf("Failed to reopen session %s after submission error: %v", sess.ID, rerr)
		}
		return nil, &UpstreamError{Message: "Exam submission failed", Err: err}
	}

	return &SubmitResult{
		SessionID: sess.ID,
		Answered:  len(answers),
		Total:     sess.Tally().Total,
		Result:    result,
	}, nil
}

// End discards the session and closes its time-log entry.
func (s *PracticeService) End(ctx context.Context, userID, sessionID uuid.UUID) error {
	data, err := s.store.Load(ctx, sessionID.String())
	if err != nil {
		return storeError(err)
	}
	rec, _, err := decodePractice(data, userID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sessionID.String()); err != nil {
		return storeError(err)
	}

	stopStudyLog(ctx, s.studyLog, userID, rec.StudyLogID)
	s.publisher.Publish(ctx, userID, models.WSMessage{
		Type:    models.WSPracticeEnded,
		Payload: map[string]uuid.UUID{"session_id": sessionID},
	})
	return nil
}

// mutate applies fn to the stored session under the store's per-key
// serialization and writes the result back.
func (s *PracticeService) mutate(ctx context.Context, userID, sessionID uuid.UUID, fn func(*practice.Session, *practiceRecord) error) (*practice.Session, error) {
	var sess *practice.Session
	err := s.store.Update(ctx, sessionID.String(), func(cur []byte) ([]byte, error) {
		rec, loaded, err := decodePractice(cur, userID)
		if err != nil {
			return nil, err
		}
		if err := fn(loaded, rec); err != nil {
			return nil, err
		}
		rec.Snapshot = loaded.Snapshot()
		sess = loaded
		return json.Marshal(rec)
	})
	if err != nil {
		return nil, storeError(err)
	}
	return sess, nil
}

func decodePractice(data []byte, userID uuid.UUID) (*practiceRecord, *practice.Session, error) {
	var rec practiceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, nil, fmt.Errorf("decode session: %w", err)
	}
	if rec.Snapshot.UserID != userID {
		return nil, nil, &ForbiddenError{Message: "This session belongs to another user"}
	}
	sess, err := practice.RestoreSession(rec.Snapshot)
	if err != nil {
		return nil, nil, err
	}
	return &rec, sess, nil
}

// startStudyLog opens a time-log entry. Failures are logged and never block
// the session itself.
func startStudyLog(ctx context.Context, studyLog StudyLog, userID uuid.UUID, activity, resourceID string) *uuid.UUID {
	if studyLog == nil {
		return nil
	}
	entry := &models.StudySession{UserID: userID, ActivityType: activity, ResourceID: resourceID}
	if err := studyLog.Start(ctx, entry); err != nil {
		log.Printf("Failed to open study session for user %s: %v", userID, err)
		return nil
	}
	return &entry.ID
}

func stopStudyLog(ctx context.Context, studyLog StudyLog, userID uuid.UUID, id *uuid.UUID) {
	if studyLog == nil || id == nil {
		return
	}
	if err := studyLog.Stop(ctx, *id, userID); err != nil {
		log.Printf("Failed to close study session %s: %v", *id, err)
	}
}

// storeError turns a missing or expired session into a NotFoundError and
// passes everything else through.
func storeError(err error) error {
	if errors.Is(err, repository.ErrSessionNotFound) {
		return &NotFoundError{Message: "Session not found or expired"}
	}
	return err
}
