package practice

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"english-hub-backend/internal/models"
)

var (
	ErrUnknownQuestion    = errors.New("unknown question")
	ErrQuestionNotInGroup = errors.New("question is not in the current group")
	ErrInvalidChoice      = errors.New("choice is not offered for this question")
)

// Session is one pass through an exercise or exam: the groups being shown,
// the group cursor and the answer ledger. It is owned by a single caller
// and is not safe for concurrent use.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Kind      models.SessionKind
	SourceID  string
	StartedAt time.Time

	groups []models.QuestionGroup
	index  map[string]int // question id -> group position
	cursor *Cursor
	ledger *Ledger
}

func NewSession(userID uuid.UUID, kind models.SessionKind, sourceID string, groups []models.QuestionGroup) (*Session, error) {
	cursor, err := NewCursor(len(groups))
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		SourceID:  sourceID,
		StartedAt: time.Now().UTC(),
		groups:    groups,
		index:     indexQuestions(groups),
		cursor:    cursor,
		ledger:    NewLedger(),
	}, nil
}

func indexQuestions(groups []models.QuestionGroup) map[string]int {
	idx := make(map[string]int)
	for gi, g := range groups {
		for _, q := range g.Questions {
			if _, dup := idx[q.ID]; !dup {
				idx[q.ID] = gi
			}
		}
	}
	return idx
}

func (s *Session) Cursor() *Cursor { return s.cursor }

func (s *Session) Ledger() *Ledger { return s.ledger }

func (s *Session) Groups() []models.QuestionGroup { return s.groups }

func (s *Session) CurrentGroup() models.QuestionGroup {
	return s.groups[s.cursor.Position()]
}

// Answer records choice for a question of the current group.
func (s *Session) Answer(questionID string, choice models.Letter) error {
	gi, ok := s.index[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	if gi != s.cursor.Position() {
		return ErrQuestionNotInGroup
	}
	q, _ := s.question(gi, questionID)
	if _, ok := q.Choice(choice); !ok {
		return ErrInvalidChoice
	}
	return s.ledger.Record(questionID, choice)
}

func (s *Session) question(gi int, questionID string) (models.Question, bool) {
	for _, q := range s.groups[gi].Questions {
		if q.ID == questionID {
			return q, true
		}
	}
	return models.Question{}, false
}

func (s *Session) Next() bool { return s.cursor.Next() }

func (s *Session) Previous() bool { return s.cursor.Previous() }

type Tally struct {
	Answered int `json:"answered"`
	Correct  int `json:"correct"`
	Total    int `json:"total"`
}

type GroupView struct {
	ID        string             `json:"id"`
	AudioURL  string             `json:"audio_url,omitempty"`
	ImageURL  string             `json:"image_url,omitempty"`
	Passage   string             `json:"passage,omitempty"`
	Empty     bool               `json:"empty"`
	Questions []QuestionFeedback `json:"questions"`
}

// View is the read-only state handed to the page shell.
type View struct {
	SessionID   uuid.UUID          `json:"session_id"`
	Kind        models.SessionKind `json:"kind"`
	SourceID    string             `json:"source_id"`
	Cursor      int                `json:"cursor"`
	Total       int                `json:"total"`
	Progress    string             `json:"progress"`
	CanPrevious bool               `json:"can_previous"`
	CanNext     bool               `json:"can_next"`
	Group       GroupView          `json:"group"`
	Tally       Tally              `json:"tally"`
}

func (s *Session) View() View {
	g := s.CurrentGroup()
	gv := GroupView{
		ID:        g.ID,
		AudioURL:  g.AudioURL,
		ImageURL:  g.ImageURL,
		Passage:   g.Passage,
		Empty:     len(g.Questions) == 0,
		Questions: make([]QuestionFeedback, 0, len(g.Questions)),
	}
	for _, q := range g.Questions {
		gv.Questions = append(gv.Questions, Classify(q, s.ledger))
	}

	return View{
		SessionID:   s.ID,
		Kind:        s.Kind,
		SourceID:    s.SourceID,
		Cursor:      s.cursor.Position(),
		Total:       s.cursor.Len(),
		Progress:    s.cursor.Progress(),
		CanPrevious: s.cursor.HasPrevious(),
		CanNext:     s.cursor.HasNext(),
		Group:       gv,
		Tally:       s.Tally(),
	}
}

func (s *Session) Tally() Tally {
	var t Tally
	for _, g := range s.groups {
		for _, q := range g.Questions {
			t.Total++
			if s.ledger.IsAnswered(q.ID) {
				t.Answered++
			}
			if IsCorrect(q, s.ledger) {
				t.Correct++
			}
		}
	}
	return t
}

// Snapshot is the storable form of a Session.
type Snapshot struct {
	ID        uuid.UUID                `json:"id"`
	UserID    uuid.UUID                `json:"user_id"`
	Kind      models.SessionKind       `json:"kind"`
	SourceID  string                   `json:"source_id"`
	StartedAt time.Time                `json:"started_at"`
	Cursor    int                      `json:"cursor"`
	Answers   map[string]models.Letter `json:"answers"`
	Groups    []models.QuestionGroup   `json:"groups"`
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:        s.ID,
		UserID:    s.UserID,
		Kind:      s.Kind,
		SourceID:  s.SourceID,
		StartedAt: s.StartedAt,
		Cursor:    s.cursor.Position(),
		Answers:   s.ledger.Entries(),
		Groups:    s.groups,
	}
}

func RestoreSession(snap Snapshot) (*Session, error) {
	cursor, err := restoreCursor(snap.Cursor, len(snap.Groups))
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", snap.ID, err)
	}
	ledger := NewLedger()
	for qid, c := range snap.Answers {
		ledger.answers[qid] = c
	}
	return &Session{
		ID:        snap.ID,
		UserID:    snap.UserID,
		Kind:      snap.Kind,
		SourceID:  snap.SourceID,
		StartedAt: snap.StartedAt,
		groups:    snap.Groups,
		index:     indexQuestions(snap.Groups),
		cursor:    cursor,
		ledger:    ledger,
	}, nil
}
