package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Letter identifies a choice within a question.
type Letter string

const (
	LetterA Letter = "A"
	LetterB Letter = "B"
	LetterC Letter = "C"
	LetterD Letter = "D"
)

// Letters lists the choice letters in display order.
var Letters = []Letter{LetterA, LetterB, LetterC, LetterD}

// ParseLetter normalises user input ("b", " B ") to a Letter.
func ParseLetter(s string) (Letter, bool) {
	l := Letter(strings.ToUpper(strings.TrimSpace(s)))
	switch l {
	case LetterA, LetterB, LetterC, LetterD:
		return l, true
	}
	return "", false
}

type Choice struct {
	Letter Letter `json:"letter" yaml:"letter"`
	Text   string `json:"text" yaml:"text"`
}

type Question struct {
	ID            string   `json:"id" yaml:"id"`
	Title         string   `json:"title,omitempty" yaml:"title,omitempty"`
	Choices       []Choice `json:"choices" yaml:"choices"`
	CorrectAnswer Letter   `json:"correct_answer" yaml:"correct_answer"`
}

// Choice returns the present choice for l.
func (q Question) Choice(l Letter) (Choice, bool) {
	for _, c := range q.Choices {
		if c.Letter == l {
			return c, true
		}
	}
	return Choice{}, false
}

type QuestionGroup struct {
	ID        string     `json:"id" yaml:"id"`
	AudioURL  string     `json:"audio_url,omitempty" yaml:"audio_url,omitempty"`
	ImageURL  string     `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	Passage   string     `json:"passage,omitempty" yaml:"passage,omitempty"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// SessionKind says which backend collection a practice session was built from.
type SessionKind string

const (
	KindExercise SessionKind = "exercise"
	KindExam     SessionKind = "exam"
)

func (k SessionKind) Valid() bool {
	return k == KindExercise || k == KindExam
}

// QuestionBank is an imported, locally stored set of question groups (offline mode).
type QuestionBank struct {
	ID        string          `json:"id" yaml:"id"`
	Kind      SessionKind     `json:"kind" yaml:"kind"`
	Title     string          `json:"title" yaml:"title"`
	Groups    []QuestionGroup `json:"groups,omitempty" yaml:"groups"`
	CreatedAt time.Time       `json:"created_at" yaml:"-"`
}

type StartPracticeRequest struct {
	Kind     SessionKind `json:"kind"`
	SourceID string      `json:"source_id"`
}

type AnswerRequest struct {
	QuestionID string `json:"question_id"`
	Choice     string `json:"choice"`
}

type PracticeSessionInfo struct {
	ID        uuid.UUID   `json:"id"`
	UserID    uuid.UUID   `json:"user_id"`
	Kind      SessionKind `json:"kind"`
	SourceID  string      `json:"source_id"`
	StartedAt time.Time   `json:"started_at"`
}
