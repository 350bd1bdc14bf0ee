package practice

import (
	"errors"

	"english-hub-backend/internal/models"
)

var ErrAlreadyAnswered = errors.New("question already answered")

// Ledger records which choice was picked for each question. Entries are
// write-once: the first recorded answer for a question is final.
type Ledger struct {
	answers map[string]models.Letter
}

func NewLedger() *Ledger {
	return &Ledger{answers: make(map[string]models.Letter)}
}

// Record stores the answer for questionID. A second call for the same
// question returns ErrAlreadyAnswered and keeps the first answer.
func (l *Ledger) Record(questionID string, choice models.Letter) error {
	if _, ok := l.answers[questionID]; ok {
		return ErrAlreadyAnswered
	}
	l.answers[questionID] = choice
	return nil
}

func (l *Ledger) IsAnswered(questionID string) bool {
	_, ok := l.answers[questionID]
	return ok
}

func (l *Ledger) Answer(questionID string) (models.Letter, bool) {
	c, ok := l.answers[questionID]
	return c, ok
}

func (l *Ledger) Len() int { return len(l.answers) }

// Entries returns a copy of the recorded answers.
func (l *Ledger) Entries() map[string]models.Letter {
	out := make(map[string]models.Letter, len(l.answers))
	for k, v := range l.answers {
		out[k] = v
	}
	return out
}
