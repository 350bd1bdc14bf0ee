package practice

import "english-hub-backend/internal/models"

type OptionStatus string

const (
	StatusNeutral   OptionStatus = "neutral"
	StatusCorrect   OptionStatus = "correct"
	StatusIncorrect OptionStatus = "incorrect"
)

const (
	BadgeCorrect   = "Correct"
	BadgeIncorrect = "Incorrect"
)

type OptionFeedback struct {
	Letter   models.Letter `json:"letter"`
	Text     string        `json:"text"`
	Status   OptionStatus  `json:"status"`
	Badge    string        `json:"badge,omitempty"`
	Selected bool          `json:"selected"`
	Disabled bool          `json:"disabled"`
}

type QuestionFeedback struct {
	QuestionID string           `json:"question_id"`
	Title      string           `json:"title,omitempty"`
	Answered   bool             `json:"answered"`
	Selected   models.Letter    `json:"selected,omitempty"`
	Empty      bool             `json:"empty"`
	Options    []OptionFeedback `json:"options"`
}

// Classify derives how each present choice of q is shown given the ledger.
// It only reads the ledger.
func Classify(q models.Question, ledger *Ledger) QuestionFeedback {
	selected, answered := ledger.Answer(q.ID)
	fb := QuestionFeedback{
		QuestionID: q.ID,
		Title:      q.Title,
		Answered:   answered,
		Selected:   selected,
		Empty:      len(q.Choices) == 0,
		Options:    make([]OptionFeedback, 0, len(q.Choices)),
	}

	for _, c := range q.Choices {
		opt := OptionFeedback{
			Letter: c.Letter,
			Text:   c.Text,
			Status: StatusNeutral,
		}
		if answered {
			opt.Disabled = true
			opt.Selected = c.Letter == selected
			switch {
			case c.Letter == q.CorrectAnswer:
				opt.Status = StatusCorrect
				opt.Badge = BadgeCorrect
			case c.Letter == selected:
				opt.Status = StatusIncorrect
				opt.Badge = BadgeIncorrect
			}
		}
		fb.Options = append(fb.Options, opt)
	}
	return fb
}

// IsCorrect reports whether the recorded answer for q matches its key.
// An answer to a question whose key names an absent choice is never correct.
func IsCorrect(q models.Question, ledger *Ledger) bool {
	selected, ok := ledger.Answer(q.ID)
	if !ok || selected != q.CorrectAnswer {
		return false
	}
	_, present := q.Choice(q.CorrectAnswer)
	return present
}
