package importer

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"english-hub-backend/internal/models"
)

var (
	questionLine = regexp.MustCompile(`^(\d+)[.)]\s*(.*)$`)
	choiceLine   = regexp.MustCompile(`^(X\s+)?([A-Da-d])\)\s*(.*)$`)
	markerLine   = regexp.MustCompile(`^X$`)
)

// ParsePDF extracts the text of every page and parses it with ParseText.
func ParsePDF(path string) (*Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	doc, err := ParseText(b.String())
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(doc.Groups) == 0 {
		return nil, fmt.Errorf("no questions found in %s", path)
	}
	return doc, nil
}

// ParseText reads the exam-sheet layout:
//
//	12. Question text
//	A) first choice
//	X B) the correct choice
//
// A lone "X" line marks the following choice as correct. Lines that are
// not a question or a choice continue the previous one. Each question
// becomes its own group; text before the first question is taken as the
// title.
func ParseText(text string) (*Document, error) {
	doc := &Document{}
	var (
		cur        *models.Question
		lastChoice *models.Choice
		markNext   bool
		titleLines []string
	)

	flush := func() {
		if cur == nil {
			return
		}
		doc.Groups = append(doc.Groups, models.QuestionGroup{
			ID:        "g" + strconv.Itoa(len(doc.Groups)+1),
			Questions: []models.Question{*cur},
		})
		cur, lastChoice = nil, nil
	}

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), len(text)+1)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if m := questionLine.FindStringSubmatch(line); m != nil {
			flush()
			cur = &models.Question{ID: "q" + m[1], Title: m[2]}
			markNext = false
			continue
		}
		if cur == nil {
			titleLines = append(titleLines, line)
			continue
		}
		if markerLine.MatchString(line) {
			markNext = true
			continue
		}
		if m := choiceLine.FindStringSubmatch(line); m != nil {
			letter, _ := models.ParseLetter(m[2])
			cur.Choices = append(cur.Choices, models.Choice{Letter: letter, Text: m[3]})
			lastChoice = &cur.Choices[len(cur.Choices)-1]
			if m[1] != "" || markNext {
				cur.CorrectAnswer = letter
			}
			markNext = false
			continue
		}

		if lastChoice != nil {
			lastChoice.Text = strings.TrimSpace(lastChoice.Text + " " + line)
		} else {
			cur.Title = strings.TrimSpace(cur.Title + " " + line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	flush()

	doc.Title = strings.Join(titleLines, " ")
	return doc, nil
}
