// Package importer turns question-bank files into models.QuestionBank values
// for the offline store.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"english-hub-backend/internal/models"
)

var ErrNoGroups = errors.New("bank has no question groups")

// Document is the on-disk JSON/YAML bank format.
type Document struct {
	Title  string                 `json:"title" yaml:"title"`
	Groups []models.QuestionGroup `json:"groups" yaml:"groups"`
}

func ParseJSON(r io.Reader) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json bank: %w", err)
	}
	return &doc, nil
}

func ParseYAML(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode yaml bank: %w", err)
	}
	return &doc, nil
}

// LoadFile picks a parser from the file extension.
func LoadFile(path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".pdf" {
		return ParsePDF(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext {
	case ".json":
		return ParseJSON(f)
	case ".yaml", ".yml":
		return ParseYAML(f)
	default:
		return nil, fmt.Errorf("unsupported bank format %q", ext)
	}
}

// Normalize fills missing ids, orders and upper-cases choice letters, drops
// blank choices and rejects duplicates. An unrecognised correct answer is
// kept as written; it simply never matches a choice.
func Normalize(doc *Document) error {
	if len(doc.Groups) == 0 {
		return ErrNoGroups
	}

	groupIDs := make(map[string]bool)
	questionIDs := make(map[string]bool)
	qn := 0
	for gi := range doc.Groups {
		g := &doc.Groups[gi]
		if strings.TrimSpace(g.ID) == "" {
			g.ID = "g" + strconv.Itoa(gi+1)
		}
		if groupIDs[g.ID] {
			return fmt.Errorf("duplicate group id %q", g.ID)
		}
		groupIDs[g.ID] = true

		for qi := range g.Questions {
			qn++
			q := &g.Questions[qi]
			if strings.TrimSpace(q.ID) == "" {
				q.ID = "q" + strconv.Itoa(qn)
			}
			if questionIDs[q.ID] {
				return fmt.Errorf("duplicate question id %q", q.ID)
			}
			questionIDs[q.ID] = true

			if err := normalizeChoices(q); err != nil {
				return fmt.Errorf("question %s: %w", q.ID, err)
			}
			if l, ok := models.ParseLetter(string(q.CorrectAnswer)); ok {
				q.CorrectAnswer = l
			}
		}
	}
	return nil
}

func normalizeChoices(q *models.Question) error {
	seen := make(map[models.Letter]bool)
	out := q.Choices[:0]
	for _, c := range q.Choices {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		l, ok := models.ParseLetter(string(c.Letter))
		if !ok {
			return fmt.Errorf("invalid choice letter %q", c.Letter)
		}
		if seen[l] {
			return fmt.Errorf("duplicate choice %s", l)
		}
		seen[l] = true
		out = append(out, models.Choice{Letter: l, Text: strings.TrimSpace(c.Text)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Letter < out[j].Letter })
	q.Choices = out
	return nil
}

type BankWriter interface {
	Put(ctx context.Context, b *models.QuestionBank) error
}

// Import normalizes doc and stores it under id. An empty title falls back
// to the document's own.
func Import(ctx context.Context, w BankWriter, doc *Document, id string, kind models.SessionKind, title string) (*models.QuestionBank, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("bank id is required")
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid kind %q", kind)
	}
	if err := Normalize(doc); err != nil {
		return nil, err
	}
	if title == "" {
		title = doc.Title
	}
	if title == "" {
		title = id
	}

	bank := &models.QuestionBank{ID: id, Kind: kind, Title: title, Groups: doc.Groups}
	if err := w.Put(ctx, bank); err != nil {
		return nil, err
	}
	return bank, nil
}
