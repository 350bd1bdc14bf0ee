package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"english-hub-backend/internal/models"
)

var ErrBankNotFound = errors.New("question bank not found")

// BankRepo stores imported question banks in SQLite for offline use.
type BankRepo struct {
	db *sql.DB
}

func NewBankRepo(db *sql.DB) *BankRepo {
	return &BankRepo{db: db}
}

// Put inserts or replaces a bank.
func (r *BankRepo) Put(ctx context.Context, b *models.QuestionBank) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	groups, err := json.Marshal(b.Groups)
	if err != nil {
		return fmt.Errorf("encode groups: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO question_banks (id, kind, title, groups_json, group_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			title = excluded.title,
			groups_json = excluded.groups_json,
			group_count = excluded.group_count
	`, b.ID, string(b.Kind), b.Title, string(groups), len(b.Groups), b.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("put bank %s: %w", b.ID, err)
	}
	return nil
}

func (r *BankRepo) Get(ctx context.Context, id string) (*models.QuestionBank, error) {
	var (
		b       models.QuestionBank
		kind    string
		groups  string
		created int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, kind, title, groups_json, created_at
		FROM question_banks WHERE id = ?
	`, id).Scan(&b.ID, &kind, &b.Title, &groups, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBankNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bank %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(groups), &b.Groups); err != nil {
		return nil, fmt.Errorf("decode bank %s: %w", id, err)
	}
	b.Kind = models.SessionKind(kind)
	b.CreatedAt = time.Unix(created, 0).UTC()
	return &b, nil
}

// BankSummary is a listing row; groups are not loaded.
type BankSummary struct {
	ID         string             `json:"id"`
	Kind       models.SessionKind `json:"kind"`
	Title      string             `json:"title"`
	GroupCount int                `json:"group_count"`
	CreatedAt  time.Time          `json:"created_at"`
}

// List returns banks newest first, optionally filtered by kind.
func (r *BankRepo) List(ctx context.Context, kind models.SessionKind) ([]BankSummary, error) {
	query := `SELECT id, kind, title, group_count, created_at FROM question_banks`
	var args []interface{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}
	defer rows.Close()

	out := []BankSummary{}
	for rows.Next() {
		var (
			s       BankSummary
			k       string
			created int64
		)
		if err := rows.Scan(&s.ID, &k, &s.Title, &s.GroupCount, &created); err != nil {
			return nil, err
		}
		s.Kind = models.SessionKind(k)
		s.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// QuestionGroups serves a stored bank as a question source. A bank of
// another kind is treated as missing.
func (r *BankRepo) QuestionGroups(ctx context.Context, kind models.SessionKind, sourceID string) ([]models.QuestionGroup, error) {
	b, err := r.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if b.Kind != kind {
		return nil, ErrBankNotFound
	}
	return b.Groups, nil
}
