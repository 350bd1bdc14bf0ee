package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"english-hub-backend/internal/models"
)

var ErrStudySessionNotFound = errors.New("study session not found")

// maxSessionSeconds caps a single logged session at 12 hours.
const maxSessionSeconds = 43200

type StudySessionRepo struct {
	pool *pgxpool.Pool
}

func NewStudySessionRepo(pool *pgxpool.Pool) *StudySessionRepo {
	return &StudySessionRepo{pool: pool}
}

// Start opens a time-log entry. Any entry still open for the same
// user, activity and resource is closed first.
func (r *StudySessionRepo) Start(ctx context.Context, s *models.StudySession) error {
	if len(s.ClientMetaJSON) == 0 {
		s.ClientMetaJSON = json.RawMessage("{}")
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE study_sessions
		SET ended_at = NOW(),
			duration_seconds = GREATEST(0, LEAST($4, EXTRACT(EPOCH FROM (NOW() - started_at))::INT)),
			last_heartbeat_at = NOW()
		WHERE user_id = $1
		  AND activity_type = $2
		  AND resource_id = $3
		  AND ended_at IS NULL
	`, s.UserID, s.ActivityType, s.ResourceID, maxSessionSeconds)
	if err != nil {
		return fmt.Errorf("close open study sessions: %w", err)
	}

	return r.pool.QueryRow(ctx, `
		INSERT INTO study_sessions (user_id, activity_type, resource_id, client_meta_json)
		VALUES ($1, $2, $3, $4)
		RETURNING id, started_at, last_heartbeat_at, created_at
	`, s.UserID, s.ActivityType, s.ResourceID, s.ClientMetaJSON).Scan(
		&s.ID,
		&s.StartedAt,
		&s.LastHeartbeatAt,
		&s.CreatedAt,
	)
}

func (r *StudySessionRepo) Heartbeat(ctx context.Context, sessionID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE study_sessions
		SET last_heartbeat_at = NOW()
		WHERE id = $1
		  AND user_id = $2
		  AND ended_at IS NULL
	`, sessionID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStudySessionNotFound
	}
	return nil
}

// Stop closes an entry. Stopping an already closed entry keeps its duration.
func (r *StudySessionRepo) Stop(ctx context.Context, sessionID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE study_sessions
		SET ended_at = COALESCE(ended_at, NOW()),
			last_heartbeat_at = NOW(),
			duration_seconds = CASE
				WHEN ended_at IS NULL THEN GREATEST(0, LEAST($3, EXTRACT(EPOCH FROM (NOW() - started_at))::INT))
				ELSE duration_seconds
			END
		WHERE id = $1
		  AND user_id = $2
	`, sessionID, userID, maxSessionSeconds)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStudySessionNotFound
	}
	return nil
}
