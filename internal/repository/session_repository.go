package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/formation-admin-api/internal/models"
)

const sessionColumns = `s.id, s.class_group, s.specialty, s.cohort, s.level, s.term, s.start_date, s.end_date, s.created_at, s.updated_at`

// SessionRepository persists session records and reads them back with their trainer sets.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a session. Trainers are never written here.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	session.Trainers = []models.Trainer{}

	const query = `INSERT INTO sessions (id, class_group, specialty, cohort, level, term, start_date, end_date, created_at, updated_at)
		VALUES (:id, :class_group, :specialty, :cohort, :level, :term, :start_date, :end_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindByID returns the session with its trainers or sql.ErrNoRows.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions s WHERE s.id = $1 LIMIT 1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session by id: %w", err)
	}
	sessions := []models.Session{session}
	if err := attachTrainers(ctx, r.db, sessions); err != nil {
		return nil, err
	}
	return &sessions[0], nil
}

// Exists reports whether a session with id is stored.
func (r *SessionRepository) Exists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("check session exists: %w", err)
	}
	return exists, nil
}

// List returns every session with its trainers.
func (r *SessionRepository) List(ctx context.Context) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions s ORDER BY s.start_date DESC NULLS LAST, s.class_group ASC`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if err := attachTrainers(ctx, r.db, sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListByTrainer traverses session_trainers from the trainer side. Unknown trainers yield an empty slice.
func (r *SessionRepository) ListByTrainer(ctx context.Context, trainerID string) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + `
FROM sessions s
JOIN session_trainers st ON st.session_id = s.id
WHERE st.trainer_id = $1
ORDER BY s.start_date DESC NULLS LAST, s.class_group ASC`
	sessions := []models.Session{}
	if err := r.db.SelectContext(ctx, &sessions, query, trainerID); err != nil {
		return nil, fmt.Errorf("list sessions by trainer: %w", err)
	}
	if err := attachTrainers(ctx, r.db, sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Update overwrites the scalar fields of a session. The trainer set is left untouched.
func (r *SessionRepository) Update(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sessions SET class_group = :class_group, specialty = :specialty, cohort = :cohort, level = :level,
		term = :term, start_date = :start_date, end_date = :end_date, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, session)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated session rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the session and every relationship row referencing it in one transaction.
// It returns the ids of the trainers that were assigned at deletion time.
// Trainer user records are never touched.
func (r *SessionRepository) Delete(ctx context.Context, id string) (trainerIDs []string, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete session transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = lockSession(ctx, tx, id); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			err = sql.ErrNoRows
		}
		return nil, err
	}
	trainerIDs = []string{}
	if err = tx.SelectContext(ctx, &trainerIDs, `DELETE FROM session_trainers WHERE session_id = $1 RETURNING trainer_id`, id); err != nil {
		return nil, fmt.Errorf("delete session trainers: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check deleted session rows: %w", err)
	}
	if affected == 0 {
		return nil, sql.ErrNoRows
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete session: %w", err)
	}
	return trainerIDs, nil
}

type sessionTrainerRow struct {
	SessionID string `db:"session_id"`
	models.Trainer
}

// attachTrainers fills the Trainers field of every session with a single query.
func attachTrainers(ctx context.Context, q sqlx.QueryerContext, sessions []models.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	ids := make([]string, len(sessions))
	index := make(map[string]int, len(sessions))
	for i := range sessions {
		ids[i] = sessions[i].ID
		index[sessions[i].ID] = i
		sessions[i].Trainers = []models.Trainer{}
	}

	const query = `SELECT st.session_id, u.id, u.first_name, u.last_name, u.email
FROM session_trainers st
JOIN users u ON u.id = st.trainer_id
WHERE st.session_id = ANY($1)
ORDER BY u.last_name ASC, u.first_name ASC`
	var rows []sessionTrainerRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load session trainers: %w", err)
	}
	for _, row := range rows {
		if i, ok := index[row.SessionID]; ok {
			sessions[i].Trainers = append(sessions[i].Trainers, row.Trainer)
		}
	}
	return nil
}
