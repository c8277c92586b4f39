package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/formation-admin-api/internal/models"
)

// SessionTrainerRepository mutates and queries the session_trainers join table.
// Every mutation locks the owning session row so concurrent calls on the same
// session are serialized.
type SessionTrainerRepository struct {
	db *sqlx.DB
}

// NewSessionTrainerRepository constructs the repository.
func NewSessionTrainerRepository(db *sqlx.DB) *SessionTrainerRepository {
	return &SessionTrainerRepository{db: db}
}

// Assign adds trainerID to the session. added is false when the pair already existed.
func (r *SessionTrainerRepository) Assign(ctx context.Context, sessionID, trainerID string) (session *models.Session, added bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin assign transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	session, err = lockSession(ctx, tx, sessionID)
	if err != nil {
		return nil, false, err
	}
	if err = ensureUser(ctx, tx, trainerID); err != nil {
		return nil, false, err
	}

	const insertQuery = `INSERT INTO session_trainers (session_id, trainer_id, assigned_at) VALUES ($1, $2, $3)
ON CONFLICT (session_id, trainer_id) DO NOTHING`
	result, err := tx.ExecContext(ctx, insertQuery, sessionID, trainerID, time.Now().UTC())
	if err != nil {
		return nil, false, fmt.Errorf("insert session trainer: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("check inserted session trainer rows: %w", err)
	}

	if err = reloadTrainers(ctx, tx, session); err != nil {
		return nil, false, err
	}
	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit assign: %w", err)
	}
	return session, affected > 0, nil
}

// Remove deletes the (session, trainer) pair. It returns ErrTrainerNotAssigned when the
// pair does not exist.
func (r *SessionTrainerRepository) Remove(ctx context.Context, sessionID, trainerID string) (session *models.Session, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin remove transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	session, err = lockSession(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if err = ensureUser(ctx, tx, trainerID); err != nil {
		return nil, err
	}

	const deleteQuery = `DELETE FROM session_trainers WHERE session_id = $1 AND trainer_id = $2`
	result, err := tx.ExecContext(ctx, deleteQuery, sessionID, trainerID)
	if err != nil {
		return nil, fmt.Errorf("delete session trainer: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check deleted session trainer rows: %w", err)
	}
	if affected == 0 {
		return nil, ErrTrainerNotAssigned
	}

	if err = reloadTrainers(ctx, tx, session); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit remove: %w", err)
	}
	return session, nil
}

// Clear empties the trainer set of a session and returns the ids that were removed.
func (r *SessionTrainerRepository) Clear(ctx context.Context, sessionID string) (session *models.Session, removed []string, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin clear transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	session, err = lockSession(ctx, tx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	removed = []string{}
	const query = `DELETE FROM session_trainers WHERE session_id = $1 RETURNING trainer_id`
	if err = tx.SelectContext(ctx, &removed, query, sessionID); err != nil {
		return nil, nil, fmt.Errorf("clear session trainers: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit clear: %w", err)
	}
	session.Trainers = []models.Trainer{}
	return session, removed, nil
}

// IsMember reports whether the pair exists. It does not check that either id resolves.
func (r *SessionTrainerRepository) IsMember(ctx context.Context, sessionID, trainerID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM session_trainers WHERE session_id = $1 AND trainer_id = $2)`
	var member bool
	if err := r.db.GetContext(ctx, &member, query, sessionID, trainerID); err != nil {
		return false, fmt.Errorf("check session trainer: %w", err)
	}
	return member, nil
}

func lockSession(ctx context.Context, tx *sqlx.Tx, sessionID string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions s WHERE s.id = $1 FOR UPDATE`
	var session models.Session
	if err := tx.GetContext(ctx, &session, query, sessionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("lock session: %w", err)
	}
	return &session, nil
}

func ensureUser(ctx context.Context, tx *sqlx.Tx, userID string) error {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`
	var exists bool
	if err := tx.GetContext(ctx, &exists, query, userID); err != nil {
		return fmt.Errorf("check user exists: %w", err)
	}
	if !exists {
		return ErrUserNotFound
	}
	return nil
}

func reloadTrainers(ctx context.Context, tx *sqlx.Tx, session *models.Session) error {
	sessions := []models.Session{*session}
	if err := attachTrainers(ctx, tx, sessions); err != nil {
		return err
	}
	*session = sessions[0]
	return nil
}
