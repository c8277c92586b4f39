package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/formation-admin-api/internal/dto"
	"github.com/noah-isme/formation-admin-api/internal/models"
	appErrors "github.com/noah-isme/formation-admin-api/pkg/errors"
)

type sessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	List(ctx context.Context) ([]models.Session, error)
	ListByTrainer(ctx context.Context, trainerID string) ([]models.Session, error)
	Update(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id string) ([]string, error)
}

type sessionCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	TrainerGuard(ctx context.Context, trainerID string) (CacheGuard, error)
	SetTrainerSessions(ctx context.Context, trainerID string, guard CacheGuard, sessions interface{}, ttl time.Duration) (bool, error)
	InvalidateTrainers(ctx context.Context, trainerIDs ...string) error
}

// SessionService manages the session lifecycle and the trainer-side session lookup.
type SessionService struct {
	repo      sessionStore
	cache     sessionCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionService constructs the service. cache may be nil.
func NewSessionService(repo sessionStore, cache sessionCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// Create persists a new session with an empty trainer set.
func (s *SessionService) Create(ctx context.Context, req dto.SessionRequest) (*models.Session, error) {
	session, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.Storage(err, "failed to create session")
	}
	s.logger.Info("session created", zap.String("session_id", session.ID))
	return session, nil
}

// Get returns a session with its trainers.
func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Storage(err, "failed to load session")
	}
	return session, nil
}

// List returns every session with its trainers.
func (s *SessionService) List(ctx context.Context) ([]models.Session, error) {
	sessions, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list sessions")
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return sessions, nil
}

// Update overwrites the scalar fields of a session and returns it with its trainers.
func (s *SessionService) Update(ctx context.Context, id string, req dto.SessionRequest) (*models.Session, error) {
	session, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	session.ID = id
	if err := s.repo.Update(ctx, session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Storage(err, "failed to update session")
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, updated)
	s.logger.Info("session updated", zap.String("session_id", id))
	return updated, nil
}

// Delete removes the session and its relationship rows. Trainer records are kept.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Storage(err, "failed to delete session")
	}
	if s.cache != nil && len(removed) > 0 {
		if err := s.cache.InvalidateTrainers(ctx, removed...); err != nil {
			s.logger.Warn("failed to invalidate trainer sessions cache", zap.String("session_id", id), zap.Error(err))
		}
	}
	s.logger.Info("session deleted", zap.String("session_id", id), zap.Int("trainers", len(removed)))
	return nil
}

// SessionsForTrainer returns the sessions the trainer teaches. Unknown trainers yield an empty slice.
func (s *SessionService) SessionsForTrainer(ctx context.Context, trainerID string) ([]models.Session, error) {
	var guard CacheGuard
	if s.cache != nil {
		var cached []models.Session
		hit, err := s.cache.Get(ctx, TrainerSessionsKey(trainerID), &cached)
		if err != nil {
			s.logger.Warn("trainer sessions cache lookup failed", zap.String("trainer_id", trainerID), zap.Error(err))
		}
		if hit {
			if cached == nil {
				cached = []models.Session{}
			}
			return cached, nil
		}
		if guard, err = s.cache.TrainerGuard(ctx, trainerID); err != nil {
			s.logger.Warn("trainer sessions cache guard unavailable", zap.String("trainer_id", trainerID), zap.Error(err))
		}
	}

	sessions, err := s.repo.ListByTrainer(ctx, trainerID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list trainer sessions")
	}
	if sessions == nil {
		sessions = []models.Session{}
	}

	if s.cache != nil && guard != nil {
		if _, err := s.cache.SetTrainerSessions(ctx, trainerID, guard, sessions, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache trainer sessions", zap.String("trainer_id", trainerID), zap.Error(err))
		}
	}
	return sessions, nil
}

func (s *SessionService) fromRequest(req dto.SessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "dates must use YYYY-MM-DD")
	}
	start, err := models.ParseDate(req.StartDate)
	if err != nil {
		return nil, appErrors.Invalid(err, "invalid start_date")
	}
	end, err := models.ParseDate(req.EndDate)
	if err != nil {
		return nil, appErrors.Invalid(err, "invalid end_date")
	}
	return &models.Session{
		ClassGroup: req.ClassGroup,
		Specialty:  req.Specialty,
		Cohort:     req.Cohort,
		Level:      req.Level,
		Term:       req.Term,
		StartDate:  start,
		EndDate:    end,
	}, nil
}

func (s *SessionService) invalidate(ctx context.Context, session *models.Session) {
	if s.cache == nil || len(session.Trainers) == 0 {
		return
	}
	if err := s.cache.InvalidateTrainers(ctx, trainerIDs(session)...); err != nil {
		s.logger.Warn("failed to invalidate trainer sessions cache", zap.String("session_id", session.ID), zap.Error(err))
	}
}
