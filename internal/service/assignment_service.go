package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/formation-admin-api/internal/dto"
	"github.com/noah-isme/formation-admin-api/internal/models"
	"github.com/noah-isme/formation-admin-api/internal/repository"
	appErrors "github.com/noah-isme/formation-admin-api/pkg/errors"
)

type assignmentStore interface {
	Assign(ctx context.Context, sessionID, trainerID string) (*models.Session, bool, error)
	Remove(ctx context.Context, sessionID, trainerID string) (*models.Session, error)
	Clear(ctx context.Context, sessionID string) (*models.Session, []string, error)
	IsMember(ctx context.Context, sessionID, trainerID string) (bool, error)
}

type sessionExistenceChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type trainerCacheInvalidator interface {
	InvalidateTrainers(ctx context.Context, trainerIDs ...string) error
}

type assignmentRecorder interface {
	RecordAssignment(operation, outcome string)
}

// AssignmentService mutates the session trainer relationship.
type AssignmentService struct {
	store     assignmentStore
	sessions  sessionExistenceChecker
	cache     trainerCacheInvalidator
	metrics   assignmentRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService wires the assignment engine. cache and metrics may be nil.
func NewAssignmentService(store assignmentStore, sessions sessionExistenceChecker, cache trainerCacheInvalidator, metrics assignmentRecorder, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		store:     store,
		sessions:  sessions,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Assign adds the trainer to the session. Assigning a current member succeeds without change.
func (s *AssignmentService) Assign(ctx context.Context, sessionID, trainerID string) (*models.Session, error) {
	if err := s.validate(sessionID, trainerID); err != nil {
		s.record(OpAssign, OutcomeInvalid)
		return nil, err
	}

	session, added, err := s.store.Assign(ctx, sessionID, trainerID)
	if err != nil {
		return nil, s.fail(OpAssign, err, "failed to assign trainer")
	}

	outcome := OutcomeUnchanged
	if added {
		outcome = OutcomeAdded
		s.invalidate(ctx, trainerIDs(session)...)
	}
	s.record(OpAssign, outcome)
	s.logger.Info("trainer assigned",
		zap.String("session_id", sessionID),
		zap.String("trainer_id", trainerID),
		zap.Bool("added", added),
	)
	return session, nil
}

// Remove takes the trainer out of the session. Removing a non-member fails with a precondition error.
func (s *AssignmentService) Remove(ctx context.Context, sessionID, trainerID string) (*models.Session, error) {
	if err := s.validate(sessionID, trainerID); err != nil {
		s.record(OpRemove, OutcomeInvalid)
		return nil, err
	}

	session, err := s.store.Remove(ctx, sessionID, trainerID)
	if err != nil {
		return nil, s.fail(OpRemove, err, "failed to remove trainer")
	}

	s.invalidate(ctx, append(trainerIDs(session), trainerID)...)
	s.record(OpRemove, OutcomeRemoved)
	s.logger.Info("trainer removed", zap.String("session_id", sessionID), zap.String("trainer_id", trainerID))
	return session, nil
}

// ClearTrainers empties the trainer set of the session.
func (s *AssignmentService) ClearTrainers(ctx context.Context, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		s.record(OpClear, OutcomeInvalid)
		return nil, appErrors.Clone(appErrors.ErrValidation, "session id is required")
	}

	session, removed, err := s.store.Clear(ctx, sessionID)
	if err != nil {
		return nil, s.fail(OpClear, err, "failed to clear trainers")
	}

	s.invalidate(ctx, removed...)
	s.record(OpClear, OutcomeRemoved)
	s.logger.Info("session trainers cleared", zap.String("session_id", sessionID), zap.Int("removed", len(removed)))
	return session, nil
}

// IsAssigned reports membership. Only an unknown session is an error; an unknown trainer is simply not assigned.
func (s *AssignmentService) IsAssigned(ctx context.Context, sessionID, trainerID string) (bool, error) {
	if sessionID == "" {
		return false, appErrors.Clone(appErrors.ErrValidation, "session id is required")
	}

	exists, err := s.sessions.Exists(ctx, sessionID)
	if err != nil {
		return false, appErrors.Storage(err, "failed to load session")
	}
	if !exists {
		return false, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	if trainerID == "" {
		return false, nil
	}

	member, err := s.store.IsMember(ctx, sessionID, trainerID)
	if err != nil {
		return false, appErrors.Storage(err, "failed to check assignment")
	}
	return member, nil
}

func (s *AssignmentService) validate(sessionID, trainerID string) error {
	if err := s.validator.Struct(dto.AssignmentInput{SessionID: sessionID, TrainerID: trainerID}); err != nil {
		return appErrors.Invalid(err, "session id and trainer id are required")
	}
	return nil
}

// fail maps repository errors to typed errors and counts the outcome.
func (s *AssignmentService) fail(op string, err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		s.record(op, OutcomeNotFound)
		return appErrors.Clone(appErrors.ErrNotFound, "session not found")
	case errors.Is(err, repository.ErrUserNotFound):
		s.record(op, OutcomeNotFound)
		return appErrors.Clone(appErrors.ErrNotFound, "trainer not found")
	case errors.Is(err, repository.ErrTrainerNotAssigned):
		s.record(op, OutcomeNotAssigned)
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "trainer not assigned to this session")
	}
	s.record(op, OutcomeError)
	s.logger.Error(message, zap.String("operation", op), zap.Error(err))
	return appErrors.Storage(err, message)
}

func (s *AssignmentService) invalidate(ctx context.Context, ids ...string) {
	if s.cache == nil || len(ids) == 0 {
		return
	}
	if err := s.cache.InvalidateTrainers(ctx, ids...); err != nil {
		s.logger.Warn("failed to invalidate trainer sessions cache", zap.Strings("trainer_ids", ids), zap.Error(err))
	}
}

// trainerIDs lists the members of session. Their cached session lists embed its trainer set.
func trainerIDs(session *models.Session) []string {
	ids := make([]string, 0, len(session.Trainers))
	for _, t := range session.Trainers {
		ids = append(ids, t.ID)
	}
	return ids
}

func (s *AssignmentService) record(op, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordAssignment(op, outcome)
}
