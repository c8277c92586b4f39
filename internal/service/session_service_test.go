package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/formation-admin-api/internal/dto"
	appErrors "github.com/noah-isme/formation-admin-api/pkg/errors"
)

func TestSessionServiceCreateAndGet(t *testing.T) {
	store := newMemoryStore()
	svc := NewSessionService(store, nil, 0, nil, zap.NewNop())

	created, err := svc.Create(context.Background(), dto.SessionRequest{
		ClassGroup: "DEV-A",
		Specialty:  "Web",
		Cohort:     "2024",
		Level:      "L1",
		Term:       "S1",
		StartDate:  "2024-09-02",
		EndDate:    "2024-06-30",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Empty(t, created.Trainers)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-09-02", got.StartDate.String())
	// end before start is accepted
	assert.Equal(t, "2024-06-30", got.EndDate.String())
}

func TestSessionServiceRejectsMalformedDates(t *testing.T) {
	svc := NewSessionService(newMemoryStore(), nil, 0, nil, nil)

	_, err := svc.Create(context.Background(), dto.SessionRequest{StartDate: "02/09/2024"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	created, err := svc.Create(context.Background(), dto.SessionRequest{})
	require.NoError(t, err)
	assert.True(t, created.StartDate.IsZero())
}

func TestSessionServiceUpdateKeepsTrainers(t *testing.T) {
	store := newMemoryStore()
	store.addUser("t-1", "Amel", "Ben Salah")
	svc := NewSessionService(store, nil, 0, nil, nil)
	assignments := NewAssignmentService(store, store, nil, nil, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, dto.SessionRequest{ClassGroup: "DEV-A"})
	require.NoError(t, err)
	_, err = assignments.Assign(ctx, created.ID, "t-1")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, dto.SessionRequest{ClassGroup: "DEV-B", Term: "S2"})
	require.NoError(t, err)
	assert.Equal(t, "DEV-B", updated.ClassGroup)
	assert.True(t, updated.HasTrainer("t-1"))
}

func TestSessionServiceNotFound(t *testing.T) {
	svc := NewSessionService(newMemoryStore(), nil, 0, nil, nil)
	ctx := context.Background()

	_, err := svc.Get(ctx, "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Update(ctx, "missing", dto.SessionRequest{})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	err = svc.Delete(ctx, "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceListStorageFailure(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("timeout")
	svc := NewSessionService(store, nil, 0, nil, nil)

	sessions, err := svc.List(context.Background())
	require.Error(t, err)
	assert.Nil(t, sessions)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestSessionsForTrainerUnknownIsEmpty(t *testing.T) {
	svc := NewSessionService(newMemoryStore(), nil, 0, nil, nil)

	sessions, err := svc.SessionsForTrainer(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
}

func TestSessionsForTrainerServedFromCache(t *testing.T) {
	store := newMemoryStore()
	store.addUser("t-1", "Amel", "Ben Salah")
	cache := newMemoryCache()
	cacheSvc := NewCacheService(cache, NewMetricsService(), time.Minute, nil, true)
	svc := NewSessionService(store, cacheSvc, time.Minute, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, dto.SessionRequest{ClassGroup: "DEV-A", StartDate: "2024-09-02"})
	require.NoError(t, err)
	_, _, err = store.Assign(ctx, created.ID, "t-1")
	require.NoError(t, err)

	first, err := svc.SessionsForTrainer(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Contains(t, cache.entries, TrainerSessionsKey("t-1"))

	// storage is down but the cached entry still answers
	store.err = errors.New("down")
	second, err := svc.SessionsForTrainer(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, created.ID, second[0].ID)
	assert.Equal(t, "2024-09-02", second[0].StartDate.String())
	assert.True(t, second[0].HasTrainer("t-1"))
}

func TestSessionsForTrainerCacheErrorFallsBackToStore(t *testing.T) {
	store := newMemoryStore()
	cache := newMemoryCache()
	cache.getErr = errors.New("redis unavailable")
	cacheSvc := NewCacheService(cache, nil, time.Minute, nil, true)
	svc := NewSessionService(store, cacheSvc, time.Minute, nil, nil)

	sessions, err := svc.SessionsForTrainer(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestSessionsForTrainerLogsCacheWriteFailure(t *testing.T) {
	store := newMemoryStore()
	store.addUser("t-1", "Amel", "Ben Salah")
	cache := newMemoryCache()
	cache.setErr = errors.New("redis read only")
	core, logs := observer.New(zapcore.WarnLevel)
	cacheSvc := NewCacheService(cache, nil, time.Minute, nil, true)
	svc := NewSessionService(store, cacheSvc, time.Minute, nil, zap.New(core))
	ctx := context.Background()

	created, err := svc.Create(ctx, dto.SessionRequest{ClassGroup: "DEV-A"})
	require.NoError(t, err)
	_, _, err = store.Assign(ctx, created.ID, "t-1")
	require.NoError(t, err)

	sessions, err := svc.SessionsForTrainer(ctx, "t-1")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	entries := logs.FilterMessage("failed to cache trainer sessions").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "t-1", entries[0].ContextMap()["trainer_id"])
}
