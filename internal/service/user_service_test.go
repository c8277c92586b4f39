package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/formation-admin-api/internal/models"
	appErrors "github.com/noah-isme/formation-admin-api/pkg/errors"
)

type userRepoStub struct {
	users     []models.User
	err       error
	createErr error
	deleted   []string
}

func (s *userRepoStub) List(ctx context.Context) ([]models.User, error) {
	return s.users, s.err
}

func (s *userRepoStub) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := []models.User{}
	for _, u := range s.users {
		if u.Roles.Has(role) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	user.ID = "new-id"
	s.users = append(s.users, *user)
	return nil
}

func (s *userRepoStub) Delete(ctx context.Context, id string) error {
	for i, u := range s.users {
		if u.ID == id {
			s.users = append(s.users[:i], s.users[i+1:]...)
			s.deleted = append(s.deleted, id)
			return nil
		}
	}
	return sql.ErrNoRows
}

func TestDualRoleUserAppearsInBothLists(t *testing.T) {
	repo := &userRepoStub{users: []models.User{
		{ID: "u-1", Roles: models.RoleList{models.RoleTrainer, models.RoleCoordinator}},
		{ID: "u-2", Roles: models.RoleList{models.RoleTrainer}},
		{ID: "u-3", Roles: models.RoleList{models.RoleCoordinator}},
		{ID: "u-4"},
	}}
	svc := NewUserService(repo, nil, nil, zap.NewNop())

	trainers, err := svc.AllTrainers(context.Background())
	require.NoError(t, err)
	coordinators, err := svc.AllCoordinators(context.Background())
	require.NoError(t, err)
	all, err := svc.AllUsers(context.Background())
	require.NoError(t, err)

	ids := func(users []models.User) []string {
		out := []string{}
		for _, u := range users {
			out = append(out, u.ID)
		}
		return out
	}
	assert.ElementsMatch(t, []string{"u-1", "u-2"}, ids(trainers))
	assert.ElementsMatch(t, []string{"u-1", "u-3"}, ids(coordinators))
	assert.Len(t, all, 4)
}

func TestUserServiceStorageFailure(t *testing.T) {
	svc := NewUserService(&userRepoStub{err: errors.New("db down")}, nil, nil, nil)

	_, err := svc.AllTrainers(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestDeleteUser(t *testing.T) {
	repo := &userRepoStub{users: []models.User{{ID: "u-1"}}}
	cache := newMemoryCache()
	svc := NewUserService(repo, NewCacheService(cache, nil, 0, nil, true), nil, nil)

	require.NoError(t, svc.DeleteUser(context.Background(), "u-1"))
	assert.Equal(t, []string{"u-1"}, repo.deleted)
	assert.Contains(t, cache.deleted, trainerSessionsPattern)

	err := svc.DeleteUser(context.Background(), "u-1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCreateUser(t *testing.T) {
	repo := &userRepoStub{}
	svc := NewUserService(repo, nil, nil, nil)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:     " Trainer@Example.com ",
		FirstName: "Amel",
		LastName:  "Ben Salah",
		Password:  "secret1",
		Roles:     []models.Role{models.RoleTrainer, models.RoleTrainer, models.RoleCoordinator},
	})
	require.NoError(t, err)
	assert.Equal(t, "trainer@example.com", user.Email)
	assert.Equal(t, models.RoleList{models.RoleTrainer, models.RoleCoordinator}, user.Roles)
	assert.NotEqual(t, "secret1", user.PasswordHash)
}

func TestCreateUserValidation(t *testing.T) {
	svc := NewUserService(&userRepoStub{}, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:     "a@example.com",
		FirstName: "A",
		LastName:  "B",
		Password:  "secret1",
		Roles:     []models.Role{"ROLE_STUDENT"},
	})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc := NewUserService(&userRepoStub{createErr: &pq.Error{Code: "23505"}}, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:     "a@example.com",
		FirstName: "A",
		LastName:  "B",
		Password:  "secret1",
		Roles:     []models.Role{models.RoleAdmin},
	})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
