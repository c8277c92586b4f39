package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/formation-admin-api/internal/dto"
	"github.com/noah-isme/formation-admin-api/internal/models"
	"github.com/noah-isme/formation-admin-api/internal/service"
	appErrors "github.com/noah-isme/formation-admin-api/pkg/errors"
	"github.com/noah-isme/formation-admin-api/pkg/response"
)

type userService interface {
	AllUsers(ctx context.Context) ([]models.User, error)
	AllTrainers(ctx context.Context) ([]models.User, error)
	AllCoordinators(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, req service.CreateUserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// AdminHandler exposes user administration endpoints.
type AdminHandler struct {
	users userService
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(users userService) *AdminHandler {
	return &AdminHandler{users: users}
}

// Users godoc
// @Summary List users
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope{data=[]dto.UserItem}
// @Failure 403 {object} response.Envelope
// @Router /admin/users [get]
func (h *AdminHandler) Users(c *gin.Context) {
	h.list(c, h.users.AllUsers)
}

// Trainers godoc
// @Summary List trainers
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope{data=[]dto.UserItem}
// @Router /admin/trainers [get]
func (h *AdminHandler) Trainers(c *gin.Context) {
	h.list(c, h.users.AllTrainers)
}

// Coordinators godoc
// @Summary List coordinators
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope{data=[]dto.UserItem}
// @Router /admin/coordinators [get]
func (h *AdminHandler) Coordinators(c *gin.Context) {
	h.list(c, h.users.AllCoordinators)
}

func (h *AdminHandler) list(c *gin.Context, fetch func(context.Context) ([]models.User, error)) {
	users, err := fetch(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	items := dto.NewUserItems(users)
	response.List(c, items, len(items))
}

// CreateUser godoc
// @Summary Create user
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body service.CreateUserRequest true "User payload"
// @Success 201 {object} response.Envelope{data=dto.UserItem}
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/users [post]
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid user payload"))
		return
	}
	user, err := h.users.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewUserItems([]models.User{*user})[0])
}

// DeleteUser godoc
// @Summary Delete user
// @Description Delete a user. The user leaves every session trainer set.
// @Tags Admin
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.users.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
