package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/formation-admin-api/internal/dto"
	"github.com/noah-isme/formation-admin-api/internal/models"
	"github.com/noah-isme/formation-admin-api/internal/service"
	appErrors "github.com/noah-isme/formation-admin-api/pkg/errors"
	"github.com/noah-isme/formation-admin-api/pkg/response"
)

type sessionService interface {
	Create(ctx context.Context, req dto.SessionRequest) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	List(ctx context.Context) ([]models.Session, error)
	Update(ctx context.Context, id string, req dto.SessionRequest) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	SessionsForTrainer(ctx context.Context, trainerID string) ([]models.Session, error)
}

type assignmentService interface {
	Assign(ctx context.Context, sessionID, trainerID string) (*models.Session, error)
	Remove(ctx context.Context, sessionID, trainerID string) (*models.Session, error)
	ClearTrainers(ctx context.Context, sessionID string) (*models.Session, error)
	IsAssigned(ctx context.Context, sessionID, trainerID string) (bool, error)
}

type rosterExporter interface {
	SessionRoster(ctx context.Context, format service.ExportFormat) (*service.ExportFile, error)
}

// SessionHandler exposes session lifecycle and trainer assignment endpoints.
type SessionHandler struct {
	sessions    sessionService
	assignments assignmentService
	exporter    rosterExporter
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(sessions sessionService, assignments assignmentService, exporter rosterExporter) *SessionHandler {
	return &SessionHandler{sessions: sessions, assignments: assignments, exporter: exporter}
}

// List godoc
// @Summary List sessions
// @Description List every session with its trainers. Trainer callers get a trainer_assigned flag per session.
// @Tags Sessions
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope{data=[]dto.SessionResponse}
// @Failure 401 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.sessions.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	items := dto.NewSessionListResponse(sessions, viewerTrainerID(c))
	response.List(c, items, len(items))
}

// Get godoc
// @Summary Get session
// @Tags Sessions
// @Security BearerAuth
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope{data=dto.SessionResponse}
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSessionResponse(*session))
}

// Create godoc
// @Summary Create session
// @Description Create a session. The trainer set starts empty.
// @Tags Sessions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.SessionRequest true "Session payload"
// @Success 201 {object} response.Envelope{data=dto.SessionResponse}
// @Failure 400 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid session payload"))
		return
	}
	session, err := h.sessions.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewSessionResponse(*session))
}

// Update godoc
// @Summary Update session
// @Description Overwrite the session fields. Trainers are left untouched.
// @Tags Sessions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.SessionRequest true "Session payload"
// @Success 200 {object} response.Envelope{data=dto.SessionResponse}
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [put]
func (h *SessionHandler) Update(c *gin.Context) {
	var req dto.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid session payload"))
		return
	}
	session, err := h.sessions.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSessionResponse(*session))
}

// Delete godoc
// @Summary Delete session
// @Tags Sessions
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ForTrainer godoc
// @Summary Sessions taught by a trainer
// @Description Unknown trainers yield an empty list.
// @Tags Sessions
// @Security BearerAuth
// @Produce json
// @Param trainerId path string true "Trainer user ID"
// @Success 200 {object} response.Envelope{data=[]dto.SessionResponse}
// @Router /sessions/trainer/{trainerId} [get]
func (h *SessionHandler) ForTrainer(c *gin.Context) {
	trainerID := c.Param("trainerId")
	sessions, err := h.sessions.SessionsForTrainer(c.Request.Context(), trainerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	items := dto.NewSessionListResponse(sessions, "")
	response.List(c, items, len(items))
}

// Assign godoc
// @Summary Assign trainer
// @Description Add a trainer to the session. Assigning a current member is a no-op.
// @Tags Assignments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.AssignTrainerRequest true "Trainer"
// @Success 200 {object} response.Envelope{data=dto.SessionResponse}
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/trainers [post]
func (h *SessionHandler) Assign(c *gin.Context) {
	var req dto.AssignTrainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid assignment payload"))
		return
	}
	h.assign(c, req.TrainerID)
}

// AssignByPath godoc
// @Summary Assign trainer (path form)
// @Tags Assignments
// @Security BearerAuth
// @Produce json
// @Param id path string true "Session ID"
// @Param trainerId path string true "Trainer user ID"
// @Success 200 {object} response.Envelope{data=dto.SessionResponse}
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/trainers/{trainerId} [post]
func (h *SessionHandler) AssignByPath(c *gin.Context) {
	h.assign(c, c.Param("trainerId"))
}

func (h *SessionHandler) assign(c *gin.Context, trainerID string) {
	session, err := h.assignments.Assign(c.Request.Context(), c.Param("id"), trainerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSessionResponse(*session))
}

// Remove godoc
// @Summary Remove trainer
// @Description Fails with 412 when the trainer is not assigned to the session.
// @Tags Assignments
// @Security BearerAuth
// @Produce json
// @Param id path string true "Session ID"
// @Param trainerId path string true "Trainer user ID"
// @Success 200 {object} response.Envelope{data=dto.SessionResponse}
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /sessions/{id}/trainers/{trainerId} [delete]
func (h *SessionHandler) Remove(c *gin.Context) {
	session, err := h.assignments.Remove(c.Request.Context(), c.Param("id"), c.Param("trainerId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSessionResponse(*session))
}

// Clear godoc
// @Summary Clear trainers
// @Tags Assignments
// @Security BearerAuth
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope{data=dto.SessionResponse}
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/trainers [delete]
func (h *SessionHandler) Clear(c *gin.Context) {
	session, err := h.assignments.ClearTrainers(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSessionResponse(*session))
}

// IsAssigned godoc
// @Summary Check assignment
// @Tags Assignments
// @Security BearerAuth
// @Produce json
// @Param id path string true "Session ID"
// @Param trainerId path string true "Trainer user ID"
// @Success 200 {object} response.Envelope{data=dto.MembershipResponse}
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/trainers/{trainerId} [get]
func (h *SessionHandler) IsAssigned(c *gin.Context) {
	sessionID, trainerID := c.Param("id"), c.Param("trainerId")
	assigned, err := h.assignments.IsAssigned(c.Request.Context(), sessionID, trainerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.MembershipResponse{SessionID: sessionID, TrainerID: trainerID, Assigned: assigned})
}

// Export godoc
// @Summary Export session roster
// @Tags Sessions
// @Security BearerAuth
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /sessions/export [get]
func (h *SessionHandler) Export(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.SessionRoster(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
