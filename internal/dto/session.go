package dto

import (
	"time"

	"github.com/noah-isme/formation-admin-api/internal/models"
)

// SessionRequest is the payload accepted when creating or updating a session.
// The trainer set is never part of it.
type SessionRequest struct {
	ClassGroup string `json:"class_group"`
	Specialty  string `json:"specialty"`
	Cohort     string `json:"cohort"`
	Level      string `json:"level"`
	Term       string `json:"term"`
	StartDate  string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// AssignTrainerRequest is the body of the assign endpoint.
type AssignTrainerRequest struct {
	TrainerID string `json:"trainer_id" validate:"required"`
}

// AssignmentInput identifies one (session, trainer) pair.
type AssignmentInput struct {
	SessionID string `validate:"required"`
	TrainerID string `validate:"required"`
}

// TrainerSummary is the trainer identity embedded in session responses.
type TrainerSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// SessionResponse is the transfer shape of a session.
type SessionResponse struct {
	ID              string           `json:"id"`
	ClassGroup      string           `json:"class_group"`
	Specialty       string           `json:"specialty"`
	Cohort          string           `json:"cohort"`
	Level           string           `json:"level"`
	Term            string           `json:"term"`
	StartDate       models.Date      `json:"start_date" swaggertype:"string" example:"2024-09-02"`
	EndDate         models.Date      `json:"end_date" swaggertype:"string" example:"2025-06-27"`
	Trainers        []TrainerSummary `json:"trainers"`
	TrainerAssigned *bool            `json:"trainer_assigned,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// MembershipResponse answers the membership predicate.
type MembershipResponse struct {
	SessionID string `json:"session_id"`
	TrainerID string `json:"trainer_id"`
	Assigned  bool   `json:"assigned"`
}

// NewSessionResponse maps a session model to its transfer shape.
func NewSessionResponse(session models.Session) SessionResponse {
	trainers := make([]TrainerSummary, 0, len(session.Trainers))
	for _, t := range session.Trainers {
		trainers = append(trainers, TrainerSummary{ID: t.ID, FirstName: t.FirstName, LastName: t.LastName, Email: t.Email})
	}
	return SessionResponse{
		ID:         session.ID,
		ClassGroup: session.ClassGroup,
		Specialty:  session.Specialty,
		Cohort:     session.Cohort,
		Level:      session.Level,
		Term:       session.Term,
		StartDate:  session.StartDate,
		EndDate:    session.EndDate,
		Trainers:   trainers,
		CreatedAt:  session.CreatedAt,
		UpdatedAt:  session.UpdatedAt,
	}
}

// NewSessionListResponse maps sessions and, when viewerID is set, flags the ones the viewer teaches.
func NewSessionListResponse(sessions []models.Session, viewerID string) []SessionResponse {
	items := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		item := NewSessionResponse(s)
		if viewerID != "" {
			assigned := s.HasTrainer(viewerID)
			item.TrainerAssigned = &assigned
		}
		items = append(items, item)
	}
	return items
}
