package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/formation-admin-api/internal/models"
	appErrors "github.com/noah-isme/formation-admin-api/pkg/errors"
)

type sessionListerStub struct {
	sessions []models.Session
	err      error
}

func (s sessionListerStub) List(ctx context.Context) ([]models.Session, error) {
	return s.sessions, s.err
}

func rosterSessions() []models.Session {
	return []models.Session{
		{ID: "s-2", ClassGroup: "DEV-B", StartDate: models.NewDate(2024, time.October, 1)},
		{ID: "s-1", ClassGroup: "DEV-A", Trainers: []models.Trainer{
			{ID: "t-1", FirstName: "Amel", LastName: "Ben Salah"},
			{ID: "t-2", FirstName: "Karim", LastName: "Haddad"},
		}},
	}
}

func TestExportServiceSessionRosterCSV(t *testing.T) {
	svc := NewExportService(sessionListerStub{sessions: rosterSessions()}, nil, nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, time.November, 5, 8, 30, 0, 0, time.UTC) }

	file, err := svc.SessionRoster(context.Background(), ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "sessions-20241105-083000.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,class_group,specialty,cohort,level,term,start_date,end_date,trainers", lines[0])
	assert.Equal(t, "s-1,DEV-A,,,,,,,Amel Ben Salah; Karim Haddad", lines[1])
	assert.Equal(t, "s-2,DEV-B,,,,,2024-10-01,,", lines[2])
}

func TestExportServiceSessionRosterPDF(t *testing.T) {
	svc := NewExportService(sessionListerStub{sessions: rosterSessions()}, nil, nil, nil)

	file, err := svc.SessionRoster(context.Background(), ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF")))
}

func TestExportServiceStorageFailure(t *testing.T) {
	failure := appErrors.Storage(errors.New("db down"), "failed to list sessions")
	svc := NewExportService(sessionListerStub{err: failure}, nil, nil, nil)

	_, err := svc.SessionRoster(context.Background(), ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestParseExportFormat(t *testing.T) {
	format, err := ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatCSV, format)

	format, err = ParseExportFormat("PDF")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatPDF, format)

	_, err = ParseExportFormat("xlsx")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
