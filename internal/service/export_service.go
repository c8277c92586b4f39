package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/formation-admin-api/internal/models"
	"github.com/noah-isme/formation-admin-api/pkg/export"
	appErrors "github.com/noah-isme/formation-admin-api/pkg/errors"
)

// ExportFormat selects the rendering of an export.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

var rosterHeaders = []string{"id", "class_group", "specialty", "cohort", "level", "term", "start_date", "end_date", "trainers"}

type sessionLister interface {
	List(ctx context.Context) ([]models.Session, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportFile is a rendered export ready to be sent as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders the session roster with trainer names.
type ExportService struct {
	sessions sessionLister
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults of pkg/export.
func NewExportService(sessions sessionLister, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{sessions: sessions, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// ParseExportFormat accepts csv or pdf, case-insensitively. Empty means csv.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
}

// SessionRoster renders every session with its trainers.
func (s *ExportService) SessionRoster(ctx context.Context, format ExportFormat) (*ExportFile, error) {
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	dataset := RosterDataset(sessions)

	stamp := s.now().UTC().Format("20060102-150405")
	file := &ExportFile{}
	switch format {
	case ExportFormatCSV:
		file.Body, err = s.csv.Render(dataset)
		file.ContentType = "text/csv"
	case ExportFormatPDF:
		file.Body, err = s.pdf.Render(dataset)
		file.ContentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		s.logger.Error("render session roster", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	file.Filename = fmt.Sprintf("sessions-%s.%s", stamp, format)
	s.logger.Info("session roster exported", zap.String("format", string(format)), zap.Int("sessions", len(sessions)))
	return file, nil
}

// RosterDataset flattens sessions into export rows ordered by class group.
func RosterDataset(sessions []models.Session) export.Dataset {
	ordered := make([]models.Session, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ClassGroup < ordered[j].ClassGroup
	})

	rows := make([]map[string]string, 0, len(ordered))
	for _, session := range ordered {
		names := make([]string, 0, len(session.Trainers))
		for _, t := range session.Trainers {
			names = append(names, t.FullName())
		}
		rows = append(rows, map[string]string{
			"id":          session.ID,
			"class_group": session.ClassGroup,
			"specialty":   session.Specialty,
			"cohort":      session.Cohort,
			"level":       session.Level,
			"term":        session.Term,
			"start_date":  session.StartDate.String(),
			"end_date":    session.EndDate.String(),
			"trainers":    strings.Join(names, "; "),
		})
	}
	return export.Dataset{Title: "Session roster", Headers: rosterHeaders, Rows: rows}
}
