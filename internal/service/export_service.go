package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/studyport/schedule-api/internal/models"
	appErrors "github.com/studyport/schedule-api/pkg/errors"
	"github.com/studyport/schedule-api/pkg/export"
)

type scheduleProvider interface {
	CurrentSchedule(studentID string) (*models.ReconciledSchedule, error)
}

// ExportResult is a rendered schedule download.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders a student's current reconciled schedule into a
// downloadable file.
type ExportService struct {
	schedules scheduleProvider
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs the export service.
func NewExportService(schedules scheduleProvider, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		schedules: schedules,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
		now:       time.Now,
	}
}

var exportHeaders = []string{"No", "Date", "Time", "Status", "Joinable", "Note"}

// Render produces the requested format for the student's current view.
// Export reads the last-known-good schedule; it never triggers a fetch.
func (s *ExportService) Render(studentID, format string) (*ExportResult, error) {
	sched, err := s.schedules.CurrentSchedule(studentID)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{Headers: exportHeaders, Rows: buildExportRows(sched.Items)}
	title := fmt.Sprintf("Class schedule %s", sched.BatchID)
	stamp := s.now().UTC().Format("2006-01-02_150405")

	switch strings.ToLower(format) {
	case "csv", "":
		payload, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render schedule csv")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("schedule_%s_%s.csv", sched.BatchID, stamp),
			ContentType: "text/csv",
			Data:        payload,
		}, nil
	case "pdf":
		footer := fmt.Sprintf("Generated %s", s.now().UTC().Format(time.RFC1123))
		payload, err := s.pdf.Render(data, title, footer)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render schedule pdf")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("schedule_%s_%s.pdf", sched.BatchID, stamp),
			ContentType: "application/pdf",
			Data:        payload,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func buildExportRows(items []models.ScheduleEntry) []map[string]string {
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, map[string]string{
			"No":       sessionNumberLabel(item.Session),
			"Date":     emptyDash(item.Session.Date),
			"Time":     emptyDash(item.Session.Time),
			"Status":   statusLabel(item),
			"Joinable": yesNo(item.Classification.CanJoin),
			"Note":     item.Session.Note,
		})
	}
	return rows
}

func sessionNumberLabel(s models.Session) string {
	if s.SessionNumber == nil {
		return "-"
	}
	return strconv.Itoa(*s.SessionNumber)
}

func statusLabel(item models.ScheduleEntry) string {
	switch {
	case item.Session.IsCancelled():
		reason := strings.TrimSpace(item.Session.CancellationReason)
		if reason != "" {
			return "Cancelled: " + reason
		}
		return "Cancelled"
	case item.Classification.IsCompleted:
		return "Completed"
	case item.Classification.IsToday:
		return "Today"
	case item.Classification.IsFirstUpcoming:
		return "Up next"
	case item.Classification.IsFuture:
		return "Upcoming"
	default:
		return "Scheduled"
	}
}

func emptyDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
