package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campuskit/attendance-api/internal/models"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
	"github.com/campuskit/attendance-api/pkg/export"
	"github.com/campuskit/attendance-api/pkg/jobs"
	"github.com/campuskit/attendance-api/pkg/mailer"
)

type reportSubjectRepository interface {
	FindBySubjectID(ctx context.Context, subjectID string) (*models.Subject, error)
	Roster(ctx context.Context, id string) ([]models.RosterStudent, error)
	IsFacultyAssigned(ctx context.Context, id, userID string) (bool, error)
}

type reportUserReader interface {
	FindByEmailAndRole(ctx context.Context, email string, role models.UserRole) (*models.User, error)
}

type reportLedgerReader interface {
	ListRecordDetails(ctx context.Context, subjectID string) ([]models.AttendanceRecordDetail, error)
}

type reportJob struct {
	SubjectPK    string
	SubjectID    string
	SubjectName  string
	FacultyEmail string
}

// ReportService builds per-subject attendance matrices and emails them to the
// requesting faculty as CSV and PDF attachments. Rendering and delivery run
// on a background worker queue so the HTTP request returns immediately.
type ReportService struct {
	subjects reportSubjectRepository
	users    reportUserReader
	ledger   reportLedgerReader
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	mail     mailer.Mailer
	queue    *jobs.Queue
	logger   *zap.Logger
}

// NewReportService constructs a ReportService with its own worker queue.
func NewReportService(subjects reportSubjectRepository, users reportUserReader, ledger reportLedgerReader, mail mailer.Mailer, queueCfg jobs.QueueConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReportService{
		subjects: subjects,
		users:    users,
		ledger:   ledger,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		mail:     mail,
		logger:   logger,
	}
	if queueCfg.Logger == nil {
		queueCfg.Logger = logger
	}
	s.queue = jobs.NewQueue("attendance-reports", s.process, queueCfg)
	return s
}

// Start launches the report workers.
func (s *ReportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the report workers.
func (s *ReportService) Stop() {
	s.queue.Stop()
}

// Request queues a report for the subject addressed to the requesting
// faculty.
func (s *ReportService) Request(ctx context.Context, subjectID, facultyEmail string) error {
	subject, err := s.subjects.FindBySubjectID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	faculty, err := s.users.FindByEmailAndRole(ctx, facultyEmail, models.RoleFaculty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrForbidden, "faculty account required")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	assigned, err := s.subjects.IsFacultyAssigned(ctx, subject.ID, faculty.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if !assigned {
		return appErrors.Clone(appErrors.ErrForbidden, "not assigned to subject")
	}

	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: "attendance-report",
		Payload: reportJob{
			SubjectPK:    subject.ID,
			SubjectID:    subject.SubjectID,
			SubjectName:  subject.SubjectName,
			FacultyEmail: facultyEmail,
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue report")
	}
	s.logger.Info("report queued",
		zap.String("subject_id", subjectID),
		zap.String("faculty", facultyEmail))
	return nil
}

func (s *ReportService) process(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(reportJob)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}

	dataset, err := s.buildMatrix(ctx, payload.SubjectPK, payload.SubjectName)
	if err != nil {
		return fmt.Errorf("build report matrix: %w", err)
	}

	csvBytes, err := s.csv.Render(*dataset)
	if err != nil {
		return fmt.Errorf("render csv: %w", err)
	}
	pdfBytes, err := s.pdf.Render(*dataset, payload.SubjectName+" attendance")
	if err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}

	message := mailer.Message{
		To:      payload.FacultyEmail,
		Subject: fmt.Sprintf("Attendance report: %s", payload.SubjectName),
		Body:    fmt.Sprintf("The attendance report for %s is attached.", payload.SubjectName),
		Attachments: []mailer.Attachment{
			{Filename: "attendance.csv", ContentType: "text/csv", Content: csvBytes},
			{Filename: "attendance.pdf", ContentType: "application/pdf", Content: pdfBytes},
		},
	}
	if err := s.mail.Send(ctx, message); err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	s.logger.Info("report delivered",
		zap.String("subject_id", payload.SubjectID),
		zap.String("faculty", payload.FacultyEmail))
	return nil
}

// buildMatrix produces one row per enrolled student with a column per class
// date plus attended and percentage tallies.
func (s *ReportService) buildMatrix(ctx context.Context, subjectPK, subjectName string) (*export.Dataset, error) {
	roster, err := s.subjects.Roster(ctx, subjectPK)
	if err != nil {
		return nil, err
	}
	details, err := s.ledger.ListRecordDetails(ctx, subjectPK)
	if err != nil {
		return nil, err
	}

	presence := make(map[string]map[string]bool, len(details))
	dates := make([]string, 0, len(details))
	for _, detail := range details {
		day := models.DayKey(detail.Date)
		dates = append(dates, day)
		byStudent := make(map[string]bool, len(detail.Students))
		for _, entry := range detail.Students {
			byStudent[entry.StudentID] = entry.Present
		}
		presence[day] = byStudent
	}

	headers := append([]string{"Name", "Scholar ID"}, dates...)
	headers = append(headers, "Attended", "Percent")

	rows := make([][]string, 0, len(roster))
	for _, student := range roster {
		row := make([]string, 0, len(headers))
		scholarID := ""
		if student.RegistrationNumber != nil {
			scholarID = *student.RegistrationNumber
		}
		row = append(row, student.Name, scholarID)
		attended := 0
		for _, day := range dates {
			mark := "A"
			if presence[day][student.UserID] {
				mark = "P"
				attended++
			}
			row = append(row, mark)
		}
		percent := "0.0"
		if len(dates) > 0 {
			percent = fmt.Sprintf("%.1f", float64(attended)/float64(len(dates))*100)
		}
		row = append(row, fmt.Sprintf("%d", attended), percent)
		rows = append(rows, row)
	}

	return &export.Dataset{
		Preamble: []string{subjectName, fmt.Sprintf("Classes held: %d", len(dates))},
		Headers:  headers,
		Rows:     rows,
	}, nil
}
