package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"rentdesk/internal/models"
	"rentdesk/internal/repositories"
)

// DocumentRenderer produces the application PDF. The pdf worker pool
// satisfies this; rendering happens off the caller's goroutine and returns a
// single terminal outcome.
type DocumentRenderer interface {
	Render(ctx context.Context, app *models.Application) ([]byte, error)
}

// ApplicationCache is the slice of the cache the pipeline touches.
type ApplicationCache interface {
	SetApplication(ctx context.Context, app *models.Application, ttl time.Duration) error
}

// SubmissionConfig carries the pipeline's delivery settings.
type SubmissionConfig struct {
	Bucket      string // object storage bucket for generated PDFs
	OpsEmail    string // internal operations inbox
	AgencyName  string
	AgencyEmail string
}

// SubmissionService runs the pipeline behind the form's final submit:
// render the PDF, persist the application, store the document, notify the
// primary applicant and operations. Persistence failure aborts the whole
// submission and suppresses notifications; notification failure is logged
// but never rolls a stored application back.
type SubmissionService struct {
	appRepo  repositories.ApplicationRepository
	activity ActivityService
	renderer DocumentRenderer
	storage  StorageService
	mailer   Mailer
	cache    ApplicationCache
	config   SubmissionConfig
}

func NewSubmissionService(appRepo repositories.ApplicationRepository, activity ActivityService,
	renderer DocumentRenderer, storage StorageService, mailer Mailer, cache ApplicationCache,
	config SubmissionConfig) *SubmissionService {
	return &SubmissionService{
		appRepo:  appRepo,
		activity: activity,
		renderer: renderer,
		storage:  storage,
		mailer:   mailer,
		cache:    cache,
		config:   config,
	}
}

// Submit implements form.Submitter.
func (s *SubmissionService) Submit(ctx context.Context, app *models.Application) (uuid.UUID, error) {
	reference, err := s.appRepo.GenerateReference(ctx, app.SubmittedAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to allocate application reference: %w", err)
	}
	app.Reference = reference

	pdfBytes, err := s.renderer.Render(ctx, app)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to generate application PDF: %w", err)
	}
	if len(pdfBytes) == 0 {
		return uuid.Nil, fmt.Errorf("generated application PDF is empty")
	}

	// Object name decided before Create so the stored row already points at it.
	objectName := fmt.Sprintf("%s.pdf", app.ID.String())
	app.PDFObject = &objectName

	if err := s.appRepo.Create(ctx, app); err != nil {
		return uuid.Nil, fmt.Errorf("failed to store application: %w", err)
	}

	s.activity.RecordActivity(ctx, &app.ID, models.ActionSubmitted, nil, models.JSONB{
		"reference":  app.Reference,
		"applicants": len(app.Applicants),
	})

	if err := s.storage.UploadDocument(ctx, s.config.Bucket, objectName,
		bytes.NewReader(pdfBytes), int64(len(pdfBytes))); err != nil {
		// The application itself is stored; the PDF can be regenerated, so
		// a storage outage does not fail the submission.
		log.Printf("WARN: failed to upload application PDF %s: %v", objectName, err)
	} else {
		s.activity.RecordActivity(ctx, &app.ID, models.ActionPDFGenerated, nil, models.JSONB{
			"object": objectName,
			"bytes":  len(pdfBytes),
		})
	}

	s.notify(ctx, app, pdfBytes)

	if s.cache != nil {
		if err := s.cache.SetApplication(ctx, app, time.Hour); err != nil {
			log.Printf("WARN: failed to cache application %s: %v", app.ID, err)
		}
	}

	return app.ID, nil
}

// notify sends the applicant confirmation and the operations alert. Both are
// non-fatal; failures are logged and recorded on the activity trail.
func (s *SubmissionService) notify(ctx context.Context, app *models.Application, pdfBytes []byte) {
	attachment := &Attachment{
		Filename:    fmt.Sprintf("tenancy-application-%s.pdf", app.Reference),
		ContentType: "application/pdf",
		Data:        pdfBytes,
	}

	primary := app.PrimaryApplicant()
	if primary != nil && primary.Email != "" {
		msg := &Message{
			To:         []string{primary.Email},
			Subject:    fmt.Sprintf("Your tenancy application %s", app.Reference),
			HTML:       s.confirmationHTML(app, primary),
			Attachment: attachment,
		}
		s.deliver(ctx, app, msg, "applicant confirmation")
	}

	if s.config.OpsEmail != "" {
		msg := &Message{
			To:         []string{s.config.OpsEmail},
			Subject:    fmt.Sprintf("New tenancy application %s - %s", app.Reference, app.Property.StreetAddress),
			HTML:       s.operationsHTML(app),
			Attachment: attachment,
		}
		s.deliver(ctx, app, msg, "operations notification")
	}
}

func (s *SubmissionService) deliver(ctx context.Context, app *models.Application, msg *Message, kind string) {
	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Printf("WARN: failed to send %s for application %s: %v", kind, app.Reference, err)
		s.activity.RecordActivity(ctx, &app.ID, models.ActionEmailFailed, nil, models.JSONB{
			"kind":  kind,
			"error": err.Error(),
		})
		return
	}
	s.activity.RecordActivity(ctx, &app.ID, models.ActionEmailSent, nil, models.JSONB{
		"kind": kind,
		"to":   msg.To,
	})
}

func (s *SubmissionService) confirmationHTML(app *models.Application, primary *models.Applicant) string {
	return fmt.Sprintf(`<h2>Thank you, %s</h2>
<p>We have received your tenancy application for <strong>%s</strong>.</p>
<p>Your reference is <strong>%s</strong>. A copy of your application is attached.</p>
<p>The %s team will be in touch shortly.</p>`,
		primary.FirstName, app.Property.StreetAddress, app.Reference, s.config.AgencyName)
}

func (s *SubmissionService) operationsHTML(app *models.Application) string {
	return fmt.Sprintf(`<h2>New application received</h2>
<p>Reference: <strong>%s</strong></p>
<p>Property: %s, %s</p>
<p>Applicants: %d</p>
<p>Submitted: %s</p>`,
		app.Reference, app.Property.StreetAddress, app.Property.Postcode,
		len(app.Applicants), app.SubmittedAt.Format(time.RFC1123))
}
