package models

import (
	"time"

	"github.com/google/uuid"
)

// Applicant list bounds enforced by the form controller.
const (
	MinApplicants = 1
	MaxApplicants = 5
)

// Application is the finalized tenancy application aggregate. The form
// controller owns the in-progress draft; once submitted, an immutable
// snapshot of this shape passes to the submission pipeline and is what the
// admin dashboard reads back.
type Application struct {
	ID            uuid.UUID            `json:"id" db:"id"`
	Reference     string               `json:"reference" db:"reference"`
	Property      *PropertyPreferences `json:"property" db:"property"`
	Applicants    []*Applicant         `json:"applicants" db:"applicants"`
	Details       *AdditionalDetails   `json:"details" db:"details"`
	DataSharing   DataSharing          `json:"dataSharing" db:"data_sharing"`
	Signature     string               `json:"signature" db:"signature"`
	FullName      string               `json:"fullName" db:"full_name"`
	TermsAccepted bool                 `json:"termsAccepted" db:"terms_accepted"`
	PDFObject     *string              `json:"pdfObject,omitempty" db:"pdf_object"`
	SubmittedAt   time.Time            `json:"submittedAt" db:"submitted_at"`
	CreatedAt     time.Time            `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time            `json:"updatedAt" db:"updated_at"`
}

// PrimaryApplicant returns the first applicant, the one confirmation email
// goes to. Never nil for a submitted application.
func (a *Application) PrimaryApplicant() *Applicant {
	if len(a.Applicants) == 0 {
		return nil
	}
	return a.Applicants[0]
}

// Date buckets for dashboard filtering.
const (
	DateBucketToday     = "today"
	DateBucketThisWeek  = "week"
	DateBucketThisMonth = "month"
	DateBucketLastMonth = "last_month"
	DateBucketAll       = "all"
)

// ApplicationSearchFilter holds search and filter criteria for dashboard queries
type ApplicationSearchFilter struct {
	Query      string     `json:"query,omitempty"`       // Free-text search across names, emails, address, postcode
	DateBucket string     `json:"date_bucket,omitempty"` // today, week, month, last_month, all
	From       *time.Time `json:"from,omitempty"`        // Resolved bucket start (inclusive)
	To         *time.Time `json:"to,omitempty"`          // Resolved bucket end (exclusive)
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}

// ResolveDateBucket fills From/To from the named bucket relative to now.
// Unknown or "all" buckets leave the range open.
func (f *ApplicationSearchFilter) ResolveDateBucket(now time.Time) {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch f.DateBucket {
	case DateBucketToday:
		from := startOfDay
		to := startOfDay.AddDate(0, 0, 1)
		f.From, f.To = &from, &to
	case DateBucketThisWeek:
		// Weeks start on Monday
		offset := (int(startOfDay.Weekday()) + 6) % 7
		from := startOfDay.AddDate(0, 0, -offset)
		to := from.AddDate(0, 0, 7)
		f.From, f.To = &from, &to
	case DateBucketThisMonth:
		from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		to := from.AddDate(0, 1, 0)
		f.From, f.To = &from, &to
	case DateBucketLastMonth:
		to := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		from := to.AddDate(0, -1, 0)
		f.From, f.To = &from, &to
	default:
		f.From, f.To = nil, nil
	}
}
