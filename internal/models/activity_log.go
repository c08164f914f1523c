package models

import (
	"time"

	"github.com/google/uuid"
)

// JSONB represents a JSONB column value.
type JSONB map[string]interface{}

// ActivityLog records an action taken against an application, either by the
// submission pipeline or by dashboard staff.
type ActivityLog struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	ApplicationID *uuid.UUID `json:"application_id" db:"application_id"`
	Action        string     `json:"action" db:"action"`
	Actor         *string    `json:"actor" db:"actor"`
	Details       JSONB      `json:"details" db:"details"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// Action constants for activity logs
const (
	ActionSubmitted    = "SUBMITTED"
	ActionPDFGenerated = "PDF_GENERATED"
	ActionEmailSent    = "EMAIL_SENT"
	ActionEmailFailed  = "EMAIL_FAILED"
	ActionViewed       = "VIEWED"
	ActionExported     = "EXPORTED"
	ActionDeleted      = "DELETED"
)

// ActivityLogFilters represents filters for querying activity logs
type ActivityLogFilters struct {
	ApplicationID *uuid.UUID `json:"application_id"`
	Action        *string    `json:"action"`
	Actor         *string    `json:"actor"`
	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
	Limit         int        `json:"limit"`
	Offset        int        `json:"offset"`
}
