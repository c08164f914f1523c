package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rentdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repositories use. pgxmock implements
// the same surface for tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type ApplicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	List(ctx context.Context, filter *models.ApplicationSearchFilter) ([]*models.Application, error)
	Count(ctx context.Context, filter *models.ApplicationSearchFilter) (int, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Application, error)
	SetPDFObject(ctx context.Context, id uuid.UUID, objectName string) error
	Delete(ctx context.Context, id uuid.UUID) error
	GenerateReference(ctx context.Context, submittedAt time.Time) (string, error)
}

type applicationRepo struct {
	db DB
}

func NewApplicationRepo(db DB) ApplicationRepository {
	return &applicationRepo{db: db}
}

const applicationColumns = `id, reference, property, applicants, details, data_sharing, signature, full_name, terms_accepted, pdf_object, submitted_at, created_at, updated_at`

func (r *applicationRepo) Create(ctx context.Context, app *models.Application) error {
	property, err := json.Marshal(app.Property)
	if err != nil {
		return fmt.Errorf("failed to encode property preferences: %w", err)
	}
	applicants, err := json.Marshal(app.Applicants)
	if err != nil {
		return fmt.Errorf("failed to encode applicants: %w", err)
	}
	details, err := json.Marshal(app.Details)
	if err != nil {
		return fmt.Errorf("failed to encode additional details: %w", err)
	}
	dataSharing, err := json.Marshal(app.DataSharing)
	if err != nil {
		return fmt.Errorf("failed to encode data sharing consents: %w", err)
	}

	query := `
		INSERT INTO applications (id, reference, property, applicants, details, data_sharing, signature, full_name, terms_accepted, pdf_object, submitted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	`
	_, err = r.db.Exec(ctx, query, app.ID, app.Reference, property, applicants, details, dataSharing,
		app.Signature, app.FullName, app.TermsAccepted, app.PDFObject, app.SubmittedAt)
	return err
}

func scanApplication(row pgx.Row) (*models.Application, error) {
	app := &models.Application{}
	var property, applicants, details, dataSharing []byte
	err := row.Scan(&app.ID, &app.Reference, &property, &applicants, &details, &dataSharing,
		&app.Signature, &app.FullName, &app.TermsAccepted, &app.PDFObject,
		&app.SubmittedAt, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(property, &app.Property); err != nil {
		return nil, fmt.Errorf("failed to decode property preferences: %w", err)
	}
	if err := json.Unmarshal(applicants, &app.Applicants); err != nil {
		return nil, fmt.Errorf("failed to decode applicants: %w", err)
	}
	if err := json.Unmarshal(details, &app.Details); err != nil {
		return nil, fmt.Errorf("failed to decode additional details: %w", err)
	}
	if err := json.Unmarshal(dataSharing, &app.DataSharing); err != nil {
		return nil, fmt.Errorf("failed to decode data sharing consents: %w", err)
	}
	return app, nil
}

func (r *applicationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE id = $1
	`
	app, err := scanApplication(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return app, nil
}

// List returns submitted applications matching the filter, newest first.
// The free-text query matches applicant names/emails, the property address
// and postcode, and the declaration name.
func (r *applicationRepo) List(ctx context.Context, filter *models.ApplicationSearchFilter) ([]*models.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE ($1 = '' OR
			applicants::text ILIKE '%' || $1 || '%' OR
			property->>'streetAddress' ILIKE '%' || $1 || '%' OR
			property->>'postcode' ILIKE '%' || $1 || '%' OR
			full_name ILIKE '%' || $1 || '%')
		AND ($2::timestamptz IS NULL OR submitted_at >= $2)
		AND ($3::timestamptz IS NULL OR submitted_at < $3)
		ORDER BY submitted_at DESC
		LIMIT $4 OFFSET $5
	`
	rows, err := r.db.Query(ctx, query, filter.Query, filter.From, filter.To, filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func (r *applicationRepo) Count(ctx context.Context, filter *models.ApplicationSearchFilter) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM applications
		WHERE ($1 = '' OR
			applicants::text ILIKE '%' || $1 || '%' OR
			property->>'streetAddress' ILIKE '%' || $1 || '%' OR
			property->>'postcode' ILIKE '%' || $1 || '%' OR
			full_name ILIKE '%' || $1 || '%')
		AND ($2::timestamptz IS NULL OR submitted_at >= $2)
		AND ($3::timestamptz IS NULL OR submitted_at < $3)
	`
	var count int
	err := r.db.QueryRow(ctx, query, filter.Query, filter.From, filter.To).Scan(&count)
	return count, err
}

func (r *applicationRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Application, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE id = ANY($1)
		ORDER BY submitted_at DESC
	`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func (r *applicationRepo) SetPDFObject(ctx context.Context, id uuid.UUID, objectName string) error {
	query := `
		UPDATE applications
		SET pdf_object = $1, updated_at = NOW()
		WHERE id = $2
	`
	_, err := r.db.Exec(ctx, query, objectName, id)
	return err
}

func (r *applicationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM applications WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

// GenerateReference produces the human-facing application reference, one
// sequence per calendar month.
func (r *applicationRepo) GenerateReference(ctx context.Context, submittedAt time.Time) (string, error) {
	yearMonth := submittedAt.Format("2006-01")

	query := `
		WITH upsert AS (
			INSERT INTO application_sequences (year_month, last_number)
			VALUES ($1, 1)
			ON CONFLICT (year_month)
			DO UPDATE SET
				last_number = application_sequences.last_number + 1,
				updated_at = NOW()
			RETURNING last_number
		)
		SELECT last_number FROM upsert;
	`

	var sequenceNum int
	if err := r.db.QueryRow(ctx, query, yearMonth).Scan(&sequenceNum); err != nil {
		return "", fmt.Errorf("failed to generate application sequence: %w", err)
	}

	return fmt.Sprintf("APP-%s-%05d", yearMonth, sequenceNum), nil
}
