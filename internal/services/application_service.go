package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentdesk/internal/caching"
	"rentdesk/internal/common"
	"rentdesk/internal/models"
	"rentdesk/internal/repositories"
)

const applicationCacheTTL = time.Hour

// ApplicationService backs the admin dashboard: listing with search and date
// buckets, CSV export of a filtered or selected set, and PDF retrieval.
type ApplicationService interface {
	List(ctx context.Context, filter *models.ApplicationSearchFilter) ([]*models.Application, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	Delete(ctx context.Context, id uuid.UUID, actor string) error
	ExportCSV(ctx context.Context, ids []uuid.UUID, filter *models.ApplicationSearchFilter, actor string) ([]byte, error)
	PDFDownloadURL(ctx context.Context, id uuid.UUID, expiry time.Duration) (string, error)
}

type applicationService struct {
	appRepo  repositories.ApplicationRepository
	activity ActivityService
	storage  StorageService
	cache    caching.CacheService
	bucket   string
}

func NewApplicationService(appRepo repositories.ApplicationRepository, activity ActivityService,
	storage StorageService, cache caching.CacheService, bucket string) ApplicationService {
	return &applicationService{
		appRepo:  appRepo,
		activity: activity,
		storage:  storage,
		cache:    cache,
		bucket:   bucket,
	}
}

func (s *applicationService) List(ctx context.Context, filter *models.ApplicationSearchFilter) ([]*models.Application, int, error) {
	filter.Query = common.SanitizeSearchQuery(filter.Query)
	filter.Limit, filter.Offset = common.ValidatePaginationParams(filter.Limit, filter.Offset)
	filter.ResolveDateBucket(time.Now())

	apps, err := s.appRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list applications: %w", err)
	}
	total, err := s.appRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count applications: %w", err)
	}
	return apps, total, nil
}

func (s *applicationService) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	if cached, err := s.cache.GetApplication(ctx, id); err == nil {
		return cached, nil
	}

	app, err := s.appRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	if app == nil {
		return nil, nil
	}

	if err := s.cache.SetApplication(ctx, app, applicationCacheTTL); err != nil {
		log.Printf("WARN: failed to cache application %s: %v", id, err)
	}
	return app, nil
}

func (s *applicationService) Delete(ctx context.Context, id uuid.UUID, actor string) error {
	app, err := s.appRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get application: %w", err)
	}
	if app == nil {
		return nil
	}

	if err := s.appRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	if err := s.cache.DeleteApplication(ctx, id); err != nil {
		log.Printf("WARN: failed to evict application %s from cache: %v", id, err)
	}
	if app.PDFObject != nil {
		if err := s.storage.DeleteDocument(ctx, s.bucket, *app.PDFObject); err != nil {
			log.Printf("WARN: failed to delete PDF %s: %v", *app.PDFObject, err)
		}
	}

	s.activity.RecordActivity(ctx, &id, models.ActionDeleted, &actor, models.JSONB{
		"reference": app.Reference,
	})
	return nil
}

// csvHeader is the column layout dashboards and spreadsheets import.
var csvHeader = []string{
	"reference", "submitted_at", "street_address", "postcode", "max_rent",
	"move_in_date", "tenancy_term", "applicant_count", "applicant_names",
	"applicant_emails", "applicant_phones", "guarantor_required",
	"deposit_type", "share_utilities", "share_insurance", "full_name",
}

// ExportCSV exports either the explicitly selected ids or, when none are
// given, everything matching the filter.
func (s *applicationService) ExportCSV(ctx context.Context, ids []uuid.UUID, filter *models.ApplicationSearchFilter, actor string) ([]byte, error) {
	var apps []*models.Application
	var err error

	if len(ids) > 0 {
		apps, err = s.appRepo.GetByIDs(ctx, ids)
	} else {
		filter.Query = common.SanitizeSearchQuery(filter.Query)
		if filter.Limit <= 0 {
			filter.Limit = 10000
		}
		filter.ResolveDateBucket(time.Now())
		apps, err = s.appRepo.List(ctx, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load applications for export: %w", err)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, app := range apps {
		var names, emails, phones []string
		for _, a := range app.Applicants {
			names = append(names, strings.TrimSpace(a.FirstName+" "+a.LastName))
			emails = append(emails, a.Email)
			phones = append(phones, a.Phone)
		}
		record := []string{
			app.Reference,
			app.SubmittedAt.Format(time.RFC3339),
			app.Property.StreetAddress,
			app.Property.Postcode,
			app.Property.MaxRent,
			app.Property.MoveInDate,
			app.Property.InitialTenancyTerm,
			fmt.Sprintf("%d", len(app.Applicants)),
			strings.Join(names, "; "),
			strings.Join(emails, "; "),
			strings.Join(phones, "; "),
			app.Details.GuarantorRequired,
			app.Details.DepositType,
			fmt.Sprintf("%t", app.DataSharing.Utilities),
			fmt.Sprintf("%t", app.DataSharing.Insurance),
			app.FullName,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to finish CSV export: %w", err)
	}

	s.activity.RecordActivity(ctx, nil, models.ActionExported, &actor, models.JSONB{
		"rows":     len(apps),
		"selected": len(ids),
	})
	return buf.Bytes(), nil
}

func (s *applicationService) PDFDownloadURL(ctx context.Context, id uuid.UUID, expiry time.Duration) (string, error) {
	app, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if app == nil || app.PDFObject == nil {
		return "", nil
	}
	url, err := s.storage.GetPresignedURL(ctx, s.bucket, *app.PDFObject, expiry)
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}
	return url, nil
}
