package services

import (
	"context"
	"errors"
	"log"

	"rentdesk/internal/models"
	"rentdesk/internal/repositories"

	"github.com/google/uuid"
)

// ActivityService records and queries the dashboard activity trail.
type ActivityService interface {
	LogActivity(ctx context.Context, applicationID *uuid.UUID, action string, actor *string, details models.JSONB) error
	ListActivity(ctx context.Context, filters *models.ActivityLogFilters) ([]*models.ActivityLog, error)

	// RecordActivity is the fire-and-forget variant used by the submission
	// pipeline, where an activity write must never fail the user action.
	RecordActivity(ctx context.Context, applicationID *uuid.UUID, action string, actor *string, details models.JSONB)
}

type activityService struct {
	activityRepo repositories.ActivityLogRepository
}

func NewActivityService(activityRepo repositories.ActivityLogRepository) ActivityService {
	return &activityService{activityRepo: activityRepo}
}

func (s *activityService) LogActivity(ctx context.Context, applicationID *uuid.UUID, action string, actor *string, details models.JSONB) error {
	if action == "" {
		return errors.New("action is required")
	}
	entry := &models.ActivityLog{
		ID:            uuid.New(),
		ApplicationID: applicationID,
		Action:        action,
		Actor:         actor,
		Details:       details,
	}
	return s.activityRepo.Create(ctx, entry)
}

func (s *activityService) RecordActivity(ctx context.Context, applicationID *uuid.UUID, action string, actor *string, details models.JSONB) {
	if err := s.LogActivity(ctx, applicationID, action, actor, details); err != nil {
		log.Printf("WARN: failed to record activity %s: %v", action, err)
	}
}

func (s *activityService) ListActivity(ctx context.Context, filters *models.ActivityLogFilters) ([]*models.ActivityLog, error) {
	if filters.Limit <= 0 {
		filters.Limit = 50
	}
	if filters.Limit > 500 {
		filters.Limit = 500
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}
	return s.activityRepo.List(ctx, filters)
}
