package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"rentdesk/internal/models"
)

type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filters *models.ActivityLogFilters) ([]*models.ActivityLog, error)
}

type activityLogRepo struct {
	db DB
}

func NewActivityLogRepo(db DB) ActivityLogRepository {
	return &activityLogRepo{db: db}
}

func (r *activityLogRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to encode activity details: %w", err)
	}

	query := `
		INSERT INTO activity_logs (id, application_id, action, actor, details, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err = r.db.Exec(ctx, query, entry.ID, entry.ApplicationID, entry.Action, entry.Actor, details)
	return err
}

func (r *activityLogRepo) List(ctx context.Context, filters *models.ActivityLogFilters) ([]*models.ActivityLog, error) {
	query := `
		SELECT id, application_id, action, actor, details, created_at
		FROM activity_logs
		WHERE ($1::uuid IS NULL OR application_id = $1)
		AND ($2::text IS NULL OR action = $2)
		AND ($3::text IS NULL OR actor = $3)
		AND ($4::timestamptz IS NULL OR created_at >= $4)
		AND ($5::timestamptz IS NULL OR created_at < $5)
		ORDER BY created_at DESC
		LIMIT $6 OFFSET $7
	`
	rows, err := r.db.Query(ctx, query, filters.ApplicationID, filters.Action, filters.Actor,
		filters.StartDate, filters.EndDate, filters.Limit, filters.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.ActivityLog
	for rows.Next() {
		entry := &models.ActivityLog{}
		var details []byte
		if err := rows.Scan(&entry.ID, &entry.ApplicationID, &entry.Action, &entry.Actor, &details, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("failed to decode activity details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
