package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"rentdesk/internal/common"
	"rentdesk/internal/models"
	"rentdesk/internal/services"
)

// ActivityMiddleware records dashboard actions to the activity trail so the
// lettings team can see who touched which application and when.
type ActivityMiddleware struct {
	activityService services.ActivityService
}

func NewActivityMiddleware(activityService services.ActivityService) *ActivityMiddleware {
	return &ActivityMiddleware{activityService: activityService}
}

// RecordRequests logs mutating and error requests under the admin routes.
// Read-only listing traffic is skipped; individual handlers record richer
// entries (VIEWED, EXPORTED, DELETED) themselves.
func (m *ActivityMiddleware) RecordRequests() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			method := c.Request().Method
			if !m.shouldRecord(method, err) {
				return err
			}

			ctx := c.Request().Context()
			var actor *string
			if email, ok := common.GetUserEmailFromContext(ctx); ok {
				actor = &email
			}

			details := models.JSONB{
				"method":    method,
				"path":      c.Path(),
				"ip":        c.RealIP(),
				"timestamp": time.Now().Format(time.RFC3339),
			}
			if err != nil {
				details["error"] = err.Error()
			}

			m.activityService.RecordActivity(ctx, nil, method+" "+c.Path(), actor, details)
			return err
		}
	}
}

func (m *ActivityMiddleware) shouldRecord(method string, reqErr error) bool {
	if reqErr != nil {
		return true
	}
	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	}
	return false
}
