package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"rentdesk/internal/common"
	"rentdesk/internal/models"
	"rentdesk/internal/services"
)

const pdfURLExpiry = 15 * time.Minute

// AdminHandlers serves the staff dashboard: listing submitted applications
// with search and date buckets, detail view, PDF retrieval, CSV export, the
// activity trail and deletion.
type AdminHandlers struct {
	applications services.ApplicationService
	activity     services.ActivityService
}

func NewAdminHandlers(applications services.ApplicationService, activity services.ActivityService) *AdminHandlers {
	return &AdminHandlers{
		applications: applications,
		activity:     activity,
	}
}

func (h *AdminHandlers) actor(c echo.Context) string {
	if email, ok := common.GetUserEmailFromContext(c.Request().Context()); ok {
		return email
	}
	if userID, ok := common.GetUserIDFromContext(c.Request().Context()); ok {
		return userID.String()
	}
	return "unknown"
}

// ListResponse wraps a page of applications with the total match count.
type ListResponse struct {
	Applications []*models.Application `json:"applications"`
	Total        int                   `json:"total"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

// ListApplications handles GET /admin/applications with query, date_bucket,
// limit and offset parameters.
func (h *AdminHandlers) ListApplications(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	filter := &models.ApplicationSearchFilter{
		Query:      c.QueryParam("query"),
		DateBucket: c.QueryParam("date_bucket"),
		Limit:      limit,
		Offset:     offset,
	}

	apps, total, err := h.applications.List(ctx, filter)
	if err != nil {
		return common.SendServerError(c, "Failed to list applications")
	}
	if apps == nil {
		apps = []*models.Application{}
	}

	return c.JSON(http.StatusOK, ListResponse{
		Applications: apps,
		Total:        total,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	})
}

// GetApplication handles GET /admin/applications/:id.
func (h *AdminHandlers) GetApplication(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "application id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	app, err := h.applications.GetByID(ctx, id)
	if err != nil {
		return common.SendServerError(c, "Failed to load application")
	}
	if app == nil {
		return common.SendNotFoundError(c, "Application")
	}

	actor := h.actor(c)
	h.activity.RecordActivity(ctx, &id, models.ActionViewed, &actor, models.JSONB{
		"reference": app.Reference,
	})
	return c.JSON(http.StatusOK, app)
}

// GetApplicationPDF handles GET /admin/applications/:id/pdf and returns a
// short-lived presigned download URL.
func (h *AdminHandlers) GetApplicationPDF(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "application id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	url, err := h.applications.PDFDownloadURL(ctx, id, pdfURLExpiry)
	if err != nil {
		return common.SendServerError(c, "Failed to generate download URL")
	}
	if url == "" {
		return common.SendNotFoundError(c, "Application PDF")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"url":        url,
		"expires_in": int(pdfURLExpiry.Seconds()),
	})
}

// ExportRequest selects what to export: explicit ids, or a filter.
type ExportRequest struct {
	IDs        []string `json:"ids,omitempty"`
	Query      string   `json:"query,omitempty"`
	DateBucket string   `json:"date_bucket,omitempty"`
}

// ExportApplications handles POST /admin/applications/export and streams CSV.
func (h *AdminHandlers) ExportApplications(c echo.Context) error {
	ctx := c.Request().Context()

	var req ExportRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := common.ValidateUUID(raw, "application id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		ids = append(ids, id)
	}

	filter := &models.ApplicationSearchFilter{
		Query:      req.Query,
		DateBucket: req.DateBucket,
	}

	data, err := h.applications.ExportCSV(ctx, ids, filter, h.actor(c))
	if err != nil {
		return common.SendServerError(c, "Failed to export applications")
	}

	filename := "applications-" + time.Now().Format("2006-01-02") + ".csv"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, "text/csv", data)
}

// ListActivity handles GET /admin/activity.
func (h *AdminHandlers) ListActivity(c echo.Context) error {
	ctx := c.Request().Context()

	filters := &models.ActivityLogFilters{}
	if raw := c.QueryParam("application_id"); raw != "" {
		id, err := common.ValidateUUID(raw, "application_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		filters.ApplicationID = &id
	}
	if action := c.QueryParam("action"); action != "" {
		filters.Action = &action
	}
	if actor := c.QueryParam("actor"); actor != "" {
		filters.Actor = &actor
	}
	filters.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	filters.Offset, _ = strconv.Atoi(c.QueryParam("offset"))

	logs, err := h.activity.ListActivity(ctx, filters)
	if err != nil {
		return common.SendServerError(c, "Failed to list activity")
	}
	if logs == nil {
		logs = []*models.ActivityLog{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"activity": logs})
}

// DeleteApplication handles DELETE /admin/applications/:id.
func (h *AdminHandlers) DeleteApplication(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "application id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if err := h.applications.Delete(ctx, id, h.actor(c)); err != nil {
		return common.SendServerError(c, "Failed to delete application")
	}
	return c.NoContent(http.StatusNoContent)
}
