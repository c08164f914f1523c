package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"rentdesk/internal/caching"
	"rentdesk/internal/common"
	"rentdesk/internal/form"
	"rentdesk/internal/services"
)

const (
	sessionCreateLimit  = 20
	sessionCreateWindow = time.Hour
)

// FormHandlers exposes the public multi-step application form: session
// lifecycle, field updates, applicant list management, navigation and the
// final submission.
type FormHandlers struct {
	sessions   *services.FormSessionService
	submission *services.SubmissionService
	cache      caching.CacheService
}

func NewFormHandlers(sessions *services.FormSessionService, submission *services.SubmissionService,
	cache caching.CacheService) *FormHandlers {
	return &FormHandlers{
		sessions:   sessions,
		submission: submission,
		cache:      cache,
	}
}

// SessionResponse is the envelope every session endpoint returns.
type SessionResponse struct {
	Token    string      `json:"token,omitempty"`
	State    *form.State `json:"state"`
	Progress float64     `json:"progress"`
	IsFirst  bool        `json:"is_first_step"`
	IsLast   bool        `json:"is_last_step"`
}

func sessionResponse(token string, c *form.Controller) *SessionResponse {
	state := c.State()
	return &SessionResponse{
		Token:    token,
		State:    state,
		Progress: float64(state.CurrentStep) / float64(form.TotalSteps) * 100,
		IsFirst:  state.CurrentStep == 1,
		IsLast:   state.CurrentStep == form.TotalSteps,
	}
}

// CreateSession starts a new form session.
func (h *FormHandlers) CreateSession(c echo.Context) error {
	ctx := c.Request().Context()

	rateKey := "form_sessions:" + c.RealIP()
	count, err := h.cache.IncrementRateLimit(ctx, rateKey, sessionCreateWindow)
	if err != nil {
		// Rate limiting degrades open when redis is unavailable.
		log.Printf("WARN: rate limit check failed: %v", err)
	} else if count > sessionCreateLimit {
		return c.JSON(http.StatusTooManyRequests,
			common.CreateErrorResponse("RATE_LIMITED", "Too many sessions started, try again later", nil))
	}

	token, controller := h.sessions.Create(ctx)
	return c.JSON(http.StatusCreated, sessionResponse(token, controller))
}

// controller resolves the :token path param to a live controller.
func (h *FormHandlers) controller(c echo.Context) (string, *form.Controller, error) {
	token := c.Param("token")
	if token == "" {
		return "", nil, common.SendClientError(c, "Session token is required")
	}
	controller, err := h.sessions.Controller(c.Request().Context(), token)
	if errors.Is(err, services.ErrSessionNotFound) {
		return "", nil, common.SendNotFoundError(c, "Session")
	}
	if err != nil {
		return "", nil, common.SendServerError(c, "Failed to load session")
	}
	return token, controller, nil
}

// GetSession returns the current form state.
func (h *FormHandlers) GetSession(c echo.Context) error {
	_, controller, err := h.controller(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResponse("", controller))
}

// FieldUpdateRequest is a single-field mutation.
type FieldUpdateRequest struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value"`
}

// UpdateProperty replaces one property-preferences field.
func (h *FormHandlers) UpdateProperty(c echo.Context) error {
	token, controller, err := h.controller(c)
	if err != nil {
		return err
	}

	var req FieldUpdateRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.Field == "" {
		return common.SendValidationError(c, "field", "field is required")
	}

	if err := controller.UpdatePropertyPreferences(req.Field, req.Value); err != nil {
		return common.SendValidationError(c, req.Field, err.Error())
	}

	h.sessions.Persist(c.Request().Context(), token)
	return c.JSON(http.StatusOK, sessionResponse("", controller))
}

// UpdateApplicant replaces one field on the applicant matching :id.
func (h *FormHandlers) UpdateApplicant(c echo.Context) error {
	token, controller, err := h.controller(c)
	if err != nil {
		return err
	}

	applicantID := c.Param("id")
	var req FieldUpdateRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.Field == "" {
		return common.SendValidationError(c, "field", "field is required")
	}

	if err := controller.UpdateApplicant(applicantID, req.Field, req.Value); err != nil {
		if errors.Is(err, form.ErrApplicantNotFound) {
			return common.SendNotFoundError(c, "Applicant")
		}
		return common.SendValidationError(c, req.Field, err.Error())
	}

	h.sessions.Persist(c.Request().Context(), token)
	return c.JSON(http.StatusOK, sessionResponse("", controller))
}

// DetailsUpdateRequest mutates the step-5/6 surface: one additional-details
// field, the data-sharing consents, the signature, the declaration name or
// the terms checkbox. Exactly one group is expected per call.
type DetailsUpdateRequest struct {
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`

	DataSharing *struct {
		Utilities bool `json:"utilities"`
		Insurance bool `json:"insurance"`
	} `json:"data_sharing,omitempty"`

	Signature     *string `json:"signature,omitempty"`
	FullName      *string `json:"full_name,omitempty"`
	TermsAccepted *bool   `json:"terms_accepted,omitempty"`
}

// UpdateDetails applies an additional-details or declaration mutation.
func (h *FormHandlers) UpdateDetails(c echo.Context) error {
	token, controller, err := h.controller(c)
	if err != nil {
		return err
	}

	var req DetailsUpdateRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	switch {
	case req.Field != "":
		if err := controller.UpdateAdditionalDetails(req.Field, req.Value); err != nil {
			return common.SendValidationError(c, req.Field, err.Error())
		}
	case req.DataSharing != nil:
		controller.SetDataSharing(req.DataSharing.Utilities, req.DataSharing.Insurance)
	case req.Signature != nil:
		controller.SetSignature(*req.Signature)
	case req.FullName != nil:
		controller.SetFullName(*req.FullName)
	case req.TermsAccepted != nil:
		controller.SetTermsAccepted(*req.TermsAccepted)
	default:
		return common.SendClientError(c, "No mutation provided")
	}

	h.sessions.Persist(c.Request().Context(), token)
	return c.JSON(http.StatusOK, sessionResponse("", controller))
}

// AddApplicant appends a new empty applicant, up to the maximum of five.
func (h *FormHandlers) AddApplicant(c echo.Context) error {
	token, controller, err := h.controller(c)
	if err != nil {
		return err
	}

	applicant := controller.AddApplicant()
	h.sessions.Persist(c.Request().Context(), token)

	resp := sessionResponse("", controller)
	if applicant == nil {
		// At capacity; the list is unchanged.
		return c.JSON(http.StatusOK, resp)
	}
	return c.JSON(http.StatusCreated, resp)
}

// RemoveApplicant removes the applicant matching :id, never below one.
func (h *FormHandlers) RemoveApplicant(c echo.Context) error {
	token, controller, err := h.controller(c)
	if err != nil {
		return err
	}

	controller.RemoveApplicant(c.Param("id"))
	h.sessions.Persist(c.Request().Context(), token)
	return c.JSON(http.StatusOK, sessionResponse("", controller))
}

// ApplicantCountRequest sets the desired applicant count.
type ApplicantCountRequest struct {
	Count int `json:"count" validate:"required,min=1,max=5"`
}

// SetApplicantCount reconciles the applicant list to the requested size.
func (h *FormHandlers) SetApplicantCount(c echo.Context) error {
	token, controller, err := h.controller(c)
	if err != nil {
		return err
	}

	var req ApplicantCountRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	controller.HandleApplicantCountChange(req.Count)
	h.sessions.Persist(c.Request().Context(), token)
	return c.JSON(http.StatusOK, sessionResponse("", controller))
}

// Next validates the current step and advances when it is clean.
func (h *FormHandlers) Next(c echo.Context) error {
	token, controller, err := h.controller(c)
	if err != nil {
		return err
	}

	result := controller.HandleNext()
	h.sessions.Persist(c.Request().Context(), token)
	return c.JSON(http.StatusOK, result)
}

// Previous retreats one step without validating.
func (h *FormHandlers) Previous(c echo.Context) error {
	token, controller, err := h.controller(c)
	if err != nil {
		return err
	}

	result := controller.GoToPrevious()
	h.sessions.Persist(c.Request().Context(), token)
	return c.JSON(http.StatusOK, result)
}

// GuarantorOpenRequest names the applicant the guarantor modal targets.
type GuarantorOpenRequest struct {
	ApplicantID string `json:"applicant_id" validate:"required"`
}

// GuarantorOpen records which applicant the guarantor capture targets.
func (h *FormHandlers) GuarantorOpen(c echo.Context) error {
	token, controller, err := h.controller(c)
	if err != nil {
		return err
	}

	var req GuarantorOpenRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.ApplicantID == "" {
		return common.SendValidationError(c, "applicant_id", "applicant_id is required")
	}

	if err := controller.HandleGuarantorOpen(req.ApplicantID); err != nil {
		return common.SendNotFoundError(c, "Applicant")
	}

	h.sessions.Persist(c.Request().Context(), token)
	return c.JSON(http.StatusOK, sessionResponse("", controller))
}

// GuarantorSave closes the guarantor modal.
func (h *FormHandlers) GuarantorSave(c echo.Context) error {
	token, controller, err := h.controller(c)
	if err != nil {
		return err
	}

	controller.HandleGuarantorSave()
	h.sessions.Persist(c.Request().Context(), token)
	return c.JSON(http.StatusOK, sessionResponse("", controller))
}

// Submit finalizes the application on step 6 and runs the pipeline.
func (h *FormHandlers) Submit(c echo.Context) error {
	ctx := c.Request().Context()
	token, controller, err := h.controller(c)
	if err != nil {
		return err
	}

	outcome, err := controller.HandleSubmit(ctx, h.submission)
	switch {
	case errors.Is(err, form.ErrAlreadySubmitted):
		return common.SendConflictError(c, "Application already submitted")
	case errors.Is(err, form.ErrSubmitInProgress):
		return common.SendConflictError(c, "Submission already in progress")
	case errors.Is(err, form.ErrNotFinalStep):
		return common.SendClientError(c, "Submission is only valid on the final step")
	case err != nil:
		log.Printf("ERROR: submission failed for session %s: %v", token, err)
		return common.SendServerError(c, "Submission failed, please try again")
	}

	if !outcome.Submitted {
		// Step-6 validation blocked it; the form stays on step 6.
		return c.JSON(http.StatusUnprocessableEntity, outcome)
	}

	h.sessions.End(ctx, token)
	return c.JSON(http.StatusOK, outcome)
}
