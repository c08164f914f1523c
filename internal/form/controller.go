package form

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"rentdesk/internal/models"
)

// HighlightDelay is how long the client waits before highlighting the
// remaining invalid fields after focusing the first one, so a half-finished
// step does not light up all at once.
const HighlightDelay = time.Second

var (
	// ErrApplicantNotFound is returned when an update names an unknown applicant id.
	ErrApplicantNotFound = errors.New("applicant not found")
	// ErrNotFinalStep is returned when submit is attempted before step 6.
	ErrNotFinalStep = errors.New("submission is only valid on the final step")
	// ErrAlreadySubmitted is returned once the controller reached its terminal state.
	ErrAlreadySubmitted = errors.New("application already submitted")
	// ErrSubmitInProgress is returned when a submission is already running.
	ErrSubmitInProgress = errors.New("submission already in progress")
)

// Submitter receives the finalized application aggregate. The controller
// never retries; a failed submission leaves the form on step 6 so the user
// can resubmit.
type Submitter interface {
	Submit(ctx context.Context, app *models.Application) (uuid.UUID, error)
}

// StepResult reports the outcome of a navigation attempt. When the step is
// invalid, FocusField is the control to scroll to immediately and
// DeferredFields are highlighted HighlightDelay later.
type StepResult struct {
	Advanced       bool     `json:"advanced"`
	CurrentStep    int      `json:"current_step"`
	InvalidFields  []string `json:"invalid_fields,omitempty"`
	FocusField     string   `json:"focus_field,omitempty"`
	DeferredFields []string `json:"deferred_fields,omitempty"`
}

// SubmitOutcome reports the result of HandleSubmit. InvalidFields is set when
// step-6 validation blocked the submission; Submitted is true only after the
// pipeline succeeded.
type SubmitOutcome struct {
	Submitted     bool      `json:"submitted"`
	ApplicationID uuid.UUID `json:"application_id,omitempty"`
	InvalidFields []string  `json:"invalid_fields,omitempty"`
	FocusField    string    `json:"focus_field,omitempty"`
}

// State is the serializable snapshot of a controller, used for the session
// draft cache and the GET state endpoint.
type State struct {
	CurrentStep     int                         `json:"currentStep"`
	Applicants      []*models.Applicant         `json:"applicants"`
	Property        *models.PropertyPreferences `json:"property"`
	Details         *models.AdditionalDetails   `json:"details"`
	DataSharing     models.DataSharing          `json:"dataSharing"`
	Signature       string                      `json:"signature"`
	FullName        string                      `json:"fullName"`
	TermsAccepted   bool                        `json:"termsAccepted"`
	IsSubmitting    bool                        `json:"isSubmitting"`
	IsSubmitted     bool                        `json:"isSubmitted"`
	NextApplicantID int                         `json:"nextApplicantId"`
	GuarantorFor    string                      `json:"guarantorFor,omitempty"`
	GuarantorOpen   bool                        `json:"guarantorOpen"`
}

// Controller owns one in-progress tenancy application: the current step, the
// applicant list, property preferences, disclosures, signature and consent
// flags. Every operation is applied atomically under the controller's lock,
// so concurrent requests against the same session never interleave
// mid-mutation.
type Controller struct {
	mu sync.Mutex

	currentStep     int
	applicants      []*models.Applicant
	property        *models.PropertyPreferences
	details         *models.AdditionalDetails
	dataSharing     models.DataSharing
	signature       string
	fullName        string
	termsAccepted   bool
	isSubmitting    bool
	isSubmitted     bool
	submittedID     uuid.UUID
	nextApplicantID int
	guarantorFor    string
	guarantorOpen   bool
}

// NewController returns a controller on step 1 with a single empty applicant.
func NewController() *Controller {
	c := &Controller{
		currentStep:     1,
		property:        &models.PropertyPreferences{},
		details:         &models.AdditionalDetails{},
		dataSharing:     models.DefaultDataSharing(),
		nextApplicantID: 1,
	}
	c.applicants = append(c.applicants, models.NewApplicant(c.newApplicantID()))
	return c
}

// FromState restores a controller from a serialized snapshot.
func FromState(s *State) *Controller {
	c := &Controller{
		currentStep:     s.CurrentStep,
		applicants:      s.Applicants,
		property:        s.Property,
		details:         s.Details,
		dataSharing:     s.DataSharing,
		signature:       s.Signature,
		fullName:        s.FullName,
		termsAccepted:   s.TermsAccepted,
		isSubmitted:     s.IsSubmitted,
		nextApplicantID: s.NextApplicantID,
		guarantorFor:    s.GuarantorFor,
		guarantorOpen:   s.GuarantorOpen,
	}
	if c.currentStep < 1 {
		c.currentStep = 1
	}
	if c.property == nil {
		c.property = &models.PropertyPreferences{}
	}
	if c.details == nil {
		c.details = &models.AdditionalDetails{}
	}
	if len(c.applicants) == 0 {
		if c.nextApplicantID < 1 {
			c.nextApplicantID = 1
		}
		c.applicants = append(c.applicants, models.NewApplicant(c.newApplicantID()))
	}
	return c
}

func (c *Controller) newApplicantID() string {
	id := strconv.Itoa(c.nextApplicantID)
	c.nextApplicantID++
	return id
}

// State returns a deep-copied snapshot of the controller.
func (c *Controller) State() *State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() *State {
	applicants := make([]*models.Applicant, len(c.applicants))
	for i, a := range c.applicants {
		applicants[i] = a.Clone()
	}
	return &State{
		CurrentStep:     c.currentStep,
		Applicants:      applicants,
		Property:        c.property.Clone(),
		Details:         c.details.Clone(),
		DataSharing:     c.dataSharing,
		Signature:       c.signature,
		FullName:        c.fullName,
		TermsAccepted:   c.termsAccepted,
		IsSubmitting:    c.isSubmitting,
		IsSubmitted:     c.isSubmitted,
		NextApplicantID: c.nextApplicantID,
		GuarantorFor:    c.guarantorFor,
		GuarantorOpen:   c.guarantorOpen,
	}
}

// CurrentStep returns the 1-based step index.
func (c *Controller) CurrentStep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentStep
}

// IsFirstStep reports whether the form is on step 1.
func (c *Controller) IsFirstStep() bool {
	return c.CurrentStep() == 1
}

// IsLastStep reports whether the form is on the final step.
func (c *Controller) IsLastStep() bool {
	return c.CurrentStep() == TotalSteps
}

// Progress returns completion as a percentage for the status bar.
func (c *Controller) Progress() float64 {
	return float64(c.CurrentStep()) / float64(TotalSteps) * 100
}

// IsSubmitting reports whether a submission is currently running.
func (c *Controller) IsSubmitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isSubmitting
}

// IsSubmitted reports whether the application reached its terminal state.
func (c *Controller) IsSubmitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isSubmitted
}

// GoToNext advances one step without validating. HandleNext is the validated
// path the form uses.
func (c *Controller) GoToNext() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentStep < TotalSteps {
		c.currentStep++
	}
}

// GoToPrevious retreats one step. Going back never validates; on step 1 it
// is a no-op and Advanced reports false.
func (c *Controller) GoToPrevious() StepResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	moved := c.currentStep > 1
	if moved {
		c.currentStep--
	}
	return StepResult{Advanced: moved, CurrentStep: c.currentStep}
}

// HandleNext validates the current step and advances only when it is clean.
// On failure the step does not change; the first invalid field is reported
// for immediate focus and the rest for deferred highlighting.
func (c *Controller) HandleNext() StepResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	invalid := ValidateStep(c.currentStep, c.applicants, c.property, c.details,
		c.signature, c.termsAccepted, c.fullName)
	if len(invalid) > 0 {
		return StepResult{
			Advanced:       false,
			CurrentStep:    c.currentStep,
			InvalidFields:  invalid,
			FocusField:     invalid[0],
			DeferredFields: invalid[1:],
		}
	}

	if c.currentStep < TotalSteps {
		c.currentStep++
	}
	return StepResult{Advanced: true, CurrentStep: c.currentStep}
}

// UpdateApplicant replaces one field on the applicant matching id. Identity
// and all other fields are untouched.
func (c *Controller) UpdateApplicant(id, field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.applicants {
		if a.ID == id {
			return a.SetField(field, value)
		}
	}
	return ErrApplicantNotFound
}

// UpdatePropertyPreferences replaces one field on the preferences object.
func (c *Controller) UpdatePropertyPreferences(field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.property.SetField(field, value)
}

// UpdateAdditionalDetails replaces one field on the disclosures object.
func (c *Controller) UpdateAdditionalDetails(field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.details.SetField(field, value)
}

// SetDataSharing records the two independent consents.
func (c *Controller) SetDataSharing(utilities, insurance bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dataSharing = models.DataSharing{Utilities: utilities, Insurance: insurance}
}

// SetSignature records the typed name or embedded image payload.
func (c *Controller) SetSignature(signature string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signature = signature
}

// SetFullName records the declaration name.
func (c *Controller) SetFullName(fullName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fullName = fullName
}

// SetTermsAccepted records the terms checkbox.
func (c *Controller) SetTermsAccepted(accepted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.termsAccepted = accepted
}

// AddApplicant appends a new empty applicant with a fresh id. It is a no-op
// returning nil once the maximum of five applicants is reached.
func (c *Controller) AddApplicant() *models.Applicant {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.applicants) >= models.MaxApplicants {
		return nil
	}
	a := models.NewApplicant(c.newApplicantID())
	c.applicants = append(c.applicants, a)
	return a.Clone()
}

// RemoveApplicant removes the matching applicant. It is a no-op returning
// false when the applicant is unknown or only one applicant remains.
func (c *Controller) RemoveApplicant(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.applicants) <= models.MinApplicants {
		return false
	}
	for i, a := range c.applicants {
		if a.ID == id {
			c.applicants = append(c.applicants[:i], c.applicants[i+1:]...)
			return true
		}
	}
	return false
}

// HandleApplicantCountChange reconciles the list to exactly count entries,
// clamped to 1..5. Growth appends empty applicants with fresh ids; shrinking
// truncates from the end. Retained applicants keep their order and values.
func (c *Controller) HandleApplicantCountChange(count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if count < models.MinApplicants {
		count = models.MinApplicants
	}
	if count > models.MaxApplicants {
		count = models.MaxApplicants
	}
	for len(c.applicants) < count {
		c.applicants = append(c.applicants, models.NewApplicant(c.newApplicantID()))
	}
	if len(c.applicants) > count {
		c.applicants = c.applicants[:count]
	}
}

// Applicants returns a deep copy of the applicant list.
func (c *Controller) Applicants() []*models.Applicant {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*models.Applicant, len(c.applicants))
	for i, a := range c.applicants {
		out[i] = a.Clone()
	}
	return out
}

// HandleGuarantorOpen records which applicant the guarantor modal targets.
// The guarantor record itself is captured by an external collaborator.
func (c *Controller) HandleGuarantorOpen(applicantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.applicants {
		if a.ID == applicantID {
			c.guarantorFor = applicantID
			c.guarantorOpen = true
			return nil
		}
	}
	return ErrApplicantNotFound
}

// HandleGuarantorSave closes the modal and clears the target.
func (c *Controller) HandleGuarantorSave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guarantorFor = ""
	c.guarantorOpen = false
}

// GuarantorTarget returns the applicant id the open modal targets, if any.
func (c *Controller) GuarantorTarget() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.guarantorFor, c.guarantorOpen
}

// snapshotLocked builds the immutable aggregate handed to the pipeline.
func (c *Controller) snapshotLocked(now time.Time) *models.Application {
	s := c.stateLocked()
	return &models.Application{
		ID:            uuid.New(),
		Property:      s.Property,
		Applicants:    s.Applicants,
		Details:       s.Details,
		DataSharing:   s.DataSharing,
		Signature:     s.Signature,
		FullName:      s.FullName,
		TermsAccepted: s.TermsAccepted,
		SubmittedAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// HandleSubmit finalizes the application and runs the submission pipeline.
// It is valid only on step 6 with clean step-6 validation. The controller
// holds its lock for the duration, so the session state cannot drift while
// the pipeline runs; failure leaves the form on step 6 ready to resubmit.
func (c *Controller) HandleSubmit(ctx context.Context, submitter Submitter) (*SubmitOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isSubmitted {
		return nil, ErrAlreadySubmitted
	}
	if c.isSubmitting {
		return nil, ErrSubmitInProgress
	}
	if c.currentStep != TotalSteps {
		return nil, ErrNotFinalStep
	}

	invalid := ValidateStep(TotalSteps, c.applicants, c.property, c.details,
		c.signature, c.termsAccepted, c.fullName)
	if len(invalid) > 0 {
		return &SubmitOutcome{InvalidFields: invalid, FocusField: invalid[0]}, nil
	}

	c.isSubmitting = true
	app := c.snapshotLocked(time.Now())

	id, err := submitter.Submit(ctx, app)
	c.isSubmitting = false
	if err != nil {
		return nil, err
	}

	c.isSubmitted = true
	c.submittedID = id
	return &SubmitOutcome{Submitted: true, ApplicationID: id}, nil
}

// SubmittedID returns the identifier the pipeline assigned, once submitted.
func (c *Controller) SubmittedID() (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submittedID, c.isSubmitted
}

// Reset discards all entered data and returns the form to step 1 with a
// single empty applicant.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentStep = 1
	c.property = &models.PropertyPreferences{}
	c.details = &models.AdditionalDetails{}
	c.dataSharing = models.DefaultDataSharing()
	c.signature = ""
	c.fullName = ""
	c.termsAccepted = false
	c.isSubmitting = false
	c.isSubmitted = false
	c.submittedID = uuid.Nil
	c.guarantorFor = ""
	c.guarantorOpen = false
	c.nextApplicantID = 1
	c.applicants = []*models.Applicant{models.NewApplicant(c.newApplicantID())}
}
