package form

import (
	"regexp"
	"strings"

	"rentdesk/internal/models"
)

// TotalSteps is the number of pages in the application form.
const TotalSteps = 6

// emailPattern matches syntactically plausible addresses, the same check the
// form applies client-side. Deliverability is not verified here.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// applicantRule names one required per-applicant field and how to read it.
// Invalid fields for applicant-scoped rules are reported as
// "<field>-<applicantID>" so callers can map a failure back to the exact
// control.
type applicantRule struct {
	field string
	value func(a *models.Applicant) string
	valid func(value string) bool
}

func nonEmpty(value string) bool {
	return strings.TrimSpace(value) != ""
}

func validEmail(value string) bool {
	return emailPattern.MatchString(strings.TrimSpace(value))
}

// Required per-applicant fields for steps 2-4, in reporting order.
var applicantStepRules = map[int][]applicantRule{
	2: {
		{field: "firstName", value: func(a *models.Applicant) string { return a.FirstName }, valid: nonEmpty},
		{field: "lastName", value: func(a *models.Applicant) string { return a.LastName }, valid: nonEmpty},
		{field: "email", value: func(a *models.Applicant) string { return a.Email }, valid: validEmail},
		{field: "phone", value: func(a *models.Applicant) string { return a.Phone }, valid: nonEmpty},
	},
	3: {
		{field: "employmentStatus", value: func(a *models.Applicant) string { return a.EmploymentStatus }, valid: nonEmpty},
		{field: "annualIncome", value: func(a *models.Applicant) string { return a.AnnualIncome }, valid: nonEmpty},
	},
	4: {
		{field: "currentAddress", value: func(a *models.Applicant) string { return a.CurrentAddress }, valid: nonEmpty},
		{field: "currentPostcode", value: func(a *models.Applicant) string { return a.CurrentPostcode }, valid: nonEmpty},
		{field: "currentPropertyStatus", value: func(a *models.Applicant) string { return a.CurrentPropertyStatus }, valid: nonEmpty},
	},
}

// propertyRules are the required step-1 fields, in reporting order.
var propertyRules = []struct {
	field string
	value func(p *models.PropertyPreferences) string
}{
	{"streetAddress", func(p *models.PropertyPreferences) string { return p.StreetAddress }},
	{"postcode", func(p *models.PropertyPreferences) string { return p.Postcode }},
	{"maxRent", func(p *models.PropertyPreferences) string { return p.MaxRent }},
	{"moveInDate", func(p *models.PropertyPreferences) string { return p.MoveInDate }},
	{"initialTenancyTerm", func(p *models.PropertyPreferences) string { return p.InitialTenancyTerm }},
}

// detailsRule is one step-5 rule. Keeping the conditional requirements in a
// single table here means the dynamic shape of the step lives in one place
// instead of branching at every call site.
type detailsRule struct {
	field   string
	invalid func(d *models.AdditionalDetails) bool
}

var detailsRules = []detailsRule{
	{"ukPassport", func(d *models.AdditionalDetails) bool { return !nonEmpty(d.UKPassport) }},
	{"adverseCredit", func(d *models.AdditionalDetails) bool { return !nonEmpty(d.AdverseCredit) }},
	{"guarantorRequired", func(d *models.AdditionalDetails) bool { return !nonEmpty(d.GuarantorRequired) }},
	{"pets", func(d *models.AdditionalDetails) bool { return d.Pets == nil }},
	{"depositType", func(d *models.AdditionalDetails) bool { return !nonEmpty(d.DepositType) }},
	// Zero is a valid answer; only an absent value is rejected.
	{"under18Count", func(d *models.AdditionalDetails) bool { return d.Under18Count == nil }},
	{"childrenDetails", func(d *models.AdditionalDetails) bool {
		return d.Children != nil && *d.Children &&
			d.ChildrenCount != models.ChildrenCountNone &&
			!nonEmpty(d.ChildrenDetails)
	}},
	{"petDetails", func(d *models.AdditionalDetails) bool {
		return d.Pets != nil && *d.Pets && !nonEmpty(d.PetDetails)
	}},
}

// ValidateStep returns the identifiers of every invalid field on the given
// step, first-invalid-first in declaration order, with applicants processed
// in list order. An empty result means the step is complete.
func ValidateStep(step int, applicants []*models.Applicant, prefs *models.PropertyPreferences,
	details *models.AdditionalDetails, signature string, termsAccepted bool, fullName string) []string {

	var invalid []string

	switch step {
	case 1:
		for _, rule := range propertyRules {
			if !nonEmpty(rule.value(prefs)) {
				invalid = append(invalid, rule.field)
			}
		}
	case 2, 3, 4:
		for _, a := range applicants {
			for _, rule := range applicantStepRules[step] {
				if !rule.valid(rule.value(a)) {
					invalid = append(invalid, rule.field+"-"+a.ID)
				}
			}
		}
	case 5:
		for _, rule := range detailsRules {
			if rule.invalid(details) {
				invalid = append(invalid, rule.field)
			}
		}
	case 6:
		if !termsAccepted {
			invalid = append(invalid, "termsAccepted")
		}
		if !nonEmpty(signature) {
			invalid = append(invalid, "signature")
		}
		if !nonEmpty(fullName) {
			invalid = append(invalid, "fullName")
		}
	}

	return invalid
}
