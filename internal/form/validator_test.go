package form

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rentdesk/internal/models"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func completeApplicant(id string) *models.Applicant {
	a := models.NewApplicant(id)
	a.FirstName = "Jane"
	a.LastName = "Doe"
	a.Email = "jane.doe@example.com"
	a.Phone = "07700900123"
	a.EmploymentStatus = "Employed"
	a.AnnualIncome = "32000"
	a.CurrentAddress = "1 High Street"
	a.CurrentPostcode = "AB1 2CD"
	a.CurrentPropertyStatus = "Renting"
	return a
}

func completePrefs() *models.PropertyPreferences {
	return &models.PropertyPreferences{
		StreetAddress:      "42 Station Road",
		Postcode:           "XY9 8ZW",
		MaxRent:            "1200",
		MoveInDate:         "2026-10-01",
		InitialTenancyTerm: "12 months",
	}
}

func completeDetails() *models.AdditionalDetails {
	return &models.AdditionalDetails{
		UKPassport:        "Yes",
		AdverseCredit:     "No",
		GuarantorRequired: "No",
		DepositType:       "Standard",
		Under18Count:      intPtr(0),
		Pets:              boolPtr(false),
	}
}

func TestValidateStep1_AllFieldsMissing(t *testing.T) {
	invalid := ValidateStep(1, nil, &models.PropertyPreferences{}, &models.AdditionalDetails{}, "", false, "")
	assert.Equal(t, []string{"streetAddress", "postcode", "maxRent", "moveInDate", "initialTenancyTerm"}, invalid)
}

func TestValidateStep1_WhitespaceIsMissing(t *testing.T) {
	prefs := completePrefs()
	prefs.MaxRent = "   "
	invalid := ValidateStep(1, nil, prefs, nil, "", false, "")
	assert.Equal(t, []string{"maxRent"}, invalid)
}

func TestValidateStep1_Complete(t *testing.T) {
	invalid := ValidateStep(1, nil, completePrefs(), nil, "", false, "")
	assert.Empty(t, invalid)
}

func TestValidateStep2_FieldIdentifiersCarryApplicantID(t *testing.T) {
	a := models.NewApplicant("1")
	invalid := ValidateStep(2, []*models.Applicant{a}, nil, nil, "", false, "")
	assert.Equal(t, []string{"firstName-1", "lastName-1", "email-1", "phone-1"}, invalid)
}

func TestValidateStep2_EmailFormat(t *testing.T) {
	cases := []struct {
		email string
		valid bool
	}{
		{"jane@example.com", true},
		{"jane.doe+flat2@lettings.co.uk", true},
		{"not-an-email", false},
		{"missing@tld", false},
		{"spaces in@example.com", false},
		{"@example.com", false},
		{"jane@", false},
		{"", false},
	}
	for _, tc := range cases {
		a := completeApplicant("1")
		a.Email = tc.email
		invalid := ValidateStep(2, []*models.Applicant{a}, nil, nil, "", false, "")
		if tc.valid {
			assert.Empty(t, invalid, "email %q should be accepted", tc.email)
		} else {
			assert.Equal(t, []string{"email-1"}, invalid, "email %q should be rejected", tc.email)
		}
	}
}

func TestValidateStep2_MultipleApplicantsOrdered(t *testing.T) {
	first := completeApplicant("1")
	second := models.NewApplicant("2")
	second.FirstName = "Sam"
	third := models.NewApplicant("3")

	invalid := ValidateStep(2, []*models.Applicant{first, second, third}, nil, nil, "", false, "")
	assert.Equal(t, []string{
		"lastName-2", "email-2", "phone-2",
		"firstName-3", "lastName-3", "email-3", "phone-3",
	}, invalid)
}

func TestValidateStep3_EmploymentFields(t *testing.T) {
	a := completeApplicant("1")
	a.EmploymentStatus = ""
	a.AnnualIncome = ""
	invalid := ValidateStep(3, []*models.Applicant{a}, nil, nil, "", false, "")
	assert.Equal(t, []string{"employmentStatus-1", "annualIncome-1"}, invalid)
}

func TestValidateStep4_ResidenceFields(t *testing.T) {
	a := completeApplicant("2")
	a.CurrentPostcode = ""
	invalid := ValidateStep(4, []*models.Applicant{a}, nil, nil, "", false, "")
	assert.Equal(t, []string{"currentPostcode-2"}, invalid)
}

func TestValidateStep5_AllMissing(t *testing.T) {
	invalid := ValidateStep(5, nil, nil, &models.AdditionalDetails{}, "", false, "")
	assert.Equal(t, []string{
		"ukPassport", "adverseCredit", "guarantorRequired", "pets",
		"depositType", "under18Count",
	}, invalid)
}

func TestValidateStep5_Complete(t *testing.T) {
	invalid := ValidateStep(5, nil, nil, completeDetails(), "", false, "")
	assert.Empty(t, invalid)
}

func TestValidateStep5_ZeroUnder18IsValid(t *testing.T) {
	details := completeDetails()
	details.Under18Count = intPtr(0)
	invalid := ValidateStep(5, nil, nil, details, "", false, "")
	assert.NotContains(t, invalid, "under18Count")
}

func TestValidateStep5_NilUnder18IsMissing(t *testing.T) {
	details := completeDetails()
	details.Under18Count = nil
	invalid := ValidateStep(5, nil, nil, details, "", false, "")
	assert.Equal(t, []string{"under18Count"}, invalid)
}

func TestValidateStep5_PetsExplicitNoIsValid(t *testing.T) {
	details := completeDetails()
	details.Pets = boolPtr(false)
	invalid := ValidateStep(5, nil, nil, details, "", false, "")
	assert.Empty(t, invalid)
}

func TestValidateStep5_PetDetailsRequiredWhenPetsYes(t *testing.T) {
	details := completeDetails()
	details.Pets = boolPtr(true)
	invalid := ValidateStep(5, nil, nil, details, "", false, "")
	assert.Equal(t, []string{"petDetails"}, invalid)

	details.PetDetails = "One small dog"
	invalid = ValidateStep(5, nil, nil, details, "", false, "")
	assert.Empty(t, invalid)
}

func TestValidateStep5_ChildrenDetailsConditional(t *testing.T) {
	details := completeDetails()

	// Children with a real count requires elaboration.
	details.Children = boolPtr(true)
	details.ChildrenCount = "2"
	invalid := ValidateStep(5, nil, nil, details, "", false, "")
	assert.Equal(t, []string{"childrenDetails"}, invalid)

	// Count of "None" lifts the requirement even with children=true.
	details.ChildrenCount = models.ChildrenCountNone
	invalid = ValidateStep(5, nil, nil, details, "", false, "")
	assert.Empty(t, invalid)

	// children=false never requires elaboration.
	details.Children = boolPtr(false)
	details.ChildrenCount = "2"
	invalid = ValidateStep(5, nil, nil, details, "", false, "")
	assert.Empty(t, invalid)
}

func TestValidateStep6_Declaration(t *testing.T) {
	invalid := ValidateStep(6, nil, nil, nil, "", false, "")
	assert.Equal(t, []string{"termsAccepted", "signature", "fullName"}, invalid)

	invalid = ValidateStep(6, nil, nil, nil, "   ", true, "\t")
	assert.Equal(t, []string{"signature", "fullName"}, invalid)

	invalid = ValidateStep(6, nil, nil, nil, "Jane Doe", true, "Jane Doe")
	assert.Empty(t, invalid)
}

func TestValidateStep6_SignatureImagePayloadAccepted(t *testing.T) {
	invalid := ValidateStep(6, nil, nil, nil, "data:image/png;base64,iVBORw0KGgo=", true, "Jane Doe")
	assert.Empty(t, invalid)
}
