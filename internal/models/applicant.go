package models

import "fmt"

// Applicant holds one prospective tenant's details on a tenancy application.
// IDs are opaque strings assigned by the form controller and never change
// once the applicant is created.
type Applicant struct {
	ID string `json:"id"`

	// Personal
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"dateOfBirth"`

	// Employment
	EmploymentStatus string `json:"employmentStatus"`
	Employer         string `json:"employer"`
	JobTitle         string `json:"jobTitle"`
	AnnualIncome     string `json:"annualIncome"`
	LengthOfService  string `json:"lengthOfService"`

	// Current residence
	CurrentAddress        string `json:"currentAddress"`
	CurrentPostcode       string `json:"currentPostcode"`
	CurrentPropertyStatus string `json:"currentPropertyStatus"`
	TimeAtAddress         string `json:"timeAtAddress"`
	LandlordContact       string `json:"landlordContact"`
	MoveInDate            string `json:"moveInDate"`
	VacateDate            string `json:"vacateDate"`

	// Legacy free-text fields kept from earlier versions of the form
	Pets              string `json:"pets"`
	AdverseCreditInfo string `json:"adverseCreditInfo"`
	PreviousAddress   string `json:"previousAddress"`
}

// NewApplicant returns an applicant with the given id and all fields empty.
func NewApplicant(id string) *Applicant {
	return &Applicant{ID: id}
}

// SetField replaces a single named field on the applicant. The id is not
// addressable through this method, so mutation can never change identity.
func (a *Applicant) SetField(field, value string) error {
	switch field {
	case "firstName":
		a.FirstName = value
	case "lastName":
		a.LastName = value
	case "email":
		a.Email = value
	case "phone":
		a.Phone = value
	case "dateOfBirth":
		a.DateOfBirth = value
	case "employmentStatus":
		a.EmploymentStatus = value
	case "employer":
		a.Employer = value
	case "jobTitle":
		a.JobTitle = value
	case "annualIncome":
		a.AnnualIncome = value
	case "lengthOfService":
		a.LengthOfService = value
	case "currentAddress":
		a.CurrentAddress = value
	case "currentPostcode":
		a.CurrentPostcode = value
	case "currentPropertyStatus":
		a.CurrentPropertyStatus = value
	case "timeAtAddress":
		a.TimeAtAddress = value
	case "landlordContact":
		a.LandlordContact = value
	case "moveInDate":
		a.MoveInDate = value
	case "vacateDate":
		a.VacateDate = value
	case "pets":
		a.Pets = value
	case "adverseCreditInfo":
		a.AdverseCreditInfo = value
	case "previousAddress":
		a.PreviousAddress = value
	default:
		return fmt.Errorf("unknown applicant field: %s", field)
	}
	return nil
}

// Clone returns a copy of the applicant.
func (a *Applicant) Clone() *Applicant {
	copied := *a
	return &copied
}

// GuarantorInfo backs an applicant's lease obligations. It references the
// applicant by id only; the guarantor record itself is captured externally.
type GuarantorInfo struct {
	ApplicantID  string `json:"applicantId"`
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
}
