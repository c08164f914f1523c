package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"rentdesk/internal/models"
)

// Renderer produces the tenancy application PDF handed to storage and
// attached to notification emails.
type Renderer interface {
	Render(app *models.Application) ([]byte, error)
}

type renderer struct {
	agencyName  string
	agencyEmail string
}

// NewRenderer creates a renderer branded with the letting agency's details.
func NewRenderer(agencyName, agencyEmail string) Renderer {
	return &renderer{agencyName: agencyName, agencyEmail: agencyEmail}
}

// Render lays out the full application on A4: property section, one block
// per applicant, disclosures, consents and the signed declaration.
func (r *renderer) Render(app *models.Application) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	marginX := 20.0
	marginY := 20.0
	pdf.SetMargins(marginX, marginY, marginX)
	pdf.SetAutoPageBreak(true, marginY)

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(33, 37, 41)
	pdf.SetXY(marginX, marginY)
	pdf.Cell(0, 10, strings.ToUpper(r.agencyName)+" - TENANCY APPLICATION")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Application ID: %s", app.ID.String()))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Submitted: %s", app.SubmittedAt.Format("02-Jan-2006 15:04")))
	pdf.Ln(10)

	r.sectionHeader(pdf, "PROPERTY")
	r.keyValue(pdf, "Property type", app.Property.PropertyType)
	r.keyValue(pdf, "Address", app.Property.StreetAddress)
	r.keyValue(pdf, "Postcode", app.Property.Postcode)
	r.keyValue(pdf, "Maximum rent", app.Property.MaxRent)
	r.keyValue(pdf, "Preferred location", app.Property.PreferredLocation)
	r.keyValue(pdf, "Move-in date", app.Property.MoveInDate)
	r.keyValue(pdf, "Latest move-in date", app.Property.LatestMoveInDate)
	r.keyValue(pdf, "Initial tenancy term", app.Property.InitialTenancyTerm)
	r.keyValue(pdf, "Additional requests", app.Property.AdditionalRequests)
	pdf.Ln(4)

	for i, a := range app.Applicants {
		r.sectionHeader(pdf, fmt.Sprintf("APPLICANT %d", i+1))
		r.keyValue(pdf, "Name", strings.TrimSpace(a.FirstName+" "+a.LastName))
		r.keyValue(pdf, "Email", a.Email)
		r.keyValue(pdf, "Phone", a.Phone)
		r.keyValue(pdf, "Date of birth", a.DateOfBirth)
		r.keyValue(pdf, "Employment status", a.EmploymentStatus)
		r.keyValue(pdf, "Employer", a.Employer)
		r.keyValue(pdf, "Job title", a.JobTitle)
		r.keyValue(pdf, "Annual income", a.AnnualIncome)
		r.keyValue(pdf, "Length of service", a.LengthOfService)
		r.keyValue(pdf, "Current address", a.CurrentAddress)
		r.keyValue(pdf, "Current postcode", a.CurrentPostcode)
		r.keyValue(pdf, "Property status", a.CurrentPropertyStatus)
		r.keyValue(pdf, "Time at address", a.TimeAtAddress)
		r.keyValue(pdf, "Landlord contact", a.LandlordContact)
		pdf.Ln(4)
	}

	r.sectionHeader(pdf, "ADDITIONAL DETAILS")
	r.keyValue(pdf, "UK passport", app.Details.UKPassport)
	r.keyValue(pdf, "Adverse credit", app.Details.AdverseCredit)
	r.keyValue(pdf, "Guarantor required", app.Details.GuarantorRequired)
	r.keyValue(pdf, "Deposit type", app.Details.DepositType)
	if app.Details.Under18Count != nil {
		r.keyValue(pdf, "Occupants under 18", fmt.Sprintf("%d", *app.Details.Under18Count))
	}
	r.keyValue(pdf, "Children", yesNo(app.Details.Children))
	r.keyValue(pdf, "Children details", app.Details.ChildrenDetails)
	r.keyValue(pdf, "Pets", yesNo(app.Details.Pets))
	r.keyValue(pdf, "Pet details", app.Details.PetDetails)
	r.keyValue(pdf, "Smoking", yesNo(app.Details.Smoking))
	r.keyValue(pdf, "Parking", yesNo(app.Details.Parking))
	r.keyValue(pdf, "Household income", app.Details.HouseholdIncome)
	pdf.Ln(4)

	r.sectionHeader(pdf, "DATA SHARING")
	r.keyValue(pdf, "Utilities providers", boolYesNo(app.DataSharing.Utilities))
	r.keyValue(pdf, "Insurance providers", boolYesNo(app.DataSharing.Insurance))
	pdf.Ln(4)

	r.sectionHeader(pdf, "DECLARATION")
	r.keyValue(pdf, "Full name", app.FullName)
	r.keyValue(pdf, "Terms accepted", boolYesNo(app.TermsAccepted))
	if strings.HasPrefix(app.Signature, "data:image") {
		r.keyValue(pdf, "Signature", "(signed electronically)")
	} else {
		r.keyValue(pdf, "Signature", app.Signature)
	}

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(128, 128, 128)
	pdf.Cell(0, 5, "This is a computer generated document.")
	pdf.Ln(5)
	pdf.Cell(0, 5, fmt.Sprintf("For any queries, contact: %s", r.agencyEmail))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *renderer) sectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(240, 240, 240)
	pdf.SetTextColor(33, 37, 41)
	pdf.CellFormat(0, 8, title, "1", 0, "L", true, 0, "")
	pdf.Ln(10)
}

func (r *renderer) keyValue(pdf *gofpdf.Fpdf, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(50, 6, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.MultiCell(0, 6, value, "", "L", false)
}

func yesNo(b *bool) string {
	if b == nil {
		return ""
	}
	return boolYesNo(*b)
}

func boolYesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
