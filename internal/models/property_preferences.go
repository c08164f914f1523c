package models

import "fmt"

// PropertyPreferences describes the rental property being applied for.
// A single instance exists per application and is mutated field by field.
type PropertyPreferences struct {
	PropertyType       string `json:"propertyType"`
	StreetAddress      string `json:"streetAddress"`
	Postcode           string `json:"postcode"`
	MaxRent            string `json:"maxRent"`
	PreferredLocation  string `json:"preferredLocation"`
	MoveInDate         string `json:"moveInDate"`
	LatestMoveInDate   string `json:"latestMoveInDate"`
	InitialTenancyTerm string `json:"initialTenancyTerm"`
	AdditionalRequests string `json:"additionalRequests"`
}

// SetField replaces a single named field on the preferences object.
func (p *PropertyPreferences) SetField(field, value string) error {
	switch field {
	case "propertyType":
		p.PropertyType = value
	case "streetAddress":
		p.StreetAddress = value
	case "postcode":
		p.Postcode = value
	case "maxRent":
		p.MaxRent = value
	case "preferredLocation":
		p.PreferredLocation = value
	case "moveInDate":
		p.MoveInDate = value
	case "latestMoveInDate":
		p.LatestMoveInDate = value
	case "initialTenancyTerm":
		p.InitialTenancyTerm = value
	case "additionalRequests":
		p.AdditionalRequests = value
	default:
		return fmt.Errorf("unknown property preferences field: %s", field)
	}
	return nil
}

// Clone returns a copy of the preferences.
func (p *PropertyPreferences) Clone() *PropertyPreferences {
	copied := *p
	return &copied
}
