package models

import (
	"fmt"
	"strconv"
)

// ChildrenCountNone is the sentinel selector value meaning "no children",
// under which the children details elaboration is not required.
const ChildrenCountNone = "None"

// AdditionalDetails carries household composition and lifestyle disclosures.
// Boolean selectors use pointers so an unanswered question is distinguishable
// from an explicit "no"; the step validator treats nil as missing.
type AdditionalDetails struct {
	UKPassport        string `json:"ukPassport"`
	AdverseCredit     string `json:"adverseCredit"`
	AdverseCreditInfo string `json:"adverseCreditInfo"`
	GuarantorRequired string `json:"guarantorRequired"`
	DepositType       string `json:"depositType"`
	Under18Count      *int   `json:"under18Count"`

	Children        *bool  `json:"children"`
	ChildrenCount   string `json:"childrenCount"`
	ChildrenDetails string `json:"childrenDetails"`

	Pets       *bool  `json:"pets"`
	PetDetails string `json:"petDetails"`

	Smoking        *bool  `json:"smoking"`
	SmokingDetails string `json:"smokingDetails"`

	Parking        *bool  `json:"parking"`
	ParkingDetails string `json:"parkingDetails"`

	HouseholdIncome string `json:"householdIncome"`
}

// SetField replaces a single named field. Selector fields arrive as strings
// from the form layer; boolean and count fields are parsed here so the rest
// of the core works with typed values.
func (d *AdditionalDetails) SetField(field, value string) error {
	switch field {
	case "ukPassport":
		d.UKPassport = value
	case "adverseCredit":
		d.AdverseCredit = value
	case "adverseCreditInfo":
		d.AdverseCreditInfo = value
	case "guarantorRequired":
		d.GuarantorRequired = value
	case "depositType":
		d.DepositType = value
	case "under18Count":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("under18Count must be a number: %w", err)
		}
		d.Under18Count = &n
	case "children":
		b, err := parseSelectorBool(value)
		if err != nil {
			return fmt.Errorf("children: %w", err)
		}
		d.Children = b
	case "childrenCount":
		d.ChildrenCount = value
	case "childrenDetails":
		d.ChildrenDetails = value
	case "pets":
		b, err := parseSelectorBool(value)
		if err != nil {
			return fmt.Errorf("pets: %w", err)
		}
		d.Pets = b
	case "petDetails":
		d.PetDetails = value
	case "smoking":
		b, err := parseSelectorBool(value)
		if err != nil {
			return fmt.Errorf("smoking: %w", err)
		}
		d.Smoking = b
	case "smokingDetails":
		d.SmokingDetails = value
	case "parking":
		b, err := parseSelectorBool(value)
		if err != nil {
			return fmt.Errorf("parking: %w", err)
		}
		d.Parking = b
	case "parkingDetails":
		d.ParkingDetails = value
	case "householdIncome":
		d.HouseholdIncome = value
	default:
		return fmt.Errorf("unknown additional details field: %s", field)
	}
	return nil
}

func parseSelectorBool(value string) (*bool, error) {
	if value == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil, fmt.Errorf("expected true or false, got %q", value)
	}
	return &b, nil
}

// Clone returns a deep copy of the details.
func (d *AdditionalDetails) Clone() *AdditionalDetails {
	copied := *d
	if d.Under18Count != nil {
		n := *d.Under18Count
		copied.Under18Count = &n
	}
	copied.Children = cloneBool(d.Children)
	copied.Pets = cloneBool(d.Pets)
	copied.Smoking = cloneBool(d.Smoking)
	copied.Parking = cloneBool(d.Parking)
	return &copied
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

// DataSharing holds the two independent marketing consents. Both default to
// granted and the user opts out explicitly.
type DataSharing struct {
	Utilities bool `json:"utilities"`
	Insurance bool `json:"insurance"`
}

// DefaultDataSharing returns the consent defaults for a new application.
func DefaultDataSharing() DataSharing {
	return DataSharing{Utilities: true, Insurance: true}
}
