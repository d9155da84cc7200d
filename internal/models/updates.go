package models

// FieldUpdates is the closed set of fields an extraction pass may produce.
// Using a fixed struct instead of a loose map means a misspelled or unknown
// field name from the extraction layer fails at the decode boundary instead
// of being silently merged.
type FieldUpdates struct {
	Age                *int    `json:"age,omitempty"`
	Sex                *string `json:"sex,omitempty"`
	Occupation         *string `json:"occupation,omitempty"`
	MoveInDate         *string `json:"move_in_date,omitempty"`
	RentalDuration     *string `json:"rental_duration,omitempty"`
	GuarantorStatus    *string `json:"guarantor_status,omitempty"`
	GuarantorDetails   *string `json:"guarantor_details,omitempty"`
	ViewingInterest    *bool   `json:"viewing_interest,omitempty"`
	Availability       *string `json:"availability,omitempty"`
	LanguagePreference *string `json:"language_preference,omitempty"`
	PropertyInterest   *string `json:"property_interest,omitempty"`
}

// IsEmpty reports whether the pass extracted nothing.
func (u *FieldUpdates) IsEmpty() bool {
	return u == nil || len(u.Fields()) == 0
}

// Fields returns the names of the set fields in canonical order.
func (u *FieldUpdates) Fields() []string {
	if u == nil {
		return nil
	}
	var names []string
	if u.Age != nil {
		names = append(names, "age")
	}
	if u.Sex != nil {
		names = append(names, "sex")
	}
	if u.Occupation != nil {
		names = append(names, "occupation")
	}
	if u.MoveInDate != nil {
		names = append(names, "move_in_date")
	}
	if u.RentalDuration != nil {
		names = append(names, "rental_duration")
	}
	if u.GuarantorStatus != nil {
		names = append(names, "guarantor_status")
	}
	if u.GuarantorDetails != nil {
		names = append(names, "guarantor_details")
	}
	if u.ViewingInterest != nil {
		names = append(names, "viewing_interest")
	}
	if u.Availability != nil {
		names = append(names, "availability")
	}
	if u.LanguagePreference != nil {
		names = append(names, "language_preference")
	}
	if u.PropertyInterest != nil {
		names = append(names, "property_interest")
	}
	return names
}

// Apply writes every set field onto the profile. Fields absent from the
// update are untouched, so a value already collected is never cleared by a
// later pass that did not extract it.
func (u *FieldUpdates) Apply(p *TenantProfile) {
	if u == nil {
		return
	}
	if u.Age != nil {
		p.Age = *u.Age
	}
	if u.Sex != nil {
		p.Sex = *u.Sex
	}
	if u.Occupation != nil {
		p.Occupation = *u.Occupation
	}
	if u.MoveInDate != nil {
		p.MoveInDate = *u.MoveInDate
	}
	if u.RentalDuration != nil {
		p.RentalDuration = *u.RentalDuration
	}
	if u.GuarantorStatus != nil {
		p.GuarantorStatus = *u.GuarantorStatus
	}
	if u.GuarantorDetails != nil {
		p.GuarantorDetails = *u.GuarantorDetails
	}
	if u.ViewingInterest != nil {
		v := *u.ViewingInterest
		p.ViewingInterest = &v
	}
	if u.Availability != nil {
		p.Availability = *u.Availability
	}
	if u.LanguagePreference != nil {
		p.LanguagePreference = *u.LanguagePreference
	}
	if u.PropertyInterest != nil {
		p.PropertyInterest = *u.PropertyInterest
	}
}

// Int returns a pointer to v, for building updates inline.
func Int(v int) *int { return &v }

// String returns a pointer to v, for building updates inline.
func String(v string) *string { return &v }

// Bool returns a pointer to v, for building updates inline.
func Bool(v bool) *bool { return &v }
