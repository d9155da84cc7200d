package models

import "time"

// RequiredFields are the profile fields that must be collected before a
// prospect can be auto-qualified. Order matters: MissingFields reports in
// this order so conversational prompts stay stable across turns.
var RequiredFields = []string{
	"age",
	"sex",
	"occupation",
	"move_in_date",
	"rental_duration",
	"guarantor_status",
}

// TenantProfile is the structured record built incrementally from a tenant's
// messages. Zero values mean "not yet collected"; ViewingInterest is a
// pointer because "not interested" is a real answer.
type TenantProfile struct {
	Age                int          `json:"age,omitempty" db:"age"`
	Sex                string       `json:"sex,omitempty" db:"sex"`
	Occupation         string       `json:"occupation,omitempty" db:"occupation"`
	MoveInDate         string       `json:"moveInDate,omitempty" db:"move_in_date"`
	RentalDuration     string       `json:"rentalDuration,omitempty" db:"rental_duration"`
	GuarantorStatus    string       `json:"guarantorStatus,omitempty" db:"guarantor_status"`
	GuarantorDetails   string       `json:"guarantorDetails,omitempty" db:"guarantor_details"`
	ViewingInterest    *bool        `json:"viewingInterest,omitempty" db:"viewing_interest"`
	Availability       string       `json:"availability,omitempty" db:"availability"`
	LanguagePreference string       `json:"languagePreference,omitempty" db:"language_preference"`
	Status             TenantStatus `json:"status" db:"status"`
	PropertyInterest   string       `json:"propertyInterest,omitempty" db:"property_interest"`
	Notes              string       `json:"notes,omitempty" db:"notes"`
	CreatedAt          time.Time    `json:"createdAt" db:"created_at"`
	LastUpdated        time.Time    `json:"lastUpdated" db:"last_updated"`
	ConversationTurns  int          `json:"conversationTurns" db:"conversation_turns"`
}

// NewTenantProfile returns an empty prospect profile stamped with now.
func NewTenantProfile(now time.Time) *TenantProfile {
	return &TenantProfile{
		Status:      StatusProspect,
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// FieldSet reports whether the named required field holds a value.
func (p *TenantProfile) FieldSet(name string) bool {
	switch name {
	case "age":
		return p.Age > 0
	case "sex":
		return p.Sex != ""
	case "occupation":
		return p.Occupation != ""
	case "move_in_date":
		return p.MoveInDate != ""
	case "rental_duration":
		return p.RentalDuration != ""
	case "guarantor_status":
		return p.GuarantorStatus != ""
	}
	return false
}

// MissingFields returns the required fields still empty, in canonical order.
func (p *TenantProfile) MissingFields() []string {
	missing := []string{}
	for _, name := range RequiredFields {
		if !p.FieldSet(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Complete reports whether every required field has been collected.
func (p *TenantProfile) Complete() bool {
	return len(p.MissingFields()) == 0
}

// Snapshot returns the known required fields plus language preference as a
// flat map, used for extraction context and notification payloads.
func (p *TenantProfile) Snapshot() map[string]interface{} {
	snap := map[string]interface{}{}
	if p.Age > 0 {
		snap["age"] = p.Age
	}
	if p.Sex != "" {
		snap["sex"] = p.Sex
	}
	if p.Occupation != "" {
		snap["occupation"] = p.Occupation
	}
	if p.MoveInDate != "" {
		snap["move_in_date"] = p.MoveInDate
	}
	if p.RentalDuration != "" {
		snap["rental_duration"] = p.RentalDuration
	}
	if p.GuarantorStatus != "" {
		snap["guarantor_status"] = p.GuarantorStatus
	}
	if p.LanguagePreference != "" {
		snap["language_preference"] = p.LanguagePreference
	}
	return snap
}
