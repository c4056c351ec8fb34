package domain

import (
	"fmt"
	"strings"
	"time"
)

// EntityType distinguishes natural persons from legal entities. The matcher
// and the customer-type risk rule both branch on it.
type EntityType string

const (
	EntityIndividual EntityType = "individual"
	EntityCorporate  EntityType = "corporate"
)

// ParseEntityType validates an entity type string.
func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(strings.ToLower(s)) {
	case EntityIndividual:
		return EntityIndividual, nil
	case EntityCorporate:
		return EntityCorporate, nil
	}
	return "", fmt.Errorf("unknown entity type: %q", s)
}

// ClientIdentity is the subject of one screening run. It is immutable once a
// run starts; a changed identity means a new run.
type ClientIdentity struct {
	Name             string     `json:"name"`
	EntityType       EntityType `json:"entity_type"`
	DateOfBirth      string     `json:"date_of_birth,omitempty"` // YYYY-MM-DD, empty when unknown
	Nationality      string     `json:"nationality,omitempty"`
	ResidenceCountry string     `json:"residence_country,omitempty"`
	RegistrationNo   string     `json:"registration_no,omitempty"`
	RegistrationCtry string     `json:"registration_country,omitempty"`
	BusinessCountry  []string   `json:"business_countries,omitempty"`
	Industry         string     `json:"industry,omitempty"`
	Occupation       string     `json:"occupation,omitempty"`
	SearchTerms      []string   `json:"search_terms,omitempty"`

	// Structural flags declared at intake; they feed the customer-type
	// risk rule, not the matcher.
	ComplexStructure bool `json:"complex_structure,omitempty"`
	OffshoreElements bool `json:"offshore_elements,omitempty"`
}

// Validate checks the invariants a run depends on. Name is the only required
// field; everything else narrows searches or corroborates matches.
func (c ClientIdentity) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("client name is required")
	}
	if c.EntityType != EntityIndividual && c.EntityType != EntityCorporate {
		return fmt.Errorf("unknown entity type: %q", c.EntityType)
	}
	if c.DateOfBirth != "" {
		if _, err := time.Parse("2006-01-02", c.DateOfBirth); err != nil {
			return fmt.Errorf("date of birth must be YYYY-MM-DD: %w", err)
		}
	}
	return nil
}

// Countries returns every country attached to the identity, in declaration
// order: nationality, residence, registration, then business countries.
// The geographic risk rule takes the worst of these.
func (c ClientIdentity) Countries() []string {
	out := make([]string, 0, 3+len(c.BusinessCountry))
	for _, v := range []string{c.Nationality, c.ResidenceCountry, c.RegistrationCtry} {
		if v != "" {
			out = append(out, v)
		}
	}
	out = append(out, c.BusinessCountry...)
	return out
}
