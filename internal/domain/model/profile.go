package model

import (
	"encoding/json"
	"fmt"
)

// Profile describes what a searcher wants.
type Profile struct {
	ID           string  `json:"id"`
	PropertyType string  `json:"property_type"`
	City         string  `json:"city"`
	Size         float64 `json:"size"`  // target square meters
	Price        float64 `json:"price"` // maximum budget
}

// UnmarshalJSON accepts the flat form {id, property_type, city, size, price}
// and the wrapped export form {profile_id, profile: {..., square_meters, max_price}}.
func (p *Profile) UnmarshalJSON(data []byte) error {
	type fields struct {
		PropertyType string  `json:"property_type"`
		City         string  `json:"city"`
		Size         *Amount `json:"size"`
		SquareMeters *Amount `json:"square_meters"`
		Price        *Amount `json:"price"`
		MaxPrice     *Amount `json:"max_price"`
	}
	var raw struct {
		fields
		ID        *flexID `json:"id"`
		ProfileID *flexID `json:"profile_id"`
		Profile   *fields `json:"profile"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	f := raw.fields
	if raw.Profile != nil {
		f = *raw.Profile
	}
	var id string
	switch {
	case raw.ID != nil:
		id = string(*raw.ID)
	case raw.ProfileID != nil:
		id = string(*raw.ProfileID)
	}

	*p = Profile{
		ID:           id,
		PropertyType: f.PropertyType,
		City:         f.City,
		Size:         firstAmount(f.Size, f.SquareMeters),
		Price:        firstAmount(f.Price, f.MaxPrice),
	}
	return nil
}

// Validate reports the first missing or out-of-range field.
func (p Profile) Validate() error {
	switch {
	case p.ID == "":
		return fmt.Errorf("profile: %w: id", ErrMissingField)
	case p.PropertyType == "":
		return fmt.Errorf("profile %s: %w: property_type", p.ID, ErrMissingField)
	case p.City == "":
		return fmt.Errorf("profile %s: %w: city", p.ID, ErrMissingField)
	case !positive(p.Size):
		return fmt.Errorf("profile %s: %w: size must be positive, got %v", p.ID, ErrInvalidField, p.Size)
	case !positive(p.Price):
		return fmt.Errorf("profile %s: %w: price must be positive, got %v", p.ID, ErrInvalidField, p.Price)
	}
	return nil
}

// ValidateProfiles validates every profile and rejects duplicate ids.
func ValidateProfiles(profiles []Profile) error {
	seen := make(map[string]struct{}, len(profiles))
	for i := range profiles {
		if err := profiles[i].Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if _, dup := seen[profiles[i].ID]; dup {
			return fmt.Errorf("profile %s: %w", profiles[i].ID, ErrDuplicateID)
		}
		seen[profiles[i].ID] = struct{}{}
	}
	return nil
}
