// Package model contains the immutable records the ranking pipeline reads:
// properties, search profiles and hand-labelled ground truth.
package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// Property is one listing in the catalog.
type Property struct {
	ID           int64   `json:"id"`
	PropertyType string  `json:"property_type"`
	City         string  `json:"city"`
	Size         float64 `json:"size"`  // square meters
	Price        float64 `json:"price"` // per month
}

// UnmarshalJSON accepts the canonical field names as well as the catalog
// export names square_meters and price_per_month (string or number).
func (p *Property) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID            int64   `json:"id"`
		PropertyType  string  `json:"property_type"`
		City          string  `json:"city"`
		Size          *Amount `json:"size"`
		SquareMeters  *Amount `json:"square_meters"`
		Price         *Amount `json:"price"`
		PricePerMonth *Amount `json:"price_per_month"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Property{
		ID:           raw.ID,
		PropertyType: raw.PropertyType,
		City:         raw.City,
		Size:         firstAmount(raw.Size, raw.SquareMeters),
		Price:        firstAmount(raw.Price, raw.PricePerMonth),
	}
	return nil
}

// Validate reports the first missing or out-of-range field.
func (p Property) Validate() error {
	switch {
	case p.ID <= 0:
		return fmt.Errorf("property %d: %w: id", p.ID, ErrMissingField)
	case p.PropertyType == "":
		return fmt.Errorf("property %d: %w: property_type", p.ID, ErrMissingField)
	case p.City == "":
		return fmt.Errorf("property %d: %w: city", p.ID, ErrMissingField)
	case !positive(p.Size):
		return fmt.Errorf("property %d: %w: size must be positive, got %v", p.ID, ErrInvalidField, p.Size)
	case !positive(p.Price):
		return fmt.Errorf("property %d: %w: price must be positive, got %v", p.ID, ErrInvalidField, p.Price)
	}
	return nil
}

// ValidateProperties validates every property and rejects duplicate ids.
func ValidateProperties(props []Property) error {
	seen := make(map[int64]struct{}, len(props))
	for i := range props {
		if err := props[i].Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if _, dup := seen[props[i].ID]; dup {
			return fmt.Errorf("property %d: %w", props[i].ID, ErrDuplicateID)
		}
		seen[props[i].ID] = struct{}{}
	}
	return nil
}

func firstAmount(vals ...*Amount) float64 {
	for _, v := range vals {
		if v != nil {
			return float64(*v)
		}
	}
	return 0
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
