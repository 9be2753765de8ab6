// Package types contains common types used across the application
package types

// Entry is one row of a ranked list. Position is 1-based.
type Entry struct {
	Position   int     `json:"position" yaml:"position"`
	PropertyID int64   `json:"property_id" yaml:"property_id"`
	Score      float64 `json:"score" yaml:"score"`
}

// IDs returns the property ids of entries in order.
func IDs(entries []Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.PropertyID
	}
	return out
}
