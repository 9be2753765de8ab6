package model

import (
	"cmp"
	"fmt"
	"slices"
)

// Match is one labelled property for a profile; Rank 1 is the best match.
type Match struct {
	PropertyID int64 `json:"property_id"`
	Rank       int   `json:"rank"`
}

// GroundTruth maps profile id to its labelled matches. Ranks are unique
// positive integers per profile; gaps are allowed.
type GroundTruth map[string][]Match

// GroundTruthFile is the on-disk envelope.
type GroundTruthFile struct {
	GroundTruth GroundTruth `json:"ground_truth"`
}

// Validate checks rank and id invariants for every profile.
func (gt GroundTruth) Validate() error {
	for _, profileID := range gt.ProfileIDs() {
		ranks := make(map[int]struct{}, len(gt[profileID]))
		ids := make(map[int64]struct{}, len(gt[profileID]))
		for _, m := range gt[profileID] {
			if m.PropertyID <= 0 {
				return fmt.Errorf("ground truth %s: %w: property_id", profileID, ErrMissingField)
			}
			if m.Rank <= 0 {
				return fmt.Errorf("ground truth %s: property %d: %w: rank %d", profileID, m.PropertyID, ErrInvalidRank, m.Rank)
			}
			if _, dup := ranks[m.Rank]; dup {
				return fmt.Errorf("ground truth %s: %w: rank %d used twice", profileID, ErrInvalidRank, m.Rank)
			}
			if _, dup := ids[m.PropertyID]; dup {
				return fmt.Errorf("ground truth %s: property %d: %w", profileID, m.PropertyID, ErrDuplicateID)
			}
			ranks[m.Rank] = struct{}{}
			ids[m.PropertyID] = struct{}{}
		}
	}
	return nil
}

// Ordered returns the profile's property ids sorted by rank, best first.
// Unknown profiles yield nil.
func (gt GroundTruth) Ordered(profileID string) []int64 {
	matches := slices.Clone(gt[profileID])
	slices.SortFunc(matches, func(a, b Match) int { return cmp.Compare(a.Rank, b.Rank) })
	out := make([]int64, len(matches))
	for i, m := range matches {
		out[i] = m.PropertyID
	}
	return out
}

// ProfileIDs returns the profile ids in sorted order.
func (gt GroundTruth) ProfileIDs() []string {
	ids := make([]string, 0, len(gt))
	for id := range gt {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
