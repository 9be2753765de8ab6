// Package dataset reads and writes the JSON files the tuner works on:
// the property catalog, the profiles and the labelled ground truth.
//
// Both flat arrays and the wrapped forms ({"properties": [...]},
// {"profiles": [...]}, {"ground_truth": {...}}) are accepted on read.
// Writers always emit the wrapped form for profiles and ground truth and a
// flat array for properties.
package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/okian/matchtune/internal/domain/model"
	"github.com/okian/matchtune/pkg/metrics"
)

// Record kinds used as metric labels.
const (
	KindProperties  = "properties"
	KindProfiles    = "profiles"
	KindGroundTruth = "ground_truth"
)

// Option configures a Store.
type Option func(*Store)

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Store loads and saves dataset files.
type Store struct {
	metrics *metrics.Manager
}

// New creates a Store.
func New(opts ...Option) *Store {
	s := &Store{metrics: metrics.Global()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type propertiesEnvelope struct {
	Properties []model.Property `json:"properties"`
}

type profilesEnvelope struct {
	Profiles []model.Profile `json:"profiles"`
}

// LoadProperties reads and validates a property catalog.
func (s *Store) LoadProperties(path string) ([]model.Property, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var props []model.Property
	if isArray(data) {
		err = json.Unmarshal(data, &props)
	} else {
		var env propertiesEnvelope
		err = json.Unmarshal(data, &env)
		props = env.Properties
	}
	if err != nil {
		s.metrics.RecordValidationError(KindProperties)
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	if err := model.ValidateProperties(props); err != nil {
		s.metrics.RecordValidationError(KindProperties)
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.metrics.RecordRecordsLoaded(KindProperties, len(props))
	return props, nil
}

// LoadProfiles reads and validates profiles.
func (s *Store) LoadProfiles(path string) ([]model.Profile, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var profiles []model.Profile
	if isArray(data) {
		err = json.Unmarshal(data, &profiles)
	} else {
		var env profilesEnvelope
		err = json.Unmarshal(data, &env)
		profiles = env.Profiles
	}
	if err != nil {
		s.metrics.RecordValidationError(KindProfiles)
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	if err := model.ValidateProfiles(profiles); err != nil {
		s.metrics.RecordValidationError(KindProfiles)
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.metrics.RecordRecordsLoaded(KindProfiles, len(profiles))
	return profiles, nil
}

// LoadGroundTruth reads and validates labelled matches. A missing file
// returns ErrNotFound so callers can treat it as "no labels yet".
func (s *Store) LoadGroundTruth(path string) (model.GroundTruth, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var gt model.GroundTruth
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		s.metrics.RecordValidationError(KindGroundTruth)
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	if _, wrapped := top["ground_truth"]; wrapped {
		var f model.GroundTruthFile
		err = json.Unmarshal(data, &f)
		gt = f.GroundTruth
	} else {
		err = json.Unmarshal(data, &gt)
	}
	if err != nil {
		s.metrics.RecordValidationError(KindGroundTruth)
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	if gt == nil {
		gt = model.GroundTruth{}
	}
	if err := gt.Validate(); err != nil {
		s.metrics.RecordValidationError(KindGroundTruth)
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	n := 0
	for _, matches := range gt {
		n += len(matches)
	}
	s.metrics.RecordRecordsLoaded(KindGroundTruth, n)
	return gt, nil
}

// WriteProperties writes props as an indented JSON array.
func (s *Store) WriteProperties(path string, props []model.Property) error {
	return WriteJSON(path, props)
}

// WriteProfiles writes profiles in the wrapped form.
func (s *Store) WriteProfiles(path string, profiles []model.Profile) error {
	return WriteJSON(path, profilesEnvelope{Profiles: profiles})
}

// WriteGroundTruth writes gt in the wrapped form.
func (s *Store) WriteGroundTruth(path string, gt model.GroundTruth) error {
	return WriteJSON(path, model.GroundTruthFile{GroundTruth: gt})
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFile, err)
	}
	return data, nil
}

// WriteJSON writes v as indented JSON, creating parent directories.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %w", ErrWriteFile, path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFile, err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { //nolint:gosec // dataset files are not secret
		return fmt.Errorf("%w: %w", ErrWriteFile, err)
	}
	return nil
}

func isArray(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '['
}
