// Package report turns an optimisation run into a document that can be
// saved as JSON, YAML or TOML, and into a short human-readable summary.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/okian/matchtune/internal/domain/evaluation"
	"github.com/okian/matchtune/internal/domain/features"
	"github.com/okian/matchtune/internal/domain/scoring"
	"github.com/okian/matchtune/internal/optimize"
)

// Format is a machine-readable encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ParseFormat resolves a format name; "yml" is accepted for YAML.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Scored pairs named weights with their objective.
type Scored struct {
	Weights map[string]float64 `json:"weights" yaml:"weights" toml:"weights"`
	Score   float64            `json:"score" yaml:"score" toml:"score"`
}

// Change is one weight's movement from baseline.
type Change struct {
	Name      string  `json:"name" yaml:"name" toml:"name"`
	Baseline  float64 `json:"baseline" yaml:"baseline" toml:"baseline"`
	Optimized float64 `json:"optimized" yaml:"optimized" toml:"optimized"`
	Delta     float64 `json:"delta" yaml:"delta" toml:"delta"`
}

// Method summarises one optimizer method run.
type Method struct {
	Name        string             `json:"name" yaml:"name" toml:"name"`
	Weights     map[string]float64 `json:"weights" yaml:"weights" toml:"weights"`
	Score       float64            `json:"score" yaml:"score" toml:"score"`
	Evaluations int                `json:"evaluations" yaml:"evaluations" toml:"evaluations"`
	Iterations  int                `json:"iterations" yaml:"iterations" toml:"iterations"`
	Duration    string             `json:"duration" yaml:"duration" toml:"duration"`
	Improved    bool               `json:"improved" yaml:"improved" toml:"improved"`
	Stop        string             `json:"stop" yaml:"stop" toml:"stop"`
}

// Ranked is one row of a profile's ranked list.
type Ranked struct {
	Position   int     `json:"position" yaml:"position" toml:"position"`
	PropertyID int64   `json:"property_id" yaml:"property_id" toml:"property_id"`
	Score      float64 `json:"score" yaml:"score" toml:"score"`
}

// Profile compares one profile before and after.
type Profile struct {
	ID        string   `json:"id" yaml:"id" toml:"id"`
	Labelled  int      `json:"labelled" yaml:"labelled" toml:"labelled"`
	Included  bool     `json:"included" yaml:"included" toml:"included"`
	Baseline  float64  `json:"baseline" yaml:"baseline" toml:"baseline"`
	Optimized float64  `json:"optimized" yaml:"optimized" toml:"optimized"`
	Top       []Ranked `json:"top,omitempty" yaml:"top,omitempty" toml:"top,omitempty"`
}

// Document is the full run report.
type Document struct {
	RunID       string    `json:"run_id" yaml:"run_id" toml:"run_id"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at" toml:"generated_at"`
	Seed        int64     `json:"seed" yaml:"seed" toml:"seed"`
	K           int       `json:"k" yaml:"k" toml:"k"`
	Relevance   string    `json:"relevance" yaml:"relevance" toml:"relevance"`
	Policy      string    `json:"empty_ground_truth_policy" yaml:"empty_ground_truth_policy" toml:"empty_ground_truth_policy"`
	Evaluated   int       `json:"evaluated_profiles" yaml:"evaluated_profiles" toml:"evaluated_profiles"`

	Baseline    Scored   `json:"baseline" yaml:"baseline" toml:"baseline"`
	Best        Scored   `json:"best" yaml:"best" toml:"best"`
	BestMethod  string   `json:"best_method" yaml:"best_method" toml:"best_method"`
	Improvement float64  `json:"improvement" yaml:"improvement" toml:"improvement"`
	RelativePct float64  `json:"improvement_pct" yaml:"improvement_pct" toml:"improvement_pct"`
	Changes     []Change `json:"changes" yaml:"changes" toml:"changes"`

	Methods  []Method  `json:"methods" yaml:"methods" toml:"methods"`
	Profiles []Profile `json:"profiles" yaml:"profiles" toml:"profiles"`
	Warnings []string  `json:"warnings,omitempty" yaml:"warnings,omitempty" toml:"warnings,omitempty"`
}

// Build assembles a Document from an optimizer report and the per-profile
// evaluations of its baseline and best weights.
func Build(run optimize.Report, baseline, best evaluation.Result, warnings []string) Document {
	doc := Document{
		RunID:       run.RunID,
		GeneratedAt: time.Now().UTC(),
		Seed:        run.Seed,
		K:           best.K,
		Relevance:   best.Relevance,
		Policy:      string(best.Policy),
		Evaluated:   best.Evaluated,
		Baseline:    Scored{Weights: run.Baseline.Map(), Score: run.BaselineScore},
		Best:        Scored{Weights: run.Best.Map(), Score: run.BestScore},
		BestMethod:  run.BestMethod,
		Improvement: run.BestScore - run.BaselineScore,
		Warnings:    warnings,
	}
	if run.BaselineScore > 0 {
		doc.RelativePct = doc.Improvement / run.BaselineScore * 100
	}
	for i, name := range features.Names {
		doc.Changes = append(doc.Changes, Change{
			Name:      name,
			Baseline:  at(run.Baseline, i),
			Optimized: at(run.Best, i),
			Delta:     at(run.Best, i) - at(run.Baseline, i),
		})
	}
	for _, m := range run.Methods {
		doc.Methods = append(doc.Methods, Method{
			Name:        m.Method,
			Weights:     m.Weights.Map(),
			Score:       m.Score,
			Evaluations: m.Evaluations,
			Iterations:  m.Iterations,
			Duration:    m.Duration.Round(time.Millisecond).String(),
			Improved:    m.Improved,
			Stop:        m.Stop,
		})
	}

	before := make(map[string]float64, len(baseline.Profiles))
	for _, p := range baseline.Profiles {
		before[p.ProfileID] = p.NDCG
	}
	for _, p := range best.Profiles {
		row := Profile{
			ID:        p.ProfileID,
			Labelled:  p.Labelled,
			Included:  p.Included,
			Baseline:  before[p.ProfileID],
			Optimized: p.NDCG,
		}
		for _, e := range p.Top {
			row.Top = append(row.Top, Ranked{Position: e.Position, PropertyID: e.PropertyID, Score: e.Score})
		}
		doc.Profiles = append(doc.Profiles, row)
	}
	return doc
}

func at(w scoring.Weights, i int) float64 {
	if i < len(w) {
		return w[i]
	}
	return 0
}

// Encode writes doc to w in the given format.
func Encode(w io.Writer, doc Document, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(doc)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Save writes doc to path, creating parent directories.
func Save(path string, doc Document, format Format) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteReport, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteReport, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrWriteReport, cerr)
		}
	}()
	if err := Encode(f, doc, format); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteReport, err)
	}
	return nil
}
