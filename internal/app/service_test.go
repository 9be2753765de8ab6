package app_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/okian/matchtune/internal/app"
	"github.com/okian/matchtune/internal/config"
	"github.com/okian/matchtune/internal/domain/evaluation"
	"github.com/okian/matchtune/internal/domain/model"
	"github.com/okian/matchtune/internal/domain/scoring"
	"github.com/okian/matchtune/pkg/logger"
	"github.com/okian/matchtune/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := app.New(app.WithMetrics(metrics.NewManager()))

		Convey("Then it uses the default configuration", func() {
			So(svc, ShouldNotBeNil)
			So(svc.Config().Evaluation.K, ShouldEqual, evaluation.DefaultK)
			w, err := svc.Weights()
			So(err, ShouldBeNil)
			So(w, ShouldResemble, scoring.BaseWeights())
		})
	})

	Convey("Given a configuration with custom evaluation settings", t, func() {
		cfg := config.New()
		cfg.Evaluation.K = 5
		cfg.Evaluation.Relevance = evaluation.RelevanceExponential
		cfg.Evaluation.EmptyPolicy = "zero"
		svc := app.New(app.WithConfig(cfg), app.WithMetrics(metrics.NewManager()))

		Convey("When the evaluator is built", func() {
			ev, err := svc.Evaluator()

			Convey("Then it reflects the configuration", func() {
				So(err, ShouldBeNil)
				So(ev.K(), ShouldEqual, 5)
				So(ev.Policy(), ShouldEqual, evaluation.PolicyZero)
				So(ev.RelevanceName(), ShouldEqual, evaluation.RelevanceExponential)
			})
		})
	})

	Convey("Given a configuration with an extra misspelled weight", t, func() {
		cfg := config.New()
		cfg.Weights["locaton"] = 1
		svc := app.New(app.WithConfig(cfg), app.WithMetrics(metrics.NewManager()))

		Convey("Then the weights are rejected", func() {
			_, err := svc.Weights()
			So(errors.Is(err, scoring.ErrUnknownWeight), ShouldBeTrue)
		})
	})
}

func TestService_Evaluate(t *testing.T) {
	Convey("Given an in-memory dataset", t, func() {
		ds := app.Dataset{
			Properties: []model.Property{
				{ID: 1, PropertyType: "apartment", City: "X", Size: 50, Price: 100000},
				{ID: 2, PropertyType: "house", City: "X", Size: 200, Price: 500000},
				{ID: 3, PropertyType: "apartment", City: "X", Size: 52, Price: 105000},
			},
			Profiles: []model.Profile{
				{ID: "p1", PropertyType: "apartment", City: "X", Size: 50, Price: 110000},
			},
			GroundTruth: model.GroundTruth{"p1": {{PropertyID: 1, Rank: 1}, {PropertyID: 3, Rank: 2}}},
		}
		var out bytes.Buffer
		svc := app.New(app.WithMetrics(metrics.NewManager()), app.WithOutput(&out))

		Convey("When the base weights are evaluated", func() {
			res, warnings, err := svc.Evaluate(context.Background(), ds)

			Convey("Then the labelled order is reproduced", func() {
				So(err, ShouldBeNil)
				So(warnings, ShouldBeEmpty)
				So(res.Mean, ShouldAlmostEqual, 1.0, 1e-12)
			})
		})

		Convey("When there is no ground truth", func() {
			ds.GroundTruth = model.GroundTruth{}
			res, _, err := svc.Evaluate(context.Background(), ds)

			Convey("Then the score is 0 and the caller is told why", func() {
				So(errors.Is(err, app.ErrNoGroundTruth), ShouldBeTrue)
				So(res.Mean, ShouldEqual, 0)
			})

			Convey("Then optimisation refuses to run", func() {
				_, err := svc.Optimize(context.Background(), ds)
				So(errors.Is(err, app.ErrNoGroundTruth), ShouldBeTrue)
			})
		})
	})
}

func TestService_LoadMissingGroundTruth(t *testing.T) {
	Convey("Given generated data and no ground truth file", t, func() {
		dir := t.TempDir()
		cfg := config.New()
		cfg.Synth.OutputDir = dir
		cfg.Synth.Properties = 30
		cfg.Synth.Profiles = 2
		cfg.Data.Properties = filepath.Join(dir, app.PropertiesFile)
		cfg.Data.Profiles = filepath.Join(dir, app.ProfilesFile)
		cfg.Data.GroundTruth = filepath.Join(dir, "missing.json")
		svc := app.New(app.WithConfig(cfg), app.WithMetrics(metrics.NewManager()))
		_, _, err := svc.Generate(context.Background())
		So(err, ShouldBeNil)

		Convey("When the dataset is loaded", func() {
			ds, err := svc.Load(context.Background())

			Convey("Then loading succeeds with empty ground truth", func() {
				So(err, ShouldBeNil)
				So(ds.Properties, ShouldHaveLength, 30)
				So(ds.Profiles, ShouldHaveLength, 2)
				So(ds.GroundTruth, ShouldBeEmpty)
			})
		})
	})
}
