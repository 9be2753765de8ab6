package app_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/matchtune/internal/app"
	"github.com/okian/matchtune/internal/config"
	"github.com/okian/matchtune/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func smallConfig(dir string) *config.Config {
	cfg := config.New()
	cfg.Synth.OutputDir = dir
	cfg.Synth.Properties = 120
	cfg.Synth.Profiles = 6
	cfg.Data.Properties = filepath.Join(dir, app.PropertiesFile)
	cfg.Data.Profiles = filepath.Join(dir, app.ProfilesFile)
	cfg.Data.GroundTruth = filepath.Join(dir, "ground_truth.json")
	cfg.Labels.Output = cfg.Data.GroundTruth
	cfg.Optimizer.Population = 8
	cfg.Optimizer.Generations = 10
	cfg.Optimizer.Samples = 50
	cfg.Optimizer.SimplexIterations = 30
	cfg.Optimizer.Workers = 2
	cfg.Report.Path = filepath.Join(dir, "report.yaml")
	cfg.Report.Format = "yaml"
	cfg.Report.MetricsPath = filepath.Join(dir, "metrics.prom")
	return cfg
}

func TestService_EndToEnd(t *testing.T) {
	Convey("Given a generated catalog labelled by rule", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		cfg := smallConfig(dir)
		var out bytes.Buffer
		svc := app.New(app.WithConfig(cfg), app.WithMetrics(metrics.NewManager()), app.WithOutput(&out))

		_, _, err := svc.Generate(ctx)
		So(err, ShouldBeNil)
		catalog, err := svc.LoadCatalog(ctx)
		So(err, ShouldBeNil)
		gt, err := svc.Label(ctx, catalog)
		So(err, ShouldBeNil)
		So(gt, ShouldNotBeEmpty)

		Convey("When the weights are optimized", func() {
			ds, err := svc.Load(ctx)
			So(err, ShouldBeNil)
			doc, err := svc.Optimize(ctx, ds)
			So(err, ShouldBeNil)

			Convey("Then the result never falls below the baseline", func() {
				So(doc.Best.Score, ShouldBeGreaterThanOrEqualTo, doc.Baseline.Score)
				So(doc.Best.Score, ShouldBeBetweenOrEqual, 0, 1)
				So(doc.Methods, ShouldHaveLength, 3)
				So(doc.Policy, ShouldEqual, "exclude")
			})

			Convey("Then the bounds hold for every reported weight", func() {
				for _, c := range doc.Changes {
					So(c.Optimized, ShouldBeBetweenOrEqual, cfg.Optimizer.LowerBound, cfg.Optimizer.UpperBound)
				}
			})

			Convey("Then the report and metrics files are written", func() {
				data, err := os.ReadFile(cfg.Report.Path)
				So(err, ShouldBeNil)
				So(string(data), ShouldContainSubstring, "run_id: "+doc.RunID)

				prom, err := os.ReadFile(cfg.Report.MetricsPath)
				So(err, ShouldBeNil)
				So(string(prom), ShouldContainSubstring, "matchtune_ranking_mean_ndcg")
			})

			Convey("Then the summary prints", func() {
				So(svc.Summarize(doc), ShouldBeNil)
				So(out.String(), ShouldContainSubstring, "Baseline NDCG:")
			})

			Convey("Then a second run with the same seed agrees", func() {
				again, err := app.New(app.WithConfig(cfg), app.WithMetrics(metrics.NewManager()), app.WithOutput(&bytes.Buffer{})).Optimize(ctx, ds)
				So(err, ShouldBeNil)
				So(again.Best.Weights, ShouldResemble, doc.Best.Weights)
				So(again.Best.Score, ShouldEqual, doc.Best.Score)
				So(strings.Compare(again.RunID, doc.RunID), ShouldNotEqual, 0)
			})
		})
	})
}
