package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			manager := NewManager()

			Convey("Then it should own a private registry", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Registry(), ShouldNotBeNil)
				So(manager.Registry(), ShouldNotPointTo, Global().Registry())
			})
		})

		Convey("When creating two managers with default options", func() {
			Convey("Then registration should not collide", func() {
				So(func() {
					NewManager()
					NewManager()
				}, ShouldNotPanic)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithRun("optimize", 7),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metrics should use the custom names", func() {
				manager.UpdateMeanNDCG(0.75)
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var names []string
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_ranking_mean_ndcg")

				labels := map[string]string{}
				for _, f := range families {
					if f.GetName() != "test_ranking_mean_ndcg" {
						continue
					}
					for _, l := range f.GetMetric()[0].GetLabel() {
						labels[l.GetName()] = l.GetValue()
					}
				}
				So(labels, ShouldResemble, map[string]string{"env": "test", "command": "optimize", "seed": "7"})
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a metrics manager", t, func() {
		m := NewManager()

		Convey("When recording evaluations", func() {
			m.RecordEvaluation("differential_evolution", 1.2)
			m.RecordEvaluation("differential_evolution", 0.8)
			m.RecordEvaluation("nelder_mead", 0.3)

			Convey("Then counters are split by method", func() {
				So(testutil.ToFloat64(m.evaluations.WithLabelValues("differential_evolution")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.evaluations.WithLabelValues("nelder_mead")), ShouldEqual, 1)
				So(testutil.CollectAndCount(m.evaluationLatency), ShouldEqual, 1)
			})
		})

		Convey("When recording optimizer outcomes", func() {
			m.RecordIteration("random_search")
			m.UpdateBestObjective("random_search", 0.9)
			m.RecordMethodRun("random_search", true)
			m.RecordMethodRun("nelder_mead", false)

			Convey("Then each outcome is labelled", func() {
				So(testutil.ToFloat64(m.generations.WithLabelValues("random_search")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.bestObjective.WithLabelValues("random_search")), ShouldEqual, 0.9)
				So(testutil.ToFloat64(m.methodRuns.WithLabelValues("random_search", "improved")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.methodRuns.WithLabelValues("nelder_mead", "baseline")), ShouldEqual, 1)
			})
		})

		Convey("When recording input data", func() {
			m.RecordRecordsLoaded("properties", 500)
			m.RecordValidationError("profiles")
			m.UpdateProfileNDCG("profile_1", 0.5)

			Convey("Then the values are visible", func() {
				So(testutil.ToFloat64(m.recordsLoaded.WithLabelValues("properties")), ShouldEqual, 500)
				So(testutil.ToFloat64(m.validationErrors.WithLabelValues("profiles")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.profileNDCG.WithLabelValues("profile_1")), ShouldEqual, 0.5)
			})
		})
	})
}

func TestGlobalManager(t *testing.T) {
	Convey("Given the global manager", t, func() {
		g := Global()

		Convey("Then it is shared and records like any other", func() {
			So(Global(), ShouldPointTo, g)
			So(func() { g.RecordMethodRun("differential_evolution", true) }, ShouldNotPanic)
			So(testutil.ToFloat64(g.methodRuns.WithLabelValues("differential_evolution", "improved")), ShouldBeGreaterThanOrEqualTo, 1)
		})
	})
}

func TestWriteTextfile(t *testing.T) {
	Convey("Given a manager with data", t, func() {
		m := NewManager()
		m.UpdateMeanNDCG(0.42)
		path := filepath.Join(t.TempDir(), "matchtune.prom")

		Convey("When writing the textfile", func() {
			err := m.WriteTextfile(path)

			Convey("Then the file holds the exposition text", func() {
				So(err, ShouldBeNil)
				data, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(strings.Contains(string(data), "matchtune_ranking_mean_ndcg 0.42"), ShouldBeTrue)
			})
		})

		Convey("When the target directory does not exist", func() {
			err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))

			Convey("Then an export error is returned", func() {
				So(errors.Is(err, ErrExportFailed), ShouldBeTrue)
			})
		})
	})
}
