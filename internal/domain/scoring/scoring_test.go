package scoring_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/matchtune/internal/domain/features"
	"github.com/okian/matchtune/internal/domain/model"
	"github.com/okian/matchtune/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScorer_Score(t *testing.T) {
	Convey("Given a scorer with the default extractor", t, func() {
		scorer := scoring.NewScorer()
		profile := &model.Profile{ID: "p1", PropertyType: "kontor", City: "Stockholm", Size: 100, Price: 50000}

		Convey("When scoring a perfect match with base weights", func() {
			prop := &model.Property{ID: 1, PropertyType: "kontor", City: "Stockholm", Size: 100, Price: 40000}
			score, err := scorer.Score(prop, profile, scoring.BaseWeights())

			Convey("Then the score is the sum of the weights", func() {
				So(err, ShouldBeNil)
				So(score, ShouldEqual, 115.0)
			})
		})

		Convey("When scoring a partial match", func() {
			prop := &model.Property{ID: 2, PropertyType: "lager", City: "Stockholm", Size: 115, Price: 40000}
			score, err := scorer.Score(prop, profile, scoring.Weights{10, 10, 10, 10})

			Convey("Then each signal contributes its weighted share", func() {
				So(err, ShouldBeNil)
				So(score, ShouldAlmostEqual, 0+10+5+10, 1e-9)
			})
		})

		Convey("When weights are negative or zero", func() {
			prop := &model.Property{ID: 3, PropertyType: "kontor", City: "Stockholm", Size: 100, Price: 40000}
			score, err := scorer.Score(prop, profile, scoring.Weights{-5, 0, 0, 1})

			Convey("Then scoring still succeeds", func() {
				So(err, ShouldBeNil)
				So(score, ShouldEqual, -4.0)
			})
		})

		Convey("When the weight vector has the wrong dimension", func() {
			prop := &model.Property{ID: 4, PropertyType: "kontor", City: "Stockholm", Size: 100, Price: 40000}

			Convey("Then it fails fast instead of truncating or padding", func() {
				_, err := scorer.Score(prop, profile, scoring.Weights{1, 2, 3})
				So(errors.Is(err, scoring.ErrWeightDimension), ShouldBeTrue)

				_, err = scorer.Score(prop, profile, scoring.Weights{1, 2, 3, 4, 5})
				So(errors.Is(err, scoring.ErrWeightDimension), ShouldBeTrue)
			})
		})

		Convey("When a weight is NaN", func() {
			prop := &model.Property{ID: 5, PropertyType: "kontor", City: "Stockholm", Size: 100, Price: 40000}
			_, err := scorer.Score(prop, profile, scoring.Weights{1, math.NaN(), 3, 4})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, scoring.ErrNonFiniteWeight), ShouldBeTrue)
			})
		})

		Convey("When scoring the same pair twice", func() {
			prop := &model.Property{ID: 6, PropertyType: "kontor", City: "Göteborg", Size: 93, Price: 52000}
			w := scoring.Weights{61.3, 35.1, 24.7, 12.9}
			a, _ := scorer.Score(prop, profile, w)
			b, _ := scorer.Score(prop, profile, w)

			Convey("Then results are bit-for-bit identical", func() {
				So(math.Float64bits(a), ShouldEqual, math.Float64bits(b))
			})
		})
	})
}

func TestScorer_Options(t *testing.T) {
	Convey("Given a scorer with a custom extractor", t, func() {
		ext := features.New(features.WithTypeAffinity(map[string]float64{"kontor:butik": 0.5}))
		scorer := scoring.NewScorer(scoring.WithExtractor(ext))
		profile := &model.Profile{ID: "p1", PropertyType: "kontor", City: "Malmö", Size: 100, Price: 50000}
		prop := &model.Property{ID: 1, PropertyType: "butik", City: "Stockholm", Size: 300, Price: 90000}

		Convey("Then partial type credit flows into the score", func() {
			score, err := scorer.Score(prop, profile, scoring.Weights{40, 0, 0, 0})
			So(err, ShouldBeNil)
			So(score, ShouldEqual, 20.0)
			So(scorer.Extractor(), ShouldPointTo, ext)
		})

		Convey("Then a nil extractor option keeps the default", func() {
			s := scoring.NewScorer(scoring.WithExtractor(nil))
			So(s.Extractor(), ShouldNotBeNil)
		})
	})
}

func TestWeights(t *testing.T) {
	Convey("Given named weights", t, func() {
		Convey("When all four names are present", func() {
			w, err := scoring.WeightsFromMap(map[string]float64{
				"property_type": 60, "location": 35, "size": 25, "price": 12,
			})

			Convey("Then they are ordered by feature index", func() {
				So(err, ShouldBeNil)
				So(w, ShouldResemble, scoring.Weights{60, 35, 25, 12})
				So(w.Map(), ShouldResemble, map[string]float64{
					"property_type": 60, "location": 35, "size": 25, "price": 12,
				})
			})
		})

		Convey("When a name is missing", func() {
			_, err := scoring.WeightsFromMap(map[string]float64{"property_type": 1, "location": 1, "size": 1})

			Convey("Then a dimension error is returned", func() {
				So(errors.Is(err, scoring.ErrWeightDimension), ShouldBeTrue)
			})
		})

		Convey("When an unknown name is present", func() {
			_, err := scoring.WeightsFromMap(map[string]float64{
				"property_type": 1, "location": 1, "size": 1, "price": 1, "garden": 3,
			})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, scoring.ErrUnknownWeight), ShouldBeTrue)
			})
		})

		Convey("When rendering base weights", func() {
			Convey("Then names and values are shown", func() {
				So(scoring.BaseWeights().String(), ShouldEqual, "property_type=50 location=30 size=20 price=15")
			})
		})
	})
}
