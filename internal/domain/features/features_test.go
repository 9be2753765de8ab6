package features_test

import (
	"math"
	"testing"

	"github.com/okian/matchtune/internal/domain/features"
	"github.com/okian/matchtune/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExtract(t *testing.T) {
	Convey("Given the default extractor", t, func() {
		e := features.New()
		profile := &model.Profile{ID: "p1", PropertyType: "apartment", City: "X", Size: 50, Price: 110000}

		Convey("When the property matches exactly", func() {
			prop := &model.Property{ID: 1, PropertyType: "apartment", City: "X", Size: 50, Price: 100000}
			v := e.Extract(prop, profile)

			Convey("Then every signal is 1", func() {
				So(v, ShouldResemble, features.Vector{1, 1, 1, 1})
			})
		})

		Convey("When type and city differ only in case and whitespace", func() {
			prop := &model.Property{ID: 2, PropertyType: " Apartment", City: "x ", Size: 50, Price: 100000}
			v := e.Extract(prop, profile)

			Convey("Then they still match", func() {
				So(v[features.PropertyType], ShouldEqual, 1)
				So(v[features.Location], ShouldEqual, 1)
			})
		})

		Convey("When the property is a mismatched house", func() {
			prop := &model.Property{ID: 3, PropertyType: "house", City: "Y", Size: 200, Price: 500000}
			v := e.Extract(prop, profile)

			Convey("Then every signal is 0", func() {
				So(v, ShouldResemble, features.Vector{0, 0, 0, 0})
			})
		})
	})
}

func TestSizeFit(t *testing.T) {
	Convey("Given the default size bands", t, func() {
		e := features.New()

		Convey("Then the curve is piecewise linear and continuous", func() {
			So(e.SizeFit(50, 50), ShouldEqual, 1)
			So(e.SizeFit(52, 50), ShouldAlmostEqual, 1-0.5*0.04/0.15, 1e-12)
			So(e.SizeFit(57.5, 50), ShouldAlmostEqual, 0.5, 1e-12)
			So(e.SizeFit(42.5, 50), ShouldAlmostEqual, 0.5, 1e-12)
			So(e.SizeFit(61.25, 50), ShouldAlmostEqual, 0.25, 1e-12)
			So(e.SizeFit(65, 50), ShouldEqual, 0)
			So(e.SizeFit(200, 50), ShouldEqual, 0)
		})

		Convey("Then it is monotonically non-increasing in deviation", func() {
			prev := 1.0
			for size := 50.0; size <= 80; size += 0.5 {
				v := e.SizeFit(size, 50)
				So(v, ShouldBeLessThanOrEqualTo, prev)
				So(v, ShouldBeBetweenOrEqual, 0, 1)
				prev = v
			}
		})

		Convey("Then degenerate inputs score 0", func() {
			So(e.SizeFit(50, 0), ShouldEqual, 0)
			So(e.SizeFit(math.NaN(), 50), ShouldEqual, 0)
		})
	})

	Convey("Given custom size bands", t, func() {
		e := features.New(features.WithSizeBands(0.1, 0.5))

		Convey("Then the half-credit point moves", func() {
			So(e.SizeFit(55, 50), ShouldAlmostEqual, 0.5, 1e-12)
			So(e.SizeFit(75, 50), ShouldEqual, 0)
		})
	})

	Convey("Given invalid size bands", t, func() {
		e := features.New(features.WithSizeBands(0.3, 0.1))

		Convey("Then the defaults are kept", func() {
			So(e.SizeFit(57.5, 50), ShouldAlmostEqual, 0.5, 1e-12)
		})
	})
}

func TestPriceFit(t *testing.T) {
	Convey("Given the default price tolerance", t, func() {
		e := features.New()

		Convey("Then under or at budget is full credit", func() {
			So(e.PriceFit(10000, 110000), ShouldEqual, 1)
			So(e.PriceFit(110000, 110000), ShouldEqual, 1)
		})

		Convey("Then overshoot decays linearly to 0", func() {
			So(e.PriceFit(115500, 110000), ShouldAlmostEqual, 0.5, 1e-9)
			So(e.PriceFit(121000, 110000), ShouldAlmostEqual, 0, 1e-9)
			So(e.PriceFit(500000, 110000), ShouldEqual, 0)
		})

		Convey("Then a missing budget scores 0", func() {
			So(e.PriceFit(100, 0), ShouldEqual, 0)
		})
	})

	Convey("Given a wider tolerance", t, func() {
		e := features.New(features.WithPriceTolerance(0.5))

		Convey("Then overshoot is forgiven longer", func() {
			So(e.PriceFit(125, 100), ShouldAlmostEqual, 0.5, 1e-12)
		})
	})
}

func TestTypeAffinity(t *testing.T) {
	Convey("Given a type affinity table", t, func() {
		e := features.New(features.WithTypeAffinity(map[string]float64{
			"Kontor:butik": 0.4,
			"lager:butik":  7,
			"malformed":    1,
		}))

		Convey("Then related types get symmetric partial credit", func() {
			So(e.TypeMatch("kontor", "butik"), ShouldEqual, 0.4)
			So(e.TypeMatch("BUTIK", "kontor"), ShouldEqual, 0.4)
		})

		Convey("Then values are clamped to 1", func() {
			So(e.TypeMatch("lager", "butik"), ShouldEqual, 1)
		})

		Convey("Then unrelated or empty types score 0", func() {
			So(e.TypeMatch("kontor", "lager"), ShouldEqual, 0)
			So(e.TypeMatch("", ""), ShouldEqual, 0)
		})
	})
}

func TestCityMatch(t *testing.T) {
	Convey("Given two cities", t, func() {
		Convey("Then equality ignores case", func() {
			So(features.CityMatch("Göteborg", "göteborg"), ShouldEqual, 1)
			So(features.CityMatch("Malmö", "Stockholm"), ShouldEqual, 0)
			So(features.CityMatch("", ""), ShouldEqual, 0)
		})
	})
}
