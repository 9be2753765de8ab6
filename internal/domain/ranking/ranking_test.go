package ranking_test

import (
	"errors"
	"testing"

	"github.com/okian/matchtune/internal/domain/model"
	"github.com/okian/matchtune/internal/domain/ranking"
	"github.com/okian/matchtune/internal/domain/scoring"
	"github.com/okian/matchtune/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func scenarioCatalog() ([]model.Property, *model.Profile) {
	props := []model.Property{
		{ID: 1, PropertyType: "apartment", City: "X", Size: 50, Price: 100000},
		{ID: 2, PropertyType: "house", City: "X", Size: 200, Price: 500000},
		{ID: 3, PropertyType: "apartment", City: "X", Size: 52, Price: 105000},
	}
	profile := &model.Profile{ID: "p1", PropertyType: "apartment", City: "X", Size: 50, Price: 110000}
	return props, profile
}

func TestRanker_Rank(t *testing.T) {
	Convey("Given the three-property scenario", t, func() {
		props, profile := scenarioCatalog()
		r := ranking.New(nil)

		Convey("When ranking with base weights", func() {
			ids, err := r.Rank(props, profile, scoring.BaseWeights(), 10)

			Convey("Then the exact-size apartment leads and the house is last", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []int64{1, 3, 2})
			})
		})

		Convey("When ranking twice with identical inputs", func() {
			a, _ := r.Rank(props, profile, scoring.BaseWeights(), 10)
			b, _ := r.Rank(props, profile, scoring.BaseWeights(), 10)

			Convey("Then the order is identical", func() {
				So(a, ShouldResemble, b)
			})
		})

		Convey("When the input order is shuffled", func() {
			shuffled := []model.Property{props[2], props[1], props[0]}
			ids, err := r.Rank(shuffled, profile, scoring.BaseWeights(), 0)

			Convey("Then the result does not depend on input order", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []int64{1, 3, 2})
			})
		})

		Convey("When topN is smaller than the catalog", func() {
			entries, err := r.RankEntries(props, profile, scoring.BaseWeights(), 2)

			Convey("Then the list is truncated with 1-based positions", func() {
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 2)
				So(entries[0].Position, ShouldEqual, 1)
				So(entries[1].Position, ShouldEqual, 2)
				So(entries[0].Score, ShouldEqual, 115.0)
			})
		})

		Convey("When the weight vector is malformed", func() {
			_, err := r.Rank(props, profile, scoring.Weights{1}, 10)

			Convey("Then the error surfaces", func() {
				So(errors.Is(err, scoring.ErrWeightDimension), ShouldBeTrue)
			})
		})
	})
}

func TestRanker_TieBreak(t *testing.T) {
	Convey("Given properties with identical scores", t, func() {
		props := []model.Property{
			{ID: 9, PropertyType: "kontor", City: "Malmö", Size: 100, Price: 100},
			{ID: 4, PropertyType: "kontor", City: "Malmö", Size: 100, Price: 100},
			{ID: 7, PropertyType: "kontor", City: "Malmö", Size: 100, Price: 100},
		}
		profile := &model.Profile{ID: "p", PropertyType: "kontor", City: "Malmö", Size: 100, Price: 100}

		Convey("When ranking with zero weights", func() {
			ids, err := ranking.New(nil).Rank(props, profile, scoring.Weights{0, 0, 0, 0}, 10)

			Convey("Then ties resolve by ascending id", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []int64{4, 7, 9})
			})
		})
	})
}

func TestRanker_Monotonicity(t *testing.T) {
	Convey("Given one property that alone matches the desired type", t, func() {
		cities := []string{"Stockholm", "Göteborg", "Malmö"}
		var props []model.Property
		for i := int64(1); i <= 30; i++ {
			props = append(props, model.Property{
				ID:           i,
				PropertyType: "lager",
				City:         cities[i%3],
				Size:         float64(80 + i*3),
				Price:        float64(20000 + i*1500),
			})
		}
		props[17].PropertyType = "kontor"
		target := props[17].ID
		profile := &model.Profile{ID: "p", PropertyType: "kontor", City: "Malmö", Size: 120, Price: 45000}
		r := ranking.New(nil)

		Convey("When the type weight increases", func() {
			Convey("Then the property never moves down", func() {
				prev := len(props) + 1
				for w := 0.0; w <= 100; w += 5 {
					entries, err := r.RankEntries(props, profile, scoring.Weights{w, 30, 20, 15}, 0)
					So(err, ShouldBeNil)
					pos := positionOf(entries, target)
					So(pos, ShouldBeLessThanOrEqualTo, prev)
					prev = pos
				}
				So(prev, ShouldEqual, 1)
			})
		})
	})
}

func positionOf(entries []types.Entry, id int64) int {
	for _, e := range entries {
		if e.PropertyID == id {
			return e.Position
		}
	}
	return -1
}
