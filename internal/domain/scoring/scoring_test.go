package scoring_test

import (
	"testing"

	"github.com/okian/skillcheck/internal/domain/model"
	scoring "github.com/okian/skillcheck/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLikertScore(t *testing.T) {
	Convey("Given the Likert mapping", t, func() {
		Convey("When the rating is within 1..5", func() {
			Convey("Then the score should be 20 times the rating", func() {
				for r := 1; r <= 5; r++ {
					So(scoring.LikertScore(r), ShouldEqual, 20*r)
				}
			})
		})

		Convey("When the rating is out of range", func() {
			Convey("Then the score should be 0", func() {
				for _, r := range []int{-3, 0, 6, 10, 100} {
					So(scoring.LikertScore(r), ShouldEqual, 0)
				}
			})
		})
	})
}

func TestGlobalScore(t *testing.T) {
	Convey("Given weights 0.6 / 0.4", t, func() {
		w := scoring.Weights{Likert: 0.6, Open: 0.4}

		Convey("When the Likert average is 60 and the open score 80", func() {
			Convey("Then the global score should be 68", func() {
				So(scoring.GlobalScore(60, 80, w), ShouldEqual, 68)
			})
		})

		Convey("When the weighted sum has a fractional part", func() {
			Convey("Then it should be rounded half away from zero", func() {
				So(scoring.GlobalScore(62.5, 0, scoring.Weights{Likert: 1}), ShouldEqual, 63)
				So(scoring.GlobalScore(33.3, 0, scoring.Weights{Likert: 1}), ShouldEqual, 33)
			})
		})

		Convey("When the weights do not sum to 1", func() {
			odd := scoring.Weights{Likert: 0.5, Open: 0.3}

			Convey("Then the formula is still applied as is", func() {
				So(odd.Normalized(), ShouldBeFalse)
				So(scoring.GlobalScore(100, 100, odd), ShouldEqual, 80)
			})
		})

		Convey("Then default weights should be normalized", func() {
			So(scoring.DefaultWeights().Normalized(), ShouldBeTrue)
		})
	})
}

func TestAverage(t *testing.T) {
	Convey("Given a list of scores", t, func() {
		Convey("When it is empty", func() {
			So(scoring.Average(nil), ShouldEqual, 0)
		})

		Convey("When it has values", func() {
			So(scoring.Average([]int{40, 60, 80}), ShouldEqual, 60)
			So(scoring.Average([]int{20, 40}), ShouldEqual, 30)
		})
	})
}

func TestEngine_Score(t *testing.T) {
	Convey("Given an engine with 0.6 / 0.4 weights", t, func() {
		engine := scoring.NewEngine(scoring.WithWeights(scoring.Weights{Likert: 0.6, Open: 0.4}))

		Convey("When scoring three Likert answers and an open-ended answer", func() {
			res := engine.Score(scoring.Input{
				SkillID:   "communication",
				SkillName: "Communication",
				Ratings: []scoring.Rating{
					{IndicatorID: "listening", Name: "Active listening", Value: 2},
					{IndicatorID: "clarity", Name: "Clarity", Value: 3},
					{IndicatorID: "empathy", Name: "Empathy", Value: 4},
				},
				OpenEnded: model.IndicatorScore{ID: "open", Name: "Scenario", Score: 80, Feedback: "Solid."},
			})

			Convey("Then each rating should become an indicator", func() {
				So(len(res.Indicators), ShouldEqual, 4)
				So(res.Indicators[0].Score, ShouldEqual, 40)
				So(res.Indicators[1].Score, ShouldEqual, 60)
				So(res.Indicators[2].Score, ShouldEqual, 80)
			})

			Convey("And the open-ended item should be appended with its feedback", func() {
				So(res.Indicators[3].ID, ShouldEqual, "open")
				So(res.Indicators[3].Feedback, ShouldEqual, "Solid.")
			})

			Convey("And the global score should combine both parts", func() {
				So(res.LikertAverage, ShouldEqual, 60)
				So(res.GlobalScore, ShouldEqual, 68)
			})
		})

		Convey("When there are no Likert answers", func() {
			res := engine.Score(scoring.Input{
				SkillID:   "leadership",
				OpenEnded: model.IndicatorScore{ID: "open", Score: 50},
			})

			Convey("Then the Likert average should be 0, not an error", func() {
				So(res.LikertAverage, ShouldEqual, 0)
				So(res.GlobalScore, ShouldEqual, 20)
			})
		})

		Convey("When the open-ended score is out of range", func() {
			res := engine.Score(scoring.Input{OpenEnded: model.IndicatorScore{ID: "open", Score: 140}})

			Convey("Then it should be clamped to 100", func() {
				So(res.OpenScore, ShouldEqual, 100)
				So(res.Indicators[0].Score, ShouldEqual, 100)
			})
		})

		Convey("When the open-ended item has no ID", func() {
			res := engine.Score(scoring.Input{
				Ratings:   []scoring.Rating{{IndicatorID: "a", Value: 5}},
				OpenEnded: model.IndicatorScore{Score: 0},
			})

			Convey("Then it should not be listed", func() {
				So(len(res.Indicators), ShouldEqual, 1)
			})
		})

		Convey("When the same input is scored twice", func() {
			in := scoring.Input{Ratings: []scoring.Rating{{IndicatorID: "a", Value: 3}}, OpenEnded: model.IndicatorScore{ID: "o", Score: 77}}

			Convey("Then results should be identical", func() {
				So(engine.Score(in), ShouldResemble, engine.Score(in))
			})
		})
	})
}

func TestEngine_Options(t *testing.T) {
	Convey("Given engine options", t, func() {
		Convey("When no weights are given", func() {
			So(scoring.NewEngine().Weights(), ShouldResemble, scoring.DefaultWeights())
		})

		Convey("When negative weights are given", func() {
			engine := scoring.NewEngine(scoring.WithWeights(scoring.Weights{Likert: -1, Open: 2}))
			So(engine.Weights(), ShouldResemble, scoring.DefaultWeights())
		})

		Convey("When custom weights are given", func() {
			engine := scoring.NewEngine(scoring.WithWeights(scoring.Weights{Likert: 1, Open: 0}))
			res := engine.Score(scoring.Input{
				Ratings:   []scoring.Rating{{IndicatorID: "a", Value: 5}},
				OpenEnded: model.IndicatorScore{ID: "o", Score: 0},
			})
			So(res.GlobalScore, ShouldEqual, 100)
		})
	})
}

func TestClamp(t *testing.T) {
	Convey("Given scores outside 0..100", t, func() {
		So(scoring.Clamp(-5), ShouldEqual, 0)
		So(scoring.Clamp(101), ShouldEqual, 100)
		So(scoring.Clamp(42), ShouldEqual, 42)
	})
}
