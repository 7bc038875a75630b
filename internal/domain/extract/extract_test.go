package extract_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/okian/skillcheck/internal/domain/extract"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExtract_Inline(t *testing.T) {
	Convey("Given text carrying the inline exercise object", t, func() {
		Convey("When the text is exactly the object", func() {
			res, ok := extract.Extract(`{"exerciseScore": 85, "exerciseScoreJustification": "Good structure."}`)

			Convey("Then the score and justification should be recovered", func() {
				So(ok, ShouldBeTrue)
				So(res.Score, ShouldEqual, 85)
				So(res.Justification, ShouldEqual, "Good structure.")
				So(res.Strategy, ShouldEqual, extract.StrategyInline)
			})

			Convey("And the display text should no longer contain it", func() {
				So(res.Text, ShouldEqual, "")
			})
		})

		Convey("When the object follows the mentor's message on its own line", func() {
			res, ok := extract.Extract("Great job on the plan.\n\n{\"exerciseScore\": 70, \"exerciseScoreJustification\": \"Clear steps.\"}")

			Convey("Then only the message should remain", func() {
				So(ok, ShouldBeTrue)
				So(res.Score, ShouldEqual, 70)
				So(res.Text, ShouldEqual, "Great job on the plan.")
			})
		})

		Convey("When the object sits in the middle of a sentence", func() {
			res, _ := extract.Extract(`Before {"exerciseScore": 10, "exerciseScoreJustification": "x"} after`)

			Convey("Then the halves should be joined with one space", func() {
				So(res.Text, ShouldEqual, "Before after")
			})
		})

		Convey("When the justification has escaped quotes", func() {
			res, ok := extract.Extract(`{"exerciseScore": 90, "exerciseScoreJustification": "Used \"STAR\" well."}`)

			Convey("Then they should be unescaped", func() {
				So(ok, ShouldBeTrue)
				So(res.Justification, ShouldEqual, `Used "STAR" well.`)
			})
		})

		Convey("When the score is out of range", func() {
			high, _ := extract.Extract(`{"exerciseScore": 140, "exerciseScoreJustification": "x"}`)
			low, _ := extract.Extract(`{"exerciseScore": -5, "exerciseScoreJustification": "x"}`)

			Convey("Then it should be clamped to 0..100", func() {
				So(high.Score, ShouldEqual, 100)
				So(low.Score, ShouldEqual, 0)
			})
		})
	})
}

func TestExtract_Object(t *testing.T) {
	Convey("Given text with a JSON object the inline pattern does not match", t, func() {
		Convey("When fields are reordered and the score is a numeric string", func() {
			res, ok := extract.Extract(`Here you go: {"exerciseScoreJustification": "Clear steps.", "exerciseScore": "77.6"}`)

			Convey("Then the score should be coerced and rounded", func() {
				So(ok, ShouldBeTrue)
				So(res.Strategy, ShouldEqual, extract.StrategyObject)
				So(res.Score, ShouldEqual, 78)
				So(res.Justification, ShouldEqual, "Clear steps.")
				So(res.Text, ShouldEqual, "Here you go:")
			})
		})

		Convey("When the justification is not a string", func() {
			res, ok := extract.Extract(`{"exerciseScore": 55, "exerciseScoreJustification": ["a", "b"]}`)

			Convey("Then it should be coerced to text", func() {
				So(ok, ShouldBeTrue)
				So(res.Score, ShouldEqual, 55)
				So(res.Justification, ShouldEqual, `["a","b"]`)
			})
		})

		Convey("When the fields live in a nested object", func() {
			res, ok := extract.Extract(`Result: {"meta": {"exerciseScoreJustification": "Partial.", "exerciseScore": 40}}`)

			Convey("Then the inner object should be accepted", func() {
				So(ok, ShouldBeTrue)
				So(res.Strategy, ShouldEqual, extract.StrategyObject)
				So(res.Score, ShouldEqual, 40)
			})

			Convey("Then the whole wrapper should be stripped", func() {
				So(res.Text, ShouldEqual, "Result:")
			})
		})

		Convey("When a nested object sits on its own line after prose", func() {
			res, ok := extract.Extract("Nice work.\n{\"meta\": {\"exerciseScoreJustification\": \"Partial.\", \"exerciseScore\": 40}}")

			Convey("Then only the prose should remain", func() {
				So(ok, ShouldBeTrue)
				So(res.Text, ShouldEqual, "Nice work.")
			})
		})

		Convey("When the inline pattern matches inside a wrapper object", func() {
			res, ok := extract.Extract(`Done. {"data": {"exerciseScore": 70, "exerciseScoreJustification": "Solid."}} Keep going.`)

			Convey("Then the wrapper should be stripped too", func() {
				So(ok, ShouldBeTrue)
				So(res.Strategy, ShouldEqual, extract.StrategyInline)
				So(res.Score, ShouldEqual, 70)
				So(res.Text, ShouldEqual, "Done. Keep going.")
			})
		})

		Convey("When the score overflows an integer", func() {
			high, okHigh := extract.Extract(`{"exerciseScore": 99999999999999999999, "exerciseScoreJustification": "x"}`)
			low, okLow := extract.Extract(`{"exerciseScore": -1e30, "exerciseScoreJustification": "x"}`)

			Convey("Then it should be clamped to the nearest end of the scale", func() {
				So(okHigh, ShouldBeTrue)
				So(high.Score, ShouldEqual, 100)
				So(okLow, ShouldBeTrue)
				So(low.Score, ShouldEqual, 0)
			})
		})

		Convey("When a brace appears inside a string value", func() {
			res, ok := extract.Extract(`{"exerciseScoreJustification": "uses {placeholders}", "exerciseScore": 61}`)

			Convey("Then the object should still parse", func() {
				So(ok, ShouldBeTrue)
				So(res.Score, ShouldEqual, 61)
				So(res.Justification, ShouldEqual, "uses {placeholders}")
			})
		})

		Convey("When only one of the fields is present", func() {
			_, ok := extract.Extract(`{"exerciseScore": 50}`)

			Convey("Then extraction should fail", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the score is not numeric", func() {
			_, ok := extract.Extract(`{"exerciseScore": "high", "exerciseScoreJustification": "x"}`)

			Convey("Then the object should be rejected", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestExtract_Fraction(t *testing.T) {
	Convey("Given text with only an NN/100 fragment", t, func() {
		Convey("When sentences follow the fragment", func() {
			input := "72/100 great effort. Keep practicing."
			res, ok := extract.Extract(input)

			Convey("Then the number should become the score", func() {
				So(ok, ShouldBeTrue)
				So(res.Score, ShouldEqual, 72)
				So(res.Strategy, ShouldEqual, extract.StrategyFraction)
			})

			Convey("And a justification should be synthesized", func() {
				So(res.Justification, ShouldEqual, "great effort. Keep practicing.")
			})

			Convey("And the display text should be unchanged", func() {
				So(res.Text, ShouldEqual, input)
			})
		})

		Convey("When more than two sentences follow", func() {
			res, _ := extract.Extract("Score: 64 / 100. One. Two! Three?")

			Convey("Then only the first two should be used", func() {
				So(res.Score, ShouldEqual, 64)
				So(res.Justification, ShouldEqual, "One. Two!")
			})
		})

		Convey("When the trailing text is long", func() {
			long := strings.Repeat("word ", 60) + ". " + strings.Repeat("more ", 60) + "."
			res, _ := extract.Extract("80/100 " + long)

			Convey("Then the justification should be truncated to 200 characters", func() {
				So(utf8.RuneCountInString(res.Justification), ShouldBeLessThanOrEqualTo, 200)
				So(res.Justification, ShouldNotBeEmpty)
			})
		})

		Convey("When nothing follows the fragment", func() {
			res, ok := extract.Extract("I'd say 64/100.")

			Convey("Then a generic justification should be used", func() {
				So(ok, ShouldBeTrue)
				So(res.Justification, ShouldNotBeEmpty)
			})
		})

		Convey("When a custom max length is set", func() {
			e := extract.New(extract.WithMaxJustification(5))
			res, _ := e.Extract("50/100 abcdefghij.")

			Convey("Then it should be honoured", func() {
				So(res.Justification, ShouldEqual, "abcde")
			})
		})
	})
}

func TestExtract_NoMatch(t *testing.T) {
	Convey("Given text with no recoverable score", t, func() {
		res, ok := extract.Extract("Thanks for sharing your thoughts, let's continue.")

		Convey("Then extraction should report failure rather than a zero score", func() {
			So(ok, ShouldBeFalse)
			So(res.Strategy, ShouldEqual, extract.StrategyNone)
			So(res.Text, ShouldEqual, "Thanks for sharing your thoughts, let's continue.")
		})
	})
}

func TestExtract_WithFields(t *testing.T) {
	Convey("Given an extractor configured for score/justification", t, func() {
		e := extract.New(extract.WithFields("score", "justification"))
		input := `{"score": 66, "justification": "Covers the rubric partially."}`

		Convey("When the model answers with those fields", func() {
			res, ok := e.Extract(input)

			Convey("Then the inline strategy should match them", func() {
				So(ok, ShouldBeTrue)
				So(res.Score, ShouldEqual, 66)
				So(res.Strategy, ShouldEqual, extract.StrategyInline)
			})
		})

		Convey("When the default extractor reads the same text", func() {
			_, ok := extract.Extract(input)

			Convey("Then it should not match", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestExtractIntent(t *testing.T) {
	Convey("Given model text with an intent marker", t, func() {
		Convey("When the marker is on its own line", func() {
			intent, text, ok := extract.ExtractIntent("Let's move on.\n{\"intent\": \"advance\"}")

			Convey("Then the intent is returned and the marker stripped", func() {
				So(ok, ShouldBeTrue)
				So(intent, ShouldEqual, "advance")
				So(text, ShouldEqual, "Let's move on.")
			})
		})

		Convey("When the marker is upper-cased", func() {
			intent, text, ok := extract.ExtractIntent(`{"intent":"CLARIFY"} Sure, let me explain.`)

			Convey("Then it should be normalized", func() {
				So(ok, ShouldBeTrue)
				So(intent, ShouldEqual, "clarify")
				So(text, ShouldEqual, "Sure, let me explain.")
			})
		})

		Convey("When there is no marker", func() {
			_, text, ok := extract.ExtractIntent("Plain reply.")

			Convey("Then ok is false and the text is untouched", func() {
				So(ok, ShouldBeFalse)
				So(text, ShouldEqual, "Plain reply.")
			})
		})
	})
}
