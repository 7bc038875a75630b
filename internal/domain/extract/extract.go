// Package extract recovers a {score, justification} pair from free-form
// model output. Three strategies are tried in order: a strict inline JSON
// pattern, any balanced JSON object carrying both fields, and a bare NN/100
// fragment. The JSON strategies strip the matched span from the display text.
package extract

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Strategy names the tier that recovered a score.
type Strategy string

const (
	StrategyInline   Strategy = "inline"
	StrategyObject   Strategy = "object"
	StrategyFraction Strategy = "fraction"
	StrategyNone     Strategy = "none"
)

const (
	// DefaultScoreField and DefaultJustificationField are the mentor exercise fields.
	DefaultScoreField         = "exerciseScore"
	DefaultJustificationField = "exerciseScoreJustification"

	defaultMaxJustification     = 200
	defaultGenericJustification = "Score inferred from the evaluation text."
	maxScore                    = 100
	fractionSentences           = 2
)

var (
	fractionPattern = regexp.MustCompile(`\b(\d{1,3})\s*/\s*100\b`)
	sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

// Result is a recovered score. Text is the input with any matched JSON span
// removed and surrounding whitespace trimmed.
type Result struct {
	Score         int
	Justification string
	Text          string
	Strategy      Strategy
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithFields sets the JSON field names holding the score and justification.
func WithFields(score, justification string) Option {
	return func(e *Extractor) {
		if score != "" {
			e.scoreField = score
		}
		if justification != "" {
			e.justificationField = justification
		}
	}
}

// WithMaxJustification bounds the length, in characters, of a justification
// synthesized from a fraction fragment.
func WithMaxJustification(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxJustification = n
		}
	}
}

// WithGenericJustification sets the sentence used when a fraction has no trailing text.
func WithGenericJustification(s string) Option {
	return func(e *Extractor) {
		if s != "" {
			e.generic = s
		}
	}
}

// Extractor is immutable after New and safe for concurrent use.
type Extractor struct {
	scoreField         string
	justificationField string
	maxJustification   int
	generic            string
	inline             *regexp.Regexp
}

// New builds an extractor for the exercise score fields unless overridden.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		scoreField:         DefaultScoreField,
		justificationField: DefaultJustificationField,
		maxJustification:   defaultMaxJustification,
		generic:            defaultGenericJustification,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.inline = regexp.MustCompile(fmt.Sprintf(
		`\{\s*"%s"\s*:\s*(-?\d+)\s*,\s*"%s"\s*:\s*"((?:[^"\\]|\\.)*)"\s*\}`,
		regexp.QuoteMeta(e.scoreField), regexp.QuoteMeta(e.justificationField),
	))
	return e
}

var defaultExtractor = New() //nolint:gochecknoglobals // stateless

// Extract runs the default extractor.
func Extract(text string) (Result, bool) {
	return defaultExtractor.Extract(text)
}

// Extract returns the first score recovered by the inline, object and
// fraction strategies. ok is false when none matched; the caller decides
// the default.
func (e *Extractor) Extract(text string) (Result, bool) {
	if r, ok := e.fromInline(text); ok {
		return r, true
	}
	if r, ok := e.fromObject(text); ok {
		return r, true
	}
	if r, ok := e.fromFraction(text); ok {
		return r, true
	}
	return Result{Text: text, Strategy: StrategyNone}, false
}

func (e *Extractor) fromInline(text string) (Result, bool) {
	loc := e.inline.FindStringSubmatchIndex(text)
	if loc == nil {
		return Result{}, false
	}
	score, err := strconv.Atoi(text[loc[2]:loc[3]])
	if err != nil {
		return Result{}, false
	}
	var justification string
	if err := json.Unmarshal([]byte(`"`+text[loc[4]:loc[5]]+`"`), &justification); err != nil {
		justification = text[loc[4]:loc[5]]
	}
	from, to := enclosing(text, loc[0], loc[1])
	return Result{
		Score:         clamp(score),
		Justification: strings.TrimSpace(justification),
		Text:          strip(text, from, to),
		Strategy:      StrategyInline,
	}, true
}

func (e *Extractor) fromObject(text string) (Result, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end := matchBrace(text, start); end > start {
			var fields map[string]any
			if err := json.Unmarshal([]byte(text[start:end+1]), &fields); err == nil {
				if score, justification, ok := e.coerce(fields); ok {
					from, to := enclosing(text, start, end+1)
					return Result{
						Score:         score,
						Justification: justification,
						Text:          strip(text, from, to),
						Strategy:      StrategyObject,
					}, true
				}
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return Result{}, false
}

func (e *Extractor) coerce(fields map[string]any) (int, string, bool) {
	rawScore, ok := fields[e.scoreField]
	if !ok {
		return 0, "", false
	}
	rawJustification, ok := fields[e.justificationField]
	if !ok {
		return 0, "", false
	}

	var score float64
	switch v := rawScore.(type) {
	case float64:
		score = v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, "", false
		}
		score = f
	default:
		return 0, "", false
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, "", false
	}
	// Clamp before converting: out-of-range float to int conversion is
	// implementation-defined.
	score = math.Max(0, math.Min(maxScore, score))

	var justification string
	switch v := rawJustification.(type) {
	case string:
		justification = v
	case nil:
	default:
		b, err := json.Marshal(v)
		if err != nil {
			justification = fmt.Sprint(v)
		} else {
			justification = string(b)
		}
	}
	return int(math.Round(score)), strings.TrimSpace(justification), true
}

func (e *Extractor) fromFraction(text string) (Result, bool) {
	loc := fractionPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return Result{}, false
	}
	score, err := strconv.Atoi(text[loc[2]:loc[3]])
	if err != nil {
		return Result{}, false
	}

	justification := e.trailingSentences(text[loc[1]:])
	if justification == "" {
		justification = e.generic
	}
	return Result{
		Score:         clamp(score),
		Justification: justification,
		Text:          text,
		Strategy:      StrategyFraction,
	}, true
}

func (e *Extractor) trailingSentences(rest string) string {
	rest = strings.TrimLeft(rest, " \t\r\n.,:;-)]")
	parts := make([]string, 0, fractionSentences)
	for _, s := range sentencePattern.FindAllString(rest, -1) {
		s = strings.TrimSpace(s)
		if s == "" || strings.Trim(s, ".!?") == "" {
			continue
		}
		parts = append(parts, s)
		if len(parts) == fractionSentences {
			break
		}
	}
	return truncate(strings.Join(parts, " "), e.maxJustification)
}

// matchBrace returns the index of the brace closing the one at start, or -1.
// Braces inside JSON strings are ignored.
func matchBrace(text string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// enclosing widens text[from:to] to the outermost balanced object that
// contains it, so no half-emptied wrapper is left behind.
func enclosing(text string, from, to int) (int, int) {
	for i := strings.IndexByte(text, '{'); i >= 0 && i < from; {
		if end := matchBrace(text, i); end >= to-1 {
			return i, end + 1
		}
		next := strings.IndexByte(text[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return from, to
}

// strip removes text[from:to] and joins what is left with a single
// separator, a newline if the removed span sat on its own line.
func strip(text string, from, to int) string {
	before, after := text[:from], text[to:]
	head, tail := strings.TrimSpace(before), strings.TrimSpace(after)
	if head == "" || tail == "" {
		return head + tail
	}
	gap := before[len(strings.TrimRight(before, " \t\r\n")):] + after[:len(after)-len(strings.TrimLeft(after, " \t\r\n"))]
	if strings.Contains(gap, "\n") {
		return head + "\n" + tail
	}
	return head + " " + tail
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}

func clamp(score int) int {
	switch {
	case score < 0:
		return 0
	case score > maxScore:
		return maxScore
	}
	return score
}
