// Package content serves the question bank and rubric documents. Defaults
// are embedded in the binary; a directory can override either file.
package content

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed data/*.json
var defaults embed.FS

// Kind names a served document.
type Kind string

const (
	Questions Kind = "questions"
	Rubrics   Kind = "rubrics"
)

// Sentinel errors.
var (
	ErrUnknownKind     = errors.New("unknown content kind")
	ErrInvalidDocument = errors.New("content document is not valid JSON")
)

// Store holds the documents in memory. It is read-only after New.
type Store struct {
	dir     string
	docs    map[Kind][]byte
	rubrics map[string]json.RawMessage
	scale   json.RawMessage
}

// Option configures a Store.
type Option func(*Store)

// WithDir reads <dir>/questions.json and <dir>/rubrics.json when present.
// Missing files fall back to the embedded defaults.
func WithDir(dir string) Option {
	return func(s *Store) {
		s.dir = dir
	}
}

// New loads and validates both documents.
func New(opts ...Option) (*Store, error) {
	s := &Store{docs: make(map[Kind][]byte, 2)}
	for _, opt := range opts {
		opt(s)
	}
	for _, k := range []Kind{Questions, Rubrics} {
		doc, err := s.read(k)
		if err != nil {
			return nil, err
		}
		if !json.Valid(doc) {
			return nil, fmt.Errorf("%s: %w", k, ErrInvalidDocument)
		}
		s.docs[k] = bytes.TrimSpace(doc)
	}
	s.indexRubrics()
	return s, nil
}

func (s *Store) read(k Kind) ([]byte, error) {
	name := string(k) + ".json"
	if s.dir != "" {
		doc, err := os.ReadFile(filepath.Join(s.dir, name))
		switch {
		case err == nil:
			return doc, nil
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
	}
	doc, err := defaults.ReadFile("data/" + name)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s: %w", name, err)
	}
	return doc, nil
}

// indexRubrics picks per-skill entries out of a {"scale":..., "rubrics":{id:...}}
// document. Other shapes are served whole.
func (s *Store) indexRubrics() {
	var doc struct {
		Scale   json.RawMessage            `json:"scale"`
		Rubrics map[string]json.RawMessage `json:"rubrics"`
	}
	if err := json.Unmarshal(s.docs[Rubrics], &doc); err != nil {
		return
	}
	s.rubrics = doc.Rubrics
	s.scale = doc.Scale
}

// Document returns the raw document for k.
func (s *Store) Document(k Kind) ([]byte, error) {
	doc, ok := s.docs[k]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	return doc, nil
}

// Rubric returns the rubric text used to score the open-ended answer of a
// skill: its own entry plus the shared scale, or the whole rubric document
// when the skill has no entry.
func (s *Store) Rubric(skillID string) string {
	entry, ok := s.rubrics[skillID]
	if !ok {
		return string(s.docs[Rubrics])
	}
	out, err := json.Marshal(struct {
		Skill  string          `json:"skill"`
		Scale  json.RawMessage `json:"scale,omitempty"`
		Rubric json.RawMessage `json:"rubric"`
	}{Skill: skillID, Scale: s.scale, Rubric: entry})
	if err != nil {
		return string(entry)
	}
	return string(out)
}
