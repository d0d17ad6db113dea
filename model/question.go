package model

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Kind names the answer modality of a question.
type Kind string

const (
	KindText   Kind = "text"
	KindSelect Kind = "select"
	KindRating Kind = "rating"
)

// Modality is the closed set of answer shapes a question can take. Only the
// types in this package implement it.
type Modality interface {
	Kind() Kind
	validate() error
}

// TextModality asks for a free-form line of text.
type TextModality struct{}

// SelectModality asks the user to pick exactly one of Options.
type SelectModality struct {
	Options []string
}

// RatingModality asks for an integer in the inclusive range [Min, Max].
type RatingModality struct {
	Min int
	Max int
}

func (TextModality) Kind() Kind   { return KindText }
func (SelectModality) Kind() Kind { return KindSelect }
func (RatingModality) Kind() Kind { return KindRating }

func (TextModality) validate() error { return nil }

func (m SelectModality) validate() error {
	if len(m.Options) == 0 {
		return fmt.Errorf("%w: select question needs at least one option", ErrInvalidModality)
	}
	seen := make(map[string]struct{}, len(m.Options))
	for _, opt := range m.Options {
		if opt == "" {
			return fmt.Errorf("%w: select option is empty", ErrInvalidModality)
		}
		if _, dup := seen[opt]; dup {
			return fmt.Errorf("%w: duplicate select option %q", ErrInvalidModality, opt)
		}
		seen[opt] = struct{}{}
	}
	return nil
}

// MaxRatingChoices caps how many values a rating may offer. Every value
// becomes a button.
const MaxRatingChoices = 100

func (m RatingModality) validate() error {
	if m.Min > m.Max {
		return fmt.Errorf("%w: rating min %d is greater than max %d", ErrInvalidModality, m.Min, m.Max)
	}
	// Unsigned subtraction cannot overflow for Min <= Max.
	if width := uint64(m.Max) - uint64(m.Min); width >= MaxRatingChoices {
		return fmt.Errorf("%w: rating range %d..%d has more than %d values", ErrInvalidModality, m.Min, m.Max, MaxRatingChoices)
	}
	return nil
}

// Values lists every selectable rating in ascending order. It is empty for a
// range that does not validate.
func (m RatingModality) Values() []int {
	if m.validate() != nil {
		return nil
	}
	values := make([]int, 0, m.Max-m.Min+1)
	for v := m.Min; v <= m.Max; v++ {
		values = append(values, v)
	}
	return values
}

// Question is one entry of the questionnaire. It is immutable once loaded.
type Question struct {
	ID       int
	Text     string
	Modality Modality
}

// Validate checks that the question has text and a well-formed modality.
func (q Question) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("question %d has no text", q.ID)
	}
	if q.Modality == nil {
		return fmt.Errorf("question %d: %w", q.ID, ErrUnknownModality)
	}
	if err := q.Modality.validate(); err != nil {
		return fmt.Errorf("question %d: %w", q.ID, err)
	}
	return nil
}

// questionRecord is the flat on-disk / on-wire shape of a Question.
type questionRecord struct {
	ID      int      `json:"id" yaml:"id"`
	Text    string   `json:"text" yaml:"text"`
	Type    Kind     `json:"type" yaml:"type"`
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`
	Min     *int     `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *int     `json:"max,omitempty" yaml:"max,omitempty"`
}

func (r questionRecord) question() (Question, error) {
	q := Question{ID: r.ID, Text: r.Text}
	hasRange := r.Min != nil || r.Max != nil

	switch r.Type {
	case KindText:
		if r.Options != nil || hasRange {
			return Question{}, fmt.Errorf("question %d: %w: text question takes no parameters", r.ID, ErrInvalidModality)
		}
		q.Modality = TextModality{}
	case KindSelect:
		if hasRange {
			return Question{}, fmt.Errorf("question %d: %w: select question takes no min/max", r.ID, ErrInvalidModality)
		}
		q.Modality = SelectModality{Options: append([]string(nil), r.Options...)}
	case KindRating:
		if r.Options != nil {
			return Question{}, fmt.Errorf("question %d: %w: rating question takes no options", r.ID, ErrInvalidModality)
		}
		if r.Min == nil || r.Max == nil {
			return Question{}, fmt.Errorf("question %d: %w: rating question needs min and max", r.ID, ErrInvalidModality)
		}
		q.Modality = RatingModality{Min: *r.Min, Max: *r.Max}
	default:
		return Question{}, fmt.Errorf("question %d: %w %q", r.ID, ErrUnknownModality, r.Type)
	}

	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

func (q Question) record() questionRecord {
	r := questionRecord{ID: q.ID, Text: q.Text}
	switch m := q.Modality.(type) {
	case TextModality:
		r.Type = KindText
	case SelectModality:
		r.Type = KindSelect
		r.Options = m.Options
	case RatingModality:
		r.Type = KindRating
		r.Min, r.Max = &m.Min, &m.Max
	}
	return r
}

// UnmarshalJSON decodes the flat {"id","text","type",...} representation.
func (q *Question) UnmarshalJSON(data []byte) error {
	var r questionRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	parsed, err := r.question()
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// MarshalJSON encodes the question in the same flat representation.
func (q Question) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.record())
}

// UnmarshalYAML decodes the same shape as UnmarshalJSON from a YAML node.
func (q *Question) UnmarshalYAML(node *yaml.Node) error {
	var r questionRecord
	if err := node.Decode(&r); err != nil {
		return err
	}
	parsed, err := r.question()
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
