package model

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
)

// DefaultCorrectLeeway is the accepted fractional deviation from the answer.
const DefaultCorrectLeeway = 0.1

// Question is a generated problem with its known variables, the resolved
// answer variable and the student's progress on it.
type Question struct {
	ID                 uuid.UUID           `json:"id"`
	Position           int                 `json:"position"`
	Kind               string              `json:"question_type"`
	AnswerVariableName string              `json:"answer_variable_name"`
	Variables          map[string]Variable `json:"variables"`
	CorrectLeeway      float64             `json:"correct_leeway"`
	Text               string              `json:"text"`
	ImageFilename      string              `json:"image_filename"`
	NumberTries        int                 `json:"number_tries"`
	Correct            bool                `json:"correct"`
	Active             bool                `json:"active"`
}

func (q *Question) known() map[string]float64 {
	known := make(map[string]float64, len(q.Variables))
	for name, v := range q.Variables {
		known[name] = v.Value
	}
	return known
}

// Value returns the stored value of a quantity, deriving it when the
// question does not hold it.
func (q *Question) Value(name string) (float64, error) {
	if v, ok := q.Variables[name]; ok {
		return v.Value, nil
	}

	kind, err := LookupKind(q.Kind)
	if err != nil {
		return 0, err
	}
	if !kind.Has(name) {
		return 0, fmt.Errorf("%w: %s is not a %s quantity", ErrResolution, name, kind.Name)
	}

	value, err := kind.Resolve(name, q.known())
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrResolution, name, err)
	}
	return value, nil
}

// Answer returns the value the student is expected to submit.
func (q *Question) Answer() (float64, error) {
	value, err := q.Value(q.AnswerVariableName)
	if err != nil {
		return 0, fmt.Errorf("%w: answer of question %s: %w", ErrResolution, q.ID, err)
	}
	return value, nil
}

// CheckSubmission reports whether submitted lies strictly inside the
// leeway band around the answer. It does not change the question.
func (q *Question) CheckSubmission(submitted float64) (bool, error) {
	answer, err := q.Answer()
	if err != nil {
		return false, err
	}
	// |s-answer| < leeway*|answer| is the band (answer*(1-l), answer*(1+l))
	// with its bounds ordered for negative answers.
	return math.Abs(submitted-answer) < q.CorrectLeeway*math.Abs(answer), nil
}

// KnownVariables returns every variable except the answer, in name order.
func (q *Question) KnownVariables() []Variable {
	names := make([]string, 0, len(q.Variables))
	for name := range q.Variables {
		if name != q.AnswerVariableName {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	vars := make([]Variable, 0, len(names))
	for _, name := range names {
		vars = append(vars, q.Variables[name])
	}
	return vars
}

// QuestionConfig is the recipe for generating one Question.
type QuestionConfig struct {
	Kind               string           `json:"question_type"`
	AnswerVariableName string           `json:"answer_variable_name"`
	Text               string           `json:"text"`
	ImageFilename      string           `json:"image_filename,omitempty"`
	CorrectLeeway      float64          `json:"correct_leeway"`
	Variables          []VariableConfig `json:"variables"`
	// AnswerUnits and AnswerDisplayName override the kind's label for the answer.
	AnswerUnits       string `json:"answer_units,omitempty"`
	AnswerDisplayName string `json:"answer_display_name,omitempty"`
}

// answerLabel merges the recipe's answer label over the kind's default.
func (c QuestionConfig) answerLabel(kind QuestionKind) QuantityLabel {
	label := kind.Labels[c.AnswerVariableName]
	if c.AnswerUnits != "" {
		label.Units = c.AnswerUnits
	}
	if c.AnswerDisplayName != "" {
		label.DisplayName = c.AnswerDisplayName
	}
	if label.DisplayName == "" {
		label.DisplayName = c.AnswerVariableName
	}
	return label
}

// Validate checks the recipe against its kind without sampling.
func (c QuestionConfig) Validate() error {
	kind, err := LookupKind(c.Kind)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if !kind.Has(c.AnswerVariableName) {
		return fmt.Errorf("%w: answer %q is not a %s quantity", ErrConfiguration, c.AnswerVariableName, kind.Name)
	}
	if c.CorrectLeeway < 0 || c.CorrectLeeway >= 1 {
		return fmt.Errorf("%w: leeway %v outside [0, 1)", ErrConfiguration, c.CorrectLeeway)
	}

	ranges := make(map[string]Range, len(c.Variables))
	for _, vc := range c.Variables {
		switch {
		case !kind.Has(vc.Name):
			return fmt.Errorf("%w: %q is not a %s quantity", ErrConfiguration, vc.Name, kind.Name)
		case vc.Name == c.AnswerVariableName:
			return fmt.Errorf("%w: answer %q must not be sampled", ErrConfiguration, vc.Name)
		case vc.DecimalPlaces < 0:
			return fmt.Errorf("%w: %s has negative decimal places", ErrConfiguration, vc.Name)
		}
		if check, ok := kind.RangeChecks[vc.Name]; ok && !check(vc.Range) {
			return fmt.Errorf("%w: range %v for %s failed validation", ErrConfiguration, vc.Range, vc.Name)
		}
		if !vc.Range.Finite() {
			return fmt.Errorf("%w: %s has a non-finite range", ErrConfiguration, vc.Name)
		}
		if _, dup := ranges[vc.Name]; dup {
			return fmt.Errorf("%w: %q configured twice", ErrConfiguration, vc.Name)
		}
		ranges[vc.Name] = vc.Range
	}

	if len(ranges) != kind.Known {
		return fmt.Errorf("%w: %s needs exactly %d sampled quantities, got %d",
			ErrConfiguration, kind.Name, kind.Known, len(ranges))
	}

	for _, pc := range kind.PairChecks {
		first, okFirst := ranges[pc.First]
		second, okSecond := ranges[pc.Second]
		if okFirst && okSecond && !pc.Check(first, second) {
			return fmt.Errorf("%w: ranges for %s and %s are not compatible", ErrConfiguration, pc.First, pc.Second)
		}
	}
	return nil
}

// Generate samples a new question and resolves its answer eagerly.
func (c QuestionConfig) Generate(rng Float64Source) (*Question, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	kind, _ := LookupKind(c.Kind)

	leeway := c.CorrectLeeway
	if leeway == 0 {
		leeway = DefaultCorrectLeeway
	}

	q := &Question{
		ID:                 uuid.New(),
		Kind:               c.Kind,
		AnswerVariableName: c.AnswerVariableName,
		Variables:          make(map[string]Variable, len(c.Variables)+1),
		CorrectLeeway:      leeway,
		Text:               c.Text,
		ImageFilename:      c.ImageFilename,
	}

	for _, vc := range c.Variables {
		var checks []RangeCheck
		if check, ok := kind.RangeChecks[vc.Name]; ok {
			checks = append(checks, check)
		}
		v, err := vc.Sample(rng, checks...)
		if err != nil {
			return nil, err
		}
		q.Variables[v.Name] = v
	}

	answer, err := q.Value(c.AnswerVariableName)
	if err != nil {
		return nil, err
	}
	label := c.answerLabel(kind)
	q.Variables[c.AnswerVariableName] = Variable{
		ID:            uuid.New(),
		Name:          c.AnswerVariableName,
		Value:         answer,
		Units:         label.Units,
		DisplayName:   label.DisplayName,
		DecimalPlaces: DefaultDecimalPlaces,
	}
	return q, nil
}
