package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/stemsi/physqgen-backend/internal/model"
)

// ActiveConfigFile names the file that selects the question set in use.
const ActiveConfigFile = "active_config.json"

var ErrInvalidQuestionSet = errors.New("invalid question set")

// QuestionSetFile mirrors the on-disk question set format.
type QuestionSetFile struct {
	Questions []QuestionEntry `mapstructure:"questions" validate:"required,min=1,dive"`
}

// QuestionEntry is one question recipe as written in the file.
type QuestionEntry struct {
	AnswerVariableName string                   `mapstructure:"answerVariableName" validate:"required"`
	QuestionType       string                   `mapstructure:"questionType" validate:"required"`
	Text               string                   `mapstructure:"text" validate:"required"`
	ImageFilename      string                   `mapstructure:"imageFilename"`
	CorrectLeeway      float64                  `mapstructure:"correctLeeway" validate:"gte=0,lt=1"`
	AnswerUnits        string                   `mapstructure:"answerUnits"`
	AnswerDisplayName  string                   `mapstructure:"answerDisplayName"`
	VariableConfig     map[string]VariableEntry `mapstructure:"variableConfig" validate:"required,min=1,dive"`
}

// VariableEntry is one sampled variable recipe as written in the file.
type VariableEntry struct {
	Range         []float64 `mapstructure:"range" validate:"required,len=2"`
	Units         string    `mapstructure:"units"`
	DisplayName   string    `mapstructure:"displayName" validate:"required"`
	DecimalPlaces *int      `mapstructure:"decimalPlaces" validate:"omitempty,gte=0,lte=10"`
}

// QuestionSet is the loaded, validated set of recipes handed to the session service.
type QuestionSet struct {
	Name      string                 `json:"name"`
	Questions []model.QuestionConfig `json:"questions"`
}

// LoadQuestionSet reads active_config.json in dir and loads the set it points at.
func LoadQuestionSet(dir string) (*QuestionSet, error) {
	pointer := viper.New()
	pointer.SetConfigFile(filepath.Join(dir, ActiveConfigFile))
	if err := pointer.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", ActiveConfigFile, err)
	}

	name := pointer.GetString("activeConfigName")
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("%w: activeConfigName %q must be a file name", ErrInvalidQuestionSet, name)
	}

	return LoadQuestionSetFile(filepath.Join(dir, name))
}

// LoadQuestionSetFile loads and validates a single question set file (JSON or YAML).
func LoadQuestionSetFile(path string) (*QuestionSet, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read question set %s: %w", path, err)
	}

	var file QuestionSetFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("decode question set %s: %w", path, err)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(file); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidQuestionSet, path, err)
	}

	set := &QuestionSet{
		Name:      filepath.Base(path),
		Questions: make([]model.QuestionConfig, 0, len(file.Questions)),
	}
	for i, entry := range file.Questions {
		qc := entry.toModel()
		if err := qc.Validate(); err != nil {
			return nil, fmt.Errorf("%w: question %d: %w", ErrInvalidQuestionSet, i+1, err)
		}
		set.Questions = append(set.Questions, qc)
	}
	return set, nil
}

func (e QuestionEntry) toModel() model.QuestionConfig {
	names := make([]string, 0, len(e.VariableConfig))
	for name := range e.VariableConfig {
		names = append(names, name)
	}
	sort.Strings(names)

	vars := make([]model.VariableConfig, 0, len(names))
	for _, name := range names {
		entry := e.VariableConfig[name]
		places := model.DefaultDecimalPlaces
		if entry.DecimalPlaces != nil {
			places = *entry.DecimalPlaces
		}
		vars = append(vars, model.VariableConfig{
			Name:          name,
			Range:         model.Range{entry.Range[0], entry.Range[1]},
			Units:         entry.Units,
			DisplayName:   entry.DisplayName,
			DecimalPlaces: places,
		})
	}

	return model.QuestionConfig{
		Kind:               e.QuestionType,
		AnswerVariableName: e.AnswerVariableName,
		Text:               e.Text,
		ImageFilename:      e.ImageFilename,
		CorrectLeeway:      e.CorrectLeeway,
		Variables:          vars,
		AnswerUnits:        e.AnswerUnits,
		AnswerDisplayName:  e.AnswerDisplayName,
	}
}
