package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/physqgen-backend/internal/model"
)

const kinematicsSet = `{
  "questions": [
    {
      "answerVariableName": "acceleration",
      "questionType": "KinematicsQuestion",
      "text": "A cart speeds up from rest.",
      "imageFilename": "cart.png",
      "correctLeeway": 0.05,
      "answerUnits": "m/s/s",
      "variableConfig": {
        "time": {"range": [5, 1], "units": "s", "displayName": "t", "decimalPlaces": 2},
        "initial_velocity": {"range": [0.5, 2], "units": "m/s", "displayName": "v1"},
        "final_velocity": {"range": [10, 20], "units": "m/s", "displayName": "v2", "decimalPlaces": 1}
      }
    }
  ]
}`

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadQuestionSetFollowsActivePointer(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ActiveConfigFile, `{"activeConfigName": "kinematics.json"}`)
	writeFile(t, dir, "kinematics.json", kinematicsSet)

	set, err := LoadQuestionSet(dir)
	require.NoError(t, err)
	assert.Equal(t, "kinematics.json", set.Name)
	require.Len(t, set.Questions, 1)

	q := set.Questions[0]
	assert.Equal(t, model.KinematicsKind, q.Kind)
	assert.Equal(t, "acceleration", q.AnswerVariableName)
	assert.Equal(t, "cart.png", q.ImageFilename)
	assert.Equal(t, 0.05, q.CorrectLeeway)
	assert.Equal(t, "m/s/s", q.AnswerUnits)
	assert.Empty(t, q.AnswerDisplayName)
	require.Len(t, q.Variables, 3)

	// sorted by name
	assert.Equal(t, "final_velocity", q.Variables[0].Name)
	assert.Equal(t, 1, q.Variables[0].DecimalPlaces)
	assert.Equal(t, "initial_velocity", q.Variables[1].Name)
	assert.Equal(t, model.DefaultDecimalPlaces, q.Variables[1].DecimalPlaces)
	assert.Equal(t, model.Range{5, 1}, q.Variables[2].Range)
}

func TestLoadQuestionSetRejectsPathInPointer(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ActiveConfigFile, `{"activeConfigName": "../secrets.json"}`)

	_, err := LoadQuestionSet(dir)
	assert.ErrorIs(t, err, ErrInvalidQuestionSet)
}

func TestLoadQuestionSetMissingPointer(t *testing.T) {
	_, err := LoadQuestionSet(t.TempDir())
	assert.Error(t, err)
}

func TestLoadQuestionSetFileRejectsBadRange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.json", `{"questions":[{"answerVariableName":"acceleration","questionType":"KinematicsQuestion","text":"x",
	  "variableConfig":{"time":{"range":[1],"displayName":"t"}}}]}`)

	_, err := LoadQuestionSetFile(filepath.Join(dir, "bad.json"))
	assert.ErrorIs(t, err, ErrInvalidQuestionSet)
}

func TestLoadQuestionSetFileRejectsInvalidRecipe(t *testing.T) {
	dir := t.TempDir()
	// overlapping velocity ranges
	writeFile(t, dir, "overlap.json", `{"questions":[{"answerVariableName":"acceleration","questionType":"KinematicsQuestion","text":"x",
	  "variableConfig":{
	    "time":{"range":[1,2],"displayName":"t"},
	    "initial_velocity":{"range":[1,5],"displayName":"v1"},
	    "final_velocity":{"range":[4,8],"displayName":"v2"}}}]}`)

	_, err := LoadQuestionSetFile(filepath.Join(dir, "overlap.json"))
	assert.ErrorIs(t, err, ErrInvalidQuestionSet)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestLoadQuestionSetFileYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "set.yaml", `
questions:
  - answerVariableName: displacement
    questionType: KinematicsQuestion
    text: A ball rolls.
    variableConfig:
      initial_velocity: {range: [1, 2], units: m/s, displayName: v1}
      acceleration: {range: [0.5, 1], units: m/s^2, displayName: a}
      time: {range: [2, 3], units: s, displayName: t}
`)

	set, err := LoadQuestionSetFile(filepath.Join(dir, "set.yaml"))
	require.NoError(t, err)
	require.Len(t, set.Questions, 1)
	assert.Equal(t, "displacement", set.Questions[0].AnswerVariableName)
}
