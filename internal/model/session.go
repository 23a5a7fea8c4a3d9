package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LoginInfo identifies the student who owns a session.
type LoginInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// String renders the identity as shown to admins, e.g. "Ada Lovelace (ada@example.com)".
func (l LoginInfo) String() string {
	return fmt.Sprintf("%s %s (%s)", l.FirstName, l.LastName, l.Email)
}

// Session is one student's ordered run through a set of generated questions.
// At most one question is active; none once every question is correct.
type Session struct {
	ID          uuid.UUID   `json:"id"`
	Login       LoginInfo   `json:"login"`
	Questions   []*Question `json:"questions"`
	Version     int         `json:"version"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// NewSession creates a session over the given questions and activates the first one.
func NewSession(login LoginInfo, questions []*Question) *Session {
	for i, q := range questions {
		q.Position = i
	}
	s := &Session{
		ID:        uuid.New(),
		Login:     login,
		Questions: questions,
		CreatedAt: time.Now(),
	}
	s.SetNewActiveQuestion()
	return s
}

// SetNewActiveQuestion activates the first question that is not yet correct
// and deactivates every other one. It returns false when none remain.
func (s *Session) SetNewActiveQuestion() bool {
	found := false
	for _, q := range s.Questions {
		if !found && !q.Correct {
			q.Active = true
			found = true
			continue
		}
		q.Active = false
	}
	return found
}

// ActiveQuestion returns the question currently presented to the student.
func (s *Session) ActiveQuestion() (*Question, bool) {
	for _, q := range s.Questions {
		if q.Active {
			return q, true
		}
	}
	return nil, false
}

// Complete reports whether every question has been answered correctly.
func (s *Session) Complete() bool {
	return s.CompletedCount() == len(s.Questions)
}

func (s *Session) CompletedCount() int {
	n := 0
	for _, q := range s.Questions {
		if q.Correct {
			n++
		}
	}
	return n
}

// Attempt is the outcome of one parsed submission.
type Attempt struct {
	SessionID  uuid.UUID `json:"session_id"`
	QuestionID uuid.UUID `json:"question_id"`
	Submitted  float64   `json:"submitted"`
	Correct    bool      `json:"correct"`
	// Finished is set when this attempt completed the session.
	Finished bool `json:"finished"`
}

// ParseSubmission turns submitted text into a finite number.
func ParseSubmission(raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSubmission, raw)
	}
	return value, nil
}

// Update applies a submission to the active question. An unparseable
// submission leaves the session untouched.
func (s *Session) Update(submission string) (Attempt, error) {
	q, ok := s.ActiveQuestion()
	if !ok {
		return Attempt{}, ErrNoActiveQuestion
	}

	value, err := ParseSubmission(submission)
	if err != nil {
		return Attempt{}, err
	}

	correct, err := q.CheckSubmission(value)
	if err != nil {
		return Attempt{}, err
	}

	q.NumberTries++
	if correct {
		q.Correct = true
		q.Active = false
		s.SetNewActiveQuestion()
	}

	return Attempt{
		SessionID:  s.ID,
		QuestionID: q.ID,
		Submitted:  value,
		Correct:    correct,
		Finished:   correct && s.Complete(),
	}, nil
}

// ActiveQuestionView is the student-facing rendering of the active question.
type ActiveQuestionView struct {
	ID            uuid.UUID `json:"id"`
	Position      int       `json:"position"`
	Text          string    `json:"text"`
	ImageFilename string    `json:"image_filename"`
	NumberTries   int       `json:"number_tries"`
	Variables     []string  `json:"variables"`
}

// Snapshot is what the front-end sees of a session. It never carries an answer.
// Version is the session version it was taken at.
type Snapshot struct {
	SessionID       uuid.UUID           `json:"session_id"`
	Version         int                 `json:"version"`
	TotalQuestions  int                 `json:"total_questions"`
	CompletedCount  int                 `json:"completed_count"`
	SessionComplete bool                `json:"session_complete"`
	Active          *ActiveQuestionView `json:"active_question,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID:       s.ID,
		Version:         s.Version,
		TotalQuestions:  len(s.Questions),
		CompletedCount:  s.CompletedCount(),
		SessionComplete: s.Complete(),
	}

	q, ok := s.ActiveQuestion()
	if !ok {
		return snap
	}

	known := q.KnownVariables()
	rendered := make([]string, 0, len(known))
	for _, v := range known {
		rendered = append(rendered, v.String())
	}
	snap.Active = &ActiveQuestionView{
		ID:            q.ID,
		Position:      q.Position,
		Text:          q.Text,
		ImageFilename: q.ImageFilename,
		NumberTries:   q.NumberTries,
		Variables:     rendered,
	}
	return snap
}
