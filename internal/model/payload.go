package model

import (
	"time"

	"github.com/google/uuid"
)

// StudentLoginRequest starts a new session for a student.
type StudentLoginRequest struct {
	FirstName string `json:"first_name" binding:"required,min=1,max=100"`
	LastName  string `json:"last_name" binding:"required,min=1,max=100"`
	Email     string `json:"email" binding:"required,email,max=255"`
}

// StudentLoginResponse is returned after a session has been created.
type StudentLoginResponse struct {
	Token   string   `json:"token"`
	Session Snapshot `json:"session"`
}

// AdminLoginRequest is the payload for admin authentication.
type AdminLoginRequest struct {
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// AdminLoginResponse is returned after successful admin login.
type AdminLoginResponse struct {
	Token string `json:"token"`
}

// SubmitAnswerRequest carries the raw text the student typed.
type SubmitAnswerRequest struct {
	Answer string `json:"answer" binding:"required,max=64"`
}

// SubmitAnswerResponse reports the outcome and the refreshed session view.
type SubmitAnswerResponse struct {
	Correct  bool     `json:"correct"`
	Snapshot Snapshot `json:"session"`
}

// ListStudentsQuery pages through admin student data.
type ListStudentsQuery struct {
	Page    int `form:"page" binding:"omitempty,min=1"`
	PerPage int `form:"per_page" binding:"omitempty,min=1,max=200"`
}

// QuestionProgress is the (tries, correct) pair shown in admin student data.
type QuestionProgress struct {
	Position    int  `json:"position"`
	NumberTries int  `json:"number_tries"`
	Correct     bool `json:"correct"`
}

// StudentProgress groups progress rows for one session.
type StudentProgress struct {
	SessionID   uuid.UUID          `json:"session_id"`
	Student     string             `json:"student"`
	CreatedAt   time.Time          `json:"created_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Questions   []QuestionProgress `json:"questions"`
}

// DashboardSummary holds aggregate counts for the admin dashboard.
type DashboardSummary struct {
	TotalSessions      int     `json:"total_sessions"`
	CompletedSessions  int     `json:"completed_sessions"`
	QuestionsAnswered  int     `json:"questions_answered"`
	TotalAttempts      int     `json:"total_attempts"`
	AverageTriesToPass float64 `json:"average_tries_to_pass"`
}

// ProgressEvent is published on every processed submission for live monitoring.
type ProgressEvent struct {
	Type           string    `json:"type"`
	SessionID      uuid.UUID `json:"session_id"`
	Student        string    `json:"student"`
	QuestionID     uuid.UUID `json:"question_id"`
	Correct        bool      `json:"correct"`
	CompletedCount int       `json:"completed_count"`
	TotalQuestions int       `json:"total_questions"`
	Timestamp      time.Time `json:"timestamp"`
}
