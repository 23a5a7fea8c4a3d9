package websocket

import "github.com/stemsi/physqgen-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSubmit Action = "submit"
	ActionState  Action = "state"
	ActionPing   Action = "ping"
)

// Request is one client message. Answer is only read for submit.
type Request struct {
	Action Action `json:"action"`
	Answer string `json:"answer,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventState  Event = "state"
	EventResult Event = "result"
	EventPong   Event = "pong"
)

// StateResponse carries the current session view.
type StateResponse struct {
	Event   Event          `json:"event"`
	Session model.Snapshot `json:"session"`
}

// ResultResponse reports a checked submission and the refreshed session view.
type ResultResponse struct {
	Event   Event          `json:"event"`
	Correct bool           `json:"correct"`
	Session model.Snapshot `json:"session"`
}

// ErrorResponse carries a response.ErrCode and its message.
type ErrorResponse struct {
	Event   Event  `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
