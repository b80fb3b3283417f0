// Package types defines the JSON wire protocol.
//
// Client -> Server
//
//	hello             {role, eventId?, teamName?}  establishes role and room membership
//	create_event      {payload: event.Config}
//	join_team         {teamName}
//	submit_answer     {payload: {code}}
//	countdown_control {action: start|pause|resume|reset}
//
// Server -> Client
//
//	event_created {eventId}          to the creator only, always before the
//	                                 creator's first state broadcast
//	state         {payload: {event, teams, countdown}}  broadcast to the room
//	error         {error}            malformed inbound message, connection stays open
//
// Inbound messages decode into one variant per type; anything that does not
// match the schema is rejected so the caller can drop it.
package types

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/teamchallenge/challenge-backend/internal/event"
	"github.com/teamchallenge/challenge-backend/internal/room"
)

var (
	ErrUnknownType = errors.New("unknown message type")
	ErrBadMessage  = errors.New("malformed message")
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleTeam      Role = "team"
	RoleArena     Role = "arena"
	RoleBeamer    Role = "beamer"
	RoleHighscore Role = "highscore"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleTeam, RoleArena, RoleBeamer, RoleHighscore:
		return Role(s), true
	default:
		return "", false
	}
}

// Inbound is the decoded client message, one variant per wire type.
type Inbound interface{ isInbound() }

type Hello struct {
	Role     Role
	EventID  string
	TeamName string
}

type CreateEvent struct {
	Config event.Config
}

type JoinTeam struct {
	TeamName string
}

type SubmitAnswer struct {
	Code string
}

type CountdownControl struct {
	Action string
}

func (Hello) isInbound()            {}
func (CreateEvent) isInbound()      {}
func (JoinTeam) isInbound()         {}
func (SubmitAnswer) isInbound()     {}
func (CountdownControl) isInbound() {}

type envelope struct {
	Type     string          `json:"type"`
	Role     string          `json:"role"`
	EventID  string          `json:"eventId"`
	TeamName string          `json:"teamName"`
	Action   string          `json:"action"`
	Payload  json.RawMessage `json:"payload"`
}

// Decode parses one inbound message and validates it against its variant's
// schema. It fails closed: a missing required field is as fatal as bad JSON.
func Decode(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}

	switch env.Type {
	case "hello":
		role, ok := ParseRole(env.Role)
		if !ok {
			return nil, fmt.Errorf("%w: hello with unknown role %q", ErrBadMessage, env.Role)
		}
		return Hello{Role: role, EventID: env.EventID, TeamName: env.TeamName}, nil

	case "create_event":
		if len(env.Payload) == 0 {
			return nil, fmt.Errorf("%w: create_event without payload", ErrBadMessage)
		}
		var cfg event.Config
		if err := json.Unmarshal(env.Payload, &cfg); err != nil {
			return nil, fmt.Errorf("%w: create_event payload: %v", ErrBadMessage, err)
		}
		if cfg.CountdownSec < 0 {
			return nil, fmt.Errorf("%w: negative countdownSec", ErrBadMessage)
		}
		return CreateEvent{Config: cfg}, nil

	case "join_team":
		if env.TeamName == "" {
			return nil, fmt.Errorf("%w: join_team without teamName", ErrBadMessage)
		}
		return JoinTeam{TeamName: env.TeamName}, nil

	case "submit_answer":
		var p struct {
			Code *string `json:"code"`
		}
		if len(env.Payload) == 0 {
			return nil, fmt.Errorf("%w: submit_answer without payload", ErrBadMessage)
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: submit_answer payload: %v", ErrBadMessage, err)
		}
		if p.Code == nil {
			return nil, fmt.Errorf("%w: submit_answer without code", ErrBadMessage)
		}
		return SubmitAnswer{Code: *p.Code}, nil

	case "countdown_control":
		if env.Action == "" {
			return nil, fmt.Errorf("%w: countdown_control without action", ErrBadMessage)
		}
		// Unknown actions decode fine; the countdown ignores them.
		return CountdownControl{Action: env.Action}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

// ServerMessage is the outbound envelope.
type ServerMessage struct {
	Type    string         `json:"type"` // "state" | "event_created" | "error"
	EventID string         `json:"eventId,omitempty"`
	Payload *room.Snapshot `json:"payload,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func StateMessage(snap room.Snapshot) ServerMessage {
	return ServerMessage{Type: "state", Payload: &snap}
}

func EventCreated(eventID string) ServerMessage {
	return ServerMessage{Type: "event_created", EventID: eventID}
}

func ErrorMessage(msg string) ServerMessage {
	return ServerMessage{Type: "error", Error: msg}
}
