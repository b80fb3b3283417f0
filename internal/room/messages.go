package room

import (
	"github.com/teamchallenge/challenge-backend/internal/countdown"
	"github.com/teamchallenge/challenge-backend/internal/event"
)

type Msg interface{ isRoomMsg() }

// Join attaches a viewer connection to the room's broadcast set.
type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this connection wants to receive snapshots
}

func (Join) isRoomMsg() {}

type Leave struct{ ClientID string }

func (Leave) isRoomMsg() {}

// JoinTeam registers a new team. Reply carries the generated team ID, or ""
// when the room has no event yet.
type JoinTeam struct {
	TeamName string
	Reply    chan string
}

func (JoinTeam) isRoomMsg() {}

// SubmitAnswer checks an answer code for a team. Unknown teams are a silent
// no-op; incorrect answers still trigger a broadcast.
type SubmitAnswer struct {
	TeamID string
	Code   string
}

func (SubmitAnswer) isRoomMsg() {}

// Control applies a countdown action. Invalid transitions and unknown
// actions are ignored, but a broadcast always follows.
type Control struct {
	Action countdown.Action
}

func (Control) isRoomMsg() {}

// Tick advances the countdown; only a running countdown broadcasts.
type Tick struct{}

func (Tick) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

// GetView reflects internal state without data races. Test hook.
type GetView struct {
	Reply chan View
}

func (GetView) isRoomMsg() {}

// Snapshot is the full room state fanned out to every connection after a
// mutation. The countdown portion is recomputed at snapshot time.
type Snapshot struct {
	Event     event.Event        `json:"event"`
	Teams     []event.Team       `json:"teams"`
	Countdown countdown.Snapshot `json:"countdown"`
}

type View struct {
	NumClients int
	HasEvent   bool
	Snapshot   Snapshot
}
