package ws

import (
	"github.com/teamchallenge/challenge-backend/internal/room"
	"github.com/teamchallenge/challenge-backend/internal/types"
)

// Meta is the per-connection identity: role, room membership and, for team
// connections, the team it plays for. A fresh connection is an admin with no
// room until a hello or create_event says otherwise; it belongs to at most
// one room at a time.
type Meta struct {
	ConnID   string
	Role     types.Role
	EventID  string
	TeamID   string
	TeamName string

	room *room.Room
}

func NewMeta(connID string) *Meta {
	return &Meta{ConnID: connID, Role: types.RoleAdmin}
}

// Attached reports whether the connection is a member of a room.
func (m *Meta) Attached() bool { return m.room != nil }

// CanSubmit reports whether submit_answer messages from this connection can
// be routed: it must sit in a room and have joined as a team.
func (m *Meta) CanSubmit() bool { return m.room != nil && m.TeamID != "" }
