// Package ws accepts viewer/team/admin connections and routes their inbound
// messages into the hub and rooms. One reader loop and one writer goroutine
// per connection; all state mutation happens inside room actors, never here.
package ws

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/teamchallenge/challenge-backend/internal/countdown"
	"github.com/teamchallenge/challenge-backend/internal/event"
	"github.com/teamchallenge/challenge-backend/internal/hub"
	"github.com/teamchallenge/challenge-backend/internal/room"
	"github.com/teamchallenge/challenge-backend/internal/types"
)

const writeTimeout = 3 * time.Second

func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// Views are plain browser pages served from wherever; the rs/cors
			// layer guards the HTTP surface, origin checks add nothing here.
			InsecureSkipVerify: true,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		s := &session{
			hub:    h,
			clock:  h.Clock(),
			conn:   conn,
			meta:   NewMeta(uuid.NewString()),
			outbox: make(chan room.Snapshot, 8),
		}
		s.log = log.With(zap.String("conn_id", s.meta.ConnID))

		defer s.detach()

		// Writer goroutine: drains snapshots into state messages.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case snap, ok := <-s.outbox:
					if !ok {
						// Closed outbox means the room dropped us or shut down.
						conn.Close(websocket.StatusGoingAway, "room closed")
						return
					}
					s.write(writeCtx, types.StateMessage(snap))
				case <-writeCtx.Done():
					return
				}
			}
		}()

		// Reader loop.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			msg, err := types.Decode(data)
			if err != nil {
				// Malformed messages are dropped; the connection stays open.
				s.log.Warn("dropping message", zap.Error(err))
				s.write(r.Context(), types.ErrorMessage(errText(err)))
				continue
			}

			s.dispatch(r.Context(), msg)
		}
	}
}

type session struct {
	hub    *hub.Hub
	clock  clockwork.Clock
	conn   *websocket.Conn
	meta   *Meta
	outbox chan room.Snapshot
	log    *zap.Logger
}

func (s *session) dispatch(ctx context.Context, msg types.Inbound) {
	switch m := msg.(type) {
	case types.Hello:
		s.meta.Role = m.Role
		s.meta.TeamName = m.TeamName
		// Meta.EventID only moves together with actual room membership, so a
		// hello without an eventId changes the role and nothing else.
		if m.EventID != "" {
			// Identifying against an unknown event creates a shell room so
			// the connection starts receiving state once the event exists.
			s.attach(m.EventID, s.ensureRoom(m.EventID, nil))
		}

	case types.CreateEvent:
		id, err := s.newEventID()
		if err != nil {
			s.log.Error("event id generation failed", zap.Error(err))
			return
		}
		ev := event.New(id, m.Config, s.clock.Now())
		s.log.Info("event created", zap.String("event_id", id), zap.String("mode", string(ev.Mode)))
		// The creator must learn the ID before the first state broadcast, so
		// event_created goes out before the room Join queues a snapshot.
		s.write(ctx, types.EventCreated(id))
		s.attach(id, s.ensureRoom(id, room.NewState(ev, s.clock)))

	case types.JoinTeam:
		if !s.meta.Attached() {
			return
		}
		rm := s.meta.room
		reply := make(chan string, 1)
		rm.Inbox() <- room.JoinTeam{TeamName: m.TeamName, Reply: reply}
		select {
		case teamID := <-reply:
			if teamID != "" {
				s.meta.TeamID = teamID
				s.meta.TeamName = m.TeamName
			}
		case <-rm.Done():
			// Room shut down before replying; the connection stays usable.
		}

	case types.SubmitAnswer:
		if !s.meta.CanSubmit() {
			return
		}
		s.meta.room.Inbox() <- room.SubmitAnswer{TeamID: s.meta.TeamID, Code: m.Code}

	case types.CountdownControl:
		if !s.meta.Attached() {
			return
		}
		s.meta.room.Inbox() <- room.Control{Action: countdown.Action(m.Action)}
	}
}

// attach makes rm the connection's room, leaving the previous one first.
func (s *session) attach(eventID string, rm *room.Room) {
	if s.meta.room == rm {
		return
	}
	s.detach()
	s.meta.EventID = eventID
	s.meta.room = rm
	rm.Inbox() <- room.Join{ClientID: s.meta.ConnID, Outbox: s.outbox}
}

func (s *session) detach() {
	if s.meta.room != nil {
		s.meta.room.Inbox() <- room.Leave{ClientID: s.meta.ConnID}
		s.meta.room = nil
	}
}

func (s *session) ensureRoom(id string, st *room.State) *room.Room {
	reply := make(chan *room.Room, 1)
	s.hub.Inbox() <- hub.EnsureRoom{ID: id, State: st, Reply: reply}
	return <-reply
}

// newEventID generates a short human-typeable event identifier, retrying on
// the unlikely collision with a live room.
func (s *session) newEventID() (string, error) {
	for {
		id, err := generateCode(6)
		if err != nil {
			return "", err
		}
		reply := make(chan *room.Room, 1)
		s.hub.Inbox() <- hub.GetRoom{ID: id, Reply: reply}
		if <-reply == nil {
			return id, nil
		}
	}
}

func generateCode(length int) (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, length)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func (s *session) write(ctx context.Context, msg types.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	// Best effort; a dead socket surfaces through the reader loop.
	_ = s.conn.Write(wctx, websocket.MessageText, payload)
}

func errText(err error) string {
	if errors.Is(err, types.ErrUnknownType) {
		return "unknown type"
	}
	return "bad message"
}
