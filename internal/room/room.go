// Package room implements the per-event state container: one event, its
// countdown, the join-ordered team list, and the set of live connections.
// A single goroutine owns all of it; every mutation arrives as a message on
// the inbox, so no two mutations to the same room ever run concurrently.
package room

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/teamchallenge/challenge-backend/internal/countdown"
	"github.com/teamchallenge/challenge-backend/internal/event"
)

// State is the mutable half of a room. A shell room (created when a
// connection identifies against an unknown event ID) carries a nil *State;
// joins, submissions and countdown control against it are silent no-ops.
type State struct {
	Event     event.Event
	Teams     []event.Team
	Countdown *countdown.Countdown
}

// NewState initializes room state for a freshly created event, with the
// countdown idle at the event's full duration.
func NewState(ev event.Event, clock clockwork.Clock) *State {
	return &State{
		Event:     ev,
		Teams:     []event.Team{},
		Countdown: countdown.New(time.Duration(ev.CountdownSec)*time.Second, clock),
	}
}

type Room struct {
	inbox   chan Msg
	state   *State
	clients map[string]chan Snapshot
	clock   clockwork.Clock
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, st *State, clock clockwork.Clock, log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)

	r := &Room{
		inbox:   make(chan Msg, 64),
		state:   st,
		clients: make(map[string]chan Snapshot),
		clock:   clock,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}

	go r.loop()
	return r
}

// Inbox exposes the message channel to the WS layer, the hub ticker, and
// tests.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done signals room shutdown. Senders awaiting a reply select on it so a
// removed room cannot wedge them.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.clients[msg.ClientID] = msg.Outbox
				// New connections get the current state right away so views
				// render without waiting for the next mutation.
				if r.state != nil {
					r.send(msg.ClientID, msg.Outbox, r.snapshot())
				}

			case Leave:
				delete(r.clients, msg.ClientID)

			case JoinTeam:
				msg.Reply <- r.joinTeam(msg.TeamName)

			case SubmitAnswer:
				r.submitAnswer(msg.TeamID, msg.Code)

			case Control:
				if r.state != nil {
					r.state.Countdown.Apply(msg.Action)
					r.broadcast()
				}

			case Tick:
				if r.state != nil && r.state.Countdown.Tick() {
					r.broadcast()
				}

			case GetView:
				v := View{NumClients: len(r.clients), HasEvent: r.state != nil}
				if r.state != nil {
					v.Snapshot = r.snapshot()
				}
				msg.Reply <- v

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) joinTeam(name string) string {
	if r.state == nil {
		return ""
	}
	team := event.NewTeam(uuid.NewString(), name, r.clock.Now())
	r.state.Teams = append(r.state.Teams, team)
	r.log.Info("team joined",
		zap.String("event_id", r.state.Event.ID),
		zap.String("team_id", team.ID),
		zap.String("team_name", name))
	r.broadcast()
	return team.ID
}

func (r *Room) submitAnswer(teamID, code string) {
	if r.state == nil {
		return
	}
	var team *event.Team
	for i := range r.state.Teams {
		if r.state.Teams[i].ID == teamID {
			team = &r.state.Teams[i]
			break
		}
	}
	if team == nil {
		return
	}

	accepted := r.state.Event.Submit(team, code, r.clock.Now())
	r.log.Debug("answer submitted",
		zap.String("event_id", r.state.Event.ID),
		zap.String("team_id", teamID),
		zap.Bool("accepted", accepted),
		zap.Bool("finished", team.Finished))
	// Viewers learn about rejected answers only through the unchanged state.
	r.broadcast()
}

// snapshot serializes the room state. Teams are copied so the snapshot can
// leave the actor goroutine safely; the countdown remaining is derived from
// the clock here, never read stale.
func (r *Room) snapshot() Snapshot {
	teams := make([]event.Team, len(r.state.Teams))
	copy(teams, r.state.Teams)
	return Snapshot{
		Event:     r.state.Event,
		Teams:     teams,
		Countdown: r.state.Countdown.Snapshot(),
	}
}

func (r *Room) broadcast() {
	snap := r.snapshot()
	for id, ch := range r.clients {
		r.send(id, ch, snap)
	}
}

func (r *Room) send(id string, ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
	default:
		// Connection is slow or gone. Drop it; the WS layer notices the
		// closed outbox and tears the socket down.
		r.log.Warn("dropping slow client", zap.String("client_id", id))
		close(ch)
		delete(r.clients, id)
	}
}

func (r *Room) shutdown() {
	for id, ch := range r.clients {
		close(ch)
		delete(r.clients, id)
	}
	r.cancel()
}
