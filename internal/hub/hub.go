// Package hub owns the directory of live rooms. A single goroutine serves
// lookup and creation requests and drives the periodic countdown tick into
// every registered room.
package hub

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/teamchallenge/challenge-backend/internal/room"
)

// TickInterval is the cadence at which running countdowns are advanced and
// rebroadcast.
const TickInterval = 100 * time.Millisecond

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	ID    string
	State *room.State // nil creates a shell room
	Reply chan *room.Room
}

type GetRoom struct {
	ID    string
	Reply chan *room.Room
}

// EnsureRoom returns the existing room or creates one with the given state.
type EnsureRoom struct {
	ID    string
	State *room.State // only used if creation happens
	Reply chan *room.Room
}

type RemoveRoom struct {
	ID string
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (EnsureRoom) isHubMsg()  {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	clock  clockwork.Clock
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, clock clockwork.Clock, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		clock:  clock,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Clock exposes the injected clock so the WS layer shares the hub's time
// source when building event state.
func (h *Hub) Clock() clockwork.Clock { return h.clock }

func (h *Hub) loop() {
	ticker := h.clock.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case <-ticker.Chan():
			h.tickAll()

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				if rm := h.rooms[msg.ID]; rm != nil {
					msg.Reply <- rm
					break
				}
				msg.Reply <- h.create(msg.ID, msg.State)

			case GetRoom:
				msg.Reply <- h.rooms[msg.ID] // may be nil

			case EnsureRoom:
				if rm := h.rooms[msg.ID]; rm != nil {
					msg.Reply <- rm
					break
				}
				msg.Reply <- h.create(msg.ID, msg.State)

			case RemoveRoom:
				if rm := h.rooms[msg.ID]; rm != nil {
					rm.Inbox() <- room.Shutdown{}
					delete(h.rooms, msg.ID)
				}

			case ShutdownHub:
				for _, rm := range h.rooms {
					rm.Inbox() <- room.Shutdown{}
				}
				clear(h.rooms)
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) create(id string, st *room.State) *room.Room {
	rm := room.New(h.ctx, st, h.clock, h.log.With(zap.String("event_id", id)))
	h.rooms[id] = rm
	h.log.Info("room created", zap.String("event_id", id), zap.Bool("shell", st == nil))
	return rm
}

// tickAll forwards one tick to every room. Sends are non-blocking: a room
// whose inbox is momentarily full just misses one tick and catches up on the
// next, since remaining time is derived from the clock rather than counted.
func (h *Hub) tickAll() {
	for _, rm := range h.rooms {
		select {
		case rm.Inbox() <- room.Tick{}:
		default:
		}
	}
}
