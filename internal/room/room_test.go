package room

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teamchallenge/challenge-backend/internal/countdown"
	"github.com/teamchallenge/challenge-backend/internal/event"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			return // closed channel means no further snapshots, fine
		}
		t.Fatalf("expected no snapshot within %v, but got: %+v", within, s)
	case <-time.After(within):
	}
}

func recvView(t *testing.T, rm *Room, within time.Duration) View {
	t.Helper()
	reply := make(chan View, 1)
	rm.Inbox() <- GetView{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func joinTeam(t *testing.T, rm *Room, name string) string {
	t.Helper()
	reply := make(chan string, 1)
	rm.Inbox() <- JoinTeam{TeamName: name, Reply: reply}
	select {
	case id := <-reply:
		return id
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for join reply")
		return "" // unreachable
	}
}

func sharedState(clock clockwork.Clock) *State {
	ev := event.New("EV1", event.Config{
		Name:            "Test",
		CountdownSec:    600,
		Mode:            event.ModeShared,
		Levels:          []event.Level{{Index: 1, Prompt: "q1", Code: "LION"}},
		FinalCode:       "VICTORY",
		CaseInsensitive: true,
	}, clock.Now())
	return NewState(ev, clock)
}

func TestRoom_JoinSendsCurrentSnapshot(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rm := New(ctx, sharedState(clock), clock, zap.NewNop())

	out := make(chan Snapshot, 2)
	rm.Inbox() <- Join{ClientID: "c1", Outbox: out}

	snap := recvSnapshot(t, out, time.Second)
	assert.Equal(t, "EV1", snap.Event.ID)
	assert.Empty(t, snap.Teams)
	assert.Equal(t, int64(600_000), snap.Countdown.RemainingMs)
	assert.False(t, snap.Countdown.IsRunning)
}

func TestRoom_JoinTeamBroadcastsToEveryConnection(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rm := New(ctx, sharedState(clock), clock, zap.NewNop())

	outA := make(chan Snapshot, 4)
	outB := make(chan Snapshot, 4)
	rm.Inbox() <- Join{ClientID: "a", Outbox: outA}
	rm.Inbox() <- Join{ClientID: "b", Outbox: outB}
	_ = recvSnapshot(t, outA, time.Second)
	_ = recvSnapshot(t, outB, time.Second)

	teamID := joinTeam(t, rm, "Red")
	require.NotEmpty(t, teamID)

	for _, out := range []chan Snapshot{outA, outB} {
		snap := recvSnapshot(t, out, time.Second)
		require.Len(t, snap.Teams, 1)
		assert.Equal(t, teamID, snap.Teams[0].ID)
		assert.Equal(t, "Red", snap.Teams[0].Name)
		assert.Equal(t, 0, snap.Teams[0].CurrentLevel)
		// Exactly one snapshot per connection for one mutation.
		recvNoSnapshot(t, out, 50*time.Millisecond)
	}
}

func TestRoom_SharedScenario_AdvanceAndFinish(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rm := New(ctx, sharedState(clock), clock, zap.NewNop())

	out := make(chan Snapshot, 8)
	rm.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, time.Second)

	teamID := joinTeam(t, rm, "Red")
	_ = recvSnapshot(t, out, time.Second)

	clock.Advance(30 * time.Second)
	rm.Inbox() <- SubmitAnswer{TeamID: teamID, Code: "lion"} // case-insensitive event

	snap := recvSnapshot(t, out, time.Second)
	require.Len(t, snap.Teams, 1)
	assert.Equal(t, 1, snap.Teams[0].CurrentLevel)
	assert.Equal(t, 1, snap.Teams[0].SolvedCount)
	assert.False(t, snap.Teams[0].Finished)

	clock.Advance(15 * time.Second)
	rm.Inbox() <- SubmitAnswer{TeamID: teamID, Code: "victory"}

	snap = recvSnapshot(t, out, time.Second)
	assert.Equal(t, 2, snap.Teams[0].CurrentLevel)
	assert.Equal(t, 2, snap.Teams[0].SolvedCount)
	assert.True(t, snap.Teams[0].Finished)
	assert.Equal(t, int64(45_000), snap.Teams[0].ElapsedMs)
}

func TestRoom_WrongAnswerStillBroadcastsUnchangedState(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rm := New(ctx, sharedState(clock), clock, zap.NewNop())

	out := make(chan Snapshot, 8)
	rm.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, time.Second)
	teamID := joinTeam(t, rm, "Red")
	_ = recvSnapshot(t, out, time.Second)

	rm.Inbox() <- SubmitAnswer{TeamID: teamID, Code: "TIGER"}

	snap := recvSnapshot(t, out, time.Second)
	assert.Equal(t, 0, snap.Teams[0].CurrentLevel)
	assert.Equal(t, 0, snap.Teams[0].SolvedCount)
}

func TestRoom_UnknownTeamSubmissionIsSilent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rm := New(ctx, sharedState(clock), clock, zap.NewNop())

	out := make(chan Snapshot, 4)
	rm.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, time.Second)

	rm.Inbox() <- SubmitAnswer{TeamID: "nobody", Code: "LION"}
	recvNoSnapshot(t, out, 100*time.Millisecond)
}

func TestRoom_ShellRoomIgnoresMutations(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rm := New(ctx, nil, clock, zap.NewNop())

	out := make(chan Snapshot, 4)
	rm.Inbox() <- Join{ClientID: "c1", Outbox: out}
	// No event state yet, so no snapshot on join either.
	recvNoSnapshot(t, out, 100*time.Millisecond)

	assert.Empty(t, joinTeam(t, rm, "Red"))

	rm.Inbox() <- Control{Action: countdown.ActionStart}
	rm.Inbox() <- Tick{}
	recvNoSnapshot(t, out, 100*time.Millisecond)

	view := recvView(t, rm, time.Second)
	assert.False(t, view.HasEvent)
	assert.Equal(t, 1, view.NumClients)
}

func TestRoom_CountdownControlAlwaysBroadcasts(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rm := New(ctx, sharedState(clock), clock, zap.NewNop())

	out := make(chan Snapshot, 8)
	rm.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, time.Second)

	// Pause while idle is an invalid transition, yet state still goes out.
	rm.Inbox() <- Control{Action: countdown.ActionPause}
	snap := recvSnapshot(t, out, time.Second)
	assert.False(t, snap.Countdown.IsRunning)
	assert.Equal(t, int64(600_000), snap.Countdown.RemainingMs)

	rm.Inbox() <- Control{Action: countdown.ActionStart}
	snap = recvSnapshot(t, out, time.Second)
	assert.True(t, snap.Countdown.IsRunning)
}

func TestRoom_TickBroadcastsOnlyWhileRunning(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rm := New(ctx, sharedState(clock), clock, zap.NewNop())

	out := make(chan Snapshot, 8)
	rm.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, time.Second)

	// Idle room: ticks are no-ops, nothing goes out.
	rm.Inbox() <- Tick{}
	recvNoSnapshot(t, out, 100*time.Millisecond)

	rm.Inbox() <- Control{Action: countdown.ActionStart}
	_ = recvSnapshot(t, out, time.Second)

	clock.Advance(5 * time.Second)
	rm.Inbox() <- Tick{}
	snap := recvSnapshot(t, out, time.Second)
	assert.Equal(t, int64(595_000), snap.Countdown.RemainingMs)
	assert.True(t, snap.Countdown.IsRunning)
}

func TestRoom_DropSlowClient(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rm := New(ctx, sharedState(clock), clock, zap.NewNop())

	// Buffer of one: the join snapshot fills it, the next broadcast can't.
	out := make(chan Snapshot, 1)
	rm.Inbox() <- Join{ClientID: "slow", Outbox: out}

	_ = joinTeam(t, rm, "Red")

	view := recvView(t, rm, time.Second)
	assert.Equal(t, 0, view.NumClients)
}

func TestRoom_DoneSignalsShutdown(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rm := New(ctx, sharedState(clock), clock, zap.NewNop())

	select {
	case <-rm.Done():
		t.Fatalf("room done before shutdown")
	default:
	}

	rm.Inbox() <- Shutdown{}

	// Senders blocked on a reply select on Done to survive room removal.
	select {
	case <-rm.Done():
	case <-time.After(time.Second):
		t.Fatalf("room done not signaled after shutdown")
	}
}

func TestRoom_ShutdownClosesOutboxes(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rm := New(ctx, sharedState(clock), clock, zap.NewNop())

	out := make(chan Snapshot, 2)
	rm.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, time.Second)

	rm.Inbox() <- Shutdown{}

	select {
	case _, ok := <-out:
		assert.False(t, ok, "outbox should be closed, not carrying data")
	case <-time.After(time.Second):
		t.Fatalf("outbox not closed after shutdown")
	}
}
