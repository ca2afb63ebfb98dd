package game

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amadeus/internal/wire"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dir := NewMemoryDirectory()
	lib := &fakeLibrary{quiz: oneRoundQuiz()}
	timers := NewSystemTimerService()
	idgen := NewUUIDGenerator()
	return NewRegistry(lib, dir, timers, idgen, fastConfig, zerolog.Nop())
}

func TestRegistry_GetOrCreateIsIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	a := r.GetOrCreate("room-x")
	b := r.GetOrCreate("room-x")
	assert.Same(t, a, b)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_CreateMintsDistinctRooms(t *testing.T) {
	r := newTestRegistry(t)
	a := r.Create()
	b := r.Create()
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_GetDoesNotCreate(t *testing.T) {
	r := newTestRegistry(t)
	_, ok := r.Get("nope")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_ListNeverBlocksOnController(t *testing.T) {
	r := newTestRegistry(t)
	c := r.GetOrCreate("room-y")

	linkA := &fakeLink{}
	joinAndWait(t, c, "A", linkA)

	summaries := r.List()
	require.Len(t, summaries, 1)
	assert.Equal(t, "room-y", summaries[0].ID)
	assert.Equal(t, 1, summaries[0].ConnectedCount)
	assert.Equal(t, PhaseLobby, summaries[0].Phase)
}

func TestRegistry_ReapsTerminatedRoom(t *testing.T) {
	r := newTestRegistry(t)
	c := r.GetOrCreate("room-z")

	linkA := &fakeLink{}
	joinAndWait(t, c, "A", linkA)
	c.Dispatch("A", wire.StartCommand{})
	waitForPhase(t, c, PhaseBuffering)
	c.Dispatch("A", wire.BufferCompleteCommand{Round: 0})
	waitForPhase(t, c, PhasePlaying)
	c.Dispatch("A", wire.GuessCommand{Round: 0, Guess: "Answer"})
	waitForPhase(t, c, PhaseFinished)

	c.Closed("A", linkA)
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("room never terminated")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if r.Len() == 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("registry never reaped the terminated room")
}

func TestRegistry_RecreatingAfterReapGetsAFreshController(t *testing.T) {
	r := newTestRegistry(t)
	first := r.GetOrCreate("room-w")
	linkA := &fakeLink{}
	joinAndWait(t, first, "A", linkA)
	first.Dispatch("A", wire.StartCommand{})
	waitForPhase(t, first, PhaseBuffering)
	first.Dispatch("A", wire.BufferCompleteCommand{Round: 0})
	waitForPhase(t, first, PhasePlaying)
	first.Dispatch("A", wire.GuessCommand{Round: 0, Guess: "Answer"})
	waitForPhase(t, first, PhaseFinished)
	first.Closed("A", linkA)
	<-first.Done()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && r.Len() != 0 {
		time.Sleep(time.Millisecond)
	}

	second := r.GetOrCreate("room-w")
	assert.NotSame(t, first, second)
	assert.Equal(t, PhaseLobby, second.Status().Phase)
}
