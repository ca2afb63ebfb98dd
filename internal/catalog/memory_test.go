package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_LoadQuizReturnsRequestedRoundCount(t *testing.T) {
	m := NewMemory()
	m.Seed(Entry{ID: "a", Prompt: "PA", Solution: "SA", Audio: []byte("a")})
	m.Seed(Entry{ID: "b", Prompt: "PB", Solution: "SB", Audio: []byte("b")})
	m.Seed(Entry{ID: "c", Prompt: "PC", Solution: "SC", Audio: []byte("c")})

	quiz, err := m.LoadQuiz(context.Background(), "room-1", 2)
	require.NoError(t, err)
	assert.Len(t, quiz.Questions, 2)
}

func TestMemory_LoadQuizIsDeterministicPerRoom(t *testing.T) {
	m := NewMemory()
	for _, id := range []string{"a", "b", "c", "d"} {
		m.Seed(Entry{ID: id, Prompt: "P" + id, Solution: "S" + id, Audio: []byte(id)})
	}

	first, err := m.LoadQuiz(context.Background(), "room-x", 4)
	require.NoError(t, err)
	second, err := m.LoadQuiz(context.Background(), "room-x", 4)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMemory_LoadQuizCapsRoundsToCatalogSize(t *testing.T) {
	m := NewMemory()
	m.Seed(Entry{ID: "only", Prompt: "P", Solution: "S", Audio: []byte("x")})

	quiz, err := m.LoadQuiz(context.Background(), "room-1", 20)
	require.NoError(t, err)
	assert.Len(t, quiz.Questions, 1)
}

func TestMemory_LoadQuizEmptyCatalogErrors(t *testing.T) {
	m := NewMemory()
	_, err := m.LoadQuiz(context.Background(), "room-1", 5)
	assert.Error(t, err)
}

func TestMemory_AudioForReturnsSeededBytes(t *testing.T) {
	m := NewMemory()
	m.Seed(Entry{ID: "a", Prompt: "P", Solution: "S", Audio: []byte("hello")})

	data, err := m.AudioFor(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestMemory_AudioForUnknownHandleErrors(t *testing.T) {
	m := NewMemory()
	_, err := m.AudioFor(context.Background(), "missing")
	assert.Error(t, err)
}
