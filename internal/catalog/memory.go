package catalog

import (
	"context"
	"fmt"
	"sync"

	"amadeus/internal/game"
)

// Memory is an in-memory SongLibrary, used by tests and the
// reproducer harness for zero-I/O-latency quizzes.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

// Seed adds or replaces an entry. Population is the downloader's job
// in production; tests call this directly.
func (m *Memory) Seed(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
}

func (m *Memory) LoadQuiz(ctx context.Context, roomID string, rounds int) (game.Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	chosen, err := pickRounds(ids, roomID, rounds)
	if err != nil {
		return game.Quiz{}, err
	}

	questions := make([]game.Question, 0, len(chosen))
	for _, id := range chosen {
		e := m.entries[id]
		questions = append(questions, game.Question{
			Audio:    game.AudioHandle(e.ID),
			Prompt:   e.Prompt,
			Solution: e.Solution,
		})
	}
	return game.Quiz{Questions: questions}, nil
}

func (m *Memory) AudioFor(ctx context.Context, handle game.AudioHandle) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[string(handle)]
	if !ok {
		return nil, fmt.Errorf("catalog: unknown song %q", handle)
	}
	return e.Audio, nil
}
