package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SeedAndLoadQuizRoundTrips(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Seed(Entry{ID: "a", Prompt: "PA", Solution: "SA", Audio: []byte("a")}))
	require.NoError(t, store.Seed(Entry{ID: "b", Prompt: "PB", Solution: "SB", Audio: []byte("b")}))

	quiz, err := store.LoadQuiz(context.Background(), "room-1", 2)
	require.NoError(t, err)
	assert.Len(t, quiz.Questions, 2)
}

func TestStore_AudioForReturnsSeededBytes(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Seed(Entry{ID: "song", Prompt: "P", Solution: "S", Audio: []byte("bytes-go-here")}))

	data, err := store.AudioFor(context.Background(), "song")
	require.NoError(t, err)
	assert.Equal(t, []byte("bytes-go-here"), data)
}

func TestStore_AudioForUnknownHandleErrors(t *testing.T) {
	store := openTestStore(t)
	_, err := store.AudioFor(context.Background(), "nope")
	assert.Error(t, err)
}

func TestStore_SeedOverwritesExistingEntry(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Seed(Entry{ID: "a", Prompt: "old", Solution: "old", Audio: []byte("old")}))
	require.NoError(t, store.Seed(Entry{ID: "a", Prompt: "new", Solution: "new", Audio: []byte("new")}))

	data, err := store.AudioFor(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), data)
}
