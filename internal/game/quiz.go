package game

import "context"

// AudioHandle resolves to a finite byte sequence of audio. Its format is
// opaque to the core; the front-end is responsible for decoding it.
type AudioHandle string

// Question is one entry of a Quiz.
type Question struct {
	Audio    AudioHandle
	Prompt   string
	Solution string
}

// Quiz is an immutable, ordered list of questions. Once loaded it is
// never mutated.
type Quiz struct {
	Questions []Question
}

// SongLibrary resolves AudioHandles to playable bytes and loads the
// Quiz for a room. Implementations must be safe for concurrent reads;
// the controller calls AudioFor from short-lived helper tasks, never
// from its own goroutine (spec.md §4.4.4, §5).
type SongLibrary interface {
	LoadQuiz(ctx context.Context, roomID string, rounds int) (Quiz, error)
	AudioFor(ctx context.Context, handle AudioHandle) ([]byte, error)
}
