package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"amadeus/internal/game"
)

const songsBucket = "songs"

// storedSong is the JSON encoding of one Entry inside the songs
// bucket, keyed by Entry.ID.
type storedSong struct {
	Prompt   string `json:"prompt"`
	Solution string `json:"solution"`
	Audio    []byte `json:"audio"`
}

// Store is a bbolt-backed SongLibrary: read-through on every call,
// safe for concurrent reads per bbolt's own MVCC guarantees (spec.md
// §5's "SongLibrary is read-only and safe under parallel reads").
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the bbolt file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(songsBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog: create bucket: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Seed writes e into the store, overwriting any existing entry with
// the same id. Population is the downloader's job in production;
// tests and seeding tools call this directly.
func (s *Store) Seed(e Entry) error {
	data, err := json.Marshal(storedSong{Prompt: e.Prompt, Solution: e.Solution, Audio: e.Audio})
	if err != nil {
		return fmt.Errorf("catalog: marshal %s: %w", e.ID, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(songsBucket))
		return b.Put([]byte(e.ID), data)
	})
}

func (s *Store) LoadQuiz(ctx context.Context, roomID string, rounds int) (game.Quiz, error) {
	var ids []string
	if err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(songsBucket))
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			ids = append(ids, string(k))
		}
		return nil
	}); err != nil {
		return game.Quiz{}, fmt.Errorf("catalog: list songs: %w", err)
	}

	chosen, err := pickRounds(ids, roomID, rounds)
	if err != nil {
		return game.Quiz{}, err
	}

	questions := make([]game.Question, 0, len(chosen))
	if err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(songsBucket))
		for _, id := range chosen {
			raw := b.Get([]byte(id))
			if raw == nil {
				return fmt.Errorf("catalog: song %q vanished mid-read", id)
			}
			var song storedSong
			if err := json.Unmarshal(raw, &song); err != nil {
				return fmt.Errorf("catalog: unmarshal %q: %w", id, err)
			}
			questions = append(questions, game.Question{
				Audio:    game.AudioHandle(id),
				Prompt:   song.Prompt,
				Solution: song.Solution,
			})
		}
		return nil
	}); err != nil {
		return game.Quiz{}, err
	}

	return game.Quiz{Questions: questions}, nil
}

func (s *Store) AudioFor(ctx context.Context, handle game.AudioHandle) ([]byte, error) {
	var audio []byte
	if err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(songsBucket))
		raw := b.Get([]byte(handle))
		if raw == nil {
			return fmt.Errorf("catalog: unknown song %q", handle)
		}
		var song storedSong
		if err := json.Unmarshal(raw, &song); err != nil {
			return fmt.Errorf("catalog: unmarshal %q: %w", handle, err)
		}
		audio = song.Audio
		return nil
	}); err != nil {
		return nil, err
	}
	return audio, nil
}

var _ game.SongLibrary = (*Store)(nil)
