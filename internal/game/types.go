// Package game implements the per-room real-time game engine: the
// phase state machine, its message protocol, timers, and the
// buffering/scoring algorithm described by the Amadeus room spec.
package game

import (
	"time"

	"amadeus/internal/wire"
)

// Phase is one of the six states a Room moves through.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseLoading
	PhaseBuffering
	PhasePlaying
	PhaseReviewing
	PhaseFinished
)

func (p Phase) wireTag() string {
	switch p {
	case PhaseLobby:
		return wire.PhaseLobby
	case PhaseLoading:
		return wire.PhaseLoading
	case PhaseBuffering:
		return wire.PhaseBuffering
	case PhasePlaying:
		return wire.PhasePlaying
	case PhaseReviewing:
		return wire.PhaseReviewing
	case PhaseFinished:
		return wire.PhaseFinished
	default:
		return "UNKNOWN"
	}
}

// RoomConfiguration is immutable per game; it may only be edited while
// the room is in Lobby.
type RoomConfiguration struct {
	PlayTime   time.Duration
	GuessTime  time.Duration
	ReviewTime time.Duration
	Rounds     int
	MaxPlayers int
}

// DefaultRoomConfiguration mirrors the defaults named in spec.md §3.
func DefaultRoomConfiguration() RoomConfiguration {
	return RoomConfiguration{
		PlayTime:   20 * time.Second,
		GuessTime:  10 * time.Second,
		ReviewTime: 5 * time.Second,
		Rounds:     20,
		MaxPlayers: 8,
	}
}

func (c RoomConfiguration) toWire() wire.RoomConfigurationWire {
	return wire.RoomConfigurationWire{
		PlayTime:   int(c.PlayTime / time.Second),
		GuessTime:  int(c.GuessTime / time.Second),
		ReviewTime: int(c.ReviewTime / time.Second),
		Rounds:     c.Rounds,
		MaxPlayers: c.MaxPlayers,
	}
}

// PlayerInfo is the public identity of a player within a room.
type PlayerInfo struct {
	ID   string
	Name string
	Host bool
}

func (p PlayerInfo) toWire() wire.PlayerInfoWire {
	return wire.PlayerInfoWire{ID: p.ID, Name: p.Name, Host: p.Host}
}

// RoomStatus is the tagged union published by a RoomController on every
// observable state change. Only the fields relevant to Phase are
// meaningful; see spec.md §3's per-phase field table.
type RoomStatus struct {
	Phase   Phase
	Players []PlayerInfo

	Round      int
	RoundStart time.Time
	Prompt     string
	Solution   string

	Ready   map[string]struct{}
	Guessed map[string]struct{}

	Guesses map[string]string
	Correct map[string]struct{}

	Scores map[string]int
}

// ToWire flattens a RoomStatus into the JSON shape spec.md §3/§6
// describes, keeping only the fields that phase actually carries.
func (s RoomStatus) ToWire() wire.RoomStatusWire {
	out := wire.RoomStatusWire{
		State:   s.Phase.wireTag(),
		Players: make([]wire.PlayerInfoWire, 0, len(s.Players)),
	}
	for _, p := range s.Players {
		out.Players = append(out.Players, p.toWire())
	}

	switch s.Phase {
	case PhaseBuffering:
		out.Round = s.Round
		out.Ready = stringSet(s.Ready)
		out.Scores = s.Scores
	case PhasePlaying:
		out.Round = s.Round
		out.RoundStart = s.RoundStart.UnixMilli()
		out.Prompt = s.Prompt
		out.Guessed = stringSet(s.Guessed)
		out.Scores = s.Scores
	case PhaseReviewing:
		out.Round = s.Round
		out.Prompt = s.Prompt
		out.Solution = s.Solution
		out.Guesses = s.Guesses
		out.Correct = stringSet(s.Correct)
		out.Scores = s.Scores
	case PhaseFinished:
		out.Scores = s.Scores
	}
	return out
}

// KickAfter computes the buffer-stall duration past which a non-ready
// player could be forced out of a room (spec.md §9's buffer-timeout
// kick policy, left pluggable rather than mandatory). Nothing in this
// package schedules a timer against this value; it exists as the hook
// point a future policy would arm.
func KickAfter(cfg RoomConfiguration) time.Duration {
	return 2 * cfg.PlayTime
}

func stringSet(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
