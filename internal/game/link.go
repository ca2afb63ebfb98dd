package game

import "amadeus/internal/wire"

// Link is the controller's view of one connected WebSocket (spec.md's
// PlayerLink, C2). The concrete implementation owns the raw socket; the
// controller only ever calls these methods and never touches the
// network directly.
type Link interface {
	// Send best-effort delivers a server command. A failure is logged by
	// the caller; it does not by itself close the link (spec.md §5's
	// broadcast failure policy) unless the caller decides the failure is
	// fatal (e.g. during audio streaming).
	Send(cmd wire.ServerCommand) error

	// SendAudio atomically sends a SONG_DATA announcement followed by a
	// single binary frame of len(data) bytes, with no other frame
	// interleaved on this link in between (spec.md §4.4.4, §5).
	SendAudio(round int, data []byte) error

	// Close closes the underlying socket with the given close reason.
	Close(reason CloseReason)
}
