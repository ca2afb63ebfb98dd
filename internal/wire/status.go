package wire

// Phase values are the wire-level tags for RoomStatusWire.State.
const (
	PhaseLobby     = "LOBBY"
	PhaseLoading   = "LOADING"
	PhaseBuffering = "BUFFERING"
	PhasePlaying   = "PLAYING"
	PhaseReviewing = "REVIEWING"
	PhaseFinished  = "FINISHED"
)

// RoomStatusWire is the flat JSON shape of a RoomStatus snapshot. Only
// the fields relevant to State are populated; the rest are left at
// their zero value and omitted by the `omitempty` tags below. The same
// tags also omit a relevant field whose value is zero or empty: round 0,
// an empty prompt, and empty sets or maps (ready, guessed, guesses,
// correct, scores) are absent from the frame rather than sent as 0, ""
// or empty collections. Only state and players are always present.
type RoomStatusWire struct {
	State string `json:"state"`

	Players []PlayerInfoWire `json:"players"`

	Round      int    `json:"round,omitempty"`
	RoundStart int64  `json:"roundStart,omitempty"`
	Prompt     string `json:"prompt,omitempty"`
	Solution   string `json:"solution,omitempty"`

	Ready   []string `json:"ready,omitempty"`
	Guessed []string `json:"guessed,omitempty"`

	Guesses map[string]string `json:"guesses,omitempty"`
	Correct []string          `json:"correct,omitempty"`

	Scores map[string]int `json:"scores,omitempty"`
}
