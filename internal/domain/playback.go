package domain

// PlaybackState is the shared player state of a session. It is a value type:
// accepted reports replace it whole.
type PlaybackState struct {
	PositionSeconds float64 `json:"position_seconds"`
	IsPlaying       bool    `json:"is_playing"`
	MediaReference  string  `json:"media_reference"`
}

// SyncMode selects how conflicting state reports are reconciled. It is fixed
// at session creation.
type SyncMode string

const (
	// SyncModeAuthority trusts reports from the designated authority
	// participant unconditionally and discards everyone else's.
	SyncModeAuthority SyncMode = "authority"

	// SyncModeConsensus has no designated authority; reports are gated by
	// the position tolerance band instead.
	SyncModeConsensus SyncMode = "consensus"
)

// PositionTolerance is the default position delta, in seconds, below which a
// consensus-mode report is treated as already converged.
const PositionTolerance = 0.5
