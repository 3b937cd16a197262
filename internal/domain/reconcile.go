package domain

import "math"

// Reconcile decides whether a reported playback state replaces the current
// one. It is pure: callers are responsible for running it inside the
// session's critical section and for broadcasting the result on acceptance.
//
// Authority mode accepts reports from the assigned authority only; an
// unassigned authority accepts nobody. Rejection is silent: an unauthorized
// report is steady-state noise, not a fault.
//
// Consensus mode damps the feedback loop of periodic self-reports: a report
// whose position is within tolerance of the current position and changes
// nothing else is treated as converged and discarded. An is_playing flip
// always counts as exceeding tolerance, as does a media reference change.
func Reconcile(mode SyncMode, fromAuthority bool, tolerance float64, current, reported PlaybackState) bool {
	switch mode {
	case SyncModeAuthority:
		return fromAuthority
	case SyncModeConsensus:
		if reported.MediaReference != "" && reported.MediaReference != current.MediaReference {
			return true
		}
		if reported.IsPlaying != current.IsPlaying {
			return true
		}
		return math.Abs(reported.PositionSeconds-current.PositionSeconds) > tolerance
	}

	return false
}

// Merge produces the replacement state for an accepted report. A report with
// an empty media reference keeps the session's current one; media changes
// travel on their own update path.
func Merge(current, reported PlaybackState) PlaybackState {
	if reported.MediaReference == "" {
		reported.MediaReference = current.MediaReference
	}

	return reported
}
