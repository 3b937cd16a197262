package session

import "github.com/sebadev7/dodi-server/internal/domain"

type CreateSessionParams struct {
	SessionId      string
	MediaReference string
	Mode           domain.SyncMode
}

type AddMemberParams struct {
	SessionId     string
	ParticipantId string
}

type AddMemberResponse struct {
	State domain.PlaybackState
	// OtherMemberIds are the members present before the join, for the
	// participant-joined notification that excludes the joiner.
	OtherMemberIds  []string
	BecameAuthority bool
}

type RemoveMemberParams struct {
	SessionId     string
	ParticipantId string
	// PromoteAuthority promotes an arbitrary remaining member when the
	// departing participant held authority.
	PromoteAuthority bool
}

type RemoveMemberResponse struct {
	Empty        bool
	WasAuthority bool
	PromotedId   string
}

type ReconcileStateParams struct {
	SessionId string
	SenderId  string
	Tolerance float64
	Reported  domain.PlaybackState
}

type ReconcileStateResponse struct {
	Accepted bool
	State    domain.PlaybackState
	// Seq is the session's state sequence number after the call. Accepted
	// reports and media updates share one counter, so delivery can be ordered
	// across senders.
	Seq            uint64
	OtherMemberIds []string
}

type UpdateMediaParams struct {
	SessionId      string
	SenderId       string
	MediaReference string
}

type UpdateMediaResponse struct {
	Seq            uint64
	OtherMemberIds []string
}
