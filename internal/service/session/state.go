package session

import (
	"context"

	"github.com/gorilla/websocket"

	"github.com/sebadev7/dodi-server/internal/domain"
	sessionrepo "github.com/sebadev7/dodi-server/internal/repository/session"
)

type ReportStateParams struct {
	SessionId string
	SenderId  string
	Reported  domain.PlaybackState
}

type ReportStateResponse struct {
	// Accepted is false when the report was discarded: within tolerance in
	// consensus mode, or from a non-authority sender in authority mode.
	// Neither is an error.
	Accepted bool
	State    domain.PlaybackState
	// Seq orders this update against the session's other accepted updates.
	Seq   uint64
	Conns []*websocket.Conn
}

func (s service) ReportState(ctx context.Context, params *ReportStateParams) (ReportStateResponse, error) {
	reconResp, err := s.sessionRepo.ReconcileState(ctx, &sessionrepo.ReconcileStateParams{
		SessionId: params.SessionId,
		SenderId:  params.SenderId,
		Tolerance: s.config.PositionTolerance,
		Reported:  params.Reported,
	})
	if err != nil {
		return ReportStateResponse{}, s.mapRepoErr(err)
	}

	if !reconResp.Accepted {
		return ReportStateResponse{Accepted: false, State: reconResp.State}, nil
	}

	s.logger.DebugContext(ctx, "state reconciled",
		"session_id", params.SessionId,
		"sender_id", params.SenderId,
		"position_seconds", reconResp.State.PositionSeconds,
		"is_playing", reconResp.State.IsPlaying,
	)

	return ReportStateResponse{
		Accepted: true,
		State:    reconResp.State,
		Seq:      reconResp.Seq,
		Conns:    s.getConns(ctx, reconResp.OtherMemberIds),
	}, nil
}

type UpdateMediaParams struct {
	SessionId      string
	SenderId       string
	MediaReference string
}

type UpdateMediaResponse struct {
	MediaReference string
	Seq            uint64
	Conns          []*websocket.Conn
}

// UpdateMedia sets the session's media reference unconditionally. Source
// changes must reach every member immediately, whatever the mode, so they
// are never gated by the reconciliation policy.
func (s service) UpdateMedia(ctx context.Context, params *UpdateMediaParams) (UpdateMediaResponse, error) {
	updateResp, err := s.sessionRepo.UpdateMedia(ctx, &sessionrepo.UpdateMediaParams{
		SessionId:      params.SessionId,
		SenderId:       params.SenderId,
		MediaReference: params.MediaReference,
	})
	if err != nil {
		return UpdateMediaResponse{}, s.mapRepoErr(err)
	}

	s.logger.InfoContext(ctx, "media updated",
		"session_id", params.SessionId,
		"sender_id", params.SenderId,
	)

	return UpdateMediaResponse{
		MediaReference: params.MediaReference,
		Seq:            updateResp.Seq,
		Conns:          s.getConns(ctx, updateResp.OtherMemberIds),
	}, nil
}
