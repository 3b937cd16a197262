package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sebadev7/dodi-server/internal/domain"
	sessionrepo "github.com/sebadev7/dodi-server/internal/repository/session"
)

type CreateSessionParams struct {
	Conn *websocket.Conn
	// ParticipantId is caller-supplied; generated when empty.
	ParticipantId  string
	MediaReference string
	AuthorityMode  bool
}

type CreateSessionResponse struct {
	SessionId     string
	ParticipantId string
	State         domain.PlaybackState
}

// CreateSession creates a session and joins the creator as its first member.
// In authority mode the creator therefore holds authority from the start.
func (s service) CreateSession(ctx context.Context, params *CreateSessionParams) (CreateSessionResponse, error) {
	sessionId := s.generator.GenerateRandomString(sessionIdLength)

	mode := domain.SyncModeConsensus
	if params.AuthorityMode {
		mode = domain.SyncModeAuthority
	}

	if err := s.sessionRepo.CreateSession(ctx, &sessionrepo.CreateSessionParams{
		SessionId:      sessionId,
		MediaReference: params.MediaReference,
		Mode:           mode,
	}); err != nil {
		return CreateSessionResponse{}, fmt.Errorf("failed to create session: %w", err)
	}

	participantId := params.ParticipantId
	if participantId == "" {
		participantId = uuid.NewString()
	}

	if err := s.connRepo.Add(params.Conn, participantId); err != nil {
		s.logger.InfoContext(ctx, "failed to bind connection", "error", err)
		_ = s.sessionRepo.DeleteSessionIfEmpty(ctx, sessionId)
		return CreateSessionResponse{}, err
	}

	addResp, err := s.sessionRepo.AddMember(ctx, &sessionrepo.AddMemberParams{
		SessionId:     sessionId,
		ParticipantId: participantId,
	})
	if err != nil {
		return CreateSessionResponse{}, s.mapRepoErr(err)
	}

	s.logger.InfoContext(ctx, "session created",
		"session_id", sessionId,
		"participant_id", participantId,
		"mode", mode,
	)

	return CreateSessionResponse{
		SessionId:     sessionId,
		ParticipantId: participantId,
		State:         addResp.State,
	}, nil
}

type JoinSessionParams struct {
	Conn          *websocket.Conn
	SessionId     string
	ParticipantId string
}

type JoinSessionResponse struct {
	ParticipantId string
	State         domain.PlaybackState
	// Conns are the connections of the members present before the join, for
	// the participant-joined notification that excludes the joiner.
	Conns []*websocket.Conn
}

func (s service) JoinSession(ctx context.Context, params *JoinSessionParams) (JoinSessionResponse, error) {
	// reject before touching the connection binding so a failed join leaves
	// no side effects
	if _, err := s.sessionRepo.SessionState(ctx, params.SessionId); err != nil {
		return JoinSessionResponse{}, s.mapRepoErr(err)
	}

	participantId := params.ParticipantId
	if participantId == "" {
		participantId = uuid.NewString()
	}

	if err := s.connRepo.Add(params.Conn, participantId); err != nil {
		s.logger.InfoContext(ctx, "failed to bind connection", "error", err)
		return JoinSessionResponse{}, err
	}

	addResp, err := s.sessionRepo.AddMember(ctx, &sessionrepo.AddMemberParams{
		SessionId:     params.SessionId,
		ParticipantId: participantId,
	})
	if err != nil {
		_ = s.connRepo.RemoveByParticipantId(participantId)
		return JoinSessionResponse{}, s.mapRepoErr(err)
	}

	s.logger.InfoContext(ctx, "participant joined",
		"session_id", params.SessionId,
		"participant_id", participantId,
	)

	return JoinSessionResponse{
		ParticipantId: participantId,
		State:         addResp.State,
		Conns:         s.getConns(ctx, addResp.OtherMemberIds),
	}, nil
}

type LeaveSessionParams struct {
	SessionId     string
	ParticipantId string
}

// LeaveSession removes the participant from the session and deletes the
// session once its member set is empty. It is idempotent: a vanished session
// or an already-removed member is a no-op, since disconnects race with
// everything.
func (s service) LeaveSession(ctx context.Context, params *LeaveSessionParams) error {
	removeResp, err := s.sessionRepo.RemoveMember(ctx, &sessionrepo.RemoveMemberParams{
		SessionId:        params.SessionId,
		ParticipantId:    params.ParticipantId,
		PromoteAuthority: s.config.PromoteOnAuthorityLeave,
	})
	if err != nil {
		if errors.Is(err, sessionrepo.ErrSessionNotFound) {
			return nil
		}
		return err
	}

	if removeResp.WasAuthority {
		s.logger.InfoContext(ctx, "authority left session",
			"session_id", params.SessionId,
			"promoted_participant_id", removeResp.PromotedId,
		)
	}

	if removeResp.Empty {
		if err := s.sessionRepo.DeleteSessionIfEmpty(ctx, params.SessionId); err != nil {
			return err
		}
	}

	s.logger.InfoContext(ctx, "participant left",
		"session_id", params.SessionId,
		"participant_id", params.ParticipantId,
	)

	return nil
}

type DisconnectParams struct {
	Conn *websocket.Conn
	// SessionId and ParticipantId identify the binding being torn down; both
	// empty for a connection that never joined.
	SessionId     string
	ParticipantId string
}

func (s service) Disconnect(ctx context.Context, params *DisconnectParams) error {
	if params.SessionId != "" {
		if err := s.LeaveSession(ctx, &LeaveSessionParams{
			SessionId:     params.SessionId,
			ParticipantId: params.ParticipantId,
		}); err != nil {
			s.logger.InfoContext(ctx, "failed to leave session on disconnect", "error", err)
		}
	}

	// no-op when the connection never bound
	_ = s.connRepo.RemoveByConn(params.Conn)

	return nil
}
