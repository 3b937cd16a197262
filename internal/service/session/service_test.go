package session

import (
	"context"
	"log/slog"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebadev7/dodi-server/internal/domain"
	conninmemory "github.com/sebadev7/dodi-server/internal/repository/connection/inmemory"
	sessioninmemory "github.com/sebadev7/dodi-server/internal/repository/session/inmemory"
)

func newTestService(config Config) *service {
	logger := slog.Default()
	return NewService(sessioninmemory.NewRepo(logger), conninmemory.NewRepo(logger), config, logger)
}

func TestCreateAndJoinSession(t *testing.T) {
	s := newTestService(Config{PositionTolerance: domain.PositionTolerance})
	ctx := context.Background()

	createResp, err := s.CreateSession(ctx, &CreateSessionParams{
		Conn:           &websocket.Conn{},
		MediaReference: "A",
	})
	require.NoError(t, err)
	assert.Len(t, createResp.SessionId, 32, "session id must be a 128-bit hex token")
	assert.NotEmpty(t, createResp.ParticipantId, "participant id must be generated")
	assert.Equal(t, domain.PlaybackState{PositionSeconds: 0, IsPlaying: false, MediaReference: "A"}, createResp.State)

	joinResp, err := s.JoinSession(ctx, &JoinSessionParams{
		Conn:          &websocket.Conn{},
		SessionId:     createResp.SessionId,
		ParticipantId: "p2",
	})
	require.NoError(t, err)
	assert.Equal(t, "p2", joinResp.ParticipantId)
	assert.Equal(t, createResp.State, joinResp.State, "joiner must receive the current state")
	assert.Len(t, joinResp.Conns, 1, "only the creator should be notified of the join")
}

func TestJoinUnknownSessionHasNoSideEffects(t *testing.T) {
	s := newTestService(Config{PositionTolerance: domain.PositionTolerance})
	ctx := context.Background()

	conn := &websocket.Conn{}
	_, err := s.JoinSession(ctx, &JoinSessionParams{
		Conn:          conn,
		SessionId:     "deadbeefdeadbeefdeadbeefdeadbeef",
		ParticipantId: "p1",
	})
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = s.connRepo.GetParticipantId(conn)
	require.Error(t, err, "a failed join must not bind the connection")
}

func TestReportStateConsensus(t *testing.T) {
	s := newTestService(Config{PositionTolerance: domain.PositionTolerance})
	ctx := context.Background()

	createResp, err := s.CreateSession(ctx, &CreateSessionParams{
		Conn:           &websocket.Conn{},
		ParticipantId:  "p1",
		MediaReference: "A",
	})
	require.NoError(t, err)
	_, err = s.JoinSession(ctx, &JoinSessionParams{
		Conn:          &websocket.Conn{},
		SessionId:     createResp.SessionId,
		ParticipantId: "p2",
	})
	require.NoError(t, err)

	reportResp, err := s.ReportState(ctx, &ReportStateParams{
		SessionId: createResp.SessionId,
		SenderId:  "p2",
		Reported:  domain.PlaybackState{PositionSeconds: 10, IsPlaying: true},
	})
	require.NoError(t, err)
	assert.True(t, reportResp.Accepted)
	assert.Equal(t, domain.PlaybackState{PositionSeconds: 10, IsPlaying: true, MediaReference: "A"}, reportResp.State)
	assert.Len(t, reportResp.Conns, 1)

	// p1's converged re-report is damped
	reportResp, err = s.ReportState(ctx, &ReportStateParams{
		SessionId: createResp.SessionId,
		SenderId:  "p1",
		Reported:  domain.PlaybackState{PositionSeconds: 10.2, IsPlaying: true},
	})
	require.NoError(t, err)
	assert.False(t, reportResp.Accepted)
	assert.Empty(t, reportResp.Conns)
	assert.Equal(t, 10.0, reportResp.State.PositionSeconds, "discarded report must not change state")

	_, err = s.ReportState(ctx, &ReportStateParams{SessionId: "missing", SenderId: "p1"})
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestReportStateAuthority(t *testing.T) {
	s := newTestService(Config{PositionTolerance: domain.PositionTolerance})
	ctx := context.Background()

	createResp, err := s.CreateSession(ctx, &CreateSessionParams{
		Conn:           &websocket.Conn{},
		ParticipantId:  "host",
		MediaReference: "A",
		AuthorityMode:  true,
	})
	require.NoError(t, err)
	_, err = s.JoinSession(ctx, &JoinSessionParams{
		Conn:          &websocket.Conn{},
		SessionId:     createResp.SessionId,
		ParticipantId: "viewer",
	})
	require.NoError(t, err)

	// a huge delta from a non-authority sender is still a silent no-op
	reportResp, err := s.ReportState(ctx, &ReportStateParams{
		SessionId: createResp.SessionId,
		SenderId:  "viewer",
		Reported:  domain.PlaybackState{PositionSeconds: 1000, IsPlaying: true},
	})
	require.NoError(t, err)
	assert.False(t, reportResp.Accepted)
	assert.Equal(t, 0.0, reportResp.State.PositionSeconds)

	// the host's tiny delta is accepted unconditionally
	reportResp, err = s.ReportState(ctx, &ReportStateParams{
		SessionId: createResp.SessionId,
		SenderId:  "host",
		Reported:  domain.PlaybackState{PositionSeconds: 0.1, IsPlaying: false},
	})
	require.NoError(t, err)
	assert.True(t, reportResp.Accepted)
	assert.Len(t, reportResp.Conns, 1)
}

func TestUpdateMediaAlwaysBroadcasts(t *testing.T) {
	s := newTestService(Config{PositionTolerance: domain.PositionTolerance})
	ctx := context.Background()

	createResp, err := s.CreateSession(ctx, &CreateSessionParams{
		Conn:           &websocket.Conn{},
		ParticipantId:  "host",
		MediaReference: "A",
		AuthorityMode:  true,
	})
	require.NoError(t, err)
	_, err = s.JoinSession(ctx, &JoinSessionParams{
		Conn:          &websocket.Conn{},
		SessionId:     createResp.SessionId,
		ParticipantId: "viewer",
	})
	require.NoError(t, err)

	updateResp, err := s.UpdateMedia(ctx, &UpdateMediaParams{
		SessionId:      createResp.SessionId,
		SenderId:       "viewer",
		MediaReference: "B",
	})
	require.NoError(t, err)
	assert.Equal(t, "B", updateResp.MediaReference)
	assert.Len(t, updateResp.Conns, 1)

	_, err = s.UpdateMedia(ctx, &UpdateMediaParams{SessionId: "missing", MediaReference: "C"})
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestLeaveSessionDeletesWhenEmpty(t *testing.T) {
	s := newTestService(Config{PositionTolerance: domain.PositionTolerance})
	ctx := context.Background()

	createResp, err := s.CreateSession(ctx, &CreateSessionParams{
		Conn:           &websocket.Conn{},
		ParticipantId:  "p1",
		MediaReference: "A",
	})
	require.NoError(t, err)
	_, err = s.JoinSession(ctx, &JoinSessionParams{
		Conn:          &websocket.Conn{},
		SessionId:     createResp.SessionId,
		ParticipantId: "p2",
	})
	require.NoError(t, err)

	require.NoError(t, s.LeaveSession(ctx, &LeaveSessionParams{
		SessionId:     createResp.SessionId,
		ParticipantId: "p1",
	}))

	// still reachable with p2 in it
	_, err = s.sessionRepo.SessionState(ctx, createResp.SessionId)
	require.NoError(t, err)

	require.NoError(t, s.LeaveSession(ctx, &LeaveSessionParams{
		SessionId:     createResp.SessionId,
		ParticipantId: "p2",
	}))

	_, err = s.JoinSession(ctx, &JoinSessionParams{
		Conn:          &websocket.Conn{},
		SessionId:     createResp.SessionId,
		ParticipantId: "p3",
	})
	require.ErrorIs(t, err, ErrSessionNotFound, "an emptied session must be gone")

	// leave after deletion is a silent no-op
	require.NoError(t, s.LeaveSession(ctx, &LeaveSessionParams{
		SessionId:     createResp.SessionId,
		ParticipantId: "p2",
	}))
}

func TestAuthorityPromotionOnLeave(t *testing.T) {
	s := newTestService(Config{
		PositionTolerance:       domain.PositionTolerance,
		PromoteOnAuthorityLeave: true,
	})
	ctx := context.Background()

	createResp, err := s.CreateSession(ctx, &CreateSessionParams{
		Conn:           &websocket.Conn{},
		ParticipantId:  "host",
		MediaReference: "A",
		AuthorityMode:  true,
	})
	require.NoError(t, err)
	_, err = s.JoinSession(ctx, &JoinSessionParams{
		Conn:          &websocket.Conn{},
		SessionId:     createResp.SessionId,
		ParticipantId: "viewer",
	})
	require.NoError(t, err)

	require.NoError(t, s.LeaveSession(ctx, &LeaveSessionParams{
		SessionId:     createResp.SessionId,
		ParticipantId: "host",
	}))

	// the remaining member inherited authority, so its reports pass
	reportResp, err := s.ReportState(ctx, &ReportStateParams{
		SessionId: createResp.SessionId,
		SenderId:  "viewer",
		Reported:  domain.PlaybackState{PositionSeconds: 3, IsPlaying: true},
	})
	require.NoError(t, err)
	assert.True(t, reportResp.Accepted)
}
