package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/sebadev7/dodi-server/internal/domain"
	sessionrepo "github.com/sebadev7/dodi-server/internal/repository/session"
	"github.com/sebadev7/dodi-server/pkg/randstr"
)

var ErrSessionNotFound = errors.New("session not found")

// session ids are 32 hex characters: 128 random bits, enough to make
// collisions negligible without coordination.
const sessionIdLength = 32

type iSessionRepo interface {
	CreateSession(context.Context, *sessionrepo.CreateSessionParams) error
	SessionState(context.Context, string) (domain.PlaybackState, error)
	AddMember(context.Context, *sessionrepo.AddMemberParams) (sessionrepo.AddMemberResponse, error)
	RemoveMember(context.Context, *sessionrepo.RemoveMemberParams) (sessionrepo.RemoveMemberResponse, error)
	DeleteSessionIfEmpty(context.Context, string) error
	ReconcileState(context.Context, *sessionrepo.ReconcileStateParams) (sessionrepo.ReconcileStateResponse, error)
	UpdateMedia(context.Context, *sessionrepo.UpdateMediaParams) (sessionrepo.UpdateMediaResponse, error)
}

type iConnRepo interface {
	Add(*websocket.Conn, string) error
	RemoveByConn(*websocket.Conn) error
	RemoveByParticipantId(string) error
	GetConn(string) (*websocket.Conn, error)
	GetParticipantId(*websocket.Conn) (string, error)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	// PositionTolerance is the consensus-mode position delta, in seconds,
	// below which a report is discarded as converged.
	PositionTolerance float64
	// PromoteOnAuthorityLeave transfers authority to another member when the
	// authority disconnects instead of leaving it unassigned.
	PromoteOnAuthorityLeave bool
}

type service struct {
	sessionRepo iSessionRepo
	connRepo    iConnRepo
	generator   iGenerator
	config      Config
	logger      *slog.Logger
}

func NewService(sessionRepo iSessionRepo, connRepo iConnRepo, config Config, logger *slog.Logger) *service {
	s := service{
		sessionRepo: sessionRepo,
		connRepo:    connRepo,
		config:      config,
		logger:      logger,
	}

	s.generator = randstr.New([]byte("0123456789abcdef"))

	return &s
}

func (s service) mapRepoErr(err error) error {
	if errors.Is(err, sessionrepo.ErrSessionNotFound) {
		return ErrSessionNotFound
	}

	return err
}

// getConns resolves member ids to live connections. Members whose connection
// is already gone are skipped: delivery is best-effort and their cleanup runs
// through the disconnect path independently.
func (s service) getConns(ctx context.Context, memberIds []string) []*websocket.Conn {
	conns := make([]*websocket.Conn, 0, len(memberIds))
	for _, id := range memberIds {
		conn, err := s.connRepo.GetConn(id)
		if err != nil {
			s.logger.DebugContext(ctx, "member has no live connection", "participant_id", id)
			continue
		}
		conns = append(conns, conn)
	}

	return conns
}
