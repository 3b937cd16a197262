package controller

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sebadev7/dodi-server/internal/service/session"
	"github.com/sebadev7/dodi-server/pkg/ctxlogger"
)

type connPhase int

const (
	phaseConnected connPhase = iota
	phaseJoined
	phaseDisconnected
)

// connBinding is the lifecycle state of one connection: Connected (no
// session), Joined (bound to one session + participant), Disconnected
// (terminal). It is mutated only by the connection's read loop, which
// processes messages sequentially, so it needs no lock.
type connBinding struct {
	phase         connPhase
	sessionId     string
	participantId string
}

func (b *connBinding) join(sessionId, participantId string) {
	b.phase = phaseJoined
	b.sessionId = sessionId
	b.participantId = participantId
}

type contextKey int

const (
	bindingCtxKey contextKey = iota
)

func (c *controller) getBindingFromCtx(ctx context.Context) *connBinding {
	binding, ok := ctx.Value(bindingCtxKey).(*connBinding)
	if !ok {
		return &connBinding{}
	}

	return binding
}

// implicitLeave handles a create/join arriving on an already-joined
// connection: the prior membership is left first, never silently kept and
// never double-counted.
func (c *controller) implicitLeave(ctx context.Context, binding *connBinding) error {
	if binding.phase != phaseJoined {
		return nil
	}

	if err := c.sessionService.LeaveSession(ctx, &session.LeaveSessionParams{
		SessionId:     binding.sessionId,
		ParticipantId: binding.participantId,
	}); err != nil {
		return fmt.Errorf("failed to leave previous session: %w", err)
	}

	binding.phase = phaseConnected
	binding.sessionId = ""
	binding.participantId = ""

	return nil
}

func (c *controller) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	binding := &connBinding{phase: phaseConnected}
	c.registerConn(conn)

	ctx := context.WithValue(r.Context(), bindingCtxKey, binding)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("remote_addr", conn.RemoteAddr().String()))

	defer func() {
		binding.phase = phaseDisconnected
		if err := c.sessionService.Disconnect(ctx, &session.DisconnectParams{
			Conn:          conn,
			SessionId:     binding.sessionId,
			ParticipantId: binding.participantId,
		}); err != nil {
			c.logger.InfoContext(ctx, "failed to disconnect", "error", err)
		}
		c.unregisterConn(conn)
	}()

	if err := c.wsmux.ServeConn(ctx, conn, c.writeError); err != nil {
		c.logger.DebugContext(ctx, "connection closed", "error", err)
	}
}
