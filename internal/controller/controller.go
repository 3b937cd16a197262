package controller

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/sebadev7/dodi-server/internal/service/session"
	"github.com/sebadev7/dodi-server/pkg/validator"
	"github.com/sebadev7/dodi-server/pkg/wsrouter"
)

type iSessionService interface {
	CreateSession(context.Context, *session.CreateSessionParams) (session.CreateSessionResponse, error)
	JoinSession(context.Context, *session.JoinSessionParams) (session.JoinSessionResponse, error)
	LeaveSession(context.Context, *session.LeaveSessionParams) error
	ReportState(context.Context, *session.ReportStateParams) (session.ReportStateResponse, error)
	UpdateMedia(context.Context, *session.UpdateMediaParams) (session.UpdateMediaResponse, error)
	Disconnect(context.Context, *session.DisconnectParams) error
}

type controller struct {
	sessionService iSessionService
	upgrader       websocket.Upgrader
	validate       *validator.Validator
	wsmux          *wsrouter.WSRouter
	logger         *slog.Logger

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]*client
}

func NewController(sessionService iSessionService, logger *slog.Logger) *controller {
	c := controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		sessionService: sessionService,
		validate:       validator.NewValidator(),
		logger:         logger,
		clients:        make(map[*websocket.Conn]*client),
	}

	c.wsmux = c.getWSRouter()

	return &c
}
