package wsrouter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// HandlerFunc handles one decoded message payload. Routes registered with
// Handle receive their concrete input type; middlewares see the raw payload
// as any.
type HandlerFunc[T any] func(ctx context.Context, conn *websocket.Conn, payload T) error

type Middleware func(next HandlerFunc[any]) HandlerFunc[any]

type WSRouter struct {
	routes      map[string]HandlerFunc[json.RawMessage]
	middlewares []Middleware
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc[json.RawMessage])}
}

func (r *WSRouter) Use(mw ...Middleware) {
	r.middlewares = append(r.middlewares, mw...)
}

// Handle registers a handler for a message type. The payload is unmarshalled
// into T before the handler runs.
func Handle[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	r.routes[messageType] = func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		var input T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &input); err != nil {
				return fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		return handler(ctx, conn, input)
	}
}

// ServeConn reads messages from the connection and dispatches them until the
// connection is closed or a read fails. Handler errors are passed to onError
// and do not stop the loop.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn, onError func(ctx context.Context, conn *websocket.Conn, err error)) error {
	defer conn.Close()

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)

		route, exists := r.routes[msg.Type]
		if !exists {
			if onError != nil {
				onError(msgCtx, conn, fmt.Errorf("unknown message type: %s", msg.Type))
			}
			continue
		}

		handler := func(hctx context.Context, hconn *websocket.Conn, payload any) error {
			return route(hctx, hconn, payload.(json.RawMessage))
		}
		for i := len(r.middlewares) - 1; i >= 0; i-- {
			handler = r.middlewares[i](handler)
		}

		if err := handler(msgCtx, conn, json.RawMessage(msg.Payload)); err != nil {
			if onError != nil {
				onError(msgCtx, conn, err)
			}
		}
	}
}
