package controller

import (
	"context"

	"github.com/gorilla/websocket"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// sendBufferSize bounds a connection's outbound queue. A member that cannot
// drain fast enough loses events instead of stalling the senders.
const sendBufferSize = 256

// outEvent is one queued outbound message. seq carries the session's state
// sequence for playback updates; zero marks direct replies and membership
// notifications, which are always delivered.
type outEvent struct {
	output *Output
	seq    uint64
}

// client owns all writes to one connection: a single goroutine drains the
// send queue, which satisfies gorilla's one-concurrent-writer rule and
// preserves enqueue order per connection.
type client struct {
	conn *websocket.Conn
	send chan outEvent
}

func (c *controller) registerConn(conn *websocket.Conn) {
	cl := &client{conn: conn, send: make(chan outEvent, sendBufferSize)}

	c.clientsMu.Lock()
	c.clients[conn] = cl
	c.clientsMu.Unlock()

	go c.writePump(cl)
}

// unregisterConn removes the client and closes its queue under the registry
// lock, so no enqueue can race the close and no writer outlives the
// connection.
func (c *controller) unregisterConn(conn *websocket.Conn) {
	c.clientsMu.Lock()
	defer c.clientsMu.Unlock()

	cl, ok := c.clients[conn]
	if !ok {
		return
	}

	delete(c.clients, conn)
	close(cl.send)
}

// writePump delivers queued events in order. Sequenced events are dropped
// when the member has already been sent a newer state: accepted updates are
// serialized by the session's lock but fanned out by different senders'
// goroutines, so the queue can hold them out of acceptance order. Gating by
// seq keeps every member's observed state monotone in acceptance order and
// converging on the newest update.
func (c *controller) writePump(cl *client) {
	var lastSeq uint64
	for ev := range cl.send {
		if ev.seq != 0 {
			if ev.seq <= lastSeq {
				continue
			}
			lastSeq = ev.seq
		}

		if err := cl.conn.WriteJSON(ev.output); err != nil {
			c.logger.Debug("failed to deliver event", "type", ev.output.Type, "error", err)
		}
	}
}

// enqueue hands the event to the connection's writer, best-effort: a
// connection that has unregistered or whose queue is full drops the event,
// and the member's cleanup proceeds through its own disconnect path.
func (c *controller) enqueue(ctx context.Context, conn *websocket.Conn, ev outEvent) {
	c.clientsMu.Lock()
	defer c.clientsMu.Unlock()

	cl, ok := c.clients[conn]
	if !ok {
		c.logger.DebugContext(ctx, "connection gone, dropping event", "type", ev.output.Type)
		return
	}

	select {
	case cl.send <- ev:
	default:
		c.logger.DebugContext(ctx, "send queue full, dropping event", "type", ev.output.Type)
	}
}

// broadcast queues a session update for every connection. seq zero means the
// event is not a playback state update and must not be gated.
func (c *controller) broadcast(ctx context.Context, conns []*websocket.Conn, seq uint64, output *Output) {
	for _, conn := range conns {
		c.enqueue(ctx, conn, outEvent{output: output, seq: seq})
	}
}

func (c *controller) sendToOne(ctx context.Context, conn *websocket.Conn, output *Output) {
	c.enqueue(ctx, conn, outEvent{output: output})
}

func (c *controller) writeError(ctx context.Context, conn *websocket.Conn, err error) {
	c.sendToOne(ctx, conn, &Output{
		Type:    "ERROR",
		Payload: map[string]any{"message": err.Error()},
	})
}
