package inmemory

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/sebadev7/dodi-server/internal/repository/connection"
)

// repo binds each participant to exactly one websocket connection. It is a
// lookup table only; it never writes to a connection.
type repo struct {
	mu           sync.RWMutex
	participants map[string]*websocket.Conn
	conns        map[*websocket.Conn]string
	logger       *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		participants: make(map[string]*websocket.Conn),
		conns:        make(map[*websocket.Conn]string),
		logger:       logger,
	}
}

// Add binds a connection to a participant id. Rebinding the same connection
// to a new id (implicit leave-then-join) replaces the old binding; binding an
// id that is already held by another live connection is an error.
func (r *repo) Add(conn *websocket.Conn, participantId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if held, ok := r.participants[participantId]; ok && held != conn {
		return connection.ErrAlreadyExists
	}

	if prevId, ok := r.conns[conn]; ok && prevId != participantId {
		delete(r.participants, prevId)
	}

	r.participants[participantId] = conn
	r.conns[conn] = participantId

	r.logger.Debug("connection bound", "participant_id", participantId)
	return nil
}

func (r *repo) RemoveByConn(conn *websocket.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	participantId, ok := r.conns[conn]
	if !ok {
		return connection.ErrNotFound
	}

	delete(r.conns, conn)
	delete(r.participants, participantId)

	r.logger.Debug("connection unbound", "participant_id", participantId)
	return nil
}

func (r *repo) RemoveByParticipantId(participantId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.participants[participantId]
	if !ok {
		return connection.ErrNotFound
	}

	delete(r.conns, conn)
	delete(r.participants, participantId)

	r.logger.Debug("connection unbound", "participant_id", participantId)
	return nil
}

func (r *repo) GetConn(participantId string) (*websocket.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.participants[participantId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}

func (r *repo) GetParticipantId(conn *websocket.Conn) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	participantId, ok := r.conns[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	return participantId, nil
}
