package inmemory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sebadev7/dodi-server/internal/domain"
	"github.com/sebadev7/dodi-server/internal/repository/session"
)

// sessionEntry is one live session. Its mutex serializes every mutation of
// the session's members, playback state and authority; the registry mutex is
// never held while an entry mutex is awaited by readers, so operations on
// different sessions do not contend.
type sessionEntry struct {
	mu        sync.Mutex
	state     domain.PlaybackState
	members   map[string]struct{}
	mode      domain.SyncMode
	authority string
	// seq counts accepted state mutations. It is bumped inside the entry's
	// critical section, so it reflects the order in which updates were
	// serialized and lets the delivery layer order them across senders.
	seq uint64
	// deleted marks an entry removed from the registry while some goroutine
	// still holds a pointer to it. Operations observing it report not found.
	deleted bool
}

func (e *sessionEntry) otherMemberIds(exclude string) []string {
	ids := make([]string, 0, len(e.members))
	for id := range e.members {
		if id != exclude {
			ids = append(ids, id)
		}
	}

	return ids
}

type repo struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	logger   *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		sessions: make(map[string]*sessionEntry),
		logger:   logger,
	}
}

func (r *repo) entry(sessionId string) (*sessionEntry, error) {
	r.mu.RLock()
	e, ok := r.sessions[sessionId]
	r.mu.RUnlock()
	if !ok {
		return nil, session.ErrSessionNotFound
	}

	return e, nil
}

func (r *repo) CreateSession(ctx context.Context, params *session.CreateSessionParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[params.SessionId]; ok {
		return session.ErrSessionAlreadyExists
	}

	r.sessions[params.SessionId] = &sessionEntry{
		state: domain.PlaybackState{
			PositionSeconds: 0,
			IsPlaying:       false,
			MediaReference:  params.MediaReference,
		},
		members: make(map[string]struct{}),
		mode:    params.Mode,
	}

	r.logger.DebugContext(ctx, "session created", "session_id", params.SessionId, "mode", params.Mode)
	return nil
}

func (r *repo) SessionState(ctx context.Context, sessionId string) (domain.PlaybackState, error) {
	e, err := r.entry(sessionId)
	if err != nil {
		return domain.PlaybackState{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return domain.PlaybackState{}, session.ErrSessionNotFound
	}

	return e.state, nil
}

func (r *repo) AddMember(ctx context.Context, params *session.AddMemberParams) (session.AddMemberResponse, error) {
	e, err := r.entry(params.SessionId)
	if err != nil {
		return session.AddMemberResponse{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return session.AddMemberResponse{}, session.ErrSessionNotFound
	}

	others := e.otherMemberIds(params.ParticipantId)
	e.members[params.ParticipantId] = struct{}{}

	becameAuthority := false
	if e.mode == domain.SyncModeAuthority && e.authority == "" {
		e.authority = params.ParticipantId
		becameAuthority = true
	}

	return session.AddMemberResponse{
		State:           e.state,
		OtherMemberIds:  others,
		BecameAuthority: becameAuthority,
	}, nil
}

func (r *repo) RemoveMember(ctx context.Context, params *session.RemoveMemberParams) (session.RemoveMemberResponse, error) {
	e, err := r.entry(params.SessionId)
	if err != nil {
		return session.RemoveMemberResponse{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return session.RemoveMemberResponse{}, session.ErrSessionNotFound
	}

	// absence is a no-op, not an error: disconnect races are expected
	delete(e.members, params.ParticipantId)

	resp := session.RemoveMemberResponse{Empty: len(e.members) == 0}

	if e.mode == domain.SyncModeAuthority && e.authority == params.ParticipantId {
		resp.WasAuthority = true
		e.authority = ""

		if params.PromoteAuthority {
			for id := range e.members {
				e.authority = id
				resp.PromotedId = id
				break
			}
		}
	}

	return resp, nil
}

// DeleteSessionIfEmpty removes the session when and only when its member set
// is empty. Idempotent: a missing or non-empty session is a no-op.
func (r *repo) DeleteSessionIfEmpty(ctx context.Context, sessionId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[sessionId]
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.members) != 0 {
		return nil
	}

	e.deleted = true
	delete(r.sessions, sessionId)

	r.logger.DebugContext(ctx, "empty session deleted", "session_id", sessionId)
	return nil
}

func (r *repo) ReconcileState(ctx context.Context, params *session.ReconcileStateParams) (session.ReconcileStateResponse, error) {
	e, err := r.entry(params.SessionId)
	if err != nil {
		return session.ReconcileStateResponse{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return session.ReconcileStateResponse{}, session.ErrSessionNotFound
	}

	fromAuthority := e.authority != "" && e.authority == params.SenderId

	accepted := domain.Reconcile(e.mode, fromAuthority, params.Tolerance, e.state, params.Reported)
	if accepted {
		e.state = domain.Merge(e.state, params.Reported)
		e.seq++
	}

	return session.ReconcileStateResponse{
		Accepted:       accepted,
		State:          e.state,
		Seq:            e.seq,
		OtherMemberIds: e.otherMemberIds(params.SenderId),
	}, nil
}

func (r *repo) UpdateMedia(ctx context.Context, params *session.UpdateMediaParams) (session.UpdateMediaResponse, error) {
	e, err := r.entry(params.SessionId)
	if err != nil {
		return session.UpdateMediaResponse{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return session.UpdateMediaResponse{}, session.ErrSessionNotFound
	}

	e.state.MediaReference = params.MediaReference
	e.seq++

	return session.UpdateMediaResponse{
		Seq:            e.seq,
		OtherMemberIds: e.otherMemberIds(params.SenderId),
	}, nil
}
