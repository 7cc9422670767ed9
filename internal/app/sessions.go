package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"watchparty/internal/core"
	"watchparty/internal/domain"
)

type sessionEntry struct {
	RoomID        domain.RoomID
	ParticipantID string
	Identity      domain.Identity
	Sink          core.EventSink
	Cancel        context.CancelFunc
}

// SessionIndex tracks what each live connection is bound to: its sink, its
// identity, and - once joined - its room and participant id.
type SessionIndex struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

func NewSessionIndex() *SessionIndex {
	return &SessionIndex{sessions: make(map[string]*sessionEntry)}
}

func (s *SessionIndex) Bind(connID string, identity domain.Identity, sink core.EventSink, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[connID] = &sessionEntry{Identity: identity, Sink: sink, Cancel: cancel}
	log.Info().Str("module", "app.sessions").Str("conn", connID).Str("identity", identity.ID).Msg("bound session")
}

func (s *SessionIndex) Get(connID string) (domain.Identity, core.EventSink, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[connID]
	if !ok {
		return domain.Identity{}, nil, false
	}
	return e.Identity, e.Sink, true
}

// SetRoom records a successful join.
func (s *SessionIndex) SetRoom(connID string, roomID domain.RoomID, participantID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[connID]
	if !ok {
		return false
	}
	e.RoomID = roomID
	e.ParticipantID = participantID
	return true
}

// RoomOf answers which room a connection is joined to, if any.
func (s *SessionIndex) RoomOf(connID string) (domain.RoomID, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[connID]
	if !ok || e.RoomID == "" {
		return "", "", false
	}
	return e.RoomID, e.ParticipantID, true
}

// ClearRoom rolls a connection back to "connected, not joined".
func (s *SessionIndex) ClearRoom(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[connID]; ok {
		e.RoomID = ""
		e.ParticipantID = ""
	}
}

// ClearRoomAll detaches every connection bound to the room (room close path).
func (s *SessionIndex) ClearRoomAll(roomID domain.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.sessions {
		if e.RoomID == roomID {
			e.RoomID = ""
			e.ParticipantID = ""
		}
	}
}

// Unbind forgets the connection and releases its context.
func (s *SessionIndex) Unbind(connID string) {
	s.mu.Lock()
	e, ok := s.sessions[connID]
	delete(s.sessions, connID)
	s.mu.Unlock()
	if ok && e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.sessions").Str("conn", connID).Msg("unbind session")
}

// Cancel fires the connection's cancel func, if any. Used when a kick must
// also drop the transport.
func (s *SessionIndex) Cancel(connID string) bool {
	s.mu.RLock()
	e, ok := s.sessions[connID]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	return true
}
