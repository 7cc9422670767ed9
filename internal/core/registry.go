package core

import (
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"watchparty/internal/domain"
)

// Member binds a participant record to its outbound event sink.
// This is what a room stores and fans out to.
type Member struct {
	Participant *domain.Participant
	Sink        EventSink
}

// Registry is the authoritative, concurrency-safe per-room membership store.
// Map-of-maps keyed by room then participant: the outer lock only guards the
// room map, each room mutates under its own lock, so unrelated rooms never
// contend. Rooms are not retained empty.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomMembers
}

type roomMembers struct {
	mu   sync.RWMutex
	byID map[string]*Member
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[domain.RoomID]*roomMembers)}
}

func (r *Registry) room(roomID domain.RoomID) (*roomMembers, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[roomID]
	return rm, ok
}

func (r *Registry) getOrCreate(roomID domain.RoomID) *roomMembers {
	r.mu.RLock()
	rm, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if ok {
		return rm
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if rm, ok = r.rooms[roomID]; ok {
		return rm
	}
	rm = &roomMembers{byID: make(map[string]*Member)}
	r.rooms[roomID] = rm
	return rm
}

// AddParticipant inserts or overwrites by participant id. Control assignment
// on first join is the caller's join policy, not this operation's.
func (r *Registry) AddParticipant(roomID domain.RoomID, p *domain.Participant, sink EventSink) {
	rm := r.getOrCreate(roomID)
	rm.mu.Lock()
	rm.byID[p.ID()] = &Member{Participant: p, Sink: sink}
	rm.mu.Unlock()
	log.Info().Str("module", "core.registry").Str("room", string(roomID)).Str("participant", p.ID()).Msg("participant added")
}

// RemoveParticipant removes by id and returns the remaining count. The
// registry entry is purged once the room is empty; the caller purges the
// chat log and position reports alongside.
func (r *Registry) RemoveParticipant(roomID domain.RoomID, participantID string) int {
	rm, ok := r.room(roomID)
	if !ok {
		return 0
	}
	rm.mu.Lock()
	delete(rm.byID, participantID)
	remaining := len(rm.byID)
	rm.mu.Unlock()

	if remaining == 0 {
		r.mu.Lock()
		if rm, ok := r.rooms[roomID]; ok {
			rm.mu.Lock()
			if len(rm.byID) == 0 {
				delete(r.rooms, roomID)
			}
			rm.mu.Unlock()
		}
		r.mu.Unlock()
	}
	log.Info().Str("module", "core.registry").Str("room", string(roomID)).Str("participant", participantID).Int("remaining", remaining).Msg("participant removed")
	return remaining
}

func (r *Registry) GetParticipant(roomID domain.RoomID, participantID string) (*domain.Participant, bool) {
	rm, ok := r.room(roomID)
	if !ok {
		return nil, false
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	if m, ok := rm.byID[participantID]; ok {
		cp := *m.Participant
		return &cp, true
	}
	return nil, false
}

func (r *Registry) IsParticipantInRoom(roomID domain.RoomID, participantID string) bool {
	_, ok := r.GetParticipant(roomID, participantID)
	return ok
}

// GetRoomParticipants returns a snapshot ordered by join time ascending.
// This ordering is the tie-break used everywhere "oldest" matters.
func (r *Registry) GetRoomParticipants(roomID domain.RoomID) []domain.Participant {
	rm, ok := r.room(roomID)
	if !ok {
		return nil
	}
	rm.mu.RLock()
	out := lo.Map(lo.Values(rm.byID), func(m *Member, _ int) domain.Participant {
		return *m.Participant
	})
	rm.mu.RUnlock()
	sortByJoinTime(out)
	return out
}

func (r *Registry) GetParticipantCount(roomID domain.RoomID) int {
	rm, ok := r.room(roomID)
	if !ok {
		return 0
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.byID)
}

// GetController returns the first participant holding control, if any.
func (r *Registry) GetController(roomID domain.RoomID) (*domain.Participant, bool) {
	participants := r.GetRoomParticipants(roomID)
	if c, ok := lo.Find(participants, func(p domain.Participant) bool { return p.HasControl }); ok {
		return &c, true
	}
	return nil, false
}

// SetController clears control on every participant, then sets it on the
// target if present. Silent no-op on an absent target: callers pre-validate.
func (r *Registry) SetController(roomID domain.RoomID, participantID string) {
	rm, ok := r.room(roomID)
	if !ok {
		return
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for _, m := range rm.byID {
		m.Participant.HasControl = false
	}
	if m, ok := rm.byID[participantID]; ok {
		m.Participant.HasControl = true
	}
}

// TransferControlToNext clears control from everyone, then grants it to the
// oldest-joined remaining participant, excluding the one leaving. An emptied
// room ends up with no controller.
func (r *Registry) TransferControlToNext(roomID domain.RoomID, leavingID string) {
	rm, ok := r.room(roomID)
	if !ok {
		return
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	var remaining []*Member
	for id, m := range rm.byID {
		m.Participant.HasControl = false
		if id != leavingID {
			remaining = append(remaining, m)
		}
	}
	if next := oldestMember(remaining); next != nil {
		next.Participant.HasControl = true
		log.Info().Str("module", "core.registry").Str("room", string(roomID)).Str("controller", next.Participant.ID()).Msg("control transferred to next")
	}
}

// EnsureControlConsistency is the repair pass: a non-empty room with zero
// controllers grants to the oldest; several controllers (transient, from
// concurrent operations) keep only the oldest's flag. Called after join and
// after every control transfer.
func (r *Registry) EnsureControlConsistency(roomID domain.RoomID) {
	rm, ok := r.room(roomID)
	if !ok {
		return
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if len(rm.byID) == 0 {
		return
	}
	controllers := lo.Filter(lo.Values(rm.byID), func(m *Member, _ int) bool {
		return m.Participant.HasControl
	})
	switch {
	case len(controllers) == 0:
		if oldest := oldestMember(lo.Values(rm.byID)); oldest != nil {
			oldest.Participant.HasControl = true
			log.Warn().Str("module", "core.registry").Str("room", string(roomID)).Str("controller", oldest.Participant.ID()).Msg("repair: granted control to oldest")
		}
	case len(controllers) > 1:
		keep := oldestMember(controllers)
		for _, m := range controllers {
			if m != keep {
				m.Participant.HasControl = false
			}
		}
		log.Warn().Str("module", "core.registry").Str("room", string(roomID)).Str("controller", keep.Participant.ID()).Msg("repair: collapsed multiple controllers")
	}
}

// FindByConn locates a member by connection id, for targeted sends.
func (r *Registry) FindByConn(roomID domain.RoomID, connID string) (*Member, bool) {
	rm, ok := r.room(roomID)
	if !ok {
		return nil, false
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	for _, m := range rm.byID {
		if m.Participant.ConnID == connID {
			return m, true
		}
	}
	return nil, false
}

// Broadcast fans an event out to every member except the listed participant
// ids. Fire-and-forget: a refusing sink is recorded as dropped, never waited
// on.
func (r *Registry) Broadcast(roomID domain.RoomID, event Event, except ...string) PublishResult {
	rm, ok := r.room(roomID)
	if !ok {
		return PublishResult{}
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	res := PublishResult{}
	for id, m := range rm.byID {
		if slices.Contains(except, id) {
			continue
		}
		if err := m.Sink.TrySend(event); err != nil {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.registry").Str("room", string(roomID)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// SendTo delivers an event to a single participant, if present.
func (r *Registry) SendTo(roomID domain.RoomID, participantID string, event Event) bool {
	rm, ok := r.room(roomID)
	if !ok {
		return false
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	m, ok := rm.byID[participantID]
	if !ok {
		return false
	}
	return m.Sink.TrySend(event) == nil
}

// PurgeRoom drops the room's registry entry outright (room close path).
func (r *Registry) PurgeRoom(roomID domain.RoomID) {
	r.mu.Lock()
	delete(r.rooms, roomID)
	r.mu.Unlock()
	log.Info().Str("module", "core.registry").Str("room", string(roomID)).Msg("room purged")
}

func sortByJoinTime(participants []domain.Participant) {
	slices.SortFunc(participants, func(a, b domain.Participant) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID(), b.ID())
	})
}

func oldestMember(members []*Member) *Member {
	var oldest *Member
	for _, m := range members {
		if oldest == nil {
			oldest = m
			continue
		}
		a, b := m.Participant, oldest.Participant
		if a.JoinedAt.Before(b.JoinedAt) ||
			(a.JoinedAt.Equal(b.JoinedAt) && a.ID() < b.ID()) {
			oldest = m
		}
	}
	return oldest
}
