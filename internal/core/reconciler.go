package core

import (
	"math"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"watchparty/internal/domain"
)

const (
	// DefaultSyncTolerance is how far (seconds) a report may deviate from
	// the median before the client is forced to resync.
	DefaultSyncTolerance = 3.0
	// DefaultSyncQuorum is the fraction of participants that must report
	// before a reconciliation pass runs.
	DefaultSyncQuorum = 0.8
	// DefaultSyncMinReports guards against a pass over a single report.
	DefaultSyncMinReports = 2
)

// Pass is the outcome of one reconciliation pass. The median is the target
// position; outliers are the connections to force-resync. A pass never
// touches the authoritative stored position, it only nudges client clocks.
type Pass struct {
	Median   float64
	Outliers []string
}

// Reconciler accumulates per-room playback position reports keyed by
// connection and detects outliers once a quorum has reported. The report map
// is cleared after every pass, found outliers or not, so stale data is never
// acted on. Median over mean: one wildly-desynced client must not drag the
// target.
type Reconciler struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*reportSet

	tolerance  float64
	quorum     float64
	minReports int
}

type reportSet struct {
	mu     sync.Mutex
	byConn map[string]float64
}

func NewReconciler(tolerance, quorum float64, minReports int) *Reconciler {
	if tolerance <= 0 {
		tolerance = DefaultSyncTolerance
	}
	if quorum <= 0 || quorum > 1 {
		quorum = DefaultSyncQuorum
	}
	if minReports < 2 {
		minReports = DefaultSyncMinReports
	}
	return &Reconciler{
		rooms:      make(map[domain.RoomID]*reportSet),
		tolerance:  tolerance,
		quorum:     quorum,
		minReports: minReports,
	}
}

func (r *Reconciler) set(roomID domain.RoomID) *reportSet {
	r.mu.RLock()
	s, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if ok {
		return s
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.rooms[roomID]; ok {
		return s
	}
	s = &reportSet{byConn: make(map[string]float64)}
	r.rooms[roomID] = s
	return s
}

// Report records one connection's position. Once reports from at least the
// quorum fraction of totalParticipants (and the minimum count) are in, a
// pass runs and its result is returned with ok=true.
func (r *Reconciler) Report(roomID domain.RoomID, connID string, position float64, totalParticipants int) (Pass, bool) {
	s := r.set(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byConn[connID] = position

	reported := len(s.byConn)
	if reported < r.minReports || float64(reported) < float64(totalParticipants)*r.quorum {
		return Pass{}, false
	}

	positions := lo.Values(s.byConn)
	slices.Sort(positions)
	median := positions[len(positions)/2]

	outliers := lo.Keys(lo.PickBy(s.byConn, func(_ string, pos float64) bool {
		return math.Abs(pos-median) > r.tolerance
	}))
	slices.Sort(outliers)

	s.byConn = make(map[string]float64)

	log.Debug().Str("module", "core.reconciler").Str("room", string(roomID)).Float64("median", median).Int("reports", reported).Int("outliers", len(outliers)).Msg("reconciliation pass")
	return Pass{Median: median, Outliers: outliers}, true
}

// PurgeRoom drops pending reports; called when the room empties or closes.
func (r *Reconciler) PurgeRoom(roomID domain.RoomID) {
	r.mu.Lock()
	delete(r.rooms, roomID)
	r.mu.Unlock()
}
