package engine

import (
	"time"

	"github.com/hailam/kestrel/internal/board"
)

// Limits contains the UCI search constraints.
type Limits struct {
	Time      [2]time.Duration // wtime, btime
	Inc       [2]time.Duration // winc, binc
	MovesToGo int              // moves until next time control (0 = sudden death)
	MoveTime  time.Duration    // fixed time per move
	Depth     int              // maximum search depth
	Nodes     uint64           // maximum nodes to search
	// SearchMoves restricts the root to these moves when non-empty.
	SearchMoves []board.Move
	Infinite    bool
	Ponder      bool
}

const (
	moveOverhead     = 50 * time.Millisecond
	minThinkTime     = 5 * time.Millisecond
	defaultMovesToGo = 30
)

// TimeManager decides when the main worker stops.
type TimeManager struct {
	start   time.Time
	limit   time.Duration
	enabled bool
}

// Init sets the budget for side us. Without a clock or movetime the search
// is only bounded by depth, nodes or an external stop.
func (tm *TimeManager) Init(limits Limits, us board.Color) {
	tm.start = time.Now()
	tm.enabled = false

	switch {
	case limits.Infinite:
		return
	case limits.MoveTime > 0:
		tm.limit = limits.MoveTime - moveOverhead
	case limits.Time[us] > 0:
		mtg := limits.MovesToGo
		if mtg <= 0 {
			mtg = defaultMovesToGo
		}
		tm.limit = limits.Time[us]/time.Duration(mtg) + limits.Inc[us] - moveOverhead
		// Never plan past the clock itself.
		tm.limit = min(tm.limit, limits.Time[us]-moveOverhead)
	default:
		return
	}
	tm.limit = max(tm.limit, minThinkTime)
	tm.enabled = true
}

// Restart resets the clock, used when a ponder search becomes real.
func (tm *TimeManager) Restart() {
	tm.start = time.Now()
}

// Elapsed returns the time since the search started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.start)
}

// Limit returns the budget, or 0 when the search is untimed.
func (tm *TimeManager) Limit() time.Duration {
	if !tm.enabled {
		return 0
	}
	return tm.limit
}

// Expired reports whether the budget is used up.
func (tm *TimeManager) Expired() bool {
	return tm.enabled && tm.Elapsed() >= tm.limit
}

// PastHalf reports whether another iteration is unlikely to finish in time.
func (tm *TimeManager) PastHalf() bool {
	return tm.enabled && tm.Elapsed() >= tm.limit/2
}
