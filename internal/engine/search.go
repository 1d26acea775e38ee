package engine

import (
	"math"

	"github.com/hailam/kestrel/internal/board"
)

// Search constants
const (
	Infinity  = 32000
	MateScore = 31000
	MaxPly    = 128

	// mateBound separates mate scores from ordinary evaluations.
	mateBound = MateScore - MaxPly
)

// Pruning constants
const (
	stopCheckInterval = 2048

	rfpMaxDepth      = 7
	rfpMargin        = 110
	rfpImproving     = 75
	razorMaxDepth    = 3
	razorImproving   = 100
	nmpMinDepth      = 3
	futilityMaxDepth = 7
	lmpMaxDepth      = 8
	lmrMinDepth      = 3

	deltaMargin        = QueenValue
	captureDeltaMargin = 200

	aspirationMinDepth = 5
	aspirationWindow   = 25
)

var (
	lmrTable [MaxPly + 1][board.MaxMoves + 1]int
	lmpTable [2][lmpMaxDepth]int
)

func init() {
	for d := 1; d <= MaxPly; d++ {
		for c := 1; c <= board.MaxMoves; c++ {
			lmrTable[d][c] = int(math.Round(math.Log(float64(2*d)) * math.Log(float64(2*c)) / 2.75))
		}
	}
	for d := 0; d < lmpMaxDepth; d++ {
		for imp := 0; imp < 2; imp++ {
			lmpTable[imp][d] = int(math.Round(4 * math.Exp(0.37*float64(d)) * float64(1+imp) / 2))
		}
	}
}

// razorMargin is two pawns plus half a pawn for every ply beyond the first.
func razorMargin(depth int, improving bool) int {
	m := 2*PawnValue + (depth-1)*PawnValue/2
	if improving {
		m += razorImproving
	}
	return m
}

// nullReduction grows with depth and with how far the static eval clears beta.
func nullReduction(depth, lead int) int {
	r := 2
	if depth > 6 {
		r = 3
	}
	if lead > PawnValue {
		r += int(math.Round(1.5 * math.Log(float64(lead)/PawnValue)))
	}
	return r
}

// pvTable is a triangular principal variation table.
type pvTable struct {
	length [MaxPly + 1]int
	moves  [MaxPly + 1][MaxPly + 1]board.Move
}

func (pv *pvTable) clear(ply int) {
	pv.length[ply] = ply
}

func (pv *pvTable) update(ply int, m board.Move) {
	pv.moves[ply][ply] = m
	next := pv.length[ply+1]
	copy(pv.moves[ply][ply+1:next], pv.moves[ply+1][ply+1:next])
	pv.length[ply] = max(next, ply+1)
}

// line returns a copy of the root variation.
func (pv *pvTable) line() []board.Move {
	return append([]board.Move(nil), pv.moves[0][:pv.length[0]]...)
}

// IsMateScore reports whether score encodes a forced mate.
func IsMateScore(score int) bool {
	return score >= mateBound || score <= -mateBound
}

// MateIn converts a mate score to moves (positive when the side to move
// mates). ok is false for ordinary scores.
func MateIn(score int) (moves int, ok bool) {
	switch {
	case score >= mateBound:
		return (MateScore - score + 1) / 2, true
	case score <= -mateBound:
		return -(MateScore + score) / 2, true
	}
	return 0, false
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
