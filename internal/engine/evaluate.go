// Package engine implements the search: move ordering, the transposition
// table, the alpha-beta workers and the lazy SMP thread pool that drives them.
package engine

import "github.com/hailam/kestrel/internal/board"

// Piece values used by SEE, ordering and pruning margins.
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
	KingValue   = 20000
)

var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, KingValue, 0}

// Evaluator scores a position in centipawns from the side to move's point of
// view. Each worker owns its evaluator, so implementations may keep state.
type Evaluator interface {
	Evaluate(pos *board.Position) int
}

// PSTEvaluator is a tapered material plus piece-square evaluation.
type PSTEvaluator struct{}

// NewPSTEvaluator returns the default evaluator. It matches the
// Options.NewEvaluator signature.
func NewPSTEvaluator() Evaluator {
	return PSTEvaluator{}
}

const (
	tempoBonus = 10
	totalPhase = 24
)

var (
	mgMaterial = [6]int{82, 337, 365, 477, 1025, 0}
	egMaterial = [6]int{94, 281, 297, 512, 936, 0}
	phaseInc   = [6]int{0, 1, 1, 2, 4, 0}
)

// Tables are laid out rank 8 first, from White's side; White looks squares
// up with sq^56, Black with sq.
var pawnMG = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var pawnEG = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	90, 90, 85, 80, 80, 85, 90, 90,
	55, 55, 50, 45, 45, 50, 55, 55,
	30, 30, 25, 20, 20, 25, 30, 30,
	15, 15, 10, 10, 10, 10, 15, 15,
	5, 5, 5, 5, 5, 5, 5, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightPST = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopPST = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var queenPST = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var kingMG = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

var kingEG = [64]int{
	-50, -40, -30, -20, -20, -30, -40, -50,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-50, -30, -30, -30, -30, -30, -30, -50,
}

var (
	mgTables = [6]*[64]int{&pawnMG, &knightPST, &bishopPST, &rookPST, &queenPST, &kingMG}
	egTables = [6]*[64]int{&pawnEG, &knightPST, &bishopPST, &rookPST, &queenPST, &kingEG}
)

// Evaluate implements Evaluator.
func (PSTEvaluator) Evaluate(pos *board.Position) int {
	var mg, eg [2]int
	phase := 0
	for c := board.White; c <= board.Black; c++ {
		flip := board.Square(56)
		if c == board.Black {
			flip = 0
		}
		for pt := board.Pawn; pt <= board.King; pt++ {
			bb := pos.Pieces[c][pt]
			phase += phaseInc[pt] * bb.PopCount()
			for bb != 0 {
				sq := bb.PopLSB() ^ flip
				mg[c] += mgMaterial[pt] + mgTables[pt][sq]
				eg[c] += egMaterial[pt] + egTables[pt][sq]
			}
		}
	}
	phase = min(phase, totalPhase)

	us, them := pos.SideToMove, pos.SideToMove.Other()
	mgScore := mg[us] - mg[them]
	egScore := eg[us] - eg[them]
	return (mgScore*phase+egScore*(totalPhase-phase))/totalPhase + tempoBonus
}
