package engine

import "github.com/hailam/kestrel/internal/board"

// Move ordering priorities
const (
	goodCaptureScore = 1000000
	badCaptureScore  = -1000000
)

// MVV-LVA: most valuable victim first, least valuable attacker breaks ties.
var mvvLva = [6][6]int{
	//       P    N    B    R    Q    K  (attacker)
	/* P */ {15, 14, 14, 13, 12, 11},
	/* N */ {25, 24, 24, 23, 22, 21},
	/* B */ {35, 34, 34, 33, 32, 31},
	/* R */ {45, 44, 44, 43, 42, 41},
	/* Q */ {55, 54, 54, 53, 52, 51},
	/* K */ {0, 0, 0, 0, 0, 0},
}

type pickStage uint8

const (
	stageHash pickStage = iota
	stageGenActive
	stageActive
	stageKiller1
	stageKiller2
	stageGenQuiet
	stageQuiet
	stageDone
)

// MovePicker hands out pseudo-legal moves one at a time, best first:
// the hash move, then captures and promotions, then killers, then quiet
// moves by history. Generation of each group is deferred until needed.
type MovePicker struct {
	pos  *board.Position
	hist *History
	ply  int

	hashMove board.Move
	killer1  board.Move
	killer2  board.Move
	// activeOnly stops after the captures, for quiescence.
	activeOnly bool

	stage  pickStage
	moves  board.MoveList
	scores [board.MaxMoves]int
	next   int
}

// Init prepares the picker for pos at ply.
func (mp *MovePicker) Init(pos *board.Position, hist *History, ply int, hashMove board.Move, activeOnly bool) {
	mp.pos = pos
	mp.hist = hist
	mp.ply = ply
	mp.activeOnly = activeOnly
	mp.stage = stageHash
	mp.killer1, mp.killer2 = board.NoMove, board.NoMove

	mp.hashMove = board.NoMove
	if pos.IsPseudoLegal(hashMove) && (!activeOnly || hashMove.IsActive(pos)) {
		mp.hashMove = hashMove
	}
	if !activeOnly && hist != nil {
		k1, k2 := hist.Killers(ply)
		if k1 != mp.hashMove && mp.usableKiller(k1) {
			mp.killer1 = k1
		}
		if k2 != mp.hashMove && k2 != mp.killer1 && mp.usableKiller(k2) {
			mp.killer2 = k2
		}
	}
}

func (mp *MovePicker) usableKiller(m board.Move) bool {
	return m != board.NoMove && !m.IsActive(mp.pos) && mp.pos.IsPseudoLegal(m)
}

// Next returns the next move, or NoMove when exhausted.
func (mp *MovePicker) Next() board.Move {
	for {
		switch mp.stage {
		case stageHash:
			mp.stage = stageGenActive
			if mp.hashMove != board.NoMove {
				return mp.hashMove
			}

		case stageGenActive:
			mp.generate(board.GenActive)
			mp.scoreActive()
			mp.stage = stageActive

		case stageActive:
			if m := mp.selectBest(); m != board.NoMove {
				return m
			}
			if mp.activeOnly {
				mp.stage = stageDone
			} else {
				mp.stage = stageKiller1
			}

		case stageKiller1:
			mp.stage = stageKiller2
			if mp.killer1 != board.NoMove {
				return mp.killer1
			}

		case stageKiller2:
			mp.stage = stageGenQuiet
			if mp.killer2 != board.NoMove {
				return mp.killer2
			}

		case stageGenQuiet:
			mp.generate(board.GenQuiet)
			mp.scoreQuiet()
			mp.stage = stageQuiet

		case stageQuiet:
			if m := mp.selectBest(); m != board.NoMove {
				return m
			}
			mp.stage = stageDone

		case stageDone:
			return board.NoMove
		}
	}
}

// generate refills the move list. Running out of room is fatal to the search.
func (mp *MovePicker) generate(kind board.GenKind) {
	mp.moves.Clear()
	mp.next = 0
	if err := mp.pos.Generate(kind, &mp.moves); err != nil {
		panic(err)
	}
}

func (mp *MovePicker) scoreActive() {
	for i, m := range mp.moves.Slice() {
		attacker := mp.pos.TypeAt(m.From())
		victim := board.Pawn
		if !m.IsEnPassant() {
			victim = mp.pos.TypeAt(m.To())
		}

		score := 0
		if victim != board.NoPieceType {
			score = mvvLva[victim][attacker]
		}
		switch {
		case m.IsPromotion():
			score += goodCaptureScore + pieceValues[m.Promotion()]
		case SeeGE(mp.pos, m, 0):
			score += goodCaptureScore
		default:
			score += badCaptureScore
		}
		mp.scores[i] = score
	}
}

func (mp *MovePicker) scoreQuiet() {
	side := mp.pos.SideToMove
	for i, m := range mp.moves.Slice() {
		if mp.hist != nil {
			mp.scores[i] = mp.hist.Score(side, m)
		} else {
			mp.scores[i] = 0
		}
	}
}

// selectBest swaps the best remaining move to the front and returns it,
// skipping moves already handed out by an earlier stage.
func (mp *MovePicker) selectBest() board.Move {
	for mp.next < mp.moves.Len() {
		best := mp.next
		for i := mp.next + 1; i < mp.moves.Len(); i++ {
			if mp.scores[i] > mp.scores[best] {
				best = i
			}
		}
		mp.moves.Swap(mp.next, best)
		mp.scores[mp.next], mp.scores[best] = mp.scores[best], mp.scores[mp.next]

		m := mp.moves.Get(mp.next)
		mp.next++
		if m == mp.hashMove || m == mp.killer1 || m == mp.killer2 {
			continue
		}
		return m
	}
	return board.NoMove
}
