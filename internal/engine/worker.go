package engine

import (
	"slices"
	"sync/atomic"

	"github.com/hailam/kestrel/internal/board"
)

// iteration is the outcome of one completed iterative deepening step.
type iteration struct {
	depth    int
	selDepth int
	score    int
	pv       []board.Move
}

// Worker runs iterative deepening on its own copy of the position. Workers
// share only the transposition table and the pool's stop flag.
type Worker struct {
	id   int
	pool *ThreadPool

	pos  *board.Position
	eval Evaluator
	hist History
	pv   pvTable

	evalStack [MaxPly + 1]int
	nodes     atomic.Uint64
	selDepth  int

	rootMoves []board.Move
	rootBest  board.Move
	best      iteration
}

func newWorker(id int, pool *ThreadPool) *Worker {
	return &Worker{
		id:   id,
		pool: pool,
		eval: pool.newEvaluator(),
	}
}

// Nodes returns the nodes searched since the last search started.
func (w *Worker) Nodes() uint64 {
	return w.nodes.Load()
}

func (w *Worker) isMain() bool {
	return w.id == 0
}

// prepare loads a fresh copy of the root for a new search.
func (w *Worker) prepare(root *board.Position, rootMoves []board.Move) {
	w.pos = root.Copy()
	w.pos.ResetPly()
	w.rootMoves = rootMoves
	w.nodes.Store(0)
	w.selDepth = 0
	w.rootBest = board.NoMove
	w.best = iteration{}
	w.hist.ClearKillers()
}

func (w *Worker) stopped() bool {
	return w.pool.stop.Load()
}

// visit counts a node and reports whether the search must unwind. The main
// worker checks the limits every stopCheckInterval nodes.
func (w *Worker) visit() bool {
	n := w.nodes.Add(1)
	if n%stopCheckInterval == 0 && w.isMain() {
		w.pool.checkLimits()
	}
	return w.stopped()
}

// iterate is the iterative deepening loop. Odd numbered helpers start one
// ply deeper and keep ahead of the main worker.
func (w *Worker) iterate(maxDepth int) {
	start := 1
	if w.id%2 == 1 {
		start = 2
	}
	score := 0
	for depth := start; depth <= maxDepth; depth++ {
		if w.id%2 == 1 {
			if md := int(w.pool.mainDepth.Load()); depth <= md {
				depth = md + 1
			}
			if depth > maxDepth {
				break
			}
		}

		w.selDepth = 0
		s := w.aspiration(depth, score)
		if w.stopped() {
			// A partial first iteration still names a move worth playing.
			if w.best.depth == 0 && w.pv.length[0] > 0 {
				w.best = iteration{depth: depth, selDepth: w.selDepth, score: s, pv: w.pv.line()}
			}
			return
		}
		score = s
		w.best = iteration{depth: depth, selDepth: w.selDepth, score: score, pv: w.pv.line()}
		if len(w.best.pv) == 0 && w.rootBest != board.NoMove {
			w.best.pv = []board.Move{w.rootBest}
		}

		if w.isMain() {
			w.pool.mainDepth.Store(int32(depth))
			w.pool.report(w)
			if !w.pool.timeForAnotherIteration() {
				return
			}
		}
	}
}

// aspiration searches the root in a narrow window around the previous
// score, widening on each failure.
func (w *Worker) aspiration(depth, prev int) int {
	if depth < aspirationMinDepth {
		return w.searchRoot(depth, -Infinity, Infinity)
	}
	delta := aspirationWindow
	alpha := max(prev-delta, -Infinity)
	beta := min(prev+delta, Infinity)
	for {
		score := w.searchRoot(depth, alpha, beta)
		if w.stopped() {
			return score
		}
		switch {
		case score <= alpha:
			beta = (alpha + beta) / 2
			alpha = max(score-delta, -Infinity)
		case score >= beta:
			beta = min(score+delta, Infinity)
		default:
			return score
		}
		delta += delta / 4
	}
}

func (w *Worker) evaluate() int {
	return w.eval.Evaluate(w.pos)
}

// searchRoot searches every root move without pruning or reductions.
func (w *Worker) searchRoot(depth, alpha, beta int) int {
	pos := w.pos
	w.pv.clear(0)
	w.nodes.Add(1)

	inCheck := pos.IsInCheck()
	if inCheck {
		depth++
	}

	hashMove := board.NoMove
	if hit, ok := w.pool.tt.Probe(pos.Hash, 0); ok {
		hashMove = hit.Move
	}

	var mp MovePicker
	mp.Init(pos, &w.hist, 0, hashMove, false)

	best, bestMove := -Infinity, board.NoMove
	bound := BoundUpper
	legal := 0
	var quiets []board.Move

	for m := mp.Next(); m != board.NoMove; m = mp.Next() {
		if len(w.rootMoves) > 0 && !slices.Contains(w.rootMoves, m) {
			continue
		}
		quiet := !m.IsActive(pos)
		if !pos.MakeMove(m) {
			continue
		}
		legal++

		var score int
		if legal == 1 {
			score = -w.alphaBeta(depth-1, 1, -beta, -alpha)
		} else {
			score = -w.alphaBeta(depth-1, 1, -alpha-1, -alpha)
			if score > alpha && score < beta {
				score = -w.alphaBeta(depth-1, 1, -beta, -alpha)
			}
		}
		_ = pos.UndoMove()
		if w.stopped() {
			return 0
		}

		if score > best {
			best, bestMove = score, m
			w.rootBest = m
		}
		if score > alpha {
			alpha = score
			bound = BoundExact
			w.pv.update(0, m)
			if score >= beta {
				bound = BoundLower
				if quiet {
					w.hist.Update(pos.SideToMove, m, quiets, depth, 0)
				}
				break
			}
		}
		if quiet {
			quiets = append(quiets, m)
		}
	}

	if legal == 0 {
		if inCheck {
			return -MateScore
		}
		return 0
	}
	w.pool.tt.Store(pos.Hash, 0, bestMove, best, depth, bound)
	return best
}

// alphaBeta is the interior principal variation search.
func (w *Worker) alphaBeta(depth, ply, alpha, beta int) int {
	if depth <= 0 {
		return w.quiescence(ply, alpha, beta)
	}
	w.pv.clear(ply)
	if w.visit() {
		return 0
	}
	w.selDepth = max(w.selDepth, ply)

	pos := w.pos
	if pos.IsDraw() {
		return 0
	}
	if ply >= MaxPly {
		return w.evaluate()
	}

	// Mate distance pruning: no line from here beats a mate already found
	// closer to the root.
	alpha = max(alpha, -MateScore+ply)
	beta = min(beta, MateScore-ply-1)
	if alpha >= beta {
		return alpha
	}

	pvNode := beta-alpha > 1
	hashMove := board.NoMove
	if hit, ok := w.pool.tt.Probe(pos.Hash, ply); ok {
		hashMove = hit.Move
		if !pvNode && hit.Depth >= depth {
			switch {
			case hit.Bound == BoundExact,
				hit.Bound == BoundLower && hit.Score >= beta,
				hit.Bound == BoundUpper && hit.Score <= alpha:
				return hit.Score
			}
		}
	}

	inCheck := pos.IsInCheck()
	eval := -Infinity
	improving := false
	if inCheck {
		depth++
		w.evalStack[ply] = -Infinity
	} else {
		eval = w.evaluate()
		w.evalStack[ply] = eval
		improving = ply >= 2 && eval > w.evalStack[ply-2]
	}
	imp := boolInt(improving)

	if !inCheck && !pvNode && abs(beta) < mateBound {
		// Reverse futility pruning.
		if depth < rfpMaxDepth && eval-(rfpMargin*depth+rfpImproving*imp) >= beta {
			return eval
		}

		// Razoring.
		if depth <= razorMaxDepth && eval+razorMargin(depth, improving) <= alpha {
			if score := w.quiescence(ply, alpha, alpha+1); score <= alpha {
				return score
			}
		}

		// Null move pruning.
		if depth >= nmpMinDepth && eval >= beta && pos.HasNonPawnMaterial() && pos.LastMove() != board.NoMove {
			r := nullReduction(depth, eval-beta)
			pos.MakeNullMove()
			score := -w.alphaBeta(depth-1-r, ply+1, -beta, -beta+1)
			pos.UndoNullMove()
			if w.stopped() {
				return 0
			}
			if score >= beta {
				if score >= mateBound {
					score = beta
				}
				return score
			}
		}
	}

	futile := !inCheck && !pvNode && depth < futilityMaxDepth &&
		eval+rfpMargin*depth+rfpImproving*imp <= alpha

	lmpLimit := board.MaxMoves
	if !pvNode && !inCheck && depth < lmpMaxDepth {
		lmpLimit = lmpTable[imp][depth]
	}

	var mp MovePicker
	mp.Init(pos, &w.hist, ply, hashMove, false)

	us := pos.SideToMove
	origAlpha := alpha
	bestMove := board.NoMove
	legal := 0
	var quiets [64]board.Move
	nQuiets := 0

	for m := mp.Next(); m != board.NoMove; m = mp.Next() {
		quiet := !m.IsActive(pos)
		if quiet && legal >= lmpLimit {
			continue
		}
		if !pos.MakeMove(m) {
			continue
		}
		legal++
		givesCheck := pos.IsInCheck()

		if futile && quiet && !givesCheck && legal > 1 {
			_ = pos.UndoMove()
			continue
		}

		newDepth := depth - 1
		var score int
		if legal == 1 {
			score = -w.alphaBeta(newDepth, ply+1, -beta, -alpha)
		} else {
			r := 0
			if depth >= lmrMinDepth && quiet && !inCheck && !givesCheck {
				r = lmrTable[min(depth, MaxPly)][min(legal, board.MaxMoves)]
				if !improving {
					r++
				}
				if pvNode {
					r /= 2
				}
				r = max(min(r, newDepth-1), 0)
			}
			score = -w.alphaBeta(newDepth-r, ply+1, -alpha-1, -alpha)
			if score > alpha && r > 0 {
				score = -w.alphaBeta(newDepth, ply+1, -alpha-1, -alpha)
			}
			if score > alpha && score < beta {
				score = -w.alphaBeta(newDepth, ply+1, -beta, -alpha)
			}
		}
		_ = pos.UndoMove()
		if w.stopped() {
			return 0
		}

		if score > alpha {
			alpha = score
			bestMove = m
			w.pv.update(ply, m)
			if score >= beta {
				if quiet {
					w.hist.Update(us, m, quiets[:nQuiets], depth, ply)
				}
				w.pool.tt.Store(pos.Hash, ply, m, beta, depth, BoundLower)
				return beta
			}
		}
		if quiet && nQuiets < len(quiets) {
			quiets[nQuiets] = m
			nQuiets++
		}
	}

	if legal == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	bound := BoundUpper
	if alpha > origAlpha {
		bound = BoundExact
	}
	w.pool.tt.Store(pos.Hash, ply, bestMove, alpha, depth, bound)
	return alpha
}

// quiescence resolves captures until the position is quiet. In check every
// evasion is searched.
func (w *Worker) quiescence(ply, alpha, beta int) int {
	w.pv.clear(ply)
	if w.visit() {
		return 0
	}
	w.selDepth = max(w.selDepth, ply)

	pos := w.pos
	if ply >= MaxPly {
		return w.evaluate()
	}

	inCheck := pos.IsInCheck()
	standPat := -Infinity
	if !inCheck {
		standPat = w.evaluate()
		if standPat >= beta {
			return beta
		}
		// Delta pruning: even winning a queen would not reach alpha.
		if standPat+deltaMargin < alpha {
			return alpha
		}
		alpha = max(alpha, standPat)
	}

	var mp MovePicker
	mp.Init(pos, &w.hist, ply, board.NoMove, !inCheck)

	legal := 0
	for m := mp.Next(); m != board.NoMove; m = mp.Next() {
		if !inCheck && !m.IsPromotion() && standPat+captureValue(pos, m)+captureDeltaMargin <= alpha {
			continue
		}
		if !pos.MakeMove(m) {
			continue
		}
		legal++
		score := -w.quiescence(ply+1, -beta, -alpha)
		_ = pos.UndoMove()
		if w.stopped() {
			return 0
		}

		if score > alpha {
			alpha = score
			w.pv.update(ply, m)
			if score >= beta {
				return beta
			}
		}
	}

	if inCheck && legal == 0 {
		return -MateScore + ply
	}
	return alpha
}

// captureValue is the material taken by m.
func captureValue(pos *board.Position, m board.Move) int {
	if m.IsEnPassant() {
		return PawnValue
	}
	if pt := pos.TypeAt(m.To()); pt != board.NoPieceType {
		return pieceValues[pt]
	}
	return 0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
