package engine

import "github.com/hailam/kestrel/internal/board"

const (
	historyMaxBonus = 400
	historyLimit    = 70000
)

// History holds the per-worker quiet move heuristics: two killers per ply
// and a butterfly table indexed by side, from and to.
type History struct {
	killers [MaxPly + 1][2]board.Move
	table   [2][64][64]int
}

// Clear resets killers and history.
func (h *History) Clear() {
	*h = History{}
}

// ClearKillers drops the killers left over from the previous search.
func (h *History) ClearKillers() {
	h.killers = [MaxPly + 1][2]board.Move{}
}

// Killers returns the two killer moves for ply.
func (h *History) Killers(ply int) (board.Move, board.Move) {
	return h.killers[ply][0], h.killers[ply][1]
}

// Score returns the history score of a quiet move for side.
func (h *History) Score(side board.Color, m board.Move) int {
	return h.table[side][m.From()][m.To()]
}

// Update rewards best, which caused a beta cutoff at ply, and penalises the
// other quiet moves tried before it.
func (h *History) Update(side board.Color, best board.Move, tried []board.Move, depth, ply int) {
	if h.killers[ply][0] != best {
		h.killers[ply][1] = h.killers[ply][0]
		h.killers[ply][0] = best
	}

	bonus := min(depth*depth, historyMaxBonus)
	h.add(side, best, bonus)
	for _, m := range tried {
		if m != best {
			h.add(side, m, -bonus)
		}
	}
}

func (h *History) add(side board.Color, m board.Move, delta int) {
	v := &h.table[side][m.From()][m.To()]
	*v += delta
	if *v > historyLimit || *v < -historyLimit {
		h.age()
	}
}

// age halves every entry.
func (h *History) age() {
	for c := range h.table {
		for from := range h.table[c] {
			for to := range h.table[c][from] {
				h.table[c][from][to] /= 2
			}
		}
	}
}
