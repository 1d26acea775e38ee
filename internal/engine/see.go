package engine

import "github.com/hailam/kestrel/internal/board"

// SEE estimates the material outcome of the capture sequence started by m on
// its target square, from the mover's point of view. Quiet moves score 0
// unless they promote.
func SEE(pos *board.Position, m board.Move) int {
	from, to := m.From(), m.To()
	us := pos.SideToMove

	attacker := pos.TypeAt(from)
	if attacker == board.NoPieceType {
		return 0
	}

	gain := 0
	if m.IsEnPassant() {
		gain = PawnValue
	} else if victim := pos.TypeAt(to); victim != board.NoPieceType {
		gain = pieceValues[victim]
	}
	if m.IsPromotion() {
		gain += pieceValues[m.Promotion()] - PawnValue
		attacker = m.Promotion()
	}

	occ := pos.AllOccupied &^ board.SquareBB(from)
	if m.IsEnPassant() {
		victimSq := to - 8
		if us == board.Black {
			victimSq = to + 8
		}
		occ &^= board.SquareBB(victimSq)
	}
	return gain - seeSwap(pos, to, us.Other(), attacker, occ)
}

// seeSwap returns what side can win by capturing the piece of type victim on
// target. Either side may stop capturing at any point.
func seeSwap(pos *board.Position, target board.Square, side board.Color, victim board.PieceType, occ board.Bitboard) int {
	var values [32]int
	attackers := pos.AllAttackersTo(target, occ) & occ
	n := 0
	for ; n < len(values); n++ {
		sq, pt := leastValuableAttacker(pos, side, attackers)
		if sq == board.NoSquare {
			break
		}
		occ &^= board.SquareBB(sq)
		// Sliders behind the captured piece join in.
		attackers = pos.AllAttackersTo(target, occ) & occ
		// A king may not capture onto a defended square.
		if pt == board.King {
			if other, _ := leastValuableAttacker(pos, side.Other(), attackers); other != board.NoSquare {
				break
			}
		}
		values[n] = pieceValues[victim]
		victim = pt
		side = side.Other()
	}

	score := 0
	for i := n - 1; i >= 0; i-- {
		score = max(0, values[i]-score)
	}
	return score
}

// leastValuableAttacker picks side's cheapest piece among attackers.
func leastValuableAttacker(pos *board.Position, side board.Color, attackers board.Bitboard) (board.Square, board.PieceType) {
	for pt := board.Pawn; pt <= board.King; pt++ {
		if bb := attackers & pos.Pieces[side][pt]; bb != 0 {
			return bb.LSB(), pt
		}
	}
	return board.NoSquare, board.NoPieceType
}

// SeeGE reports whether SEE(pos, m) >= threshold.
func SeeGE(pos *board.Position, m board.Move, threshold int) bool {
	return SEE(pos, m) >= threshold
}
