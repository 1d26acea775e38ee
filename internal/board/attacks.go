package board

var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard

	// betweenBB holds the squares strictly between two aligned squares.
	betweenBB [64][64]Bitboard
)

func initLeapers() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)

		knightAttacks[sq] = (bb<<17)&NotFileA | (bb<<15)&NotFileH |
			(bb>>15)&NotFileA | (bb>>17)&NotFileH |
			(bb<<10)&NotFileAB | (bb<<6)&NotFileGH |
			(bb>>6)&NotFileAB | (bb>>10)&NotFileGH

		kingAttacks[sq] = bb.North() | bb.South() | bb.East() | bb.West() |
			bb.NorthEast() | bb.NorthWest() | bb.SouthEast() | bb.SouthWest()

		pawnAttacks[White][sq] = bb.NorthEast() | bb.NorthWest()
		pawnAttacks[Black][sq] = bb.SouthEast() | bb.SouthWest()
	}
}

func initBetween() {
	for a := A1; a <= H8; a++ {
		for b := A1; b <= H8; b++ {
			if a == b {
				continue
			}
			bb := SquareBB(b)
			if RookAttacks(a, Empty)&bb != 0 {
				betweenBB[a][b] = RookAttacks(a, bb) & RookAttacks(b, SquareBB(a))
			} else if BishopAttacks(a, Empty)&bb != 0 {
				betweenBB[a][b] = BishopAttacks(a, bb) & BishopAttacks(b, SquareBB(a))
			}
		}
	}
}

func KnightAttacks(sq Square) Bitboard { return knightAttacks[sq] }
func KingAttacks(sq Square) Bitboard   { return kingAttacks[sq] }

// PawnAttacks returns the squares a pawn of color c on sq attacks.
func PawnAttacks(sq Square, c Color) Bitboard { return pawnAttacks[c][sq] }

// Between returns the squares strictly between a and b, or Empty when they
// do not share a line.
func Between(a, b Square) Bitboard { return betweenBB[a][b] }

// AttackersTo returns the pieces of side by that attack sq, with sliders
// blocked by occ.
func (p *Position) AttackersTo(sq Square, by Color, occ Bitboard) Bitboard {
	queens := p.Pieces[by][Queen]
	return pawnAttacks[by.Other()][sq]&p.Pieces[by][Pawn] |
		knightAttacks[sq]&p.Pieces[by][Knight] |
		kingAttacks[sq]&p.Pieces[by][King] |
		BishopAttacks(sq, occ)&(p.Pieces[by][Bishop]|queens) |
		RookAttacks(sq, occ)&(p.Pieces[by][Rook]|queens)
}

// AllAttackersTo returns attackers of both sides, for exchange evaluation.
func (p *Position) AllAttackersTo(sq Square, occ Bitboard) Bitboard {
	return p.AttackersTo(sq, White, occ) | p.AttackersTo(sq, Black, occ)
}

// SquareAttacked reports whether side by attacks sq.
func (p *Position) SquareAttacked(sq Square, by Color) bool {
	queens := p.Pieces[by][Queen]
	if pawnAttacks[by.Other()][sq]&p.Pieces[by][Pawn] != 0 ||
		knightAttacks[sq]&p.Pieces[by][Knight] != 0 ||
		kingAttacks[sq]&p.Pieces[by][King] != 0 {
		return true
	}
	return BishopAttacks(sq, p.AllOccupied)&(p.Pieces[by][Bishop]|queens) != 0 ||
		RookAttacks(sq, p.AllOccupied)&(p.Pieces[by][Rook]|queens) != 0
}

// IsInCheck reports whether the side to move's king is attacked.
func (p *Position) IsInCheck() bool {
	us := p.SideToMove
	return p.SquareAttacked(p.KingSquare[us], us.Other())
}

// Checkers returns the enemy pieces giving check to the side to move.
func (p *Position) Checkers() Bitboard {
	us := p.SideToMove
	return p.AttackersTo(p.KingSquare[us], us.Other(), p.AllOccupied)
}
