package board

import "fmt"

// MakeMove plays a pseudo-legal move and pushes its undo record. If the move
// leaves the mover's king attacked it is taken back and MakeMove returns
// false, with the position unchanged.
//
// MakeMove panics with ErrHistoryOverflow when the undo stack is full.
func (p *Position) MakeMove(m Move) bool {
	if p.depth >= MaxGameLength {
		panic(ErrHistoryOverflow)
	}

	us, them := p.SideToMove, p.SideToMove.Other()
	from, to := m.From(), m.To()
	moved := p.typeAt(us, from)

	capSq := to
	captured := p.typeAt(them, to)
	if m.IsEnPassant() {
		capSq = epVictim(to, us)
		captured = Pawn
	}
	if debugChecks {
		if moved == NoPieceType {
			panic(fmt.Sprintf("board: no %s piece on %s for %s\n%s", us, from, m, p))
		}
		if captured == King {
			panic(fmt.Sprintf("board: %s captures a king\n%s", m, p))
		}
	}

	p.history[p.depth] = Undo{
		Move:           m,
		Moved:          moved,
		Captured:       captured,
		CastlingRights: p.CastlingRights,
		EnPassant:      p.EnPassant,
		HalfMoveClock:  p.HalfMoveClock,
		Hash:           p.Hash,
	}
	p.depth++

	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
		p.EnPassant = NoSquare
	}

	if captured != NoPieceType {
		p.removePiece(them, captured, capSq)
	}

	if m.IsPromotion() {
		p.removePiece(us, Pawn, from)
		p.addPiece(us, m.Promotion(), to)
	} else {
		p.movePiece(us, moved, from, to)
	}

	if m.IsCastling() {
		rookFrom, rookTo := castlingRook(from, to)
		p.movePiece(us, Rook, rookFrom, rookTo)
	}

	if moved == Pawn && (to-from == 16 || from-to == 16) {
		p.EnPassant = (from + to) / 2
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	}

	if cr := p.CastlingRights &^ (castleMask[from] | castleMask[to]); cr != p.CastlingRights {
		p.Hash ^= zobristCastling[p.CastlingRights] ^ zobristCastling[cr]
		p.CastlingRights = cr
	}

	if moved == Pawn || captured != NoPieceType {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}
	if us == Black {
		p.FullMoveNumber++
	}

	p.SideToMove = them
	p.Hash ^= zobristSideToMove
	p.Ply++

	if p.SquareAttacked(p.KingSquare[us], them) {
		_ = p.UndoMove()
		return false
	}
	return true
}

// UndoMove pops the last move made with MakeMove or MakeNullMove.
func (p *Position) UndoMove() error {
	if p.depth == 0 {
		return ErrEmptyHistory
	}
	p.depth--
	u := &p.history[p.depth]

	them := p.SideToMove
	us := them.Other()
	p.SideToMove = us
	if p.Ply > 0 {
		p.Ply--
	}

	if m := u.Move; m != NoMove {
		from, to := m.From(), m.To()
		if m.IsCastling() {
			rookFrom, rookTo := castlingRook(from, to)
			p.movePiece(us, Rook, rookTo, rookFrom)
		}
		if m.IsPromotion() {
			p.removePiece(us, m.Promotion(), to)
			p.addPiece(us, Pawn, from)
		} else {
			p.movePiece(us, u.Moved, to, from)
		}
		if u.Captured != NoPieceType {
			capSq := to
			if m.IsEnPassant() {
				capSq = epVictim(to, us)
			}
			p.addPiece(them, u.Captured, capSq)
		}
		if us == Black {
			p.FullMoveNumber--
		}
	}

	p.CastlingRights = u.CastlingRights
	p.EnPassant = u.EnPassant
	p.HalfMoveClock = u.HalfMoveClock
	p.Hash = u.Hash
	return nil
}

// MakeNullMove passes the turn. It is undone with UndoNullMove.
func (p *Position) MakeNullMove() {
	if p.depth >= MaxGameLength {
		panic(ErrHistoryOverflow)
	}
	p.history[p.depth] = Undo{
		Move:           NoMove,
		Moved:          NoPieceType,
		Captured:       NoPieceType,
		CastlingRights: p.CastlingRights,
		EnPassant:      p.EnPassant,
		HalfMoveClock:  p.HalfMoveClock,
		Hash:           p.Hash,
	}
	p.depth++

	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
		p.EnPassant = NoSquare
	}
	// Repetition scans must not reach across a null move.
	p.HalfMoveClock = 0
	p.SideToMove = p.SideToMove.Other()
	p.Hash ^= zobristSideToMove
	p.Ply++
}

// UndoNullMove reverses MakeNullMove.
func (p *Position) UndoNullMove() {
	if p.depth == 0 || p.history[p.depth-1].Move != NoMove {
		panic("board: UndoNullMove without a null move on the stack")
	}
	_ = p.UndoMove()
}

// LastMove returns the most recent move on the stack, or NoMove.
func (p *Position) LastMove() Move {
	if p.depth == 0 {
		return NoMove
	}
	return p.history[p.depth-1].Move
}

// epVictim is the square of the pawn removed by an en-passant capture landing on to.
func epVictim(to Square, us Color) Square {
	if us == White {
		return to - 8
	}
	return to + 8
}

func castlingRook(from, to Square) (Square, Square) {
	base := from &^ 7
	if to > from {
		return base + 7, base + 5
	}
	return base, base + 3
}
