package board

// GenKind selects which pseudo-legal moves Generate emits.
type GenKind uint8

const (
	// GenQuiet emits moves that neither capture nor promote, castling included.
	GenQuiet GenKind = 1 << iota
	// GenActive emits captures, promotions and en passant.
	GenActive

	GenAll = GenQuiet | GenActive
)

func (k GenKind) String() string {
	switch k {
	case GenQuiet:
		return "quiet"
	case GenActive:
		return "active"
	case GenAll:
		return "all"
	}
	return "unknown"
}

// Generate appends the pseudo-legal moves of the side to move.
func (p *Position) Generate(kind GenKind, ml *MoveList) error {
	return p.GenerateFor(p.SideToMove, kind, ml)
}

// GenerateFor appends pseudo-legal moves for side. En passant is only
// produced when side is the side to move.
// Moves come out grouped by piece: pawns, knights, bishops, rooks, queens, king.
func (p *Position) GenerateFor(side Color, kind GenKind, ml *MoveList) error {
	var targets Bitboard
	if kind&GenQuiet != 0 {
		targets |= ^p.AllOccupied
	}
	if kind&GenActive != 0 {
		targets |= p.Occupied[side.Other()]
	}

	p.generatePawnMoves(side, kind, ml)

	for pt := Knight; pt <= Queen; pt++ {
		pieces := p.Pieces[side][pt]
		for pieces != 0 {
			from := pieces.PopLSB()
			addMoves(ml, from, p.pieceAttacks(pt, from)&targets)
		}
	}

	king := p.KingSquare[side]
	addMoves(ml, king, kingAttacks[king]&targets)
	if kind&GenQuiet != 0 {
		p.generateCastling(side, ml)
	}

	if ml.Overflowed() {
		return ErrCapacityExceeded
	}
	return nil
}

func (p *Position) pieceAttacks(pt PieceType, sq Square) Bitboard {
	switch pt {
	case Knight:
		return knightAttacks[sq]
	case Bishop:
		return BishopAttacks(sq, p.AllOccupied)
	case Rook:
		return RookAttacks(sq, p.AllOccupied)
	case Queen:
		return QueenAttacks(sq, p.AllOccupied)
	case King:
		return kingAttacks[sq]
	}
	return Empty
}

func addMoves(ml *MoveList, from Square, to Bitboard) {
	for to != 0 {
		ml.Add(NewMove(from, to.PopLSB()))
	}
}

func addPromotions(ml *MoveList, from, to Square) {
	ml.Add(NewPromotion(from, to, Queen))
	ml.Add(NewPromotion(from, to, Rook))
	ml.Add(NewPromotion(from, to, Bishop))
	ml.Add(NewPromotion(from, to, Knight))
}

func (p *Position) generatePawnMoves(side Color, kind GenKind, ml *MoveList) {
	pawns := p.Pieces[side][Pawn]
	if pawns == 0 {
		return
	}
	empty := ^p.AllOccupied
	enemies := p.Occupied[side.Other()]

	promoRank, doubleRank, push := Rank8, Rank3, 8
	if side == Black {
		promoRank, doubleRank, push = Rank1, Rank6, -8
	}

	single := pawns.Forward(side) & empty
	if kind&GenQuiet != 0 {
		quiet := single &^ promoRank
		double := (single & doubleRank).Forward(side) & empty
		for quiet != 0 {
			to := quiet.PopLSB()
			ml.Add(NewMove(Square(int(to)-push), to))
		}
		for double != 0 {
			to := double.PopLSB()
			ml.Add(NewMove(Square(int(to)-2*push), to))
		}
	}

	if kind&GenActive == 0 {
		return
	}

	promos := single & promoRank
	for promos != 0 {
		to := promos.PopLSB()
		addPromotions(ml, Square(int(to)-push), to)
	}

	for pawns != 0 {
		from := pawns.PopLSB()
		captures := pawnAttacks[side][from] & enemies
		for captures != 0 {
			to := captures.PopLSB()
			if promoRank.IsSet(to) {
				addPromotions(ml, from, to)
			} else {
				ml.Add(NewMove(from, to))
			}
		}
	}

	if p.EnPassant != NoSquare && side == p.SideToMove {
		// Our pawns that attack the ep square are exactly the squares an
		// enemy pawn on it would attack.
		attackers := pawnAttacks[side.Other()][p.EnPassant] & p.Pieces[side][Pawn]
		for attackers != 0 {
			ml.Add(NewEnPassant(attackers.PopLSB(), p.EnPassant))
		}
	}
}

type castleRule struct {
	right      CastlingRights
	king, to   Square
	rook       Square
	transit    Square
	mustBeFree Bitboard
}

var castleRules = [2][2]castleRule{
	White: {
		{WhiteKingSideCastle, E1, G1, H1, F1, SquareBB(F1) | SquareBB(G1)},
		{WhiteQueenSideCastle, E1, C1, A1, D1, SquareBB(B1) | SquareBB(C1) | SquareBB(D1)},
	},
	Black: {
		{BlackKingSideCastle, E8, G8, H8, F8, SquareBB(F8) | SquareBB(G8)},
		{BlackQueenSideCastle, E8, C8, A8, D8, SquareBB(B8) | SquareBB(C8) | SquareBB(D8)},
	},
}

func (p *Position) generateCastling(side Color, ml *MoveList) {
	them := side.Other()
	for _, r := range castleRules[side] {
		if p.CastlingRights&r.right == 0 || p.AllOccupied&r.mustBeFree != 0 {
			continue
		}
		if p.Pieces[side][King]&SquareBB(r.king) == 0 || p.Pieces[side][Rook]&SquareBB(r.rook) == 0 {
			continue
		}
		if p.SquareAttacked(r.king, them) || p.SquareAttacked(r.transit, them) || p.SquareAttacked(r.to, them) {
			continue
		}
		ml.Add(NewCastling(r.king, r.to))
	}
}

// LegalMoves returns every legal move of the side to move.
func (p *Position) LegalMoves() []Move {
	var ml MoveList
	if err := p.Generate(GenAll, &ml); err != nil {
		panic(err)
	}
	legal := make([]Move, 0, ml.Len())
	for _, m := range ml.Slice() {
		if p.MakeMove(m) {
			legal = append(legal, m)
			_ = p.UndoMove()
		}
	}
	return legal
}

// IsPseudoLegal reports whether m is among the pseudo-legal moves of the
// side to move. Used to vet hash and killer moves before playing them.
func (p *Position) IsPseudoLegal(m Move) bool {
	if m == NoMove {
		return false
	}
	us := p.SideToMove
	from, to := m.From(), m.To()
	if !p.Occupied[us].IsSet(from) || p.Occupied[us].IsSet(to) {
		return false
	}
	pt := p.typeAt(us, from)

	switch {
	case m.IsCastling():
		if pt != King {
			return false
		}
		var ml MoveList
		p.generateCastling(us, &ml)
		return ml.Contains(m)
	case m.IsEnPassant():
		return pt == Pawn && to == p.EnPassant && pawnAttacks[us][from].IsSet(to)
	}

	if pt == Pawn {
		promoRank := Rank8
		if us == Black {
			promoRank = Rank1
		}
		if promoRank.IsSet(to) != m.IsPromotion() {
			return false
		}
		if p.Occupied[us.Other()].IsSet(to) {
			return pawnAttacks[us][from].IsSet(to)
		}
		if p.AllOccupied.IsSet(to) {
			return false
		}
		single := SquareBB(from).Forward(us)
		if single.IsSet(to) {
			return true
		}
		double := single.Forward(us)
		return from.RelativeRank(us) == 1 && single&p.AllOccupied == 0 && double.IsSet(to)
	}
	if m.IsPromotion() {
		return false
	}
	return p.pieceAttacks(pt, from).IsSet(to)
}
