package board

import "fmt"

// Move packs a move into 16 bits:
//
//	bits 0-5   from square
//	bits 6-11  to square
//	bits 12-13 promotion piece (0=Knight .. 3=Queen)
//	bits 14-15 special tag (none, promotion, en passant, castling)
type Move uint16

// Special tags
const (
	FlagNormal    uint16 = 0 << 14
	FlagPromotion uint16 = 1 << 14
	FlagEnPassant uint16 = 2 << 14
	FlagCastling  uint16 = 3 << 14
)

// NoMove is the null move; it prints as "0000".
const NoMove Move = 0

func NewMove(from, to Square) Move {
	return Move(from) | Move(to)<<6
}

// NewPromotion builds a promotion to promo, which must be Knight through Queen.
func NewPromotion(from, to Square, promo PieceType) Move {
	return Move(from) | Move(to)<<6 | Move(promo-Knight)<<12 | Move(FlagPromotion)
}

func NewEnPassant(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(FlagEnPassant)
}

// NewCastling builds a castling move expressed as the king's two-square step.
func NewCastling(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(FlagCastling)
}

func (m Move) From() Square { return Square(m & 0x3F) }
func (m Move) To() Square   { return Square((m >> 6) & 0x3F) }
func (m Move) Flag() uint16 { return uint16(m) & 0xC000 }

// Promotion returns the promoted piece type; only meaningful when IsPromotion.
func (m Move) Promotion() PieceType {
	return PieceType((m>>12)&3) + Knight
}

func (m Move) IsPromotion() bool { return m.Flag() == FlagPromotion }
func (m Move) IsEnPassant() bool { return m.Flag() == FlagEnPassant }
func (m Move) IsCastling() bool  { return m.Flag() == FlagCastling }

// IsCapture reports whether m removes an enemy piece in pos.
func (m Move) IsCapture(pos *Position) bool {
	return m.IsEnPassant() || pos.Occupied[pos.SideToMove.Other()].IsSet(m.To())
}

// IsActive reports whether m changes material: a capture, promotion or en passant.
func (m Move) IsActive(pos *Position) bool {
	return m.IsPromotion() || m.IsCapture(pos)
}

// String returns the move in coordinate notation, e.g. "e2e4" or "e7e8q".
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string(m.Promotion().Char())
	}
	return s
}

// ParseMove resolves coordinate notation against the legal moves of pos.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return NoMove, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	promo := NoPieceType
	if len(s) == 5 {
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("%w: bad promotion piece in %q", ErrInvalidMove, s)
		}
	}

	for _, m := range pos.LegalMoves() {
		if m.From() != from || m.To() != to {
			continue
		}
		if m.IsPromotion() != (promo != NoPieceType) {
			continue
		}
		if promo != NoPieceType && m.Promotion() != promo {
			continue
		}
		return m, nil
	}
	return NoMove, fmt.Errorf("%w: %q is not legal here", ErrInvalidMove, s)
}

// MaxMoves is the capacity of a MoveList.
const MaxMoves = 256

// MoveList is a fixed-capacity move buffer that never allocates.
type MoveList struct {
	moves    [MaxMoves]Move
	count    int
	overflow bool
}

// Add appends m, recording an overflow instead of writing past capacity.
func (ml *MoveList) Add(m Move) {
	if ml.count >= MaxMoves {
		ml.overflow = true
		return
	}
	ml.moves[ml.count] = m
	ml.count++
}

func (ml *MoveList) Len() int           { return ml.count }
func (ml *MoveList) Get(i int) Move     { return ml.moves[i] }
func (ml *MoveList) Set(i int, m Move)  { ml.moves[i] = m }
func (ml *MoveList) Swap(i, j int)      { ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i] }
func (ml *MoveList) Slice() []Move      { return ml.moves[:ml.count] }
func (ml *MoveList) Overflowed() bool   { return ml.overflow }

// Clear empties the list.
func (ml *MoveList) Clear() {
	ml.count = 0
	ml.overflow = false
}

// Contains reports whether m is in the list.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Undo holds exactly what MakeMove destroys.
type Undo struct {
	Move           Move
	Moved          PieceType
	Captured       PieceType
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	Hash           uint64
}
