package board

import (
	"errors"
	"fmt"
	"strings"
)

// CastlingRights is a 4-bit set of remaining castling options.
type CastlingRights uint8

const (
	WhiteKingSideCastle  CastlingRights = 1 << iota // K
	WhiteQueenSideCastle                            // Q
	BlackKingSideCastle                             // k
	BlackQueenSideCastle                            // q

	NoCastling  CastlingRights = 0
	AllCastling                = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// String returns the FEN castling field.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var sb strings.Builder
	for i, ch := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(ch)
		}
	}
	return sb.String()
}

// castleMask[sq] is cleared from the rights whenever a move touches sq.
var castleMask = func() (m [64]CastlingRights) {
	m[E1] = WhiteKingSideCastle | WhiteQueenSideCastle
	m[H1] = WhiteKingSideCastle
	m[A1] = WhiteQueenSideCastle
	m[E8] = BlackKingSideCastle | BlackQueenSideCastle
	m[H8] = BlackKingSideCastle
	m[A8] = BlackQueenSideCastle
	return m
}()

// MaxGameLength bounds the undo stack.
const MaxGameLength = 1024

// FiftyMoveLimit is the half-move clock value at which the game is drawn.
const FiftyMoveLimit = 100

// Position is a complete, mutable chess position. It is never shared between
// goroutines; workers take a Copy.
type Position struct {
	Pieces      [2][6]Bitboard
	Occupied    [2]Bitboard
	AllOccupied Bitboard
	KingSquare  [2]Square

	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	FullMoveNumber int

	// Ply counts moves made since the search root.
	Ply int

	Hash uint64

	history [MaxGameLength]Undo
	depth   int
}

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	pos, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return pos
}

// Copy returns an independent clone, history included.
func (p *Position) Copy() *Position {
	c := *p
	return &c
}

// HistoryLen returns the number of moves that UndoMove can take back.
func (p *Position) HistoryLen() int {
	return p.depth
}

// ResetPly marks the current position as the search root.
func (p *Position) ResetPly() {
	p.Ply = 0
}

// PieceAt returns the piece on sq, or NoPiece.
func (p *Position) PieceAt(sq Square) Piece {
	bb := SquareBB(sq)
	if p.AllOccupied&bb == 0 {
		return NoPiece
	}
	c := White
	if p.Occupied[Black]&bb != 0 {
		c = Black
	}
	return NewPiece(p.typeAt(c, sq), c)
}

// typeAt returns the type of c's piece on sq, or NoPieceType.
func (p *Position) typeAt(c Color, sq Square) PieceType {
	bb := SquareBB(sq)
	if p.Occupied[c]&bb == 0 {
		return NoPieceType
	}
	for pt := Pawn; pt <= King; pt++ {
		if p.Pieces[c][pt]&bb != 0 {
			return pt
		}
	}
	return NoPieceType
}

// TypeAt returns the piece type on sq regardless of color.
func (p *Position) TypeAt(sq Square) PieceType {
	return p.PieceAt(sq).Type()
}

func (p *Position) addPiece(c Color, pt PieceType, sq Square) {
	bb := SquareBB(sq)
	p.Pieces[c][pt] |= bb
	p.Occupied[c] |= bb
	p.AllOccupied |= bb
	p.Hash ^= zobristPiece[c][pt][sq]
	if pt == King {
		p.KingSquare[c] = sq
	}
}

func (p *Position) removePiece(c Color, pt PieceType, sq Square) {
	bb := SquareBB(sq)
	p.Pieces[c][pt] &^= bb
	p.Occupied[c] &^= bb
	p.AllOccupied &^= bb
	p.Hash ^= zobristPiece[c][pt][sq]
}

func (p *Position) movePiece(c Color, pt PieceType, from, to Square) {
	bb := SquareBB(from) | SquareBB(to)
	p.Pieces[c][pt] ^= bb
	p.Occupied[c] ^= bb
	p.AllOccupied ^= bb
	p.Hash ^= zobristPiece[c][pt][from] ^ zobristPiece[c][pt][to]
	if pt == King {
		p.KingSquare[c] = to
	}
}

// HasNonPawnMaterial reports whether the side to move has a piece besides
// pawns and the king.
func (p *Position) HasNonPawnMaterial() bool {
	us := p.SideToMove
	return p.Pieces[us][Knight]|p.Pieces[us][Bishop]|p.Pieces[us][Rook]|p.Pieces[us][Queen] != 0
}

// IsDraw reports a fifty-move draw or a position that already occurred
// within the current fifty-move window.
func (p *Position) IsDraw() bool {
	if p.HalfMoveClock >= FiftyMoveLimit {
		return true
	}
	// Only positions with the same side to move can repeat, so step by two.
	window := p.HalfMoveClock
	if window > p.depth {
		window = p.depth
	}
	for i := 2; i <= window; i += 2 {
		if p.history[p.depth-i].Hash == p.Hash {
			return true
		}
	}
	return false
}

// Validate checks the structural invariants of the position.
func (p *Position) Validate() error {
	var errs []error
	for c := White; c <= Black; c++ {
		if n := p.Pieces[c][King].PopCount(); n != 1 {
			errs = append(errs, fmt.Errorf("%s has %d kings", c, n))
		}
		var union Bitboard
		for pt := Pawn; pt <= King; pt++ {
			if union&p.Pieces[c][pt] != 0 {
				errs = append(errs, fmt.Errorf("%s piece sets overlap", c))
			}
			union |= p.Pieces[c][pt]
		}
		if union != p.Occupied[c] {
			errs = append(errs, fmt.Errorf("%s occupancy out of sync", c))
		}
	}
	if p.Occupied[White]&p.Occupied[Black] != 0 {
		errs = append(errs, errors.New("sides overlap"))
	}
	if p.AllOccupied != p.Occupied[White]|p.Occupied[Black] {
		errs = append(errs, errors.New("occupancy out of sync"))
	}
	if (p.Pieces[White][Pawn]|p.Pieces[Black][Pawn])&(Rank1|Rank8) != 0 {
		errs = append(errs, errors.New("pawn on back rank"))
	}
	if len(errs) == 0 && p.SquareAttacked(p.KingSquare[p.SideToMove.Other()], p.SideToMove) {
		errs = append(errs, errors.New("side not to move is in check"))
	}
	return errors.Join(errs...)
}

// String draws the board with the FEN and key underneath.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteString("\n +---+---+---+---+---+---+---+---+\n")
	for rank := 7; rank >= 0; rank-- {
		for file := 0; file < 8; file++ {
			piece := p.PieceAt(NewSquare(file, rank))
			ch := " "
			if piece != NoPiece {
				ch = piece.String()
			}
			fmt.Fprintf(&sb, " | %s", ch)
		}
		fmt.Fprintf(&sb, " | %d\n +---+---+---+---+---+---+---+---+\n", rank+1)
	}
	sb.WriteString("   a   b   c   d   e   f   g   h\n\n")
	fmt.Fprintf(&sb, "Fen: %s\nKey: %016X\n", p.Export(), p.Hash)
	return sb.String()
}
