package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the standard starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN builds a new position from a FEN string.
func ParseFEN(fen string) (*Position, error) {
	pos := &Position{}
	if err := pos.Load(fen); err != nil {
		return nil, err
	}
	return pos, nil
}

// Load replaces the whole position, history included, with the one encoded
// in fen. The en-passant field and both counters may be omitted.
// On error p is left unchanged.
func (p *Position) Load(fen string) error {
	InitTables()

	fields := strings.Fields(fen)
	if len(fields) < 3 {
		return fmt.Errorf("%w: fen needs at least 3 fields, got %d", ErrInvalidFormat, len(fields))
	}
	if len(fields) > 6 {
		return fmt.Errorf("%w: fen has %d fields", ErrInvalidFormat, len(fields))
	}

	next := &Position{EnPassant: NoSquare}
	if err := next.parsePlacement(fields[0]); err != nil {
		return err
	}

	switch fields[1] {
	case "w":
		next.SideToMove = White
	case "b":
		next.SideToMove = Black
	default:
		return fmt.Errorf("%w: side to move %q", ErrInvalidFormat, fields[1])
	}

	cr, err := parseCastling(fields[2])
	if err != nil {
		return err
	}
	next.CastlingRights = cr

	if len(fields) > 3 && fields[3] != "-" {
		sq, err := ParseSquare(fields[3])
		if err != nil {
			return fmt.Errorf("%w: en passant square %q", ErrInvalidFormat, fields[3])
		}
		if sq.Rank() != 2 && sq.Rank() != 5 {
			return fmt.Errorf("%w: en passant square %s not on rank 3 or 6", ErrInvalidFormat, sq)
		}
		next.EnPassant = sq
	}

	if len(fields) > 4 {
		if next.HalfMoveClock, err = parseCounter(fields[4]); err != nil {
			return err
		}
	}
	if len(fields) > 5 {
		if next.FullMoveNumber, err = parseCounter(fields[5]); err != nil {
			return err
		}
	}

	next.Hash = next.ComputeHash()
	*p = *next
	return nil
}

func (p *Position) parsePlacement(placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%w: need 8 ranks, got %d", ErrInvalidFormat, len(ranks))
	}

	var kings [2]int
	for i, row := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(row); j++ {
			ch := row[j]
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				continue
			}
			piece := PieceFromChar(ch)
			if piece == NoPiece {
				return fmt.Errorf("%w: bad piece %q in rank %d", ErrInvalidFormat, ch, rank+1)
			}
			if file > 7 {
				return fmt.Errorf("%w: rank %d is too long", ErrInvalidFormat, rank+1)
			}
			if piece.Type() == King {
				kings[piece.Color()]++
			}
			p.addPiece(piece.Color(), piece.Type(), NewSquare(file, rank))
			file++
		}
		if file != 8 {
			return fmt.Errorf("%w: rank %d has %d squares", ErrInvalidFormat, rank+1, file)
		}
	}
	if kings[White] != 1 || kings[Black] != 1 {
		return fmt.Errorf("%w: each side needs exactly one king", ErrInvalidFormat)
	}
	return nil
}

func parseCastling(s string) (CastlingRights, error) {
	if s == "-" {
		return NoCastling, nil
	}
	var cr CastlingRights
	for _, ch := range s {
		i := strings.IndexRune("KQkq", ch)
		if i < 0 || cr&(1<<i) != 0 {
			return NoCastling, fmt.Errorf("%w: castling rights %q", ErrInvalidFormat, s)
		}
		cr |= 1 << i
	}
	return cr, nil
}

func parseCounter(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: move counter %q", ErrInvalidFormat, s)
	}
	return n, nil
}

// Export encodes the position as FEN. The move counters are left off when
// both are zero.
func (p *Position) Export() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			piece := p.PieceAt(NewSquare(file, rank))
			if piece == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteString(piece.String())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	side := "w"
	if p.SideToMove == Black {
		side = "b"
	}
	fmt.Fprintf(&sb, " %s %s %s", side, p.CastlingRights, p.EnPassant)

	if p.HalfMoveClock != 0 || p.FullMoveNumber != 0 {
		fmt.Fprintf(&sb, " %d %d", p.HalfMoveClock, p.FullMoveNumber)
	}
	return sb.String()
}
