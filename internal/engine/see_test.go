package engine

import (
	"testing"

	"github.com/hailam/kestrel/internal/board"
)

func mustPosition(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return pos
}

func mustMove(t *testing.T, pos *board.Position, s string) board.Move {
	t.Helper()
	m, err := board.ParseMove(s, pos)
	if err != nil {
		t.Fatalf("ParseMove(%q): %v", s, err)
	}
	return m
}

func TestSEE(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		move string
		want int
	}{
		{"undefended pawn", "4k3/8/8/3p4/4P3/8/8/4K3 w - - 0 1", "e4d5", PawnValue},
		{"rook takes loose pawn", "1k1r4/1pp4p/p7/4p3/8/P5P1/1PP4P/2K1R3 w - - 0 1", "e1e5", PawnValue},
		{"queen takes defended pawn", "4k3/8/2p5/3p4/8/8/8/3QK3 w - - 0 1", "d1d5", PawnValue - QueenValue},
		{"exchange with x-rays", "1k1r3q/1ppn3p/p4b2/4p3/8/P2N2P1/1PP1R1BP/2K1Q3 w - - 0 1", "d3e5", PawnValue - KnightValue},
		{"en passant", "4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1", "e5d6", PawnValue},
		{"king recaptures", "8/8/4k3/3p4/8/8/8/3RK3 w - - 0 1", "d1d5", PawnValue - RookValue},
		{"king cannot recapture defended piece", "8/8/4k3/3p4/8/8/3R4/3RK3 w - - 0 1", "d2d5", PawnValue},
		{"quiet move", "4k3/8/8/3p4/4P3/8/8/4K3 w - - 0 1", "e1e2", 0},
		{"promotion", "4k3/P7/8/8/8/8/8/4K3 w - - 0 1", "a7a8q", QueenValue - PawnValue},
		{"promotion recaptured", "r3k3/1P6/8/8/8/8/8/4K3 w - - 0 1", "b7b8q", -PawnValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := mustPosition(t, tt.fen)
			m := mustMove(t, pos, tt.move)
			if got := SEE(pos, m); got != tt.want {
				t.Errorf("SEE(%s) = %d, want %d", tt.move, got, tt.want)
			}
			if !SeeGE(pos, m, tt.want) || SeeGE(pos, m, tt.want+1) {
				t.Errorf("SeeGE disagrees with SEE = %d", tt.want)
			}
		})
	}
}
