package board

import (
	"errors"
	"testing"
)

func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"rnbqkbnr/pp1ppppp/8/2p5/4P3/8/PPPP1PPP/RNBQKBNR w KQkq c6 0 2",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 12 40",
		"4k3/8/8/8/8/8/8/4K3 b - -",
	}
	for _, fen := range fens {
		t.Run(fen, func(t *testing.T) {
			pos := mustParse(t, fen)
			if got := pos.Export(); got != fen {
				t.Errorf("Export() = %q, want %q", got, fen)
			}
			if pos.Hash != pos.ComputeHash() {
				t.Errorf("hash %016X does not match recomputed %016X", pos.Hash, pos.ComputeHash())
			}
			if err := pos.Validate(); err != nil {
				t.Errorf("Validate: %v", err)
			}
		})
	}
}

func TestLoadOptionalFields(t *testing.T) {
	pos := mustParse(t, "4k3/8/8/8/8/8/8/4K3 w -")
	if pos.EnPassant != NoSquare || pos.HalfMoveClock != 0 || pos.FullMoveNumber != 0 {
		t.Errorf("defaults not applied: ep=%s hmc=%d fmn=%d", pos.EnPassant, pos.HalfMoveClock, pos.FullMoveNumber)
	}
	if got, want := pos.Export(), "4k3/8/8/8/8/8/8/4K3 w - -"; got != want {
		t.Errorf("Export() = %q, want %q", got, want)
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		fen  string
	}{
		{"empty", ""},
		{"two fields", "8/8/8/8/8/8/8/8 w"},
		{"seven ranks", "4k3/8/8/8/8/8/4K3 w - - 0 1"},
		{"long rank", "4k4/8/8/8/8/8/8/4K3 w - - 0 1"},
		{"short rank", "4k2/8/8/8/8/8/8/4K3 w - - 0 1"},
		{"bad piece", "4k3/8/8/8/8/8/8/4X3 w - - 0 1"},
		{"bad side", "4k3/8/8/8/8/8/8/4K3 x - - 0 1"},
		{"bad castling", "4k3/8/8/8/8/8/8/4K3 w KX - 0 1"},
		{"repeated castling", "4k3/8/8/8/8/8/8/4K3 w KK - 0 1"},
		{"ep off rank", "4k3/8/8/8/8/8/8/4K3 w - e4 0 1"},
		{"ep garbage", "4k3/8/8/8/8/8/8/4K3 w - z9 0 1"},
		{"negative clock", "4k3/8/8/8/8/8/8/4K3 w - - -1 1"},
		{"text clock", "4k3/8/8/8/8/8/8/4K3 w - - x 1"},
		{"no white king", "4k3/8/8/8/8/8/8/8 w - - 0 1"},
		{"two black kings", "4k2k/8/8/8/8/8/8/4K3 w - - 0 1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos := NewPosition()
			before := pos.Export()
			err := pos.Load(tc.fen)
			if !errors.Is(err, ErrInvalidFormat) {
				t.Fatalf("Load(%q) error = %v, want ErrInvalidFormat", tc.fen, err)
			}
			if pos.Export() != before {
				t.Errorf("failed Load changed the position to %q", pos.Export())
			}
		})
	}
}

func TestLoadResetsHistory(t *testing.T) {
	pos := NewPosition()
	playMoves(t, pos, "e2e4", "e7e5")
	if err := pos.Load(StartFEN); err != nil {
		t.Fatal(err)
	}
	if pos.HistoryLen() != 0 {
		t.Errorf("HistoryLen() = %d after Load", pos.HistoryLen())
	}
	if err := pos.UndoMove(); !errors.Is(err, ErrEmptyHistory) {
		t.Errorf("UndoMove() = %v, want ErrEmptyHistory", err)
	}
}

func playMoves(t *testing.T, pos *Position, moves ...string) {
	t.Helper()
	for _, s := range moves {
		m, err := ParseMove(s, pos)
		if err != nil {
			t.Fatalf("ParseMove(%q): %v", s, err)
		}
		if !pos.MakeMove(m) {
			t.Fatalf("MakeMove(%s) rejected", s)
		}
	}
}
