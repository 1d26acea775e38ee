package engine

import (
	"testing"

	"github.com/hailam/kestrel/internal/board"
)

func TestTTStoreProbe(t *testing.T) {
	tt := NewTranspositionTable(1)
	key := uint64(0x1234567890ABCDEF)
	move := board.NewMove(board.E2, board.E4)

	if _, ok := tt.Probe(key, 0); ok {
		t.Fatal("empty table reported a hit")
	}

	tt.Store(key, 0, move, 57, 6, BoundExact)
	hit, ok := tt.Probe(key, 0)
	if !ok {
		t.Fatal("stored entry not found")
	}
	want := TTHit{Move: move, Score: 57, Depth: 6, Bound: BoundExact}
	if hit != want {
		t.Errorf("Probe = %+v, want %+v", hit, want)
	}

	if _, ok := tt.Probe(key^1, 0); ok {
		t.Error("different key reported a hit")
	}
}

func TestTTNegativeScores(t *testing.T) {
	tt := NewTranspositionTable(1)
	for _, score := range []int{-1, -350, -MateScore + 10, MateScore - 10} {
		tt.Clear()
		tt.Store(42, 0, board.NoMove, score, 1, BoundLower)
		hit, ok := tt.Probe(42, 0)
		if !ok || hit.Score != score {
			t.Errorf("score %d came back as %d (hit %v)", score, hit.Score, ok)
		}
	}
}

func TestTTMateScoresFollowPly(t *testing.T) {
	tt := NewTranspositionTable(1)

	// Mate found 5 plies from the root while storing at ply 3 is a mate
	// 2 plies from the stored node.
	tt.Store(99, 3, board.NoMove, MateScore-5, 4, BoundExact)
	hit, ok := tt.Probe(99, 1)
	if !ok {
		t.Fatal("entry missing")
	}
	if hit.Score != MateScore-3 {
		t.Errorf("mate score at ply 1 = %d, want %d", hit.Score, MateScore-3)
	}

	tt.Store(100, 2, board.NoMove, -MateScore+6, 4, BoundExact)
	hit, _ = tt.Probe(100, 4)
	if hit.Score != -MateScore+8 {
		t.Errorf("mated score at ply 4 = %d, want %d", hit.Score, -MateScore+8)
	}
}

func TestTTTornEntryMisses(t *testing.T) {
	tt := NewTranspositionTable(1)
	key := uint64(0xDEADBEEF)
	tt.Store(key, 0, board.NewMove(board.G1, board.F3), 10, 3, BoundExact)

	// Simulate a racing writer that only got as far as the data word.
	e := &tt.slots[key&tt.mask][0]
	e.data.Store(e.data.Load() ^ 0xFF0000)

	if _, ok := tt.Probe(key, 0); ok {
		t.Error("entry with mismatched check word was accepted")
	}
}

func TestTTReplacement(t *testing.T) {
	tt := NewTranspositionTable(1)
	stride := tt.mask + 1
	a, b, c := uint64(7), 7+stride, 7+2*stride
	tt.NewSearch()

	tt.Store(a, 0, board.NoMove, 1, 10, BoundExact)
	tt.Store(b, 0, board.NoMove, 2, 2, BoundExact)
	if _, ok := tt.Probe(a, 0); !ok {
		t.Fatal("shallow store evicted a deep entry of the current search")
	}
	if _, ok := tt.Probe(b, 0); !ok {
		t.Fatal("shallow entry not stored in the second entry")
	}

	tt.Store(c, 0, board.NoMove, 3, 1, BoundExact)
	if _, ok := tt.Probe(b, 0); ok {
		t.Error("second entry not replaced")
	}
	if _, ok := tt.Probe(a, 0); !ok {
		t.Error("deep entry lost")
	}

	// Entries from an older search give way regardless of depth.
	tt.NewSearch()
	tt.Store(b, 0, board.NoMove, 4, 1, BoundExact)
	if _, ok := tt.Probe(a, 0); ok {
		t.Error("stale deep entry survived")
	}
	if hit, ok := tt.Probe(b, 0); !ok || hit.Score != 4 {
		t.Errorf("new entry = %+v, %v", hit, ok)
	}
}

func TestTTKeepsMoveOnRefresh(t *testing.T) {
	tt := NewTranspositionTable(1)
	move := board.NewMove(board.D2, board.D4)
	tt.Store(5, 0, move, 20, 3, BoundLower)
	tt.Store(5, 0, board.NoMove, -5, 4, BoundUpper)

	hit, ok := tt.Probe(5, 0)
	if !ok {
		t.Fatal("entry missing")
	}
	if hit.Move != move || hit.Score != -5 || hit.Bound != BoundUpper {
		t.Errorf("Probe = %+v, want move %s with the new score and bound", hit, move)
	}
}

func TestTTAgeWraps(t *testing.T) {
	tt := NewTranspositionTable(1)
	stride := tt.mask + 1
	a, b := uint64(11), 11+stride

	for range 70 {
		tt.NewSearch()
	}
	if got := tt.age.Load(); got != 70&maxAge {
		t.Errorf("age = %d, want %d", got, 70&maxAge)
	}
	tt.Store(a, 0, board.NoMove, 1, 20, BoundExact)

	tt.NewSearch()
	tt.Store(b, 0, board.NoMove, 2, 1, BoundExact)
	if _, ok := tt.Probe(a, 0); ok {
		t.Error("deep entry of an earlier search kept its place")
	}
	if hit, ok := tt.Probe(b, 0); !ok || hit.Score != 2 {
		t.Errorf("new entry = %+v, %v", hit, ok)
	}
}

func TestTTHashFullAfterManySearches(t *testing.T) {
	tt := NewTranspositionTable(1)
	for range 100 {
		tt.NewSearch()
	}
	for i := range uint64(1000) {
		tt.Store(i, 0, board.NoMove, 0, 1, BoundExact)
	}
	if got := tt.HashFull(); got == 0 {
		t.Fatal("HashFull of the current search = 0")
	}
	tt.NewSearch()
	if got := tt.HashFull(); got != 0 {
		t.Errorf("HashFull after a new search = %d, want 0", got)
	}
}

func TestTTSizeAndHashFull(t *testing.T) {
	tt := NewTranspositionTable(2)
	if got := tt.SizeBytes(); got != 2*1024*1024 {
		t.Errorf("SizeBytes = %d, want %d", got, 2*1024*1024)
	}
	tt.NewSearch()
	if got := tt.HashFull(); got != 0 {
		t.Errorf("HashFull of empty table = %d", got)
	}
	for i := range uint64(500) {
		tt.Store(i, 0, board.NoMove, 0, 1, BoundExact)
	}
	if got := tt.HashFull(); got != 500 {
		t.Errorf("HashFull = %d, want 500", got)
	}

	tt.Resize(3)
	if got := tt.SizeBytes(); got != 2*1024*1024 {
		t.Errorf("3MB table rounded to %d bytes, want a power of two", got)
	}
}
