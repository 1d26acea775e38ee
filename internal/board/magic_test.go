package board

import (
	"math/rand/v2"
	"sync"
	"testing"
)

func TestSliderAttacksMatchRayWalk(t *testing.T) {
	InitTables()
	rng := rand.New(rand.NewPCG(1, 2))
	for sq := A1; sq <= H8; sq++ {
		for i := 0; i < 200; i++ {
			// Sparse boards hit more distinct blocker patterns.
			occ := Bitboard(rng.Uint64() & rng.Uint64() & rng.Uint64())
			if got, want := BishopAttacks(sq, occ), bishopAttacksSlow(sq, occ); got != want {
				t.Fatalf("bishop %s occ %016X: got\n%s\nwant\n%s", sq, uint64(occ), got, want)
			}
			if got, want := RookAttacks(sq, occ), rookAttacksSlow(sq, occ); got != want {
				t.Fatalf("rook %s occ %016X: got\n%s\nwant\n%s", sq, uint64(occ), got, want)
			}
		}
	}
}

func TestLeaperAttacks(t *testing.T) {
	InitTables()
	tests := []struct {
		name string
		got  Bitboard
		want int
	}{
		{"knight a1", KnightAttacks(A1), 2},
		{"knight d4", KnightAttacks(D4), 8},
		{"knight h8", KnightAttacks(H8), 2},
		{"king a1", KingAttacks(A1), 3},
		{"king e4", KingAttacks(E4), 8},
		{"white pawn a2", PawnAttacks(A2, White), 1},
		{"black pawn e7", PawnAttacks(E7, Black), 2},
		{"white pawn h8", PawnAttacks(H8, White), 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if n := tc.got.PopCount(); n != tc.want {
				t.Errorf("%d squares attacked, want %d\n%s", n, tc.want, tc.got)
			}
		})
	}
}

func TestBetween(t *testing.T) {
	InitTables()
	tests := []struct {
		a, b Square
		want Bitboard
	}{
		{A1, H8, SquareBB(B2) | SquareBB(C3) | SquareBB(D4) | SquareBB(E5) | SquareBB(F6) | SquareBB(G7)},
		{E1, E4, SquareBB(E2) | SquareBB(E3)},
		{A1, B3, Empty},
		{D4, E4, Empty},
	}
	for _, tc := range tests {
		if got := Between(tc.a, tc.b); got != tc.want {
			t.Errorf("Between(%s, %s) =\n%s\nwant\n%s", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestInitTablesConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			InitTables()
			if RookAttacks(A1, Empty).PopCount() != 14 {
				t.Error("rook table not ready after InitTables")
			}
		}()
	}
	wg.Wait()
}

func TestAllAttackersTo(t *testing.T) {
	p, err := ParseFEN("3rk3/8/8/3p4/2P5/8/3Q4/3RK3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		occ  Bitboard
		want Bitboard
	}{
		{"full board", p.AllOccupied, SquareBB(C4) | SquareBB(D2) | SquareBB(D8)},
		{"queen gone", p.AllOccupied &^ SquareBB(D2), SquareBB(C4) | SquareBB(D1) | SquareBB(D2) | SquareBB(D8)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.AllAttackersTo(D5, tc.occ); got != tc.want {
				t.Errorf("AllAttackersTo(d5) =\n%s\nwant\n%s", got, tc.want)
			}
		})
	}
}
