package board

import (
	"fmt"
	"sync"
)

// Magic indexes the sliding attack table for one square:
// index = ((occ & Mask) * Magic) >> Shift, offset by Offset.
type Magic struct {
	Mask   Bitboard
	Magic  uint64
	Shift  uint8
	Offset uint32
}

// Index returns the table slot for occupancy occ.
func (m *Magic) Index(occ Bitboard) uint32 {
	return m.Offset + uint32((uint64(occ&m.Mask)*m.Magic)>>m.Shift)
}

var (
	bishopMagics [64]Magic
	rookMagics   [64]Magic

	bishopTable [5248]Bitboard
	rookTable   [102400]Bitboard
)

var (
	tablesMu   sync.Mutex
	tablesDone bool
)

// InitTables builds the Zobrist keys, leaper tables and magic attack tables.
// It is safe to call from any goroutine; only the first call does work.
// Lookups after it returns take no locks.
func InitTables() {
	tablesMu.Lock()
	defer tablesMu.Unlock()
	if tablesDone {
		return
	}
	initZobrist()
	initLeapers()
	initSliders(&bishopMagics, bishopTable[:], &bishopMagicNumbers, bishopMask, bishopAttacksSlow, "bishop")
	initSliders(&rookMagics, rookTable[:], &rookMagicNumbers, rookMask, rookAttacksSlow, "rook")
	initBetween()
	tablesDone = true
}

// These constants map every relevant blocker set of their square to a slot
// holding the right attack set (verified again at build time below).
var bishopMagicNumbers = [64]uint64{
	0x0002020202020200, 0x0002020202020000, 0x0004010202000000, 0x0004040080000000,
	0x0001104000000000, 0x0000821040000000, 0x0000410410400000, 0x0000104104104000,
	0x0000040404040400, 0x0000020202020200, 0x0000040102020000, 0x0000040400800000,
	0x0000011040000000, 0x0000008210400000, 0x0000004104104000, 0x0000002082082000,
	0x0004000808080800, 0x0002000404040400, 0x0001000202020200, 0x0000800802004000,
	0x0000800400A00000, 0x0000200100884000, 0x0000400082082000, 0x0000200041041000,
	0x0002080010101000, 0x0001040008080800, 0x0000208004010400, 0x0000404004010200,
	0x0000840000802000, 0x0000404002011000, 0x0000808001041000, 0x0000404000820800,
	0x0001041000202000, 0x0000820800101000, 0x0000104400080800, 0x0000020080080080,
	0x0000404040040100, 0x0000808100020100, 0x0001010100020800, 0x0000808080010400,
	0x0000820820004000, 0x0000410410002000, 0x0000082088001000, 0x0000002011000800,
	0x0000080100400400, 0x0001010101000200, 0x0002020202000400, 0x0001010101000200,
	0x0000410410400000, 0x0000208208200000, 0x0000002084100000, 0x0000000020880000,
	0x0000001002020000, 0x0000040408020000, 0x0004040404040000, 0x0002020202020000,
	0x0000104104104000, 0x0000002082082000, 0x0000000020841000, 0x0000000000208800,
	0x0000000010020200, 0x0000000404080200, 0x0000040404040400, 0x0002020202020200,
}

var rookMagicNumbers = [64]uint64{
	0x0080001020400080, 0x0040001000200040, 0x0080081000200080, 0x0080040800100080,
	0x0080020400080080, 0x0080010200040080, 0x0080008001000200, 0x0080002040800100,
	0x0000800020400080, 0x0000400020005000, 0x0000801000200080, 0x0000800800100080,
	0x0000800400080080, 0x0000800200040080, 0x0000800100020080, 0x0000800040800100,
	0x0000208000400080, 0x0000404000201000, 0x0000808010002000, 0x0000808008001000,
	0x0000808004000800, 0x0000808002000400, 0x0000010100020004, 0x0000020000408104,
	0x0000208080004000, 0x0000200040005000, 0x0000100080200080, 0x0000080080100080,
	0x0000040080080080, 0x0000020080040080, 0x0000010080800200, 0x0000800080004100,
	0x0000204000800080, 0x0000200040401000, 0x0000100080802000, 0x0000080080801000,
	0x0000040080800800, 0x0000020080800400, 0x0000020001010004, 0x0000800040800100,
	0x0000204000808000, 0x0000200040008080, 0x0000100020008080, 0x0000080010008080,
	0x0000040008008080, 0x0000020004008080, 0x0000010002008080, 0x0000004081020004,
	0x0000204000800080, 0x0000200040008080, 0x0000100020008080, 0x0000080010008080,
	0x0000040008008080, 0x0000020004008080, 0x0000800100020080, 0x0000800041000080,
	0x00FFFCDDFCED714A, 0x007FFCDDFCED714A, 0x003FFFCDFFD88096, 0x0000040810002101,
	0x0001000204080011, 0x0001000204000801, 0x0001000082000401, 0x0001FFFAABFAD1A2,
}

func initSliders(magics *[64]Magic, table []Bitboard, numbers *[64]uint64,
	maskFn func(Square) Bitboard, slow func(Square, Bitboard) Bitboard, name string) {

	var offset uint32
	for sq := A1; sq <= H8; sq++ {
		mask := maskFn(sq)
		n := mask.PopCount()
		magics[sq] = Magic{
			Mask:   mask,
			Magic:  numbers[sq],
			Shift:  uint8(64 - n),
			Offset: offset,
		}

		size := 1 << n
		filled := make([]bool, size)
		// Carry-Rippler walk over every subset of mask.
		occ := Empty
		for {
			idx := magics[sq].Index(occ)
			attacks := slow(sq, occ)
			if filled[idx-offset] && table[idx] != attacks {
				panic(fmt.Sprintf("board: %s magic for %s collides", name, sq))
			}
			filled[idx-offset] = true
			table[idx] = attacks

			occ = (occ - mask) & mask
			if occ == 0 {
				break
			}
		}
		offset += uint32(size)
	}
}

// bishopMask is the diagonal blocker mask, excluding the board edge.
func bishopMask(sq Square) Bitboard {
	return bishopAttacksSlow(sq, Empty) &^ (Rank1 | Rank8 | FileA | FileH)
}

// rookMask is the orthogonal blocker mask, excluding the far squares of each ray.
func rookMask(sq Square) Bitboard {
	file := FileMask[sq.File()] &^ (Rank1 | Rank8)
	rank := RankMask[sq.Rank()] &^ (FileA | FileH)
	return (file | rank) &^ SquareBB(sq)
}

var (
	bishopDirs = [4][2]int{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
	rookDirs   = [4][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
)

// rayAttacks walks each direction until it leaves the board or hits a blocker.
func rayAttacks(sq Square, occ Bitboard, dirs *[4][2]int) Bitboard {
	var attacks Bitboard
	for _, d := range dirs {
		f, r := sq.File()+d[0], sq.Rank()+d[1]
		for f >= 0 && f <= 7 && r >= 0 && r <= 7 {
			s := NewSquare(f, r)
			attacks |= SquareBB(s)
			if occ.IsSet(s) {
				break
			}
			f += d[0]
			r += d[1]
		}
	}
	return attacks
}

func bishopAttacksSlow(sq Square, occ Bitboard) Bitboard {
	return rayAttacks(sq, occ, &bishopDirs)
}

func rookAttacksSlow(sq Square, occ Bitboard) Bitboard {
	return rayAttacks(sq, occ, &rookDirs)
}

// BishopAttacks returns the squares a bishop on sq attacks given occupancy occ.
func BishopAttacks(sq Square, occ Bitboard) Bitboard {
	return bishopTable[bishopMagics[sq].Index(occ)]
}

// RookAttacks returns the squares a rook on sq attacks given occupancy occ.
func RookAttacks(sq Square, occ Bitboard) Bitboard {
	return rookTable[rookMagics[sq].Index(occ)]
}

// QueenAttacks is the union of bishop and rook attacks.
func QueenAttacks(sq Square, occ Bitboard) Bitboard {
	return BishopAttacks(sq, occ) | RookAttacks(sq, occ)
}
