package engine

import (
	"sync/atomic"

	"github.com/hailam/kestrel/internal/board"
)

// Bound tells how a stored score relates to the true value.
type Bound uint8

const (
	BoundNone  Bound = iota
	BoundUpper       // failed low
	BoundLower       // failed high
	BoundExact
)

const maxAge = 63

// ttEntry is two atomically accessed words. data packs
//
//	bits 0-15  move
//	bits 16-31 score (int16)
//	bits 32-39 depth
//	bits 40-41 bound
//	bits 42-47 age
//
// and check holds key^data, so a pair torn by a concurrent write fails
// validation and reads as a miss.
type ttEntry struct {
	check atomic.Uint64
	data  atomic.Uint64
}

type ttSlot [2]ttEntry

const slotSize = 32

// TTHit is a decoded table entry.
type TTHit struct {
	Move  board.Move
	Score int
	Depth int
	Bound Bound
}

func packEntry(move board.Move, score, depth int, bound Bound, age uint8) uint64 {
	return uint64(move) |
		uint64(uint16(int16(score)))<<16 |
		uint64(uint8(depth))<<32 |
		uint64(bound&3)<<40 |
		uint64(age&maxAge)<<42
}

func unpackDepth(data uint64) int { return int(uint8(data >> 32)) }
func unpackAge(data uint64) uint8 { return uint8(data>>42) & maxAge }

func unpackEntry(data uint64) TTHit {
	return TTHit{
		Move:  board.Move(data),
		Score: int(int16(data >> 16)),
		Depth: unpackDepth(data),
		Bound: Bound(data>>40) & 3,
	}
}

// TranspositionTable is shared by all workers without locks.
type TranspositionTable struct {
	slots []ttSlot
	mask  uint64
	age   atomic.Uint32
}

// NewTranspositionTable creates a table of at most sizeMB megabytes.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	tt := &TranspositionTable{}
	tt.Resize(sizeMB)
	return tt
}

// Resize reallocates the table, dropping all entries. It must not run
// concurrently with a search.
func (tt *TranspositionTable) Resize(sizeMB int) {
	n := roundDownToPowerOf2(uint64(max(sizeMB, 1)) * 1024 * 1024 / slotSize)
	tt.slots = make([]ttSlot, n)
	tt.mask = n - 1
	tt.age.Store(0)
}

// roundDownToPowerOf2 rounds n down to the nearest power of 2.
func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Clear empties the table and resets its age.
func (tt *TranspositionTable) Clear() {
	for i := range tt.slots {
		for j := range tt.slots[i] {
			tt.slots[i][j].check.Store(0)
			tt.slots[i][j].data.Store(0)
		}
	}
	tt.age.Store(0)
}

// NewSearch advances the age. It wraps after 63 searches; ages are only
// ever compared for equality.
func (tt *TranspositionTable) NewSearch() {
	tt.age.Store((tt.age.Load() + 1) & maxAge)
}

// Probe looks up key. Mate scores come back relative to ply.
func (tt *TranspositionTable) Probe(key uint64, ply int) (TTHit, bool) {
	slot := &tt.slots[key&tt.mask]
	for i := range slot {
		data := slot[i].data.Load()
		if slot[i].check.Load()^data != key {
			continue
		}
		hit := unpackEntry(data)
		if hit.Bound == BoundNone {
			continue
		}
		hit.Score = scoreFromTT(hit.Score, ply)
		return hit, true
	}
	return TTHit{}, false
}

// Store writes an entry. The first entry of the slot is replaced when the
// new depth is at least its depth minus one or it is from an older search;
// otherwise the second entry is.
func (tt *TranspositionTable) Store(key uint64, ply int, move board.Move, score, depth int, bound Bound) {
	age := uint8(tt.age.Load())

	slot := &tt.slots[key&tt.mask]
	old := slot[0].data.Load()
	e := &slot[1]
	if depth >= unpackDepth(old)-1 || age != unpackAge(old) {
		e = &slot[0]
	}
	// Keep the known best move when refreshing the same position without one.
	if move == board.NoMove {
		if prev := e.data.Load(); e.check.Load()^prev == key {
			move = board.Move(prev)
		}
	}

	data := packEntry(move, scoreToTT(score, ply), max(depth, 0), bound, age)
	e.data.Store(data)
	e.check.Store(key ^ data)
}

// HashFull returns the permille of sampled entries written during the
// current search.
func (tt *TranspositionTable) HashFull() int {
	age := uint8(tt.age.Load())
	sampled, used := 0, 0
	for i := 0; i < len(tt.slots) && sampled < 1000; i++ {
		for j := range tt.slots[i] {
			data := tt.slots[i][j].data.Load()
			if Bound(data>>40)&3 != BoundNone && unpackAge(data) == age {
				used++
			}
			sampled++
		}
	}
	if sampled == 0 {
		return 0
	}
	return used * 1000 / sampled
}

// SizeBytes returns the memory held by the table.
func (tt *TranspositionTable) SizeBytes() uint64 {
	return uint64(len(tt.slots)) * slotSize
}

// scoreToTT makes mate scores relative to the node being stored.
func scoreToTT(score, ply int) int {
	if score >= mateBound {
		return score + ply
	}
	if score <= -mateBound {
		return score - ply
	}
	return score
}

// scoreFromTT converts a stored mate score back to root-relative.
func scoreFromTT(score, ply int) int {
	if score >= mateBound {
		return score - ply
	}
	if score <= -mateBound {
		return score + ply
	}
	return score
}
