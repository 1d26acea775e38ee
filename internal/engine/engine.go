package engine

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hailam/kestrel/internal/board"
)

// Info is reported after every completed depth of the main worker.
type Info struct {
	Depth    int
	SelDepth int
	Score    int // centipawns from the side to move, or a mate score
	Nodes    uint64
	NPS      uint64
	Time     time.Duration
	HashFull int // permille of hash table used
	PV       []board.Move
}

// Result is the final outcome of a search.
type Result struct {
	BestMove board.Move
	Ponder   board.Move
	Depth    int
	Score    int
	Nodes    uint64
	// Err is set when the search was cut short by a fatal error. BestMove
	// still holds the best move of the last completed depth.
	Err error
}

// Options configures a new engine.
type Options struct {
	HashMB  int
	Threads int
	// NewEvaluator builds one evaluator per worker. Defaults to NewPSTEvaluator.
	NewEvaluator func() Evaluator
}

// Engine owns the transposition table and thread pool and runs one search
// at a time in the background.
type Engine struct {
	tt   *TranspositionTable
	pool *ThreadPool
	eval Evaluator

	// Callbacks, invoked from the search goroutine. StartSearch captures
	// them, so they may be replaced while a search runs.
	OnInfo   func(Info)
	OnResult func(Result)

	mu        sync.Mutex
	searching bool
	done      chan struct{}
}

// New creates an engine.
func New(opts Options) *Engine {
	if opts.HashMB <= 0 {
		opts.HashMB = 16
	}
	if opts.NewEvaluator == nil {
		opts.NewEvaluator = NewPSTEvaluator
	}
	board.InitTables()

	tt := NewTranspositionTable(opts.HashMB)
	e := &Engine{
		tt:   tt,
		pool: newThreadPool(tt, opts.NewEvaluator),
		eval: opts.NewEvaluator(),
	}
	e.pool.SetThreadCount(opts.Threads)
	return e
}

// StartSearch begins searching a copy of pos in the background. The result
// is delivered through OnResult; with Infinite or Ponder it is withheld
// until Stop or PonderHit.
func (e *Engine) StartSearch(pos *board.Position, limits Limits) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.searching {
		return ErrSearchRunning
	}

	root := pos.Copy()
	legal := root.LegalMoves()
	var rootMoves []board.Move
	for _, m := range limits.SearchMoves {
		if slices.Contains(legal, m) {
			rootMoves = append(rootMoves, m)
		}
	}
	if len(rootMoves) == 0 {
		rootMoves = nil
	}

	e.searching = true
	e.done = make(chan struct{})
	e.pool.onInfo = e.OnInfo
	e.pool.begin(limits)
	go e.run(root, limits, rootMoves, legal, e.OnResult, e.done)
	return nil
}

func (e *Engine) run(root *board.Position, limits Limits, rootMoves, legal []board.Move, onResult func(Result), done chan struct{}) {
	var res Result
	if len(legal) == 0 {
		// Nothing to search; still honour the ponder/infinite hold.
		e.pool.holdResult()
		res.Err = ErrNoMoves
	} else {
		best, err := e.pool.search(root, limits, rootMoves)
		res = Result{Depth: best.depth, Score: best.score, Nodes: e.pool.Nodes(), Err: err}
		if len(best.pv) > 0 {
			res.BestMove = best.pv[0]
		}
		if len(best.pv) > 1 {
			res.Ponder = best.pv[1]
		}
		if res.BestMove == board.NoMove {
			res.BestMove = fallbackMove(legal, rootMoves)
		}
	}
	log.Debug().Stringer("bestmove", res.BestMove).Int("depth", res.Depth).
		Uint64("nodes", res.Nodes).Msg("search finished")

	e.mu.Lock()
	e.searching = false
	e.mu.Unlock()

	if onResult != nil {
		onResult(res)
	}
	close(done)
}

// fallbackMove picks a move when the search was stopped before finishing
// its first root move.
func fallbackMove(legal, rootMoves []board.Move) board.Move {
	if len(rootMoves) > 0 {
		return rootMoves[0]
	}
	return legal[0]
}

// Search runs a search to completion and returns its result.
func (e *Engine) Search(pos *board.Position, limits Limits) (Result, error) {
	var res Result
	onResult := e.OnResult
	e.OnResult = func(r Result) {
		res = r
		if onResult != nil {
			onResult(r)
		}
	}
	defer func() { e.OnResult = onResult }()

	if err := e.StartSearch(pos, limits); err != nil {
		return Result{}, err
	}
	e.Wait()
	return res, res.Err
}

// Wait blocks until the current search, if any, has delivered its result.
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Searching reports whether a search is in progress.
func (e *Engine) Searching() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.searching
}

// Stop ends the current search. It is a no-op when idle.
func (e *Engine) Stop() {
	e.pool.Stop()
}

// PonderHit tells a pondering search that the expected move was played.
func (e *Engine) PonderHit() {
	e.pool.PonderHit()
}

// SetThreadCount sets the number of search threads.
func (e *Engine) SetThreadCount(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.searching {
		return ErrSearchRunning
	}
	e.pool.SetThreadCount(n)
	return nil
}

// Threads returns the number of search threads.
func (e *Engine) Threads() int {
	return e.pool.Threads()
}

// ResizeHash reallocates the transposition table.
func (e *Engine) ResizeHash(mb int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.searching {
		return fmt.Errorf("resize hash: %w", ErrSearchRunning)
	}
	e.tt.Resize(mb)
	log.Debug().Int("mb", mb).Uint64("bytes", e.tt.SizeBytes()).Msg("hash resized")
	return nil
}

// Clear empties the transposition table and the move ordering history,
// as for a new game.
func (e *Engine) Clear() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.searching {
		return fmt.Errorf("clear: %w", ErrSearchRunning)
	}
	e.tt.Clear()
	e.pool.Clear()
	return nil
}

// Close stops any search and retires the helper goroutines.
func (e *Engine) Close() {
	e.Stop()
	e.Wait()
	e.pool.Close()
}

// Evaluate returns the static evaluation of pos for the side to move.
func (e *Engine) Evaluate(pos *board.Position) int {
	return e.eval.Evaluate(pos)
}

// HashFull returns the permille of the table used by the current search.
func (e *Engine) HashFull() int {
	return e.tt.HashFull()
}

// HashSizeBytes returns the transposition table size.
func (e *Engine) HashSizeBytes() uint64 {
	return e.tt.SizeBytes()
}

// ScoreString formats a score the way UCI expects: "cp N" or "mate N".
func ScoreString(score int) string {
	if moves, ok := MateIn(score); ok {
		return fmt.Sprintf("mate %d", moves)
	}
	return fmt.Sprintf("cp %d", score)
}
