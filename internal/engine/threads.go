package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hailam/kestrel/internal/board"
)

// MaxThreads bounds SetThreadCount.
const MaxThreads = 256

// helper is a lazy SMP helper goroutine. It sleeps on cond until handed a
// search and reports back through the pool's done count.
type helper struct {
	w *Worker

	mu      sync.Mutex
	cond    *sync.Cond
	pending bool
	quit    bool

	maxDepth int
}

func (h *helper) loop() {
	h.mu.Lock()
	for {
		for !h.pending && !h.quit {
			h.cond.Wait()
		}
		if h.quit {
			h.mu.Unlock()
			return
		}
		h.pending = false
		maxDepth := h.maxDepth
		h.mu.Unlock()

		h.run(maxDepth)
		h.w.pool.helperDone()

		h.mu.Lock()
	}
}

// run searches until the pool stops it. A fatal error ends only this
// helper's search.
func (h *helper) run(maxDepth int) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Int("thread", h.w.id).Interface("error", r).Msg("helper search aborted")
		}
	}()
	h.w.iterate(maxDepth)
}

func (h *helper) wake(maxDepth int) {
	h.mu.Lock()
	h.pending = true
	h.maxDepth = maxDepth
	h.mu.Unlock()
	h.cond.Signal()
}

func (h *helper) retire() {
	h.mu.Lock()
	h.quit = true
	h.mu.Unlock()
	h.cond.Signal()
}

// ThreadPool runs lazy SMP: the main worker searches and reports while the
// helpers fill the shared transposition table. Only the main worker decides
// when to stop.
type ThreadPool struct {
	tt           *TranspositionTable
	newEvaluator func() Evaluator

	stop      atomic.Bool
	pondering atomic.Bool
	ponderHit atomic.Bool
	mainDepth atomic.Int32

	mu   sync.Mutex
	idle *sync.Cond
	busy int

	main    *Worker
	helpers []*helper

	// wakeup interrupts holdResult on Stop and PonderHit.
	wakeup chan struct{}

	tm     TimeManager
	limits Limits
	start  time.Time
	onInfo func(Info)
}

func newThreadPool(tt *TranspositionTable, newEvaluator func() Evaluator) *ThreadPool {
	p := &ThreadPool{
		tt:           tt,
		newEvaluator: newEvaluator,
		wakeup:       make(chan struct{}, 1),
	}
	p.idle = sync.NewCond(&p.mu)
	p.main = newWorker(0, p)
	return p
}

// Threads returns the total worker count, main included.
func (p *ThreadPool) Threads() int {
	return len(p.helpers) + 1
}

// SetThreadCount sets the total number of workers, clamped to
// [1, MaxThreads]. It must not be called during a search.
func (p *ThreadPool) SetThreadCount(n int) {
	n = min(max(n, 1), MaxThreads)
	for len(p.helpers) > n-1 {
		last := p.helpers[len(p.helpers)-1]
		last.retire()
		p.helpers = p.helpers[:len(p.helpers)-1]
	}
	for len(p.helpers) < n-1 {
		h := &helper{w: newWorker(len(p.helpers)+1, p)}
		h.cond = sync.NewCond(&h.mu)
		p.helpers = append(p.helpers, h)
		go h.loop()
	}
	log.Debug().Int("threads", n).Msg("thread pool resized")
}

// Close retires every helper goroutine.
func (p *ThreadPool) Close() {
	for _, h := range p.helpers {
		h.retire()
	}
	p.helpers = nil
}

// Clear drops every worker's history.
func (p *ThreadPool) Clear() {
	p.main.hist.Clear()
	for _, h := range p.helpers {
		h.w.hist.Clear()
	}
}

// Nodes sums the nodes searched by all workers.
func (p *ThreadPool) Nodes() uint64 {
	n := p.main.Nodes()
	for _, h := range p.helpers {
		n += h.w.Nodes()
	}
	return n
}

// search runs one search on the calling goroutine and returns the main
// worker's last completed iteration. begin must have been called first.
// Helpers have all gone idle again when it returns.
func (p *ThreadPool) search(root *board.Position, limits Limits, rootMoves []board.Move) (best iteration, err error) {
	p.start = time.Now()
	p.tm.Init(limits, root.SideToMove)
	p.mainDepth.Store(0)
	p.tt.NewSearch()

	maxDepth := MaxPly - 1
	if limits.Depth > 0 {
		maxDepth = min(limits.Depth, maxDepth)
	}

	p.main.prepare(root, rootMoves)
	for _, h := range p.helpers {
		h.w.prepare(root, rootMoves)
	}

	p.mu.Lock()
	p.busy = len(p.helpers)
	p.mu.Unlock()
	for _, h := range p.helpers {
		h.wake(maxDepth)
	}
	log.Debug().Int("threads", p.Threads()).Int("depth", maxDepth).
		Dur("budget", p.tm.Limit()).Msg("search started")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("search aborted: %v", r)
			log.Error().Err(err).Msg("main search aborted")
		}
		p.stop.Store(true)
		p.waitIdle()
		best = p.main.best
	}()

	p.main.iterate(maxDepth)
	p.holdResult()
	return p.main.best, nil
}

// begin resets the stop state for a new search. It runs before the search
// goroutine starts, so a stop sent right after go is not lost.
func (p *ThreadPool) begin(limits Limits) {
	p.limits = limits
	p.stop.Store(false)
	p.pondering.Store(limits.Ponder)
	p.ponderHit.Store(false)
	select {
	case <-p.wakeup:
	default:
	}
}

// waitIdle blocks until every helper has finished its search.
func (p *ThreadPool) waitIdle() {
	p.mu.Lock()
	for p.busy > 0 {
		p.idle.Wait()
	}
	p.mu.Unlock()
}

func (p *ThreadPool) helperDone() {
	p.mu.Lock()
	p.busy--
	if p.busy == 0 {
		p.idle.Broadcast()
	}
	p.mu.Unlock()
}

// holdResult keeps an infinite or pondering search from finishing until it
// is stopped or the ponder move is played.
func (p *ThreadPool) holdResult() {
	for !p.stop.Load() && (p.limits.Infinite || p.pondering.Load()) {
		<-p.wakeup
	}
}

// checkLimits runs on the main worker and raises the stop flag when time or
// the node budget runs out.
func (p *ThreadPool) checkLimits() {
	if p.ponderHit.Swap(false) {
		p.tm.Restart()
	}
	if p.pondering.Load() {
		return
	}
	if p.tm.Expired() || (p.limits.Nodes > 0 && p.Nodes() >= p.limits.Nodes) {
		p.stop.Store(true)
	}
}

// timeForAnotherIteration is asked by the main worker after each depth.
func (p *ThreadPool) timeForAnotherIteration() bool {
	p.checkLimits()
	if p.stop.Load() {
		return false
	}
	return p.pondering.Load() || !p.tm.PastHalf()
}

// Stop asks the running search to finish.
func (p *ThreadPool) Stop() {
	p.stop.Store(true)
	p.notify()
}

// PonderHit turns a ponder search into a normal timed search.
func (p *ThreadPool) PonderHit() {
	p.ponderHit.Store(true)
	p.pondering.Store(false)
	p.notify()
}

func (p *ThreadPool) notify() {
	select {
	case p.wakeup <- struct{}{}:
	default:
	}
}

// report publishes the main worker's completed iteration.
func (p *ThreadPool) report(w *Worker) {
	if p.onInfo == nil {
		return
	}
	elapsed := time.Since(p.start)
	nodes := p.Nodes()
	nps := uint64(0)
	if elapsed > 0 {
		nps = uint64(float64(nodes) / elapsed.Seconds())
	}
	p.onInfo(Info{
		Depth:    w.best.depth,
		SelDepth: w.best.selDepth,
		Score:    w.best.score,
		Nodes:    nodes,
		NPS:      nps,
		Time:     elapsed,
		HashFull: p.tt.HashFull(),
		PV:       w.best.pv,
	})
}
