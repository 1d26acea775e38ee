package engine

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/hailam/kestrel/internal/board"
)

func newTestEngine(t *testing.T, threads int) *Engine {
	t.Helper()
	e := New(Options{HashMB: 8, Threads: threads})
	t.Cleanup(e.Close)
	return e
}

func TestSearchFindsMate(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		depth int
		best  string
		mate  int
	}{
		{"back rank", "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1", 3, "a1a8", 1},
		{"queen sacrifice", "3rr2k/6pp/8/8/8/8/4Q1PP/4R1K1 w - - 0 1", 4, "e2e8", 2},
		{"mated in one", "6k1/8/8/8/8/1r6/r7/7K w - - 0 1", 4, "h1g1", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, 1)
			pos := mustPosition(t, tt.fen)
			res, err := e.Search(pos, Limits{Depth: tt.depth})
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if tt.best != "" && res.BestMove.String() != tt.best {
				t.Errorf("best move = %s, want %s", res.BestMove, tt.best)
			}
			if got, ok := MateIn(res.Score); !ok || got != tt.mate {
				t.Errorf("score %d (%s), want mate %d", res.Score, ScoreString(res.Score), tt.mate)
			}
		})
	}
}

func TestSearchWinsMaterial(t *testing.T) {
	e := newTestEngine(t, 1)
	// The queen on d5 is hanging to the knight.
	pos := mustPosition(t, "4k3/8/8/3q4/8/4N3/8/4K3 w - - 0 1")
	res, err := e.Search(pos, Limits{Depth: 4})
	if err != nil {
		t.Fatal(err)
	}
	if res.BestMove.String() != "e3d5" {
		t.Errorf("best move = %s, want e3d5", res.BestMove)
	}
	if res.Score < KnightValue {
		t.Errorf("score = %d after winning the queen", res.Score)
	}
}

func TestSearchNoMoves(t *testing.T) {
	e := newTestEngine(t, 1)
	for _, fen := range []string{
		"7k/5Q2/6K1/8/8/8/8/8 b - - 0 1",  // stalemate
		"R5k1/5ppp/8/8/8/8/8/6K1 b - - 0 1", // checkmate
	} {
		res, err := e.Search(mustPosition(t, fen), Limits{Depth: 3})
		if !errors.Is(err, ErrNoMoves) {
			t.Errorf("%s: err = %v, want ErrNoMoves", fen, err)
		}
		if res.BestMove != board.NoMove {
			t.Errorf("%s: best move = %s", fen, res.BestMove)
		}
	}
}

func TestSearchThreads(t *testing.T) {
	e := newTestEngine(t, 4)
	if got := e.Threads(); got != 4 {
		t.Fatalf("Threads = %d, want 4", got)
	}
	pos := mustPosition(t, kiwipete)
	fen := pos.Export()

	var (
		mu     sync.Mutex
		depths []int
	)
	e.OnInfo = func(info Info) {
		mu.Lock()
		depths = append(depths, info.Depth)
		mu.Unlock()
	}
	res, err := e.Search(pos, Limits{Depth: 6})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(pos.LegalMoves(), res.BestMove) {
		t.Fatalf("illegal best move %s", res.BestMove)
	}
	if res.Ponder != board.NoMove {
		child := pos.Copy()
		child.MakeMove(res.BestMove)
		if !slices.Contains(child.LegalMoves(), res.Ponder) {
			t.Errorf("ponder move %s is not legal after %s", res.Ponder, res.BestMove)
		}
	}
	if res.Depth != 6 {
		t.Errorf("depth = %d, want 6", res.Depth)
	}
	mu.Lock()
	defer mu.Unlock()
	for i, d := range depths {
		if d != i+1 {
			t.Fatalf("info depths = %v, want 1..6 in order", depths)
		}
	}

	// The searched position is a copy.
	if pos.Export() != fen {
		t.Errorf("search modified the caller's position: %s", pos.Export())
	}
}

func TestSearchMovesRestrictsRoot(t *testing.T) {
	e := newTestEngine(t, 2)
	pos := board.NewPosition()
	only := mustMove(t, pos, "a2a3")
	res, err := e.Search(pos, Limits{Depth: 4, SearchMoves: []board.Move{only}})
	if err != nil {
		t.Fatal(err)
	}
	if res.BestMove != only {
		t.Errorf("best move = %s, want %s", res.BestMove, only)
	}

	// Illegal entries are dropped; an empty filter searches everything.
	bogus := board.NewMove(board.E2, board.E5)
	res, err = e.Search(pos, Limits{Depth: 2, SearchMoves: []board.Move{bogus}})
	if err != nil {
		t.Fatal(err)
	}
	if res.BestMove == bogus || res.BestMove == board.NoMove {
		t.Errorf("best move = %s", res.BestMove)
	}
}

func TestSearchNodeLimit(t *testing.T) {
	e := newTestEngine(t, 1)
	res, err := e.Search(board.NewPosition(), Limits{Nodes: 10000})
	if err != nil {
		t.Fatal(err)
	}
	if res.BestMove == board.NoMove {
		t.Fatal("no move returned")
	}
	if res.Nodes > 10000+2*stopCheckInterval {
		t.Errorf("searched %d nodes with a limit of 10000", res.Nodes)
	}
}

func TestSearchMoveTime(t *testing.T) {
	e := newTestEngine(t, 2)
	start := time.Now()
	res, err := e.Search(board.NewPosition(), Limits{MoveTime: 200 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("200ms search took %v", elapsed)
	}
	if res.BestMove == board.NoMove {
		t.Error("no move returned")
	}
}

func TestStartSearchWhileRunning(t *testing.T) {
	e := newTestEngine(t, 2)
	results := make(chan Result, 1)
	e.OnResult = func(r Result) { results <- r }

	pos := board.NewPosition()
	if err := e.StartSearch(pos, Limits{Infinite: true}); err != nil {
		t.Fatal(err)
	}
	if err := e.StartSearch(pos, Limits{Depth: 1}); !errors.Is(err, ErrSearchRunning) {
		t.Errorf("second StartSearch: %v, want ErrSearchRunning", err)
	}
	if err := e.Clear(); !errors.Is(err, ErrSearchRunning) {
		t.Errorf("Clear during search: %v", err)
	}
	if err := e.ResizeHash(4); !errors.Is(err, ErrSearchRunning) {
		t.Errorf("ResizeHash during search: %v", err)
	}
	if !e.Searching() {
		t.Error("Searching = false during an infinite search")
	}

	time.Sleep(50 * time.Millisecond)
	select {
	case r := <-results:
		t.Fatalf("infinite search finished on its own with %s", r.BestMove)
	default:
	}

	e.Stop()
	e.Wait()
	r := <-results
	if r.BestMove == board.NoMove {
		t.Error("stopped search returned no move")
	}
	if e.Searching() {
		t.Error("Searching = true after Wait")
	}
	if err := e.Clear(); err != nil {
		t.Errorf("Clear after search: %v", err)
	}
}

func TestPonderHit(t *testing.T) {
	e := newTestEngine(t, 1)
	results := make(chan Result, 1)
	e.OnResult = func(r Result) { results <- r }

	if err := e.StartSearch(board.NewPosition(), Limits{Ponder: true, Depth: 3}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	select {
	case <-results:
		t.Fatal("ponder search reported before ponderhit")
	default:
	}

	e.PonderHit()
	select {
	case r := <-results:
		if r.BestMove == board.NoMove {
			t.Error("no move after ponderhit")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no result after ponderhit")
	}
}

func TestStopWhenIdle(t *testing.T) {
	e := newTestEngine(t, 2)
	e.Stop()
	e.Wait()
	if _, err := e.Search(board.NewPosition(), Limits{Depth: 2}); err != nil {
		t.Errorf("search after idle Stop: %v", err)
	}
}

func TestSetThreadCount(t *testing.T) {
	e := newTestEngine(t, 1)
	for _, n := range []int{8, 3, 0, MaxThreads + 10} {
		if err := e.SetThreadCount(n); err != nil {
			t.Fatal(err)
		}
		want := min(max(n, 1), MaxThreads)
		if got := e.Threads(); got != want {
			t.Errorf("SetThreadCount(%d): Threads = %d, want %d", n, got, want)
		}
	}
	if err := e.SetThreadCount(3); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Search(board.NewPosition(), Limits{Depth: 3}); err != nil {
		t.Errorf("search after resize: %v", err)
	}
}

func TestScoreString(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, "cp 0"},
		{-135, "cp -135"},
		{MateScore - 1, "mate 1"},
		{MateScore - 3, "mate 2"},
		{-MateScore + 2, "mate -1"},
		{-MateScore + 4, "mate -2"},
	}
	for _, tt := range tests {
		if got := ScoreString(tt.score); got != tt.want {
			t.Errorf("ScoreString(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestEvaluateSymmetry(t *testing.T) {
	e := newTestEngine(t, 1)
	tests := []struct {
		white, black string
	}{
		{board.StartFEN, board.StartFEN},
		{
			"r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3",
			"rnbqkb1r/pppp1ppp/5n2/4p3/4P3/2N5/PPPP1PPP/R1BQKBNR b KQkq - 2 3",
		},
	}
	for _, tt := range tests {
		w := e.Evaluate(mustPosition(t, tt.white))
		b := e.Evaluate(mustPosition(t, tt.black))
		if w != b {
			t.Errorf("mirrored positions evaluate %d and %d", w, b)
		}
	}

	up := e.Evaluate(mustPosition(t, "4k3/8/8/8/8/8/8/Q3K3 w - - 0 1"))
	down := e.Evaluate(mustPosition(t, "4k3/8/8/8/8/8/8/Q3K3 b - - 0 1"))
	if up <= 0 || down >= 0 {
		t.Errorf("queen up evaluates %d for the owner and %d for the opponent", up, down)
	}
}

func TestTimeManager(t *testing.T) {
	tests := []struct {
		name   string
		limits Limits
		side   board.Color
		want   time.Duration
	}{
		{"untimed", Limits{Depth: 5}, board.White, 0},
		{"infinite", Limits{Infinite: true, MoveTime: time.Second}, board.White, 0},
		{"movetime", Limits{MoveTime: time.Second}, board.White, 950 * time.Millisecond},
		{"sudden death", Limits{Time: [2]time.Duration{60 * time.Second, time.Second}}, board.White, 2*time.Second - 50*time.Millisecond},
		{"increment", Limits{Time: [2]time.Duration{0, 30 * time.Second}, Inc: [2]time.Duration{0, time.Second}, MovesToGo: 10}, board.Black, 4*time.Second - 50*time.Millisecond},
		{"capped by clock", Limits{Time: [2]time.Duration{time.Second, 0}, Inc: [2]time.Duration{5 * time.Second, 0}}, board.White, 950 * time.Millisecond},
		{"nearly flagged", Limits{Time: [2]time.Duration{20 * time.Millisecond, 0}}, board.White, minThinkTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tm TimeManager
			tm.Init(tt.limits, tt.side)
			if got := tm.Limit(); got != tt.want {
				t.Errorf("Limit = %v, want %v", got, tt.want)
			}
			if tt.want >= 100*time.Millisecond && tm.Expired() {
				t.Error("expired immediately")
			}
		})
	}
}

func TestCallbacksCapturedAtStart(t *testing.T) {
	e := newTestEngine(t, 1)
	var first, second int
	e.OnResult = func(Result) { first++ }
	if err := e.StartSearch(board.NewPosition(), Limits{Depth: 4}); err != nil {
		t.Fatal(err)
	}
	e.OnResult = func(Result) { second++ }
	e.Wait()

	if first != 1 || second != 0 {
		t.Errorf("results delivered to first=%d second=%d, want 1 and 0", first, second)
	}
}
