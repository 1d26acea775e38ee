// Package perft counts the leaf nodes of the legal move tree. It is the
// standard correctness check for move generation and make/undo.
package perft

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"slices"
	"time"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hailam/kestrel/internal/board"
)

// ErrMismatch is returned by RunSuite when a count differs from the
// expected value.
var ErrMismatch = errors.New("perft mismatch")

// Count returns the number of leaf nodes depth plies below pos.
func Count(pos *board.Position, depth int) (uint64, error) {
	if depth <= 0 {
		return 1, nil
	}

	var ml board.MoveList
	if err := pos.Generate(board.GenAll, &ml); err != nil {
		return 0, err
	}

	var nodes uint64
	for _, m := range ml.Slice() {
		if !pos.MakeMove(m) {
			continue
		}
		if depth == 1 {
			nodes++
		} else {
			n, err := Count(pos, depth-1)
			if err != nil {
				_ = pos.UndoMove()
				return 0, err
			}
			nodes += n
		}
		if err := pos.UndoMove(); err != nil {
			return 0, err
		}
	}
	return nodes, nil
}

// Entry is the subtree size below one root move.
type Entry struct {
	Move  board.Move
	Nodes uint64
}

// Divide splits the count by root move, sorted in move text order.
func Divide(pos *board.Position, depth int) ([]Entry, uint64, error) {
	return Parallel(context.Background(), pos, depth, 1)
}

// Parallel is Divide with the root moves spread over workers goroutines.
// workers <= 0 uses GOMAXPROCS.
func Parallel(ctx context.Context, pos *board.Position, depth, workers int) ([]Entry, uint64, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if depth <= 0 {
		return nil, 1, nil
	}

	moves := pos.LegalMoves()
	entries := make([]Entry, len(moves))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, m := range moves {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			child := pos.Copy()
			if !child.MakeMove(m) {
				return fmt.Errorf("legal move %s rejected", m)
			}
			n, err := Count(child, depth-1)
			if err != nil {
				return fmt.Errorf("%s: %w", m, err)
			}
			entries[i] = Entry{Move: m, Nodes: n}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return cmp.Compare(a.Move.String(), b.Move.String())
	})
	var total uint64
	for _, e := range entries {
		total += e.Nodes
	}
	return entries, total, nil
}

// Report is the outcome of one timed perft run.
type Report struct {
	Depth   int
	Nodes   uint64
	Elapsed time.Duration
	Divide  []Entry
}

// Run times a parallel divide of pos.
func Run(ctx context.Context, pos *board.Position, depth, workers int) (Report, error) {
	start := time.Now()
	entries, nodes, err := Parallel(ctx, pos, depth, workers)
	if err != nil {
		return Report{}, err
	}
	return Report{Depth: depth, Nodes: nodes, Elapsed: time.Since(start), Divide: entries}, nil
}

// NPS returns the nodes per second of the run.
func (r Report) NPS() uint64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return uint64(float64(r.Nodes) / r.Elapsed.Seconds())
}

// Write prints the divide lines followed by the totals.
func (r Report) Write(w io.Writer) {
	p := message.NewPrinter(language.English)
	for _, e := range r.Divide {
		p.Fprintf(w, "%s: %d\n", e.Move, e.Nodes)
	}
	p.Fprintf(w, "\nd=%d nodes=%d rate=%dn/s (%.3fs elapsed)\n",
		r.Depth, r.Nodes, r.NPS(), r.Elapsed.Seconds())
}

// Case is a position with a known perft count.
type Case struct {
	Name  string
	FEN   string
	Depth int
	Nodes uint64
}

// Suite holds well known positions covering castling, en passant, pins and
// promotions.
var Suite = []Case{
	{"startpos", board.StartFEN, 5, 4865609},
	{"kiwipete", "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1", 4, 4085603},
	{"position3", "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1", 5, 674624},
	{"position4", "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1", 4, 422333},
	{"position5", "rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8", 4, 2103487},
	{"ep-pin", "8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1", 2, 94},
	{"promotions", "n1n5/PPPk4/8/8/8/8/4Kppp/5N1N b - - 0 1", 4, 182838},
}

// RunSuite runs every case and prints one OK or FAIL line each. It returns
// ErrMismatch if any count is wrong.
func RunSuite(ctx context.Context, w io.Writer, cases []Case, workers int) error {
	ok := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed, color.Bold).SprintFunc()
	p := message.NewPrinter(language.English)

	failed := 0
	for _, c := range cases {
		pos, err := board.ParseFEN(c.FEN)
		if err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
		r, err := Run(ctx, pos, c.Depth, workers)
		if err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
		status := ok("OK")
		if r.Nodes != c.Nodes {
			status = fail("FAIL")
			failed++
		}
		p.Fprintf(w, "%-4s %-12s d=%d nodes=%d want=%d rate=%dn/s\n",
			status, c.Name, c.Depth, r.Nodes, c.Nodes, r.NPS())
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d positions", ErrMismatch, failed, len(cases))
	}
	return nil
}
