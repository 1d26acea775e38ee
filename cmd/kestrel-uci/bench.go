package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hailam/kestrel/internal/board"
	"github.com/hailam/kestrel/internal/engine"
)

var benchPositions = []string{
	board.StartFEN,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
	"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10",
	"r1bq1rk1/pp2bppp/2n1pn2/3p4/2PP4/2N1PN2/PP2BPPP/R2QKB1R w KQ - 0 8",
	"6k1/5ppp/8/8/8/8/5PPP/3R2K1 w - - 0 1",
}

type benchResult struct {
	fen     string
	best    board.Move
	score   int
	nodes   uint64
	elapsed time.Duration
}

// runBench searches every bench position to depth, several positions at a
// time, each with its own single threaded engine.
func runBench(ctx context.Context, w io.Writer, depth, workers int) error {
	results := make([]benchResult, len(benchPositions))
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(min(workers, runtime.GOMAXPROCS(0)))
	for i, fen := range benchPositions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pos, err := board.ParseFEN(fen)
			if err != nil {
				return fmt.Errorf("bench position %d: %w", i+1, err)
			}
			eng := engine.New(engine.Options{HashMB: 16, Threads: 1})
			defer eng.Close()

			t := time.Now()
			res, err := eng.Search(pos, engine.Limits{Depth: depth})
			if err != nil {
				return fmt.Errorf("bench position %d: %w", i+1, err)
			}
			results[i] = benchResult{fen: fen, best: res.BestMove, score: res.Score, nodes: res.Nodes, elapsed: time.Since(t)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	p := message.NewPrinter(language.English)
	var total uint64
	for i, r := range results {
		total += r.nodes
		p.Fprintf(w, "%2d %-6s %-10s nodes=%d (%.2fs) %s\n",
			i+1, r.best, engine.ScoreString(r.score), r.nodes, r.elapsed.Seconds(), r.fen)
	}
	nps := uint64(0)
	if elapsed > 0 {
		nps = uint64(float64(total) / elapsed.Seconds())
	}
	fmt.Fprintf(w, "\n%s nodes %s nps (%s)\n", humanize.Comma(int64(total)), humanize.Comma(int64(nps)), elapsed.Round(time.Millisecond))
	return nil
}
