// Package uci implements the Universal Chess Interface front-end.
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/hailam/kestrel/internal/board"
	"github.com/hailam/kestrel/internal/engine"
	"github.com/hailam/kestrel/internal/perft"
	"github.com/hailam/kestrel/internal/storage"
)

// Option limits
const (
	minHash    = 1
	maxHash    = 4096
	maxPerft   = 10
	reserveGap = engine.MaxPly + 1
)

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	store    *storage.Storage
	opts     *storage.Options
	position *board.Position

	mu  sync.Mutex
	out io.Writer
}

// New creates a UCI handler. store may be nil, in which case options and
// analysis are not persisted.
func New(eng *engine.Engine, store *storage.Storage, opts *storage.Options) *UCI {
	if opts == nil {
		opts = storage.DefaultOptions()
	}
	return &UCI{
		engine:   eng,
		store:    store,
		opts:     opts,
		position: board.NewPosition(),
	}
}

// Run reads commands from r until "quit" or end of input, writing replies to
// w. Any running search is stopped before it returns.
func (u *UCI) Run(r io.Reader, w io.Writer) error {
	u.out = w
	defer func() {
		u.engine.Stop()
		u.engine.Wait()
	}()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		log.Debug().Str("cmd", line).Msg("uci")

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			u.send("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "ponderhit":
			u.engine.PonderHit()
		case "quit":
			return nil
		case "setoption":
			u.handleSetOption(args)
		// Debug commands
		case "d":
			u.handleDisplay()
		case "perft":
			u.handlePerft(args)
		case "eval":
			u.send("info string eval %s", engine.ScoreString(u.engine.Evaluate(u.position)))
		case "analysis":
			u.handleAnalysis()
		default:
			u.send("info string unknown command: %s", cmd)
		}
	}
	return scanner.Err()
}

// send writes one protocol line. Search callbacks write from another
// goroutine, so output is serialised.
func (u *UCI) send(format string, args ...any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintf(u.out, format+"\n", args...)
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	u.send("id name Kestrel")
	u.send("id author the Kestrel developers")
	u.send("")
	u.send("option name Hash type spin default %d min %d max %d", u.opts.HashMB, minHash, maxHash)
	u.send("option name Threads type spin default %d min 1 max %d", u.opts.Threads, engine.MaxThreads)
	u.send("option name Clear Hash type button")
	u.send("option name Ponder type check default %t", u.opts.Ponder)
	u.send("option name PersistAnalysis type check default %t", u.opts.PersistAnalysis)
	u.send("uciok")
}

// handleNewGame resets the engine for a new game.
func (u *UCI) handleNewGame() {
	u.handleStop()
	if err := u.engine.Clear(); err != nil {
		u.send("info string %v", err)
	}
	u.position = board.NewPosition()
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
//
// The current position is left untouched if anything fails to parse.
func (u *UCI) handlePosition(args []string) {
	pos, err := parsePosition(args)
	if err != nil {
		u.send("info string %v", err)
		return
	}
	u.position = pos
}

func parsePosition(args []string) (*board.Position, error) {
	if len(args) == 0 {
		return nil, errors.New("position: missing startpos or fen")
	}

	moveStart := len(args)
	for i, arg := range args {
		if arg == "moves" {
			moveStart = i
			break
		}
	}

	var pos *board.Position
	switch args[0] {
	case "startpos":
		pos = board.NewPosition()
	case "fen":
		var err error
		pos, err = board.ParseFEN(strings.Join(args[1:moveStart], " "))
		if err != nil {
			return nil, fmt.Errorf("position: %w", err)
		}
	default:
		return nil, fmt.Errorf("position: unknown keyword %q", args[0])
	}

	if moveStart >= len(args) {
		return pos, nil
	}
	for _, s := range args[moveStart+1:] {
		// Very long games would overflow the undo stack during search.
		// Restart the history from the current position; repetitions of
		// earlier positions are lost.
		if pos.HistoryLen() >= board.MaxGameLength-reserveGap {
			fresh, err := board.ParseFEN(pos.Export())
			if err != nil {
				return nil, err
			}
			pos = fresh
		}
		m, err := board.ParseMove(s, pos)
		if err != nil {
			return nil, fmt.Errorf("position: %w", err)
		}
		pos.MakeMove(m)
	}
	return pos, nil
}

// GoOptions holds parsed "go" command options.
type GoOptions struct {
	Depth       int
	Nodes       uint64
	MoveTime    time.Duration
	Infinite    bool
	Ponder      bool
	WTime       time.Duration
	BTime       time.Duration
	WInc        time.Duration
	BInc        time.Duration
	MovesToGo   int
	SearchMoves []string
}

var goKeywords = map[string]bool{
	"searchmoves": true, "ponder": true, "wtime": true, "btime": true,
	"winc": true, "binc": true, "movestogo": true, "depth": true,
	"nodes": true, "mate": true, "movetime": true, "infinite": true,
}

// parseGoOptions parses "go" command arguments.
func parseGoOptions(args []string) GoOptions {
	opts := GoOptions{}

	millis := func(i int) time.Duration {
		ms, _ := strconv.Atoi(args[i])
		return time.Duration(max(ms, 0)) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		hasValue := i+1 < len(args)
		switch args[i] {
		case "depth":
			if hasValue {
				opts.Depth, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "nodes":
			if hasValue {
				opts.Nodes, _ = strconv.ParseUint(args[i+1], 10, 64)
				i++
			}
		case "movetime":
			if hasValue {
				opts.MoveTime = millis(i + 1)
				i++
			}
		case "infinite":
			opts.Infinite = true
		case "ponder":
			opts.Ponder = true
		case "wtime":
			if hasValue {
				opts.WTime = millis(i + 1)
				i++
			}
		case "btime":
			if hasValue {
				opts.BTime = millis(i + 1)
				i++
			}
		case "winc":
			if hasValue {
				opts.WInc = millis(i + 1)
				i++
			}
		case "binc":
			if hasValue {
				opts.BInc = millis(i + 1)
				i++
			}
		case "movestogo":
			if hasValue {
				opts.MovesToGo, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "searchmoves":
			for i+1 < len(args) && !goKeywords[args[i+1]] {
				opts.SearchMoves = append(opts.SearchMoves, args[i+1])
				i++
			}
		}
	}

	return opts
}

// limits converts GoOptions to engine limits for pos. Unknown search moves
// are dropped.
func (opts GoOptions) limits(pos *board.Position) engine.Limits {
	limits := engine.Limits{
		Time:      [2]time.Duration{board.White: opts.WTime, board.Black: opts.BTime},
		Inc:       [2]time.Duration{board.White: opts.WInc, board.Black: opts.BInc},
		MovesToGo: opts.MovesToGo,
		MoveTime:  opts.MoveTime,
		Depth:     opts.Depth,
		Nodes:     opts.Nodes,
		Infinite:  opts.Infinite,
		Ponder:    opts.Ponder,
	}
	for _, s := range opts.SearchMoves {
		if m, err := board.ParseMove(s, pos); err == nil {
			limits.SearchMoves = append(limits.SearchMoves, m)
		}
	}
	return limits
}

// handleGo starts a search with the given parameters.
func (u *UCI) handleGo(args []string) {
	if u.engine.Searching() {
		u.send("info string %v", engine.ErrSearchRunning)
		return
	}
	opts := parseGoOptions(args)
	root := u.position.Copy()
	limits := opts.limits(root)

	u.engine.OnInfo = func(info engine.Info) {
		u.sendInfo(root, info)
	}
	u.engine.OnResult = func(res engine.Result) {
		u.sendResult(root, res)
	}

	if err := u.engine.StartSearch(root, limits); err != nil {
		u.send("info string %v", err)
	}
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(root *board.Position, info engine.Info) {
	parts := []string{
		fmt.Sprintf("depth %d", info.Depth),
		fmt.Sprintf("seldepth %d", info.SelDepth),
		"score " + engine.ScoreString(info.Score),
		fmt.Sprintf("nodes %d", info.Nodes),
		fmt.Sprintf("nps %d", info.NPS),
		fmt.Sprintf("time %d", info.Time.Milliseconds()),
		fmt.Sprintf("hashfull %d", info.HashFull),
	}

	// PV - validate moves to prevent outputting illegal sequences
	if pv := validPV(root, info.PV); len(pv) > 0 {
		parts = append(parts, "pv "+strings.Join(pv, " "))
	}

	u.send("info %s", strings.Join(parts, " "))
}

// validPV returns the longest legal prefix of pv in move text.
func validPV(root *board.Position, pv []board.Move) []string {
	pos, err := board.ParseFEN(root.Export())
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(pv))
	for _, m := range pv {
		if !pos.IsPseudoLegal(m) || !pos.MakeMove(m) {
			break
		}
		out = append(out, m.String())
	}
	return out
}

// sendResult prints bestmove and records the analysis when enabled.
func (u *UCI) sendResult(root *board.Position, res engine.Result) {
	if res.Err != nil && !errors.Is(res.Err, engine.ErrNoMoves) {
		u.send("info string search error: %v", res.Err)
	}
	if res.Ponder != board.NoMove {
		u.send("bestmove %s ponder %s", res.BestMove, res.Ponder)
	} else {
		u.send("bestmove %s", res.BestMove)
	}

	if u.store == nil || !u.opts.PersistAnalysis || res.Err != nil || res.BestMove == board.NoMove {
		return
	}
	a := storage.Analysis{
		FEN:      root.Export(),
		BestMove: res.BestMove.String(),
		Score:    res.Score,
		Depth:    res.Depth,
		Nodes:    res.Nodes,
	}
	if res.Ponder != board.NoMove {
		a.Ponder = res.Ponder.String()
	}
	if _, err := u.store.SaveAnalysis(a); err != nil {
		log.Warn().Err(err).Msg("saving analysis failed")
	}
}

// handleStop stops the current search and waits for its bestmove.
func (u *UCI) handleStop() {
	u.engine.Stop()
	u.engine.Wait()
}

// handleSetOption processes "setoption" commands.
func (u *UCI) handleSetOption(args []string) {
	// Format: setoption name <name> value <value>
	var name, value string
	readingName := false
	readingValue := false

	for _, arg := range args {
		switch arg {
		case "name":
			readingName = true
			readingValue = false
		case "value":
			readingName = false
			readingValue = true
		default:
			if readingName {
				if name != "" {
					name += " "
				}
				name += arg
			} else if readingValue {
				if value != "" {
					value += " "
				}
				value += arg
			}
		}
	}

	if err := u.setOption(strings.ToLower(name), value); err != nil {
		u.send("info string setoption %s: %v", name, err)
		return
	}
	u.saveOptions()
}

func (u *UCI) setOption(name, value string) error {
	switch name {
	case "hash":
		mb, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		mb = min(max(mb, minHash), maxHash)
		if err := u.engine.ResizeHash(mb); err != nil {
			return err
		}
		u.opts.HashMB = mb
	case "threads":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		if err := u.engine.SetThreadCount(n); err != nil {
			return err
		}
		u.opts.Threads = u.engine.Threads()
	case "clear hash":
		return u.engine.Clear()
	case "ponder":
		u.opts.Ponder = strings.EqualFold(value, "true")
	case "persistanalysis":
		u.opts.PersistAnalysis = strings.EqualFold(value, "true")
	default:
		return errors.New("unknown option")
	}
	return nil
}

func (u *UCI) saveOptions() {
	if u.store == nil {
		return
	}
	if err := u.store.SaveOptions(u.opts); err != nil {
		log.Warn().Err(err).Msg("saving options failed")
	}
}

// handleDisplay prints the board and table details.
func (u *UCI) handleDisplay() {
	u.send("%s", u.position.String())
	u.send("Checkers: %d  Draw: %t", u.position.Checkers().PopCount(), u.position.IsDraw())
	u.send("Hash: %s  Threads: %d", humanize.IBytes(u.engine.HashSizeBytes()), u.engine.Threads())
}

// handlePerft runs a perft divide of the current position.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil || d < 1 || d > maxPerft {
			u.send("info string perft: depth must be 1..%d", maxPerft)
			return
		}
		depth = d
	}

	r, err := perft.Run(context.Background(), u.position, depth, u.engine.Threads())
	if err != nil {
		u.send("info string perft: %v", err)
		return
	}
	u.mu.Lock()
	r.Write(u.out)
	u.mu.Unlock()
}

// handleAnalysis prints the stored analysis of the current position.
func (u *UCI) handleAnalysis() {
	if u.store == nil {
		u.send("info string analysis: no storage")
		return
	}
	a, err := u.store.LookupAnalysis(u.position.Export())
	if errors.Is(err, storage.ErrNotFound) {
		u.send("info string analysis: none")
		return
	}
	if err != nil {
		u.send("info string analysis: %v", err)
		return
	}
	u.send("info string analysis depth %d score %s nodes %s bestmove %s %s",
		a.Depth, engine.ScoreString(a.Score), humanize.Comma(int64(a.Nodes)), a.BestMove,
		humanize.Time(a.Updated))
}
