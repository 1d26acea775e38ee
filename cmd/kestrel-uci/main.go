package main

import (
	"context"
	"flag"
	"os"
	"runtime/pprof"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hailam/kestrel/internal/engine"
	"github.com/hailam/kestrel/internal/perft"
	"github.com/hailam/kestrel/internal/storage"
	"github.com/hailam/kestrel/internal/uci"
)

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	hashMB     = flag.Int("hash", 0, "hash table size in MB (default: saved option)")
	threads    = flag.Int("threads", 0, "search threads (default: saved option)")
	logLevel   = flag.String("loglevel", "", "log level: debug, info, warn, error (default warn)")
	dataDir    = flag.String("datadir", "", "directory for saved options and analysis")
	nostore    = flag.Bool("nostore", false, "do not open the data directory")
	bench      = flag.Int("bench", 0, "search the bench positions to this depth and exit")
	perftSuite = flag.Bool("perft", false, "run the perft suite and exit")
)

func main() {
	flag.Parse()
	setupLogging()

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("path", profilePath).Msg("CPU profiling enabled")
	}

	if *perftSuite {
		if err := perft.RunSuite(context.Background(), os.Stdout, perft.Suite, 0); err != nil {
			log.Error().Err(err).Msg("perft suite failed")
			os.Exit(1)
		}
		return
	}

	if *bench > 0 {
		if err := runBench(context.Background(), os.Stdout, *bench, max(*threads, 1)); err != nil {
			log.Error().Err(err).Msg("bench failed")
			os.Exit(1)
		}
		return
	}

	store, opts := openStorage()
	if store != nil {
		defer store.Close()
	}
	if *hashMB > 0 {
		opts.HashMB = *hashMB
	}
	if *threads > 0 {
		opts.Threads = *threads
	}

	eng := engine.New(engine.Options{HashMB: opts.HashMB, Threads: opts.Threads})
	defer eng.Close()
	log.Info().Int("hash", opts.HashMB).Int("threads", eng.Threads()).Msg("engine ready")

	// Create and run UCI protocol handler
	protocol := uci.New(eng, store, opts)
	if err := protocol.Run(os.Stdin, os.Stdout); err != nil {
		log.Error().Err(err).Msg("reading commands failed")
	}
}

// setupLogging sends logs to stderr; stdout carries the UCI protocol.
func setupLogging() {
	level := *logLevel
	if level == "" {
		level = os.Getenv("KESTREL_LOGLEVEL")
	}
	lvl := zerolog.WarnLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err == nil {
			lvl = parsed
		}
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
}

// openStorage opens the data directory. The engine still runs, without
// persistence, if it cannot.
func openStorage() (*storage.Storage, *storage.Options) {
	if *nostore {
		return nil, storage.DefaultOptions()
	}
	dir := *dataDir
	if dir == "" {
		dir = os.Getenv(storage.EnvDataDir)
	}
	store, err := storage.Open(dir)
	if err != nil {
		log.Warn().Err(err).Msg("storage unavailable, options will not be saved")
		return nil, storage.DefaultOptions()
	}

	if first, err := store.IsFirstLaunch(); err == nil && first {
		log.Info().Msg("first launch, using default options")
		if err := store.MarkFirstLaunchComplete(); err != nil {
			log.Warn().Err(err).Msg("marking first launch failed")
		}
	}

	opts, err := store.LoadOptions()
	if err != nil {
		log.Warn().Err(err).Msg("loading options failed, using defaults")
		opts = storage.DefaultOptions()
	}
	return store, opts
}
