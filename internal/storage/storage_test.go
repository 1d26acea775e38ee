package storage

import (
	"errors"
	"os"
	"testing"
)

func openTest(t *testing.T) *Storage {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOptions(t *testing.T) {
	s := openTest(t)

	t.Run("Defaults", func(t *testing.T) {
		opts, err := s.LoadOptions()
		if err != nil {
			t.Fatal(err)
		}
		if opts.HashMB != 64 || opts.Threads != 1 || opts.PersistAnalysis {
			t.Errorf("unexpected defaults: %+v", opts)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		want := &Options{HashMB: 256, Threads: 8, Ponder: true, PersistAnalysis: true}
		if err := s.SaveOptions(want); err != nil {
			t.Fatal(err)
		}
		if want.Updated.IsZero() {
			t.Error("SaveOptions did not stamp the update time")
		}
		got, err := s.LoadOptions()
		if err != nil {
			t.Fatal(err)
		}
		if got.HashMB != 256 || got.Threads != 8 || !got.Ponder || !got.PersistAnalysis {
			t.Errorf("LoadOptions = %+v", got)
		}
	})
}

func TestFirstLaunch(t *testing.T) {
	s := openTest(t)
	first, err := s.IsFirstLaunch()
	if err != nil || !first {
		t.Fatalf("IsFirstLaunch = %v, %v; want true", first, err)
	}
	if err := s.MarkFirstLaunchComplete(); err != nil {
		t.Fatal(err)
	}
	if first, _ := s.IsFirstLaunch(); first {
		t.Error("still first launch after marking")
	}
}

func TestAnalysis(t *testing.T) {
	s := openTest(t)
	const fen = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"

	if _, err := s.LookupAnalysis(fen); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty lookup: %v, want ErrNotFound", err)
	}

	saved, err := s.SaveAnalysis(Analysis{FEN: fen, BestMove: "e7e5", Score: -20, Depth: 8, Nodes: 1000})
	if err != nil || !saved {
		t.Fatalf("SaveAnalysis = %v, %v", saved, err)
	}

	// Move counters do not change the position.
	got, err := s.LookupAnalysis("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 4 9")
	if err != nil {
		t.Fatal(err)
	}
	if got.BestMove != "e7e5" || got.Depth != 8 || got.Updated.IsZero() {
		t.Errorf("LookupAnalysis = %+v", got)
	}

	saved, err = s.SaveAnalysis(Analysis{FEN: fen, BestMove: "c7c5", Depth: 5})
	if err != nil {
		t.Fatal(err)
	}
	if saved {
		t.Error("shallower analysis replaced a deeper one")
	}

	if _, err := s.SaveAnalysis(Analysis{FEN: fen, BestMove: "c7c5", Score: 5, Depth: 12}); err != nil {
		t.Fatal(err)
	}
	got, err = s.LookupAnalysis(fen)
	if err != nil {
		t.Fatal(err)
	}
	if got.BestMove != "c7c5" || got.Depth != 12 {
		t.Errorf("after deeper save LookupAnalysis = %+v", got)
	}

	if _, err := s.SaveAnalysis(Analysis{FEN: "8/8/8/8/8/8/8/K6k w - - 0 1", BestMove: "a1a2", Depth: 1}); err != nil {
		t.Fatal(err)
	}
	if n, err := s.AnalysisCount(); err != nil || n != 2 {
		t.Errorf("AnalysisCount = %d, %v; want 2", n, err)
	}
}

func TestPositionKey(t *testing.T) {
	tests := []struct {
		a, b string
		same bool
	}{
		{"8/8/8/8/8/8/8/K6k w - - 0 1", "8/8/8/8/8/8/8/K6k w - - 10 40", true},
		{"8/8/8/8/8/8/8/K6k w - - 0 1", "8/8/8/8/8/8/8/K6k w - -", true},
		{"8/8/8/8/8/8/8/K6k w - - 0 1", "8/8/8/8/8/8/8/K6k b - - 0 1", false},
		{"r3k3/8/8/8/8/8/8/4K3 b q - 0 1", "r3k3/8/8/8/8/8/8/4K3 b - - 0 1", false},
	}
	for _, tt := range tests {
		if got := PositionKey(tt.a) == PositionKey(tt.b); got != tt.same {
			t.Errorf("PositionKey(%q) == PositionKey(%q) is %v, want %v", tt.a, tt.b, got, tt.same)
		}
	}
}

func TestOpenDir(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.SaveOptions(&Options{HashMB: 32, Threads: 2}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	opts, err := s.LoadOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.HashMB != 32 || opts.Threads != 2 {
		t.Errorf("options after reopen = %+v", opts)
	}
}

func TestDataPaths(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir()+"/data")

	dataDir, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir failed: %v", err)
	}
	if dataDir != os.Getenv(EnvDataDir) {
		t.Errorf("GetDataDir = %q, want the %s override", dataDir, EnvDataDir)
	}

	// Verify directory exists
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Errorf("Data directory was not created: %s", dataDir)
	}

	dbDir, err := GetDatabaseDir()
	if err != nil {
		t.Fatalf("GetDatabaseDir failed: %v", err)
	}
	if _, err := os.Stat(dbDir); err != nil {
		t.Errorf("Database directory missing: %v", err)
	}
}
