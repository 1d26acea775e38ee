package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/rs/zerolog/log"
)

// Storage keys
const (
	keyOptions     = "options"
	keyFirstLaunch = "first_launch"
	analysisPrefix = "analysis/"
)

// ErrNotFound is returned when no analysis is stored for a position.
var ErrNotFound = errors.New("not found")

// Options are the engine settings that survive a restart.
type Options struct {
	HashMB          int       `json:"hash_mb"`
	Threads         int       `json:"threads"`
	Ponder          bool      `json:"ponder"`
	PersistAnalysis bool      `json:"persist_analysis"`
	Updated         time.Time `json:"updated"`
}

// DefaultOptions returns the settings used before anything is saved.
func DefaultOptions() *Options {
	return &Options{
		HashMB:  64,
		Threads: 1,
	}
}

// Analysis is the outcome of one completed search of a position.
type Analysis struct {
	FEN      string    `json:"fen"`
	BestMove string    `json:"best_move"`
	Ponder   string    `json:"ponder,omitempty"`
	Score    int       `json:"score"`
	Depth    int       `json:"depth"`
	Nodes    uint64    `json:"nodes"`
	Updated  time.Time `json:"updated"`
}

// Storage wraps BadgerDB for persistent storage, with an in-memory cache in
// front of the analysis records.
type Storage struct {
	db    *badger.DB
	cache *ristretto.Cache[uint64, Analysis]
}

// Open opens the database in dir, or in the default data directory when dir
// is empty.
func Open(dir string) (*Storage, error) {
	if dir == "" {
		var err error
		if dir, err = GetDatabaseDir(); err != nil {
			return nil, err
		}
	}
	s, err := open(badger.DefaultOptions(dir))
	if err != nil {
		return nil, fmt.Errorf("open storage %s: %w", dir, err)
	}
	log.Debug().Str("dir", dir).Msg("storage opened")
	return s, nil
}

// OpenInMemory opens a throwaway database that lives only in memory.
func OpenInMemory() (*Storage, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Storage, error) {
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	cache, err := ristretto.NewCache(&ristretto.Config[uint64, Analysis]{
		NumCounters: 1 << 16,
		MaxCost:     1 << 12,
		BufferItems: 64,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Storage{db: db, cache: cache}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.cache != nil {
		s.cache.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// IsFirstLaunch returns true if this is the first launch
func (s *Storage) IsFirstLaunch() (bool, error) {
	firstLaunch := true

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(keyFirstLaunch))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		firstLaunch = false
		return nil
	})

	return firstLaunch, err
}

// MarkFirstLaunchComplete marks that first launch setup is complete
func (s *Storage) MarkFirstLaunchComplete() error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyFirstLaunch), []byte("done"))
	})
}

// SaveOptions saves the engine options
func (s *Storage) SaveOptions(opts *Options) error {
	opts.Updated = time.Now()

	data, err := json.Marshal(opts)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyOptions), data)
	})
}

// LoadOptions loads the engine options, returns defaults if not found
func (s *Storage) LoadOptions() (*Options, error) {
	opts := DefaultOptions()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyOptions))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil // Use defaults
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, opts)
		})
	})

	return opts, err
}

// PositionKey hashes the parts of a FEN that identify a position: placement,
// side to move, castling and en passant. Move counters are ignored.
func PositionKey(fen string) uint64 {
	fields := strings.Fields(fen)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return xxhash.Sum64String(strings.Join(fields, " "))
}

func analysisKey(key uint64) []byte {
	b := make([]byte, len(analysisPrefix)+8)
	copy(b, analysisPrefix)
	binary.BigEndian.PutUint64(b[len(analysisPrefix):], key)
	return b
}

// SaveAnalysis records a search result. A record from a deeper search of
// the same position is kept instead.
func (s *Storage) SaveAnalysis(a Analysis) (bool, error) {
	key := PositionKey(a.FEN)
	if a.Updated.IsZero() {
		a.Updated = time.Now()
	}

	saved := false
	err := s.db.Update(func(txn *badger.Txn) error {
		var old Analysis
		found, err := getJSON(txn, analysisKey(key), &old)
		if err != nil {
			return err
		}
		if found && old.Depth > a.Depth {
			return nil
		}

		data, err := json.Marshal(a)
		if err != nil {
			return err
		}
		saved = true
		return txn.Set(analysisKey(key), data)
	})
	if err != nil {
		return false, err
	}
	if saved {
		s.cache.Del(key)
	}
	return saved, nil
}

// LookupAnalysis returns the stored record for fen, or ErrNotFound.
func (s *Storage) LookupAnalysis(fen string) (Analysis, error) {
	key := PositionKey(fen)
	if a, ok := s.cache.Get(key); ok {
		return a, nil
	}

	var a Analysis
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		found, err = getJSON(txn, analysisKey(key), &a)
		return err
	})
	if err != nil {
		return Analysis{}, err
	}
	if !found {
		return Analysis{}, ErrNotFound
	}
	s.cache.Set(key, a, 1)
	return a, nil
}

// AnalysisCount returns the number of stored analysis records.
func (s *Storage) AnalysisCount() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(analysisPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// getJSON decodes the value at key into v. found is false if the key does
// not exist.
func getJSON(txn *badger.Txn, key []byte, v any) (found bool, err error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}
