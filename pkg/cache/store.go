package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Sumatoshi-tech/sensortrend/pkg/loader"
	"github.com/Sumatoshi-tech/sensortrend/pkg/persist"
)

// formatVersion is bumped whenever the stored entry layout changes.
const formatVersion = 1

// ErrStaleEntry is returned when a stored entry was written by another format version.
var ErrStaleEntry = errors.New("stale cache entry")

// entry is the on-disk record.
type entry struct {
	Version int
	Dataset loader.Dataset
}

// Store is a dataset cache backed by a directory. Lookups hit the in-memory
// LRU first, then the disk.
type Store struct {
	dir       string
	persister *persist.Persister[entry]
	memory    *LRU
}

// Open creates dir if needed and returns a Store over it.
func Open(dir string, memoryBudget int64) (*Store, error) {
	err := os.MkdirAll(dir, 0o750)
	if err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	return &Store{
		dir:       dir,
		persister: persist.NewPersister[entry](dir, persist.NewLZ4Codec(persist.NewGobCodec())),
		memory:    NewLRU(memoryBudget),
	}, nil
}

// Dir returns the backing directory.
func (s *Store) Dir() string {
	return s.dir
}

// Key derives the cache key for a source file. It changes whenever the
// file's size or modification time or the normalization options change.
func Key(path string, opts loader.Options) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	h := sha256.New()

	fmt.Fprintf(h, "%s\x00%d\x00%d\x00", abs, info.Size(), info.ModTime().UnixNano())
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%d",
		strconv.FormatFloat(opts.Min, 'g', -1, 64),
		strconv.FormatFloat(opts.Max, 'g', -1, 64),
		strconv.FormatFloat(opts.AnomalyThreshold, 'g', -1, 64),
		opts.MaxLineSize)

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get returns the dataset stored under key. A miss returns (nil, nil);
// unreadable or stale entries return an error and should be treated as a miss.
func (s *Store) Get(key string) (*loader.Dataset, error) {
	if ds := s.memory.Get(key); ds != nil {
		return ds, nil
	}

	stored, err := s.persister.Load(key)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil //nolint:nilnil // miss is not an error.
	}

	if err != nil {
		return nil, err
	}

	if stored.Version != formatVersion {
		return nil, fmt.Errorf("%w: version %d", ErrStaleEntry, stored.Version)
	}

	ds := &stored.Dataset
	s.memory.Put(key, ds)

	return ds, nil
}

// Put stores ds under key on disk and in memory.
func (s *Store) Put(key string, ds *loader.Dataset) error {
	err := s.persister.Save(key, &entry{Version: formatVersion, Dataset: *ds})
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}

	s.memory.Put(key, ds)

	return nil
}

// MemoryStats reports the in-memory tier counters.
func (s *Store) MemoryStats() LRUStats {
	return s.memory.Stats()
}
