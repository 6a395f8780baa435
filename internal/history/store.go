package history

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Store caches the dataset of one directory and reloads it only when one
// of the source files changes modification time. Safe for concurrent use.
type Store struct {
	dir   string
	files Files

	mu      sync.RWMutex
	mtimes  []time.Time
	dataset *Dataset
	loads   int
}

func NewStore(dir string, files Files) *Store {
	return &Store{dir: dir, files: files}
}

func (s *Store) Dir() string { return s.dir }

// Get returns a copy of the current dataset, reloading if stale.
func (s *Store) Get() (*Dataset, error) {
	ds, err := s.current()
	if err != nil {
		return nil, err
	}
	return ds.Clone(), nil
}

// Engagement returns a copy of the engagement index series.
func (s *Store) Engagement() ([]float64, error) {
	ds, err := s.current()
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), ds.Engagement...), nil
}

// Version identifies the loaded files by their modification times, for
// use in cache keys.
func (s *Store) Version() string {
	mt := s.stat()
	out := make([]byte, 0, 64)
	for i, t := range mt {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, t.UTC().Format(time.RFC3339Nano)...)
	}
	return string(out)
}

// Loads reports how many times the files were parsed.
func (s *Store) Loads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loads
}

func (s *Store) current() (*Dataset, error) {
	mt := s.stat()

	s.mu.RLock()
	if s.dataset != nil && sameTimes(s.mtimes, mt) {
		ds := s.dataset
		s.mu.RUnlock()
		return ds, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dataset != nil && sameTimes(s.mtimes, mt) {
		return s.dataset, nil
	}

	ds, err := Load(s.dir, s.files)
	if err != nil {
		return nil, err
	}
	s.dataset = ds
	s.mtimes = mt
	s.loads++
	log.Info().Str("dir", s.dir).Int("weeks", len(ds.Mentions)).Msg("Historical data refreshed")
	return ds, nil
}

// stat returns one modification time per file; a missing file reads as
// the zero time.
func (s *Store) stat() []time.Time {
	names := s.files.names()
	out := make([]time.Time, len(names))
	for i, name := range names {
		if info, err := os.Stat(filepath.Join(s.dir, name)); err == nil {
			out[i] = info.ModTime()
		}
	}
	return out
}

func sameTimes(a, b []time.Time) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
