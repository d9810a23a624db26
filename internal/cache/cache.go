package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Store is a keyed write-once cache. Entries are never invalidated
// automatically; an operator clears the backing storage to reset it.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
}

// Backend names accepted by NewStore.
const (
	BackendFS    = "fs"
	BackendRedis = "redis"
)

// NewStore builds the configured cache backend.
func NewStore(backend, dir string, redisCfg RedisConfig) (Store, error) {
	switch backend {
	case BackendRedis:
		store, err := NewRedisStore(redisCfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendFS, "":
		return NewFSStore(dir)
	}
	return nil, fmt.Errorf("unknown cache backend %q", backend)
}

// Fingerprint computes the deterministic cache key for a request shape:
// a sha256 over the method, URL and the sorted query/form parameters.
func Fingerprint(method, url string, params, form map[string]string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|", strings.ToUpper(method), url)
	writeSorted(h, params)
	fmt.Fprint(h, "|")
	writeSorted(h, form)
	return hex.EncodeToString(h.Sum(nil))
}

func writeSorted(w io.Writer, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s=%s&", k, m[k])
	}
}

// FSStore is a filesystem-backed cache with one file per key under a
// configured directory. Writes go through a temp file and rename so a
// concurrent reader never observes a partial entry.
type FSStore struct {
	dir string
}

// NewFSStore creates the cache directory if needed and returns a store over it.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

// Get reads the entry for key, if present.
func (s *FSStore) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set writes the entry for key atomically.
func (s *FSStore) Set(key string, value []byte) error {
	tmp, err := os.CreateTemp(s.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close cache entry: %w", err)
	}

	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to store cache entry: %w", err)
	}

	log.Debug().Str("key", key).Int("size", len(value)).Msg("Cache entry written")
	return nil
}

func (s *FSStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Entry is a cached HTTP response body plus enough metadata to synthesize a
// response without a network call.
type Entry struct {
	Method    string    `json:"method"`
	URL       string    `json:"url"`
	Status    int       `json:"status"`
	Body      []byte    `json:"body"`
	FetchedAt time.Time `json:"fetched_at"`
}
