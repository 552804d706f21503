// Package cache is a persistent, content-addressed store of embedding
// vectors shared by every process that points at the same directory.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/0x5457/oas-index/internal/errs"
	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

const (
	IndexFile = "index.json"
	LockFile  = "index.lock"

	DefaultLockTimeout = 10 * time.Second
	defaultRetryDelay  = 25 * time.Millisecond
)

type Options struct {
	Dir         string
	LockTimeout time.Duration
	RetryDelay  time.Duration
}

type Cache struct {
	path    string
	guard   *guard
	log     *zap.Logger
	entries map[string][]float32
}

// Fingerprint is the cache key: SHA-256 over the trimmed text and the
// metadata with sorted keys.
func Fingerprint(text string, metadata map[string]string) string {
	if metadata == nil {
		metadata = map[string]string{}
	}
	payload, _ := json.Marshal(struct {
		Metadata map[string]string `json:"metadata"`
		Text     string            `json:"text"`
	}{Metadata: metadata, Text: strings.TrimSpace(text)})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// New opens the cache in opts.Dir. An index that cannot be read or locked
// in time is logged and the cache starts empty.
func New(opts Options, log *zap.Logger) (*Cache, error) {
	if opts.Dir == "" {
		return nil, errors.New("cache directory must be specified")
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	c := &Cache{
		path: filepath.Join(opts.Dir, IndexFile),
		guard: &guard{
			lock:    flock.New(filepath.Join(opts.Dir, LockFile)),
			timeout: opts.LockTimeout,
			retry:   opts.RetryDelay,
		},
		log:     log.Named("cache"),
		entries: make(map[string][]float32),
	}

	release, err := c.guard.acquire(context.Background())
	if err != nil {
		c.log.Warn("starting with empty cache", zap.String("path", c.path), zap.Error(err))
		return c, nil
	}
	defer release()
	entries, err := c.readIndex()
	if err != nil {
		c.log.Warn("starting with empty cache", zap.String("path", c.path), zap.Error(err))
		return c, nil
	}
	c.entries = entries
	return c, nil
}

func (c *Cache) Path() string { return c.path }

func (c *Cache) Size() int {
	c.guard.mu.Lock()
	defer c.guard.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) Get(text string, metadata map[string]string) ([]float32, bool) {
	key := Fingerprint(text, metadata)
	c.guard.mu.Lock()
	defer c.guard.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, true
}

// Put stores vector under the fingerprint of text and metadata. The index on
// disk is authoritative: entries written or cleared by other processes since
// the last load are honored.
func (c *Cache) Put(ctx context.Context, text string, vector []float32, metadata map[string]string) error {
	key := Fingerprint(text, metadata)
	release, err := c.guard.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	merged, err := c.readIndex()
	if err != nil {
		c.log.Warn("rewriting unreadable index", zap.Error(err))
		merged = make(map[string][]float32, len(c.entries)+1)
		for k, v := range c.entries {
			merged[k] = v
		}
	}
	stored := make([]float32, len(vector))
	copy(stored, vector)
	merged[key] = stored

	if err := c.writeIndex(merged); err != nil {
		return err
	}
	c.entries = merged
	return nil
}

// Clear drops every entry, on disk and in memory.
func (c *Cache) Clear(ctx context.Context) error {
	release, err := c.guard.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	empty := make(map[string][]float32)
	if err := c.writeIndex(empty); err != nil {
		return err
	}
	c.entries = empty
	return nil
}

func (c *Cache) readIndex() (map[string][]float32, error) {
	entries := make(map[string][]float32)
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return entries, fmt.Errorf("%w: %w", errs.ErrCacheIndexCorrupt, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return make(map[string][]float32), fmt.Errorf("%w: %w", errs.ErrCacheIndexCorrupt, err)
	}
	return entries, nil
}

// writeIndex replaces the index through a temp file and rename so readers
// never see a partial file.
func (c *Cache) writeIndex(entries map[string][]float32) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode cache index: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), IndexFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp index: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

// guard serializes access within the process and, through the advisory
// file lock, across processes.
type guard struct {
	mu      sync.Mutex
	lock    *flock.Flock
	timeout time.Duration
	retry   time.Duration
}

func (g *guard) acquire(ctx context.Context) (func(), error) {
	g.mu.Lock()
	lctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	ok, err := g.lock.TryLockContext(lctx, g.retry)
	if err == nil && ok {
		return func() {
			_ = g.lock.Unlock()
			g.mu.Unlock()
		}, nil
	}
	g.mu.Unlock()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		return nil, &errs.LockTimeoutError{Path: g.lock.Path(), Timeout: g.timeout}
	}
	return nil, fmt.Errorf("lock %s: %w", g.lock.Path(), err)
}
