// Package cache persists the last normalized cart and authorization token so
// the next start can render before the first fetch returns.
//
// Writes are asynchronous and best-effort: Save* never blocks on storage and
// never returns an error. Only the latest value per key is written; older
// pending values are replaced.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/minicart/internal/cart"
	"github.com/five82/minicart/internal/obs"
)

// Keys under which values are stored.
const (
	KeySnapshot = "snapshot"
	KeyToken    = "token"
)

const writeTimeout = 2 * time.Second

// ErrNotFound is returned by a Backend when a key has never been written.
var ErrNotFound = errors.New("cache: key not found")

// Backend is durable key/value storage.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Cache writes through to a Backend from a single background goroutine.
type Cache struct {
	backend Backend
	logger  zerolog.Logger
	metrics *obs.Metrics

	mu      sync.Mutex
	idle    *sync.Cond
	pending map[string][]byte
	writing bool
	closed  bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// New starts the writer goroutine. Close must be called to stop it.
func New(backend Backend, logger zerolog.Logger, metrics *obs.Metrics) *Cache {
	c := &Cache{
		backend: backend,
		logger:  logger.With().Str("component", "cache").Logger(),
		metrics: metrics,
		pending: make(map[string][]byte),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	c.idle = sync.NewCond(&c.mu)
	c.wg.Add(1)
	go c.run()
	return c
}

// SaveSnapshot queues snap for writing.
func (c *Cache) SaveSnapshot(snap *cart.Snapshot) {
	c.save(KeySnapshot, snap)
}

// SaveToken queues token for writing.
func (c *Cache) SaveToken(token string) {
	c.save(KeyToken, token)
}

func (c *Cache) save(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.metrics.CacheWrite(key, err)
		c.logger.Warn().Err(err).Str("key", key).Msg("cache_encode_failed")
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pending[key] = data
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Load reads the cached snapshot and token. Missing or unreadable entries are
// returned as zero values.
func (c *Cache) Load(ctx context.Context) (*cart.Snapshot, string) {
	var snap *cart.Snapshot
	if data, ok := c.get(ctx, KeySnapshot); ok {
		var decoded cart.Snapshot
		if err := json.Unmarshal(data, &decoded); err != nil {
			c.logger.Warn().Err(err).Str("key", KeySnapshot).Msg("cache_decode_failed")
		} else {
			snap = &decoded
		}
	}

	var token string
	if data, ok := c.get(ctx, KeyToken); ok {
		if err := json.Unmarshal(data, &token); err != nil {
			c.logger.Warn().Err(err).Str("key", KeyToken).Msg("cache_decode_failed")
			token = ""
		}
	}
	return snap, token
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache_read_failed")
		}
		return nil, false
	}
	return data, true
}

// Flush blocks until every queued value has been handed to the backend.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for (len(c.pending) > 0 || c.writing) && !c.closed {
		c.idle.Wait()
	}
}

// Close flushes pending writes, stops the writer and closes the backend.
func (c *Cache) Close() error {
	c.Flush()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	c.wg.Wait()
	return c.backend.Close()
}

func (c *Cache) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
			c.drain()
		}
	}
}

func (c *Cache) drain() {
	for {
		c.mu.Lock()
		if len(c.pending) == 0 {
			c.writing = false
			c.idle.Broadcast()
			c.mu.Unlock()
			return
		}
		batch := c.pending
		c.pending = make(map[string][]byte)
		c.writing = true
		c.mu.Unlock()

		for key, data := range batch {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := c.backend.Set(ctx, key, data)
			cancel()
			c.metrics.CacheWrite(key, err)
			if err != nil {
				c.logger.Warn().Err(err).Str("key", key).Msg("cache_write_failed")
			}
		}
	}
}
