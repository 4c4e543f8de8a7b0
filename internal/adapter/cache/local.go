package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/fuel-control/internal/ports"
)

const defaultLocalMaxEntries = 512

// LocalConfig bounds the in-process cache. Zero values fall back to 512
// entries and a one minute sweep.
type LocalConfig struct {
	MaxEntries int
	Sweep      time.Duration
}

// LocalStats is a point-in-time view of the cache counters.
type LocalStats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64
}

type localItem struct {
	payload  string
	deadline time.Time
}

func (it localItem) live(now time.Time) bool {
	return it.deadline.IsZero() || now.Before(it.deadline)
}

// LocalCache stands in for redis when it is disabled or unreachable.
// Dashboard summaries are keyed by cache generation, so superseded keys
// linger until their deadline; MaxEntries caps how many are held.
type LocalCache struct {
	mu    sync.Mutex
	items map[string]localItem
	max   int
	stats LocalStats
	now   func() time.Time
	log   *zap.Logger

	done chan struct{}
	once sync.Once
}

func NewLocalCache(cfg LocalConfig, log *zap.Logger) *LocalCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultLocalMaxEntries
	}
	if cfg.Sweep <= 0 {
		cfg.Sweep = time.Minute
	}

	c := &LocalCache{
		items: make(map[string]localItem),
		max:   cfg.MaxEntries,
		now:   time.Now,
		log:   log,
		done:  make(chan struct{}),
	}
	go c.sweepEvery(cfg.Sweep)

	log.Info("Local cache enabled",
		zap.Int("max_entries", cfg.MaxEntries),
		zap.Duration("sweep", cfg.Sweep),
	)
	return c
}

func (c *LocalCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if ok && !it.live(c.now()) {
		delete(c.items, key)
		ok = false
	}
	if !ok {
		c.stats.Misses++
		return "", ports.ErrCacheMiss
	}
	c.stats.Hits++
	return it.payload, nil
}

// Set stores strings and byte slices as is and anything else as JSON, the
// same encoding the redis adapter uses.
func (c *LocalCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := encode(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	it := localItem{payload: payload}
	if ttl > 0 {
		it.deadline = c.now().Add(ttl)
	}
	if _, exists := c.items[key]; !exists && len(c.items) >= c.max {
		c.makeRoom()
	}
	c.items[key] = it
	return nil
}

func (c *LocalCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) Stats() LocalStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.items)
	return s
}

func (c *LocalCache) Ping() error {
	return nil
}

func (c *LocalCache) Close() error {
	c.once.Do(func() {
		close(c.done)
		s := c.Stats()
		c.log.Info("Local cache closed",
			zap.Int("entries", s.Entries),
			zap.Int64("hits", s.Hits),
			zap.Int64("misses", s.Misses),
			zap.Int64("evictions", s.Evictions),
		)
	})
	return nil
}

// makeRoom drops expired items first and, if the cache is still full, the
// item closest to its deadline. Items without a deadline go last. Callers
// hold c.mu.
func (c *LocalCache) makeRoom() {
	if c.purge() > 0 && len(c.items) < c.max {
		return
	}

	var (
		victim  string
		soonest time.Time
		found   bool
	)
	for key, it := range c.items {
		if found && !expiresSooner(it.deadline, soonest) {
			continue
		}
		victim, soonest, found = key, it.deadline, true
	}
	if found {
		delete(c.items, victim)
		c.stats.Evictions++
	}
}

func expiresSooner(a, b time.Time) bool {
	if a.IsZero() {
		return false
	}
	return b.IsZero() || a.Before(b)
}

// purge removes expired items. Callers hold c.mu.
func (c *LocalCache) purge() int {
	now := c.now()
	n := 0
	for key, it := range c.items {
		if !it.live(now) {
			delete(c.items, key)
			n++
		}
	}
	return n
}

func (c *LocalCache) sweepEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			n := c.purge()
			c.mu.Unlock()
			if n > 0 {
				c.log.Debug("Local cache swept", zap.Int("expired", n))
			}
		case <-c.done:
			return
		}
	}
}

func encode(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("marshal cache value: %w", err)
	}
	return string(data), nil
}
