package slug

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status of an availability check.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAvailable Status = "available"
	StatusTaken     Status = "taken"
	StatusInvalid   Status = "invalid"
	StatusError     Status = "error"
)

// Lookup asks the authoritative store whether a slug is free.
type Lookup interface {
	ValidateSlug(ctx context.Context, slug string) (bool, error)
}

// Result is the latest known availability of a slug for one draft.
type Result struct {
	Slug      string    `json:"slug"`
	Status    Status    `json:"status"`
	Seq       uint64    `json:"seq"`
	CheckedAt time.Time `json:"checkedAt,omitempty"`
}

// DefaultRetention is how long an untouched key is kept.
const DefaultRetention = 24 * time.Hour

// Checker debounces availability lookups per draft. Only the result of the
// newest request for a draft is ever recorded. Keys not touched within the
// retention window are evicted, so drafts that expire without being
// cancelled do not pile up.
type Checker struct {
	lookup    Lookup
	debouncer *Debouncer
	timeout   time.Duration
	retention time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	results map[string]Result
	touched map[string]time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithRetention sets how long an untouched key is kept.
func WithRetention(d time.Duration) CheckerOption {
	return func(c *Checker) {
		if d > 0 {
			c.retention = d
		}
	}
}

func NewChecker(lookup Lookup, delay, timeout time.Duration, logger *zap.Logger, opts ...CheckerOption) *Checker {
	c := &Checker{
		lookup:    lookup,
		debouncer: NewDebouncer(delay),
		timeout:   timeout,
		retention: DefaultRetention,
		logger:    logger,
		results:   make(map[string]Result),
		touched:   make(map[string]time.Time),
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	every := c.retention / 4
	if every > time.Minute {
		every = time.Minute
	}
	if every <= 0 {
		every = c.retention
	}
	go c.janitor(every)
	return c
}

// Request records slug as the current input for key and schedules a
// lookup. Malformed slugs resolve immediately without a lookup.
func (c *Checker) Request(key, slug string) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !Valid(slug) {
		c.debouncer.Cancel(key)
		res := Result{Slug: slug, Status: StatusInvalid, CheckedAt: time.Now()}
		c.results[key] = res
		c.touched[key] = time.Now()
		return res
	}

	seq := c.debouncer.Do(key, func(ctx context.Context, seq uint64) {
		c.check(ctx, key, slug, seq)
	})
	res := Result{Slug: slug, Status: StatusPending, Seq: seq}
	c.results[key] = res
	c.touched[key] = time.Now()
	return res
}

// Latest returns the most recent result for key.
func (c *Checker) Latest(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.results[key]
	return res, ok
}

// Forget cancels any pending lookup and drops the stored result.
func (c *Checker) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forgetLocked(key)
}

func (c *Checker) forgetLocked(key string) {
	c.debouncer.Cancel(key)
	delete(c.results, key)
	delete(c.touched, key)
}

// Evict drops every key not touched since before now minus the retention
// window and returns how many were dropped.
func (c *Checker) Evict(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := now.Add(-c.retention)
	evicted := 0
	for key, at := range c.touched {
		if at.Before(cutoff) {
			c.forgetLocked(key)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of keys with a stored result.
func (c *Checker) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

func (c *Checker) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			if n := c.Evict(now); n > 0 {
				c.logger.Debug("Evicted idle slug checks", zap.Int("count", n))
			}
		}
	}
}

// Stop cancels all pending lookups and the eviction loop.
func (c *Checker) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	c.debouncer.Stop()
}

func (c *Checker) check(ctx context.Context, key, slug string, seq uint64) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	available, err := c.lookup.ValidateSlug(ctx, slug)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.debouncer.IsCurrent(key, seq) {
		c.logger.Debug("Discarding superseded slug check",
			zap.String("key", key),
			zap.String("slug", slug),
			zap.Uint64("seq", seq),
		)
		return
	}

	res := Result{Slug: slug, Seq: seq, CheckedAt: time.Now()}
	switch {
	case err != nil:
		c.logger.Warn("Slug availability check failed", zap.String("slug", slug), zap.Error(err))
		res.Status = StatusError
	case available:
		res.Status = StatusAvailable
	default:
		res.Status = StatusTaken
	}
	c.results[key] = res
	c.touched[key] = res.CheckedAt
}
