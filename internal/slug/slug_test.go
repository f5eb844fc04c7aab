package slug

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Granito São Gabriel", "granito-sao-gabriel"},
		{"  Mármore   Branco Piguês!! ", "marmore-branco-pigues"},
		{"Quartzito Taj Mahal - Lote 2024/07", "quartzito-taj-mahal-lote-2024-07"},
		{"!!", "link"},
		{"", "link"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got := Generate(tt.title)
			assert.Equal(t, tt.want, got)
			assert.True(t, Valid(got))
		})
	}
}

func TestGenerate_TruncatesWithoutTrailingHyphen(t *testing.T) {
	got := Generate(strings.Repeat("abcde ", 20))

	assert.LessOrEqual(t, len(got), MaxLength)
	assert.False(t, strings.HasSuffix(got, "-"))
	assert.True(t, Valid(got))
}

func TestWithSuffix(t *testing.T) {
	a := WithSuffix("granito-preto")
	b := WithSuffix("granito-preto")

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "granito-preto-"))
	assert.True(t, Valid(a))
	assert.True(t, Valid(WithSuffix(strings.Repeat("x", MaxLength))))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("abc"))
	assert.True(t, Valid("lote-1-verde"))
	assert.False(t, Valid("ab"))
	assert.False(t, Valid("-abc"))
	assert.False(t, Valid("abc--def"))
	assert.False(t, Valid("Abc"))
	assert.False(t, Valid(strings.Repeat("a", MaxLength+1)))
}

func TestDebouncer_OnlyLastCallRuns(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var calls int32
	var lastSeq uint64
	var mu sync.Mutex

	for i := 0; i < 5; i++ {
		d.Do("draft", func(ctx context.Context, seq uint64) {
			atomic.AddInt32(&calls, 1)
			mu.Lock()
			lastSeq = seq
			mu.Unlock()
		})
		time.Sleep(5 * time.Millisecond)
	}
	final := d.Do("draft", func(ctx context.Context, seq uint64) {
		atomic.AddInt32(&calls, 1)
		mu.Lock()
		lastSeq = seq
		mu.Unlock()
	})

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	mu.Lock()
	assert.Equal(t, final, lastSeq)
	mu.Unlock()
	assert.Equal(t, 0, d.Pending())
}

func TestDebouncer_SupersededCallIsCancelled(t *testing.T) {
	d := NewDebouncer(5 * time.Millisecond)
	started := make(chan struct{})
	cancelled := make(chan struct{})

	first := d.Do("draft", func(ctx context.Context, seq uint64) {
		close(started)
		<-ctx.Done()
		close(cancelled)
	})
	<-started
	second := d.Do("draft", func(ctx context.Context, seq uint64) {})

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("superseded call was not cancelled")
	}
	assert.False(t, d.IsCurrent("draft", first))
	assert.True(t, d.IsCurrent("draft", second))
}

func TestDebouncer_KeysAreIndependent(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var calls int32

	d.Do("a", func(ctx context.Context, seq uint64) { atomic.AddInt32(&calls, 1) })
	d.Do("b", func(ctx context.Context, seq uint64) { atomic.AddInt32(&calls, 1) })

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, time.Second, 5*time.Millisecond)
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls int32

	seq := d.Do("a", func(ctx context.Context, seq uint64) { atomic.AddInt32(&calls, 1) })
	d.Cancel("a")

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.False(t, d.IsCurrent("a", seq))
}

type fakeLookup struct {
	mu      sync.Mutex
	calls   []string
	taken   map[string]bool
	err     error
	release chan struct{}
}

func (f *fakeLookup) ValidateSlug(ctx context.Context, slug string) (bool, error) {
	f.mu.Lock()
	f.calls = append(f.calls, slug)
	release := f.release
	f.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	if f.err != nil {
		return false, f.err
	}
	return !f.taken[slug], nil
}

func (f *fakeLookup) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestChecker_DebouncesTyping(t *testing.T) {
	lookup := &fakeLookup{taken: map[string]bool{"granito": true}}
	c := NewChecker(lookup, 20*time.Millisecond, time.Second, zap.NewNop())
	defer c.Stop()

	for _, s := range []string{"gra", "grani", "granit", "granito"} {
		res := c.Request("d1", s)
		assert.Equal(t, StatusPending, res.Status)
	}

	assert.Eventually(t, func() bool {
		res, _ := c.Latest("d1")
		return res.Status == StatusTaken
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"granito"}, lookup.Calls())
}

func TestChecker_InvalidSkipsLookup(t *testing.T) {
	lookup := &fakeLookup{}
	c := NewChecker(lookup, 5*time.Millisecond, time.Second, zap.NewNop())
	defer c.Stop()

	res := c.Request("d1", "No Spaces Allowed")

	assert.Equal(t, StatusInvalid, res.Status)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, lookup.Calls())
}

func TestChecker_StaleResponseDoesNotOverwrite(t *testing.T) {
	lookup := &fakeLookup{release: make(chan struct{})}
	c := NewChecker(lookup, 5*time.Millisecond, time.Second, zap.NewNop())
	defer c.Stop()

	c.Request("d1", "first-slug")
	require.Eventually(t, func() bool { return len(lookup.Calls()) == 1 }, time.Second, 2*time.Millisecond)

	lookup.mu.Lock()
	lookup.release = nil
	lookup.mu.Unlock()
	c.Request("d1", "second-slug")

	assert.Eventually(t, func() bool {
		res, _ := c.Latest("d1")
		return res.Status == StatusAvailable
	}, time.Second, 5*time.Millisecond)
	res, _ := c.Latest("d1")
	assert.Equal(t, "second-slug", res.Slug)
}

func TestChecker_LookupError(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("backend down")}
	c := NewChecker(lookup, 5*time.Millisecond, time.Second, zap.NewNop())
	defer c.Stop()

	c.Request("d1", "granito")

	assert.Eventually(t, func() bool {
		res, _ := c.Latest("d1")
		return res.Status == StatusError
	}, time.Second, 5*time.Millisecond)
}

func TestChecker_Forget(t *testing.T) {
	c := NewChecker(&fakeLookup{}, time.Hour, time.Second, zap.NewNop())
	defer c.Stop()

	c.Request("d1", "granito")
	c.Forget("d1")

	_, ok := c.Latest("d1")
	assert.False(t, ok)
}

func TestChecker_EvictsIdleKeys(t *testing.T) {
	lookup := &fakeLookup{}
	c := NewChecker(lookup, time.Hour, time.Second, zap.NewNop(), WithRetention(time.Hour))
	defer c.Stop()

	pending := c.Request("expired-draft", "granito")
	c.Request("live-draft", "marmore")
	require.Equal(t, 2, c.Len())

	assert.Equal(t, 0, c.Evict(time.Now()))
	assert.Equal(t, 2, c.Evict(time.Now().Add(2*time.Hour)))

	_, ok := c.Latest("expired-draft")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
	assert.False(t, c.debouncer.IsCurrent("expired-draft", pending.Seq))
	assert.Zero(t, c.debouncer.Pending())
}

func TestChecker_EvictKeepsRecentlyTouched(t *testing.T) {
	c := NewChecker(&fakeLookup{}, time.Hour, time.Second, zap.NewNop(), WithRetention(time.Hour))
	defer c.Stop()

	c.Request("d1", "No Spaces Allowed")
	assert.Zero(t, c.Evict(time.Now().Add(30*time.Minute)))

	res, ok := c.Latest("d1")
	require.True(t, ok)
	assert.Equal(t, StatusInvalid, res.Status)
}
