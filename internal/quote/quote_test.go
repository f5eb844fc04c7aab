package quote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"slabdesk/internal/cache"
	"slabdesk/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCurrent_FetchesAndCaches(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"USDBRL":{"code":"USD","codein":"BRL","bid":"5.0712","ask":"5.0722","timestamp":"1700000000"}}`))
	}))
	defer srv.Close()

	svc := NewService(srv.URL, time.Minute, cache.NewInMemoryCache(), zap.NewNop())

	rate, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("5.0712").Equal(rate.BRLPerUSD))
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), rate.FetchedAt)

	_, err = svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCurrent_ProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := NewService(srv.URL, time.Minute, cache.NewInMemoryCache(), zap.NewNop())

	rate, err := svc.Current(context.Background())
	assert.Nil(t, rate)
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

func TestCurrent_BadBid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"USDBRL":{"bid":"0"}}`))
	}))
	defer srv.Close()

	svc := NewService(srv.URL, time.Minute, cache.NewInMemoryCache(), zap.NewNop())

	_, err := svc.Current(context.Background())
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

func TestCurrent_CancelledCallerDoesNotAbortSharedFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte(`{"USDBRL":{"bid":"5.10","timestamp":"1700000000"}}`))
	}))
	defer srv.Close()

	store := cache.NewInMemoryCache()
	svc := NewService(srv.URL, time.Minute, store, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Current(ctx)
		firstErr <- err
	}()
	<-started

	waiter := make(chan *pricing.Rate, 1)
	go func() {
		rate, _ := svc.Current(context.Background())
		waiter <- rate
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, ErrQuoteUnavailable)
	close(release)

	select {
	case rate := <-waiter:
		require.NotNil(t, rate)
		assert.True(t, decimal.RequireFromString("5.10").Equal(rate.BRLPerUSD))
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never received the shared quote")
	}

	var cached pricing.Rate
	require.NoError(t, cache.GetJSON(context.Background(), store, cacheKey, &cached))
	assert.True(t, decimal.RequireFromString("5.10").Equal(cached.BRLPerUSD))
}
