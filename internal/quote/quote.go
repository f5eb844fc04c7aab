package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"slabdesk/internal/cache"
	"slabdesk/internal/pricing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const cacheKey = "quote:USD-BRL"

var ErrQuoteUnavailable = errors.New("exchange quote unavailable")

// awesomeapi answers {"USDBRL": {"bid": "5.0712", "timestamp": "1700000000", ...}}
type lastQuote struct {
	USDBRL struct {
		Bid       string `json:"bid"`
		Timestamp string `json:"timestamp"`
	} `json:"USDBRL"`
}

// Service fetches the USD/BRL rate and keeps it in the shared cache.
type Service struct {
	url        string
	ttl        time.Duration
	httpClient *http.Client
	cache      cache.Cache
	logger     *zap.Logger
	group      singleflight.Group
}

func NewService(url string, ttl time.Duration, c cache.Cache, logger *zap.Logger) *Service {
	return &Service{
		url:        url,
		ttl:        ttl,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		cache:      c,
		logger:     logger,
	}
}

// Current returns the cached rate or fetches a fresh one. Concurrent misses
// share a single upstream request. Any failure yields ErrQuoteUnavailable and
// callers carry on without conversion.
func (s *Service) Current(ctx context.Context) (*pricing.Rate, error) {
	var rate pricing.Rate
	if err := cache.GetJSON(ctx, s.cache, cacheKey, &rate); err == nil {
		return &rate, nil
	}

	// The shared fetch outlives any single caller; each caller only stops
	// waiting when its own context ends.
	ch := s.group.DoChan(cacheKey, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.Background(), s.httpClient.Timeout)
		defer cancel()

		fetched, err := s.fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		if err := cache.SetJSON(fetchCtx, s.cache, cacheKey, fetched, s.ttl); err != nil {
			s.logger.Warn("Failed to cache exchange quote", zap.Error(err))
		}
		return fetched, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			s.logger.Warn("Exchange quote unavailable", zap.String("url", s.url), zap.Error(res.Err))
			return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, res.Err)
		}
		return res.Val.(*pricing.Rate), nil
	}
}

func (s *Service) fetch(ctx context.Context) (*pricing.Rate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote provider returned %d", resp.StatusCode)
	}

	var body lastQuote
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	bid, err := decimal.NewFromString(body.USDBRL.Bid)
	if err != nil {
		return nil, fmt.Errorf("parse bid %q: %w", body.USDBRL.Bid, err)
	}
	if !bid.IsPositive() {
		return nil, fmt.Errorf("non-positive bid %s", bid)
	}

	fetchedAt := time.Now().UTC()
	if secs, err := decimal.NewFromString(body.USDBRL.Timestamp); err == nil && secs.IsPositive() {
		fetchedAt = time.Unix(secs.IntPart(), 0).UTC()
	}
	return &pricing.Rate{BRLPerUSD: bid, FetchedAt: fetchedAt}, nil
}
