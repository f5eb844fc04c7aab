package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"slabdesk/internal/backend"
	"slabdesk/internal/commands"
	"slabdesk/internal/domain"
	"slabdesk/internal/listing"
	"slabdesk/internal/outreach"
	"slabdesk/internal/pricing"
	"slabdesk/internal/slug"
	apierrors "slabdesk/pkg/errors"
	"slabdesk/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

const testUser = "user-1"

var backendNotFound = apierrors.APIError{Status: http.StatusNotFound, Code: apierrors.CodeNotFound}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// MockInventory implements the inventory API interfaces used by handlers.
type MockInventory struct {
	mock.Mock
}

func (m *MockInventory) ListBatches(ctx context.Context, params listing.Params) (*backend.BatchList, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.BatchList), args.Error(1)
}

func (m *MockInventory) GetBatch(ctx context.Context, id string) (*domain.Batch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Batch), args.Error(1)
}

func (m *MockInventory) ListProducts(ctx context.Context, params listing.Params) (*backend.ProductList, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.ProductList), args.Error(1)
}

func (m *MockInventory) ListSharedInventory(ctx context.Context, params listing.Params) ([]backend.SharedBatch, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]backend.SharedBatch), args.Error(1)
}

func (m *MockInventory) CreateSalesLink(ctx context.Context, req backend.CreateSalesLinkRequest) (*backend.SalesLink, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.SalesLink), args.Error(1)
}

// MockLedger is a mock implementation of Ledger
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Transfer(ctx context.Context, cmd commands.TransferCommand) (*domain.Batch, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Batch), args.Error(1)
}

func (m *MockLedger) Sell(ctx context.Context, cmd commands.SellCommand) (*commands.SaleOutcome, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*commands.SaleOutcome), args.Error(1)
}

// MockRateSource is a mock implementation of RateSource
type MockRateSource struct {
	mock.Mock
}

func (m *MockRateSource) Current(ctx context.Context) (*pricing.Rate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.Rate), args.Error(1)
}

// MockLinkMetrics is a mock implementation of LinkMetrics
type MockLinkMetrics struct {
	mock.Mock
}

func (m *MockLinkMetrics) RecordLinkIssued(linkType string, success bool) {
	m.Called(linkType, success)
}

// MockSender is a mock implementation of Sender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, req outreach.Request) (*outreach.Summary, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outreach.Summary), args.Error(1)
}

// fakeSlugs records slug requests without running lookups.
type fakeSlugs struct {
	mu        sync.Mutex
	requested map[string]string
	forgotten []string
}

func newFakeSlugs() *fakeSlugs {
	return &fakeSlugs{requested: make(map[string]string)}
}

func (f *fakeSlugs) Request(key, s string) slug.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested[key] = s
	return slug.Result{Slug: s, Status: slug.StatusPending, Seq: 1}
}

func (f *fakeSlugs) Latest(key string) (slug.Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.requested[key]
	if !ok {
		return slug.Result{}, false
	}
	return slug.Result{Slug: s, Status: slug.StatusAvailable, Seq: 1}, true
}

func (f *fakeSlugs) Forget(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.requested, key)
	f.forgotten = append(f.forgotten, key)
}

// newTestRouter authenticates every request as user.
func newTestRouter(user string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDContextKey, user)
		c.Set(middleware.AccessTokenContextKey, "token-"+user)
		c.Next()
	})
	router.Use(middleware.ErrorHandler(zap.NewNop()))
	return router
}

func doJSON(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) ErrorResponse {
	var resp ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// testBatch is a 300x200 cm batch priced at 100 per m².
func testBatch(id string, available int, currency pricing.Currency) *domain.Batch {
	b := domain.NewBatch(id, "LOT-"+id,
		decimal.NewFromInt(300), decimal.NewFromInt(200),
		10, pricing.NewMoney(decimal.NewFromInt(100), currency), pricing.M2)
	b.Buckets = domain.Buckets{Available: available, Reserved: 10 - available}
	return b
}
