package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"slabdesk/internal/domain"
	"slabdesk/internal/listing"
	"slabdesk/internal/pricing"
	apierrors "slabdesk/pkg/errors"
	"slabdesk/pkg/middleware"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordRequest(service, operation, status string, duration time.Duration) {
	m.Called(service, operation, status)
}

type recordingObserver struct {
	mu     sync.Mutex
	states []gobreaker.State
}

func (r *recordingObserver) SetCircuitBreakerState(name string, state gobreaker.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	svc := NewServiceClient(server.URL, "inventory", 2*time.Second, zap.NewNop(), nil, opts...)
	return NewClient(svc), server
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestGetBatch_ForwardsCredentialsAndMaps(t *testing.T) {
	var gotAuth, gotRequestID string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get(middleware.RequestIDHeader)
		assert.Equal(t, "/batches/b-1", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":             "b-1",
			"batchCode":      "B1",
			"product":        map[string]string{"id": "p-1", "name": "Granito Preto"},
			"height":         180,
			"width":          "120",
			"thickness":      2,
			"quantitySlabs":  12,
			"industryPrice":  10050,
			"currency":       "BRL",
			"priceUnit":      "M2",
			"availableSlabs": 10,
			"reservedSlabs":  2,
		})
	})

	ctx := middleware.WithRequestID(WithToken(context.Background(), "tok"), "req-1")
	batch, err := client.GetBatch(ctx, "b-1")

	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "req-1", gotRequestID)
	assert.Equal(t, "B1", batch.Code)
	assert.Equal(t, "Granito Preto", batch.ProductName)
	assert.True(t, batch.Height.Equal(decimal.NewFromInt(180)))
	assert.True(t, batch.BasePrice.Amount.Equal(decimal.RequireFromString("100.50")))
	assert.Equal(t, pricing.BRL, batch.BasePrice.Currency)
	assert.Equal(t, 10, batch.Available())
	assert.NoError(t, batch.CheckInvariant())
}

func TestUpdateAvailability_SendsBody(t *testing.T) {
	var got AvailabilityRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/batches/b-1/availability", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, Batch{ID: "b-1", QuantitySlabs: 10, AvailableSlabs: 7, ReservedSlabs: 3})
	})

	batch, err := client.UpdateAvailability(context.Background(), "b-1", domain.StatusAvailable, domain.StatusReserved, 3)

	require.NoError(t, err)
	assert.Equal(t, AvailabilityRequest{Status: "RESERVADO", FromStatus: "DISPONIVEL", Quantity: 3}, got)
	assert.Equal(t, 3, batch.Buckets.Reserved)
}

func TestListBatches_QueryString(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "granito", r.URL.Query().Get("search"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		writeJSON(w, http.StatusOK, BatchList{Batches: []Batch{{ID: "b-1"}}, Total: 11, Page: 2})
	})

	list, err := client.ListBatches(context.Background(), listing.Params{Search: "granito", Page: 2}.Normalize())

	require.NoError(t, err)
	assert.Equal(t, 11, list.Total)
	assert.Len(t, list.Batches, 1)
}

func TestAPIError_Decoded(t *testing.T) {
	metrics := new(MockMetrics)
	metrics.On("RecordRequest", "inventory", "CreateCliente", "client_error").Return()
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"code": "EMAIL_EXISTS", "message": "email in use"})
	}, WithMetrics(metrics))

	_, err := client.CreateCliente(context.Background(), CreateClienteRequest{Name: "Ana", Email: "a@b.com"})

	apiErr, ok := apierrors.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, apierrors.CodeEmailExists, apiErr.Code)
	metrics.AssertExpectations(t)
}

func TestAPIError_NonJSONBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})

	_, err := client.GetBatch(context.Background(), "missing")

	assert.True(t, IsNotFound(err))
}

func TestValidateSlug(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"available": r.URL.Query().Get("slug") != "taken"})
	})

	free, err := client.ValidateSlug(context.Background(), "granito")
	require.NoError(t, err)
	assert.True(t, free)

	free, err = client.ValidateSlug(context.Background(), "taken")
	require.NoError(t, err)
	assert.False(t, free)
}

func TestResendInvite_NoContent(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/u-1/resend-invite", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	assert.NoError(t, client.ResendInvite(context.Background(), "u-1"))
}

func TestBreaker_OpensOnServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, http.StatusInternalServerError, map[string]string{"code": "INTERNAL_ERROR"})
	}))
	defer server.Close()
	observer := &recordingObserver{}
	client := NewClient(NewServiceClient(server.URL, "inventory", time.Second, zap.NewNop(), observer))

	for i := 0; i < 5; i++ {
		_, err := client.GetBatch(context.Background(), "b-1")
		require.Error(t, err)
	}
	_, err := client.GetBatch(context.Background(), "b-1")

	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Equal(t, 5, calls)
	assert.Equal(t, gobreaker.StateOpen, client.ServiceClient().State())
	assert.Contains(t, observer.states, gobreaker.StateOpen)
}

func TestBreaker_IgnoresClientErrors(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"code": "VALIDATION_ERROR"})
	})

	for i := 0; i < 8; i++ {
		_, err := client.GetBatch(context.Background(), "b-1")
		_, isAPI := apierrors.AsAPIError(err)
		assert.True(t, isAPI)
	}

	assert.Equal(t, gobreaker.StateClosed, client.ServiceClient().State())
}

func TestCliente_HasContact(t *testing.T) {
	assert.False(t, Cliente{Name: "Ana"}.HasContact())
	assert.True(t, Cliente{Name: "Ana", Whatsapp: "5527999990000"}.HasContact())
}
