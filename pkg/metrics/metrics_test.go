package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
)

func TestGinMiddleware_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(DefaultConfig("api"))
	router := gin.New()
	router.Use(m.GinMiddleware())
	router.GET("/batches/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/batches/"+id, nil))
	}

	count := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("api", "GET", "/batches/:id", "200"))
	assert.Equal(t, float64(2), count)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.HTTPRequestsInFlight))
}

func TestRecordRequest(t *testing.T) {
	m := New(DefaultConfig("api"))

	m.RecordRequest("inventory", "GET /batches", "error", 10*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.DownstreamRequests.WithLabelValues("api", "inventory", "GET /batches", "error")))
}

func TestRecordOutreach(t *testing.T) {
	m := New(DefaultConfig("api"))

	m.RecordOutreach(3, 1, 2)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.OutreachDelivered.WithLabelValues("api", "sent")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutreachDelivered.WithLabelValues("api", "failed")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.OutreachDelivered.WithLabelValues("api", "skipped")))
}

func TestSetCircuitBreakerState(t *testing.T) {
	m := New(DefaultConfig("api"))

	m.SetCircuitBreakerState("inventory", gobreaker.StateOpen)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("api", "inventory")))
}

func TestHandler_ServesRegistry(t *testing.T) {
	m := New(DefaultConfig("api"))
	m.RecordTransfer("DISPONIVEL", "RESERVADO", true)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "slabdesk_status_transfers_total")
}
