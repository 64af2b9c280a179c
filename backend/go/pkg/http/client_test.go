package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pdfrag/backend/go/pkg/circuitbreaker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientOpensAfterServerErrors(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer ts.Close()

	client := NewClientWith(ts.Client(), circuitbreaker.New(2, 1, time.Minute))

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
		resp, err := client.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		resp.Body.Close()
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	_, err := client.Do(req)
	assert.True(t, errors.Is(err, circuitbreaker.ErrCircuitOpen))
	assert.Equal(t, 2, calls)
	assert.Equal(t, circuitbreaker.Open, client.State())
}
