package http

import (
	"fmt"
	"net/http"
	"time"

	"pdfrag/backend/go/internal/config"
	"pdfrag/backend/go/pkg/circuitbreaker"
)

// Client is a custom HTTP client that wraps the standard http.Client
// and provides built-in support for circuit breaking.
type Client struct {
	httpClient *http.Client
	breaker    circuitbreaker.CircuitBreaker
}

// NewClient creates a new Client with a circuit breaker configured.
func NewClient(cfg config.CircuitBreakerConfig, timeout time.Duration) (*Client, error) {
	breaker, err := circuitbreaker.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
	}, nil
}

// NewClientWith wraps an existing http.Client, e.g. one pointed at an httptest server.
func NewClientWith(hc *http.Client, breaker circuitbreaker.CircuitBreaker) *Client {
	if breaker == nil {
		breaker = circuitbreaker.Disabled()
	}
	return &Client{httpClient: hc, breaker: breaker}
}

// Do executes an HTTP request with circuit breaker protection.
// Status codes >= 500 count as breaker failures but the response is still returned
// so callers can read the error body. ErrCircuitOpen is returned without a response.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response

	_, breakerErr := c.breaker.Execute(func() (interface{}, error) {
		var err error
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		// Treat server-side errors as failures for the circuit breaker
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("server error: received status code %d", resp.StatusCode)
		}

		return resp, nil
	})

	if breakerErr != nil {
		if resp != nil && resp.StatusCode >= http.StatusInternalServerError {
			return resp, nil
		}
		return nil, breakerErr
	}

	return resp, nil
}

// State reports the breaker state, used by health checks.
func (c *Client) State() circuitbreaker.State {
	return c.breaker.State()
}
