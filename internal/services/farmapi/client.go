// Package farmapi talks to the FarmBot web app REST API.
package farmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/farmbot-watering/pkg/circuit"
	"github.com/LeonardoBeccarini/farmbot-watering/pkg/logging"
)

var L = logging.Logger

// DefaultServer is the hosted web app.
const DefaultServer = "https://my.farm.bot"

// StatusError is a non-2xx answer of the web app.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client wraps every call in a circuit breaker, so a web app outage fails
// fast instead of stalling each cycle on its timeout.
type Client struct {
	server  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewClient(server string, timeout time.Duration, breaker *gobreaker.CircuitBreaker) *Client {
	server = strings.TrimRight(strings.TrimSpace(server), "/")
	if server == "" {
		server = DefaultServer
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if breaker == nil {
		breaker = circuit.New("farmbot-api", circuit.Settings{})
	}
	return &Client{
		server:  server,
		http:    &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

// Server is the base URL requests go to.
func (c *Client) Server() string { return c.server }

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, token, in, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.server+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	L.Debug("farmbot api", "method", method, "path", path, "status", resp.StatusCode, "ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
