package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// BackoffConfig bounds the retry schedule for store writes.
type BackoffConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultBackoff retries five times over roughly fifteen seconds.
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		MaxAttempts:  5,
		InitialDelay: 500 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     8 * time.Second,
	}
}

// Delay returns the wait before attempt N (1-based).
func (cfg BackoffConfig) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return cfg.InitialDelay
	}
	if cfg.InitialDelay <= 0 {
		return 0
	}
	m := cfg.Multiplier
	if m < 1.0 {
		m = 1.0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(m, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}

// Client talks to the remote record store over HTTP. The store has no
// transactions and no schema; every write is a whole-record upsert keyed by
// id, safe to repeat.
type Client struct {
	httpClient *http.Client
	BaseURL    string
	Backoff    BackoffConfig
}

// NewClient creates a store client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
		BaseURL: baseURL,
		Backoff: DefaultBackoff(),
	}
}

type upsertRequest struct {
	Table string   `json:"table"`
	ID    string   `json:"id"`
	Row   []string `json:"row"`
}

type fetchResponse struct {
	Rows [][]string `json:"rows"`
}

// Upsert writes one record, retrying with growing backoff until the bound
// is exhausted.
func (c *Client) Upsert(ctx context.Context, table, id string, row []string) error {
	body, err := json.Marshal(upsertRequest{Table: table, ID: id, Row: row})
	if err != nil {
		return err
	}
	return c.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			fmt.Sprintf("%s/records/upsert", c.BaseURL), bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		return c.do(req)
	})
}

// Delete removes one record by id.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	return c.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
			fmt.Sprintf("%s/records/%s/%s", c.BaseURL, table, id), nil)
		if err != nil {
			return err
		}
		return c.do(req)
	})
}

// FetchTable returns every row of a table. The first row is the header.
func (c *Client) FetchTable(ctx context.Context, table string) ([][]string, error) {
	var rows [][]string
	err := c.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s/records/%s", c.BaseURL, table), nil)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("store responded %d for table %s", resp.StatusCode, table)
		}
		var fr fetchResponse
		if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
			return err
		}
		rows = fr.Rows
		return nil
	})
	return rows, err
}

func (c *Client) do(req *http.Request) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("store responded %d for %s %s", resp.StatusCode, req.Method, req.URL.Path)
	}
	return nil
}

func (c *Client) withRetry(ctx context.Context, op func() error) error {
	attempts := c.Backoff.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = op(); lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-time.After(c.Backoff.Delay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("store request failed after %d attempts: %w", attempts, lastErr)
}
