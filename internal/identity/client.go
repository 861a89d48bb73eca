// Package identity is a client for the identity service that resolves
// usernames and ids to user profiles, including the bot flag and the
// reputation fields shown in the directory.
package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/edgard/morebots/internal/config"
	"github.com/edgard/morebots/internal/database"
	"github.com/edgard/morebots/internal/resilience"
)

// ErrNotFound is returned by Lookup when the identity service has no such user.
var ErrNotFound = errors.New("identity not found")

// Profile is a user record as returned by the identity service.
type Profile struct {
	ID              string   `json:"toshi_id"`
	Username        string   `json:"username"`
	IsBot           bool     `json:"is_app"`
	ReputationScore *float64 `json:"reputation_score"`
	AverageRating   *float64 `json:"average_rating"`
	ReviewCount     *int64   `json:"review_count"`
}

// Reputation converts the profile's rating fields to their stored form.
// Absent values stay NULL.
func (p Profile) Reputation() database.Reputation {
	var rep database.Reputation
	if p.ReputationScore != nil {
		rep.ReputationScore = sql.NullFloat64{Float64: *p.ReputationScore, Valid: true}
	}
	if p.AverageRating != nil {
		rep.AverageRating = sql.NullFloat64{Float64: *p.AverageRating, Valid: true}
	}
	if p.ReviewCount != nil {
		rep.ReviewCount = sql.NullInt64{Int64: *p.ReviewCount, Valid: true}
	}
	return rep
}

type batchResponse struct {
	Results []Profile `json:"results"`
}

// Client talks to the identity service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	policy     *resilience.Policy
	batchSize  int
	log        *slog.Logger
}

// NewClient creates an identity service client from configuration.
func NewClient(cfg config.IdentityConfig, log *slog.Logger) (*Client, error) {
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid identity base url %q: %w", cfg.BaseURL, err)
	}
	if log == nil {
		log = slog.Default()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		policy:     resilience.NewPolicy("identity", cfg.Resilience, log),
		batchSize:  batchSize,
		log:        log.With("component", "identity_client"),
	}, nil
}

// Lookup resolves a single username. It returns ErrNotFound when the service
// does not know the user.
func (c *Client) Lookup(ctx context.Context, username string) (*Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}

	endpoint := c.baseURL + "/v1/user/" + url.PathEscape(username)

	var profile Profile
	found, err := c.getJSON(ctx, endpoint, &profile)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", username, err)
	}
	if !found {
		c.log.DebugContext(ctx, "Identity not found", "username", username)
		return nil, ErrNotFound
	}
	return &profile, nil
}

// LookupMany resolves a set of ids in batches. Unknown ids are simply absent
// from the result. A failing batch is logged and skipped so the result may be
// partial; an error is returned only when every batch failed.
func (c *Client) LookupMany(ctx context.Context, ids []string) ([]Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var (
		profiles []Profile
		failed   int
		lastErr  error
	)
	batches := 0
	for start := 0; start < len(ids); start += c.batchSize {
		end := min(start+c.batchSize, len(ids))
		batches++

		query := url.Values{}
		for _, id := range ids[start:end] {
			query.Add("toshi_id", id)
		}

		var resp batchResponse
		_, err := c.getJSON(ctx, c.baseURL+"/v1/user?"+query.Encode(), &resp)
		if err != nil {
			failed++
			lastErr = err
			c.log.WarnContext(ctx, "Identity batch lookup failed", "batch_start", start, "batch_size", end-start, "error", err)
			continue
		}
		profiles = append(profiles, resp.Results...)
	}

	if failed == batches {
		return nil, fmt.Errorf("all %d identity batches failed: %w", batches, lastErr)
	}
	return profiles, nil
}

// getJSON performs a rate limited GET, retrying transient failures, and
// decodes the body into out. It returns false without error on 404.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) (bool, error) {
	var found bool
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		found, err = c.fetch(ctx, endpoint, out)
		return err
	})
	return found, err
}

func (c *Client) fetch(ctx context.Context, endpoint string, out any) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, resilience.Permanent(fmt.Errorf("rate limiter wait: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, resilience.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.log.DebugContext(ctx, "Identity service responded", "status", resp.StatusCode, "duration", time.Since(startTime))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return false, fmt.Errorf("rate limit exceeded (429)")
	case resp.StatusCode >= 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, resilience.Permanent(fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body))))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, resilience.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return true, nil
}
