// Package fiat converts fiat amounts to the native payment currency using an
// exchange rate API.
package fiat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/edgard/morebots/internal/config"
	"github.com/edgard/morebots/internal/resilience"
)

type ratesResponse struct {
	Data struct {
		Currency string            `json:"currency"`
		Rates    map[string]string `json:"rates"`
	} `json:"data"`
}

// Client fetches exchange rates for a single native currency.
type Client struct {
	baseURL    string
	native     string
	httpClient *http.Client
	policy     *resilience.Policy
	log        *slog.Logger
}

// NewClient creates a rate client for the configured native payment currency.
func NewClient(cfg config.FiatConfig, nativeCurrency string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		native:     strings.ToUpper(nativeCurrency),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		policy:     resilience.NewPolicy("fiat", cfg.Resilience, log),
		log:        log.With("component", "fiat_client"),
	}
}

// ToNative converts amount of the fiat currency into the native currency.
func (c *Client) ToNative(ctx context.Context, fiatCurrency string, amount float64) (float64, error) {
	fiatCurrency = strings.ToUpper(fiatCurrency)
	if fiatCurrency == c.native {
		return amount, nil
	}

	var rate float64
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		rate, err = c.rate(ctx, fiatCurrency)
		return err
	})
	if err != nil {
		return 0, err
	}
	return amount / rate, nil
}

// rate returns how many units of fiatCurrency one native unit is worth.
func (c *Client) rate(ctx context.Context, fiatCurrency string) (float64, error) {
	endpoint := c.baseURL + "?" + url.Values{"currency": {c.native}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, resilience.Permanent(fmt.Errorf("create rates request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rates request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("rates request failed with status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, resilience.Permanent(fmt.Errorf("decode rates: %w", err))
	}

	raw, ok := payload.Data.Rates[fiatCurrency]
	if !ok {
		return 0, resilience.Permanent(fmt.Errorf("no %s rate for %s", fiatCurrency, c.native))
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, resilience.Permanent(fmt.Errorf("parse %s rate %q: %w", fiatCurrency, raw, err))
	}
	if rate <= 0 {
		return 0, resilience.Permanent(fmt.Errorf("non-positive %s rate %v", fiatCurrency, rate))
	}

	c.log.DebugContext(ctx, "Fetched exchange rate", "native", c.native, "fiat", fiatCurrency, "rate", rate)
	return rate, nil
}
