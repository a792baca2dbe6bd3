// Package feed pulls market snapshots from the Indodax public ticker
// API. The exchange encodes every numeric field as a string, so each
// entry is parsed defensively: a malformed pair is skipped, never
// fatal to the batch.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"pump-sentinel/internal/domain"
)

// Source returns the current quote for every tracked symbol.
type Source interface {
	FetchAll(ctx context.Context) ([]domain.Quote, error)
}

// Config holds the HTTP feed settings.
type Config struct {
	// BaseURL is the exchange API root, without a trailing slash.
	BaseURL string

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// RequestsPerSecond caps the outbound request rate.
	RequestsPerSecond int

	// MaxElapsedTime bounds the whole retried fetch, including backoff
	// sleeps.
	MaxElapsedTime time.Duration
}

// DefaultConfig returns the production feed settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:           "https://indodax.com",
		Timeout:           10 * time.Second,
		RequestsPerSecond: 2,
		MaxElapsedTime:    30 * time.Second,
	}
}

// IndodaxClient fetches the full ticker board in one request.
type IndodaxClient struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// NewIndodaxClient creates a rate-limited ticker client.
func NewIndodaxClient(cfg Config, log zerolog.Logger) *IndodaxClient {
	return &IndodaxClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), cfg.RequestsPerSecond),
		log:     log.With().Str("component", "feed").Logger(),
	}
}

// Compile-time interface check.
var _ Source = (*IndodaxClient)(nil)

// tickersResponse mirrors the /api/tickers payload. All numbers arrive
// as strings.
type tickersResponse struct {
	Tickers map[string]tickerEntry `json:"tickers"`
}

type tickerEntry struct {
	Last   string `json:"last"`
	VolIDR string `json:"vol_idr"`
}

// FetchAll requests the ticker board and returns one quote per pair.
// Pairs with unparsable fields are skipped and logged.
func (c *IndodaxClient) FetchAll(ctx context.Context) ([]domain.Quote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	url := c.cfg.BaseURL + "/api/tickers"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var resp *http.Response
	operation := func() error {
		var err error
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("non-200 status code: %d", resp.StatusCode)
		}
		return nil
	}

	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.MaxElapsedTime = c.cfg.MaxElapsedTime

	if err := backoff.Retry(operation, backoff.WithContext(backoffStrategy, ctx)); err != nil {
		return nil, fmt.Errorf("after retries: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var payload tickersResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing tickers response: %w", err)
	}

	quotes := make([]domain.Quote, 0, len(payload.Tickers))
	for pair, entry := range payload.Tickers {
		price, err := strconv.ParseFloat(entry.Last, 64)
		if err != nil {
			c.log.Warn().Str("pair", pair).Str("last", entry.Last).Msg("skipping pair with unparsable price")
			continue
		}
		volume, err := strconv.ParseFloat(entry.VolIDR, 64)
		if err != nil {
			c.log.Warn().Str("pair", pair).Str("vol_idr", entry.VolIDR).Msg("skipping pair with unparsable volume")
			continue
		}
		quotes = append(quotes, domain.Quote{
			Symbol: normalizeSymbol(pair),
			Price:  price,
			Volume: volume,
		})
	}

	return quotes, nil
}

// normalizeSymbol turns an exchange pair name like "btc_idr" into the
// stored symbol form "BTCIDR".
func normalizeSymbol(pair string) string {
	return strings.ToUpper(strings.ReplaceAll(pair, "_", ""))
}
