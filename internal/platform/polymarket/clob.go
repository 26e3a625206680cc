// Package polymarket is the REST client for the Polymarket CLOB (Central
// Limit Order Book) listing API. Only the public, unauthenticated market
// listing endpoint is used.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/forecastwire/foresight/internal/domain"
)

// ClobClient is the REST client for the Polymarket CLOB API.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
func NewClobClient(baseURL string) *ClobClient {
	return &ClobClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListMarkets fetches one page of the cursor-paginated market listing. An
// empty cursor asks for the first page; the returned page carries the cursor
// for the next one.
func (c *ClobClient) ListMarkets(ctx context.Context, cursor string) (domain.MarketsPage, error) {
	path := "/markets"
	if cursor != "" {
		path += "?next_cursor=" + url.QueryEscape(cursor)
	}

	respBody, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return domain.MarketsPage{}, fmt.Errorf("polymarket/clob: list markets: %w", err)
	}

	var page domain.MarketsPage
	if err := json.Unmarshal(respBody, &page); err != nil {
		return domain.MarketsPage{}, fmt.Errorf("polymarket/clob: decode markets page: %w", err)
	}

	return page, nil
}

// doRequest builds, sends, and reads an HTTP request against the CLOB API.
// It returns the raw response body.
func (c *ClobClient) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
