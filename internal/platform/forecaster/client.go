// Package forecaster is the REST client for the external forecast provider:
// event creation plus validator and community forecast reads.
package forecaster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/forecastwire/foresight/internal/domain"
)

// Client is the REST client for the forecast provider API. All requests carry
// the account API key in the X-API-Key header.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a forecast provider client.
//
// baseURL is the API root, e.g. "https://api.example-forecasts.io".
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateEvent registers a new forecasting event and returns the provider's
// event id. The cutoff is sent in UTC, truncated to whole seconds.
func (c *Client) CreateEvent(ctx context.Context, title, description string, cutoff time.Time) (string, error) {
	body := map[string]any{
		"title":       title,
		"description": description,
		"cutoff":      cutoff.UTC().Truncate(time.Second).Format(time.RFC3339),
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, "/api/v2/events", body)
	if err != nil {
		return "", fmt.Errorf("forecaster: create event: %w", err)
	}

	var created struct {
		EventID *string `json:"event_id"`
	}
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", fmt.Errorf("forecaster: decode create response: %w", err)
	}
	if created.EventID == nil || *created.EventID == "" {
		return "", fmt.Errorf("forecaster: create response missing event_id: %s", string(respBody))
	}

	return *created.EventID, nil
}

// ValidatorForecasts fetches the current per-validator forecast set for an
// event. When the provider reports no forecasts yet (a null predictions
// field), it returns domain.ErrNoForecasts.
func (c *Client) ValidatorForecasts(ctx context.Context, eventID string) (domain.ValidatorForecasts, error) {
	path := fmt.Sprintf("/api/v2/validator/events/%s/predictions", url.PathEscape(eventID))

	respBody, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return domain.ValidatorForecasts{}, fmt.Errorf("forecaster: validator forecasts for %s: %w", eventID, err)
	}

	var parsed struct {
		Predictions *[]struct {
			PredictedOutcome string `json:"predictedOutcome"`
		} `json:"predictions"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return domain.ValidatorForecasts{}, fmt.Errorf("forecaster: decode validator forecasts: %w", err)
	}
	if parsed.Predictions == nil {
		return domain.ValidatorForecasts{}, fmt.Errorf("forecaster: event %s: %w", eventID, domain.ErrNoForecasts)
	}

	outcomes := make([]string, 0, len(*parsed.Predictions))
	for _, p := range *parsed.Predictions {
		outcomes = append(outcomes, p.PredictedOutcome)
	}

	return domain.ValidatorForecasts{Outcomes: outcomes, Raw: respBody}, nil
}

// CommunityForecast fetches the aggregate community score for an event.
func (c *Client) CommunityForecast(ctx context.Context, eventID string) (float64, error) {
	path := fmt.Sprintf("/api/v2/validator/events/%s/community_prediction", url.PathEscape(eventID))

	respBody, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, fmt.Errorf("forecaster: community forecast for %s: %w", eventID, err)
	}

	var parsed struct {
		CommunityPrediction *float64 `json:"community_prediction"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return 0, fmt.Errorf("forecaster: decode community forecast: %w", err)
	}
	if parsed.CommunityPrediction == nil {
		return 0, fmt.Errorf("forecaster: event %s: community_prediction missing", eventID)
	}

	return *parsed.CommunityPrediction, nil
}

// doRequest builds, sends, and reads an HTTP request against the provider
// API. It returns the raw response body.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
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
