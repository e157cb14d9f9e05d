// Package backend is the HTTP client for the external HR REST API that owns
// objectives and review-form records. Transport failures are logged and
// surfaced as empty results; callers fall back to cached data.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"reviewcall/internal/domain/review"
	"reviewcall/internal/platform/config"
)

const (
	ViewEmployee = "employee"
	ViewManager  = "manager"
)

// API is the surface the session layer depends on; tests swap in a stub.
type API interface {
	FetchObjectives(ctx context.Context, employeeID string) ([]review.SourceObjective, error)
	FetchReviewForm(ctx context.Context, view, employeeID string) (review.Record, bool, error)
	ListRecords(ctx context.Context) ([]review.Record, error)
	UpdateKeyResultActual(ctx context.Context, keyResultID string, actual float64) error
	UpdateRecord(ctx context.Context, recordID string, payload map[string]any) error
	CreateRecord(ctx context.Context, payload map[string]any) (string, error)
}

type Client struct {
	baseURL        string
	apiKey         string
	objectivesPath string
	reviewFormPath string
	keyResultPath  string
	recordsPath    string
	http           *http.Client
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		baseURL:        strings.TrimRight(cfg.HRAPIBaseURL, "/"),
		apiKey:         cfg.HRAPIKey,
		objectivesPath: cfg.ObjectivesPath,
		reviewFormPath: cfg.ReviewFormPath,
		keyResultPath:  cfg.KeyResultPath,
		recordsPath:    cfg.RecordsPath,
		http:           &http.Client{Timeout: 15 * time.Second},
	}
}

// substitutePath replaces {placeholder} segments in a configured URL path.
func substitutePath(path string, values map[string]string) string {
	for key, value := range values {
		path = strings.ReplaceAll(path, "{"+key+"}", value)
	}
	return path
}

func (c *Client) FetchObjectives(ctx context.Context, employeeID string) ([]review.SourceObjective, error) {
	path := substitutePath(c.objectivesPath, map[string]string{"employeeId": employeeID})
	var objectives []review.SourceObjective
	if err := c.do(ctx, http.MethodGet, path, nil, &objectives); err != nil {
		slog.Warn("objectives fetch failed", "employeeId", employeeID, "err", err)
		return nil, err
	}
	return objectives, nil
}

// FetchReviewForm returns the record for the requested view. The second
// return reports whether the backend had a record at all; a 404 is not an
// error, the caller synthesizes a record from source objectives instead.
func (c *Client) FetchReviewForm(ctx context.Context, view, employeeID string) (review.Record, bool, error) {
	path := substitutePath(c.reviewFormPath, map[string]string{"view": view, "employeeId": employeeID})
	var payload map[string]any
	err := c.do(ctx, http.MethodGet, path, nil, &payload)
	if err != nil {
		if isNotFound(err) {
			return review.Record{}, false, nil
		}
		slog.Warn("review form fetch failed", "view", view, "employeeId", employeeID, "err", err)
		return review.Record{}, false, err
	}
	if len(payload) == 0 {
		return review.Record{}, false, nil
	}
	return review.FromLegacyPayload(payload), true, nil
}

func (c *Client) ListRecords(ctx context.Context) ([]review.Record, error) {
	var payloads []map[string]any
	if err := c.do(ctx, http.MethodGet, c.recordsPath, nil, &payloads); err != nil {
		slog.Warn("record list failed", "err", err)
		return nil, err
	}
	records := make([]review.Record, 0, len(payloads))
	for _, payload := range payloads {
		records = append(records, review.FromLegacyPayload(payload))
	}
	return records, nil
}

func (c *Client) UpdateKeyResultActual(ctx context.Context, keyResultID string, actual float64) error {
	path := substitutePath(c.keyResultPath, map[string]string{"keyResultId": keyResultID})
	body := map[string]any{"actual": actual}
	if err := c.do(ctx, http.MethodPut, path, body, nil); err != nil {
		slog.Warn("key result update failed", "keyResultId", keyResultID, "err", err)
		return err
	}
	return nil
}

func (c *Client) UpdateRecord(ctx context.Context, recordID string, payload map[string]any) error {
	return c.do(ctx, http.MethodPut, c.recordsPath+"/"+recordID, payload, nil)
}

func (c *Client) CreateRecord(ctx context.Context, payload map[string]any) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, c.recordsPath, payload, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.status, e.body)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.status == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{status: resp.StatusCode, body: truncate(string(respBody), 200)}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
