package fota

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fleetops/fotasync/internal/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultBaseURL     = "https://api.teltonika.lt"
	defaultHTTPTimeout = 30 * time.Second
	defaultPerPage     = 100

	endpointDevices         = "/devices"
	endpointTasks           = "/tasks"
	endpointTasksBulkCancel = "/tasks/bulkCancel"
	endpointBatches         = "/batches"
	endpointCompanyStats    = "/companies/stats"
)

// Client talks to the FOTA management API with a bearer token. Every call
// fails with either *AuthError or *APIError; callers never see raw transport
// errors.
type Client struct {
	apiToken   string
	baseURL    string
	httpClient *http.Client

	// used for mock test
	doJSONRequestFunc func(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error)
}

// Option customizes client construction.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient constructs a client for the given API token.
func NewClient(apiToken string, opts ...Option) (*Client, error) {
	apiToken = strings.TrimSpace(apiToken)
	if apiToken == "" {
		return nil, errors.New("fota: api token is required")
	}
	client := &Client{
		apiToken:   apiToken,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewClientFromEnv constructs a Client using environment variables.
//
// Required variables:
//   - FOTA_API_TOKEN
//
// Optional variables:
//   - FOTA_BASE_URL (defaults to https://api.teltonika.lt)
func NewClientFromEnv() (*Client, error) {
	token := config.String("FOTA_API_TOKEN", "")
	if token == "" {
		return nil, errors.New("fota: FOTA_API_TOKEN must be set in environment")
	}
	return NewClient(token, WithBaseURL(config.String("FOTA_BASE_URL", "")))
}

// ValidateToken checks the credentials by fetching account statistics.
func (c *Client) ValidateToken(ctx context.Context) error {
	_, err := c.GetCompanyStats(ctx)
	return err
}

// ListDevices fetches one page of the device listing. Records without an
// IMEI are dropped (logged at debug), never fatal.
func (c *Client) ListDevices(ctx context.Context, page, perPage int) (DevicePage, error) {
	envelope, err := c.list(ctx, endpointDevices, page, perPage, nil)
	if err != nil {
		return DevicePage{}, err
	}
	items := make([]Device, 0, len(envelope.Data))
	for _, raw := range envelope.Data {
		device, ok := parseDevice(raw)
		if !ok {
			log.Debug().Msg("fota: dropping device record without imei")
			continue
		}
		items = append(items, device)
	}
	return DevicePage{
		Items:       items,
		CurrentPage: pageOrDefault(envelope.Meta.CurrentPage, page),
		LastPage:    pageOrDefault(envelope.Meta.LastPage, 1),
	}, nil
}

// ListTasks fetches one page of the task listing. Records without a positive
// id are dropped, never fatal.
func (c *Client) ListTasks(ctx context.Context, page, perPage int) (TaskPage, error) {
	envelope, err := c.list(ctx, endpointTasks, page, perPage, nil)
	if err != nil {
		return TaskPage{}, err
	}
	items := make([]Task, 0, len(envelope.Data))
	for _, raw := range envelope.Data {
		task, ok := parseTask(raw)
		if !ok {
			log.Debug().Msg("fota: dropping task record without id")
			continue
		}
		items = append(items, task)
	}
	return TaskPage{
		Items:       items,
		CurrentPage: pageOrDefault(envelope.Meta.CurrentPage, page),
		LastPage:    pageOrDefault(envelope.Meta.LastPage, 1),
	}, nil
}

// GetCompanyStats fetches the account-wide statistics record. Missing fields
// default to zero.
func (c *Client) GetCompanyStats(ctx context.Context) (CompanyStats, error) {
	body, err := c.doJSONRequest(ctx, http.MethodGet, endpointCompanyStats, nil, nil)
	if err != nil {
		return CompanyStats{}, err
	}
	var stats CompanyStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return CompanyStats{}, &APIError{Message: "decode company stats response", Err: err}
	}
	return stats, nil
}

// CancelTasks cancels the given task ids through the bulk-cancel endpoint.
// A single-task cancel is a one-element id list, as the API has no dedicated
// single-cancel route.
func (c *Client) CancelTasks(ctx context.Context, ids []int64) (Ack, error) {
	payload := map[string]any{"id_list": ids}
	return c.doJSONRequest(ctx, http.MethodPost, endpointTasksBulkCancel, nil, payload)
}

// CreateFirmwareTask queues a firmware update task for a device.
func (c *Client) CreateFirmwareTask(ctx context.Context, imei string, firmwareID int64) (Ack, error) {
	payload := map[string]any{
		"imei":        imei,
		"firmware_id": firmwareID,
		"type":        TaskTypeFirmware,
	}
	return c.doJSONRequest(ctx, http.MethodPost, endpointTasks, nil, payload)
}

// CreateConfigTask queues a configuration update task for a device.
func (c *Client) CreateConfigTask(ctx context.Context, imei string, configID int64) (Ack, error) {
	payload := map[string]any{
		"imei":             imei,
		"configuration_id": configID,
		"type":             TaskTypeConfiguration,
	}
	return c.doJSONRequest(ctx, http.MethodPost, endpointTasks, nil, payload)
}

// GetBatch fetches one batch record.
func (c *Client) GetBatch(ctx context.Context, batchID int64) (Ack, error) {
	path := fmt.Sprintf("%s/%d", endpointBatches, batchID)
	return c.doJSONRequest(ctx, http.MethodGet, path, nil, nil)
}

// RetryFailedTasks re-queues the failed tasks of a batch.
func (c *Client) RetryFailedTasks(ctx context.Context, batchID int64) (Ack, error) {
	path := fmt.Sprintf("%s/%d/retryFailedTasks", endpointBatches, batchID)
	return c.doJSONRequest(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) list(ctx context.Context, endpoint string, page, perPage int, extra url.Values) (listEnvelope, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	query := url.Values{}
	for key, values := range extra {
		query[key] = values
	}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))

	body, err := c.doJSONRequest(ctx, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return listEnvelope{}, err
	}
	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return listEnvelope{}, &APIError{Message: "decode listing response", Err: err}
	}
	return envelope, nil
}

func (c *Client) doJSONRequest(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	if c.doJSONRequestFunc != nil {
		return c.doJSONRequestFunc(ctx, method, path, query, payload)
	}
	return c.doJSONRequestInternal(ctx, method, path, query, payload)
}

func (c *Client) doJSONRequestInternal(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var req *http.Request
	var err error
	if payload != nil {
		raw, marshalErr := json.Marshal(payload)
		if marshalErr != nil {
			return nil, &APIError{Message: "marshal request payload", Err: marshalErr}
		}
		req, err = http.NewRequestWithContext(ctx, method, target, bytes.NewReader(raw))
	} else {
		req, err = http.NewRequestWithContext(ctx, method, target, nil)
	}
	if err != nil {
		return nil, &APIError{Message: "build request", Err: err}
	}

	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Message: "execute request", Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Status: resp.StatusCode, Message: "read response", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &AuthError{Status: resp.StatusCode, Message: "invalid or expired API token"}
	case resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{Status: resp.StatusCode, Message: "access forbidden"}
	case resp.StatusCode >= 400:
		return nil, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(rawBody))}
	}

	return rawBody, nil
}

func pageOrDefault(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
