package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tmplq/pkg/api"
)

// Client handles API calls to the tmplq server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    []string
	// RetryAfter is the server's Retry-After header, if any.
	RetryAfter string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
	if len(e.Details) > 0 {
		msg += " [" + strings.Join(e.Details, "; ") + "]"
	}
	if e.RetryAfter != "" {
		msg += fmt.Sprintf(" (retry after %ss)", e.RetryAfter)
	}
	return msg
}

// do sends a request and decodes a 2xx JSON response into out.
func (c *Client) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Add("Accept", "application/json")
	if body != nil {
		httpReq.Header.Add("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp, respBody)
	}

	if out == nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(respBody))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		RetryAfter: resp.Header.Get("Retry-After"),
	}
	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		apiErr.Code = errResp.Code
		apiErr.Message = errResp.Error
		apiErr.Details = errResp.Details
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

// CreateTemplate sends POST /templates.
func (c *Client) CreateTemplate(req api.CreateTemplateRequest) (*api.TemplateIDResponse, error) {
	var result api.TemplateIDResponse
	if err := c.do(http.MethodPost, "/templates", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateTemplate sends PUT /templates/{id}.
func (c *Client) UpdateTemplate(id string, req api.UpdateTemplateRequest) (*api.TemplateIDResponse, error) {
	var result api.TemplateIDResponse
	if err := c.do(http.MethodPut, "/templates/"+url.PathEscape(id), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTemplate sends GET /templates/{id}.
func (c *Client) GetTemplate(id string) (*api.TemplateResponse, error) {
	var result api.TemplateResponse
	if err := c.do(http.MethodGet, "/templates/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListTemplates sends GET /templates.
func (c *Client) ListTemplates() ([]api.TemplateResponse, error) {
	var result []api.TemplateResponse
	if err := c.do(http.MethodGet, "/templates", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteTemplate sends DELETE /templates/{id}.
func (c *Client) DeleteTemplate(id string) error {
	return c.do(http.MethodDelete, "/templates/"+url.PathEscape(id), nil, nil)
}

// SubmitJob sends POST /jobs to enqueue a render job.
func (c *Client) SubmitJob(req api.SubmitJobRequest) (*api.SubmitJobResponse, error) {
	var result api.SubmitJobResponse
	if err := c.do(http.MethodPost, "/jobs", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetJob sends GET /jobs/{id}.
func (c *Client) GetJob(id int64) (*api.JobResponse, error) {
	var result api.JobResponse
	if err := c.do(http.MethodGet, "/jobs/"+strconv.FormatInt(id, 10), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListJobs sends GET /jobs.
func (c *Client) ListJobs() ([]api.JobSummary, error) {
	var result []api.JobSummary
	if err := c.do(http.MethodGet, "/jobs", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// History sends GET /history. Entries are newest first.
func (c *Client) History() ([]api.HistoryEntry, error) {
	var result []api.HistoryEntry
	if err := c.do(http.MethodGet, "/history", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetConfig sends GET /config.
func (c *Client) GetConfig() (*api.Settings, error) {
	var result api.Settings
	if err := c.do(http.MethodGet, "/config", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateConfig sends PATCH /config with a partial settings object.
func (c *Client) UpdateConfig(patch map[string]any) (*api.UpdateConfigResponse, error) {
	var result api.UpdateConfigResponse
	if err := c.do(http.MethodPatch, "/config", patch, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Stats sends GET /stats.
func (c *Client) Stats() (*api.StatsResponse, error) {
	var result api.StatsResponse
	if err := c.do(http.MethodGet, "/stats", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
