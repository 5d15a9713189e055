// Package client provides a Go client for the nhood REST API.
//
// It offers a type-safe way to perform all major operations, including:
//   - Dataset management (Create, List, Delete).
//   - Starting asynchronous corrections and waiting for their tasks.
//   - Retrieving adjusted p-values, full vectors or threshold queries.
//
// The client handles HTTP communication, JSON serialization/deserialization,
// and standardized error handling. Missing p-values travel as JSON null on
// both directions, matching the server's wire format.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// --- Custom Errors ---

// APIError represents an error returned by the nhood API (status >= 400).
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// --- JSON Request/Response Structs ---

// DatasetCreateRequest loads one analysis into the server's store.
type DatasetCreateRequest struct {
	Name string `json:"name"`
	// Edges of the KNN graph as [from, to] vertex-id pairs.
	Edges [][2]int `json:"edges"`
	// Neighbourhoods as vertex-id lists, aligned with PValues.
	Neighbourhoods [][]int `json:"neighbourhoods"`
	// Indices optionally gives each neighbourhood's index vertex.
	Indices []int `json:"indices,omitempty"`
	// PValues from the differential-abundance test; nil = missing.
	PValues []*float64 `json:"p_values"`
	// ReducedDims optionally carries per-cell embedding rows (by vertex id).
	ReducedDims [][]float64 `json:"reduced_dims,omitempty"`
	// Precision overrides the server's reduced-dims storage
	// ("float64" or "float16").
	Precision string `json:"precision,omitempty"`
}

// CorrectionRequest selects the weighting policy for a correction run.
type CorrectionRequest struct {
	Weighting string `json:"weighting,omitempty"`
	K         int    `json:"k,omitempty"`
}

// DatasetInfo summarizes one stored dataset.
type DatasetInfo struct {
	Name           string `json:"name"`
	Neighbourhoods int    `json:"neighbourhoods"`
	HasReducedDims bool   `json:"has_reduced_dims"`
	HasIndices     bool   `json:"has_indices"`
}

// Results carries the full adjusted vector for a dataset; nil entries are
// neighbourhoods whose input p-value was missing.
type Results struct {
	Dataset    string     `json:"dataset"`
	Weighting  string     `json:"weighting"`
	SpatialFDR []*float64 `json:"spatial_fdr"`
}

// ResultItem is one neighbourhood passing a threshold query.
type ResultItem struct {
	Nhood      int     `json:"nhood"`
	SpatialFDR float64 `json:"spatial_fdr"`
}

type resultQueryResponse struct {
	Dataset   string       `json:"dataset"`
	Weighting string       `json:"weighting"`
	MaxFDR    float64      `json:"max_fdr"`
	Items     []ResultItem `json:"items"`
}

type taskStartedResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// Task represents an asynchronous correction on the nhood server.
type Task struct {
	ID        string `json:"id"`
	Dataset   string `json:"dataset"`
	Weighting string `json:"weighting"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`

	client *Client // Reference to the client for polling.
}

// --- Client ---

// Client is the Go client for the nhood server.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// New creates a new nhood client.
func New(host string, port int) *Client {
	return &Client{
		baseURL:    fmt.Sprintf("http://%s:%d", host, port),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewWithBaseURL creates a client against a full base URL, useful for
// TLS-terminating proxies and test servers.
func NewWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SetAuthToken configures the Bearer token sent with every request.
func (c *Client) SetAuthToken(token string) {
	c.authToken = token
}

// jsonRequest is a helper method to execute all requests to the API.
// It handles JSON serialization, HTTP calls, and error management.
func (c *Client) jsonRequest(method, endpoint string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON payload: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connection error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		if json.Unmarshal(respBody, &errResp) == nil && errResp["error"] != "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: errResp["error"]}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	return respBody, nil
}

// --- Dataset Methods ---

// CreateDataset loads a dataset on the server.
func (c *Client) CreateDataset(req *DatasetCreateRequest) error {
	_, err := c.jsonRequest(http.MethodPost, "/datasets", req)
	return err
}

// ListDatasets returns a summary of every stored dataset.
func (c *Client) ListDatasets() ([]DatasetInfo, error) {
	respBody, err := c.jsonRequest(http.MethodGet, "/datasets", nil)
	if err != nil {
		return nil, err
	}
	var infos []DatasetInfo
	if err := json.Unmarshal(respBody, &infos); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset list: %w", err)
	}
	return infos, nil
}

// DeleteDataset removes a dataset and its results.
func (c *Client) DeleteDataset(name string) error {
	_, err := c.jsonRequest(http.MethodDelete, "/datasets/"+name, nil)
	return err
}

// --- Correction Methods ---

// Correct starts an asynchronous correction run and returns its task.
// A nil request uses the server's configured defaults.
func (c *Client) Correct(dataset string, req *CorrectionRequest) (*Task, error) {
	if req == nil {
		req = &CorrectionRequest{}
	}
	respBody, err := c.jsonRequest(http.MethodPost, "/datasets/"+dataset+"/correct", req)
	if err != nil {
		return nil, err
	}
	var started taskStartedResponse
	if err := json.Unmarshal(respBody, &started); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task response: %w", err)
	}
	return &Task{ID: started.TaskID, Dataset: dataset, Status: started.Status, client: c}, nil
}

// GetTaskStatus retrieves the current state of an asynchronous task.
func (c *Client) GetTaskStatus(id string) (*Task, error) {
	respBody, err := c.jsonRequest(http.MethodGet, "/tasks/"+id, nil)
	if err != nil {
		return nil, err
	}
	var task Task
	if err := json.Unmarshal(respBody, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	task.client = c
	return &task, nil
}

// Refresh updates the task's status by querying the server.
func (t *Task) Refresh() error {
	if t.client == nil {
		return fmt.Errorf("client is not associated with the task")
	}
	updated, err := t.client.GetTaskStatus(t.ID)
	if err != nil {
		return err
	}
	t.Status = updated.Status
	t.Error = updated.Error
	return nil
}

// Wait blocks until the task is completed, checking its status at regular intervals.
func (t *Task) Wait(interval, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-timer.C:
			return fmt.Errorf("timeout exceeded while waiting for task %s", t.ID)
		case <-ticker.C:
			if err := t.Refresh(); err != nil {
				return err
			}
			switch t.Status {
			case "completed":
				return nil
			case "failed":
				return fmt.Errorf("task %s failed with error: %s", t.ID, t.Error)
			case "running", "started":
				// Continue waiting.
			default:
				return fmt.Errorf("unknown task status: %s", t.Status)
			}
		}
	}
}

// --- Result Methods ---

// Results fetches the full adjusted p-value vector for a dataset.
func (c *Client) Results(dataset string) (*Results, error) {
	respBody, err := c.jsonRequest(http.MethodGet, "/datasets/"+dataset+"/results", nil)
	if err != nil {
		return nil, err
	}
	var res Results
	if err := json.Unmarshal(respBody, &res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal results: %w", err)
	}
	return &res, nil
}

// QueryResults returns the neighbourhoods with an adjusted p-value at or
// below maxFDR, sorted ascending.
func (c *Client) QueryResults(dataset string, maxFDR float64) ([]ResultItem, error) {
	endpoint := fmt.Sprintf("/datasets/%s/results?max_fdr=%g", dataset, maxFDR)
	respBody, err := c.jsonRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var resp resultQueryResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal query response: %w", err)
	}
	return resp.Items, nil
}
