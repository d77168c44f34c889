package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/policycow/cowmcp/engine/core"
	"github.com/policycow/cowmcp/pkg/config"
	"github.com/policycow/cowmcp/pkg/logger"
)

// API endpoint paths on the compliance backend.
const (
	PathTasks                 = "v1/rule-tasks"
	PathUploadFile            = "v1/rules/file-upload"
	PathRules                 = "v1/rules"
	PathAssessments           = "v1/plans"
	PathAssessmentCategories  = "v1/plan-categories"
	PathPlanInstances         = "v1/plan-instances"
	PathPlanInstanceControls  = "v1/plan-instance-controls"
	PathPlanInstanceEvidences = "v1/plan-instance-evidences"
	PathDataHandlerFetchData  = "v1/data-handler/fetch-data"
	PathAvailableActions      = "v1/available-actions"
	PathActionExecutions      = "v1/action-executions"
	PathAssessmentImport      = "v1/assessments"
	PathPlanControls          = "v1/plan-controls"
	PathCitationsBatch        = "v1/plan-control-citations/batch"
	PathSyncControlLinks      = "v1/plans/sync-ccfid"
	PathSimilarControls       = "v1/similar-controls"
	PathControlSourceSummary  = "v1/plan-controls/fetch-source-summary"
	PathSampleEvidenceData    = "v1/plan-controls/fetch-sample-evidence-data"
	PathAssessmentContext     = "v1/servicenow/entities"
	PathFiles                 = "v1/files"
	PathGraphSchema           = "v1/graph/unique-node-data-and-schema"
)

// Client provides HTTP access to the compliance backend. Every call uses a
// fixed timeout and surfaces failures through the gateway's error taxonomy;
// nothing is retried automatically.
type Client struct {
	http           *resty.Client
	maxPageFetches int
}

// errorEnvelope is the backend's error response body.
type errorEnvelope struct {
	Message     string `json:"Message"`
	Description string `json:"Description"`
	Error       string `json:"error"`
}

// New creates a backend client from configuration.
func New(cfg *config.BackendConfig) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token := cfg.AuthToken.Value(); token != "" {
		httpClient.SetHeader("Authorization", token)
	}
	maxPages := cfg.MaxPageFetches
	if maxPages < 1 {
		maxPages = 1
	}
	return &Client{http: httpClient, maxPageFetches: maxPages}
}

// MaxPageFetches returns the bound on sequential page fetches for listing
// operations.
func (c *Client) MaxPageFetches() int {
	return c.maxPageFetches
}

// BaseURL returns the configured backend base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.http.BaseURL
}

// Get performs a GET request and returns the raw response body.
func (c *Client) Get(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	log := logger.FromContext(ctx)
	log.Debug("backend GET", "path", path, "query", query)

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return nil, c.transportError("GET", path, err)
	}
	return c.decodeResponse("GET", path, resp)
}

// Post performs a POST request with a JSON body and returns the raw
// response body.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	log := logger.FromContext(ctx)
	log.Debug("backend POST", "path", path)

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		return nil, c.transportError("POST", path, err)
	}
	return c.decodeResponse("POST", path, resp)
}

// GetJSON performs a GET request and unmarshals the response into out.
func (c *Client) GetJSON(ctx context.Context, path string, query map[string]string, out any) error {
	body, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return core.Backendf("malformed response from %s: %v", path, err)
	}
	return nil
}

// PostJSON performs a POST request and unmarshals the response into out.
func (c *Client) PostJSON(ctx context.Context, path string, reqBody, out any) error {
	body, err := c.Post(ctx, path, reqBody)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return core.Backendf("malformed response from %s: %v", path, err)
	}
	return nil
}

func (c *Client) transportError(method, path string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s %s did not respond within the deadline", core.ErrTimeout, method, path)
	}
	return core.Backendf("%s %s failed: %v", method, path, err)
}

func (c *Client) decodeResponse(method, path string, resp *resty.Response) ([]byte, error) {
	if resp.IsError() {
		envelope := &errorEnvelope{}
		if err := json.Unmarshal(resp.Body(), envelope); err == nil {
			if msg := envelope.message(); msg != "" {
				return nil, core.Backendf("%s %s returned status %d: %s", method, path, resp.StatusCode(), msg)
			}
		}
		return nil, core.Backendf("%s %s returned status %d: %s", method, path, resp.StatusCode(), resp.String())
	}
	return resp.Body(), nil
}

func (e *errorEnvelope) message() string {
	switch {
	case e.Message != "" && e.Description != "":
		return e.Message + ": " + e.Description
	case e.Message != "":
		return e.Message
	case e.Description != "":
		return e.Description
	default:
		return e.Error
	}
}
