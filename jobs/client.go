package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/agentgrid/relay/logging"
)

// Status is the lifecycle state of a submitted job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status ends the poll loop.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// JobStatus is one poll snapshot. ResultURL is set once the job succeeded,
// Reason once it failed.
type JobStatus struct {
	ID        string
	Status    Status
	ResultURL string
	Reason    string
	CreatedAt int64
	UpdatedAt int64
}

// Client submits jobs and follows them to completion.
type Client interface {
	Submit(ctx context.Context, payload map[string]any) (string, error)
	Poll(ctx context.Context, jobID string) (*JobStatus, error)
	Await(ctx context.Context, jobID string) (*JobStatus, error)
	Download(ctx context.Context, url, path string) error
}

// Options configure an HTTPClient.
type Options struct {
	// HTTPClient is the underlying transport. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// APIKey is sent as a bearer token when set.
	APIKey string

	// PollInterval is the fixed delay between polls. Defaults to 5s.
	PollInterval time.Duration

	// MaxPolls bounds how many polls Await performs before giving up with
	// ErrPollBudgetExceeded. Zero waits for as long as the context allows.
	MaxPolls int

	// ResultURLField names the key inside the job result object holding
	// the asset URL. Defaults to "video_url".
	ResultURLField string

	// Logger receives poll diagnostics.
	Logger logging.Logger
}

// HTTPClient drives a JSON job service: POST base to submit, GET base/<id>
// to poll.
type HTTPClient struct {
	baseURL        string
	httpc          *http.Client
	apiKey         string
	pollInterval   time.Duration
	maxPolls       int
	resultURLField string
	logger         logging.Logger
}

// NewHTTPClient creates a client for the job service at baseURL.
func NewHTTPClient(baseURL string, optFns ...func(o *Options)) *HTTPClient {
	opts := Options{
		HTTPClient:     http.DefaultClient,
		PollInterval:   5 * time.Second,
		ResultURLField: "video_url",
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &HTTPClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpc:          opts.HTTPClient,
		apiKey:         opts.APIKey,
		pollInterval:   opts.PollInterval,
		maxPolls:       opts.MaxPolls,
		resultURLField: opts.ResultURLField,
		logger:         opts.Logger,
	}
}

// Submit creates a job and returns its id.
func (c *HTTPClient) Submit(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal job payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build submit request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("submit job: unexpected status %d", resp.StatusCode)
	}

	var created struct {
		TaskID string `json:"task_id"`
		ID     string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}

	jobID := created.TaskID
	if jobID == "" {
		jobID = created.ID
	}
	if jobID == "" {
		return "", fmt.Errorf("submit job: response carries no job id")
	}

	c.logger.Debug("jobs.submitted", "job_id", jobID)

	return jobID, nil
}

// pollResponse tolerates both result and content as the payload container;
// the service moved the field between versions.
type pollResponse struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	Result    map[string]any `json:"result"`
	Content   map[string]any `json:"content"`
	CreatedAt int64          `json:"created_at"`
	UpdatedAt int64          `json:"updated_at"`
	Error     *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Poll fetches one status snapshot for the job.
func (c *HTTPClient) Poll(ctx context.Context, jobID string) (*JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("build poll request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll job %s: %w", jobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll job %s: unexpected status %d", jobID, resp.StatusCode)
	}

	var raw pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode poll response for job %s: %w", jobID, err)
	}

	st := &JobStatus{
		ID:        raw.ID,
		Status:    Status(raw.Status),
		ResultURL: c.resultURL(raw),
		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,
	}
	if st.ID == "" {
		st.ID = jobID
	}
	if raw.Error != nil {
		st.Reason = raw.Error.Message
	}

	c.logger.Debug("jobs.polled",
		"job_id", st.ID,
		"status", string(st.Status),
		"waited", st.UpdatedAt-st.CreatedAt,
	)

	return st, nil
}

func (c *HTTPClient) resultURL(raw pollResponse) string {
	if url, ok := raw.Result[c.resultURLField].(string); ok {
		return url
	}
	if url, ok := raw.Content[c.resultURLField].(string); ok {
		return url
	}
	return ""
}

// Await polls the job on the configured interval until it turns terminal.
// A succeeded job is returned; a failed one becomes an ErrJobFailed error
// carrying its reason. With a poll budget set, running out returns
// ErrPollBudgetExceeded.
func (c *HTTPClient) Await(ctx context.Context, jobID string) (*JobStatus, error) {
	for polls := 0; ; {
		st, err := c.Poll(ctx, jobID)
		if err != nil {
			return nil, err
		}
		polls++

		switch st.Status {
		case StatusSucceeded:
			if st.ResultURL == "" {
				return nil, fmt.Errorf("job %s succeeded without a result url", jobID)
			}
			return st, nil

		case StatusFailed:
			if st.Reason != "" {
				return nil, fmt.Errorf("job %s: %s: %w", jobID, st.Reason, ErrJobFailed)
			}
			return nil, fmt.Errorf("job %s: %w", jobID, ErrJobFailed)

		case StatusQueued, StatusRunning:
			if c.maxPolls > 0 && polls >= c.maxPolls {
				return nil, fmt.Errorf("job %s still %s after %d polls: %w", jobID, st.Status, polls, ErrPollBudgetExceeded)
			}

		default:
			return nil, fmt.Errorf("job %s: unknown status %q", jobID, st.Status)
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Download streams the asset at url into path.
func (c *HTTPClient) Download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %d", url, resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	c.logger.Info("jobs.downloaded", "url", url, "path", path)

	return nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

var _ Client = (*HTTPClient)(nil)
