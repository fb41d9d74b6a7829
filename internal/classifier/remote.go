package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Veraticus/ecolens/internal/common"
	"github.com/Veraticus/ecolens/internal/model"
	"github.com/Veraticus/ecolens/internal/service"
)

// remoteClient talks to a generic HTTP inference endpoint.
//
//	GET  {endpoint}/healthz   -> 200 once the model is warm
//	POST {endpoint}/classify  {"image": base64, "mime": "...", "top_k": n}
//	                          -> {"predictions": [{"label": "...", "confidence": 0.9}]}
type remoteClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	retryOpts  service.RetryOptions
	topK       int
}

type remoteRequest struct {
	Image string `json:"image"`
	MIME  string `json:"mime,omitempty"`
	TopK  int    `json:"top_k"`
}

type remoteResponse struct {
	Predictions model.Predictions `json:"predictions"`
}

func newRemoteLoader(cfg Config) (LoadFunc, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: classifier.endpoint is required for the remote provider", common.ErrMissingConfig)
	}

	return func(ctx context.Context) (Model, error) {
		c := &remoteClient{
			httpClient: cfg.httpClient(),
			endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
			apiKey:     cfg.APIKey,
			retryOpts:  cfg.retryOptions(),
			topK:       cfg.maxResults(),
		}

		if err := common.WithRetry(ctx, func() error {
			return c.healthCheck(ctx)
		}, c.retryOpts); err != nil {
			return nil, fmt.Errorf("inference endpoint not ready: %w", err)
		}

		return c, nil
	}, nil
}

func (c *remoteClient) healthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/healthz", nil)
	if err != nil {
		return &common.RetryableError{Err: fmt.Errorf("failed to create request: %w", err), Retryable: false}
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &common.RetryableError{Err: fmt.Errorf("request failed: %w", err), Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, "health check")
	}
	return nil
}

// Classify sends a frame to the inference endpoint.
func (c *remoteClient) Classify(ctx context.Context, frame model.Frame) (model.Predictions, error) {
	body, err := json.Marshal(remoteRequest{
		Image: base64.StdEncoding.EncodeToString(frame.Data),
		MIME:  frame.MIME,
		TopK:  c.topK,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var preds model.Predictions
	err = common.WithRetry(ctx, func() error {
		var callErr error
		preds, callErr = c.classifyOnce(ctx, body)
		return callErr
	}, c.retryOpts)
	if err != nil {
		return nil, err
	}
	return preds, nil
}

func (c *remoteClient) classifyOnce(ctx context.Context, body []byte) (model.Predictions, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/classify", bytes.NewReader(body))
	if err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("failed to create request: %w", err), Retryable: false}
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("request failed: %w", err), Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("failed to read response: %w", err), Retryable: true}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", statusError(resp.StatusCode, "classify"), strings.TrimSpace(string(respBody)))
	}

	var parsed remoteResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("failed to parse response: %w", err), Retryable: false}
	}

	return parsed.Predictions, nil
}

func (c *remoteClient) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// statusError classifies an HTTP status for the retry loop: 429 is a rate
// limit, other 4xx are permanent, everything else is retried.
func statusError(status int, op string) error {
	err := fmt.Errorf("%s: inference endpoint returned status %d", op, status)
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case status >= 400 && status < 500:
		return &common.RetryableError{Err: err, Retryable: false}
	default:
		return &common.RetryableError{Err: err, Retryable: true}
	}
}
