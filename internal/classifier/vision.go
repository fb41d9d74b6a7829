package classifier

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/Veraticus/ecolens/internal/common"
	"github.com/Veraticus/ecolens/internal/model"
	"github.com/Veraticus/ecolens/internal/service"
)

// visionModel classifies frames with Cloud Vision label detection.
type visionModel struct {
	svc        *vision.Service
	retryOpts  service.RetryOptions
	maxResults int64
}

func newVisionLoader(cfg Config) LoadFunc {
	return func(ctx context.Context) (Model, error) {
		opts, err := visionOptions(ctx, cfg)
		if err != nil {
			return nil, err
		}

		svc, err := vision.NewService(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create vision service: %w", err)
		}

		return &visionModel{
			svc:        svc,
			retryOpts:  cfg.retryOptions(),
			maxResults: int64(cfg.maxResults()),
		}, nil
	}
}

// visionOptions builds client options from, in order of preference, an
// injected HTTP client, an API key, a service account file, or application
// default credentials.
func visionOptions(ctx context.Context, cfg Config) ([]option.ClientOption, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	switch {
	case cfg.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, vision.CloudVisionScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credentials: %w", err)
		}
		opts = append(opts, option.WithTokenSource(creds.TokenSource))
	default:
		creds, err := google.FindDefaultCredentials(ctx, vision.CloudVisionScope)
		if err != nil {
			return nil, fmt.Errorf("%w: no vision credentials configured: %w", common.ErrMissingConfig, err)
		}
		opts = append(opts, option.WithTokenSource(creds.TokenSource))
	}

	return opts, nil
}

// Classify implements Model.
func (m *visionModel) Classify(ctx context.Context, frame model.Frame) (model.Predictions, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image: &vision.Image{Content: base64.StdEncoding.EncodeToString(frame.Data)},
			Features: []*vision.Feature{{
				Type:       "LABEL_DETECTION",
				MaxResults: m.maxResults,
			}},
		}},
	}

	var resp *vision.BatchAnnotateImagesResponse
	err := common.WithRetry(ctx, func() error {
		var callErr error
		resp, callErr = m.svc.Images.Annotate(req).Context(ctx).Do()
		return classifyVisionError(callErr)
	}, m.retryOpts)
	if err != nil {
		return nil, err
	}

	if len(resp.Responses) == 0 {
		return model.Predictions{}, nil
	}

	annotated := resp.Responses[0]
	if annotated.Error != nil && annotated.Error.Code != 0 {
		return nil, fmt.Errorf("vision annotate failed: %s (code %d)", annotated.Error.Message, annotated.Error.Code)
	}

	preds := make(model.Predictions, 0, len(annotated.LabelAnnotations))
	for _, label := range annotated.LabelAnnotations {
		preds = append(preds, model.Prediction{
			Label:      strings.ToLower(label.Description),
			Confidence: label.Score,
		})
	}
	return preds, nil
}

func classifyVisionError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
		case apiErr.Code >= 400 && apiErr.Code < 500:
			return &common.RetryableError{Err: err, Retryable: false}
		}
	}
	return &common.RetryableError{Err: err, Retryable: true}
}
