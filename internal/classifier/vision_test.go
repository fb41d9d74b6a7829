package classifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/ecolens/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVisionServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "images:annotate"), r.URL.Path)

		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var req map[string]any
		assert.NoError(t, json.Unmarshal(raw, &req))
		assert.Contains(t, string(raw), "LABEL_DETECTION")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
}

func loadVision(t *testing.T, ts *httptest.Server) Model {
	t.Helper()
	m, err := newVisionLoader(Config{
		Provider:   ProviderVision,
		Endpoint:   ts.URL + "/",
		HTTPClient: ts.Client(),
		MaxResults: 5,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})(context.Background())
	require.NoError(t, err)
	return m
}

func TestVision_Classify(t *testing.T) {
	ts := newVisionServer(t, http.StatusOK, `{"responses": [{"labelAnnotations": [
		{"description": "Plastic bottle", "score": 0.93},
		{"description": "Water", "score": 0.61}
	]}]}`)
	defer ts.Close()

	preds, err := loadVision(t, ts).Classify(context.Background(), model.Frame{Data: []byte("img")})
	require.NoError(t, err)

	assert.Equal(t, model.Predictions{
		{Label: "plastic bottle", Confidence: 0.93},
		{Label: "water", Confidence: 0.61},
	}, preds)
}

func TestVision_NoLabels(t *testing.T) {
	ts := newVisionServer(t, http.StatusOK, `{"responses": [{}]}`)
	defer ts.Close()

	preds, err := loadVision(t, ts).Classify(context.Background(), model.Frame{Data: []byte("img")})
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestVision_ImageError(t *testing.T) {
	ts := newVisionServer(t, http.StatusOK, `{"responses": [{"error": {"code": 3, "message": "Bad image data."}}]}`)
	defer ts.Close()

	_, err := loadVision(t, ts).Classify(context.Background(), model.Frame{Data: []byte("img")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad image data.")
}

func TestVision_PermanentAPIError(t *testing.T) {
	ts := newVisionServer(t, http.StatusForbidden, `{"error": {"code": 403, "message": "API disabled"}}`)
	defer ts.Close()

	_, err := loadVision(t, ts).Classify(context.Background(), model.Frame{Data: []byte("img")})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "after 2 attempts")
}
