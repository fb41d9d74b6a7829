package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ecolens/internal/camera"
	"github.com/Veraticus/ecolens/internal/classifier"
	"github.com/Veraticus/ecolens/internal/common"
	"github.com/Veraticus/ecolens/internal/mission"
	"github.com/Veraticus/ecolens/internal/model"
	"github.com/Veraticus/ecolens/internal/presentation"
	"github.com/Veraticus/ecolens/internal/session"
	"github.com/Veraticus/ecolens/internal/taxonomy"
	"github.com/Veraticus/ecolens/internal/testutil"
	"github.com/Veraticus/ecolens/internal/timeutil"
)

// labelModel treats the frame bytes as the label it recognizes.
type labelModel struct{}

func (labelModel) Classify(_ context.Context, frame model.Frame) (model.Predictions, error) {
	return model.Predictions{{Label: string(frame.Data), Confidence: 0.9}}, nil
}

type testServer struct {
	server *Server
	http   *httptest.Server
	db     *testutil.TestDB
	clock  *timeutil.MockClock
}

func newTestServer(t *testing.T, load classifier.LoadFunc) *testServer {
	t.Helper()

	if load == nil {
		load = func(context.Context) (classifier.Model, error) { return labelModel{}, nil }
	}
	adapter := classifier.NewAdapter(load, nil)
	adapter.Load(context.Background())

	mapper, err := taxonomy.NewMapper([]taxonomy.Rule{
		{Category: "Nature", Keywords: []string{"fern", "tree"}},
		{Category: "Waste", Keywords: []string{"bottle"}},
	})
	require.NoError(t, err)

	db := testutil.SetupTestDB(t)
	clock := timeutil.NewMockClock(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))

	factory := func(userID string, cam camera.Source) (*session.Session, error) {
		missions, err := mission.NewGenerator([]model.Mission{
			{TargetCategory: "Nature", Prompt: "Find something related to Nature!"},
		})
		if err != nil {
			return nil, err
		}
		cfg := session.DefaultConfig()
		cfg.UserID = userID
		return session.New(cfg, session.Deps{
			Classifier: adapter,
			Resolver:   mapper,
			Missions:   missions,
			Camera:     cam,
			Sink:       db.Storage,
			Clock:      clock,
		})
	}

	ts := &testServer{
		server: NewServer(factory, db.Storage),
		db:     db,
		clock:  clock,
	}
	ts.http = httptest.NewServer(ts.server.Router())
	t.Cleanup(func() {
		ts.http.Close()
		_ = ts.server.Close()
		_ = adapter.Close()
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, contentType string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, ts.http.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := ts.http.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (ts *testServer) createSession(t *testing.T, userID string) SessionView {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/sessions", "application/json", []byte(fmt.Sprintf(`{"user_id":%q}`, userID)))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[SessionView](t, resp)
}

func TestServer_ScanLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	view := ts.createSession(t, "alice")
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "alice", view.UserID)
	require.NotNil(t, view.Mission)
	assert.Equal(t, model.Category("Nature"), view.Mission.TargetCategory)

	require.Eventually(t, func() bool {
		resp := ts.do(t, http.MethodGet, "/sessions/"+view.ID, "", nil)
		return decode[SessionView](t, resp).ModelState == classifier.StateReady.String()
	}, time.Second, 10*time.Millisecond)

	// No frame pushed yet.
	resp := ts.do(t, http.MethodPost, "/sessions/"+view.ID+"/scan", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = ts.do(t, http.MethodPut, "/sessions/"+view.ID+"/frame", "image/jpeg", []byte("fern"))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/sessions/"+view.ID+"/scan", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	scan := decode[ScanResponse](t, resp)
	require.NotNil(t, scan.Attempt)
	assert.Equal(t, model.OutcomeSuccess, scan.Attempt.Outcome)
	assert.Equal(t, model.Category("Nature"), scan.Attempt.Category)
	assert.Equal(t, session.StateCooldown, scan.Session.State)
	assert.Equal(t, "Wait 10s", scan.Session.View.CountdownText)

	resp = ts.do(t, http.MethodPost, "/sessions/"+view.ID+"/scan", "image/jpeg", []byte("bottle"))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	require.Eventually(t, func() bool {
		resp := ts.do(t, http.MethodGet, "/users/alice/profile", "", nil)
		return decode[ProfileView](t, resp).XP == 50
	}, time.Second, 10*time.Millisecond)

	resp = ts.do(t, http.MethodGet, "/users/alice/scans?limit=5", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	records := decode[[]model.ScanRecord](t, resp)
	require.Len(t, records, 1)
	assert.Equal(t, "fern", records[0].ObjectLabel)

	resp = ts.do(t, http.MethodDelete, "/sessions/"+view.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/sessions/"+view.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ModelNotReady(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	ts := newTestServer(t, func(ctx context.Context) (classifier.Model, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return labelModel{}, nil
	})

	view := ts.createSession(t, "alice")
	assert.Equal(t, presentation.ButtonLoading, view.View.ButtonLabel)

	resp := ts.do(t, http.MethodPost, "/sessions/"+view.ID+"/scan", "image/png", []byte("fern"))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_ModelFailed(t *testing.T) {
	ts := newTestServer(t, func(context.Context) (classifier.Model, error) {
		return nil, errors.New("weights missing")
	})

	view := ts.createSession(t, "alice")
	require.Eventually(t, func() bool {
		resp := ts.do(t, http.MethodGet, "/sessions/"+view.ID, "", nil)
		return decode[SessionView](t, resp).State == session.StateDisabled
	}, time.Second, 10*time.Millisecond)

	resp := ts.do(t, http.MethodPost, "/sessions/"+view.ID+"/scan", "image/png", []byte("fern"))
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	assert.Equal(t, classifier.ModelLoadMessage, body.Error)
}

func TestServer_BadRequests(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "create without user", method: http.MethodPost, path: "/sessions", body: `{}`, want: http.StatusBadRequest},
		{name: "create with bad json", method: http.MethodPost, path: "/sessions", body: `{`, want: http.StatusBadRequest},
		{name: "unknown session", method: http.MethodGet, path: "/sessions/nope", want: http.StatusNotFound},
		{name: "scan unknown session", method: http.MethodPost, path: "/sessions/nope/scan", want: http.StatusNotFound},
		{name: "frame unknown session", method: http.MethodPut, path: "/sessions/nope/frame", body: "x", want: http.StatusNotFound},
		{name: "delete unknown session", method: http.MethodDelete, path: "/sessions/nope", want: http.StatusNotFound},
		{name: "non-numeric limit", method: http.MethodGet, path: "/users/alice/scans?limit=abc", want: http.StatusBadRequest},
		{name: "negative limit", method: http.MethodGet, path: "/users/alice/scans?limit=-1", want: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodPatch, path: "/sessions", want: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, tt.method, tt.path, "application/json", []byte(tt.body))
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestServer_EmptyFrameRejected(t *testing.T) {
	ts := newTestServer(t, nil)
	view := ts.createSession(t, "alice")

	resp := ts.do(t, http.MethodPut, "/sessions/"+view.ID+"/frame", "image/jpeg", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_FrameTooLarge(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.server.maxFrameBytes = 4
	view := ts.createSession(t, "alice")

	resp := ts.do(t, http.MethodPut, "/sessions/"+view.ID+"/frame", "image/jpeg", []byte(strings.Repeat("x", 16)))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_ProfileForNewUser(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodGet, "/users/nobody/profile", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[ProfileView](t, resp)
	assert.Equal(t, 0, view.XP)
	assert.Equal(t, "Novice", view.Level.Name)
	require.NotNil(t, view.NextLevel)
	assert.Equal(t, "Scout", view.NextLevel.Name)

	resp = ts.do(t, http.MethodGet, "/users/nobody/scans", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]model.ScanRecord](t, resp))
}

func TestServer_ScanCanceledByClient(t *testing.T) {
	ts := newTestServer(t, nil)
	view := ts.createSession(t, "alice")
	require.Eventually(t, func() bool {
		resp := ts.do(t, http.MethodGet, "/sessions/"+view.ID, "", nil)
		return decode[SessionView](t, resp).ModelState == classifier.StateReady.String()
	}, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+view.ID+"/scan", strings.NewReader("oak tree")).WithContext(ctx)
	req.Header.Set("Content-Type", "image/jpeg")
	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, statusClientClosedRequest, rec.Code)

	// The abandoned attempt starts no cooldown.
	resp := ts.do(t, http.MethodPost, "/sessions/"+view.ID+"/scan", "image/jpeg", []byte("oak tree"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: common.ErrCoolingDown, want: http.StatusConflict},
		{err: common.ErrScanInProgress, want: http.StatusConflict},
		{err: common.ErrNotReady, want: http.StatusServiceUnavailable},
		{err: common.NewUserError(classifier.ModelLoadMessage, common.ErrModelLoad), want: http.StatusGone},
		{err: common.ErrSessionClosed, want: http.StatusGone},
		{err: fmt.Errorf("%w: %w", common.ErrCaptureFailed, camera.ErrNoFrame), want: http.StatusUnprocessableEntity},
		{err: common.ErrClassificationFailed, want: http.StatusBadGateway},
		{err: context.Canceled, want: statusClientClosedRequest},
		{err: fmt.Errorf("%w: %w", common.ErrCaptureFailed, context.Canceled), want: statusClientClosedRequest},
		{err: fmt.Errorf("%w: %w", common.ErrClassificationFailed, context.DeadlineExceeded), want: http.StatusGatewayTimeout},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
