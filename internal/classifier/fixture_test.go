package classifier

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/ecolens/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestFixtureModel(t *testing.T) {
	path := writeFixture(t, `{
		"frames": {
			"Oak.jpg": [{"label": "oak tree", "confidence": 0.91}],
			"bottle":  [{"label": "plastic bottle", "confidence": 0.8}]
		},
		"default": [{"label": "asphalt", "confidence": 0.2}]
	}`)

	m, err := newFixtureLoader(path)(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name  string
		frame string
		want  string
	}{
		{name: "exact name any case", frame: "oak.JPG", want: "oak tree"},
		{name: "name without extension", frame: "bottle.png", want: "plastic bottle"},
		{name: "fallback", frame: "street.jpg", want: "asphalt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			preds, err := m.Classify(context.Background(), model.Frame{Name: tt.frame})
			require.NoError(t, err)
			top, ok := preds.Top()
			require.True(t, ok)
			assert.Equal(t, tt.want, top.Label)
		})
	}
}

func TestFixtureModel_NoDefault(t *testing.T) {
	m, err := newFixtureLoader(writeFixture(t, `{"frames": {}}`))(context.Background())
	require.NoError(t, err)

	preds, err := m.Classify(context.Background(), model.Frame{Name: "x.jpg"})
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestFixtureLoader_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{name: "missing file", path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.json") }},
		{name: "invalid json", path: func(t *testing.T) string { return writeFixture(t, "{not json") }},
		{name: "invalid delay", path: func(t *testing.T) string { return writeFixture(t, `{"load_delay": "soon"}`) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newFixtureLoader(tt.path(t))(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestFixtureLoader_DelayHonorsContext(t *testing.T) {
	path := writeFixture(t, `{"load_delay": "1h"}`)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newFixtureLoader(path)(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
