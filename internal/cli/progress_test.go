package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchReporter(t *testing.T) {
	var out bytes.Buffer
	r := NewBatchReporter(&out, 4)

	r.Record("recycle", nil)
	r.Record("recycle", nil)
	r.Record("unknown", nil)

	assert.Equal(t, "Sorted 3 of 4 frames before stopping.", r.Progress())

	r.Record("", errors.New("unreadable"))

	summary := r.Summary()
	assert.Contains(t, summary, "Sorting Complete")
	assert.Contains(t, summary, "recycle: 2")
	assert.Contains(t, summary, "unknown: 1")
	assert.Contains(t, summary, "failed: 1")
	assert.Contains(t, summary, "total: 4")
	assert.NotEmpty(t, out.String(), "progress bar should render")
}
