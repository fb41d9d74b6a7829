package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		want string
		xp   int
	}{
		{xp: -5, want: "Novice"},
		{xp: 0, want: "Novice"},
		{xp: 99, want: "Novice"},
		{xp: 100, want: "Scout"},
		{xp: 350, want: "Guardian"},
		{xp: 600, want: "Hero"},
		{xp: 5000, want: "Legend"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.xp).Name, "xp=%d", tt.xp)
	}
}

func TestNextLevelAndProgress(t *testing.T) {
	next, ok := NextLevel(150)
	assert.True(t, ok)
	assert.Equal(t, "Guardian", next.Name)

	_, ok = NextLevel(1000)
	assert.False(t, ok)

	assert.InDelta(t, 25.0, Progress(150), 0.001)
	assert.InDelta(t, 0.0, Progress(0), 0.001)
	assert.InDelta(t, 100.0, Progress(1200), 0.001)
}

func TestCategory_IsKnown(t *testing.T) {
	assert.True(t, Category("Nature").IsKnown())
	assert.False(t, Unknown.IsKnown())
	assert.False(t, Category("UNKNOWN").IsKnown())
	assert.False(t, Category("").IsKnown())
	assert.Equal(t, "unknown", Category("").String())
}
