package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ecolens/internal/common"
	"github.com/Veraticus/ecolens/internal/model"
	"github.com/Veraticus/ecolens/internal/session"
)

func TestBuiltinProfiles(t *testing.T) {
	assert.Equal(t, []string{"missions", "sorting"}, BuiltinProfiles())
}

func TestLoadProfile_Missions(t *testing.T) {
	p, err := LoadProfile("missions")
	require.NoError(t, err)

	assert.Equal(t, session.ModeMission, p.Mode)
	assert.Equal(t, 10*time.Second, p.Cooldown)
	assert.Equal(t, 50, p.RewardXP)
	assert.False(t, p.PersistUnknown)
	assert.Len(t, p.Missions, 5)

	mapper, err := p.Mapper()
	require.NoError(t, err)
	assert.Equal(t, []model.Category{"Nature", "Waste", "Energy", "Water", "Food"}, mapper.Categories())

	tests := []struct {
		label string
		want  model.Category
	}{
		{label: "oak tree", want: "Nature"},
		{label: "water bottle", want: "Waste"},
		{label: "laptop computer", want: "Energy"},
		{label: "coffee mug", want: "Water"},
		{label: "Granny Smith apple", want: "Food"},
		{label: "pineapple", want: "Food"},
		{label: "asphalt", want: model.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, mapper.Map(tt.label))
		})
	}

	gen, err := p.Generator()
	require.NoError(t, err)
	require.NotNil(t, gen)
	assert.Len(t, gen.Catalog(), 5)
}

func TestLoadProfile_Sorting(t *testing.T) {
	p, err := LoadProfile("sorting")
	require.NoError(t, err)

	assert.Equal(t, session.ModeSorting, p.Mode)
	assert.True(t, p.PersistUnknown)
	assert.Equal(t, "Check the label.", p.UnknownGuidance)

	mapper, err := p.Mapper()
	require.NoError(t, err)
	res := mapper.Resolve("paper cup")
	assert.Equal(t, model.Category("recycle"), res.Category)
	assert.Equal(t, "Put it in the Recycle Bin.", res.Guidance)
	assert.Equal(t, model.Category("trash"), mapper.Map("facial tissue"))

	gen, err := p.Generator()
	require.NoError(t, err)
	assert.Nil(t, gen)

	cfg := p.SessionConfig("kid-7")
	assert.Equal(t, "kid-7", cfg.UserID)
	assert.Equal(t, session.ModeSorting, cfg.Mode)
	assert.Zero(t, cfg.Cooldown)
	require.NoError(t, cfg.Validate())
}

func TestLoadProfile_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garden.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: garden
cooldown: 3s
reward_xp: 5
rules:
  - category: Bloom
    keywords: [flower, daisy]
missions:
  - category: Bloom
    prompt: Find a flower!
    examples: [daisy]
`), 0o600))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "garden", p.Name)
	assert.Equal(t, session.ModeMission, p.Mode)
	assert.Equal(t, 3*time.Second, p.Cooldown)
	assert.Equal(t, []string{"daisy"}, p.Missions[0].Examples)
}

func TestParseProfile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "not yaml", yaml: "rules: [unterminated"},
		{name: "unknown mode", yaml: "mode: arcade\nrules: [{category: A, keywords: [a]}]"},
		{name: "no rules", yaml: "mode: sorting"},
		{name: "empty keyword", yaml: "mode: sorting\nrules: [{category: A, keywords: ['  ']}]"},
		{name: "mission mode without missions", yaml: "rules: [{category: A, keywords: [a]}]"},
		{
			name: "mission targets unmapped category",
			yaml: "rules: [{category: A, keywords: [a]}]\nmissions: [{category: B, prompt: Find B}]",
		},
		{name: "negative cooldown", yaml: "mode: sorting\ncooldown: -1s\nrules: [{category: A, keywords: [a]}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProfile([]byte(tt.yaml))
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestLoadProfile_Unknown(t *testing.T) {
	_, err := LoadProfile("no-such-profile")
	assert.ErrorIs(t, err, ErrUnknownProfile)
}

func TestLoadEngineProfile_Overrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("engine.profile", "missions")
	viper.Set("engine.cooldown", "4s")
	viper.Set("engine.reward_xp", 25)
	viper.Set("engine.persist_unknown", true)

	p, err := LoadEngineProfile()
	require.NoError(t, err)
	assert.Equal(t, 4*time.Second, p.Cooldown)
	assert.Equal(t, 25, p.RewardXP)
	assert.True(t, p.PersistUnknown)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("ECOLENS_TEST_DIR", "/srv/ecolens")

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "~", want: home},
		{in: "~/data/ecolens.db", want: filepath.Join(home, "data/ecolens.db")},
		{in: "$ECOLENS_TEST_DIR/db", want: "/srv/ecolens/db"},
		{in: "/abs/path", want: "/abs/path"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestDefaultDatabasePath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/var/lib/data")
	assert.Equal(t, "/var/lib/data/ecolens/ecolens.db", DefaultDatabasePath())

	t.Setenv("XDG_DATA_HOME", "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local/share/ecolens"), DataDir())
}
