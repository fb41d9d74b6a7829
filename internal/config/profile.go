package config

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/ecolens/internal/common"
	"github.com/Veraticus/ecolens/internal/mission"
	"github.com/Veraticus/ecolens/internal/model"
	"github.com/Veraticus/ecolens/internal/session"
	"github.com/Veraticus/ecolens/internal/taxonomy"
)

//go:embed profiles/*.yaml
var builtinProfiles embed.FS

// DefaultProfile is the profile used when none is configured.
const DefaultProfile = "missions"

// ErrUnknownProfile is returned for a profile that is neither built in nor a
// readable file.
var ErrUnknownProfile = errors.New("unknown engine profile")

// Profile is an engine configuration: a taxonomy rule table, a mission
// catalog and the session settings that go with them.
type Profile struct {
	Name            string               `yaml:"name"`
	Mode            session.Mode         `yaml:"mode"`
	UnknownGuidance string               `yaml:"unknown_guidance"`
	Rules           []model.TaxonomyRule `yaml:"rules"`
	Missions        []model.Mission      `yaml:"missions"`
	Cooldown        time.Duration        `yaml:"cooldown"`
	RewardXP        int                  `yaml:"reward_xp"`
	PersistUnknown  bool                 `yaml:"persist_unknown"`
}

// BuiltinProfiles returns the names of the embedded profiles.
func BuiltinProfiles() []string {
	entries, err := builtinProfiles.ReadDir("profiles")
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// LoadProfile loads a built-in profile by name, or a YAML profile file.
func LoadProfile(nameOrPath string) (*Profile, error) {
	if nameOrPath == "" {
		nameOrPath = DefaultProfile
	}

	data, err := builtinProfiles.ReadFile("profiles/" + nameOrPath + ".yaml")
	if err != nil {
		data, err = os.ReadFile(ExpandPath(nameOrPath))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUnknownProfile, nameOrPath, err)
		}
	}

	return ParseProfile(data)
}

// ParseProfile decodes and validates a YAML profile.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: failed to parse profile: %w", common.ErrInvalidConfig, err)
	}
	if p.Mode == "" {
		p.Mode = session.ModeMission
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that the rule table compiles and that every mission
// targets a category some rule can produce.
func (p *Profile) Validate() error {
	if p.Mode != session.ModeMission && p.Mode != session.ModeSorting {
		return fmt.Errorf("%w: profile %q has unknown mode %q", common.ErrInvalidConfig, p.Name, p.Mode)
	}
	if len(p.Rules) == 0 {
		return fmt.Errorf("%w: profile %q has no taxonomy rules", common.ErrInvalidConfig, p.Name)
	}
	if p.Cooldown < 0 || p.RewardXP < 0 {
		return fmt.Errorf("%w: profile %q has a negative cooldown or reward", common.ErrInvalidConfig, p.Name)
	}

	mapper, err := taxonomy.NewMapper(p.Rules)
	if err != nil {
		return fmt.Errorf("%w: profile %q: %w", common.ErrInvalidConfig, p.Name, err)
	}

	if p.Mode == session.ModeMission && len(p.Missions) == 0 {
		return fmt.Errorf("%w: mission profile %q has no missions", common.ErrInvalidConfig, p.Name)
	}
	for i, m := range p.Missions {
		if !mapper.Has(m.TargetCategory) {
			return fmt.Errorf("%w: mission %d targets %q which no rule produces", common.ErrInvalidConfig, i, m.TargetCategory)
		}
		if strings.TrimSpace(m.Prompt) == "" {
			return fmt.Errorf("%w: mission %d has no prompt", common.ErrInvalidConfig, i)
		}
	}
	return nil
}

// Mapper builds the taxonomy mapper for the profile's rules.
func (p *Profile) Mapper() (*taxonomy.Mapper, error) {
	return taxonomy.NewMapper(p.Rules)
}

// Generator builds a mission generator, or nil for sorting profiles.
func (p *Profile) Generator(opts ...mission.Option) (*mission.Generator, error) {
	if p.Mode != session.ModeMission {
		return nil, nil
	}
	return mission.NewGenerator(p.Missions, opts...)
}

// SessionConfig returns the session settings for userID.
func (p *Profile) SessionConfig(userID string) session.Config {
	cfg := session.DefaultConfig()
	cfg.UserID = userID
	cfg.Mode = p.Mode
	cfg.Cooldown = p.Cooldown
	cfg.RewardXP = p.RewardXP
	cfg.PersistUnknown = p.PersistUnknown
	cfg.UnknownGuidance = p.UnknownGuidance
	return cfg
}

// LoadEngineProfile loads the profile named by engine.profile and applies the
// engine.* overrides set in Viper.
func LoadEngineProfile() (*Profile, error) {
	p, err := LoadProfile(viper.GetString("engine.profile"))
	if err != nil {
		return nil, err
	}

	if viper.IsSet("engine.cooldown") {
		p.Cooldown = viper.GetDuration("engine.cooldown")
	}
	if viper.IsSet("engine.reward_xp") {
		p.RewardXP = viper.GetInt("engine.reward_xp")
	}
	if viper.IsSet("engine.persist_unknown") {
		p.PersistUnknown = viper.GetBool("engine.persist_unknown")
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
