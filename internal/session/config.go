package session

import (
	"fmt"
	"math"
	"time"

	"github.com/Veraticus/ecolens/internal/common"
)

// Mode selects how a resolved category is judged.
type Mode string

// Session modes.
const (
	// ModeMission compares the resolved category against the active mission.
	ModeMission Mode = "mission"
	// ModeSorting reports the resolved category as-is.
	ModeSorting Mode = "sorting"
)

// Config holds the per-session engine settings.
type Config struct {
	UserID          string
	Mode            Mode
	UnknownGuidance string
	Cooldown        time.Duration
	PersistTimeout  time.Duration
	RewardXP        int
	PersistUnknown  bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Mode:           ModeMission,
		Cooldown:       10 * time.Second,
		RewardXP:       50,
		PersistTimeout: 10 * time.Second,
	}
}

// Validate checks the configuration for values the session cannot run with.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeMission, ModeSorting:
	default:
		return fmt.Errorf("%w: unknown session mode %q", common.ErrInvalidConfig, c.Mode)
	}
	if c.UserID == "" {
		return fmt.Errorf("%w: user id is required", common.ErrMissingConfig)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("%w: cooldown must not be negative, got %s", common.ErrInvalidConfig, c.Cooldown)
	}
	if c.RewardXP < 0 {
		return fmt.Errorf("%w: reward must not be negative, got %d", common.ErrInvalidConfig, c.RewardXP)
	}
	return nil
}

// cooldownSeconds rounds the cooldown up to whole seconds.
func (c Config) cooldownSeconds() int {
	return int(math.Ceil(c.Cooldown.Seconds()))
}

func (c Config) persistTimeout() time.Duration {
	if c.PersistTimeout <= 0 {
		return 10 * time.Second
	}
	return c.PersistTimeout
}
