// Package config overlays environment settings onto the loaded configuration.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/ppiankov/resonance/internal/model"
)

// ParseEnv loads env-tagged fields of target from environment variables.
// Fields whose variable is unset keep their current value.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ApplyEnv overlays RESONANCE_STORE_* variables onto cfg's store settings
func ApplyEnv(cfg *model.Config) error {
	return ParseEnv(&cfg.Store)
}
