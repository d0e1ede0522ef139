/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"roomplanner/internal/constraint"
	"roomplanner/internal/geom"
	"roomplanner/internal/placement"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are read-only overrides applied at load time.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int                        `yaml:"config_version"`
	Engine        EngineConfig               `yaml:"engine"`
	Catalog       map[string]geom.Dimensions `yaml:"catalog,omitempty"`
	Logging       LoggingConfig              `yaml:"logging"`
}

// EngineConfig holds the tunables of placement, constraints and dragging.
type EngineConfig struct {
	GridSize    float64 `yaml:"grid_size"`
	WallMargin  float64 `yaml:"wall_margin"`
	Padding     float64 `yaml:"padding"`
	MaxAttempts int     `yaml:"max_attempts"`
	Stacking    bool    `yaml:"stacking"`
	// Seed for the random placement phase; 0 picks a time-based seed.
	Seed uint64 `yaml:"seed"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Source     bool   `yaml:"source"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Engine: EngineConfig{
			GridSize:    0.25,
			WallMargin:  constraint.DefaultWallMargin,
			Padding:     geom.DefaultPadding,
			MaxAttempts: placement.DefaultMaxAttempts,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath  = "RP_CONFIG"
	EnvGridSize    = "RP_GRID_SIZE"
	EnvWallMargin  = "RP_WALL_MARGIN"
	EnvPadding     = "RP_PADDING"
	EnvMaxAttempts = "RP_MAX_ATTEMPTS"
	EnvStacking    = "RP_STACKING"
	EnvSeed        = "RP_SEED"

	EnvLogLevel  = "RP_LOG_LEVEL"
	EnvLogFormat = "RP_LOG_FORMAT"
	EnvLogSource = "RP_LOG_SOURCE"
	EnvLogFile   = "RP_LOG_FILE"
)

// ConfigPath returns the per-user config file path. RP_CONFIG takes precedence.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "RoomPlanner")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "RoomPlanner")
	default:
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "roomplanner")
		} else if h := os.Getenv("HOME"); h != "" {
			base = filepath.Join(h, ".config", "roomplanner")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and merges environment overrides.
// A missing file is not an error; a file that does not parse is.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applyEnvOverrides(&cfg)
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		applyEnvOverrides(&cfg)
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// NewCatalog returns the built-in dimension table extended by the valid entries of cfg.Catalog.
func (cfg AppConfig) NewCatalog() *geom.Catalog {
	return geom.NewCatalog(cfg.Catalog)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.Engine.GridSize > 0 {
		dst.Engine.GridSize = src.Engine.GridSize
	}
	if src.Engine.WallMargin > 0 {
		dst.Engine.WallMargin = src.Engine.WallMargin
	}
	if src.Engine.Padding > 0 {
		dst.Engine.Padding = src.Engine.Padding
	}
	if src.Engine.MaxAttempts > 0 {
		dst.Engine.MaxAttempts = src.Engine.MaxAttempts
	}
	// booleans: copy directly from the file so user preferences persist
	dst.Engine.Stacking = src.Engine.Stacking
	if src.Engine.Seed != 0 {
		dst.Engine.Seed = src.Engine.Seed
	}
	if len(src.Catalog) > 0 {
		dst.Catalog = make(map[string]geom.Dimensions, len(src.Catalog))
		for k, v := range src.Catalog {
			dst.Catalog[k] = v
		}
	}
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
	if src.Logging.MaxSizeMB > 0 {
		dst.Logging.MaxSizeMB = src.Logging.MaxSizeMB
	}
	if src.Logging.MaxBackups > 0 {
		dst.Logging.MaxBackups = src.Logging.MaxBackups
	}
}

func envBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func envFloat(key string, dst *float64) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			*dst = f
		}
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	envFloat(EnvGridSize, &cfg.Engine.GridSize)
	envFloat(EnvWallMargin, &cfg.Engine.WallMargin)
	envFloat(EnvPadding, &cfg.Engine.Padding)
	if v := strings.TrimSpace(os.Getenv(EnvMaxAttempts)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Engine.MaxAttempts = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvStacking)); v != "" {
		cfg.Engine.Stacking = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvSeed)); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Engine.Seed = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var overrideKeys = map[string]string{
	"engine.grid_size":    EnvGridSize,
	"engine.wall_margin":  EnvWallMargin,
	"engine.padding":      EnvPadding,
	"engine.max_attempts": EnvMaxAttempts,
	"engine.stacking":     EnvStacking,
	"engine.seed":         EnvSeed,
	"logging.level":       EnvLogLevel,
	"logging.format":      EnvLogFormat,
	"logging.source":      EnvLogSource,
	"logging.file":        EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := overrideKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}
