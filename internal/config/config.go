// Package config loads cutlens settings from an optional TOML file with
// environment variable overrides and sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	// Default values
	DefaultPort         = 8790
	DefaultLogLevel     = "info"
	DefaultDataDir      = ".cutlens"
	DefaultHeadIn       = 1001
	DefaultHeadDuration = 8
	DefaultTailDuration = 8

	// Environment variable names
	EnvPort        = "CUTLENS_PORT"
	EnvLogLevel    = "CUTLENS_LOG_LEVEL"
	EnvDataDir     = "CUTLENS_DATA_DIR"
	EnvMappingMode = "CUTLENS_TIMECODE_MAPPING_MODE"
	EnvWatchDir    = "CUTLENS_WATCH_DIR"

	// Database filename
	DBFilename = "cutlens.db"

	// ReinstateFromPreviousStatus restores an omitted shot to the status
	// it had before omission instead of a fixed one.
	ReinstateFromPreviousStatus = "Previous Status"
)

// Timecode-to-frame mapping modes.
const (
	MappingAutomatic = "automatic"
	MappingAbsolute  = "absolute"
	MappingRelative  = "relative"
)

// Settings is the full application configuration. A zero value is not
// usable: start from Default and layer a file and the environment on
// top with Load.
type Settings struct {
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
	DataDir  string `toml:"data_dir"`

	// WatchDir, when set, is watched for dropped EDL files which are
	// imported automatically as new cut revisions.
	WatchDir  string  `toml:"watch_dir"`
	WatchRate float64 `toml:"watch_rate"`

	DefaultHeadIn       int `toml:"default_head_in"`
	DefaultHeadDuration int `toml:"default_head_duration"`
	DefaultTailDuration int `toml:"default_tail_duration"`

	TimecodeMappingMode  string `toml:"timecode_in_to_frame_mapping_mode"`
	TimecodeMappingStart string `toml:"timecode_in_to_frame_relative_start"`
	FrameMappingStart    int    `toml:"timecode_in_to_frame_relative_frame"`

	ShotOmittedStatuses []string `toml:"shot_omitted_statuses"`
	ShotReinstateStatus string   `toml:"shot_reinstate_status"`

	UseClipNamesForShotNames bool   `toml:"use_clip_names_for_shot_names"`
	ClipNameShotRegexp       string `toml:"clip_name_shot_regexp"`
}

// Default returns settings with all defaults applied.
func Default() *Settings {
	return &Settings{
		Port:                DefaultPort,
		LogLevel:            DefaultLogLevel,
		DataDir:             defaultDataDir(),
		WatchRate:           24,
		DefaultHeadIn:       DefaultHeadIn,
		DefaultHeadDuration: DefaultHeadDuration,
		DefaultTailDuration: DefaultTailDuration,
		TimecodeMappingMode: MappingAutomatic,
		ShotOmittedStatuses: []string{"omt"},
		ShotReinstateStatus: ReinstateFromPreviousStatus,
	}
}

// Load builds settings from defaults, an optional TOML file and the
// environment, in that order of precedence.
func Load(path string) (*Settings, error) {
	s := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, s); err != nil {
			return nil, fmt.Errorf("load settings %s: %w", path, err)
		}
	}
	if err := s.applyEnv(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) applyEnv() error {
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, p, err)
		}
		s.Port = port
	}
	if l := os.Getenv(EnvLogLevel); l != "" {
		s.LogLevel = l
	}
	if d := os.Getenv(EnvDataDir); d != "" {
		s.DataDir = d
	}
	if m := os.Getenv(EnvMappingMode); m != "" {
		s.TimecodeMappingMode = m
	}
	if w := os.Getenv(EnvWatchDir); w != "" {
		s.WatchDir = w
	}
	return nil
}

// Validate checks enum fields and value ranges.
func (s *Settings) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("invalid port %d", s.Port)
	}
	switch strings.ToLower(s.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", s.LogLevel)
	}
	switch s.TimecodeMappingMode {
	case MappingAutomatic, MappingAbsolute, MappingRelative:
	default:
		return fmt.Errorf("invalid timecode mapping mode %q", s.TimecodeMappingMode)
	}
	if s.TimecodeMappingMode == MappingRelative && s.TimecodeMappingStart == "" {
		return fmt.Errorf("relative timecode mapping requires timecode_in_to_frame_relative_start")
	}
	if s.DefaultHeadDuration < 0 || s.DefaultTailDuration < 0 {
		return fmt.Errorf("handle durations must not be negative")
	}
	if s.WatchRate <= 0 {
		return fmt.Errorf("invalid watch rate %v", s.WatchRate)
	}
	return nil
}

// DBPath returns the full path to the SQLite database file.
func (s *Settings) DBPath() string {
	return filepath.Join(s.DataDir, DBFilename)
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}
