// Package cutdiff compares two editorial cuts at shot granularity:
// it derives frame-exact clip positions, aggregates clips that belong
// to one shot, matches new clips against previously recorded ones and
// classifies what changed.
package cutdiff

import (
	"fmt"
	"regexp"

	"github.com/cutlens/cutlens/internal/config"
)

// MappingMode selects how a clip's source in timecode maps to a cut-in
// frame number.
type MappingMode int

const (
	// MapAutomatic uses default handles, carrying the offset forward
	// from a previously recorded cut item when one is known.
	MapAutomatic MappingMode = iota
	// MapAbsolute maps the source timecode frame-for-frame.
	MapAbsolute
	// MapRelative maps the source timecode relative to a reference
	// timecode and frame.
	MapRelative
)

// Settings are the comparison parameters, derived from config.Settings.
type Settings struct {
	HeadIn       int
	HeadDuration int
	TailDuration int

	Mode          MappingMode
	RelativeStart string // reference timecode for MapRelative
	RelativeFrame int

	OmittedStatuses []string
	ReinstateStatus string

	UseClipNamesForShotNames bool
	ClipNameShotRegexp       *regexp.Regexp
}

// SettingsFrom converts application settings into comparison settings,
// compiling the shot name regexp if one is configured.
func SettingsFrom(cfg *config.Settings) (*Settings, error) {
	s := &Settings{
		HeadIn:                   cfg.DefaultHeadIn,
		HeadDuration:             cfg.DefaultHeadDuration,
		TailDuration:             cfg.DefaultTailDuration,
		RelativeStart:            cfg.TimecodeMappingStart,
		RelativeFrame:            cfg.FrameMappingStart,
		OmittedStatuses:          cfg.ShotOmittedStatuses,
		ReinstateStatus:          cfg.ShotReinstateStatus,
		UseClipNamesForShotNames: cfg.UseClipNamesForShotNames,
	}
	switch cfg.TimecodeMappingMode {
	case config.MappingAutomatic:
		s.Mode = MapAutomatic
	case config.MappingAbsolute:
		s.Mode = MapAbsolute
	case config.MappingRelative:
		s.Mode = MapRelative
	default:
		return nil, fmt.Errorf("unknown timecode mapping mode %q", cfg.TimecodeMappingMode)
	}
	if cfg.ClipNameShotRegexp != "" {
		re, err := regexp.Compile(cfg.ClipNameShotRegexp)
		if err != nil {
			return nil, fmt.Errorf("invalid clip_name_shot_regexp: %w", err)
		}
		s.ClipNameShotRegexp = re
	}
	return s, nil
}

// DefaultSettings returns comparison settings with the application
// defaults applied.
func DefaultSettings() *Settings {
	s, _ := SettingsFrom(config.Default())
	return s
}

func (s *Settings) isOmittedStatus(status string) bool {
	for _, o := range s.OmittedStatuses {
		if o == status {
			return true
		}
	}
	return false
}
