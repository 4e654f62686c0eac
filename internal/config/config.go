//////////////////////////////////////////////////////////////////////////////
//
// Substitution configuration
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

// Package config defines the configuration snapshot a render session runs
// with, and the sources it can be read from.
package config

import (
	"strings"

	"github.com/lanikai/virtucam/internal/logging"
	"github.com/pkg/errors"
)

var log = logging.DefaultLogger.WithTag("config")

// Mode selects what replaces the camera feed.
type Mode string

const (
	Image  Mode = "image"
	Video  Mode = "video"
	Stream Mode = "stream"
)

// ParseMode accepts a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Image, Video, Stream:
		return m, nil
	}
	return "", errors.Errorf("unknown mode %q (want image, video or stream)", s)
}

// DefaultRotation turns landscape media upright on a portrait sensor.
const DefaultRotation = 90

// A Snapshot is the configuration one render session runs with. It is never
// modified once a session has read it.
type Snapshot struct {
	Enabled   bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Mode      Mode   `yaml:"mode" json:"mode" mapstructure:"mode"`
	StreamURL string `yaml:"stream_url,omitempty" json:"stream_url,omitempty" mapstructure:"stream_url"`

	// Media locates the image or video file. Opaque to this package.
	Media string `yaml:"media,omitempty" json:"media,omitempty" mapstructure:"media"`

	// Rotation in degrees, counter-clockwise.
	Rotation int `yaml:"rotation" json:"rotation" mapstructure:"rotation"`

	// TargetApps limits substitution to these packages. Empty means all.
	TargetApps []string `yaml:"target_apps,omitempty" json:"target_apps,omitempty" mapstructure:"target_apps"`
}

// Default is the configuration used when none can be read: disabled.
func Default() Snapshot {
	return Snapshot{
		Mode:     Image,
		Rotation: DefaultRotation,
	}
}

// Validate checks that an enabled snapshot names what its mode needs.
func (s Snapshot) Validate() error {
	if _, err := ParseMode(string(s.Mode)); err != nil {
		return err
	}
	if !s.Enabled {
		return nil
	}
	switch s.Mode {
	case Stream:
		if s.StreamURL == "" {
			return errors.New("stream mode needs stream_url")
		}
	default:
		if s.Media == "" {
			return errors.Errorf("%s mode needs media", s.Mode)
		}
	}
	return nil
}

// Targets reports whether substitution applies to the named package.
func (s Snapshot) Targets(app string) bool {
	if len(s.TargetApps) == 0 {
		return true
	}
	for _, a := range s.TargetApps {
		if a == app {
			return true
		}
	}
	return false
}

func (s Snapshot) String() string {
	if !s.Enabled {
		return "disabled"
	}
	switch s.Mode {
	case Stream:
		return "stream " + s.StreamURL
	default:
		return string(s.Mode) + " " + s.Media
	}
}

// A Source yields the current configuration. It is read once per session
// start.
type Source interface {
	Read() (Snapshot, error)
}

// Static is a Source that always yields the same snapshot.
type Static Snapshot

func (s Static) Read() (Snapshot, error) {
	return Snapshot(s), nil
}

// ReadOrDisable reads src, falling back to the disabled default on error.
func ReadOrDisable(src Source) Snapshot {
	snap, err := src.Read()
	if err == nil {
		err = snap.Validate()
	}
	if err != nil {
		log.Warn("Unable to read configuration, substitution disabled: %v", err)
		return Default()
	}
	return snap
}
