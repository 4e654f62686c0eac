package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. VIRTUCAM_STREAM_URL.
const EnvPrefix = "VIRTUCAM"

// FileSource reads a YAML, JSON or TOML file, with environment overrides.
// A missing file yields the defaults.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Read() (Snapshot, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("enabled", def.Enabled)
	v.SetDefault("mode", string(def.Mode))
	v.SetDefault("stream_url", "")
	v.SetDefault("media", "")
	v.SetDefault("rotation", def.Rotation)
	v.SetDefault("target_apps", []string{})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if f.path != "" {
		v.SetConfigFile(f.path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Snapshot{}, errors.Wrapf(err, "reading %s", f.path)
			}
			log.Debug("No configuration at %s, using defaults", f.path)
		}
	}

	var snap Snapshot
	if err := v.Unmarshal(&snap); err != nil {
		return Snapshot{}, errors.Wrap(err, "decoding configuration")
	}
	return snap, snap.Validate()
}

// Store persists snapshots as YAML.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Read() (Snapshot, error) {
	data, err := ioutil.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Default(), nil
	} else if err != nil {
		return Snapshot{}, errors.Wrap(err, "reading configuration")
	}

	snap := Default()
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, errors.Wrapf(err, "parsing %s", s.path)
	}
	return snap, snap.Validate()
}

// Write replaces the stored snapshot atomically.
func (s *Store) Write(snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encoding configuration")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "creating configuration directory")
	}
	tmp, err := ioutil.TempFile(dir, ".virtucam-*.yaml")
	if err != nil {
		return errors.Wrap(err, "writing configuration")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing configuration")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "writing configuration")
	}
	// World-readable so hooked processes can read it.
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return errors.Wrap(err, "writing configuration")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(err, "writing configuration")
	}
	log.Info("Configuration saved to %s: %v", s.path, snap)
	return nil
}
