package config

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

const (
	keyModel    = "default_model"
	keyProvider = "default_provider"
)

// Source is one tier of the default resolution chain.
type Source interface {
	// Name identifies the tier in log entries.
	Name() string
	// Lookup returns whatever the tier currently holds. An error marks the
	// tier as unusable for this resolution; it is never fatal.
	Lookup() (Selection, error)
}

// EnvSource reads SLICK_MODEL and SLICK_PROVIDER.
type EnvSource struct {
	v *viper.Viper
}

// NewEnvSource creates an environment tier bound to the SLICK_ prefix.
func NewEnvSource() *EnvSource {
	v := viper.New()
	v.SetEnvPrefix("SLICK")
	_ = v.BindEnv("model")
	_ = v.BindEnv("provider")
	return &EnvSource{v: v}
}

// Name implements Source.
func (s *EnvSource) Name() string { return "env" }

// Lookup implements Source.
func (s *EnvSource) Lookup() (Selection, error) {
	return Selection{Model: s.v.GetString("model"), Provider: s.v.GetString("provider")}, nil
}

// UserSource reads the per-user config.toml.
type UserSource struct {
	path string
}

// NewUserSource creates a user tier. An empty path selects UserConfigPath.
func NewUserSource(path string) *UserSource {
	return &UserSource{path: path}
}

// Name implements Source.
func (s *UserSource) Name() string { return "user" }

// Lookup implements Source.
func (s *UserSource) Lookup() (Selection, error) {
	path := s.path
	if path == "" {
		p, err := UserConfigPath()
		if err != nil {
			return Selection{}, err
		}
		path = p
	}
	return readSelection(path, "")
}

// ProjectSource reads project level configuration discovered from a
// directory upwards: the nearest slick.toml, else the [tool.slick] table of
// the nearest pyproject.toml.
type ProjectSource struct {
	dir string
}

// NewProjectSource creates a project tier rooted at dir. An empty dir selects
// the working directory at lookup time.
func NewProjectSource(dir string) *ProjectSource {
	return &ProjectSource{dir: dir}
}

// Name implements Source.
func (s *ProjectSource) Name() string { return "project" }

// Lookup implements Source.
func (s *ProjectSource) Lookup() (Selection, error) {
	dir := s.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Selection{}, errors.Wrap(err, "failed to determine working directory")
		}
		dir = wd
	}

	if path := findUpwards(dir, "slick.toml"); path != "" {
		return readSelection(path, "")
	}
	if path := findUpwards(dir, "pyproject.toml"); path != "" {
		return readSelection(path, "tool.slick.")
	}
	return Selection{}, nil
}

// findUpwards returns the first dir/name found walking up to the filesystem
// root, or "".
func findUpwards(dir, name string) string {
	for {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// readSelection loads the two default keys from a TOML file. A missing file
// yields an empty selection.
func readSelection(path, prefix string) (Selection, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Selection{}, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return Selection{}, errors.Wrapf(err, "failed to read config file %s", path)
	}

	return Selection{
		Model:    v.GetString(prefix + keyModel),
		Provider: v.GetString(prefix + keyProvider),
	}, nil
}
