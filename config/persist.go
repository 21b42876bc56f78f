package config

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

// UserConfigPath returns <user config dir>/slick/config.toml.
func UserConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine user config directory")
	}
	return filepath.Join(dir, "slick", "config.toml"), nil
}

// SaveUserDefaults writes the non-empty fields of sel to the TOML file at
// path (UserConfigPath when empty). Unrelated keys already present in the
// file are preserved.
func SaveUserDefaults(path string, sel Selection) error {
	if path == "" {
		p, err := UserConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	doc := map[string]any{}
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(content, &doc); err != nil {
			return errors.Wrapf(err, "failed to parse existing config %s", path)
		}
	case !errors.Is(err, os.ErrNotExist):
		return errors.Wrapf(err, "failed to read config %s", path)
	}

	if sel.Model != "" {
		doc[keyModel] = sel.Model
	}
	if sel.Provider != "" {
		doc[keyProvider] = sel.Provider
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	out, err := toml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write config %s", path)
	}
	return nil
}
