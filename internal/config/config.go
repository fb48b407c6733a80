// Package config loads the optional textpatch configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/taigrr/textpatch/internal/types"
)

// DefaultFile is looked up in the root when no explicit path is given.
const DefaultFile = ".textpatch.yaml"

// Load reads the configuration. With an empty path it tries DefaultFile in
// root and falls back to defaults when that file does not exist; an explicit
// path must exist.
func Load(root, path string) (types.Config, error) {
	var cfg types.Config

	explicit := path != ""
	if !explicit {
		path = filepath.Join(root, DefaultFile)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}

	if cfg.DiffContext != nil && *cfg.DiffContext < 0 {
		return cfg, fmt.Errorf("invalid config %s: diffContext must not be negative", path)
	}

	return cfg, nil
}
