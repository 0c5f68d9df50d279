package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultFiles are the config file names searched in the working
// directory when no explicit path is given.
var DefaultFiles = []string{"calltrack.yaml", "calltrack.yml"}

// Load reads the configuration. An empty path searches DefaultFiles and
// falls back to Default when none exists; an explicit path must exist.
// File values overlay the defaults, so a partial file is fine. Unknown
// keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range DefaultFiles {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
