package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"

	"go.viam.com/terrain/logging"
)

// FromFile reads a config from the given file. Environment variables referenced as $VAR or
// ${VAR} are expanded before decoding.
func FromFile(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return Read(bytes.NewReader(buf), logger)
}

// Read decodes a JSON config from r. Fields missing from the document keep their Default
// values and unknown fields are rejected. The result is validated.
func Read(r io.Reader, logger logging.Logger) (*Config, error) {
	cfg := Default()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	logger.Debugw("read config",
		"algorithm", cfg.Algorithm, "cell_size", cfg.CellSize, "interval", cfg.EffectiveInterval())
	return &cfg, nil
}
