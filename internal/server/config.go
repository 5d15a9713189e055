package server

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the server and correction defaults.
type Config struct {
	// HTTPAddr is the listen address for the REST API (e.g. ":9095").
	HTTPAddr string `yaml:"http_addr"`
	// AuthToken, when set, is required as a Bearer token on every API call.
	AuthToken string `yaml:"auth_token"`

	// DefaultWeighting is used when a correction request names no policy.
	DefaultWeighting string `yaml:"default_weighting"`
	// KDistanceK is the neighbour count for the k-distance recomputation
	// path. 0 falls back to the library default.
	KDistanceK int `yaml:"k_distance_k"`
	// Parallelism bounds the weight-computation workers. 0 = GOMAXPROCS.
	Parallelism int `yaml:"parallelism"`

	// Precision selects the reduced-dimension storage: "float64" keeps the
	// full matrix, "float16" packs it to half the memory.
	Precision string `yaml:"precision"`
}

// DefaultConfig returns a working local configuration.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:         ":9095",
		DefaultWeighting: "k-distance",
		KDistanceK:       0, // library default (21)
		Precision:        "float64",
	}
}

// LoadConfig reads the YAML configuration file using strict parsing.
// An empty path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig() // Start with defaults
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	// Strict decoding: unknown keys are almost always typos.
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Precision != "float64" && cfg.Precision != "float16" {
		return cfg, fmt.Errorf("invalid precision %q (want float64 or float16)", cfg.Precision)
	}
	return cfg, nil
}
