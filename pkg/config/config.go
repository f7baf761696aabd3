package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied when neither file, env, nor flags provide a value.
const (
	DefaultClientRoot    = "./dist/client"
	DefaultServerRoot    = "./dist/server"
	DefaultManifestPath  = "./dist/server/manifest.json"
	DefaultAssetsDir     = "_assets"
	DefaultTrailingSlash = "ignore"
)

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills zero-valued fields with the canonical defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Engine == "" {
		cfg.Server.Engine = "nethttp"
	}
	if cfg.Site.ClientRoot == "" {
		cfg.Site.ClientRoot = DefaultClientRoot
	}
	if cfg.Site.ServerRoot == "" {
		cfg.Site.ServerRoot = DefaultServerRoot
	}
	if cfg.Site.ManifestPath == "" {
		cfg.Site.ManifestPath = DefaultManifestPath
	}
	if cfg.Site.AssetsDir == "" {
		cfg.Site.AssetsDir = DefaultAssetsDir
	}
	if cfg.Site.TrailingSlash == "" {
		cfg.Site.TrailingSlash = DefaultTrailingSlash
	}
}

// EffectiveConfigResult is the merged configuration the server runs with,
// together with where the values came from.
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	Source string // "flags", "config", or "env"
}

// LoadEffective merges config file, environment overrides and command-line
// flags (flags win over env, env wins over file) into a single effective
// config. A missing config file is not an error; env and defaults apply.
func LoadEffective(flags Flags) (EffectiveConfigResult, error) {
	source := "config"
	cfg, present, err := ParseConfigFile(flags)
	if err != nil {
		return EffectiveConfigResult{}, err
	}
	if !present {
		source = "env"
	}
	if envUsed := LoadEnvOverrides(cfg); envUsed && !present {
		source = "env"
	}
	applyDefaults(cfg)

	addr := cfg.Addr()
	if flags.Set["addr"] {
		addr = flags.Addr
		source = "flags"
	}
	if flags.Set["client"] {
		cfg.Site.ClientRoot = flags.ClientRoot
		source = "flags"
	}
	if flags.Set["manifest"] {
		cfg.Site.ManifestPath = flags.Manifest
		source = "flags"
	}
	if err := validate(cfg); err != nil {
		return EffectiveConfigResult{}, err
	}
	return EffectiveConfigResult{Config: cfg, Addr: addr, Source: source}, nil
}

// validate rejects values the dispatcher cannot run with.
func validate(cfg *Config) error {
	switch cfg.Site.TrailingSlash {
	case "never", "ignore", "always":
	default:
		return fmt.Errorf("invalid trailing_slash mode: %q", cfg.Site.TrailingSlash)
	}
	switch cfg.Server.Engine {
	case "nethttp", "fasthttp":
	default:
		return fmt.Errorf("invalid server engine: %q", cfg.Server.Engine)
	}
	return nil
}
