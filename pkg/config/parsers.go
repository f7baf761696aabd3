package config

import (
	"flag"
	"net"
	"os"
	"strconv"
	"strings"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Addr       string
	ClientRoot string
	Manifest   string
	Config     string
	Set        map[string]bool
}

// ParseCommandFlags defines and parses command-line flags and returns them
// along with a map indicating which flags were explicitly set.
func ParseCommandFlags() Flags {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	clientPtr := flag.String("client", DefaultClientRoot, "Client (static) root directory")
	manifestPtr := flag.String("manifest", DefaultManifestPath, "Path to the build manifest")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return Flags{Addr: *addrPtr, ClientRoot: *clientPtr, Manifest: *manifestPtr, Config: *cfgPtr, Set: setFlags}
}

// ResolveConfigPath picks the config path: an explicit flag wins, then the
// RENDERGATE_CONFIG env var, then the flag default.
func ResolveConfigPath(flagVal string, flagSet bool) string {
	if flagSet {
		return flagVal
	}
	if v := os.Getenv("RENDERGATE_CONFIG"); v != "" {
		return v
	}
	return flagVal
}

// ParseConfigFile resolves the config path and loads the YAML file. It
// returns the parsed config, a boolean indicating whether the file was
// present, and an error for fatal parsing problems.
func ParseConfigFile(flags Flags) (*Config, bool, error) {
	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := Load(cfgPath)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return &Config{}, false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}

// LoadEnvOverrides applies RENDERGATE_* environment overrides onto the
// provided cfg and reports whether any env var was used.
func LoadEnvOverrides(cfg *Config) bool {
	envUsed := false
	parseList := func(v string) []string {
		if v == "" {
			return nil
		}
		parts := []string{}
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				parts = append(parts, s)
			}
		}
		return parts
	}

	if v := os.Getenv("RENDERGATE_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	} else {
		if host := os.Getenv("RENDERGATE_ADDRESS"); host != "" {
			envUsed = true
			cfg.Server.Address = host
		}
		if port := os.Getenv("RENDERGATE_PORT"); port != "" {
			envUsed = true
			if pi, err := strconv.Atoi(port); err == nil {
				cfg.Server.Port = pi
			}
		}
	}
	if v := os.Getenv("RENDERGATE_ENGINE"); v != "" {
		envUsed = true
		cfg.Server.Engine = strings.TrimSpace(v)
	}
	if v := os.Getenv("RENDERGATE_CLIENT_ROOT"); v != "" {
		envUsed = true
		cfg.Site.ClientRoot = v
	}
	if v := os.Getenv("RENDERGATE_SERVER_ROOT"); v != "" {
		envUsed = true
		cfg.Site.ServerRoot = v
	}
	if v := os.Getenv("RENDERGATE_MANIFEST"); v != "" {
		envUsed = true
		cfg.Site.ManifestPath = v
	}
	if v := os.Getenv("RENDERGATE_ASSETS_DIR"); v != "" {
		envUsed = true
		cfg.Site.AssetsDir = v
	}
	if v := os.Getenv("RENDERGATE_BASE"); v != "" {
		envUsed = true
		cfg.Site.Base = v
	}
	if v := os.Getenv("RENDERGATE_TRAILING_SLASH"); v != "" {
		envUsed = true
		cfg.Site.TrailingSlash = strings.TrimSpace(v)
	}
	if v := os.Getenv("RENDERGATE_MIDDLEWARE_FIRST"); v != "" {
		envUsed = true
		cfg.Site.MiddlewareFirst = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("RENDERGATE_ALLOWED_DOMAINS"); v != "" {
		envUsed = true
		cfg.Security.AllowedDomains = parseList(v)
	}
	if v := os.Getenv("RENDERGATE_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envUsed = true
			cfg.Security.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("RENDERGATE_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Security.RateLimit.Burst = n
		}
	}
	if v := os.Getenv("RENDERGATE_LOG_LEVEL"); v != "" {
		envUsed = true
		cfg.Logging.Level = strings.TrimSpace(v)
	}
	return envUsed
}
