package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

const defaultConfigFile = ".gitwire.toml"

// config stores tool settings, principally named remotes.
type config struct {
	Remotes map[string]string `toml:"remotes"`
}

// loadConfig reads a TOML config file. A missing file yields an empty
// config.
func loadConfig(path string) (*config, error) {
	var cfg config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &config{Remotes: map[string]string{}}, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = map[string]string{}
	}
	return &cfg, nil
}

// resolveRemote maps a command argument to a remote URI: a URL or path is
// used as given, anything else is looked up as a named remote.
func resolveRemote(cfg *config, arg string) (string, error) {
	if looksLikeRemoteURL(arg) {
		return arg, nil
	}
	if uri, ok := cfg.Remotes[arg]; ok {
		return uri, nil
	}
	return "", fmt.Errorf("unknown remote %q (no such name in config, not a URL)", arg)
}

func looksLikeRemoteURL(s string) bool {
	if strings.Contains(s, "://") {
		return true
	}
	// scp-like user@host:path
	if at := strings.IndexByte(s, '@'); at > 0 && strings.IndexByte(s[at:], ':') > 0 {
		return true
	}
	// filesystem path
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../")
}
