package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/greenmap/internal/paths"
	"github.com/mesh-intelligence/greenmap/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "GREENMAP"
)

// loadConfig reads config.yaml from the resolved config directory, applies
// GREENMAP_* environment overrides and the global flags, and validates the
// result. A missing config.yaml is not an error.
func (a *app) loadConfig() (types.Config, error) {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve config dir: %w", err)
	}

	def := types.DefaultConfig()
	v := viper.New()
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("cache.backend", def.Cache.Backend)
	v.SetDefault("remote.url", def.Remote.URL)
	v.SetDefault("remote.timeout_seconds", def.Remote.TimeoutSeconds)
	v.SetDefault("geocoder.url", def.Geocoder.URL)
	v.SetDefault("geocoder.user_agent", def.Geocoder.UserAgent)
	v.SetDefault("geocoder.requests_per_second", def.Geocoder.RequestsPerSecond)

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.DataDir, err = paths.ResolveDataDir(a.flags.dataDir, cfg.DataDir)
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	if a.flags.remoteURL != "" {
		cfg.Remote.URL = a.flags.remoteURL
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// writeConfigIfMissing creates config.yaml in configDir with default values
// and the given data directory. An existing file is left untouched.
func writeConfigIfMissing(configDir, dataDir string) (path string, created bool, err error) {
	path = filepath.Join(configDir, paths.ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return path, false, fmt.Errorf("create config directory: %w", err)
	}

	cfg := types.DefaultConfig()
	cfg.DataDir = dataDir
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return path, false, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# greenmap configuration\n# cache.backend: sqlite | file | memory; empty remote.url runs offline.\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return path, false, err
	}
	return path, true, nil
}
