// Package types defines the entity types, the persistence gateway contract,
// configuration, and the standard errors shared by every greenmap package.
package types

import (
	"errors"
	"net/url"
	"time"
)

// Config holds cache, remote, and geocoder settings for a greenmap service.
type Config struct {
	DataDir  string         `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	Cache    CacheConfig    `json:"cache" yaml:"cache" mapstructure:"cache"`
	Remote   RemoteConfig   `json:"remote" yaml:"remote" mapstructure:"remote"`
	Geocoder GeocoderConfig `json:"geocoder" yaml:"geocoder" mapstructure:"geocoder"`
}

// CacheConfig selects the local cache backend.
type CacheConfig struct {
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`
}

// RemoteConfig points at the remote inventory endpoint. An empty URL means
// the service runs against the local cache only.
type RemoteConfig struct {
	URL            string `json:"url" yaml:"url" mapstructure:"url"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// GeocoderConfig configures the optional reverse-geocoding lookup. An empty
// URL disables it.
type GeocoderConfig struct {
	URL               string  `json:"url" yaml:"url" mapstructure:"url"`
	UserAgent         string  `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// Supported cache backend names.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Defaults applied when a value is left at zero.
const (
	DefaultRemoteTimeout     = 10 * time.Second
	DefaultUserAgent         = "greenmap"
	DefaultRequestsPerSecond = 1.0
)

// Config validation errors.
var (
	ErrBackendEmpty        = errors.New("cache backend must not be empty")
	ErrBackendUnknown      = errors.New("unknown cache backend")
	ErrRemoteURLInvalid    = errors.New("remote url must be an absolute http(s) url")
	ErrTimeoutInvalid      = errors.New("remote timeout must not be negative")
	ErrGeocoderURLInvalid  = errors.New("geocoder url must be an absolute http(s) url")
	ErrGeocoderRateInvalid = errors.New("geocoder rate must not be negative")
)

var knownBackends = map[string]bool{
	BackendSQLite: true,
	BackendFile:   true,
	BackendMemory: true,
}

// DefaultConfig returns the configuration used when no config.yaml exists.
func DefaultConfig() Config {
	return Config{
		Cache: CacheConfig{Backend: BackendSQLite},
		Remote: RemoteConfig{
			TimeoutSeconds: int(DefaultRemoteTimeout / time.Second),
		},
		Geocoder: GeocoderConfig{
			UserAgent:         DefaultUserAgent,
			RequestsPerSecond: DefaultRequestsPerSecond,
		},
	}
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Cache.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Cache.Backend] {
		return ErrBackendUnknown
	}
	if c.Remote.URL != "" && !isHTTPURL(c.Remote.URL) {
		return ErrRemoteURLInvalid
	}
	if c.Remote.TimeoutSeconds < 0 {
		return ErrTimeoutInvalid
	}
	if c.Geocoder.URL != "" && !isHTTPURL(c.Geocoder.URL) {
		return ErrGeocoderURLInvalid
	}
	if c.Geocoder.RequestsPerSecond < 0 {
		return ErrGeocoderRateInvalid
	}
	return nil
}

// GetTimeout returns the remote request timeout, defaulting to
// DefaultRemoteTimeout when unset.
func (r RemoteConfig) GetTimeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return DefaultRemoteTimeout
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// GetUserAgent returns the configured User-Agent or DefaultUserAgent.
func (g GeocoderConfig) GetUserAgent() string {
	if g.UserAgent == "" {
		return DefaultUserAgent
	}
	return g.UserAgent
}

// GetRequestsPerSecond returns the configured rate or DefaultRequestsPerSecond.
func (g GeocoderConfig) GetRequestsPerSecond() float64 {
	if g.RequestsPerSecond <= 0 {
		return DefaultRequestsPerSecond
	}
	return g.RequestsPerSecond
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
