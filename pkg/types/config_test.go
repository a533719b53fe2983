package types

import (
	"errors"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{
			name:    "default config is valid",
			mutate:  func(c *Config) {},
			wantErr: nil,
		},
		{
			name:    "empty backend returns ErrBackendEmpty",
			mutate:  func(c *Config) { c.Cache.Backend = "" },
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			mutate:  func(c *Config) { c.Cache.Backend = "redis" },
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "file backend is valid",
			mutate:  func(c *Config) { c.Cache.Backend = BackendFile },
			wantErr: nil,
		},
		{
			name:    "relative remote url returns ErrRemoteURLInvalid",
			mutate:  func(c *Config) { c.Remote.URL = "greenmap.local/api" },
			wantErr: ErrRemoteURLInvalid,
		},
		{
			name:    "https remote url is valid",
			mutate:  func(c *Config) { c.Remote.URL = "https://functions.example.com/greenmap" },
			wantErr: nil,
		},
		{
			name:    "negative timeout returns ErrTimeoutInvalid",
			mutate:  func(c *Config) { c.Remote.TimeoutSeconds = -1 },
			wantErr: ErrTimeoutInvalid,
		},
		{
			name:    "ftp geocoder url returns ErrGeocoderURLInvalid",
			mutate:  func(c *Config) { c.Geocoder.URL = "ftp://nominatim.example.com" },
			wantErr: ErrGeocoderURLInvalid,
		},
		{
			name:    "negative rate returns ErrGeocoderRateInvalid",
			mutate:  func(c *Config) { c.Geocoder.RequestsPerSecond = -2 },
			wantErr: ErrGeocoderRateInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	var r RemoteConfig
	if got := r.GetTimeout(); got != DefaultRemoteTimeout {
		t.Fatalf("GetTimeout() = %v, want %v", got, DefaultRemoteTimeout)
	}
	r.TimeoutSeconds = 3
	if got := r.GetTimeout(); got != 3*time.Second {
		t.Fatalf("GetTimeout() = %v, want 3s", got)
	}

	var g GeocoderConfig
	if got := g.GetUserAgent(); got != DefaultUserAgent {
		t.Fatalf("GetUserAgent() = %q, want %q", got, DefaultUserAgent)
	}
	if got := g.GetRequestsPerSecond(); got != DefaultRequestsPerSecond {
		t.Fatalf("GetRequestsPerSecond() = %v, want %v", got, DefaultRequestsPerSecond)
	}
}
