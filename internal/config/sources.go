package config

import (
	"fmt"
	"os"
)

// SettingSource represents where a setting value comes from.
type SettingSource string

const (
	SourceEnv     SettingSource = "env"
	SourceConfig  SettingSource = "config"
	SourceDefault SettingSource = "default"
)

// SettingStatus describes one effective setting for status output.
type SettingStatus struct {
	Name   string        `json:"name"`
	Value  string        `json:"value"`
	Source SettingSource `json:"source"`
}

// Describe returns the settings an operator usually needs to check when the
// dashboard shows stale or missing data.
func Describe(cfg *Config) []SettingStatus {
	return []SettingStatus{
		describe("backend.origin", cfg.Backend.Origin),
		describe("backend.api_path", cfg.Backend.APIPath),
		describe("backend.dev_port", fmt.Sprint(cfg.Backend.DevPort)),
		describe("backend.upstream", cfg.Backend.Upstream),
		describe("dashboard.page_host", cfg.Dashboard.PageHost),
		describe("dashboard.refresh_interval", cfg.Dashboard.RefreshInterval.String()),
		describe("api.port", fmt.Sprint(cfg.API.Port)),
		describe("logging.level", cfg.Logging.Level),
	}
}

// describe reports whether a key was overridden by env, set in the config
// file, or left at its built-in default.
func describe(key, value string) SettingStatus {
	status := SettingStatus{Name: key, Value: value, Source: SourceDefault}
	if os.Getenv(EnvKey(key)) != "" {
		status.Source = SourceEnv
	} else if inConfigFile(key) {
		status.Source = SourceConfig
	}
	return status
}

// EnvKey maps a dotted config key to its environment variable name,
// e.g. "backend.origin" → "TOP10_BACKEND_ORIGIN".
func EnvKey(key string) string {
	out := make([]byte, 0, len(EnvPrefix)+1+len(key))
	out = append(out, EnvPrefix...)
	out = append(out, '_')
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c == '.':
			c = '_'
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
