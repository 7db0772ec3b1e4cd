// Package config handles configuration for the POS terminal client.
package config

import "time"

// Config holds runtime settings for the terminal.
//
// Fields:
//   - ServerEndpointAddr: base URL of the sync backend (e.g., "http://127.0.0.1:8080").
//   - DatabasePath: path of the embedded database file.
//   - OnlineCheckInterval: how often the client probes backend reachability.
//   - OfflineMode: pins the terminal to the embedded store; the backend is
//     never contacted. For standalone desktop deployments.
type Config struct {
	ServerEndpointAddr  string
	DatabasePath        string
	OnlineCheckInterval time.Duration
	OfflineMode         bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.DatabasePath = "stapos.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.OfflineMode = false
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
