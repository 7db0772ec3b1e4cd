package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/stapos/stapos/internal/flagx"
	"github.com/stapos/stapos/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON
// configuration files. It uses timex.Duration for interval fields, which
// allows parsing both string values such as "3s" and integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	DatabasePath        string         `json:"database_path"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	OfflineMode         bool           `json:"offline_mode"`
}

// parseJson loads configuration values from the JSON file named by the
// -c or -config flags. When neither flag is set no file is loaded.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.ServerEndpointAddr = c.ServerEndpointAddr
	config.DatabasePath = c.DatabasePath
	config.OnlineCheckInterval = time.Duration(c.OnlineCheckInterval.Duration)
	config.OfflineMode = c.OfflineMode
}
