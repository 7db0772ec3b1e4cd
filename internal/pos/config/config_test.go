package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()
	assert.Equal(t, "http://127.0.0.1:8080", cfg.ServerEndpointAddr)
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
	assert.False(t, cfg.OfflineMode)
}

func TestJsonConfig_DurationForms(t *testing.T) {
	var c JsonConfig
	require.NoError(t, json.Unmarshal([]byte(`{"online_check_interval":"5s","offline_mode":true}`), &c))
	assert.Equal(t, 5*time.Second, c.OnlineCheckInterval.Duration)
	assert.True(t, c.OfflineMode)

	require.NoError(t, json.Unmarshal([]byte(`{"online_check_interval":1000000000}`), &c))
	assert.Equal(t, time.Second, c.OnlineCheckInterval.Duration)
}
