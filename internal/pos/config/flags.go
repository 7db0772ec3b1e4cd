package config

import (
	"flag"
	"os"
	"time"

	"github.com/stapos/stapos/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   backend base URL (e.g., "http://127.0.0.1:8080")
//	-f string   embedded database file path
//	-i int      online check interval, seconds
//	-o          offline mode, never contact the backend
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-f", "-i", "-o"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ServerEndpointAddr, "a", config.ServerEndpointAddr, "backend base URL")
	fs.StringVar(&config.DatabasePath, "f", config.DatabasePath, "embedded database file")
	onlineCheckInterval := fs.Int("i", int(config.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.BoolVar(&config.OfflineMode, "o", config.OfflineMode, "offline mode")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
