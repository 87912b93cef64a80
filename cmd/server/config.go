package main

import (
	"time"

	flag "github.com/spf13/pflag"
)

// Config holds all runtime configuration derived from flags.
type Config struct {
	ListenAddr      string
	UsersFile       string
	MaxFrameSize    int
	MetricsAddr     string
	Debug           bool
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	GlobalConnRate  int
	GlobalConnBurst int
	PerHostConnRate int
	ConnBurst       int
	CleanupInterval time.Duration
}

var cfg Config

// init registers flags into the global flag set. main() parses and uses cfg.
func init() {
	flag.StringVarP(&cfg.ListenAddr, "listen", "l", ":8888", "address for client connections")
	flag.StringVar(&cfg.UsersFile, "users", "", "YAML users file (default: built-in root/root)")
	flag.IntVar(&cfg.MaxFrameSize, "max-frame-size", 64*1024, "maximum request frame size in bytes")
	flag.StringVar(&cfg.MetricsAddr, "metrics", ":9100", "metrics and health listen address (empty disables)")
	flag.BoolVar(&cfg.Debug, "debug", false, "enable debug logs")
	flag.StringVar(&cfg.RedisAddr, "redis", "", "Redis address for shared session state (empty = in-memory)")
	flag.StringVar(&cfg.RedisPassword, "redis-password", "", "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", 0, "Redis database number")
	flag.IntVar(&cfg.GlobalConnRate, "global-conn-rate", 0, "accepted connections per second across all hosts (0 = unlimited)")
	flag.IntVar(&cfg.GlobalConnBurst, "global-conn-burst", 100, "global rate limiter burst size")
	flag.IntVar(&cfg.PerHostConnRate, "host-conn-rate", 10, "accepted connections per second per remote host (0 = unlimited)")
	flag.IntVar(&cfg.ConnBurst, "conn-burst", 20, "per-host rate limiter burst size")
	flag.DurationVar(&cfg.CleanupInterval, "cleanup-interval", 30*time.Second, "interval for pruning idle rate limiter state")
}
