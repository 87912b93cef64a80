package main

import (
	"time"

	flag "github.com/spf13/pflag"
)

// Config holds client runtime configuration. Defaults reproduce the fixed
// demo values: localhost:8888 as root/root.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	DialTimeout time.Duration
	MetricsAddr string
	Debug       bool
}

var cfg Config

// init registers all client flags into the default flag set.
func init() {
	flag.StringVar(&cfg.Host, "host", "localhost", "server host")
	flag.IntVarP(&cfg.Port, "port", "p", 8888, "server port")
	flag.StringVarP(&cfg.Username, "username", "u", "root", "AUTH username")
	flag.StringVar(&cfg.Password, "password", "root", "AUTH password")
	flag.DurationVar(&cfg.DialTimeout, "dial-timeout", 0, "connect timeout (0 = wait for the OS)")
	flag.StringVar(&cfg.MetricsAddr, "metrics", "", "serve Prometheus metrics on this address while connected")
	flag.BoolVar(&cfg.Debug, "debug", false, "enable debug logs")
}
