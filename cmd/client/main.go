package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/matst80/authconn/internal/connector"
	"github.com/matst80/authconn/internal/obs"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"
)

func main() {
	flag.Parse()
	if cfg.Debug {
		obs.EnableDebug(true)
	}
	if cfg.MetricsAddr != "" {
		go startMetricsServer(cfg.MetricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		stop()
		os.Exit(1)
	}
}

// run makes the single connection attempt. There is no reconnect.
func run(ctx context.Context, cfg Config) error {
	target := connector.Target{Host: cfg.Host, Port: cfg.Port}
	h := connector.NewAuthHandler(cfg.Username, cfg.Password)
	c := connector.New(h)
	c.DialTimeout = cfg.DialTimeout

	obs.Debug("client.start", obs.Fields{"addr": target.Addr(), "conn_id": h.ID})
	err := c.Connect(ctx, target)
	var ce *connector.ConnectionError
	var we *connector.WriteError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ce):
		obs.Error("client.connect", obs.Fields{"err": ce.Err.Error(), "addr": ce.Addr})
	case errors.As(err, &we):
		obs.Error("client.write", obs.Fields{"err": we.Err.Error(), "addr": we.Addr})
	case errors.Is(err, context.Canceled):
		obs.Info("client.interrupted", obs.Fields{"addr": target.Addr()})
		return nil
	default:
		obs.Error("client.run", obs.Fields{"err": err.Error(), "addr": target.Addr()})
	}
	return err
}

func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		obs.Error("metrics.server", obs.Fields{"err": err.Error(), "addr": addr})
	}
}
