package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/matst80/authconn/internal/authdb"
	"github.com/matst80/authconn/internal/obs"
	"github.com/matst80/authconn/internal/ratelimit"
	flag "github.com/spf13/pflag"
)

func main() {
	flag.Parse()
	if cfg.Debug {
		obs.EnableDebug(true)
	}
	obs.Info("server.start", obs.Fields{"listen": cfg.ListenAddr, "metrics": cfg.MetricsAddr})

	users := authdb.Default()
	if cfg.UsersFile != "" {
		u, err := authdb.Load(cfg.UsersFile)
		if err != nil {
			obs.Error("users.load", obs.Fields{"err": err.Error(), "path": cfg.UsersFile})
			os.Exit(1)
		}
		users = u
	}
	obs.Info("users.loaded", obs.Fields{"count": users.Len()})

	state, err := newSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		obs.Error("state.init", obs.Fields{"err": err.Error()})
		os.Exit(1)
	}
	limiter := ratelimit.New(cfg.GlobalConnRate, cfg.GlobalConnBurst, cfg.PerHostConnRate, cfg.ConnBurst)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		obs.Error("listen", obs.Fields{"err": err.Error(), "addr": cfg.ListenAddr})
		os.Exit(1)
	}
	defer ln.Close()

	if cfg.MetricsAddr != "" {
		go startMetricsServer(cfg.MetricsAddr, state)
	}
	if rs, ok := state.(*redisSessionStore); ok {
		go rs.startMaintenance(ctx)
	}
	go runCleanupLoop(ctx, state, limiter, cfg.CleanupInterval)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() { defer wg.Done(); acceptConns(ctx, ln, state, users, limiter, cfg.MaxFrameSize) }()

	state.setReady(true)
	obs.Info("server.ready", obs.Fields{"addr": ln.Addr().String()})

	<-ctx.Done()
	obs.Info("server.shutdown.signal", obs.Fields{})
	state.setClosing(true)
	_ = ln.Close()
	wg.Wait()
	closed := state.closeAll()
	obs.Info("server.shutdown.complete", obs.Fields{"closed_sessions": closed})
}
