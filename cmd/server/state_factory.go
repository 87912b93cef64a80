package main

import "github.com/matst80/authconn/internal/obs"

// newSessionStore creates either an in-memory or Redis-backed store based on configuration.
func newSessionStore(redisAddr, redisPassword string, redisDB int) (SessionStore, error) {
	if redisAddr == "" {
		obs.Info("state.backend", obs.Fields{"type": "in-memory"})
		return newServerState(), nil
	}
	obs.Info("state.backend", obs.Fields{"type": "redis", "addr": redisAddr})
	return newRedisSessionStore(redisAddr, redisPassword, redisDB)
}
