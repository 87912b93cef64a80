package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/matst80/authconn/internal/obs"
	"github.com/redis/go-redis/v9"
)

// sessionData is the JSON form stored in Redis (sans conn).
type sessionData struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Admin    bool      `json:"admin"`
	Remote   string    `json:"remote"`
	Instance string    `json:"instance"`
	Created  time.Time `json:"created"`
}

// redisSessionStore implements SessionStore using Redis so sessions are visible
// across server instances. Connections stay in a local map.
type redisSessionStore struct {
	client     *redis.Client
	mu         sync.Mutex
	local      map[string]*session
	closing    bool
	ready      bool
	instanceID string

	heartbeatInterval time.Duration
	keyTTL            time.Duration
}

func newRedisSessionStore(addr, password string, db int) (*redisSessionStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &redisSessionStore{
		client:            rdb,
		local:             make(map[string]*session),
		instanceID:        fmt.Sprintf("authconn-%d", time.Now().UnixNano()),
		heartbeatInterval: 30 * time.Second,
		keyTTL:            5 * time.Minute,
	}, nil
}

var _ SessionStore = (*redisSessionStore)(nil)

func (r *redisSessionStore) setClosing(closing bool) { r.mu.Lock(); r.closing = closing; r.mu.Unlock() }
func (r *redisSessionStore) setReady(ready bool)     { r.mu.Lock(); r.ready = ready; r.mu.Unlock() }
func (r *redisSessionStore) isClosing() bool         { r.mu.Lock(); defer r.mu.Unlock(); return r.closing }
func (r *redisSessionStore) isReady() bool           { r.mu.Lock(); defer r.mu.Unlock(); return r.ready }

func (r *redisSessionStore) data(s *session) sessionData {
	return sessionData{ID: s.id, Username: s.username, Admin: s.admin, Remote: s.remote, Instance: r.instanceID, Created: s.created}
}

func (r *redisSessionStore) addSession(s *session) error {
	ctx := context.Background()
	b, err := json.Marshal(r.data(s))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := r.client.SetNX(ctx, "session:"+s.id, b, r.keyTTL).Result()
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("session already registered: %s", s.id)
	}
	r.mu.Lock()
	r.local[s.id] = s
	obs.ActiveSessions.Set(float64(len(r.local)))
	r.mu.Unlock()
	return nil
}

func (r *redisSessionStore) getSession(id string) *session {
	r.mu.Lock()
	s, ok := r.local[id]
	r.mu.Unlock()
	if ok {
		return s
	}
	val, err := r.client.Get(context.Background(), "session:"+id).Result()
	if err != nil {
		if err != redis.Nil {
			obs.Error("redis.get_session", obs.Fields{"err": err.Error(), "id": id})
		}
		return nil
	}
	var d sessionData
	if err := json.Unmarshal([]byte(val), &d); err != nil {
		obs.Error("redis.unmarshal_session", obs.Fields{"err": err.Error(), "id": id})
		return nil
	}
	return &session{id: d.ID, username: d.Username, admin: d.Admin, remote: d.Remote, created: d.Created}
}

func (r *redisSessionStore) removeSession(id string) {
	if err := r.client.Del(context.Background(), "session:"+id).Err(); err != nil {
		obs.Error("redis.remove_session", obs.Fields{"err": err.Error(), "id": id})
	}
	r.mu.Lock()
	delete(r.local, id)
	obs.ActiveSessions.Set(float64(len(r.local)))
	r.mu.Unlock()
}

func (r *redisSessionStore) activeHosts() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	hosts := make(map[string]bool, len(r.local))
	for _, s := range r.local {
		hosts[s.remote] = true
	}
	return hosts
}

func (r *redisSessionStore) closeAll() int {
	r.mu.Lock()
	sessions := make([]*session, 0, len(r.local))
	for _, s := range r.local {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()
	for _, s := range sessions {
		_ = s.conn.Close()
	}
	return len(sessions)
}

func (r *redisSessionStore) recordAccepted() {
	if err := r.client.HIncrBy(context.Background(), "stats", "accepted", 1).Err(); err != nil {
		obs.Error("redis.stats", obs.Fields{"err": err.Error()})
	}
}

func (r *redisSessionStore) recordAuth(ok bool) {
	field := "auth_failed"
	if ok {
		field = "auth_ok"
	}
	if err := r.client.HIncrBy(context.Background(), "stats", field, 1).Err(); err != nil {
		obs.Error("redis.stats", obs.Fields{"err": err.Error()})
	}
}

// getStats reports local sessions plus the cluster-wide counters.
func (r *redisSessionStore) getStats() (int, int64, int64, int64) {
	r.mu.Lock()
	n := len(r.local)
	r.mu.Unlock()
	var counters struct {
		Accepted   int64 `redis:"accepted"`
		AuthOK     int64 `redis:"auth_ok"`
		AuthFailed int64 `redis:"auth_failed"`
	}
	if err := r.client.HGetAll(context.Background(), "stats").Scan(&counters); err != nil {
		obs.Error("redis.stats", obs.Fields{"err": err.Error()})
	}
	return n, counters.Accepted, counters.AuthOK, counters.AuthFailed
}

// startMaintenance periodically extends the TTL of locally owned sessions.
func (r *redisSessionStore) startMaintenance(ctx context.Context) {
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.heartbeat()
		}
	}
}

func (r *redisSessionStore) heartbeat() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.local))
	for id := range r.local {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	if len(ids) == 0 {
		return
	}
	ctx := context.Background()
	pipe := r.client.Pipeline()
	for _, id := range ids {
		pipe.Expire(ctx, "session:"+id, r.keyTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		obs.Error("redis.heartbeat", obs.Fields{"err": err.Error(), "sessions": len(ids)})
	}
}
