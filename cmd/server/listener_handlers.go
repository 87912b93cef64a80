package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/matst80/authconn/internal/authdb"
	"github.com/matst80/authconn/internal/obs"
	"github.com/matst80/authconn/internal/proto"
	"github.com/matst80/authconn/internal/ratelimit"
)

func acceptConns(ctx context.Context, ln net.Listener, state SessionStore, users *authdb.DB, limiter *ratelimit.Limiter, maxFrame int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		c, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				obs.Error("accept.timeout", obs.Fields{"err": err.Error()})
				continue
			}
			return
		}
		go handleConn(c, state, users, limiter, maxFrame)
	}
}

// handleConn answers every null-terminated request frame with one JSON line
// until the peer goes away. A successful AUTH registers a session that lives
// as long as the connection.
func handleConn(c net.Conn, state SessionStore, users *authdb.DB, limiter *ratelimit.Limiter, maxFrame int) {
	defer c.Close()
	remote := c.RemoteAddr().String()
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}
	if limiter != nil && !limiter.Allow(host) {
		obs.RateLimitedTotal.Inc()
		obs.Debug("conn.rate_limited", obs.Fields{"remote": remote})
		return
	}
	obs.AcceptedTotal.Inc()
	state.recordAccepted()
	obs.Debug("conn.accepted", obs.Fields{"remote": remote})

	var sess *session
	defer func() {
		if sess != nil {
			state.removeSession(sess.id)
			obs.Info("session.closed", obs.Fields{"id": sess.id, "username": sess.username, "duration": time.Since(sess.created).String()})
		}
	}()

	rd := bufio.NewReader(c)
	for {
		frame, err := proto.ReadFrame(rd, maxFrame)
		if err != nil {
			switch {
			case errors.Is(err, proto.ErrFrameTooLarge):
				obs.ErrorsTotal.WithLabelValues("frame_too_large").Inc()
				_ = writeJSONLine(c, proto.ResponseBadRequest)
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			default:
				obs.Error("conn.read", obs.Fields{"err": err.Error(), "remote": remote})
				obs.ErrorsTotal.WithLabelValues("conn_read").Inc()
			}
			return
		}
		var caller *session
		if sess != nil {
			caller = state.getSession(sess.id)
		}
		res, cmd, username := handleRequest(frame, users, caller)
		if cmd == proto.CommandAuth && res.Code == 200 && sess == nil {
			s := &session{id: uuid.NewString(), username: username, admin: authdb.IsAdmin(username), remote: host, conn: c, created: time.Now()}
			if err := state.addSession(s); err != nil {
				obs.Error("session.add", obs.Fields{"err": err.Error(), "username": username})
				obs.ErrorsTotal.WithLabelValues("session_add").Inc()
				res = proto.ResponseServerError
				res.Command = proto.CommandAuth
			} else {
				sess = s
				obs.Info("session.opened", obs.Fields{"id": s.id, "username": username, "admin": s.admin, "remote": remote})
			}
		}
		if cmd == proto.CommandAuth {
			state.recordAuth(res.Code == 200)
		}
		label := cmd
		if label == "" {
			label = "invalid"
		}
		obs.ResponsesTotal.WithLabelValues(label, strconv.Itoa(res.Code)).Inc()
		if err := writeJSONLine(c, res); err != nil {
			obs.Error("conn.write", obs.Fields{"err": err.Error(), "remote": remote})
			obs.ErrorsTotal.WithLabelValues("conn_write").Inc()
			return
		}
	}
}

func writeJSONLine(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

func runCleanupLoop(ctx context.Context, state SessionStore, limiter *ratelimit.Limiter, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			limiter.Cleanup(state.activeHosts())
		}
	}
}
