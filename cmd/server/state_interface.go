package main

import (
	"net"
	"time"
)

// session is one authenticated connection.
// conn is only valid on the instance that accepted it.
type session struct {
	id       string
	username string
	admin    bool
	remote   string
	conn     net.Conn
	created  time.Time
}

// SessionStore abstracts session bookkeeping so several servers can share it.
type SessionStore interface {
	addSession(s *session) error
	removeSession(id string)
	getSession(id string) *session
	activeHosts() map[string]bool
	setClosing(closing bool)
	setReady(ready bool)
	isClosing() bool
	isReady() bool
	closeAll() int
	getStats() (sessions int, accepted int64, authOK int64, authFailed int64)
	recordAuth(ok bool)
	recordAccepted()
}
