package main

import "time"

// Stats represents current server stats for the state API.
type Stats struct {
	Sessions   int    `json:"sessions"`
	Accepted   int64  `json:"accepted"`
	AuthOK     int64  `json:"auth_ok"`
	AuthFailed int64  `json:"auth_failed"`
	Now        string `json:"now"`
}

func collectStats(s SessionStore) Stats {
	n, accepted, ok, failed := s.getStats()
	return Stats{Sessions: n, Accepted: accepted, AuthOK: ok, AuthFailed: failed, Now: time.Now().UTC().Format(time.RFC3339)}
}
