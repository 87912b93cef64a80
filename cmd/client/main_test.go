package main

import (
	"bufio"
	"context"
	"errors"
	"net"
	"testing"

	"github.com/matst80/authconn/internal/connector"
	"github.com/matst80/authconn/internal/proto"
)

func TestRunAgainstReplyingPeer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	got := make(chan string, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		frame, err := proto.ReadFrame(bufio.NewReader(c), 0)
		if err != nil {
			got <- "error: " + err.Error()
			return
		}
		got <- string(frame)
		_, _ = c.Write([]byte("{\"type\":\"RESPONSE\",\"command\":\"AUTH\",\"code\":200,\"data\":\"Welcome root\"}\n"))
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	if err := run(context.Background(), Config{Host: "127.0.0.1", Port: port, Username: "root", Password: "root"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := `{"type":"REQUEST","command":"AUTH","username":"root","password":"root"}`
	if frame := <-got; frame != want {
		t.Errorf("peer got %q, want %q", frame, want)
	}
}

func TestRunRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	err = run(context.Background(), Config{Host: "127.0.0.1", Port: port, Username: "root", Password: "root"})
	var ce *connector.ConnectionError
	if !errors.As(err, &ce) {
		t.Errorf("expected *connector.ConnectionError, got %v", err)
	}
}

func TestDefaults(t *testing.T) {
	if cfg.Host != "localhost" || cfg.Port != 8888 || cfg.Username != "root" || cfg.Password != "root" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.DialTimeout != 0 {
		t.Errorf("expected no dial timeout by default, got %v", cfg.DialTimeout)
	}
}
