package connector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/matst80/authconn/internal/obs"
	"github.com/matst80/authconn/internal/proto"
)

// AuthHandler sends a single AUTH request on connect and logs whatever the
// server sends back.
type AuthHandler struct {
	ID       string
	Username string
	Password string
}

func NewAuthHandler(username, password string) *AuthHandler {
	return &AuthHandler{ID: uuid.NewString(), Username: username, Password: password}
}

var _ Handler = (*AuthHandler)(nil)

func (h *AuthHandler) OnConnected(conn net.Conn) error {
	obs.Info("Connected to server!", obs.Fields{"conn_id": h.ID, "remote": conn.RemoteAddr().String()})
	frame, err := proto.EncodeFrame(proto.NewAuthRequest(h.Username, h.Password))
	if err != nil {
		return fmt.Errorf("encode auth request: %w", err)
	}
	if _, err := conn.Write(frame); err != nil {
		return err
	}
	obs.Debug("client.auth.sent", obs.Fields{"conn_id": h.ID, "bytes": len(frame), "username": h.Username})
	return nil
}

func (h *AuthHandler) OnData(conn net.Conn, b []byte) {
	obs.Info("Received from server: "+string(b), obs.Fields{"conn_id": h.ID, "bytes": len(b)})
	h.debugResponses(b)
}

func (h *AuthHandler) OnClose(conn net.Conn) {
	obs.Info("Connection closed", obs.Fields{"conn_id": h.ID})
}

// debugResponses decodes complete reply lines when debug logging is on.
// Reads carry no message boundaries, so partial lines are skipped.
func (h *AuthHandler) debugResponses(b []byte) {
	if !obs.DebugEnabled() {
		return
	}
	for _, line := range bytes.Split(b, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var res proto.Response
		if err := json.Unmarshal(line, &res); err != nil || res.Type != proto.TypeResponse {
			continue
		}
		obs.Debug("client.response", obs.Fields{"conn_id": h.ID, "command": res.Command, "code": res.Code, "data": res.Data})
	}
}
