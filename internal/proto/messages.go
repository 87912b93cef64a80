package proto

import (
	"bufio"
	"encoding/json"
	"errors"
)

// Delimiter terminates every request frame on the wire.
const Delimiter byte = 0x00

const (
	TypeRequest  = "REQUEST"
	TypeResponse = "RESPONSE"
	CommandAuth  = "AUTH"

	CommandUser       = "USER"
	CommandCreateUser = "CREATEUSER"
	CommandDeleteUser = "DELETEUSER"
	CommandChUser     = "CHUSER"
)

// ErrFrameTooLarge is returned by ReadFrame when no delimiter shows up within the limit.
var ErrFrameTooLarge = errors.New("frame too large")

// AuthRequest is sent by the client as the only frame on a connection.
// Field order on the wire follows the struct order.
type AuthRequest struct {
	Type     string `json:"type"`
	Command  string `json:"command"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func NewAuthRequest(username, password string) AuthRequest {
	return AuthRequest{Type: TypeRequest, Command: CommandAuth, Username: username, Password: password}
}

// Response server -> client reply, one JSON object per line.
// Data is a message string, or an object for USER lookups.
type Response struct {
	Type    string `json:"type"`
	Command string `json:"command,omitempty"`
	Code    int    `json:"code"`
	Data    any    `json:"data"`
}

func NewResponse(command string, code int, data any) Response {
	return Response{Type: TypeResponse, Command: command, Code: code, Data: data}
}

// Canned replies used by the server.
var (
	ResponseBadRequest   = Response{Type: TypeResponse, Code: 400, Data: "Bad request"}
	ResponseServerError  = Response{Type: TypeResponse, Code: 500, Data: "Internal server error"}
	ResponseUnauthorized = Response{Type: TypeResponse, Command: CommandAuth, Code: 401, Data: "Unauthorized"}
)

// EncodeFrame marshals v as JSON and appends the delimiter.
func EncodeFrame(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(b, Delimiter), nil
}

// ReadFrame reads one delimited frame from rd and returns it without the delimiter.
// max <= 0 means unbounded.
func ReadFrame(rd *bufio.Reader, max int) ([]byte, error) {
	var frame []byte
	for {
		chunk, err := rd.ReadSlice(Delimiter)
		frame = append(frame, chunk...)
		if max > 0 && len(frame) > max+1 {
			return nil, ErrFrameTooLarge
		}
		if err == nil {
			return frame[:len(frame)-1], nil
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return nil, err
		}
	}
}
