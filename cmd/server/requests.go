package main

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/matst80/authconn/internal/authdb"
	"github.com/matst80/authconn/internal/obs"
	"github.com/matst80/authconn/internal/proto"
)

// rawRequest keeps pointers so absent fields can be told apart from empty ones.
// Limits arrive as decimal strings.
type rawRequest struct {
	Type     *string `json:"type"`
	Command  *string `json:"command"`
	Username *string `json:"username"`
	Password *string `json:"password"`
	Public   *string `json:"public"`
	Private  *string `json:"private"`
}

// handleRequest validates one frame and returns the reply, the command it
// answered ("" when the frame could not be attributed to a known command) and
// the authenticated username on a successful AUTH. caller is the session of
// the connection, nil before AUTH.
func handleRequest(frame []byte, users *authdb.DB, caller *session) (proto.Response, string, string) {
	var req rawRequest
	if err := json.Unmarshal(frame, &req); err != nil {
		obs.Debug("request.json", obs.Fields{"err": err.Error()})
		return proto.ResponseBadRequest, "", ""
	}
	if req.Type != nil && *req.Type != proto.TypeRequest {
		return proto.ResponseBadRequest, "", ""
	}
	if req.Command == nil {
		return proto.ResponseBadRequest, "", ""
	}
	cmd := *req.Command
	obs.Debug("request", obs.Fields{"command": cmd})

	switch cmd {
	case proto.CommandAuth:
		res, username := handleAuth(&req, users)
		return res, cmd, username
	case proto.CommandUser, proto.CommandCreateUser, proto.CommandDeleteUser, proto.CommandChUser:
		if caller == nil || !caller.admin {
			return proto.NewResponse(cmd, 401, "Unauthorized"), cmd, ""
		}
		if req.Username == nil || *req.Username == "" {
			return proto.NewResponse(cmd, 400, "Bad request"), cmd, ""
		}
		return handleUserAdmin(cmd, &req, users, caller), cmd, ""
	}
	return proto.ResponseBadRequest, "", ""
}

func handleAuth(req *rawRequest, users *authdb.DB) (proto.Response, string) {
	if req.Username == nil || req.Password == nil {
		return proto.NewResponse(proto.CommandAuth, 400, "Bad request"), ""
	}
	if !users.Authenticate(*req.Username, *req.Password) {
		return proto.ResponseUnauthorized, ""
	}
	return proto.NewResponse(proto.CommandAuth, 200, "Welcome "+*req.Username), *req.Username
}

func handleUserAdmin(cmd string, req *rawRequest, users *authdb.DB, caller *session) proto.Response {
	username := *req.Username
	switch cmd {
	case proto.CommandUser:
		u, ok := users.Lookup(username)
		if !ok {
			return proto.NewResponse(cmd, 404, "User not found.")
		}
		return proto.NewResponse(cmd, 200, u)

	case proto.CommandDeleteUser:
		if err := users.Delete(username); err != nil {
			return proto.NewResponse(cmd, 409, "User has NOT been deleted: "+username)
		}
		obs.Info("user.deleted", obs.Fields{"username": username, "by": caller.username})
		return proto.NewResponse(cmd, 200, "User has been deleted: "+username)
	}

	u, ok := userFromRequest(req)
	if !ok {
		return proto.NewResponse(cmd, 400, "Bad request")
	}
	if cmd == proto.CommandCreateUser {
		err := users.Create(u)
		switch {
		case errors.Is(err, authdb.ErrExists):
			return proto.NewResponse(cmd, 406, "Username is already used: "+username)
		case err != nil:
			obs.Error("user.create", obs.Fields{"err": err.Error(), "username": username})
			return proto.NewResponse(cmd, 409, "Something went wrong.")
		}
		obs.Info("user.created", obs.Fields{"username": username, "by": caller.username})
		return proto.NewResponse(cmd, 200, "User created: "+username)
	}
	if err := users.Alter(u); err != nil {
		return proto.NewResponse(cmd, 409, "User not altered: "+username)
	}
	obs.Info("user.altered", obs.Fields{"username": username, "by": caller.username})
	return proto.NewResponse(cmd, 200, "User altered: "+username)
}

func userFromRequest(req *rawRequest) (authdb.User, bool) {
	if req.Password == nil || *req.Password == "" {
		return authdb.User{}, false
	}
	pub, ok := parseLimit(req.Public)
	if !ok {
		return authdb.User{}, false
	}
	priv, ok := parseLimit(req.Private)
	if !ok {
		return authdb.User{}, false
	}
	return authdb.User{Username: *req.Username, Password: *req.Password, PublicLimit: pub, PrivateLimit: priv}, true
}

// parseLimit treats an absent limit as zero.
func parseLimit(s *string) (int64, bool) {
	if s == nil || *s == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(*s, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
