package conn

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tobsdb/mousedb/internal/auth"
	"github.com/tobsdb/mousedb/internal/builder"
	"github.com/tobsdb/mousedb/pkg"
)

type WsRequest struct {
	Action RequestAction `json:"action"`
	ReqId  int           `json:"__tdb_client_req_id__"` // used in tdb clients
}

var Upgrader = websocket.Upgrader{
	WriteBufferSize: 1024 * 10,
	ReadBufferSize:  1024 * 10,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server serves one database to websocket clients. With no users registered every
// client connects as an admin.
type Server struct {
	TDB   *builder.TobsDB
	Users *auth.TdbUsers

	base context.Context
}

func NewServer(tdb *builder.TobsDB, users *auth.TdbUsers) *Server {
	if users == nil {
		users = auth.NewTdbUsers()
	}
	return &Server{TDB: tdb, Users: users, base: context.Background()}
}

// connAuth reads "user:pass" from the auth query param, the username and password
// params, or the Authorization header, in that order.
func connAuth(r *http.Request) (string, string) {
	url_query := r.URL.Query()
	var conn_auth string
	if url_query.Has("auth") {
		conn_auth = url_query.Get("auth")
	} else if url_query.Has("username") || url_query.Has("password") {
		return url_query.Get("username"), url_query.Get("password")
	} else {
		conn_auth = r.Header.Get("Authorization")
	}
	name, password, _ := strings.Cut(conn_auth, ":")
	return name, password
}

func (s *Server) authenticate(r *http.Request) (*auth.TdbUser, error) {
	if s.Users.Len() == 0 {
		return nil, nil
	}
	return s.Users.Validate(connAuth(r))
}

func HttpError(w http.ResponseWriter, status int, err string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(NewErrorResponse(status, err))
}

func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	user, err := s.authenticate(r)
	if err != nil {
		pkg.InfoLog("connection error:", err)
		HttpError(w, http.StatusUnauthorized, "connection unauthorized")
		return
	}

	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		pkg.ErrorLog(err)
		return
	}
	ctx := NewConnCtx(s.base, conn, user)
	defer ctx.Close()
	pkg.InfoLog("New connection established from", conn.RemoteAddr())

	for {
		buf, err := ctx.Read()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				pkg.ErrorLog("unexpected close", err)
			} else {
				pkg.DebugLog("connection closed", err)
			}
			return
		}

		var req WsRequest
		if err := json.Unmarshal(buf, &req); err != nil {
			pkg.ErrorLog("parsing request", err)
			if err := ctx.WriteResponse(NewErrorResponse(http.StatusBadRequest, err.Error())); err != nil {
				return
			}
			continue
		}

		start := time.Now()
		res := ActionHandler(s, ctx, req.Action, buf)
		res.ReqId = req.ReqId
		if pkg.GetLogLevel() == pkg.LogLevelDebug {
			pkg.DebugLog(req.Action, res.Status, res.Message, time.Since(start))
		}

		if err := ctx.WriteResponse(res); err != nil {
			pkg.ErrorLog("writing response", err)
			return
		}
	}
}
