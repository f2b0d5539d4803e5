package conn

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/tobsdb/mousedb/internal/auth"
)

// ConnCtx is the state of one websocket client. Its context ends when the
// connection closes or the server shuts down, aborting any scan still running.
type ConnCtx struct {
	context.Context
	cancel context.CancelFunc

	conn *websocket.Conn
	User *auth.TdbUser
}

func NewConnCtx(parent context.Context, conn *websocket.Conn, user *auth.TdbUser) *ConnCtx {
	ctx, cancel := context.WithCancel(parent)
	return &ConnCtx{ctx, cancel, conn, user}
}

func (ctx *ConnCtx) Read() ([]byte, error) {
	_, buf, err := ctx.conn.ReadMessage()
	return buf, err
}

func (ctx *ConnCtx) WriteResponse(r Response) error {
	buf, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return ctx.conn.WriteMessage(websocket.TextMessage, buf)
}

func (ctx *ConnCtx) Close() error {
	ctx.cancel()
	return ctx.conn.Close()
}
