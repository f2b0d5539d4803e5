package conn_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/tobsdb/mousedb/internal/auth"
	. "github.com/tobsdb/mousedb/internal/conn"
	"gotest.tools/assert"
)

func dial(t *testing.T, srv *httptest.Server, query string) (*websocket.Conn, *http.Response, error) {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	return websocket.DefaultDialer.Dial(url, nil)
}

func roundTrip(t *testing.T, conn *websocket.Conn, req map[string]any) Response {
	assert.NilError(t, conn.WriteJSON(req))
	var res Response
	assert.NilError(t, conn.ReadJSON(&res))
	return res
}

func TestServer(t *testing.T) {
	users := auth.NewTdbUsers()
	root, err := auth.NewUser("root", "pass", auth.TdbUserRoleAdmin)
	assert.NilError(t, err)
	assert.NilError(t, users.Add(root))
	reader, err := auth.NewUser("reader", "pass", auth.TdbUserRoleReadOnly)
	assert.NilError(t, err)
	assert.NilError(t, users.Add(reader))

	s := NewServer(newTestDB(t), users)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	t.Run("health", func(t *testing.T) {
		res, err := http.Get(srv.URL + "/health")
		assert.NilError(t, err)
		res.Body.Close()
		assert.Equal(t, res.StatusCode, http.StatusOK)
	})

	t.Run("unauthorized", func(t *testing.T) {
		_, res, err := dial(t, srv, "username=root&password=wrong")
		assert.Assert(t, err != nil)
		assert.Equal(t, res.StatusCode, http.StatusUnauthorized)
	})

	t.Run("requests", func(t *testing.T) {
		conn, _, err := dial(t, srv, "auth=root:pass")
		assert.NilError(t, err)
		defer conn.Close()

		res := roundTrip(t, conn, map[string]any{
			"action": "create", "table": "a", "data": map[string]any{"b": 1}, "__tdb_client_req_id__": 7,
		})
		assert.Equal(t, res.Status, http.StatusCreated, res.Message)
		assert.Equal(t, res.ReqId, 7)

		res = roundTrip(t, conn, map[string]any{
			"action": "findMany", "table": "a", "where": map[string]any{"column": "b", "value": 1},
		})
		assert.Equal(t, res.Status, http.StatusOK, res.Message)
		assert.Equal(t, len(res.Data.([]any)), 1)

		res = roundTrip(t, conn, map[string]any{"action": "dance"})
		assert.Equal(t, res.Status, http.StatusBadRequest, res.Message)
		assert.Equal(t, res.Message, "unknown action: dance")
	})

	t.Run("read only user", func(t *testing.T) {
		conn, _, err := dial(t, srv, "username=reader&password=pass")
		assert.NilError(t, err)
		defer conn.Close()

		res := roundTrip(t, conn, map[string]any{"action": "create", "table": "a", "data": map[string]any{}})
		assert.Equal(t, res.Status, http.StatusForbidden, res.Message)

		res = roundTrip(t, conn, map[string]any{"action": "listTables"})
		assert.Equal(t, res.Status, http.StatusOK, res.Message)
	})
}

func TestServeShutdown(t *testing.T) {
	s := NewServer(newTestDB(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Listen(ctx, 0) }()
	cancel()
	assert.NilError(t, <-done)
}
