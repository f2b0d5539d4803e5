package conn

import (
	"fmt"
	"net/http"

	"github.com/tobsdb/mousedb/internal/auth"
)

type RequestAction string

const (
	// rows actions
	RequestActionCreate     RequestAction = "create"
	RequestActionCreateMany RequestAction = "createMany"
	RequestActionFindMany   RequestAction = "findMany"
	RequestActionDeleteMany RequestAction = "deleteMany"
	RequestActionAggregate  RequestAction = "aggregate"
	RequestActionExplain    RequestAction = "explain"

	// table actions
	RequestActionCreateIndex RequestAction = "createIndex"
	RequestActionListTables  RequestAction = "listTables"

	// user actions
	RequestActionCreateUser RequestAction = "createUser"
)

func (action RequestAction) IsReadOnly() bool {
	switch action {
	case RequestActionFindMany, RequestActionAggregate, RequestActionExplain, RequestActionListTables:
		return true
	}
	return false
}

// Clearance is the least privileged role allowed to run action.
func (action RequestAction) Clearance() auth.TdbUserRole {
	switch {
	case action.IsReadOnly():
		return auth.TdbUserRoleReadOnly
	case action == RequestActionCreateIndex || action == RequestActionCreateUser:
		return auth.TdbUserRoleAdmin
	}
	return auth.TdbUserRoleReadWrite
}

func ActionHandler(s *Server, ctx *ConnCtx, action RequestAction, raw []byte) Response {
	if ctx.User != nil && !ctx.User.HasClearance(action.Clearance()) {
		return NewErrorResponse(http.StatusForbidden, auth.ErrInsufficientPermissions.Error())
	}

	switch action {
	case RequestActionCreate:
		return CreateReqHandler(ctx, s.TDB, raw)
	case RequestActionCreateMany:
		return CreateManyReqHandler(ctx, s.TDB, raw)
	case RequestActionFindMany:
		return FindManyReqHandler(ctx, s.TDB, raw)
	case RequestActionDeleteMany:
		return DeleteManyReqHandler(ctx, s.TDB, raw)
	case RequestActionAggregate:
		return AggregateReqHandler(ctx, s.TDB, raw)
	case RequestActionExplain:
		return ExplainReqHandler(s.TDB, raw)
	case RequestActionCreateIndex:
		return CreateIndexReqHandler(ctx, s.TDB, raw)
	case RequestActionListTables:
		return ListTablesReqHandler(s.TDB)
	case RequestActionCreateUser:
		return CreateUserReqHandler(s.Users, raw)
	default:
		return NewErrorResponse(http.StatusBadRequest, fmt.Sprintf("unknown action: %s", action))
	}
}
