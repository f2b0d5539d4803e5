package conn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tobsdb/mousedb/internal/auth"
	"github.com/tobsdb/mousedb/internal/builder"
	"github.com/tobsdb/mousedb/internal/query"
	"github.com/tobsdb/mousedb/internal/types"
)

type Response struct {
	Data    any    `json:"data"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	// rows left out of Data because they could not be read
	Skipped []string `json:"skipped,omitempty"`
	// don't manually set this. it comes from the client
	ReqId int `json:"__tdb_client_req_id__"`
}

func NewErrorResponse(status int, err string) Response {
	return Response{Message: err, Status: status}
}

func NewResponse(status int, message string, data any) Response {
	return Response{Data: data, Message: message, Status: status}
}

func errorResponse(err error) Response {
	switch {
	case errors.Is(err, types.ErrTableNotFound):
		return NewErrorResponse(http.StatusNotFound, "Table not found")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return NewErrorResponse(http.StatusServiceUnavailable, err.Error())
	}
	return NewErrorResponse(types.ErrorStatus(err), err.Error())
}

type CreateRequest struct {
	Table string    `json:"table"`
	Data  types.Row `json:"data"`
}

func CreateReqHandler(ctx context.Context, tdb *builder.TobsDB, raw []byte) Response {
	var req CreateRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return NewErrorResponse(http.StatusBadRequest, err.Error())
	}

	row, _, err := query.Create(ctx, tdb, req.Table, req.Data)
	if err != nil {
		return errorResponse(err)
	}
	return NewResponse(http.StatusCreated, fmt.Sprintf("Created new row in table %s", req.Table), row)
}

type CreateManyRequest struct {
	Table string      `json:"table"`
	Data  []types.Row `json:"data"`
}

func CreateManyReqHandler(ctx context.Context, tdb *builder.TobsDB, raw []byte) Response {
	var req CreateManyRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return NewErrorResponse(http.StatusBadRequest, err.Error())
	}

	rows, err := query.CreateMany(ctx, tdb, req.Table, req.Data)
	if err != nil {
		res := errorResponse(err)
		if len(rows) > 0 {
			res.Message = fmt.Sprintf("%s (created %d rows before failing)", res.Message, len(rows))
			res.Data = rows
		}
		return res
	}
	return NewResponse(
		http.StatusCreated,
		fmt.Sprintf("Created %d new rows in table %s", len(rows), req.Table),
		rows,
	)
}

type FindManyRequest struct {
	Table string           `json:"table"`
	Where *query.Predicate `json:"where"`
}

func FindManyReqHandler(ctx context.Context, tdb *builder.TobsDB, raw []byte) Response {
	var req FindManyRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return NewErrorResponse(http.StatusBadRequest, err.Error())
	}

	res, err := query.Select(ctx, tdb, req.Table, req.Where)
	if err != nil {
		return errorResponse(err)
	}

	message := fmt.Sprintf("Found %d rows in table %s", len(res.Rows), req.Table)
	if len(res.Errors) > 0 {
		message = fmt.Sprintf("%s, skipped %d corrupt rows", message, len(res.Errors))
	}
	response := NewResponse(http.StatusOK, message, res.Rows)
	for _, err := range res.Errors {
		response.Skipped = append(response.Skipped, err.Error())
	}
	return response
}

type DeleteManyRequest struct {
	Table string           `json:"table"`
	Where *query.Predicate `json:"where"`
}

func DeleteManyReqHandler(ctx context.Context, tdb *builder.TobsDB, raw []byte) Response {
	var req DeleteManyRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return NewErrorResponse(http.StatusBadRequest, err.Error())
	}
	if req.Where == nil {
		return NewErrorResponse(http.StatusBadRequest, "Where constraints cannot be empty")
	}

	n, err := query.Delete(ctx, tdb, req.Table, req.Where)
	if err != nil {
		return errorResponse(err)
	}
	return NewResponse(http.StatusOK, fmt.Sprintf("Deleted %d rows from table %s", n, req.Table), n)
}

type AggregateRequest struct {
	Table  string           `json:"table"`
	Op     string           `json:"op"`
	Column string           `json:"column"`
	Where  *query.Predicate `json:"where"`
}

func AggregateReqHandler(ctx context.Context, tdb *builder.TobsDB, raw []byte) Response {
	var req AggregateRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return NewErrorResponse(http.StatusBadRequest, err.Error())
	}
	op, err := query.ParseAggregateOp(req.Op)
	if err != nil {
		return errorResponse(err)
	}

	res, err := query.Aggregate(ctx, tdb, req.Table, op, req.Column, req.Where)
	if err != nil {
		return errorResponse(err)
	}
	return NewResponse(http.StatusOK, fmt.Sprintf("%s of %s in table %s", op, req.Column, req.Table), res)
}

type ExplainRequest struct {
	Table string           `json:"table"`
	Where *query.Predicate `json:"where"`
}

type ExplainResponse struct {
	Strategy   query.Strategy `json:"strategy"`
	Candidates int            `json:"candidates"`
	Predicate  string         `json:"predicate"`
}

func ExplainReqHandler(tdb *builder.TobsDB, raw []byte) Response {
	var req ExplainRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return NewErrorResponse(http.StatusBadRequest, err.Error())
	}

	plan, err := query.Explain(tdb, req.Table, req.Where)
	if err != nil {
		return errorResponse(err)
	}
	return NewResponse(http.StatusOK, fmt.Sprintf("Planned query on table %s", req.Table), ExplainResponse{
		Strategy:   plan.Strategy,
		Candidates: plan.CandidateCount(),
		Predicate:  plan.Predicate.String(),
	})
}

type CreateIndexRequest struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Kind   string `json:"kind"`
}

func CreateIndexReqHandler(ctx context.Context, tdb *builder.TobsDB, raw []byte) Response {
	var req CreateIndexRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return NewErrorResponse(http.StatusBadRequest, err.Error())
	}
	kind, err := builder.ParseIndexKind(req.Kind)
	if err != nil {
		return errorResponse(err)
	}

	if err := query.CreateIndex(ctx, tdb, req.Table, req.Column, kind); err != nil {
		return errorResponse(err)
	}
	return NewResponse(http.StatusCreated, fmt.Sprintf("Created %s index on %s.%s", kind, req.Table, req.Column), nil)
}

type TableInfo struct {
	Name       string                       `json:"name"`
	TimeSeries bool                         `json:"time_series"`
	PrimaryKey string                       `json:"primary_key"`
	Fields     map[string]types.FieldType   `json:"fields"`
	Indexes    map[string]builder.IndexKind `json:"indexes"`
}

func ListTablesReqHandler(tdb *builder.TobsDB) Response {
	tables := []TableInfo{}
	for _, name := range tdb.Schema.TableNames() {
		table, err := tdb.Schema.Table(name)
		if err != nil {
			continue
		}
		fields := map[string]types.FieldType{}
		for _, field := range table.Fields.Values() {
			fields[field.Name] = field.BuiltinType
		}
		tables = append(tables, TableInfo{
			Name:       table.Name,
			TimeSeries: table.TimeSeries,
			PrimaryKey: table.PrimaryKey().Name,
			Fields:     fields,
			Indexes:    tdb.Indexes.Indexed(table.Name),
		})
	}
	return NewResponse(http.StatusOK, fmt.Sprintf("Found %d tables", len(tables)), tables)
}

type CreateUserRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func CreateUserReqHandler(users *auth.TdbUsers, raw []byte) Response {
	var req CreateUserRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return NewErrorResponse(http.StatusBadRequest, err.Error())
	}
	if req.Name == "" || req.Password == "" {
		return NewErrorResponse(http.StatusBadRequest, "Name and password are required")
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		return NewErrorResponse(http.StatusBadRequest, err.Error())
	}

	user, err := auth.NewUser(req.Name, req.Password, role)
	if err != nil {
		return NewErrorResponse(http.StatusBadRequest, err.Error())
	}
	if err := users.Add(user); err != nil {
		return NewErrorResponse(http.StatusConflict, err.Error())
	}
	return NewResponse(http.StatusCreated, fmt.Sprintf("Created new user %s", user.Name), user.Id)
}
