package gql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/source"
	"github.com/repoflow/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Request is a GraphQL request as sent over HTTP
type Request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

// HandlerConfig configures the HTTP endpoint
type HandlerConfig struct {
	// MaxDepth rejects deeper documents before execution; <= 0 uses DefaultMaxDepth
	MaxDepth int
	Logger   *zap.Logger
}

// Handler serves GraphQL over HTTP
type Handler struct {
	schema   graphql.Schema
	maxDepth int
	logger   *zap.Logger
}

// NewHandler creates a Handler for schema
func NewHandler(schema graphql.Schema, cfg HandlerConfig) *Handler {
	maxDepth := cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{schema: schema, maxDepth: maxDepth, logger: log}
}

// Serve handles POST /graphql with a JSON body and GET /graphql?query=.
// Executed requests answer 200 with {"data":...,"errors":[...]}; only an
// unreadable HTTP request gets a 4xx.
func (h *Handler) Serve(c *gin.Context) {
	req, status, err := decodeRequest(c)
	if err != nil {
		c.JSON(status, errorResult(CodeBadRequest, err.Error()))
		return
	}

	result := h.Execute(c.Request.Context(), req, c.Request.Method == http.MethodGet)
	c.JSON(http.StatusOK, result)
}

// Execute parses, depth-checks, validates and runs req. When queryOnly is
// set (GET requests) mutations are refused.
func (h *Handler) Execute(ctx context.Context, req Request, queryOnly bool) *graphql.Result {
	ctx, span := telemetry.StartSpan(ctx, "graphql.execute",
		telemetry.SpanAttrGraphQLOperationName.String(req.OperationName))
	defer span.End()

	result := h.execute(ctx, req, queryOnly)
	if len(result.Errors) > 0 {
		span.SetAttributes(telemetry.SpanAttrGraphQLErrors.Int(len(result.Errors)))
	}
	return result
}

func (h *Handler) execute(ctx context.Context, req Request, queryOnly bool) *graphql.Result {
	src := source.NewSource(&source.Source{
		Body: []byte(req.Query),
		Name: "GraphQL request",
	})
	doc, err := parser.Parse(parser.ParseParams{Source: src})
	if err != nil {
		return &graphql.Result{Errors: gqlerrors.FormatErrors(err)}
	}

	if depth := documentDepth(doc); depth > h.maxDepth {
		h.logger.Info("graphql query rejected",
			zap.Int("depth", depth),
			zap.Int("max_depth", h.maxDepth),
		)
		msg := fmt.Sprintf("query exceeds maximum operation depth of %d", h.maxDepth)
		return errorResult(CodeQueryTooDeep, msg)
	}

	validation := graphql.ValidateDocument(&h.schema, doc, nil)
	if !validation.IsValid {
		return &graphql.Result{Errors: validation.Errors}
	}

	if op := selectedOperation(doc, req.OperationName); op != nil {
		telemetry.Annotate(ctx, telemetry.SpanAttrGraphQLOperationType.String(op.Operation))
		if queryOnly && op.Operation != ast.OperationTypeQuery {
			return errorResult(CodeBadRequest, "only queries may be sent with GET")
		}
	}

	return graphql.Execute(graphql.ExecuteParams{
		Schema:        h.schema,
		AST:           doc,
		OperationName: req.OperationName,
		Args:          req.Variables,
		Context:       ctx,
	})
}

func decodeRequest(c *gin.Context) (Request, int, error) {
	var req Request

	switch c.Request.Method {
	case http.MethodGet:
		req.Query = c.Query("query")
		req.OperationName = c.Query("operationName")
		if vars := c.Query("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				return req, http.StatusBadRequest, fmt.Errorf("variables must be a JSON object: %w", err)
			}
		}
	case http.MethodPost:
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return req, http.StatusRequestEntityTooLarge, errors.New("request body too large")
			}
			return req, http.StatusBadRequest, fmt.Errorf("failed to read request body: %w", err)
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return req, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err)
		}
	default:
		return req, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", c.Request.Method)
	}

	if strings.TrimSpace(req.Query) == "" {
		return req, http.StatusBadRequest, errors.New("query is required")
	}
	return req, 0, nil
}

// selectedOperation finds the operation graphql-go will run
func selectedOperation(doc *ast.Document, name string) *ast.OperationDefinition {
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		if name == "" || (op.Name != nil && op.Name.Value == name) {
			return op
		}
	}
	return nil
}
