package gql

import (
	"errors"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/graphql-go/graphql/language/location"
	"github.com/repoflow/backend/internal/domain/shared"
)

// Error codes reported under extensions.code
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeQueryTooDeep = "QUERY_TOO_DEEP"
	CodeInternal     = "INTERNAL_ERROR"
	CodeBadRequest   = "BAD_REQUEST"
)

// internalErrorMessage replaces storage and other unexpected failures
const internalErrorMessage = "internal error"

// codedError is a resolver error whose code graphql-go copies into the
// formatted error's extensions.
type codedError struct {
	code    string
	message string
}

func (e *codedError) Error() string {
	return e.message
}

// Extensions implements gqlerrors.ExtendedError
func (e *codedError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.code}
}

func newCodedError(code, message string) *codedError {
	return &codedError{code: code, message: message}
}

// toGraphQLError maps a service error onto what clients see. Validation
// messages pass through; anything else is hidden behind a generic message.
func toGraphQLError(err error) (*codedError, bool) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) && domainErr.Code == shared.CodeValidation {
		return newCodedError(CodeValidation, domainErr.Message), true
	}
	return newCodedError(CodeInternal, internalErrorMessage), false
}

// errorResult is a result carrying a single request-level error. graphql-go
// only copies extensions for located errors, so the formatted error is
// built directly.
func errorResult(code, message string) *graphql.Result {
	return &graphql.Result{Errors: []gqlerrors.FormattedError{{
		Message:    message,
		Locations:  []location.SourceLocation{},
		Extensions: map[string]interface{}{"code": code},
	}}}
}
