package engine

import (
	"errors"

	"github.com/marcus/missionctl/internal/store"
)

// ErrMissingTaskID is returned when a mutating operation is called without
// a task id.
var ErrMissingTaskID = errors.New("task id is required")

// Code classifies an engine failure for callers that speak the wire
// taxonomy.
type Code string

const (
	CodeBadRequest    Code = "bad_request"
	CodeNotFound      Code = "not_found"
	CodeInternalError Code = "internal_error"
)

// ErrorCode maps an error returned by the engine to its taxonomy code.
func ErrorCode(err error) Code {
	switch {
	case errors.Is(err, ErrMissingTaskID):
		return CodeBadRequest
	case errors.Is(err, store.ErrTaskNotFound):
		return CodeNotFound
	default:
		return CodeInternalError
	}
}
