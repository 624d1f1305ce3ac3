// Package errs defines the failure type shared by the normalizer, the route
// classifier and the downstream operations.
package errs

import (
	"fmt"
	"net/http"
)

type Kind int

const (
	// KindOperation is raised by a downstream operation (info, query, renderer).
	KindOperation Kind = iota
	KindInvalidParameter
	KindMethodNotSupported
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInvalidParameter:
		return "invalid_parameter"
	case KindMethodNotSupported:
		return "method_not_supported"
	case KindNotFound:
		return "not_found"
	default:
		return "operation"
	}
}

// Failure is an error carrying an optional HTTP status code.
// Code is zero when the raiser did not supply one.
type Failure struct {
	Kind    Kind
	Message string
	Code    int
}

func (f *Failure) Error() string {
	return f.Message
}

// Is matches any *Failure of the same kind, so callers can write
// errors.Is(err, errs.ErrNotFound).
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	return ok && t.Kind == f.Kind
}

// Status returns the HTTP status for the failure, 500 when no code was given.
func (f *Failure) Status() int {
	if f.Code == 0 {
		return http.StatusInternalServerError
	}
	return f.Code
}

var (
	ErrMethodNotSupported = &Failure{Kind: KindMethodNotSupported, Message: "Method not supported", Code: http.StatusBadRequest}
	ErrNotFound           = &Failure{Kind: KindNotFound, Message: "Not Found", Code: http.StatusNotFound}
)

func InvalidParameter(name string) *Failure {
	return &Failure{
		Kind:    KindInvalidParameter,
		Message: fmt.Sprintf("Invalid %q parameter", name),
		Code:    http.StatusBadRequest,
	}
}

// Operation builds a downstream failure; code 0 means "no code".
func Operation(message string, code int) *Failure {
	return &Failure{Kind: KindOperation, Message: message, Code: code}
}

func BadRequest(format string, args ...any) *Failure {
	return Operation(fmt.Sprintf(format, args...), http.StatusBadRequest)
}

func NotFound(format string, args ...any) *Failure {
	return &Failure{Kind: KindNotFound, Message: fmt.Sprintf(format, args...), Code: http.StatusNotFound}
}
