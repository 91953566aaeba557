package remote

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/debemdeboas/microsites/internal/model"
)

// Error codes carried in the error envelope.
const (
	CodeValidation            = "validation"
	CodeNotAuthorized         = "not_authorized"
	CodeNotFound              = "not_found"
	CodeNotFoundOrUnpublished = "not_found_or_unpublished"
	CodeInternal              = "internal"
)

// Envelope wraps every successful response body.
type Envelope[T any] struct {
	Data T `json:"data"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// APIError wraps every failed response body.
type APIError struct {
	Error ErrorBody `json:"error"`
}

type ProjectRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type CreatedProject struct {
	ID model.ProjectID `json:"id"`
}

type RoleRequest struct {
	Role model.Role `json:"role"`
}

type RoleResponse struct {
	Role model.Role `json:"role"`
}

type AdminResponse struct {
	Admin bool `json:"admin"`
}

type Ack struct {
	OK bool `json:"ok"`
}

// ErrorFor maps err to a status and an error body. Public reads pass
// public=true so that missing and unpublished projects look the same.
func ErrorFor(err error, public bool) (int, ErrorBody) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorBody{Code: CodeValidation, Message: verr.Err.Error(), Field: verr.Field}
	case public && (errors.Is(err, model.ErrNotFound) ||
		errors.Is(err, model.ErrNotFoundOrUnpublished) ||
		errors.Is(err, model.ErrNotAuthorized)):
		return http.StatusNotFound, ErrorBody{Code: CodeNotFoundOrUnpublished, Message: model.ErrNotFoundOrUnpublished.Error()}
	case errors.Is(err, model.ErrNotAuthorized):
		return http.StatusForbidden, ErrorBody{Code: CodeNotAuthorized, Message: model.ErrNotAuthorized.Error()}
	case errors.Is(err, model.ErrNotFoundOrUnpublished):
		return http.StatusNotFound, ErrorBody{Code: CodeNotFoundOrUnpublished, Message: model.ErrNotFoundOrUnpublished.Error()}
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, ErrorBody{Code: CodeNotFound, Message: model.ErrNotFound.Error()}
	}
	return http.StatusInternalServerError, ErrorBody{Code: CodeInternal, Message: http.StatusText(http.StatusInternalServerError)}
}

// errorFromResponse is the inverse of ErrorFor.
func errorFromResponse(op string, status int, body ErrorBody, public bool) error {
	switch {
	case status == http.StatusBadRequest:
		msg := body.Message
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &model.ValidationError{Field: body.Field, Err: errors.New(msg)}
	case public && status == http.StatusNotFound:
		return model.ErrNotFoundOrUnpublished
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return model.ErrNotAuthorized
	case status == http.StatusNotFound && body.Code == CodeNotFoundOrUnpublished:
		return model.ErrNotFoundOrUnpublished
	case status == http.StatusNotFound:
		return model.ErrNotFound
	}
	return &model.TransportError{Op: op, Err: &StatusError{Status: status, Message: body.Message}}
}

// StatusError is an unexpected HTTP status.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("API error %d", e.Status)
}
