package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	mailerrors "github.com/wahajws/amast-crm-sub001/internal/errors"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
	"github.com/wahajws/amast-crm-sub001/services/email"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// HTTPStatus maps a service error onto a response code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, mailerrors.ErrUserIdMissing):
		return http.StatusUnauthorized
	case errors.Is(err, email.ErrLinkNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, mailerrors.ErrInvalidPagination),
		errors.Is(err, mailerrors.ErrMissingCampaignField),
		errors.Is(err, mailerrors.ErrInvalidCampaignInput):
		return http.StatusBadRequest
	case errors.Is(err, mailerrors.ErrContactNotFound),
		errors.Is(err, mailerrors.ErrEmailNotFound),
		errors.Is(err, mailerrors.ErrMailAccountNotFound),
		errors.Is(err, mailerrors.ErrLabelNotConfigured),
		errors.Is(err, email.ErrAttachmentDoesNotExist),
		errors.Is(err, email.ErrAccountDoesNotExist):
		return http.StatusNotFound
	case errors.Is(err, mailerrors.ErrUnsupportedProvider):
		return http.StatusUnprocessableEntity
	case mailerrors.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Respond traces err and writes it with the mapped status. Internal errors
// are not echoed to the caller.
func Respond(c *gin.Context, span opentracing.Span, err error) {
	tracing.TraceErr(span, err)
	status := HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	c.JSON(status, ErrorResponse{Error: message})
}

// BadRequest writes a 400 for malformed input that never reached a service.
func BadRequest(c *gin.Context, span opentracing.Span, err error) {
	tracing.TraceErr(span, err)
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}
