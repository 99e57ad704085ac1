package httpserver

import (
	"errors"
	"net/http"

	"labcommerce/internal/domain"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error      string   `json:"error"`
	Fields     []string `json:"fields,omitempty"`
	UnknownIDs []string `json:"unknownIds,omitempty"`
}

// writeError maps domain errors to status codes. Anything unrecognised is a
// 500 with a generic message; the cause is attached for the request log.
func writeError(c *gin.Context, err error) {
	if v, ok := domain.AsValidation(err); ok {
		msg := v.Msg
		if msg == "" {
			msg = "validation failed"
		}
		c.JSON(http.StatusBadRequest, errorResponse{Error: msg, Fields: v.Fields, UnknownIDs: v.IDs})
		return
	}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNotEligible),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyExists):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, errorResponse{Error: "internal error"})
		return
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}
