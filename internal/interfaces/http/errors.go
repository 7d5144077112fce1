package http

import (
	"github.com/gin-gonic/gin"

	"github.com/garyjia/reportdesk/internal/application/apperr"
)

const hideInternalKey = "hide_internal_errors"

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// abort writes err as a JSON error response and stops the handler chain
func abort(c *gin.Context, err error) {
	appErr := apperr.From(err)

	message := appErr.Message
	if appErr.Kind == apperr.KindInternal {
		if c.GetBool(hideInternalKey) || message == "" {
			message = "Server error"
		}
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.Kind.HTTPStatus(), ErrorResponse{Error: message})
}
