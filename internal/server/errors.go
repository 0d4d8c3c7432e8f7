package server

import (
	"errors"
	"net/http"

	"github.com/MarcoPoloResearchLab/stash/internal/library"
	"github.com/MarcoPoloResearchLab/stash/internal/users"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	reasonInvalidRequest      = "invalid_request"
	reasonInvalidInput        = "invalid_input"
	reasonUserNotFound        = "user_not_found"
	reasonNotFound            = "not_found"
	reasonNotInCollection     = "not_in_collection"
	reasonAlreadyInCollection = "already_in_collection"
	reasonInternal            = "internal_error"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

type errorClass struct {
	sentinel error
	status   int
	reason   string
}

var errorClasses = []errorClass{
	{sentinel: users.ErrUserNotFound, status: http.StatusNotFound, reason: reasonUserNotFound},
	{sentinel: library.ErrBookmarkNotFound, status: http.StatusNotFound, reason: reasonNotFound},
	{sentinel: library.ErrCollectionNotFound, status: http.StatusNotFound, reason: reasonNotFound},
	{sentinel: library.ErrNoteNotFound, status: http.StatusNotFound, reason: reasonNotFound},
	{sentinel: library.ErrNotInCollection, status: http.StatusNotFound, reason: reasonNotInCollection},
	{sentinel: library.ErrAlreadyInCollection, status: http.StatusConflict, reason: reasonAlreadyInCollection},
	{sentinel: library.ErrInvalidCursor, status: http.StatusBadRequest, reason: reasonInvalidInput},
	{sentinel: library.ErrInvalidInput, status: http.StatusBadRequest, reason: reasonInvalidInput},
	{sentinel: users.ErrInvalidIdentity, status: http.StatusBadRequest, reason: reasonInvalidInput},
}

// writeServiceError maps a service failure onto a status code and error body.
func (h *httpHandler) writeServiceError(c *gin.Context, err error) {
	response := errorResponse{Error: reasonInternal, Message: "internal error"}
	var serviceErr *library.ServiceError
	if errors.As(err, &serviceErr) {
		response.Code = serviceErr.Code()
	}

	for _, class := range errorClasses {
		if errors.Is(err, class.sentinel) {
			response.Error = class.reason
			response.Message = humanMessage(err, serviceErr)
			c.AbortWithStatusJSON(class.status, response)
			return
		}
	}

	h.logger.Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, response)
}

func humanMessage(err error, serviceErr *library.ServiceError) string {
	if serviceErr != nil && serviceErr.Unwrap() != nil {
		return serviceErr.Unwrap().Error()
	}
	return err.Error()
}

func writeBindingError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: reasonInvalidRequest, Message: err.Error()})
}
