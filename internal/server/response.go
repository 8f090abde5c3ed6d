package server

import (
	"errors"
	"net/http"

	"github.com/areduca/classbuilder/internal/classes"
	"github.com/areduca/classbuilder/internal/dispatcher"
	"github.com/areduca/classbuilder/internal/media"
	"github.com/areduca/classbuilder/pkg/core"
	"github.com/gin-gonic/gin"
)

// Response is the envelope of every API reply.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Success: true, Data: data})
}

func fail(c *gin.Context, status int, msg string, details any) {
	c.AbortWithStatusJSON(status, Response{Error: msg, Details: details})
}

// writeError maps err to a status code and envelope.
func (s *Server) writeError(c *gin.Context, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		status := http.StatusBadRequest
		if ve.Code == core.CodeUnauthenticated {
			status = http.StatusUnauthorized
		}
		fail(c, status, ve.Message, ve)
	case errors.Is(err, classes.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, classes.ErrForbidden):
		fail(c, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, dispatcher.ErrUnknownCommand):
		fail(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, media.ErrEmpty), errors.Is(err, media.ErrNotImage), errors.Is(err, media.ErrBadDataURI):
		fail(c, http.StatusBadRequest, err.Error(), nil)
	case core.IsStorage(err):
		s.deps.LogManager.Logger().Error("Storage failure", "path", c.FullPath(), "error", err)
		fail(c, http.StatusInternalServerError, "storage error", err.Error())
	default:
		s.deps.LogManager.Logger().Error("Request failed", "path", c.FullPath(), "error", err)
		fail(c, http.StatusInternalServerError, "internal error", nil)
	}
}
