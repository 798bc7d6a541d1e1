package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/openveg/directory-service/internal/domain/apperr"
	"github.com/openveg/directory-service/internal/domain/dto"
)

// ErrorHandler returns a middleware that renders errors attached to
// the gin context through the shared taxonomy mapping. Handlers call
// c.Error(err) and return; the status code and wire code come from the
// error's classification.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		message := err.Error()
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			message = appErr.Msg
		}

		resp := dto.NewError(dto.ErrCodeForError(err), message).
			WithRequestID(GetRequestID(c))
		c.JSON(dto.StatusForError(err), resp)
	}
}
