package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/textbook-chat/cli/internal/books"
	"github.com/textbook-chat/cli/internal/budget"
	"github.com/textbook-chat/cli/internal/chat"
	"github.com/textbook-chat/cli/internal/documents"
	"github.com/textbook-chat/cli/internal/logx"
)

// statusFor maps pipeline errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, documents.ErrEmptyDocument),
		errors.Is(err, documents.ErrUnsupportedType),
		errors.Is(err, books.ErrInvalidName),
		errors.Is(err, chat.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, books.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, books.ErrNameCollision),
		errors.Is(err, chat.ErrNoActiveBook):
		return http.StatusConflict
	case errors.Is(err, budget.ErrBudgetExceeded):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, documents.ErrUnreadableDocument):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes err as JSON. Internal errors are logged and
// replaced with msg so backend details do not leak.
func abortWithError(c *gin.Context, err error, msg string) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}

	var exceeded *budget.ExceededError
	if errors.As(err, &exceeded) {
		resp.Tokens = exceeded.Count
		resp.Limit = exceeded.Ceiling
	}

	if status == http.StatusInternalServerError {
		logx.Error().Err(err).Str("path", c.FullPath()).Msg(msg)
		resp.Error = msg
	}

	c.AbortWithStatusJSON(status, resp)
}
