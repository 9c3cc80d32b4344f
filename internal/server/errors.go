package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/daretna/daretna/internal/daret"
	"github.com/daretna/daretna/internal/social"
	"github.com/daretna/daretna/internal/storage"
)

// respondError maps domain errors to HTTP status codes. Unknown errors are
// logged and surfaced as 500 without leaking internals.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, daret.ErrGroupNotFound),
		errors.Is(err, daret.ErrUserNotFound),
		errors.Is(err, daret.ErrNotMember),
		errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, daret.ErrAlreadyMember),
		errors.Is(err, daret.ErrInvalidState),
		errors.Is(err, social.ErrAlreadyVoted),
		errors.Is(err, social.ErrVoteClosed),
		errors.Is(err, storage.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, daret.ErrValidation),
		errors.Is(err, social.ErrValidation),
		errors.Is(err, social.ErrUnknownOption):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, daret.ErrUnauthorized),
		errors.Is(err, daret.ErrMemberBlocked),
		errors.Is(err, daret.ErrGroupLimit),
		errors.Is(err, social.ErrNotMember):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	default:
		slog.Error("Unhandled error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
