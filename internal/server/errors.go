package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tonimelisma/trailertube/internal/sessionstore"
	"github.com/tonimelisma/trailertube/internal/trailer"
	"github.com/tonimelisma/trailertube/internal/uploadops"
	"github.com/tonimelisma/trailertube/internal/youtube"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps a domain error to the HTTP status returned to the caller.
func statusFor(err error) int {
	var (
		chunkErr *youtube.ChunkUploadError
		initErr  *youtube.SessionInitiationError
		trailErr *trailer.StatusError
	)

	switch {
	case errors.Is(err, uploadops.ErrReauthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, youtube.ErrInvalidPrivacy), errors.Is(err, uploadops.ErrEmptyPayload):
		return http.StatusBadRequest
	case errors.Is(err, trailer.ErrRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, youtube.ErrNotFound), errors.Is(err, sessionstore.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, youtube.ErrForbidden):
		return http.StatusForbidden
	case errors.As(err, &chunkErr), errors.As(err, &initErr), errors.As(err, &trailErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), errorResponse{Error: err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg})
}
