package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/foxseedlab/mogimensetsu/internal/apperrors"
	"github.com/foxseedlab/mogimensetsu/internal/emotion"
	"github.com/foxseedlab/mogimensetsu/internal/evaluation"
	"github.com/gin-gonic/gin"
)

type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Message: "success", Data: data})
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{Code: http.StatusCreated, Message: "created", Data: data})
}

func fail(c *gin.Context, code int, message string, data any) {
	c.AbortWithStatusJSON(code, Response{Code: code, Message: message, Data: data})
}

// writeError maps the service error taxonomy onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	var unavailable *evaluation.ResultUnavailableError
	switch {
	case errors.As(err, &unavailable):
		fail(c, http.StatusNotFound, err.Error(), gin.H{"evaluation_status": unavailable.Status})
	case errors.Is(err, apperrors.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, apperrors.ErrValidation):
		fail(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, emotion.ErrClassifierDisabled):
		fail(c, http.StatusServiceUnavailable, err.Error(), nil)
	default:
		slog.Error("request failed", "error", err, "method", c.Request.Method, "path", c.FullPath())
		fail(c, http.StatusInternalServerError, "internal server error", nil)
	}
}
