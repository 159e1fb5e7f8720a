package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/config"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/console"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/dao"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func handlerLogger() *slog.Logger {
	logger := config.EnsureLoggerInitialized()
	if logger == nil {
		return slog.Default().With("layer", "handler")
	}
	return logger.With("layer", "handler")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dao.ErrInvalidID),
		errors.Is(err, dao.ErrNilEntity),
		errors.Is(err, dao.ErrInvalidStatus),
		errors.Is(err, service.ErrRequiredFields),
		errors.Is(err, service.ErrUnknownModel),
		errors.Is(err, service.ErrUnknownDataset),
		errors.Is(err, service.ErrCoreServerKeyRequired),
		errors.Is(err, console.ErrInvalidTab):
		return http.StatusBadRequest
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, service.ErrCoreServerNotFound):
		return http.StatusNotFound
	case errors.Is(err, dao.ErrAlreadyExists),
		errors.Is(err, service.ErrComparisonBusy),
		errors.Is(err, service.ErrBackendJobMissing),
		errors.Is(err, console.ErrWrongScreen),
		errors.Is(err, console.ErrNoSelection):
		return http.StatusConflict
	case errors.Is(err, service.ErrBackendRejected):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrBackendNotConfigured), errors.Is(err, service.ErrRedisNotInitialized):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeHTTPError(ctx *gin.Context, err error) {
	logger := handlerLogger().With(
		"method", ctx.Request.Method,
		"path", ctx.FullPath(),
	)

	status := statusFor(err)
	message := err.Error()
	if status == http.StatusNotFound && errors.Is(err, gorm.ErrRecordNotFound) {
		message = "record not found"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	ctx.JSON(status, gin.H{"error": message})
}

func pathID(ctx *gin.Context) (string, error) {
	id := strings.TrimSpace(ctx.Param("id"))
	if id == "" {
		return "", dao.ErrInvalidID
	}
	return id, nil
}
