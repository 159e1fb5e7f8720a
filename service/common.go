package service

import (
	"errors"
	"log/slog"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/config"
)

var (
	ErrRequiredFields       = errors.New("请填写所有必填项")
	ErrUnknownModel         = errors.New("基础模型不存在")
	ErrUnknownDataset       = errors.New("数据集不存在")
	ErrComparisonBusy       = errors.New("对比正在生成中")
	ErrBackendNotConfigured = errors.New("training backend is not configured")
	ErrBackendJobMissing    = errors.New("task has no backend job id")
	ErrBackendRejected      = errors.New("training backend rejected the request")
)

func serviceLogger() *slog.Logger {
	if config.AppLogger != nil {
		return config.AppLogger.With("layer", "service")
	}
	if config.AppConfig == nil {
		return slog.Default().With("layer", "service")
	}

	logger := config.EnsureLoggerInitialized()
	if logger == nil {
		return slog.Default().With("layer", "service")
	}
	return logger.With("layer", "service")
}
