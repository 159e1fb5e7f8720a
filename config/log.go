package config

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	AppLogger   *slog.Logger
	loggerInitM sync.Mutex
)

func ensureLogDir(path string) error {
	// path 可能是文件路径（logs/app.log）也可能是目录
	dir := path
	if filepath.Ext(path) != "" {
		dir = filepath.Dir(path)
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLogger(logPath string, level slog.Level) *slog.Logger {
	if strings.TrimSpace(logPath) == "" {
		logPath = "logs/app.log"
	}

	// 1) 确保目录存在
	if err := ensureLogDir(logPath); err != nil {
		fmt.Printf("failed to create log directory: %v\n", err)
		return slog.Default()
	}

	// 2) 传入目录时拼默认文件名
	if filepath.Ext(logPath) == "" {
		logPath = filepath.Join(logPath, "app.log")
	}

	// 3) lumberjack 轮转
	lumberjackLogger := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    100, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	// 4) stdout + file
	mw := io.MultiWriter(os.Stdout, lumberjackLogger)

	handler := slog.NewTextHandler(mw, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	})

	logger := slog.New(handler)

	// 标准库 log 也导到同一个输出，避免混用时丢日志
	log.SetOutput(mw)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logger.Info("日志系统初始化成功", "path", logPath)
	return logger
}

func logSettingsFromConfig() (string, slog.Level) {
	if AppConfig == nil {
		return "logs/app.log", slog.LevelInfo
	}
	return strings.TrimSpace(AppConfig.Log.Path), parseLevel(AppConfig.Log.Level)
}

// InitLogger 使用当前配置重新初始化全局日志器。
func InitLogger() *slog.Logger {
	loggerInitM.Lock()
	defer loggerInitM.Unlock()

	AppLogger = buildLogger(logSettingsFromConfig())
	return AppLogger
}

// EnsureLoggerInitialized 确保全局日志器可用；未初始化时不落盘，直接使用 slog.Default。
func EnsureLoggerInitialized() *slog.Logger {
	loggerInitM.Lock()
	defer loggerInitM.Unlock()

	if AppLogger != nil {
		return AppLogger
	}
	if AppConfig == nil {
		return slog.Default()
	}
	AppLogger = buildLogger(logSettingsFromConfig())
	return AppLogger
}

// SetLogger replaces the global logger, e.g. with a discard handler in tests
// or a file-only handler in the terminal console.
func SetLogger(logger *slog.Logger) {
	loggerInitM.Lock()
	defer loggerInitM.Unlock()
	AppLogger = logger
}

// NewFileLogger builds a logger that writes only to the rotating file, for
// front-ends that own stdout.
func NewFileLogger(logPath string, level slog.Level) (*slog.Logger, error) {
	if err := ensureLogDir(logPath); err != nil {
		return nil, fmt.Errorf("create log directory failed: %w", err)
	}
	if filepath.Ext(logPath) == "" {
		logPath = filepath.Join(logPath, "app.log")
	}
	w := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func LogLevel() slog.Level {
	_, level := logSettingsFromConfig()
	return level
}
