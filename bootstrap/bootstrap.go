package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/config"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/console"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/dao"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/infrastructure/db"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/router"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/service"
)

// App 一次启动组装出来的全部服务，HTTP 与终端入口共用。
type App struct {
	Tasks      *service.TaskService
	Comparison *service.ComparisonService
	Registry   *service.CoreServerRegistry
	Console    *console.Controller
}

// Build 按配置依次初始化数据库、目录、redis、训练后端和对比服务，并写入示例任务。
// 调用前需要先设置 config.AppConfig。
func Build(ctx context.Context) (*App, error) {
	cfg := config.AppConfig
	if cfg == nil {
		return nil, fmt.Errorf("app config is not initialized")
	}
	logger := config.EnsureLoggerInitialized()

	// 1. 数据库
	if err := db.InitDB(); err != nil {
		return nil, fmt.Errorf("init database failed: %w", err)
	}

	// 2. 静态目录
	catalog, err := config.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog failed: %w", err)
	}
	catalogService := service.NewCatalogService(catalog)

	// 3. redis 可选：对比结果与训练服务器注册表
	var (
		registry *service.CoreServerRegistry
		store    service.ComparisonStore
	)
	if cfg.Redis.Enabled() {
		if err := config.InitRedis(); err != nil {
			return nil, fmt.Errorf("init redis failed: %w", err)
		}
		registry = service.NewCoreServerRegistry(config.RedisClient)
		store = service.NewRedisComparisonStore(config.RedisClient, cfg.Comparison.TTL())
		logger.Info("redis enabled", "host", cfg.Redis.Host, "port", cfg.Redis.Port)
	}

	// 4. 训练后端可选，解析失败时降级为纯控制台
	opts := []service.TaskServiceOption{service.WithCreator(cfg.Console.Creator)}
	if cfg.Backend.Enabled() {
		baseURL, err := service.ResolveBackendURL(ctx, registry, cfg.Backend.BaseURL, cfg.Backend.CoreServerKey)
		if err != nil {
			logger.Warn("training backend disabled", "error", err)
		} else {
			timeout := time.Duration(cfg.Backend.TimeoutSecond) * time.Second
			opts = append(opts, service.WithTrainingBackend(service.NewHTTPTrainingBackend(baseURL, timeout)))
			logger.Info("training backend enabled", "base_url", baseURL)
		}
	}

	tasks := service.NewTaskService(dao.NewTaskDAO(), catalogService, opts...)
	if _, err := tasks.SeedTasks(ctx); err != nil {
		return nil, fmt.Errorf("seed tasks failed: %w", err)
	}

	// 5. 对比运行器
	var runner service.ComparisonRunner
	switch strings.ToLower(strings.TrimSpace(cfg.Comparison.Runner)) {
	case "openai":
		runner = service.NewOpenAIRunner(cfg.Comparison.BaseURL, cfg.Comparison.APIKey)
	default:
		runner = service.NewSimulatedRunner(cfg.Comparison.Delay())
	}
	comparison := service.NewComparisonService(runner, store, cfg.Console.DefaultPrompt)
	logger.Info("comparison runner ready", "runner", cfg.Comparison.Runner)

	return &App{
		Tasks:      tasks,
		Comparison: comparison,
		Registry:   registry,
		Console:    console.NewController(tasks, comparison),
	}, nil
}

// Dependencies 供 router.SetupRouter 使用
func (a *App) Dependencies() router.Dependencies {
	return router.Dependencies{
		Tasks:      a.Tasks,
		Comparison: a.Comparison,
		Registry:   a.Registry,
		Console:    a.Console,
	}
}

// Close 停止进行中的对比并释放连接
func (a *App) Close() {
	logger := config.EnsureLoggerInitialized()
	a.Comparison.Close()
	if err := config.CloseRedis(); err != nil {
		logger.Error("close redis failed", "error", err)
	}
	if err := db.Close(); err != nil {
		logger.Error("close database failed", "error", err)
	}
}
