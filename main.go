package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/bootstrap"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/config"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/router"

	"github.com/gin-gonic/gin"
)

func main() {
	// 默认使用 release，避免线上以 debug 模式启动
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 1. Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Printf("Init config failed, using defaults: %v", err)
		config.AppConfig = config.Default()
	}
	logger := config.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Initialize services
	app, err := bootstrap.Build(ctx)
	if err != nil {
		log.Fatalf("Init services failed: %v", err)
	}
	defer app.Close()

	// 3. Setup router
	r, err := router.SetupRouter(app.Dependencies())
	if err != nil {
		log.Fatalf("Setup router failed: %v", err)
	}

	// 4. Start server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.AppConfig.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server is running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server run failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
}
