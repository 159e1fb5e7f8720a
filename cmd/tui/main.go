package main

import (
	"context"
	"fmt"
	"os"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/bootstrap"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/config"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/tui"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.InitConfig(); err != nil {
		config.AppConfig = config.Default()
	}

	// 终端占用 stdout，日志只写文件
	logger, err := config.NewFileLogger(config.AppConfig.Log.Path, config.LogLevel())
	if err != nil {
		return err
	}
	config.SetLogger(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.Build(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	p := tea.NewProgram(tui.New(ctx, app.Console), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run terminal console failed: %w", err)
	}
	return nil
}
