package db

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/config"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB() error {
	if config.AppConfig == nil {
		return errors.New("app config is not initialized")
	}

	conn, err := Open(config.AppConfig.DB)
	if err != nil {
		return err
	}

	DB = conn
	return nil
}

// Open 按驱动建立连接并执行迁移。
func Open(cfg config.DBConfig) (*gorm.DB, error) {
	var (
		conn *gorm.DB
		err  error
	)

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite":
		conn, err = openSQLite(cfg)
	case "mysql":
		conn, err = openMySQL(cfg)
	default:
		return nil, fmt.Errorf("unsupported db driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

func openSQLite(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite failed (dsn=%s): %w", dsn, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB failed: %w", err)
	}
	// 内存库每条连接都是独立的库，只保留一条且不过期
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)
	return db, nil
}

func openMySQL(cfg config.DBConfig) (*gorm.DB, error) {
	loc := url.QueryEscape("Asia/Shanghai")
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=%s&timeout=5s&readTimeout=10s&writeTimeout=10s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		loc,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf(
			"connect mysql failed (host=%s port=%d db=%s user=%s): %w",
			cfg.Host, cfg.Port, cfg.DBName, cfg.User, err,
		)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB failed: %w", err)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("mysql ping failed: %w", err)
	}
	return db, nil
}

func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	DB = nil
	return sqlDB.Close()
}
