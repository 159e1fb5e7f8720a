package db

import (
	"fmt"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/entity"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "202405200001_create_fine_tune_tasks",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&entity.FineTuneTask{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&entity.FineTuneTask{})
			},
		},
	}
}

func Migrate(conn *gorm.DB) error {
	m := gormigrate.New(conn, gormigrate.DefaultOptions, migrations())

	// 空库直接建最新结构，跳过逐条迁移
	m.InitSchema(func(tx *gorm.DB) error {
		return tx.AutoMigrate(&entity.FineTuneTask{})
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrate database failed: %w", err)
	}
	return nil
}
