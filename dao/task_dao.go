package dao

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/entity"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/infrastructure/db"

	"gorm.io/gorm"
)

type TaskDAO struct {
	DB *gorm.DB
}

// NewTaskDAO 创建 TaskDAO，并注入全局数据库连接。
func NewTaskDAO() *TaskDAO {
	return &TaskDAO{
		DB: db.DB,
	}
}

func NewTaskDAOWithDB(conn *gorm.DB) *TaskDAO {
	return &TaskDAO{DB: conn}
}

// Save 把任务插到列表最前面（position 取当前最大值 + 1）。
func (d *TaskDAO) Save(ctx context.Context, task *entity.FineTuneTask) error {
	logger := daoLogger().With("dao", "TaskDAO", "method", "Save")
	if task == nil {
		logger.Warn("save task skipped: task is nil")
		return ErrNilEntity
	}
	if strings.TrimSpace(task.ID) == "" {
		logger.Warn("save task skipped: empty id")
		return ErrInvalidID
	}

	dbConn, err := withContext(d.DB, ctx)
	if err != nil {
		return fmt.Errorf("save task failed: %w", err)
	}

	err = dbConn.Transaction(func(tx *gorm.DB) error {
		var top int64
		if err := tx.Model(&entity.FineTuneTask{}).
			Select("COALESCE(MAX(position), 0)").
			Scan(&top).Error; err != nil {
			return err
		}
		task.Position = top + 1
		return tx.Create(task).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			logger.Warn("save task failed: duplicated id", "id", task.ID)
			return fmt.Errorf("save task %s failed: %w", task.ID, ErrAlreadyExists)
		}
		logger.Error("save task failed: db create", "id", task.ID, "error", err)
		return fmt.Errorf("save task failed: %w", err)
	}

	logger.Info("save task success", "id", task.ID, "position", task.Position)
	return nil
}

func (d *TaskDAO) FindByID(ctx context.Context, id string) (*entity.FineTuneTask, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidID
	}

	dbConn, err := withContext(d.DB, ctx)
	if err != nil {
		return nil, fmt.Errorf("find task by id failed: %w", err)
	}

	var task entity.FineTuneTask
	err = dbConn.Where("id = ?", id).First(&task).Error
	return &task, err
}

// FindAll 按查询参数分页获取任务列表与总数（最新在前）。
func (d *TaskDAO) FindAll(ctx context.Context, params entity.QueryParams) ([]entity.FineTuneTask, int64, error) {
	var tasks []entity.FineTuneTask
	var total int64

	dbConn, err := withContext(d.DB, ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("find tasks failed: %w", err)
	}

	dbConn = dbConn.Model(&entity.FineTuneTask{})

	// 1. 基础模糊搜索
	if keyword := strings.TrimSpace(params.Keyword); keyword != "" {
		dbConn = dbConn.Where("name LIKE ? OR id LIKE ?", "%"+keyword+"%", "%"+keyword+"%")
	}

	// 2. 指标组合过滤
	if status := strings.TrimSpace(params.Status); status != "" {
		if !entity.TaskStatus(status).Valid() {
			return nil, 0, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
		}
		dbConn = dbConn.Where("status = ?", status)
	}
	if modelID := strings.TrimSpace(params.BaseModelID); modelID != "" {
		dbConn = dbConn.Where("base_model_id = ?", modelID)
	}
	if datasetID := strings.TrimSpace(params.DatasetID); datasetID != "" {
		dbConn = dbConn.Where("dataset_id = ?", datasetID)
	}
	if creator := strings.TrimSpace(params.Creator); creator != "" {
		dbConn = dbConn.Where("creator = ?", creator)
	}

	// 3. 获取总数
	if err := dbConn.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count tasks failed: %w", err)
	}

	// 4. 执行分页查询
	offset, limit := pagination(params)
	err = dbConn.Order("position DESC").Offset(offset).Limit(limit).Find(&tasks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("query tasks failed: %w", err)
	}

	return tasks, total, nil
}

// ListAll 返回全部任务，最新在前。
func (d *TaskDAO) ListAll(ctx context.Context) ([]entity.FineTuneTask, error) {
	dbConn, err := withContext(d.DB, ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks failed: %w", err)
	}

	tasks := make([]entity.FineTuneTask, 0)
	if err := dbConn.Order("position DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks failed: %w", err)
	}
	return tasks, nil
}

func (d *TaskDAO) Count(ctx context.Context) (int64, error) {
	dbConn, err := withContext(d.DB, ctx)
	if err != nil {
		return 0, fmt.Errorf("count tasks failed: %w", err)
	}

	var total int64
	if err := dbConn.Model(&entity.FineTuneTask{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count tasks failed: %w", err)
	}
	return total, nil
}

// UpdateStatusByID 写回后端同步过来的状态与进度。
func (d *TaskDAO) UpdateStatusByID(ctx context.Context, id string, status entity.TaskStatus, progress int) (*entity.FineTuneTask, error) {
	logger := daoLogger().With("dao", "TaskDAO", "method", "UpdateStatusByID")
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidID
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	dbConn, err := withContext(d.DB, ctx)
	if err != nil {
		return nil, fmt.Errorf("update task status failed: %w", err)
	}

	// mysql 的 RowsAffected 不统计值未变化的行，先查存在性
	task, err := d.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	err = dbConn.Model(&entity.FineTuneTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":   status,
			"progress": progress,
		}).Error
	if err != nil {
		logger.Error("update task status failed", "id", id, "error", err)
		return nil, fmt.Errorf("update task status failed: %w", err)
	}

	task.Status = status
	task.Progress = progress
	logger.Info("update task status success", "id", id, "status", status, "progress", progress)
	return task, nil
}

// SetBackendJobIDByID 记录训练后端分配的作业 ID。
func (d *TaskDAO) SetBackendJobIDByID(ctx context.Context, id, jobID string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidID
	}

	dbConn, err := withContext(d.DB, ctx)
	if err != nil {
		return fmt.Errorf("set backend job id failed: %w", err)
	}

	result := dbConn.Model(&entity.FineTuneTask{}).Where("id = ?", id).Update("backend_job_id", jobID)
	if result.Error != nil {
		return fmt.Errorf("set backend job id failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
