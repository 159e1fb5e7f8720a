package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/dao"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/entity"
)

// CreatedAtLayout 列表中展示的创建时间格式
const CreatedAtLayout = "2006/1/2 15:04:05"

const defaultCreator = "current_user"

// CreateTaskRequest 创建表单提交的内容。超参不做范围校验，按原样保存。
type CreateTaskRequest struct {
	Name        string                 `json:"name" form:"name"`
	BaseModelID string                 `json:"baseModelId" form:"base_model_id"`
	DatasetID   string                 `json:"datasetId" form:"dataset_id"`
	Config      entity.Hyperparameters `json:"config"`
}

type TaskService struct {
	taskDAO *dao.TaskDAO
	catalog *CatalogService
	backend TrainingBackend
	ids     IDGenerator
	creator string
	now     func() time.Time
}

type TaskServiceOption func(*TaskService)

func WithTrainingBackend(backend TrainingBackend) TaskServiceOption {
	return func(s *TaskService) { s.backend = backend }
}

func WithIDGenerator(ids IDGenerator) TaskServiceOption {
	return func(s *TaskService) { s.ids = ids }
}

func WithCreator(creator string) TaskServiceOption {
	return func(s *TaskService) {
		if c := strings.TrimSpace(creator); c != "" {
			s.creator = c
		}
	}
}

func WithClock(now func() time.Time) TaskServiceOption {
	return func(s *TaskService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewTaskService(taskDAO *dao.TaskDAO, catalog *CatalogService, opts ...TaskServiceOption) *TaskService {
	s := &TaskService{
		taskDAO: taskDAO,
		catalog: catalog,
		creator: defaultCreator,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ids == nil {
		s.ids = NewTimestampIDGenerator(s.now)
	}
	return s
}

func (s *TaskService) Catalog() *CatalogService {
	return s.catalog
}

// CreateTask 校验表单并追加一个排队中的任务到列表最前。
// 配置了训练后端时同步提交作业，提交失败只记录日志，任务仍保留。
func (s *TaskService) CreateTask(ctx context.Context, req CreateTaskRequest) (*entity.FineTuneTask, error) {
	logger := serviceLogger().With("service", "TaskService", "method", "CreateTask")

	// 1. 必填项
	name := strings.TrimSpace(req.Name)
	if name == "" || strings.TrimSpace(req.BaseModelID) == "" || strings.TrimSpace(req.DatasetID) == "" {
		return nil, ErrRequiredFields
	}

	// 2. 下拉框只能选目录里存在的项
	if _, ok := s.catalog.FindModel(req.BaseModelID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, req.BaseModelID)
	}
	if _, ok := s.catalog.FindDataset(req.DatasetID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDataset, req.DatasetID)
	}

	task := &entity.FineTuneTask{
		ID:          s.ids.NextID(),
		Name:        name,
		BaseModelID: req.BaseModelID,
		DatasetID:   req.DatasetID,
		Creator:     s.creator,
		CreatedAt:   s.now().Format(CreatedAtLayout),
		Status:      entity.TaskStatusPending,
		Progress:    0,
		Config:      req.Config,
	}

	// 3. 入库
	if err := s.taskDAO.Save(ctx, task); err != nil {
		return nil, err
	}
	logger.Info("task created", "task_id", task.ID, "base_model_id", task.BaseModelID, "dataset_id", task.DatasetID)

	// 4. 提交到训练后端
	if s.backend != nil {
		jobID, err := s.backend.SubmitFineTuneJob(ctx, SubmitJobRequest{
			TaskID:          task.ID,
			Name:            task.Name,
			BaseModelID:     task.BaseModelID,
			DatasetID:       task.DatasetID,
			Hyperparameters: task.Config,
		})
		if err != nil {
			logger.Error("submit fine-tune job failed", "task_id", task.ID, "error", err)
			return task, nil
		}
		if err := s.taskDAO.SetBackendJobIDByID(ctx, task.ID, jobID); err != nil {
			logger.Error("save backend job id failed", "task_id", task.ID, "job_id", jobID, "error", err)
			return task, nil
		}
		task.BackendJobID = jobID
	}

	return task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, params entity.QueryParams) (entity.PageResult, error) {
	tasks, total, err := s.taskDAO.FindAll(ctx, params)
	if err != nil {
		return entity.PageResult{}, err
	}
	return entity.PageResult{
		Total: total,
		List:  tasks,
	}, nil
}

// AllTasks 返回全部任务，最新的在前
func (s *TaskService) AllTasks(ctx context.Context) ([]entity.FineTuneTask, error) {
	return s.taskDAO.ListAll(ctx)
}

func (s *TaskService) GetTask(ctx context.Context, id string) (*entity.FineTuneTask, error) {
	return s.taskDAO.FindByID(ctx, id)
}

// SeedTasks 只在任务表为空时写入目录中的示例任务。
// 目录按展示顺序排列，倒序插入使第一个示例排在最前。
func (s *TaskService) SeedTasks(ctx context.Context) (int, error) {
	total, err := s.taskDAO.Count(ctx)
	if err != nil {
		return 0, err
	}
	if total > 0 {
		serviceLogger().Info("seed tasks skipped: table not empty", "total", total)
		return 0, nil
	}

	seeds := s.catalog.SeedTasks()
	inserted := 0
	for i := len(seeds) - 1; i >= 0; i-- {
		task := seeds[i]
		if strings.TrimSpace(task.Creator) == "" {
			task.Creator = s.creator
		}
		err := s.taskDAO.Save(ctx, &task)
		if errors.Is(err, dao.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return inserted, fmt.Errorf("seed task %s failed: %w", task.ID, err)
		}
		inserted++
	}
	serviceLogger().Info("seed tasks loaded", "inserted", inserted, "total", len(seeds))
	return inserted, nil
}

// RefreshStatus 从训练后端拉取一次状态和进度，控制台本身不轮询。
func (s *TaskService) RefreshStatus(ctx context.Context, id string) (*entity.FineTuneTask, error) {
	if s.backend == nil {
		return nil, ErrBackendNotConfigured
	}
	task, err := s.taskDAO.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(task.BackendJobID) == "" {
		return nil, ErrBackendJobMissing
	}

	report, err := s.backend.GetTaskStatus(ctx, task.BackendJobID)
	if err != nil {
		return nil, err
	}
	return s.taskDAO.UpdateStatusByID(ctx, task.ID, report.Status, report.Progress)
}
