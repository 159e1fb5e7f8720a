package entity

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "Pending"
	TaskStatusRunning   TaskStatus = "Running"
	TaskStatusCompleted TaskStatus = "Completed"
	TaskStatusFailed    TaskStatus = "Failed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}

// Hyperparameters 训练超参，随任务一起存储（config_ 前缀列）
type Hyperparameters struct {
	Epochs       int     `gorm:"column:epochs" json:"epochs" yaml:"epochs"`
	LearningRate float64 `gorm:"column:learning_rate" json:"learningRate" yaml:"learning_rate"`
	BatchSize    int     `gorm:"column:batch_size" json:"batchSize" yaml:"batch_size"`
}

// DefaultHyperparameters 是创建表单的默认值，不论高级面板是否展开都会生效。
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{Epochs: 3, LearningRate: 0.0001, BatchSize: 32}
}

// BatchSizeOptions 是表单下拉框提供的批次大小
var BatchSizeOptions = []int{8, 16, 32, 64}

type FineTuneTask struct {
	ID          string          `gorm:"primaryKey;column:id;size:64" json:"id" yaml:"id"`
	Name        string          `gorm:"column:name" json:"name" yaml:"name"`
	BaseModelID string          `gorm:"column:base_model_id;index" json:"baseModelId" yaml:"base_model_id"`
	DatasetID   string          `gorm:"column:dataset_id;index" json:"datasetId" yaml:"dataset_id"`
	Creator     string          `gorm:"column:creator" json:"creator" yaml:"creator"`
	CreatedAt   string          `gorm:"column:created_at;autoCreateTime:false" json:"createdAt" yaml:"created_at"`
	Status      TaskStatus      `gorm:"column:status;size:16;index" json:"status" yaml:"status"`
	Progress    int             `gorm:"column:progress" json:"progress" yaml:"progress"`
	Config      Hyperparameters `gorm:"embedded;embeddedPrefix:config_" json:"config" yaml:"config"`
	// BackendJobID 训练后端返回的作业 ID，未接入后端时为空
	BackendJobID string `gorm:"column:backend_job_id;size:128" json:"backendJobId,omitempty" yaml:"-"`
	// Position 越大越新，列表按降序展示
	Position int64 `gorm:"column:position;index" json:"-" yaml:"-"`
}

func (FineTuneTask) TableName() string {
	return "fine_tune_tasks"
}

// IsRunning 进度条只在训练中展示
func (t FineTuneTask) IsRunning() bool {
	return t.Status == TaskStatusRunning
}

// TaskStatusReport is what a training backend reports for a job.
type TaskStatusReport struct {
	Status   TaskStatus `json:"status"`
	Progress int        `json:"progress"`
}
