package entity

type DatasetType string

const (
	DatasetTypeFeedback DatasetType = "Feedback"
	DatasetTypeQA       DatasetType = "QA"
	DatasetTypeRawText  DatasetType = "Raw Text"
)

type ModelOption struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Provider    string   `json:"provider" yaml:"provider"`
	Description string   `json:"description" yaml:"description"`
	Icon        string   `json:"icon" yaml:"icon"`
	Tags        []string `json:"tags" yaml:"tags"`
}

type DatasetOption struct {
	ID   string      `json:"id" yaml:"id"`
	Name string      `json:"name" yaml:"name"`
	Size string      `json:"size" yaml:"size"`
	Type DatasetType `json:"type" yaml:"type"`
}

// TrainingMetric 一个训练步的采样点，Accuracy 目前没有视图使用
type TrainingMetric struct {
	Step     int     `json:"step" yaml:"step"`
	Loss     float64 `json:"loss" yaml:"loss"`
	Accuracy float64 `json:"accuracy" yaml:"accuracy"`
}

// Catalog 静态目录：基础模型、数据集、种子任务、训练曲线
type Catalog struct {
	Models    []ModelOption    `json:"models" yaml:"models"`
	Datasets  []DatasetOption  `json:"datasets" yaml:"datasets"`
	SeedTasks []FineTuneTask   `json:"seed_tasks" yaml:"seed_tasks"`
	Metrics   []TrainingMetric `json:"metrics" yaml:"metrics"`
}
