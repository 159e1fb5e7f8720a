package console

import (
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/entity"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/service"
)

// TaskForm 新建任务表单。超参在高级面板收起时同样生效。
type TaskForm struct {
	Name         string  `form:"name" json:"name"`
	BaseModelID  string  `form:"base_model_id" json:"baseModelId"`
	DatasetID    string  `form:"dataset_id" json:"datasetId"`
	Epochs       int     `form:"epochs" json:"epochs"`
	LearningRate float64 `form:"learning_rate" json:"learningRate"`
	BatchSize    int     `form:"batch_size" json:"batchSize"`
	Advanced     bool    `form:"advanced" json:"advanced"`
}

func NewTaskForm() TaskForm {
	hp := entity.DefaultHyperparameters()
	return TaskForm{
		Epochs:       hp.Epochs,
		LearningRate: hp.LearningRate,
		BatchSize:    hp.BatchSize,
	}
}

// ToggleAdvanced 只切换面板可见性，不碰已填写的值
func (f *TaskForm) ToggleAdvanced() {
	f.Advanced = !f.Advanced
}

func (f TaskForm) Hyperparameters() entity.Hyperparameters {
	return entity.Hyperparameters{
		Epochs:       f.Epochs,
		LearningRate: f.LearningRate,
		BatchSize:    f.BatchSize,
	}
}

func (f TaskForm) ToRequest() service.CreateTaskRequest {
	return service.CreateTaskRequest{
		Name:        f.Name,
		BaseModelID: f.BaseModelID,
		DatasetID:   f.DatasetID,
		Config:      f.Hyperparameters(),
	}
}

// FormView 渲染创建页需要的全部数据
type FormView struct {
	Form             TaskForm
	Models           []entity.ModelOption
	Datasets         []entity.DatasetOption
	BatchSizeOptions []int
}

func BuildFormView(form TaskForm, catalog *service.CatalogService) FormView {
	return FormView{
		Form:             form,
		Models:           catalog.Models(),
		Datasets:         catalog.Datasets(),
		BatchSizeOptions: append([]int(nil), entity.BatchSizeOptions...),
	}
}
