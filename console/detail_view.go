package console

import (
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/entity"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/service"
)

const (
	ResultPlaceholder = "等待输入..."
	chartWidth        = 640
	chartHeight       = 260
)

// ComparisonPanel 验证页。Busy 时触发按钮禁用
type ComparisonPanel struct {
	Prompt          string
	Busy            bool
	TriggerDisabled bool
	HasResult       bool
	Before          string
	After           string
	Error           string
	Metrics         []entity.MetricCard
}

func BuildComparisonPanel(session entity.ComparisonSession, cards []entity.MetricCard) ComparisonPanel {
	panel := ComparisonPanel{
		Prompt:          session.Prompt,
		Busy:            session.Busy,
		TriggerDisabled: session.Busy,
		Before:          ResultPlaceholder,
		After:           ResultPlaceholder,
		Error:           session.Error,
		Metrics:         cards,
	}
	if session.Result != nil {
		panel.HasResult = true
		panel.Before = session.Result.Before
		panel.After = session.Result.After
	}
	return panel
}

type DetailView struct {
	Task    entity.FineTuneTask
	Badge   StatusBadge
	Tab     DetailTab
	Model   entity.ModelOption
	Dataset entity.DatasetOption
	// 所有任务共用同一条示例曲线
	Chart      LossChart
	Comparison ComparisonPanel
}

func BuildDetailView(task entity.FineTuneTask, tab DetailTab, catalog *service.CatalogService, panel ComparisonPanel) DetailView {
	view := DetailView{
		Task:       task,
		Badge:      BadgeFor(task.Status),
		Tab:        tab,
		Chart:      BuildLossChart(catalog.Metrics(), chartWidth, chartHeight),
		Comparison: panel,
	}
	if model, ok := catalog.FindModel(task.BaseModelID); ok {
		view.Model = model
	} else {
		view.Model = entity.ModelOption{ID: task.BaseModelID, Name: task.BaseModelID}
	}
	if dataset, ok := catalog.FindDataset(task.DatasetID); ok {
		view.Dataset = dataset
	} else {
		view.Dataset = entity.DatasetOption{ID: task.DatasetID, Name: task.DatasetID}
	}
	return view
}
