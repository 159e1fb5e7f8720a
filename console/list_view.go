package console

import (
	"fmt"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/entity"
)

const EmptyListMessage = "暂无任务。请点击新建任务开始！"

type StatusBadge struct {
	Label string
	Icon  string
	Class string
}

var statusBadges = map[entity.TaskStatus]StatusBadge{
	entity.TaskStatusPending:   {Label: "排队中", Icon: "🕒", Class: "badge-pending"},
	entity.TaskStatusRunning:   {Label: "训练中", Icon: "▶", Class: "badge-running"},
	entity.TaskStatusCompleted: {Label: "已完成", Icon: "✔", Class: "badge-completed"},
	entity.TaskStatusFailed:    {Label: "失败", Icon: "✖", Class: "badge-failed"},
}

// BadgeFor 未知状态按排队中展示
func BadgeFor(status entity.TaskStatus) StatusBadge {
	if badge, ok := statusBadges[status]; ok {
		return badge
	}
	return statusBadges[entity.TaskStatusPending]
}

type TaskRow struct {
	ID           string
	Name         string
	BaseModelID  string
	Badge        StatusBadge
	ShowProgress bool
	Progress     int
	Creator      string
	CreatedAt    string
}

type ListView struct {
	Rows         []TaskRow
	Empty        bool
	EmptyMessage string
	Footer       string
	// 分页按钮只是装饰
	PagerDisabled bool
	// 最近查看过的任务，非空时展示“返回上次查看”
	ReopenTaskID   string
	ReopenTaskName string
}

func BuildListView(tasks []entity.FineTuneTask) ListView {
	view := ListView{
		Rows:          make([]TaskRow, 0, len(tasks)),
		Empty:         len(tasks) == 0,
		Footer:        fmt.Sprintf("显示 %d 个任务", len(tasks)),
		PagerDisabled: true,
	}
	if view.Empty {
		view.EmptyMessage = EmptyListMessage
	}

	for _, task := range tasks {
		view.Rows = append(view.Rows, TaskRow{
			ID:           task.ID,
			Name:         task.Name,
			BaseModelID:  task.BaseModelID,
			Badge:        BadgeFor(task.Status),
			ShowProgress: task.IsRunning(),
			Progress:     task.Progress,
			Creator:      task.Creator,
			CreatedAt:    task.CreatedAt,
		})
	}
	return view
}
