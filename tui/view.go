package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/console"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/entity"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render("LLM 微调平台"))
	b.WriteString("\n\n")

	switch m.snap.Kind {
	case console.ScreenList:
		b.WriteString(m.viewList())
	case console.ScreenCreate:
		b.WriteString(m.viewCreate())
	case console.ScreenDetail:
		b.WriteString(m.viewDetail())
	}

	if m.snap.Notice != "" {
		b.WriteString("\n" + m.styles.notice.Render("! "+m.snap.Notice) + "\n")
	}
	if m.err != "" {
		b.WriteString("\n" + m.styles.notice.Render(m.err) + "\n")
	}
	b.WriteString("\n" + m.help.View(m.helpKeys()))
	return b.String()
}

func (m Model) helpKeys() screenKeys {
	k := m.keys
	switch m.snap.Kind {
	case console.ScreenCreate:
		return screenKeys{short: []key.Binding{k.Next, k.Left, k.Right, k.Advanced, k.Submit, k.Back}}
	case console.ScreenDetail:
		if m.snap.Detail != nil && m.snap.Detail.Tab == console.TabVerification {
			return screenKeys{short: []key.Binding{k.Tab, k.Edit, k.Run, k.Stop, k.Back, k.Quit}}
		}
		return screenKeys{short: []key.Binding{k.Tab, k.Back, k.Quit}}
	default:
		return screenKeys{short: []key.Binding{k.Up, k.Down, k.Select, k.New, k.Reopen, k.Quit}}
	}
}

func (m Model) badgeStyle(status entity.TaskStatus) lipgloss.Style {
	switch status {
	case entity.TaskStatusRunning:
		return m.styles.running
	case entity.TaskStatusCompleted:
		return m.styles.completed
	case entity.TaskStatusFailed:
		return m.styles.failed
	default:
		return m.styles.pending
	}
}

func cell(width int, s string) string {
	return lipgloss.NewStyle().Width(width).MaxWidth(width).Render(s)
}

func progressBar(progress int) string {
	filled := max(0, min(10, progress/10))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", 10-filled) + "] " + strconv.Itoa(progress) + "%"
}

func (m Model) viewList() string {
	view := m.snap.List
	if view == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.styles.title.Render("微调任务") + m.styles.dim.Render("  (n 新建任务)") + "\n\n")

	if view.Empty {
		b.WriteString(m.styles.panel.Render(view.EmptyMessage) + "\n")
	} else {
		header := "  " + cell(30, "任务名称 / ID") + cell(14, "基础模型") + cell(12, "状态") + cell(18, "进度") + cell(18, "创建人") + "创建时间"
		b.WriteString(m.styles.dim.Render(header) + "\n")
		for i, row := range view.Rows {
			marker := "  "
			name := row.Name
			if i == m.cursor {
				marker = "> "
				name = m.styles.selected.Render(name)
			}
			progress := "-"
			if row.ShowProgress {
				progress = progressBar(row.Progress)
			}
			badge := m.badgeStyle(statusOf(row.Badge)).Render(row.Badge.Icon + " " + row.Badge.Label)
			b.WriteString(marker + cell(30, name) + cell(14, row.BaseModelID) + cell(12, badge) + cell(18, progress) + cell(18, row.Creator) + row.CreatedAt + "\n")
			b.WriteString("  " + m.styles.dim.Render(row.ID) + "\n")
		}
	}

	pager := "‹ 上一页  下一页 ›"
	if view.PagerDisabled {
		pager = m.styles.dim.Render(pager)
	}
	b.WriteString("\n" + view.Footer + "    " + pager + "\n")
	return b.String()
}

// statusOf 通过徽章反查状态，用于挑选颜色
func statusOf(badge console.StatusBadge) entity.TaskStatus {
	for _, status := range []entity.TaskStatus{entity.TaskStatusPending, entity.TaskStatusRunning, entity.TaskStatusCompleted, entity.TaskStatusFailed} {
		if console.BadgeFor(status) == badge {
			return status
		}
	}
	return entity.TaskStatusPending
}

func (m Model) fieldLabel(field formField, label string) string {
	if m.focus == field {
		return m.styles.selected.Render("> " + label)
	}
	return "  " + label
}

func (m Model) viewCreate() string {
	view := m.snap.Create
	if view == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.styles.title.Render("新建微调任务") + "\n\n")

	b.WriteString(m.fieldLabel(fieldName, "任务名称 *") + "\n    " + m.nameInput.View() + "\n\n")

	modelName := "未选择"
	for _, opt := range view.Models {
		if opt.ID == m.form.BaseModelID {
			modelName = fmt.Sprintf("%s %s (%s) %s", opt.Icon, opt.Name, opt.Provider, m.styles.dim.Render(opt.Description))
		}
	}
	b.WriteString(m.fieldLabel(fieldModel, "基础模型 *") + "\n    ‹ " + modelName + " ›\n\n")

	datasetName := "未选择"
	for _, opt := range view.Datasets {
		if opt.ID == m.form.DatasetID {
			datasetName = fmt.Sprintf("%s (%s, %s)", opt.Name, opt.Size, opt.Type)
		}
	}
	b.WriteString(m.fieldLabel(fieldDataset, "数据集 *") + "\n    ‹ " + datasetName + " ›\n\n")

	if m.form.Advanced {
		b.WriteString(m.styles.dim.Render("▼ 高级参数配置 (ctrl+a 收起)") + "\n")
		b.WriteString(m.fieldLabel(fieldEpochs, "训练轮数 (Epochs)") + "  " + m.epochsInput.View() + "\n")
		b.WriteString(m.fieldLabel(fieldLearningRate, "学习率 (Learning Rate)") + "  " + m.lrInput.View() + "\n")
		b.WriteString(m.fieldLabel(fieldBatchSize, "批次大小 (Batch Size)") + "  ‹ " + strconv.Itoa(m.form.BatchSize) + " ›\n")
	} else {
		b.WriteString(m.styles.dim.Render("▶ 高级参数配置 (ctrl+a 展开)") + "\n")
	}
	return b.String()
}

func (m Model) viewDetail() string {
	view := m.snap.Detail
	if view == nil {
		return ""
	}
	var b strings.Builder
	badge := m.badgeStyle(view.Task.Status).Render(view.Badge.Icon + " " + view.Badge.Label)
	b.WriteString(m.styles.title.Render(view.Task.Name) + "  " + badge + "  " + m.styles.dim.Render(view.Task.ID) + "\n\n")

	tabs := []struct {
		tab   console.DetailTab
		label string
	}{
		{console.TabOverview, "概览"},
		{console.TabVerification, "效果验证"},
	}
	var rendered []string
	for _, t := range tabs {
		if t.tab == view.Tab {
			rendered = append(rendered, m.styles.tabActive.Render(t.label))
		} else {
			rendered = append(rendered, m.styles.tab.Render(t.label))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...) + "\n\n")

	if view.Tab == console.TabVerification {
		b.WriteString(m.viewVerification(view.Comparison))
	} else {
		b.WriteString(m.viewOverview(*view))
	}
	return b.String()
}

func (m Model) viewOverview(view console.DetailView) string {
	cfg := view.Task.Config
	lines := []string{
		fmt.Sprintf("基础模型：%s (%s)", view.Model.Name, view.Task.BaseModelID),
		fmt.Sprintf("数据集：%s (%s)", view.Dataset.Name, view.Task.DatasetID),
		fmt.Sprintf("训练轮数：%d  学习率：%s  批次大小：%d", cfg.Epochs, strconv.FormatFloat(cfg.LearningRate, 'g', -1, 64), cfg.BatchSize),
		fmt.Sprintf("创建人：%s  创建时间：%s", view.Task.Creator, view.Task.CreatedAt),
	}
	if view.Task.IsRunning() {
		lines = append(lines, "进度："+progressBar(view.Task.Progress))
	}
	config := m.styles.panel.Render(strings.Join(lines, "\n"))

	chart := "暂无训练数据"
	if !view.Chart.Empty() {
		first, last := view.Chart.Points[0], view.Chart.Points[len(view.Chart.Points)-1]
		chart = "训练损失 (Loss)\n" +
			m.styles.graphLoss.Render(sparkline(view.Chart)) + "\n" +
			m.styles.dim.Render(fmt.Sprintf("step %d: %.4f  →  step %d: %.4f", first.Step, first.Loss, last.Step, last.Loss))
	}
	return config + "\n" + m.styles.panel.Render(chart) + "\n"
}

// sparkline 用图表的像素纵坐标换算成字符高度
func sparkline(chart console.LossChart) string {
	top, bottom := chart.PlotTop(), chart.PlotBottom()
	span := bottom - top
	var b strings.Builder
	for _, p := range chart.Points {
		level := 0
		if span > 0 {
			level = int((bottom - p.Y) / span * float64(len(sparkLevels)-1))
		}
		level = max(0, min(len(sparkLevels)-1, level))
		b.WriteRune(sparkLevels[level])
	}
	return b.String()
}

func (m Model) viewVerification(panel console.ComparisonPanel) string {
	var b strings.Builder

	prompt := panel.Prompt
	if m.promptActive {
		prompt = m.promptInput.View()
	}
	b.WriteString("提示词：" + prompt + "\n")

	switch {
	case panel.Busy:
		b.WriteString(m.spin.View() + " 生成中... (x 取消)\n\n")
	default:
		b.WriteString(m.styles.dim.Render("r 运行对比") + "\n\n")
	}
	if panel.Error != "" {
		b.WriteString(m.styles.notice.Render(panel.Error) + "\n")
	}

	width := max(30, (m.width-8)/2)
	before := m.styles.panel.Width(width).Render("微调前 (Base Model)\n" + panel.Before)
	after := m.styles.panel.Width(width).Render("微调后 (Fine-tuned)\n" + panel.After)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, before, after) + "\n")

	var cards []string
	for _, card := range panel.Metrics {
		text := card.Label + "\n" + m.styles.title.Render(card.Value)
		if card.Delta != "" {
			text += " " + m.styles.completed.Render(card.Delta)
		}
		cards = append(cards, m.styles.panel.Render(text))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...) + "\n")
	return b.String()
}
