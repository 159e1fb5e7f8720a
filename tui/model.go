package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/console"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type formField int

const (
	fieldName formField = iota
	fieldModel
	fieldDataset
	fieldEpochs
	fieldLearningRate
	fieldBatchSize
)

type comparisonDoneMsg struct{ err error }

// Model 终端控制台，页面状态全部由 console.Controller 持有。
type Model struct {
	ctx    context.Context
	ctrl   *console.Controller
	keys   keyMap
	styles styles
	help   help.Model
	spin   spinner.Model

	width  int
	height int

	snap   console.Snapshot
	err    string
	cursor int

	form         console.TaskForm
	focus        formField
	nameInput    textinput.Model
	epochsInput  textinput.Model
	lrInput      textinput.Model
	promptInput  textinput.Model
	promptActive bool
}

func New(ctx context.Context, ctrl *console.Controller) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))

	name := textinput.New()
	name.Placeholder = "例如：客服语气风格调整"
	name.CharLimit = 64

	epochs := textinput.New()
	epochs.CharLimit = 6

	lr := textinput.New()
	lr.CharLimit = 16

	prompt := textinput.New()
	prompt.CharLimit = 512

	m := Model{
		ctx:         ctx,
		ctrl:        ctrl,
		keys:        defaultKeyMap(),
		styles:      defaultStyles(),
		help:        help.New(),
		spin:        sp,
		nameInput:   name,
		epochsInput: epochs,
		lrInput:     lr,
		promptInput: prompt,
	}
	m.load()
	return m
}

func (m Model) Init() tea.Cmd {
	if m.busy() {
		return tea.Batch(m.spin.Tick, m.waitComparison())
	}
	return nil
}

func (m *Model) load() {
	snap, err := m.ctrl.Snapshot(m.ctx)
	if err != nil {
		m.err = err.Error()
		return
	}
	m.snap = snap
	if snap.List != nil {
		m.cursor = max(0, min(m.cursor, len(snap.List.Rows)-1))
	}
}

func (m Model) busy() bool {
	return m.snap.Detail != nil && m.snap.Detail.Comparison.Busy
}

func (m Model) waitComparison() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		_, err := ctrl.WaitComparison(ctx)
		return comparisonDoneMsg{err: err}
	}
}

// typing 焦点在文本框时，普通字符不作为快捷键
func (m Model) typing() bool {
	switch m.snap.Kind {
	case console.ScreenCreate:
		return m.focus == fieldName || m.focus == fieldEpochs || m.focus == fieldLearningRate
	case console.ScreenDetail:
		return m.promptActive
	}
	return false
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.promptInput.Width = max(28, m.width-12)
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case comparisonDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, console.ErrWrongScreen) {
			m.err = msg.err.Error()
		}
		m.load()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || (!m.typing() && key.Matches(msg, m.keys.Quit)) {
			return m, tea.Quit
		}
		m.err = ""
		switch m.snap.Kind {
		case console.ScreenList:
			return m.updateList(msg)
		case console.ScreenCreate:
			return m.updateCreate(msg)
		case console.ScreenDetail:
			return m.updateDetail(msg)
		}
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := 0
	if m.snap.List != nil {
		rows = len(m.snap.List.Rows)
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < rows-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Select):
		if rows == 0 {
			return m, nil
		}
		if _, err := m.ctrl.SelectTask(m.ctx, m.snap.List.Rows[m.cursor].ID); err != nil {
			m.err = err.Error()
		}
		m.load()
		return m, m.resumeComparison()
	case key.Matches(msg, m.keys.New):
		m.ctrl.ShowCreate()
		m.load()
		m.resetForm()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Reopen):
		if err := m.ctrl.Reopen(m.ctx); err != nil {
			m.err = err.Error()
		}
		m.load()
		return m, m.resumeComparison()
	}
	return m, nil
}

// resumeComparison 进入详情页时若对比仍在运行，继续等待结果
func (m Model) resumeComparison() tea.Cmd {
	if !m.busy() {
		return nil
	}
	return tea.Batch(m.spin.Tick, m.waitComparison())
}

func (m *Model) resetForm() {
	m.form = console.NewTaskForm()
	if m.snap.Create != nil {
		m.form = m.snap.Create.Form
	}
	m.nameInput.SetValue(m.form.Name)
	m.epochsInput.SetValue(strconv.Itoa(m.form.Epochs))
	m.lrInput.SetValue(strconv.FormatFloat(m.form.LearningRate, 'g', -1, 64))
	m.focus = fieldName
	m.focusInputs()
}

func (m *Model) focusInputs() {
	m.nameInput.Blur()
	m.epochsInput.Blur()
	m.lrInput.Blur()
	switch m.focus {
	case fieldName:
		m.nameInput.Focus()
	case fieldEpochs:
		m.epochsInput.Focus()
	case fieldLearningRate:
		m.lrInput.Focus()
	}
}

func (m Model) visibleFields() []formField {
	fields := []formField{fieldName, fieldModel, fieldDataset}
	if m.form.Advanced {
		fields = append(fields, fieldEpochs, fieldLearningRate, fieldBatchSize)
	}
	return fields
}

func (m *Model) moveFocus(delta int) {
	fields := m.visibleFields()
	idx := 0
	for i, f := range fields {
		if f == m.focus {
			idx = i
		}
	}
	idx = (idx + delta + len(fields)) % len(fields)
	m.focus = fields[idx]
	m.focusInputs()
}

// syncForm 把输入框内容写回表单；数字解析失败时返回错误
func (m *Model) syncForm() error {
	m.form.Name = m.nameInput.Value()

	epochs, err := strconv.Atoi(strings.TrimSpace(m.epochsInput.Value()))
	if err != nil {
		return fmt.Errorf("训练轮数必须是整数")
	}
	lr, err := strconv.ParseFloat(strings.TrimSpace(m.lrInput.Value()), 64)
	if err != nil {
		return fmt.Errorf("学习率必须是数字")
	}
	m.form.Epochs = epochs
	m.form.LearningRate = lr
	return nil
}

func (m Model) updateCreate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.ctrl.CancelCreate()
		m.load()
		return m, nil

	case key.Matches(msg, m.keys.Advanced):
		if err := m.syncForm(); err != nil {
			m.err = err.Error()
			return m, nil
		}
		form, err := m.ctrl.ToggleAdvanced(m.form)
		if err != nil {
			m.err = err.Error()
			return m, nil
		}
		m.form = form
		if !m.form.Advanced && m.focus >= fieldEpochs {
			m.focus = fieldDataset
			m.focusInputs()
		}
		m.load()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if err := m.syncForm(); err != nil {
			m.err = err.Error()
			return m, nil
		}
		if _, err := m.ctrl.CreateTask(m.ctx, m.form); err == nil {
			m.cursor = 0
		}
		// 校验失败的提示由 Snapshot.Notice 展示
		m.load()
		return m, nil

	case key.Matches(msg, m.keys.Next):
		m.moveFocus(1)
		return m, nil
	case key.Matches(msg, m.keys.Prev):
		m.moveFocus(-1)
		return m, nil

	case key.Matches(msg, m.keys.Left):
		if !m.typing() {
			m.cycleOption(-1)
			return m, nil
		}
	case key.Matches(msg, m.keys.Right):
		if !m.typing() {
			m.cycleOption(1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case fieldName:
		m.nameInput, cmd = m.nameInput.Update(msg)
	case fieldEpochs:
		m.epochsInput, cmd = m.epochsInput.Update(msg)
	case fieldLearningRate:
		m.lrInput, cmd = m.lrInput.Update(msg)
	}
	return m, cmd
}

func cycleIndex(current, delta, n int) int {
	if current < 0 {
		if delta > 0 {
			return 0
		}
		return n - 1
	}
	return (current + delta + n) % n
}

func (m *Model) cycleOption(delta int) {
	view := m.snap.Create
	if view == nil {
		return
	}
	switch m.focus {
	case fieldModel:
		if len(view.Models) == 0 {
			return
		}
		cur := -1
		for i, opt := range view.Models {
			if opt.ID == m.form.BaseModelID {
				cur = i
			}
		}
		m.form.BaseModelID = view.Models[cycleIndex(cur, delta, len(view.Models))].ID
	case fieldDataset:
		if len(view.Datasets) == 0 {
			return
		}
		cur := -1
		for i, opt := range view.Datasets {
			if opt.ID == m.form.DatasetID {
				cur = i
			}
		}
		m.form.DatasetID = view.Datasets[cycleIndex(cur, delta, len(view.Datasets))].ID
	case fieldBatchSize:
		cur := -1
		for i, size := range view.BatchSizeOptions {
			if size == m.form.BatchSize {
				cur = i
			}
		}
		m.form.BatchSize = view.BatchSizeOptions[cycleIndex(cur, delta, len(view.BatchSizeOptions))]
	}
	if err := m.ctrl.UpdateForm(m.form); err != nil {
		m.err = err.Error()
	}
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.promptActive {
		switch msg.String() {
		case "enter":
			if err := m.ctrl.SetPrompt(m.ctx, m.promptInput.Value()); err != nil {
				m.err = err.Error()
			}
			m.promptActive = false
			m.promptInput.Blur()
			m.load()
			return m, nil
		case "esc":
			m.promptActive = false
			m.promptInput.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.promptInput, cmd = m.promptInput.Update(msg)
		return m, cmd
	}

	detail := m.snap.Detail
	switch {
	case key.Matches(msg, m.keys.Back):
		m.ctrl.Back()
		m.load()
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		next := console.TabVerification
		if detail != nil && detail.Tab == console.TabVerification {
			next = console.TabOverview
		}
		if err := m.ctrl.SwitchTab(next); err != nil {
			m.err = err.Error()
		}
		m.load()
		return m, nil
	}

	if detail == nil || detail.Tab != console.TabVerification {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Edit):
		if detail.Comparison.Busy {
			return m, nil
		}
		m.promptActive = true
		m.promptInput.SetValue(detail.Comparison.Prompt)
		m.promptInput.CursorEnd()
		return m, m.promptInput.Focus()

	case key.Matches(msg, m.keys.Run):
		if _, err := m.ctrl.RunSavedComparison(m.ctx); err != nil {
			m.err = err.Error()
			return m, nil
		}
		m.load()
		return m, tea.Batch(m.spin.Tick, m.waitComparison())

	case key.Matches(msg, m.keys.Stop):
		if _, err := m.ctrl.CancelComparison(m.ctx); err != nil {
			m.err = err.Error()
		}
		m.load()
		return m, nil
	}
	return m, nil
}
