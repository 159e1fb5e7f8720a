package console

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/config"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/entity"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/service"
)

var (
	ErrNoSelection = errors.New("尚未选择任务")
	ErrWrongScreen = errors.New("当前页面不支持该操作")
	ErrInvalidTab  = errors.New("无效的标签页")
)

func consoleLogger() *slog.Logger {
	logger := config.EnsureLoggerInitialized()
	if logger == nil {
		return slog.Default().With("layer", "console")
	}
	return logger.With("layer", "console")
}

// Controller 持有当前页面和最近选中的任务，HTTP 与终端前端共用。
type Controller struct {
	mu           sync.Mutex
	tasks        *service.TaskService
	comparison   *service.ComparisonService
	screen       Screen
	lastSelected *entity.FineTuneTask
	notice       string
}

func NewController(tasks *service.TaskService, comparison *service.ComparisonService) *Controller {
	return &Controller{
		tasks:      tasks,
		comparison: comparison,
		screen:     ListScreen{},
	}
}

func (c *Controller) Screen() Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.screen
}

// Notice 最近一次校验失败的提示，切换页面后清空
func (c *Controller) Notice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notice
}

func (c *Controller) LastSelected() (entity.FineTuneTask, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastSelected == nil {
		return entity.FineTuneTask{}, false
	}
	return *c.lastSelected, true
}

func (c *Controller) setScreen(screen Screen) {
	c.screen = screen
	c.notice = ""
}

func (c *Controller) ShowList() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setScreen(ListScreen{})
}

// ShowCreate 每次进入都是一张新表单
func (c *Controller) ShowCreate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setScreen(CreateScreen{Form: NewTaskForm()})
}

// CancelCreate 丢弃表单内容，回到列表
func (c *Controller) CancelCreate() {
	c.ShowList()
}

// UpdateForm 保存用户已填写的内容，不做校验
func (c *Controller) UpdateForm(form TaskForm) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.screen.(CreateScreen); !ok {
		return ErrWrongScreen
	}
	c.screen = CreateScreen{Form: form}
	return nil
}

func (c *Controller) ToggleAdvanced(form TaskForm) (TaskForm, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.screen.(CreateScreen); !ok {
		return TaskForm{}, ErrWrongScreen
	}
	form.ToggleAdvanced()
	c.screen = CreateScreen{Form: form}
	return form, nil
}

// CreateTask 校验失败时停留在创建页，保留已填内容并给出提示，任务列表不变。
// 入库和提交训练后端期间不持有锁，其他页面请求不被阻塞。
func (c *Controller) CreateTask(ctx context.Context, form TaskForm) (*entity.FineTuneTask, error) {
	task, err := c.tasks.CreateTask(ctx, form.ToRequest())

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if isValidationError(err) {
			c.screen = CreateScreen{Form: form}
			c.notice = noticeFor(err)
		}
		return nil, err
	}

	c.setScreen(ListScreen{})
	return task, nil
}

func isValidationError(err error) bool {
	return errors.Is(err, service.ErrRequiredFields) ||
		errors.Is(err, service.ErrUnknownModel) ||
		errors.Is(err, service.ErrUnknownDataset)
}

func noticeFor(err error) string {
	switch {
	case errors.Is(err, service.ErrUnknownModel):
		return service.ErrUnknownModel.Error()
	case errors.Is(err, service.ErrUnknownDataset):
		return service.ErrUnknownDataset.Error()
	default:
		return service.ErrRequiredFields.Error()
	}
}

// SelectTask 任务必须存在于当前列表，进入详情页的概览标签。
// 每次进入详情页，验证页都从示例提示词、无结果开始；进行中的运行保留。
func (c *Controller) SelectTask(ctx context.Context, id string) (*entity.FineTuneTask, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	task, err := c.tasks.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.comparison.Reset(ctx, task.ID); err != nil {
		return nil, err
	}
	selected := *task
	c.lastSelected = &selected
	c.setScreen(DetailScreen{Task: selected, Tab: TabOverview})
	consoleLogger().Info("task selected", "task_id", selected.ID)
	return task, nil
}

// Back 回到列表，但保留最近选中的任务
func (c *Controller) Back() {
	c.ShowList()
}

// Reopen 不重新选择，直接回到最近一次查看的任务
func (c *Controller) Reopen(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastSelected == nil {
		return ErrNoSelection
	}
	if err := c.comparison.Reset(ctx, c.lastSelected.ID); err != nil {
		return err
	}
	c.setScreen(DetailScreen{Task: *c.lastSelected, Tab: TabOverview})
	return nil
}

func (c *Controller) SwitchTab(tab DetailTab) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !tab.Valid() {
		return ErrInvalidTab
	}
	detail, ok := c.screen.(DetailScreen)
	if !ok {
		return ErrWrongScreen
	}
	detail.Tab = tab
	c.screen = detail
	return nil
}

func (c *Controller) currentDetail() (DetailScreen, error) {
	detail, ok := c.screen.(DetailScreen)
	if !ok {
		return DetailScreen{}, ErrWrongScreen
	}
	return detail, nil
}

func (c *Controller) SetPrompt(ctx context.Context, prompt string) error {
	c.mu.Lock()
	detail, err := c.currentDetail()
	c.mu.Unlock()
	if err != nil {
		return err
	}
	_, err = c.comparison.SetPrompt(ctx, detail.Task.ID, prompt)
	return err
}

// RunComparison 用输入框当前内容（可以为空）对当前任务发起一次对比，立即返回
func (c *Controller) RunComparison(ctx context.Context, prompt string) (entity.ComparisonSession, error) {
	c.mu.Lock()
	detail, err := c.currentDetail()
	c.mu.Unlock()
	if err != nil {
		return entity.ComparisonSession{}, err
	}
	return c.comparison.StartWithPrompt(ctx, detail.Task, prompt)
}

// RunSavedComparison 使用已保存的提示词发起对比
func (c *Controller) RunSavedComparison(ctx context.Context) (entity.ComparisonSession, error) {
	c.mu.Lock()
	detail, err := c.currentDetail()
	c.mu.Unlock()
	if err != nil {
		return entity.ComparisonSession{}, err
	}
	return c.comparison.Start(ctx, detail.Task)
}

func (c *Controller) CancelComparison(ctx context.Context) (entity.ComparisonSession, error) {
	c.mu.Lock()
	detail, err := c.currentDetail()
	c.mu.Unlock()
	if err != nil {
		return entity.ComparisonSession{}, err
	}
	return c.comparison.Cancel(ctx, detail.Task.ID)
}

// WaitComparison 阻塞到当前任务的对比结束
func (c *Controller) WaitComparison(ctx context.Context) (entity.ComparisonSession, error) {
	c.mu.Lock()
	detail, err := c.currentDetail()
	c.mu.Unlock()
	if err != nil {
		return entity.ComparisonSession{}, err
	}
	return c.comparison.Wait(ctx, detail.Task.ID)
}

// Snapshot 当前页面渲染所需的全部数据，只有对应页面的字段非空。
type Snapshot struct {
	Kind   ScreenKind
	Notice string
	List   *ListView
	Create *FormView
	Detail *DetailView
}

func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	screen := c.screen
	notice := c.notice
	var last *entity.FineTuneTask
	if c.lastSelected != nil {
		selected := *c.lastSelected
		last = &selected
	}
	c.mu.Unlock()

	snap := Snapshot{Kind: screen.Kind(), Notice: notice}
	catalog := c.tasks.Catalog()

	switch s := screen.(type) {
	case ListScreen:
		tasks, err := c.tasks.AllTasks(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		view := BuildListView(tasks)
		if last != nil {
			view.ReopenTaskID = last.ID
			view.ReopenTaskName = last.Name
		}
		snap.List = &view
	case CreateScreen:
		view := BuildFormView(s.Form, catalog)
		snap.Create = &view
	case DetailScreen:
		task := s.Task
		// 状态可能已被后端刷新，取最新一份
		if latest, err := c.tasks.GetTask(ctx, task.ID); err == nil {
			task = *latest
		}
		session, err := c.comparison.Session(ctx, task.ID)
		if err != nil {
			return Snapshot{}, err
		}
		panel := BuildComparisonPanel(session, c.comparison.MetricCards())
		view := BuildDetailView(task, s.Tab, catalog, panel)
		snap.Detail = &view
	}
	return snap, nil
}
