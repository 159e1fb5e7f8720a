package console_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/config"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/console"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/dao"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/entity"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/infrastructure/db"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const comparisonDelay = 200 * time.Millisecond

func TestMain(m *testing.M) {
	config.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

type fixture struct {
	controller *console.Controller
	tasks      *service.TaskService
}

func newFixture(t *testing.T, seed bool) fixture {
	t.Helper()
	conn, err := db.Open(config.DBConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	catalog, err := config.LoadCatalog("")
	require.NoError(t, err)

	tasks := service.NewTaskService(dao.NewTaskDAOWithDB(conn), service.NewCatalogService(catalog))
	if seed {
		_, err := tasks.SeedTasks(context.Background())
		require.NoError(t, err)
	}
	comparison := service.NewComparisonService(service.NewSimulatedRunner(comparisonDelay), nil, "怎么重置我的密码？")
	t.Cleanup(comparison.Close)

	return fixture{controller: console.NewController(tasks, comparison), tasks: tasks}
}

func taskIDs(t *testing.T, tasks *service.TaskService) []string {
	t.Helper()
	all, err := tasks.AllTasks(context.Background())
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, task := range all {
		ids = append(ids, task.ID)
	}
	return ids
}

func TestControllerStartsOnList(t *testing.T) {
	f := newFixture(t, true)
	assert.Equal(t, console.ScreenList, f.controller.Screen().Kind())
	_, ok := f.controller.LastSelected()
	assert.False(t, ok)
}

func TestCreateTaskRejectsMissingFields(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	before := taskIDs(t, f.tasks)

	cases := map[string]func(*console.TaskForm){
		"empty name":    func(form *console.TaskForm) { form.Name = "" },
		"no model":      func(form *console.TaskForm) { form.BaseModelID = "" },
		"no dataset":    func(form *console.TaskForm) { form.DatasetID = "" },
		"blank name":    func(form *console.TaskForm) { form.Name = "   " },
		"unknown model": func(form *console.TaskForm) { form.BaseModelID = "gpt-x" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f.controller.ShowCreate()
			form := console.NewTaskForm()
			form.Name, form.BaseModelID, form.DatasetID = "X", "qwen-7b", "ds-001"
			mutate(&form)

			task, err := f.controller.CreateTask(ctx, form)
			assert.Error(t, err)
			assert.Nil(t, task)

			screen, ok := f.controller.Screen().(console.CreateScreen)
			require.True(t, ok, "should stay on create screen")
			assert.Equal(t, form, screen.Form, "entered values are kept")
			assert.NotEmpty(t, f.controller.Notice())
		})
	}

	f.controller.ShowCreate()
	_, err := f.controller.CreateTask(ctx, console.NewTaskForm())
	assert.ErrorIs(t, err, service.ErrRequiredFields)
	assert.Equal(t, "请填写所有必填项", f.controller.Notice())

	assert.Equal(t, before, taskIDs(t, f.tasks), "collection must be unchanged")
}

func TestCreateTaskPrependsPendingTask(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	f.controller.ShowCreate()
	form := console.NewTaskForm()
	form.Name, form.BaseModelID, form.DatasetID = "X", "qwen-7b", "ds-001"

	task, err := f.controller.CreateTask(ctx, form)
	require.NoError(t, err)
	assert.Equal(t, console.ScreenList, f.controller.Screen().Kind())
	assert.Empty(t, f.controller.Notice())

	assert.Equal(t, entity.TaskStatusPending, task.Status)
	assert.Equal(t, 0, task.Progress)
	assert.Equal(t, entity.Hyperparameters{Epochs: 3, LearningRate: 0.0001, BatchSize: 32}, task.Config)
	assert.Equal(t, "current_user", task.Creator)
	assert.True(t, strings.HasPrefix(task.ID, "job-"))

	ids := taskIDs(t, f.tasks)
	require.Len(t, ids, 4)
	assert.Equal(t, task.ID, ids[0])

	snap, err := f.controller.Snapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap.List)
	assert.Equal(t, "X", snap.List.Rows[0].Name)
}

func TestCancelCreateDiscardsForm(t *testing.T) {
	f := newFixture(t, true)
	before := taskIDs(t, f.tasks)

	f.controller.ShowCreate()
	form := console.NewTaskForm()
	form.Name = "draft"
	require.NoError(t, f.controller.UpdateForm(form))

	f.controller.CancelCreate()
	assert.Equal(t, console.ScreenList, f.controller.Screen().Kind())

	f.controller.ShowCreate()
	screen := f.controller.Screen().(console.CreateScreen)
	assert.Equal(t, console.NewTaskForm(), screen.Form)
	assert.Equal(t, before, taskIDs(t, f.tasks))
}

func TestSelectThenBackKeepsCollection(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	before := taskIDs(t, f.tasks)

	for _, id := range before {
		task, err := f.controller.SelectTask(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, task.ID)

		detail, ok := f.controller.Screen().(console.DetailScreen)
		require.True(t, ok)
		assert.Equal(t, id, detail.Task.ID)
		assert.Equal(t, console.TabOverview, detail.Tab)

		f.controller.Back()
		assert.Equal(t, console.ScreenList, f.controller.Screen().Kind())
		assert.Equal(t, before, taskIDs(t, f.tasks))
	}
}

func TestBackKeepsLastSelectedForReopen(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	assert.ErrorIs(t, f.controller.Reopen(ctx), console.ErrNoSelection)

	_, err := f.controller.SelectTask(ctx, "job-20240521-045")
	require.NoError(t, err)
	f.controller.Back()

	last, ok := f.controller.LastSelected()
	require.True(t, ok)
	assert.Equal(t, "job-20240521-045", last.ID)

	require.NoError(t, f.controller.Reopen(ctx))
	detail := f.controller.Screen().(console.DetailScreen)
	assert.Equal(t, "job-20240521-045", detail.Task.ID)
}

func TestSelectUnknownTask(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.controller.SelectTask(context.Background(), "job-missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Equal(t, console.ScreenList, f.controller.Screen().Kind())
}

func TestToggleAdvancedKeepsValues(t *testing.T) {
	f := newFixture(t, true)
	f.controller.ShowCreate()

	form := console.NewTaskForm()
	form.Epochs, form.LearningRate, form.BatchSize = 7, 0.0005, 64

	opened, err := f.controller.ToggleAdvanced(form)
	require.NoError(t, err)
	assert.True(t, opened.Advanced)

	closed, err := f.controller.ToggleAdvanced(opened)
	require.NoError(t, err)
	reopened, err := f.controller.ToggleAdvanced(closed)
	require.NoError(t, err)

	assert.True(t, reopened.Advanced)
	assert.Equal(t, entity.Hyperparameters{Epochs: 7, LearningRate: 0.0005, BatchSize: 64}, reopened.Hyperparameters())

	f.controller.ShowList()
	_, err = f.controller.ToggleAdvanced(form)
	assert.ErrorIs(t, err, console.ErrWrongScreen)
}

func TestSwitchTab(t *testing.T) {
	f := newFixture(t, true)
	assert.ErrorIs(t, f.controller.SwitchTab(console.TabVerification), console.ErrWrongScreen)

	_, err := f.controller.SelectTask(context.Background(), "job-20240520-001")
	require.NoError(t, err)

	require.NoError(t, f.controller.SwitchTab(console.TabVerification))
	assert.Equal(t, console.TabVerification, f.controller.Screen().(console.DetailScreen).Tab)
	assert.ErrorIs(t, f.controller.SwitchTab("logs"), console.ErrInvalidTab)
}

func TestRunComparisonBusyThenResult(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.controller.SelectTask(ctx, "job-20240520-001")
	require.NoError(t, err)
	require.NoError(t, f.controller.SwitchTab(console.TabVerification))

	snap, err := f.controller.Snapshot(ctx)
	require.NoError(t, err)
	panel := snap.Detail.Comparison
	assert.Equal(t, "怎么重置我的密码？", panel.Prompt)
	assert.False(t, panel.HasResult)
	assert.Equal(t, console.ResultPlaceholder, panel.Before)
	assert.Len(t, panel.Metrics, 3)

	session, err := f.controller.RunSavedComparison(ctx)
	require.NoError(t, err)
	assert.True(t, session.Busy)

	snap, err = f.controller.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Detail.Comparison.Busy)
	assert.True(t, snap.Detail.Comparison.TriggerDisabled)

	_, err = f.controller.RunSavedComparison(ctx)
	assert.ErrorIs(t, err, service.ErrComparisonBusy)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	session, err = f.controller.WaitComparison(waitCtx)
	require.NoError(t, err)
	assert.False(t, session.Busy)

	snap, err = f.controller.Snapshot(ctx)
	require.NoError(t, err)
	panel = snap.Detail.Comparison
	assert.False(t, panel.Busy)
	assert.False(t, panel.TriggerDisabled)
	assert.True(t, panel.HasResult)
	assert.NotEmpty(t, panel.Before)
	assert.NotEmpty(t, panel.After)
	assert.NotEqual(t, console.ResultPlaceholder, panel.After)
}

func TestCancelComparison(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.controller.SelectTask(ctx, "job-20240520-001")
	require.NoError(t, err)
	_, err = f.controller.RunComparison(ctx, "退款多久到账？")
	require.NoError(t, err)

	session, err := f.controller.CancelComparison(ctx)
	require.NoError(t, err)
	assert.False(t, session.Busy)
	assert.Nil(t, session.Result)
	assert.Equal(t, "退款多久到账？", session.Prompt)
}

func TestComparisonRequiresDetail(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.controller.RunComparison(context.Background(), "hi")
	assert.ErrorIs(t, err, console.ErrWrongScreen)
	assert.ErrorIs(t, f.controller.SetPrompt(context.Background(), "hi"), console.ErrWrongScreen)
}

func TestEmptyListSnapshot(t *testing.T) {
	f := newFixture(t, false)

	snap, err := f.controller.Snapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap.List)
	assert.True(t, snap.List.Empty)
	assert.Equal(t, console.EmptyListMessage, snap.List.EmptyMessage)
	assert.Empty(t, snap.List.Rows)
	assert.Equal(t, "显示 0 个任务", snap.List.Footer)
}

func TestReselectResetsVerification(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.controller.SelectTask(ctx, "job-20240520-001")
	require.NoError(t, err)
	require.NoError(t, f.controller.SwitchTab(console.TabVerification))
	_, err = f.controller.RunComparison(ctx, "编辑过的问题")
	require.NoError(t, err)
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = f.controller.WaitComparison(waitCtx)
	require.NoError(t, err)

	// 切换标签不丢失结果
	require.NoError(t, f.controller.SwitchTab(console.TabOverview))
	require.NoError(t, f.controller.SwitchTab(console.TabVerification))
	snap, err := f.controller.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Detail.Comparison.HasResult)
	assert.Equal(t, "编辑过的问题", snap.Detail.Comparison.Prompt)

	// 返回列表后重新选择，验证页回到初始状态
	f.controller.Back()
	_, err = f.controller.SelectTask(ctx, "job-20240520-001")
	require.NoError(t, err)
	snap, err = f.controller.Snapshot(ctx)
	require.NoError(t, err)
	panel := snap.Detail.Comparison
	assert.Equal(t, console.TabOverview, snap.Detail.Tab)
	assert.Equal(t, "怎么重置我的密码？", panel.Prompt)
	assert.False(t, panel.HasResult)
	assert.Equal(t, console.ResultPlaceholder, panel.Before)
	assert.Equal(t, console.ResultPlaceholder, panel.After)

	// Reopen 同样重新开始
	require.NoError(t, f.controller.SetPrompt(ctx, "草稿"))
	f.controller.Back()
	require.NoError(t, f.controller.Reopen(ctx))
	snap, err = f.controller.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "怎么重置我的密码？", snap.Detail.Comparison.Prompt)
}

func TestReselectKeepsRunningComparison(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.controller.SelectTask(ctx, "job-20240520-001")
	require.NoError(t, err)
	_, err = f.controller.RunComparison(ctx, "进行中的问题")
	require.NoError(t, err)

	f.controller.Back()
	_, err = f.controller.SelectTask(ctx, "job-20240520-001")
	require.NoError(t, err)

	snap, err := f.controller.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Detail.Comparison.Busy)
	assert.Equal(t, "进行中的问题", snap.Detail.Comparison.Prompt)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	session, err := f.controller.WaitComparison(waitCtx)
	require.NoError(t, err)
	assert.NotNil(t, session.Result)
}

func TestRunComparisonWithClearedPrompt(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.controller.SelectTask(ctx, "job-20240520-001")
	require.NoError(t, err)
	require.NoError(t, f.controller.SetPrompt(ctx, "旧内容"))

	session, err := f.controller.RunComparison(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, session.Prompt)

	_, err = f.controller.CancelComparison(ctx)
	require.NoError(t, err)
}

func TestListSnapshotOffersReopen(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	snap, err := f.controller.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.List.ReopenTaskID)

	_, err = f.controller.SelectTask(ctx, "job-20240521-045")
	require.NoError(t, err)
	f.controller.Back()

	snap, err = f.controller.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-20240521-045", snap.List.ReopenTaskID)
	assert.Equal(t, "金融逻辑增强 V2", snap.List.ReopenTaskName)
}

// slowBackend 提交作业时阻塞到 release 关闭
type slowBackend struct {
	entered chan struct{}
	release chan struct{}
}

func (b *slowBackend) SubmitFineTuneJob(ctx context.Context, _ service.SubmitJobRequest) (string, error) {
	close(b.entered)
	select {
	case <-b.release:
		return "remote-1", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (b *slowBackend) GetTaskStatus(context.Context, string) (entity.TaskStatusReport, error) {
	return entity.TaskStatusReport{}, nil
}

func TestCreateTaskDoesNotBlockConsole(t *testing.T) {
	conn, err := db.Open(config.DBConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	catalog, err := config.LoadCatalog("")
	require.NoError(t, err)

	backend := &slowBackend{entered: make(chan struct{}), release: make(chan struct{})}
	tasks := service.NewTaskService(dao.NewTaskDAOWithDB(conn), service.NewCatalogService(catalog), service.WithTrainingBackend(backend))
	comparison := service.NewComparisonService(service.NewSimulatedRunner(comparisonDelay), nil, "怎么重置我的密码？")
	t.Cleanup(comparison.Close)
	controller := console.NewController(tasks, comparison)
	controller.ShowCreate()

	form := console.NewTaskForm()
	form.Name, form.BaseModelID, form.DatasetID = "慢提交", "qwen-7b", "ds-001"

	type result struct {
		task *entity.FineTuneTask
		err  error
	}
	done := make(chan result, 1)
	go func() {
		task, err := controller.CreateTask(context.Background(), form)
		done <- result{task: task, err: err}
	}()

	select {
	case <-backend.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("backend was never called")
	}

	// 后端提交进行中，控制台仍可读取
	snapped := make(chan error, 1)
	go func() {
		_, err := controller.Snapshot(context.Background())
		snapped <- err
	}()
	select {
	case err := <-snapped:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot blocked while the backend submit was in flight")
	}

	close(backend.release)
	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "remote-1", res.task.BackendJobID)
	assert.Equal(t, console.ScreenList, controller.Screen().Kind())
}
