package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	submitted []SubmitJobRequest
	submitErr error
	report    entity.TaskStatusReport
	statusErr error
}

func (b *fakeBackend) SubmitFineTuneJob(_ context.Context, req SubmitJobRequest) (string, error) {
	if b.submitErr != nil {
		return "", b.submitErr
	}
	b.submitted = append(b.submitted, req)
	return "remote-" + req.TaskID, nil
}

func (b *fakeBackend) GetTaskStatus(_ context.Context, _ string) (entity.TaskStatusReport, error) {
	return b.report, b.statusErr
}

var fixedNow = time.Date(2024, 5, 22, 9, 5, 3, 0, time.Local)

func newTestTaskService(t *testing.T, opts ...TaskServiceOption) *TaskService {
	t.Helper()
	opts = append([]TaskServiceOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewTaskService(newTestTaskDAO(t), newTestCatalog(t), opts...)
}

func validRequest() CreateTaskRequest {
	return CreateTaskRequest{
		Name:        "客服话术优化",
		BaseModelID: "qwen-7b",
		DatasetID:   "ds-001",
		Config:      entity.DefaultHyperparameters(),
	}
}

func TestTaskServiceSeedTasks(t *testing.T) {
	svc := newTestTaskService(t)
	ctx := context.Background()

	inserted, err := svc.SeedTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	// 重复调用不会产生重复任务
	inserted, err = svc.SeedTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	tasks, err := svc.AllTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "job-20240520-001", tasks[0].ID)
	assert.Equal(t, "job-20240521-045", tasks[1].ID)
	assert.Equal(t, "job-20240521-046", tasks[2].ID)
	assert.Equal(t, 45, tasks[1].Progress)
	assert.Equal(t, entity.Hyperparameters{Epochs: 5, LearningRate: 0.0001, BatchSize: 16}, tasks[1].Config)
}

func TestTaskServiceCreateTask(t *testing.T) {
	svc := newTestTaskService(t, WithCreator("current_user"))
	ctx := context.Background()
	_, err := svc.SeedTasks(ctx)
	require.NoError(t, err)

	task, err := svc.CreateTask(ctx, validRequest())
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("job-%d", fixedNow.UnixMilli()), task.ID)
	assert.Equal(t, entity.TaskStatusPending, task.Status)
	assert.Equal(t, 0, task.Progress)
	assert.Equal(t, "current_user", task.Creator)
	assert.Equal(t, "2024/5/22 09:05:03", task.CreatedAt)
	assert.Equal(t, entity.DefaultHyperparameters(), task.Config)
	assert.Empty(t, task.BackendJobID)

	tasks, err := svc.AllTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	assert.Equal(t, task.ID, tasks[0].ID, "new task should be first")
	assert.Equal(t, "job-20240520-001", tasks[1].ID)
}

func TestTaskServiceCreateTaskUniqueIDs(t *testing.T) {
	svc := newTestTaskService(t)
	ctx := context.Background()

	first, err := svc.CreateTask(ctx, validRequest())
	require.NoError(t, err)
	second, err := svc.CreateTask(ctx, validRequest())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestTaskServiceCreateTaskValidation(t *testing.T) {
	svc := newTestTaskService(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		mutate  func(*CreateTaskRequest)
		wantErr error
	}{
		{"empty name", func(r *CreateTaskRequest) { r.Name = "   " }, ErrRequiredFields},
		{"empty model", func(r *CreateTaskRequest) { r.BaseModelID = "" }, ErrRequiredFields},
		{"empty dataset", func(r *CreateTaskRequest) { r.DatasetID = "" }, ErrRequiredFields},
		{"unknown model", func(r *CreateTaskRequest) { r.BaseModelID = "gpt-5" }, ErrUnknownModel},
		{"unknown dataset", func(r *CreateTaskRequest) { r.DatasetID = "ds-999" }, ErrUnknownDataset},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			task, err := svc.CreateTask(ctx, req)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, task)
		})
	}

	tasks, err := svc.AllTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks, "rejected submissions must not create tasks")
}

func TestTaskServiceCreateTaskKeepsHyperparametersVerbatim(t *testing.T) {
	svc := newTestTaskService(t)
	req := validRequest()
	req.Config = entity.Hyperparameters{Epochs: -1, LearningRate: -0.5, BatchSize: 7}

	task, err := svc.CreateTask(context.Background(), req)
	require.NoError(t, err)

	got, err := svc.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, req.Config, got.Config)
}

func TestTaskServiceCreateTaskSubmitsToBackend(t *testing.T) {
	backend := &fakeBackend{}
	svc := newTestTaskService(t, WithTrainingBackend(backend))
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, validRequest())
	require.NoError(t, err)
	require.Len(t, backend.submitted, 1)
	assert.Equal(t, task.ID, backend.submitted[0].TaskID)
	assert.Equal(t, "remote-"+task.ID, task.BackendJobID)

	got, err := svc.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "remote-"+task.ID, got.BackendJobID)
}

func TestTaskServiceCreateTaskBackendFailureKeepsTask(t *testing.T) {
	backend := &fakeBackend{submitErr: errors.New("connection refused")}
	svc := newTestTaskService(t, WithTrainingBackend(backend))

	task, err := svc.CreateTask(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Empty(t, task.BackendJobID)

	got, err := svc.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TaskStatusPending, got.Status)
}

func TestTaskServiceRefreshStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("backend not configured", func(t *testing.T) {
		svc := newTestTaskService(t)
		_, err := svc.RefreshStatus(ctx, "job-1")
		assert.ErrorIs(t, err, ErrBackendNotConfigured)
	})

	t.Run("task without backend job", func(t *testing.T) {
		backend := &fakeBackend{}
		svc := newTestTaskService(t, WithTrainingBackend(backend))
		_, err := svc.SeedTasks(ctx)
		require.NoError(t, err)

		_, err = svc.RefreshStatus(ctx, "job-20240521-045")
		assert.ErrorIs(t, err, ErrBackendJobMissing)
	})

	t.Run("applies backend report", func(t *testing.T) {
		backend := &fakeBackend{report: entity.TaskStatusReport{Status: entity.TaskStatusRunning, Progress: 30}}
		svc := newTestTaskService(t, WithTrainingBackend(backend))
		task, err := svc.CreateTask(ctx, validRequest())
		require.NoError(t, err)

		updated, err := svc.RefreshStatus(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.TaskStatusRunning, updated.Status)
		assert.Equal(t, 30, updated.Progress)
	})
}

func TestTaskServiceListTasks(t *testing.T) {
	svc := newTestTaskService(t)
	ctx := context.Background()
	_, err := svc.SeedTasks(ctx)
	require.NoError(t, err)

	result, err := svc.ListTasks(ctx, entity.QueryParams{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Total)
	tasks, ok := result.List.([]entity.FineTuneTask)
	require.True(t, ok)
	assert.Len(t, tasks, 2)

	result, err = svc.ListTasks(ctx, entity.QueryParams{Status: string(entity.TaskStatusRunning)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
}
