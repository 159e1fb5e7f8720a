package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/dao"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrompt = "怎么重置我的密码？"

// blockingRunner 在 release 关闭前一直阻塞
type blockingRunner struct {
	release chan struct{}
	err     error
}

func (r *blockingRunner) Compare(ctx context.Context, req ComparisonRequest) (entity.ComparisonResult, error) {
	select {
	case <-ctx.Done():
		return entity.ComparisonResult{}, ctx.Err()
	case <-r.release:
	}
	if r.err != nil {
		return entity.ComparisonResult{}, r.err
	}
	return entity.ComparisonResult{Before: "before:" + req.Prompt, After: "after:" + req.TunedModelID}, nil
}

func testTask() entity.FineTuneTask {
	return entity.FineTuneTask{ID: "job-20240520-001", BaseModelID: "qwen-7b"}
}

func waitSession(t *testing.T, svc *ComparisonService, taskID string) entity.ComparisonSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	session, err := svc.Wait(ctx, taskID)
	require.NoError(t, err)
	return session
}

func TestComparisonServiceDefaultSession(t *testing.T) {
	svc := NewComparisonService(NewSimulatedRunner(time.Millisecond), nil, testPrompt)
	defer svc.Close()

	session, err := svc.Session(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, testPrompt, session.Prompt)
	assert.False(t, session.Busy)
	assert.Nil(t, session.Result)

	_, err = svc.Session(context.Background(), "")
	assert.Error(t, err)
}

func TestComparisonServiceRunToCompletion(t *testing.T) {
	svc := NewComparisonService(NewSimulatedRunner(20*time.Millisecond), nil, testPrompt)
	defer svc.Close()
	ctx := context.Background()

	session, err := svc.Start(ctx, testTask())
	require.NoError(t, err)
	assert.True(t, session.Busy)
	assert.NotEmpty(t, session.RunID)
	assert.Nil(t, session.Result)
	assert.True(t, svc.Busy(testTask().ID))

	session = waitSession(t, svc, testTask().ID)
	assert.False(t, session.Busy)
	require.NotNil(t, session.Result)
	assert.Equal(t, simulatedBefore, session.Result.Before)
	assert.Equal(t, simulatedAfter, session.Result.After)
	assert.Equal(t, testPrompt, session.Prompt)
}

func TestComparisonServiceRejectsSecondStart(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	svc := NewComparisonService(runner, nil, testPrompt)
	defer svc.Close()
	ctx := context.Background()

	first, err := svc.StartWithPrompt(ctx, testTask(), "第一次")
	require.NoError(t, err)

	second, err := svc.StartWithPrompt(ctx, testTask(), "第二次")
	assert.ErrorIs(t, err, ErrComparisonBusy)
	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, "第一次", second.Prompt)

	close(runner.release)
	session := waitSession(t, svc, testTask().ID)
	require.NotNil(t, session.Result)
	assert.Equal(t, "before:第一次", session.Result.Before)
	assert.Equal(t, "after:job-20240520-001", session.Result.After)
}

func TestComparisonServiceCancelKeepsPreviousResult(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	svc := NewComparisonService(runner, nil, testPrompt)
	defer svc.Close()
	ctx := context.Background()

	// 先完成一次，得到旧结果
	_, err := svc.StartWithPrompt(ctx, testTask(), "旧问题")
	require.NoError(t, err)
	close(runner.release)
	previous := waitSession(t, svc, testTask().ID)
	require.NotNil(t, previous.Result)

	// 第二次运行被取消
	runner.release = make(chan struct{})
	_, err = svc.StartWithPrompt(ctx, testTask(), "新问题")
	require.NoError(t, err)

	session, err := svc.Cancel(ctx, testTask().ID)
	require.NoError(t, err)
	assert.False(t, session.Busy)
	assert.False(t, svc.Busy(testTask().ID))
	assert.Equal(t, previous.Result, session.Result)

	session = waitSession(t, svc, testTask().ID)
	assert.Equal(t, previous.Result, session.Result)
	assert.Empty(t, session.Error)

	// 取消后可以再次开始
	close(runner.release)
	_, err = svc.Start(ctx, testTask())
	require.NoError(t, err)
	session = waitSession(t, svc, testTask().ID)
	assert.Equal(t, "before:新问题", session.Result.Before)
}

func TestComparisonServiceCancelWhenIdle(t *testing.T) {
	svc := NewComparisonService(NewSimulatedRunner(time.Millisecond), nil, testPrompt)
	defer svc.Close()

	session, err := svc.Cancel(context.Background(), "job-1")
	require.NoError(t, err)
	assert.False(t, session.Busy)
}

func TestComparisonServiceRunnerError(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{}), err: errors.New("model offline")}
	close(runner.release)
	svc := NewComparisonService(runner, nil, testPrompt)
	defer svc.Close()

	_, err := svc.Start(context.Background(), testTask())
	require.NoError(t, err)

	session := waitSession(t, svc, testTask().ID)
	assert.False(t, session.Busy)
	assert.Nil(t, session.Result)
	assert.Equal(t, "model offline", session.Error)
}

func TestComparisonServiceSetPrompt(t *testing.T) {
	svc := NewComparisonService(NewSimulatedRunner(time.Millisecond), nil, testPrompt)
	defer svc.Close()
	ctx := context.Background()

	session, err := svc.SetPrompt(ctx, "job-1", "退款多久到账？")
	require.NoError(t, err)
	assert.Equal(t, "退款多久到账？", session.Prompt)
	assert.False(t, session.Busy)

	// 不同任务的输入互不影响
	other, err := svc.Session(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, testPrompt, other.Prompt)
}

func TestComparisonServiceCloseCancelsRuns(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	svc := NewComparisonService(runner, nil, testPrompt)

	_, err := svc.Start(context.Background(), testTask())
	require.NoError(t, err)

	svc.Close()
	assert.False(t, svc.Busy(testTask().ID))

	session, err := svc.Session(context.Background(), testTask().ID)
	require.NoError(t, err)
	assert.False(t, session.Busy)
}

func TestComparisonServiceStartWithEmptyPrompt(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	close(runner.release)
	svc := NewComparisonService(runner, nil, testPrompt)
	defer svc.Close()

	// 输入框被清空后运行，使用空提示词而不是旧内容
	session, err := svc.StartWithPrompt(context.Background(), testTask(), "")
	require.NoError(t, err)
	assert.Empty(t, session.Prompt)

	session = waitSession(t, svc, testTask().ID)
	require.NotNil(t, session.Result)
	assert.Equal(t, "before:", session.Result.Before)
}

func TestComparisonServiceReset(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	svc := NewComparisonService(runner, nil, testPrompt)
	defer svc.Close()
	ctx := context.Background()

	_, err := svc.StartWithPrompt(ctx, testTask(), "旧问题")
	require.NoError(t, err)

	// 运行中不清空
	require.NoError(t, svc.Reset(ctx, testTask().ID))
	assert.True(t, svc.Busy(testTask().ID))
	session, err := svc.Session(ctx, testTask().ID)
	require.NoError(t, err)
	assert.Equal(t, "旧问题", session.Prompt)

	close(runner.release)
	session = waitSession(t, svc, testTask().ID)
	require.NotNil(t, session.Result)

	require.NoError(t, svc.Reset(ctx, testTask().ID))
	session, err = svc.Session(ctx, testTask().ID)
	require.NoError(t, err)
	assert.Equal(t, testPrompt, session.Prompt)
	assert.Nil(t, session.Result)
	assert.False(t, session.Busy)

	assert.ErrorIs(t, svc.Reset(ctx, " "), dao.ErrInvalidID)
}

func TestComparisonServiceMetricCards(t *testing.T) {
	svc := NewComparisonService(NewSimulatedRunner(time.Millisecond), nil, testPrompt)
	cards := svc.MetricCards()
	require.Len(t, cards, 3)
	assert.Equal(t, "0.58", cards[0].Value)
	assert.Equal(t, "+12%", cards[0].Delta)
	assert.Equal(t, "4.5/5.0", cards[2].Value)
	assert.Empty(t, cards[2].Delta)
}

func TestSimulatedRunnerHonoursContext(t *testing.T) {
	runner := NewSimulatedRunner(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Compare(ctx, ComparisonRequest{Prompt: testPrompt})
	assert.ErrorIs(t, err, context.Canceled)
}
