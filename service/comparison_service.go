package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/dao"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/entity"

	"github.com/google/uuid"
)

// automatedMetricCards 自动评估指标，静态展示，不随输入变化
var automatedMetricCards = []entity.MetricCard{
	{Label: "Rouge-L 分数", Value: "0.58", Delta: "+12%"},
	{Label: "BLEU 分数", Value: "0.42", Delta: "+8%"},
	{Label: "人工评估 (Human Eval)", Value: "4.5/5.0"},
}

type comparisonRun struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// ComparisonService 驱动验证页：idle -> busy -> idle(带结果)。
// busy 只能由 Start 进入，由运行结束或 Cancel 退出。
type ComparisonService struct {
	mu            sync.Mutex
	runner        ComparisonRunner
	store         ComparisonStore
	defaultPrompt string
	runs          map[string]*comparisonRun
	now           func() time.Time
	wg            sync.WaitGroup
}

func NewComparisonService(runner ComparisonRunner, store ComparisonStore, defaultPrompt string) *ComparisonService {
	if store == nil {
		store = NewMemoryComparisonStore()
	}
	return &ComparisonService{
		runner:        runner,
		store:         store,
		defaultPrompt: defaultPrompt,
		runs:          make(map[string]*comparisonRun),
		now:           time.Now,
	}
}

func (s *ComparisonService) MetricCards() []entity.MetricCard {
	return append([]entity.MetricCard(nil), automatedMetricCards...)
}

func (s *ComparisonService) Session(ctx context.Context, taskID string) (entity.ComparisonSession, error) {
	if strings.TrimSpace(taskID) == "" {
		return entity.ComparisonSession{}, dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx, taskID)
}

func (s *ComparisonService) loadLocked(ctx context.Context, taskID string) (entity.ComparisonSession, error) {
	session, ok, err := s.store.Load(ctx, taskID)
	if err != nil {
		return entity.ComparisonSession{}, err
	}
	if !ok {
		return entity.ComparisonSession{TaskID: taskID, Prompt: s.defaultPrompt}, nil
	}
	// 进程重启或 Close 后残留的 busy 标记
	if _, running := s.runs[taskID]; session.Busy && !running {
		session.Busy = false
	}
	return session, nil
}

// SetPrompt 只修改输入框内容，不触发运行。
func (s *ComparisonService) SetPrompt(ctx context.Context, taskID, prompt string) (entity.ComparisonSession, error) {
	if strings.TrimSpace(taskID) == "" {
		return entity.ComparisonSession{}, dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadLocked(ctx, taskID)
	if err != nil {
		return entity.ComparisonSession{}, err
	}
	session.Prompt = prompt
	session.UpdatedAt = s.now()
	if err := s.store.Save(ctx, session); err != nil {
		return entity.ComparisonSession{}, err
	}
	return session, nil
}

// Reset 丢弃该任务的验证页状态，回到示例提示词、无结果。进行中的运行不受影响。
func (s *ComparisonService) Reset(ctx context.Context, taskID string) error {
	if strings.TrimSpace(taskID) == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, running := s.runs[taskID]; running {
		return nil
	}
	return s.store.Delete(ctx, taskID)
}

// Start 用已保存的提示词发起对比。
func (s *ComparisonService) Start(ctx context.Context, task entity.FineTuneTask) (entity.ComparisonSession, error) {
	return s.start(ctx, task, nil)
}

// StartWithPrompt 按输入框内容原样发起对比，空字符串也照常使用。
func (s *ComparisonService) StartWithPrompt(ctx context.Context, task entity.FineTuneTask, prompt string) (entity.ComparisonSession, error) {
	return s.start(ctx, task, &prompt)
}

// start 进入 busy 并在后台运行对比，立即返回。已有运行时返回 ErrComparisonBusy。
func (s *ComparisonService) start(ctx context.Context, task entity.FineTuneTask, prompt *string) (entity.ComparisonSession, error) {
	logger := serviceLogger().With("service", "ComparisonService", "method", "Start", "task_id", task.ID)
	if strings.TrimSpace(task.ID) == "" {
		return entity.ComparisonSession{}, dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadLocked(ctx, task.ID)
	if err != nil {
		return entity.ComparisonSession{}, err
	}
	if _, busy := s.runs[task.ID]; busy {
		logger.Warn("comparison already running")
		return session, ErrComparisonBusy
	}

	if prompt != nil {
		session.Prompt = *prompt
	}
	runID := uuid.NewString()
	session.Busy = true
	session.RunID = runID
	session.Error = ""
	session.UpdatedAt = s.now()
	if err := s.store.Save(ctx, session); err != nil {
		return entity.ComparisonSession{}, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	run := &comparisonRun{id: runID, cancel: cancel, done: make(chan struct{})}
	s.runs[task.ID] = run

	req := ComparisonRequest{
		Prompt:       session.Prompt,
		BaseModelID:  task.BaseModelID,
		TunedModelID: task.ID,
	}
	s.wg.Add(1)
	go s.execute(runCtx, run, task.ID, req)

	logger.Info("comparison started", "run_id", runID)
	return session, nil
}

func (s *ComparisonService) execute(ctx context.Context, run *comparisonRun, taskID string, req ComparisonRequest) {
	defer s.wg.Done()
	result, err := s.runner.Compare(ctx, req)
	s.finish(run, taskID, result, err)
}

func (s *ComparisonService) finish(run *comparisonRun, taskID string, result entity.ComparisonResult, runErr error) {
	logger := serviceLogger().With("service", "ComparisonService", "method", "finish", "task_id", taskID, "run_id", run.id)

	s.mu.Lock()
	defer s.mu.Unlock()

	// 已被取消或被新的运行替换
	if current, ok := s.runs[taskID]; !ok || current != run {
		logger.Info("comparison result dropped: run no longer current")
		return
	}
	delete(s.runs, taskID)
	run.cancel()
	defer close(run.done)

	ctx := context.Background()
	session, err := s.loadLocked(ctx, taskID)
	if err != nil {
		logger.Error("load comparison session failed", "error", err)
		return
	}

	session.Busy = false
	session.UpdatedAt = s.now()
	if runErr != nil {
		session.Error = runErr.Error()
		logger.Error("comparison failed", "error", runErr)
	} else {
		session.Result = &result
		session.Error = ""
		logger.Info("comparison finished")
	}

	if err := s.store.Save(ctx, session); err != nil {
		logger.Error("save comparison session failed", "error", err)
	}
}

// Cancel 取消进行中的运行，busy 清除，结果保持不变。
func (s *ComparisonService) Cancel(ctx context.Context, taskID string) (entity.ComparisonSession, error) {
	if strings.TrimSpace(taskID) == "" {
		return entity.ComparisonSession{}, dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadLocked(ctx, taskID)
	if err != nil {
		return entity.ComparisonSession{}, err
	}

	run, ok := s.runs[taskID]
	if !ok {
		return session, nil
	}
	delete(s.runs, taskID)
	run.cancel()
	close(run.done)

	session.Busy = false
	session.UpdatedAt = s.now()
	if err := s.store.Save(ctx, session); err != nil {
		return entity.ComparisonSession{}, err
	}
	serviceLogger().Info("comparison cancelled", "task_id", taskID, "run_id", run.id)
	return session, nil
}

// Wait 阻塞到该任务没有进行中的运行，然后返回最新状态。
func (s *ComparisonService) Wait(ctx context.Context, taskID string) (entity.ComparisonSession, error) {
	s.mu.Lock()
	run := s.runs[taskID]
	s.mu.Unlock()

	if run != nil {
		select {
		case <-run.done:
		case <-ctx.Done():
			return entity.ComparisonSession{}, fmt.Errorf("wait comparison failed: %w", ctx.Err())
		}
	}
	return s.Session(ctx, taskID)
}

func (s *ComparisonService) Busy(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.runs[taskID]
	return ok
}

// Close 取消所有运行并等待后台 goroutine 退出。
func (s *ComparisonService) Close() {
	s.mu.Lock()
	for taskID, run := range s.runs {
		delete(s.runs, taskID)
		run.cancel()
		close(run.done)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
