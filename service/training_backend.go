package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/entity"

	"github.com/go-resty/resty/v2"
)

// TrainingBackend 是真实训练平台的接入点，控制台本身不训练。
type TrainingBackend interface {
	SubmitFineTuneJob(ctx context.Context, req SubmitJobRequest) (string, error)
	GetTaskStatus(ctx context.Context, jobID string) (entity.TaskStatusReport, error)
}

type SubmitJobRequest struct {
	TaskID          string                 `json:"task_id"`
	Name            string                 `json:"name"`
	BaseModelID     string                 `json:"base_model_id"`
	DatasetID       string                 `json:"dataset_id"`
	Hyperparameters entity.Hyperparameters `json:"hyperparameters"`
}

type submitJobResponse struct {
	TaskID string `json:"task_id"`
}

type HTTPTrainingBackend struct {
	client *resty.Client
}

func NewHTTPTrainingBackend(baseURL string, timeout time.Duration) *HTTPTrainingBackend {
	client := resty.New().
		SetBaseURL(strings.TrimRight(strings.TrimSpace(baseURL), "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &HTTPTrainingBackend{client: client}
}

// SubmitFineTuneJob handles POST /jobs and returns the backend job id.
func (b *HTTPTrainingBackend) SubmitFineTuneJob(ctx context.Context, req SubmitJobRequest) (string, error) {
	var out submitJobResponse
	res, err := b.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/jobs")
	if err != nil {
		return "", fmt.Errorf("submit fine-tune job failed: %w", err)
	}
	if res.IsError() {
		return "", fmt.Errorf("%w: submit job status=%d body=%s", ErrBackendRejected, res.StatusCode(), strings.TrimSpace(res.String()))
	}
	if strings.TrimSpace(out.TaskID) == "" {
		return "", fmt.Errorf("%w: empty task_id in submit response", ErrBackendRejected)
	}
	return out.TaskID, nil
}

// GetTaskStatus handles GET /jobs/{id}.
func (b *HTTPTrainingBackend) GetTaskStatus(ctx context.Context, jobID string) (entity.TaskStatusReport, error) {
	var out entity.TaskStatusReport
	res, err := b.client.R().
		SetContext(ctx).
		SetPathParam("id", jobID).
		SetResult(&out).
		Get("/jobs/{id}")
	if err != nil {
		return entity.TaskStatusReport{}, fmt.Errorf("get task status failed: %w", err)
	}
	if res.IsError() {
		return entity.TaskStatusReport{}, fmt.Errorf("%w: get status=%d body=%s", ErrBackendRejected, res.StatusCode(), strings.TrimSpace(res.String()))
	}
	if !out.Status.Valid() {
		return entity.TaskStatusReport{}, fmt.Errorf("%w: unknown status %q", ErrBackendRejected, out.Status)
	}
	if out.Progress < 0 {
		out.Progress = 0
	}
	if out.Progress > 100 {
		out.Progress = 100
	}
	return out, nil
}

var _ TrainingBackend = (*HTTPTrainingBackend)(nil)
