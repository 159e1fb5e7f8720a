package v1

import (
	"errors"
	"io"
	"net/http"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/entity"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/service"

	"github.com/gin-gonic/gin"
)

type ComparisonController struct {
	taskService       *service.TaskService
	comparisonService *service.ComparisonService
}

func NewComparisonController(taskService *service.TaskService, comparisonService *service.ComparisonService) *ComparisonController {
	return &ComparisonController{
		taskService:       taskService,
		comparisonService: comparisonService,
	}
}

// startComparisonBody prompt 省略时沿用已保存的提示词，显式传空字符串则按空运行
type startComparisonBody struct {
	Prompt *string `json:"prompt"`
}

// GetComparison handles GET /v1/tasks/:id/comparison
func (c *ComparisonController) GetComparison(ctx *gin.Context) {
	id, err := pathID(ctx)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}
	if _, err := c.taskService.GetTask(ctx.Request.Context(), id); err != nil {
		writeHTTPError(ctx, err)
		return
	}

	session, err := c.comparisonService.Session(ctx.Request.Context(), id)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, session)
}

// StartComparison handles POST /v1/tasks/:id/comparison
// 立即返回 202，结果通过 GET 轮询；body 可省略，省略时沿用上次的提示词。
func (c *ComparisonController) StartComparison(ctx *gin.Context) {
	id, err := pathID(ctx)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	var body startComparisonBody
	if ctx.Request.Body != nil && ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	task, err := c.taskService.GetTask(ctx.Request.Context(), id)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	var session entity.ComparisonSession
	if body.Prompt != nil {
		session, err = c.comparisonService.StartWithPrompt(ctx.Request.Context(), *task, *body.Prompt)
	} else {
		session, err = c.comparisonService.Start(ctx.Request.Context(), *task)
	}
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	ctx.JSON(http.StatusAccepted, session)
}

// CancelComparison handles DELETE /v1/tasks/:id/comparison
func (c *ComparisonController) CancelComparison(ctx *gin.Context) {
	id, err := pathID(ctx)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	session, err := c.comparisonService.Cancel(ctx.Request.Context(), id)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, session)
}

// ListEvaluationMetrics handles GET /v1/evaluation-metrics
func (c *ComparisonController) ListEvaluationMetrics(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.comparisonService.MetricCards())
}
