package v1

import (
	"encoding/json"
	"net/http"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/entity"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/service"

	"github.com/gin-gonic/gin"
)

type TaskController struct {
	taskService *service.TaskService
}

func NewTaskController(taskService *service.TaskService) *TaskController {
	return &TaskController{taskService: taskService}
}

// createTaskBody config 按字段解析到默认超参之上，未给出的字段保持默认值
type createTaskBody struct {
	Name        string          `json:"name"`
	BaseModelID string          `json:"baseModelId"`
	DatasetID   string          `json:"datasetId"`
	Config      json.RawMessage `json:"config"`
}

// CreateTask handles POST /v1/tasks
func (c *TaskController) CreateTask(ctx *gin.Context) {
	var body createTaskBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := service.CreateTaskRequest{
		Name:        body.Name,
		BaseModelID: body.BaseModelID,
		DatasetID:   body.DatasetID,
		Config:      entity.DefaultHyperparameters(),
	}
	if len(body.Config) > 0 {
		if err := json.Unmarshal(body.Config, &req.Config); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	task, err := c.taskService.CreateTask(ctx.Request.Context(), req)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, task)
}

// ListTasks handles GET /v1/tasks
func (c *TaskController) ListTasks(ctx *gin.Context) {
	var params entity.QueryParams
	if err := ctx.ShouldBindQuery(&params); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := c.taskService.ListTasks(ctx.Request.Context(), params)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// GetTask handles GET /v1/tasks/:id
func (c *TaskController) GetTask(ctx *gin.Context) {
	id, err := pathID(ctx)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	task, err := c.taskService.GetTask(ctx.Request.Context(), id)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, task)
}

// RefreshTask handles POST /v1/tasks/:id/refresh
// 从训练后端同步一次状态，未配置后端时返回 503。
func (c *TaskController) RefreshTask(ctx *gin.Context) {
	id, err := pathID(ctx)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	task, err := c.taskService.RefreshStatus(ctx.Request.Context(), id)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, task)
}
