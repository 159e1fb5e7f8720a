package v1

import (
	"errors"
	"net/http"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/console"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/service"

	"github.com/gin-gonic/gin"
)

const consoleTemplate = "console.html"

// ConsoleController 服务端渲染的控制台，所有操作成功后 303 回到首页。
type ConsoleController struct {
	console *console.Controller
}

func NewConsoleController(controller *console.Controller) *ConsoleController {
	return &ConsoleController{console: controller}
}

func (c *ConsoleController) render(ctx *gin.Context, status int) {
	snap, err := c.console.Snapshot(ctx.Request.Context())
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}
	ctx.HTML(status, consoleTemplate, snap)
}

func (c *ConsoleController) redirectHome(ctx *gin.Context) {
	ctx.Redirect(http.StatusSeeOther, "/")
}

// Index handles GET /
func (c *ConsoleController) Index(ctx *gin.Context) {
	c.render(ctx, http.StatusOK)
}

// ShowList handles POST /console/list
func (c *ConsoleController) ShowList(ctx *gin.Context) {
	c.console.ShowList()
	c.redirectHome(ctx)
}

// ShowCreate handles POST /console/create
func (c *ConsoleController) ShowCreate(ctx *gin.Context) {
	c.console.ShowCreate()
	c.redirectHome(ctx)
}

// CancelCreate handles POST /console/create/cancel
func (c *ConsoleController) CancelCreate(ctx *gin.Context) {
	c.console.CancelCreate()
	c.redirectHome(ctx)
}

// ToggleAdvanced handles POST /console/create/advanced
// 表单随请求一起提交，切换面板时保留已填写的值。
func (c *ConsoleController) ToggleAdvanced(ctx *gin.Context) {
	var form console.TaskForm
	if err := ctx.ShouldBind(&form); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := c.console.ToggleAdvanced(form); err != nil {
		writeHTTPError(ctx, err)
		return
	}
	c.redirectHome(ctx)
}

// SubmitTask handles POST /console/tasks
func (c *ConsoleController) SubmitTask(ctx *gin.Context) {
	var form console.TaskForm
	if err := ctx.ShouldBind(&form); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := c.console.CreateTask(ctx.Request.Context(), form); err != nil {
		if isFormError(err) {
			handlerLogger().Warn("create task rejected", "error", err)
			c.render(ctx, http.StatusBadRequest)
			return
		}
		writeHTTPError(ctx, err)
		return
	}
	c.redirectHome(ctx)
}

func isFormError(err error) bool {
	return errors.Is(err, service.ErrRequiredFields) ||
		errors.Is(err, service.ErrUnknownModel) ||
		errors.Is(err, service.ErrUnknownDataset)
}

// SelectTask handles POST /console/tasks/:id/select
func (c *ConsoleController) SelectTask(ctx *gin.Context) {
	id, err := pathID(ctx)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}
	if _, err := c.console.SelectTask(ctx.Request.Context(), id); err != nil {
		writeHTTPError(ctx, err)
		return
	}
	c.redirectHome(ctx)
}

// Back handles POST /console/back
func (c *ConsoleController) Back(ctx *gin.Context) {
	c.console.Back()
	c.redirectHome(ctx)
}

// Reopen handles POST /console/reopen
func (c *ConsoleController) Reopen(ctx *gin.Context) {
	if err := c.console.Reopen(ctx.Request.Context()); err != nil {
		writeHTTPError(ctx, err)
		return
	}
	c.redirectHome(ctx)
}

// SwitchTab handles POST /console/detail/tab
func (c *ConsoleController) SwitchTab(ctx *gin.Context) {
	tab := console.DetailTab(ctx.PostForm("tab"))
	if err := c.console.SwitchTab(tab); err != nil {
		writeHTTPError(ctx, err)
		return
	}
	c.redirectHome(ctx)
}

// RunComparison handles POST /console/detail/compare
// 表单里的 prompt 原样使用，清空后提交即为空提示词；表单不带该字段时沿用已保存的内容。
func (c *ConsoleController) RunComparison(ctx *gin.Context) {
	var err error
	if prompt, ok := ctx.GetPostForm("prompt"); ok {
		_, err = c.console.RunComparison(ctx.Request.Context(), prompt)
	} else {
		_, err = c.console.RunSavedComparison(ctx.Request.Context())
	}
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}
	c.redirectHome(ctx)
}

// CancelComparison handles POST /console/detail/compare/cancel
func (c *ConsoleController) CancelComparison(ctx *gin.Context) {
	if _, err := c.console.CancelComparison(ctx.Request.Context()); err != nil {
		writeHTTPError(ctx, err)
		return
	}
	c.redirectHome(ctx)
}
