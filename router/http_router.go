package router

import (
	"net/http"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/console"
	v1 "github.com/luckinnnn/Model-Fine-Tuning-Platform/handler/v1"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/service"
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/web"

	"github.com/gin-gonic/gin"
)

// Dependencies 路由需要的服务，由 main 组装；Registry 可为 nil（未配置 redis）。
type Dependencies struct {
	Tasks      *service.TaskService
	Comparison *service.ComparisonService
	Registry   *service.CoreServerRegistry
	Console    *console.Controller
}

func SetupRouter(deps Dependencies) (*gin.Engine, error) {
	templates, err := web.Templates()
	if err != nil {
		return nil, err
	}

	taskController := v1.NewTaskController(deps.Tasks)
	catalogController := v1.NewCatalogController(deps.Tasks.Catalog())
	comparisonController := v1.NewComparisonController(deps.Tasks, deps.Comparison)
	coreServerController := v1.NewCoreServerController(deps.Registry)
	consoleController := v1.NewConsoleController(deps.Console)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.SetHTMLTemplate(templates)

	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// HTML console
	r.GET("/", consoleController.Index)
	consoleGroup := r.Group("/console")
	{
		consoleGroup.POST("/list", consoleController.ShowList)
		consoleGroup.POST("/create", consoleController.ShowCreate)
		consoleGroup.POST("/create/cancel", consoleController.CancelCreate)
		consoleGroup.POST("/create/advanced", consoleController.ToggleAdvanced)
		consoleGroup.POST("/tasks", consoleController.SubmitTask)
		consoleGroup.POST("/tasks/:id/select", consoleController.SelectTask)
		consoleGroup.POST("/back", consoleController.Back)
		consoleGroup.POST("/reopen", consoleController.Reopen)
		consoleGroup.POST("/detail/tab", consoleController.SwitchTab)
		consoleGroup.POST("/detail/compare", consoleController.RunComparison)
		consoleGroup.POST("/detail/compare/cancel", consoleController.CancelComparison)
	}

	v1Group := r.Group("/v1")
	{
		// Catalog routes
		v1Group.GET("/models", catalogController.ListModels)
		v1Group.GET("/datasets", catalogController.ListDatasets)
		v1Group.GET("/metrics", catalogController.ListMetrics)
		v1Group.GET("/evaluation-metrics", comparisonController.ListEvaluationMetrics)

		// Task routes
		tasks := v1Group.Group("/tasks")
		{
			tasks.POST("", taskController.CreateTask)
			tasks.GET("", taskController.ListTasks)
			tasks.GET("/:id", taskController.GetTask)
			tasks.POST("/:id/refresh", taskController.RefreshTask)

			tasks.GET("/:id/comparison", comparisonController.GetComparison)
			tasks.POST("/:id/comparison", comparisonController.StartComparison)
			tasks.DELETE("/:id/comparison", comparisonController.CancelComparison)
		}

		v1Group.GET("/core-servers", coreServerController.ListCoreServers)
	}

	return r, nil
}
