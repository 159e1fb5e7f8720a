package v1

import (
	"net/http"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/service"

	"github.com/gin-gonic/gin"
)

type CoreServerController struct {
	registry *service.CoreServerRegistry
}

// NewCoreServerController registry 为 nil 时接口返回 503
func NewCoreServerController(registry *service.CoreServerRegistry) *CoreServerController {
	return &CoreServerController{registry: registry}
}

// ListCoreServers handles GET /v1/core-servers
// 返回 list，每项仅包含 key/ip/port 三个字段。
func (c *CoreServerController) ListCoreServers(ctx *gin.Context) {
	result, err := c.registry.List(ctx.Request.Context())
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}
