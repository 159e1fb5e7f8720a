package v1

import (
	"net/http"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/service"

	"github.com/gin-gonic/gin"
)

type CatalogController struct {
	catalog *service.CatalogService
}

func NewCatalogController(catalog *service.CatalogService) *CatalogController {
	return &CatalogController{catalog: catalog}
}

// ListModels handles GET /v1/models
func (c *CatalogController) ListModels(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.catalog.Models())
}

// ListDatasets handles GET /v1/datasets
func (c *CatalogController) ListDatasets(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.catalog.Datasets())
}

// ListMetrics handles GET /v1/metrics
func (c *CatalogController) ListMetrics(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.catalog.Metrics())
}
