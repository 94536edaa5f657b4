package approuters

import (
	"github.com/gin-gonic/gin"

	"github.com/fatmadali94/rierco-laboratories-sub001/internal/configuration"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/handler"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/hub"
)

// MonitorRouters sets up monitoring API routes
func MonitorRouters(router *gin.Engine, container *configuration.Container) {
	monitorService := hub.NewMonitorService(container.Hub)
	monitorHandler := handler.NewMonitorHandler(monitorService)

	monitorGroup := router.Group("/rl/api/monitor")
	{
		monitorGroup.GET("/stats", monitorHandler.GetHubStats)
	}
}
