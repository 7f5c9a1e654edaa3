package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctoring-service/internal/services"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
)

type HandlerManager struct {
	proctoringHandler *ProctoringHandler
}

func NewHandlerManager(
	proctoringService services.ProctoringService,
	exportService services.ReportExportService,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		proctoringHandler: NewProctoringHandler(proctoringService, exportService, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", hm.proctoringHandler.Health)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		proctoring := v1.Group("/proctoring")
		{
			interviews := proctoring.Group("/interviews/:interview_id")
			{
				interviews.POST("/start", hm.proctoringHandler.StartMonitoring)
				interviews.POST("/frames", hm.proctoringHandler.AnalyzeFrame)
				interviews.GET("/status", hm.proctoringHandler.GetStatus)
				interviews.POST("/stop", hm.proctoringHandler.StopMonitoring)
				interviews.DELETE("", hm.proctoringHandler.RemoveSession)

				// Stored results
				interviews.GET("/report", hm.proctoringHandler.GetReport)
				interviews.GET("/report/export", hm.proctoringHandler.ExportReport)
				interviews.GET("/events", hm.proctoringHandler.ListEvents)
			}

			proctoring.PATCH("/events/:event_id/review", hm.proctoringHandler.ReviewEvent)
		}
	}
}
