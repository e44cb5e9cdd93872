package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.POST("/sync/:vendor", handler.RunVendorSync)
		api.GET("/sync/history", handler.GetSyncHistory)
		api.GET("/sync/:vendor/staging", handler.GetStagedListings)
		api.POST("/images/process", handler.ProcessImages)
		api.GET("/images/jobs/:id", handler.GetImageJob)
		api.GET("/vehicles", handler.ListVehicles)
		api.GET("/vehicles/:id", handler.GetVehicle)
	}
}
