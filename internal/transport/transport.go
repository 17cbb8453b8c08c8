package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func InitRoutes(coverHandler *CoverHandler) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	api := router.Group("/api")
	{
		api.POST("/render", coverHandler.RenderCover)
		api.GET("/covers/:name", coverHandler.GetCover)
		api.DELETE("/covers/:name", coverHandler.DeleteCover)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "newscover",
		})
	})
	return router
}
