package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with the /tts route group. CORS is
// wide-open, matching the permissive policy of the upstream frontend
// deployments this service serves.
func NewRouter(controller *Controller) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	ttsGroup := router.Group("/tts")
	{
		ttsGroup.POST("/dialogue", controller.GenerateDialogue)
		ttsGroup.POST("/tune_emotion", controller.TuneEmotion)
		ttsGroup.GET("/emotions", controller.ListEmotions)
		ttsGroup.POST("/from_ocr_json", controller.RunBatch)
		ttsGroup.GET("/result/:run_id", controller.GetResult)
	}

	router.GET("/health", controller.Health)

	return router
}
