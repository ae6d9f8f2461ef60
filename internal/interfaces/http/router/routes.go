package router

import (
	"github.com/gin-gonic/gin"

	"storyboard-ai-api/internal/interfaces/http/handler"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, storyHandler *handler.StoryHandler) {
	// 故事会话
	stories := v1.Group("/stories")
	{
		stories.POST("", storyHandler.CreateStory)
		stories.GET("/:sessionId", storyHandler.GetStory)
		stories.POST("/:sessionId/refine", storyHandler.RefineStory)
		stories.POST("/:sessionId/art-styles", storyHandler.SuggestArtStyles)
		stories.POST("/:sessionId/finalize", storyHandler.FinalizeStory)
		stories.GET("/:sessionId/events", storyHandler.ListEvents)
	}

	// 画风预览图精修（无会话）
	artStyles := v1.Group("/art-styles")
	{
		artStyles.POST("/refine", storyHandler.RefineArtStyle)
	}
}
