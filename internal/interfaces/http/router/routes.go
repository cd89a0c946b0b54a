// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"

	"bookagent-api/internal/interfaces/http/middleware"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers) {
	// 认证管理
	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/token", h.Auth.Token)
	}

	// 用户管理
	users := v1.Group("/users")
	{
		users.GET("/me", h.User.GetMe)
		users.PUT("/me", h.User.UpdateMe)

		// 管理员专用
		admin := users.Group("", middleware.RequireAdmin())
		{
			admin.GET("", h.User.ListUsers)
			admin.POST("", h.User.CreateUser)
			admin.GET("/:id", h.User.GetUser)
			admin.PUT("/:id", h.User.UpdateUser)
			admin.DELETE("/:id", h.User.DeleteUser)
		}
	}

	// 图书管理
	books := v1.Group("/books")
	{
		books.GET("", h.Book.ListBooks)
		books.POST("", h.Book.CreateBook)
		books.GET("/:bid", h.Book.GetBook)
		books.PUT("/:bid", h.Book.UpdateBook)
		books.DELETE("/:bid", h.Book.DeleteBook)

		// 图书下的章节
		books.GET("/:bid/chapters", h.Chapter.ListChapters)
		books.POST("/:bid/chapters", h.Chapter.CreateChapter)
	}

	// 章节管理
	chapters := v1.Group("/chapters")
	{
		chapters.GET("/:cid", h.Chapter.GetChapter)
		chapters.PUT("/:cid", h.Chapter.UpdateChapter)
		chapters.DELETE("/:cid", h.Chapter.DeleteChapter)
	}

	// 模板管理
	templates := v1.Group("/templates")
	{
		templates.GET("", h.Template.ListTemplates)
		templates.POST("", h.Template.CreateTemplate)
		templates.GET("/:id", h.Template.GetTemplate)
		templates.PUT("/:id", h.Template.UpdateTemplate)
		templates.DELETE("/:id", h.Template.DeleteTemplate)
	}

	// AI 内容生成
	ai := v1.Group("/ai")
	{
		ai.POST("/chat", h.AI.Chat)
		ai.POST("/chat/stream", h.AI.ChatStream) // SSE
		ai.POST("/generate/chapter", h.AI.GenerateChapter)
		ai.POST("/generate/outline", h.AI.GenerateOutline)
	}

	// 异步任务
	tasks := v1.Group("/tasks")
	{
		tasks.GET("", h.Task.ListTasks)
		tasks.POST("/generate-book", h.Task.GenerateBook)
		tasks.POST("/export-book", h.Task.ExportBook)
		tasks.GET("/status/:tid", h.Task.GetTaskStatus)
		tasks.DELETE("/cancel/:tid", h.Task.CancelTask)
	}
}
