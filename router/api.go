package router

import (
	"net/http"

	"github.com/nurduman/pinn-app/controller"
	"github.com/nurduman/pinn-app/middleware"

	"github.com/gin-gonic/gin"
)

func addBasicRouter(engine *gin.Engine) {
	engine.Use(gin.Recovery())
	engine.Use(middleware.Logger)

	engine.GET("/ping", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
}

func addApiRouter(engine *gin.Engine) {

	// 任务管理 API
	api := engine.Group("/api/v1")
	{
		// 任务 CRUD
		api.POST("/task", controller.CreateTask)
		api.GET("/task/:task_id", controller.GetTask)
		api.PUT("/task/:task_id", controller.UpdateTask)
		api.DELETE("/task/:task_id", controller.DeleteTask)
		api.GET("/tasks", controller.ListTasks)

		// 完成标记
		api.PUT("/task/:task_id/complete", controller.CompleteTask)
		api.PUT("/task/:task_id/activate", controller.ActivateTask)

		// 预测
		api.POST("/task/:task_id/predict", controller.PredictTask)
	}
}
