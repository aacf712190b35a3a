package routes

import (
	"github.com/fredbanda/phangelam-api/controllers"
	"github.com/fredbanda/phangelam-api/middlewares"
	"github.com/gin-gonic/gin"
)

func ConsultationRoutes(server *gin.Engine) {
	server.POST("/consultation", controllers.CreateConsultationOrder)
	server.GET("/consultation/:orderId", controllers.GetConsultationOrderById)

	admin := server.Group("/", middlewares.Authenticate(), middlewares.RequireAdmin())
	{
		admin.GET("/consultations", controllers.GetConsultationOrders)
		admin.PATCH("/consultation/:orderId/status", controllers.UpdateConsultationStatus)
		admin.POST("/consultations/auto-assign", controllers.AutoAssignOrders)
	}
}
