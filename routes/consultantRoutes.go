package routes

import (
	"github.com/fredbanda/phangelam-api/controllers"
	"github.com/fredbanda/phangelam-api/middlewares"
	"github.com/gin-gonic/gin"
)

func ConsultantRoutes(server *gin.Engine) {
	server.GET("/consultants", controllers.GetConsultants)

	admin := server.Group("/consultants", middlewares.Authenticate(), middlewares.RequireAdmin())
	{
		admin.POST("", controllers.CreateConsultant)
		admin.PATCH("/:consultantId", controllers.UpdateConsultant)
	}
}
