package routes

import (
	"github.com/fredbanda/phangelam-api/controllers"
	"github.com/gin-gonic/gin"
)

func WebhookRoutes(server *gin.Engine) {
	server.POST("/webhooks/stripe", controllers.HandleStripeWebhook)
	server.POST("/webhooks/payfast", controllers.HandlePayfastITN)
}
