package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func sendJSONResponse(ctx *gin.Context, status int, data gin.H) {
	ctx.JSON(status, data)
}

func sendErrorResponse(ctx *gin.Context, status int, message string) {
	sendJSONResponse(ctx, status, gin.H{"message": message})
}

func GetHome(ctx *gin.Context) {
	message := `Welcome to Phangelam API ❤️. Enjoy seamless interaction with this API.

The following are the endpoints for this API:

CONSULTATION
- POST "/consultation" - Create a consultation order and initiate payment
- GET "/consultation/:orderId" - Get consultation order by ID
- GET "/consultations" - Retrieve all consultation orders (admin)
- PATCH "/consultation/:orderId/status" - Update consultation status (admin)
- POST "/consultations/auto-assign" - Assign paid orders to consultants (admin)

CONSULTANT
- POST "/consultants" - Create a consultant (admin)
- GET "/consultants" - Retrieve all consultants
- PATCH "/consultants/:consultantId" - Update a consultant (admin)

WEBHOOKS
- POST "/webhooks/stripe" - Stripe webhook endpoint
- POST "/webhooks/payfast" - PayFast ITN endpoint`

	ctx.JSON(http.StatusOK, gin.H{
		"message": message,
	})
}
