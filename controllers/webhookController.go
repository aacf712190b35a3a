package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/fredbanda/phangelam-api/initializers"
	"github.com/fredbanda/phangelam-api/payments"
	"github.com/fredbanda/phangelam-api/services"
	"github.com/gin-gonic/gin"
)

// HandleStripeWebhook receives Stripe events. The raw body is required for
// signature verification, so the request must not be parsed before
// VerifyNotification sees it.
func HandleStripeWebhook(ctx *gin.Context) {
	payload, err := ctx.GetRawData()
	if err != nil {
		log.Println(err)
		sendErrorResponse(ctx, http.StatusBadRequest, "Failed to read request body")
		return
	}

	notification, err := stripeGateway.VerifyNotification(payload, ctx.GetHeader("Stripe-Signature"))
	if errors.Is(err, payments.ErrIgnoredEvent) {
		ctx.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	if err != nil {
		log.Printf("Stripe webhook rejected: %v", err)
		sendErrorResponse(ctx, http.StatusBadRequest, "Signature verification failed")
		return
	}

	order, transitioned, err := services.Reconcile(initializers.DB, notification)
	if err != nil {
		status := reconcileErrorStatus(err)
		log.Printf("Stripe reconciliation failed for payment %s: %v", notification.PaymentID, err)
		sendErrorResponse(ctx, status, "Failed to reconcile payment")
		return
	}

	if transitioned {
		go notifyOrderPaid(*order)
	}

	ctx.JSON(http.StatusOK, gin.H{"received": true, "orderId": order.ID})
}

// HandlePayfastITN receives PayFast's ITN posts. The notification is trusted
// only after the local signature check and PayFast's own validation endpoint
// both pass. PayFast redelivers on any non-2xx response, so everything after
// verification must stay idempotent.
func HandlePayfastITN(ctx *gin.Context) {
	if err := ctx.Request.ParseForm(); err != nil {
		log.Println(err)
		ctx.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid form body"})
		return
	}

	fields := make(map[string]string, len(ctx.Request.PostForm))
	for key, values := range ctx.Request.PostForm {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}

	if err := payfastGateway.VerifySignature(fields); err != nil {
		log.Printf("PayFast ITN rejected: %v", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Signature verification failed"})
		return
	}

	if err := payfastGateway.Validate(ctx.Request.Context(), fields); err != nil {
		log.Printf("PayFast ITN rejected: %v", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Gateway validation failed"})
		return
	}

	notification := payfastGateway.ParseNotification(fields)

	order, transitioned, err := services.Reconcile(initializers.DB, notification)
	if err != nil {
		status := reconcileErrorStatus(err)
		log.Printf("PayFast reconciliation failed for payment %s: %v", notification.PaymentID, err)
		ctx.JSON(status, gin.H{"status": "error", "message": "Failed to reconcile payment"})
		return
	}

	if transitioned {
		go notifyOrderPaid(*order)
	}

	responseStatus := "ok"
	if notification.Outcome == payments.OutcomePending {
		responseStatus = "pending"
	}
	ctx.JSON(http.StatusOK, gin.H{"status": responseStatus})
}

func reconcileErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUnresolvable), errors.Is(err, services.ErrInvalidCheckoutPayload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
