package controllers

import (
	"encoding/json"
	"log"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fredbanda/phangelam-api/initializers"
	"github.com/fredbanda/phangelam-api/models"
	"github.com/fredbanda/phangelam-api/payments"
	"github.com/fredbanda/phangelam-api/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var (
	stripeGateway  *payments.StripeGateway
	payfastGateway *payments.PayfastGateway
	adminEmail     string
)

// Init hands the controllers their gateway adapters. Called once from main
// after configuration is loaded; the adapters are immutable afterwards.
func Init(stripe *payments.StripeGateway, payfast *payments.PayfastGateway, alertEmail string) {
	stripeGateway = stripe
	payfastGateway = payfast
	adminEmail = alertEmail
}

type createConsultationRequest struct {
	ClientName   string          `json:"clientName" binding:"required"`
	ClientEmail  string          `json:"clientEmail" binding:"required,email"`
	Package      string          `json:"package" binding:"required"`
	Amount       float64         `json:"amount" binding:"required,gt=0"`
	Currency     string          `json:"currency"`
	Gateway      string          `json:"gateway" binding:"required,oneof=stripe payfast"`
	UserID       *uint           `json:"userId"`
	Requirements json.RawMessage `json:"requirements"`
}

func CreateConsultationOrder(ctx *gin.Context) {
	var req createConsultationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Printf("JSON binding error: %v", err)
		sendErrorResponse(ctx, http.StatusBadRequest, "Invalid request body")
		return
	}

	currency := req.Currency
	if currency == "" {
		if req.Gateway == "payfast" {
			currency = "ZAR"
		} else {
			currency = "USD"
		}
	}

	order := models.ConsultationOrder{
		Reference:          uuid.NewString(),
		UserID:             req.UserID,
		ClientName:         req.ClientName,
		ClientEmail:        req.ClientEmail,
		Package:            req.Package,
		Amount:             req.Amount,
		Currency:           currency,
		PaymentStatus:      models.PaymentPending,
		ConsultationStatus: models.ConsultationPending,
	}
	if len(req.Requirements) > 0 {
		order.Requirements = datatypes.JSON(req.Requirements)
	}

	if err := initializers.DB.Create(&order).Error; err != nil {
		log.Println(err)
		sendErrorResponse(ctx, http.StatusInternalServerError, "Failed to create order")
		return
	}

	if req.Gateway == "payfast" {
		fields := payfastGateway.PaymentFields(&order)
		sendJSONResponse(ctx, http.StatusOK, gin.H{
			"message":    "Order created successfully. Redirect user to payment.",
			"orderId":    order.ID,
			"reference":  order.Reference,
			"processUrl": payfastGateway.ProcessURL(),
			"fields":     fields,
		})
		return
	}

	sessionID, redirectURL, err := stripeGateway.CreateCheckoutSession(&order)
	if err != nil {
		log.Printf("Stripe error for order %d: %v", order.ID, err)
		sendErrorResponse(ctx, http.StatusInternalServerError, "Failed to initiate payment")
		return
	}

	if err := initializers.DB.Model(&order).Updates(map[string]any{
		"payment_id": sessionID,
		"updated_at": time.Now(),
	}).Error; err != nil {
		log.Printf("Order %d created, but session ID not saved: %s", order.ID, sessionID)
	}

	sendJSONResponse(ctx, http.StatusOK, gin.H{
		"message":     "Order created successfully. Redirect user to payment.",
		"orderId":     order.ID,
		"reference":   order.Reference,
		"redirectUrl": redirectURL,
	})
}

func GetConsultationOrders(ctx *gin.Context) {
	var orders []models.ConsultationOrder

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "15"))
	offset := (page - 1) * limit

	sortOrder := ctx.DefaultQuery("sort", "desc")
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	query := initializers.DB.Model(&models.ConsultationOrder{})
	if status := ctx.Query("paymentStatus"); status != "" {
		query = query.Where("payment_status = ?", status)
	}
	if status := ctx.Query("consultationStatus"); status != "" {
		query = query.Where("consultation_status = ?", status)
	}
	if ctx.Query("unassigned") == "true" {
		query = query.Where("consultant_id IS NULL")
	}

	var count int64
	query.Count(&count)

	result := query.Order("created_at " + sortOrder).Limit(limit).Offset(offset).Find(&orders)
	if result.Error != nil {
		log.Println(result.Error)
		sendErrorResponse(ctx, http.StatusInternalServerError, "Unable to fetch orders")
		return
	}

	previousPage := page - 1
	nextPage := page + 1
	totalPages := math.Ceil(float64(count) / float64(limit))

	ctx.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"metadata": gin.H{
			"total":        count,
			"currentPage":  page,
			"limit":        limit,
			"hasPrevPage":  previousPage > 0,
			"hasNextPage":  int(totalPages) > page,
			"previousPage": previousPage,
			"nextPage":     nextPage,
		},
	})
}

func GetConsultationOrderById(ctx *gin.Context) {
	orderId, err := strconv.Atoi(ctx.Param("orderId"))
	if err != nil {
		log.Println(err)
		sendErrorResponse(ctx, http.StatusBadRequest, "Failed to parse orderId")
		return
	}

	var order models.ConsultationOrder
	if result := initializers.DB.First(&order, orderId); result.Error != nil {
		log.Println(result.Error)
		sendErrorResponse(ctx, http.StatusNotFound, "Order not found")
		return
	}

	sendJSONResponse(ctx, http.StatusOK, gin.H{
		"order": order,
	})
}

func UpdateConsultationStatus(ctx *gin.Context) {
	var statusData struct {
		Status string `json:"status" binding:"required,oneof=PENDING IN_PROGRESS COMPLETED CANCELLED"`
	}
	if err := ctx.ShouldBindJSON(&statusData); err != nil {
		log.Println(err)
		sendErrorResponse(ctx, http.StatusBadRequest, "Failed to parse request body")
		return
	}

	orderId, err := strconv.Atoi(ctx.Param("orderId"))
	if err != nil {
		log.Println(err)
		sendErrorResponse(ctx, http.StatusBadRequest, "Failed to parse orderId")
		return
	}

	var order models.ConsultationOrder
	if result := initializers.DB.First(&order, orderId); result.Error != nil {
		log.Println(result.Error)
		sendErrorResponse(ctx, http.StatusNotFound, "Order not found")
		return
	}

	// A consultation cannot start before its payment has cleared.
	if statusData.Status == models.ConsultationInProgress && order.PaymentStatus != models.PaymentPaid {
		sendErrorResponse(ctx, http.StatusConflict, "Order must be paid before the consultation can start")
		return
	}

	if result := initializers.DB.Model(&order).Updates(map[string]any{
		"consultation_status": statusData.Status,
		"updated_at":          time.Now(),
	}); result.Error != nil {
		log.Println(result.Error)
		sendErrorResponse(ctx, http.StatusInternalServerError, "Failed to update order status")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Order status updated successfully.",
	})
}

// notifyOrderPaid sends the client confirmation and the internal alert for a
// freshly paid order. Failures are logged and dropped; they never fail the
// webhook that triggered them.
func notifyOrderPaid(order models.ConsultationOrder) {
	if os.Getenv("FROM_EMAIL") == "" {
		log.Printf("Email is not configured, skipping notifications for order %d", order.ID)
		return
	}

	clientData := utils.EmailData{
		Name:      order.ClientName,
		Message:   "We have received your payment. A consultant will be in touch shortly to get your session started.",
		ActionURL: os.Getenv("FRONTEND_URL") + "/orders/" + order.Reference,
		LogoURL:   os.Getenv("FRONTEND_URL") + "/images/logo.png",
	}
	templatePath := filepath.Join("templates", "order_confirmation.html")
	if err := utils.SendEmail(order.ClientEmail, "Payment received", clientData, templatePath); err != nil {
		log.Printf("Failed to send confirmation email for order %d: %v", order.ID, err)
	}

	if adminEmail == "" {
		return
	}
	alertData := utils.EmailData{
		Name:      "Admin",
		Message:   "A new consultation order has been paid for by " + order.ClientName + " (" + order.ClientEmail + "). Package: " + order.Package + ".",
		ActionURL: os.Getenv("FRONTEND_URL") + "/admin/orders/" + order.Reference,
		LogoURL:   os.Getenv("FRONTEND_URL") + "/images/logo.png",
	}
	alertPath := filepath.Join("templates", "admin_alert.html")
	if err := utils.SendEmail(adminEmail, "New paid consultation order", alertData, alertPath); err != nil {
		log.Printf("Failed to send admin alert for order %d: %v", order.ID, err)
	}
}
