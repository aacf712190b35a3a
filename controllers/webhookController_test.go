package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fredbanda/phangelam-api/config"
	"github.com/fredbanda/phangelam-api/initializers"
	"github.com/fredbanda/phangelam-api/models"
	"github.com/fredbanda/phangelam-api/payments"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testStripeWebhookSecret = "whsec_handler_test"

var handlerTestDBCounter int64

func setupWebhookTest(t *testing.T, validateURL string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handlertest%d?mode=memory&cache=shared", atomic.AddInt64(&handlerTestDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.ConsultationOrder{}, &models.Consultant{}))
	initializers.DB = db

	stripeGW := payments.NewStripeGateway(config.StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: testStripeWebhookSecret,
	}, "https://app.example.com")
	payfastGW := payments.NewPayfastGateway(config.PayfastConfig{
		MerchantID:  "10000100",
		MerchantKey: "46f0cd694581a",
		Passphrase:  "jt7NOE43FZPn",
		ValidateURL: validateURL,
	}, "https://app.example.com")
	Init(stripeGW, payfastGW, "")
}

func newWebhookServer() *gin.Engine {
	server := gin.New()
	server.POST("/webhooks/stripe", HandleStripeWebhook)
	server.POST("/webhooks/payfast", HandlePayfastITN)
	return server
}

func createTestOrder(t *testing.T) models.ConsultationOrder {
	t.Helper()
	order := models.ConsultationOrder{
		Reference:          uuid.NewString(),
		ClientName:         "Jane Doe",
		ClientEmail:        "jane@example.com",
		Package:            "LinkedIn Optimization",
		Amount:             500,
		Currency:           "ZAR",
		PaymentStatus:      models.PaymentPending,
		ConsultationStatus: models.ConsultationPending,
	}
	require.NoError(t, initializers.DB.Create(&order).Error)
	return order
}

func postPayfastITN(server *gin.Engine, fields map[string]string) *httptest.ResponseRecorder {
	form := url.Values{}
	for key, value := range fields {
		form.Set(key, value)
	}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payfast", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	return recorder
}

func payfastITNFields(order models.ConsultationOrder, status string) map[string]string {
	return map[string]string{
		"merchant_id":    "10000100",
		"merchant_key":   "46f0cd694581a",
		"m_payment_id":   order.Reference,
		"pf_payment_id":  "1089250",
		"payment_status": status,
		"amount_gross":   "500.00",
		"item_name":      order.Package,
		"email_address":  order.ClientEmail,
	}
}

func TestHandlePayfastITN(t *testing.T) {
	validateServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("VALID"))
	}))
	defer validateServer.Close()

	setupWebhookTest(t, validateServer.URL)
	server := newWebhookServer()
	order := createTestOrder(t)

	fields := payfastITNFields(order, "COMPLETE")
	fields["signature"] = payfastGateway.Signature(fields)

	recorder := postPayfastITN(server, fields)
	require.Equal(t, http.StatusOK, recorder.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])

	var stored models.ConsultationOrder
	require.NoError(t, initializers.DB.First(&stored, order.ID).Error)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, models.ConsultationInProgress, stored.ConsultationStatus)
	assert.Equal(t, "1089250", stored.PaymentID)
}

func TestHandlePayfastITNReplay(t *testing.T) {
	validateServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("VALID"))
	}))
	defer validateServer.Close()

	setupWebhookTest(t, validateServer.URL)
	server := newWebhookServer()
	order := createTestOrder(t)

	fields := payfastITNFields(order, "COMPLETE")
	fields["signature"] = payfastGateway.Signature(fields)

	require.Equal(t, http.StatusOK, postPayfastITN(server, fields).Code)
	require.Equal(t, http.StatusOK, postPayfastITN(server, fields).Code)

	var count int64
	initializers.DB.Model(&models.ConsultationOrder{}).Count(&count)
	assert.EqualValues(t, 1, count)

	var stored models.ConsultationOrder
	require.NoError(t, initializers.DB.First(&stored, order.ID).Error)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)
}

func TestHandlePayfastITNRejectsTamperedAmount(t *testing.T) {
	validateServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("VALID"))
	}))
	defer validateServer.Close()

	setupWebhookTest(t, validateServer.URL)
	server := newWebhookServer()
	order := createTestOrder(t)

	fields := payfastITNFields(order, "COMPLETE")
	fields["signature"] = payfastGateway.Signature(fields)
	fields["amount_gross"] = "1.00"

	recorder := postPayfastITN(server, fields)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var stored models.ConsultationOrder
	require.NoError(t, initializers.DB.First(&stored, order.ID).Error)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus)
}

func TestHandlePayfastITNRejectsWhenGatewayValidationFails(t *testing.T) {
	validateServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("INVALID"))
	}))
	defer validateServer.Close()

	setupWebhookTest(t, validateServer.URL)
	server := newWebhookServer()
	order := createTestOrder(t)

	fields := payfastITNFields(order, "COMPLETE")
	fields["signature"] = payfastGateway.Signature(fields)

	recorder := postPayfastITN(server, fields)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var stored models.ConsultationOrder
	require.NoError(t, initializers.DB.First(&stored, order.ID).Error)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus)
}

func signStripeTestPayload(payload []byte) string {
	timestamp := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testStripeWebhookSecret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestHandleStripeWebhook(t *testing.T) {
	setupWebhookTest(t, "")
	server := newWebhookServer()
	order := createTestOrder(t)

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_test_1",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_123",
				"object": "checkout.session",
				"amount_total": 50000,
				"currency": "zar",
				"payment_status": "paid",
				"metadata": {"order_reference": %q}
			}
		}
	}`, order.Reference))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signStripeTestPayload(payload))
	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var stored models.ConsultationOrder
	require.NoError(t, initializers.DB.First(&stored, order.ID).Error)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, models.ConsultationInProgress, stored.ConsultationStatus)
	assert.Equal(t, "cs_test_123", stored.PaymentID)
}

func TestHandleStripeWebhookRejectsBadSignature(t *testing.T) {
	setupWebhookTest(t, "")
	server := newWebhookServer()
	order := createTestOrder(t)

	payload := []byte(`{"id": "evt_test_2", "type": "checkout.session.completed", "data": {"object": {"id": "cs_test_456", "object": "checkout.session"}}}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", "t=0,v1=bogus")
	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var stored models.ConsultationOrder
	require.NoError(t, initializers.DB.First(&stored, order.ID).Error)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus)
}

func TestHandleStripeWebhookAcknowledgesIgnoredEvents(t *testing.T) {
	setupWebhookTest(t, "")
	server := newWebhookServer()

	payload := []byte(`{"id": "evt_test_3", "type": "invoice.paid", "data": {"object": {"id": "in_test_1", "object": "invoice"}}}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signStripeTestPayload(payload))
	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestHandleStripeWebhookUnknownOrderReference(t *testing.T) {
	setupWebhookTest(t, "")
	server := newWebhookServer()

	payload := []byte(`{
		"id": "evt_test_4",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_789",
				"object": "checkout.session",
				"payment_status": "paid",
				"metadata": {"order_reference": "no-such-order"}
			}
		}
	}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signStripeTestPayload(payload))
	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
