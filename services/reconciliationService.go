package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/fredbanda/phangelam-api/models"
	"github.com/fredbanda/phangelam-api/payments"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrOrderNotFound means the notification referenced an order that does
	// not exist. Nothing is fabricated in that case.
	ErrOrderNotFound = errors.New("order referenced by notification does not exist")

	// ErrUnresolvable means the notification carried no order reference, no
	// checkout payload and no user reference.
	ErrUnresolvable = errors.New("notification cannot be resolved to an order")

	// ErrInvalidCheckoutPayload means the embedded order-creation payload was
	// present but failed validation. Malformed payloads are rejected, not
	// patched with defaults.
	ErrInvalidCheckoutPayload = errors.New("embedded checkout payload is invalid")
)

// CheckoutPayload is the versioned order-creation payload a checkout flow may
// embed in gateway metadata when the order was not pre-created.
type CheckoutPayload struct {
	Version      int             `json:"version"`
	ClientName   string          `json:"clientName"`
	ClientEmail  string          `json:"clientEmail"`
	Package      string          `json:"package"`
	Amount       float64         `json:"amount"`
	Currency     string          `json:"currency"`
	Requirements json.RawMessage `json:"requirements"`
}

const checkoutPayloadVersion = 1

func parseCheckoutPayload(raw string) (CheckoutPayload, error) {
	var payload CheckoutPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return CheckoutPayload{}, fmt.Errorf("%w: %v", ErrInvalidCheckoutPayload, err)
	}
	if payload.Version > checkoutPayloadVersion {
		return CheckoutPayload{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidCheckoutPayload, payload.Version)
	}
	if payload.ClientEmail == "" || payload.Package == "" || payload.Amount <= 0 {
		return CheckoutPayload{}, fmt.Errorf("%w: clientEmail, package and amount are required", ErrInvalidCheckoutPayload)
	}
	return payload, nil
}

// The three ways a notification can be mapped to an order, in fallback order.
// The strategy is decided once per notification, before any database work.
type resolutionKind int

const (
	resolveByReference resolutionKind = iota
	resolveByCheckout
	resolveByUser
)

type resolution struct {
	kind      resolutionKind
	reference string
	checkout  CheckoutPayload
	userID    uint
}

func decideResolution(notification payments.Notification) (resolution, error) {
	if notification.OrderRef != "" {
		return resolution{kind: resolveByReference, reference: notification.OrderRef}, nil
	}
	if notification.CheckoutJSON != "" {
		payload, err := parseCheckoutPayload(notification.CheckoutJSON)
		if err != nil {
			return resolution{}, err
		}
		return resolution{kind: resolveByCheckout, checkout: payload}, nil
	}
	if notification.UserRef != "" {
		userID, err := strconv.ParseUint(notification.UserRef, 10, 64)
		if err != nil {
			return resolution{}, fmt.Errorf("invalid user reference %q: %w", notification.UserRef, err)
		}
		return resolution{kind: resolveByUser, userID: uint(userID)}, nil
	}
	return resolution{}, ErrUnresolvable
}

// Reconcile maps a verified gateway notification onto exactly one order and
// applies its payment outcome. It reports whether the order transitioned to
// PAID on this call, so callers fire confirmation side effects once, not on
// replays. Replaying the same notification leaves the order unchanged.
func Reconcile(db *gorm.DB, notification payments.Notification) (*models.ConsultationOrder, bool, error) {
	res, err := decideResolution(notification)
	if err != nil {
		return nil, false, err
	}

	var order *models.ConsultationOrder
	switch res.kind {
	case resolveByReference:
		order, err = findOrderByReference(db, res.reference)
	case resolveByCheckout:
		order, err = findOrCreateOrderFromCheckout(db, res.checkout, notification)
	case resolveByUser:
		order, err = findOrderForUser(db, res.userID, notification)
	}
	if err != nil {
		return nil, false, err
	}

	transitioned, err := applyOutcome(db, order, notification)
	if err != nil {
		return nil, false, err
	}
	return order, transitioned, nil
}

// findOrderByReference resolves the direct-reference branch. The reference is
// the opaque order reference embedded in gateway metadata; a numeric value is
// also accepted as a database id for older checkout links.
func findOrderByReference(db *gorm.DB, reference string) (*models.ConsultationOrder, error) {
	var order models.ConsultationOrder
	err := db.Where("reference = ?", reference).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if id, convErr := strconv.ParseUint(reference, 10, 64); convErr == nil {
			err = db.First(&order, uint(id)).Error
		}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: reference %q", ErrOrderNotFound, reference)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order %q: %w", reference, err)
	}
	return &order, nil
}

// findOrCreateOrderFromCheckout resolves the embedded-payload branch: upsert
// the owning user by email, then create the order. Creation is keyed on the
// gateway's external payment id so a replayed notification finds the order it
// created the first time instead of inserting a second one.
func findOrCreateOrderFromCheckout(db *gorm.DB, payload CheckoutPayload, notification payments.Notification) (*models.ConsultationOrder, error) {
	var existing models.ConsultationOrder
	err := db.Where("payment_id = ?", notification.PaymentID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up order by payment id: %w", err)
	}

	var user models.User
	err = db.Where(models.User{Email: payload.ClientEmail}).
		Attrs(models.User{Fullname: payload.ClientName, Role: "client"}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user %q: %w", payload.ClientEmail, err)
	}

	order := models.ConsultationOrder{
		Reference:          uuid.NewString(),
		UserID:             &user.ID,
		ClientName:         payload.ClientName,
		ClientEmail:        payload.ClientEmail,
		Package:            payload.Package,
		Amount:             payload.Amount,
		Currency:           payload.Currency,
		PaymentID:          notification.PaymentID,
		PaymentStatus:      models.PaymentPending,
		ConsultationStatus: models.ConsultationPending,
	}
	if len(payload.Requirements) > 0 {
		order.Requirements = datatypes.JSON(payload.Requirements)
	}
	if err := db.Create(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order from checkout payload: %w", err)
	}
	return &order, nil
}

// findOrderForUser resolves the user-reference branch. A lookup by the stored
// payment id comes first so a replayed notification lands on the order it
// already reconciled; only then does it fall back to the user's most recent
// PENDING order. Two concurrent pending orders for one user are ambiguous
// here; the most recent one wins, as the gateway gives nothing better.
func findOrderForUser(db *gorm.DB, userID uint, notification payments.Notification) (*models.ConsultationOrder, error) {
	var order models.ConsultationOrder
	err := db.Where("payment_id = ?", notification.PaymentID).First(&order).Error
	if err == nil {
		return &order, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up order by payment id: %w", err)
	}

	err = db.Where("user_id = ? AND payment_status = ?", userID, models.PaymentPending).
		Order("created_at desc").
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no pending order for user %d", ErrOrderNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending order for user %d: %w", userID, err)
	}
	return &order, nil
}

// applyOutcome transitions the resolved order. Terminal consultation statuses
// are never regressed, and an order that is already PAID is left untouched so
// redelivered notifications are no-ops.
func applyOutcome(db *gorm.DB, order *models.ConsultationOrder, notification payments.Notification) (bool, error) {
	if models.IsTerminalConsultationStatus(order.ConsultationStatus) {
		log.Printf("Order %d is %s, ignoring %s notification %s", order.ID, order.ConsultationStatus, notification.Gateway, notification.PaymentID)
		return false, nil
	}

	switch notification.Outcome {
	case payments.OutcomeComplete:
		if order.PaymentStatus == models.PaymentPaid {
			return false, nil
		}
		updates := map[string]any{
			"payment_status": models.PaymentPaid,
			"payment_id":     notification.PaymentID,
			"updated_at":     time.Now(),
		}
		if order.ConsultationStatus == models.ConsultationPending {
			updates["consultation_status"] = models.ConsultationInProgress
		}
		if err := db.Model(order).Updates(updates).Error; err != nil {
			return false, fmt.Errorf("failed to mark order %d paid: %w", order.ID, err)
		}
		order.PaymentStatus = models.PaymentPaid
		order.PaymentID = notification.PaymentID
		if order.ConsultationStatus == models.ConsultationPending {
			order.ConsultationStatus = models.ConsultationInProgress
		}
		return true, nil

	case payments.OutcomeFailed, payments.OutcomeCancelled:
		if order.PaymentStatus != models.PaymentPending {
			return false, nil
		}
		updates := map[string]any{
			"payment_status": models.PaymentFailed,
			"payment_id":     notification.PaymentID,
			"updated_at":     time.Now(),
		}
		if err := db.Model(order).Updates(updates).Error; err != nil {
			return false, fmt.Errorf("failed to mark order %d failed: %w", order.ID, err)
		}
		order.PaymentStatus = models.PaymentFailed
		order.PaymentID = notification.PaymentID
		return false, nil

	default:
		// Pending outcome: record the correlation id so later notifications
		// for the same payment resolve by id instead of user lookup.
		if order.PaymentID == "" {
			if err := db.Model(order).Updates(map[string]any{
				"payment_id": notification.PaymentID,
				"updated_at": time.Now(),
			}).Error; err != nil {
				return false, fmt.Errorf("failed to store payment id on order %d: %w", order.ID, err)
			}
			order.PaymentID = notification.PaymentID
		}
		return false, nil
	}
}
