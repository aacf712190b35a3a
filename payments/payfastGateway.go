package payments

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fredbanda/phangelam-api/config"
	"github.com/fredbanda/phangelam-api/models"
	"github.com/go-resty/resty/v2"
)

// PayfastGateway implements PayFast's ITN contract: MD5 parameter signatures
// plus a server-side confirmation post back to PayFast before any
// notification is trusted.
type PayfastGateway struct {
	merchantID  string
	merchantKey string
	passphrase  string
	processURL  string
	validateURL string
	baseURL     string
	client      *resty.Client
}

func NewPayfastGateway(cfg config.PayfastConfig, baseURL string) *PayfastGateway {
	return &PayfastGateway{
		merchantID:  cfg.MerchantID,
		merchantKey: cfg.MerchantKey,
		passphrase:  cfg.Passphrase,
		processURL:  cfg.ProcessURL,
		validateURL: cfg.ValidateURL,
		baseURL:     baseURL,
		client:      resty.New().SetTimeout(10 * time.Second),
	}
}

// ProcessURL is the PayFast endpoint the signed payment form posts to.
func (g *PayfastGateway) ProcessURL() string {
	return g.processURL
}

// Signature computes the MD5 parameter signature PayFast expects: drop the
// signature field itself, sort the remaining keys, URL-encode values with
// spaces as '+', join as key=value pairs and append the passphrase when one
// is configured. Empty values are excluded, matching what PayFast signs.
func (g *PayfastGateway) Signature(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for key, value := range fields {
		if key == "signature" || value == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+url.QueryEscape(fields[key]))
	}

	paramString := strings.Join(pairs, "&")
	if g.passphrase != "" {
		paramString += "&passphrase=" + url.QueryEscape(g.passphrase)
	}

	digest := md5.Sum([]byte(paramString))
	return hex.EncodeToString(digest[:])
}

// VerifySignature checks the signature field supplied by PayFast against a
// locally computed one. The comparison is constant-time.
func (g *PayfastGateway) VerifySignature(fields map[string]string) error {
	received := fields["signature"]
	if received == "" {
		return fmt.Errorf("payfast notification has no signature")
	}

	expected := g.Signature(fields)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
		return fmt.Errorf("payfast signature mismatch")
	}
	return nil
}

// Validate re-posts the received fields, exactly as delivered, to PayFast's
// own validation endpoint. PayFast answers with the literal body VALID when
// the notification matches a transaction it actually issued; anything else
// means the notification must not be trusted even if the signature checked
// out.
func (g *PayfastGateway) Validate(ctx context.Context, fields map[string]string) error {
	resp, err := g.client.R().
		SetContext(ctx).
		SetFormData(fields).
		Post(g.validateURL)
	if err != nil {
		return fmt.Errorf("payfast validation request failed: %w", err)
	}

	body := strings.TrimSpace(string(resp.Body()))
	if resp.StatusCode() != 200 || body != "VALID" {
		return fmt.Errorf("payfast rejected notification: status %d, body %q", resp.StatusCode(), body)
	}
	return nil
}

// PaymentFields builds the signed form a client posts to PayFast to start
// payment for an order. The order reference travels as m_payment_id so the
// ITN can resolve the order directly.
func (g *PayfastGateway) PaymentFields(order *models.ConsultationOrder) map[string]string {
	fields := map[string]string{
		"merchant_id":   g.merchantID,
		"merchant_key":  g.merchantKey,
		"return_url":    g.baseURL + "/payment/success?order=" + order.Reference,
		"cancel_url":    g.baseURL + "/payment/cancelled?order=" + order.Reference,
		"notify_url":    g.baseURL + "/webhooks/payfast",
		"m_payment_id":  order.Reference,
		"amount":        strconv.FormatFloat(order.Amount, 'f', 2, 64),
		"item_name":     order.Package,
		"email_address": order.ClientEmail,
	}
	if order.UserID != nil {
		fields["custom_str2"] = fmt.Sprint(*order.UserID)
	}
	fields["signature"] = g.Signature(fields)
	return fields
}

// ParseNotification normalizes a verified ITN payload. It must only be called
// after VerifySignature and Validate have both passed.
func (g *PayfastGateway) ParseNotification(fields map[string]string) Notification {
	notification := Notification{
		Gateway:      "payfast",
		PaymentID:    fields["pf_payment_id"],
		OrderRef:     fields["m_payment_id"],
		CheckoutJSON: fields["custom_str1"],
		UserRef:      fields["custom_str2"],
		Currency:     "ZAR",
		ClientEmail:  fields["email_address"],
		ClientName:   strings.TrimSpace(fields["name_first"] + " " + fields["name_last"]),
	}

	if amount, err := strconv.ParseFloat(fields["amount_gross"], 64); err == nil {
		notification.AmountGross = amount
	}

	switch fields["payment_status"] {
	case "COMPLETE":
		notification.Outcome = OutcomeComplete
	case "FAILED":
		notification.Outcome = OutcomeFailed
	case "CANCELLED":
		notification.Outcome = OutcomeCancelled
	default:
		notification.Outcome = OutcomePending
	}

	return notification
}
