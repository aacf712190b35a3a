package payments

// Outcome is the normalized payment result carried by a verified gateway
// notification.
type Outcome string

const (
	OutcomeComplete  Outcome = "COMPLETE"
	OutcomeFailed    Outcome = "FAILED"
	OutcomeCancelled Outcome = "CANCELLED"
	OutcomePending   Outcome = "PENDING"
)

// Notification is a gateway callback after signature verification, normalized
// so the reconciliation service never touches gateway-specific field names.
// Exactly one of OrderRef, CheckoutJSON or UserRef is expected to be set; the
// reconciliation service decides the resolution strategy from them.
type Notification struct {
	Gateway      string
	PaymentID    string
	Outcome      Outcome
	AmountGross  float64
	Currency     string
	OrderRef     string
	CheckoutJSON string
	UserRef      string
	ClientName   string
	ClientEmail  string
}
