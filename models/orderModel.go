package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Payment status values for ConsultationOrder.PaymentStatus.
const (
	PaymentPending = "PENDING"
	PaymentPaid    = "PAID"
	PaymentFailed  = "FAILED"
)

// Consultation status values for ConsultationOrder.ConsultationStatus.
const (
	ConsultationPending    = "PENDING"
	ConsultationInProgress = "IN_PROGRESS"
	ConsultationCompleted  = "COMPLETED"
	ConsultationCancelled  = "CANCELLED"
)

// IsTerminalConsultationStatus reports whether a consultation status must
// never be regressed by reconciliation or assignment.
func IsTerminalConsultationStatus(status string) bool {
	return status == ConsultationCompleted || status == ConsultationCancelled
}

type ConsultationOrder struct {
	gorm.Model
	Reference          string         `json:"reference" gorm:"size:64;uniqueIndex"`
	UserID             *uint          `json:"userId"`
	ConsultantID       *uint          `json:"consultantId"`
	ClientName         string         `json:"clientName"`
	ClientEmail        string         `json:"clientEmail"`
	Package            string         `json:"package"`
	Amount             float64        `json:"amount"`
	Currency           string         `json:"currency"`
	Requirements       datatypes.JSON `json:"requirements"`
	PaymentID          string         `json:"paymentId" gorm:"size:191;index"`
	PaymentStatus      string         `json:"paymentStatus"`
	ConsultationStatus string         `json:"consultationStatus"`
}
