package services

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fredbanda/phangelam-api/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBCounter int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Each test gets its own named in-memory database; cache=shared keeps it
	// alive across the pooled connections gorm opens.
	dsn := fmt.Sprintf("file:servicetest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.ConsultationOrder{}, &models.Consultant{}))
	return db
}

func createPendingOrder(t *testing.T, db *gorm.DB, createdAt time.Time) models.ConsultationOrder {
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
	order.CreatedAt = createdAt
	require.NoError(t, db.Create(&order).Error)
	return order
}

func createPaidUnassignedOrder(t *testing.T, db *gorm.DB, createdAt time.Time) models.ConsultationOrder {
	t.Helper()
	order := models.ConsultationOrder{
		Reference:          uuid.NewString(),
		ClientName:         "Jane Doe",
		ClientEmail:        "jane@example.com",
		Package:            "LinkedIn Optimization",
		Amount:             500,
		Currency:           "ZAR",
		PaymentStatus:      models.PaymentPaid,
		ConsultationStatus: models.ConsultationInProgress,
	}
	order.CreatedAt = createdAt
	require.NoError(t, db.Create(&order).Error)
	return order
}

func createConsultant(t *testing.T, db *gorm.DB, name string, maxOrders int, rating float64, active bool) models.Consultant {
	t.Helper()
	consultant := models.Consultant{
		Name:          name,
		Email:         name + "@example.com",
		IsActive:      active,
		MaxOrders:     maxOrders,
		AverageRating: rating,
	}
	require.NoError(t, db.Create(&consultant).Error)
	return consultant
}

func assignOrderTo(t *testing.T, db *gorm.DB, order models.ConsultationOrder, consultant models.Consultant) {
	t.Helper()
	require.NoError(t, db.Model(&models.ConsultationOrder{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"consultant_id":       consultant.ID,
			"consultation_status": models.ConsultationInProgress,
		}).Error)
}

func reloadOrder(t *testing.T, db *gorm.DB, id uint) models.ConsultationOrder {
	t.Helper()
	var order models.ConsultationOrder
	require.NoError(t, db.First(&order, id).Error)
	return order
}
