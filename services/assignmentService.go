package services

import (
	"sync"
	"time"

	"github.com/fredbanda/phangelam-api/models"
	"gorm.io/gorm"
)

// Assignment records one order handed to one consultant during an auto-assign
// run.
type Assignment struct {
	OrderID      uint   `json:"orderId"`
	ConsultantID uint   `json:"consultantId"`
	ClientName   string `json:"clientName"`
}

// Two concurrent runs would read the same workload counts and could both
// fill a consultant's last slot, so the whole run is serialized. Each write
// additionally carries a consultant_id IS NULL guard so a row assigned in
// the meantime is skipped rather than reassigned.
var autoAssignMu sync.Mutex

// AutoAssign matches unassigned paid orders to available consultants.
// Orders are processed oldest first; each goes to the least-loaded active
// consultant with spare capacity, ties broken by highest rating. Orders with
// no eligible consultant are skipped, and an empty result is a normal
// outcome, not an error.
func AutoAssign(db *gorm.DB) ([]Assignment, error) {
	autoAssignMu.Lock()
	defer autoAssignMu.Unlock()

	assignments := []Assignment{}

	err := db.Transaction(func(tx *gorm.DB) error {
		var orders []models.ConsultationOrder
		err := tx.Where(
			"consultant_id IS NULL AND payment_status = ? AND consultation_status IN ?",
			models.PaymentPaid,
			[]string{models.ConsultationPending, models.ConsultationInProgress},
		).Order("created_at asc").Find(&orders).Error
		if err != nil {
			return err
		}
		if len(orders) == 0 {
			return nil
		}

		var consultants []models.Consultant
		if err := tx.Where("is_active = ?", true).Find(&consultants).Error; err != nil {
			return err
		}

		workloads, err := currentWorkloads(tx)
		if err != nil {
			return err
		}

		for i := range orders {
			order := &orders[i]
			chosen := pickConsultant(consultants, workloads)
			if chosen == nil {
				continue
			}

			result := tx.Model(&models.ConsultationOrder{}).
				Where("id = ? AND consultant_id IS NULL", order.ID).
				Updates(map[string]any{
					"consultant_id":       chosen.ID,
					"consultation_status": models.ConsultationInProgress,
					"updated_at":          time.Now(),
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				continue
			}

			workloads[chosen.ID]++
			assignments = append(assignments, Assignment{
				OrderID:      order.ID,
				ConsultantID: chosen.ID,
				ClientName:   order.ClientName,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

// currentWorkloads counts IN_PROGRESS orders per consultant in one grouped
// query.
func currentWorkloads(tx *gorm.DB) (map[uint]int, error) {
	type loadRow struct {
		ConsultantID uint
		Total        int
	}
	var rows []loadRow
	err := tx.Model(&models.ConsultationOrder{}).
		Select("consultant_id, COUNT(*) AS total").
		Where("consultant_id IS NOT NULL AND consultation_status = ?", models.ConsultationInProgress).
		Group("consultant_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	workloads := make(map[uint]int, len(rows))
	for _, row := range rows {
		workloads[row.ConsultantID] = row.Total
	}
	return workloads, nil
}

// pickConsultant returns the least-loaded consultant with spare capacity,
// breaking ties by highest average rating, or nil when everyone is full.
func pickConsultant(consultants []models.Consultant, workloads map[uint]int) *models.Consultant {
	var best *models.Consultant
	for i := range consultants {
		candidate := &consultants[i]
		load := workloads[candidate.ID]
		if load >= candidate.MaxOrders {
			continue
		}
		if best == nil ||
			load < workloads[best.ID] ||
			(load == workloads[best.ID] && candidate.AverageRating > best.AverageRating) {
			best = candidate
		}
	}
	return best
}
