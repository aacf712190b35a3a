package initializers

import (
	"log"

	"github.com/fredbanda/phangelam-api/models"
)

func SyncDatabase() {
	DB.AutoMigrate(&models.User{}, &models.ConsultationOrder{}, &models.Consultant{})
	log.Println("Database synced successfully.")
}
