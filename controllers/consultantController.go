package controllers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/fredbanda/phangelam-api/initializers"
	"github.com/fredbanda/phangelam-api/models"
	"github.com/gin-gonic/gin"
)

func CreateConsultant(ctx *gin.Context) {
	var consultant models.Consultant
	if err := ctx.ShouldBindJSON(&consultant); err != nil {
		log.Println(err)
		sendErrorResponse(ctx, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := initializers.DB.Create(&consultant).Error; err != nil {
		log.Println(err)
		sendErrorResponse(ctx, http.StatusInternalServerError, "Failed to create consultant")
		return
	}

	ctx.JSON(http.StatusCreated, consultant)
}

func GetConsultants(ctx *gin.Context) {
	var consultants []models.Consultant

	query := initializers.DB.Model(&models.Consultant{})
	if ctx.Query("active") == "true" {
		query = query.Where("is_active = ?", true)
	}

	if result := query.Order("average_rating desc").Find(&consultants); result.Error != nil {
		log.Println(result.Error)
		sendErrorResponse(ctx, http.StatusInternalServerError, "Unable to fetch consultants")
		return
	}

	sendJSONResponse(ctx, http.StatusOK, gin.H{
		"consultants": consultants,
	})
}

func UpdateConsultant(ctx *gin.Context) {
	consultantId, err := strconv.Atoi(ctx.Param("consultantId"))
	if err != nil {
		log.Println(err)
		sendErrorResponse(ctx, http.StatusBadRequest, "Failed to parse consultantId")
		return
	}

	var consultant models.Consultant
	if result := initializers.DB.First(&consultant, consultantId); result.Error != nil {
		log.Println(result.Error)
		sendErrorResponse(ctx, http.StatusNotFound, "Consultant not found")
		return
	}

	var updates struct {
		Name          *string  `json:"name"`
		IsActive      *bool    `json:"isActive"`
		MaxOrders     *int     `json:"maxOrders"`
		AverageRating *float64 `json:"averageRating"`
	}
	if err := ctx.ShouldBindJSON(&updates); err != nil {
		log.Println(err)
		sendErrorResponse(ctx, http.StatusBadRequest, "Invalid request body")
		return
	}

	fields := map[string]any{}
	if updates.Name != nil {
		fields["name"] = *updates.Name
	}
	if updates.IsActive != nil {
		fields["is_active"] = *updates.IsActive
	}
	if updates.MaxOrders != nil {
		fields["max_orders"] = *updates.MaxOrders
	}
	if updates.AverageRating != nil {
		fields["average_rating"] = *updates.AverageRating
	}
	if len(fields) == 0 {
		sendErrorResponse(ctx, http.StatusBadRequest, "No fields to update")
		return
	}

	if result := initializers.DB.Model(&consultant).Updates(fields); result.Error != nil {
		log.Println(result.Error)
		sendErrorResponse(ctx, http.StatusInternalServerError, "Failed to update consultant")
		return
	}

	sendJSONResponse(ctx, http.StatusOK, gin.H{"message": "Consultant updated successfully."})
}
