package controllers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/fredbanda/phangelam-api/initializers"
	"github.com/fredbanda/phangelam-api/services"
	"github.com/gin-gonic/gin"
)

// AutoAssignOrders runs the assignment heuristic over all unassigned paid
// orders. Zero assignments is a normal outcome; it means every consultant is
// at capacity or inactive.
func AutoAssignOrders(ctx *gin.Context) {
	assignments, err := services.AutoAssign(initializers.DB)
	if err != nil {
		log.Println(err)
		sendErrorResponse(ctx, http.StatusInternalServerError, "Failed to assign orders")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":     fmt.Sprintf("%d orders assigned.", len(assignments)),
		"assignments": assignments,
	})
}
