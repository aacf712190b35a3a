package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Consultant struct {
	gorm.Model
	Name            string         `json:"name" binding:"required"`
	Email           string         `json:"email" binding:"required,email" gorm:"size:191;uniqueIndex"`
	IsActive        bool           `json:"isActive"`
	MaxOrders       int            `json:"maxOrders" binding:"required,gt=0"`
	AverageRating   float64        `json:"averageRating"`
	Specializations datatypes.JSON `json:"specializations"`
}
