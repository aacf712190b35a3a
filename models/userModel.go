package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Fullname string `json:"fullname"`
	Email    string `json:"email" gorm:"size:191;uniqueIndex"`
	Role     string `json:"role"`
}
