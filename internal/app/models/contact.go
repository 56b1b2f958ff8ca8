package models

import "time"

// Contact defines a contact record owned by a student ('contacts' table)
type Contact struct {
	ID           int64     `json:"id" db:"id" example:"1"`
	StudentID    int64     `json:"studentId" db:"student_id" example:"1"`
	MobileNumber string    `json:"mobileNumber" db:"mobile_number" example:"9876543210"`
	City         string    `json:"city" db:"city" example:"Mumbai"`
	Address      string    `json:"address" db:"address" example:"12 MG Road"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
