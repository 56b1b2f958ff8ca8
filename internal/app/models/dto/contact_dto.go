package dto

// CreateContactRequest represents a new contact
type CreateContactRequest struct {
	StudentID    int64  `json:"studentId" example:"1"`
	MobileNumber string `json:"mobileNumber" example:"9876543210"`
	City         string `json:"city" example:"Pune"`
	Address      string `json:"address" example:"MG Road"`
}

// UpdateContactRequest represents the mutable fields of a contact
type UpdateContactRequest struct {
	MobileNumber string `json:"mobileNumber" example:"9876543210"`
	City         string `json:"city" example:"Pune"`
	Address      string `json:"address" example:"MG Road"`
}
