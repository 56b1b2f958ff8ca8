package dto

import (
	"path"
	"time"

	"github.com/yigit/studentinfo/internal/app/models"
)

// StudentForm is the multipart form of a student create or update.
// The files travel as profilePhotoFile and aadharFile parts.
type StudentForm struct {
	Name              string `form:"name" example:"John Doe"`
	FatherName        string `form:"fatherName" example:"Robert Doe"`
	AadharNumber      string `form:"aadharNumber" example:"123456789012"`
	ClearProfilePhoto bool   `form:"clearProfilePhoto"`
	ClearIdentityDoc  bool   `form:"clearIdentityDoc"`
}

// Multipart part names of the student artifacts
const (
	ProfilePhotoField = "profilePhotoFile"
	IdentityDocField  = "aadharFile"
)

// StudentResponse represents a student in API responses
type StudentResponse struct {
	ID              int64     `json:"id" example:"1"`
	Name            string    `json:"name" example:"John Doe"`
	FatherName      string    `json:"fatherName" example:"Robert Doe"`
	AadharNumber    string    `json:"aadharNumber" example:"123456789012"`
	ProfilePhotoRef *string   `json:"profilePhotoRef,omitempty"`
	ProfilePhotoURL *string   `json:"profilePhotoUrl,omitempty" example:"/uploads/2f1c7e0a-4b1d-4c55-9d2e-0f6f3b1b9a11.jpg"`
	IdentityDocRef  *string   `json:"identityDocRef,omitempty"`
	IdentityDocURL  *string   `json:"identityDocUrl,omitempty" example:"/uploads/8a7e4f2b-1c3d-4e5f-a6b7-c8d9e0f1a2b3.pdf"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// NewStudentResponse converts a student model. publicPath is the URL prefix artifacts are served under.
func NewStudentResponse(s *models.Student, publicPath string) StudentResponse {
	return StudentResponse{
		ID:              s.ID,
		Name:            s.Name,
		FatherName:      s.FatherName,
		AadharNumber:    s.AadharNumber,
		ProfilePhotoRef: s.ProfilePhotoRef,
		ProfilePhotoURL: artifactURL(publicPath, s.ProfilePhotoRef),
		IdentityDocRef:  s.IdentityDocRef,
		IdentityDocURL:  artifactURL(publicPath, s.IdentityDocRef),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// NewStudentListResponse converts a list of student models
func NewStudentListResponse(students []*models.Student, publicPath string) []StudentResponse {
	out := make([]StudentResponse, 0, len(students))
	for _, s := range students {
		out = append(out, NewStudentResponse(s, publicPath))
	}
	return out
}

func artifactURL(publicPath string, ref *string) *string {
	if ref == nil {
		return nil
	}
	url := path.Join(publicPath, *ref)
	return &url
}
