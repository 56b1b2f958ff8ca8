package models

import "time"

// Student defines the student model based on the 'students' table
type Student struct {
	ID           int64     `json:"id" db:"id" example:"1"`
	Name         string    `json:"name" db:"name" example:"John Doe"`
	FatherName   string    `json:"fatherName" db:"father_name" example:"Robert Doe"`
	AadharNumber string    `json:"aadharNumber" db:"aadhar_number" example:"123456789012"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`

	// Artifact refs, nil when no file is attached
	ProfilePhotoRef *string `json:"profilePhotoRef,omitempty" db:"profile_photo_ref" example:"2f1c7e0a-4b1d-4c55-9d2e-0f6f3b1b9a11.jpg"`
	IdentityDocRef  *string `json:"identityDocRef,omitempty" db:"identity_doc_ref" example:"8a7e4f2b-1c3d-4e5f-a6b7-c8d9e0f1a2b3.pdf"`
}

// ArtifactRefs returns the non-nil artifact refs of the student
func (s *Student) ArtifactRefs() []string {
	refs := make([]string, 0, 2)
	if s.ProfilePhotoRef != nil {
		refs = append(refs, *s.ProfilePhotoRef)
	}
	if s.IdentityDocRef != nil {
		refs = append(refs, *s.IdentityDocRef)
	}
	return refs
}
