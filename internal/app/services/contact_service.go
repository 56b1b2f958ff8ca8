package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/studentinfo/internal/app/models"
	"github.com/yigit/studentinfo/internal/pkg/apperrors"
	"github.com/yigit/studentinfo/internal/pkg/metrics"
	"github.com/yigit/studentinfo/internal/pkg/validation"
)

// ContactDetails are the mutable fields of a contact
type ContactDetails struct {
	MobileNumber string `json:"mobileNumber" validate:"required,mobile"`
	City         string `json:"city" validate:"notblank,max=50"`
	Address      string `json:"address" validate:"notblank,max=255"`
}

func (d *ContactDetails) normalize() {
	d.MobileNumber = strings.TrimSpace(d.MobileNumber)
	d.City = strings.TrimSpace(d.City)
	d.Address = strings.TrimSpace(d.Address)
}

// ContactInput carries a new contact
type ContactInput struct {
	StudentID int64 `json:"studentId" validate:"gt=0"`
	ContactDetails
}

// ContactService defines the interface for contact operations
type ContactService interface {
	AddContact(ctx context.Context, in ContactInput) (*models.Contact, error)
	UpdateContact(ctx context.Context, id int64, details ContactDetails) (*models.Contact, error)
	DeleteContact(ctx context.Context, id int64) error
	GetContact(ctx context.Context, id int64) (*models.Contact, error)
	ListContacts(ctx context.Context, studentID int64) ([]*models.Contact, error)
}

// contactServiceImpl implements the ContactService interface
type contactServiceImpl struct {
	contacts ContactStore
	tx       Transactor
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewContactService creates a new contact service instance
func NewContactService(contacts ContactStore, tx Transactor, m *metrics.Metrics, lgr zerolog.Logger) ContactService {
	return &contactServiceImpl{
		contacts: contacts,
		tx:       tx,
		metrics:  m,
		logger:   lgr.With().Str("component", "contact_service").Logger(),
	}
}

// AddContact creates a contact for an existing student
func (s *contactServiceImpl) AddContact(ctx context.Context, in ContactInput) (*models.Contact, error) {
	defer s.metrics.ObserveOperation("add_contact", time.Now())

	in.normalize()
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	contact := &models.Contact{
		StudentID:    in.StudentID,
		MobileNumber: in.MobileNumber,
		City:         in.City,
		Address:      in.Address,
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context, stores TxStores) error {
		if _, err := stores.Students.GetByID(ctx, in.StudentID); err != nil {
			return err
		}
		if err := checkMobile(ctx, stores.Contacts, in.MobileNumber, in.StudentID, nil); err != nil {
			return err
		}
		_, err := stores.Contacts.Create(ctx, contact)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	s.logger.Info().Int64("contactID", contact.ID).Int64("studentID", contact.StudentID).Msg("Contact created")
	return contact, nil
}

// UpdateContact changes the mobile number, city and address of a contact
func (s *contactServiceImpl) UpdateContact(ctx context.Context, id int64, details ContactDetails) (*models.Contact, error) {
	defer s.metrics.ObserveOperation("update_contact", time.Now())

	if id <= 0 {
		return nil, apperrors.NewValidationError("id", "invalid contact ID")
	}
	details.normalize()
	if err := validation.Struct(&details); err != nil {
		return nil, err
	}

	var updated *models.Contact
	err := s.tx.RunInTx(ctx, func(ctx context.Context, stores TxStores) error {
		current, err := stores.Contacts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := checkMobile(ctx, stores.Contacts, details.MobileNumber, current.StudentID, &id); err != nil {
			return err
		}

		next := *current
		next.MobileNumber, next.City, next.Address = details.MobileNumber, details.City, details.Address

		affected, err := stores.Contacts.Update(ctx, &next)
		if err != nil {
			return err
		}
		if affected == 0 {
			return apperrors.ErrContactNotFound
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}

	s.logger.Info().Int64("contactID", id).Msg("Contact updated")
	return updated, nil
}

// DeleteContact deletes a contact by ID
func (s *contactServiceImpl) DeleteContact(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperrors.NewValidationError("id", "invalid contact ID")
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context, stores TxStores) error {
		affected, err := stores.Contacts.Delete(ctx, id)
		if err != nil {
			return err
		}
		if affected == 0 {
			return apperrors.ErrContactNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	s.logger.Info().Int64("contactID", id).Msg("Contact deleted")
	return nil
}

// GetContact retrieves a contact by ID
func (s *contactServiceImpl) GetContact(ctx context.Context, id int64) (*models.Contact, error) {
	if id <= 0 {
		return nil, apperrors.NewValidationError("id", "invalid contact ID")
	}
	return s.contacts.GetByID(ctx, id)
}

// ListContacts retrieves the contacts of a student, most recently created first.
// An unknown student simply has no contacts.
func (s *contactServiceImpl) ListContacts(ctx context.Context, studentID int64) ([]*models.Contact, error) {
	if studentID <= 0 {
		return nil, apperrors.NewValidationError("studentId", "invalid student ID")
	}
	return s.contacts.ListByStudent(ctx, studentID)
}

func checkMobile(ctx context.Context, contacts ContactStore, mobile string, studentID int64, excludingID *int64) error {
	exists, err := contacts.MobileExistsForStudent(ctx, mobile, studentID, excludingID)
	if err != nil {
		return fmt.Errorf("error checking mobile number: %w", err)
	}
	if exists {
		return apperrors.ErrMobileAlreadyExists
	}
	return nil
}
