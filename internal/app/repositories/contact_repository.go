package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/studentinfo/internal/app/models"
	"github.com/yigit/studentinfo/internal/db"
	"github.com/yigit/studentinfo/internal/pkg/apperrors"
	"github.com/yigit/studentinfo/internal/pkg/dberrors"
	"github.com/yigit/studentinfo/internal/pkg/logger"
)

const contactMobileConstraint = "contacts_mobile_student_key"

// ContactRepository handles contact database operations
type ContactRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewContactRepository creates a new ContactRepository over a pool or a transaction
func NewContactRepository(q db.Querier) *ContactRepository {
	return &ContactRepository{
		db: q,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a contact and fills in its system-assigned fields
func (r *ContactRepository) Create(ctx context.Context, contact *models.Contact) (int64, error) {
	exists, err := r.MobileExistsForStudent(ctx, contact.MobileNumber, contact.StudentID, nil)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, apperrors.ErrMobileAlreadyExists
	}

	sql, args, err := r.sb.Insert(contactMapping.table).
		Columns("student_id", "mobile_number", "city", "address").
		Values(contact.StudentID, contact.MobileNumber, contact.City, contact.Address).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create contact query: %w", err)
	}

	err = r.db.QueryRow(ctx, sql, args...).Scan(&contact.ID, &contact.CreatedAt)
	if err != nil {
		return 0, r.classify(err, "error creating contact")
	}

	return contact.ID, nil
}

// GetByID retrieves a contact by ID
func (r *ContactRepository) GetByID(ctx context.Context, id int64) (*models.Contact, error) {
	sql, args, err := r.sb.Select(contactMapping.Columns()...).
		From(contactMapping.table).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get contact query: %w", err)
	}

	contact, err := contactMapping.scan(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrContactNotFound
		}
		logger.Error().Err(err).Int64("contactID", id).Msg("Error scanning contact row")
		return nil, dbFailure("error getting contact by ID", err)
	}

	return contact, nil
}

// ListByStudent retrieves the contacts of a student, most recently created first
func (r *ContactRepository) ListByStudent(ctx context.Context, studentID int64) ([]*models.Contact, error) {
	sql, args, err := r.sb.Select(contactMapping.Columns()...).
		From(contactMapping.table).
		Where(squirrel.Eq{"student_id": studentID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list contacts query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("studentID", studentID).Msg("Error executing list contacts query")
		return nil, dbFailure("error querying contacts", err)
	}

	contacts, err := contactMapping.scanAll(rows)
	if err != nil {
		return nil, dbFailure("error scanning contact rows", err)
	}
	return contacts, nil
}

// Update writes the contact's mobile number, city and address. The owning student never changes.
// It returns the number of affected rows, 0 when the contact does not exist.
func (r *ContactRepository) Update(ctx context.Context, contact *models.Contact) (int64, error) {
	sql, args, err := r.sb.Update(contactMapping.table).
		SetMap(map[string]interface{}{
			"mobile_number": contact.MobileNumber,
			"city":          contact.City,
			"address":       contact.Address,
		}).
		Where(squirrel.Eq{"id": contact.ID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build update contact query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, r.classify(err, "error updating contact")
	}

	return tag.RowsAffected(), nil
}

// Delete deletes a contact by ID and returns the number of affected rows
func (r *ContactRepository) Delete(ctx context.Context, id int64) (int64, error) {
	return r.deleteWhere(ctx, squirrel.Eq{"id": id}, "error deleting contact")
}

// DeleteAllForStudent deletes every contact of a student and returns how many were removed
func (r *ContactRepository) DeleteAllForStudent(ctx context.Context, studentID int64) (int64, error) {
	return r.deleteWhere(ctx, squirrel.Eq{"student_id": studentID}, "error deleting student contacts")
}

func (r *ContactRepository) deleteWhere(ctx context.Context, where squirrel.Eq, op string) (int64, error) {
	sql, args, err := r.sb.Delete(contactMapping.table).Where(where).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete contact query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing delete contact query")
		return 0, dbFailure(op, err)
	}

	return tag.RowsAffected(), nil
}

// MobileExistsForStudent checks whether the student already has a contact with this mobile number.
// excludingID, when set, ignores that contact so an update may keep its own number.
func (r *ContactRepository) MobileExistsForStudent(ctx context.Context, mobileNumber string, studentID int64, excludingID *int64) (bool, error) {
	query := r.sb.Select("1").
		Prefix("SELECT EXISTS (").
		From(contactMapping.table).
		Where(squirrel.Eq{"mobile_number": mobileNumber, "student_id": studentID}).
		Suffix(")")
	if excludingID != nil {
		query = query.Where(squirrel.NotEq{"id": *excludingID})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build mobile check query: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, dbFailure("error checking mobile number", err)
	}

	return exists, nil
}

// classify maps constraint rejections on contacts to domain errors
func (r *ContactRepository) classify(err error, op string) error {
	switch {
	case dberrors.IsDuplicateConstraintError(err, contactMobileConstraint):
		return apperrors.ErrMobileAlreadyExists
	case dberrors.IsForeignKeyError(err, ""):
		return apperrors.ErrStudentNotFound
	case dberrors.IsCheckViolation(err):
		return apperrors.NewValidationError("mobileNumber", "mobileNumber must be exactly 10 digits")
	}
	logger.Error().Err(err).Msg("Error executing contact query")
	return dbFailure(op, err)
}
