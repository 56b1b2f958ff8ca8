package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/studentinfo/internal/app/models"
	"github.com/yigit/studentinfo/internal/db"
	"github.com/yigit/studentinfo/internal/pkg/apperrors"
	"github.com/yigit/studentinfo/internal/pkg/dberrors"
	"github.com/yigit/studentinfo/internal/pkg/logger"
)

const studentAadharConstraint = "students_aadhar_number_key"

// StudentRepository handles student database operations
type StudentRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewStudentRepository creates a new StudentRepository over a pool or a transaction
func NewStudentRepository(q db.Querier) *StudentRepository {
	return &StudentRepository{
		db: q,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// dbFailure wraps an unclassified driver error
func dbFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", apperrors.ErrTransactionFailure, op, err)
}

// Create inserts a student and fills in its system-assigned fields
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) (int64, error) {
	exists, err := r.AadharExists(ctx, student.AadharNumber, nil)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, apperrors.ErrAadharAlreadyExists
	}

	sql, args, err := r.sb.Insert(studentMapping.table).
		Columns("name", "father_name", "aadhar_number", "profile_photo_ref", "identity_doc_ref").
		Values(student.Name, student.FatherName, student.AadharNumber, student.ProfilePhotoRef, student.IdentityDocRef).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create student query: %w", err)
	}

	err = r.db.QueryRow(ctx, sql, args...).Scan(&student.ID, &student.CreatedAt, &student.UpdatedAt)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, studentAadharConstraint) {
			return 0, apperrors.ErrAadharAlreadyExists
		}
		logger.Error().Err(err).Msg("Error executing create student query")
		return 0, dbFailure("error creating student", err)
	}

	return student.ID, nil
}

// GetByID retrieves a student by ID
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate retrieves a student and locks its row until the surrounding transaction ends
func (r *StudentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Student, error) {
	return r.getByID(ctx, id, true)
}

func (r *StudentRepository) getByID(ctx context.Context, id int64, lock bool) (*models.Student, error) {
	query := r.sb.Select(studentMapping.Columns()...).
		From(studentMapping.table).
		Where(squirrel.Eq{"id": id})
	if lock {
		query = query.Suffix("FOR UPDATE")
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get student query: %w", err)
	}

	student, err := studentMapping.scan(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		logger.Error().Err(err).Int64("studentID", id).Msg("Error scanning student row")
		return nil, dbFailure("error getting student by ID", err)
	}

	return student, nil
}

// ListAll retrieves every student, most recently created first
func (r *StudentRepository) ListAll(ctx context.Context) ([]*models.Student, error) {
	return r.list(ctx, nil)
}

// Search retrieves students whose name, father name or aadhar number contains keyword,
// ignoring case. An empty keyword matches every student.
func (r *StudentRepository) Search(ctx context.Context, keyword string) ([]*models.Student, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return r.ListAll(ctx)
	}

	pattern := "%" + escapeLike(keyword) + "%"
	return r.list(ctx, squirrel.Or{
		squirrel.ILike{"name": pattern},
		squirrel.ILike{"father_name": pattern},
		squirrel.ILike{"aadhar_number": pattern},
	})
}

func (r *StudentRepository) list(ctx context.Context, where squirrel.Sqlizer) ([]*models.Student, error) {
	query := r.sb.Select(studentMapping.Columns()...).
		From(studentMapping.table).
		OrderBy("created_at DESC", "id DESC")
	if where != nil {
		query = query.Where(where)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list students query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list students query")
		return nil, dbFailure("error querying students", err)
	}

	students, err := studentMapping.scanAll(rows)
	if err != nil {
		return nil, dbFailure("error scanning student rows", err)
	}
	return students, nil
}

// Update writes the student's fields. Without replaceArtifacts the artifact refs are left as stored;
// with it they are overwritten by the supplied values, nil clearing the column.
// It returns the number of affected rows, 0 when the student does not exist.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student, replaceArtifacts bool) (int64, error) {
	set := map[string]interface{}{
		"name":          student.Name,
		"father_name":   student.FatherName,
		"aadhar_number": student.AadharNumber,
		"updated_at":    squirrel.Expr("now()"),
	}
	if replaceArtifacts {
		set["profile_photo_ref"] = student.ProfilePhotoRef
		set["identity_doc_ref"] = student.IdentityDocRef
	}

	sql, args, err := r.sb.Update(studentMapping.table).
		SetMap(set).
		Where(squirrel.Eq{"id": student.ID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build update student query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, studentAadharConstraint) {
			return 0, apperrors.ErrAadharAlreadyExists
		}
		logger.Error().Err(err).Int64("studentID", student.ID).Msg("Error executing update student query")
		return 0, dbFailure("error updating student", err)
	}

	return tag.RowsAffected(), nil
}

// Delete deletes a student by ID and returns the number of affected rows
func (r *StudentRepository) Delete(ctx context.Context, id int64) (int64, error) {
	sql, args, err := r.sb.Delete(studentMapping.table).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete student query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("studentID", id).Msg("Error executing delete student query")
		return 0, dbFailure("error deleting student", err)
	}

	return tag.RowsAffected(), nil
}

// AadharExists checks whether another student already holds the aadhar number.
// excludingID, when set, ignores that student so an update may keep its own number.
func (r *StudentRepository) AadharExists(ctx context.Context, aadharNumber string, excludingID *int64) (bool, error) {
	query := r.sb.Select("1").
		Prefix("SELECT EXISTS (").
		From(studentMapping.table).
		Where(squirrel.Eq{"aadhar_number": aadharNumber}).
		Suffix(")")
	if excludingID != nil {
		query = query.Where(squirrel.NotEq{"id": *excludingID})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build aadhar check query: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, dbFailure("error checking aadhar number", err)
	}

	return exists, nil
}

// ListArtifactRefs returns every artifact ref stored in the students table
func (r *StudentRepository) ListArtifactRefs(ctx context.Context) ([]string, error) {
	sql, args, err := r.sb.Select("profile_photo_ref", "identity_doc_ref").
		From(studentMapping.table).
		Where(squirrel.Or{
			squirrel.NotEq{"profile_photo_ref": nil},
			squirrel.NotEq{"identity_doc_ref": nil},
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build artifact refs query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, dbFailure("error querying artifact refs", err)
	}
	defer rows.Close()

	refs := []string{}
	for rows.Next() {
		var photo, doc *string
		if err := rows.Scan(&photo, &doc); err != nil {
			return nil, dbFailure("error scanning artifact refs", err)
		}
		if photo != nil {
			refs = append(refs, *photo)
		}
		if doc != nil {
			refs = append(refs, *doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, dbFailure("error iterating artifact refs", err)
	}

	return refs, nil
}

// Count returns the number of students
func (r *StudentRepository) Count(ctx context.Context) (int64, error) {
	sql, args, err := r.sb.Select("COUNT(*)").From(studentMapping.table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count students query: %w", err)
	}

	var count int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, dbFailure("error counting students", err)
	}
	return count, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in s match literally
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
