package dberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	unique := &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "students_aadhar_number_key"}
	fk := &pgconn.PgError{Code: CodeForeignKeyViolation, ConstraintName: "contacts_student_id_fkey"}
	check := &pgconn.PgError{Code: CodeCheckViolation, ConstraintName: "contacts_mobile_number_check"}
	wrapped := fmt.Errorf("insert failed: %w", unique)

	assert.True(t, IsDuplicateConstraintError(unique, "students_aadhar_number_key"))
	assert.True(t, IsDuplicateConstraintError(wrapped, "students_aadhar_number_key"))
	assert.False(t, IsDuplicateConstraintError(unique, "other_key"))
	assert.False(t, IsDuplicateConstraintError(fk, "contacts_student_id_fkey"))

	assert.True(t, IsForeignKeyError(fk, ""))
	assert.True(t, IsForeignKeyError(fk, "contacts_student_id_fkey"))
	assert.False(t, IsForeignKeyError(fk, "other_fkey"))
	assert.False(t, IsForeignKeyError(unique, ""))

	assert.True(t, IsCheckViolation(check))
	assert.False(t, IsCheckViolation(unique))

	plain := errors.New("connection refused")
	assert.False(t, IsDuplicateConstraintError(plain, "students_aadhar_number_key"))
	assert.False(t, IsForeignKeyError(plain, ""))
	assert.False(t, IsCheckViolation(plain))
}
