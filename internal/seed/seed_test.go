package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/studentinfo/internal/app/models"
	appServices "github.com/yigit/studentinfo/internal/app/services"
	"github.com/yigit/studentinfo/internal/pkg/apperrors"
)

type countingStudents struct {
	appServices.StudentService
	count  int64
	added  []string
	errFor map[string]error
}

func (c *countingStudents) CountStudents(context.Context) (int64, error) {
	return c.count, nil
}

func (c *countingStudents) AddStudent(_ context.Context, in appServices.StudentInput) (*models.Student, error) {
	if err := c.errFor[in.AadharNumber]; err != nil {
		return nil, err
	}
	c.added = append(c.added, in.AadharNumber)
	return &models.Student{Name: in.Name}, nil
}

func TestCreateSampleDataOnEmptyDatabase(t *testing.T) {
	students := &countingStudents{}

	require.NoError(t, CreateSampleData(context.Background(), students, zerolog.Nop()))
	assert.Equal(t, []string{"123456789012", "987654321098"}, students.added)
}

func TestCreateSampleDataSkipsPopulatedDatabase(t *testing.T) {
	students := &countingStudents{count: 1}

	require.NoError(t, CreateSampleData(context.Background(), students, zerolog.Nop()))
	assert.Empty(t, students.added)
}

func TestCreateSampleDataToleratesExistingSample(t *testing.T) {
	students := &countingStudents{errFor: map[string]error{"123456789012": apperrors.ErrAadharAlreadyExists}}

	require.NoError(t, CreateSampleData(context.Background(), students, zerolog.Nop()))
	assert.Equal(t, []string{"987654321098"}, students.added)
}

func TestCreateSampleDataJoinsFailures(t *testing.T) {
	boom := errors.New("db down")
	students := &countingStudents{errFor: map[string]error{"987654321098": boom}}

	err := CreateSampleData(context.Background(), students, zerolog.Nop())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"123456789012"}, students.added)
}
