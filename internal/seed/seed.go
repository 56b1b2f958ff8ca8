package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	appServices "github.com/yigit/studentinfo/internal/app/services"
	"github.com/yigit/studentinfo/internal/pkg/apperrors"
)

// SampleStudents are inserted into an empty database when sample data is enabled
var SampleStudents = []appServices.StudentInput{
	{Name: "John Doe", FatherName: "Robert Doe", AadharNumber: "123456789012"},
	{Name: "Jane Smith", FatherName: "William Smith", AadharNumber: "987654321098"},
}

// CreateSampleData adds the sample students when the students table is empty.
// A sample that already exists is skipped, so concurrent instances may seed at once.
func CreateSampleData(ctx context.Context, students appServices.StudentService, lgr zerolog.Logger) error {
	count, err := students.CountStudents(ctx)
	if err != nil {
		return fmt.Errorf("failed to count students: %w", err)
	}
	if count > 0 {
		lgr.Debug().Int64("students", count).Msg("Students present, skipping sample data")
		return nil
	}

	lgr.Info().Msg("Creating sample students...")
	var finalErr error
	for _, in := range SampleStudents {
		_, err := students.AddStudent(ctx, in)
		switch {
		case err == nil:
			lgr.Info().Str("name", in.Name).Msg("Sample student created")
		case errors.Is(err, apperrors.ErrAadharAlreadyExists):
			lgr.Debug().Str("name", in.Name).Msg("Sample student already exists")
		default:
			lgr.Error().Err(err).Str("name", in.Name).Msg("Error creating sample student")
			finalErr = errors.Join(finalErr, err)
		}
	}

	return finalErr
}
