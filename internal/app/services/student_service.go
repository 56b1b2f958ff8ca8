package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yigit/studentinfo/internal/app/models"
	"github.com/yigit/studentinfo/internal/pkg/apperrors"
	"github.com/yigit/studentinfo/internal/pkg/filestorage"
	"github.com/yigit/studentinfo/internal/pkg/metrics"
	"github.com/yigit/studentinfo/internal/pkg/validation"
)

// ArtifactUpload is an uploaded file to be kept in the artifact store
type ArtifactUpload struct {
	Content  io.Reader
	Filename string
}

// StudentInput carries the fields of a student create or update.
// On update a nil or empty upload keeps the current artifact unless the matching Clear flag is set.
type StudentInput struct {
	Name         string `json:"name" validate:"notblank,max=100"`
	FatherName   string `json:"fatherName" validate:"notblank,max=100"`
	AadharNumber string `json:"aadharNumber" validate:"notblank,max=12"`

	ProfilePhoto *ArtifactUpload `json:"-" validate:"-"`
	IdentityDoc  *ArtifactUpload `json:"-" validate:"-"`

	ClearProfilePhoto bool `json:"clearProfilePhoto"`
	ClearIdentityDoc  bool `json:"clearIdentityDoc"`
}

func (in *StudentInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.FatherName = strings.TrimSpace(in.FatherName)
	in.AadharNumber = strings.TrimSpace(in.AadharNumber)
}

// dropEmptyUploads turns uploads without content into no upload, so an empty file part
// never replaces a stored artifact.
func (in *StudentInput) dropEmptyUploads() error {
	var err error
	if in.ProfilePhoto, err = nonEmpty(in.ProfilePhoto); err != nil {
		return err
	}
	in.IdentityDoc, err = nonEmpty(in.IdentityDoc)
	return err
}

func nonEmpty(u *ArtifactUpload) (*ArtifactUpload, error) {
	if u == nil || u.Content == nil {
		return nil, nil
	}
	br := bufio.NewReader(u.Content)
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to read upload %s: %w", apperrors.ErrIOFailure, u.Filename, err)
	}
	return &ArtifactUpload{Content: br, Filename: u.Filename}, nil
}

func (in *StudentInput) filesChanged() bool {
	return in.ProfilePhoto != nil || in.IdentityDoc != nil || in.ClearProfilePhoto || in.ClearIdentityDoc
}

// StudentService defines the interface for student operations. It keeps student rows,
// their contacts and their stored artifacts consistent with each other.
type StudentService interface {
	AddStudent(ctx context.Context, in StudentInput) (*models.Student, error)
	UpdateStudent(ctx context.Context, id int64, in StudentInput) (*models.Student, error)
	DeleteStudent(ctx context.Context, id int64) error
	GetStudent(ctx context.Context, id int64) (*models.Student, error)
	ListStudents(ctx context.Context) ([]*models.Student, error)
	SearchStudents(ctx context.Context, keyword string) ([]*models.Student, error)
	CountStudents(ctx context.Context) (int64, error)
}

// studentServiceImpl implements the StudentService interface
type studentServiceImpl struct {
	students StudentStore
	tx       Transactor
	store    filestorage.ArtifactStore
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewStudentService creates a new student service instance. students serves reads outside
// transactions; writes go through tx.
func NewStudentService(
	students StudentStore,
	tx Transactor,
	store filestorage.ArtifactStore,
	m *metrics.Metrics,
	lgr zerolog.Logger,
) StudentService {
	return &studentServiceImpl{
		students: students,
		tx:       tx,
		store:    store,
		metrics:  m,
		logger:   lgr.With().Str("component", "student_service").Logger(),
	}
}

// AddStudent stores the uploaded artifacts and then inserts the row referencing them.
// If the insert fails the artifacts are removed again, best effort.
func (s *studentServiceImpl) AddStudent(ctx context.Context, in StudentInput) (*models.Student, error) {
	defer s.metrics.ObserveOperation("add_student", time.Now())

	in.normalize()
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if err := in.dropEmptyUploads(); err != nil {
		return nil, err
	}

	if err := s.checkAadhar(ctx, in.AadharNumber, nil); err != nil {
		return nil, err
	}

	refs, err := s.storeArtifacts(ctx, in.ProfilePhoto, in.IdentityDoc)
	if err != nil {
		return nil, err
	}

	student := &models.Student{
		Name:            in.Name,
		FatherName:      in.FatherName,
		AadharNumber:    in.AadharNumber,
		ProfilePhotoRef: refs[0],
		IdentityDocRef:  refs[1],
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, stores TxStores) error {
		_, err := stores.Students.Create(ctx, student)
		return err
	})
	if err != nil {
		s.discard(ctx, derefAll(refs), metrics.OrphanRowWriteFailed)
		return nil, fmt.Errorf("failed to create student: %w", err)
	}

	s.logger.Info().Int64("studentID", student.ID).Msg("Student created")
	return student, nil
}

// UpdateStudent changes the student's fields and, when files changed, swaps its artifacts.
// New artifacts are stored before the row points at them and old ones are removed only after
// the row stopped pointing at them, so the row never references a missing artifact.
func (s *studentServiceImpl) UpdateStudent(ctx context.Context, id int64, in StudentInput) (*models.Student, error) {
	defer s.metrics.ObserveOperation("update_student", time.Now())

	if id <= 0 {
		return nil, apperrors.NewValidationError("id", "invalid student ID")
	}
	in.normalize()
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if err := in.dropEmptyUploads(); err != nil {
		return nil, err
	}

	if err := s.checkAadhar(ctx, in.AadharNumber, &id); err != nil {
		return nil, err
	}
	if _, err := s.students.GetByID(ctx, id); err != nil {
		return nil, err
	}

	if !in.filesChanged() {
		return s.updateFields(ctx, id, in)
	}

	refs, err := s.storeArtifacts(ctx, in.ProfilePhoto, in.IdentityDoc)
	if err != nil {
		return nil, err
	}

	var updated *models.Student
	var obsolete []string
	err = s.tx.RunInTx(ctx, func(ctx context.Context, stores TxStores) error {
		obsolete = nil

		current, err := stores.Students.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		next := *current
		next.Name, next.FatherName, next.AadharNumber = in.Name, in.FatherName, in.AadharNumber

		var old *string
		next.ProfilePhotoRef, old = resolveRef(current.ProfilePhotoRef, refs[0], in.ClearProfilePhoto)
		obsolete = appendRef(obsolete, old)
		next.IdentityDocRef, old = resolveRef(current.IdentityDocRef, refs[1], in.ClearIdentityDoc)
		obsolete = appendRef(obsolete, old)

		affected, err := stores.Students.Update(ctx, &next, true)
		if err != nil {
			return err
		}
		if affected == 0 {
			return apperrors.ErrStudentNotFound
		}

		updated, err = stores.Students.GetByID(ctx, id)
		return err
	})
	if err != nil {
		s.discard(ctx, derefAll(refs), metrics.OrphanRowWriteFailed)
		return nil, fmt.Errorf("failed to update student: %w", err)
	}

	s.discard(ctx, obsolete, metrics.OrphanReplaced)

	s.logger.Info().Int64("studentID", id).Int("replaced", len(obsolete)).Msg("Student updated")
	return updated, nil
}

// updateFields updates the row only; artifact refs stay as stored
func (s *studentServiceImpl) updateFields(ctx context.Context, id int64, in StudentInput) (*models.Student, error) {
	var updated *models.Student
	err := s.tx.RunInTx(ctx, func(ctx context.Context, stores TxStores) error {
		affected, err := stores.Students.Update(ctx, &models.Student{
			ID:           id,
			Name:         in.Name,
			FatherName:   in.FatherName,
			AadharNumber: in.AadharNumber,
		}, false)
		if err != nil {
			return err
		}
		if affected == 0 {
			return apperrors.ErrStudentNotFound
		}

		updated, err = stores.Students.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update student: %w", err)
	}

	s.logger.Info().Int64("studentID", id).Msg("Student updated")
	return updated, nil
}

// DeleteStudent deletes the student's contacts, then the student, then its artifacts.
// Artifacts that cannot be removed after the commit are logged as orphans; the delete still succeeds.
func (s *studentServiceImpl) DeleteStudent(ctx context.Context, id int64) error {
	defer s.metrics.ObserveOperation("delete_student", time.Now())

	if id <= 0 {
		return apperrors.NewValidationError("id", "invalid student ID")
	}

	var refs []string
	var contacts int64
	err := s.tx.RunInTx(ctx, func(ctx context.Context, stores TxStores) error {
		student, err := stores.Students.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		contacts, err = stores.Contacts.DeleteAllForStudent(ctx, id)
		if err != nil {
			return err
		}

		affected, err := stores.Students.Delete(ctx, id)
		if err != nil {
			return err
		}
		if affected == 0 {
			return apperrors.ErrStudentNotFound
		}

		refs = student.ArtifactRefs()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}

	s.discard(ctx, refs, metrics.OrphanRowDeleted)

	s.logger.Info().Int64("studentID", id).Int64("contacts", contacts).Int("artifacts", len(refs)).Msg("Student deleted")
	return nil
}

// GetStudent retrieves a student by ID
func (s *studentServiceImpl) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	if id <= 0 {
		return nil, apperrors.NewValidationError("id", "invalid student ID")
	}
	return s.students.GetByID(ctx, id)
}

// ListStudents retrieves all students, most recently created first
func (s *studentServiceImpl) ListStudents(ctx context.Context) ([]*models.Student, error) {
	return s.students.ListAll(ctx)
}

// SearchStudents retrieves students matching keyword, most recently created first
func (s *studentServiceImpl) SearchStudents(ctx context.Context, keyword string) ([]*models.Student, error) {
	return s.students.Search(ctx, keyword)
}

// CountStudents returns the number of students
func (s *studentServiceImpl) CountStudents(ctx context.Context) (int64, error) {
	return s.students.Count(ctx)
}

func (s *studentServiceImpl) checkAadhar(ctx context.Context, aadharNumber string, excludingID *int64) error {
	exists, err := s.students.AadharExists(ctx, aadharNumber, excludingID)
	if err != nil {
		return fmt.Errorf("error checking aadhar number: %w", err)
	}
	if exists {
		return apperrors.ErrAadharAlreadyExists
	}
	return nil
}

// storeArtifacts stores the non-nil uploads concurrently. The result has one entry per upload,
// nil where no upload was given. If any store fails the others are removed again.
func (s *studentServiceImpl) storeArtifacts(ctx context.Context, uploads ...*ArtifactUpload) ([]*string, error) {
	refs := make([]*string, len(uploads))

	g, gctx := errgroup.WithContext(ctx)
	for i, up := range uploads {
		if up == nil {
			continue
		}
		g.Go(func() error {
			ref, err := s.store.Store(gctx, up.Content, up.Filename)
			s.metrics.ArtifactStored(err)
			if err != nil {
				return fmt.Errorf("failed to store %q: %w", up.Filename, err)
			}
			refs[i] = &ref
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.discard(ctx, derefAll(refs), metrics.OrphanSiblingFailed)
		return nil, err
	}
	return refs, nil
}

// discard removes artifacts no row references any more. Failures are logged and counted as orphans.
func (s *studentServiceImpl) discard(ctx context.Context, refs []string, reason string) {
	ctx = context.WithoutCancel(ctx)
	for _, ref := range refs {
		err := s.store.Remove(ctx, ref)
		s.metrics.ArtifactRemoved(err)
		if err != nil {
			s.metrics.Orphaned(reason)
			s.logger.Warn().Err(err).Str("ref", ref).Str("reason", reason).Msg("Artifact left orphaned")
		}
	}
}

// resolveRef decides the ref a field ends up with and which ref, if any, it no longer uses.
// A new upload wins over a clear request.
func resolveRef(current, uploaded *string, clear bool) (next, obsolete *string) {
	switch {
	case uploaded != nil:
		return uploaded, current
	case clear:
		return nil, current
	default:
		return current, nil
	}
}

func appendRef(refs []string, ref *string) []string {
	if ref == nil {
		return refs
	}
	return append(refs, *ref)
}

func derefAll(refs []*string) []string {
	var out []string
	for _, ref := range refs {
		out = appendRef(out, ref)
	}
	return out
}
