package services_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/yigit/studentinfo/internal/app/models"
	"github.com/yigit/studentinfo/internal/app/services"
	"github.com/yigit/studentinfo/internal/pkg/apperrors"
	"github.com/yigit/studentinfo/internal/pkg/filestorage"
	"github.com/yigit/studentinfo/internal/pkg/metrics"
)

// memDB is an in-memory stand-in for the two tables. Transactions snapshot the maps and
// restore them on failure.
type memDB struct {
	txMu sync.Mutex
	mu   sync.Mutex

	students    map[int64]models.Student
	contacts    map[int64]models.Contact
	nextStudent int64
	nextContact int64
	clock       time.Time

	// injected failures
	failStudentCreate error
	failStudentUpdate error
	failCommit        error
}

func newMemDB() *memDB {
	return &memDB{
		students: map[int64]models.Student{},
		contacts: map[int64]models.Contact{},
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

type memSnapshot struct {
	students    map[int64]models.Student
	contacts    map[int64]models.Contact
	nextStudent int64
	nextContact int64
}

func (d *memDB) snapshot() memSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	snap := memSnapshot{
		students:    make(map[int64]models.Student, len(d.students)),
		contacts:    make(map[int64]models.Contact, len(d.contacts)),
		nextStudent: d.nextStudent,
		nextContact: d.nextContact,
	}
	for k, v := range d.students {
		snap.students[k] = v
	}
	for k, v := range d.contacts {
		snap.contacts[k] = v
	}
	return snap
}

func (d *memDB) restore(snap memSnapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.students = snap.students
	d.contacts = snap.contacts
	d.nextStudent = snap.nextStudent
	d.nextContact = snap.nextContact
}

func (d *memDB) tick() time.Time {
	d.clock = d.clock.Add(time.Second)
	return d.clock
}

func (d *memDB) student(id int64) (models.Student, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.students[id]
	return s, ok
}

func (d *memDB) contactCount(studentID int64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.contacts {
		if c.StudentID == studentID {
			n++
		}
	}
	return n
}

// memStudents implements services.StudentStore
type memStudents struct{ db *memDB }

func (m memStudents) Create(_ context.Context, s *models.Student) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.failStudentCreate != nil {
		return 0, m.db.failStudentCreate
	}
	for _, existing := range m.db.students {
		if existing.AadharNumber == s.AadharNumber {
			return 0, apperrors.ErrAadharAlreadyExists
		}
	}
	m.db.nextStudent++
	s.ID = m.db.nextStudent
	s.CreatedAt = m.db.tick()
	s.UpdatedAt = s.CreatedAt
	m.db.students[s.ID] = *s
	return s.ID, nil
}

func (m memStudents) GetByID(_ context.Context, id int64) (*models.Student, error) {
	s, ok := m.db.student(id)
	if !ok {
		return nil, apperrors.ErrStudentNotFound
	}
	return &s, nil
}

func (m memStudents) GetByIDForUpdate(ctx context.Context, id int64) (*models.Student, error) {
	return m.GetByID(ctx, id)
}

func (m memStudents) ListAll(ctx context.Context) ([]*models.Student, error) {
	return m.filter(func(*models.Student) bool { return true }), nil
}

func (m memStudents) Search(_ context.Context, keyword string) ([]*models.Student, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	return m.filter(func(s *models.Student) bool {
		return strings.Contains(strings.ToLower(s.Name), keyword) ||
			strings.Contains(strings.ToLower(s.FatherName), keyword) ||
			strings.Contains(strings.ToLower(s.AadharNumber), keyword)
	}), nil
}

func (m memStudents) filter(keep func(*models.Student) bool) []*models.Student {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []*models.Student{}
	for _, s := range m.db.students {
		s := s
		if keep(&s) {
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m memStudents) Update(_ context.Context, s *models.Student, replaceArtifacts bool) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.failStudentUpdate != nil {
		return 0, m.db.failStudentUpdate
	}
	current, ok := m.db.students[s.ID]
	if !ok {
		return 0, nil
	}
	for id, existing := range m.db.students {
		if id != s.ID && existing.AadharNumber == s.AadharNumber {
			return 0, apperrors.ErrAadharAlreadyExists
		}
	}
	current.Name, current.FatherName, current.AadharNumber = s.Name, s.FatherName, s.AadharNumber
	if replaceArtifacts {
		current.ProfilePhotoRef, current.IdentityDocRef = s.ProfilePhotoRef, s.IdentityDocRef
	}
	current.UpdatedAt = m.db.tick()
	m.db.students[s.ID] = current
	return 1, nil
}

func (m memStudents) Delete(_ context.Context, id int64) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.students[id]; !ok {
		return 0, nil
	}
	delete(m.db.students, id)
	return 1, nil
}

func (m memStudents) AadharExists(_ context.Context, aadhar string, excludingID *int64) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for id, s := range m.db.students {
		if s.AadharNumber == aadhar && (excludingID == nil || *excludingID != id) {
			return true, nil
		}
	}
	return false, nil
}

func (m memStudents) ListArtifactRefs(_ context.Context) ([]string, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	refs := []string{}
	for _, s := range m.db.students {
		refs = append(refs, s.ArtifactRefs()...)
	}
	return refs, nil
}

func (m memStudents) Count(_ context.Context) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return int64(len(m.db.students)), nil
}

// memContacts implements services.ContactStore
type memContacts struct{ db *memDB }

func (m memContacts) Create(_ context.Context, c *models.Contact) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.students[c.StudentID]; !ok {
		return 0, apperrors.ErrStudentNotFound
	}
	for _, existing := range m.db.contacts {
		if existing.StudentID == c.StudentID && existing.MobileNumber == c.MobileNumber {
			return 0, apperrors.ErrMobileAlreadyExists
		}
	}
	m.db.nextContact++
	c.ID = m.db.nextContact
	c.CreatedAt = m.db.tick()
	m.db.contacts[c.ID] = *c
	return c.ID, nil
}

func (m memContacts) GetByID(_ context.Context, id int64) (*models.Contact, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c, ok := m.db.contacts[id]
	if !ok {
		return nil, apperrors.ErrContactNotFound
	}
	return &c, nil
}

func (m memContacts) ListByStudent(_ context.Context, studentID int64) ([]*models.Contact, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []*models.Contact{}
	for _, c := range m.db.contacts {
		c := c
		if c.StudentID == studentID {
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m memContacts) Update(_ context.Context, c *models.Contact) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	current, ok := m.db.contacts[c.ID]
	if !ok {
		return 0, nil
	}
	for id, existing := range m.db.contacts {
		if id != c.ID && existing.StudentID == current.StudentID && existing.MobileNumber == c.MobileNumber {
			return 0, apperrors.ErrMobileAlreadyExists
		}
	}
	current.MobileNumber, current.City, current.Address = c.MobileNumber, c.City, c.Address
	m.db.contacts[c.ID] = current
	return 1, nil
}

func (m memContacts) Delete(_ context.Context, id int64) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.contacts[id]; !ok {
		return 0, nil
	}
	delete(m.db.contacts, id)
	return 1, nil
}

func (m memContacts) DeleteAllForStudent(_ context.Context, studentID int64) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var n int64
	for id, c := range m.db.contacts {
		if c.StudentID == studentID {
			delete(m.db.contacts, id)
			n++
		}
	}
	return n, nil
}

func (m memContacts) MobileExistsForStudent(_ context.Context, mobile string, studentID int64, excludingID *int64) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for id, c := range m.db.contacts {
		if c.StudentID == studentID && c.MobileNumber == mobile && (excludingID == nil || *excludingID != id) {
			return true, nil
		}
	}
	return false, nil
}

// memTransactor serializes transactions and rolls the maps back when fn fails
type memTransactor struct{ db *memDB }

func (t memTransactor) RunInTx(ctx context.Context, fn func(ctx context.Context, stores services.TxStores) error) error {
	t.db.txMu.Lock()
	defer t.db.txMu.Unlock()

	snap := t.db.snapshot()
	err := fn(ctx, services.TxStores{Students: memStudents{t.db}, Contacts: memContacts{t.db}})
	if err == nil && t.db.failCommit != nil {
		err = fmt.Errorf("%w: commit: %w", apperrors.ErrTransactionFailure, t.db.failCommit)
	}
	if err != nil {
		t.db.restore(snap)
	}
	return err
}

// flakyStore is a real LocalStorage with injectable failures
type flakyStore struct {
	*filestorage.LocalStorage

	mu          sync.Mutex
	failStoreOf map[string]bool
	failRemove  bool
}

func (f *flakyStore) Store(ctx context.Context, content io.Reader, originalName string) (string, error) {
	f.mu.Lock()
	fail := f.failStoreOf[originalName]
	f.mu.Unlock()
	if fail {
		return "", fmt.Errorf("%w: no space left on device", apperrors.ErrIOFailure)
	}
	return f.LocalStorage.Store(ctx, content, originalName)
}

func (f *flakyStore) Remove(ctx context.Context, ref string) error {
	f.mu.Lock()
	fail := f.failRemove
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("%w: permission denied", apperrors.ErrIOFailure)
	}
	return f.LocalStorage.Remove(ctx, ref)
}

func (f *flakyStore) failStoring(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failStoreOf[name] = true
}

func (f *flakyStore) failRemoving(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRemove = fail
}

type harness struct {
	db         *memDB
	store      *flakyStore
	metrics    *metrics.Metrics
	students   services.StudentService
	contacts   services.ContactService
	reconciler services.ReconcileService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	local, err := filestorage.NewLocalStorage(t.TempDir(), 1<<20)
	require.NoError(t, err)

	db := newMemDB()
	store := &flakyStore{LocalStorage: local, failStoreOf: map[string]bool{}}
	m := metrics.New(prometheus.NewRegistry())
	lgr := zerolog.Nop()
	tx := memTransactor{db}

	return &harness{
		db:         db,
		store:      store,
		metrics:    m,
		students:   services.NewStudentService(memStudents{db}, tx, store, m, lgr),
		contacts:   services.NewContactService(memContacts{db}, tx, m, lgr),
		reconciler: services.NewReconcileService(memStudents{db}, store, m, lgr),
	}
}

// storedRefs lists the refs currently in the artifact store
func (h *harness) storedRefs(t *testing.T) []string {
	t.Helper()
	infos, err := h.store.List(context.Background())
	require.NoError(t, err)
	refs := make([]string, 0, len(infos))
	for _, info := range infos {
		refs = append(refs, info.Ref)
	}
	sort.Strings(refs)
	return refs
}

func (h *harness) exists(t *testing.T, ref string) bool {
	t.Helper()
	ok, err := h.store.Exists(context.Background(), ref)
	require.NoError(t, err)
	return ok
}

func upload(name, content string) *services.ArtifactUpload {
	return &services.ArtifactUpload{Content: strings.NewReader(content), Filename: name}
}
