package services

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/yigit/studentinfo/internal/app/models"
	"github.com/yigit/studentinfo/internal/app/repositories"
	"github.com/yigit/studentinfo/internal/db"
)

// StudentStore is the persistence surface the services need for students.
// *repositories.StudentRepository implements it over a pool or a transaction.
type StudentStore interface {
	Create(ctx context.Context, student *models.Student) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Student, error)
	ListAll(ctx context.Context) ([]*models.Student, error)
	Search(ctx context.Context, keyword string) ([]*models.Student, error)
	Update(ctx context.Context, student *models.Student, replaceArtifacts bool) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	AadharExists(ctx context.Context, aadharNumber string, excludingID *int64) (bool, error)
	ListArtifactRefs(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

// ContactStore is the persistence surface the services need for contacts
type ContactStore interface {
	Create(ctx context.Context, contact *models.Contact) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Contact, error)
	ListByStudent(ctx context.Context, studentID int64) ([]*models.Contact, error)
	Update(ctx context.Context, contact *models.Contact) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	DeleteAllForStudent(ctx context.Context, studentID int64) (int64, error)
	MobileExistsForStudent(ctx context.Context, mobileNumber string, studentID int64, excludingID *int64) (bool, error)
}

var (
	_ StudentStore = (*repositories.StudentRepository)(nil)
	_ ContactStore = (*repositories.ContactRepository)(nil)
)

// TxStores are stores bound to a single transaction
type TxStores struct {
	Students StudentStore
	Contacts ContactStore
}

// Transactor runs fn inside one database transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores TxStores) error) error
}

type pgTransactor struct {
	db *db.PostgresDB
}

// NewTransactor creates a Transactor backed by PostgreSQL transactions
func NewTransactor(database *db.PostgresDB) Transactor {
	return &pgTransactor{db: database}
}

func (t *pgTransactor) RunInTx(ctx context.Context, fn func(ctx context.Context, stores TxStores) error) error {
	return t.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		repos := repositories.NewRepositories(tx)
		return fn(ctx, TxStores{
			Students: repos.StudentRepository,
			Contacts: repos.ContactRepository,
		})
	})
}
