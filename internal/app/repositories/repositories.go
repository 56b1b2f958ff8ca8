package repositories

import (
	"github.com/yigit/studentinfo/internal/db"
)

// Repositories holds all the repository instances bound to one Querier
type Repositories struct {
	StudentRepository *StudentRepository
	ContactRepository *ContactRepository
}

// NewRepositories initializes all repositories over a pool or a transaction
func NewRepositories(q db.Querier) *Repositories {
	return &Repositories{
		StudentRepository: NewStudentRepository(q),
		ContactRepository: NewContactRepository(q),
	}
}
