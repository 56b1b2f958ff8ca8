package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yigit/studentinfo/internal/app/models"
)

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, escapeLike(`c:\dir`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

func TestMappingTargetsFollowColumns(t *testing.T) {
	var s models.Student
	targets := studentMapping.targets(&s)

	assert.Len(t, targets, len(studentMapping.Columns()))
	assert.Equal(t, "id", studentMapping.Columns()[0])
	assert.Same(t, &s.ID, targets[0])
	assert.Same(t, &s.IdentityDocRef, targets[5])
}

func TestMappedTablesCoverBothTables(t *testing.T) {
	tables := mappedTables()

	assert.Contains(t, tables["students"], "aadhar_number")
	assert.Contains(t, tables["contacts"], "mobile_number")
	assert.NotContains(t, tables["contacts"], "updated_at")
}
