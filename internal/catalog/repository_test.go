package catalog

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var classCols = []string{"id", "name", "description", "duration_minutes", "difficulty", "category", "max_capacity", "equipment", "status", "created_at", "updated_at"}

func setupCatalogMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestRepository_CreateClass(t *testing.T) {
	repo, mock := setupCatalogMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO classes")).
		WithArgs("Spin", nil, 45, "Beginner", nil, 20, sqlmock.AnyArg(), "active").
		WillReturnRows(sqlmock.NewRows(classCols).
			AddRow(1, "Spin", nil, 45, "Beginner", nil, 20, "{bike,towel}", "active", now, now))

	c, err := repo.CreateClass(context.Background(), CreateClassRequest{
		Name: "Spin", DurationMinutes: 45, Difficulty: "Beginner", MaxCapacity: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, c.ID)
	assert.Equal(t, []string{"bike", "towel"}, []string(c.Equipment))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListClassesFilters(t *testing.T) {
	repo, mock := setupCatalogMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM classes WHERE status = $1 AND difficulty = $2 ORDER BY name ASC")).
		WithArgs("active", "Advanced").
		WillReturnRows(sqlmock.NewRows(classCols))

	classes, err := repo.ListClasses(context.Background(), ClassFilter{Status: "active", Difficulty: "Advanced"})
	require.NoError(t, err)
	assert.Empty(t, classes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteClassGuardedByActiveSlots(t *testing.T) {
	repo, mock := setupCatalogMock(t)

	mock.ExpectExec(regexp.QuoteMeta("SELECT 1 FROM schedule_slots WHERE class_id = $1 AND status = 'active'")).
		WithArgs(4).
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.DeleteClass(context.Background(), 4)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRepository_UnassignInstructor(t *testing.T) {
	repo, mock := setupCatalogMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM class_instructors WHERE class_id = $1 AND instructor_id = $2")).
		WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	removed, err := repo.UnassignInstructor(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, removed)
}
