package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ucampus/portal-academico-api/internal/models"
)

func newCourseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func courseRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "code", "name", "credits", "capacity", "start_minutes", "end_minutes", "active", "created_at", "updated_at"}).
		AddRow("c1", "MAT101", "Matemáticas I", 4, 30, 540, 660, true, time.Now(), time.Now())
}

func TestCourseRepositoryList(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, name, credits, capacity, start_minutes, end_minutes, active, created_at, updated_at FROM courses WHERE active = TRUE ORDER BY code ASC LIMIT 20 OFFSET 0")).
		WillReturnRows(courseRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses WHERE active = TRUE")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	startsAfter := models.ClockMinutes(480)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE active = TRUE AND name ILIKE $1 AND credits >= $2 AND start_minutes >= $3 ORDER BY credits DESC")).
		WithArgs("%mate%", 3, 480).
		WillReturnRows(courseRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("%mate%", 3, 480).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.CourseFilter{
		Search:      "mate",
		MinCredits:  3,
		StartsAfter: &startsAfter,
		SortBy:      "credits",
		SortOrder:   "desc",
	})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, name, credits, capacity, start_minutes, end_minutes, active, created_at, updated_at FROM courses WHERE active = TRUE ORDER BY code ASC")).
		WillReturnRows(courseRows())

	list, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE id = $1")).
		WithArgs("c1").
		WillReturnRows(courseRows())

	course, err := repo.FindByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "MAT101", course.Code)
	assert.Equal(t, models.ClockMinutes(540), course.StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryExistsByCode(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM courses WHERE code = $1 LIMIT 1")).
		WithArgs("MAT101").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsByCode(context.Background(), "MAT101", "")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM courses WHERE code = $1 AND id <> $2 LIMIT 1")).
		WithArgs("MAT101", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	exists, err = repo.ExistsByCode(context.Background(), "MAT101", "c1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCreateAndSetActive(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO courses").
		WithArgs(sqlmock.AnyArg(), "MAT101", "Matemáticas I", 4, 30, 540, 660, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.Course{Code: "MAT101", Name: "Matemáticas I", Credits: 4, Capacity: 30, StartTime: 540, EndTime: 660, Active: true}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.NotEmpty(t, course.ID)

	mock.ExpectExec("UPDATE courses SET active").
		WithArgs("c1", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.SetActive(context.Background(), "c1", false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("UPDATE courses SET code").
		WithArgs("FIS201", "Física General", 3, 25, 690, 780, true, sqlmock.AnyArg(), "c2").
		WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.Course{ID: "c2", Code: "FIS201", Name: "Física General", Credits: 3, Capacity: 25, StartTime: 690, EndTime: 780, Active: true}
	require.NoError(t, repo.Update(context.Background(), course))
	assert.NoError(t, mock.ExpectationsWereMet())
}
