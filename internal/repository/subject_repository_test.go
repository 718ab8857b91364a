package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/attendance-api/internal/models"
)

func subjectRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "subject_id", "subject_code", "subject_name", "department",
		"section", "programme", "semester", "archived", "created_at",
	})
}

func TestSubjectRepositoryFindBySubjectIDSkipsArchived(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE subject_id = $1 AND NOT archived")).
		WithArgs("sub-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindBySubjectID(context.Background(), "sub-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryExistsCoversArchived(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	// No archived filter: identifiers stay reserved even after archival.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM subjects WHERE subject_id = $1")).
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), "sub-1")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryCreateAssignsInitialFaculty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subjects")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subject_faculty")).
		WithArgs(sqlmock.AnyArg(), "fac-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	subject := &models.Subject{
		SubjectID:   "sub-1",
		SubjectCode: "CS301",
		SubjectName: "Networks",
		Department:  "CSE",
		Section:     "A",
		Programme:   "BTech",
		Semester:    "6",
	}
	require.NoError(t, repo.Create(context.Background(), subject, "fac-1"))
	require.NotEmpty(t, subject.ID)
	require.False(t, subject.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryDeleteRequiresArchived(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subjects WHERE subject_id = $1 AND archived")).
		WithArgs("sub-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "sub-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryListByFaculty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	rows := subjectRows().
		AddRow("pk-1", "sub-1", "CS301", "Networks", "CSE", "A", "BTech", "6", false, time.Now()).
		AddRow("pk-2", "sub-2", "CS302", "Databases", "CSE", "A", "BTech", "6", false, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("JOIN subject_faculty sf ON sf.subject_id = s.id")).
		WithArgs("fac-1").
		WillReturnRows(rows)

	subjects, err := repo.ListByFaculty(context.Background(), "fac-1")
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	require.Equal(t, "sub-1", subjects[0].SubjectID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryIsStudentEnrolled(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM subject_students WHERE subject_id = $1 AND user_id = $2")).
		WithArgs("pk-1", "stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	enrolled, err := repo.IsStudentEnrolled(context.Background(), "pk-1", "stu-1")
	require.NoError(t, err)
	require.True(t, enrolled)
	require.NoError(t, mock.ExpectationsWereMet())
}
