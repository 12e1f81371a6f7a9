package sqlxrepos

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/payment"
	"github.com/manabi/lms/core/progress"
	"github.com/manabi/lms/core/user"
)

const (
	userID   = "6f1c7c1e-8f8f-4c55-9f43-0d3a1d2b9d11"
	courseID = "0b7d2f4e-1a3c-4e5f-8a9b-7c6d5e4f3a21"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func columns(cols string) []string {
	return strings.Split(cols, ", ")
}

func q(s string) string {
	return regexp.QuoteMeta(s)
}

func TestUserRepository_GetUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("SELECT "+userColumns+" FROM users WHERE email = $1")).
		WithArgs("amy@test.jp").
		WillReturnRows(sqlmock.NewRows(columns(userColumns)).
			AddRow(userID, "fb-1", "Amy", "amy@test.jp", user.RoleStudent, nil, true, now, now, nil))

	usr, err := repo.GetUser(context.Background(), user.GetFilter{Email: "amy@test.jp"})
	require.NoError(t, err)
	assert.Equal(t, user.User{
		ID: userID, FirebaseUID: "fb-1", Name: "Amy", Email: "amy@test.jp", Role: user.RoleStudent,
		IsActive: true, CreatedAt: now, UpdatedAt: now,
	}, usr)

	mock.ExpectQuery(q("FROM users WHERE firebase_uid = $1")).
		WithArgs("fb-2").
		WillReturnRows(sqlmock.NewRows(columns(userColumns)))
	_, err = repo.GetUser(context.Background(), user.GetFilter{FirebaseUID: "fb-2"})
	assert.Equal(t, user.ErrNotFound, err)

	// malformed ids never reach the database
	_, err = repo.GetUser(context.Background(), user.GetFilter{ID: "42"})
	assert.Equal(t, user.ErrNotFound, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateUser_duplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(q("INSERT INTO users")).WillReturnError(&pq.Error{Code: uniqueViolation})

	_, err := repo.CreateUser(context.Background(), user.User{Name: "Amy", Email: "amy@test.jp", Role: user.RoleStudent})
	assert.Equal(t, user.ErrEmailExists, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_QueryUsers(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	now := time.Now().UTC()
	active := true

	mock.ExpectQuery(q("SELECT COUNT(*) FROM users WHERE (name ILIKE $1 OR email ILIKE $2) AND is_active = $3")).
		WithArgs("%am%", "%am%", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(q("SELECT "+userColumns+" FROM users WHERE (name ILIKE $1 OR email ILIKE $2) AND is_active = $3 ORDER BY name ASC LIMIT $4 OFFSET $5")).
		WithArgs("%am%", "%am%", true, 2, 2).
		WillReturnRows(sqlmock.NewRows(columns(userColumns)).
			AddRow(userID, nil, "Sam", "sam@test.jp", user.RoleInstructor, "U1", true, now, now, now))

	users, total, err := repo.QueryUsers(
		context.Background(),
		user.QueryFilter{Search: "am", IsActive: &active},
		core.Pagination{Page: 2, PageSize: 2},
		core.DBOrdering{Field: "name", Ascending: true},
	)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, users, 1)
	assert.Equal(t, "Sam", users[0].Name)
	assert.Equal(t, "U1", users[0].LineUserID)
	assert.NotNil(t, users[0].LastLogin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressRepository_SaveLessonProgress(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProgressRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(q("INSERT INTO lesson_progress")).
		WillReturnRows(sqlmock.NewRows(columns(progressColumns)).
			AddRow("p1", userID, courseID, "l1", true, 120, now, now))

	lp, err := repo.SaveLessonProgress(context.Background(), progress.LessonProgress{
		UserID: userID, CourseID: courseID, LessonID: "l1", WatchPositionSeconds: 120, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", lp.ID)
	assert.True(t, lp.Completed) // kept by the upsert
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressRepository_RecordActivity(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProgressRepository(db)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.FixedZone("JST", 9*60*60))

	mock.ExpectExec(q("INSERT INTO learning_activity (user_id, activity_date) VALUES ($1, $2) ON CONFLICT DO NOTHING")).
		WithArgs(userID, "2024-05-01").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RecordActivity(context.Background(), userID, day))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizRepository_GetQuiz(t *testing.T) {
	db, mock := newMock(t)
	repo := NewQuizRepository(db)
	now := time.Now().UTC()
	quizID := "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"

	mock.ExpectQuery(q("SELECT " + quizColumns + " FROM quizzes WHERE id = $1")).
		WithArgs(quizID).
		WillReturnRows(sqlmock.NewRows(columns(quizColumns)).
			AddRow(quizID, courseID, nil, "Basics", 60, 0,
				[]byte(`[{"id":"q1","prompt":"2+2?","choices":["3","4"],"correct_index":1,"points":2}]`), now, now))

	qz, err := repo.GetQuiz(context.Background(), quizID)
	require.NoError(t, err)
	require.Len(t, qz.Questions, 1)
	assert.Equal(t, []string{"3", "4"}, qz.Questions[0].Choices)
	require.NotNil(t, qz.Questions[0].CorrectIndex)
	assert.Equal(t, 1, *qz.Questions[0].CorrectIndex)
	assert.Equal(t, 2, qz.MaxScore())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_HasPaidOrder(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(q("SELECT EXISTS (SELECT 1 FROM orders WHERE user_id = $1 AND course_id = $2 AND status = $3)")).
		WithArgs(userID, courseID, payment.StatusPaid).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	paid, err := repo.HasPaidOrder(context.Background(), userID, courseID)
	require.NoError(t, err)
	assert.True(t, paid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_FindPendingOrder_notFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(q("FROM orders WHERE user_id = $1 AND course_id = $2 AND status = $3 ORDER BY created_at DESC LIMIT 1")).
		WithArgs(userID, courseID, payment.StatusPending).
		WillReturnRows(sqlmock.NewRows(columns(orderColumns)))

	_, err := repo.FindPendingOrder(context.Background(), userID, courseID)
	assert.Equal(t, payment.ErrNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
