package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manabi/lms/core/assignment"
	"github.com/manabi/lms/core/enrollment"
	"github.com/manabi/lms/core/progress"
	"github.com/manabi/lms/core/quiz"
	"github.com/manabi/lms/core/user"
	"github.com/manabi/lms/tests"
)

// Test_learningFlow walks a student through a free course: enrollment, progress,
// an assignment and the final quiz.
func Test_learningFlow(t *testing.T) {
	app, srv := setup(t)

	instr := testutil.CreateUser(t, app.UserRepo, "Instr", "instr@test.jp", user.RoleInstructor, true)
	rival := testutil.CreateUser(t, app.UserRepo, "Rival", "rival@test.jp", user.RoleInstructor, true)
	student := testutil.CreateUser(t, app.UserRepo, "Mio", "mio@test.jp", user.RoleStudent, true)
	c := testutil.CreateCourse(t, app.CourseRepo, instr.ID, "Go", 0, true)
	paid := testutil.CreateCourse(t, app.CourseRepo, instr.ID, "Pro Go", 3000, true)
	ch := testutil.CreateChapter(t, app.CourseRepo, c.ID, "Intro", 1)
	l1 := testutil.CreateLesson(t, app.CourseRepo, ch, "one", 1, false)
	l2 := testutil.CreateLesson(t, app.CourseRepo, ch, "two", 2, false)

	instrToken := app.Token(t, instr)
	rivalToken := app.Token(t, rival)
	studentToken := app.Token(t, student)

	// enrollment
	runHTTPTests(t, srv, []httpTest{
		{
			name: "enroll: paid course", method: http.MethodPost, path: "/api/enrollments", token: studentToken,
			body: []byte(`{"course_id":"` + paid.ID + `"}`), wantCode: http.StatusForbidden, wantErr: "payment required",
		},
		{
			name: "enroll: missing course", method: http.MethodPost, path: "/api/enrollments", token: studentToken,
			body: []byte(`{}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "progress: not enrolled", method: http.MethodPost, path: "/api/progress", token: studentToken,
			body: []byte(`{"lesson_id":"` + l1.ID + `"}`), wantCode: http.StatusForbidden,
		},
	})

	rec, env := do(t, srv, http.MethodPost, "/api/enrollments", studentToken, []byte(`{"course_id":"`+c.ID+`"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var e enrollment.Enrollment
	decode(t, env.Data, &e)
	assert.Equal(t, enrollment.StatusActive, e.Status)

	runHTTPTests(t, srv, []httpTest{
		{
			name: "enroll: twice", method: http.MethodPost, path: "/api/enrollments", token: studentToken,
			body: []byte(`{"course_id":"` + c.ID + `"}`), wantCode: http.StatusBadRequest, wantErr: "already enrolled",
		},
		{
			name: "enrollment: hidden from other instructors", method: http.MethodGet, path: "/api/enrollments/" + e.ID, token: rivalToken,
			wantCode: http.StatusNotFound, wantErr: "enrollment not found",
		},
		{
			name: "enrollment: students cannot change status", method: http.MethodPut, path: "/api/enrollments/" + e.ID + "/status",
			token: studentToken, body: []byte(`{"status":"completed"}`), wantCode: http.StatusForbidden,
		},
	})

	t.Run("enrollment listings", func(t *testing.T) {
		_, env := do(t, srv, http.MethodGet, "/api/enrollments", studentToken)
		assert.Equal(t, 1, decodePage(t, env.Data, nil).Total)

		_, env = do(t, srv, http.MethodGet, "/api/courses/"+c.ID+"/enrollments?status=active", instrToken)
		assert.Equal(t, 1, decodePage(t, env.Data, nil).Total)
	})

	t.Run("suspend and reactivate", func(t *testing.T) {
		path := "/api/enrollments/" + e.ID + "/status"
		rec, env := do(t, srv, http.MethodPut, path, instrToken, []byte(`{"status":"suspended"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got enrollment.Enrollment
		decode(t, env.Data, &got)
		assert.Equal(t, enrollment.StatusSuspended, got.Status)

		rec, _ = do(t, srv, http.MethodPost, "/api/progress", studentToken, []byte(`{"lesson_id":"`+l1.ID+`"}`))
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec, _ = do(t, srv, http.MethodPut, path, instrToken, []byte(`{"status":"active"}`))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("progress", func(t *testing.T) {
		rec, env := do(t, srv, http.MethodPost, "/api/progress", studentToken,
			[]byte(`{"lesson_id":"`+l1.ID+`","watch_position":120,"completed":true}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res progress.RecordResult
		decode(t, env.Data, &res)
		assert.True(t, res.Progress.Completed)
		assert.Equal(t, 120, res.Progress.WatchPositionSeconds)
		assert.Equal(t, 50, res.Enrollment.ProgressPercent)

		rec, _ = do(t, srv, http.MethodPost, "/api/progress", studentToken, []byte(`{"lesson_id":"`+l1.ID+`","watch_position":-1}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		_, env = do(t, srv, http.MethodGet, "/api/progress/courses/"+c.ID, studentToken)
		var cp progress.CourseProgress
		decode(t, env.Data, &cp)
		assert.Equal(t, 1, cp.CompletedLessons)
		assert.Equal(t, 2, cp.TotalLessons)

		_, env = do(t, srv, http.MethodGet, "/api/progress/streak", studentToken)
		var s progress.Streak
		decode(t, env.Data, &s)
		assert.Equal(t, 1, s.Current)
		assert.True(t, s.ActiveToday)
	})

	t.Run("assignment", func(t *testing.T) {
		rec, _ := do(t, srv, http.MethodPost, "/api/assignments", studentToken, []byte(`{"course_id":"`+c.ID+`","title":"Essay"}`))
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec, env := do(t, srv, http.MethodPost, "/api/assignments", instrToken,
			[]byte(`{"course_id":"`+c.ID+`","title":"Essay","max_score":10}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var a assignment.Assignment
		decode(t, env.Data, &a)

		_, env = do(t, srv, http.MethodGet, "/api/assignments?course_id="+c.ID, studentToken)
		assert.Equal(t, 1, decodePage(t, env.Data, nil).Total)

		subPath := "/api/assignments/" + a.ID + "/submissions"
		rec, env = do(t, srv, http.MethodPost, subPath, studentToken, []byte(`{"content":"draft"}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var s assignment.Submission
		decode(t, env.Data, &s)

		rec, _ = do(t, srv, http.MethodPost, subPath, studentToken, []byte(`{"content":"final"}`))
		assert.Equal(t, http.StatusOK, rec.Code)

		_, env = do(t, srv, http.MethodGet, subPath, instrToken)
		assert.Equal(t, 1, decodePage(t, env.Data, nil).Total)
		rec, _ = do(t, srv, http.MethodGet, subPath, rivalToken)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec, _ = do(t, srv, http.MethodGet, "/api/submissions/"+s.ID, rivalToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec, env = do(t, srv, http.MethodPut, "/api/submissions/"+s.ID, instrToken, []byte(`{"score":11,"status":"graded"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errMessage(t, env), "score cannot exceed the maximum score")

		rec, env = do(t, srv, http.MethodPut, "/api/submissions/"+s.ID, instrToken, []byte(`{"score":8,"feedback":"good","status":"graded"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, env.Data, &s)
		assert.Equal(t, assignment.StatusGraded, s.Status)
		assert.Equal(t, "final", s.Content)

		rec, env = do(t, srv, http.MethodPost, subPath, studentToken, []byte(`{"content":"v3"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errMessage(t, env), "submission already graded")

		_, env = do(t, srv, http.MethodGet, "/api/submissions?status=graded", studentToken)
		assert.Equal(t, 1, decodePage(t, env.Data, nil).Total)
	})

	t.Run("quiz completes the course", func(t *testing.T) {
		body := fmt.Sprintf(`{
			"course_id": %q, "lesson_id": %q, "title": "Final", "passing_percent": 50,
			"questions": [
				{"prompt": "Zero value of a map?", "choices": ["nil", "{}"], "correct_index": 0},
				{"prompt": "Channel close panics on?", "choices": ["closed channel", "nil slice"], "correct_index": 0}
			]
		}`, c.ID, l2.ID)
		rec, env := do(t, srv, http.MethodPost, "/api/quizzes", instrToken, []byte(body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var q quiz.Quiz
		decode(t, env.Data, &q)

		rec, env = do(t, srv, http.MethodGet, "/api/quizzes/"+q.ID, studentToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, string(env.Data), "correct_index")

		rec, env = do(t, srv, http.MethodPost, "/api/quizzes/"+q.ID+"/attempts", studentToken, []byte(`{"answers":[0]}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errMessage(t, env), "expected 2 answers")

		rec, env = do(t, srv, http.MethodPost, "/api/quizzes/"+q.ID+"/attempts", studentToken, []byte(`{"answers":[0,1]}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var a quiz.Attempt
		decode(t, env.Data, &a)
		assert.Equal(t, 50, a.Percent)
		assert.True(t, a.Passed)

		_, env = do(t, srv, http.MethodGet, "/api/enrollments/"+e.ID, studentToken)
		var got enrollment.Enrollment
		decode(t, env.Data, &got)
		assert.Equal(t, 100, got.ProgressPercent)
		assert.Equal(t, enrollment.StatusCompleted, got.Status)

		_, env = do(t, srv, http.MethodGet, "/api/quizzes/"+q.ID+"/attempts", studentToken)
		var attempts []quiz.Attempt
		decode(t, env.Data, &attempts)
		assert.Len(t, attempts, 1)
	})

	t.Run("withdraw", func(t *testing.T) {
		other := testutil.CreateUser(t, app.UserRepo, "Sho", "sho@test.jp", user.RoleStudent, true)
		otherToken := app.Token(t, other)
		_, env := do(t, srv, http.MethodPost, "/api/enrollments", otherToken, []byte(`{"course_id":"`+c.ID+`"}`))
		var oe enrollment.Enrollment
		decode(t, env.Data, &oe)

		rec, _ := do(t, srv, http.MethodDelete, "/api/enrollments/"+oe.ID, studentToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec, env = do(t, srv, http.MethodDelete, "/api/enrollments/"+oe.ID, otherToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "null", string(env.Data))
	})
}
