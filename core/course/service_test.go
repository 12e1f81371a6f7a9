package course_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/course"
	"github.com/manabi/lms/core/user"
	"github.com/manabi/lms/tests"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int { return &i }
func boolPtr(b bool) *bool { return &b }

func TestService_Create(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, app.UserRepo, "Admin", "admin@test.jp", user.RoleAdmin, true)
	instr := testutil.CreateUser(t, app.UserRepo, "Instr", "instr@test.jp", user.RoleInstructor, true)
	student := testutil.CreateUser(t, app.UserRepo, "Student", "student@test.jp", user.RoleStudent, true)

	t.Run("students cannot author", func(t *testing.T) {
		_, err := app.CourseSvc.Create(ctx, student, course.NewCourse{Title: "Go", Level: course.LevelBeginner})
		assert.True(t, core.IsPermissionError(err))
	})

	t.Run("validation", func(t *testing.T) {
		_, err := app.CourseSvc.Create(ctx, instr, course.NewCourse{Title: "  ", Level: "expert", Price: -1})
		assert.Error(t, err)
	})

	t.Run("defaults", func(t *testing.T) {
		c, err := app.CourseSvc.Create(ctx, instr, course.NewCourse{
			Title:        "  Go Basics ",
			Category:     "Programming",
			Level:        "Beginner",
			InstructorID: admin.ID, // ignored for instructors
		})
		require.NoError(t, err)
		assert.Equal(t, "Go Basics", c.Title)
		assert.Equal(t, "programming", c.Category)
		assert.Equal(t, course.LevelBeginner, c.Level)
		assert.Equal(t, "JPY", c.Currency)
		assert.Equal(t, instr.ID, c.InstructorID)
		assert.False(t, c.IsPublished)
		assert.True(t, c.IsFree())
	})

	t.Run("admin assigns an instructor", func(t *testing.T) {
		c, err := app.CourseSvc.Create(ctx, admin, course.NewCourse{Title: "SQL", Level: course.LevelAdvanced, InstructorID: instr.ID})
		require.NoError(t, err)
		assert.Equal(t, instr.ID, c.InstructorID)

		_, err = app.CourseSvc.Create(ctx, admin, course.NewCourse{Title: "SQL", Level: course.LevelAdvanced, InstructorID: student.ID})
		assert.EqualError(t, err, "instructor not found")
	})
}

func TestService_visibility(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, app.UserRepo, "Admin", "admin@test.jp", user.RoleAdmin, true)
	instr := testutil.CreateUser(t, app.UserRepo, "Instr", "instr@test.jp", user.RoleInstructor, true)
	rival := testutil.CreateUser(t, app.UserRepo, "Rival", "rival@test.jp", user.RoleInstructor, true)
	student := testutil.CreateUser(t, app.UserRepo, "Student", "student@test.jp", user.RoleStudent, true)

	published := testutil.CreateCourse(t, app.CourseRepo, instr.ID, "Published", 0, true)
	draft := testutil.CreateCourse(t, app.CourseRepo, instr.ID, "Draft", 1000, false)
	rivalDraft := testutil.CreateCourse(t, app.CourseRepo, rival.ID, "Rival draft", 0, false)

	tests := []struct {
		name  string
		actor user.User
		want  int
	}{
		{name: "student sees published", actor: student, want: 1},
		{name: "instructor sees published and own", actor: instr, want: 2},
		{name: "admin sees all", actor: admin, want: 3},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := app.CourseSvc.List(ctx, tt.actor, course.QueryFilter{}, core.Pagination{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, total)
		})
	}

	_, err := app.CourseSvc.Get(ctx, student, draft.ID)
	assert.Equal(t, course.ErrNotFound, err)
	_, err = app.CourseSvc.Get(ctx, rival, draft.ID)
	assert.Equal(t, course.ErrNotFound, err)
	_, err = app.CourseSvc.Get(ctx, instr, draft.ID)
	assert.NoError(t, err)
	_, err = app.CourseSvc.Get(ctx, admin, rivalDraft.ID)
	assert.NoError(t, err)

	// published but not owned: visible, not manageable
	_, err = app.CourseSvc.Update(ctx, rival, published.ID, course.UpdateCourse{Title: strPtr("Mine")})
	assert.True(t, core.IsPermissionError(err))
	_, err = app.CourseSvc.Update(ctx, rival, draft.ID, course.UpdateCourse{Title: strPtr("Mine")})
	assert.Equal(t, course.ErrNotFound, err)

	// filters
	_, total, err := app.CourseSvc.List(ctx, admin, course.QueryFilter{Free: boolPtr(false)}, core.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	_, total, err = app.CourseSvc.List(ctx, admin, course.QueryFilter{Search: "RIVAL"}, core.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestService_chaptersAndLessons(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	instr := testutil.CreateUser(t, app.UserRepo, "Instr", "instr@test.jp", user.RoleInstructor, true)
	student := testutil.CreateUser(t, app.UserRepo, "Student", "student@test.jp", user.RoleStudent, true)
	c := testutil.CreateCourse(t, app.CourseRepo, instr.ID, "Go", 0, true)

	ch1, err := app.CourseSvc.CreateChapter(ctx, instr, c.ID, course.NewChapter{Title: "Intro"})
	require.NoError(t, err)
	assert.Equal(t, 1, ch1.Position)

	ch2, err := app.CourseSvc.CreateChapter(ctx, instr, c.ID, course.NewChapter{Title: "Types"})
	require.NoError(t, err)
	assert.Equal(t, 2, ch2.Position)

	_, err = app.CourseSvc.CreateChapter(ctx, instr, c.ID, course.NewChapter{Title: "Dup", Position: 2})
	assert.EqualError(t, err, "position already taken")

	_, err = app.CourseSvc.CreateChapter(ctx, student, c.ID, course.NewChapter{Title: "Nope"})
	assert.True(t, core.IsPermissionError(err))

	l1, err := app.CourseSvc.CreateLesson(ctx, instr, ch1.ID, course.NewLesson{Title: "Hello", DurationSeconds: 60, IsPreview: true})
	require.NoError(t, err)
	assert.Equal(t, 1, l1.Position)
	assert.Equal(t, c.ID, l1.CourseID)

	l2, err := app.CourseSvc.CreateLesson(ctx, instr, ch2.ID, course.NewLesson{Title: "Ints", VideoURL: "https://videos.test/ints"})
	require.NoError(t, err)
	assert.Equal(t, 1, l2.Position)

	_, err = app.CourseSvc.CreateLesson(ctx, instr, ch1.ID, course.NewLesson{Title: "Bad", VideoURL: "ftp://x"})
	assert.Error(t, err)

	n, err := app.CourseSvc.CountLessons(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// outline is ordered by position
	_, err = app.CourseSvc.UpdateChapter(ctx, instr, ch2.ID, course.UpdateChapter{Position: intPtr(1)})
	assert.EqualError(t, err, "position already taken")
	_, err = app.CourseSvc.UpdateChapter(ctx, instr, ch1.ID, course.UpdateChapter{Position: intPtr(3)})
	require.NoError(t, err)

	out, err := app.CourseSvc.Outline(ctx, student, c.ID)
	require.NoError(t, err)
	require.Len(t, out.Chapters, 2)
	assert.Equal(t, "Types", out.Chapters[0].Title)
	assert.Equal(t, "Intro", out.Chapters[1].Title)
	assert.Equal(t, []course.LessonSummary{l1.Summary()}, out.Chapters[1].Lessons)

	// edits invalidate the cached outline
	_, err = app.CourseSvc.UpdateLesson(ctx, instr, l1.ID, course.UpdateLesson{Title: strPtr("Hello, Go")})
	require.NoError(t, err)
	out, err = app.CourseSvc.Outline(ctx, student, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello, Go", out.Chapters[1].Lessons[0].Title)

	// deleting a chapter deletes its lessons
	require.NoError(t, app.CourseSvc.DeleteChapter(ctx, instr, ch1.ID))
	_, err = app.CourseSvc.FindLesson(ctx, l1.ID)
	assert.Equal(t, course.ErrLessonNotFound, err)
	out, err = app.CourseSvc.Outline(ctx, student, c.ID)
	require.NoError(t, err)
	assert.Len(t, out.Chapters, 1)

	require.NoError(t, app.CourseSvc.Delete(ctx, instr, c.ID))
	_, err = app.CourseSvc.Find(ctx, c.ID)
	assert.Equal(t, course.ErrNotFound, err)
}

func TestLesson_Lock(t *testing.T) {
	l := course.Lesson{Title: "Secret", Content: "body", VideoURL: "https://videos.test/x"}
	l.Lock()
	assert.True(t, l.Locked)
	assert.Empty(t, l.Content)
	assert.Empty(t, l.VideoURL)
	assert.Equal(t, "Secret", l.Title)
}
