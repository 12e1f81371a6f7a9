package course

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("course not found")
	ErrChapterNotFound = core.NewNotFoundError("chapter not found")
	ErrLessonNotFound  = core.NewNotFoundError("lesson not found")

	errPositionTaken   = "position already taken"
	errInstructorOnly  = "instructor role required"
	errNotOwner        = "only the course instructor or an admin can do this"
	errInvalidInstrctr = "instructor not found"

	// Orderings allowed on course listings.
	Orderings       = []string{"title", "price", "created_at", "updated_at"}
	DefaultOrdering = core.DBOrdering{Field: "created_at"}
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		// QueryCourses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Course.Title or Course.Description.
		QueryCourses(ctx context.Context, filter QueryFilter, page core.Pagination, ordering ...core.DBOrdering) ([]Course, int, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error

		CreateChapter(ctx context.Context, ch Chapter) (Chapter, error)
		GetChapter(ctx context.Context, id string) (Chapter, error)
		ListChapters(ctx context.Context, courseID string) ([]Chapter, error)
		UpdateChapter(ctx context.Context, ch Chapter) (Chapter, error)
		// DeleteChapter deletes the chapter and its lessons.
		DeleteChapter(ctx context.Context, id string) error

		CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
		GetLesson(ctx context.Context, id string) (Lesson, error)
		ListLessons(ctx context.Context, courseID string) ([]Lesson, error)
		UpdateLesson(ctx context.Context, l Lesson) (Lesson, error)
		DeleteLesson(ctx context.Context, id string) error
		CountLessons(ctx context.Context, courseID string) (int, error)
	}

	// UserGetter finds the instructor an admin assigns a course to.
	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo     Repository
		users    UserGetter
		cache    core.Cache
		cacheTTL time.Duration
		logger   core.Logger
		currency string
	}
)

func NewService(repo Repository, users UserGetter, cache core.Cache, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		cache:    cache,
		cacheTTL: conf.Redis.CourseTTL,
		logger:   logger,
		currency: conf.Payment.Currency,
	}
}

// Find returns a course regardless of who asks.
func (svc *Service) Find(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

// FindLesson returns a lesson regardless of who asks.
func (svc *Service) FindLesson(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLesson(ctx, id)
}

func (svc *Service) CountLessons(ctx context.Context, courseID string) (int, error) {
	return svc.repo.CountLessons(ctx, courseID)
}

// Manageable returns the course when actor may change it.
func (svc *Service) Manageable(ctx context.Context, actor user.User, id string) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if !actor.CanManage(c.InstructorID) {
		if !c.IsPublished {
			return Course{}, ErrNotFound
		}
		return Course{}, core.NewPermissionError(errNotOwner)
	}
	return c, nil
}

func (svc *Service) Create(ctx context.Context, actor user.User, nc NewCourse) (Course, error) {
	if !actor.IsInstructor() {
		return Course{}, core.NewPermissionError(errInstructorOnly)
	}
	if err := nc.Validate(); err != nil {
		return Course{}, err
	}

	instructorID := actor.ID
	if actor.IsAdmin() && nc.InstructorID != "" && nc.InstructorID != actor.ID {
		instr, err := svc.users.GetByID(ctx, nc.InstructorID)
		if err != nil || !instr.IsInstructor() {
			if err != nil && errors.Cause(err) != user.ErrNotFound {
				return Course{}, errors.Wrap(err, "getting instructor")
			}
			return Course{}, core.NewFieldError("instructor_id", errInvalidInstrctr)
		}
		instructorID = instr.ID
	}
	if nc.Currency == "" {
		nc.Currency = svc.currency
	}

	now := core.NowFunc()
	return svc.repo.CreateCourse(ctx, Course{
		Title:        nc.Title,
		Description:  nc.Description,
		Category:     nc.Category,
		Level:        nc.Level,
		Price:        nc.Price,
		Currency:     nc.Currency,
		IsPublished:  nc.IsPublished,
		InstructorID: instructorID,
		ThumbnailURL: nc.ThumbnailURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// Get returns a course. Unpublished courses only exist for the staff managing them.
func (svc *Service) Get(ctx context.Context, actor user.User, id string) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if !c.IsPublished && !actor.CanManage(c.InstructorID) {
		return Course{}, ErrNotFound
	}
	return c, nil
}

func (svc *Service) List(ctx context.Context, actor user.User, filter QueryFilter, page core.Pagination, ordering ...core.DBOrdering) ([]Course, int, error) {
	filter.Clean()
	switch {
	case actor.IsAdmin():
	case actor.IsInstructor():
		filter.VisibleTo = actor.ID
	default:
		published := true
		filter.IsPublished = &published
	}
	ordering = core.CleanOrderings(ordering, Orderings, DefaultOrdering)
	return svc.repo.QueryCourses(ctx, filter, page.Clean(), ordering...)
}

func (svc *Service) Update(ctx context.Context, actor user.User, id string, uc UpdateCourse) (Course, error) {
	c, err := svc.Manageable(ctx, actor, id)
	if err != nil {
		return Course{}, err
	}
	if err = uc.Validate(); err != nil {
		return Course{}, err
	}
	uc.apply(&c)
	c.UpdatedAt = core.NowFunc()
	if c, err = svc.repo.UpdateCourse(ctx, c); err != nil {
		return Course{}, errors.Wrap(err, "updating course")
	}
	svc.invalidate(ctx, id)
	return c, nil
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	if _, err := svc.Manageable(ctx, actor, id); err != nil {
		return err
	}
	if err := svc.repo.DeleteCourse(ctx, id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	svc.invalidate(ctx, id)
	return nil
}

// Chapters

func (svc *Service) chapterPositions(ctx context.Context, courseID, exclID string) ([]int, error) {
	chapters, err := svc.repo.ListChapters(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "listing chapters")
	}
	positions := make([]int, 0, len(chapters))
	for _, ch := range chapters {
		if ch.ID != exclID {
			positions = append(positions, ch.Position)
		}
	}
	return positions, nil
}

func (svc *Service) CreateChapter(ctx context.Context, actor user.User, courseID string, nc NewChapter) (Chapter, error) {
	if _, err := svc.Manageable(ctx, actor, courseID); err != nil {
		return Chapter{}, err
	}
	if err := nc.Validate(); err != nil {
		return Chapter{}, err
	}
	positions, err := svc.chapterPositions(ctx, courseID, "")
	if err != nil {
		return Chapter{}, err
	}
	if nc.Position == 0 {
		nc.Position = nextPosition(positions)
	} else if positionTaken(positions, nc.Position) {
		return Chapter{}, core.NewFieldError("position", errPositionTaken)
	}

	now := core.NowFunc()
	ch, err := svc.repo.CreateChapter(ctx, Chapter{
		CourseID:  courseID,
		Title:     nc.Title,
		Position:  nc.Position,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Chapter{}, errors.Wrap(err, "creating chapter")
	}
	svc.invalidate(ctx, courseID)
	return ch, nil
}

func (svc *Service) manageableChapter(ctx context.Context, actor user.User, id string) (Chapter, error) {
	ch, err := svc.repo.GetChapter(ctx, id)
	if err != nil {
		return Chapter{}, err
	}
	if _, err = svc.Manageable(ctx, actor, ch.CourseID); err != nil {
		if core.IsNotFound(err) {
			return Chapter{}, ErrChapterNotFound
		}
		return Chapter{}, err
	}
	return ch, nil
}

func (svc *Service) UpdateChapter(ctx context.Context, actor user.User, id string, uc UpdateChapter) (Chapter, error) {
	ch, err := svc.manageableChapter(ctx, actor, id)
	if err != nil {
		return Chapter{}, err
	}
	if err = uc.Validate(); err != nil {
		return Chapter{}, err
	}
	if uc.Title != nil {
		ch.Title = core.CleanString(*uc.Title)
	}
	if uc.Position != nil && *uc.Position != ch.Position {
		positions, err := svc.chapterPositions(ctx, ch.CourseID, ch.ID)
		if err != nil {
			return Chapter{}, err
		}
		if positionTaken(positions, *uc.Position) {
			return Chapter{}, core.NewFieldError("position", errPositionTaken)
		}
		ch.Position = *uc.Position
	}
	ch.UpdatedAt = core.NowFunc()
	if ch, err = svc.repo.UpdateChapter(ctx, ch); err != nil {
		return Chapter{}, errors.Wrap(err, "updating chapter")
	}
	svc.invalidate(ctx, ch.CourseID)
	return ch, nil
}

func (svc *Service) DeleteChapter(ctx context.Context, actor user.User, id string) error {
	ch, err := svc.manageableChapter(ctx, actor, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteChapter(ctx, id); err != nil {
		return errors.Wrap(err, "deleting chapter")
	}
	svc.invalidate(ctx, ch.CourseID)
	return nil
}

// Lessons

func (svc *Service) lessonPositions(ctx context.Context, courseID, chapterID, exclID string) ([]int, error) {
	lessons, err := svc.repo.ListLessons(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "listing lessons")
	}
	positions := make([]int, 0, len(lessons))
	for _, l := range lessons {
		if l.ChapterID == chapterID && l.ID != exclID {
			positions = append(positions, l.Position)
		}
	}
	return positions, nil
}

func (svc *Service) CreateLesson(ctx context.Context, actor user.User, chapterID string, nl NewLesson) (Lesson, error) {
	ch, err := svc.manageableChapter(ctx, actor, chapterID)
	if err != nil {
		return Lesson{}, err
	}
	if err = nl.Validate(); err != nil {
		return Lesson{}, err
	}
	positions, err := svc.lessonPositions(ctx, ch.CourseID, ch.ID, "")
	if err != nil {
		return Lesson{}, err
	}
	if nl.Position == 0 {
		nl.Position = nextPosition(positions)
	} else if positionTaken(positions, nl.Position) {
		return Lesson{}, core.NewFieldError("position", errPositionTaken)
	}

	now := core.NowFunc()
	l, err := svc.repo.CreateLesson(ctx, Lesson{
		CourseID:        ch.CourseID,
		ChapterID:       ch.ID,
		Title:           nl.Title,
		Content:         nl.Content,
		VideoURL:        nl.VideoURL,
		DurationSeconds: nl.DurationSeconds,
		Position:        nl.Position,
		IsPreview:       nl.IsPreview,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return Lesson{}, errors.Wrap(err, "creating lesson")
	}
	svc.invalidate(ctx, ch.CourseID)
	return l, nil
}

// GetLesson returns a lesson with its course, applying the course visibility rules.
// Content gating is left to the caller.
func (svc *Service) GetLesson(ctx context.Context, actor user.User, id string) (Lesson, Course, error) {
	l, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		return Lesson{}, Course{}, err
	}
	c, err := svc.Get(ctx, actor, l.CourseID)
	if err != nil {
		if core.IsNotFound(err) {
			return Lesson{}, Course{}, ErrLessonNotFound
		}
		return Lesson{}, Course{}, err
	}
	return l, c, nil
}

func (svc *Service) manageableLesson(ctx context.Context, actor user.User, id string) (Lesson, error) {
	l, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	if _, err = svc.Manageable(ctx, actor, l.CourseID); err != nil {
		if core.IsNotFound(err) {
			return Lesson{}, ErrLessonNotFound
		}
		return Lesson{}, err
	}
	return l, nil
}

func (svc *Service) UpdateLesson(ctx context.Context, actor user.User, id string, ul UpdateLesson) (Lesson, error) {
	l, err := svc.manageableLesson(ctx, actor, id)
	if err != nil {
		return Lesson{}, err
	}
	if err = ul.Validate(); err != nil {
		return Lesson{}, err
	}
	if ul.Position != nil && *ul.Position != l.Position {
		positions, err := svc.lessonPositions(ctx, l.CourseID, l.ChapterID, l.ID)
		if err != nil {
			return Lesson{}, err
		}
		if positionTaken(positions, *ul.Position) {
			return Lesson{}, core.NewFieldError("position", errPositionTaken)
		}
	}
	ul.apply(&l)
	l.UpdatedAt = core.NowFunc()
	if l, err = svc.repo.UpdateLesson(ctx, l); err != nil {
		return Lesson{}, errors.Wrap(err, "updating lesson")
	}
	svc.invalidate(ctx, l.CourseID)
	return l, nil
}

func (svc *Service) DeleteLesson(ctx context.Context, actor user.User, id string) error {
	l, err := svc.manageableLesson(ctx, actor, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteLesson(ctx, id); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	svc.invalidate(ctx, l.CourseID)
	return nil
}

// Outline returns the course table of contents, served from the cache when possible.
func (svc *Service) Outline(ctx context.Context, actor user.User, id string) (Outline, error) {
	c, err := svc.Get(ctx, actor, id)
	if err != nil {
		return Outline{}, err
	}

	key := outlineKey(id)
	if data, err := svc.cache.Get(ctx, key); err == nil {
		var out Outline
		if err = json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
		svc.logger.Warn("decoding cached outline", err, map[string]interface{}{"key": key})
	} else if errors.Cause(err) != core.ErrCacheMiss {
		svc.logger.Warn("reading outline cache", err, map[string]interface{}{"key": key})
	}

	out, err := svc.buildOutline(ctx, c)
	if err != nil {
		return Outline{}, err
	}
	if data, err := json.Marshal(out); err == nil {
		if err = svc.cache.Set(ctx, key, data, svc.cacheTTL); err != nil {
			svc.logger.Warn("writing outline cache", err, map[string]interface{}{"key": key})
		}
	}
	return out, nil
}

func (svc *Service) buildOutline(ctx context.Context, c Course) (Outline, error) {
	chapters, err := svc.repo.ListChapters(ctx, c.ID)
	if err != nil {
		return Outline{}, errors.Wrap(err, "listing chapters")
	}
	lessons, err := svc.repo.ListLessons(ctx, c.ID)
	if err != nil {
		return Outline{}, errors.Wrap(err, "listing lessons")
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].Position < chapters[j].Position })
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].Position < lessons[j].Position })

	byChapter := make(map[string][]LessonSummary, len(chapters))
	for _, l := range lessons {
		byChapter[l.ChapterID] = append(byChapter[l.ChapterID], l.Summary())
	}
	out := Outline{Course: c, Chapters: make([]OutlineChapter, 0, len(chapters))}
	for _, ch := range chapters {
		ls := byChapter[ch.ID]
		if ls == nil {
			ls = []LessonSummary{}
		}
		out.Chapters = append(out.Chapters, OutlineChapter{Chapter: ch, Lessons: ls})
	}
	return out, nil
}

func (svc *Service) invalidate(ctx context.Context, courseID string) {
	if err := svc.cache.Delete(ctx, outlineKey(courseID)); err != nil {
		svc.logger.Warn("invalidating outline cache", err, map[string]interface{}{"course_id": courseID})
	}
}
