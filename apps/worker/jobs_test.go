package main

import (
	"context"
	"testing"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/enrollment"
	"github.com/manabi/lms/core/progress"
	"github.com/manabi/lms/core/user"
	logsvc "github.com/manabi/lms/services/logger"
	messagingsvc "github.com/manabi/lms/services/messaging"
)

type fakeStreaks struct {
	atRisk  []string
	current map[string]int
}

func (f fakeStreaks) StreakAtRisk(context.Context) ([]string, error) { return f.atRisk, nil }

func (f fakeStreaks) Streak(_ context.Context, usr user.User) (progress.Streak, error) {
	return progress.Streak{Current: f.current[usr.ID]}, nil
}

type fakeUsers map[string]user.User

func (f fakeUsers) GetByID(_ context.Context, id string) (user.User, error) {
	if usr, ok := f[id]; ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

type fakeEnrollments map[string]int // user id -> active enrollments

func (f fakeEnrollments) ListMine(_ context.Context, actor user.User, status string, _ core.Pagination) ([]enrollment.Enrollment, int, error) {
	if status != enrollment.StatusActive {
		return nil, 0, nil
	}
	return nil, f[actor.ID], nil
}

type fakeOrders struct{ expired int }

func (f fakeOrders) ExpirePending(context.Context) (int, error) { return f.expired, nil }

func newTestJobs(t *testing.T) (*jobs, *messagingsvc.ConsoleService) {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(zerolog.Nop(), conf)
	line, err := messagingsvc.NewConsoleService(conf, logger)
	require.NoError(t, err)

	j := &jobs{
		streaks: fakeStreaks{
			atRisk:  []string{"u1", "u2", "u3", "u4", "gone"},
			current: map[string]int{"u1": 4},
		},
		users: fakeUsers{
			"u1": {ID: "u1", IsActive: true, LineUserID: "U-one"},
			"u2": {ID: "u2", IsActive: true},                       // no LINE
			"u3": {ID: "u3", IsActive: true, LineUserID: "U-three"}, // no active enrollment
			"u4": {ID: "u4", IsActive: false, LineUserID: "U-four"},
		},
		enrollments: fakeEnrollments{"u1": 2, "u2": 1, "u4": 1},
		orders:      fakeOrders{expired: 3},
		notifier:    line,
		logger:      logger,
	}
	return j, line
}

func Test_jobs_remindStreaks(t *testing.T) {
	j, line := newTestJobs(t)

	sent, err := j.remindStreaks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	msgs := line.Sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, "U-one", msgs[0].To)
	assert.Contains(t, msgs[0].Text, "4-day learning streak")
}

func Test_jobs_expireOrders(t *testing.T) {
	j, _ := newTestJobs(t)

	n, err := j.expireOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func Test_newScheduler(t *testing.T) {
	j, _ := newTestJobs(t)
	conf := core.NewTestConfig()
	conf.Timezone = "Asia/Tokyo"

	c, err := newScheduler(conf, j)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 2)
	assert.Equal(t, "Asia/Tokyo", c.Location().String())
}

func Test_fields(t *testing.T) {
	assert.Equal(t, map[string]interface{}{"a": 1, "b": "x"}, fields([]interface{}{"a", 1, "b", "x", "dangling"}))
}
