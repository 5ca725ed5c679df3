package cron

import (
	"context"
	"testing"
	"time"

	"github.com/sahilchouksey/course-market-api/database"
	"github.com/sahilchouksey/course-market-api/model"
	"github.com/sahilchouksey/course-market-api/services"
	"github.com/sahilchouksey/course-market-api/services/payment"
	"github.com/sahilchouksey/course-market-api/utils/auth"
	"github.com/sahilchouksey/course-market-api/utils/cache"
	"github.com/sahilchouksey/course-market-api/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*CronManager, *database.MemoryStore) {
	t.Helper()
	store := database.NewMemoryStore()
	log := logger.Nop()
	enrollments := services.NewEnrollmentService(store, payment.NewSandboxProvider(false), "usd", log)
	blacklist := auth.NewBlacklistService(cache.NewMemoryCache())
	return NewCronManager(store, enrollments, blacklist, log), store
}

func TestReconcileCourseStats(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)

	instructor, err := store.CreateUser(ctx, model.NewUser{Name: "Ada", Email: "ada@example.com", Password: "password123", Role: model.RoleInstructor})
	require.NoError(t, err)
	for _, title := range []string{"Go basics", "Go concurrency"} {
		course, err := store.CreateCourse(ctx, model.Course{
			Title: title, Category: model.CategoryDevelopment, Level: model.LevelBeginner,
			InstructorID: instructor.ID, IsPublished: true,
		})
		require.NoError(t, err)
		_, err = store.CreateLesson(ctx, model.Lesson{CourseID: course.ID, Title: "Intro", Duration: 12})
		require.NoError(t, err)
	}

	done, err := m.ReconcileCourseStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, done)

	courses, _, err := store.GetCourses(ctx, model.CourseFilter{})
	require.NoError(t, err)
	for _, c := range courses {
		assert.Equal(t, 1, c.TotalLessons)
		assert.Equal(t, 12, c.TotalDuration)
	}
}

func TestReconcileCourseStatsStopsOnCancel(t *testing.T) {
	m, store := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())

	instructor, err := store.CreateUser(ctx, model.NewUser{Name: "Ada", Email: "ada@example.com", Password: "password123", Role: model.RoleInstructor})
	require.NoError(t, err)
	_, err = store.CreateCourse(ctx, model.Course{
		Title: "Go basics", Category: model.CategoryDevelopment, Level: model.LevelBeginner, InstructorID: instructor.ID,
	})
	require.NoError(t, err)

	cancel()
	_, err = m.ReconcileCourseStats(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCleanupTokenBlacklist(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.blacklist.RevokeToken(ctx, "jti-1", time.Now().Add(time.Hour)))

	removed, err := m.CleanupTokenBlacklist(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	revoked, err := m.blacklist.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRegisterJobs(t *testing.T) {
	m, _ := newTestManager(t)

	require.NoError(t, m.registerJobs())
	assert.Len(t, m.cron.Entries(), 3)
}

func TestExpirePendingEnrollmentsNoop(t *testing.T) {
	m, _ := newTestManager(t)

	expired, err := m.ExpirePendingEnrollments(context.Background())
	require.NoError(t, err)
	assert.Zero(t, expired)
}
