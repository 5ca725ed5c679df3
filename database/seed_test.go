package database

import (
	"context"
	"testing"

	"github.com/sahilchouksey/course-market-api/model"
	"github.com/sahilchouksey/course-market-api/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDemoCatalog(t *testing.T) {
	eachBackend(t, func(t *testing.T, store Storage) {
		ctx := context.Background()
		seeder := NewSeeder(store, logger.Nop())

		require.NoError(t, seeder.SeedDemoCatalog(ctx))
		require.NoError(t, seeder.SeedDemoCatalog(ctx))

		instructor, err := store.GetUserByEmail(ctx, DemoInstructorEmail)
		require.NoError(t, err)
		assert.Equal(t, model.RoleInstructor, instructor.Role)

		courses, err := store.GetCoursesByInstructor(ctx, instructor.ID)
		require.NoError(t, err)
		assert.Len(t, courses, 3)

		published, total, err := store.GetCourses(ctx, model.CourseFilter{PublishedOnly: true})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, published, 2)

		student, err := store.GetUserByEmail(ctx, DemoStudentEmail)
		require.NoError(t, err)
		enrollments, err := store.GetEnrollmentsByUser(ctx, student.ID)
		require.NoError(t, err)
		require.Len(t, enrollments, 1)
		assert.True(t, enrollments[0].HasAccess())
		assert.InDelta(t, 49.99, enrollments[0].AmountPaid, 0.001)

		course, err := store.GetCourse(ctx, enrollments[0].CourseID)
		require.NoError(t, err)
		assert.Equal(t, 3, course.TotalLessons)
		assert.Equal(t, 70, course.TotalDuration)
		assert.Equal(t, 5.0, course.AverageRating)
		assert.Equal(t, 1, course.TotalStudents)
	})
}

func TestSeedAdminUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seeder := NewSeeder(store, logger.Nop())

	t.Setenv("ADMIN_EMAIL", "")
	require.NoError(t, seeder.SeedAdminUser(ctx))

	t.Setenv("ADMIN_EMAIL", "root@example.com")
	t.Setenv("ADMIN_PASSWORD", "super-secret")
	require.NoError(t, seeder.SeedAdminUser(ctx))
	require.NoError(t, seeder.SeedAdminUser(ctx))

	admin, err := store.GetUserByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)
}
