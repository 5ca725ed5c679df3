package database

import (
	"context"
	"fmt"
	"os"

	"github.com/sahilchouksey/course-market-api/model"
	"github.com/sahilchouksey/course-market-api/utils/apperr"
	"github.com/sahilchouksey/course-market-api/utils/logger"
)

// Demo accounts created by SeedDemoCatalog
const (
	DemoInstructorEmail = "instructor@demo.local"
	DemoStudentEmail    = "student@demo.local"
	DemoPassword        = "demo-password"
)

// Seeder handles database seeding operations
type Seeder struct {
	store Storage
	log   *logger.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(store Storage, log *logger.Logger) *Seeder {
	return &Seeder{store: store, log: log}
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll(ctx context.Context) error {
	s.log.Info("starting database seeding", "backend", s.store.Backend())

	if err := s.SeedAdminUser(ctx); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := s.SeedDemoCatalog(ctx); err != nil {
		return fmt.Errorf("failed to seed demo catalog: %w", err)
	}

	s.log.Info("database seeding completed")
	return nil
}

// SeedAdminUser creates the admin account from ADMIN_EMAIL and ADMIN_PASSWORD
func (s *Seeder) SeedAdminUser(ctx context.Context) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		s.log.Warn("ADMIN_EMAIL and ADMIN_PASSWORD not set, skipping admin user creation")
		return nil
	}

	created, err := s.ensureUser(ctx, model.NewUser{
		Name:     "System Administrator",
		Email:    adminEmail,
		Password: adminPassword,
		Role:     model.RoleAdmin,
	})
	if err != nil {
		return err
	}
	if created {
		s.log.Info("created admin user")
	}
	return nil
}

// SeedDemoCatalog creates a demo instructor with published courses, a student
// enrolled in one of them and a review. Running it twice is a no-op.
func (s *Seeder) SeedDemoCatalog(ctx context.Context) error {
	if _, err := s.store.GetUserByEmail(ctx, DemoInstructorEmail); err == nil {
		s.log.Info("demo catalog already exists, skipping")
		return nil
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return err
	}

	instructor, err := s.store.CreateUser(ctx, model.NewUser{
		Name:     "Ada Instructor",
		Email:    DemoInstructorEmail,
		Password: DemoPassword,
		Role:     model.RoleInstructor,
		Profile: model.Profile{
			Headline: "Backend engineer and teacher",
			Bio:      "Ten years of shipping Go services.",
		},
	})
	if err != nil {
		return err
	}

	student, err := s.ensureStudent(ctx)
	if err != nil {
		return err
	}

	var firstPaid *model.Course
	for _, demo := range demoCourses() {
		demo.course.InstructorID = instructor.ID
		course, err := s.store.CreateCourse(ctx, demo.course)
		if err != nil {
			return fmt.Errorf("failed to seed course %q: %w", demo.course.Title, err)
		}
		for _, lesson := range demo.lessons {
			lesson.CourseID = course.ID
			if _, err := s.store.CreateLesson(ctx, lesson); err != nil {
				return fmt.Errorf("failed to seed lesson %q: %w", lesson.Title, err)
			}
		}
		if firstPaid == nil && !course.IsFree() {
			firstPaid = course
		}
	}

	if firstPaid != nil {
		_, _, err := s.store.CreateEnrollment(ctx, model.Enrollment{
			UserID:        student.ID,
			CourseID:      firstPaid.ID,
			PaymentStatus: model.PaymentCompleted,
			PaymentRef:    "seed",
			AmountPaid:    firstPaid.Price,
		})
		if err != nil {
			return fmt.Errorf("failed to seed enrollment: %w", err)
		}
		_, err = s.store.CreateReview(ctx, model.Review{
			UserID:   student.ID,
			CourseID: firstPaid.ID,
			Rating:   5,
			Comment:  "Clear explanations and useful exercises.",
		})
		if err != nil {
			return fmt.Errorf("failed to seed review: %w", err)
		}
	}

	s.log.Info("seeded demo catalog", "courses", len(demoCourses()))
	return nil
}

func (s *Seeder) ensureStudent(ctx context.Context) (*model.User, error) {
	if _, err := s.ensureUser(ctx, model.NewUser{
		Name:     "Sam Student",
		Email:    DemoStudentEmail,
		Password: DemoPassword,
		Role:     model.RoleStudent,
	}); err != nil {
		return nil, err
	}
	return s.store.GetUserByEmail(ctx, DemoStudentEmail)
}

func (s *Seeder) ensureUser(ctx context.Context, in model.NewUser) (bool, error) {
	_, err := s.store.GetUserByEmail(ctx, in.Email)
	if err == nil {
		return false, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return false, err
	}
	if _, err := s.store.CreateUser(ctx, in); err != nil {
		return false, err
	}
	return true, nil
}

type demoCourse struct {
	course  model.Course
	lessons []model.Lesson
}

func demoCourses() []demoCourse {
	return []demoCourse{
		{
			course: model.Course{
				Title:       "Go for Backend Developers",
				Description: "Build HTTP services in Go, from routing to persistence.",
				Category:    model.CategoryDevelopment,
				Level:       model.LevelIntermediate,
				Price:       49.99,
				IsPublished: true,
			},
			lessons: []model.Lesson{
				{Title: "Welcome", Description: "What we will build", Duration: 5, IsPreview: true},
				{Title: "Routing with Fiber", Content: "Handlers, groups and middleware.", Duration: 25},
				{Title: "Persistence with GORM", Content: "Models, migrations and queries.", Duration: 40},
			},
		},
		{
			course: model.Course{
				Title:       "Design Fundamentals",
				Description: "Layout, colour and typography for developers.",
				Category:    model.CategoryDesign,
				Level:       model.LevelBeginner,
				Price:       0,
				IsPublished: true,
			},
			lessons: []model.Lesson{
				{Title: "Grids", Content: "Why everything lines up.", Duration: 15, IsPreview: true},
				{Title: "Colour", Content: "Palettes and contrast.", Duration: 20},
			},
		},
		{
			course: model.Course{
				Title:       "Marketing Your Side Project",
				Description: "Draft course, not yet published.",
				Category:    model.CategoryMarketing,
				Level:       model.LevelBeginner,
				Price:       19,
			},
		},
	}
}
