package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sahilchouksey/course-market-api/config"
	"github.com/sahilchouksey/course-market-api/database"
	"github.com/sahilchouksey/course-market-api/utils/logger"
)

// Seeds the durable database with the admin account and the demo catalog.
// The in-memory backend is seeded at server start via SEED_DEMO_DATA.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seeding failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadENV(); err != nil {
		return err
	}
	env, err := config.Get()
	if err != nil {
		return err
	}

	log, err := logger.New(env.GO_ENV, env.LOG_LEVEL)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := database.StartGORM(env, log)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Init(ctx); err != nil {
		return err
	}

	separator := strings.Repeat("=", 60)
	fmt.Println(separator)
	fmt.Println("Course Market - Database Seeding")
	fmt.Println(separator)

	if err := database.NewSeeder(store, log).SeedAll(ctx); err != nil {
		return err
	}

	fmt.Println(separator)
	fmt.Println("Seeding completed. The admin user is created from ADMIN_EMAIL and")
	fmt.Println("ADMIN_PASSWORD when both are set.")
	fmt.Println(separator)
	return nil
}
