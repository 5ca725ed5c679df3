package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/utils/logger"
	"github.com/sahilchouksey/course-market-api/utils/response"
)

// ShutdownTimeout bounds how long in-flight requests may take once the
// server is asked to stop
const ShutdownTimeout = 10 * time.Second

type APIServer struct {
	app           *fiber.App
	listenAddress string
	log           *logger.Logger
}

func NewAPIServer(listenAddress string, log *logger.Logger) *APIServer {
	return &APIServer{
		app:           New(log),
		listenAddress: listenAddress,
		log:           log,
	}
}

// New builds a fiber app that renders every returned error in the standard
// envelope
func New(log *logger.Logger) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               "course-market-api",
		ErrorHandler:          response.ErrorHandler(log),
		DisableStartupMessage: true,
		BodyLimit:             1 * 1024 * 1024,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
	})
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (s *APIServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting API server", "address", s.listenAddress)
		errCh <- s.app.Listen(s.listenAddress)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down API server")
	return s.app.ShutdownWithTimeout(ShutdownTimeout)
}
