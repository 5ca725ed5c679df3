package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/utils/cache"
	"github.com/sahilchouksey/course-market-api/utils/logger"
	"github.com/sahilchouksey/course-market-api/utils/response"
)

const attemptWindow = 15 * time.Minute

// BruteForceProtection applies progressive login lockouts per client IP
type BruteForceProtection struct {
	store cache.Store
	log   *logger.Logger
}

// NewBruteForceProtection creates a new brute force protection instance
func NewBruteForceProtection(store cache.Store, log *logger.Logger) *BruteForceProtection {
	return &BruteForceProtection{
		store: store,
		log:   log,
	}
}

func attemptKey(ip string) string { return fmt.Sprintf("brute_force:attempts:%s", ip) }
func lockKey(ip string) string    { return fmt.Sprintf("brute_force:lock:%s", ip) }

// lockoutFor maps a failure count to a lockout; zero means no lockout yet
func lockoutFor(attempts int64) time.Duration {
	switch {
	case attempts >= 25:
		return 24 * time.Hour
	case attempts >= 10:
		return time.Hour
	case attempts >= 5:
		return 2 * time.Minute
	}
	return 0
}

// CheckAndRecordAttempt middleware checks if IP is locked out
func (b *BruteForceProtection) CheckAndRecordAttempt() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := lockKey(c.IP())

		locked, err := b.store.Exists(c.UserContext(), key)
		if err != nil {
			// cache outages must not lock out legitimate users
			b.log.Warn("brute force check failed", "error", err.Error())
			return c.Next()
		}

		if locked {
			ttl, _ := b.store.TTL(c.UserContext(), key)
			retryAfter := int(ttl.Seconds())
			if retryAfter <= 0 {
				retryAfter = 60
			}

			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return response.TooManyRequests(c, fmt.Sprintf("Too many failed attempts. Try again in %d seconds", retryAfter))
		}

		return c.Next()
	}
}

// RecordFailedAttempt records a failed login attempt and applies progressive lockouts
func (b *BruteForceProtection) RecordFailedAttempt(c *fiber.Ctx) {
	ctx := c.UserContext()
	ip := c.IP()

	attempts, err := b.store.Increment(ctx, attemptKey(ip))
	if err != nil {
		b.log.Warn("failed to record login attempt", "error", err.Error())
		return
	}
	if attempts == 1 {
		_ = b.store.Expire(ctx, attemptKey(ip), attemptWindow)
	}

	if lockout := lockoutFor(attempts); lockout > 0 {
		if err := b.store.Set(ctx, lockKey(ip), "locked", lockout); err != nil {
			b.log.Warn("failed to apply login lockout", "error", err.Error())
			return
		}
		b.log.Warn("login locked out", "ip", ip, "attempts", attempts, "lockout", lockout)
	}
}

// RecordSuccessfulAttempt clears failed attempts on successful login
func (b *BruteForceProtection) RecordSuccessfulAttempt(c *fiber.Ctx) {
	ip := c.IP()
	_ = b.store.Delete(c.UserContext(), attemptKey(ip), lockKey(ip))
}
