package cron

import (
	"context"
	"fmt"
)

// ReconcileCourseStats recomputes every course's counters from its lessons,
// enrollments and reviews. Returns the number of courses processed.
func (m *CronManager) ReconcileCourseStats(ctx context.Context) (int, error) {
	ids, err := m.store.ListCourseIDs(ctx)
	if err != nil {
		return 0, err
	}

	done := 0
	var firstErr error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := m.store.RecalculateCourseStats(ctx, id); err != nil {
			m.log.Warn("failed to reconcile course", "course_id", id, "error", err.Error())
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to reconcile course %s: %w", id, err)
			}
			continue
		}
		done++
	}
	if done == 0 && firstErr != nil {
		return 0, firstErr
	}
	return done, nil
}

// ExpirePendingEnrollments fails checkouts pending for longer than the TTL
func (m *CronManager) ExpirePendingEnrollments(ctx context.Context) (int, error) {
	return m.enrollments.ExpireStalePending(ctx, m.pendingTTL)
}

// CleanupTokenBlacklist purges expired revocations from in-process caches
func (m *CronManager) CleanupTokenBlacklist(ctx context.Context) (int, error) {
	return m.blacklist.CleanupExpiredTokens(ctx)
}
