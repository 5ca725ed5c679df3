package database

import (
	"math"
	"sort"

	"github.com/sahilchouksey/course-market-api/model"
)

// RoundRating rounds an average to one decimal place
func RoundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}

// AverageRating returns the rounded mean and the number of ratings.
// With no ratings both values are zero.
func AverageRating(ratings []int) (float64, int) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return RoundRating(float64(sum) / float64(len(ratings))), len(ratings)
}

// SortLessons orders lessons ascending by their position in the course
func SortLessons(lessons []model.Lesson) {
	sort.SliceStable(lessons, func(i, j int) bool {
		return lessons[i].Order < lessons[j].Order
	})
}

// NextLessonOrder returns max(order)+1, or 1 for an empty course
func NextLessonOrder(lessons []model.Lesson) int {
	next := 1
	for _, l := range lessons {
		if l.Order >= next {
			next = l.Order + 1
		}
	}
	return next
}

// SumDurations totals the duration in minutes
func SumDurations(lessons []model.Lesson) int {
	total := 0
	for _, l := range lessons {
		total += l.Duration
	}
	return total
}

// OrderChange moves one lesson to a new position
type OrderChange struct {
	LessonID model.LessonID
	Order    int
}

// ReorderLessons computes the changes that make the sorted lessons contiguous
// from 1. Changes come out ascending, so applying them one at a time never
// collides with a position still held by a later lesson.
func ReorderLessons(sorted []model.Lesson) []OrderChange {
	var changes []OrderChange
	for i, l := range sorted {
		if l.Order != i+1 {
			changes = append(changes, OrderChange{LessonID: l.ID, Order: i + 1})
		}
	}
	return changes
}

// MoveLesson computes the changes that put the lesson at position target and
// shift its siblings so the sorted lessons stay contiguous from 1. target must
// lie in 1..len(sorted).
func MoveLesson(sorted []model.Lesson, id model.LessonID, target int) []OrderChange {
	moved := -1
	for i, l := range sorted {
		if l.ID == id {
			moved = i
			break
		}
	}
	if moved < 0 || target < 1 || target > len(sorted) {
		return nil
	}

	sequence := make([]model.Lesson, 0, len(sorted))
	sequence = append(sequence, sorted[:moved]...)
	sequence = append(sequence, sorted[moved+1:]...)
	at := target - 1
	sequence = append(sequence[:at], append([]model.Lesson{sorted[moved]}, sequence[at:]...)...)
	return ReorderLessons(sequence)
}

func orderTaken(lessons []model.Lesson, order int, except model.LessonID) bool {
	for _, l := range lessons {
		if l.Order == order && l.ID != except {
			return true
		}
	}
	return false
}

func decrementFloor(v int) int {
	if v <= 0 {
		return 0
	}
	return v - 1
}
