package queue

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinPriority     = 1
	MaxPriority     = 5
	DefaultPriority = 2

	DefaultDepartment = "General"
)

// Status is the disposition of a visit.
type Status string

const (
	// StatusAny is the empty filter: it matches every visit.
	StatusAny        Status = ""
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every concrete status in lifecycle order.
var Statuses = []Status{StatusWaiting, StatusInProgress, StatusCompleted, StatusCancelled}

// ParseStatus accepts the canonical names as well as the hyphenated form the
// dashboard sends ("in-progress") and "all" for StatusAny.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return StatusAny, true
	case "waiting":
		return StatusWaiting, true
	case "in_progress", "in-progress", "inprogress":
		return StatusInProgress, true
	case "completed":
		return StatusCompleted, true
	case "cancelled", "canceled":
		return StatusCancelled, true
	}
	return StatusAny, false
}

// Valid reports whether s is one of the four concrete statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further mutation is permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Direction is the sense of a priority bump.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Up:
		return Up, true
	case Down:
		return Down, true
	}
	return "", false
}

// Visit is one patient's queue entry from arrival to terminal disposition.
type Visit struct {
	ID          uuid.UUID `json:"id"`
	SubjectName string    `json:"subject_name"`
	SubjectAge  int       `json:"subject_age"`
	Reason      string    `json:"reason"`
	Department  string    `json:"department"`
	ArrivedAt   time.Time `json:"arrival_timestamp"`
	WaitMinutes int       `json:"wait_minutes"`
	Priority    int       `json:"priority"`
	Status      Status    `json:"status"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewVisit carries the caller-supplied fields for AddVisit. SubjectAge and
// Priority are pointers so that "absent" can be told apart from zero.
type NewVisit struct {
	SubjectName string `json:"subject_name"`
	SubjectAge  *int   `json:"subject_age"`
	Reason      string `json:"reason"`
	Department  string `json:"department,omitempty"`
	Priority    *int   `json:"priority,omitempty"`
}

// StatusCounts is the per-status tally of the visit set.
type StatusCounts struct {
	Waiting    int `json:"waiting"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
	Total      int `json:"total"`
}

// Of returns the count for a single status; StatusAny yields the total.
func (c StatusCounts) Of(s Status) int {
	switch s {
	case StatusWaiting:
		return c.Waiting
	case StatusInProgress:
		return c.InProgress
	case StatusCompleted:
		return c.Completed
	case StatusCancelled:
		return c.Cancelled
	}
	return c.Total
}
