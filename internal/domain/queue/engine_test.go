package queue

import (
	"errors"
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
)

var t0 = time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func intp(i int) *int { return &i }

func newTestEngine() (*Engine, *fakeClock) {
	clk := &fakeClock{now: t0}
	return NewEngine(WithClock(clk.Now)), clk
}

func mustAdd(t *testing.T, e *Engine, name string, priority int) Visit {
	t.Helper()
	v, err := e.AddVisit(NewVisit{SubjectName: name, SubjectAge: intp(40), Reason: "checkup", Priority: intp(priority)})
	if err != nil {
		t.Fatalf("AddVisit(%s): %v", name, err)
	}
	return v
}

func names(visits []Visit) []string {
	out := make([]string, len(visits))
	for i, v := range visits {
		out[i] = v.SubjectName
	}
	return out
}

func TestAddVisit_Defaults(t *testing.T) {
	e, _ := newTestEngine()
	v, err := e.AddVisit(NewVisit{SubjectName: "  Priya Mehta ", SubjectAge: intp(32), Reason: "Fever and headache"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.ID == uuid.Nil {
		t.Error("expected id to be assigned")
	}
	if v.SubjectName != "Priya Mehta" {
		t.Errorf("expected trimmed name, got %q", v.SubjectName)
	}
	if v.Priority != DefaultPriority {
		t.Errorf("expected default priority %d, got %d", DefaultPriority, v.Priority)
	}
	if v.Status != StatusWaiting {
		t.Errorf("expected waiting, got %s", v.Status)
	}
	if v.WaitMinutes != 0 {
		t.Errorf("expected wait 0, got %d", v.WaitMinutes)
	}
	if !v.ArrivedAt.Equal(t0) {
		t.Errorf("expected arrival %v, got %v", t0, v.ArrivedAt)
	}
	if v.Department != DefaultDepartment {
		t.Errorf("expected department %s, got %s", DefaultDepartment, v.Department)
	}
}

func TestAddVisit_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    NewVisit
		field string
	}{
		{"empty name", NewVisit{SubjectName: " ", SubjectAge: intp(1), Reason: "x"}, "subject_name"},
		{"empty reason", NewVisit{SubjectName: "a", SubjectAge: intp(1), Reason: ""}, "reason"},
		{"missing age", NewVisit{SubjectName: "a", Reason: "x"}, "subject_age"},
		{"negative age", NewVisit{SubjectName: "a", SubjectAge: intp(-1), Reason: "x"}, "subject_age"},
		{"priority too low", NewVisit{SubjectName: "a", SubjectAge: intp(1), Reason: "x", Priority: intp(0)}, "priority"},
		{"priority too high", NewVisit{SubjectName: "a", SubjectAge: intp(1), Reason: "x", Priority: intp(6)}, "priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine()
			_, err := e.AddVisit(tt.in)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("expected field %s, got %v", tt.field, err)
			}
			if e.Len() != 0 {
				t.Error("expected nothing to be added")
			}
		})
	}
}

func TestAddVisit_ZeroAgeAllowed(t *testing.T) {
	e, _ := newTestEngine()
	if _, err := e.AddVisit(NewVisit{SubjectName: "Newborn", SubjectAge: intp(0), Reason: "jaundice"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAddVisit_DuplicateNamesPermitted(t *testing.T) {
	e, _ := newTestEngine()
	a := mustAdd(t, e, "Arjun Singh", 3)
	b := mustAdd(t, e, "Arjun Singh", 3)
	if a.ID == b.ID {
		t.Error("expected distinct ids")
	}
	if e.Len() != 2 {
		t.Errorf("expected 2 visits, got %d", e.Len())
	}
}

func TestAddVisit_RejectsReusedID(t *testing.T) {
	fixed := uuid.New()
	e := NewEngine(WithIDGenerator(func() uuid.UUID { return fixed }))
	mustAdd(t, e, "first", 2)
	if _, err := e.AddVisit(NewVisit{SubjectName: "second", SubjectAge: intp(1), Reason: "x"}); err == nil {
		t.Fatal("expected error for reused id")
	}
	if e.Len() != 1 {
		t.Errorf("expected 1 visit, got %d", e.Len())
	}
}

// Arjun (priority 3) is listed before Anita (priority 1).
func TestListOrdered_PriorityFirst(t *testing.T) {
	e, _ := newTestEngine()
	mustAdd(t, e, "Anita Desai", 1)
	mustAdd(t, e, "Arjun Singh", 3)

	got := names(slices.Collect(e.ListOrdered(StatusAny)))
	want := []string{"Arjun Singh", "Anita Desai"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

// Equal priority: the patient who has waited 25 minutes goes before the one
// who has waited 15, regardless of insertion order.
func TestListOrdered_WaitTieBreak(t *testing.T) {
	e, _ := newTestEngine()
	now := t0.Add(time.Hour)
	err := e.LoadSnapshot([]Visit{
		{ID: uuid.New(), SubjectName: "Priya Mehta", Reason: "Fever", ArrivedAt: now.Add(-15 * time.Minute), Priority: 2, Status: StatusWaiting},
		{ID: uuid.New(), SubjectName: "Raj Malhotra", Reason: "Back pain", ArrivedAt: now.Add(-25 * time.Minute), Priority: 2, Status: StatusWaiting},
	})
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	e.RecomputeWaitTimes(now)

	got := e.Ordered(StatusAny)
	if got[0].SubjectName != "Raj Malhotra" || got[0].WaitMinutes != 25 {
		t.Errorf("expected Raj (25 min) first, got %s (%d min)", got[0].SubjectName, got[0].WaitMinutes)
	}
	if got[1].WaitMinutes != 15 {
		t.Errorf("expected second wait 15, got %d", got[1].WaitMinutes)
	}
}

func TestListOrdered_StableForEqualKeys(t *testing.T) {
	e, _ := newTestEngine()
	for _, n := range []string{"a", "b", "c", "d"} {
		mustAdd(t, e, n, 2)
	}
	first := names(e.Ordered(StatusAny))
	if !slices.Equal(first, []string{"a", "b", "c", "d"}) {
		t.Errorf("expected insertion order for equal keys, got %v", first)
	}
	for i := 0; i < 5; i++ {
		if again := names(e.Ordered(StatusAny)); !slices.Equal(first, again) {
			t.Fatalf("order changed between calls: %v vs %v", first, again)
		}
	}
}

func TestListOrdered_Filter(t *testing.T) {
	e, _ := newTestEngine()
	a := mustAdd(t, e, "a", 2)
	mustAdd(t, e, "b", 4)
	c := mustAdd(t, e, "c", 5)
	if _, err := e.TransitionStatus(a.ID, StatusInProgress); err != nil {
		t.Fatal(err)
	}
	if _, err := e.TransitionStatus(c.ID, StatusCancelled); err != nil {
		t.Fatal(err)
	}

	if got := names(e.Ordered(StatusWaiting)); !slices.Equal(got, []string{"b"}) {
		t.Errorf("waiting filter: got %v", got)
	}
	if got := names(e.Ordered(StatusCancelled)); !slices.Equal(got, []string{"c"}) {
		t.Errorf("cancelled filter: got %v", got)
	}
	// The unfiltered view keeps terminal visits.
	if got := names(e.Ordered(StatusAny)); !slices.Equal(got, []string{"c", "b", "a"}) {
		t.Errorf("all filter: got %v", got)
	}
}

func TestListOrdered_RestartableAndFresh(t *testing.T) {
	e, _ := newTestEngine()
	mustAdd(t, e, "a", 1)
	seq := e.ListOrdered(StatusAny)

	if n := len(slices.Collect(seq)); n != 1 {
		t.Fatalf("expected 1, got %d", n)
	}
	mustAdd(t, e, "b", 5)
	got := names(slices.Collect(seq))
	if !slices.Equal(got, []string{"b", "a"}) {
		t.Errorf("expected sequence to reflect latest mutation, got %v", got)
	}

	// Early termination.
	for v := range seq {
		if v.SubjectName != "b" {
			t.Errorf("expected b first, got %s", v.SubjectName)
		}
		break
	}
}

func TestListOrdered_ReturnsCopies(t *testing.T) {
	e, _ := newTestEngine()
	v := mustAdd(t, e, "a", 2)
	for got := range e.ListOrdered(StatusAny) {
		got.Priority = 5
		got.Status = StatusCompleted
	}
	stored, _ := e.Get(v.ID)
	if stored.Priority != 2 || stored.Status != StatusWaiting {
		t.Errorf("engine state leaked through returned visit: %+v", stored)
	}
}

func TestBumpPriority(t *testing.T) {
	e, _ := newTestEngine()
	v := mustAdd(t, e, "a", 2)

	got, err := e.BumpPriority(v.ID, Up)
	if err != nil || got.Priority != 3 {
		t.Fatalf("expected priority 3, got %d (%v)", got.Priority, err)
	}
	got, err = e.BumpPriority(v.ID, Down)
	if err != nil || got.Priority != 2 {
		t.Fatalf("expected priority 2, got %d (%v)", got.Priority, err)
	}
}

func TestBumpPriority_ClampsAtBounds(t *testing.T) {
	e, _ := newTestEngine()
	low := mustAdd(t, e, "low", MinPriority)
	high := mustAdd(t, e, "high", MaxPriority)

	got, err := e.BumpPriority(low.ID, Down)
	if err != nil {
		t.Fatalf("unexpected error at lower bound: %v", err)
	}
	if got.Priority != MinPriority {
		t.Errorf("expected %d, got %d", MinPriority, got.Priority)
	}

	got, err = e.BumpPriority(high.ID, Up)
	if err != nil {
		t.Fatalf("unexpected error at upper bound: %v", err)
	}
	if got.Priority != MaxPriority {
		t.Errorf("expected %d, got %d", MaxPriority, got.Priority)
	}
}

func TestBumpPriority_Errors(t *testing.T) {
	e, _ := newTestEngine()
	v := mustAdd(t, e, "a", 2)

	if _, err := e.BumpPriority(uuid.New(), Up); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := e.BumpPriority(v.ID, Direction("sideways")); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}

	for _, terminal := range []Status{StatusCompleted, StatusCancelled} {
		w := mustAdd(t, e, "t", 3)
		if terminal == StatusCompleted {
			e.TransitionStatus(w.ID, StatusInProgress)
		}
		if _, err := e.TransitionStatus(w.ID, terminal); err != nil {
			t.Fatal(err)
		}
		_, err := e.BumpPriority(w.ID, Up)
		var stateErr *InvalidStateError
		if !errors.As(err, &stateErr) {
			t.Fatalf("expected InvalidStateError for %s visit, got %v", terminal, err)
		}
		if stateErr.Status != terminal {
			t.Errorf("expected status %s in error, got %s", terminal, stateErr.Status)
		}
		stored, _ := e.Get(w.ID)
		if stored.Priority != 3 {
			t.Errorf("terminal visit priority changed to %d", stored.Priority)
		}
	}
}

func TestTransitionStatus_Table(t *testing.T) {
	for _, from := range Statuses {
		for _, to := range Statuses {
			want := CanTransition(from, to)
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				e, _ := newTestEngine()
				v := mustAdd(t, e, "a", 2)
				reach(t, e, v.ID, from)

				got, err := e.TransitionStatus(v.ID, to)
				if want {
					if err != nil {
						t.Fatalf("expected success, got %v", err)
					}
					if got.Status != to {
						t.Errorf("expected %s, got %s", to, got.Status)
					}
					return
				}
				if !errors.Is(err, ErrIllegalTransition) {
					t.Fatalf("expected illegal transition, got %v", err)
				}
				stored, _ := e.Get(v.ID)
				if stored.Status != from {
					t.Errorf("status changed on failed transition: %s", stored.Status)
				}
			})
		}
	}
}

// reach walks a fresh waiting visit to status s.
func reach(t *testing.T, e *Engine, id uuid.UUID, s Status) {
	t.Helper()
	var path []Status
	switch s {
	case StatusInProgress:
		path = []Status{StatusInProgress}
	case StatusCompleted:
		path = []Status{StatusInProgress, StatusCompleted}
	case StatusCancelled:
		path = []Status{StatusCancelled}
	}
	for _, step := range path {
		if _, err := e.TransitionStatus(id, step); err != nil {
			t.Fatalf("reach %s: %v", s, err)
		}
	}
}

func TestTransitionStatus_NoReturnToWaiting(t *testing.T) {
	e, _ := newTestEngine()
	v := mustAdd(t, e, "a", 2)
	if _, err := e.TransitionStatus(v.ID, StatusInProgress); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := e.TransitionStatus(v.ID, StatusWaiting)
	var terr *IllegalTransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected IllegalTransitionError, got %v", err)
	}
	if terr.From != StatusInProgress || terr.To != StatusWaiting {
		t.Errorf("unexpected error detail: %+v", terr)
	}
}

func TestTransitionStatus_PreservesPriorityAndArrival(t *testing.T) {
	e, clk := newTestEngine()
	v := mustAdd(t, e, "a", 4)
	clk.Advance(7 * time.Minute)
	got, err := e.TransitionStatus(v.ID, StatusInProgress)
	if err != nil {
		t.Fatal(err)
	}
	if got.Priority != 4 || !got.ArrivedAt.Equal(v.ArrivedAt) {
		t.Errorf("transition altered priority or arrival: %+v", got)
	}
	if !got.UpdatedAt.Equal(t0.Add(7 * time.Minute)) {
		t.Errorf("expected updated_at to move, got %v", got.UpdatedAt)
	}
}

func TestTransitionStatus_Errors(t *testing.T) {
	e, _ := newTestEngine()
	v := mustAdd(t, e, "a", 2)
	if _, err := e.TransitionStatus(uuid.New(), StatusInProgress); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := e.TransitionStatus(v.ID, Status("paused")); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRecomputeWaitTimes_OnlyWaiting(t *testing.T) {
	e, clk := newTestEngine()
	w := mustAdd(t, e, "waiting", 2)
	p := mustAdd(t, e, "in progress", 2)
	clk.Advance(10 * time.Minute)
	e.RecomputeWaitTimes(clk.Now())
	if _, err := e.TransitionStatus(p.ID, StatusInProgress); err != nil {
		t.Fatal(err)
	}

	n := e.RecomputeWaitTimes(t0.Add(40*time.Minute + 59*time.Second))
	if n != 1 {
		t.Errorf("expected 1 visit updated, got %d", n)
	}
	gotW, _ := e.Get(w.ID)
	if gotW.WaitMinutes != 40 {
		t.Errorf("expected floor to 40 minutes, got %d", gotW.WaitMinutes)
	}
	gotP, _ := e.Get(p.ID)
	if gotP.WaitMinutes != 10 {
		t.Errorf("expected in-progress visit to keep 10 minutes, got %d", gotP.WaitMinutes)
	}
}

func TestRecomputeWaitTimes_CountsOnlyChanges(t *testing.T) {
	e, _ := newTestEngine()
	mustAdd(t, e, "a", 2)
	mustAdd(t, e, "b", 3)

	if n := e.RecomputeWaitTimes(t0.Add(30 * time.Second)); n != 0 {
		t.Errorf("expected no change inside the first minute, got %d", n)
	}
	if n := e.RecomputeWaitTimes(t0.Add(3 * time.Minute)); n != 2 {
		t.Errorf("expected 2 changed, got %d", n)
	}
	if n := e.RecomputeWaitTimes(t0.Add(3*time.Minute + 20*time.Second)); n != 0 {
		t.Errorf("expected a same-minute tick to change nothing, got %d", n)
	}
}

func TestRecomputeWaitTimes_NeverNegative(t *testing.T) {
	e, _ := newTestEngine()
	v := mustAdd(t, e, "a", 2)
	e.RecomputeWaitTimes(t0.Add(-time.Hour))
	got, _ := e.Get(v.ID)
	if got.WaitMinutes != 0 {
		t.Errorf("expected 0 for clock before arrival, got %d", got.WaitMinutes)
	}
}

func TestRecomputeWaitTimes_Monotonic(t *testing.T) {
	e, clk := newTestEngine()
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		ids = append(ids, mustAdd(t, e, "v", 2).ID)
		clk.Advance(37 * time.Second)
	}
	prev := make(map[uuid.UUID]int)
	now := t0
	for step := 0; step < 200; step++ {
		now = now.Add(time.Duration(step%7) * 11 * time.Second)
		e.RecomputeWaitTimes(now)
		for _, id := range ids {
			v, _ := e.Get(id)
			if v.WaitMinutes < prev[id] {
				t.Fatalf("wait for %s decreased from %d to %d", id, prev[id], v.WaitMinutes)
			}
			prev[id] = v.WaitMinutes
		}
	}
}

func TestOrderingProperty_RandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	e, clk := newTestEngine()
	var ids []uuid.UUID

	for step := 0; step < 500; step++ {
		switch op := rng.Intn(4); {
		case op == 0 || len(ids) == 0:
			v, err := e.AddVisit(NewVisit{SubjectName: "p", SubjectAge: intp(rng.Intn(90)), Reason: "r", Priority: intp(1 + rng.Intn(5))})
			if err != nil {
				t.Fatal(err)
			}
			ids = append(ids, v.ID)
		case op == 1:
			dir := Up
			if rng.Intn(2) == 0 {
				dir = Down
			}
			e.BumpPriority(ids[rng.Intn(len(ids))], dir)
		case op == 2:
			e.TransitionStatus(ids[rng.Intn(len(ids))], Statuses[rng.Intn(len(Statuses))])
		default:
			clk.Advance(time.Duration(rng.Intn(300)) * time.Second)
			e.RecomputeWaitTimes(clk.Now())
		}

		list := e.Ordered(StatusAny)
		for i := 1; i < len(list); i++ {
			a, b := list[i-1], list[i]
			if a.Priority < b.Priority || (a.Priority == b.Priority && a.WaitMinutes < b.WaitMinutes) {
				t.Fatalf("step %d: %+v precedes %+v", step, a, b)
			}
		}
		for _, v := range list {
			if v.Priority < MinPriority || v.Priority > MaxPriority {
				t.Fatalf("priority out of range: %d", v.Priority)
			}
		}
	}
}

func TestCountByStatus(t *testing.T) {
	e, _ := newTestEngine()
	a := mustAdd(t, e, "a", 2)
	b := mustAdd(t, e, "b", 2)
	c := mustAdd(t, e, "c", 2)
	mustAdd(t, e, "d", 2)
	e.TransitionStatus(a.ID, StatusInProgress)
	e.TransitionStatus(b.ID, StatusInProgress)
	e.TransitionStatus(b.ID, StatusCompleted)
	e.TransitionStatus(c.ID, StatusCancelled)

	got := e.CountByStatus()
	want := StatusCounts{Waiting: 1, InProgress: 1, Completed: 1, Cancelled: 1, Total: 4}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if got.Of(StatusAny) != 4 || got.Of(StatusCompleted) != 1 {
		t.Errorf("Of returned unexpected values")
	}
}

func TestSnapshot_RoundTripPreservesOrdering(t *testing.T) {
	e, clk := newTestEngine()
	for i := 0; i < 12; i++ {
		mustAdd(t, e, string(rune('a'+i)), 1+i%3)
		clk.Advance(time.Duration(i%4) * time.Minute)
	}
	e.RecomputeWaitTimes(clk.Now())
	first := e.Ordered(StatusAny)
	e.TransitionStatus(first[0].ID, StatusInProgress)

	fresh := NewEngine()
	if err := fresh.LoadSnapshot(e.ExportSnapshot()); err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	want := e.Ordered(StatusAny)
	got := fresh.Ordered(StatusAny)
	if len(got) != len(want) {
		t.Fatalf("expected %d visits, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestLoadSnapshot_RejectsInvalid(t *testing.T) {
	id := uuid.New()
	valid := Visit{ID: id, SubjectName: "a", Reason: "r", ArrivedAt: t0, Priority: 2, Status: StatusWaiting}
	tests := []struct {
		name   string
		visits []Visit
	}{
		{"nil id", []Visit{{SubjectName: "a", ArrivedAt: t0, Priority: 2, Status: StatusWaiting}}},
		{"zero arrival", []Visit{{ID: uuid.New(), Priority: 2, Status: StatusWaiting}}},
		{"priority out of range", []Visit{{ID: uuid.New(), ArrivedAt: t0, Priority: 9, Status: StatusWaiting}}},
		{"unknown status", []Visit{{ID: uuid.New(), ArrivedAt: t0, Priority: 2, Status: "paused"}}},
		{"duplicate id", []Visit{valid, valid}},
		{"blank name", []Visit{{ID: uuid.New(), SubjectName: "  ", Reason: "r", ArrivedAt: t0, Priority: 2, Status: StatusWaiting}}},
		{"blank reason", []Visit{{ID: uuid.New(), SubjectName: "a", Reason: "\t", ArrivedAt: t0, Priority: 2, Status: StatusWaiting}}},
		{"negative age", []Visit{{ID: uuid.New(), SubjectName: "a", SubjectAge: -7, Reason: "r", ArrivedAt: t0, Priority: 2, Status: StatusWaiting}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine()
			existing := mustAdd(t, e, "keep", 2)
			if err := e.LoadSnapshot(tt.visits); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, err := e.Get(existing.ID); err != nil {
				t.Error("engine contents changed after failed load")
			}
		})
	}
}
