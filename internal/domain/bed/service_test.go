package bed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestService() *Service {
	svc := NewService(NewMemoryRepo())
	svc.now = func() time.Time { return time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC) }
	return svc
}

func mustCreate(t *testing.T, svc *Service, dept string, number int) *Bed {
	t.Helper()
	b := &Bed{Department: dept, Number: number}
	if err := svc.CreateBed(context.Background(), b); err != nil {
		t.Fatalf("CreateBed: %v", err)
	}
	return b
}

func TestCreateBed(t *testing.T) {
	svc := newTestService()
	b := mustCreate(t, svc, " ICU ", 1)
	if b.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if b.Status != StatusAvailable {
		t.Errorf("expected available, got %s", b.Status)
	}
	if b.Department != "ICU" {
		t.Errorf("expected trimmed department, got %q", b.Department)
	}
}

func TestCreateBed_Validation(t *testing.T) {
	tests := []struct {
		name string
		bed  Bed
	}{
		{"missing department", Bed{Number: 1}},
		{"zero number", Bed{Department: "ICU"}},
		{"bad status", Bed{Department: "ICU", Number: 1, Status: "broken"}},
		{"occupied", Bed{Department: "ICU", Number: 1, Status: StatusOccupied}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService()
			if err := svc.CreateBed(context.Background(), &tt.bed); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCreateBed_Duplicate(t *testing.T) {
	svc := newTestService()
	mustCreate(t, svc, "ICU", 1)
	err := svc.CreateBed(context.Background(), &Bed{Department: "icu", Number: 1})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestAssignAndRelease(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	b := mustCreate(t, svc, "ICU", 4)

	got, err := svc.AssignBed(ctx, b.ID, Assignment{PatientName: "James Wilson", PatientID: "P1234"})
	if err != nil {
		t.Fatalf("AssignBed: %v", err)
	}
	if got.Status != StatusOccupied || got.PatientName == nil || *got.PatientName != "James Wilson" {
		t.Errorf("unexpected bed after assign: %+v", got)
	}
	if got.AdmittedAt == nil || !got.AdmittedAt.Equal(svc.now()) {
		t.Errorf("expected admitted_at to be set, got %v", got.AdmittedAt)
	}

	if _, err := svc.AssignBed(ctx, b.ID, Assignment{PatientName: "Someone Else"}); !errors.Is(err, ErrState) {
		t.Errorf("expected ErrState assigning an occupied bed, got %v", err)
	}

	got, err = svc.ReleaseBed(ctx, b.ID)
	if err != nil {
		t.Fatalf("ReleaseBed: %v", err)
	}
	if got.Status != StatusAvailable || got.PatientName != nil || got.PatientID != nil || got.AdmittedAt != nil {
		t.Errorf("expected cleared bed, got %+v", got)
	}

	if _, err := svc.ReleaseBed(ctx, b.ID); !errors.Is(err, ErrState) {
		t.Errorf("expected ErrState releasing an available bed, got %v", err)
	}
}

func TestAssignBed_RequiresPatientName(t *testing.T) {
	svc := newTestService()
	b := mustCreate(t, svc, "ICU", 1)
	if _, err := svc.AssignBed(context.Background(), b.ID, Assignment{PatientName: "  "}); err == nil {
		t.Fatal("expected error")
	}
	stored, _ := svc.GetBed(context.Background(), b.ID)
	if stored.Status != StatusAvailable {
		t.Errorf("bed changed on failed assign: %s", stored.Status)
	}
}

func TestAssignBed_NotFound(t *testing.T) {
	svc := newTestService()
	_, err := svc.AssignBed(context.Background(), uuid.New(), Assignment{PatientName: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetMaintenance(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	b := mustCreate(t, svc, "Emergency", 2)

	got, err := svc.SetMaintenance(ctx, b.ID, true)
	if err != nil || got.Status != StatusMaintenance {
		t.Fatalf("expected maintenance, got %v (%v)", got, err)
	}
	if _, err := svc.AssignBed(ctx, b.ID, Assignment{PatientName: "x"}); !errors.Is(err, ErrState) {
		t.Errorf("expected maintenance bed to reject assignment, got %v", err)
	}
	got, err = svc.SetMaintenance(ctx, b.ID, false)
	if err != nil || got.Status != StatusAvailable {
		t.Fatalf("expected available, got %v (%v)", got, err)
	}

	if _, err := svc.AssignBed(ctx, b.ID, Assignment{PatientName: "x"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetMaintenance(ctx, b.ID, true); !errors.Is(err, ErrState) {
		t.Errorf("expected occupied bed to reject maintenance, got %v", err)
	}
}

func TestListBeds_FilterAndSearch(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	icu1 := mustCreate(t, svc, "ICU", 1)
	mustCreate(t, svc, "ICU", 2)
	er := mustCreate(t, svc, "Emergency", 12)
	svc.AssignBed(ctx, icu1.ID, Assignment{PatientName: "Linda Brown", PatientID: "P5555"})
	svc.AssignBed(ctx, er.ID, Assignment{PatientName: "Robert Davis"})

	items, total, _ := svc.ListBeds(ctx, Filter{}, 0, 0)
	if total != 3 || items[0].Department != "Emergency" {
		t.Errorf("expected 3 beds sorted by department, got %d first %s", total, items[0].Department)
	}

	_, total, _ = svc.ListBeds(ctx, Filter{Department: "icu"}, 0, 0)
	if total != 2 {
		t.Errorf("expected 2 ICU beds, got %d", total)
	}

	items, total, _ = svc.ListBeds(ctx, Filter{Status: StatusOccupied, Department: "ICU"}, 0, 0)
	if total != 1 || items[0].ID != icu1.ID {
		t.Errorf("expected occupied ICU bed, got %d", total)
	}

	for _, q := range []string{"linda", "p5555"} {
		items, total, _ = svc.ListBeds(ctx, Filter{Query: q}, 0, 0)
		if total != 1 || items[0].ID != icu1.ID {
			t.Errorf("query %q: expected Linda's bed, got %d results", q, total)
		}
	}
	_, total, _ = svc.ListBeds(ctx, Filter{Query: "12"}, 0, 0)
	if total != 1 {
		t.Errorf("expected bed number search to match 1, got %d", total)
	}

	items, total, _ = svc.ListBeds(ctx, Filter{}, 2, 2)
	if total != 3 || len(items) != 1 {
		t.Errorf("expected last page with 1 bed, got %d of %d", len(items), total)
	}
}

func TestSummary(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	var icu []*Bed
	for i := 1; i <= 5; i++ {
		icu = append(icu, mustCreate(t, svc, "ICU", i))
	}
	for _, b := range icu[:4] {
		if _, err := svc.AssignBed(ctx, b.ID, Assignment{PatientName: "p"}); err != nil {
			t.Fatal(err)
		}
	}
	ped := mustCreate(t, svc, "Pediatrics", 1)
	mustCreate(t, svc, "Pediatrics", 2)
	svc.SetMaintenance(ctx, ped.ID, true)

	sum, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(sum.Departments) != 2 || sum.Departments[0].Department != "ICU" {
		t.Fatalf("unexpected departments %+v", sum.Departments)
	}
	icuSum := sum.Departments[0]
	if icuSum.Total != 5 || icuSum.Occupied != 4 || icuSum.Available != 1 {
		t.Errorf("unexpected ICU counts %+v", icuSum)
	}
	if icuSum.Occupancy.Value != 0.8 || icuSum.Occupancy.Severity != "medium" {
		t.Errorf("expected 0.8 medium, got %+v", icuSum.Occupancy)
	}
	pedSum := sum.Departments[1]
	if pedSum.Maintenance != 1 || pedSum.Available != 1 || pedSum.Occupancy.Value != 0 {
		t.Errorf("unexpected pediatrics summary %+v", pedSum)
	}
	if sum.Overall.Total != 7 || sum.Overall.Occupied != 4 || sum.Overall.Maintenance != 1 {
		t.Errorf("unexpected overall %+v", sum.Overall)
	}
}

func TestSummary_Empty(t *testing.T) {
	sum, err := newTestService().Summary(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Overall.Total != 0 || sum.Overall.Occupancy.Value != 0 || len(sum.Departments) != 0 {
		t.Errorf("unexpected empty summary %+v", sum)
	}
}
