package bed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/carequeue/pkg/capacity"
)

// ErrState is returned when an operation does not apply to the bed's
// current status.
var ErrState = errors.New("bed is not in a valid state for this operation")

type Service struct {
	// mu serialises read-check-write sequences on a single bed.
	mu   sync.Mutex
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) CreateBed(ctx context.Context, b *Bed) error {
	b.Department = strings.TrimSpace(b.Department)
	if b.Department == "" {
		return fmt.Errorf("department is required")
	}
	if b.Number <= 0 {
		return fmt.Errorf("number must be positive")
	}
	if b.Status == "" {
		b.Status = StatusAvailable
	}
	switch b.Status {
	case StatusAvailable, StatusMaintenance:
	case StatusOccupied:
		return fmt.Errorf("%w: new beds cannot be created occupied, assign a patient instead", ErrState)
	default:
		return fmt.Errorf("invalid status: %s", b.Status)
	}
	b.PatientName, b.PatientID, b.AdmittedAt, b.EstimatedDischarge = nil, nil, nil, nil
	return s.repo.Create(ctx, b)
}

func (s *Service) GetBed(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListBeds(ctx context.Context, f Filter, limit, offset int) ([]*Bed, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// AssignBed places a patient in an available bed.
func (s *Service) AssignBed(ctx context.Context, id uuid.UUID, a Assignment) (*Bed, error) {
	name := strings.TrimSpace(a.PatientName)
	if name == "" {
		return nil, fmt.Errorf("patient_name is required")
	}
	return s.mutate(ctx, id, func(b *Bed) error {
		if b.Status != StatusAvailable {
			return fmt.Errorf("%w: bed %d in %s is %s", ErrState, b.Number, b.Department, b.Status)
		}
		now := s.now()
		b.Status = StatusOccupied
		b.PatientName = &name
		b.PatientID = strPtr(strings.TrimSpace(a.PatientID))
		b.AdmittedAt = &now
		b.EstimatedDischarge = a.EstimatedDischarge
		if notes := strings.TrimSpace(a.Notes); notes != "" {
			b.Notes = &notes
		}
		return nil
	})
}

// ReleaseBed discharges the patient from an occupied bed.
func (s *Service) ReleaseBed(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return s.mutate(ctx, id, func(b *Bed) error {
		if b.Status != StatusOccupied {
			return fmt.Errorf("%w: bed %d in %s is %s", ErrState, b.Number, b.Department, b.Status)
		}
		b.Status = StatusAvailable
		b.PatientName, b.PatientID, b.AdmittedAt, b.EstimatedDischarge = nil, nil, nil, nil
		return nil
	})
}

// SetMaintenance takes a bed out of service or returns it. Occupied beds
// must be released first. Repeating the current state is a no-op.
func (s *Service) SetMaintenance(ctx context.Context, id uuid.UUID, on bool) (*Bed, error) {
	return s.mutate(ctx, id, func(b *Bed) error {
		if b.Status == StatusOccupied {
			return fmt.Errorf("%w: bed %d in %s is occupied", ErrState, b.Number, b.Department)
		}
		if on {
			b.Status = StatusMaintenance
		} else {
			b.Status = StatusAvailable
		}
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(*Bed) error) (*Bed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Summary reports bed counts and occupancy per department and overall.
// Occupancy is occupied beds over all beds, maintenance included.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byDept := make(map[string]*DepartmentSummary)
	overall := DepartmentSummary{Department: "all"}
	for _, c := range counts {
		d, ok := byDept[c.Department]
		if !ok {
			d = &DepartmentSummary{Department: c.Department}
			byDept[c.Department] = d
		}
		for _, target := range []*DepartmentSummary{d, &overall} {
			target.Total += c.Count
			switch c.Status {
			case StatusOccupied:
				target.Occupied += c.Count
			case StatusAvailable:
				target.Available += c.Count
			case StatusMaintenance:
				target.Maintenance += c.Count
			}
		}
	}

	out := &Summary{Departments: make([]DepartmentSummary, 0, len(byDept))}
	for _, d := range byDept {
		d.Occupancy = capacity.Evaluate(capacity.Usage{Used: d.Occupied, Total: d.Total})
		out.Departments = append(out.Departments, *d)
	}
	sort.Slice(out.Departments, func(i, j int) bool {
		return out.Departments[i].Department < out.Departments[j].Department
	})
	overall.Occupancy = capacity.Evaluate(capacity.Usage{Used: overall.Occupied, Total: overall.Total})
	out.Overall = overall
	return out, nil
}
