package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/carequeue/internal/domain/bed"
	"github.com/ehr/carequeue/internal/domain/inventory"
	"github.com/ehr/carequeue/internal/domain/queue"
)

type demoVisit struct {
	name     string
	age      int
	reason   string
	dept     string
	waited   time.Duration
	priority int
	status   queue.Status
}

var demoVisits = []demoVisit{
	{"Arjun Singh", 45, "Chest pain", "Emergency", 25 * time.Minute, 3, queue.StatusWaiting},
	{"Priya Mehta", 32, "Fever and headache", "General", 15 * time.Minute, 2, queue.StatusWaiting},
	{"Raj Malhotra", 60, "Difficulty breathing", "Emergency", 10 * time.Minute, 4, queue.StatusInProgress},
	{"Anita Desai", 28, "Sprained ankle", "General", 40 * time.Minute, 1, queue.StatusWaiting},
}

var demoDepartments = []struct {
	name string
	beds int
}{
	{"ICU", 20},
	{"Emergency", 30},
	{"General Ward", 70},
	{"Pediatrics", 25},
	{"Cardiology", 15},
}

var (
	demoFirstNames = []string{"John", "Jane", "Robert", "Mary", "James", "Patricia", "Michael", "Linda", "William", "Elizabeth"}
	demoLastNames  = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Miller", "Davis", "Garcia", "Rodriguez", "Wilson"}
)

var demoItems = []struct {
	name, category, unit string
	stock, minimum       int
}{
	{"Surgical Masks", "Protective Equipment", "pcs", 2450, 1000},
	{"Disposable Gloves", "Protective Equipment", "pcs", 850, 2000},
	{"Paracetamol 500mg", "Medication", "boxes", 540, 200},
	{"Bandages", "Medical Supplies", "pcs", 320, 500},
	{"Hand Sanitizer", "Hygiene Products", "bottles", 180, 100},
	{"Ibuprofen 400mg", "Medication", "boxes", 430, 150},
	{"Syringes", "Medical Supplies", "pcs", 970, 300},
	{"Face Shields", "Protective Equipment", "pcs", 120, 200},
	{"Stethoscopes", "Medical Equipment", "pcs", 25, 10},
	{"Blood Pressure Monitors", "Medical Equipment", "pcs", 15, 5},
	{"Antibiotic Ointment", "Medication", "tubes", 85, 50},
	{"Antiseptic Solution", "Medical Supplies", "bottles", 40, 50},
}

// seedDemo fills empty stores with a fixed demo data set. Stores that
// already hold data are left alone, so restarting with SEED_DEMO=true is
// safe.
func seedDemo(ctx context.Context, a *app, now time.Time, logger zerolog.Logger) error {
	if len(a.queue.Export(ctx)) == 0 {
		visits := make([]queue.Visit, 0, len(demoVisits))
		for _, d := range demoVisits {
			visits = append(visits, queue.Visit{
				ID:          uuid.New(),
				SubjectName: d.name,
				SubjectAge:  d.age,
				Reason:      d.reason,
				Department:  d.dept,
				ArrivedAt:   now.Add(-d.waited),
				Priority:    d.priority,
				Status:      d.status,
				UpdatedAt:   now,
			})
		}
		if err := a.queue.Import(ctx, visits); err != nil {
			return fmt.Errorf("seed queue: %w", err)
		}
		logger.Info().Int("visits", len(visits)).Msg("seeded demo queue")
	}

	if _, total, err := a.beds.ListBeds(ctx, bed.Filter{}, 1, 0); err != nil {
		return err
	} else if total == 0 {
		n, err := seedBeds(ctx, a.beds, now)
		if err != nil {
			return fmt.Errorf("seed beds: %w", err)
		}
		logger.Info().Int("beds", n).Msg("seeded demo beds")
	}

	if _, total, err := a.inventory.ListItems(ctx, inventory.Filter{}, 1, 0); err != nil {
		return err
	} else if total == 0 {
		for _, d := range demoItems {
			item := &inventory.Item{
				Name:         d.name,
				Category:     d.category,
				Unit:         d.unit,
				CurrentStock: d.stock,
				MinimumStock: d.minimum,
			}
			if err := a.inventory.CreateItem(ctx, item); err != nil {
				return fmt.Errorf("seed inventory: %w", err)
			}
		}
		logger.Info().Int("items", len(demoItems)).Msg("seeded demo inventory")
	}
	return nil
}

// seedBeds occupies roughly 70% of beds. The generator is fixed-seeded so
// every demo run shows the same ward.
func seedBeds(ctx context.Context, svc *bed.Service, now time.Time) (int, error) {
	rng := rand.New(rand.NewPCG(7, 11))
	count := 0
	for _, dept := range demoDepartments {
		for n := 1; n <= dept.beds; n++ {
			b := &bed.Bed{Department: dept.name, Number: n}
			if err := svc.CreateBed(ctx, b); err != nil {
				return count, err
			}
			count++
			if rng.Float64() <= 0.3 {
				continue
			}
			discharge := now.AddDate(0, 0, 1+rng.IntN(10))
			a := bed.Assignment{
				PatientName:        demoFirstNames[rng.IntN(len(demoFirstNames))] + " " + demoLastNames[rng.IntN(len(demoLastNames))],
				PatientID:          fmt.Sprintf("P%d", 1000+rng.IntN(9000)),
				EstimatedDischarge: &discharge,
			}
			if _, err := svc.AssignBed(ctx, b.ID, a); err != nil {
				return count, err
			}
		}
	}
	return count, nil
}
