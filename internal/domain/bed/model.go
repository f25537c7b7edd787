package bed

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/carequeue/pkg/capacity"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusOccupied    Status = "occupied"
	StatusMaintenance Status = "maintenance"
)

func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusAvailable, StatusOccupied, StatusMaintenance:
		return st, true
	}
	return "", false
}

// Bed maps to the bed table.
type Bed struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	Department         string     `db:"department" json:"department"`
	Number             int        `db:"number" json:"number"`
	Status             Status     `db:"status" json:"status"`
	PatientName        *string    `db:"patient_name" json:"patient_name,omitempty"`
	PatientID          *string    `db:"patient_id" json:"patient_id,omitempty"`
	AdmittedAt         *time.Time `db:"admitted_at" json:"admitted_at,omitempty"`
	EstimatedDischarge *time.Time `db:"estimated_discharge" json:"estimated_discharge,omitempty"`
	Notes              *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Assignment is the body of PUT /beds/:id/assign.
type Assignment struct {
	PatientName        string     `json:"patient_name"`
	PatientID          string     `json:"patient_id,omitempty"`
	EstimatedDischarge *time.Time `json:"estimated_discharge,omitempty"`
	Notes              string     `json:"notes,omitempty"`
}

// Filter narrows List. Empty fields match everything; Query matches patient
// name, patient id or bed number.
type Filter struct {
	Department string
	Status     Status
	Query      string
}

// StatusCount is one (department, status) bucket.
type StatusCount struct {
	Department string
	Status     Status
	Count      int
}

type DepartmentSummary struct {
	Department  string         `json:"department"`
	Total       int            `json:"total"`
	Occupied    int            `json:"occupied"`
	Available   int            `json:"available"`
	Maintenance int            `json:"maintenance"`
	Occupancy   capacity.Ratio `json:"occupancy"`
}

type Summary struct {
	Overall     DepartmentSummary   `json:"overall"`
	Departments []DepartmentSummary `json:"departments"`
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
