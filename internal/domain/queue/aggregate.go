package queue

import (
	"slices"
	"strings"

	"github.com/ehr/carequeue/pkg/capacity"
)

// DepartmentLoad summarises the active queue of one department.
type DepartmentLoad struct {
	Department     string         `json:"department"`
	Waiting        int            `json:"waiting"`
	InProgress     int            `json:"in_progress"`
	AvgWaitMinutes float64        `json:"average_wait_minutes"`
	MaxWaitMinutes int            `json:"max_wait_minutes"`
	Capacity       int            `json:"capacity"`
	Load           capacity.Ratio `json:"load"`
}

// DepartmentLoad groups non-terminal visits by department. capacities gives
// the number of patients a department can hold; departments absent from it
// report a zero ratio. Every department named in capacities is reported even
// when it has no visits. Results are sorted by department name.
func (e *Engine) DepartmentLoad(capacities map[string]int) []DepartmentLoad {
	type acc struct {
		DepartmentLoad
		waitSum int
	}
	byDept := make(map[string]*acc)
	get := func(name string) *acc {
		a, ok := byDept[name]
		if !ok {
			a = &acc{DepartmentLoad: DepartmentLoad{Department: name}}
			byDept[name] = a
		}
		return a
	}
	for name := range capacities {
		get(name)
	}
	for _, v := range e.visits {
		switch v.Status {
		case StatusWaiting:
			a := get(v.Department)
			a.Waiting++
			a.waitSum += v.WaitMinutes
			a.MaxWaitMinutes = max(a.MaxWaitMinutes, v.WaitMinutes)
		case StatusInProgress:
			get(v.Department).InProgress++
		}
	}

	out := make([]DepartmentLoad, 0, len(byDept))
	for name, a := range byDept {
		if a.Waiting > 0 {
			a.AvgWaitMinutes = float64(a.waitSum) / float64(a.Waiting)
		}
		a.Capacity = capacities[name]
		a.Load = capacity.Evaluate(capacity.Usage{Used: a.Waiting + a.InProgress, Total: a.Capacity})
		out = append(out, a.DepartmentLoad)
	}
	slices.SortFunc(out, func(a, b DepartmentLoad) int { return strings.Compare(a.Department, b.Department) })
	return out
}
