// Package capacity computes used/total ratios and the severity bands the
// dashboards colour-code them with. The same bands apply to bed occupancy,
// department queue load and inventory shortage.
package capacity

const (
	// MediumThreshold is the lowest ratio that counts as medium severity.
	MediumThreshold = 0.6
	// HighThreshold is the ratio above which severity is high.
	HighThreshold = 0.8
)

// Severity is a coarse band for a ratio.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Usage is a {used, total} pair.
type Usage struct {
	Used  int `json:"used"`
	Total int `json:"total"`
}

// Ratio is the result of evaluating a Usage.
type Ratio struct {
	Used     int      `json:"used"`
	Total    int      `json:"total"`
	Value    float64  `json:"ratio"`
	Percent  float64  `json:"percent"`
	Severity Severity `json:"severity"`
}

// Of returns used/total clamped to [0,1]. A non-positive total yields 0.
func Of(used, total int) float64 {
	if total <= 0 || used <= 0 {
		return 0
	}
	r := float64(used) / float64(total)
	if r > 1 {
		return 1
	}
	return r
}

// Band maps a ratio to its severity: below 0.6 is low, 0.6 through 0.8 is
// medium and anything above 0.8 is high.
func Band(ratio float64) Severity {
	switch {
	case ratio > HighThreshold:
		return SeverityHigh
	case ratio >= MediumThreshold:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Evaluate computes the clamped ratio and band for u.
func Evaluate(u Usage) Ratio {
	v := Of(u.Used, u.Total)
	return Ratio{
		Used:     u.Used,
		Total:    u.Total,
		Value:    v,
		Percent:  v * 100,
		Severity: Band(v),
	}
}

// Sum folds a collection of usages into a single one.
func Sum(usages ...Usage) Usage {
	var out Usage
	for _, u := range usages {
		out.Used += u.Used
		out.Total += u.Total
	}
	return out
}
