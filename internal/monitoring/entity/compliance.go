package entity

import "time"

// Compliance aggregated pass/fail figures for one (point, parameter,
// period, granularity) key. Upserted on every recompute; never patched
// incrementally.
type Compliance struct {
	ID               string    `json:"id" gorm:"primaryKey;size:32"`
	TenantID         string    `json:"tenant_id" gorm:"size:32;not null;index"`
	SamplingPointID  string    `json:"sampling_point_id" gorm:"size:32;not null;uniqueIndex:idx_compliance_key"`
	ParameterID      string    `json:"parameter_id" gorm:"size:32;not null;uniqueIndex:idx_compliance_key"`
	PeriodStart      time.Time `json:"period_start" gorm:"not null;uniqueIndex:idx_compliance_key"`
	Granularity      string    `json:"granularity" gorm:"size:10;not null;uniqueIndex:idx_compliance_key"` // week/month/quarter
	SamplesTaken     int       `json:"samples_taken"`
	SamplesCompliant int       `json:"samples_compliant"`
	CompliancePct    float64   `json:"compliance_pct" gorm:"type:decimal(5,1)"`
	WorstValue       *float64  `json:"worst_value" gorm:"type:decimal(14,6)"`
	Breaches         int       `json:"breaches"`
	ComputedAt       time.Time `json:"computed_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Compliance) TableName() string {
	return "wq_compliance"
}

// Granularities
const (
	GranularityWeek    = "week"
	GranularityMonth   = "month"
	GranularityQuarter = "quarter"
)

// ValidGranularities recognized aggregation granularities
var ValidGranularities = map[string]bool{
	GranularityWeek:    true,
	GranularityMonth:   true,
	GranularityQuarter: true,
}

// Compliance grades
const (
	GradeExcellent = "Excellent" // >= 95
	GradeGood      = "Good"      // >= 85
	GradeFair      = "Fair"      // >= 70
	GradePoor      = "Poor"      // >= 50
	GradeCritical  = "Critical"
)

// GradeFor maps an average compliance percentage to a grade word.
func GradeFor(pct float64) string {
	switch {
	case pct >= 95:
		return GradeExcellent
	case pct >= 85:
		return GradeGood
	case pct >= 70:
		return GradeFair
	case pct >= 50:
		return GradePoor
	default:
		return GradeCritical
	}
}
