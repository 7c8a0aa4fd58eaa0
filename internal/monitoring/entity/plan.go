package entity

import "time"

// Plan sampling plan for a monitoring period
type Plan struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	TenantID    string    `json:"tenant_id" gorm:"size:32;not null;index"`
	Name        string    `json:"name" gorm:"size:200;not null"`
	PeriodStart time.Time `json:"period_start" gorm:"not null"`
	PeriodEnd   time.Time `json:"period_end" gorm:"not null"`
	Status      string    `json:"status" gorm:"size:20;default:draft"` // draft/active
	Notes       string    `json:"notes" gorm:"size:500"`
	CreatedBy   string    `json:"created_by" gorm:"size:32"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Rules []PlanRule `json:"rules,omitempty" gorm:"foreignKey:PlanID"`
}

func (Plan) TableName() string {
	return "wq_plans"
}

// Plan status
const (
	PlanStatusDraft  = "draft"
	PlanStatusActive = "active"
)

// PlanRule cross-product generator: matching points x matching
// parameters x generated dates x sample_count.
type PlanRule struct {
	ID             string    `json:"id" gorm:"primaryKey;size:32"`
	PlanID         string    `json:"plan_id" gorm:"size:32;not null;index"`
	PointKind      string    `json:"point_kind" gorm:"size:30;not null"`
	ParameterGroup string    `json:"parameter_group" gorm:"size:30;not null"`
	Frequency      string    `json:"frequency" gorm:"size:20;not null"` // daily/weekly/monthly/quarterly/adhoc
	SampleCount    int       `json:"sample_count" gorm:"default:1"`
	ContainerType  string    `json:"container_type" gorm:"size:50"`
	Preservatives  string    `json:"preservatives" gorm:"size:200"`
	HoldingTimeHrs int       `json:"holding_time_hrs"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (PlanRule) TableName() string {
	return "wq_plan_rules"
}

// Sampling frequencies
const (
	FrequencyDaily     = "daily"
	FrequencyWeekly    = "weekly"
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyAdhoc     = "adhoc"
)

// ValidFrequencies recognized rule frequencies
var ValidFrequencies = map[string]bool{
	FrequencyDaily:     true,
	FrequencyWeekly:    true,
	FrequencyMonthly:   true,
	FrequencyQuarterly: true,
	FrequencyAdhoc:     true,
}
