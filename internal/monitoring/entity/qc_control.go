package entity

import "time"

// QcControl one QC control reading. SampleID nil means a standalone
// lab control not tied to a field sample.
type QcControl struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	TenantID      string    `json:"tenant_id" gorm:"size:32;not null;index"`
	SampleID      *string   `json:"sample_id" gorm:"size:32;index"`
	ParameterID   *string   `json:"parameter_id" gorm:"size:32"`
	Type          string    `json:"type" gorm:"size:20;not null"` // blank/duplicate/spike/control_sample
	TargetValue   *float64  `json:"target_value" gorm:"type:decimal(14,6)"`
	AcceptedRange string    `json:"accepted_range" gorm:"size:20"` // e.g. "±10%"
	Outcome       string    `json:"outcome" gorm:"size:10"`        // empty until evaluated, then pass/warn/fail
	Details       JSONB     `json:"details" gorm:"type:jsonb"`
	CreatedBy     string    `json:"created_by" gorm:"size:32"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (QcControl) TableName() string {
	return "wq_qc_controls"
}

// Control types
const (
	ControlTypeBlank         = "blank"
	ControlTypeDuplicate     = "duplicate"
	ControlTypeSpike         = "spike"
	ControlTypeControlSample = "control_sample"
)

// ValidControlTypes recognized control types
var ValidControlTypes = map[string]bool{
	ControlTypeBlank:         true,
	ControlTypeDuplicate:     true,
	ControlTypeSpike:         true,
	ControlTypeControlSample: true,
}

// Control outcomes
const (
	OutcomePass = "pass"
	OutcomeWarn = "warn"
	OutcomeFail = "fail"
)
