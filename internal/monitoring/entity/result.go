package entity

import "time"

// Result one analytical result for a sample parameter. Exactly one
// result is accepted per SampleParam; re-analysis is an explicit
// correction flow, not a silent overwrite.
type Result struct {
	ID             string      `json:"id" gorm:"primaryKey;size:32"`
	SampleParamID  string      `json:"sample_param_id" gorm:"size:32;not null;uniqueIndex"`
	Value          *float64    `json:"value" gorm:"type:decimal(14,6)"`
	ValueQualifier string      `json:"value_qualifier" gorm:"size:2"` // </>/~ or empty
	Unit           string      `json:"unit" gorm:"size:20"`
	AnalyzedAt     time.Time   `json:"analyzed_at" gorm:"index"`
	AnalystID      string      `json:"analyst_id" gorm:"size:32"`
	Instrument     string      `json:"instrument" gorm:"size:100"`
	LOD            *float64    `json:"lod" gorm:"type:decimal(14,6)"`
	Uncertainty    *float64    `json:"uncertainty" gorm:"type:decimal(14,6)"`
	QCFlags        StringArray `json:"qc_flags" gorm:"type:jsonb"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (Result) TableName() string {
	return "wq_results"
}

// Value qualifiers
const (
	QualifierBelow       = "<"
	QualifierAbove       = ">"
	QualifierApproximate = "~"
)

// QC flags set by auto-flagging
const (
	FlagBelowLOD           = "below_lod"
	FlagExceedsWHOLimit    = "exceeds_who_limit"
	FlagExceedsWasrebLimit = "exceeds_wasreb_limit"
	FlagExceedsLocalLimit  = "exceeds_local_limit"
	FlagHighUncertainty    = "high_uncertainty"
)
