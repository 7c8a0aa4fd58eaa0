package entity

import "time"

// Sample one physical sample bottle. A nil PlanID means the sample was
// created ad hoc rather than by plan generation. CustodyState is only
// mutated through the custody service; every change appends a
// CustodyEvent.
type Sample struct {
	ID              string      `json:"id" gorm:"primaryKey;size:32"`
	TenantID        string      `json:"tenant_id" gorm:"size:32;not null;index"`
	SamplingPointID string      `json:"sampling_point_id" gorm:"size:32;not null;index"`
	PlanID          *string     `json:"plan_id" gorm:"size:32;index"`
	PlanRuleID      *string     `json:"plan_rule_id" gorm:"size:32"`
	Barcode         string      `json:"barcode" gorm:"size:20;uniqueIndex;not null"`
	ScheduledFor    time.Time   `json:"scheduled_for" gorm:"not null;index"`
	CustodyState    string      `json:"custody_state" gorm:"size:20;default:scheduled;index"`
	CollectedAt     *time.Time  `json:"collected_at"`
	CollectedBy     string      `json:"collected_by" gorm:"size:32"`
	TempCOnReceipt  *float64    `json:"temp_c_on_receipt" gorm:"type:decimal(5,2)"`
	RejectReason    string      `json:"reject_reason" gorm:"size:500"`
	Photos          StringArray `json:"photos" gorm:"type:jsonb"`
	Notes           string      `json:"notes" gorm:"size:500"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`

	Params []SampleParam  `json:"params,omitempty" gorm:"foreignKey:SampleID"`
	Chain  []CustodyEvent `json:"chain,omitempty" gorm:"foreignKey:SampleID"`
}

func (Sample) TableName() string {
	return "wq_samples"
}

// Custody states, strictly forward
const (
	CustodyStateScheduled   = "scheduled"
	CustodyStateCollected   = "collected"
	CustodyStateReceivedLab = "received_lab"
	CustodyStateInAnalysis  = "in_analysis"
	CustodyStateReported    = "reported"
	CustodyStateRejected    = "rejected" // terminal, reachable from any non-terminal state
)

// CustodyStateOrder fixed forward order of the non-terminal chain
var CustodyStateOrder = map[string]int{
	CustodyStateScheduled:   0,
	CustodyStateCollected:   1,
	CustodyStateReceivedLab: 2,
	CustodyStateInAnalysis:  3,
	CustodyStateReported:    4,
}

// ValidCustodyTransitions legal custody transitions. Rejection is
// handled separately: it is legal from every non-terminal state.
var ValidCustodyTransitions = map[string][]string{
	CustodyStateScheduled:   {CustodyStateCollected},
	CustodyStateCollected:   {CustodyStateReceivedLab},
	CustodyStateReceivedLab: {CustodyStateInAnalysis},
	CustodyStateInAnalysis:  {CustodyStateReported},
}

// CanTransition reports whether from -> to is a legal custody move.
func CanTransition(from, to string) bool {
	if to == CustodyStateRejected {
		return from != CustodyStateReported && from != CustodyStateRejected
	}
	for _, next := range ValidCustodyTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CustodyEvent append-only chain-of-custody log entry. Timestamps are
// monotonic per sample; the repository enforces that at the write
// boundary.
type CustodyEvent struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	SampleID  string    `json:"sample_id" gorm:"size:32;not null;index"`
	State     string    `json:"state" gorm:"size:20;not null"`
	Timestamp time.Time `json:"timestamp" gorm:"not null"`
	ActorID   string    `json:"actor_id" gorm:"size:32;not null"`
	Notes     string    `json:"notes" gorm:"size:500"`
	CreatedAt time.Time `json:"created_at"`
}

func (CustodyEvent) TableName() string {
	return "wq_custody_events"
}

// SampleParam one (sample, parameter) pairing awaiting analysis.
// Created with the sample, never deleted.
type SampleParam struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	SampleID    string    `json:"sample_id" gorm:"size:32;not null;index"`
	ParameterID string    `json:"parameter_id" gorm:"size:32;not null;index"`
	Status      string    `json:"status" gorm:"size:20;default:pending"` // pending/in_analysis/resulted
	Method      string    `json:"method" gorm:"size:100"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (SampleParam) TableName() string {
	return "wq_sample_params"
}

// Sample param status
const (
	SampleParamStatusPending    = "pending"
	SampleParamStatusInAnalysis = "in_analysis"
	SampleParamStatusResulted   = "resulted"
)
