package entity

import "time"

// SamplingPoint catalog entry for a physical sampling location.
// Read-only to the monitoring pipeline; rows are supplied by the
// catalog surface and referenced by id everywhere else.
type SamplingPoint struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	TenantID  string    `json:"tenant_id" gorm:"size:32;not null;index"`
	Code      string    `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	Kind      string    `json:"kind" gorm:"size:30;not null"` // source/treatment/reservoir/distribution/consumer_tap
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SamplingPoint) TableName() string {
	return "wq_sampling_points"
}

// Sampling point kinds
const (
	PointKindSource       = "source"
	PointKindTreatment    = "treatment"
	PointKindReservoir    = "reservoir"
	PointKindDistribution = "distribution"
	PointKindConsumerTap  = "consumer_tap"
)

// ValidPointKinds recognized point kinds for plan rules
var ValidPointKinds = map[string]bool{
	PointKindSource:       true,
	PointKindTreatment:    true,
	PointKindReservoir:    true,
	PointKindDistribution: true,
	PointKindConsumerTap:  true,
}

// Parameter catalog entry for an analytical parameter. Limits are
// optional; when more than one is configured the effective limit is
// resolved local > wasreb > who.
type Parameter struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	TenantID    string    `json:"tenant_id" gorm:"size:32;not null;index"`
	Code        string    `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name        string    `json:"name" gorm:"size:200;not null"`
	Group       string    `json:"group" gorm:"column:param_group;size:30;not null"` // physical/chemical/bacteriological/metals
	Unit        string    `json:"unit" gorm:"size:20"`                              // canonical unit for stored results
	Method      string    `json:"method" gorm:"size:100"`
	WHOLimit    *float64  `json:"who_limit" gorm:"type:decimal(12,4)"`
	WasrebLimit *float64  `json:"wasreb_limit" gorm:"type:decimal(12,4)"`
	LocalLimit  *float64  `json:"local_limit" gorm:"type:decimal(12,4)"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Parameter) TableName() string {
	return "wq_parameters"
}

// Parameter groups
const (
	ParamGroupPhysical        = "physical"
	ParamGroupChemical        = "chemical"
	ParamGroupBacteriological = "bacteriological"
	ParamGroupMetals          = "metals"
)

// ValidParameterGroups recognized parameter groups for plan rules
var ValidParameterGroups = map[string]bool{
	ParamGroupPhysical:        true,
	ParamGroupChemical:        true,
	ParamGroupBacteriological: true,
	ParamGroupMetals:          true,
}

// EffectiveLimit resolves the applicable limit: local > wasreb > who.
// Returns nil when no limit is configured.
func (p *Parameter) EffectiveLimit() *float64 {
	if p.LocalLimit != nil {
		return p.LocalLimit
	}
	if p.WasrebLimit != nil {
		return p.WasrebLimit
	}
	return p.WHOLimit
}
