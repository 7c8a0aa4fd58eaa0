package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories monitoring repository set
type Repositories struct {
	Point      *SamplingPointRepository
	Parameter  *ParameterRepository
	Plan       *PlanRepository
	Sample     *SampleRepository
	Result     *ResultRepository
	QcControl  *QcControlRepository
	Compliance *ComplianceRepository
}

// NewRepositories builds the repository set on one shared gorm handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Point:      NewSamplingPointRepository(db),
		Parameter:  NewParameterRepository(db),
		Plan:       NewPlanRepository(db),
		Sample:     NewSampleRepository(db),
		Result:     NewResultRepository(db),
		QcControl:  NewQcControlRepository(db),
		Compliance: NewComplianceRepository(db),
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
