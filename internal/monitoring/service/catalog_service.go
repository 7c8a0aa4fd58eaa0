package service

import (
	"context"
	"errors"

	"github.com/aquatrack/waterlab/internal/monitoring/entity"
	"github.com/aquatrack/waterlab/internal/monitoring/repository"
	"github.com/google/uuid"
)

// CatalogService management surface for the point/parameter catalog.
// The monitoring pipeline itself only ever reads these rows.
type CatalogService struct {
	pointRepo *repository.SamplingPointRepository
	paramRepo *repository.ParameterRepository
}

func NewCatalogService(pointRepo *repository.SamplingPointRepository, paramRepo *repository.ParameterRepository) *CatalogService {
	return &CatalogService{pointRepo: pointRepo, paramRepo: paramRepo}
}

// CreatePointRequest new sampling point
type CreatePointRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
	Kind string `json:"kind" binding:"required"`
}

func (s *CatalogService) CreatePoint(ctx context.Context, tenantID string, req *CreatePointRequest) (*entity.SamplingPoint, error) {
	if !entity.ValidPointKinds[req.Kind] {
		return nil, invalidField("kind", "unknown point kind "+req.Kind)
	}
	point := &entity.SamplingPoint{
		ID:       uuid.New().String()[:32],
		TenantID: tenantID,
		Code:     req.Code,
		Name:     req.Name,
		Kind:     req.Kind,
		IsActive: true,
	}
	if err := s.pointRepo.Create(ctx, point); err != nil {
		return nil, err
	}
	return point, nil
}

// CreateParameterRequest new analytical parameter
type CreateParameterRequest struct {
	Code        string   `json:"code" binding:"required"`
	Name        string   `json:"name" binding:"required"`
	Group       string   `json:"group" binding:"required"`
	Unit        string   `json:"unit"`
	Method      string   `json:"method"`
	WHOLimit    *float64 `json:"who_limit"`
	WasrebLimit *float64 `json:"wasreb_limit"`
	LocalLimit  *float64 `json:"local_limit"`
}

func (s *CatalogService) CreateParameter(ctx context.Context, tenantID string, req *CreateParameterRequest) (*entity.Parameter, error) {
	if !entity.ValidParameterGroups[req.Group] {
		return nil, invalidField("group", "unknown parameter group "+req.Group)
	}
	param := &entity.Parameter{
		ID:          uuid.New().String()[:32],
		TenantID:    tenantID,
		Code:        req.Code,
		Name:        req.Name,
		Group:       req.Group,
		Unit:        req.Unit,
		Method:      req.Method,
		WHOLimit:    req.WHOLimit,
		WasrebLimit: req.WasrebLimit,
		LocalLimit:  req.LocalLimit,
		IsActive:    true,
	}
	if err := s.paramRepo.Create(ctx, param); err != nil {
		return nil, err
	}
	return param, nil
}

func (s *CatalogService) ListPoints(ctx context.Context, tenantID string, page, pageSize int) ([]entity.SamplingPoint, int64, error) {
	return s.pointRepo.List(ctx, tenantID, page, pageSize)
}

func (s *CatalogService) ListParameters(ctx context.Context, tenantID string, page, pageSize int) ([]entity.Parameter, int64, error) {
	return s.paramRepo.List(ctx, tenantID, page, pageSize)
}

// DeactivatePoint retires a point from future generation runs.
func (s *CatalogService) DeactivatePoint(ctx context.Context, tenantID, id string) (*entity.SamplingPoint, error) {
	point, err := s.pointRepo.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("sampling point", id)
		}
		return nil, err
	}
	point.IsActive = false
	if err := s.pointRepo.Update(ctx, point); err != nil {
		return nil, err
	}
	return point, nil
}

// DeactivateParameter retires a parameter from future generation runs.
func (s *CatalogService) DeactivateParameter(ctx context.Context, tenantID, id string) (*entity.Parameter, error) {
	param, err := s.paramRepo.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("parameter", id)
		}
		return nil, err
	}
	param.IsActive = false
	if err := s.paramRepo.Update(ctx, param); err != nil {
		return nil, err
	}
	return param, nil
}
