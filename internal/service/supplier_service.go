package service

import (
	"context"
	"strings"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
)

type SupplierService struct {
	deps Dependencies
}

func NewSupplierService(deps Dependencies) *SupplierService {
	return &SupplierService{deps: deps.withDefaults()}
}

func (s *SupplierService) CreateSupplier(ctx context.Context, supplier *entity.Supplier) (*entity.Supplier, error) {
	supplier.Name = strings.TrimSpace(supplier.Name)
	if err := supplier.Validate(); err != nil {
		return nil, err
	}
	if supplier.Specialties == nil {
		supplier.Specialties = []string{}
	}

	created, err := s.deps.Store.CreateSupplier(ctx, supplier)
	if err != nil {
		logger.Error().Err(err).Msgf("Error creating supplier %s", supplier.Name)
		return nil, classify(err)
	}
	return created, nil
}

func (s *SupplierService) GetSupplier(ctx context.Context, id int) (*entity.Supplier, error) {
	supplier, err := s.deps.Store.GetSupplierByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return supplier, nil
}

func (s *SupplierService) GetSuppliers(ctx context.Context) ([]*entity.Supplier, error) {
	suppliers, err := s.deps.Store.GetSuppliers(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting suppliers")
		return nil, classify(err)
	}
	return suppliers, nil
}
