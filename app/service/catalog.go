package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pricewatch-io/pricewatch/app/entity"
)

var (
	ErrStoreNotFound   = errors.New("store not found")
	ErrProductNotFound = errors.New("product not found")
)

type storeRepository interface {
	ListEnabled(ctx context.Context) ([]*entity.Store, error)
	FindByID(ctx context.Context, id uint64) (*entity.Store, error)
}

type productRepository interface {
	ListByStore(ctx context.Context, storeID uint64) ([]*entity.Product, error)
	FindByID(ctx context.Context, id uint64) (*entity.Product, error)
}

type priceHistoryRepository interface {
	Record(ctx context.Context, point *entity.PricePoint) error
	ListByProduct(ctx context.Context, productID uint64, limit int) ([]*entity.PricePoint, error)
}

const defaultHistoryLimit = 90

type CatalogService struct {
	stores   storeRepository
	products productRepository
	prices   priceHistoryRepository
}

func NewCatalogService(stores storeRepository, products productRepository, prices priceHistoryRepository) *CatalogService {
	return &CatalogService{
		stores:   stores,
		products: products,
		prices:   prices,
	}
}

func (s *CatalogService) ListStores(ctx context.Context) ([]*entity.Store, error) {
	return s.stores.ListEnabled(ctx)
}

func (s *CatalogService) GetStoreProducts(ctx context.Context, storeID uint64) (*entity.Store, []*entity.Product, error) {
	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, ErrStoreNotFound
	}

	products, err := s.products.ListByStore(ctx, storeID)
	if err != nil {
		return nil, nil, err
	}
	return store, products, nil
}

func (s *CatalogService) GetProductHistory(ctx context.Context, productID uint64) (*entity.Product, []*entity.PricePoint, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	if product == nil {
		return nil, nil, ErrProductNotFound
	}

	points, err := s.prices.ListByProduct(ctx, productID, defaultHistoryLimit)
	if err != nil {
		return nil, nil, err
	}
	return product, points, nil
}

// RecordPrice appends an observed price, deriving last price and discount rate
// from the most recent point on record.
func (s *CatalogService) RecordPrice(ctx context.Context, productID uint64, price float64) (*entity.PricePoint, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	previous, err := s.prices.ListByProduct(ctx, productID, 1)
	if err != nil {
		return nil, err
	}

	point := &entity.PricePoint{
		ProductID: productID,
		Price:     price,
		LastPrice: price,
	}
	if len(previous) > 0 {
		point.LastPrice = previous[0].Price
		if point.LastPrice > 0 {
			rate := (point.LastPrice - price) / point.LastPrice
			point.DiscountRate = sql.NullFloat64{Float64: rate, Valid: true}
		}
	}

	if err := s.prices.Record(ctx, point); err != nil {
		return nil, err
	}
	return point, nil
}
