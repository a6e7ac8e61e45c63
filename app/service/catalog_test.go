package service_test

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/pricewatch-io/pricewatch/app/entity"
	"github.com/pricewatch-io/pricewatch/app/service"
)

type fakeStoreRepo struct {
	stores map[uint64]*entity.Store
}

func (f *fakeStoreRepo) ListEnabled(_ context.Context) ([]*entity.Store, error) {
	var out []*entity.Store
	for _, s := range f.stores {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStoreRepo) FindByID(_ context.Context, id uint64) (*entity.Store, error) {
	return f.stores[id], nil
}

type fakeProductRepo struct {
	products map[uint64]*entity.Product
}

func (f *fakeProductRepo) ListByStore(_ context.Context, storeID uint64) ([]*entity.Product, error) {
	var out []*entity.Product
	for _, p := range f.products {
		if p.StoreID == storeID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) FindByID(_ context.Context, id uint64) (*entity.Product, error) {
	return f.products[id], nil
}

type fakePriceRepo struct {
	points []*entity.PricePoint
}

func (f *fakePriceRepo) Record(_ context.Context, point *entity.PricePoint) error {
	point.ID = uint64(len(f.points) + 1)
	if point.RecordedAt.IsZero() {
		point.RecordedAt = time.Now()
	}
	// Prepend: newest first, same ordering the query produces.
	f.points = append([]*entity.PricePoint{point}, f.points...)
	return nil
}

func (f *fakePriceRepo) ListByProduct(_ context.Context, productID uint64, limit int) ([]*entity.PricePoint, error) {
	var out []*entity.PricePoint
	for _, p := range f.points {
		if p.ProductID == productID {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func newCatalogFixture() (*service.CatalogService, *fakePriceRepo) {
	stores := &fakeStoreRepo{stores: map[uint64]*entity.Store{
		1: {ID: 1, Name: "Acme", ShortName: "acme", Enabled: true},
	}}
	products := &fakeProductRepo{products: map[uint64]*entity.Product{
		10: {ID: 10, StoreID: 1, Name: "Widget", Brand: "Acme", SKU: "SKU-1"},
	}}
	prices := &fakePriceRepo{}
	return service.NewCatalogService(stores, products, prices), prices
}

func TestCatalogService_GetStoreProducts(t *testing.T) {
	svc, _ := newCatalogFixture()

	store, products, err := svc.GetStoreProducts(context.Background(), 1)
	if err != nil {
		t.Fatalf("get store products failed: %v", err)
	}
	if store.Name != "Acme" {
		t.Fatalf("unexpected store: %+v", store)
	}
	if len(products) != 1 || products[0].Name != "Widget" {
		t.Fatalf("unexpected products: %+v", products)
	}
}

func TestCatalogService_GetStoreProducts_UnknownStore(t *testing.T) {
	svc, _ := newCatalogFixture()

	_, _, err := svc.GetStoreProducts(context.Background(), 99)
	if !errors.Is(err, service.ErrStoreNotFound) {
		t.Fatalf("expected ErrStoreNotFound, got %v", err)
	}
}

func TestCatalogService_RecordPrice_FirstObservation(t *testing.T) {
	svc, _ := newCatalogFixture()

	point, err := svc.RecordPrice(context.Background(), 10, 24.99)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if point.Price != 24.99 {
		t.Fatalf("unexpected price: %v", point.Price)
	}
	if point.DiscountRate.Valid {
		t.Fatal("first observation has no discount rate")
	}
}

func TestCatalogService_RecordPrice_DerivesDiscount(t *testing.T) {
	svc, prices := newCatalogFixture()

	prices.points = []*entity.PricePoint{
		{ID: 1, ProductID: 10, Price: 100, LastPrice: 100, RecordedAt: time.Now().Add(-24 * time.Hour)},
	}

	point, err := svc.RecordPrice(context.Background(), 10, 80)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if point.LastPrice != 100 {
		t.Fatalf("expected last price 100, got %v", point.LastPrice)
	}
	if !point.DiscountRate.Valid || math.Abs(point.DiscountRate.Float64-0.2) > 1e-9 {
		t.Fatalf("expected discount rate 0.2, got %+v", point.DiscountRate)
	}
}

func TestCatalogService_RecordPrice_UnknownProduct(t *testing.T) {
	svc, _ := newCatalogFixture()

	_, err := svc.RecordPrice(context.Background(), 99, 10)
	if !errors.Is(err, service.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestCatalogService_GetProductHistory(t *testing.T) {
	svc, prices := newCatalogFixture()

	prices.points = []*entity.PricePoint{
		{ID: 2, ProductID: 10, Price: 80, LastPrice: 100, DiscountRate: sql.NullFloat64{Float64: 0.2, Valid: true}},
		{ID: 1, ProductID: 10, Price: 100, LastPrice: 100},
	}

	product, points, err := svc.GetProductHistory(context.Background(), 10)
	if err != nil {
		t.Fatalf("get history failed: %v", err)
	}
	if product.Name != "Widget" {
		t.Fatalf("unexpected product: %+v", product)
	}
	if len(points) != 2 || points[0].ID != 2 {
		t.Fatalf("unexpected points: %+v", points)
	}
}
