package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/pricewatch-io/pricewatch/app/entity"
	"github.com/pricewatch-io/pricewatch/app/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

const (
	listStoresQuery     = `(?s)SELECT id, name, short_name, description, base_url, image_url, enabled, created_at, updated_at\s+FROM stores WHERE enabled = 1 ORDER BY name`
	findStoreQuery      = `(?s)SELECT id, name, short_name, description, base_url, image_url, enabled, created_at, updated_at\s+FROM stores WHERE id = \?`
	listProductsQuery   = `(?s)SELECT id, store_id, supplier, name, brand, model, sku, link, image_url\s+FROM products WHERE store_id = \? ORDER BY name`
	insertPricePoint    = `(?s)INSERT INTO price_history \(product_id, price, last_price, discount_rate, recorded_at\)\s+VALUES \(\?, \?, \?, \?, \?\)`
	listPriceHistoryQry = `(?s)SELECT id, product_id, price, last_price, discount_rate, recorded_at\s+FROM price_history WHERE product_id = \? ORDER BY recorded_at DESC LIMIT \?`
)

var storeColumns = []string{
	"id", "name", "short_name", "description", "base_url", "image_url", "enabled", "created_at", "updated_at",
}

var productColumns = []string{
	"id", "store_id", "supplier", "name", "brand", "model", "sku", "link", "image_url",
}

var priceColumns = []string{
	"id", "product_id", "price", "last_price", "discount_rate", "recorded_at",
}

func TestStoreRepository_ListEnabled(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewStoreRepository(db)
	now := time.Now()

	mock.ExpectQuery(listStoresQuery).
		WillReturnRows(sqlmock.NewRows(storeColumns).
			AddRow(uint64(1), "Acme", "acme", "Electronics", "https://acme.example", "https://acme.example/logo.png", true, now, now).
			AddRow(uint64(2), "Bolt", "bolt", "Hardware", "https://bolt.example", "https://bolt.example/logo.png", true, now, now))

	stores, err := repo.ListEnabled(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(stores) != 2 {
		t.Fatalf("expected 2 stores, got %d", len(stores))
	}
	if stores[0].Name != "Acme" || stores[1].ShortName != "bolt" {
		t.Fatalf("unexpected stores: %+v, %+v", stores[0], stores[1])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStoreRepository_FindByID_NotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewStoreRepository(db)

	mock.ExpectQuery(findStoreQuery).
		WithArgs(uint64(9)).
		WillReturnError(sql.ErrNoRows)

	store, err := repo.FindByID(context.Background(), 9)
	if err != nil {
		t.Fatalf("expected nil error for missing store, got %v", err)
	}
	if store != nil {
		t.Fatalf("expected nil store, got %+v", store)
	}
}

func TestProductRepository_ListByStore(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewProductRepository(db)

	mock.ExpectQuery(listProductsQuery).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(productColumns).
			AddRow(uint64(10), uint64(1), sql.NullString{String: "ACME Corp", Valid: true},
				"Widget", "Acme", sql.NullString{Valid: false}, "SKU-1",
				"https://acme.example/widget", "https://acme.example/widget.png"))

	products, err := repo.ListByStore(context.Background(), 1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(products) != 1 || products[0].Name != "Widget" {
		t.Fatalf("unexpected products: %+v", products)
	}
	if products[0].Model.Valid {
		t.Fatal("expected model to be null")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPriceHistoryRepository_Record(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewPriceHistoryRepository(db)
	point := &entity.PricePoint{
		ProductID:    10,
		Price:        19.99,
		LastPrice:    24.99,
		DiscountRate: sql.NullFloat64{Float64: 0.2, Valid: true},
	}

	mock.ExpectExec(insertPricePoint).
		WithArgs(point.ProductID, point.Price, point.LastPrice, point.DiscountRate, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(100, 1))

	if err := repo.Record(context.Background(), point); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if point.ID != 100 {
		t.Fatalf("expected ID 100, got %d", point.ID)
	}
	if point.RecordedAt.IsZero() {
		t.Fatal("expected recorded_at to be filled in")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPriceHistoryRepository_ListByProduct(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewPriceHistoryRepository(db)
	now := time.Now()

	mock.ExpectQuery(listPriceHistoryQry).
		WithArgs(uint64(10), 90).
		WillReturnRows(sqlmock.NewRows(priceColumns).
			AddRow(uint64(2), uint64(10), 19.99, 24.99, sql.NullFloat64{Float64: 0.2, Valid: true}, now).
			AddRow(uint64(1), uint64(10), 24.99, 24.99, sql.NullFloat64{Valid: false}, now.Add(-24*time.Hour)))

	points, err := repo.ListByProduct(context.Background(), 10, 90)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Price != 19.99 || !points[0].DiscountRate.Valid {
		t.Fatalf("unexpected first point: %+v", points[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
