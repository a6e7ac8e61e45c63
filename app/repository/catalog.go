package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pricewatch-io/pricewatch/app/entity"
)

type StoreRepository struct {
	db *sql.DB
}

func NewStoreRepository(db *sql.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

func (r *StoreRepository) ListEnabled(ctx context.Context) ([]*entity.Store, error) {
	query := `
		SELECT id, name, short_name, description, base_url, image_url, enabled, created_at, updated_at
		FROM stores WHERE enabled = 1 ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stores []*entity.Store
	for rows.Next() {
		store := &entity.Store{}
		if err := rows.Scan(
			&store.ID,
			&store.Name,
			&store.ShortName,
			&store.Description,
			&store.BaseURL,
			&store.ImageURL,
			&store.Enabled,
			&store.CreatedAt,
			&store.UpdatedAt,
		); err != nil {
			return nil, err
		}
		stores = append(stores, store)
	}
	return stores, rows.Err()
}

func (r *StoreRepository) FindByID(ctx context.Context, id uint64) (*entity.Store, error) {
	query := `
		SELECT id, name, short_name, description, base_url, image_url, enabled, created_at, updated_at
		FROM stores WHERE id = ?
	`
	store := &entity.Store{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&store.ID,
		&store.Name,
		&store.ShortName,
		&store.Description,
		&store.BaseURL,
		&store.ImageURL,
		&store.Enabled,
		&store.CreatedAt,
		&store.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) ListByStore(ctx context.Context, storeID uint64) ([]*entity.Product, error) {
	query := `
		SELECT id, store_id, supplier, name, brand, model, sku, link, image_url
		FROM products WHERE store_id = ? ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*entity.Product
	for rows.Next() {
		product := &entity.Product{}
		if err := rows.Scan(
			&product.ID,
			&product.StoreID,
			&product.Supplier,
			&product.Name,
			&product.Brand,
			&product.Model,
			&product.SKU,
			&product.Link,
			&product.ImageURL,
		); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (r *ProductRepository) FindByID(ctx context.Context, id uint64) (*entity.Product, error) {
	query := `
		SELECT id, store_id, supplier, name, brand, model, sku, link, image_url
		FROM products WHERE id = ?
	`
	product := &entity.Product{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.StoreID,
		&product.Supplier,
		&product.Name,
		&product.Brand,
		&product.Model,
		&product.SKU,
		&product.Link,
		&product.ImageURL,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

type PriceHistoryRepository struct {
	db *sql.DB
}

func NewPriceHistoryRepository(db *sql.DB) *PriceHistoryRepository {
	return &PriceHistoryRepository{db: db}
}

func (r *PriceHistoryRepository) Record(ctx context.Context, point *entity.PricePoint) error {
	query := `
		INSERT INTO price_history (product_id, price, last_price, discount_rate, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if point.RecordedAt.IsZero() {
		point.RecordedAt = time.Now()
	}
	result, err := r.db.ExecContext(ctx, query,
		point.ProductID,
		point.Price,
		point.LastPrice,
		point.DiscountRate,
		point.RecordedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	point.ID = uint64(id)
	return nil
}

func (r *PriceHistoryRepository) ListByProduct(ctx context.Context, productID uint64, limit int) ([]*entity.PricePoint, error) {
	query := `
		SELECT id, product_id, price, last_price, discount_rate, recorded_at
		FROM price_history WHERE product_id = ? ORDER BY recorded_at DESC LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []*entity.PricePoint
	for rows.Next() {
		point := &entity.PricePoint{}
		if err := rows.Scan(
			&point.ID,
			&point.ProductID,
			&point.Price,
			&point.LastPrice,
			&point.DiscountRate,
			&point.RecordedAt,
		); err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	return points, rows.Err()
}
