package entity

import (
	"database/sql"
	"time"
)

type Store struct {
	ID          uint64
	Name        string
	ShortName   string
	Description string
	BaseURL     string
	ImageURL    string
	Enabled     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Product struct {
	ID       uint64
	StoreID  uint64
	Supplier sql.NullString
	Name     string
	Brand    string
	Model    sql.NullString
	SKU      string
	Link     string
	ImageURL string
}

// PricePoint is one observed price for a product at a point in time.
type PricePoint struct {
	ID           uint64
	ProductID    uint64
	Price        float64
	LastPrice    float64
	DiscountRate sql.NullFloat64
	RecordedAt   time.Time
}
