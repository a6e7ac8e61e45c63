package http

import "time"

type RegisterResponse struct {
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Message  string `json:"message"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ConfirmResponse is the rendered outcome of a confirmation visit: either the
// finalizing success page or the generic "link invalid or expired" page.
type ConfirmResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

type ProfileResponse struct {
	UserID    uint64 `json:"user_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	IsActive  bool   `json:"is_active"`
}

type StoreResponse struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	ShortName   string `json:"short_name"`
	Description string `json:"description"`
	BaseURL     string `json:"base_url"`
	ImageURL    string `json:"image_url,omitempty"`
}

type ProductResponse struct {
	ID       uint64 `json:"id"`
	StoreID  uint64 `json:"store_id"`
	Supplier string `json:"supplier,omitempty"`
	Name     string `json:"name"`
	Brand    string `json:"brand"`
	Model    string `json:"model,omitempty"`
	SKU      string `json:"sku"`
	Link     string `json:"link"`
	ImageURL string `json:"image_url"`
}

type PricePointResponse struct {
	Price        float64   `json:"price"`
	LastPrice    float64   `json:"last_price"`
	DiscountRate float64   `json:"discount_rate,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
}

type ProductHistoryResponse struct {
	Product ProductResponse      `json:"product"`
	History []PricePointResponse `json:"history"`
}

type StoreProductsResponse struct {
	Store    StoreResponse     `json:"store"`
	Products []ProductResponse `json:"products"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
