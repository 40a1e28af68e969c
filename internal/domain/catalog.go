package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product — товар каталога с базовой ценой.
type Product struct {
	ID          int64
	Name        string
	Description string
	// SKU уникален без учёта регистра.
	SKU           string
	StockQuantity int
	Price         decimal.Decimal
	CategoryID    *int64

	Manufacturer string
	Unit         string
	ImageURL     string
	ImageGallery []string

	CreatedAt  time.Time
	ModifiedAt *time.Time
}

// Category группирует товары. Удаление запрещено, пока на неё ссылается хотя бы один товар.
type Category struct {
	ID          int64
	Name        string
	Description string
	ImageURL    string
	CreatedAt   time.Time
	ModifiedAt  *time.Time
}
