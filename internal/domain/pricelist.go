package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceList — именованный набор специальных цен продавца в одной валюте.
// Неактивный прайс-лист архивный: ни один путь изменения его не активирует.
type PriceList struct {
	ID          int64
	Name        string
	Description string
	Currency    string
	// SellerID задаётся при создании и больше не меняется.
	SellerID   int64
	IsActive   bool
	Version    int64
	CreatedAt  time.Time
	ModifiedAt *time.Time
}

// MembershipKey — составной ключ товара в прайс-листе.
type MembershipKey struct {
	PriceListID int64
	ProductID   int64
}

// PriceListProduct — товар, предложенный в прайс-листе по специальной цене.
type PriceListProduct struct {
	PriceListID  int64
	ProductID    int64
	SpecialPrice decimal.Decimal
	IsActive     bool
	CreatedAt    time.Time
	ModifiedAt   *time.Time
}

// Key возвращает составной ключ записи.
func (p PriceListProduct) Key() MembershipKey {
	return MembershipKey{PriceListID: p.PriceListID, ProductID: p.ProductID}
}

// BuyerKey — составной ключ допуска покупателя к прайс-листу.
type BuyerKey struct {
	PriceListID int64
	BuyerID     int64
}

// PriceListBuyer — покупатель, которому открыт прайс-лист.
type PriceListBuyer struct {
	PriceListID int64
	BuyerID     int64
	CreatedAt   time.Time
	ModifiedAt  *time.Time
}

// Key возвращает составной ключ записи.
func (b PriceListBuyer) Key() BuyerKey {
	return BuyerKey{PriceListID: b.PriceListID, BuyerID: b.BuyerID}
}
