package pricelists

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/validation"
)

// CreatePriceListCommand создаёт активный прайс-лист продавца.
type CreatePriceListCommand struct {
	Name        string
	Description string
	Currency    string
	SellerID    int64
}

func (c CreatePriceListCommand) validate() error {
	var p validation.Problems
	p.Name("name", c.Name)
	p.Text("description", c.Description)
	p.Currency("currency", c.Currency)
	p.PositiveID("seller_id", c.SellerID)
	return p.Err()
}

// AddProductCommand добавляет товар в прайс-лист по специальной цене.
type AddProductCommand struct {
	PriceListID  int64
	ProductID    int64
	SpecialPrice decimal.Decimal
}

func (c AddProductCommand) validate() error {
	var p validation.Problems
	p.PositiveID("price_list_id", c.PriceListID)
	p.PositiveID("product_id", c.ProductID)
	p.SpecialPrice("special_price", c.SpecialPrice)
	return p.Err()
}

// UpdateProductPriceCommand меняет только заданные поля товара прайс-листа.
type UpdateProductPriceCommand struct {
	PriceListID  int64
	ProductID    int64
	SpecialPrice *decimal.Decimal
	IsActive     *bool
}

func (c UpdateProductPriceCommand) validate() error {
	var p validation.Problems
	p.PositiveID("price_list_id", c.PriceListID)
	p.PositiveID("product_id", c.ProductID)
	if c.SpecialPrice != nil {
		p.SpecialPrice("special_price", *c.SpecialPrice)
	}
	return p.Err()
}

// MembershipCommand адресует товар в прайс-листе.
type MembershipCommand struct {
	PriceListID int64
	ProductID   int64
}

func (c MembershipCommand) validate() error {
	var p validation.Problems
	p.PositiveID("price_list_id", c.PriceListID)
	p.PositiveID("product_id", c.ProductID)
	return p.Err()
}

// UpdatePriceListCommand меняет реквизиты прайс-листа. Пустая строка и nil
// означают «без изменений». IsActive = true ничего не делает: повторной
// активации нет. ExpectedVersion = 0 отключает проверку версии.
type UpdatePriceListCommand struct {
	ID              int64
	Name            string
	Description     string
	Currency        string
	IsActive        *bool
	ExpectedVersion int64
}

func (c UpdatePriceListCommand) validate() error {
	var p validation.Problems
	p.PositiveID("id", c.ID)
	if strings.TrimSpace(c.Name) != "" {
		p.Name("name", c.Name)
	}
	p.Text("description", c.Description)
	if c.Currency != "" {
		p.Currency("currency", c.Currency)
	}
	return p.Err()
}

func (c UpdatePriceListCommand) deactivates() bool {
	return c.IsActive != nil && !*c.IsActive
}

// BuyerCommand адресует допуск покупателя к прайс-листу.
type BuyerCommand struct {
	PriceListID int64
	BuyerID     int64
}

func (c BuyerCommand) validate() error {
	var p validation.Problems
	p.PositiveID("price_list_id", c.PriceListID)
	p.PositiveID("buyer_id", c.BuyerID)
	return p.Err()
}

// PriceListDetails — прайс-лист с товарами и допущенными покупателями.
type PriceListDetails struct {
	PriceList domain.PriceList
	Products  []domain.PriceListProduct
	BuyerIDs  []int64
}

// PriceListProductPage — страница товаров прайс-листа.
type PriceListProductPage struct {
	Products   []domain.PriceListProduct
	TotalCount int
	Page       domain.Page
}

// PriceListPage — страница прайс-листов и общее число подходящих под фильтр.
type PriceListPage struct {
	PriceLists []domain.PriceList
	TotalCount int
	Page       domain.Page
}

// PriceListSummary — прайс-лист и число его активных товаров.
type PriceListSummary struct {
	PriceList      domain.PriceList
	ActiveProducts int
}
