package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/pricelists"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/pricing"
)

// Запросы.

// userRequest используется при создании и частичном обновлении пользователя.
type userRequest struct {
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Password      string          `json:"password"`
	Role          domain.UserRole `json:"role"`
	Type          domain.UserType `json:"type"`
	UNP           string          `json:"unp"`
	OKPO          string          `json:"okpo"`
	LegalAddress  string          `json:"legal_address"`
	ActualAddress string          `json:"actual_address"`
	BankName      string          `json:"bank_name"`
	BankAccount   string          `json:"bank_account"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

type productRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	SKU           string          `json:"sku"`
	StockQuantity int             `json:"stock_quantity"`
	Price         decimal.Decimal `json:"price"`
	CategoryID    *int64          `json:"category_id"`
	Manufacturer  string          `json:"manufacturer"`
	Unit          string          `json:"unit"`
	ImageURL      string          `json:"image_url"`
	ImageGallery  []string        `json:"image_gallery"`
}

type orderItemRequest struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type createOrderRequest struct {
	CustomerID int64              `json:"customer_id"`
	Items      []orderItemRequest `json:"items"`
	Notes      string             `json:"notes"`
	Status     domain.OrderStatus `json:"status"`
}

type updateOrderRequest struct {
	CustomerID      int64              `json:"customer_id"`
	Status          domain.OrderStatus `json:"status"`
	Notes           string             `json:"notes"`
	ExpectedVersion int64              `json:"expected_version"`
}

type createPriceListRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Currency    string `json:"currency"`
	SellerID    int64  `json:"seller_id"`
}

type updatePriceListRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Currency        string `json:"currency"`
	IsActive        *bool  `json:"is_active"`
	ExpectedVersion int64  `json:"expected_version"`
}

type addProductRequest struct {
	ProductID    int64           `json:"product_id"`
	SpecialPrice decimal.Decimal `json:"special_price"`
}

type updateProductPriceRequest struct {
	SpecialPrice *decimal.Decimal `json:"special_price"`
	IsActive     *bool            `json:"is_active"`
}

type buyerRequest struct {
	BuyerID int64 `json:"buyer_id"`
}

// Ответы.

type idResponse struct {
	ID int64 `json:"id"`
}

type userResponse struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Role          domain.UserRole `json:"role"`
	Type          domain.UserType `json:"type"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone,omitempty"`
	UNP           string          `json:"unp,omitempty"`
	OKPO          string          `json:"okpo,omitempty"`
	LegalAddress  string          `json:"legal_address,omitempty"`
	ActualAddress string          `json:"actual_address,omitempty"`
	BankName      string          `json:"bank_name,omitempty"`
	BankAccount   string          `json:"bank_account,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	ModifiedAt    *time.Time      `json:"modified_at,omitempty"`
}

func toUser(u domain.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Name:          u.Name,
		Role:          u.Role,
		Type:          u.Type,
		Email:         u.Email,
		Phone:         u.Phone,
		UNP:           u.UNP,
		OKPO:          u.OKPO,
		LegalAddress:  u.LegalAddress,
		ActualAddress: u.ActualAddress,
		BankName:      u.BankName,
		BankAccount:   u.BankAccount,
		CreatedAt:     u.CreatedAt,
		ModifiedAt:    u.ModifiedAt,
	}
}

type categoryResponse struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ModifiedAt  *time.Time `json:"modified_at,omitempty"`
}

func toCategory(c domain.Category) categoryResponse {
	return categoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		ImageURL:    c.ImageURL,
		CreatedAt:   c.CreatedAt,
		ModifiedAt:  c.ModifiedAt,
	}
}

type productResponse struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	SKU           string          `json:"sku"`
	StockQuantity int             `json:"stock_quantity"`
	Price         decimal.Decimal `json:"price"`
	CategoryID    *int64          `json:"category_id,omitempty"`
	Manufacturer  string          `json:"manufacturer,omitempty"`
	Unit          string          `json:"unit,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
	ImageGallery  []string        `json:"image_gallery"`
	CreatedAt     time.Time       `json:"created_at"`
	ModifiedAt    *time.Time      `json:"modified_at,omitempty"`
}

func toProduct(p domain.Product) productResponse {
	gallery := p.ImageGallery
	if gallery == nil {
		gallery = []string{}
	}
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		SKU:           p.SKU,
		StockQuantity: p.StockQuantity,
		Price:         p.Price,
		CategoryID:    p.CategoryID,
		Manufacturer:  p.Manufacturer,
		Unit:          p.Unit,
		ImageURL:      p.ImageURL,
		ImageGallery:  gallery,
		CreatedAt:     p.CreatedAt,
		ModifiedAt:    p.ModifiedAt,
	}
}

type orderResponse struct {
	ID          int64               `json:"id"`
	CustomerID  int64               `json:"customer_id"`
	OrderDate   time.Time           `json:"order_date"`
	Status      domain.OrderStatus  `json:"status"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Notes       string              `json:"notes,omitempty"`
	Version     int64               `json:"version"`
	Items       []orderItemResponse `json:"items,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	ModifiedAt  *time.Time          `json:"modified_at,omitempty"`
}

type orderItemResponse struct {
	ID         int64           `json:"id"`
	ProductID  int64           `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func toOrder(o domain.Order, items []domain.OrderItem) orderResponse {
	out := orderResponse{
		ID:          o.ID,
		CustomerID:  o.CustomerID,
		OrderDate:   o.OrderDate,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		Notes:       o.Notes,
		Version:     o.Version,
		CreatedAt:   o.CreatedAt,
		ModifiedAt:  o.ModifiedAt,
	}
	for _, item := range items {
		out.Items = append(out.Items, toOrderItem(item))
	}
	return out
}

func toOrderItem(i domain.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:         i.ID,
		ProductID:  i.ProductID,
		Quantity:   i.Quantity,
		UnitPrice:  i.UnitPrice,
		TotalPrice: i.TotalPrice,
	}
}

type userPageResponse struct {
	Users      []userResponse `json:"users"`
	TotalCount int            `json:"total_count"`
	Limit      int            `json:"limit"`
	Offset     int            `json:"offset"`
}

type categoryPageResponse struct {
	Categories []categoryResponse `json:"categories"`
	TotalCount int                `json:"total_count"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
}

type productPageResponse struct {
	Products   []productResponse `json:"products"`
	TotalCount int               `json:"total_count"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

type orderPageResponse struct {
	Orders     []orderResponse `json:"orders"`
	TotalCount int             `json:"total_count"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
}

type priceListResponse struct {
	ID             int64                      `json:"id"`
	Name           string                     `json:"name"`
	Description    string                     `json:"description,omitempty"`
	Currency       string                     `json:"currency"`
	SellerID       int64                      `json:"seller_id"`
	IsActive       bool                       `json:"is_active"`
	Version        int64                      `json:"version"`
	ActiveProducts *int                       `json:"active_products,omitempty"`
	Products       []priceListProductResponse `json:"products,omitempty"`
	BuyerIDs       []int64                    `json:"buyer_ids,omitempty"`
	CreatedAt      time.Time                  `json:"created_at"`
	ModifiedAt     *time.Time                 `json:"modified_at,omitempty"`
}

func toPriceList(p domain.PriceList) priceListResponse {
	return priceListResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Currency:    p.Currency,
		SellerID:    p.SellerID,
		IsActive:    p.IsActive,
		Version:     p.Version,
		CreatedAt:   p.CreatedAt,
		ModifiedAt:  p.ModifiedAt,
	}
}

func toPriceListDetails(d pricelists.PriceListDetails) priceListResponse {
	out := toPriceList(d.PriceList)
	for _, p := range d.Products {
		out.Products = append(out.Products, toPriceListProduct(p))
	}
	out.BuyerIDs = d.BuyerIDs
	return out
}

func toPriceListSummary(s pricelists.PriceListSummary) priceListResponse {
	out := toPriceList(s.PriceList)
	n := s.ActiveProducts
	out.ActiveProducts = &n
	return out
}

type priceListProductResponse struct {
	PriceListID  int64           `json:"price_list_id"`
	ProductID    int64           `json:"product_id"`
	SpecialPrice decimal.Decimal `json:"special_price"`
	IsActive     bool            `json:"is_active"`
}

func toPriceListProduct(p domain.PriceListProduct) priceListProductResponse {
	return priceListProductResponse{
		PriceListID:  p.PriceListID,
		ProductID:    p.ProductID,
		SpecialPrice: p.SpecialPrice,
		IsActive:     p.IsActive,
	}
}

type priceListPageResponse struct {
	PriceLists []priceListResponse `json:"price_lists"`
	TotalCount int                 `json:"total_count"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}

type priceListProductPageResponse struct {
	Products   []priceListProductResponse `json:"products"`
	TotalCount int                        `json:"total_count"`
	Limit      int                        `json:"limit"`
	Offset     int                        `json:"offset"`
}

type resolutionResponse struct {
	ProductID   int64           `json:"product_id"`
	BuyerID     int64           `json:"buyer_id"`
	Price       decimal.Decimal `json:"price"`
	Source      pricing.Source  `json:"source"`
	PriceListID int64           `json:"price_list_id,omitempty"`
	Currency    string          `json:"currency,omitempty"`
}

func toResolution(r pricing.Resolution) resolutionResponse {
	return resolutionResponse(r)
}
