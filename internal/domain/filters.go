package domain

import (
	"strings"
	"time"
)

// Page задаёт окно выборки для Find. Нулевое значение означает «все строки».
// Count окно не учитывает.
type Page struct {
	Limit  int
	Offset int
}

// Window возвращает нормализованные limit и offset.
func (p Page) Window() (limit, offset int) {
	limit, offset = p.Limit, p.Offset
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Фильтры ниже играют роль предиката Find/Exists/Count. Нулевое поле не
// участвует в отборе, поэтому нулевой фильтр выбирает все строки. Строковые
// имена сравниваются без учёта регистра, Search ищет подстроку без учёта
// регистра в любом из перечисленных у фильтра полей.

// UserFilter отбирает пользователей. Search: имя или email.
type UserFilter struct {
	Email     string
	Role      UserRole
	Type      UserType
	Search    string
	ExcludeID int64
	Page
}

// Match сообщает, удовлетворяет ли пользователь фильтру.
func (f UserFilter) Match(u User) bool {
	if f.Email != "" && !strings.EqualFold(f.Email, u.Email) {
		return false
	}
	if f.Role != "" && f.Role != u.Role {
		return false
	}
	if f.Type != "" && f.Type != u.Type {
		return false
	}
	if f.Search != "" && !containsFold(f.Search, u.Name, u.Email) {
		return false
	}
	if f.ExcludeID != 0 && f.ExcludeID == u.ID {
		return false
	}
	return true
}

// CategoryFilter отбирает категории.
type CategoryFilter struct {
	Name      string
	ExcludeID int64
	Page
}

// Match сообщает, удовлетворяет ли категория фильтру.
func (f CategoryFilter) Match(c Category) bool {
	if f.Name != "" && !strings.EqualFold(f.Name, c.Name) {
		return false
	}
	if f.ExcludeID != 0 && f.ExcludeID == c.ID {
		return false
	}
	return true
}

// ProductFilter отбирает товары. Search: название, описание или артикул.
type ProductFilter struct {
	SKU        string
	CategoryID int64
	ExcludeID  int64
	Search     string
	Page
}

// Match сообщает, удовлетворяет ли товар фильтру.
func (f ProductFilter) Match(p Product) bool {
	if f.SKU != "" && !strings.EqualFold(f.SKU, p.SKU) {
		return false
	}
	if f.CategoryID != 0 && (p.CategoryID == nil || *p.CategoryID != f.CategoryID) {
		return false
	}
	if f.ExcludeID != 0 && f.ExcludeID == p.ID {
		return false
	}
	if f.Search != "" && !containsFold(f.Search, p.Name, p.Description, p.SKU) {
		return false
	}
	return true
}

// OrderFilter отбирает заказы. From и To ограничивают дату заказа
// включительно.
type OrderFilter struct {
	CustomerID int64
	Status     OrderStatus
	From       *time.Time
	To         *time.Time
	Page
}

// Match сообщает, удовлетворяет ли заказ фильтру.
func (f OrderFilter) Match(o Order) bool {
	if f.CustomerID != 0 && f.CustomerID != o.CustomerID {
		return false
	}
	if f.Status != "" && f.Status != o.Status {
		return false
	}
	if f.From != nil && o.OrderDate.Before(*f.From) {
		return false
	}
	if f.To != nil && o.OrderDate.After(*f.To) {
		return false
	}
	return true
}

// OrderItemFilter отбирает позиции заказов.
type OrderItemFilter struct {
	OrderID   int64
	ProductID int64
}

// Match сообщает, удовлетворяет ли позиция фильтру.
func (f OrderItemFilter) Match(i OrderItem) bool {
	if f.OrderID != 0 && f.OrderID != i.OrderID {
		return false
	}
	if f.ProductID != 0 && f.ProductID != i.ProductID {
		return false
	}
	return true
}

// PriceListFilter отбирает прайс-листы. Search: название или описание.
// Active = nil выбирает листы независимо от активности; ActiveOnly
// равносилен Active = true.
type PriceListFilter struct {
	SellerID   int64
	Name       string
	ExcludeID  int64
	ActiveOnly bool
	Active     *bool
	Currency   string
	Search     string
	IDs        []int64
	Page
}

// Match сообщает, удовлетворяет ли прайс-лист фильтру.
func (f PriceListFilter) Match(p PriceList) bool {
	if f.SellerID != 0 && f.SellerID != p.SellerID {
		return false
	}
	if f.Name != "" && !strings.EqualFold(f.Name, p.Name) {
		return false
	}
	if f.ExcludeID != 0 && f.ExcludeID == p.ID {
		return false
	}
	if f.ActiveOnly && !p.IsActive {
		return false
	}
	if f.Active != nil && *f.Active != p.IsActive {
		return false
	}
	if f.Currency != "" && !strings.EqualFold(f.Currency, p.Currency) {
		return false
	}
	if f.Search != "" && !containsFold(f.Search, p.Name, p.Description) {
		return false
	}
	if f.IDs != nil && !containsID(f.IDs, p.ID) {
		return false
	}
	return true
}

// PriceListProductFilter отбирает товары прайс-листов.
type PriceListProductFilter struct {
	PriceListID int64
	ProductID   int64
	Active      *bool
	Page
}

// Match сообщает, удовлетворяет ли запись фильтру.
func (f PriceListProductFilter) Match(p PriceListProduct) bool {
	if f.PriceListID != 0 && f.PriceListID != p.PriceListID {
		return false
	}
	if f.ProductID != 0 && f.ProductID != p.ProductID {
		return false
	}
	if f.Active != nil && *f.Active != p.IsActive {
		return false
	}
	return true
}

// PriceListBuyerFilter отбирает допуски покупателей.
type PriceListBuyerFilter struct {
	PriceListID int64
	BuyerID     int64
}

// Match сообщает, удовлетворяет ли допуск фильтру.
func (f PriceListBuyerFilter) Match(b PriceListBuyer) bool {
	if f.PriceListID != 0 && f.PriceListID != b.PriceListID {
		return false
	}
	if f.BuyerID != 0 && f.BuyerID != b.BuyerID {
		return false
	}
	return true
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func containsFold(term string, fields ...string) bool {
	term = strings.ToLower(term)
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}
