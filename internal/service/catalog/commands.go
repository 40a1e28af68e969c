package catalog

import (
	"regexp"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/validation"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 100
)

var phonePattern = regexp.MustCompile(`^\+?[0-9\s\-\(\)]{1,20}$`)

// CreateUserCommand регистрирует участника площадки.
type CreateUserCommand struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     domain.UserRole
	Type     domain.UserType

	UNP           string
	OKPO          string
	LegalAddress  string
	ActualAddress string
	BankName      string
	BankAccount   string
}

func (c CreateUserCommand) validate() error {
	var p validation.Problems
	p.Name("name", c.Name)
	p.Email("email", c.Email)
	if c.Phone != "" && !phonePattern.MatchString(c.Phone) {
		p.Addf("phone has invalid format")
	}
	if n := utf8.RuneCountInString(c.Password); n < minPasswordLength || n > maxPasswordLength {
		p.Addf("password must be between %d and %d characters", minPasswordLength, maxPasswordLength)
	}
	p.Role("role", c.Role)
	p.UserType("type", c.Type)
	p.Text("legal_address", c.LegalAddress)
	p.Text("actual_address", c.ActualAddress)
	return p.Err()
}

// UpdateUserCommand меняет только заданные поля пользователя: пустая строка
// означает «без изменений». Новый пароль сохраняется хешем.
type UpdateUserCommand struct {
	ID       int64
	Name     string
	Email    string
	Phone    string
	Password string
	Role     domain.UserRole
	Type     domain.UserType

	UNP           string
	OKPO          string
	LegalAddress  string
	ActualAddress string
	BankName      string
	BankAccount   string
}

func (c UpdateUserCommand) validate() error {
	var p validation.Problems
	p.PositiveID("id", c.ID)
	if c.Name != "" {
		p.Name("name", c.Name)
	}
	if c.Email != "" {
		p.Email("email", c.Email)
	}
	if c.Phone != "" && !phonePattern.MatchString(c.Phone) {
		p.Addf("phone has invalid format")
	}
	if c.Password != "" {
		if n := utf8.RuneCountInString(c.Password); n < minPasswordLength || n > maxPasswordLength {
			p.Addf("password must be between %d and %d characters", minPasswordLength, maxPasswordLength)
		}
	}
	if c.Role != "" {
		p.Role("role", c.Role)
	}
	if c.Type != "" {
		p.UserType("type", c.Type)
	}
	p.Text("legal_address", c.LegalAddress)
	p.Text("actual_address", c.ActualAddress)
	return p.Err()
}

func (c UpdateUserCommand) apply(user *domain.User) {
	patch := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	patch(&user.Name, c.Name)
	patch(&user.Email, c.Email)
	patch(&user.Phone, c.Phone)
	patch(&user.UNP, c.UNP)
	patch(&user.OKPO, c.OKPO)
	patch(&user.LegalAddress, c.LegalAddress)
	patch(&user.ActualAddress, c.ActualAddress)
	patch(&user.BankName, c.BankName)
	patch(&user.BankAccount, c.BankAccount)
	if c.Role != "" {
		user.Role = c.Role
	}
	if c.Type != "" {
		user.Type = c.Type
	}
}

// CategoryCommand создаёт или перезаписывает категорию. ID = 0 при создании.
type CategoryCommand struct {
	ID          int64
	Name        string
	Description string
	ImageURL    string
}

func (c CategoryCommand) validate(update bool) error {
	var p validation.Problems
	if update {
		p.PositiveID("id", c.ID)
	}
	p.Name("name", c.Name)
	p.Text("description", c.Description)
	return p.Err()
}

// ProductCommand создаёт или перезаписывает товар. ID = 0 при создании.
type ProductCommand struct {
	ID            int64
	Name          string
	Description   string
	SKU           string
	StockQuantity int
	Price         decimal.Decimal
	CategoryID    *int64
	Manufacturer  string
	Unit          string
	ImageURL      string
	ImageGallery  []string
}

func (c ProductCommand) validate(update bool) error {
	var p validation.Problems
	if update {
		p.PositiveID("id", c.ID)
	}
	p.Name("name", c.Name)
	p.Text("description", c.Description)
	p.SKU("sku", c.SKU)
	p.Stock("stock_quantity", c.StockQuantity)
	p.UnitPrice("price", c.Price, false)
	if c.CategoryID != nil {
		p.PositiveID("category_id", *c.CategoryID)
	}
	return p.Err()
}

func (c ProductCommand) apply(product *domain.Product) {
	product.Name = c.Name
	product.Description = c.Description
	product.SKU = c.SKU
	product.StockQuantity = c.StockQuantity
	product.Price = c.Price
	product.CategoryID = c.CategoryID
	product.Manufacturer = c.Manufacturer
	product.Unit = c.Unit
	product.ImageURL = c.ImageURL
	product.ImageGallery = append([]string(nil), c.ImageGallery...)
}

// UserPage — страница пользователей и общее число подходящих под фильтр.
type UserPage struct {
	Users      []domain.User
	TotalCount int
	Page       domain.Page
}

// CategoryPage — страница категорий.
type CategoryPage struct {
	Categories []domain.Category
	TotalCount int
	Page       domain.Page
}

// ProductPage — страница товаров по фильтру каталога.
type ProductPage struct {
	Products   []domain.Product
	TotalCount int
	Page       domain.Page
}
