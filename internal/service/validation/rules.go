// Package validation содержит проверки, которые предшествуют каждой мутации:
// структурные правила команды и ссылочные проверки через репозитории.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
)

const (
	MaxNameLength = 200
	MaxTextLength = 1000
	MaxSKULength  = 50
	MinQuantity   = 1
	MaxQuantity   = 1000

	moneyScale = 2
)

var (
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	skuPattern      = regexp.MustCompile(`^[A-Z0-9\-_]+$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

	// MaxUnitPrice — верхняя граница цены позиции заказа, каталожной и специальной цены.
	MaxUnitPrice = decimal.New(99999999, -2)
)

// Problems накапливает нарушения структурных правил одной команды.
// Нулевое значение готово к использованию.
type Problems struct {
	messages []string
}

// Addf добавляет нарушение.
func (p *Problems) Addf(format string, args ...any) {
	p.messages = append(p.messages, fmt.Sprintf(format, args...))
}

// Len возвращает количество нарушений.
func (p *Problems) Len() int { return len(p.messages) }

// Err возвращает ValidationFailed со всеми нарушениями или nil.
func (p *Problems) Err() error {
	if len(p.messages) == 0 {
		return nil
	}
	return domain.Validationf("%s", strings.Join(p.messages, "; "))
}

// PositiveID проверяет, что идентификатор задан.
func (p *Problems) PositiveID(field string, id int64) {
	if id <= 0 {
		p.Addf("%s must be positive", field)
	}
}

// Quantity проверяет количество в позиции заказа.
func (p *Problems) Quantity(field string, qty int) {
	if qty < MinQuantity || qty > MaxQuantity {
		p.Addf("%s must be between %d and %d", field, MinQuantity, MaxQuantity)
	}
}

// UnitPrice проверяет цену позиции заказа. Ноль допустим, если allowZero:
// тогда цена будет определена при выполнении команды.
func (p *Problems) UnitPrice(field string, price decimal.Decimal, allowZero bool) {
	switch {
	case price.IsZero() && allowZero:
		return
	case !price.IsPositive():
		p.Addf("%s must be greater than zero", field)
	case price.GreaterThan(MaxUnitPrice):
		p.Addf("%s must not exceed %s", field, MaxUnitPrice.StringFixed(moneyScale))
	case !hasMoneyScale(price):
		p.Addf("%s must have at most %d decimal places", field, moneyScale)
	}
}

// SpecialPrice проверяет специальную цену прайс-листа.
func (p *Problems) SpecialPrice(field string, price decimal.Decimal) {
	switch {
	case !price.IsPositive():
		p.Addf("%s must be greater than zero", field)
	case price.GreaterThan(MaxUnitPrice):
		p.Addf("%s must not exceed %s", field, MaxUnitPrice.StringFixed(moneyScale))
	case !hasMoneyScale(price):
		p.Addf("%s must have at most %d decimal places", field, moneyScale)
	}
}

// Currency проверяет трёхбуквенный код валюты в верхнем регистре.
func (p *Problems) Currency(field, code string) {
	if !currencyPattern.MatchString(code) {
		p.Addf("%s must be a 3-letter upper-case code", field)
	}
}

// Name проверяет обязательное имя.
func (p *Problems) Name(field, name string) {
	switch {
	case strings.TrimSpace(name) == "":
		p.Addf("%s is required", field)
	case utf8.RuneCountInString(name) > MaxNameLength:
		p.Addf("%s must not exceed %d characters", field, MaxNameLength)
	}
}

// Text проверяет необязательный текст: описание, примечание.
func (p *Problems) Text(field, text string) {
	if utf8.RuneCountInString(text) > MaxTextLength {
		p.Addf("%s must not exceed %d characters", field, MaxTextLength)
	}
}

// SKU проверяет артикул.
func (p *Problems) SKU(field, sku string) {
	switch {
	case sku == "":
		p.Addf("%s is required", field)
	case len(sku) > MaxSKULength:
		p.Addf("%s must not exceed %d characters", field, MaxSKULength)
	case !skuPattern.MatchString(sku):
		p.Addf("%s may contain only upper-case letters, digits, '-' and '_'", field)
	}
}

// Stock проверяет остаток на складе.
func (p *Problems) Stock(field string, qty int) {
	if qty < 0 {
		p.Addf("%s must not be negative", field)
	}
}

// Email проверяет адрес электронной почты.
func (p *Problems) Email(field, email string) {
	if !emailPattern.MatchString(email) {
		p.Addf("%s must be a valid email address", field)
	}
}

// Status проверяет статус заказа.
func (p *Problems) Status(field string, status domain.OrderStatus) {
	if !status.Valid() {
		p.Addf("%s %q is unknown", field, status)
	}
}

// Role проверяет роль пользователя.
func (p *Problems) Role(field string, role domain.UserRole) {
	if !role.Valid() {
		p.Addf("%s %q is unknown", field, role)
	}
}

// UserType проверяет тип пользователя.
func (p *Problems) UserType(field string, kind domain.UserType) {
	if !kind.Valid() {
		p.Addf("%s %q is unknown", field, kind)
	}
}

// Page проверяет окно выборки.
func (p *Problems) Page(page domain.Page) {
	if page.Limit < 0 || page.Offset < 0 {
		p.Addf("page limit and offset must not be negative")
	}
}

// Search проверяет необязательную строку поиска.
func (p *Problems) Search(field, term string) {
	if utf8.RuneCountInString(term) > MaxNameLength {
		p.Addf("%s must not exceed %d characters", field, MaxNameLength)
	}
}

// DateRange проверяет, что начало периода не позже конца.
func (p *Problems) DateRange(from, to *time.Time) {
	if from != nil && to != nil && from.After(*to) {
		p.Addf("start date must not be after end date")
	}
}

func hasMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(moneyScale))
}
