package domain

import "time"

// UserRole определяет права пользователя на площадке.
type UserRole string

const (
	UserRoleBuyer  UserRole = "buyer"
	UserRoleSeller UserRole = "seller"
	UserRoleAdmin  UserRole = "admin"
)

// Valid сообщает, является ли значение известной ролью.
func (r UserRole) Valid() bool {
	return r == UserRoleBuyer || r == UserRoleSeller || r == UserRoleAdmin
}

// CanSell сообщает, может ли пользователь владеть прайс-листами.
func (r UserRole) CanSell() bool {
	return r == UserRoleSeller || r == UserRoleAdmin
}

// UserType — тип контрагента. Набор значений совпадает с ролями.
type UserType string

const (
	UserTypeBuyer  UserType = "buyer"
	UserTypeSeller UserType = "seller"
	UserTypeAdmin  UserType = "admin"
)

// Valid сообщает, является ли значение известным типом.
func (t UserType) Valid() bool {
	return t == UserTypeBuyer || t == UserTypeSeller || t == UserTypeAdmin
}

// User — участник площадки: покупатель, продавец или администратор.
type User struct {
	ID   int64
	Name string
	Role UserRole
	Type UserType

	Email string
	Phone string

	// Реквизиты юридического лица.
	UNP           string
	OKPO          string
	LegalAddress  string
	ActualAddress string
	BankName      string
	BankAccount   string

	PasswordHash string

	CreatedAt  time.Time
	ModifiedAt *time.Time
}
