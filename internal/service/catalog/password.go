package catalog

import "golang.org/x/crypto/bcrypt"

// PasswordHasher хеширует и проверяет пароли пользователей.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// BcryptHasher — PasswordHasher на bcrypt. Нулевой Cost означает bcrypt.DefaultCost.
type BcryptHasher struct {
	Cost int
}

// Hash возвращает bcrypt-хеш пароля.
func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare возвращает ошибку, если пароль не соответствует хешу.
func (BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
