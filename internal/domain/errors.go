package domain

import (
	"errors"
	"fmt"
)

// ErrorKind — категория ошибки, по которой внешний слой выбирает код ответа.
type ErrorKind string

const (
	// KindNotFound — ссылочная сущность отсутствует.
	KindNotFound ErrorKind = "not_found"
	// KindConflict — нарушение уникальности или эксклюзивности состояния.
	KindConflict ErrorKind = "conflict"
	// KindInvalidState — операция недопустима в текущем статусе.
	KindInvalidState ErrorKind = "invalid_state"
	// KindValidationFailed — нарушено структурное правило команды.
	KindValidationFailed ErrorKind = "validation_failed"
	// KindInternal — неожиданная ошибка хранилища или паника.
	KindInternal ErrorKind = "internal"
)

var (
	// ErrNotFound — базовая ошибка категории NotFound.
	ErrNotFound = errors.New("not found")
	// ErrConflict — базовая ошибка категории Conflict.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState — базовая ошибка категории InvalidState.
	ErrInvalidState = errors.New("invalid state")
	// ErrValidationFailed — базовая ошибка категории ValidationFailed.
	ErrValidationFailed = errors.New("validation failed")
	// ErrInternal — базовая ошибка категории Internal.
	ErrInternal = errors.New("internal error")

	// ErrRecordNotFound возвращается репозиторием, если строка не найдена.
	ErrRecordNotFound = fmt.Errorf("%w: record not found", ErrNotFound)
	// ErrVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrVersionConflict = fmt.Errorf("%w: version mismatch", ErrConflict)
	// ErrDuplicateKey — нарушение уникального ключа в хранилище.
	ErrDuplicateKey = fmt.Errorf("%w: duplicate key", ErrConflict)
	// ErrReferenceViolation — нарушение внешнего ключа в хранилище.
	ErrReferenceViolation = fmt.Errorf("%w: referenced row is missing or still in use", ErrConflict)
)

var (
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка неизвестного статуса заказа.
	ErrStatusUnknown = errors.New("order status is unknown")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка, если цена позиции не положительная.
	ErrItemPriceInvalid = errors.New("item unit price must be greater than zero")
	// Ошибка несоответствия суммы строки и quantity × unit price.
	ErrLineTotalMismatch = errors.New("item total price does not match quantity * unit price")
	// Ошибка повторного товара в одном заказе.
	ErrDuplicateOrderItem = errors.New("product appears more than once in order")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order total does not match items sum")
)

var kindSentinels = map[ErrorKind]error{
	KindNotFound:         ErrNotFound,
	KindConflict:         ErrConflict,
	KindInvalidState:     ErrInvalidState,
	KindValidationFailed: ErrValidationFailed,
	KindInternal:         ErrInternal,
}

// kindOrder фиксирует порядок сопоставления для ошибок, объединённых через errors.Join.
var kindOrder = []ErrorKind{KindNotFound, KindConflict, KindInvalidState, KindValidationFailed, KindInternal}

// Error — результат неуспешной команды: категория и человекочитаемая причина.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Message == "" {
		return e.Cause.Error()
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap связывает ошибку с базовой ошибкой категории и с причиной.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel, ok := kindSentinels[e.Kind]; ok {
		errs = append(errs, sentinel)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf создаёт ошибку категории NotFound.
func NotFoundf(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

// Conflictf создаёт ошибку категории Conflict.
func Conflictf(format string, args ...any) error {
	return newError(KindConflict, format, args...)
}

// InvalidStatef создаёт ошибку категории InvalidState.
func InvalidStatef(format string, args ...any) error {
	return newError(KindInvalidState, format, args...)
}

// Validationf создаёт ошибку категории ValidationFailed.
func Validationf(format string, args ...any) error {
	return newError(KindValidationFailed, format, args...)
}

// Internal оборачивает неожиданную ошибку, сохраняя исходное сообщение для диагностики.
func Internal(cause error, message string) error {
	return &Error{Kind: KindInternal, Message: message, Cause: cause}
}

// KindOf возвращает категорию ошибки. Для nil возвращается пустая строка,
// для некатегоризированных ошибок — KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	for _, kind := range kindOrder {
		if errors.Is(err, kindSentinels[kind]) {
			return kind
		}
	}
	return KindInternal
}

// IsCategorized сообщает, несёт ли ошибка одну из категорий результата команды.
func IsCategorized(err error) bool {
	if err == nil {
		return false
	}
	var de *Error
	if errors.As(err, &de) {
		return true
	}
	return KindOf(err) != KindInternal || errors.Is(err, ErrInternal)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
