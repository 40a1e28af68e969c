package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, позиции ещё можно добавлять.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing — заказ принят в работу.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped — заказ отгружен, изменения запрещены.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ доставлен, изменения запрещены.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid сообщает, является ли значение известным статусом.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Locked сообщает, что заказ в этом статусе неизменяем: нельзя менять
// клиента, статус, примечания, состав позиций и удалять заказ.
func (s OrderStatus) Locked() bool {
	return s == OrderStatusShipped || s == OrderStatusDelivered
}

// Order — заголовок заказа. Позиции хранятся отдельно и загружаются явно по OrderID.
type Order struct {
	ID         int64
	CustomerID int64
	OrderDate  time.Time
	Status     OrderStatus
	// TotalAmount производная величина: сумма TotalPrice всех позиций.
	TotalAmount decimal.Decimal
	Notes       string
	Version     int64
	CreatedAt   time.Time
	ModifiedAt  *time.Time
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	// UnitPrice фиксируется в момент добавления позиции и не перечитывается из каталога.
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
	ModifiedAt *time.Time
}

// NewOrderItem собирает позицию и вычисляет сумму строки.
func NewOrderItem(orderID, productID int64, quantity int, unitPrice decimal.Decimal) OrderItem {
	return OrderItem{
		OrderID:    orderID,
		ProductID:  productID,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		TotalPrice: LineTotal(quantity, unitPrice),
	}
}

// LineTotal возвращает quantity × unitPrice.
func LineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// SumItems возвращает сумму строк позиций.
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.TotalPrice)
	}
	return total
}

// ValidateInvariants проверяет инварианты заказа относительно его позиций.
func (o *Order) ValidateInvariants(items []OrderItem) []error {
	var errs []error

	if o.CustomerID <= 0 {
		errs = append(errs, ErrCustomerRequired)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrStatusUnknown)
	}

	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if !item.UnitPrice.IsPositive() {
			errs = append(errs, ErrItemPriceInvalid)
		}
		if !item.TotalPrice.Equal(LineTotal(item.Quantity, item.UnitPrice)) {
			errs = append(errs, ErrLineTotalMismatch)
		}
		if _, dup := seen[item.ProductID]; dup {
			errs = append(errs, ErrDuplicateOrderItem)
		}
		seen[item.ProductID] = struct{}{}
	}
	if !o.TotalAmount.Equal(SumItems(items)) {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
