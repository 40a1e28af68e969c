package orders

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/validation"
)

// ItemInput — позиция создаваемого заказа. Нулевая UnitPrice означает
// «определить цену для покупателя».
type ItemInput struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// CreateOrderCommand создаёт заказ вместе с позициями. Пустой Status означает pending.
type CreateOrderCommand struct {
	CustomerID int64
	Items      []ItemInput
	Notes      string
	Status     domain.OrderStatus
}

func (c CreateOrderCommand) validate() error {
	var p validation.Problems
	p.PositiveID("customer_id", c.CustomerID)
	if c.Status != "" {
		p.Status("status", c.Status)
	}
	p.Text("notes", c.Notes)
	if len(c.Items) == 0 {
		p.Addf("at least one item is required")
	}
	for i, item := range c.Items {
		field := fmt.Sprintf("items[%d]", i)
		p.PositiveID(field+".product_id", item.ProductID)
		p.Quantity(field+".quantity", item.Quantity)
		p.UnitPrice(field+".unit_price", item.UnitPrice, true)
	}
	return p.Err()
}

func (c CreateOrderCommand) duplicateProduct() (int64, bool) {
	seen := make(map[int64]struct{}, len(c.Items))
	for _, item := range c.Items {
		if _, dup := seen[item.ProductID]; dup {
			return item.ProductID, true
		}
		seen[item.ProductID] = struct{}{}
	}
	return 0, false
}

// AddOrderItemCommand добавляет позицию в ожидающий заказ.
type AddOrderItemCommand struct {
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

func (c AddOrderItemCommand) validate() error {
	var p validation.Problems
	p.PositiveID("order_id", c.OrderID)
	p.PositiveID("product_id", c.ProductID)
	p.Quantity("quantity", c.Quantity)
	p.UnitPrice("unit_price", c.UnitPrice, true)
	return p.Err()
}

// UpdateOrderCommand перезаписывает клиента, статус и примечание.
// ExpectedVersion = 0 отключает проверку версии.
type UpdateOrderCommand struct {
	ID              int64
	CustomerID      int64
	Status          domain.OrderStatus
	Notes           string
	ExpectedVersion int64
}

func (c UpdateOrderCommand) validate() error {
	var p validation.Problems
	p.PositiveID("id", c.ID)
	p.PositiveID("customer_id", c.CustomerID)
	p.Status("status", c.Status)
	p.Text("notes", c.Notes)
	return p.Err()
}

// RemoveOrderItemCommand удаляет товар из заказа.
type RemoveOrderItemCommand struct {
	OrderID   int64
	ProductID int64
}

func (c RemoveOrderItemCommand) validate() error {
	var p validation.Problems
	p.PositiveID("order_id", c.OrderID)
	p.PositiveID("product_id", c.ProductID)
	return p.Err()
}

// OrderDetails — заказ с позициями.
type OrderDetails struct {
	Order domain.Order
	Items []domain.OrderItem
}

// OrderPage — страница заказов и общее число подходящих под фильтр.
type OrderPage struct {
	Orders     []domain.Order
	TotalCount int
	Page       domain.Page
}
