// Package orders управляет жизненным циклом заказов и их позиций.
package orders

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/command"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/pricing"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/validation"
)

// Manager выполняет команды над заказами. Каждая мутация идёт в одной транзакции,
// а после неё сумма заказа совпадает с суммой строк.
type Manager struct {
	runner   *command.Runner
	resolver *pricing.Resolver
	logger   *log.Entry
}

// NewManager создаёт менеджер заказов.
func NewManager(runner *command.Runner, resolver *pricing.Resolver, logger *log.Entry) *Manager {
	if logger == nil {
		logger = log.New().WithField("component", "orders")
	}
	return &Manager{runner: runner, resolver: resolver, logger: logger}
}

// CreateOrder создаёт заказ и его позиции и возвращает ID заказа.
func (m *Manager) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (int64, error) {
	return command.Execute(ctx, m.runner, "create_order", cmd.validate,
		func(ctx context.Context, uow domain.UnitOfWork) (int64, error) {
			if productID, dup := cmd.duplicateProduct(); dup {
				return 0, domain.Conflictf("product %d appears more than once in order", productID)
			}
			if _, err := validation.RequireUser(ctx, uow, cmd.CustomerID); err != nil {
				return 0, err
			}

			items := make([]domain.OrderItem, 0, len(cmd.Items))
			for _, in := range cmd.Items {
				if _, err := validation.RequireProduct(ctx, uow, in.ProductID); err != nil {
					return 0, err
				}
				price, err := m.unitPrice(ctx, uow, cmd.CustomerID, in.ProductID, in.UnitPrice)
				if err != nil {
					return 0, err
				}
				items = append(items, domain.NewOrderItem(0, in.ProductID, in.Quantity, price))
			}

			status := cmd.Status
			if status == "" {
				status = domain.OrderStatusPending
			}
			order := domain.Order{
				CustomerID:  cmd.CustomerID,
				Status:      status,
				TotalAmount: domain.SumItems(items),
				Notes:       cmd.Notes,
			}
			if err := checkInvariants(&order, items); err != nil {
				return 0, err
			}
			if err := uow.Orders().Add(ctx, &order); err != nil {
				return 0, err
			}
			for i := range items {
				items[i].OrderID = order.ID
				if err := uow.OrderItems().Add(ctx, &items[i]); err != nil {
					return 0, err
				}
			}

			m.logger.WithFields(log.Fields{
				"order_id":    order.ID,
				"customer_id": order.CustomerID,
				"items":       len(items),
				"total":       order.TotalAmount.StringFixed(2),
			}).Info("order created")
			return order.ID, nil
		})
}

// AddOrderItem добавляет позицию в ожидающий заказ и увеличивает его сумму.
func (m *Manager) AddOrderItem(ctx context.Context, cmd AddOrderItemCommand) (domain.OrderItem, error) {
	return command.Execute(ctx, m.runner, "add_order_item", cmd.validate,
		func(ctx context.Context, uow domain.UnitOfWork) (domain.OrderItem, error) {
			order, err := validation.RequireOrder(ctx, uow, cmd.OrderID)
			if err != nil {
				return domain.OrderItem{}, err
			}
			if _, err := validation.RequireProduct(ctx, uow, cmd.ProductID); err != nil {
				return domain.OrderItem{}, err
			}
			if err := validation.RequirePendingOrder(order); err != nil {
				return domain.OrderItem{}, err
			}
			if err := validation.EnsureNotOnOrder(ctx, uow, order.ID, cmd.ProductID); err != nil {
				return domain.OrderItem{}, err
			}

			price, err := m.unitPrice(ctx, uow, order.CustomerID, cmd.ProductID, cmd.UnitPrice)
			if err != nil {
				return domain.OrderItem{}, err
			}
			item := domain.NewOrderItem(order.ID, cmd.ProductID, cmd.Quantity, price)
			if err := uow.OrderItems().Add(ctx, &item); err != nil {
				return domain.OrderItem{}, err
			}

			order.TotalAmount = order.TotalAmount.Add(item.TotalPrice)
			if err := m.saveOrder(ctx, uow, &order); err != nil {
				return domain.OrderItem{}, err
			}
			return item, nil
		})
}

// RemoveOrderItem удаляет товар из заказа и уменьшает сумму.
func (m *Manager) RemoveOrderItem(ctx context.Context, cmd RemoveOrderItemCommand) error {
	_, err := command.Execute(ctx, m.runner, "remove_order_item", cmd.validate,
		func(ctx context.Context, uow domain.UnitOfWork) (struct{}, error) {
			order, err := validation.RequireOrder(ctx, uow, cmd.OrderID)
			if err != nil {
				return struct{}{}, err
			}
			if err := validation.RequireMutableOrder(order); err != nil {
				return struct{}{}, err
			}

			items, err := uow.OrderItems().Find(ctx, domain.OrderItemFilter{OrderID: order.ID, ProductID: cmd.ProductID})
			if err != nil {
				return struct{}{}, err
			}
			if len(items) == 0 {
				return struct{}{}, domain.NotFoundf("product %d is not on order %d", cmd.ProductID, order.ID)
			}
			for _, item := range items {
				if err := uow.OrderItems().Delete(ctx, item.ID); err != nil {
					return struct{}{}, err
				}
				order.TotalAmount = order.TotalAmount.Sub(item.TotalPrice)
			}
			return struct{}{}, m.saveOrder(ctx, uow, &order)
		})
	return err
}

// UpdateOrder перезаписывает клиента, статус и примечание заказа.
func (m *Manager) UpdateOrder(ctx context.Context, cmd UpdateOrderCommand) (domain.Order, error) {
	return command.Execute(ctx, m.runner, "update_order", cmd.validate,
		func(ctx context.Context, uow domain.UnitOfWork) (domain.Order, error) {
			order, err := validation.RequireOrder(ctx, uow, cmd.ID)
			if err != nil {
				return domain.Order{}, err
			}
			if _, err := validation.RequireUser(ctx, uow, cmd.CustomerID); err != nil {
				return domain.Order{}, err
			}
			if err := validation.RequireMutableOrder(order); err != nil {
				return domain.Order{}, err
			}
			if err := validation.RequireVersion("order", order.ID, order.Version, cmd.ExpectedVersion); err != nil {
				return domain.Order{}, err
			}

			previous := order.Status
			order.CustomerID = cmd.CustomerID
			order.Status = cmd.Status
			order.Notes = cmd.Notes
			if err := m.saveOrder(ctx, uow, &order); err != nil {
				return domain.Order{}, err
			}

			if previous != order.Status {
				m.logger.WithFields(log.Fields{
					"order_id": order.ID,
					"from":     previous,
					"to":       order.Status,
				}).Info("order status changed")
			}
			return order, nil
		})
}

// DeleteOrder удаляет позиции заказа, затем сам заказ.
func (m *Manager) DeleteOrder(ctx context.Context, id int64) error {
	_, err := command.Execute(ctx, m.runner, "delete_order",
		func() error {
			var p validation.Problems
			p.PositiveID("id", id)
			return p.Err()
		},
		func(ctx context.Context, uow domain.UnitOfWork) (struct{}, error) {
			order, err := validation.RequireOrder(ctx, uow, id)
			if err != nil {
				return struct{}{}, err
			}
			if err := validation.RequireMutableOrder(order); err != nil {
				return struct{}{}, err
			}

			items, err := uow.OrderItems().Find(ctx, domain.OrderItemFilter{OrderID: order.ID})
			if err != nil {
				return struct{}{}, err
			}
			for _, item := range items {
				if err := uow.OrderItems().Delete(ctx, item.ID); err != nil {
					return struct{}{}, err
				}
			}
			if err := uow.Orders().Delete(ctx, order.ID); err != nil {
				return struct{}{}, err
			}

			m.logger.WithFields(log.Fields{"order_id": order.ID, "items": len(items)}).Info("order deleted")
			return struct{}{}, nil
		})
	return err
}

// GetOrder возвращает заказ с позициями.
func (m *Manager) GetOrder(ctx context.Context, id int64) (OrderDetails, error) {
	return command.Query(ctx, m.runner, "get_order",
		func() error {
			var p validation.Problems
			p.PositiveID("id", id)
			return p.Err()
		},
		func(ctx context.Context, repos domain.Repositories) (OrderDetails, error) {
			order, err := validation.RequireOrder(ctx, repos, id)
			if err != nil {
				return OrderDetails{}, err
			}
			items, err := repos.OrderItems().Find(ctx, domain.OrderItemFilter{OrderID: id})
			if err != nil {
				return OrderDetails{}, err
			}
			return OrderDetails{Order: order, Items: items}, nil
		})
}

// ListCustomerOrders возвращает страницу заказов клиента.
func (m *Manager) ListCustomerOrders(ctx context.Context, customerID int64, page domain.Page) (OrderPage, error) {
	return command.Query(ctx, m.runner, "list_customer_orders",
		func() error {
			var p validation.Problems
			p.PositiveID("customer_id", customerID)
			p.Page(page)
			return p.Err()
		},
		func(ctx context.Context, repos domain.Repositories) (OrderPage, error) {
			if _, err := validation.RequireUser(ctx, repos, customerID); err != nil {
				return OrderPage{}, err
			}
			filter := domain.OrderFilter{CustomerID: customerID, Page: page}
			orders, err := repos.Orders().Find(ctx, filter)
			if err != nil {
				return OrderPage{}, err
			}
			total, err := repos.Orders().Count(ctx, filter)
			if err != nil {
				return OrderPage{}, err
			}
			return OrderPage{Orders: orders, TotalCount: total, Page: page}, nil
		})
}

// ListOrders возвращает страницу заказов по клиенту, статусу и периоду даты заказа.
func (m *Manager) ListOrders(ctx context.Context, filter domain.OrderFilter) (OrderPage, error) {
	return command.Query(ctx, m.runner, "list_orders",
		func() error {
			var p validation.Problems
			if filter.CustomerID < 0 {
				p.PositiveID("customer_id", filter.CustomerID)
			}
			if filter.Status != "" {
				p.Status("status", filter.Status)
			}
			p.DateRange(filter.From, filter.To)
			p.Page(filter.Page)
			return p.Err()
		},
		func(ctx context.Context, repos domain.Repositories) (OrderPage, error) {
			orders, err := repos.Orders().Find(ctx, filter)
			if err != nil {
				return OrderPage{}, err
			}
			total, err := repos.Orders().Count(ctx, filter)
			if err != nil {
				return OrderPage{}, err
			}
			return OrderPage{Orders: orders, TotalCount: total, Page: filter.Page}, nil
		})
}

// unitPrice возвращает цену позиции: заданную вызывающим или определённую для покупателя.
func (m *Manager) unitPrice(ctx context.Context, repos domain.Repositories, customerID, productID int64, given decimal.Decimal) (decimal.Decimal, error) {
	if !given.IsZero() {
		return given, nil
	}
	res, err := m.resolver.Resolve(ctx, repos, customerID, productID)
	if err != nil {
		return decimal.Zero, err
	}
	if !res.Price.IsPositive() {
		return decimal.Zero, domain.Validationf("product %d has no positive price for customer %d", productID, customerID)
	}
	return res.Price, nil
}

// saveOrder сверяет инварианты заказа с позициями в транзакции и сохраняет его.
func (m *Manager) saveOrder(ctx context.Context, uow domain.UnitOfWork, order *domain.Order) error {
	items, err := uow.OrderItems().Find(ctx, domain.OrderItemFilter{OrderID: order.ID})
	if err != nil {
		return err
	}
	if err := checkInvariants(order, items); err != nil {
		return err
	}
	return uow.Orders().Update(ctx, order)
}

func checkInvariants(order *domain.Order, items []domain.OrderItem) error {
	if errs := order.ValidateInvariants(items); len(errs) > 0 {
		return domain.Internal(errors.Join(errs...), "order invariants violated")
	}
	return nil
}
