package domain_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
)

// helper для создания заказа с двумя позициями.
func makeOrder() (domain.Order, []domain.OrderItem) {
	items := []domain.OrderItem{
		domain.NewOrderItem(1, 10, 2, decimal.RequireFromString("10.00")),
		domain.NewOrderItem(1, 11, 1, decimal.RequireFromString("5.00")),
	}
	order := domain.Order{
		ID:          1,
		CustomerID:  100,
		Status:      domain.OrderStatusPending,
		TotalAmount: domain.SumItems(items),
	}
	return order, items
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	order, items := makeOrder()
	if errs := order.ValidateInvariants(items); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("expected total 25.00, got %s", order.TotalAmount)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order, items []domain.OrderItem) []domain.OrderItem
		want error
	}{
		{
			name: "no customer",
			mut: func(o *domain.Order, items []domain.OrderItem) []domain.OrderItem {
				o.CustomerID = 0
				return items
			},
			want: domain.ErrCustomerRequired,
		},
		{
			name: "unknown status",
			mut: func(o *domain.Order, items []domain.OrderItem) []domain.OrderItem {
				o.Status = "lost"
				return items
			},
			want: domain.ErrStatusUnknown,
		},
		{
			name: "total mismatch",
			mut: func(o *domain.Order, items []domain.OrderItem) []domain.OrderItem {
				o.TotalAmount = decimal.RequireFromString("1.00")
				return items
			},
			want: domain.ErrAmountMismatch,
		},
		{
			name: "line total mismatch",
			mut: func(o *domain.Order, items []domain.OrderItem) []domain.OrderItem {
				items[0].Quantity = 3
				return items
			},
			want: domain.ErrLineTotalMismatch,
		},
		{
			name: "duplicate product",
			mut: func(o *domain.Order, items []domain.OrderItem) []domain.OrderItem {
				dup := items[0]
				o.TotalAmount = o.TotalAmount.Add(dup.TotalPrice)
				return append(items, dup)
			},
			want: domain.ErrDuplicateOrderItem,
		},
		{
			name: "zero quantity",
			mut: func(o *domain.Order, items []domain.OrderItem) []domain.OrderItem {
				items[1] = domain.NewOrderItem(1, 11, 0, decimal.RequireFromString("5.00"))
				o.TotalAmount = domain.SumItems(items)
				return items
			},
			want: domain.ErrItemQtyInvalid,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order, items := makeOrder()
			items = tc.mut(&order, items)
			errs := order.ValidateInvariants(items)
			if len(errs) == 0 {
				t.Fatalf("expected validation error")
			}
			found := false
			for _, err := range errs {
				if errors.Is(err, tc.want) {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %v among %v", tc.want, errs)
			}
		})
	}
}

func TestOrderStatusLocked(t *testing.T) {
	cases := map[domain.OrderStatus]bool{
		domain.OrderStatusPending:    false,
		domain.OrderStatusProcessing: false,
		domain.OrderStatusShipped:    true,
		domain.OrderStatusDelivered:  true,
		domain.OrderStatusCancelled:  false,
	}
	for status, want := range cases {
		if got := status.Locked(); got != want {
			t.Errorf("%s.Locked() = %v, want %v", status, got, want)
		}
		if !status.Valid() {
			t.Errorf("%s must be valid", status)
		}
	}
	if domain.OrderStatus("unknown").Valid() {
		t.Error("unknown status must be invalid")
	}
}
