package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
	"github.com/vladislavdragonenkov/b2b-trading/internal/storage/memory"
)

func fixedClock() func() time.Time {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time { return now }
}

func newOrder(customerID int64) domain.Order {
	return domain.Order{
		CustomerID:  customerID,
		Status:      domain.OrderStatusPending,
		TotalAmount: decimal.RequireFromString("20.00"),
	}
}

func TestOrderRepository_AddGet(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(memory.WithClock(fixedClock()))
	order := newOrder(1)

	if err := store.Orders().Add(ctx, &order); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if order.ID != 1 {
		t.Fatalf("expected serial id 1, got %d", order.ID)
	}
	if order.Version != 1 {
		t.Fatalf("expected initial version 1, got %d", order.Version)
	}
	if order.CreatedAt.IsZero() || order.OrderDate.IsZero() {
		t.Fatalf("expected timestamps to be set: %+v", order)
	}

	stored, err := store.Orders().GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !stored.TotalAmount.Equal(order.TotalAmount) {
		t.Fatalf("expected total %s, got %s", order.TotalAmount, stored.TotalAmount)
	}
}

func TestOrderRepository_GetMissing(t *testing.T) {
	store := memory.NewStore()
	_, err := store.Orders().GetByID(context.Background(), 42)
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("expected not_found kind, got %s", domain.KindOf(err))
	}
}

func TestOrderRepository_UpdateVersionConflict(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	order := newOrder(1)
	if err := store.Orders().Add(ctx, &order); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	first, _ := store.Orders().GetByID(ctx, order.ID)
	second, _ := store.Orders().GetByID(ctx, order.ID)

	first.Notes = "first writer"
	if err := store.Orders().Update(ctx, &first); err != nil {
		t.Fatalf("first update failed: %v", err)
	}
	if first.Version != 2 {
		t.Fatalf("expected version 2, got %d", first.Version)
	}
	if first.ModifiedAt == nil {
		t.Fatal("expected ModifiedAt to be refreshed")
	}

	second.Notes = "second writer"
	err := store.Orders().Update(ctx, &second)
	if !domain.IsVersionConflict(err) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	stored, _ := store.Orders().GetByID(ctx, order.ID)
	if stored.Notes != "first writer" {
		t.Fatalf("second writer must not overwrite, got %q", stored.Notes)
	}
}

func TestFindCountAndWindow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	for i := 0; i < 5; i++ {
		customer := int64(1)
		if i%2 == 1 {
			customer = 2
		}
		order := newOrder(customer)
		if err := store.Orders().Add(ctx, &order); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	n, err := store.Orders().Count(ctx, domain.OrderFilter{CustomerID: 1})
	if err != nil || n != 3 {
		t.Fatalf("expected 3 orders for customer 1, got %d (%v)", n, err)
	}

	page, err := store.Orders().Find(ctx, domain.OrderFilter{CustomerID: 1, Page: domain.Page{Limit: 2, Offset: 1}})
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != 3 || page[1].ID != 5 {
		t.Fatalf("unexpected page: %+v", page)
	}

	all, err := store.Orders().GetAll(ctx)
	if err != nil || len(all) != 5 {
		t.Fatalf("expected 5 orders, got %d (%v)", len(all), err)
	}

	exists, err := store.Orders().Exists(ctx, domain.OrderFilter{CustomerID: 3})
	if err != nil || exists {
		t.Fatalf("expected no orders for customer 3, got %v (%v)", exists, err)
	}
}

func TestUniqueIndexes(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	first := domain.PriceList{Name: "Wholesale", Currency: "USD", SellerID: 1, IsActive: true}
	if err := store.PriceLists().Add(ctx, &first); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	dup := domain.PriceList{Name: "WHOLESALE", Currency: "USD", SellerID: 1, IsActive: true}
	if err := store.PriceLists().Add(ctx, &dup); !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key, got %v", err)
	}
	other := domain.PriceList{Name: "wholesale", Currency: "USD", SellerID: 2, IsActive: true}
	if err := store.PriceLists().Add(ctx, &other); err != nil {
		t.Fatalf("other seller may reuse the name: %v", err)
	}

	member := domain.PriceListProduct{PriceListID: first.ID, ProductID: 9, SpecialPrice: decimal.RequireFromString("8.00"), IsActive: true}
	if err := store.PriceListProducts().Add(ctx, &member); err != nil {
		t.Fatalf("add member failed: %v", err)
	}
	again := member
	if err := store.PriceListProducts().Add(ctx, &again); !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected duplicate membership, got %v", err)
	}
}

func TestUnitOfWork_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	order := newOrder(1)
	if err := tx.Orders().Add(ctx, &order); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	// вне транзакции запись не видна
	if n, _ := store.Orders().Count(ctx, domain.OrderFilter{}); n != 0 {
		t.Fatalf("uncommitted order must be invisible, got %d", n)
	}

	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback failed: %v", err)
	}
	if n, _ := store.Orders().Count(ctx, domain.OrderFilter{}); n != 0 {
		t.Fatalf("rolled back order must not persist, got %d", n)
	}
	if err := tx.Orders().Add(ctx, &order); !errors.Is(err, memory.ErrTxClosed) {
		t.Fatalf("expected ErrTxClosed after rollback, got %v", err)
	}
}

func TestUnitOfWork_CommitPublishes(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	order := newOrder(1)
	if err := tx.Orders().Add(ctx, &order); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	item := domain.NewOrderItem(order.ID, 5, 2, decimal.RequireFromString("10.00"))
	if err := tx.OrderItems().Add(ctx, &item); err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback after commit must be a no-op: %v", err)
	}

	items, err := store.OrderItems().Find(ctx, domain.OrderItemFilter{OrderID: order.ID})
	if err != nil || len(items) != 1 {
		t.Fatalf("expected committed item, got %d (%v)", len(items), err)
	}
}

func TestBegin_WaitsForWriter(t *testing.T) {
	store := memory.NewStore()
	tx, err := store.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := store.Begin(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected second Begin to wait for the writer, got %v", err)
	}
}

func TestProductCopyIsolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	product := domain.Product{Name: "Bolt", SKU: "B-1", Price: decimal.RequireFromString("1.00"), ImageGallery: []string{"a.png"}}
	if err := store.Products().Add(ctx, &product); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	product.ImageGallery[0] = "mutated.png"

	stored, err := store.Products().GetByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.ImageGallery[0] != "a.png" {
		t.Fatalf("stored gallery must not alias caller slice, got %v", stored.ImageGallery)
	}
}
