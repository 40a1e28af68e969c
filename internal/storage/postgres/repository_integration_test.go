package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
)

func seedSellerAndProduct(t *testing.T, ctx context.Context, store *Store) (domain.User, domain.Product) {
	t.Helper()

	seller := domain.User{
		Name:  "ООО Поставщик",
		Role:  domain.UserRoleSeller,
		Type:  domain.UserTypeSeller,
		Email: "seller@example.com",
	}
	if err := store.Users().Add(ctx, &seller); err != nil {
		t.Fatalf("add seller: %v", err)
	}
	product := domain.Product{
		Name:         "Кабель ВВГ 3x2.5",
		SKU:          "VVG-325",
		Price:        decimal.RequireFromString("120.50"),
		ImageGallery: []string{"a.png", "b.png"},
	}
	if err := store.Products().Add(ctx, &product); err != nil {
		t.Fatalf("add product: %v", err)
	}
	return seller, product
}

func TestRepositories_PostgresCRUDAndVersioning(t *testing.T) {
	store := openMigratedStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	seller, product := seedSellerAndProduct(t, ctx, store)
	if seller.ID == 0 || product.ID == 0 {
		t.Fatalf("expected generated ids, got seller=%d product=%d", seller.ID, product.ID)
	}

	loaded, err := store.Products().GetByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if !loaded.Price.Equal(product.Price) || len(loaded.ImageGallery) != 2 {
		t.Fatalf("unexpected product: %+v", loaded)
	}

	dup := domain.Product{Name: "Дубль", SKU: "vvg-325", Price: decimal.NewFromInt(1)}
	if err := store.Products().Add(ctx, &dup); !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key for case-insensitive sku, got %v", err)
	}

	list := domain.PriceList{Name: "Опт", Currency: "BYN", SellerID: seller.ID, IsActive: true}
	if err := store.PriceLists().Add(ctx, &list); err != nil {
		t.Fatalf("add price list: %v", err)
	}
	if list.Version != 1 {
		t.Fatalf("expected initial version 1, got %d", list.Version)
	}

	stale := list
	list.Description = "оптовые цены"
	if err := store.PriceLists().Update(ctx, &list); err != nil {
		t.Fatalf("update price list: %v", err)
	}
	if list.Version != 2 || list.ModifiedAt == nil {
		t.Fatalf("expected version 2 with modified_at, got %+v", list)
	}
	stale.Name = "Розница"
	if err := store.PriceLists().Update(ctx, &stale); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	missing := domain.PriceList{ID: 9999, Version: 1}
	if err := store.PriceLists().Update(ctx, &missing); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRepositories_PostgresCompositeKeysAndFilters(t *testing.T) {
	store := openMigratedStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	seller, product := seedSellerAndProduct(t, ctx, store)
	list := domain.PriceList{Name: "Опт", Currency: "BYN", SellerID: seller.ID, IsActive: true}
	if err := store.PriceLists().Add(ctx, &list); err != nil {
		t.Fatalf("add price list: %v", err)
	}

	member := domain.PriceListProduct{
		PriceListID:  list.ID,
		ProductID:    product.ID,
		SpecialPrice: decimal.RequireFromString("99.90"),
		IsActive:     true,
	}
	if err := store.PriceListProducts().Add(ctx, &member); err != nil {
		t.Fatalf("add membership: %v", err)
	}
	if err := store.PriceListProducts().Add(ctx, &member); !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected duplicate membership, got %v", err)
	}

	orphan := domain.PriceListProduct{PriceListID: list.ID, ProductID: 4242, SpecialPrice: decimal.NewFromInt(1)}
	if err := store.PriceListProducts().Add(ctx, &orphan); !errors.Is(err, domain.ErrReferenceViolation) {
		t.Fatalf("expected reference violation, got %v", err)
	}

	active := true
	n, err := store.PriceListProducts().Count(ctx, domain.PriceListProductFilter{ProductID: product.ID, Active: &active})
	if err != nil || n != 1 {
		t.Fatalf("count active memberships: n=%d err=%v", n, err)
	}

	found, err := store.PriceLists().Find(ctx, domain.PriceListFilter{IDs: []int64{list.ID}, ActiveOnly: true})
	if err != nil || len(found) != 1 {
		t.Fatalf("find by ids: %v %v", found, err)
	}
	none, err := store.PriceLists().Find(ctx, domain.PriceListFilter{IDs: []int64{}})
	if err != nil || len(none) != 0 {
		t.Fatalf("empty id set must match nothing: %v %v", none, err)
	}

	if err := store.PriceListProducts().Delete(ctx, member.Key()); err != nil {
		t.Fatalf("delete membership: %v", err)
	}
	if err := store.PriceListProducts().Delete(ctx, member.Key()); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestUnitOfWork_PostgresRollbackDiscardsWrites(t *testing.T) {
	store := openMigratedStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	seller, _ := seedSellerAndProduct(t, ctx, store)

	uow, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	order := domain.Order{CustomerID: seller.ID, Status: domain.OrderStatusPending}
	if err := uow.Orders().Add(ctx, &order); err != nil {
		t.Fatalf("add order in tx: %v", err)
	}
	if err := uow.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if err := uow.Rollback(ctx); err != nil {
		t.Fatalf("second rollback must be a no-op: %v", err)
	}

	n, err := store.Orders().Count(ctx, domain.OrderFilter{})
	if err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected rolled back order to be discarded, got %d orders", n)
	}

	uow, err = store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := uow.Orders().Add(ctx, &order); err != nil {
		t.Fatalf("add order in tx: %v", err)
	}
	if err := uow.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := uow.Rollback(ctx); err != nil {
		t.Fatalf("rollback after commit must be a no-op: %v", err)
	}
	if ok, err := store.Orders().Exists(ctx, domain.OrderFilter{CustomerID: seller.ID}); err != nil || !ok {
		t.Fatalf("expected committed order: ok=%v err=%v", ok, err)
	}
}

func TestUnitOfWork_PostgresConcurrentListWritersConflict(t *testing.T) {
	store := openMigratedStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	seller, product := seedSellerAndProduct(t, ctx, store)
	list := domain.PriceList{Name: "Опт", Currency: "BYN", SellerID: seller.ID, IsActive: true}
	if err := store.PriceLists().Add(ctx, &list); err != nil {
		t.Fatalf("add price list: %v", err)
	}

	deactivating, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin deactivation: %v", err)
	}
	defer func() { _ = deactivating.Rollback(ctx) }()
	adding, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin membership insert: %v", err)
	}
	defer func() { _ = adding.Rollback(ctx) }()

	// оба писателя видят активный лист версии 1
	seenByDeactivation, err := deactivating.PriceLists().GetByID(ctx, list.ID)
	if err != nil {
		t.Fatalf("read list in deactivation tx: %v", err)
	}
	seenByInsert, err := adding.PriceLists().GetByID(ctx, list.ID)
	if err != nil {
		t.Fatalf("read list in insert tx: %v", err)
	}
	if !seenByInsert.IsActive || seenByInsert.Version != 1 {
		t.Fatalf("unexpected list in insert tx: %+v", seenByInsert)
	}

	seenByDeactivation.IsActive = false
	if err := deactivating.PriceLists().Update(ctx, &seenByDeactivation); err != nil {
		t.Fatalf("deactivate list: %v", err)
	}

	touched := make(chan error, 1)
	go func() {
		touched <- adding.PriceLists().Update(ctx, &seenByInsert)
	}()

	select {
	case err := <-touched:
		t.Fatalf("insert tx must wait for the list row lock, got %v", err)
	case <-time.After(300 * time.Millisecond):
	}

	if err := deactivating.Commit(ctx); err != nil {
		t.Fatalf("commit deactivation: %v", err)
	}

	select {
	case err := <-touched:
		if !errors.Is(err, domain.ErrVersionConflict) {
			t.Fatalf("expected version conflict for insert tx, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("insert tx did not resume after deactivation commit")
	}
	if err := adding.Rollback(ctx); err != nil {
		t.Fatalf("rollback insert tx: %v", err)
	}

	stored, err := store.PriceLists().GetByID(ctx, list.ID)
	if err != nil {
		t.Fatalf("reload list: %v", err)
	}
	if stored.IsActive || stored.Version != 2 {
		t.Fatalf("expected inactive list at version 2, got %+v", stored)
	}
	active := true
	n, err := store.PriceListProducts().Count(ctx, domain.PriceListProductFilter{ProductID: product.ID, Active: &active})
	if err != nil || n != 0 {
		t.Fatalf("inactive list must have no active products: n=%d err=%v", n, err)
	}
}

func TestRepositories_PostgresSearchRangeAndPaging(t *testing.T) {
	store := openMigratedStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	seller, cable := seedSellerAndProduct(t, ctx, store)
	for _, p := range []domain.Product{
		{Name: "Кабель АВВГ", SKU: "AVVG-216", Price: decimal.NewFromInt(80)},
		{Name: "Розетка", Description: "для кабеля 100%", SKU: "SOCKET-1", Price: decimal.NewFromInt(15)},
	} {
		if err := store.Products().Add(ctx, &p); err != nil {
			t.Fatalf("add product %s: %v", p.SKU, err)
		}
	}

	filter := domain.ProductFilter{Search: "КАБЕЛ", Page: domain.Page{Limit: 2, Offset: 1}}
	page, err := store.Products().Find(ctx, filter)
	if err != nil {
		t.Fatalf("search products: %v", err)
	}
	total, err := store.Products().Count(ctx, filter)
	if err != nil {
		t.Fatalf("count products: %v", err)
	}
	if total != 3 || len(page) != 2 || page[0].ID == cable.ID {
		t.Fatalf("unexpected search page: total=%d page=%+v", total, page)
	}
	literal, err := store.Products().Count(ctx, domain.ProductFilter{Search: "100%"})
	if err != nil || literal != 1 {
		t.Fatalf("percent sign must be matched literally: n=%d err=%v", literal, err)
	}

	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		order := domain.Order{CustomerID: seller.ID, Status: domain.OrderStatusPending, OrderDate: base.AddDate(0, 0, i)}
		if err := store.Orders().Add(ctx, &order); err != nil {
			t.Fatalf("add order: %v", err)
		}
	}
	from, to := base.AddDate(0, 0, 1), base.AddDate(0, 0, 2)
	n, err := store.Orders().Count(ctx, domain.OrderFilter{From: &from, To: &to})
	if err != nil || n != 2 {
		t.Fatalf("orders in inclusive range: n=%d err=%v", n, err)
	}
}
