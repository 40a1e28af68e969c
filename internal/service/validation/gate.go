package validation

import (
	"context"
	"errors"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
)

// Ссылочные проверки. Каждая возвращает загруженную сущность и ошибку с
// категорией; ошибки хранилища без категории становятся Internal.

// RequireUser загружает пользователя или возвращает NotFound.
func RequireUser(ctx context.Context, repos domain.Repositories, id int64) (domain.User, error) {
	user, err := repos.Users().GetByID(ctx, id)
	return user, lookupError(err, "user %d not found", id)
}

// RequireSeller загружает пользователя, которому разрешено владеть прайс-листами.
func RequireSeller(ctx context.Context, repos domain.Repositories, id int64) (domain.User, error) {
	user, err := RequireUser(ctx, repos, id)
	if err != nil {
		return user, err
	}
	if !user.Role.CanSell() {
		return user, domain.InvalidStatef("user %d with role %s cannot own price lists", id, user.Role)
	}
	return user, nil
}

// RequireProduct загружает товар или возвращает NotFound.
func RequireProduct(ctx context.Context, repos domain.Repositories, id int64) (domain.Product, error) {
	product, err := repos.Products().GetByID(ctx, id)
	return product, lookupError(err, "product %d not found", id)
}

// RequireCategory загружает категорию или возвращает NotFound.
func RequireCategory(ctx context.Context, repos domain.Repositories, id int64) (domain.Category, error) {
	category, err := repos.Categories().GetByID(ctx, id)
	return category, lookupError(err, "category %d not found", id)
}

// RequireOrder загружает заказ или возвращает NotFound.
func RequireOrder(ctx context.Context, repos domain.Repositories, id int64) (domain.Order, error) {
	order, err := repos.Orders().GetByID(ctx, id)
	return order, lookupError(err, "order %d not found", id)
}

// RequirePriceList загружает прайс-лист или возвращает NotFound.
func RequirePriceList(ctx context.Context, repos domain.Repositories, id int64) (domain.PriceList, error) {
	list, err := repos.PriceLists().GetByID(ctx, id)
	return list, lookupError(err, "price list %d not found", id)
}

// RequireMembership загружает товар прайс-листа или возвращает NotFound.
func RequireMembership(ctx context.Context, repos domain.Repositories, listID, productID int64) (domain.PriceListProduct, error) {
	key := domain.MembershipKey{PriceListID: listID, ProductID: productID}
	member, err := repos.PriceListProducts().GetByID(ctx, key)
	return member, lookupError(err, "product %d is not in price list %d", productID, listID)
}

// RequireGrant загружает допуск покупателя к прайс-листу или возвращает NotFound.
func RequireGrant(ctx context.Context, repos domain.Repositories, listID, buyerID int64) (domain.PriceListBuyer, error) {
	key := domain.BuyerKey{PriceListID: listID, BuyerID: buyerID}
	grant, err := repos.PriceListBuyers().GetByID(ctx, key)
	return grant, lookupError(err, "buyer %d has no access to price list %d", buyerID, listID)
}

// RequireActive запрещает изменение неактивного прайс-листа.
func RequireActive(list domain.PriceList) error {
	if !list.IsActive {
		return domain.InvalidStatef("price list %d is inactive", list.ID)
	}
	return nil
}

// RequireMutableOrder запрещает изменение отгруженного или доставленного заказа.
func RequireMutableOrder(order domain.Order) error {
	if order.Status.Locked() {
		return domain.InvalidStatef("order %d is %s and cannot be modified", order.ID, order.Status)
	}
	return nil
}

// RequirePendingOrder разрешает добавление позиций только в ожидающий заказ.
func RequirePendingOrder(order domain.Order) error {
	if order.Status != domain.OrderStatusPending {
		return domain.InvalidStatef("items can be added only to pending orders, order %d is %s", order.ID, order.Status)
	}
	return nil
}

// RequireVersion сверяет ожидаемую версию; 0 означает «не проверять».
func RequireVersion(entity string, id, actual, expected int64) error {
	if expected != 0 && expected != actual {
		return domain.Conflictf("%s %d was modified concurrently: version %d, expected %d", entity, id, actual, expected)
	}
	return nil
}

// Проверки уникальности.

// EnsureEmailFree возвращает Conflict, если адрес занят другим пользователем.
func EnsureEmailFree(ctx context.Context, repos domain.Repositories, email string, excludeID int64) error {
	taken, err := repos.Users().Exists(ctx, domain.UserFilter{Email: email, ExcludeID: excludeID})
	return uniqueError(taken, err, "user with email %q already exists", email)
}

// EnsureCategoryNameFree возвращает Conflict на повтор имени категории.
func EnsureCategoryNameFree(ctx context.Context, repos domain.Repositories, name string, excludeID int64) error {
	taken, err := repos.Categories().Exists(ctx, domain.CategoryFilter{Name: name, ExcludeID: excludeID})
	return uniqueError(taken, err, "category %q already exists", name)
}

// EnsureSKUFree возвращает Conflict на повтор артикула.
func EnsureSKUFree(ctx context.Context, repos domain.Repositories, sku string, excludeID int64) error {
	taken, err := repos.Products().Exists(ctx, domain.ProductFilter{SKU: sku, ExcludeID: excludeID})
	return uniqueError(taken, err, "product with SKU %q already exists", sku)
}

// EnsurePriceListNameFree возвращает Conflict на повтор имени у одного продавца.
func EnsurePriceListNameFree(ctx context.Context, repos domain.Repositories, sellerID int64, name string, excludeID int64) error {
	taken, err := repos.PriceLists().Exists(ctx, domain.PriceListFilter{SellerID: sellerID, Name: name, ExcludeID: excludeID})
	return uniqueError(taken, err, "seller %d already has a price list named %q", sellerID, name)
}

// EnsureNotMember возвращает Conflict, если товар уже входит в прайс-лист.
func EnsureNotMember(ctx context.Context, repos domain.Repositories, listID, productID int64) error {
	taken, err := repos.PriceListProducts().Exists(ctx, domain.PriceListProductFilter{PriceListID: listID, ProductID: productID})
	return uniqueError(taken, err, "product %d is already in price list %d", productID, listID)
}

// EnsureNotGranted возвращает Conflict, если покупатель уже допущен к прайс-листу.
func EnsureNotGranted(ctx context.Context, repos domain.Repositories, listID, buyerID int64) error {
	taken, err := repos.PriceListBuyers().Exists(ctx, domain.PriceListBuyerFilter{PriceListID: listID, BuyerID: buyerID})
	return uniqueError(taken, err, "buyer %d already has access to price list %d", buyerID, listID)
}

// EnsureNotOnOrder возвращает Conflict, если товар уже есть в заказе.
func EnsureNotOnOrder(ctx context.Context, repos domain.Repositories, orderID, productID int64) error {
	taken, err := repos.OrderItems().Exists(ctx, domain.OrderItemFilter{OrderID: orderID, ProductID: productID})
	return uniqueError(taken, err, "product %d is already on order %d", productID, orderID)
}

// EnsureNoActiveMembership возвращает Conflict, пока в прайс-листе есть активные товары.
func EnsureNoActiveMembership(ctx context.Context, repos domain.Repositories, listID int64) error {
	active := true
	n, err := repos.PriceListProducts().Count(ctx, domain.PriceListProductFilter{PriceListID: listID, Active: &active})
	if err != nil {
		return domain.Internal(err, "count active price list products")
	}
	if n > 0 {
		return domain.Conflictf("price list %d still has %d active products", listID, n)
	}
	return nil
}

func lookupError(err error, format string, args ...any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrRecordNotFound):
		return domain.NotFoundf(format, args...)
	default:
		return domain.Internal(err, "load entity")
	}
}

func uniqueError(taken bool, err error, format string, args ...any) error {
	if err != nil {
		return domain.Internal(err, "check uniqueness")
	}
	if taken {
		return domain.Conflictf(format, args...)
	}
	return nil
}
