package domain

import "context"

// Repository описывает доступ к сущностям одного типа.
// K — ключ, E — сущность, F — фильтр-предикат.
type Repository[K comparable, E any, F any] interface {
	// GetByID возвращает сущность по ключу или ErrRecordNotFound.
	GetByID(ctx context.Context, id K) (E, error)
	// GetAll возвращает все сущности в порядке ключа.
	GetAll(ctx context.Context) ([]E, error)
	// Find возвращает сущности, удовлетворяющие фильтру, в порядке ключа.
	Find(ctx context.Context, filter F) ([]E, error)
	// Add сохраняет новую сущность, присваивает ей ID, CreatedAt и начальную версию.
	Add(ctx context.Context, entity *E) error
	// Update сохраняет изменения, обновляет ModifiedAt и, для версионируемых
	// сущностей, проверяет и увеличивает Version (ErrVersionConflict при расхождении).
	Update(ctx context.Context, entity *E) error
	// Delete удаляет сущность по ключу или возвращает ErrRecordNotFound.
	Delete(ctx context.Context, id K) error
	// Exists сообщает, есть ли хотя бы одна сущность под фильтром.
	Exists(ctx context.Context, filter F) (bool, error)
	// Count возвращает количество сущностей под фильтром без учёта окна выборки.
	Count(ctx context.Context, filter F) (int, error)
}

type (
	UserRepository             = Repository[int64, User, UserFilter]
	CategoryRepository         = Repository[int64, Category, CategoryFilter]
	ProductRepository          = Repository[int64, Product, ProductFilter]
	OrderRepository            = Repository[int64, Order, OrderFilter]
	OrderItemRepository        = Repository[int64, OrderItem, OrderItemFilter]
	PriceListRepository        = Repository[int64, PriceList, PriceListFilter]
	PriceListProductRepository = Repository[MembershipKey, PriceListProduct, PriceListProductFilter]
	PriceListBuyerRepository   = Repository[BuyerKey, PriceListBuyer, PriceListBuyerFilter]
)

// Repositories — набор репозиториев, привязанных к одному контексту исполнения:
// к хранилищу напрямую или к открытой транзакции.
type Repositories interface {
	Users() UserRepository
	Categories() CategoryRepository
	Products() ProductRepository
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	PriceLists() PriceListRepository
	PriceListProducts() PriceListProductRepository
	PriceListBuyers() PriceListBuyerRepository
}

// UnitOfWork — открытая транзакция. Записи видны другим участникам только после Commit.
// Rollback после Commit ничего не делает.
type UnitOfWork interface {
	Repositories
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store — хранилище данных площадки.
type Store interface {
	Repositories
	// Begin открывает транзакцию.
	Begin(ctx context.Context) (UnitOfWork, error)
}
