package memory

import (
	"strings"
	"time"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
)

// state — полный набор таблиц. Транзакция работает с копией, Commit подменяет указатель.
type state struct {
	users             *table[int64, domain.User]
	categories        *table[int64, domain.Category]
	products          *table[int64, domain.Product]
	orders            *table[int64, domain.Order]
	orderItems        *table[int64, domain.OrderItem]
	priceLists        *table[int64, domain.PriceList]
	priceListProducts *table[domain.MembershipKey, domain.PriceListProduct]
	priceListBuyers   *table[domain.BuyerKey, domain.PriceListBuyer]
}

func newState() *state {
	return &state{
		users:             newTable[int64, domain.User](),
		categories:        newTable[int64, domain.Category](),
		products:          newTable[int64, domain.Product](),
		orders:            newTable[int64, domain.Order](),
		orderItems:        newTable[int64, domain.OrderItem](),
		priceLists:        newTable[int64, domain.PriceList](),
		priceListProducts: newTable[domain.MembershipKey, domain.PriceListProduct](),
		priceListBuyers:   newTable[domain.BuyerKey, domain.PriceListBuyer](),
	}
}

func (s *state) clone() *state {
	return &state{
		users:             s.users.clone(userSchema.copy),
		categories:        s.categories.clone(categorySchema.copy),
		products:          s.products.clone(productSchema.copy),
		orders:            s.orders.clone(orderSchema.copy),
		orderItems:        s.orderItems.clone(orderItemSchema.copy),
		priceLists:        s.priceLists.clone(priceListSchema.copy),
		priceListProducts: s.priceListProducts.clone(priceListProductSchema.copy),
		priceListBuyers:   s.priceListBuyers.clone(priceListBuyerSchema.copy),
	}
}

// repositories реализует domain.Repositories для Store и unitOfWork.
type repositories struct {
	users             *repository[int64, domain.User, domain.UserFilter]
	categories        *repository[int64, domain.Category, domain.CategoryFilter]
	products          *repository[int64, domain.Product, domain.ProductFilter]
	orders            *repository[int64, domain.Order, domain.OrderFilter]
	orderItems        *repository[int64, domain.OrderItem, domain.OrderItemFilter]
	priceLists        *repository[int64, domain.PriceList, domain.PriceListFilter]
	priceListProducts *repository[domain.MembershipKey, domain.PriceListProduct, domain.PriceListProductFilter]
	priceListBuyers   *repository[domain.BuyerKey, domain.PriceListBuyer, domain.PriceListBuyerFilter]
}

func bindRepositories(s *Store, tx *unitOfWork) repositories {
	return repositories{
		users: &repository[int64, domain.User, domain.UserFilter]{
			store: s, tx: tx, schema: userSchema,
			pick: func(st *state) *table[int64, domain.User] { return st.users },
		},
		categories: &repository[int64, domain.Category, domain.CategoryFilter]{
			store: s, tx: tx, schema: categorySchema,
			pick: func(st *state) *table[int64, domain.Category] { return st.categories },
		},
		products: &repository[int64, domain.Product, domain.ProductFilter]{
			store: s, tx: tx, schema: productSchema,
			pick: func(st *state) *table[int64, domain.Product] { return st.products },
		},
		orders: &repository[int64, domain.Order, domain.OrderFilter]{
			store: s, tx: tx, schema: orderSchema,
			pick: func(st *state) *table[int64, domain.Order] { return st.orders },
		},
		orderItems: &repository[int64, domain.OrderItem, domain.OrderItemFilter]{
			store: s, tx: tx, schema: orderItemSchema,
			pick: func(st *state) *table[int64, domain.OrderItem] { return st.orderItems },
		},
		priceLists: &repository[int64, domain.PriceList, domain.PriceListFilter]{
			store: s, tx: tx, schema: priceListSchema,
			pick: func(st *state) *table[int64, domain.PriceList] { return st.priceLists },
		},
		priceListProducts: &repository[domain.MembershipKey, domain.PriceListProduct, domain.PriceListProductFilter]{
			store: s, tx: tx, schema: priceListProductSchema,
			pick: func(st *state) *table[domain.MembershipKey, domain.PriceListProduct] {
				return st.priceListProducts
			},
		},
		priceListBuyers: &repository[domain.BuyerKey, domain.PriceListBuyer, domain.PriceListBuyerFilter]{
			store: s, tx: tx, schema: priceListBuyerSchema,
			pick: func(st *state) *table[domain.BuyerKey, domain.PriceListBuyer] {
				return st.priceListBuyers
			},
		},
	}
}

func (r repositories) Users() domain.UserRepository { return r.users }
func (r repositories) Categories() domain.CategoryRepository { return r.categories }
func (r repositories) Products() domain.ProductRepository { return r.products }
func (r repositories) Orders() domain.OrderRepository { return r.orders }
func (r repositories) OrderItems() domain.OrderItemRepository { return r.orderItems }
func (r repositories) PriceLists() domain.PriceListRepository { return r.priceLists }
func (r repositories) PriceListBuyers() domain.PriceListBuyerRepository {
	return r.priceListBuyers
}
func (r repositories) PriceListProducts() domain.PriceListProductRepository {
	return r.priceListProducts
}

func lessInt64(a, b int64) bool { return a < b }

func modified(now time.Time) *time.Time {
	t := now
	return &t
}

var userSchema = &schema[int64, domain.User, domain.UserFilter]{
	name:     "users",
	key:      func(u domain.User) int64 { return u.ID },
	less:     lessInt64,
	match:    func(f domain.UserFilter, u domain.User) bool { return f.Match(u) },
	window:   func(f domain.UserFilter) domain.Page { return f.Page },
	assignID: func(u *domain.User, id int64) { u.ID = id },
	stamp: func(u *domain.User, now time.Time, created bool) {
		if created {
			u.CreatedAt, u.ModifiedAt = now, nil
			return
		}
		u.ModifiedAt = modified(now)
	},
	duplicate: func(a, b domain.User) bool { return strings.EqualFold(a.Email, b.Email) },
	copy:      identity[domain.User],
}

var categorySchema = &schema[int64, domain.Category, domain.CategoryFilter]{
	name:     "categories",
	key:      func(c domain.Category) int64 { return c.ID },
	less:     lessInt64,
	match:    func(f domain.CategoryFilter, c domain.Category) bool { return f.Match(c) },
	window:   func(f domain.CategoryFilter) domain.Page { return f.Page },
	assignID: func(c *domain.Category, id int64) { c.ID = id },
	stamp: func(c *domain.Category, now time.Time, created bool) {
		if created {
			c.CreatedAt, c.ModifiedAt = now, nil
			return
		}
		c.ModifiedAt = modified(now)
	},
	duplicate: func(a, b domain.Category) bool { return strings.EqualFold(a.Name, b.Name) },
	copy:      identity[domain.Category],
}

var productSchema = &schema[int64, domain.Product, domain.ProductFilter]{
	name:     "products",
	key:      func(p domain.Product) int64 { return p.ID },
	less:     lessInt64,
	match:    func(f domain.ProductFilter, p domain.Product) bool { return f.Match(p) },
	window:   func(f domain.ProductFilter) domain.Page { return f.Page },
	assignID: func(p *domain.Product, id int64) { p.ID = id },
	stamp: func(p *domain.Product, now time.Time, created bool) {
		if created {
			p.CreatedAt, p.ModifiedAt = now, nil
			return
		}
		p.ModifiedAt = modified(now)
	},
	duplicate: func(a, b domain.Product) bool { return strings.EqualFold(a.SKU, b.SKU) },
	copy: func(p domain.Product) domain.Product {
		if p.CategoryID != nil {
			id := *p.CategoryID
			p.CategoryID = &id
		}
		if p.ImageGallery != nil {
			p.ImageGallery = append([]string(nil), p.ImageGallery...)
		}
		return p
	},
}

var orderSchema = &schema[int64, domain.Order, domain.OrderFilter]{
	name:     "orders",
	key:      func(o domain.Order) int64 { return o.ID },
	less:     lessInt64,
	match:    func(f domain.OrderFilter, o domain.Order) bool { return f.Match(o) },
	window:   func(f domain.OrderFilter) domain.Page { return f.Page },
	assignID: func(o *domain.Order, id int64) { o.ID = id },
	stamp: func(o *domain.Order, now time.Time, created bool) {
		if created {
			o.CreatedAt, o.ModifiedAt = now, nil
			if o.OrderDate.IsZero() {
				o.OrderDate = now
			}
			return
		}
		o.ModifiedAt = modified(now)
	},
	version: func(o *domain.Order) *int64 { return &o.Version },
	copy:    identity[domain.Order],
}

var orderItemSchema = &schema[int64, domain.OrderItem, domain.OrderItemFilter]{
	name:     "order_items",
	key:      func(i domain.OrderItem) int64 { return i.ID },
	less:     lessInt64,
	match:    func(f domain.OrderItemFilter, i domain.OrderItem) bool { return f.Match(i) },
	assignID: func(i *domain.OrderItem, id int64) { i.ID = id },
	stamp: func(i *domain.OrderItem, now time.Time, created bool) {
		if created {
			i.CreatedAt, i.ModifiedAt = now, nil
			return
		}
		i.ModifiedAt = modified(now)
	},
	duplicate: func(a, b domain.OrderItem) bool {
		return a.OrderID == b.OrderID && a.ProductID == b.ProductID
	},
	copy: identity[domain.OrderItem],
}

var priceListSchema = &schema[int64, domain.PriceList, domain.PriceListFilter]{
	name:     "price_lists",
	key:      func(p domain.PriceList) int64 { return p.ID },
	less:     lessInt64,
	match:    func(f domain.PriceListFilter, p domain.PriceList) bool { return f.Match(p) },
	window:   func(f domain.PriceListFilter) domain.Page { return f.Page },
	assignID: func(p *domain.PriceList, id int64) { p.ID = id },
	stamp: func(p *domain.PriceList, now time.Time, created bool) {
		if created {
			p.CreatedAt, p.ModifiedAt = now, nil
			return
		}
		p.ModifiedAt = modified(now)
	},
	version: func(p *domain.PriceList) *int64 { return &p.Version },
	duplicate: func(a, b domain.PriceList) bool {
		return a.SellerID == b.SellerID && strings.EqualFold(a.Name, b.Name)
	},
	copy: identity[domain.PriceList],
}

var priceListProductSchema = &schema[domain.MembershipKey, domain.PriceListProduct, domain.PriceListProductFilter]{
	name: "price_list_products",
	key:  func(p domain.PriceListProduct) domain.MembershipKey { return p.Key() },
	less: func(a, b domain.MembershipKey) bool {
		if a.PriceListID != b.PriceListID {
			return a.PriceListID < b.PriceListID
		}
		return a.ProductID < b.ProductID
	},
	match: func(f domain.PriceListProductFilter, p domain.PriceListProduct) bool { return f.Match(p) },
	window: func(f domain.PriceListProductFilter) domain.Page {
		return f.Page
	},
	stamp: func(p *domain.PriceListProduct, now time.Time, created bool) {
		if created {
			p.CreatedAt, p.ModifiedAt = now, nil
			return
		}
		p.ModifiedAt = modified(now)
	},
	copy: identity[domain.PriceListProduct],
}

var priceListBuyerSchema = &schema[domain.BuyerKey, domain.PriceListBuyer, domain.PriceListBuyerFilter]{
	name: "price_list_buyers",
	key:  func(b domain.PriceListBuyer) domain.BuyerKey { return b.Key() },
	less: func(a, b domain.BuyerKey) bool {
		if a.PriceListID != b.PriceListID {
			return a.PriceListID < b.PriceListID
		}
		return a.BuyerID < b.BuyerID
	},
	match: func(f domain.PriceListBuyerFilter, b domain.PriceListBuyer) bool { return f.Match(b) },
	stamp: func(b *domain.PriceListBuyer, now time.Time, created bool) {
		if created {
			b.CreatedAt, b.ModifiedAt = now, nil
			return
		}
		b.ModifiedAt = modified(now)
	},
	copy: identity[domain.PriceListBuyer],
}
