package postgres

import (
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
)

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

func bindRepositories(q querier) repositories {
	return repositories{
		users:             &repository[int64, domain.User, domain.UserFilter]{q: q, def: usersTable},
		categories:        &repository[int64, domain.Category, domain.CategoryFilter]{q: q, def: categoriesTable},
		products:          &repository[int64, domain.Product, domain.ProductFilter]{q: q, def: productsTable},
		orders:            &repository[int64, domain.Order, domain.OrderFilter]{q: q, def: ordersTable},
		orderItems:        &repository[int64, domain.OrderItem, domain.OrderItemFilter]{q: q, def: orderItemsTable},
		priceLists:        &repository[int64, domain.PriceList, domain.PriceListFilter]{q: q, def: priceListsTable},
		priceListProducts: &repository[domain.MembershipKey, domain.PriceListProduct, domain.PriceListProductFilter]{q: q, def: priceListProductsTable},
		priceListBuyers:   &repository[domain.BuyerKey, domain.PriceListBuyer, domain.PriceListBuyerFilter]{q: q, def: priceListBuyersTable},
	}
}

func (r repositories) Users() domain.UserRepository { return r.users }

func (r repositories) Categories() domain.CategoryRepository { return r.categories }

func (r repositories) Products() domain.ProductRepository { return r.products }

func (r repositories) Orders() domain.OrderRepository { return r.orders }

func (r repositories) OrderItems() domain.OrderItemRepository { return r.orderItems }

func (r repositories) PriceLists() domain.PriceListRepository { return r.priceLists }

func (r repositories) PriceListProducts() domain.PriceListProductRepository {
	return r.priceListProducts
}

func (r repositories) PriceListBuyers() domain.PriceListBuyerRepository {
	return r.priceListBuyers
}

func idWhere(id int64, w *where) { w.eq("id", id) }

var usersTable = &tableDef[int64, domain.User, domain.UserFilter]{
	name: "users",
	columns: `id, name, role, type, email, phone, unp, okpo, legal_address, actual_address,
		bank_name, bank_account, password_hash, created_at, modified_at`,
	orderBy:  "id",
	serial:   true,
	keyOf:    func(u *domain.User) int64 { return u.ID },
	keyWhere: idWhere,
	scan: func(row pgx.Row) (domain.User, error) {
		var (
			u          domain.User
			role, kind string
		)
		err := row.Scan(&u.ID, &u.Name, &role, &kind, &u.Email, &u.Phone, &u.UNP, &u.OKPO,
			&u.LegalAddress, &u.ActualAddress, &u.BankName, &u.BankAccount, &u.PasswordHash,
			&u.CreatedAt, &u.ModifiedAt)
		u.Role, u.Type = domain.UserRole(role), domain.UserType(kind)
		return u, err
	},
	insert: func(u *domain.User) ([]string, []any) {
		return []string{"name", "role", "type", "email", "phone", "unp", "okpo", "legal_address",
				"actual_address", "bank_name", "bank_account", "password_hash"},
			[]any{u.Name, string(u.Role), string(u.Type), u.Email, u.Phone, u.UNP, u.OKPO,
				u.LegalAddress, u.ActualAddress, u.BankName, u.BankAccount, u.PasswordHash}
	},
	update: func(u *domain.User) ([]string, []any) {
		return []string{"name", "role", "type", "email", "phone", "unp", "okpo", "legal_address",
				"actual_address", "bank_name", "bank_account", "password_hash"},
			[]any{u.Name, string(u.Role), string(u.Type), u.Email, u.Phone, u.UNP, u.OKPO,
				u.LegalAddress, u.ActualAddress, u.BankName, u.BankAccount, u.PasswordHash}
	},
	filter: func(f domain.UserFilter, w *where) {
		if f.Email != "" {
			w.add("LOWER(email) = LOWER(?)", f.Email)
		}
		if f.Role != "" {
			w.eq("role", string(f.Role))
		}
		if f.Type != "" {
			w.eq("type", string(f.Type))
		}
		if f.Search != "" {
			w.search(f.Search, "name", "email")
		}
		if f.ExcludeID != 0 {
			w.add("id <> ?", f.ExcludeID)
		}
	},
	page: func(f domain.UserFilter) domain.Page { return f.Page },
	setCreated: func(u *domain.User, id int64, createdAt time.Time) {
		u.ID, u.CreatedAt, u.ModifiedAt = id, createdAt, nil
	},
	setModified: func(u *domain.User, at time.Time) { u.ModifiedAt = &at },
}

var categoriesTable = &tableDef[int64, domain.Category, domain.CategoryFilter]{
	name:     "categories",
	columns:  "id, name, description, image_url, created_at, modified_at",
	orderBy:  "id",
	serial:   true,
	keyOf:    func(c *domain.Category) int64 { return c.ID },
	keyWhere: idWhere,
	scan: func(row pgx.Row) (domain.Category, error) {
		var c domain.Category
		err := row.Scan(&c.ID, &c.Name, &c.Description, &c.ImageURL, &c.CreatedAt, &c.ModifiedAt)
		return c, err
	},
	insert: func(c *domain.Category) ([]string, []any) {
		return []string{"name", "description", "image_url"}, []any{c.Name, c.Description, c.ImageURL}
	},
	update: func(c *domain.Category) ([]string, []any) {
		return []string{"name", "description", "image_url"}, []any{c.Name, c.Description, c.ImageURL}
	},
	filter: func(f domain.CategoryFilter, w *where) {
		if f.Name != "" {
			w.add("LOWER(name) = LOWER(?)", f.Name)
		}
		if f.ExcludeID != 0 {
			w.add("id <> ?", f.ExcludeID)
		}
	},
	page: func(f domain.CategoryFilter) domain.Page { return f.Page },
	setCreated: func(c *domain.Category, id int64, createdAt time.Time) {
		c.ID, c.CreatedAt, c.ModifiedAt = id, createdAt, nil
	},
	setModified: func(c *domain.Category, at time.Time) { c.ModifiedAt = &at },
}

var productsTable = &tableDef[int64, domain.Product, domain.ProductFilter]{
	name: "products",
	columns: `id, name, description, sku, stock_quantity, price, category_id, manufacturer, unit,
		image_url, image_gallery, created_at, modified_at`,
	orderBy:  "id",
	serial:   true,
	keyOf:    func(p *domain.Product) int64 { return p.ID },
	keyWhere: idWhere,
	scan: func(row pgx.Row) (domain.Product, error) {
		var p domain.Product
		err := row.Scan(&p.ID, &p.Name, &p.Description, &p.SKU, &p.StockQuantity, &p.Price,
			&p.CategoryID, &p.Manufacturer, &p.Unit, &p.ImageURL, &p.ImageGallery,
			&p.CreatedAt, &p.ModifiedAt)
		return p, err
	},
	insert: func(p *domain.Product) ([]string, []any) {
		return productColumns(), productValues(p)
	},
	update: func(p *domain.Product) ([]string, []any) {
		return productColumns(), productValues(p)
	},
	filter: func(f domain.ProductFilter, w *where) {
		if f.SKU != "" {
			w.add("LOWER(sku) = LOWER(?)", f.SKU)
		}
		if f.CategoryID != 0 {
			w.eq("category_id", f.CategoryID)
		}
		if f.ExcludeID != 0 {
			w.add("id <> ?", f.ExcludeID)
		}
		if f.Search != "" {
			w.search(f.Search, "name", "description", "sku")
		}
	},
	page: func(f domain.ProductFilter) domain.Page { return f.Page },
	setCreated: func(p *domain.Product, id int64, createdAt time.Time) {
		p.ID, p.CreatedAt, p.ModifiedAt = id, createdAt, nil
	},
	setModified: func(p *domain.Product, at time.Time) { p.ModifiedAt = &at },
}

func productColumns() []string {
	return []string{"name", "description", "sku", "stock_quantity", "price", "category_id",
		"manufacturer", "unit", "image_url", "image_gallery"}
}

func productValues(p *domain.Product) []any {
	gallery := p.ImageGallery
	if gallery == nil {
		gallery = []string{}
	}
	return []any{p.Name, p.Description, p.SKU, p.StockQuantity, p.Price, p.CategoryID,
		p.Manufacturer, p.Unit, p.ImageURL, gallery}
}

var ordersTable = &tableDef[int64, domain.Order, domain.OrderFilter]{
	name:     "orders",
	columns:  "id, customer_id, order_date, status, total_amount, notes, version, created_at, modified_at",
	orderBy:  "id",
	serial:   true,
	keyOf:    func(o *domain.Order) int64 { return o.ID },
	keyWhere: idWhere,
	scan: func(row pgx.Row) (domain.Order, error) {
		var (
			o      domain.Order
			status string
		)
		err := row.Scan(&o.ID, &o.CustomerID, &o.OrderDate, &status, &o.TotalAmount, &o.Notes,
			&o.Version, &o.CreatedAt, &o.ModifiedAt)
		o.Status = domain.OrderStatus(status)
		return o, err
	},
	insert: func(o *domain.Order) ([]string, []any) {
		if o.OrderDate.IsZero() {
			o.OrderDate = time.Now().UTC()
		}
		return []string{"customer_id", "order_date", "status", "total_amount", "notes"},
			[]any{o.CustomerID, o.OrderDate, string(o.Status), o.TotalAmount, o.Notes}
	},
	update: func(o *domain.Order) ([]string, []any) {
		return []string{"customer_id", "order_date", "status", "total_amount", "notes"},
			[]any{o.CustomerID, o.OrderDate, string(o.Status), o.TotalAmount, o.Notes}
	},
	version: func(o *domain.Order) *int64 { return &o.Version },
	filter: func(f domain.OrderFilter, w *where) {
		if f.CustomerID != 0 {
			w.eq("customer_id", f.CustomerID)
		}
		if f.Status != "" {
			w.eq("status", string(f.Status))
		}
		if f.From != nil {
			w.add("order_date >= ?", *f.From)
		}
		if f.To != nil {
			w.add("order_date <= ?", *f.To)
		}
	},
	page: func(f domain.OrderFilter) domain.Page { return f.Page },
	setCreated: func(o *domain.Order, id int64, createdAt time.Time) {
		o.ID, o.CreatedAt, o.ModifiedAt = id, createdAt, nil
	},
	setModified: func(o *domain.Order, at time.Time) { o.ModifiedAt = &at },
}

var orderItemsTable = &tableDef[int64, domain.OrderItem, domain.OrderItemFilter]{
	name:     "order_items",
	columns:  "id, order_id, product_id, quantity, unit_price, total_price, created_at, modified_at",
	orderBy:  "id",
	serial:   true,
	keyOf:    func(i *domain.OrderItem) int64 { return i.ID },
	keyWhere: idWhere,
	scan: func(row pgx.Row) (domain.OrderItem, error) {
		var i domain.OrderItem
		err := row.Scan(&i.ID, &i.OrderID, &i.ProductID, &i.Quantity, &i.UnitPrice, &i.TotalPrice,
			&i.CreatedAt, &i.ModifiedAt)
		return i, err
	},
	insert: func(i *domain.OrderItem) ([]string, []any) {
		return []string{"order_id", "product_id", "quantity", "unit_price", "total_price"},
			[]any{i.OrderID, i.ProductID, i.Quantity, i.UnitPrice, i.TotalPrice}
	},
	update: func(i *domain.OrderItem) ([]string, []any) {
		return []string{"quantity", "unit_price", "total_price"},
			[]any{i.Quantity, i.UnitPrice, i.TotalPrice}
	},
	filter: func(f domain.OrderItemFilter, w *where) {
		if f.OrderID != 0 {
			w.eq("order_id", f.OrderID)
		}
		if f.ProductID != 0 {
			w.eq("product_id", f.ProductID)
		}
	},
	setCreated: func(i *domain.OrderItem, id int64, createdAt time.Time) {
		i.ID, i.CreatedAt, i.ModifiedAt = id, createdAt, nil
	},
	setModified: func(i *domain.OrderItem, at time.Time) { i.ModifiedAt = &at },
}

var priceListsTable = &tableDef[int64, domain.PriceList, domain.PriceListFilter]{
	name:     "price_lists",
	columns:  "id, name, description, currency, seller_id, is_active, version, created_at, modified_at",
	orderBy:  "id",
	serial:   true,
	keyOf:    func(p *domain.PriceList) int64 { return p.ID },
	keyWhere: idWhere,
	scan: func(row pgx.Row) (domain.PriceList, error) {
		var p domain.PriceList
		err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Currency, &p.SellerID, &p.IsActive,
			&p.Version, &p.CreatedAt, &p.ModifiedAt)
		return p, err
	},
	insert: func(p *domain.PriceList) ([]string, []any) {
		return []string{"name", "description", "currency", "seller_id", "is_active"},
			[]any{p.Name, p.Description, p.Currency, p.SellerID, p.IsActive}
	},
	// seller_id не обновляется: владелец прайс-листа неизменен.
	update: func(p *domain.PriceList) ([]string, []any) {
		return []string{"name", "description", "currency", "is_active"},
			[]any{p.Name, p.Description, p.Currency, p.IsActive}
	},
	version: func(p *domain.PriceList) *int64 { return &p.Version },
	filter: func(f domain.PriceListFilter, w *where) {
		if f.SellerID != 0 {
			w.eq("seller_id", f.SellerID)
		}
		if f.Name != "" {
			w.add("LOWER(name) = LOWER(?)", f.Name)
		}
		if f.ExcludeID != 0 {
			w.add("id <> ?", f.ExcludeID)
		}
		if f.ActiveOnly {
			w.raw("is_active")
		}
		if f.Active != nil {
			w.eq("is_active", *f.Active)
		}
		if f.Currency != "" {
			w.add("UPPER(currency) = UPPER(?)", f.Currency)
		}
		if f.Search != "" {
			w.search(f.Search, "name", "description")
		}
		if f.IDs != nil {
			w.add("id = ANY(?)", f.IDs)
		}
	},
	page: func(f domain.PriceListFilter) domain.Page { return f.Page },
	setCreated: func(p *domain.PriceList, id int64, createdAt time.Time) {
		p.ID, p.CreatedAt, p.ModifiedAt = id, createdAt, nil
	},
	setModified: func(p *domain.PriceList, at time.Time) { p.ModifiedAt = &at },
}

var priceListProductsTable = &tableDef[domain.MembershipKey, domain.PriceListProduct, domain.PriceListProductFilter]{
	name:    "price_list_products",
	columns: "price_list_id, product_id, special_price, is_active, created_at, modified_at",
	orderBy: "price_list_id, product_id",
	keyOf:   func(p *domain.PriceListProduct) domain.MembershipKey { return p.Key() },
	keyWhere: func(k domain.MembershipKey, w *where) {
		w.eq("price_list_id", k.PriceListID)
		w.eq("product_id", k.ProductID)
	},
	scan: func(row pgx.Row) (domain.PriceListProduct, error) {
		var p domain.PriceListProduct
		err := row.Scan(&p.PriceListID, &p.ProductID, &p.SpecialPrice, &p.IsActive, &p.CreatedAt, &p.ModifiedAt)
		return p, err
	},
	insert: func(p *domain.PriceListProduct) ([]string, []any) {
		return []string{"price_list_id", "product_id", "special_price", "is_active"},
			[]any{p.PriceListID, p.ProductID, p.SpecialPrice, p.IsActive}
	},
	update: func(p *domain.PriceListProduct) ([]string, []any) {
		return []string{"special_price", "is_active"}, []any{p.SpecialPrice, p.IsActive}
	},
	filter: func(f domain.PriceListProductFilter, w *where) {
		if f.PriceListID != 0 {
			w.eq("price_list_id", f.PriceListID)
		}
		if f.ProductID != 0 {
			w.eq("product_id", f.ProductID)
		}
		if f.Active != nil {
			w.eq("is_active", *f.Active)
		}
	},
	page: func(f domain.PriceListProductFilter) domain.Page { return f.Page },
	setCreated: func(p *domain.PriceListProduct, _ int64, createdAt time.Time) {
		p.CreatedAt, p.ModifiedAt = createdAt, nil
	},
	setModified: func(p *domain.PriceListProduct, at time.Time) { p.ModifiedAt = &at },
}

var priceListBuyersTable = &tableDef[domain.BuyerKey, domain.PriceListBuyer, domain.PriceListBuyerFilter]{
	name:    "price_list_buyers",
	columns: "price_list_id, buyer_id, created_at, modified_at",
	orderBy: "price_list_id, buyer_id",
	keyOf:   func(b *domain.PriceListBuyer) domain.BuyerKey { return b.Key() },
	keyWhere: func(k domain.BuyerKey, w *where) {
		w.eq("price_list_id", k.PriceListID)
		w.eq("buyer_id", k.BuyerID)
	},
	scan: func(row pgx.Row) (domain.PriceListBuyer, error) {
		var b domain.PriceListBuyer
		err := row.Scan(&b.PriceListID, &b.BuyerID, &b.CreatedAt, &b.ModifiedAt)
		return b, err
	},
	insert: func(b *domain.PriceListBuyer) ([]string, []any) {
		return []string{"price_list_id", "buyer_id"}, []any{b.PriceListID, b.BuyerID}
	},
	update: func(b *domain.PriceListBuyer) ([]string, []any) {
		return nil, nil
	},
	filter: func(f domain.PriceListBuyerFilter, w *where) {
		if f.PriceListID != 0 {
			w.eq("price_list_id", f.PriceListID)
		}
		if f.BuyerID != 0 {
			w.eq("buyer_id", f.BuyerID)
		}
	},
	setCreated: func(b *domain.PriceListBuyer, _ int64, createdAt time.Time) {
		b.CreatedAt, b.ModifiedAt = createdAt, nil
	},
	setModified: func(b *domain.PriceListBuyer, at time.Time) { b.ModifiedAt = &at },
}
