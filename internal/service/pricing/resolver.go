// Package pricing определяет цену товара для конкретного покупателя.
package pricing

import (
	"context"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
	"github.com/vladislavdragonenkov/b2b-trading/internal/metrics"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/command"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/validation"
)

// Source — откуда взята цена.
type Source string

const (
	SourceCatalog   Source = "catalog"
	SourcePriceList Source = "price_list"
)

// Resolution — итог определения цены. PriceListID и Currency заполнены
// только для цены из прайс-листа.
type Resolution struct {
	ProductID   int64
	BuyerID     int64
	Price       decimal.Decimal
	Source      Source
	PriceListID int64
	Currency    string
}

// Resolver выбирает действующую цену. Работает с любым набором репозиториев,
// поэтому вызывается и из транзакции команды, и вне её.
type Resolver struct {
	logger  *log.Entry
	metrics *metrics.CommandMetrics
}

// NewResolver создаёт Resolver. Оба аргумента могут быть nil.
func NewResolver(logger *log.Entry, m *metrics.CommandMetrics) *Resolver {
	if logger == nil {
		logger = log.New().WithField("component", "pricing")
	}
	return &Resolver{logger: logger, metrics: m}
}

// Resolve возвращает специальную цену из видимого покупателю активного
// прайс-листа или каталожную цену товара.
//
// Прайс-лист подходит, если он активен, покупатель входит в список допущенных
// или сам является продавцом, и товар в нём активен. Из нескольких подходящих
// побеждает минимальная цена, при равенстве — меньший ID прайс-листа.
func (r *Resolver) Resolve(ctx context.Context, repos domain.Repositories, buyerID, productID int64) (Resolution, error) {
	if _, err := validation.RequireUser(ctx, repos, buyerID); err != nil {
		return Resolution{}, err
	}
	product, err := validation.RequireProduct(ctx, repos, productID)
	if err != nil {
		return Resolution{}, err
	}

	resolution := Resolution{
		ProductID: productID,
		BuyerID:   buyerID,
		Price:     product.Price,
		Source:    SourceCatalog,
	}

	best, found, err := r.bestOffer(ctx, repos, buyerID, productID)
	if err != nil {
		return Resolution{}, err
	}
	if found {
		resolution.Price = best.price
		resolution.Source = SourcePriceList
		resolution.PriceListID = best.list.ID
		resolution.Currency = best.list.Currency
	}

	r.metrics.RecordPriceResolution(string(resolution.Source))
	r.logger.WithFields(log.Fields{
		"buyer_id":      buyerID,
		"product_id":    productID,
		"source":        resolution.Source,
		"price_list_id": resolution.PriceListID,
	}).Debug("price resolved")

	return resolution, nil
}

type offer struct {
	list  domain.PriceList
	price decimal.Decimal
}

func (o offer) beats(other offer) bool {
	if cmp := o.price.Cmp(other.price); cmp != 0 {
		return cmp < 0
	}
	return o.list.ID < other.list.ID
}

func (r *Resolver) bestOffer(ctx context.Context, repos domain.Repositories, buyerID, productID int64) (offer, bool, error) {
	active := true
	members, err := repos.PriceListProducts().Find(ctx, domain.PriceListProductFilter{ProductID: productID, Active: &active})
	if err != nil {
		return offer{}, false, domain.Internal(err, "load price list products")
	}
	if len(members) == 0 {
		return offer{}, false, nil
	}

	prices := make(map[int64]decimal.Decimal, len(members))
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		prices[m.PriceListID] = m.SpecialPrice
		ids = append(ids, m.PriceListID)
	}

	lists, err := repos.PriceLists().Find(ctx, domain.PriceListFilter{IDs: ids, ActiveOnly: true})
	if err != nil {
		return offer{}, false, domain.Internal(err, "load price lists")
	}

	grants, err := repos.PriceListBuyers().Find(ctx, domain.PriceListBuyerFilter{BuyerID: buyerID})
	if err != nil {
		return offer{}, false, domain.Internal(err, "load price list grants")
	}
	granted := make(map[int64]struct{}, len(grants))
	for _, g := range grants {
		granted[g.PriceListID] = struct{}{}
	}

	var (
		best  offer
		found bool
	)
	for _, list := range lists {
		if _, ok := granted[list.ID]; !ok && list.SellerID != buyerID {
			continue
		}
		candidate := offer{list: list, price: prices[list.ID]}
		if !found || candidate.beats(best) {
			best, found = candidate, true
		}
	}
	return best, found, nil
}

// Service даёт внешнему слою запрос ResolvePrice.
type Service struct {
	runner   *command.Runner
	resolver *Resolver
}

// NewService создаёт сервис определения цены.
func NewService(runner *command.Runner, resolver *Resolver) *Service {
	return &Service{runner: runner, resolver: resolver}
}

// ResolvePrice определяет цену товара productID для покупателя buyerID.
func (s *Service) ResolvePrice(ctx context.Context, buyerID, productID int64) (Resolution, error) {
	return command.Query(ctx, s.runner, "resolve_price",
		func() error {
			var p validation.Problems
			p.PositiveID("buyer_id", buyerID)
			p.PositiveID("product_id", productID)
			return p.Err()
		},
		func(ctx context.Context, repos domain.Repositories) (Resolution, error) {
			return s.resolver.Resolve(ctx, repos, buyerID, productID)
		})
}
