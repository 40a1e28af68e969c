package pricing

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
	"github.com/vladislavdragonenkov/b2b-trading/internal/metrics"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/command"
	"github.com/vladislavdragonenkov/b2b-trading/internal/storage/memory"
)

type ResolverSuite struct {
	suite.Suite

	ctx     context.Context
	store   *memory.Store
	reg     *prometheus.Registry
	service *Service

	seller  domain.User
	buyer   domain.User
	product domain.Product
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.reg = prometheus.NewRegistry()
	m := metrics.NewCommandMetricsWithRegisterer(s.reg)

	logger, _ := logtest.NewNullLogger()
	entry := logger.WithField("component", "pricing-test")
	s.service = NewService(command.NewRunner(s.store, entry, m), NewResolver(entry, m))

	s.seller = s.addUser("seller@example.com", domain.UserRoleSeller)
	s.buyer = s.addUser("buyer@example.com", domain.UserRoleBuyer)
	s.product = domain.Product{Name: "Widget", SKU: "ABC", Price: decimal.RequireFromString("10.00")}
	s.Require().NoError(s.store.Products().Add(s.ctx, &s.product))
}

func (s *ResolverSuite) addUser(email string, role domain.UserRole) domain.User {
	user := domain.User{Name: email, Role: role, Type: domain.UserType(role), Email: email}
	s.Require().NoError(s.store.Users().Add(s.ctx, &user))
	return user
}

func (s *ResolverSuite) addList(seller domain.User, name, price string) domain.PriceList {
	list := domain.PriceList{Name: name, Currency: "USD", SellerID: seller.ID, IsActive: true}
	s.Require().NoError(s.store.PriceLists().Add(s.ctx, &list))
	member := domain.PriceListProduct{
		PriceListID:  list.ID,
		ProductID:    s.product.ID,
		SpecialPrice: decimal.RequireFromString(price),
		IsActive:     true,
	}
	s.Require().NoError(s.store.PriceListProducts().Add(s.ctx, &member))
	return list
}

func (s *ResolverSuite) grant(list domain.PriceList, buyer domain.User) {
	s.Require().NoError(s.store.PriceListBuyers().Add(s.ctx, &domain.PriceListBuyer{PriceListID: list.ID, BuyerID: buyer.ID}))
}

func (s *ResolverSuite) resolve(buyer domain.User) Resolution {
	res, err := s.service.ResolvePrice(s.ctx, buyer.ID, s.product.ID)
	s.Require().NoError(err)
	return res
}

func (s *ResolverSuite) TestCatalogPriceUntilGranted() {
	list := s.addList(s.seller, "Wholesale", "8.00")

	res := s.resolve(s.buyer)
	s.Equal(SourceCatalog, res.Source)
	s.True(res.Price.Equal(decimal.RequireFromString("10.00")), res.Price.String())
	s.Zero(res.PriceListID)

	s.grant(list, s.buyer)

	res = s.resolve(s.buyer)
	s.Equal(SourcePriceList, res.Source)
	s.True(res.Price.Equal(decimal.RequireFromString("8.00")), res.Price.String())
	s.Equal(list.ID, res.PriceListID)
	s.Equal("USD", res.Currency)

	s.Equal(float64(1), s.resolutions(SourceCatalog))
	s.Equal(float64(1), s.resolutions(SourcePriceList))
}

func (s *ResolverSuite) resolutions(source Source) float64 {
	families, err := s.reg.Gather()
	s.Require().NoError(err)
	for _, family := range families {
		if family.GetName() != "trading_price_resolutions_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "source" && label.GetValue() == string(source) {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func (s *ResolverSuite) TestSellerSeesOwnList() {
	list := s.addList(s.seller, "Own", "7.50")

	res := s.resolve(s.seller)
	s.Equal(SourcePriceList, res.Source)
	s.Equal(list.ID, res.PriceListID)
}

func (s *ResolverSuite) TestInactiveListOrMembershipIgnored() {
	list := s.addList(s.seller, "Wholesale", "8.00")
	s.grant(list, s.buyer)

	member, err := s.store.PriceListProducts().GetByID(s.ctx, domain.MembershipKey{PriceListID: list.ID, ProductID: s.product.ID})
	s.Require().NoError(err)
	member.IsActive = false
	s.Require().NoError(s.store.PriceListProducts().Update(s.ctx, &member))
	s.Equal(SourceCatalog, s.resolve(s.buyer).Source)

	member.IsActive = true
	s.Require().NoError(s.store.PriceListProducts().Update(s.ctx, &member))
	list.IsActive = false
	s.Require().NoError(s.store.PriceLists().Update(s.ctx, &list))
	s.Equal(SourceCatalog, s.resolve(s.buyer).Source)
}

func (s *ResolverSuite) TestTieBreakLowestPriceThenLowestID() {
	other := s.addUser("other-seller@example.com", domain.UserRoleSeller)

	first := s.addList(s.seller, "A", "9.00")
	second := s.addList(other, "B", "7.00")
	third := s.addList(s.seller, "C", "7.00")
	for _, list := range []domain.PriceList{first, second, third} {
		s.grant(list, s.buyer)
	}

	for i := 0; i < 3; i++ {
		res := s.resolve(s.buyer)
		s.Equal(second.ID, res.PriceListID)
		s.True(res.Price.Equal(decimal.RequireFromString("7.00")))
	}
}

func (s *ResolverSuite) TestUnknownBuyerOrProduct() {
	_, err := s.service.ResolvePrice(s.ctx, 999, s.product.ID)
	s.Equal(domain.KindNotFound, domain.KindOf(err))

	_, err = s.service.ResolvePrice(s.ctx, s.buyer.ID, 999)
	s.Equal(domain.KindNotFound, domain.KindOf(err))

	_, err = s.service.ResolvePrice(s.ctx, 0, -1)
	s.Equal(domain.KindValidationFailed, domain.KindOf(err))
}

func (s *ResolverSuite) TestResolveInsideTransactionSeesUncommittedGrant() {
	list := s.addList(s.seller, "Wholesale", "8.00")
	resolver := NewResolver(log.New().WithField("component", "pricing"), nil)

	uow, err := s.store.Begin(s.ctx)
	s.Require().NoError(err)
	defer func() { _ = uow.Rollback(s.ctx) }()

	s.Require().NoError(uow.PriceListBuyers().Add(s.ctx, &domain.PriceListBuyer{PriceListID: list.ID, BuyerID: s.buyer.ID}))
	res, err := resolver.Resolve(s.ctx, uow, s.buyer.ID, s.product.ID)
	s.Require().NoError(err)
	s.Equal(SourcePriceList, res.Source)
}
