// Package pricelists управляет прайс-листами продавцов, их товарами и
// допуском покупателей.
package pricelists

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/command"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/validation"
)

// Manager выполняет команды над прайс-листами.
type Manager struct {
	runner *command.Runner
	logger *log.Entry
}

// NewManager создаёт менеджер прайс-листов.
func NewManager(runner *command.Runner, logger *log.Entry) *Manager {
	if logger == nil {
		logger = log.New().WithField("component", "pricelists")
	}
	return &Manager{runner: runner, logger: logger}
}

// CreatePriceList создаёт активный прайс-лист продавца.
func (m *Manager) CreatePriceList(ctx context.Context, cmd CreatePriceListCommand) (domain.PriceList, error) {
	return command.Execute(ctx, m.runner, "create_price_list", cmd.validate,
		func(ctx context.Context, uow domain.UnitOfWork) (domain.PriceList, error) {
			if _, err := validation.RequireSeller(ctx, uow, cmd.SellerID); err != nil {
				return domain.PriceList{}, err
			}
			if err := validation.EnsurePriceListNameFree(ctx, uow, cmd.SellerID, cmd.Name, 0); err != nil {
				return domain.PriceList{}, err
			}

			list := domain.PriceList{
				Name:        cmd.Name,
				Description: cmd.Description,
				Currency:    cmd.Currency,
				SellerID:    cmd.SellerID,
				IsActive:    true,
			}
			if err := uow.PriceLists().Add(ctx, &list); err != nil {
				return domain.PriceList{}, err
			}

			m.logger.WithFields(log.Fields{
				"price_list_id": list.ID,
				"seller_id":     list.SellerID,
				"currency":      list.Currency,
			}).Info("price list created")
			return list, nil
		})
}

// AddProductToPriceList добавляет товар в активный прайс-лист.
func (m *Manager) AddProductToPriceList(ctx context.Context, cmd AddProductCommand) (domain.PriceListProduct, error) {
	return command.Execute(ctx, m.runner, "add_price_list_product", cmd.validate,
		func(ctx context.Context, uow domain.UnitOfWork) (domain.PriceListProduct, error) {
			list, err := validation.RequirePriceList(ctx, uow, cmd.PriceListID)
			if err != nil {
				return domain.PriceListProduct{}, err
			}
			if _, err := validation.RequireProduct(ctx, uow, cmd.ProductID); err != nil {
				return domain.PriceListProduct{}, err
			}
			if err := validation.RequireActive(list); err != nil {
				return domain.PriceListProduct{}, err
			}
			if err := validation.EnsureNotMember(ctx, uow, list.ID, cmd.ProductID); err != nil {
				return domain.PriceListProduct{}, err
			}
			if err := touchList(ctx, uow, &list); err != nil {
				return domain.PriceListProduct{}, err
			}

			member := domain.PriceListProduct{
				PriceListID:  list.ID,
				ProductID:    cmd.ProductID,
				SpecialPrice: cmd.SpecialPrice,
				IsActive:     true,
			}
			if err := uow.PriceListProducts().Add(ctx, &member); err != nil {
				return domain.PriceListProduct{}, err
			}
			return member, nil
		})
}

// UpdateProductPrice меняет специальную цену и/или активность товара прайс-листа.
func (m *Manager) UpdateProductPrice(ctx context.Context, cmd UpdateProductPriceCommand) (domain.PriceListProduct, error) {
	return command.Execute(ctx, m.runner, "update_price_list_product", cmd.validate,
		func(ctx context.Context, uow domain.UnitOfWork) (domain.PriceListProduct, error) {
			list, err := validation.RequirePriceList(ctx, uow, cmd.PriceListID)
			if err != nil {
				return domain.PriceListProduct{}, err
			}
			member, err := validation.RequireMembership(ctx, uow, list.ID, cmd.ProductID)
			if err != nil {
				return domain.PriceListProduct{}, err
			}
			if err := validation.RequireActive(list); err != nil {
				return domain.PriceListProduct{}, err
			}
			if err := touchList(ctx, uow, &list); err != nil {
				return domain.PriceListProduct{}, err
			}

			if cmd.SpecialPrice != nil {
				member.SpecialPrice = *cmd.SpecialPrice
			}
			if cmd.IsActive != nil {
				member.IsActive = *cmd.IsActive
			}
			if err := uow.PriceListProducts().Update(ctx, &member); err != nil {
				return domain.PriceListProduct{}, err
			}
			return member, nil
		})
}

// RemoveProductFromPriceList удаляет товар из активного прайс-листа.
func (m *Manager) RemoveProductFromPriceList(ctx context.Context, cmd MembershipCommand) error {
	_, err := command.Execute(ctx, m.runner, "remove_price_list_product", cmd.validate,
		func(ctx context.Context, uow domain.UnitOfWork) (struct{}, error) {
			list, err := validation.RequirePriceList(ctx, uow, cmd.PriceListID)
			if err != nil {
				return struct{}{}, err
			}
			member, err := validation.RequireMembership(ctx, uow, list.ID, cmd.ProductID)
			if err != nil {
				return struct{}{}, err
			}
			if err := validation.RequireActive(list); err != nil {
				return struct{}{}, err
			}
			if err := touchList(ctx, uow, &list); err != nil {
				return struct{}{}, err
			}
			return struct{}{}, uow.PriceListProducts().Delete(ctx, member.Key())
		})
	return err
}

// UpdatePriceList меняет реквизиты прайс-листа или деактивирует его.
// Деактивация снимает с продажи и все его товары.
func (m *Manager) UpdatePriceList(ctx context.Context, cmd UpdatePriceListCommand) (domain.PriceList, error) {
	return command.Execute(ctx, m.runner, "update_price_list", cmd.validate,
		func(ctx context.Context, uow domain.UnitOfWork) (domain.PriceList, error) {
			list, err := validation.RequirePriceList(ctx, uow, cmd.ID)
			if err != nil {
				return domain.PriceList{}, err
			}
			if err := validation.RequireActive(list); err != nil {
				return domain.PriceList{}, err
			}
			if err := validation.RequireVersion("price list", list.ID, list.Version, cmd.ExpectedVersion); err != nil {
				return domain.PriceList{}, err
			}

			if strings.TrimSpace(cmd.Name) != "" {
				if err := validation.EnsurePriceListNameFree(ctx, uow, list.SellerID, cmd.Name, list.ID); err != nil {
					return domain.PriceList{}, err
				}
				list.Name = cmd.Name
			}
			if cmd.Description != "" {
				list.Description = cmd.Description
			}
			if cmd.Currency != "" {
				list.Currency = cmd.Currency
			}

			deactivate := cmd.deactivates()
			if deactivate {
				list.IsActive = false
			}
			// Строка прайс-листа обновляется до товаров: порядок блокировок
			// общий для всех команд над составом.
			if err := uow.PriceLists().Update(ctx, &list); err != nil {
				return domain.PriceList{}, err
			}
			if deactivate {
				n, err := deactivateProducts(ctx, uow, list.ID)
				if err != nil {
					return domain.PriceList{}, err
				}
				m.logger.WithFields(log.Fields{
					"price_list_id": list.ID,
					"products":      n,
				}).Info("price list deactivated")
			}
			return list, nil
		})
}

// touchList поднимает версию прайс-листа в транзакции, меняющей его состав.
// Параллельная команда над тем же листом получит конфликт версии, а в
// PostgreSQL будет ждать блокировку строки до завершения первой.
func touchList(ctx context.Context, uow domain.UnitOfWork, list *domain.PriceList) error {
	return uow.PriceLists().Update(ctx, list)
}

func deactivateProducts(ctx context.Context, uow domain.UnitOfWork, listID int64) (int, error) {
	active := true
	members, err := uow.PriceListProducts().Find(ctx, domain.PriceListProductFilter{PriceListID: listID, Active: &active})
	if err != nil {
		return 0, err
	}
	for i := range members {
		members[i].IsActive = false
		if err := uow.PriceListProducts().Update(ctx, &members[i]); err != nil {
			return 0, err
		}
	}
	return len(members), nil
}

// DeletePriceList удаляет прайс-лист без активных товаров вместе с
// неактивными товарами и допусками покупателей.
func (m *Manager) DeletePriceList(ctx context.Context, id int64) error {
	_, err := command.Execute(ctx, m.runner, "delete_price_list",
		func() error {
			var p validation.Problems
			p.PositiveID("id", id)
			return p.Err()
		},
		func(ctx context.Context, uow domain.UnitOfWork) (struct{}, error) {
			list, err := validation.RequirePriceList(ctx, uow, id)
			if err != nil {
				return struct{}{}, err
			}
			if err := validation.EnsureNoActiveMembership(ctx, uow, list.ID); err != nil {
				return struct{}{}, err
			}
			if err := touchList(ctx, uow, &list); err != nil {
				return struct{}{}, err
			}

			members, err := uow.PriceListProducts().Find(ctx, domain.PriceListProductFilter{PriceListID: list.ID})
			if err != nil {
				return struct{}{}, err
			}
			for _, member := range members {
				if err := uow.PriceListProducts().Delete(ctx, member.Key()); err != nil {
					return struct{}{}, err
				}
			}
			grants, err := uow.PriceListBuyers().Find(ctx, domain.PriceListBuyerFilter{PriceListID: list.ID})
			if err != nil {
				return struct{}{}, err
			}
			for _, grant := range grants {
				if err := uow.PriceListBuyers().Delete(ctx, grant.Key()); err != nil {
					return struct{}{}, err
				}
			}
			if err := uow.PriceLists().Delete(ctx, list.ID); err != nil {
				return struct{}{}, err
			}

			m.logger.WithFields(log.Fields{
				"price_list_id": list.ID,
				"products":      len(members),
				"buyers":        len(grants),
			}).Info("price list deleted")
			return struct{}{}, nil
		})
	return err
}

// AddBuyerToPriceList открывает активный прайс-лист покупателю.
func (m *Manager) AddBuyerToPriceList(ctx context.Context, cmd BuyerCommand) error {
	_, err := command.Execute(ctx, m.runner, "add_price_list_buyer", cmd.validate,
		func(ctx context.Context, uow domain.UnitOfWork) (struct{}, error) {
			list, err := validation.RequirePriceList(ctx, uow, cmd.PriceListID)
			if err != nil {
				return struct{}{}, err
			}
			if _, err := validation.RequireUser(ctx, uow, cmd.BuyerID); err != nil {
				return struct{}{}, err
			}
			if err := validation.RequireActive(list); err != nil {
				return struct{}{}, err
			}
			if err := validation.EnsureNotGranted(ctx, uow, list.ID, cmd.BuyerID); err != nil {
				return struct{}{}, err
			}
			if err := touchList(ctx, uow, &list); err != nil {
				return struct{}{}, err
			}
			return struct{}{}, uow.PriceListBuyers().Add(ctx, &domain.PriceListBuyer{PriceListID: list.ID, BuyerID: cmd.BuyerID})
		})
	return err
}

// RemoveBuyerFromPriceList закрывает покупателю доступ к прайс-листу.
func (m *Manager) RemoveBuyerFromPriceList(ctx context.Context, cmd BuyerCommand) error {
	_, err := command.Execute(ctx, m.runner, "remove_price_list_buyer", cmd.validate,
		func(ctx context.Context, uow domain.UnitOfWork) (struct{}, error) {
			if _, err := validation.RequirePriceList(ctx, uow, cmd.PriceListID); err != nil {
				return struct{}{}, err
			}
			grant, err := validation.RequireGrant(ctx, uow, cmd.PriceListID, cmd.BuyerID)
			if err != nil {
				return struct{}{}, err
			}
			return struct{}{}, uow.PriceListBuyers().Delete(ctx, grant.Key())
		})
	return err
}

// GetPriceList возвращает прайс-лист с товарами и покупателями.
func (m *Manager) GetPriceList(ctx context.Context, id int64) (PriceListDetails, error) {
	return command.Query(ctx, m.runner, "get_price_list",
		func() error {
			var p validation.Problems
			p.PositiveID("id", id)
			return p.Err()
		},
		func(ctx context.Context, repos domain.Repositories) (PriceListDetails, error) {
			list, err := validation.RequirePriceList(ctx, repos, id)
			if err != nil {
				return PriceListDetails{}, err
			}
			products, err := repos.PriceListProducts().Find(ctx, domain.PriceListProductFilter{PriceListID: id})
			if err != nil {
				return PriceListDetails{}, err
			}
			grants, err := repos.PriceListBuyers().Find(ctx, domain.PriceListBuyerFilter{PriceListID: id})
			if err != nil {
				return PriceListDetails{}, err
			}
			buyers := make([]int64, 0, len(grants))
			for _, g := range grants {
				buyers = append(buyers, g.BuyerID)
			}
			return PriceListDetails{PriceList: list, Products: products, BuyerIDs: buyers}, nil
		})
}

// ListPriceListProducts возвращает страницу товаров прайс-листа.
// isActive = nil выбирает товары независимо от активности.
func (m *Manager) ListPriceListProducts(ctx context.Context, listID int64, isActive *bool, page domain.Page) (PriceListProductPage, error) {
	return command.Query(ctx, m.runner, "list_price_list_products",
		func() error {
			var p validation.Problems
			p.PositiveID("price_list_id", listID)
			p.Page(page)
			return p.Err()
		},
		func(ctx context.Context, repos domain.Repositories) (PriceListProductPage, error) {
			if _, err := validation.RequirePriceList(ctx, repos, listID); err != nil {
				return PriceListProductPage{}, err
			}
			filter := domain.PriceListProductFilter{PriceListID: listID, Active: isActive, Page: page}
			products, err := repos.PriceListProducts().Find(ctx, filter)
			if err != nil {
				return PriceListProductPage{}, err
			}
			total, err := repos.PriceListProducts().Count(ctx, filter)
			if err != nil {
				return PriceListProductPage{}, err
			}
			return PriceListProductPage{Products: products, TotalCount: total, Page: page}, nil
		})
}

// ListSellerPriceLists возвращает прайс-листы продавца с числом активных товаров.
func (m *Manager) ListSellerPriceLists(ctx context.Context, sellerID int64, includeInactive bool) ([]PriceListSummary, error) {
	return command.Query(ctx, m.runner, "list_seller_price_lists",
		func() error {
			var p validation.Problems
			p.PositiveID("seller_id", sellerID)
			return p.Err()
		},
		func(ctx context.Context, repos domain.Repositories) ([]PriceListSummary, error) {
			if _, err := validation.RequireUser(ctx, repos, sellerID); err != nil {
				return nil, err
			}
			lists, err := repos.PriceLists().Find(ctx, domain.PriceListFilter{SellerID: sellerID, ActiveOnly: !includeInactive})
			if err != nil {
				return nil, err
			}

			active := true
			out := make([]PriceListSummary, 0, len(lists))
			for _, list := range lists {
				n, err := repos.PriceListProducts().Count(ctx, domain.PriceListProductFilter{PriceListID: list.ID, Active: &active})
				if err != nil {
					return nil, err
				}
				out = append(out, PriceListSummary{PriceList: list, ActiveProducts: n})
			}
			return out, nil
		})
}

// ListPriceLists возвращает страницу прайс-листов по продавцу, валюте,
// активности и строке поиска.
func (m *Manager) ListPriceLists(ctx context.Context, filter domain.PriceListFilter) (PriceListPage, error) {
	return command.Query(ctx, m.runner, "list_price_lists",
		func() error {
			var p validation.Problems
			if filter.SellerID < 0 {
				p.PositiveID("seller_id", filter.SellerID)
			}
			if filter.Currency != "" {
				p.Currency("currency", filter.Currency)
			}
			p.Search("search", filter.Search)
			p.Page(filter.Page)
			return p.Err()
		},
		func(ctx context.Context, repos domain.Repositories) (PriceListPage, error) {
			lists, err := repos.PriceLists().Find(ctx, filter)
			if err != nil {
				return PriceListPage{}, err
			}
			total, err := repos.PriceLists().Count(ctx, filter)
			if err != nil {
				return PriceListPage{}, err
			}
			return PriceListPage{PriceLists: lists, TotalCount: total, Page: filter.Page}, nil
		})
}

// ListBuyerPriceLists возвращает активные прайс-листы, видимые покупателю:
// открытые ему и его собственные.
func (m *Manager) ListBuyerPriceLists(ctx context.Context, buyerID int64) ([]domain.PriceList, error) {
	return command.Query(ctx, m.runner, "list_buyer_price_lists",
		func() error {
			var p validation.Problems
			p.PositiveID("buyer_id", buyerID)
			return p.Err()
		},
		func(ctx context.Context, repos domain.Repositories) ([]domain.PriceList, error) {
			if _, err := validation.RequireUser(ctx, repos, buyerID); err != nil {
				return nil, err
			}
			grants, err := repos.PriceListBuyers().Find(ctx, domain.PriceListBuyerFilter{BuyerID: buyerID})
			if err != nil {
				return nil, err
			}
			ids := make([]int64, 0, len(grants))
			for _, g := range grants {
				ids = append(ids, g.PriceListID)
			}

			lists, err := repos.PriceLists().Find(ctx, domain.PriceListFilter{ActiveOnly: true})
			if err != nil {
				return nil, err
			}
			visible := lists[:0]
			for _, list := range lists {
				if list.SellerID == buyerID || containsID(ids, list.ID) {
					visible = append(visible, list)
				}
			}
			return visible, nil
		})
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
