package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/pricelists"
)

type priceListsHandler struct {
	svc *pricelists.Manager
}

func (h *priceListsHandler) create(c *fiber.Ctx) error {
	var in createPriceListRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	list, err := h.svc.CreatePriceList(c.UserContext(), pricelists.CreatePriceListCommand{
		Name:        in.Name,
		Description: in.Description,
		Currency:    in.Currency,
		SellerID:    in.SellerID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toPriceList(list))
}

func (h *priceListsHandler) get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	details, err := h.svc.GetPriceList(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(toPriceListDetails(details))
}

func (h *priceListsHandler) update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in updatePriceListRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	list, err := h.svc.UpdatePriceList(c.UserContext(), pricelists.UpdatePriceListCommand{
		ID:              id,
		Name:            in.Name,
		Description:     in.Description,
		Currency:        in.Currency,
		IsActive:        in.IsActive,
		ExpectedVersion: in.ExpectedVersion,
	})
	if err != nil {
		return err
	}
	return c.JSON(toPriceList(list))
}

func (h *priceListsHandler) delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeletePriceList(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *priceListsHandler) listProducts(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	active, err := queryBool(c, "active")
	if err != nil {
		return err
	}
	page, err := h.svc.ListPriceListProducts(c.UserContext(), id, active, pageFrom(c))
	if err != nil {
		return err
	}
	out := priceListProductPageResponse{
		Products:   make([]priceListProductResponse, 0, len(page.Products)),
		TotalCount: page.TotalCount,
		Limit:      page.Page.Limit,
		Offset:     page.Page.Offset,
	}
	for _, p := range page.Products {
		out.Products = append(out.Products, toPriceListProduct(p))
	}
	return c.JSON(out)
}

func (h *priceListsHandler) addProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in addProductRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	member, err := h.svc.AddProductToPriceList(c.UserContext(), pricelists.AddProductCommand{
		PriceListID:  id,
		ProductID:    in.ProductID,
		SpecialPrice: in.SpecialPrice,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toPriceListProduct(member))
}

func (h *priceListsHandler) updateProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	productID, err := paramID(c, "productId")
	if err != nil {
		return err
	}
	var in updateProductPriceRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	member, err := h.svc.UpdateProductPrice(c.UserContext(), pricelists.UpdateProductPriceCommand{
		PriceListID:  id,
		ProductID:    productID,
		SpecialPrice: in.SpecialPrice,
		IsActive:     in.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(toPriceListProduct(member))
}

func (h *priceListsHandler) removeProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	productID, err := paramID(c, "productId")
	if err != nil {
		return err
	}
	if err := h.svc.RemoveProductFromPriceList(c.UserContext(), pricelists.MembershipCommand{PriceListID: id, ProductID: productID}); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *priceListsHandler) addBuyer(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in buyerRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	if err := h.svc.AddBuyerToPriceList(c.UserContext(), pricelists.BuyerCommand{PriceListID: id, BuyerID: in.BuyerID}); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *priceListsHandler) removeBuyer(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	buyerID, err := paramID(c, "buyerId")
	if err != nil {
		return err
	}
	if err := h.svc.RemoveBuyerFromPriceList(c.UserContext(), pricelists.BuyerCommand{PriceListID: id, BuyerID: buyerID}); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// list: GET /api/price-lists?seller_id=&currency=&active=&search=&limit=&offset=
func (h *priceListsHandler) list(c *fiber.Ctx) error {
	sellerID, err := optionalQueryID(c, "seller_id")
	if err != nil {
		return err
	}
	active, err := queryBool(c, "active")
	if err != nil {
		return err
	}
	page, err := h.svc.ListPriceLists(c.UserContext(), domain.PriceListFilter{
		SellerID: sellerID,
		Currency: c.Query("currency"),
		Active:   active,
		Search:   c.Query("search"),
		Page:     pageFrom(c),
	})
	if err != nil {
		return err
	}
	out := priceListPageResponse{
		PriceLists: make([]priceListResponse, 0, len(page.PriceLists)),
		TotalCount: page.TotalCount,
		Limit:      page.Page.Limit,
		Offset:     page.Page.Offset,
	}
	for _, l := range page.PriceLists {
		out.PriceLists = append(out.PriceLists, toPriceList(l))
	}
	return c.JSON(out)
}

func (h *priceListsHandler) listSellerPriceLists(c *fiber.Ctx) error {
	sellerID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	summaries, err := h.svc.ListSellerPriceLists(c.UserContext(), sellerID, c.QueryBool("include_inactive", false))
	if err != nil {
		return err
	}
	out := make([]priceListResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, toPriceListSummary(s))
	}
	return c.JSON(out)
}

func (h *priceListsHandler) listBuyerPriceLists(c *fiber.Ctx) error {
	buyerID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	lists, err := h.svc.ListBuyerPriceLists(c.UserContext(), buyerID)
	if err != nil {
		return err
	}
	out := make([]priceListResponse, 0, len(lists))
	for _, l := range lists {
		out = append(out, toPriceList(l))
	}
	return c.JSON(out)
}
