package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/catalog"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/pricing"
)

type catalogHandler struct {
	svc     *catalog.Service
	pricing *pricing.Service
}

func (h *catalogHandler) createUser(c *fiber.Ctx) error {
	var in userRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, err := h.svc.CreateUser(c.UserContext(), catalog.CreateUserCommand{
		Name:          in.Name,
		Email:         in.Email,
		Phone:         in.Phone,
		Password:      in.Password,
		Role:          in.Role,
		Type:          in.Type,
		UNP:           in.UNP,
		OKPO:          in.OKPO,
		LegalAddress:  in.LegalAddress,
		ActualAddress: in.ActualAddress,
		BankName:      in.BankName,
		BankAccount:   in.BankAccount,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toUser(user))
}

func (h *catalogHandler) getUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.svc.GetUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(toUser(user))
}

// listUsers: GET /api/users?role=&type=&search=&limit=&offset=
func (h *catalogHandler) listUsers(c *fiber.Ctx) error {
	page, err := h.svc.ListUsers(c.UserContext(), domain.UserFilter{
		Role:   domain.UserRole(c.Query("role")),
		Type:   domain.UserType(c.Query("type")),
		Search: c.Query("search"),
		Page:   pageFrom(c),
	})
	if err != nil {
		return err
	}
	out := userPageResponse{
		Users:      make([]userResponse, 0, len(page.Users)),
		TotalCount: page.TotalCount,
		Limit:      page.Page.Limit,
		Offset:     page.Page.Offset,
	}
	for _, u := range page.Users {
		out.Users = append(out.Users, toUser(u))
	}
	return c.JSON(out)
}

func (h *catalogHandler) updateUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in userRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, err := h.svc.UpdateUser(c.UserContext(), catalog.UpdateUserCommand{
		ID:            id,
		Name:          in.Name,
		Email:         in.Email,
		Phone:         in.Phone,
		Password:      in.Password,
		Role:          in.Role,
		Type:          in.Type,
		UNP:           in.UNP,
		OKPO:          in.OKPO,
		LegalAddress:  in.LegalAddress,
		ActualAddress: in.ActualAddress,
		BankName:      in.BankName,
		BankAccount:   in.BankAccount,
	})
	if err != nil {
		return err
	}
	return c.JSON(toUser(user))
}

func (h *catalogHandler) deleteUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteUser(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *catalogHandler) login(c *fiber.Ctx) error {
	var in loginRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, err := h.svc.VerifyCredentials(c.UserContext(), in.Email, in.Password)
	if err != nil {
		return err
	}
	return c.JSON(toUser(user))
}

func (h *catalogHandler) listCategories(c *fiber.Ctx) error {
	page, err := h.svc.ListCategories(c.UserContext(), pageFrom(c))
	if err != nil {
		return err
	}
	out := categoryPageResponse{
		Categories: make([]categoryResponse, 0, len(page.Categories)),
		TotalCount: page.TotalCount,
		Limit:      page.Page.Limit,
		Offset:     page.Page.Offset,
	}
	for _, cat := range page.Categories {
		out.Categories = append(out.Categories, toCategory(cat))
	}
	return c.JSON(out)
}

func (h *catalogHandler) getCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	category, err := h.svc.GetCategory(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(toCategory(category))
}

func (h *catalogHandler) createCategory(c *fiber.Ctx) error {
	var in categoryRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	category, err := h.svc.CreateCategory(c.UserContext(), catalog.CategoryCommand{
		Name:        in.Name,
		Description: in.Description,
		ImageURL:    in.ImageURL,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toCategory(category))
}

func (h *catalogHandler) updateCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in categoryRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	category, err := h.svc.UpdateCategory(c.UserContext(), catalog.CategoryCommand{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		ImageURL:    in.ImageURL,
	})
	if err != nil {
		return err
	}
	return c.JSON(toCategory(category))
}

func (h *catalogHandler) deleteCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteCategory(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (in productRequest) command(id int64) catalog.ProductCommand {
	return catalog.ProductCommand{
		ID:            id,
		Name:          in.Name,
		Description:   in.Description,
		SKU:           in.SKU,
		StockQuantity: in.StockQuantity,
		Price:         in.Price,
		CategoryID:    in.CategoryID,
		Manufacturer:  in.Manufacturer,
		Unit:          in.Unit,
		ImageURL:      in.ImageURL,
		ImageGallery:  in.ImageGallery,
	}
}

func (h *catalogHandler) createProduct(c *fiber.Ctx) error {
	var in productRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	product, err := h.svc.CreateProduct(c.UserContext(), in.command(0))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toProduct(product))
}

// listProducts: GET /api/products?category_id=&search=&limit=&offset=
func (h *catalogHandler) listProducts(c *fiber.Ctx) error {
	categoryID, err := optionalQueryID(c, "category_id")
	if err != nil {
		return err
	}
	page, err := h.svc.ListProducts(c.UserContext(), domain.ProductFilter{
		CategoryID: categoryID,
		Search:     c.Query("search"),
		Page:       pageFrom(c),
	})
	if err != nil {
		return err
	}
	out := productPageResponse{
		Products:   make([]productResponse, 0, len(page.Products)),
		TotalCount: page.TotalCount,
		Limit:      page.Page.Limit,
		Offset:     page.Page.Offset,
	}
	for _, p := range page.Products {
		out.Products = append(out.Products, toProduct(p))
	}
	return c.JSON(out)
}

func (h *catalogHandler) getProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	product, err := h.svc.GetProduct(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(toProduct(product))
}

func (h *catalogHandler) updateProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in productRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	product, err := h.svc.UpdateProduct(c.UserContext(), in.command(id))
	if err != nil {
		return err
	}
	return c.JSON(toProduct(product))
}

func (h *catalogHandler) deleteProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteProduct(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// resolvePrice: GET /api/products/:id/price?buyer_id=N
func (h *catalogHandler) resolvePrice(c *fiber.Ctx) error {
	productID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	buyerID, err := queryID(c, "buyer_id")
	if err != nil {
		return err
	}
	res, err := h.pricing.ResolvePrice(c.UserContext(), buyerID, productID)
	if err != nil {
		return err
	}
	return c.JSON(toResolution(res))
}
