package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/orders"
)

type ordersHandler struct {
	svc *orders.Manager
}

func (h *ordersHandler) create(c *fiber.Ctx) error {
	var in createOrderRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	cmd := orders.CreateOrderCommand{CustomerID: in.CustomerID, Notes: in.Notes, Status: in.Status}
	for _, item := range in.Items {
		cmd.Items = append(cmd.Items, orders.ItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	id, err := h.svc.CreateOrder(c.UserContext(), cmd)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(idResponse{ID: id})
}

func (h *ordersHandler) get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	details, err := h.svc.GetOrder(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(toOrder(details.Order, details.Items))
}

func (h *ordersHandler) update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in updateOrderRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	order, err := h.svc.UpdateOrder(c.UserContext(), orders.UpdateOrderCommand{
		ID:              id,
		CustomerID:      in.CustomerID,
		Status:          in.Status,
		Notes:           in.Notes,
		ExpectedVersion: in.ExpectedVersion,
	})
	if err != nil {
		return err
	}
	return c.JSON(toOrder(order, nil))
}

func (h *ordersHandler) delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteOrder(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ordersHandler) addItem(c *fiber.Ctx) error {
	orderID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in orderItemRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	item, err := h.svc.AddOrderItem(c.UserContext(), orders.AddOrderItemCommand{
		OrderID:   orderID,
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		UnitPrice: in.UnitPrice,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toOrderItem(item))
}

func (h *ordersHandler) removeItem(c *fiber.Ctx) error {
	orderID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	productID, err := paramID(c, "productId")
	if err != nil {
		return err
	}
	if err := h.svc.RemoveOrderItem(c.UserContext(), orders.RemoveOrderItemCommand{OrderID: orderID, ProductID: productID}); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// list: GET /api/orders?customer_id=&status=&from=&to=&limit=&offset=
func (h *ordersHandler) list(c *fiber.Ctx) error {
	customerID, err := optionalQueryID(c, "customer_id")
	if err != nil {
		return err
	}
	from, err := queryTime(c, "from", false)
	if err != nil {
		return err
	}
	to, err := queryTime(c, "to", true)
	if err != nil {
		return err
	}
	page, err := h.svc.ListOrders(c.UserContext(), domain.OrderFilter{
		CustomerID: customerID,
		Status:     domain.OrderStatus(c.Query("status")),
		From:       from,
		To:         to,
		Page:       pageFrom(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(toOrderPage(page))
}

func (h *ordersHandler) listCustomerOrders(c *fiber.Ctx) error {
	customerID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	page, err := h.svc.ListCustomerOrders(c.UserContext(), customerID, pageFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(toOrderPage(page))
}

func toOrderPage(page orders.OrderPage) orderPageResponse {
	out := orderPageResponse{
		Orders:     make([]orderResponse, 0, len(page.Orders)),
		TotalCount: page.TotalCount,
		Limit:      page.Page.Limit,
		Offset:     page.Page.Offset,
	}
	for _, o := range page.Orders {
		out.Orders = append(out.Orders, toOrder(o, nil))
	}
	return out
}
