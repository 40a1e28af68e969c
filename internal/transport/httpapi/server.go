// Package httpapi — HTTP-адаптер ядра торговли на fiber.
package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/catalog"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/orders"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/pricelists"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/pricing"
)

const (
	// HeaderRequestID — заголовок с идентификатором запроса.
	HeaderRequestID = "X-Request-ID"

	localRequestID = "request_id"

	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Services — сервисы ядра, доступные через HTTP.
type Services struct {
	Catalog    *catalog.Service
	Orders     *orders.Manager
	PriceLists *pricelists.Manager
	Pricing    *pricing.Service
}

// ErrorResponse — тело ответа с ошибкой.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// NewApp собирает fiber-приложение с маршрутами /api.
func NewApp(svc Services, logger *log.Entry) *fiber.App {
	if logger == nil {
		logger = log.New().WithField("component", "http")
	}

	app := fiber.New(fiber.Config{
		AppName:               "b2b-trading",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          errorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestID())
	app.Use(accessLog(logger))

	Register(app, svc)
	return app
}

// Register регистрирует маршруты API.
func Register(app *fiber.App, svc Services) {
	api := app.Group("/api")

	cat := &catalogHandler{svc: svc.Catalog, pricing: svc.Pricing}
	ord := &ordersHandler{svc: svc.Orders}
	pl := &priceListsHandler{svc: svc.PriceLists}

	api.Post("/auth/login", cat.login)

	users := api.Group("/users")
	users.Get("/", cat.listUsers)
	users.Post("/", cat.createUser)
	users.Get("/:id", cat.getUser)
	users.Put("/:id", cat.updateUser)
	users.Delete("/:id", cat.deleteUser)
	users.Get("/:id/orders", ord.listCustomerOrders)
	users.Get("/:id/price-lists", pl.listBuyerPriceLists)

	api.Get("/sellers/:id/price-lists", pl.listSellerPriceLists)

	categories := api.Group("/categories")
	categories.Get("/", cat.listCategories)
	categories.Post("/", cat.createCategory)
	categories.Get("/:id", cat.getCategory)
	categories.Put("/:id", cat.updateCategory)
	categories.Delete("/:id", cat.deleteCategory)

	products := api.Group("/products")
	products.Get("/", cat.listProducts)
	products.Post("/", cat.createProduct)
	products.Get("/:id", cat.getProduct)
	products.Put("/:id", cat.updateProduct)
	products.Delete("/:id", cat.deleteProduct)
	products.Get("/:id/price", cat.resolvePrice)

	ordersGroup := api.Group("/orders")
	ordersGroup.Get("/", ord.list)
	ordersGroup.Post("/", ord.create)
	ordersGroup.Get("/:id", ord.get)
	ordersGroup.Put("/:id", ord.update)
	ordersGroup.Delete("/:id", ord.delete)
	ordersGroup.Post("/:id/items", ord.addItem)
	ordersGroup.Delete("/:id/items/:productId", ord.removeItem)

	lists := api.Group("/price-lists")
	lists.Get("/", pl.list)
	lists.Post("/", pl.create)
	lists.Get("/:id", pl.get)
	lists.Patch("/:id", pl.update)
	lists.Delete("/:id", pl.delete)
	lists.Get("/:id/products", pl.listProducts)
	lists.Post("/:id/products", pl.addProduct)
	lists.Patch("/:id/products/:productId", pl.updateProduct)
	lists.Delete("/:id/products/:productId", pl.removeProduct)
	lists.Post("/:id/buyers", pl.addBuyer)
	lists.Delete("/:id/buyers/:buyerId", pl.removeBuyer)
}

// StatusFor возвращает HTTP-код для категории ошибки.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindConflict, domain.KindInvalidState, domain.KindValidationFailed:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func errorHandler(logger *log.Entry) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		resp := ErrorResponse{RequestID: requestIDFrom(c)}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			resp.Code = "http_error"
			resp.Message = fe.Message
			return c.Status(fe.Code).JSON(resp)
		}

		kind := domain.KindOf(err)
		status := StatusFor(kind)
		resp.Code = string(kind)
		resp.Message = err.Error()
		if status == fiber.StatusInternalServerError {
			logger.WithError(err).WithField("request_id", resp.RequestID).Error("request failed")
			resp.Message = "internal error"
		}
		return c.Status(status).JSON(resp)
	}
}

func requestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(localRequestID, id)
		c.Set(HeaderRequestID, id)
		return c.Next()
	}
}

func requestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(localRequestID).(string)
	return id
}

func accessLog(logger *log.Entry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			// ответ формирует ErrorHandler; код нужен для лога уже сейчас
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		logger.WithFields(log.Fields{
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      c.Response().StatusCode(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  requestIDFrom(c),
		}).Info("http request")
		return nil
	}
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validationf("path parameter %s must be a positive integer", name)
	}
	return id, nil
}

func queryID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validationf("query parameter %s must be a positive integer", name)
	}
	return id, nil
}

// optionalQueryID возвращает 0, если параметр не задан.
func optionalQueryID(c *fiber.Ctx, name string) (int64, error) {
	if c.Query(name) == "" {
		return 0, nil
	}
	return queryID(c, name)
}

// queryTime принимает RFC 3339 или дату YYYY-MM-DD. Для даты без времени
// при endOfDay возвращается последний момент этого дня.
func queryTime(c *fiber.Ctx, name string, endOfDay bool) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, domain.Validationf("query parameter %s must be a date (YYYY-MM-DD) or RFC 3339 timestamp", name)
	}
	if endOfDay {
		day = day.Add(24*time.Hour - time.Nanosecond)
	}
	return &day, nil
}

func queryBool(c *fiber.Ctx, name string) (*bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, domain.Validationf("query parameter %s must be a boolean", name)
	}
	return &v, nil
}

func pageFrom(c *fiber.Ctx) domain.Page {
	limit := c.QueryInt("limit", defaultPageLimit)
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return domain.Page{Limit: limit, Offset: offset}
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return domain.Validationf("invalid request body: %v", err)
	}
	return nil
}
