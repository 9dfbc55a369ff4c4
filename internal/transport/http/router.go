package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/go-bookstore/internal/transport/http/handler"
	"github.com/sakashimaa/go-bookstore/internal/transport/http/middleware"
)

type Handlers struct {
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Stock    *handler.StockHandler
	Order    *handler.OrderHandler
	Catalog  *handler.CatalogHandler
	Payment  *handler.PaymentHandler
	Wishlist *handler.WishlistHandler
	Discount *handler.DiscountHandler
}

func RegisterRoutes(app *fiber.App, h *Handlers) {
	// Provider callbacks and public catalog reads carry no user identity.
	app.Post("/webhooks/payment", h.Payment.Webhook)

	books := app.Group("/books")
	books.Get("", h.Catalog.List)
	books.Get("/:id", h.Catalog.Get)

	api := app.Group("/api", middleware.NewOwnerMiddleware())

	cart := api.Group("/cart")
	cart.Get("", h.Cart.Get)
	cart.Post("/items", h.Cart.AddItem)
	cart.Put("/items/:bookId", h.Cart.SetQuantity)
	cart.Delete("/items/:bookId", h.Cart.RemoveItem)
	cart.Delete("", h.Cart.Clear)

	api.Post("/checkout", h.Checkout.Checkout)

	orders := api.Group("/orders")
	orders.Get("", h.Order.List)
	orders.Get("/:id", h.Order.Get)
	orders.Post("/:id/cancel", h.Order.Cancel)
	orders.Post("/:id/lines", h.Order.AddLine)

	wishlist := api.Group("/wishlist")
	wishlist.Get("", h.Wishlist.List)
	wishlist.Post("/:bookId", h.Wishlist.Add)
	wishlist.Delete("/:bookId", h.Wishlist.Remove)

	api.Get("/coupons/:code", h.Discount.Validate)

	// Back-office surface; authorization for it lives at the edge.
	admin := app.Group("/admin")

	admin.Post("/books", h.Catalog.Create)
	admin.Patch("/books/:id", h.Catalog.Update)
	admin.Delete("/books/:id", h.Catalog.Delete)

	admin.Get("/stock/:bookId", h.Stock.Get)
	admin.Put("/stock/:bookId", h.Stock.Set)
	admin.Post("/stock/increase", h.Stock.Increase)
	admin.Post("/stock/availability", h.Stock.CheckAvailability)

	admin.Post("/orders/:id/ship", h.Order.Ship)
	admin.Post("/orders/:id/deliver", h.Order.Deliver)

	admin.Post("/coupons", h.Discount.Create)
}
