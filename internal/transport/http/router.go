package http

import (
	"github.com/ambakhtiar/MediStore-Backend/internal/domain"
	"github.com/ambakhtiar/MediStore-Backend/internal/transport/http/handler"
	"github.com/ambakhtiar/MediStore-Backend/internal/transport/http/middleware"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	Medicine *handler.MedicineHandler
	Category *handler.CategoryHandler
	Cart     *handler.CartHandler
	Order    *handler.OrderHandler
	Review   *handler.ReviewHandler
}

func RegisterRoutes(app *fiber.App, h *Handlers, jwtSecret string) {
	authGroup := app.Group("/auth")

	authGroup.Post("/register", h.Auth.Register)
	authGroup.Post("/login", h.Auth.Login)

	api := app.Group("/api", middleware.NewAuthMiddleware(jwtSecret))
	api.Get("/me", h.Auth.GetMe)

	medicine := api.Group("/medicines")
	medicine.Get("", h.Medicine.List)
	medicine.Post("", middleware.RequireRole(domain.RoleSeller, domain.RoleAdmin), h.Medicine.Create)
	medicine.Get("/:id", h.Medicine.GetByID)
	medicine.Patch("/:id", middleware.RequireRole(domain.RoleSeller, domain.RoleAdmin), h.Medicine.Update)
	medicine.Delete("/:id", middleware.RequireRole(domain.RoleSeller, domain.RoleAdmin), h.Medicine.Delete)
	medicine.Get("/:id/reviews", h.Review.ListByMedicine)
	medicine.Post("/:id/reviews", middleware.RequireRole(domain.RoleCustomer), h.Review.Create)

	category := api.Group("/categories")
	category.Get("", h.Category.List)
	category.Post("", middleware.RequireRole(domain.RoleAdmin), h.Category.Create)

	cart := api.Group("/cart")
	cart.Get("", h.Cart.View)
	cart.Post("/items", h.Cart.AddItem)
	cart.Patch("/items/:medicineId", h.Cart.SetItemQuantity)
	cart.Delete("/items/:medicineId", h.Cart.RemoveItem)

	order := api.Group("/orders")
	order.Post("", middleware.RequireRole(domain.RoleCustomer), h.Order.Place)
	order.Get("", h.Order.List)
	order.Patch("/seller/:id/status", middleware.RequireRole(domain.RoleSeller, domain.RoleAdmin), h.Order.ChangeStatus)
	order.Get("/:id", h.Order.GetByID)
	order.Get("/:id/track", h.Order.Track)
	// no role gate here: the service scopes cancellation to the order's
	// owner and answers 404 for everyone else
	order.Patch("/:id/cancel", h.Order.Cancel)
}
