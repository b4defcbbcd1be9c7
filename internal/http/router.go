package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires every handler behind the shared middleware stack. Catalog
// and auth routes are public; cart and order routes require a bearer token,
// and the admin order surface additionally requires the admin role.
func NewRouter(
	auth *AuthHandler,
	products *ProductsHandler,
	cart *CartHandler,
	orders *OrdersHandler,
	verifier TokenVerifier,
	requestTimeout time.Duration,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", auth.Register)
			r.Post("/login", auth.Login)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", products.ListProducts)
			r.Get("/{product_id}", products.GetProduct)
		})

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(verifier))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cart.GetCart)
				r.Post("/", cart.AddItem)
				r.Delete("/", cart.ClearCart)
				r.Put("/{product_id}", cart.UpdateQuantity)
				r.Delete("/{product_id}", cart.RemoveItem)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", orders.PlaceOrder)
				r.Get("/my-orders", orders.ListMyOrders)
				r.Get("/{order_id}", orders.GetOrder)

				r.Group(func(r chi.Router) {
					r.Use(RequireAdmin)
					r.Get("/", orders.ListAllOrders)
					r.Put("/{order_id}/status", orders.UpdateStatus)
				})
			})
		})
	})

	return r
}
