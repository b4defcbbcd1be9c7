package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fitwear/storefront/internal/cache"
	"github.com/fitwear/storefront/internal/domain"
	"github.com/fitwear/storefront/internal/repository"
	"github.com/fitwear/storefront/internal/service"
)

// In-memory fakes backing full service instances, so handler tests exercise
// the real routing, validation, and error-mapping paths.

type fakeCartRepo struct {
	carts map[string]*domain.Cart
	err   error
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{carts: map[string]*domain.Cart{}}
}

func (f *fakeCartRepo) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	if f.err != nil {
		return nil, f.err
	}
	cart, ok := f.carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return cart, nil
}

func (f *fakeCartRepo) AddItem(_ context.Context, userID string, item domain.CartItem) error {
	if f.err != nil {
		return f.err
	}
	cart, ok := f.carts[userID]
	if !ok {
		cart = &domain.Cart{UserID: userID, CreatedAt: time.Now()}
		f.carts[userID] = cart
	}
	if i := cart.FindItem(item.ProductID, item.Size); i >= 0 {
		cart.Items[i].Quantity += item.Quantity
		return nil
	}
	cart.Items = append(cart.Items, item)
	return nil
}

func (f *fakeCartRepo) UpdateItemQuantity(_ context.Context, userID, productID string, size domain.Size, quantity int) error {
	if f.err != nil {
		return f.err
	}
	cart, ok := f.carts[userID]
	if !ok {
		return repository.ErrItemNotFound
	}
	if i := cart.FindItem(productID, size); i >= 0 {
		cart.Items[i].Quantity = quantity
		return nil
	}
	return repository.ErrItemNotFound
}

func (f *fakeCartRepo) RemoveItem(_ context.Context, userID, productID string, size domain.Size) error {
	if f.err != nil {
		return f.err
	}
	cart, ok := f.carts[userID]
	if !ok {
		return repository.ErrItemNotFound
	}
	if i := cart.FindItem(productID, size); i >= 0 {
		cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
		return nil
	}
	return repository.ErrItemNotFound
}

func (f *fakeCartRepo) ClearCart(_ context.Context, userID string) error {
	if f.err != nil {
		return f.err
	}
	if cart, ok := f.carts[userID]; ok {
		cart.Items = []domain.CartItem{}
	} else {
		f.carts[userID] = &domain.Cart{UserID: userID, Items: []domain.CartItem{}}
	}
	return nil
}

type fakeProductRepo struct {
	products map[string]*domain.Product
}

func (f *fakeProductRepo) ListProducts(context.Context, domain.ProductFilter) ([]*domain.Product, error) {
	out := make([]*domain.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProductRepo) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeProductRepo) GetProducts(_ context.Context, ids []string) (map[string]*domain.Product, error) {
	out := make(map[string]*domain.Product)
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeOrderRepo struct {
	orders []*domain.Order
	err    error
}

func (f *fakeOrderRepo) CreateOrder(_ context.Context, order *domain.Order) error {
	if f.err != nil {
		return f.err
	}
	f.orders = append(f.orders, order)
	return nil
}

func (f *fakeOrderRepo) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, o := range f.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (f *fakeOrderRepo) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.Order
	for i := len(f.orders) - 1; i >= 0; i-- {
		if f.orders[i].UserID == userID {
			out = append(out, f.orders[i])
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) ListOrders(_ context.Context, offset, limit int64) ([]*domain.Order, int64, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	total := int64(len(f.orders))
	var page []*domain.Order
	for i := total - 1 - offset; i >= 0 && int64(len(page)) < limit; i-- {
		page = append(page, f.orders[i])
	}
	return page, total, nil
}

func (f *fakeOrderRepo) UpdateOrderStatus(_ context.Context, id string, status domain.OrderStatus) error {
	if f.err != nil {
		return f.err
	}
	for _, o := range f.orders {
		if o.ID == id {
			o.Status = status
			return nil
		}
	}
	return repository.ErrOrderNotFound
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *domain.User) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) (*domain.Cart, error) { return nil, cache.ErrCacheMiss }
func (nopCache) Set(context.Context, string, *domain.Cart) error   { return nil }
func (nopCache) Delete(context.Context, string) error              { return nil }

type testEnv struct {
	router    http.Handler
	auth      *service.AuthService
	cartRepo  *fakeCartRepo
	orderRepo *fakeOrderRepo
	userRepo  *fakeUserRepo
	products  *fakeProductRepo
}

func catalogFixture() map[string]*domain.Product {
	return map[string]*domain.Product{
		"tshirt-A": {
			ID: "tshirt-A", Name: "Basic Tee", Price: 19.99, Stock: 50,
			Sizes:    []domain.Size{domain.SizeS, domain.SizeM, domain.SizeL},
			Category: "tshirts",
		},
		"hoodie-B": {
			ID: "hoodie-B", Name: "Zip Hoodie", Price: 49.50, Stock: 12,
			Sizes:    []domain.Size{domain.SizeM, domain.SizeL, domain.SizeXL},
			Category: "hoodies", Featured: true,
		},
	}
}

func newTestEnv() *testEnv {
	cartRepo := newFakeCartRepo()
	products := &fakeProductRepo{products: catalogFixture()}
	orderRepo := &fakeOrderRepo{}
	userRepo := newFakeUserRepo()

	cartService := service.NewCartService(cartRepo, products, nopCache{})
	orderService := service.NewOrderService(orderRepo, products, cartService)
	authService := service.NewAuthService(userRepo, "test-secret", time.Hour)

	router := NewRouter(
		NewAuthHandler(authService),
		NewProductsHandler(products),
		NewCartHandler(cartService),
		NewOrdersHandler(orderService),
		authService,
		30*time.Second,
	)

	return &testEnv{
		router:    router,
		auth:      authService,
		cartRepo:  cartRepo,
		orderRepo: orderRepo,
		userRepo:  userRepo,
		products:  products,
	}
}

// seedUser creates a user directly in the fake store and returns a valid
// bearer token for it.
func (e *testEnv) seedUser(id string, role domain.Role) string {
	e.userRepo.users[id] = &domain.User{
		ID:    id,
		Email: id + "@example.com",
		Role:  role,
	}
	token, err := e.auth.IssueToken(&domain.User{ID: id, Role: role})
	if err != nil {
		panic(err)
	}
	return token
}
