package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fitwear/storefront/internal/cache"
	"github.com/fitwear/storefront/internal/domain"
	"github.com/fitwear/storefront/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCartRepository struct {
	m    sync.RWMutex
	cart *domain.Cart
	err  error
}

func (m *mockCartRepository) GetCart(context.Context, string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, repository.ErrCartNotFound
	}
	return m.cart, nil
}

func (m *mockCartRepository) AddItem(_ context.Context, userID string, item domain.CartItem) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.cart == nil {
		m.cart = &domain.Cart{UserID: userID}
	}
	// Same merge rule as the mongo repository: one line per (product, size)
	if i := m.cart.FindItem(item.ProductID, item.Size); i >= 0 {
		m.cart.Items[i].Quantity += item.Quantity
		return nil
	}
	m.cart.Items = append(m.cart.Items, item)
	return nil
}

func (m *mockCartRepository) UpdateItemQuantity(_ context.Context, _, productID string, size domain.Size, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.cart == nil {
		return repository.ErrItemNotFound
	}
	if i := m.cart.FindItem(productID, size); i >= 0 {
		m.cart.Items[i].Quantity = quantity
		return nil
	}
	return repository.ErrItemNotFound
}

func (m *mockCartRepository) RemoveItem(_ context.Context, _, productID string, size domain.Size) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.cart == nil {
		return repository.ErrItemNotFound
	}
	if i := m.cart.FindItem(productID, size); i >= 0 {
		m.cart.Items = append(m.cart.Items[:i], m.cart.Items[i+1:]...)
		return nil
	}
	return repository.ErrItemNotFound
}

func (m *mockCartRepository) ClearCart(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.cart != nil {
		m.cart.Items = []domain.CartItem{}
	}
	return nil
}

func (m *mockCartRepository) items() []domain.CartItem {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.cart == nil {
		return nil
	}
	return m.cart.Items
}

type mockProductRepository struct {
	products map[string]*domain.Product
	err      error
}

func (m *mockProductRepository) ListProducts(context.Context, domain.ProductFilter) ([]*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockProductRepository) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

func (m *mockProductRepository) GetProducts(_ context.Context, ids []string) (map[string]*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]*domain.Product)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type mockCache struct {
	m    sync.RWMutex
	cart *domain.Cart
	err  error
}

func (m *mockCache) Get(context.Context, string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, cache.ErrCacheMiss
	}
	return m.cart, nil
}

func (m *mockCache) Set(_ context.Context, _ string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = cart
	return m.err
}

func (m *mockCache) Delete(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = nil
	return m.err
}

func (m *mockCache) getCart() *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.cart
}

func testProducts() map[string]*domain.Product {
	return map[string]*domain.Product{
		"tshirt-A": {
			ID: "tshirt-A", Name: "Basic Tee", Price: 19.99, Stock: 50,
			Sizes: []domain.Size{domain.SizeS, domain.SizeM, domain.SizeL},
		},
		"hoodie-B": {
			ID: "hoodie-B", Name: "Zip Hoodie", Price: 49.50, Stock: 12,
			Sizes: []domain.Size{domain.SizeM, domain.SizeL, domain.SizeXL},
		},
	}
}

func newTestCartService(repo *mockCartRepository, c *mockCache) *CartService {
	return NewCartService(repo, &mockProductRepository{products: testProducts()}, c)
}

func TestGetCart_ResolvesProducts(t *testing.T) {
	repo := &mockCartRepository{
		cart: &domain.Cart{
			UserID: "u1",
			Items: []domain.CartItem{
				{ProductID: "tshirt-A", Quantity: 2, Size: domain.SizeM},
				{ProductID: "hoodie-B", Quantity: 1, Size: domain.SizeL},
			},
		},
	}
	mockC := &mockCache{}

	sut := newTestCartService(repo, mockC)
	ret, err := sut.GetCart(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, ret.Items, 2)
	assert.Equal(t, "Basic Tee", ret.Items[0].ProductName)
	assert.Equal(t, 19.99, ret.Items[0].Price)
	assert.Equal(t, 2, ret.Items[0].Quantity)
	assert.Equal(t, domain.SizeM, ret.Items[0].Size)
	assert.Equal(t, "Zip Hoodie", ret.Items[1].ProductName)

	require.Eventually(t, func() bool {
		return mockC.getCart() != nil
	}, 100*time.Millisecond, 10*time.Millisecond, "cart was not set in cache")
}

func TestGetCart_NoCart_ReturnsEmpty(t *testing.T) {
	sut := newTestCartService(&mockCartRepository{}, &mockCache{})

	ret, err := sut.GetCart(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", ret.UserID)
	assert.Empty(t, ret.Items)
}

func TestGetCart_MissingProductOmitted(t *testing.T) {
	repo := &mockCartRepository{
		cart: &domain.Cart{
			UserID: "u1",
			Items: []domain.CartItem{
				{ProductID: "tshirt-A", Quantity: 1, Size: domain.SizeM},
				{ProductID: "deleted-product", Quantity: 3, Size: domain.SizeS},
			},
		},
	}

	sut := newTestCartService(repo, &mockCache{})
	ret, err := sut.GetCart(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, ret.Items, 1)
	assert.Equal(t, "tshirt-A", ret.Items[0].ProductID)
}

func TestGetCart_RepoError(t *testing.T) {
	repo := &mockCartRepository{err: fmt.Errorf("database error")}

	sut := newTestCartService(repo, &mockCache{})
	ret, err := sut.GetCart(context.Background(), "u1")
	require.ErrorContains(t, err, "database error")
	assert.Nil(t, ret)
}

func TestAddItem_NewLine(t *testing.T) {
	repo := &mockCartRepository{}
	mockC := &mockCache{cart: &domain.Cart{UserID: "u1"}}

	sut := newTestCartService(repo, mockC)
	ret, err := sut.AddItem(context.Background(), "u1", "tshirt-A", 2, domain.SizeM)
	require.NoError(t, err)
	require.Len(t, ret.Items, 1)
	assert.Equal(t, 2, ret.Items[0].Quantity)
}

func TestAddItem_SameProductAndSize_MergesQuantity(t *testing.T) {
	repo := &mockCartRepository{
		cart: &domain.Cart{
			UserID: "u1",
			Items:  []domain.CartItem{{ProductID: "tshirt-A", Quantity: 1, Size: domain.SizeM}},
		},
	}

	sut := newTestCartService(repo, &mockCache{})
	ret, err := sut.AddItem(context.Background(), "u1", "tshirt-A", 2, domain.SizeM)
	require.NoError(t, err)
	require.Len(t, ret.Items, 1, "merge must never create a second line")
	assert.Equal(t, 3, ret.Items[0].Quantity)
}

func TestAddItem_SameProductDifferentSize_NewLine(t *testing.T) {
	repo := &mockCartRepository{
		cart: &domain.Cart{
			UserID: "u1",
			Items:  []domain.CartItem{{ProductID: "tshirt-A", Quantity: 1, Size: domain.SizeM}},
		},
	}

	sut := newTestCartService(repo, &mockCache{})
	ret, err := sut.AddItem(context.Background(), "u1", "tshirt-A", 1, domain.SizeL)
	require.NoError(t, err)
	require.Len(t, ret.Items, 2)
}

func TestAddItem_MissingSize_RejectedBeforePersistence(t *testing.T) {
	repo := &mockCartRepository{}

	sut := newTestCartService(repo, &mockCache{})
	_, err := sut.AddItem(context.Background(), "u1", "tshirt-A", 1, "")
	require.ErrorIs(t, err, ErrSizeRequired)
	assert.Empty(t, repo.items(), "persistence must not be touched")
}

func TestAddItem_InvalidSize(t *testing.T) {
	sut := newTestCartService(&mockCartRepository{}, &mockCache{})
	_, err := sut.AddItem(context.Background(), "u1", "tshirt-A", 1, "XXXL")
	require.ErrorIs(t, err, ErrInvalidSize)
}

func TestAddItem_ZeroQuantity(t *testing.T) {
	sut := newTestCartService(&mockCartRepository{}, &mockCache{})
	_, err := sut.AddItem(context.Background(), "u1", "tshirt-A", 0, domain.SizeM)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	sut := newTestCartService(&mockCartRepository{}, &mockCache{})
	_, err := sut.AddItem(context.Background(), "u1", "no-such-product", 1, domain.SizeM)
	require.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestUpdateQuantity_Overwrites(t *testing.T) {
	repo := &mockCartRepository{
		cart: &domain.Cart{
			UserID: "u1",
			Items:  []domain.CartItem{{ProductID: "tshirt-A", Quantity: 5, Size: domain.SizeM}},
		},
	}
	mockC := &mockCache{cart: repo.cart}

	sut := newTestCartService(repo, mockC)
	ret, err := sut.UpdateQuantity(context.Background(), "u1", "tshirt-A", domain.SizeM, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, ret.Items[0].Quantity, "update overwrites, never adds")
}

func TestUpdateQuantity_WrongSize_NotFound(t *testing.T) {
	repo := &mockCartRepository{
		cart: &domain.Cart{
			UserID: "u1",
			Items:  []domain.CartItem{{ProductID: "tshirt-A", Quantity: 5, Size: domain.SizeM}},
		},
	}

	sut := newTestCartService(repo, &mockCache{})
	_, err := sut.UpdateQuantity(context.Background(), "u1", "tshirt-A", domain.SizeXL, 2)
	require.ErrorIs(t, err, repository.ErrItemNotFound)
}

func TestRemoveItem_MatchesFullKey(t *testing.T) {
	repo := &mockCartRepository{
		cart: &domain.Cart{
			UserID: "u1",
			Items: []domain.CartItem{
				{ProductID: "tshirt-A", Quantity: 1, Size: domain.SizeM},
				{ProductID: "tshirt-A", Quantity: 2, Size: domain.SizeL},
			},
		},
	}

	sut := newTestCartService(repo, &mockCache{})
	ret, err := sut.RemoveItem(context.Background(), "u1", "tshirt-A", domain.SizeM)
	require.NoError(t, err)
	require.Len(t, ret.Items, 1, "only the matching size is removed")
	assert.Equal(t, domain.SizeL, ret.Items[0].Size)
}

func TestRemoveItem_MissingSize_Rejected(t *testing.T) {
	sut := newTestCartService(&mockCartRepository{}, &mockCache{})
	_, err := sut.RemoveItem(context.Background(), "u1", "tshirt-A", "")
	require.ErrorIs(t, err, ErrSizeRequired)
}

func TestClearCart_EmptiesAndInvalidates(t *testing.T) {
	repo := &mockCartRepository{
		cart: &domain.Cart{
			UserID: "u1",
			Items: []domain.CartItem{
				{ProductID: "tshirt-A", Quantity: 1, Size: domain.SizeM},
				{ProductID: "hoodie-B", Quantity: 2, Size: domain.SizeL},
			},
		},
	}
	mockC := &mockCache{cart: repo.cart}

	sut := newTestCartService(repo, mockC)
	err := sut.ClearCart(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, repo.items())
	assert.Nil(t, mockC.getCart(), "cache was not invalidated")
}
