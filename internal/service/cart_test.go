package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/cart/internal/catalog"
	"github.com/Alturino/cart/internal/config"
	inErrors "github.com/Alturino/cart/internal/errors"
	"github.com/Alturino/cart/pkg/cart"
	"github.com/Alturino/cart/pkg/request"
)

func ptr[T any](v T) *T {
	return &v
}

type memStore struct {
	mu        sync.Mutex
	carts     map[string]cart.Cart
	pricing   cart.Pricing
	loadErr   error
	saveErr   error
	deleteErr error
}

func newMemStore(pricing cart.Pricing) *memStore {
	return &memStore{carts: map[string]cart.Cart{}, pricing: pricing}
}

func (s *memStore) Load(c context.Context, identifier string) (cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return cart.Cart{}, s.loadErr
	}
	if found, ok := s.carts[identifier]; ok {
		return found, nil
	}
	return cart.New(identifier, s.pricing), nil
}

func (s *memStore) Save(c context.Context, snapshot cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.carts[snapshot.ID] = snapshot
	return nil
}

func (s *memStore) Delete(c context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.carts, identifier)
	return nil
}

type fakeCatalog struct {
	mu       sync.Mutex
	products map[uuid.UUID]catalog.Product
	variants map[uuid.UUID]catalog.Variant
	err      error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: map[uuid.UUID]catalog.Product{},
		variants: map[uuid.UUID]catalog.Variant{},
	}
}

func (f *fakeCatalog) FindProductById(
	c context.Context,
	productID uuid.UUID,
) (catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return catalog.Product{}, f.err
	}
	product, ok := f.products[productID]
	if !ok {
		return catalog.Product{}, inErrors.ErrProductNotFound
	}
	return product, nil
}

func (f *fakeCatalog) FindVariantById(
	c context.Context,
	productID, variantID uuid.UUID,
) (catalog.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return catalog.Variant{}, f.err
	}
	variant, ok := f.variants[variantID]
	if !ok || variant.ProductID != productID {
		return catalog.Variant{}, inErrors.ErrVariantNotFound
	}
	return variant, nil
}

func (f *fakeCatalog) addProduct(price float64, stock int32, active bool) catalog.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	product := catalog.Product{
		ID:     uuid.New(),
		Name:   "test product",
		Price:  decimal.NewFromFloat(price),
		Stock:  stock,
		Active: active,
	}
	f.products[product.ID] = product
	return product
}

func (f *fakeCatalog) addVariant(
	productID uuid.UUID,
	price float64,
	stock int32,
	active bool,
) catalog.Variant {
	f.mu.Lock()
	defer f.mu.Unlock()
	variant := catalog.Variant{
		ID:        uuid.New(),
		ProductID: productID,
		Name:      "test variant",
		Price:     decimal.NewFromFloat(price),
		Stock:     stock,
		Active:    active,
	}
	f.variants[variant.ID] = variant
	return variant
}

func testLimits() config.Cart {
	return config.Cart{
		MaxItems:              3,
		MaxQuantityPerItem:    5,
		TaxRate:               0.08,
		FreeShippingThreshold: 50.0,
		ShippingFee:           5.0,
		Currency:              "USD",
	}
}

func newTestService(t *testing.T) (*CartService, *memStore, *memStore, *fakeCatalog) {
	t.Helper()
	limits := testLimits()
	pricing, err := cart.NewPricing(
		limits.TaxRate,
		limits.FreeShippingThreshold,
		limits.ShippingFee,
		limits.Currency,
	)
	require.NoError(t, err)

	sessions := newMemStore(pricing)
	accounts := newMemStore(pricing)
	catalogClient := newFakeCatalog()
	return NewCartService(sessions, accounts, catalogClient, pricing, limits),
		sessions,
		accounts,
		catalogClient
}

func TestFindCartReturnsEmptyCartForUnknownIdentifier(t *testing.T) {
	cartService, _, _, _ := newTestService(t)
	c := context.Background()

	found, err := cartService.FindCart(c, Anonymous("session-1"))

	require.NoError(t, err)
	assert.Equal(t, "session-1", found.ID)
	assert.Empty(t, found.Items)
	assert.Equal(t, "0", found.Summary.TotalAmount.String())
}

func TestAddItemAppendsNewItem(t *testing.T) {
	cartService, sessions, _, catalogClient := newTestService(t)
	c := context.Background()
	product := catalogClient.addProduct(25.00, 10, true)

	updated, err := cartService.AddItem(c, Anonymous("session-1"), request.AddItem{
		ProductId: product.ID,
		Quantity:  2,
	})

	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, product.ID, updated.Items[0].ProductID)
	assert.Equal(t, int32(2), updated.Items[0].Quantity)
	assert.Equal(t, "50", updated.Items[0].TotalPrice.String())
	assert.Equal(t, "54", updated.Summary.TotalAmount.String())

	saved, ok := sessions.carts["session-1"]
	require.True(t, ok)
	assert.Equal(t, updated.Summary, saved.Summary)
}

func TestAddItemMergesMatchingConfiguration(t *testing.T) {
	cartService, _, _, catalogClient := newTestService(t)
	c := context.Background()
	id := Anonymous("session-1")
	product := catalogClient.addProduct(10.00, 10, true)
	param := request.AddItem{
		ProductId:     product.ID,
		Quantity:      2,
		SelectedColor: ptr("red"),
	}

	first, err := cartService.AddItem(c, id, param)
	require.NoError(t, err)
	second, err := cartService.AddItem(c, id, param)
	require.NoError(t, err)

	require.Len(t, second.Items, 1)
	assert.Equal(t, first.Items[0].ID, second.Items[0].ID)
	assert.Equal(t, int32(4), second.Items[0].Quantity)
	assert.Equal(t, "40", second.Items[0].TotalPrice.String())
}

func TestAddItemTreatsDifferentConfigurationsAsDistinct(t *testing.T) {
	cartService, _, _, catalogClient := newTestService(t)
	c := context.Background()
	id := Anonymous("session-1")
	product := catalogClient.addProduct(10.00, 10, true)

	_, err := cartService.AddItem(c, id, request.AddItem{
		ProductId:     product.ID,
		Quantity:      1,
		SelectedColor: ptr("red"),
	})
	require.NoError(t, err)
	updated, err := cartService.AddItem(c, id, request.AddItem{
		ProductId:     product.ID,
		Quantity:      1,
		SelectedColor: ptr("blue"),
	})
	require.NoError(t, err)

	assert.Len(t, updated.Items, 2)
}

func TestAddItemUsesVariantPriceAndStock(t *testing.T) {
	cartService, _, _, catalogClient := newTestService(t)
	c := context.Background()
	product := catalogClient.addProduct(10.00, 100, true)
	variant := catalogClient.addVariant(product.ID, 12.50, 2, true)

	updated, err := cartService.AddItem(c, Anonymous("session-1"), request.AddItem{
		ProductId: product.ID,
		VariantId: ptr(variant.ID),
		Quantity:  2,
	})

	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, "12.5", updated.Items[0].UnitPrice.String())
	assert.Equal(t, int32(2), updated.Items[0].ProductStock)

	// The variant holds only 2, regardless of the product's stock.
	_, err = cartService.AddItem(c, Anonymous("session-2"), request.AddItem{
		ProductId: product.ID,
		VariantId: ptr(variant.ID),
		Quantity:  3,
	})
	assert.ErrorIs(t, err, inErrors.ErrStockInsufficient)
}

func TestAddItemFailures(t *testing.T) {
	tests := []struct {
		name        string
		prepare     func(t *testing.T, cartService *CartService, catalogClient *fakeCatalog) request.AddItem
		expectedErr error
	}{
		{
			name: "given quantity below one should return invalid quantity",
			prepare: func(t *testing.T, cartService *CartService, catalogClient *fakeCatalog) request.AddItem {
				product := catalogClient.addProduct(10.00, 10, true)
				return request.AddItem{ProductId: product.ID, Quantity: 0}
			},
			expectedErr: inErrors.ErrInvalidQuantity,
		},
		{
			name: "given unknown product should return product not found",
			prepare: func(t *testing.T, cartService *CartService, catalogClient *fakeCatalog) request.AddItem {
				return request.AddItem{ProductId: uuid.New(), Quantity: 1}
			},
			expectedErr: inErrors.ErrProductNotFound,
		},
		{
			name: "given inactive product should return product inactive",
			prepare: func(t *testing.T, cartService *CartService, catalogClient *fakeCatalog) request.AddItem {
				product := catalogClient.addProduct(10.00, 10, false)
				return request.AddItem{ProductId: product.ID, Quantity: 1}
			},
			expectedErr: inErrors.ErrProductInactive,
		},
		{
			name: "given inactive variant should return variant inactive",
			prepare: func(t *testing.T, cartService *CartService, catalogClient *fakeCatalog) request.AddItem {
				product := catalogClient.addProduct(10.00, 10, true)
				variant := catalogClient.addVariant(product.ID, 10.00, 10, false)
				return request.AddItem{
					ProductId: product.ID,
					VariantId: ptr(variant.ID),
					Quantity:  1,
				}
			},
			expectedErr: inErrors.ErrVariantInactive,
		},
		{
			name: "given unknown variant should return variant not found",
			prepare: func(t *testing.T, cartService *CartService, catalogClient *fakeCatalog) request.AddItem {
				product := catalogClient.addProduct(10.00, 10, true)
				return request.AddItem{
					ProductId: product.ID,
					VariantId: ptr(uuid.New()),
					Quantity:  1,
				}
			},
			expectedErr: inErrors.ErrVariantNotFound,
		},
		{
			name: "given quantity above stock should return stock insufficient",
			prepare: func(t *testing.T, cartService *CartService, catalogClient *fakeCatalog) request.AddItem {
				product := catalogClient.addProduct(10.00, 2, true)
				return request.AddItem{ProductId: product.ID, Quantity: 3}
			},
			expectedErr: inErrors.ErrStockInsufficient,
		},
		{
			name: "given quantity above per item limit should return quantity limit exceeded",
			prepare: func(t *testing.T, cartService *CartService, catalogClient *fakeCatalog) request.AddItem {
				product := catalogClient.addProduct(10.00, 100, true)
				return request.AddItem{ProductId: product.ID, Quantity: 6}
			},
			expectedErr: inErrors.ErrQuantityLimitExceeded,
		},
		{
			name: "given merged quantity above per item limit should return quantity limit exceeded",
			prepare: func(t *testing.T, cartService *CartService, catalogClient *fakeCatalog) request.AddItem {
				product := catalogClient.addProduct(10.00, 100, true)
				param := request.AddItem{ProductId: product.ID, Quantity: 3}
				_, err := cartService.AddItem(context.Background(), Anonymous("session-1"), param)
				require.NoError(t, err)
				return param
			},
			expectedErr: inErrors.ErrQuantityLimitExceeded,
		},
		{
			name: "given cart at item limit should return cart limit exceeded",
			prepare: func(t *testing.T, cartService *CartService, catalogClient *fakeCatalog) request.AddItem {
				for range 3 {
					product := catalogClient.addProduct(10.00, 10, true)
					_, err := cartService.AddItem(
						context.Background(),
						Anonymous("session-1"),
						request.AddItem{ProductId: product.ID, Quantity: 1},
					)
					require.NoError(t, err)
				}
				product := catalogClient.addProduct(10.00, 10, true)
				return request.AddItem{ProductId: product.ID, Quantity: 1}
			},
			expectedErr: inErrors.ErrCartLimitExceeded,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cartService, sessions, _, catalogClient := newTestService(t)
			param := tt.prepare(t, cartService, catalogClient)
			before := len(sessions.carts)

			_, err := cartService.AddItem(context.Background(), Anonymous("session-1"), param)

			assert.ErrorIs(t, err, tt.expectedErr)
			// A rejected add never persists anything new.
			assert.Len(t, sessions.carts, before)
		})
	}
}

func TestUpdateItemQuantity(t *testing.T) {
	cartService, _, _, catalogClient := newTestService(t)
	c := context.Background()
	id := Anonymous("session-1")
	product := catalogClient.addProduct(10.00, 10, true)

	added, err := cartService.AddItem(c, id, request.AddItem{ProductId: product.ID, Quantity: 1})
	require.NoError(t, err)
	itemID := added.Items[0].ID

	updated, err := cartService.UpdateItemQuantity(c, id, itemID, 4)

	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, int32(4), updated.Items[0].Quantity)
	assert.Equal(t, "40", updated.Items[0].TotalPrice.String())
	assert.Equal(t, int32(4), updated.Summary.TotalQuantity)
}

func TestUpdateItemQuantityFailures(t *testing.T) {
	cartService, _, _, catalogClient := newTestService(t)
	c := context.Background()
	id := Anonymous("session-1")
	product := catalogClient.addProduct(10.00, 3, true)

	added, err := cartService.AddItem(c, id, request.AddItem{ProductId: product.ID, Quantity: 1})
	require.NoError(t, err)
	itemID := added.Items[0].ID

	_, err = cartService.UpdateItemQuantity(c, id, itemID, 0)
	assert.ErrorIs(t, err, inErrors.ErrInvalidQuantity)

	_, err = cartService.UpdateItemQuantity(c, id, itemID, 6)
	assert.ErrorIs(t, err, inErrors.ErrQuantityLimitExceeded)

	_, err = cartService.UpdateItemQuantity(c, id, itemID, 4)
	assert.ErrorIs(t, err, inErrors.ErrStockInsufficient)

	_, err = cartService.UpdateItemQuantity(c, id, uuid.New(), 2)
	assert.ErrorIs(t, err, inErrors.ErrItemNotFound)
}

func TestRemoveItemRestoresSummary(t *testing.T) {
	cartService, _, _, catalogClient := newTestService(t)
	c := context.Background()
	id := Anonymous("session-1")
	first := catalogClient.addProduct(25.00, 10, true)
	second := catalogClient.addProduct(9.99, 10, true)

	afterFirst, err := cartService.AddItem(c, id, request.AddItem{ProductId: first.ID, Quantity: 2})
	require.NoError(t, err)
	afterSecond, err := cartService.AddItem(c, id, request.AddItem{ProductId: second.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, afterSecond.Items, 2)

	removed, err := cartService.RemoveItem(c, id, afterSecond.Items[1].ID)

	require.NoError(t, err)
	require.Len(t, removed.Items, 1)
	assert.Equal(t, afterFirst.Items[0].ID, removed.Items[0].ID)
	assert.Equal(t, afterFirst.Summary.Subtotal.String(), removed.Summary.Subtotal.String())
	assert.Equal(t, afterFirst.Summary.TotalAmount.String(), removed.Summary.TotalAmount.String())
}

func TestRemoveItemNotFound(t *testing.T) {
	cartService, _, _, _ := newTestService(t)

	_, err := cartService.RemoveItem(context.Background(), Anonymous("session-1"), uuid.New())

	assert.ErrorIs(t, err, inErrors.ErrItemNotFound)
}

func TestClearCartIsIdempotent(t *testing.T) {
	cartService, sessions, _, catalogClient := newTestService(t)
	c := context.Background()
	id := Anonymous("session-1")
	product := catalogClient.addProduct(10.00, 10, true)

	_, err := cartService.AddItem(c, id, request.AddItem{ProductId: product.ID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, cartService.ClearCart(c, id))
	assert.Empty(t, sessions.carts)

	// Clearing an absent cart still succeeds.
	assert.NoError(t, cartService.ClearCart(c, id))
}

func TestCountItems(t *testing.T) {
	cartService, sessions, _, catalogClient := newTestService(t)
	c := context.Background()
	id := Anonymous("session-1")

	assert.Equal(t, 0, cartService.CountItems(c, id))

	first := catalogClient.addProduct(10.00, 10, true)
	second := catalogClient.addProduct(20.00, 10, true)
	_, err := cartService.AddItem(c, id, request.AddItem{ProductId: first.ID, Quantity: 3})
	require.NoError(t, err)
	_, err = cartService.AddItem(c, id, request.AddItem{ProductId: second.ID, Quantity: 1})
	require.NoError(t, err)

	// Distinct line items, not summed quantities.
	assert.Equal(t, 2, cartService.CountItems(c, id))

	sessions.loadErr = errors.New("cache unreachable")
	assert.Equal(t, 0, cartService.CountItems(c, id))
}

func TestAuthenticatedIdentityUsesAccountStore(t *testing.T) {
	cartService, sessions, accounts, catalogClient := newTestService(t)
	c := context.Background()
	accountID := uuid.New()
	product := catalogClient.addProduct(10.00, 10, true)

	_, err := cartService.AddItem(
		c,
		Authenticated(accountID),
		request.AddItem{ProductId: product.ID, Quantity: 1},
	)

	require.NoError(t, err)
	assert.Empty(t, sessions.carts)
	assert.Contains(t, accounts.carts, accountID.String())
}

func TestConcurrentAddItemSerializesPerIdentifier(t *testing.T) {
	cartService, _, _, catalogClient := newTestService(t)
	c := context.Background()
	id := Anonymous("session-1")
	product := catalogClient.addProduct(10.00, 100, true)
	cartService.limits.MaxQuantityPerItem = 100

	workers := 20
	wg := sync.WaitGroup{}
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			_, err := cartService.AddItem(c, id, request.AddItem{
				ProductId: product.ID,
				Quantity:  1,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	found, err := cartService.FindCart(c, id)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, int32(workers), found.Items[0].Quantity)
}
