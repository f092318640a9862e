package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Alturino/cart/internal/catalog"
	"github.com/Alturino/cart/internal/config"
	inErrors "github.com/Alturino/cart/internal/errors"
	"github.com/Alturino/cart/internal/log"
	"github.com/Alturino/cart/internal/otel"
	"github.com/Alturino/cart/internal/store"
	"github.com/Alturino/cart/pkg/cart"
	"github.com/Alturino/cart/pkg/request"
)

// CartService orchestrates cart reads and mutations over the two storage
// backends. Every mutation runs under the identifier's lock, rebuilds the
// item list as a new snapshot, recomputes the summary and persists the whole
// cart; loaded carts are never mutated in place.
type CartService struct {
	sessions store.CartStore
	accounts store.CartStore
	catalog  catalog.Client
	pricing  cart.Pricing
	limits   config.Cart
	locks    keyMutex
}

func NewCartService(
	sessions store.CartStore,
	accounts store.CartStore,
	catalogClient catalog.Client,
	pricing cart.Pricing,
	limits config.Cart,
) *CartService {
	return &CartService{
		sessions: sessions,
		accounts: accounts,
		catalog:  catalogClient,
		pricing:  pricing,
		limits:   limits,
	}
}

func (s *CartService) storeFor(id Identity) store.CartStore {
	if id.Authenticated {
		return s.accounts
	}
	return s.sessions
}

func (s *CartService) FindCart(c context.Context, id Identity) (cart.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService FindCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "CartService FindCart").
		Str(log.KEY_CART_ID, id.Key()).
		Logger()

	logger = logger.With().Str(log.KEY_PROCESS, "loading cart").Logger()
	logger.Info().Msg("loading cart")
	loaded, err := s.storeFor(id).Load(c, id.Key())
	if err != nil {
		err = fmt.Errorf("failed loading cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}
	logger.Info().Msg("loaded cart")

	// The persisted summary may predate a policy change; derive it again.
	return loaded.WithItems(loaded.Items, s.pricing, loaded.LastModifiedAt), nil
}

func (s *CartService) AddItem(
	c context.Context,
	id Identity,
	param request.AddItem,
) (cart.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService AddItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "CartService AddItem").
		Str(log.KEY_CART_ID, id.Key()).
		Str(log.KEY_PRODUCT_ID, param.ProductId.String()).
		Int32(log.KEY_QUANTITY, param.Quantity).
		Logger()

	if param.Quantity < 1 {
		err := fmt.Errorf(
			"failed adding item with quantity=%d with error=%w",
			param.Quantity,
			inErrors.ErrInvalidQuantity,
		)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}

	unlock := s.locks.Lock(id.Key())
	defer unlock()

	logger = logger.With().Str(log.KEY_PROCESS, "validating catalog state").Logger()
	logger.Info().Msg("validating catalog state")
	product, variant, err := s.resolveCatalogState(c, param.ProductId, param.VariantId)
	if err != nil {
		err = fmt.Errorf("failed validating catalog state with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}
	logger.Info().Msg("validated catalog state")

	logger = logger.With().Str(log.KEY_PROCESS, "loading cart").Logger()
	logger.Info().Msg("loading cart")
	loaded, err := s.storeFor(id).Load(c, id.Key())
	if err != nil {
		err = fmt.Errorf("failed loading cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}
	logger.Info().Msg("loaded cart")

	now := time.Now()
	candidate := newLineItem(param, product, variant, now)
	stock := availableStock(product, variant)

	items := make([]cart.LineItem, len(loaded.Items))
	copy(items, loaded.Items)

	matchIdx := cart.FindMatch(items, candidate)
	if matchIdx >= 0 {
		existing := items[matchIdx]
		mergedQuantity := existing.Quantity + param.Quantity
		logger = logger.With().
			Str(log.KEY_PROCESS, "merging quantity into existing item").
			Str(log.KEY_CART_ITEM_ID, existing.ID.String()).
			Int32(log.KEY_MERGED_QUANTITY, mergedQuantity).
			Logger()
		logger.Info().Msg("item matches existing configuration, merging quantity")
		if mergedQuantity > s.limits.MaxQuantityPerItem {
			err = fmt.Errorf(
				"failed merging quantity=%d with error=%w",
				mergedQuantity,
				inErrors.ErrQuantityLimitExceeded,
			)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return cart.Cart{}, err
		}
		if mergedQuantity > stock {
			err = fmt.Errorf(
				"failed merging quantity=%d stock=%d with error=%w",
				mergedQuantity,
				stock,
				inErrors.ErrStockInsufficient,
			)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return cart.Cart{}, err
		}
		items[matchIdx] = existing.WithQuantity(mergedQuantity, now)
	} else {
		logger = logger.With().Str(log.KEY_PROCESS, "appending new item").Logger()
		if len(items) >= int(s.limits.MaxItems) {
			err = fmt.Errorf(
				"failed adding item to cart with %d items with error=%w",
				len(items),
				inErrors.ErrCartLimitExceeded,
			)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return cart.Cart{}, err
		}
		if param.Quantity > s.limits.MaxQuantityPerItem {
			err = fmt.Errorf(
				"failed adding item with quantity=%d with error=%w",
				param.Quantity,
				inErrors.ErrQuantityLimitExceeded,
			)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return cart.Cart{}, err
		}
		if param.Quantity > stock {
			err = fmt.Errorf(
				"failed adding item with quantity=%d stock=%d with error=%w",
				param.Quantity,
				stock,
				inErrors.ErrStockInsufficient,
			)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return cart.Cart{}, err
		}
		items = append(items, candidate)
	}

	updated := loaded.WithItems(items, s.pricing, now)

	logger = logger.With().Str(log.KEY_PROCESS, "saving cart").Logger()
	logger.Info().Msg("saving cart")
	err = s.storeFor(id).Save(c, updated)
	if err != nil {
		err = fmt.Errorf("failed saving cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}
	logger = logger.With().Any(log.KEY_CART_SUMMARY, updated.Summary).Logger()
	logger.Info().Msg("saved cart")

	return updated, nil
}

func (s *CartService) UpdateItemQuantity(
	c context.Context,
	id Identity,
	itemID uuid.UUID,
	quantity int32,
) (cart.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService UpdateItemQuantity")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "CartService UpdateItemQuantity").
		Str(log.KEY_CART_ID, id.Key()).
		Str(log.KEY_CART_ITEM_ID, itemID.String()).
		Int32(log.KEY_QUANTITY, quantity).
		Logger()

	if quantity < 1 {
		err := fmt.Errorf(
			"failed updating item with quantity=%d with error=%w",
			quantity,
			inErrors.ErrInvalidQuantity,
		)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}
	if quantity > s.limits.MaxQuantityPerItem {
		err := fmt.Errorf(
			"failed updating item with quantity=%d with error=%w",
			quantity,
			inErrors.ErrQuantityLimitExceeded,
		)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}

	unlock := s.locks.Lock(id.Key())
	defer unlock()

	logger = logger.With().Str(log.KEY_PROCESS, "loading cart").Logger()
	logger.Info().Msg("loading cart")
	loaded, err := s.storeFor(id).Load(c, id.Key())
	if err != nil {
		err = fmt.Errorf("failed loading cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}
	logger.Info().Msg("loaded cart")

	idx := loaded.FindItem(itemID)
	if idx < 0 {
		err = fmt.Errorf(
			"failed finding cartItemId=%s with error=%w",
			itemID.String(),
			inErrors.ErrItemNotFound,
		)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}
	existing := loaded.Items[idx]

	// Stock is re-validated against the current catalog state, not the
	// denormalized snapshot taken at add time.
	logger = logger.With().Str(log.KEY_PROCESS, "revalidating catalog state").Logger()
	logger.Info().Msg("revalidating catalog state")
	product, variant, err := s.resolveCatalogState(c, existing.ProductID, existing.VariantID)
	if err != nil {
		err = fmt.Errorf("failed revalidating catalog state with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}
	stock := availableStock(product, variant)
	if quantity > stock {
		err = fmt.Errorf(
			"failed updating item with quantity=%d stock=%d with error=%w",
			quantity,
			stock,
			inErrors.ErrStockInsufficient,
		)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}
	logger.Info().Msg("revalidated catalog state")

	now := time.Now()
	items := make([]cart.LineItem, len(loaded.Items))
	copy(items, loaded.Items)
	refreshed := existing.WithQuantity(quantity, now)
	refreshed.ProductStock = stock
	refreshed.ProductActive = product.Active
	items[idx] = refreshed

	updated := loaded.WithItems(items, s.pricing, now)

	logger = logger.With().Str(log.KEY_PROCESS, "saving cart").Logger()
	logger.Info().Msg("saving cart")
	err = s.storeFor(id).Save(c, updated)
	if err != nil {
		err = fmt.Errorf("failed saving cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}
	logger.Info().Msg("saved cart")

	return updated, nil
}

func (s *CartService) RemoveItem(
	c context.Context,
	id Identity,
	itemID uuid.UUID,
) (cart.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService RemoveItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "CartService RemoveItem").
		Str(log.KEY_CART_ID, id.Key()).
		Str(log.KEY_CART_ITEM_ID, itemID.String()).
		Logger()

	unlock := s.locks.Lock(id.Key())
	defer unlock()

	logger = logger.With().Str(log.KEY_PROCESS, "loading cart").Logger()
	logger.Info().Msg("loading cart")
	loaded, err := s.storeFor(id).Load(c, id.Key())
	if err != nil {
		err = fmt.Errorf("failed loading cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}
	logger.Info().Msg("loaded cart")

	idx := loaded.FindItem(itemID)
	if idx < 0 {
		err = fmt.Errorf(
			"failed finding cartItemId=%s with error=%w",
			itemID.String(),
			inErrors.ErrItemNotFound,
		)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}

	now := time.Now()
	items := make([]cart.LineItem, 0, len(loaded.Items)-1)
	items = append(items, loaded.Items[:idx]...)
	items = append(items, loaded.Items[idx+1:]...)
	updated := loaded.WithItems(items, s.pricing, now)

	logger = logger.With().Str(log.KEY_PROCESS, "saving cart").Logger()
	logger.Info().Msg("saving cart")
	err = s.storeFor(id).Save(c, updated)
	if err != nil {
		err = fmt.Errorf("failed saving cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}
	logger.Info().Msg("saved cart")

	return updated, nil
}

// ClearCart removes the cart entry unconditionally. Clearing an absent or
// already-empty cart succeeds.
func (s *CartService) ClearCart(c context.Context, id Identity) error {
	c, span := otel.Tracer.Start(c, "CartService ClearCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "CartService ClearCart").
		Str(log.KEY_CART_ID, id.Key()).
		Str(log.KEY_PROCESS, "deleting cart").
		Logger()

	unlock := s.locks.Lock(id.Key())
	defer unlock()

	logger.Info().Msg("deleting cart")
	err := s.storeFor(id).Delete(c, id.Key())
	if err != nil {
		err = fmt.Errorf("failed deleting cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("deleted cart")

	return nil
}

// CountItems returns the number of distinct line items. On failure it returns
// zero instead of the error so a cart indicator never breaks the page; this
// is a deliberate exception to normal error propagation.
func (s *CartService) CountItems(c context.Context, id Identity) int {
	c, span := otel.Tracer.Start(c, "CartService CountItems")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "CartService CountItems").
		Str(log.KEY_CART_ID, id.Key()).
		Logger()

	loaded, err := s.storeFor(id).Load(c, id.Key())
	if err != nil {
		err = fmt.Errorf("failed loading cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg("failed counting items, falling back to zero")
		return 0
	}
	return len(loaded.Items)
}

// resolveCatalogState validates the product and, when selected, its variant
// concurrently against the catalog. It also enforces active flags.
func (s *CartService) resolveCatalogState(
	c context.Context,
	productID uuid.UUID,
	variantID *uuid.UUID,
) (catalog.Product, *catalog.Variant, error) {
	var product catalog.Product
	var variant *catalog.Variant

	g, gc := errgroup.WithContext(c)
	g.Go(func() error {
		found, err := s.catalog.FindProductById(gc, productID)
		if err != nil {
			return err
		}
		product = found
		return nil
	})
	if variantID != nil {
		g.Go(func() error {
			found, err := s.catalog.FindVariantById(gc, productID, *variantID)
			if err != nil {
				return err
			}
			variant = &found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return catalog.Product{}, nil, err
	}

	if !product.Active {
		return catalog.Product{}, nil, fmt.Errorf(
			"productId=%s is inactive with error=%w",
			productID.String(),
			inErrors.ErrProductInactive,
		)
	}
	if variant != nil && !variant.Active {
		return catalog.Product{}, nil, fmt.Errorf(
			"variantId=%s is inactive with error=%w",
			variantID.String(),
			inErrors.ErrVariantInactive,
		)
	}
	return product, variant, nil
}

// availableStock prefers the variant's stock over the product's when a
// variant is selected; same for price in newLineItem. The variant is the
// narrower, fresher catalog read.
func availableStock(product catalog.Product, variant *catalog.Variant) int32 {
	if variant != nil {
		return variant.Stock
	}
	return product.Stock
}

func newLineItem(
	param request.AddItem,
	product catalog.Product,
	variant *catalog.Variant,
	now time.Time,
) cart.LineItem {
	unitPrice := product.Price
	if variant != nil {
		unitPrice = variant.Price
	}
	item := cart.LineItem{
		ID:                 uuid.New(),
		ProductID:          param.ProductId,
		VariantID:          param.VariantId,
		SelectedColor:      param.SelectedColor,
		SelectedSize:       param.SelectedSize,
		UnitPrice:          unitPrice,
		DiscountPercentage: product.DiscountPercentage,
		ProductName:        product.Name,
		ProductImage:       product.ImageUrl,
		ProductActive:      product.Active,
		ProductStock:       availableStock(product, variant),
		CreatedAt:          now,
	}
	return item.WithQuantity(param.Quantity, now)
}
