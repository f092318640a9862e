package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Alturino/cart/internal/log"
	"github.com/Alturino/cart/internal/otel"
	"github.com/Alturino/cart/pkg/cart"
)

// AccountStore backs authenticated carts with per-account line-item rows in
// postgres. It is the source of truth for account carts; a cart is
// reconstructed by listing the account's rows and recomputing the summary.
type AccountStore struct {
	pool    *pgxpool.Pool
	pricing cart.Pricing
}

func NewAccountStore(pool *pgxpool.Pool, pricing cart.Pricing) *AccountStore {
	return &AccountStore{pool: pool, pricing: pricing}
}

const listItemsQuery = `
SELECT id, product_id, variant_id, quantity, selected_color, selected_size,
       unit_price, total_price, discount_percentage,
       product_name, product_image, product_active, product_stock,
       created_at, updated_at
FROM cart_items
WHERE account_id = $1
ORDER BY created_at, id`

const insertItemQuery = `
INSERT INTO cart_items (
	id, account_id, product_id, variant_id, quantity,
	selected_color, selected_size,
	unit_price, total_price, discount_percentage,
	product_name, product_image, product_active, product_stock,
	created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

const deleteAllItemsQuery = `DELETE FROM cart_items WHERE account_id = $1`

func (s *AccountStore) Load(c context.Context, identifier string) (cart.Cart, error) {
	c, span := otel.Tracer.Start(c, "AccountStore Load")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "AccountStore Load").
		Str(log.KEY_ACCOUNT_ID, identifier).
		Logger()

	accountID, err := uuid.Parse(identifier)
	if err != nil {
		err = fmt.Errorf("failed parsing accountId=%s with error=%w", identifier, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}

	items, err := s.ListItemsForAccount(c, accountID)
	if err != nil {
		err = fmt.Errorf("failed listing cart items with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}
	logger.Info().Msgf("found %d cart items", len(items))

	loaded := cart.New(identifier, s.pricing)
	loaded.AccountID = &accountID
	if len(items) == 0 {
		return loaded, nil
	}

	lastModified := items[0].UpdatedAt
	for _, item := range items {
		if item.UpdatedAt.After(lastModified) {
			lastModified = item.UpdatedAt
		}
	}
	return loaded.WithItems(items, s.pricing, lastModified), nil
}

// ListItemsForAccount reads the account's line-item rows in insertion order.
func (s *AccountStore) ListItemsForAccount(
	c context.Context,
	accountID uuid.UUID,
) ([]cart.LineItem, error) {
	rows, err := s.pool.Query(c, listItemsQuery, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []cart.LineItem{}
	for rows.Next() {
		item := cart.LineItem{}
		var unitPrice, totalPrice, discountPct pgtype.Numeric
		err = rows.Scan(
			&item.ID,
			&item.ProductID,
			&item.VariantID,
			&item.Quantity,
			&item.SelectedColor,
			&item.SelectedSize,
			&unitPrice,
			&totalPrice,
			&discountPct,
			&item.ProductName,
			&item.ProductImage,
			&item.ProductActive,
			&item.ProductStock,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		item.UnitPrice = decimal.NewFromBigInt(unitPrice.Int, unitPrice.Exp)
		item.TotalPrice = decimal.NewFromBigInt(totalPrice.Int, totalPrice.Exp)
		item.DiscountPercentage = decimal.NewFromBigInt(discountPct.Int, discountPct.Exp)
		items = append(items, item)
	}
	return items, rows.Err()
}

// Save replaces the account's item rows with the snapshot's items inside one
// transaction. Merge relies on this: either every merged item is persisted or
// none is.
func (s *AccountStore) Save(c context.Context, snapshot cart.Cart) error {
	c, span := otel.Tracer.Start(c, "AccountStore Save")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "AccountStore Save").
		Str(log.KEY_ACCOUNT_ID, snapshot.ID).
		Int(log.KEY_CART_ITEMS, len(snapshot.Items)).
		Logger()

	accountID, err := uuid.Parse(snapshot.ID)
	if err != nil {
		err = fmt.Errorf("failed parsing accountId=%s with error=%w", snapshot.ID, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger = logger.With().Str(log.KEY_PROCESS, "initializing transaction").Logger()
	logger.Info().Msg("initializing transaction")
	tx, err := s.pool.BeginTx(c, pgx.TxOptions{})
	if err != nil {
		err = fmt.Errorf("failed initializing transaction with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	defer func() {
		rollbackErr := tx.Rollback(c)
		if rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			rollbackErr = fmt.Errorf("failed rolling back transaction with error=%w", rollbackErr)
			otel.RecordError(rollbackErr, span)
			logger.Error().Err(rollbackErr).Msg(rollbackErr.Error())
		}
	}()

	logger = logger.With().Str(log.KEY_PROCESS, "replacing cart items").Logger()
	logger.Info().Msg("replacing cart items")
	_, err = tx.Exec(c, deleteAllItemsQuery, accountID)
	if err != nil {
		err = fmt.Errorf("failed deleting cart items with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	batch := &pgx.Batch{}
	for _, item := range snapshot.Items {
		batch.Queue(
			insertItemQuery,
			item.ID,
			accountID,
			item.ProductID,
			item.VariantID,
			item.Quantity,
			item.SelectedColor,
			item.SelectedSize,
			numeric(item.UnitPrice),
			numeric(item.TotalPrice),
			numeric(item.DiscountPercentage),
			item.ProductName,
			item.ProductImage,
			item.ProductActive,
			item.ProductStock,
			item.CreatedAt,
			item.UpdatedAt,
		)
	}
	err = tx.SendBatch(c, batch).Close()
	if err != nil {
		err = fmt.Errorf("failed inserting cart items with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("replaced cart items")

	logger = logger.With().Str(log.KEY_PROCESS, "committing transaction").Logger()
	logger.Info().Msg("committing transaction")
	err = tx.Commit(c)
	if err != nil {
		err = fmt.Errorf("failed committing transaction with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("committed transaction")

	return nil
}

func (s *AccountStore) Delete(c context.Context, identifier string) error {
	c, span := otel.Tracer.Start(c, "AccountStore Delete")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "AccountStore Delete").
		Str(log.KEY_ACCOUNT_ID, identifier).
		Logger()

	accountID, err := uuid.Parse(identifier)
	if err != nil {
		err = fmt.Errorf("failed parsing accountId=%s with error=%w", identifier, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	_, err = s.pool.Exec(c, deleteAllItemsQuery, accountID)
	if err != nil {
		err = fmt.Errorf("failed deleting cart items with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("deleted cart items")

	return nil
}

func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{
		Exp:              d.Exponent(),
		InfinityModifier: pgtype.Finite,
		Int:              d.Coefficient(),
		NaN:              false,
		Valid:            true,
	}
}
