package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	pgxuuid "github.com/vgarvardt/pgx-google-uuid/v5"

	"github.com/Alturino/cart/pkg/cart"
)

func setupAccountStore(t *testing.T, c context.Context) *AccountStore {
	t.Helper()

	pgContainer, err := postgres.Run(
		c,
		"postgres:16.6-alpine3.21",
		testcontainers.WithEnv(map[string]string{
			"POSTGRES_DB":       "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_PORT":     "5432",
			"POSTGRES_USER":     "postgres",
		}),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.WithDatabase("postgres"),
		postgres.BasicWaitStrategies(),
		postgres.WithInitScripts(
			filepath.Join("..", "..", "migrations", "20250812093041_create_table_cart_items.up.sql"),
		),
	)
	if err != nil {
		t.Fatalf("failed running postgres container with error: %s", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	})

	pgConnStr, err := pgContainer.ConnectionString(c)
	if err != nil {
		t.Fatalf("failed getting postgres connection string with error: %s", err)
	}

	pgConfig, err := pgxpool.ParseConfig(pgConnStr)
	if err != nil {
		t.Fatalf("failed parsing pgconfig with error: %s", err)
	}
	pgConfig.AfterConnect = func(c context.Context, conn *pgx.Conn) error {
		pgxuuid.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(c, pgConfig)
	if err != nil {
		t.Fatalf("failed initializing postgres pool with error: %s", err)
	}
	if err = pool.Ping(c); err != nil {
		t.Fatalf("failed ping postgres pool with error: %s", err)
	}
	t.Cleanup(pool.Close)

	pricing, err := cart.NewPricing(0.08, 50.0, 5.0, "USD")
	require.NoError(t, err)

	return NewAccountStore(pool, pricing)
}

func accountItem(unitPrice float64, quantity int32, createdAt time.Time) cart.LineItem {
	item := cart.LineItem{
		ID:                 uuid.New(),
		ProductID:          uuid.New(),
		DiscountPercentage: decimal.Zero,
		UnitPrice:          decimal.NewFromFloat(unitPrice),
		ProductName:        "test product",
		ProductImage:       "https://example.com/product.png",
		ProductActive:      true,
		ProductStock:       10,
		CreatedAt:          createdAt,
	}
	return item.WithQuantity(quantity, createdAt)
}

func accountSnapshot(
	store *AccountStore,
	accountID uuid.UUID,
	items []cart.LineItem,
) cart.Cart {
	snapshot := cart.New(accountID.String(), store.pricing)
	snapshot.AccountID = &accountID
	return snapshot.WithItems(items, store.pricing, time.Now())
}

func TestAccountStoreLoadUnknownAccount(t *testing.T) {
	c := context.Background()
	accountStore := setupAccountStore(t, c)
	accountID := uuid.New()

	loaded, err := accountStore.Load(c, accountID.String())

	require.NoError(t, err)
	assert.Equal(t, accountID.String(), loaded.ID)
	require.NotNil(t, loaded.AccountID)
	assert.Equal(t, accountID, *loaded.AccountID)
	assert.Empty(t, loaded.Items)
}

func TestAccountStoreLoadInvalidIdentifier(t *testing.T) {
	c := context.Background()
	accountStore := setupAccountStore(t, c)

	_, err := accountStore.Load(c, "not-an-account-id")

	assert.Error(t, err)
}

func TestAccountStoreSaveThenLoad(t *testing.T) {
	c := context.Background()
	accountStore := setupAccountStore(t, c)
	accountID := uuid.New()

	now := time.Now().Truncate(time.Microsecond)
	first := accountItem(19.99, 2, now)
	second := accountItem(4.50, 1, now.Add(time.Second))
	second.VariantID = ptrUUID(uuid.New())
	second.SelectedColor = ptrString("red")
	second.SelectedSize = ptrString("M")
	snapshot := accountSnapshot(accountStore, accountID, []cart.LineItem{first, second})

	require.NoError(t, accountStore.Save(c, snapshot))
	loaded, err := accountStore.Load(c, accountID.String())

	require.NoError(t, err)
	require.Len(t, loaded.Items, 2)

	// Insertion order survives the roundtrip.
	assert.Equal(t, first.ID, loaded.Items[0].ID)
	assert.Equal(t, second.ID, loaded.Items[1].ID)

	assert.True(t, loaded.Items[0].UnitPrice.Equal(first.UnitPrice))
	assert.True(t, loaded.Items[0].TotalPrice.Equal(first.TotalPrice))
	assert.Equal(t, first.Quantity, loaded.Items[0].Quantity)
	assert.Nil(t, loaded.Items[0].VariantID)
	assert.Nil(t, loaded.Items[0].SelectedColor)

	require.NotNil(t, loaded.Items[1].VariantID)
	assert.Equal(t, *second.VariantID, *loaded.Items[1].VariantID)
	require.NotNil(t, loaded.Items[1].SelectedColor)
	assert.Equal(t, "red", *loaded.Items[1].SelectedColor)
	require.NotNil(t, loaded.Items[1].SelectedSize)
	assert.Equal(t, "M", *loaded.Items[1].SelectedSize)

	assert.True(t, loaded.Summary.Subtotal.Equal(snapshot.Summary.Subtotal))
	assert.WithinDuration(t, second.UpdatedAt, loaded.LastModifiedAt, time.Millisecond)
}

func TestAccountStoreSaveReplacesItems(t *testing.T) {
	c := context.Background()
	accountStore := setupAccountStore(t, c)
	accountID := uuid.New()
	now := time.Now().Truncate(time.Microsecond)

	initial := accountSnapshot(accountStore, accountID, []cart.LineItem{
		accountItem(10.00, 1, now),
		accountItem(20.00, 2, now),
	})
	require.NoError(t, accountStore.Save(c, initial))

	replacement := accountItem(5.00, 3, now.Add(time.Second))
	require.NoError(
		t,
		accountStore.Save(c, accountSnapshot(accountStore, accountID, []cart.LineItem{replacement})),
	)

	loaded, err := accountStore.Load(c, accountID.String())
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, replacement.ID, loaded.Items[0].ID)
	assert.Equal(t, int32(3), loaded.Items[0].Quantity)
}

func TestAccountStoreSaveEmptySnapshotClearsItems(t *testing.T) {
	c := context.Background()
	accountStore := setupAccountStore(t, c)
	accountID := uuid.New()
	now := time.Now().Truncate(time.Microsecond)

	initial := accountSnapshot(accountStore, accountID, []cart.LineItem{accountItem(10.00, 1, now)})
	require.NoError(t, accountStore.Save(c, initial))

	require.NoError(t, accountStore.Save(c, accountSnapshot(accountStore, accountID, nil)))

	loaded, err := accountStore.Load(c, accountID.String())
	require.NoError(t, err)
	assert.Empty(t, loaded.Items)
}

func TestAccountStoreDelete(t *testing.T) {
	c := context.Background()
	accountStore := setupAccountStore(t, c)
	accountID := uuid.New()
	now := time.Now().Truncate(time.Microsecond)

	initial := accountSnapshot(accountStore, accountID, []cart.LineItem{accountItem(10.00, 1, now)})
	require.NoError(t, accountStore.Save(c, initial))

	require.NoError(t, accountStore.Delete(c, accountID.String()))

	loaded, err := accountStore.Load(c, accountID.String())
	require.NoError(t, err)
	assert.Empty(t, loaded.Items)

	// Deleting an absent cart still succeeds.
	assert.NoError(t, accountStore.Delete(c, accountID.String()))
}

func TestAccountStoreIsolatesAccounts(t *testing.T) {
	c := context.Background()
	accountStore := setupAccountStore(t, c)
	firstAccount := uuid.New()
	secondAccount := uuid.New()
	now := time.Now().Truncate(time.Microsecond)

	require.NoError(t, accountStore.Save(c, accountSnapshot(
		accountStore,
		firstAccount,
		[]cart.LineItem{accountItem(10.00, 1, now)},
	)))
	require.NoError(t, accountStore.Save(c, accountSnapshot(
		accountStore,
		secondAccount,
		[]cart.LineItem{accountItem(20.00, 2, now)},
	)))

	require.NoError(t, accountStore.Delete(c, firstAccount.String()))

	loaded, err := accountStore.Load(c, secondAccount.String())
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, int32(2), loaded.Items[0].Quantity)
}

func ptrUUID(id uuid.UUID) *uuid.UUID {
	return &id
}

func ptrString(s string) *string {
	return &s
}
