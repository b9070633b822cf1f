package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/internal/sessions"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordedMutation struct {
	op  string
	err error
}

type mutationLog struct {
	entries []recordedMutation
}

func (m *mutationLog) CartMutation(op string, err error) {
	m.entries = append(m.entries, recordedMutation{op: op, err: err})
}

func newTestService(t *testing.T) (*service, *gorm.DB, *mutationLog) {
	t.Helper()
	conn := dbtest.SQLite(t)
	store, err := sessions.NewStore(sessions.NewRepository(conn), config.SessionConfig{})
	require.NoError(t, err)
	log := &mutationLog{}
	svc, err := NewService(NewRepository(conn), db.NewFromGorm(conn, time.Second), store, log)
	require.NoError(t, err)
	return svc.(*service), conn, log
}

func seedCart(t *testing.T, conn *gorm.DB, cart models.Cart) models.Cart {
	t.Helper()
	require.NoError(t, conn.Create(&cart).Error)
	return cart
}

func strPtr(v string) *string { return &v }
func int64Ptr(v int64) *int64 { return &v }

func TestAddItemStoresLineTotal(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	seedCart(t, conn, models.Cart{ID: 42, SessionID: strPtr("s-42")})
	require.NoError(t, conn.Create(&models.Product{ID: 1, Title: "Tea"}).Error)
	require.NoError(t, conn.Create(&models.Item{ID: 7, ProductID: 1, SKU: "TEA-7", Price: decimal.RequireFromString("10.00"), Stock: 10}).Error)

	unit := decimal.RequireFromString("10.00")
	line, err := svc.AddItem(ctx, 42, 7, 2, unit)
	require.NoError(t, err)
	assert.Equal(t, 2, line.Quantity)
	assert.True(t, line.Price.Equal(decimal.RequireFromString("20.00")), line.Price.String())

	line, err = svc.AddItem(ctx, 42, 7, 1, unit)
	require.NoError(t, err)
	assert.Equal(t, 3, line.Quantity)
	assert.True(t, line.Price.Equal(decimal.RequireFromString("30.00")), line.Price.String())

	items, err := svc.ListItems(ctx, 42)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(7), items[0].ItemID)
	assert.Equal(t, int64(1), items[0].ProductID)
	assert.Equal(t, "Tea", items[0].Title)
	assert.Equal(t, 3, items[0].Quantity)
	assert.True(t, items[0].Price.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, 10, items[0].Stock)
}

func TestAddItemRejectsNegativeResult(t *testing.T) {
	svc, conn, log := newTestService(t)
	ctx := context.Background()
	cart := seedCart(t, conn, models.Cart{SessionID: strPtr("s")})
	item := dbtest.SeedItem(t, conn, "Pen", "1.50", 5)

	_, err := svc.AddItem(ctx, cart.ID, item.ID, 1, item.Price)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, cart.ID, item.ID, -2, item.Price)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	line, err := svc.repo.FindLine(ctx, cart.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)

	require.Len(t, log.entries, 2)
	assert.NoError(t, log.entries[0].err)
	assert.Error(t, log.entries[1].err)
}

func TestAddItemToZeroRemovesLine(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	cart := seedCart(t, conn, models.Cart{SessionID: strPtr("s")})
	item := dbtest.SeedItem(t, conn, "Pen", "1.50", 5)

	_, err := svc.AddItem(ctx, cart.ID, item.ID, 2, item.Price)
	require.NoError(t, err)
	line, err := svc.AddItem(ctx, cart.ID, item.ID, -2, item.Price)
	require.NoError(t, err)
	assert.Nil(t, line)

	_, err = svc.repo.FindLine(ctx, cart.ID, item.ID)
	assert.True(t, db.IsNotFound(err))
}

func TestSetQuantityRecomputesTotal(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	cart := seedCart(t, conn, models.Cart{SessionID: strPtr("s")})
	item := dbtest.SeedItem(t, conn, "Pen", "2.25", 5)

	_, err := svc.AddItem(ctx, cart.ID, item.ID, 1, item.Price)
	require.NoError(t, err)
	line, err := svc.SetQuantity(ctx, cart.ID, item.ID, 4, item.Price)
	require.NoError(t, err)
	assert.True(t, line.Price.Equal(decimal.RequireFromString("9.00")))

	_, err = svc.SetQuantity(ctx, cart.ID, item.ID, -1, item.Price)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestMutationsOnUnknownCart(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.AddItem(context.Background(), 999, 1, 1, decimal.NewFromInt(1))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.AddItem(context.Background(), 999, 1, 1, decimal.NewFromInt(-1))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	cart := seedCart(t, conn, models.Cart{SessionID: strPtr("s")})
	item := dbtest.SeedItem(t, conn, "Pen", "1.00", 5)

	_, err := svc.AddItem(ctx, cart.ID, item.ID, 1, item.Price)
	require.NoError(t, err)
	require.NoError(t, svc.RemoveItem(ctx, cart.ID, item.ID))
	require.NoError(t, svc.RemoveItem(ctx, cart.ID, item.ID))

	view, err := svc.View(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.True(t, view.Subtotal.IsZero())
}

func TestClearKeepsCartRow(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	cart := seedCart(t, conn, models.Cart{SessionID: strPtr("s")})
	a := dbtest.SeedItem(t, conn, "A", "1.00", 5)
	b := dbtest.SeedItem(t, conn, "B", "2.00", 5)

	_, err := svc.AddItem(ctx, cart.ID, a.ID, 1, a.Price)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, cart.ID, b.ID, 2, b.Price)
	require.NoError(t, err)

	view, err := svc.View(ctx, cart.ID)
	require.NoError(t, err)
	assert.True(t, view.Subtotal.Equal(decimal.NewFromInt(5)))

	require.NoError(t, svc.Clear(ctx, cart.ID))
	_, err = svc.repo.FindByID(ctx, cart.ID)
	require.NoError(t, err)
	lines, err := svc.repo.Lines(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestGetOrCreateCartForGuest(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.GetOrCreateCart(ctx, identity.Guest(""))
	require.NoError(t, err)
	require.NotNil(t, first.Session, "a sessionless guest gets a new session")
	require.NotNil(t, first.Cart.SessionID)
	assert.Equal(t, first.Session.ID, *first.Cart.SessionID)

	again, err := svc.GetOrCreateCart(ctx, identity.Guest(first.Session.ID))
	require.NoError(t, err)
	assert.Nil(t, again.Session)
	assert.Equal(t, first.Cart.ID, again.Cart.ID)
}

func TestGetOrCreateCartForCustomer(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	customer := dbtest.SeedCustomer(t, conn, "a@example.com")
	who := identity.Identity{Kind: identity.KindAuthenticated, CustomerID: customer.ID, SessionID: "s"}

	first, err := svc.GetOrCreateCart(ctx, who)
	require.NoError(t, err)
	require.NotNil(t, first.Cart.CustomerID)
	assert.Equal(t, customer.ID, *first.Cart.CustomerID)
	assert.Nil(t, first.Session)

	again, err := svc.GetOrCreateCart(ctx, who)
	require.NoError(t, err)
	assert.Equal(t, first.Cart.ID, again.Cart.ID)
}

func TestBindSessionCartTx(t *testing.T) {
	ctx := context.Background()

	t.Run("guest cart gains customer", func(t *testing.T) {
		svc, conn, _ := newTestService(t)
		customer := dbtest.SeedCustomer(t, conn, "g@example.com")
		guest := seedCart(t, conn, models.Cart{SessionID: strPtr("S")})

		var bound *models.Cart
		err := db.NewFromGorm(conn, 0).WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			bound, err = svc.BindSessionCartTx(ctx, tx, "S", customer.ID)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, guest.ID, bound.ID)

		reloaded, err := svc.repo.FindBySession(ctx, "S")
		require.NoError(t, err)
		require.NotNil(t, reloaded.CustomerID)
		assert.Equal(t, customer.ID, *reloaded.CustomerID)
	})

	t.Run("no cart inserts one with both keys", func(t *testing.T) {
		svc, conn, _ := newTestService(t)
		customer := dbtest.SeedCustomer(t, conn, "n@example.com")

		err := db.NewFromGorm(conn, 0).WithTx(ctx, func(tx *gorm.DB) error {
			_, err := svc.BindSessionCartTx(ctx, tx, "S", customer.ID)
			return err
		})
		require.NoError(t, err)

		cart, err := svc.repo.FindByCustomer(ctx, customer.ID)
		require.NoError(t, err)
		require.NotNil(t, cart.SessionID)
		assert.Equal(t, "S", *cart.SessionID)
	})

	t.Run("both carts merge", func(t *testing.T) {
		svc, conn, _ := newTestService(t)
		customer := dbtest.SeedCustomer(t, conn, "m@example.com")
		guest := seedCart(t, conn, models.Cart{SessionID: strPtr("S")})
		owned := seedCart(t, conn, models.Cart{CustomerID: int64Ptr(customer.ID)})
		shared := dbtest.SeedItem(t, conn, "Shared", "3.00", 10)
		only := dbtest.SeedItem(t, conn, "GuestOnly", "1.00", 10)

		_, err := svc.AddItem(ctx, guest.ID, shared.ID, 2, shared.Price)
		require.NoError(t, err)
		_, err = svc.AddItem(ctx, guest.ID, only.ID, 1, only.Price)
		require.NoError(t, err)
		_, err = svc.AddItem(ctx, owned.ID, shared.ID, 1, shared.Price)
		require.NoError(t, err)

		err = db.NewFromGorm(conn, 0).WithTx(ctx, func(tx *gorm.DB) error {
			_, err := svc.BindSessionCartTx(ctx, tx, "S", customer.ID)
			return err
		})
		require.NoError(t, err)

		_, err = svc.repo.FindByID(ctx, guest.ID)
		assert.True(t, db.IsNotFound(err), "guest cart is removed")

		bySession, err := svc.repo.FindBySession(ctx, "S")
		require.NoError(t, err)
		assert.Equal(t, owned.ID, bySession.ID)

		lines, err := svc.repo.Lines(ctx, owned.ID)
		require.NoError(t, err)
		require.Len(t, lines, 2)
		assert.Equal(t, 3, lines[0].Quantity)
		assert.True(t, lines[0].Price.Equal(decimal.NewFromInt(9)))
		assert.Equal(t, 1, lines[1].Quantity)
	})

	t.Run("requires a transaction", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.BindSessionCartTx(ctx, nil, "S", 1)
		require.Error(t, err)
	})
}

func TestAttachGuestCartTx(t *testing.T) {
	ctx := context.Background()
	attach := func(t *testing.T, svc *service, conn *gorm.DB, customerID int64) *models.Cart {
		t.Helper()
		var attached *models.Cart
		require.NoError(t, db.NewFromGorm(conn, 0).WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			attached, err = svc.AttachGuestCartTx(ctx, tx, "S", customerID)
			return err
		}))
		return attached
	}

	t.Run("unowned session cart gains customer", func(t *testing.T) {
		svc, conn, _ := newTestService(t)
		customer := dbtest.SeedCustomer(t, conn, "a@example.com")
		guest := seedCart(t, conn, models.Cart{SessionID: strPtr("S")})

		attached := attach(t, svc, conn, customer.ID)
		assert.Equal(t, guest.ID, attached.ID)
		reloaded, err := svc.repo.FindByID(ctx, guest.ID)
		require.NoError(t, err)
		require.NotNil(t, reloaded.CustomerID)
		assert.Equal(t, customer.ID, *reloaded.CustomerID)
	})

	t.Run("customer with a cart leaves both untouched", func(t *testing.T) {
		svc, conn, _ := newTestService(t)
		customer := dbtest.SeedCustomer(t, conn, "b@example.com")
		guest := seedCart(t, conn, models.Cart{SessionID: strPtr("S")})
		owned := seedCart(t, conn, models.Cart{CustomerID: int64Ptr(customer.ID)})

		attached := attach(t, svc, conn, customer.ID)
		assert.Equal(t, guest.ID, attached.ID)

		reloaded, err := svc.repo.FindByID(ctx, guest.ID)
		require.NoError(t, err)
		assert.Nil(t, reloaded.CustomerID)
		ownedNow, err := svc.repo.FindByID(ctx, owned.ID)
		require.NoError(t, err)
		assert.Nil(t, ownedNow.SessionID)
	})

	t.Run("no session cart is a no-op", func(t *testing.T) {
		svc, conn, _ := newTestService(t)
		customer := dbtest.SeedCustomer(t, conn, "c@example.com")

		assert.Nil(t, attach(t, svc, conn, customer.ID))
		_, err := svc.repo.FindByCustomer(ctx, customer.ID)
		assert.True(t, db.IsNotFound(err))
	})
}

type failingSessions struct{}

func (failingSessions) Create(context.Context, enums.SessionKind) (*models.Session, error) {
	return nil, errors.New("insert failed")
}

func TestGetOrCreateCartSurfacesSessionFailure(t *testing.T) {
	conn := dbtest.SQLite(t)
	svc, err := NewService(NewRepository(conn), db.NewFromGorm(conn, 0), failingSessions{}, nil)
	require.NoError(t, err)

	_, err = svc.GetOrCreateCart(context.Background(), identity.Guest(""))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.True(t, pkgerrors.Retryable(err))
}

func TestNewServiceValidatesDeps(t *testing.T) {
	conn := dbtest.SQLite(t)
	_, err := NewService(nil, db.NewFromGorm(conn, 0), failingSessions{}, nil)
	assert.Error(t, err)
	_, err = NewService(NewRepository(conn), nil, failingSessions{}, nil)
	assert.Error(t, err)
	_, err = NewService(NewRepository(conn), db.NewFromGorm(conn, 0), nil, nil)
	assert.Error(t, err)
}
