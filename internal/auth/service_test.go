package auth

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/customers"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/internal/sessions"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type harness struct {
	conn      *gorm.DB
	client    *db.Client
	svc       Service
	promoter  *Promoter
	sessions  *sessions.Store
	carts     cart.Service
	customers *customers.Repository
	issuer    *pkgauth.Issuer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := dbtest.SQLite(t)
	client := db.NewFromGorm(conn, 5*time.Second)

	store, err := sessions.NewStore(sessions.NewRepository(conn), config.SessionConfig{})
	require.NoError(t, err)
	carts, err := cart.NewService(cart.NewRepository(conn), client, store, nil)
	require.NoError(t, err)
	promoter, err := NewPromoter(carts)
	require.NoError(t, err)
	issuer, err := pkgauth.NewIssuer(config.JWTConfig{Secret: "test-secret", Issuer: "storefront"})
	require.NoError(t, err)
	repo := customers.NewRepository(conn)

	svc, err := NewService(ServiceParams{
		DB:             client,
		Customers:      repo,
		Sessions:       store,
		Tokens:         issuer,
		Promoter:       promoter,
		PasswordConfig: config.PasswordConfig{BcryptCost: 4},
	})
	require.NoError(t, err)
	return &harness{conn: conn, client: client, svc: svc, promoter: promoter, sessions: store, carts: carts, customers: repo, issuer: issuer}
}

func (h *harness) guestWithCart(t *testing.T) (identity.Identity, int64) {
	t.Helper()
	res, err := h.carts.GetOrCreateCart(context.Background(), identity.Guest(""))
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	return identity.Guest(res.Session.ID), res.Cart.ID
}

func (h *harness) count(t *testing.T) int64 {
	t.Helper()
	n, err := h.customers.Count(context.Background())
	require.NoError(t, err)
	return n
}

func signupRequest(email string) SignupRequest {
	return SignupRequest{Email: email, Password: "correct-horse", FirstName: "Grace", LastName: "Hopper"}
}

func TestSignupThenCurrentCustomer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.Signup(ctx, identity.Guest(""), signupRequest(" Grace@Example.com"))
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)

	subject, ok := h.issuer.Verify(res.Token)
	require.True(t, ok)
	assert.Equal(t, res.Customer.ID, subject.CustomerID)
	assert.Equal(t, res.SessionID, subject.SessionID)

	valid, err := h.sessions.IsValid(ctx, res.SessionID)
	require.NoError(t, err)
	assert.True(t, valid)

	me, err := h.svc.CurrentCustomer(ctx, res.Customer.ID)
	require.NoError(t, err)
	assert.False(t, me.IsGuest)
	assert.Equal(t, "grace@example.com", me.Email)
	assert.Equal(t, "Grace", me.FirstName)
	assert.Equal(t, "Hopper", me.LastName)
	assert.Equal(t, enums.CustomerRoleCustomer, me.Role)
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Signup(ctx, identity.Guest(""), signupRequest("dup@example.com"))
	require.NoError(t, err)
	before := h.count(t)

	_, err = h.svc.Signup(ctx, identity.Guest(""), signupRequest("DUP@example.com"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, before, h.count(t))
}

func TestSignupValidation(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Signup(context.Background(), identity.Guest(""), SignupRequest{Email: "nope", Password: "short"})
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	fields, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
	assert.Contains(t, fields, "first_name")
	assert.Zero(t, h.count(t))
}

func TestSignupPromotesGuestCart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	guest, cartID := h.guestWithCart(t)
	before := h.count(t)

	res, err := h.svc.Signup(ctx, guest, signupRequest("new@example.com"))
	require.NoError(t, err)
	assert.Equal(t, before+1, h.count(t))

	var bound models.Cart
	require.NoError(t, h.conn.Where("session_id = ?", guest.SessionID).Take(&bound).Error)
	assert.Equal(t, cartID, bound.ID)
	require.NotNil(t, bound.CustomerID)
	assert.Equal(t, res.Customer.ID, *bound.CustomerID)

	valid, err := h.sessions.IsValid(ctx, guest.SessionID)
	require.NoError(t, err)
	assert.False(t, valid, "the guest session is replaced")
}

func TestSignupClaimsGuestCustomer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var guestCustomer *models.Customer
	require.NoError(t, h.client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		guestCustomer, err = h.promoter.PromoteOrMerge(ctx, tx, "", customers.Profile{Email: "checkout@example.com", FirstName: "G", LastName: "C"})
		return err
	}))
	require.True(t, guestCustomer.IsGuest)
	before := h.count(t)

	res, err := h.svc.Signup(ctx, identity.Guest(""), signupRequest("checkout@example.com"))
	require.NoError(t, err)
	assert.Equal(t, guestCustomer.ID, res.Customer.ID)
	assert.False(t, res.Customer.IsGuest)
	assert.Equal(t, before, h.count(t))
}

func TestPromoteOrMergeReusesExistingCustomer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	existing := dbtest.SeedCustomer(t, h.conn, "known@example.com")
	guest, cartID := h.guestWithCart(t)
	before := h.count(t)

	var promoted *models.Customer
	require.NoError(t, h.client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		promoted, err = h.promoter.PromoteOrMerge(ctx, tx, guest.SessionID, customers.Profile{Email: "KNOWN@example.com", FirstName: "X", LastName: "Y"})
		return err
	}))
	assert.Equal(t, existing.ID, promoted.ID)
	assert.Equal(t, before, h.count(t))

	var bound models.Cart
	require.NoError(t, h.conn.First(&bound, cartID).Error)
	require.NotNil(t, bound.CustomerID)
	assert.Equal(t, existing.ID, *bound.CustomerID)
}

func TestPromoteOrMergeCreatesGuestCustomer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	guest, cartID := h.guestWithCart(t)

	var promoted *models.Customer
	require.NoError(t, h.client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		promoted, err = h.promoter.PromoteOrMerge(ctx, tx, guest.SessionID, customers.Profile{Email: "fresh@example.com", FirstName: "F", LastName: "R"})
		return err
	}))
	assert.True(t, promoted.IsGuest)
	assert.Nil(t, promoted.PasswordHash)
	assert.Equal(t, int64(1), h.count(t))

	var bound models.Cart
	require.NoError(t, h.conn.First(&bound, cartID).Error)
	require.NotNil(t, bound.CustomerID)
	assert.Equal(t, promoted.ID, *bound.CustomerID)
	require.NotNil(t, bound.SessionID)
	assert.Equal(t, guest.SessionID, *bound.SessionID)
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	signed, err := h.svc.Signup(ctx, identity.Guest(""), signupRequest("login@example.com"))
	require.NoError(t, err)

	_, err = h.svc.Login(ctx, identity.Guest(""), LoginRequest{Email: "login@example.com", Password: "wrong-password"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = h.svc.Login(ctx, identity.Guest(""), LoginRequest{Email: "missing@example.com", Password: "correct-horse"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	guest, cartID := h.guestWithCart(t)
	res, err := h.svc.Login(ctx, guest, LoginRequest{Email: "LOGIN@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, signed.Customer.ID, res.Customer.ID)
	assert.NotEqual(t, signed.SessionID, res.SessionID)

	owned, err := cart.NewRepository(h.conn).FindByCustomer(ctx, res.Customer.ID)
	require.NoError(t, err)
	assert.Equal(t, cartID, owned.ID)
}

func TestGuestCustomerCannotLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := h.promoter.PromoteOrMerge(ctx, tx, "", customers.Profile{Email: "g@example.com", FirstName: "G", LastName: "C"})
		return err
	}))

	_, err := h.svc.Login(ctx, identity.Guest(""), LoginRequest{Email: "g@example.com", Password: "anything1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestLogoutIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, err := h.svc.Signup(ctx, identity.Guest(""), signupRequest("bye@example.com"))
	require.NoError(t, err)

	caller := identity.Identity{Kind: identity.KindAuthenticated, CustomerID: res.Customer.ID, SessionID: res.SessionID}
	require.NoError(t, h.svc.Logout(ctx, caller))
	require.NoError(t, h.svc.Logout(ctx, caller))
	require.NoError(t, h.svc.Logout(ctx, identity.Guest("")))

	valid, err := h.sessions.IsValid(ctx, res.SessionID)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestCurrentCustomerNotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.CurrentCustomer(context.Background(), 12345)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestNewServiceRequiresDeps(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
	_, err = NewPromoter(nil)
	assert.Error(t, err)
}
