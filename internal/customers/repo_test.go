package customers

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestRepositoryCreateAndLookup(t *testing.T) {
	repo := NewRepository(dbtest.SQLite(t))
	ctx := context.Background()

	hash := "hash"
	customer := &models.Customer{PasswordHash: &hash}
	Profile{
		Email:     "  Ada@Example.com ",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Phone:     strPtr("555-0100"),
		Address:   &types.Address{Line1: "1 Analytical Way", City: "London", State: "LDN", PostalCode: "N1", Country: "gb"},
	}.Apply(customer)
	require.NoError(t, repo.Create(ctx, customer))
	require.NotZero(t, customer.ID)

	byEmail, err := repo.FindByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, customer.ID, byEmail.ID)
	assert.Equal(t, "ada@example.com", byEmail.Email)
	assert.Equal(t, enums.CustomerRoleCustomer, byEmail.Role)

	registered, err := repo.FindRegisteredByID(ctx, customer.ID)
	require.NoError(t, err)

	dto := FromModel(registered)
	require.NotNil(t, dto.Address)
	assert.Equal(t, "GB", dto.Address.Country)
	assert.False(t, dto.IsGuest)
}

func TestRepositoryRejectsDuplicateEmail(t *testing.T) {
	repo := NewRepository(dbtest.SQLite(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Customer{Email: "dup@example.com", FirstName: "A", LastName: "B", Role: enums.CustomerRoleCustomer}))
	err := repo.Create(ctx, &models.Customer{Email: "dup@example.com", FirstName: "C", LastName: "D", Role: enums.CustomerRoleCustomer})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, "email"))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFindRegisteredByIDSkipsGuests(t *testing.T) {
	repo := NewRepository(dbtest.SQLite(t))
	ctx := context.Background()

	guest := &models.Customer{Email: "guest@example.com", IsGuest: true, FirstName: "G", LastName: "Uest", Role: enums.CustomerRoleCustomer}
	require.NoError(t, repo.Create(ctx, guest))

	_, err := repo.FindRegisteredByID(ctx, guest.ID)
	require.Error(t, err)
	assert.True(t, db.IsNotFound(err))

	locked, err := repo.LockByEmail(ctx, "guest@example.com")
	require.NoError(t, err)
	assert.True(t, locked.IsGuest)
}

func TestFromModelOmitsPassword(t *testing.T) {
	hash := "secret-hash"
	dto := FromModel(&models.Customer{ID: 1, Email: "a@b.c", PasswordHash: &hash})
	assert.Nil(t, dto.Address)
	assert.Nil(t, FromModel(nil))
}

func TestRepositoryCreateIgnoreAndSetRole(t *testing.T) {
	repo := NewRepository(dbtest.SQLite(t))
	ctx := context.Background()

	first := &models.Customer{Email: "boss@example.com", FirstName: "A", LastName: "B", Role: enums.CustomerRoleCustomer}
	created, err := repo.CreateIgnore(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateIgnore(ctx, &models.Customer{Email: "boss@example.com", FirstName: "C", LastName: "D", Role: enums.CustomerRoleCustomer})
	require.NoError(t, err)
	assert.False(t, created)

	n, err := repo.SetRole(ctx, "BOSS@example.com", enums.CustomerRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	reloaded, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CustomerRoleAdmin, reloaded.Role)

	n, err = repo.SetRole(ctx, "nobody@example.com", enums.CustomerRoleAdmin)
	require.NoError(t, err)
	assert.Zero(t, n)
}
