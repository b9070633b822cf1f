// Package dbtest opens throwaway databases for repository tests.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var seq atomic.Int64

// SQLite returns a migrated in-memory database private to the test.
func SQLite(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_busy_timeout=5000", name, seq.Add(1))

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// a single connection keeps the shared in-memory database alive and
	// serializes writers the way row locks would.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migrate.Run(context.Background(), sqlDB, config.DriverSQLite, "up"); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// Mock returns a gorm handle backed by sqlmock using the postgres dialect.
func Mock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	conn, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open gorm over sqlmock: %v", err)
	}
	return conn, mock
}

// SeedItem inserts a product with a single item and returns the item.
func SeedItem(t *testing.T, conn *gorm.DB, title, price string, stock int) models.Item {
	t.Helper()

	product := models.Product{Title: title}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	item := models.Item{
		ProductID: product.ID,
		SKU:       fmt.Sprintf("SKU-%d-%d", product.ID, seq.Add(1)),
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
	}
	if err := conn.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item
}

// SeedCustomer inserts a registered customer with the given email.
func SeedCustomer(t *testing.T, conn *gorm.DB, email string) models.Customer {
	t.Helper()

	customer := models.Customer{
		Email:     email,
		FirstName: "Test",
		LastName:  "Customer",
		Role:      enums.CustomerRoleCustomer,
	}
	if err := conn.Create(&customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return customer
}
