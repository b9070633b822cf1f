package customers

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes customer persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a customers repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a customer. Duplicate emails surface as unique violations.
func (r *Repository) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

// Save updates every column of an existing customer.
func (r *Repository) Save(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

// FindByID loads any customer, guest or registered.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindRegisteredByID loads a customer whose is_guest flag is false.
func (r *Repository) FindRegisteredByID(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_guest = ?", id, false).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindByEmail retrieves the customer matching the normalized email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// LockByEmail is FindByEmail with a row lock, for use inside transactions.
func (r *Repository) LockByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("email = ?", NormalizeEmail(email)).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// Count returns the number of customer rows.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Customer{}).Count(&n).Error
	return n, err
}

// CreateIgnore inserts the customer unless the email is taken. It reports
// whether a row was written; on false the caller should re-read by email.
func (r *Repository) CreateIgnore(ctx context.Context, customer *models.Customer) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(customer)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetRole changes the role of the customer with the given email.
func (r *Repository) SetRole(ctx context.Context, email string, role enums.CustomerRole) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("email = ? AND is_guest = ?", NormalizeEmail(email), false).
		Update("role", role)
	return res.RowsAffected, res.Error
}
