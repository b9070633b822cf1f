package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/customers"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
	"gorm.io/gorm"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Signup(ctx context.Context, caller identity.Identity, req SignupRequest) (*Result, error)
	Login(ctx context.Context, caller identity.Identity, req LoginRequest) (*Result, error)
	Logout(ctx context.Context, caller identity.Identity) error
	CurrentCustomer(ctx context.Context, customerID int64) (*customers.CustomerDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type customerReader interface {
	FindByEmail(ctx context.Context, email string) (*models.Customer, error)
	FindRegisteredByID(ctx context.Context, id int64) (*models.Customer, error)
}

type sessionStore interface {
	CreateTx(ctx context.Context, tx *gorm.DB, kind enums.SessionKind) (*models.Session, error)
	DeleteTx(ctx context.Context, tx *gorm.DB, sessionID string) error
	Delete(ctx context.Context, sessionID string) error
}

type tokenIssuer interface {
	Issue(customerID int64, sessionID string, expiresAt time.Time) (string, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	DB             txRunner
	Customers      customerReader
	Sessions       sessionStore
	Tokens         tokenIssuer
	Promoter       *Promoter
	PasswordConfig config.PasswordConfig
}

type service struct {
	db          txRunner
	customers   customerReader
	sessions    sessionStore
	tokens      tokenIssuer
	promoter    *Promoter
	passwordCfg config.PasswordConfig
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer repository is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if params.Tokens == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	if params.Promoter == nil {
		return nil, fmt.Errorf("promoter is required")
	}
	return &service{
		db:          params.DB,
		customers:   params.Customers,
		sessions:    params.Sessions,
		tokens:      params.Tokens,
		promoter:    params.Promoter,
		passwordCfg: params.PasswordConfig,
	}, nil
}

// Signup registers the email, claiming a guest customer created at checkout
// when one exists. The caller's guest cart follows the new account.
func (s *service) Signup(ctx context.Context, caller identity.Identity, req SignupRequest) (*Result, error) {
	if fields := validateSignup(req); len(fields) > 0 {
		return nil, pkgerrors.Validation(fields)
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooLong) {
			return nil, pkgerrors.Validation(map[string]string{"password": "must be at most 72 bytes"})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var result *Result
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := customers.NewRepository(tx)

		customer, created, err := ClaimOrCreate(ctx, repo, req.profile(), false)
		if err != nil {
			return err
		}
		if !created && !customer.IsGuest {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}

		req.profile().Apply(customer)
		customer.IsGuest = false
		customer.PasswordHash = &hash
		if err := repo.Save(ctx, customer); err != nil {
			if db.IsUniqueViolation(err, "email") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return err
		}

		result, err = s.startSession(ctx, tx, caller, customer)
		return err
	})
	if err != nil {
		return nil, mapStorageError(err, "signup")
	}
	return result, nil
}

// Login checks the password of a registered customer and starts a customer
// session, carrying the caller's guest cart over.
func (s *service) Login(ctx context.Context, caller identity.Identity, req LoginRequest) (*Result, error) {
	customer, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	var result *Result
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.startSession(ctx, tx, caller, customer)
		return err
	})
	if err != nil {
		return nil, mapStorageError(err, "login")
	}
	return result, nil
}

// Logout deletes the caller's session. Calling it twice is fine.
func (s *service) Logout(ctx context.Context, caller identity.Identity) error {
	if !caller.HasSession() {
		return nil
	}
	if err := s.sessions.Delete(ctx, caller.SessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete session")
	}
	return nil
}

func (s *service) CurrentCustomer(ctx context.Context, customerID int64) (*customers.CustomerDTO, error) {
	customer, err := s.customers.FindRegisteredByID(ctx, customerID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.NotFound("customer")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return customers.FromModel(customer), nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.Customer, error) {
	email = customers.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	customer, err := s.customers.FindByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup customer")
	}
	if customer.IsGuest || customer.PasswordHash == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	ok, err := security.VerifyPassword(password, *customer.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return customer, nil
}

// startSession promotes the caller's guest cart, replaces the caller's
// session with a customer session and issues its token, all inside tx.
func (s *service) startSession(ctx context.Context, tx *gorm.DB, caller identity.Identity, customer *models.Customer) (*Result, error) {
	if caller.IsGuest() && caller.HasSession() {
		if _, err := s.promoter.BindCart(ctx, tx, caller.SessionID, customer.ID); err != nil {
			return nil, err
		}
	}

	session, err := s.sessions.CreateTx(ctx, tx, enums.SessionKindCustomer)
	if err != nil {
		return nil, err
	}
	if caller.HasSession() {
		if err := s.sessions.DeleteTx(ctx, tx, caller.SessionID); err != nil {
			return nil, err
		}
	}

	token, err := s.tokens.Issue(customer.ID, session.ID, session.ExpiresAt)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue token")
	}
	return &Result{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		SessionID: session.ID,
		Customer:  customers.FromModel(customer),
	}, nil
}

func validateSignup(req SignupRequest) map[string]string {
	fields := map[string]string{}
	email := customers.NormalizeEmail(req.Email)
	if email == "" {
		fields["email"] = "is required"
	} else if !strings.Contains(email, "@") {
		fields["email"] = "must be a valid email"
	}
	if len(req.Password) < 8 {
		fields["password"] = "must be at least 8 characters"
	}
	if strings.TrimSpace(req.FirstName) == "" {
		fields["first_name"] = "is required"
	}
	if strings.TrimSpace(req.LastName) == "" {
		fields["last_name"] = "is required"
	}
	return fields
}

// mapStorageError keeps typed errors and marks storage failures retryable.
func mapStorageError(err error, op string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
