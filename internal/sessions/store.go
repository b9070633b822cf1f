package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
)

const createAttempts = 3

// ErrStorage wraps any failure to persist or read a session.
var ErrStorage = errors.New("session storage error")

// SessionRepository is the persistence surface used by the store.
type SessionRepository interface {
	WithTx(tx *gorm.DB) SessionRepository
	Create(ctx context.Context, session *models.Session) error
	ExistsActive(ctx context.Context, id string, now time.Time) (bool, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Checker is the read-only surface needed by identity resolution.
type Checker interface {
	IsValid(ctx context.Context, sessionID string) (bool, error)
}

// Store issues, validates and removes sessions.
type Store struct {
	repo        SessionRepository
	guestTTL    time.Duration
	customerTTL time.Duration
	now         func() time.Time
	newID       func() (string, error)
}

// NewStore builds a session store with TTLs from configuration.
func NewStore(repo SessionRepository, cfg config.SessionConfig) (*Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("session repository required")
	}
	guestTTL := cfg.GuestTTL
	if guestTTL <= 0 {
		guestTTL = 24 * time.Hour
	}
	customerTTL := cfg.CustomerTTL
	if customerTTL <= 0 {
		customerTTL = 7 * 24 * time.Hour
	}
	return &Store{
		repo:        repo,
		guestTTL:    guestTTL,
		customerTTL: customerTTL,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       newSessionID,
	}, nil
}

// newSessionID returns a UUIDv7: time ordered with a random tail.
func newSessionID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// TTL returns the lifetime for a session kind.
func (s *Store) TTL(kind enums.SessionKind) time.Duration {
	if kind == enums.SessionKindCustomer {
		return s.customerTTL
	}
	return s.guestTTL
}

// Create inserts a new session. The store retries with a fresh id when the
// generated id collides; any other failure is an ErrStorage.
func (s *Store) Create(ctx context.Context, kind enums.SessionKind) (*models.Session, error) {
	return s.create(ctx, s.repo, kind)
}

// CreateTx inserts the session inside an existing transaction.
func (s *Store) CreateTx(ctx context.Context, tx *gorm.DB, kind enums.SessionKind) (*models.Session, error) {
	return s.create(ctx, s.repo.WithTx(tx), kind)
}

func (s *Store) create(ctx context.Context, repo SessionRepository, kind enums.SessionKind) (*models.Session, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("invalid session kind %q", kind)
	}

	var created *models.Session
	backoff := retry.WithMaxRetries(createAttempts-1, retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		id, err := s.newID()
		if err != nil {
			return fmt.Errorf("generate session id: %w", err)
		}
		now := s.now()
		session := &models.Session{
			ID:        id,
			Kind:      kind,
			CreatedAt: now,
			ExpiresAt: now.Add(s.TTL(kind)),
		}
		if err := repo.Create(ctx, session); err != nil {
			if db.IsUniqueViolation(err, "") {
				return retry.RetryableError(err)
			}
			return err
		}
		created = session
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create session: %w", ErrStorage, err)
	}
	return created, nil
}

// IsValid reports whether the session exists and has not expired.
func (s *Store) IsValid(ctx context.Context, sessionID string) (bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return false, nil
	}
	ok, err := s.repo.ExistsActive(ctx, sessionID, s.now())
	if err != nil {
		return false, fmt.Errorf("%w: check session: %w", ErrStorage, err)
	}
	return ok, nil
}

// Get loads a session row, nil when absent.
func (s *Store) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: load session: %w", ErrStorage, err)
	}
	return session, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("%w: delete session: %w", ErrStorage, err)
	}
	return nil
}

// DeleteTx removes a session inside an existing transaction.
func (s *Store) DeleteTx(ctx context.Context, tx *gorm.DB, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	if err := s.repo.WithTx(tx).Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("%w: delete session: %w", ErrStorage, err)
	}
	return nil
}

// Prune deletes sessions that expired before now and reports how many.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("%w: prune sessions: %w", ErrStorage, err)
	}
	return n, nil
}
