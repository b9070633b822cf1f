package db

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation    = "23505"
	mysqlDuplicateEntry  = 1062
	sqliteUniqueFailure  = "UNIQUE constraint failed"
	pgDuplicateKeyPrefix = "duplicate key value"
)

// IsUniqueViolation reports whether err is a unique-constraint violation for any
// supported driver. When constraint is non-empty the constraint (or, for
// drivers that do not expose it, the message) must mention it.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return constraint == "" || strings.Contains(err.Error(), constraint)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && matchesConstraint(pgErr.ConstraintName, pgErr.Message, constraint)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation && matchesConstraint(pqErr.Constraint, pqErr.Message, constraint)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry && matchesConstraint("", myErr.Message, constraint)
	}

	msg := err.Error()
	if strings.Contains(msg, sqliteUniqueFailure) || strings.Contains(msg, pgDuplicateKeyPrefix) {
		return matchesConstraint("", msg, constraint)
	}
	return false
}

// IsNotFound reports gorm's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func matchesConstraint(name, msg, constraint string) bool {
	if constraint == "" {
		return true
	}
	return strings.Contains(name, constraint) || strings.Contains(msg, constraint)
}
