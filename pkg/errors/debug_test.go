package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestDumpExtractsPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "customers_email_key", TableName: "customers", Message: "duplicate key value"}
	err := Wrap(CodeConflict, fmt.Errorf("insert customer: %w", pgErr), "email already registered")

	d := Dump(err)
	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", d.Code)
	}
	if d.SQLState != "23505" || d.SQLConstraint != "customers_email_key" || d.Driver != "pgx" {
		t.Fatalf("unexpected dump %+v", d)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d", len(d.Chain))
	}
}

func TestDumpExtractsMySQLFields(t *testing.T) {
	err := fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	d := Dump(err)
	if d.Driver != "mysql" || d.SQLState != "1062" {
		t.Fatalf("unexpected dump %+v", d)
	}
}

func TestDumpNil(t *testing.T) {
	if d := Dump(nil); d.TopMessage != "" || d.Chain != nil {
		t.Fatalf("expected empty dump, got %+v", d)
	}
	if d := Dump(stdErrors.New("plain")); d.Driver != "" {
		t.Fatalf("plain error should carry no driver, got %q", d.Driver)
	}
}
