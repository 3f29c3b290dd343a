package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/mohammad-safakhou/scout/feedback"
)

func TestStoreRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	ctx := context.Background()
	s := New(db, "cli")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM feedback_entries WHERE namespace = $1`)).
		WithArgs("cli").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO feedback_entries (namespace, feedback) VALUES ($1, $2)`)).
		WithArgs("cli", "first answer").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT feedback FROM feedback_entries WHERE namespace = $1 ORDER BY id`)).
		WithArgs("cli").
		WillReturnRows(sqlmock.NewRows([]string{"feedback"}).AddRow("first answer"))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM feedback_entries WHERE namespace = $1`)).
		WithArgs("cli").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.EnsureInitialized(ctx); err != nil {
		t.Fatalf("EnsureInitialized: %v", err)
	}
	if err := s.Append(ctx, feedback.Entry{Feedback: "first answer"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	entries, err := s.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 1 || entries[0].Feedback != "first answer" {
		t.Fatalf("unexpected entries %v", entries)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureInitializedMissingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM feedback_entries`)).
		WillReturnError(errors.New(`pq: relation "feedback_entries" does not exist`))
	err = New(db, "").EnsureInitialized(context.Background())
	if err == nil {
		t.Fatal("expected error when the table is missing")
	}
}

func TestReadEmptyNamespace(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT feedback FROM feedback_entries`)).
		WithArgs("default").
		WillReturnRows(sqlmock.NewRows([]string{"feedback"}))
	entries, err := New(db, "").Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if feedback.Serialize(entries) != "[]" {
		t.Fatalf("expected empty serialization, got %v", entries)
	}
}

func TestMigrateRejectsDirection(t *testing.T) {
	err := Migrate("postgres://localhost/none", "sideways", 0)
	if err == nil || err.Error() != "unknown direction: sideways" {
		t.Fatalf("unexpected error %v", err)
	}
}
