package postgres

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"churnscope/internal/domain/customer"
	"churnscope/internal/domain/dataset"
)

type fakeStmt struct {
	query string
	args  [][]any
}

func (s *fakeStmt) ExecContext(_ context.Context, args ...any) (sql.Result, error) {
	s.args = append(s.args, args)
	return nil, nil
}

func (s *fakeStmt) Close() error { return nil }

type fakeTx struct {
	stmts []*fakeStmt
}

func (f *fakeTx) PrepareContext(_ context.Context, query string) (stmtExecer, error) {
	s := &fakeStmt{query: strings.Join(strings.Fields(query), " ")}
	f.stmts = append(f.stmts, s)
	return s, nil
}

func warehouseDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	records := []customer.Record{
		{ClientID: 1, Age: 40, Gender: "F", IncomeCategory: customer.Income40Kto60K,
			CardCategory: customer.CardBlue, CreditLimit: 4000, AttritionFlag: customer.Existing},
		{ClientID: 2, Age: 55, Gender: "M", IncomeCategory: customer.Income120KPlus,
			CardCategory: customer.CardGold, CreditLimit: 20000, AttritionFlag: customer.Attrited},
	}
	ds, err := dataset.Build(context.Background(), records)
	if err != nil {
		t.Fatalf("dataset.Build() failed: %v", err)
	}
	return ds
}

func TestLoadTransactionsPreparesOnceAndInsertsEveryFact(t *testing.T) {
	w := &Warehouse{}
	tx := &fakeTx{}
	ds := warehouseDataset(t)

	if err := w.loadTransactions(context.Background(), tx, ds); err != nil {
		t.Fatalf("loadTransactions() failed: %v", err)
	}

	// One prepared statement reused for every row.
	if len(tx.stmts) != 1 {
		t.Fatalf("got %d prepared statements, want 1", len(tx.stmts))
	}
	stmt := tx.stmts[0]
	if !strings.HasPrefix(stmt.query, "INSERT INTO transactions") {
		t.Errorf("unexpected statement %q", stmt.query)
	}
	if len(stmt.args) != ds.Len() {
		t.Fatalf("got %d inserts, want %d", len(stmt.args), ds.Len())
	}
	if stmt.args[0][0] != int64(1) || stmt.args[1][0] != int64(2) {
		t.Errorf("client ids = %v, %v; want 1, 2", stmt.args[0][0], stmt.args[1][0])
	}
}

func TestLoadDimensionsPreparesPerTable(t *testing.T) {
	w := &Warehouse{}
	tx := &fakeTx{}
	ds := warehouseDataset(t)

	if err := w.loadDimensions(context.Background(), tx, ds); err != nil {
		t.Fatalf("loadDimensions() failed: %v", err)
	}

	if len(tx.stmts) != 4 {
		t.Fatalf("got %d prepared statements, want 4 (one per dimension)", len(tx.stmts))
	}

	counts := map[string]int{}
	for _, stmt := range tx.stmts {
		switch {
		case strings.HasPrefix(stmt.query, "INSERT INTO customers"):
			counts["customers"] += len(stmt.args)
		case strings.HasPrefix(stmt.query, "INSERT INTO account"):
			counts["account"] += len(stmt.args)
		case strings.HasPrefix(stmt.query, "INSERT INTO activities"):
			counts["activities"] += len(stmt.args)
		case strings.HasPrefix(stmt.query, "INSERT INTO churn_status"):
			counts["churn_status"] += len(stmt.args)
		default:
			t.Errorf("unexpected statement %q", stmt.query)
		}
	}

	for _, table := range []string{"customers", "account", "activities", "churn_status"} {
		if counts[table] != ds.Len() {
			t.Errorf("%s inserts = %d, want %d", table, counts[table], ds.Len())
		}
	}
}

func TestSchemaDDLCoversAllTables(t *testing.T) {
	ddl := []string{
		createTransactionsTable,
		createCustomersTable,
		createAccountTable,
		createActivitiesTable,
		createChurnStatusTable,
	}
	for _, stmt := range ddl {
		if !strings.Contains(stmt, "client_id") {
			t.Errorf("DDL missing client_id key: %q", stmt)
		}
	}
	// Dimensions reference the fact table's key.
	for _, stmt := range ddl[1:] {
		if !strings.Contains(stmt, "REFERENCES transactions (client_id)") {
			t.Errorf("dimension DDL missing fact reference: %q", stmt)
		}
	}

	// The post-load snapshot verification must cover the same five tables the
	// schema creates, fact first.
	if len(warehouseTables) != len(ddl) {
		t.Fatalf("warehouseTables lists %d tables, want %d", len(warehouseTables), len(ddl))
	}
	for i, table := range warehouseTables {
		if !strings.Contains(ddl[i], "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("warehouseTables[%d] = %q does not match its DDL", i, table)
		}
	}
}
