package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"churnscope/internal/domain/dataset"
)

// DDL for the five star-schema tables. The fact table owns the client id as
// primary key; every dimension references it.
const (
	createTransactionsTable = `
		CREATE TABLE IF NOT EXISTS transactions (
			client_id             BIGINT PRIMARY KEY,
			credit_limit          NUMERIC(12,2) NOT NULL,
			total_revolving_bal   NUMERIC(12,2) NOT NULL,
			avg_open_to_buy       NUMERIC(12,2) NOT NULL,
			total_amt_chng_q4_q1  DOUBLE PRECISION NOT NULL,
			total_trans_amt       NUMERIC(12,2) NOT NULL,
			total_trans_ct        INTEGER NOT NULL,
			total_ct_chng_q4_q1   DOUBLE PRECISION NOT NULL,
			avg_utilization_ratio DOUBLE PRECISION NOT NULL
		)
	`

	createCustomersTable = `
		CREATE TABLE IF NOT EXISTS customers (
			client_id       BIGINT PRIMARY KEY REFERENCES transactions (client_id),
			customer_age    INTEGER NOT NULL,
			gender          TEXT NOT NULL,
			dependent_count INTEGER NOT NULL,
			education_level TEXT NOT NULL,
			marital_status  TEXT NOT NULL
		)
	`

	createAccountTable = `
		CREATE TABLE IF NOT EXISTS account (
			client_id       BIGINT PRIMARY KEY REFERENCES transactions (client_id),
			income_category TEXT NOT NULL,
			card_category   TEXT NOT NULL,
			months_on_book  INTEGER NOT NULL
		)
	`

	createActivitiesTable = `
		CREATE TABLE IF NOT EXISTS activities (
			client_id                BIGINT PRIMARY KEY REFERENCES transactions (client_id),
			total_relationship_count INTEGER NOT NULL,
			months_inactive_12_mon   INTEGER NOT NULL,
			contacts_count_12_mon    INTEGER NOT NULL
		)
	`

	createChurnStatusTable = `
		CREATE TABLE IF NOT EXISTS churn_status (
			client_id      BIGINT PRIMARY KEY REFERENCES transactions (client_id),
			attrition_flag TEXT NOT NULL
		)
	`
)

// warehouseTables lists the five schema tables, fact first so creation order
// satisfies the dimension foreign keys.
var warehouseTables = []string{
	"transactions", "customers", "account", "activities", "churn_status",
}

// Warehouse materializes the in-memory star schema in Postgres. The analyses
// read the in-memory dataset; the warehouse only persists the five tables.
type Warehouse struct {
	db *DB
}

func NewWarehouse(db *DB) *Warehouse {
	return &Warehouse{db: db}
}

// EnsureSchema creates the five star-schema tables if they do not exist. The
// fact table is created first so the dimension foreign keys resolve.
func (w *Warehouse) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		createTransactionsTable,
		createCustomersTable,
		createAccountTable,
		createActivitiesTable,
		createChurnStatusTable,
	}
	for _, stmt := range ddl {
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Load replaces the warehouse contents with the dataset in a single
// transaction: the dataset is a full snapshot, not an increment. A duplicate
// client id would surface as a primary-key violation here, but dataset.Build
// has already rejected it before the warehouse is reached.
func (w *Warehouse) Load(ctx context.Context, ds *dataset.Dataset) error {
	ctx, span := dbTracer.Start(ctx, "warehouse.Load", trace.WithAttributes(
		attribute.Int("warehouse.records", ds.Len()),
	))
	defer span.End()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Dimensions reference the fact table, so a single TRUNCATE covering all
	// five keeps the foreign keys satisfied.
	_, err = tx.ExecContext(ctx,
		`TRUNCATE churn_status, activities, account, customers, transactions`)
	if err != nil {
		return fmt.Errorf("failed to truncate warehouse: %w", err)
	}

	if err := w.loadTransactions(ctx, sqlTx{tx}, ds); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := w.loadDimensions(ctx, sqlTx{tx}, ds); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit warehouse load: %w", err)
	}

	if err := w.verifySnapshot(ctx, ds.Len()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// verifySnapshot reads back the row count of every table after commit: a full
// snapshot load must leave each table with exactly one row per customer.
func (w *Warehouse) verifySnapshot(ctx context.Context, want int) error {
	for _, table := range warehouseTables {
		var got int
		row := w.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table))
		if err := row.Scan(&got); err != nil {
			return fmt.Errorf("failed to count %s rows: %w", table, err)
		}
		if got != want {
			return fmt.Errorf("warehouse table %s holds %d rows after load, want %d", table, got, want)
		}
	}
	return nil
}

func (w *Warehouse) loadTransactions(ctx context.Context, tx txPreparer, ds *dataset.Dataset) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (client_id, credit_limit, total_revolving_bal,
			avg_open_to_buy, total_amt_chng_q4_q1, total_trans_amt,
			total_trans_ct, total_ct_chng_q4_q1, avg_utilization_ratio)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare fact insert: %w", err)
	}
	defer stmt.Close()

	for _, fact := range ds.Transactions {
		_, err := stmt.ExecContext(ctx,
			fact.ClientID, fact.CreditLimit, fact.TotalRevolvingBal,
			fact.AvgOpenToBuy, fact.TotalAmtChngQ4Q1, fact.TotalTransAmt,
			fact.TotalTransCt, fact.TotalCtChngQ4Q1, fact.AvgUtilizationRatio,
		)
		if err != nil {
			return fmt.Errorf("failed to insert fact for client %d: %w", fact.ClientID, err)
		}
	}
	return nil
}

func (w *Warehouse) loadDimensions(ctx context.Context, tx txPreparer, ds *dataset.Dataset) error {
	customers, err := tx.PrepareContext(ctx, `
		INSERT INTO customers (client_id, customer_age, gender,
			dependent_count, education_level, marital_status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare customer insert: %w", err)
	}
	defer customers.Close()
	for _, dim := range ds.Customers {
		_, err := customers.ExecContext(ctx, dim.ClientID, dim.Age, dim.Gender,
			dim.DependentCount, dim.EducationLevel, dim.MaritalStatus)
		if err != nil {
			return fmt.Errorf("failed to insert customer dimension for client %d: %w", dim.ClientID, err)
		}
	}

	account, err := tx.PrepareContext(ctx, `
		INSERT INTO account (client_id, income_category, card_category, months_on_book)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare account insert: %w", err)
	}
	defer account.Close()
	for _, dim := range ds.Account {
		_, err := account.ExecContext(ctx, dim.ClientID, dim.IncomeCategory,
			dim.CardCategory, dim.MonthsOnBook)
		if err != nil {
			return fmt.Errorf("failed to insert account dimension for client %d: %w", dim.ClientID, err)
		}
	}

	activities, err := tx.PrepareContext(ctx, `
		INSERT INTO activities (client_id, total_relationship_count,
			months_inactive_12_mon, contacts_count_12_mon)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare activity insert: %w", err)
	}
	defer activities.Close()
	for _, dim := range ds.Activities {
		_, err := activities.ExecContext(ctx, dim.ClientID, dim.TotalRelationshipCount,
			dim.MonthsInactive12Mon, dim.ContactsCount12Mon)
		if err != nil {
			return fmt.Errorf("failed to insert activity dimension for client %d: %w", dim.ClientID, err)
		}
	}

	status, err := tx.PrepareContext(ctx, `
		INSERT INTO churn_status (client_id, attrition_flag)
		VALUES ($1, $2)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare churn status insert: %w", err)
	}
	defer status.Close()
	for _, dim := range ds.ChurnStatus {
		_, err := status.ExecContext(ctx, dim.ClientID, string(dim.AttritionFlag))
		if err != nil {
			return fmt.Errorf("failed to insert churn status for client %d: %w", dim.ClientID, err)
		}
	}

	return nil
}

// stmtExecer is the slice of *sql.Stmt the loaders need.
type stmtExecer interface {
	ExecContext(ctx context.Context, args ...any) (sql.Result, error)
	Close() error
}

// txPreparer is the slice of *sql.Tx the loaders need; it keeps them testable.
type txPreparer interface {
	PrepareContext(ctx context.Context, query string) (stmtExecer, error)
}

// sqlTx adapts *sql.Tx to txPreparer: PrepareContext returns the concrete
// *sql.Stmt, which satisfies stmtExecer.
type sqlTx struct {
	*sql.Tx
}

func (t sqlTx) PrepareContext(ctx context.Context, query string) (stmtExecer, error) {
	return t.Tx.PrepareContext(ctx, query)
}
