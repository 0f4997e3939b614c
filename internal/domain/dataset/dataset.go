package dataset

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"churnscope/internal/domain/customer"
)

var tracer = otel.Tracer("churnscope/dataset")

// DuplicateKeyError reports a client id that appears more than once in the
// source extract. The load is aborted before any table is populated.
type DuplicateKeyError struct {
	ClientID int64
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate client id %d in source extract", e.ClientID)
}

// NullKeyError reports a missing (zero or negative) client id at the given
// zero-based record index.
type NullKeyError struct {
	Index int
}

func (e *NullKeyError) Error() string {
	return fmt.Sprintf("null client id at record %d", e.Index)
}

// TransactionFact is the fact table row: numeric credit and transaction
// metrics keyed by client id.
type TransactionFact struct {
	ClientID            int64
	CreditLimit         float64
	TotalRevolvingBal   float64
	AvgOpenToBuy        float64
	TotalAmtChngQ4Q1    float64
	TotalTransAmt       float64
	TotalTransCt        int
	TotalCtChngQ4Q1     float64
	AvgUtilizationRatio float64
}

// CustomerDim holds the demographic dimension.
type CustomerDim struct {
	ClientID       int64
	Age            int
	Gender         string
	DependentCount int
	EducationLevel string
	MaritalStatus  string
}

// AccountDim holds the account dimension: income bracket, card tier, tenure.
type AccountDim struct {
	ClientID       int64
	IncomeCategory string
	CardCategory   string
	MonthsOnBook   int
}

// ActivityDim holds the behavioral counts dimension.
type ActivityDim struct {
	ClientID               int64
	TotalRelationshipCount int
	MonthsInactive12Mon    int
	ContactsCount12Mon     int
}

// ChurnStatusDim holds the attrition flag dimension.
type ChurnStatusDim struct {
	ClientID      int64
	AttritionFlag customer.AttritionFlag
}

// Dataset is the in-memory star schema: one fact table and four dimension
// tables sharing the client id as join key. It is immutable once built.
type Dataset struct {
	Transactions []TransactionFact
	Customers    []CustomerDim
	Account      []AccountDim
	Activities   []ActivityDim
	ChurnStatus  []ChurnStatusDim

	index map[int64]int
}

// Build validates the extract and partitions its columns into the star schema.
// It fails with a NullKeyError or DuplicateKeyError before populating any
// table; no value transformation is performed beyond field renaming.
func Build(ctx context.Context, records []customer.Record) (*Dataset, error) {
	_, span := tracer.Start(ctx, "dataset.Build", trace.WithAttributes(
		attribute.Int("dataset.records", len(records)),
	))
	defer span.End()

	index := make(map[int64]int, len(records))
	for i, rec := range records {
		if rec.ClientID <= 0 {
			err := &NullKeyError{Index: i}
			span.RecordError(err)
			return nil, err
		}
		if _, ok := index[rec.ClientID]; ok {
			err := &DuplicateKeyError{ClientID: rec.ClientID}
			span.RecordError(err)
			return nil, err
		}
		index[rec.ClientID] = i
	}

	ds := &Dataset{
		Transactions: make([]TransactionFact, 0, len(records)),
		Customers:    make([]CustomerDim, 0, len(records)),
		Account:      make([]AccountDim, 0, len(records)),
		Activities:   make([]ActivityDim, 0, len(records)),
		ChurnStatus:  make([]ChurnStatusDim, 0, len(records)),
		index:        index,
	}

	for _, rec := range records {
		ds.Transactions = append(ds.Transactions, TransactionFact{
			ClientID:            rec.ClientID,
			CreditLimit:         rec.CreditLimit,
			TotalRevolvingBal:   rec.TotalRevolvingBal,
			AvgOpenToBuy:        rec.AvgOpenToBuy,
			TotalAmtChngQ4Q1:    rec.TotalAmtChngQ4Q1,
			TotalTransAmt:       rec.TotalTransAmt,
			TotalTransCt:        rec.TotalTransCt,
			TotalCtChngQ4Q1:     rec.TotalCtChngQ4Q1,
			AvgUtilizationRatio: rec.AvgUtilizationRatio,
		})
		ds.Customers = append(ds.Customers, CustomerDim{
			ClientID:       rec.ClientID,
			Age:            rec.Age,
			Gender:         rec.Gender,
			DependentCount: rec.DependentCount,
			EducationLevel: rec.EducationLevel,
			MaritalStatus:  rec.MaritalStatus,
		})
		ds.Account = append(ds.Account, AccountDim{
			ClientID:       rec.ClientID,
			IncomeCategory: rec.IncomeCategory,
			CardCategory:   rec.CardCategory,
			MonthsOnBook:   rec.MonthsOnBook,
		})
		ds.Activities = append(ds.Activities, ActivityDim{
			ClientID:               rec.ClientID,
			TotalRelationshipCount: rec.TotalRelationshipCount,
			MonthsInactive12Mon:    rec.MonthsInactive12Mon,
			ContactsCount12Mon:     rec.ContactsCount12Mon,
		})
		ds.ChurnStatus = append(ds.ChurnStatus, ChurnStatusDim{
			ClientID:      rec.ClientID,
			AttritionFlag: rec.AttritionFlag,
		})
	}

	return ds, nil
}

// Len returns the number of customers in the dataset.
func (d *Dataset) Len() int {
	return len(d.Transactions)
}

// Fact returns the fact row for a client id.
func (d *Dataset) Fact(clientID int64) (TransactionFact, bool) {
	i, ok := d.index[clientID]
	if !ok {
		return TransactionFact{}, false
	}
	return d.Transactions[i], true
}

// Status returns the attrition flag for a client id.
func (d *Dataset) Status(clientID int64) (customer.AttritionFlag, bool) {
	i, ok := d.index[clientID]
	if !ok {
		return "", false
	}
	return d.ChurnStatus[i].AttritionFlag, true
}

// Activity returns the behavioral dimension row for a client id.
func (d *Dataset) Activity(clientID int64) (ActivityDim, bool) {
	i, ok := d.index[clientID]
	if !ok {
		return ActivityDim{}, false
	}
	return d.Activities[i], true
}
