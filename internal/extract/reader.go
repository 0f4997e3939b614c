package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"churnscope/internal/domain/customer"
)

var (
	meter          = otel.Meter("churnscope/extract")
	recordsRead, _ = meter.Int64Counter("extract.records.read",
		metric.WithDescription("Customer records read from the source extract"),
	)
)

// Column names as they appear in the extract's header row. Extra columns in
// the file are ignored.
const (
	colClientNum           = "CLIENTNUM"
	colAttritionFlag       = "Attrition_Flag"
	colCustomerAge         = "Customer_Age"
	colGender              = "Gender"
	colDependentCount      = "Dependent_count"
	colEducationLevel      = "Education_Level"
	colMaritalStatus       = "Marital_Status"
	colIncomeCategory      = "Income_Category"
	colCardCategory        = "Card_Category"
	colMonthsOnBook        = "Months_on_book"
	colRelationshipCount   = "Total_Relationship_Count"
	colMonthsInactive      = "Months_Inactive_12_mon"
	colContactsCount       = "Contacts_Count_12_mon"
	colCreditLimit         = "Credit_Limit"
	colTotalRevolvingBal   = "Total_Revolving_Bal"
	colAvgOpenToBuy        = "Avg_Open_To_Buy"
	colTotalAmtChngQ4Q1    = "Total_Amt_Chng_Q4_Q1"
	colTotalTransAmt       = "Total_Trans_Amt"
	colTotalTransCt        = "Total_Trans_Ct"
	colTotalCtChngQ4Q1     = "Total_Ct_Chng_Q4_Q1"
	colAvgUtilizationRatio = "Avg_Utilization_Ratio"
)

var requiredColumns = []string{
	colClientNum, colAttritionFlag, colCustomerAge, colGender,
	colDependentCount, colEducationLevel, colMaritalStatus,
	colIncomeCategory, colCardCategory, colMonthsOnBook,
	colRelationshipCount, colMonthsInactive, colContactsCount,
	colCreditLimit, colTotalRevolvingBal, colAvgOpenToBuy,
	colTotalAmtChngQ4Q1, colTotalTransAmt, colTotalTransCt,
	colTotalCtChngQ4Q1, colAvgUtilizationRatio,
}

// ReadFile reads the flat customer extract from a CSV file.
func ReadFile(ctx context.Context, path string) ([]customer.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open extract: %w", err)
	}
	defer f.Close()

	records, err := Read(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to read extract %s: %w", path, err)
	}
	return records, nil
}

// Read parses the extract from r. The first row must be a header; columns are
// resolved by name so column order does not matter. Any malformed value is an
// unrecoverable error naming the row and column.
func Read(ctx context.Context, r io.Reader) ([]customer.Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}

	var records []customer.Record
	for rowNum := 2; ; rowNum++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", rowNum, err)
		}

		rec, err := parseRow(row, cols, rowNum)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	recordsRead.Add(ctx, int64(len(records)))
	return records, nil
}

func parseRow(row []string, cols map[string]int, rowNum int) (customer.Record, error) {
	p := &rowParser{row: row, cols: cols, rowNum: rowNum}

	rec := customer.Record{
		ClientID:               p.int64Field(colClientNum),
		Age:                    p.intField(colCustomerAge),
		Gender:                 p.stringField(colGender),
		DependentCount:         p.intField(colDependentCount),
		EducationLevel:         p.stringField(colEducationLevel),
		MaritalStatus:          p.stringField(colMaritalStatus),
		IncomeCategory:         p.stringField(colIncomeCategory),
		CardCategory:           p.stringField(colCardCategory),
		MonthsOnBook:           p.intField(colMonthsOnBook),
		CreditLimit:            p.floatField(colCreditLimit),
		TotalRevolvingBal:      p.floatField(colTotalRevolvingBal),
		AvgOpenToBuy:           p.floatField(colAvgOpenToBuy),
		TotalAmtChngQ4Q1:       p.floatField(colTotalAmtChngQ4Q1),
		TotalTransAmt:          p.floatField(colTotalTransAmt),
		TotalTransCt:           p.intField(colTotalTransCt),
		TotalCtChngQ4Q1:        p.floatField(colTotalCtChngQ4Q1),
		AvgUtilizationRatio:    p.floatField(colAvgUtilizationRatio),
		TotalRelationshipCount: p.intField(colRelationshipCount),
		MonthsInactive12Mon:    p.intField(colMonthsInactive),
		ContactsCount12Mon:     p.intField(colContactsCount),
	}
	if p.err != nil {
		return customer.Record{}, p.err
	}

	flag := p.stringField(colAttritionFlag)
	if !customer.IsValidAttritionFlag(flag) {
		return customer.Record{}, fmt.Errorf("row %d: invalid attrition flag %q", rowNum, flag)
	}
	rec.AttritionFlag = customer.AttritionFlag(flag)

	return rec, nil
}

// rowParser accumulates the first parse error so field extraction stays flat.
type rowParser struct {
	row    []string
	cols   map[string]int
	rowNum int
	err    error
}

func (p *rowParser) stringField(col string) string {
	return p.row[p.cols[col]]
}

func (p *rowParser) intField(col string) int {
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(p.stringField(col))
	if err != nil {
		p.err = fmt.Errorf("row %d: malformed %s: %w", p.rowNum, col, err)
		return 0
	}
	return v
}

func (p *rowParser) int64Field(col string) int64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseInt(p.stringField(col), 10, 64)
	if err != nil {
		p.err = fmt.Errorf("row %d: malformed %s: %w", p.rowNum, col, err)
		return 0
	}
	return v
}

func (p *rowParser) floatField(col string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.stringField(col), 64)
	if err != nil {
		p.err = fmt.Errorf("row %d: malformed %s: %w", p.rowNum, col, err)
		return 0
	}
	return v
}
