package analysis

import (
	"context"
	"testing"

	"churnscope/internal/domain/customer"
	"churnscope/internal/domain/dataset"
)

func buildDataset(t *testing.T, records []customer.Record) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Build(context.Background(), records)
	if err != nil {
		t.Fatalf("dataset.Build() failed: %v", err)
	}
	return ds
}

// tenCustomers returns 10 records, 2 of them attrited (ids 1 and 2).
func tenCustomers() []customer.Record {
	records := make([]customer.Record, 0, 10)
	for i := 1; i <= 10; i++ {
		flag := customer.Existing
		if i <= 2 {
			flag = customer.Attrited
		}
		records = append(records, customer.Record{
			ClientID:            int64(i),
			Age:                 30 + i*3, // spreads across brackets
			IncomeCategory:      customer.Income40Kto60K,
			CardCategory:        customer.CardBlue,
			CreditLimit:         1000 * float64(i),
			TotalRevolvingBal:   100 * float64(i),
			TotalTransAmt:       500 * float64(i),
			TotalTransCt:        10 * i,
			AvgUtilizationRatio: 0.1 * float64(i),
			MonthsInactive12Mon: i % 4,
			AttritionFlag:       flag,
		})
	}
	return records
}

func TestAttritionOverview(t *testing.T) {
	svc := NewService(buildDataset(t, tenCustomers()))

	rows := svc.AttritionOverview(context.Background())
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	// Ordered by population descending: existing first.
	if rows[0].Status != string(customer.Existing) || rows[0].Customers != 8 {
		t.Errorf("rows[0] = %+v, want 8 existing", rows[0])
	}
	if rows[1].Status != string(customer.Attrited) || rows[1].Customers != 2 {
		t.Errorf("rows[1] = %+v, want 2 attrited", rows[1])
	}

	// 10 customers, 2 attrited: overall churn rate is exactly 20.00.
	if rows[1].Share != 20.00 {
		t.Errorf("attrited share = %v, want 20.00", rows[1].Share)
	}
	if rows[0].Share != 80.00 {
		t.Errorf("existing share = %v, want 80.00", rows[0].Share)
	}
}

func TestGroupCountsSumToTotal(t *testing.T) {
	records := tenCustomers()
	svc := NewService(buildDataset(t, records))
	ctx := context.Background()

	groupings := map[string][]ChurnRow{
		"age bracket": svc.ChurnByAgeBracket(ctx),
		"income":      svc.ChurnByIncome(ctx),
		"inactivity":  svc.ChurnByInactivity(ctx),
	}

	for name, rows := range groupings {
		t.Run(name, func(t *testing.T) {
			sum := 0
			for _, row := range rows {
				sum += row.Customers
			}
			if sum != len(records) {
				t.Errorf("group counts sum to %d, want %d", sum, len(records))
			}
		})
	}
}

func TestChurnRateBounds(t *testing.T) {
	svc := NewService(buildDataset(t, tenCustomers()))
	ctx := context.Background()

	for _, rows := range [][]ChurnRow{
		svc.ChurnByAgeBracket(ctx),
		svc.ChurnByIncome(ctx),
		svc.ChurnByInactivity(ctx),
	} {
		for _, row := range rows {
			if row.ChurnRate < 0 || row.ChurnRate > 100 {
				t.Errorf("group %q churn rate %v out of [0,100]", row.Group, row.ChurnRate)
			}
		}
	}
}

func TestChurnByIncomeNoAttrited(t *testing.T) {
	// All customers in one income bracket, none attrited: rate must be 0.00
	// with no divide-by-zero.
	records := tenCustomers()
	for i := range records {
		records[i].AttritionFlag = customer.Existing
	}
	svc := NewService(buildDataset(t, records))

	rows := svc.ChurnByIncome(context.Background())
	if len(rows) != 1 {
		t.Fatalf("got %d income groups, want 1", len(rows))
	}
	if rows[0].ChurnRate != 0.00 {
		t.Errorf("churn rate = %v, want 0.00", rows[0].ChurnRate)
	}
}

func TestChurnRateAllAttrited(t *testing.T) {
	records := tenCustomers()
	for i := range records {
		records[i].AttritionFlag = customer.Attrited
	}
	svc := NewService(buildDataset(t, records))

	rows := svc.ChurnByIncome(context.Background())
	if len(rows) != 1 {
		t.Fatalf("got %d income groups, want 1", len(rows))
	}
	if rows[0].ChurnRate != 100.00 {
		t.Errorf("churn rate = %v, want 100.00", rows[0].ChurnRate)
	}
}

func TestChurnByAgeBracketOrdering(t *testing.T) {
	svc := NewService(buildDataset(t, tenCustomers()))

	rows := svc.ChurnByAgeBracket(context.Background())
	for i := 1; i < len(rows); i++ {
		if rows[i].ChurnRate > rows[i-1].ChurnRate {
			t.Errorf("rows not ordered by churn rate descending: %v before %v",
				rows[i-1].ChurnRate, rows[i].ChurnRate)
		}
	}
}

func TestChurnByCardTier(t *testing.T) {
	records := tenCustomers()
	records[0].CardCategory = customer.CardGold // attrited
	records[1].CardCategory = customer.CardGold // attrited
	records[2].CardCategory = customer.CardGold
	svc := NewService(buildDataset(t, records))

	rows := svc.ChurnByCardTier(context.Background())
	if len(rows) != 2 {
		t.Fatalf("got %d tiers, want 2", len(rows))
	}

	// Blue has 7 customers, Gold 3: population descending puts Blue first.
	if rows[0].CardCategory != customer.CardBlue || rows[0].Customers != 7 {
		t.Errorf("rows[0] = %+v, want Blue with 7 customers", rows[0])
	}

	gold := rows[1]
	if gold.CardCategory != customer.CardGold {
		t.Fatalf("rows[1] = %+v, want Gold", gold)
	}
	if gold.Attrited != 2 {
		t.Errorf("Gold attrited = %d, want 2", gold.Attrited)
	}
	if gold.ChurnRate != 66.67 {
		t.Errorf("Gold churn rate = %v, want 66.67", gold.ChurnRate)
	}
	// Credit limits 1000+2000+3000 for clients 1..3.
	if gold.TotalCreditLimit != 6000 {
		t.Errorf("Gold total credit limit = %v, want 6000", gold.TotalCreditLimit)
	}
}

func TestTransactionVolumeByStatus(t *testing.T) {
	svc := NewService(buildDataset(t, tenCustomers()))

	rows := svc.TransactionVolumeByStatus(context.Background())
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	// Attrited are clients 1 and 2: amounts 500+1000, counts 10+20.
	var attrited VolumeRow
	for _, row := range rows {
		if row.Status == string(customer.Attrited) {
			attrited = row
		}
	}
	if attrited.TotalTransAmt != 1500 {
		t.Errorf("attrited TotalTransAmt = %v, want 1500", attrited.TotalTransAmt)
	}
	if attrited.TotalTransCt != 30 {
		t.Errorf("attrited TotalTransCt = %d, want 30", attrited.TotalTransCt)
	}
	if attrited.AvgAmtPerCust != 750 {
		t.Errorf("attrited AvgAmtPerCust = %v, want 750", attrited.AvgAmtPerCust)
	}
}

func TestRevolvingBalanceByIncome(t *testing.T) {
	records := tenCustomers()
	records[9].IncomeCategory = customer.Income120KPlus
	svc := NewService(buildDataset(t, records))

	rows := svc.RevolvingBalanceByIncome(context.Background())
	if len(rows) != 2 {
		t.Fatalf("got %d income groups, want 2", len(rows))
	}

	// Balances 100..900 for the nine $40K-$60K clients; attrited share is
	// clients 1 and 2 (100+200). Client 10 moved to $120K+ with balance 1000.
	first := rows[0]
	if first.IncomeCategory != customer.Income40Kto60K {
		t.Fatalf("rows[0] = %+v, want %s first (larger balance)", first, customer.Income40Kto60K)
	}
	if first.TotalRevolvingBal != 4500 {
		t.Errorf("TotalRevolvingBal = %v, want 4500", first.TotalRevolvingBal)
	}
	if first.AttritedBal != 300 {
		t.Errorf("AttritedBal = %v, want 300", first.AttritedBal)
	}
	if first.ExistingBal != 4200 {
		t.Errorf("ExistingBal = %v, want 4200", first.ExistingBal)
	}
}

func TestUtilizationByStatus(t *testing.T) {
	svc := NewService(buildDataset(t, tenCustomers()))

	rows := svc.UtilizationByStatus(context.Background())
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	for _, row := range rows {
		if row.MeanUtilization < 0 || row.MeanUtilization > 1 {
			t.Errorf("%s mean utilization %v out of [0,1]", row.Status, row.MeanUtilization)
		}
		if row.MedianUtilization < 0 || row.MedianUtilization > 1 {
			t.Errorf("%s median utilization %v out of [0,1]", row.Status, row.MedianUtilization)
		}
	}

	// Attrited are clients 1 and 2 with utilization 0.1 and 0.2.
	for _, row := range rows {
		if row.Status == string(customer.Attrited) {
			if row.MeanUtilization != 0.15 {
				t.Errorf("attrited mean utilization = %v, want 0.15", row.MeanUtilization)
			}
			if row.MeanRevolvingBal != 150 {
				t.Errorf("attrited mean revolving balance = %v, want 150", row.MeanRevolvingBal)
			}
		}
	}
}
