package analysis

import (
	"context"
	"math"
	"sort"
	"strconv"

	"go.opentelemetry.io/otel"
	"gonum.org/v1/gonum/stat"

	"churnscope/internal/domain/customer"
	"churnscope/internal/domain/dataset"
)

var tracer = otel.Tracer("churnscope/analysis")

// Service runs the aggregate churn analyses over a built dataset. All methods
// are pure reads; the dataset is never mutated.
type Service struct {
	ds *dataset.Dataset
}

// NewService creates an analysis service over an immutable dataset.
func NewService(ds *dataset.Dataset) *Service {
	return &Service{ds: ds}
}

// round2 rounds to two decimal places, the precision all report rates use.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// churnRate returns attrited/total as a percentage. An empty group yields 0
// rather than dividing by zero.
func churnRate(attrited, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(attrited) / float64(total) * 100)
}

// AttritionOverview groups the full book by attrition flag. Ordered by
// population descending.
func (s *Service) AttritionOverview(ctx context.Context) []OverviewRow {
	_, span := tracer.Start(ctx, "analysis.AttritionOverview")
	defer span.End()

	counts := make(map[string]int)
	for _, st := range s.ds.ChurnStatus {
		counts[string(st.AttritionFlag)]++
	}

	total := s.ds.Len()
	rows := make([]OverviewRow, 0, len(counts))
	for status, n := range counts {
		rows = append(rows, OverviewRow{
			Status:    status,
			Customers: n,
			Share:     churnRate(n, total),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Customers != rows[j].Customers {
			return rows[i].Customers > rows[j].Customers
		}
		return rows[i].Status < rows[j].Status
	})
	return rows
}

// ChurnByAgeBracket groups by derived age bracket, joining the customer
// dimension with the churn status on client id. Ordered by churn rate
// descending.
func (s *Service) ChurnByAgeBracket(ctx context.Context) []ChurnRow {
	_, span := tracer.Start(ctx, "analysis.ChurnByAgeBracket")
	defer span.End()

	return s.groupChurn(func(i int) string {
		return customer.AgeBracket(s.ds.Customers[i].Age)
	}, byChurnRate)
}

// ChurnByIncome groups by income category. Ordered by churn rate descending.
func (s *Service) ChurnByIncome(ctx context.Context) []ChurnRow {
	_, span := tracer.Start(ctx, "analysis.ChurnByIncome")
	defer span.End()

	return s.groupChurn(func(i int) string {
		return s.ds.Account[i].IncomeCategory
	}, byChurnRate)
}

// ChurnByInactivity groups by the months-inactive count from the activities
// dimension. Ordered by churn rate descending.
func (s *Service) ChurnByInactivity(ctx context.Context) []ChurnRow {
	_, span := tracer.Start(ctx, "analysis.ChurnByInactivity")
	defer span.End()

	return s.groupChurn(func(i int) string {
		return strconv.Itoa(s.ds.Activities[i].MonthsInactive12Mon)
	}, byChurnRate)
}

// groupChurn is the shared single-pass grouping behind the churn-rate
// analyses: key each customer, count the group and its attrited members.
func (s *Service) groupChurn(key func(i int) string, less func(a, b ChurnRow) bool) []ChurnRow {
	type bucket struct {
		customers int
		attrited  int
	}
	buckets := make(map[string]*bucket)

	for i, st := range s.ds.ChurnStatus {
		k := key(i)
		b, ok := buckets[k]
		if !ok {
			b = &bucket{}
			buckets[k] = b
		}
		b.customers++
		if st.AttritionFlag == customer.Attrited {
			b.attrited++
		}
	}

	rows := make([]ChurnRow, 0, len(buckets))
	for k, b := range buckets {
		rows = append(rows, ChurnRow{
			Group:     k,
			Customers: b.customers,
			Attrited:  b.attrited,
			ChurnRate: churnRate(b.attrited, b.customers),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
	return rows
}

func byChurnRate(a, b ChurnRow) bool {
	if a.ChurnRate != b.ChurnRate {
		return a.ChurnRate > b.ChurnRate
	}
	return a.Group < b.Group
}

// ChurnByCardTier groups by card tier and sums the credit limit held in each,
// joining account and fact tables on client id. Ordered by population
// descending.
func (s *Service) ChurnByCardTier(ctx context.Context) []TierRow {
	_, span := tracer.Start(ctx, "analysis.ChurnByCardTier")
	defer span.End()

	type bucket struct {
		customers   int
		attrited    int
		creditLimit float64
	}
	buckets := make(map[string]*bucket)

	for i, acc := range s.ds.Account {
		b, ok := buckets[acc.CardCategory]
		if !ok {
			b = &bucket{}
			buckets[acc.CardCategory] = b
		}
		b.customers++
		if s.ds.ChurnStatus[i].AttritionFlag == customer.Attrited {
			b.attrited++
		}
		if fact, ok := s.ds.Fact(acc.ClientID); ok {
			b.creditLimit += fact.CreditLimit
		}
	}

	rows := make([]TierRow, 0, len(buckets))
	for tier, b := range buckets {
		rows = append(rows, TierRow{
			CardCategory:     tier,
			Customers:        b.customers,
			Attrited:         b.attrited,
			ChurnRate:        churnRate(b.attrited, b.customers),
			TotalCreditLimit: round2(b.creditLimit),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Customers != rows[j].Customers {
			return rows[i].Customers > rows[j].Customers
		}
		return rows[i].CardCategory < rows[j].CardCategory
	})
	return rows
}

// TransactionVolumeByStatus sums transaction amount and count per attrition
// flag. Ordered by population descending.
func (s *Service) TransactionVolumeByStatus(ctx context.Context) []VolumeRow {
	_, span := tracer.Start(ctx, "analysis.TransactionVolumeByStatus")
	defer span.End()

	type bucket struct {
		customers int
		amount    float64
		count     int
	}
	buckets := make(map[string]*bucket)

	for i, fact := range s.ds.Transactions {
		status := string(s.ds.ChurnStatus[i].AttritionFlag)
		b, ok := buckets[status]
		if !ok {
			b = &bucket{}
			buckets[status] = b
		}
		b.customers++
		b.amount += fact.TotalTransAmt
		b.count += fact.TotalTransCt
	}

	rows := make([]VolumeRow, 0, len(buckets))
	for status, b := range buckets {
		avg := 0.0
		if b.customers > 0 {
			avg = round2(b.amount / float64(b.customers))
		}
		rows = append(rows, VolumeRow{
			Status:        status,
			Customers:     b.customers,
			TotalTransAmt: round2(b.amount),
			TotalTransCt:  b.count,
			AvgAmtPerCust: avg,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Customers != rows[j].Customers {
			return rows[i].Customers > rows[j].Customers
		}
		return rows[i].Status < rows[j].Status
	})
	return rows
}

// RevolvingBalanceByIncome splits each income bracket's revolving balance
// between attrited and existing customers. Ordered by total balance
// descending.
func (s *Service) RevolvingBalanceByIncome(ctx context.Context) []BalanceRow {
	_, span := tracer.Start(ctx, "analysis.RevolvingBalanceByIncome")
	defer span.End()

	type bucket struct {
		customers   int
		attrited    int
		attritedBal float64
		existingBal float64
	}
	buckets := make(map[string]*bucket)

	for i, acc := range s.ds.Account {
		b, ok := buckets[acc.IncomeCategory]
		if !ok {
			b = &bucket{}
			buckets[acc.IncomeCategory] = b
		}
		b.customers++

		bal := s.ds.Transactions[i].TotalRevolvingBal
		if s.ds.ChurnStatus[i].AttritionFlag == customer.Attrited {
			b.attrited++
			b.attritedBal += bal
		} else {
			b.existingBal += bal
		}
	}

	rows := make([]BalanceRow, 0, len(buckets))
	for income, b := range buckets {
		rows = append(rows, BalanceRow{
			IncomeCategory:    income,
			Customers:         b.customers,
			TotalRevolvingBal: round2(b.attritedBal + b.existingBal),
			AttritedBal:       round2(b.attritedBal),
			ExistingBal:       round2(b.existingBal),
			ChurnRate:         churnRate(b.attrited, b.customers),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalRevolvingBal != rows[j].TotalRevolvingBal {
			return rows[i].TotalRevolvingBal > rows[j].TotalRevolvingBal
		}
		return rows[i].IncomeCategory < rows[j].IncomeCategory
	})
	return rows
}

// UtilizationByStatus reports mean and median utilization ratio and mean
// revolving balance per attrition flag. Ordered by population descending.
func (s *Service) UtilizationByStatus(ctx context.Context) []UtilizationRow {
	_, span := tracer.Start(ctx, "analysis.UtilizationByStatus")
	defer span.End()

	utilization := make(map[string][]float64)
	balances := make(map[string][]float64)

	for i, fact := range s.ds.Transactions {
		status := string(s.ds.ChurnStatus[i].AttritionFlag)
		utilization[status] = append(utilization[status], fact.AvgUtilizationRatio)
		balances[status] = append(balances[status], fact.TotalRevolvingBal)
	}

	rows := make([]UtilizationRow, 0, len(utilization))
	for status, utils := range utilization {
		sort.Float64s(utils)
		rows = append(rows, UtilizationRow{
			Status:            status,
			Customers:         len(utils),
			MeanUtilization:   round2(stat.Mean(utils, nil)),
			MedianUtilization: round2(stat.Quantile(0.5, stat.Empirical, utils, nil)),
			MeanRevolvingBal:  round2(stat.Mean(balances[status], nil)),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Customers != rows[j].Customers {
			return rows[i].Customers > rows[j].Customers
		}
		return rows[i].Status < rows[j].Status
	})
	return rows
}
