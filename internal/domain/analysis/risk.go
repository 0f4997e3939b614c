package analysis

import (
	"context"
	"sort"

	"gonum.org/v1/gonum/stat"

	"churnscope/internal/domain/customer"
)

// RiskLabel tags an existing customer with a churn-risk level.
type RiskLabel string

const (
	RiskHigh   RiskLabel = "High Risk"
	RiskMedium RiskLabel = "Medium Risk"
	RiskLow    RiskLabel = "Low Risk"
)

// Hand-tuned business thresholds. The cutoffs are asymmetric between income
// tiers and are fixed rules, not inferred or configurable.
const (
	highRiskMinRevolvingBal     = 1500.0
	mediumRiskMinRevolvingBal   = 1000.0
	mediumRiskMaxRevolvingBal   = 1500.0
	mediumRiskMinMonthsInactive = 4
)

// ClassifyRisk assigns a risk label via ordered rule evaluation, first match
// wins. It applies to existing customers; callers filter out attrited ones.
func ClassifyRisk(incomeCategory string, monthsInactive int, revolvingBal float64) RiskLabel {
	if incomeCategory == customer.Income120KPlus &&
		monthsInactive == 0 &&
		revolvingBal > highRiskMinRevolvingBal {
		return RiskHigh
	}
	if incomeCategory == customer.IncomeLessThan40K &&
		monthsInactive >= mediumRiskMinMonthsInactive &&
		revolvingBal >= mediumRiskMinRevolvingBal &&
		revolvingBal <= mediumRiskMaxRevolvingBal {
		return RiskMedium
	}
	return RiskLow
}

// RiskProfile classifies every existing customer and aggregates the labels,
// joining the account, activities, fact, and churn-status tables on client
// id. Shares are relative to the existing population. Ordered High, Medium,
// Low.
func (s *Service) RiskProfile(ctx context.Context) []RiskRow {
	_, span := tracer.Start(ctx, "analysis.RiskProfile")
	defer span.End()

	balances := make(map[RiskLabel][]float64)
	existing := 0

	for i, st := range s.ds.ChurnStatus {
		if st.AttritionFlag != customer.Existing {
			continue
		}
		existing++

		acc := s.ds.Account[i]
		act := s.ds.Activities[i]
		fact := s.ds.Transactions[i]

		label := ClassifyRisk(acc.IncomeCategory, act.MonthsInactive12Mon, fact.TotalRevolvingBal)
		balances[label] = append(balances[label], fact.TotalRevolvingBal)
	}

	order := map[RiskLabel]int{RiskHigh: 0, RiskMedium: 1, RiskLow: 2}
	rows := make([]RiskRow, 0, len(balances))
	for label, bals := range balances {
		rows = append(rows, RiskRow{
			Label:            label,
			Customers:        len(bals),
			Share:            churnRate(len(bals), existing),
			MeanRevolvingBal: round2(stat.Mean(bals, nil)),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return order[rows[i].Label] < order[rows[j].Label]
	})
	return rows
}
