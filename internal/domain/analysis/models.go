package analysis

// OverviewRow is one line of the attrition breakdown: how many customers carry
// each attrition flag and their share of the full book.
type OverviewRow struct {
	Status    string  `json:"status"`
	Customers int     `json:"customers"`
	Share     float64 `json:"sharePercent"`
}

// ChurnRow is the shared shape of the grouped churn-rate analyses: group key,
// population, attrited members, and churn rate in percent.
type ChurnRow struct {
	Group     string  `json:"group"`
	Customers int     `json:"customers"`
	Attrited  int     `json:"attrited"`
	ChurnRate float64 `json:"churnRatePercent"`
}

// TierRow extends the churn-rate shape with the total credit limit carried by
// the card tier.
type TierRow struct {
	CardCategory     string  `json:"cardCategory"`
	Customers        int     `json:"customers"`
	Attrited         int     `json:"attrited"`
	ChurnRate        float64 `json:"churnRatePercent"`
	TotalCreditLimit float64 `json:"totalCreditLimit"`
}

// VolumeRow summarizes transaction volume per attrition flag.
type VolumeRow struct {
	Status        string  `json:"status"`
	Customers     int     `json:"customers"`
	TotalTransAmt float64 `json:"totalTransAmt"`
	TotalTransCt  int     `json:"totalTransCt"`
	AvgAmtPerCust float64 `json:"avgTransAmtPerCustomer"`
}

// BalanceRow splits the revolving balance of an income bracket between
// attrited and existing customers.
type BalanceRow struct {
	IncomeCategory    string  `json:"incomeCategory"`
	Customers         int     `json:"customers"`
	TotalRevolvingBal float64 `json:"totalRevolvingBal"`
	AttritedBal       float64 `json:"attritedRevolvingBal"`
	ExistingBal       float64 `json:"existingRevolvingBal"`
	ChurnRate         float64 `json:"churnRatePercent"`
}

// UtilizationRow summarizes card utilization per attrition flag.
type UtilizationRow struct {
	Status            string  `json:"status"`
	Customers         int     `json:"customers"`
	MeanUtilization   float64 `json:"meanUtilizationRatio"`
	MedianUtilization float64 `json:"medianUtilizationRatio"`
	MeanRevolvingBal  float64 `json:"meanRevolvingBal"`
}

// RiskRow is one risk label with its population among existing customers.
type RiskRow struct {
	Label            RiskLabel `json:"label"`
	Customers        int       `json:"customers"`
	Share            float64   `json:"sharePercent"`
	MeanRevolvingBal float64   `json:"meanRevolvingBal"`
}
