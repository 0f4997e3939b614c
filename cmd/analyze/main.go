package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"churnscope/internal/domain/analysis"
	"churnscope/internal/domain/dataset"
	"churnscope/internal/extract"
	"churnscope/internal/infrastructure/postgres"
	"churnscope/internal/report"
	"churnscope/internal/shared/config"
	"churnscope/internal/shared/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize telemetry (if enabled)
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			MetricsPort:  cfg.Telemetry.MetricsPort,
		})
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Printf("Error shutting down telemetry: %v", err)
			}
		}()
	}

	runID := uuid.NewString()
	log.Printf("Starting analysis run %s (extract=%s)", runID, cfg.Extract.Path)

	records, err := extract.ReadFile(ctx, cfg.Extract.Path)
	if err != nil {
		return err
	}
	log.Printf("Read %d customer records", len(records))

	ds, err := dataset.Build(ctx, records)
	if err != nil {
		return err
	}

	// Materialize the star schema in Postgres (if enabled)
	if cfg.Warehouse.Enabled {
		db, err := postgres.New(cfg.Database.ConnectionString())
		if err != nil {
			return err
		}
		defer db.Close()

		wh := postgres.NewWarehouse(db)
		if err := wh.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := wh.Load(ctx, ds); err != nil {
			return err
		}
		log.Printf("Warehouse loaded with %d records", ds.Len())
	}

	svc := analysis.NewService(ds)

	if err := writeReports(ctx, os.Stdout, svc, runID, cfg.Output.Dir); err != nil {
		return err
	}

	log.Printf("Analysis run %s complete", runID)
	return nil
}

// writeReports renders every analysis to out and exports it as JSON. One
// report's export failure does not stop the remaining reports; the failures
// are joined into the returned error.
func writeReports(ctx context.Context, out io.Writer, svc *analysis.Service, runID, dir string) error {
	var errs []error

	overview := svc.AttritionOverview(ctx)
	report.Render(out, "Attrition Overview",
		[]string{"Status", "Customers", "Share %"}, overviewRows(overview))
	errs = append(errs, export(dir, "attrition_overview", runID, overview))

	byAge := svc.ChurnByAgeBracket(ctx)
	report.Render(out, "Churn by Age Bracket",
		[]string{"Age Bracket", "Customers", "Attrited", "Churn %"}, churnRows(byAge))
	errs = append(errs, export(dir, "churn_by_age_bracket", runID, byAge))

	byIncome := svc.ChurnByIncome(ctx)
	report.Render(out, "Churn by Income",
		[]string{"Income", "Customers", "Attrited", "Churn %"}, churnRows(byIncome))
	errs = append(errs, export(dir, "churn_by_income", runID, byIncome))

	byInactivity := svc.ChurnByInactivity(ctx)
	report.Render(out, "Churn by Months Inactive",
		[]string{"Months Inactive", "Customers", "Attrited", "Churn %"}, churnRows(byInactivity))
	errs = append(errs, export(dir, "churn_by_inactivity", runID, byInactivity))

	byTier := svc.ChurnByCardTier(ctx)
	report.Render(out, "Churn by Card Tier",
		[]string{"Card", "Customers", "Attrited", "Churn %", "Total Credit Limit"}, tierRows(byTier))
	errs = append(errs, export(dir, "churn_by_card_tier", runID, byTier))

	volume := svc.TransactionVolumeByStatus(ctx)
	report.Render(out, "Transaction Volume by Status",
		[]string{"Status", "Customers", "Total Amt", "Total Ct", "Avg Amt/Cust"}, volumeRows(volume))
	errs = append(errs, export(dir, "transaction_volume_by_status", runID, volume))

	balances := svc.RevolvingBalanceByIncome(ctx)
	report.Render(out, "Revolving Balance by Income",
		[]string{"Income", "Customers", "Total Bal", "Attrited Bal", "Existing Bal", "Churn %"},
		balanceRows(balances))
	errs = append(errs, export(dir, "revolving_balance_by_income", runID, balances))

	utilization := svc.UtilizationByStatus(ctx)
	report.Render(out, "Utilization by Status",
		[]string{"Status", "Customers", "Mean Util", "Median Util", "Mean Revolving Bal"},
		utilizationRows(utilization))
	errs = append(errs, export(dir, "utilization_by_status", runID, utilization))

	risk := svc.RiskProfile(ctx)
	report.Render(out, "Churn Risk Profile",
		[]string{"Risk", "Customers", "Share %", "Mean Revolving Bal"}, riskRows(risk))
	errs = append(errs, export(dir, "churn_risk_profile", runID, risk))

	return errors.Join(errs...)
}

func export(dir, name, runID string, rows any) error {
	path, err := report.ExportJSON(dir, report.New(name, runID, rows))
	if err != nil {
		return err
	}
	log.Printf("Exported %s", path)
	return nil
}

func overviewRows(rows []analysis.OverviewRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.Status, strconv.Itoa(r.Customers), dec2(r.Share)})
	}
	return out
}

func churnRows(rows []analysis.ChurnRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Group, strconv.Itoa(r.Customers), strconv.Itoa(r.Attrited), dec2(r.ChurnRate),
		})
	}
	return out
}

func tierRows(rows []analysis.TierRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.CardCategory, strconv.Itoa(r.Customers), strconv.Itoa(r.Attrited),
			dec2(r.ChurnRate), dec2(r.TotalCreditLimit),
		})
	}
	return out
}

func volumeRows(rows []analysis.VolumeRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Status, strconv.Itoa(r.Customers), dec2(r.TotalTransAmt),
			strconv.Itoa(r.TotalTransCt), dec2(r.AvgAmtPerCust),
		})
	}
	return out
}

func balanceRows(rows []analysis.BalanceRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.IncomeCategory, strconv.Itoa(r.Customers), dec2(r.TotalRevolvingBal),
			dec2(r.AttritedBal), dec2(r.ExistingBal), dec2(r.ChurnRate),
		})
	}
	return out
}

func utilizationRows(rows []analysis.UtilizationRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Status, strconv.Itoa(r.Customers), dec2(r.MeanUtilization),
			dec2(r.MedianUtilization), dec2(r.MeanRevolvingBal),
		})
	}
	return out
}

func riskRows(rows []analysis.RiskRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			string(r.Label), strconv.Itoa(r.Customers), dec2(r.Share), dec2(r.MeanRevolvingBal),
		})
	}
	return out
}

// dec2 formats a value with two decimals, the precision every report figure
// uses, percentage or amount.
func dec2(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
