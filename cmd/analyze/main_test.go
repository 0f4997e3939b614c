package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"churnscope/internal/domain/analysis"
	"churnscope/internal/domain/customer"
	"churnscope/internal/domain/dataset"
)

var reportTitles = []string{
	"Attrition Overview",
	"Churn by Age Bracket",
	"Churn by Income",
	"Churn by Months Inactive",
	"Churn by Card Tier",
	"Transaction Volume by Status",
	"Revolving Balance by Income",
	"Utilization by Status",
	"Churn Risk Profile",
}

func testService(t *testing.T) *analysis.Service {
	t.Helper()
	records := []customer.Record{
		{ClientID: 1, Age: 40, IncomeCategory: customer.Income40Kto60K,
			CardCategory: customer.CardBlue, CreditLimit: 4000, TotalRevolvingBal: 800,
			TotalTransAmt: 3200, TotalTransCt: 52, AvgUtilizationRatio: 0.2,
			AttritionFlag: customer.Existing},
		{ClientID: 2, Age: 55, IncomeCategory: customer.Income120KPlus,
			CardCategory: customer.CardGold, CreditLimit: 20000, TotalRevolvingBal: 2000,
			TotalTransAmt: 900, TotalTransCt: 20, AvgUtilizationRatio: 0.1,
			AttritionFlag: customer.Attrited},
	}
	ds, err := dataset.Build(context.Background(), records)
	if err != nil {
		t.Fatalf("dataset.Build() failed: %v", err)
	}
	return analysis.NewService(ds)
}

func TestWriteReportsExportsEveryAnalysis(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer

	if err := writeReports(context.Background(), &buf, testService(t), "run-1", dir); err != nil {
		t.Fatalf("writeReports() failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read output dir: %v", err)
	}
	if len(entries) != len(reportTitles) {
		t.Errorf("got %d exported files, want %d", len(entries), len(reportTitles))
	}

	out := buf.String()
	for _, title := range reportTitles {
		if !strings.Contains(out, title) {
			t.Errorf("report %q not rendered", title)
		}
	}
}

func TestWriteReportsContinuesPastExportFailure(t *testing.T) {
	// Output dir path occupied by a regular file: every export fails, but every
	// report must still render.
	dir := filepath.Join(t.TempDir(), "reports")
	if err := os.WriteFile(dir, []byte("in the way"), 0644); err != nil {
		t.Fatalf("failed to block output dir: %v", err)
	}

	var buf bytes.Buffer
	err := writeReports(context.Background(), &buf, testService(t), "run-2", dir)
	if err == nil {
		t.Fatal("writeReports() succeeded with an unwritable output dir")
	}

	out := buf.String()
	for _, title := range reportTitles {
		if !strings.Contains(out, title) {
			t.Errorf("report %q not rendered after export failure", title)
		}
	}
}
