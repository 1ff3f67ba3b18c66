package usecase

import (
	"strings"
	"testing"

	"github.com/prylval/affiliates/internal/domain"
)

func TestCoveragePercent(t *testing.T) {
	tests := []struct {
		matched, total int
		want           string
	}{
		{0, 0, "0.0"},
		{0, 5, "0.0"},
		{1, 3, "33.3"},
		{2, 3, "66.7"},
		{3, 3, "100.0"},
	}

	for _, tt := range tests {
		if got := CoveragePercent(tt.matched, tt.total); got != tt.want {
			t.Errorf("CoveragePercent(%d, %d) = %q, want %q", tt.matched, tt.total, got, tt.want)
		}
	}
}

func TestCategoryCoveragePercent_EmptyCategory(t *testing.T) {
	if got := (domain.CategoryCoverage{}).Percent(); got != 0 {
		t.Errorf("Percent() = %v, want 0", got)
	}
}

func TestWriteCoverageReport(t *testing.T) {
	cov := domain.NewCoverage()
	cov.AddProduct("hörlurar")
	cov.AddProduct("hörlurar")
	cov.AddMatch("hörlurar", "valostore")
	cov.AddProduct("phones")
	cov.AddMatch("phones", "computersalg")

	var b strings.Builder
	if err := WriteCoverageReport(&b, cov, []string{"Kindle: replaced a with b (higher priority)"}); err != nil {
		t.Fatalf("WriteCoverageReport error = %v", err)
	}
	out := b.String()

	for _, want := range []string{
		"HÖRLURAR:",
		"  Total: 2 products",
		"  Matched: 1 (50.0%)",
		"    valostore: 1 products",
		"PHONES:",
		"TOTAL COVERAGE: 2/3 (66.7%)",
		"WARNINGS:",
		"Kindle: replaced a with b",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	if strings.Index(out, "HÖRLURAR") > strings.Index(out, "PHONES") {
		t.Error("categories not in first-seen order")
	}
}

func TestWriteCoverageReport_Empty(t *testing.T) {
	var b strings.Builder
	if err := WriteCoverageReport(&b, domain.NewCoverage(), nil); err != nil {
		t.Fatalf("WriteCoverageReport error = %v", err)
	}
	if !strings.Contains(b.String(), "TOTAL COVERAGE: 0/0 (0.0%)") {
		t.Errorf("unexpected report:\n%s", b.String())
	}
	if strings.Contains(b.String(), "WARNINGS") {
		t.Error("empty warning list should not print a section")
	}
}
