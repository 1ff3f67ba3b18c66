package usecase

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/prylval/affiliates/internal/domain"
)

var categoryTitle = cases.Upper(language.Swedish)

// CoveragePercent returns matched/total as a percentage rounded to one
// decimal. An empty category reports "0.0".
func CoveragePercent(matched, total int) string {
	if total == 0 {
		return decimal.Zero.StringFixed(1)
	}
	return decimal.NewFromInt(int64(matched)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		StringFixed(1)
}

// WriteCoverageReport writes the human-readable coverage summary followed by
// any merchant replacement warnings.
func WriteCoverageReport(w io.Writer, coverage *domain.Coverage, warnings []string) error {
	var b strings.Builder

	b.WriteString("COVERAGE REPORT\n")
	b.WriteString("===============\n")

	for _, name := range coverage.Categories() {
		stats, _ := coverage.Category(name)
		fmt.Fprintf(&b, "\n%s:\n", categoryTitle.String(name))
		fmt.Fprintf(&b, "  Total: %d products\n", stats.Total)
		fmt.Fprintf(&b, "  Matched: %d (%s%%)\n", stats.Matched, CoveragePercent(stats.Matched, stats.Total))
		if len(stats.Merchants) > 0 {
			b.WriteString("  Merchants:\n")
			for _, merchant := range sortedMerchants(stats.Merchants) {
				fmt.Fprintf(&b, "    %s: %d products\n", merchant, stats.Merchants[merchant])
			}
		}
	}

	overall := coverage.Overall()
	fmt.Fprintf(&b, "\nTOTAL COVERAGE: %d/%d (%s%%)\n",
		overall.Matched, overall.Total, CoveragePercent(overall.Matched, overall.Total))

	if len(warnings) > 0 {
		b.WriteString("\nWARNINGS:\n")
		for _, warning := range warnings {
			fmt.Fprintf(&b, "  %s\n", warning)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func sortedMerchants(merchants map[string]int) []string {
	names := make([]string, 0, len(merchants))
	for m := range merchants {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}
