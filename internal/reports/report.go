// Package reports builds the cleaning report: a Markdown document assembled
// from the pipeline's stage results, renderable to HTML.
package reports

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"surveyclean/domain/cleaning"
)

// Generator renders pipeline results into human-readable reports
type Generator struct{}

// NewGenerator creates a report generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Markdown builds the full cleaning report as a Markdown document
func (g *Generator) Markdown(surveyName string, result *cleaning.PipelineResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Data Cleaning Report: %s\n\n", surveyName)
	fmt.Fprintf(&b, "Rows before processing: %d\n\n", result.RowsBefore)
	fmt.Fprintf(&b, "Rows after processing: %d\n\n", result.RowsAfter)

	if result.Imputation != nil {
		writeImputationSection(&b, result.Imputation)
	}
	if result.Outliers != nil {
		writeOutlierSection(&b, result.Outliers)
	}
	if result.Validation != nil {
		writeValidationSection(&b, result.Validation)
	}
	if result.Estimates != nil {
		writeEstimateSection(&b, result.Estimates, result.Summary)
	}
	return b.String()
}

// HTML renders the Markdown report to an HTML document body
func (g *Generator) HTML(surveyName string, result *cleaning.PipelineResult) []byte {
	md := g.Markdown(surveyName, result)

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.Render(doc, renderer)
}

func writeImputationSection(b *strings.Builder, stats *cleaning.ImputationStats) {
	b.WriteString("## Missing Value Imputation\n\n")
	fmt.Fprintf(b, "- Missing values before: %d\n", stats.TotalMissingBefore)
	fmt.Fprintf(b, "- Missing values after: %d\n", stats.TotalMissingAfter)
	fmt.Fprintf(b, "- Values imputed: %d\n\n", stats.TotalImputed)

	if len(stats.ColumnsProcessed) > 0 {
		b.WriteString("| Column | Method | Missing | Imputed |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, col := range stats.ColumnsProcessed {
			fmt.Fprintf(b, "| %s | %s | %d | %d |\n",
				col.Column, col.Method, col.MissingCount, col.ImputedCount)
		}
		b.WriteString("\n")
	}
	writeSkips(b, stats.Skipped)
}

func writeOutlierSection(b *strings.Builder, stats *cleaning.OutlierStats) {
	b.WriteString("## Outlier Detection\n\n")
	fmt.Fprintf(b, "- Outliers detected: %d\n\n", stats.TotalOutliersDetected)

	if len(stats.ColumnsProcessed) > 0 {
		b.WriteString("| Column | Method | Action | Outliers | Share |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, col := range stats.ColumnsProcessed {
			fmt.Fprintf(b, "| %s | %s | %s | %d | %.1f%% |\n",
				col.Column, col.Method, col.Action, col.OutlierCount, col.OutlierPercentage)
		}
		b.WriteString("\n")
	}
	writeSkips(b, stats.Skipped)
}

func writeValidationSection(b *strings.Builder, stats *cleaning.ValidationStats) {
	b.WriteString("## Validation\n\n")
	fmt.Fprintf(b, "- Rules applied: %d\n", len(stats.RulesApplied))
	fmt.Fprintf(b, "- Total violations: %d\n\n", stats.TotalViolations)

	if len(stats.RulesApplied) > 0 {
		b.WriteString("| Rule | Type | Violations | Rate |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, rule := range stats.RulesApplied {
			fmt.Fprintf(b, "| %s | %s | %d | %.1f%% |\n",
				rule.RuleName, rule.RuleType, rule.Violations, rule.ViolationRate)
		}
		b.WriteString("\n")
	}
	writeSkips(b, stats.Skipped)
}

func writeEstimateSection(b *strings.Builder, est *cleaning.EstimateSet, summary *cleaning.EstimatesSummary) {
	b.WriteString("## Population Estimates\n\n")
	if !est.WeightingApplied {
		b.WriteString("No usable weight column; estimates are unweighted.\n\n")
	}

	keys := make([]string, 0, len(est.Unweighted))
	for key := range est.Unweighted {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	b.WriteString("| Estimate | Unweighted | Weighted | CI (weighted) |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, key := range keys {
		u := est.Unweighted[key]
		weightedCell, ciCell := "-", "-"
		if w, ok := est.Weighted[key]; ok {
			weightedCell = formatEstimate(w.Estimate)
			ciCell = fmt.Sprintf("[%s, %s]",
				formatEstimate(w.ConfidenceInterval[0]), formatEstimate(w.ConfidenceInterval[1]))
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n", key, formatEstimate(u.Estimate), weightedCell, ciCell)
	}
	b.WriteString("\n")

	if summary != nil && summary.Effectiveness != nil {
		eff := summary.Effectiveness
		b.WriteString("### Weight Effectiveness\n\n")
		fmt.Fprintf(b, "- Coefficient of variation: %.3f\n", eff.CoefficientOfVariation)
		fmt.Fprintf(b, "- Effective sample size ratio: %.3f\n", eff.EffectiveSampleSizeRatio)
		fmt.Fprintf(b, "- Assessment: %s\n\n", eff.Assessment)
	}
}

func writeSkips(b *strings.Builder, skipped []cleaning.SkippedUnit) {
	if len(skipped) == 0 {
		return
	}
	b.WriteString("Skipped:\n\n")
	for _, s := range skipped {
		if s.Detail != "" {
			fmt.Fprintf(b, "- %s (%s: %s)\n", s.Unit, s.Reason, s.Detail)
		} else {
			fmt.Fprintf(b, "- %s (%s)\n", s.Unit, s.Reason)
		}
	}
	b.WriteString("\n")
}

func formatEstimate(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}
