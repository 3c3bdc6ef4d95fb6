package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mamamialezatoz/go-pmaudit/internal/models"
	"github.com/mamamialezatoz/go-pmaudit/internal/scoring"
)

const (
	colorHeader    = "\033[1;35m" // Magenta
	colorSubheader = "\033[1;33m" // Yellow bold
	colorOwner     = "\033[1;36m" // Cyan
	colorMuted     = "\033[0;37m" // Light gray
	colorGreen     = "\033[0;32m"
	colorOrange    = "\033[0;33m"
	colorRed       = "\033[0;31m"
)

var verdictColors = map[models.Verdict]string{
	models.VerdictExclude:  colorRed,
	models.VerdictNoChange: colorGreen,
	models.VerdictNotFound: colorOrange,
}

var ratingColors = map[scoring.Rating]string{
	scoring.RatingGood:    colorGreen,
	scoring.RatingAverage: colorOrange,
	scoring.RatingPoor:    colorRed,
	scoring.RatingUnknown: colorMuted,
}

// colorize applies color to text if enabled
func colorize(text, color string, enabled bool) string {
	if enabled && color != "" {
		return color + text + "\033[0m"
	}
	return text
}

// renderReport writes the text form of an analysis
func renderReport(w io.Writer, r *models.AnalysisResult, useColors bool) {
	section := func(title string) {
		fmt.Fprintf(w, "\n%s\n%s\n", colorize(title, colorSubheader, useColors), strings.Repeat("-", len(title)))
	}

	fmt.Fprintln(w, colorize("Audit of "+r.URL, colorHeader, useColors))
	fmt.Fprintln(w, strings.Repeat("=", len("Audit of ")+len(r.URL)))
	if r.PolicyVersion != "" {
		fmt.Fprintf(w, "Policy version: %s\n", r.PolicyVersion)
	}

	if r.Cache != (models.CacheStatus{}) {
		section("Cache")
		fmt.Fprintln(w, r.Cache.Cloudflare)
		fmt.Fprintln(w, r.Cache.BigScoots)
		if r.Cache.Plan != "" {
			fmt.Fprintf(w, "Cache Plan: %s\n", r.Cache.Plan)
		}
	}
	if r.PerformanceTools != "" {
		fmt.Fprintf(w, "Performance tools: %s\n", r.PerformanceTools)
	}

	section(fmt.Sprintf("Plugins (%d)", len(r.Plugins)))
	writeList(w, r.Plugins, useColors)
	section(fmt.Sprintf("Themes (%d)", len(r.Themes)))
	writeList(w, r.Themes, useColors)

	section(fmt.Sprintf("Recommendations (%d)", len(r.Findings)))
	if len(r.Findings) == 0 {
		fmt.Fprintln(w, colorize("None", colorMuted, useColors))
	}
	for _, rec := range r.Findings {
		fmt.Fprintf(w, "%s: %s - %s\n",
			colorize(rec.Owner, colorOwner, useColors),
			rec.Identifier,
			colorize(string(rec.Verdict), verdictColors[rec.Verdict], useColors))
	}

	if len(r.Inventory.ScriptIDs) > 0 {
		section("Script IDs")
		writeList(w, r.Inventory.ScriptIDs, useColors)
	}
	if len(r.Inventory.StyleIDs) > 0 {
		section("Style IDs")
		writeList(w, r.Inventory.StyleIDs, useColors)
	}
	if n := len(r.Inventory.InlineDelayed); n > 0 {
		fmt.Fprintf(w, "\nDelayed inline scripts: %d\n", n)
	}

	if r.Scores != nil {
		renderScores(w, r.Scores, useColors)
	}

	counts := r.Findings.CountByVerdict()
	fmt.Fprintf(w, "\nFound %d recommendations (%d to exclude, %d not found)\n",
		len(r.Findings), counts[models.VerdictExclude], counts[models.VerdictNotFound])
}

func writeList(w io.Writer, items []string, useColors bool) {
	if len(items) == 0 {
		fmt.Fprintln(w, colorize("None", colorMuted, useColors))
		return
	}
	for _, item := range items {
		fmt.Fprintf(w, "- %s\n", item)
	}
}

func renderScores(w io.Writer, s *models.Scores, useColors bool) {
	rated := func(metric string, value float64, format string) string {
		return colorize(fmt.Sprintf(format, value), ratingColors[scoring.MetricRating(metric, value)], useColors)
	}

	for _, platform := range models.Platforms {
		title := "Scores (" + string(platform) + ")"
		fmt.Fprintf(w, "\n%s\n%s\n", colorize(title, colorSubheader, useColors), strings.Repeat("-", len(title)))

		if lab, ok := s.Lab[platform]; ok {
			score := colorize(fmt.Sprintf("%.0f", lab.OverallScore), ratingColors[scoring.ScoreRating(lab.OverallScore)], useColors)
			fmt.Fprintf(w, "Performance: %s  LCP: %s  CLS: %s  TBT: %s\n",
				score,
				rated("LCP", lab.LCP, "%.2fs"),
				rated("CLS", lab.CLS, "%.3f"),
				rated("TBT", lab.TBT, "%.2fs"))
		} else {
			fmt.Fprintln(w, colorize("Lab data unavailable", colorMuted, useColors))
		}

		field, ok := s.Field[platform]
		if !ok || field.Status != models.FieldPresent {
			status := string(models.FieldUnavailable)
			if ok {
				status = string(field.Status)
			}
			fmt.Fprintf(w, "Field data: %s\n", colorize(status, colorMuted, useColors))
			continue
		}
		parts := make([]string, 0, 4)
		for _, m := range []struct {
			name   string
			value  *float64
			format string
		}{
			{"FCP", field.FCP, "%.2fs"},
			{"LCP", field.LCP, "%.2fs"},
			{"CLS", field.CLS, "%.3f"},
			{"TTFB", field.TTFB, "%.2fs"},
		} {
			if m.value != nil {
				parts = append(parts, m.name+": "+rated(m.name, *m.value, m.format))
			}
		}
		fmt.Fprintf(w, "Field data: %s\n", strings.Join(parts, "  "))
	}
}
