package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Alias1177/MSMEPredictor/internal/present"
	"github.com/Alias1177/MSMEPredictor/models"
)

// writeResult prints one prediction the way the result card shows it
func writeResult(w io.Writer, r *models.PredictionResult) {
	view := present.NewResultView(r)
	if view == nil {
		return
	}
	if view.IsError() {
		fmt.Fprintf(w, "Error: %s\n", view.Error)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Risk level:\t%s\n", view.Category)
	fmt.Fprintf(tw, "Risk score:\t%s\n", view.RiskScore)
	fmt.Fprintf(tw, "Confidence:\t%s\n", view.Confidence)
	fmt.Fprintf(tw, "Status:\t%s\n", view.Status)
	tw.Flush()

	fmt.Fprintln(w, "Key risk factors:")
	if len(view.Factors) == 0 {
		fmt.Fprintf(w, "  %s\n", present.NoFactorsSingle)
	}
	for _, f := range view.Factors {
		fmt.Fprintf(w, "  - %s\n", f)
	}
	fmt.Fprintf(w, "\n%s\n", view.Theme.Advice)
}

// writeBulk prints the summary and one table row per result
func writeBulk(w io.Writer, b *models.Batch) {
	view := present.NewBulkView(b)
	if view == nil {
		fmt.Fprintln(w, "No predictions returned")
		return
	}

	fmt.Fprintf(w, "Showing predictions for %d businesses\n\n", view.Summary.Total)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Low Risk:\t%d\n", view.Summary.LowRisk)
	fmt.Fprintf(tw, "Medium Risk:\t%d\n", view.Summary.MediumRisk)
	fmt.Fprintf(tw, "High Risk:\t%d\n", view.Summary.HighRisk)
	fmt.Fprintf(tw, "Health Rate:\t%s\n", view.HealthRate)
	tw.Flush()

	if view.Mismatch {
		fmt.Fprintf(w, "\nWarning: the file has %d data rows but %d predictions were returned\n", view.CSVRows, view.Summary.Total)
	}
	fmt.Fprintln(w)

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join([]string{"#", "RISK LEVEL", "RISK SCORE", "STATUS", "CONFIDENCE", "KEY FACTORS"}, "\t"))
	for _, row := range view.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			row.Row, row.Category, row.RiskScore, row.Status, row.Confidence, row.Factors)
	}
	tw.Flush()
}
