package verification

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"
)

var (
	matchFields       = []string{"item", "status", "details"}
	discrepancyFields = []string{"item", "severity", "details"}
)

// BuildReport flattens a parsed verification result into the downloadable
// CSV report. The layout is deterministic for a given result and timestamp:
// a timestamped title line, then the overall assessment, matches and
// discrepancies sections, separated by blank lines. Empty sections carry a
// literal "No ... found" line instead of a header.
func BuildReport(result *Result, now time.Time) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{"Verification Report - Generated on " + now.Format("2006-01-02 15:04:05")})
	w.Write(nil)

	w.Write([]string{"Overall Assessment"})
	w.Write([]string{result.OverallAssessment})
	w.Write(nil)

	w.Write([]string{"Matches"})
	if len(result.Matches) > 0 {
		w.Write(matchFields)
		for _, m := range result.Matches {
			w.Write([]string{m.Item, m.Status, m.Details})
		}
	} else {
		w.Write([]string{"No matches found"})
	}
	w.Write(nil)

	w.Write([]string{"Discrepancies"})
	if len(result.Discrepancies) > 0 {
		w.Write(discrepancyFields)
		for _, d := range result.Discrepancies {
			w.Write([]string{d.Item, d.Severity, d.Details})
		}
	} else {
		w.Write([]string{"No discrepancies found"})
	}

	w.Flush()
	return buf.Bytes()
}

// ReportFilename names the download with a second-resolution timestamp
func ReportFilename(now time.Time) string {
	return fmt.Sprintf("payroll_verification_report_%s.csv", now.Format("20060102_150405"))
}
