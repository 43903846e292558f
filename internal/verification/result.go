package verification

// Match is one item the model found consistent between payroll and receipt
type Match struct {
	Item    string `json:"item"`
	Status  string `json:"status"`
	Details string `json:"details"`
}

// Discrepancy is one inconsistency the model flagged, tagged with a
// low/medium/high severity
type Discrepancy struct {
	Item     string `json:"item"`
	Severity string `json:"severity"`
	Details  string `json:"details"`
}

// Result is the parsed form of the model's JSON reply
type Result struct {
	Matches           []Match       `json:"matches"`
	Discrepancies     []Discrepancy `json:"discrepancies"`
	OverallAssessment string        `json:"overall_assessment"`
}

// Outcome is what one verification action produced. Raw always holds the
// model's reply text; Result is nil when that text did not parse, with
// ParseError saying why, so the UI can fall back to showing Raw.
type Outcome struct {
	Result     *Result `json:"result,omitempty"`
	Raw        string  `json:"raw"`
	ParseError string  `json:"parse_error,omitempty"`
}

// SeverityClass maps a discrepancy severity onto one of the three display
// buckets. Anything that is not exactly "high" or "medium" — including a
// missing or mistyped value — falls back to the neutral "low" bucket.
func SeverityClass(severity string) string {
	switch severity {
	case "high":
		return "high"
	case "medium":
		return "medium"
	default:
		return "low"
	}
}
