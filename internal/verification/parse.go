package verification

import (
	"encoding/json"
	"fmt"
	"strings"
)

const noAssessment = "No overall assessment provided"

// ParseResult parses the model's reply into a Result. Parsing is
// best-effort: markdown code fences are stripped, the reply is bounded to
// its outermost JSON object, absent fields default rather than error, and
// severities are normalized to lowercase. A reply with no parsable JSON
// object is an error; the caller keeps the raw text for display.
func ParseResult(raw string) (*Result, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var result Result
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("unmarshaling verification result: %w", err)
	}

	if result.Matches == nil {
		result.Matches = []Match{}
	}
	if result.Discrepancies == nil {
		result.Discrepancies = []Discrepancy{}
	}
	for i := range result.Discrepancies {
		result.Discrepancies[i].Severity = strings.ToLower(strings.TrimSpace(result.Discrepancies[i].Severity))
	}

	result.OverallAssessment = strings.TrimSpace(result.OverallAssessment)
	if result.OverallAssessment == "" {
		result.OverallAssessment = noAssessment
	}

	return &result, nil
}
