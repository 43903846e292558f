package analysis

import "fmt"

// Analyzer defines the interface for the model-backed comparison step. It
// takes the rendered payroll table and the receipt text and returns the raw
// text of the model's JSON reply, unmodified. One synchronous call per
// invocation; no retries.
type Analyzer interface {
	AnalyzePayroll(payrollText, receiptText string) (string, error)
	// Close closes the analyzer and releases resources
	Close() error
}

// systemPrompt frames the assistant for every provider
const systemPrompt = "You are a financial auditor specialized in payroll verification."

// promptTemplate is the fixed instruction the payroll table and receipt text
// are embedded into. The reply shape it asks for is what the presenter parses.
const promptTemplate = `Analyze the following payroll data and receipt information to identify any discrepancies or anomalies.

Payroll Data:
%s

Receipt Text:
%s

Please check for matches or discrepancies in:
1. Employee names
2. Salary amounts
3. Payment dates
4. Any other anomalies that might indicate fraud or errors

For each discrepancy, indicate the severity (low, medium, high) and provide a brief explanation.
Format the response as JSON with the following structure:
{
    "matches": [
        {"item": "employee_name", "status": "match", "details": "John Doe appears in both payroll and receipt"}
    ],
    "discrepancies": [
        {"item": "salary_amount", "severity": "high", "details": "Salary in receipt ($5000) does not match payroll ($4500) for John Doe"}
    ],
    "overall_assessment": "Brief summary of findings"
}`

// BuildPrompt embeds the rendered payroll table and the receipt text verbatim
// into the fixed instruction template.
func BuildPrompt(payrollText, receiptText string) string {
	return fmt.Sprintf(promptTemplate, payrollText, receiptText)
}
