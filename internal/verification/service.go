package verification

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"payrollverify/internal/analysis"
	"payrollverify/internal/payroll"
)

// Extractor turns an uploaded receipt file into plain text
type Extractor interface {
	ExtractText(data []byte, contentType string) (string, error)
}

// Service runs the verification pipeline against a session. Every stage
// updates the session only on success, so a later failure never discards
// state an earlier stage produced.
type Service struct {
	sessions   *SessionStore
	extractor  Extractor
	analyzer   analysis.Analyzer
	timeSource TimeSource
}

// NewService creates a new Service with the default time source
func NewService(sessions *SessionStore, extractor Extractor, analyzer analysis.Analyzer) *Service {
	return NewServiceWithDeps(sessions, extractor, analyzer, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(sessions *SessionStore, extractor Extractor, analyzer analysis.Analyzer, timeSrc TimeSource) *Service {
	return &Service{
		sessions:   sessions,
		extractor:  extractor,
		analyzer:   analyzer,
		timeSource: timeSrc,
	}
}

// Sessions exposes the session store for the HTTP layer
func (s *Service) Sessions() *SessionStore {
	return s.sessions
}

// LoadPayroll parses an uploaded spreadsheet and replaces the session's
// table. A parse failure leaves the previously loaded table untouched.
func (s *Service) LoadPayroll(sess *Session, r io.Reader) (*payroll.Table, error) {
	table, err := payroll.Load(r)
	if err != nil {
		return nil, fmt.Errorf("loading payroll data: %w", err)
	}

	sess.Table = table
	sess.UpdatedAt = s.timeSource.Now()
	slog.Info("Payroll data loaded", "session", sess.ID, "columns", len(table.Columns), "rows", len(table.Rows))
	return table, nil
}

// ExtractReceipt runs OCR over an uploaded receipt and replaces the
// session's receipt text. An extraction failure leaves prior text untouched.
func (s *Service) ExtractReceipt(sess *Session, data []byte, contentType string) (string, error) {
	text, err := s.extractor.ExtractText(data, contentType)
	if err != nil {
		slog.Error("Failed to extract receipt text",
			"session", sess.ID,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return "", fmt.Errorf("extracting receipt text: %w", err)
	}

	sess.Receipt = text
	sess.UpdatedAt = s.timeSource.Now()
	slog.Info("Receipt processed", "session", sess.ID, "text_length", len(text))
	return text, nil
}

// CanVerify is the pure predicate behind the verify button: a non-empty
// payroll table and non-blank receipt text must both be present.
func (s *Service) CanVerify(sess *Session) bool {
	return !sess.Table.Empty() && strings.TrimSpace(sess.Receipt) != ""
}

// Verify runs the single model call and parses its reply. An analyzer
// failure returns an error and leaves the session's previous outcome in
// place. A parse failure is not an error here: the outcome carries the raw
// reply and the parse error so the UI can show the text for inspection.
func (s *Service) Verify(sess *Session) (*Outcome, error) {
	if !s.CanVerify(sess) {
		return nil, fmt.Errorf("verification requires both payroll data and receipt text")
	}

	raw, err := s.analyzer.AnalyzePayroll(sess.Table.Render(), sess.Receipt)
	if err != nil {
		slog.Error("Verification call failed", "session", sess.ID, "error", err)
		return nil, fmt.Errorf("verifying payroll data: %w", err)
	}

	outcome := &Outcome{Raw: raw}
	result, parseErr := ParseResult(raw)
	if parseErr != nil {
		slog.Warn("Model reply did not parse", "session", sess.ID, "error", parseErr)
		outcome.ParseError = parseErr.Error()
	} else {
		outcome.Result = result
	}

	sess.Outcome = outcome
	sess.UpdatedAt = s.timeSource.Now()
	return outcome, nil
}

// Report builds the downloadable CSV for the session's parsed result,
// returning the bytes and the timestamped filename.
func (s *Service) Report(sess *Session) ([]byte, string, error) {
	if sess.Outcome == nil || sess.Outcome.Result == nil {
		return nil, "", fmt.Errorf("no parsed verification result to report")
	}
	now := s.timeSource.Now()
	return BuildReport(sess.Outcome.Result, now), ReportFilename(now), nil
}
