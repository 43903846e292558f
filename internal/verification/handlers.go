package verification

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
)

// maxUploadSize caps multipart uploads; high-resolution phone photos can be large
const maxUploadSize = int64(50 << 20) // 50MB

// writeError reports a stage failure to the user as a JSON body
func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// discrepancyView decorates a discrepancy with its display bucket so the UI
// applies the same severity fallback the server tests.
type discrepancyView struct {
	Discrepancy
	SeverityClass string `json:"severity_class"`
}

type resultView struct {
	Matches           []Match           `json:"matches"`
	Discrepancies     []discrepancyView `json:"discrepancies"`
	OverallAssessment string            `json:"overall_assessment"`
}

type outcomeView struct {
	Result     *resultView `json:"result,omitempty"`
	Raw        string      `json:"raw"`
	ParseError string      `json:"parse_error,omitempty"`
}

func viewOfResult(r *Result) *resultView {
	if r == nil {
		return nil
	}
	discrepancies := make([]discrepancyView, 0, len(r.Discrepancies))
	for _, d := range r.Discrepancies {
		discrepancies = append(discrepancies, discrepancyView{
			Discrepancy:   d,
			SeverityClass: SeverityClass(d.Severity),
		})
	}
	return &resultView{
		Matches:           r.Matches,
		Discrepancies:     discrepancies,
		OverallAssessment: r.OverallAssessment,
	}
}

func viewOfOutcome(o *Outcome) *outcomeView {
	if o == nil {
		return nil
	}
	return &outcomeView{
		Result:     viewOfResult(o.Result),
		Raw:        o.Raw,
		ParseError: o.ParseError,
	}
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Write(appCSS)
}

func (s *Server) handleStaticJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write(appJS)
}

// handleState reports the session's pipeline state so a reloaded page can
// re-derive the UI, including whether the verify action is enabled.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request, sess *Session) {
	writeJSON(w, http.StatusOK, map[string]any{
		"table":          sess.Table,
		"receipt_text":   sess.Receipt,
		"outcome":        viewOfOutcome(sess.Outcome),
		"verify_enabled": s.service.CanVerify(sess),
	})
}

// readUpload pulls the uploaded file out of the multipart form
func readUpload(r *http.Request) ([]byte, string, string, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, "", "", err
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", "", err
	}
	return data, header.Filename, header.Header.Get("Content-Type"), nil
}

// handleUploadPayroll loads an uploaded spreadsheet into the session
func (s *Server) handleUploadPayroll(w http.ResponseWriter, r *http.Request, sess *Session) {
	data, filename, _, err := readUpload(r)
	if err != nil {
		slog.Error("Error reading payroll upload", "error", err)
		writeError(w, "No spreadsheet was uploaded. Please choose an .xlsx or .xls file.", http.StatusBadRequest)
		return
	}

	table, err := s.service.LoadPayroll(sess, bytes.NewReader(data))
	if err != nil {
		slog.Error("Error loading payroll data", "filename", filename, "error", err)
		writeError(w, "Error reading payroll file: "+err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, table)
}

// contentTypeFor falls back to the filename extension when the browser did
// not declare a content type for the upload
func contentTypeFor(declared, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(declared))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleUploadReceipt OCRs an uploaded receipt into the session
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request, sess *Session) {
	data, filename, declared, err := readUpload(r)
	if err != nil {
		slog.Error("Error reading receipt upload", "error", err)
		writeError(w, "No receipt was uploaded. Please choose an image or PDF file.", http.StatusBadRequest)
		return
	}

	text, err := s.service.ExtractReceipt(sess, data, contentTypeFor(declared, filename))
	if err != nil {
		writeError(w, "Error processing receipt: "+err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"text": text})
}

// handleVerify runs the model comparison. The interface disables the action
// until both inputs are present; a request that arrives anyway gets a 409.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request, sess *Session) {
	if !s.service.CanVerify(sess) {
		writeError(w, "Upload payroll data and a receipt before verifying.", http.StatusConflict)
		return
	}

	outcome, err := s.service.Verify(sess)
	if err != nil {
		writeError(w, "Error during verification: "+err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, viewOfOutcome(outcome))
}

// handleReport streams the CSV report as a timestamped download
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, sess *Session) {
	report, filename, err := s.service.Report(sess)
	if err != nil {
		writeError(w, "No verification report available yet.", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write(report)
}
