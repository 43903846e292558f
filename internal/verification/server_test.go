package verification

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	Expect(err).NotTo(HaveOccurred())
	return u
}

var _ = Describe("Server", func() {
	var (
		analyzer   *mockAnalyzer
		extractor  *mockExtractor
		service    *Service
		server     *Server
		testServer *httptest.Server
		client     *http.Client
	)

	BeforeEach(func() {
		analyzer = &mockAnalyzer{reply: `{"matches":[{"item":"a","status":"match","details":"x"}],"discrepancies":[],"overall_assessment":"ok"}`}
		extractor = &mockExtractor{text: "RECEIPT John Doe $4,500"}
		service = NewService(NewSessionStore(), extractor, analyzer)
		server = NewServerWithMux(service, http.NewServeMux())
		testServer = httptest.NewServer(server)

		jar, err := cookiejar.New(nil)
		Expect(err).NotTo(HaveOccurred())
		client = &http.Client{Jar: jar}
	})

	AfterEach(func() {
		testServer.Close()
	})

	postFile := func(path, filename string, data []byte) *http.Response {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		fw, err := w.CreateFormFile("file", filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = fw.Write(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Close()).To(Succeed())

		resp, err := client.Post(testServer.URL+path, w.FormDataContentType(), &buf)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decodeBody := func(resp *http.Response) map[string]any {
		defer resp.Body.Close()
		var body map[string]any
		Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
		return body
	}

	uploadBoth := func() {
		resp := postFile("/api/payroll", "payroll.xlsx", payrollWorkbook())
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		resp.Body.Close()
		resp = postFile("/api/receipt", "receipt.png", []byte("fake image"))
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		resp.Body.Close()
	}

	Describe("GET /", func() {
		It("should serve the HTML interface", func() {
			resp, err := client.Get(testServer.URL + "/")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("Payroll Verification"))
		})

		It("should set the session cookie", func() {
			resp, err := client.Get(testServer.URL + "/api/state")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			cookies := client.Jar.Cookies(mustParseURL(testServer.URL))
			Expect(cookies).NotTo(BeEmpty())
			Expect(cookies[0].Name).To(Equal("payroll_verify_session"))
		})
	})

	Describe("POST /api/payroll", func() {
		It("should load a valid spreadsheet", func() {
			resp := postFile("/api/payroll", "payroll.xlsx", payrollWorkbook())
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			body := decodeBody(resp)
			Expect(body["columns"]).To(Equal([]any{"Employee", "Salary"}))
		})

		It("should reject a malformed spreadsheet", func() {
			resp := postFile("/api/payroll", "payroll.xlsx", []byte("nope"))
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(decodeBody(resp)["error"]).To(ContainSubstring("Error reading payroll file"))
		})

		It("should reject a request without a file", func() {
			resp, err := client.Post(testServer.URL+"/api/payroll", "application/json", bytes.NewReader([]byte("{}")))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			resp.Body.Close()
		})
	})

	Describe("POST /api/receipt", func() {
		It("should extract and return the receipt text", func() {
			resp := postFile("/api/receipt", "receipt.png", []byte("fake image"))
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			Expect(decodeBody(resp)["text"]).To(Equal("RECEIPT John Doe $4,500"))
		})

		It("should infer the content type from the filename", func() {
			postFile("/api/receipt", "receipt.pdf", []byte("%PDF fake")).Body.Close()
			Expect(extractor.calls).To(Equal([]string{"application/pdf"}))
		})

		It("should report extraction failures", func() {
			extractor.extractErr = errors.New("ocr unavailable")
			resp := postFile("/api/receipt", "receipt.png", []byte("fake image"))
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(decodeBody(resp)["error"]).To(ContainSubstring("ocr unavailable"))
		})
	})

	Describe("POST /api/verify", func() {
		It("should refuse with 409 before both inputs are present", func() {
			resp, err := client.Post(testServer.URL+"/api/verify", "application/json", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
			resp.Body.Close()
			Expect(analyzer.calls).To(BeEmpty())
		})

		It("should return the parsed outcome once both inputs are present", func() {
			uploadBoth()
			resp, err := client.Post(testServer.URL+"/api/verify", "application/json", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body := decodeBody(resp)
			result := body["result"].(map[string]any)
			Expect(result["overall_assessment"]).To(Equal("ok"))
			matches := result["matches"].([]any)
			Expect(matches).To(HaveLen(1))
		})

		It("should tag discrepancies with their display bucket", func() {
			analyzer.reply = `{"matches":[],"discrepancies":[{"item":"salary","severity":"odd","details":"d"}],"overall_assessment":"ok"}`
			uploadBoth()
			resp, err := client.Post(testServer.URL+"/api/verify", "application/json", nil)
			Expect(err).NotTo(HaveOccurred())
			body := decodeBody(resp)
			discrepancies := body["result"].(map[string]any)["discrepancies"].([]any)
			Expect(discrepancies[0].(map[string]any)["severity_class"]).To(Equal("low"))
		})

		It("should return the raw text when the reply does not parse", func() {
			analyzer.reply = "no json here"
			uploadBoth()
			resp, err := client.Post(testServer.URL+"/api/verify", "application/json", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body := decodeBody(resp)
			Expect(body["result"]).To(BeNil())
			Expect(body["raw"]).To(Equal("no json here"))
			Expect(body["parse_error"]).NotTo(BeEmpty())
		})

		It("should report analyzer failures as a gateway error", func() {
			analyzer.analyzeErr = errors.New("auth failed")
			uploadBoth()
			resp, err := client.Post(testServer.URL+"/api/verify", "application/json", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
			resp.Body.Close()
		})
	})

	Describe("GET /api/state", func() {
		It("should report verify_enabled only when both inputs are present", func() {
			resp, err := client.Get(testServer.URL + "/api/state")
			Expect(err).NotTo(HaveOccurred())
			Expect(decodeBody(resp)["verify_enabled"]).To(BeFalse())

			uploadBoth()

			resp, err = client.Get(testServer.URL + "/api/state")
			Expect(err).NotTo(HaveOccurred())
			Expect(decodeBody(resp)["verify_enabled"]).To(BeTrue())
		})
	})

	Describe("GET /api/report", func() {
		It("should 404 before a verification has run", func() {
			resp, err := client.Get(testServer.URL + "/api/report")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			resp.Body.Close()
		})

		It("should stream the CSV as a timestamped attachment", func() {
			uploadBoth()
			resp, err := client.Post(testServer.URL+"/api/verify", "application/json", nil)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()

			resp, err = client.Get(testServer.URL + "/api/report")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("text/csv; charset=utf-8"))
			Expect(resp.Header.Get("Content-Disposition")).To(MatchRegexp(`attachment; filename="payroll_verification_report_\d{8}_\d{6}\.csv"`))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(HavePrefix("Verification Report - Generated on "))
			Expect(string(body)).To(ContainSubstring("\nMatches\nitem,status,details\n"))
		})
	})

	Describe("session isolation", func() {
		It("should not leak state between browsers", func() {
			uploadBoth()

			otherJar, err := cookiejar.New(nil)
			Expect(err).NotTo(HaveOccurred())
			other := &http.Client{Jar: otherJar}
			resp, err := other.Get(testServer.URL + "/api/state")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			var state map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&state)).To(Succeed())
			Expect(state["verify_enabled"]).To(BeFalse())
			Expect(state["table"]).To(BeNil())
		})
	})
})
