package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"payrollverify/internal/analysis"
	"payrollverify/internal/extraction"
	"payrollverify/internal/verification"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Load .env before flag parsing so env-var fallbacks see it
	godotenv.Load()

	fs := ff.NewFlagSet("payroll-verify")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		analyzerType  = fs.StringLong("analyzer", "openai", "Analyzer backend: 'openai' or 'gemini'")
		openaiModel   = fs.StringLong("openai-model", "gpt-4", "OpenAI model name")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ocrType       = fs.StringLong("ocr", "vision", "OCR engine: 'vision' or 'ollama'")
		googleCreds   = fs.StringLong("google-credentials", "", "Google service account JSON path for the Vision OCR engine (or rely on application default credentials)")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama vision model name (e.g. llava, qwen2-vl)")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("PAYROLL_VERIFY"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize analyzer. A missing model credential is fatal before any
	// UI is served.
	var analyzer analysis.Analyzer
	var err error
	switch *analyzerType {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			slog.Error("OpenAI API key not found. Set OPENAI_API_KEY in the environment or a .env file")
			os.Exit(1)
		}
		slog.Info("Initializing OpenAI analyzer...", "model", *openaiModel)
		analyzer, err = analysis.NewOpenAI(apiKey, *openaiModel)
		if err != nil {
			slog.Error("Failed to initialize OpenAI analyzer", "error", err)
			os.Exit(1)
		}
	case "gemini":
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			slog.Error("Gemini API key not found. Set GEMINI_API_KEY in the environment or a .env file")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini analyzer...", "model", *geminiModel)
		analyzer, err = analysis.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini analyzer", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid analyzer type", "type", *analyzerType, "valid", "openai or gemini")
		os.Exit(1)
	}
	defer analyzer.Close()

	// Initialize OCR engine
	var engine extraction.Engine
	switch *ocrType {
	case "vision":
		slog.Info("Initializing Google Vision OCR engine...")
		engine, err = extraction.NewVision(*googleCreds)
		if err != nil {
			slog.Error("Failed to initialize Vision OCR engine", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama OCR engine...", "url", *ollamaURL, "model", *ollamaModel)
		engine, err = extraction.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama OCR engine", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid OCR engine type", "type", *ocrType, "valid", "vision or ollama")
		os.Exit(1)
	}
	defer engine.Close()

	extractor := extraction.NewExtractor(engine)
	sessions := verification.NewSessionStore()
	service := verification.NewService(sessions, extractor, analyzer)
	server := verification.NewServer(service)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
