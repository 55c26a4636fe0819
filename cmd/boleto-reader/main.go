package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/boleto-reader/internal/boleto"
	"github.com/zombor/boleto-reader/internal/extraction"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

const usage = `usage:
  boleto-reader [flags] extract FILE...   read fields from PDF/PNG/JPG files
  boleto-reader [flags] serve             start the drag-and-drop web interface
  boleto-reader [flags] export OUT.xlsx   write every stored document to a spreadsheet`

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the exit status so deferred cleanup runs before os.Exit
func run(argv []string) int {
	// Check for version flag before parsing other flags
	for _, arg := range argv {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			return 0
		}
	}

	fs := ff.NewFlagSet("boleto-reader")
	var (
		engineName  = fs.StringLong("engine", "tesseract", "OCR engine: 'tesseract', 'gemini' or 'ollama'")
		lang        = fs.StringLong("lang", extraction.DefaultLanguage, "OCR language model")
		psm         = fs.IntLong("psm", extraction.DefaultPSM, "Tesseract page segmentation mode (1-13)")
		dpi         = fs.IntLong("dpi", extraction.DefaultDPI, "Rasterization DPI for PDF pages without text")
		threshold   = fs.IntLong("threshold", extraction.DefaultThreshold, "Binarization threshold for images (1-255)")
		tesseract   = fs.StringLong("tesseract", extraction.DefaultTesseract, "Tesseract binary name or path")
		tessdata    = fs.StringLong("tessdata-dir", "", "Tesseract tessdata directory (optional)")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "qwen2.5vl", "Ollama vision model name")
		dbPath      = fs.StringLong("db", "boletos.db", "Database file path")
		storagePath = fs.StringLong("storage", "./boletos", "Storage directory path")
		port        = fs.IntLong("port", 8080, "HTTP server port")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		asJSON      = fs.BoolLong("json", "Print extracted fields as JSON")
		showRaw     = fs.BoolLong("raw", "Also print the extracted text")
		verbose     = fs.BoolLong("verbose", "Enable debug logging")
		_           = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, argv,
		ff.WithEnvVarPrefix("BOLETO_READER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	args := fs.GetArgs()
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "%s\n\n%s\n", usage, ffhelp.Flags(fs))
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := extraction.Config{
		Language:    *lang,
		PSM:         *psm,
		DPI:         *dpi,
		Threshold:   *threshold,
		Tesseract:   *tesseract,
		TessdataDir: *tessdata,
	}

	// export never touches the OCR engine
	if args[0] == "export" {
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, usage)
			return 2
		}
		if err := runExport(*dbPath, args[1]); err != nil {
			slog.Error("Export failed", "error", err)
			return 1
		}
		return 0
	}

	apiKey := *geminiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	engine, err := newEngine(ctx, *engineName, cfg, engineOptions{
		geminiKey:   apiKey,
		geminiModel: *geminiModel,
		ollamaURL:   *ollamaURL,
		ollamaModel: *ollamaModel,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize OCR engine", "engine", *engineName, "error", err)
		return 1
	}
	defer engine.Close()

	extractor, err := extraction.New(cfg, engine, logger)
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		return 1
	}

	switch args[0] {
	case "extract":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, usage)
			return 2
		}
		opts := printOptions{json: *asJSON, raw: *showRaw}
		if failed := runExtract(ctx, extractor, os.Stdout, os.Stderr, args[1:], opts); failed > 0 {
			return 1
		}
	case "serve":
		if err := runServe(ctx, extractor, *dbPath, *storagePath, *port, boleto.BasicAuth{
			Username: *authUser,
			Password: *authPass,
		}); err != nil {
			slog.Error("Server error", "error", err)
			return 1
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", args[0], usage)
		return 2
	}
	return 0
}

type engineOptions struct {
	geminiKey   string
	geminiModel string
	ollamaURL   string
	ollamaModel string
}

func newEngine(ctx context.Context, name string, cfg extraction.Config, opts engineOptions, logger *slog.Logger) (extraction.Engine, error) {
	switch name {
	case "tesseract":
		slog.Debug("Initializing tesseract engine", "binary", cfg.Tesseract, "lang", cfg.Language)
		return extraction.NewTesseract(cfg, logger), nil
	case "gemini":
		slog.Debug("Initializing Gemini engine", "model", opts.geminiModel)
		return extraction.NewGemini(ctx, opts.geminiKey, opts.geminiModel)
	case "ollama":
		slog.Debug("Initializing Ollama engine", "url", opts.ollamaURL, "model", opts.ollamaModel)
		return extraction.NewOllama(opts.ollamaURL, opts.ollamaModel), nil
	default:
		return nil, fmt.Errorf("invalid engine %q (valid: tesseract, gemini, ollama)", name)
	}
}

func runServe(ctx context.Context, extractor boleto.TextExtractor, dbPath, storagePath string, port int, auth boleto.BasicAuth) error {
	slog.Info("Initializing database...", "path", dbPath)
	db, err := boleto.NewBoltDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := boleto.NewLocalStorage(storagePath)
	if err != nil {
		return err
	}

	server := boleto.NewServer(boleto.NewService(db, extractor, store), auth)

	addr := fmt.Sprintf(":%d", port)
	slog.Info("Open the web interface", "url", fmt.Sprintf("http://localhost%s", addr))
	return server.Start(ctx, addr)
}

func runExport(dbPath, out string) error {
	db, err := boleto.NewBoltDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	docs, err := db.ListDocuments()
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	if err := boleto.WriteWorkbook(f, docs); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", out, err)
	}
	slog.Info("Export written", "path", out, "documents", len(docs))
	return nil
}
